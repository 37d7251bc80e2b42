package negotiation

import (
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/1ureka/mungesdp/internal/agent"
)

// event is something an agent reported from one of its own goroutines.
type event interface{ generation() int }

type candidateEvent struct {
	gen       int
	from      agent.Role
	candidate *webrtc.ICECandidateInit // nil: end of candidates
}

type trackEvent struct {
	gen  int
	info agent.TrackInfo
}

type channelEvent struct {
	gen int
	ch  agent.Channel
}

func (e candidateEvent) generation() int { return e.gen }
func (e trackEvent) generation() int     { return e.gen }
func (e channelEvent) generation() int   { return e.gen }

// mailbox is an unbounded queue of agent events. push never blocks, so an
// agent goroutine can never stall behind the loop (the loop may itself be
// waiting on that agent, e.g. inside Close).
type mailbox struct {
	mu     sync.Mutex
	items  []event
	notify chan struct{}
}

func newMailbox() *mailbox {
	return &mailbox{notify: make(chan struct{}, 1)}
}

func (m *mailbox) push(e event) {
	m.mu.Lock()
	m.items = append(m.items, e)
	m.mu.Unlock()

	select {
	case m.notify <- struct{}{}:
	default:
	}
}

// drain returns the queued events in arrival order and empties the queue.
func (m *mailbox) drain() []event {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := m.items
	m.items = nil
	return items
}

// Package heartbeat sends an incrementing counter over an open data channel
// and records the latest value on the receiving end. It only demonstrates
// that the channel is alive: there is no retry and no backpressure.
package heartbeat

import (
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pion/webrtc/v4"

	"github.com/1ureka/mungesdp/internal/agent"
	"github.com/1ureka/mungesdp/internal/util"
)

// Sender writes the counter every interval while its channel is open.
type Sender struct {
	ch       agent.Channel
	interval time.Duration
	next     atomic.Int64

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

// NewSender registers on ch's readiness events. The loop starts when the
// channel reports open and stops on any other state.
func NewSender(ch agent.Channel, interval time.Duration) *Sender {
	s := &Sender{ch: ch, interval: interval}

	ch.OnOpen(s.onStateChange)
	ch.OnClose(s.onStateChange)
	ch.OnError(func(err error) {
		util.LogWarning("send channel error: %v", err)
		s.onStateChange()
	})

	return s
}

func (s *Sender) onStateChange() {
	state := s.ch.ReadyState()
	util.LogInfo("send channel state is: %s", state)

	if state == webrtc.DataChannelStateOpen {
		s.start()
	} else {
		s.Stop()
	}
}

func (s *Sender) start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stop != nil {
		return
	}
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.loop(s.stop, s.done)
}

// Stop halts the loop and waits for it to exit. Safe to call when the loop
// is not running.
func (s *Sender) Stop() {
	s.mu.Lock()
	stop, done := s.stop, s.done
	s.stop, s.done = nil, nil
	s.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
}

// Running reports whether the loop is active.
func (s *Sender) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stop != nil
}

// Sent returns how many counter values were written.
func (s *Sender) Sent() int64 { return s.next.Load() }

func (s *Sender) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			n := s.next.Load()
			if err := s.ch.SendText(strconv.FormatInt(n, 10)); err != nil {
				util.LogWarning("failed to send counter %d: %v", n, err)
				continue
			}
			s.next.Add(1)
			util.Stats.AddSent()
			util.LogDebug("data channel send counter: %d", n)

		case <-stop:
			return
		}
	}
}

// Receiver keeps the most recent counter value seen on a channel.
type Receiver struct {
	ch     agent.Channel
	latest atomic.Int64
	seen   atomic.Bool
}

// NewReceiver registers on ch's message and readiness events.
func NewReceiver(ch agent.Channel) *Receiver {
	r := &Receiver{ch: ch}

	ch.OnMessage(r.onMessage)
	ch.OnOpen(r.logState)
	ch.OnClose(r.logState)

	return r
}

func (r *Receiver) onMessage(data []byte) {
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		util.LogWarning("ignoring non-counter message %q", data)
		return
	}
	r.latest.Store(n)
	r.seen.Store(true)
	util.Stats.AddRecv()
	util.LogDebug("data channel receive counter: %d", n)
}

func (r *Receiver) logState() {
	util.LogInfo("receive channel state is: %s", r.ch.ReadyState())
}

// Latest returns the last counter received and whether any arrived.
func (r *Receiver) Latest() (int64, bool) {
	return r.latest.Load(), r.seen.Load()
}

// Channel returns the channel the receiver listens on.
func (r *Receiver) Channel() agent.Channel { return r.ch }

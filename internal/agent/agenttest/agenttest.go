// Package agenttest provides in-memory agents and channels for tests.
package agenttest

import (
	"errors"
	"fmt"
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/1ureka/mungesdp/internal/agent"
	"github.com/1ureka/mungesdp/internal/config"
	"github.com/1ureka/mungesdp/internal/session"
)

// ErrClosed is returned by every call on a closed fake.
var ErrClosed = errors.New("agent closed")

// OfferBody and AnswerBody are the texts produced by CreateOffer and
// CreateAnswer. They are already CRLF terminated.
const (
	OfferBody  = "v=0\r\no=- 1 1 IN IP4 127.0.0.1\r\ns=-\r\nt=0 0\r\na=fake:offer\r\n"
	AnswerBody = "v=0\r\no=- 2 1 IN IP4 127.0.0.1\r\ns=-\r\nt=0 0\r\na=fake:answer\r\n"
)

// Agent records every call and lets tests inject failures and events.
type Agent struct {
	Role agent.Role

	mu         sync.Mutex
	errs       map[string]error
	calls      []string
	local      *session.Description
	remote     *session.Description
	candidates []*webrtc.ICECandidateInit
	tracks     []webrtc.TrackLocal
	channels   []*Channel
	closes     int
	closed     bool

	onCandidate   func(*webrtc.ICECandidateInit)
	onTrack       func(agent.TrackInfo)
	onDataChannel func(agent.Channel)
}

func NewAgent(role agent.Role) *Agent {
	return &Agent{Role: role, errs: make(map[string]error)}
}

// FailOn makes every later call to method return err; nil clears it.
func (a *Agent) FailOn(method string, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err == nil {
		delete(a.errs, method)
		return
	}
	a.errs[method] = err
}

// begin records method and returns the configured failure, if any.
func (a *Agent) begin(method string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, method)
	if a.closed {
		return ErrClosed
	}
	return a.errs[method]
}

func (a *Agent) CreateOffer(opts config.OfferOptions) (session.Description, error) {
	if err := a.begin("CreateOffer"); err != nil {
		return session.Description{}, err
	}
	return session.New(session.KindOffer, OfferBody), nil
}

func (a *Agent) CreateAnswer() (session.Description, error) {
	if err := a.begin("CreateAnswer"); err != nil {
		return session.Description{}, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.remote == nil {
		return session.Description{}, errors.New("no remote offer")
	}
	return session.New(session.KindAnswer, AnswerBody), nil
}

func (a *Agent) SetLocalDescription(d session.Description) error {
	if err := a.begin("SetLocalDescription"); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.local = &d
	return nil
}

func (a *Agent) SetRemoteDescription(d session.Description) error {
	if err := a.begin("SetRemoteDescription"); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.remote = &d
	return nil
}

func (a *Agent) AddICECandidate(c *webrtc.ICECandidateInit) error {
	a.mu.Lock()
	a.candidates = append(a.candidates, c)
	a.mu.Unlock()
	return a.begin("AddICECandidate")
}

func (a *Agent) RemoteDescription() (session.Description, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.remote == nil {
		return session.Description{}, false
	}
	return *a.remote, true
}

// LocalDescription returns the applied local description, if any.
func (a *Agent) LocalDescription() (session.Description, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.local == nil {
		return session.Description{}, false
	}
	return *a.local, true
}

func (a *Agent) AddTrack(track webrtc.TrackLocal) error {
	if err := a.begin("AddTrack"); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.tracks = append(a.tracks, track)
	return nil
}

func (a *Agent) CreateDataChannel(label string) (agent.Channel, error) {
	if err := a.begin("CreateDataChannel"); err != nil {
		return nil, err
	}
	ch := NewChannel(label)
	a.mu.Lock()
	defer a.mu.Unlock()
	a.channels = append(a.channels, ch)
	return ch, nil
}

func (a *Agent) OnICECandidate(fn func(*webrtc.ICECandidateInit)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onCandidate = fn
}

func (a *Agent) OnTrack(fn func(agent.TrackInfo)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onTrack = fn
}

func (a *Agent) OnDataChannel(fn func(agent.Channel)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onDataChannel = fn
}

func (a *Agent) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, "Close")
	a.closes++
	a.closed = true
	return nil
}

// EmitCandidate fires the registered candidate handler.
func (a *Agent) EmitCandidate(c *webrtc.ICECandidateInit) {
	a.mu.Lock()
	fn := a.onCandidate
	a.mu.Unlock()
	if fn != nil {
		fn(c)
	}
}

// EmitTrack fires the registered remote-track handler.
func (a *Agent) EmitTrack(info agent.TrackInfo) {
	a.mu.Lock()
	fn := a.onTrack
	a.mu.Unlock()
	if fn != nil {
		fn(info)
	}
}

// EmitDataChannel fires the registered data-channel handler.
func (a *Agent) EmitDataChannel(ch agent.Channel) {
	a.mu.Lock()
	fn := a.onDataChannel
	a.mu.Unlock()
	if fn != nil {
		fn(ch)
	}
}

// Calls returns the recorded method names in order.
func (a *Agent) Calls() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.calls...)
}

// CallCount returns how often method was called.
func (a *Agent) CallCount(method string) int {
	n := 0
	for _, c := range a.Calls() {
		if c == method {
			n++
		}
	}
	return n
}

// Candidates returns the candidates passed to AddICECandidate.
func (a *Agent) Candidates() []*webrtc.ICECandidateInit {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]*webrtc.ICECandidateInit(nil), a.candidates...)
}

func (a *Agent) Tracks() []webrtc.TrackLocal {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]webrtc.TrackLocal(nil), a.tracks...)
}

func (a *Agent) Channels() []*Channel {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]*Channel(nil), a.channels...)
}

func (a *Agent) Closes() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.closes
}

// Factory hands out fake agents and remembers them per role.
type Factory struct {
	mu      sync.Mutex
	Err     error
	created []*Agent
}

// New satisfies agent.Factory.
func (f *Factory) New(role agent.Role) (agent.Agent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	a := NewAgent(role)
	f.created = append(f.created, a)
	return a, nil
}

// Last returns the most recently created agent for role.
func (f *Factory) Last(role agent.Role) *Agent {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.created) - 1; i >= 0; i-- {
		if f.created[i].Role == role {
			return f.created[i]
		}
	}
	panic(fmt.Sprintf("agenttest: no %s agent created", role))
}

// Created returns how many agents were handed out.
func (f *Factory) Created() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created)
}

package negotiation

import (
	"context"
	"errors"

	"github.com/pion/webrtc/v4"

	"github.com/1ureka/mungesdp/internal/agent"
	"github.com/1ureka/mungesdp/internal/config"
	"github.com/1ureka/mungesdp/internal/heartbeat"
	"github.com/1ureka/mungesdp/internal/media"
	"github.com/1ureka/mungesdp/internal/session"
	"github.com/1ureka/mungesdp/internal/util"
)

// Coordinator owns one call: the media stream, the agent pair, both
// description editors and the heartbeat channels. Run must be started before
// any action is issued.
type Coordinator struct {
	cfg     config.Config
	factory agent.Factory
	source  media.Source

	requests chan request
	events   *mailbox
	done     chan struct{}

	// Owned by the loop goroutine.
	state         State
	gen           int // bumped per connection attempt; stale agent events are dropped
	pair          agent.Pair
	stream        *media.Stream
	offer         *session.Editor
	answer        *session.Editor
	sendCh        agent.Channel
	sender        *heartbeat.Sender
	receiver      *heartbeat.Receiver
	remoteStreams []string
}

// New creates a coordinator in the idle state.
func New(cfg config.Config, factory agent.Factory, source media.Source) *Coordinator {
	return &Coordinator{
		cfg:      cfg,
		factory:  factory,
		source:   source,
		requests: make(chan request),
		events:   newMailbox(),
		done:     make(chan struct{}),
		state:    StateIdle,
		offer:    session.NewEditor(session.KindOffer),
		answer:   session.NewEditor(session.KindAnswer),
	}
}

type request struct {
	ctx     context.Context
	trigger Trigger // zero: snapshot query
	sel     media.Selection
	text    string
	reply   chan result
}

type result struct {
	text string
	snap Snapshot
	err  error
}

// Run processes actions and agent events one at a time until ctx is
// cancelled, then releases everything the call still holds.
func (c *Coordinator) Run(ctx context.Context) {
	defer close(c.done)

	for {
		select {
		case req := <-c.requests:
			req.reply <- c.handle(req)

		case <-c.events.notify:
			for _, e := range c.events.drain() {
				c.dispatch(e)
			}

		case <-ctx.Done():
			c.release()
			return
		}
	}
}

// Done is closed once Run has returned.
func (c *Coordinator) Done() <-chan struct{} { return c.done }

// do hands req to the loop and waits for its result.
func (c *Coordinator) do(ctx context.Context, req request) result {
	req.ctx = ctx
	req.reply = make(chan result, 1)

	select {
	case c.requests <- req:
	case <-c.done:
		return result{err: ErrNotRunning}
	case <-ctx.Done():
		return result{err: ctx.Err()}
	}

	select {
	case res := <-req.reply:
		return res
	case <-ctx.Done():
		return result{err: ctx.Err()}
	}
}

// ---------------------------------------------------------------------------
// Operator actions
// ---------------------------------------------------------------------------

// AcquireMedia obtains a local stream. Repeating it before the connections
// exist replaces the previous stream.
func (c *Coordinator) AcquireMedia(ctx context.Context, sel media.Selection) error {
	return c.do(ctx, request{trigger: TriggerAcquireMedia, sel: sel}).err
}

// CreateConnections creates both agents and wires their callbacks.
func (c *Coordinator) CreateConnections(ctx context.Context) error {
	return c.do(ctx, request{trigger: TriggerCreateConnections}).err
}

// CreateOffer asks the initiator for an offer and returns its editable text.
func (c *Coordinator) CreateOffer(ctx context.Context) (string, error) {
	res := c.do(ctx, request{trigger: TriggerCreateOffer})
	return res.text, res.err
}

// ApplyOffer normalizes the edited offer text and applies it to both agents.
func (c *Coordinator) ApplyOffer(ctx context.Context, text string) error {
	return c.do(ctx, request{trigger: TriggerApplyOffer, text: text}).err
}

// CreateAnswer asks the responder for an answer and returns its editable text.
func (c *Coordinator) CreateAnswer(ctx context.Context) (string, error) {
	res := c.do(ctx, request{trigger: TriggerCreateAnswer})
	return res.text, res.err
}

// ApplyAnswer normalizes the edited answer text and applies it to both agents.
func (c *Coordinator) ApplyAnswer(ctx context.Context, text string) error {
	return c.do(ctx, request{trigger: TriggerApplyAnswer, text: text}).err
}

// Hangup ends the call. Calling it again is a no-op.
func (c *Coordinator) Hangup(ctx context.Context) error {
	return c.do(ctx, request{trigger: TriggerHangup}).err
}

// Snapshot returns a consistent view of the call.
func (c *Coordinator) Snapshot(ctx context.Context) (Snapshot, error) {
	res := c.do(ctx, request{})
	return res.snap, res.err
}

// ---------------------------------------------------------------------------
// Transitions (loop goroutine only)
// ---------------------------------------------------------------------------

func (c *Coordinator) handle(req request) result {
	if req.trigger == 0 {
		return result{snap: c.snapshot()}
	}
	if req.trigger == TriggerHangup && c.state == StateClosed {
		return result{}
	}

	next, err := Next(c.state, req.trigger)
	if err != nil {
		util.LogWarning("%v", err)
		return result{err: err}
	}

	prev := c.state

	var text string
	switch req.trigger {
	case TriggerAcquireMedia:
		err = c.acquireMedia(req.ctx, req.sel)
	case TriggerCreateConnections:
		err = c.createConnections()
	case TriggerCreateOffer:
		text, err = c.createDescription(c.pair.Initiator, c.offer)
	case TriggerApplyOffer:
		err = c.applyDescription(c.offer, req.text, c.pair.Initiator, c.pair.Responder)
	case TriggerCreateAnswer:
		text, err = c.createDescription(c.pair.Responder, c.answer)
	case TriggerApplyAnswer:
		err = c.applyDescription(c.answer, req.text, c.pair.Responder, c.pair.Initiator)
	case TriggerHangup:
		c.release()
	}

	if err != nil {
		util.LogError("%v", err)
		return result{err: err}
	}

	util.LogDebug("%s: %s -> %s", req.trigger, prev, next)
	c.state = next
	return result{text: text}
}

func (c *Coordinator) acquireMedia(ctx context.Context, sel media.Selection) error {
	util.LogInfo("requested local stream")

	stream, err := c.source.Acquire(ctx, sel)
	if err != nil {
		return err
	}

	if c.stream != nil {
		c.stream.Stop()
	}
	c.stream = stream
	util.LogInfo("received local stream")
	return nil
}

func (c *Coordinator) createConnections() error {
	util.LogInfo("starting call")

	if v := c.stream.VideoTracks(); len(v) > 0 {
		util.LogInfo("using video device: %s", v[0].Label())
	}
	if a := c.stream.AudioTracks(); len(a) > 0 {
		util.LogInfo("using audio device: %s", a[0].Label())
	}

	c.gen++
	gen := c.gen

	ini, err := c.factory(agent.RoleInitiator)
	if err != nil {
		return &NegotiationError{Step: "create initiator connection", Err: err}
	}
	util.LogInfo("created initiator connection")

	res, err := c.factory(agent.RoleResponder)
	if err != nil {
		ini.Close()
		return &NegotiationError{Step: "create responder connection", Err: err}
	}
	util.LogInfo("created responder connection")

	ini.OnICECandidate(func(cand *webrtc.ICECandidateInit) {
		c.events.push(candidateEvent{gen: gen, from: agent.RoleInitiator, candidate: cand})
	})
	res.OnICECandidate(func(cand *webrtc.ICECandidateInit) {
		c.events.push(candidateEvent{gen: gen, from: agent.RoleResponder, candidate: cand})
	})
	res.OnTrack(func(info agent.TrackInfo) {
		c.events.push(trackEvent{gen: gen, info: info})
	})
	res.OnDataChannel(func(ch agent.Channel) {
		c.events.push(channelEvent{gen: gen, ch: ch})
	})

	sendCh, err := ini.CreateDataChannel(c.cfg.ChannelLabel)
	if err != nil {
		closePair(ini, res)
		return &NegotiationError{Step: "create data channel", Err: err}
	}

	for _, t := range c.stream.Tracks() {
		if err := ini.AddTrack(t.Local()); err != nil {
			sendCh.Close()
			closePair(ini, res)
			return &NegotiationError{Step: "add local track", Err: err}
		}
	}
	util.LogInfo("added local stream to initiator connection")

	c.pair = agent.Pair{Initiator: ini, Responder: res}
	c.sendCh = sendCh
	c.sender = heartbeat.NewSender(sendCh, c.cfg.HeartbeatInterval)
	return nil
}

func closePair(a, b agent.Agent) {
	if err := errors.Join(a.Close(), b.Close()); err != nil {
		util.LogWarning("failed to close connections: %v", err)
	}
}

// createDescription asks a for an offer or answer and presents it in ed.
func (c *Coordinator) createDescription(a agent.Agent, ed *session.Editor) (string, error) {
	var (
		d   session.Description
		err error
	)
	if ed.Kind() == session.KindOffer {
		d, err = a.CreateOffer(c.cfg.Offer)
	} else {
		d, err = a.CreateAnswer()
	}
	if err != nil {
		return "", &NegotiationError{Step: "create " + ed.Kind().String(), Err: err}
	}

	util.LogInfo("created %s", ed.Kind())
	return ed.Present(d), nil
}

// applyDescription commits the edited text and applies the one resulting
// value as local on owner and remote on peer. Both calls are always issued;
// the step fails, without rollback, if either is rejected.
func (c *Coordinator) applyDescription(ed *session.Editor, text string, owner, peer agent.Agent) error {
	ed.Edit(text)

	d, err := ed.Commit()
	if err != nil {
		return err
	}
	if c.cfg.StrictValidation {
		if err := session.Validate(d); err != nil {
			return err
		}
	}

	kind := d.Kind().String()
	util.LogDebug("modified %s\n%s", kind, d.Body())

	var errs []error
	if err := owner.SetLocalDescription(d); err != nil {
		errs = append(errs, &NegotiationError{Step: "set local description (" + kind + ")", Err: err})
	}
	if err := peer.SetRemoteDescription(d); err != nil {
		errs = append(errs, &NegotiationError{Step: "set remote description (" + kind + ")", Err: err})
	}
	if len(errs) > 0 {
		return &NegotiationError{Step: "apply " + kind, Err: errors.Join(errs...)}
	}

	util.LogSuccess("set session description success (%s)", kind)
	return nil
}

// release stops media, closes channels and both agents, and disables the
// editors. Everything is dropped so a second call finds nothing to close.
func (c *Coordinator) release() {
	if c.state == StateClosed {
		return
	}
	util.LogInfo("ending call")

	if c.sender != nil {
		c.sender.Stop()
		c.sender = nil
	}
	if c.stream != nil {
		c.stream.Stop()
		c.stream = nil
	}

	var errs []error
	if c.sendCh != nil {
		errs = append(errs, c.sendCh.Close())
		c.sendCh = nil
	}
	if c.receiver != nil {
		errs = append(errs, c.receiver.Channel().Close())
		c.receiver = nil
	}
	if c.pair.Initiator != nil {
		errs = append(errs, c.pair.Initiator.Close(), c.pair.Responder.Close())
		c.pair = agent.Pair{}
	}
	if err := errors.Join(errs...); err != nil {
		util.LogWarning("errors while closing call: %v", err)
	}

	c.offer.Disable()
	c.answer.Disable()
	c.state = StateClosed
}

// ---------------------------------------------------------------------------
// Agent events (loop goroutine only)
// ---------------------------------------------------------------------------

func (c *Coordinator) dispatch(e event) {
	if c.state == StateClosed || c.pair.Initiator == nil || e.generation() != c.gen {
		return
	}

	switch e := e.(type) {
	case candidateEvent:
		c.relayCandidate(e)
	case trackEvent:
		c.remoteTrack(e.info)
	case channelEvent:
		util.LogInfo("receive channel callback")
		c.receiver = heartbeat.NewReceiver(e.ch)
	}
}

// relayCandidate forwards a candidate, including the final nil, to the
// opposite agent. A rejection is logged and the call carries on.
func (c *Coordinator) relayCandidate(e candidateEvent) {
	if e.candidate == nil {
		util.LogDebug("%s ICE candidate: (null)", e.from)
	} else {
		util.LogDebug("%s ICE candidate: %s", e.from, e.candidate.Candidate)
	}

	target := c.pair.Of(e.from.Opposite())
	if err := target.AddICECandidate(e.candidate); err != nil {
		util.Stats.AddCandidateFail()
		util.LogWarning("%v", &CandidateError{From: e.from, Err: err})
		return
	}
	util.Stats.AddCandidate()
	util.LogDebug("add ICE candidate success")
}

func (c *Coordinator) remoteTrack(info agent.TrackInfo) {
	for _, id := range c.remoteStreams {
		if id == info.StreamID {
			return
		}
	}
	c.remoteStreams = append(c.remoteStreams, info.StreamID)
	util.LogInfo("received remote stream %s", info.StreamID)
}

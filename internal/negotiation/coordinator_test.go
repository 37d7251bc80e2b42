package negotiation

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/pion/webrtc/v4"

	"github.com/1ureka/mungesdp/internal/agent"
	"github.com/1ureka/mungesdp/internal/agent/agenttest"
	"github.com/1ureka/mungesdp/internal/config"
	"github.com/1ureka/mungesdp/internal/media"
	"github.com/1ureka/mungesdp/internal/session"
)

type harness struct {
	c       *Coordinator
	factory *agenttest.Factory
	source  *media.Synthetic
	ctx     context.Context
}

func newHarness(t *testing.T, mutate ...func(*config.Config)) *harness {
	t.Helper()

	cfg := config.Default()
	cfg.ICEServers = nil
	cfg.HeartbeatInterval = 5 * time.Millisecond
	for _, m := range mutate {
		m(&cfg)
	}

	h := &harness{
		factory: &agenttest.Factory{},
		source:  media.NewSynthetic(),
		ctx:     context.Background(),
	}
	h.c = New(cfg, h.factory.New, h.source)

	ctx, cancel := context.WithCancel(context.Background())
	go h.c.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-h.c.Done()
	})

	return h
}

func (h *harness) initiator() *agenttest.Agent { return h.factory.Last(agent.RoleInitiator) }
func (h *harness) responder() *agenttest.Agent { return h.factory.Last(agent.RoleResponder) }

func (h *harness) state(t *testing.T) State {
	t.Helper()
	s, err := h.c.Snapshot(h.ctx)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	return s.State
}

// advance drives the call up to and including the given trigger.
func (h *harness) advance(t *testing.T, until Trigger) {
	t.Helper()

	steps := []struct {
		trigger Trigger
		run     func() error
	}{
		{TriggerAcquireMedia, func() error { return h.c.AcquireMedia(h.ctx, media.Selection{}) }},
		{TriggerCreateConnections, func() error { return h.c.CreateConnections(h.ctx) }},
		{TriggerCreateOffer, func() error { _, err := h.c.CreateOffer(h.ctx); return err }},
		{TriggerApplyOffer, func() error { return h.c.ApplyOffer(h.ctx, agenttest.OfferBody) }},
		{TriggerCreateAnswer, func() error { _, err := h.c.CreateAnswer(h.ctx); return err }},
		{TriggerApplyAnswer, func() error { return h.c.ApplyAnswer(h.ctx, agenttest.AnswerBody) }},
	}

	for _, s := range steps {
		if err := s.run(); err != nil {
			t.Fatalf("%s failed: %v", s.trigger, err)
		}
		if s.trigger == until {
			return
		}
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestEndToEndWithEditedText(t *testing.T) {
	h := newHarness(t)
	h.advance(t, TriggerCreateConnections)

	offerText, err := h.c.CreateOffer(h.ctx)
	if err != nil {
		t.Fatalf("CreateOffer failed: %v", err)
	}
	if offerText != agenttest.OfferBody {
		t.Errorf("offer text = %q", offerText)
	}

	// Pasting through a plain-text control drops every carriage return.
	edited := strings.ReplaceAll(offerText, "\r\n", "\n") + "a=edited:1"
	if err := h.c.ApplyOffer(h.ctx, edited); err != nil {
		t.Fatalf("ApplyOffer failed: %v", err)
	}

	answerText, err := h.c.CreateAnswer(h.ctx)
	if err != nil {
		t.Fatalf("CreateAnswer failed: %v", err)
	}
	if err := h.c.ApplyAnswer(h.ctx, strings.ReplaceAll(answerText, "\r\n", "\n")); err != nil {
		t.Fatalf("ApplyAnswer failed: %v", err)
	}

	snap, err := h.c.Snapshot(h.ctx)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if snap.State != StateAnswerApplied {
		t.Errorf("state = %s, want %s", snap.State, StateAnswerApplied)
	}
	if !snap.InitiatorHasRemote || !snap.ResponderHasRemote {
		t.Errorf("remote descriptions: initiator=%v responder=%v", snap.InitiatorHasRemote, snap.ResponderHasRemote)
	}
	if !snap.Offer.Enabled || !snap.Answer.Enabled {
		t.Error("text regions must be enabled once their description exists")
	}

	ini, res := h.initiator(), h.responder()

	iniLocal, _ := ini.LocalDescription()
	resRemote, _ := res.RemoteDescription()
	wantOffer := agenttest.OfferBody + "a=edited:1\r\n"
	if iniLocal.Body() != wantOffer || resRemote.Body() != wantOffer {
		t.Errorf("offer bodies diverge or are not normalized:\nlocal  %q\nremote %q", iniLocal.Body(), resRemote.Body())
	}
	if iniLocal.Kind() != session.KindOffer {
		t.Errorf("offer kind = %v", iniLocal.Kind())
	}

	resLocal, _ := res.LocalDescription()
	iniRemote, _ := ini.RemoteDescription()
	if resLocal.Body() != agenttest.AnswerBody || iniRemote.Body() != agenttest.AnswerBody {
		t.Errorf("answer bodies:\nlocal  %q\nremote %q", resLocal.Body(), iniRemote.Body())
	}
	if iniRemote.Kind() != session.KindAnswer {
		t.Errorf("answer kind = %v", iniRemote.Kind())
	}

	if n := len(ini.Tracks()); n != 2 {
		t.Errorf("initiator has %d tracks, want 2", n)
	}
	if chs := ini.Channels(); len(chs) != 1 || chs[0].Label() != "sendDataChannel" {
		t.Errorf("initiator channels = %v", chs)
	}
}

func TestApplyOfferBeforeCreateOffer(t *testing.T) {
	h := newHarness(t)
	h.advance(t, TriggerCreateConnections)

	err := h.c.ApplyOffer(h.ctx, agenttest.OfferBody)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("ApplyOffer error = %v, want ErrInvalidTransition", err)
	}
	if got := h.state(t); got != StateConnectionsCreated {
		t.Errorf("state = %s, want %s", got, StateConnectionsCreated)
	}
	if n := h.initiator().CallCount("SetLocalDescription"); n != 0 {
		t.Errorf("initiator SetLocalDescription called %d times", n)
	}
	if n := h.responder().CallCount("SetRemoteDescription"); n != 0 {
		t.Errorf("responder SetRemoteDescription called %d times", n)
	}
}

func TestApplyAnswerBeforeCreateAnswer(t *testing.T) {
	h := newHarness(t)
	h.advance(t, TriggerApplyOffer)

	if err := h.c.ApplyAnswer(h.ctx, agenttest.AnswerBody); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("ApplyAnswer error = %v, want ErrInvalidTransition", err)
	}
	if n := h.responder().CallCount("SetLocalDescription"); n != 0 {
		t.Errorf("responder SetLocalDescription called %d times", n)
	}
}

func TestActionsBeforeMedia(t *testing.T) {
	h := newHarness(t)

	if err := h.c.CreateConnections(h.ctx); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("CreateConnections error = %v", err)
	}
	if h.factory.Created() != 0 {
		t.Error("agents created before media was acquired")
	}
}

func TestApplyOfferEmptyText(t *testing.T) {
	h := newHarness(t)
	h.advance(t, TriggerCreateOffer)

	err := h.c.ApplyOffer(h.ctx, "  \n")

	var verr *session.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("ApplyOffer error = %v, want ValidationError", err)
	}
	if got := h.state(t); got != StateOfferCreated {
		t.Errorf("state = %s, want %s", got, StateOfferCreated)
	}
	if n := h.initiator().CallCount("SetLocalDescription"); n != 0 {
		t.Errorf("SetLocalDescription called %d times", n)
	}

	if err := h.c.ApplyOffer(h.ctx, agenttest.OfferBody); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if got := h.state(t); got != StateOfferApplied {
		t.Errorf("state = %s, want %s", got, StateOfferApplied)
	}
}

func TestStrictValidation(t *testing.T) {
	h := newHarness(t, func(c *config.Config) { c.StrictValidation = true })
	h.advance(t, TriggerCreateOffer)

	var verr *session.ValidationError
	if err := h.c.ApplyOffer(h.ctx, "garbage"); !errors.As(err, &verr) {
		t.Fatalf("ApplyOffer error = %v, want ValidationError", err)
	}
	if n := h.initiator().CallCount("SetLocalDescription"); n != 0 {
		t.Errorf("SetLocalDescription called %d times", n)
	}

	if err := h.c.ApplyOffer(h.ctx, agenttest.OfferBody); err != nil {
		t.Fatalf("ApplyOffer(valid) failed: %v", err)
	}
}

func TestApplyOfferAgentRejects(t *testing.T) {
	h := newHarness(t)
	h.advance(t, TriggerCreateOffer)

	rejected := errors.New("malformed")
	h.initiator().FailOn("SetLocalDescription", rejected)

	err := h.c.ApplyOffer(h.ctx, agenttest.OfferBody)

	var nerr *NegotiationError
	if !errors.As(err, &nerr) || nerr.Step != "apply offer" {
		t.Fatalf("ApplyOffer error = %v, want NegotiationError for apply offer", err)
	}
	if !errors.Is(err, rejected) {
		t.Errorf("error does not wrap the agent failure: %v", err)
	}
	if got := h.state(t); got != StateOfferCreated {
		t.Errorf("state = %s, want %s", got, StateOfferCreated)
	}
	// The peer still receives the same value; nothing is rolled back.
	if n := h.responder().CallCount("SetRemoteDescription"); n != 1 {
		t.Errorf("responder SetRemoteDescription called %d times, want 1", n)
	}

	if _, err := h.c.CreateAnswer(h.ctx); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("CreateAnswer after failed apply = %v, want ErrInvalidTransition", err)
	}

	h.initiator().FailOn("SetLocalDescription", nil)
	if err := h.c.ApplyOffer(h.ctx, agenttest.OfferBody); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if got := h.state(t); got != StateOfferApplied {
		t.Errorf("state = %s, want %s", got, StateOfferApplied)
	}
}

func TestCreateOfferFailure(t *testing.T) {
	h := newHarness(t)
	h.advance(t, TriggerCreateConnections)
	h.initiator().FailOn("CreateOffer", errors.New("wrong state"))

	_, err := h.c.CreateOffer(h.ctx)

	var nerr *NegotiationError
	if !errors.As(err, &nerr) || nerr.Step != "create offer" {
		t.Fatalf("CreateOffer error = %v", err)
	}
	snap, _ := h.c.Snapshot(h.ctx)
	if snap.State != StateConnectionsCreated || snap.Offer.Enabled {
		t.Errorf("state = %s, offer enabled = %v", snap.State, snap.Offer.Enabled)
	}
}

func TestAcquireMediaDeviceError(t *testing.T) {
	h := newHarness(t)

	err := h.c.AcquireMedia(h.ctx, media.Selection{VideoID: "missing"})

	var derr *media.DeviceError
	if !errors.As(err, &derr) {
		t.Fatalf("AcquireMedia error = %v, want DeviceError", err)
	}
	if got := h.state(t); got != StateIdle {
		t.Errorf("state = %s, want %s", got, StateIdle)
	}
}

func TestCreateConnectionsFailure(t *testing.T) {
	h := newHarness(t)
	h.advance(t, TriggerAcquireMedia)
	h.factory.Err = errors.New("no api")

	var nerr *NegotiationError
	if err := h.c.CreateConnections(h.ctx); !errors.As(err, &nerr) {
		t.Fatalf("CreateConnections error = %v, want NegotiationError", err)
	}
	if got := h.state(t); got != StateMediaReady {
		t.Errorf("state = %s, want %s", got, StateMediaReady)
	}
}

func TestCandidateRelay(t *testing.T) {
	h := newHarness(t)
	h.advance(t, TriggerApplyOffer)

	ini, res := h.initiator(), h.responder()
	cand := &webrtc.ICECandidateInit{Candidate: "candidate:1 1 udp 2130706431 127.0.0.1 5000 typ host"}

	ini.EmitCandidate(cand)
	ini.EmitCandidate(nil)
	res.EmitCandidate(cand)

	waitFor(t, func() bool { return len(res.Candidates()) == 2 && len(ini.Candidates()) == 1 })

	// Let any duplicate delivery surface before checking counts.
	if _, err := h.c.Snapshot(h.ctx); err != nil {
		t.Fatal(err)
	}
	time.Sleep(10 * time.Millisecond)

	got := res.Candidates()
	if len(got) != 2 {
		t.Fatalf("responder received %d candidates, want 2", len(got))
	}
	if got[0] == nil || got[0].Candidate != cand.Candidate {
		t.Errorf("first relayed candidate = %v", got[0])
	}
	if got[1] != nil {
		t.Errorf("end-of-candidates not relayed as nil: %v", got[1])
	}
	if n := len(ini.Candidates()); n != 1 {
		t.Errorf("initiator received %d candidates, want 1", n)
	}
}

func TestCandidateFailureIsNotFatal(t *testing.T) {
	h := newHarness(t)
	h.advance(t, TriggerApplyOffer)

	res := h.responder()
	res.FailOn("AddICECandidate", errors.New("bad candidate"))
	h.initiator().EmitCandidate(&webrtc.ICECandidateInit{Candidate: "candidate:bogus"})

	waitFor(t, func() bool { return len(res.Candidates()) == 1 })

	if got := h.state(t); got != StateOfferApplied {
		t.Errorf("state = %s, want %s", got, StateOfferApplied)
	}
	if _, err := h.c.CreateAnswer(h.ctx); err != nil {
		t.Errorf("CreateAnswer after candidate failure: %v", err)
	}
}

func TestRemoteTrackAndChannel(t *testing.T) {
	h := newHarness(t)
	h.advance(t, TriggerApplyAnswer)

	res := h.responder()
	res.EmitTrack(agent.TrackInfo{ID: "a", Kind: "audio", StreamID: "s1"})
	res.EmitTrack(agent.TrackInfo{ID: "v", Kind: "video", StreamID: "s1"})

	recv := agenttest.NewChannel("sendDataChannel")
	res.EmitDataChannel(recv)

	waitFor(t, func() bool {
		snap, _ := h.c.Snapshot(h.ctx)
		return len(snap.RemoteStreams) == 1
	})

	// The receiver is attached on the loop; retry delivery until it lands.
	waitFor(t, func() bool {
		recv.Deliver([]byte("41"))
		snap, _ := h.c.Snapshot(h.ctx)
		return snap.HeartbeatReceived && snap.HeartbeatLatest == 41
	})

	snap, _ := h.c.Snapshot(h.ctx)
	if len(snap.RemoteStreams) != 1 || snap.RemoteStreams[0] != "s1" {
		t.Errorf("remote streams = %v", snap.RemoteStreams)
	}
}

func TestHeartbeatStartsWhenChannelOpens(t *testing.T) {
	h := newHarness(t)
	h.advance(t, TriggerCreateConnections)

	send := h.initiator().Channels()[0]
	send.Open()

	waitFor(t, func() bool {
		snap, _ := h.c.Snapshot(h.ctx)
		return snap.HeartbeatSent >= 2
	})
	if got := send.Sent(); got[0] != "0" || got[1] != "1" {
		t.Errorf("sent = %v", got)
	}
}

func TestHangupIsIdempotent(t *testing.T) {
	h := newHarness(t)
	h.advance(t, TriggerApplyAnswer)

	ini, res := h.initiator(), h.responder()
	send := ini.Channels()[0]
	recv := agenttest.NewChannel("sendDataChannel")
	res.EmitDataChannel(recv)
	waitFor(t, func() bool {
		recv.Deliver([]byte("1"))
		snap, _ := h.c.Snapshot(h.ctx)
		return snap.HeartbeatReceived
	})

	if err := h.c.Hangup(h.ctx); err != nil {
		t.Fatalf("first Hangup failed: %v", err)
	}
	first, _ := h.c.Snapshot(h.ctx)

	if err := h.c.Hangup(h.ctx); err != nil {
		t.Fatalf("second Hangup failed: %v", err)
	}
	second, _ := h.c.Snapshot(h.ctx)

	if first.State != StateClosed || second.State != StateClosed {
		t.Errorf("states = %s, %s; want closed", first.State, second.State)
	}
	if ini.Closes() != 1 || res.Closes() != 1 {
		t.Errorf("agent closes = %d, %d; want 1, 1", ini.Closes(), res.Closes())
	}
	if send.Closes() != 1 || recv.Closes() != 1 {
		t.Errorf("channel closes = %d, %d; want 1, 1", send.Closes(), recv.Closes())
	}
	if second.Offer.Enabled || second.Answer.Enabled {
		t.Error("text regions still enabled after hangup")
	}

	if _, err := h.c.CreateOffer(h.ctx); !errors.Is(err, ErrClosed) {
		t.Errorf("CreateOffer after hangup = %v, want ErrClosed", err)
	}
}

func TestHangupFromIdle(t *testing.T) {
	h := newHarness(t)

	if err := h.c.Hangup(h.ctx); err != nil {
		t.Fatalf("Hangup failed: %v", err)
	}
	if got := h.state(t); got != StateClosed {
		t.Errorf("state = %s, want %s", got, StateClosed)
	}
}

func TestReacquireMediaReplacesStream(t *testing.T) {
	h := newHarness(t)
	h.advance(t, TriggerAcquireMedia)

	if err := h.c.AcquireMedia(h.ctx, media.Selection{}); err != nil {
		t.Fatalf("second AcquireMedia failed: %v", err)
	}
	if got := h.state(t); got != StateMediaReady {
		t.Errorf("state = %s, want %s", got, StateMediaReady)
	}
}

func TestRunCancellationReleases(t *testing.T) {
	factory := &agenttest.Factory{}
	cfg := config.Default()
	c := New(cfg, factory.New, media.NewSynthetic())

	ctx, cancel := context.WithCancel(context.Background())
	go c.Run(ctx)

	bg := context.Background()
	if err := c.AcquireMedia(bg, media.Selection{}); err != nil {
		t.Fatal(err)
	}
	if err := c.CreateConnections(bg); err != nil {
		t.Fatal(err)
	}

	cancel()
	<-c.Done()

	if factory.Last(agent.RoleInitiator).Closes() != 1 || factory.Last(agent.RoleResponder).Closes() != 1 {
		t.Error("agents not closed when the loop stopped")
	}
	if err := c.Hangup(bg); !errors.Is(err, ErrNotRunning) {
		t.Errorf("Hangup after Run returned = %v, want ErrNotRunning", err)
	}
}

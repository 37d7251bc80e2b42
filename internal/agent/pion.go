package agent

import (
	"github.com/pion/webrtc/v4"

	"github.com/1ureka/mungesdp/internal/config"
	"github.com/1ureka/mungesdp/internal/session"
	"github.com/1ureka/mungesdp/internal/util"
)

// peer implements Agent on top of a pion PeerConnection.
type peer struct {
	role Role
	pc   *webrtc.PeerConnection
}

func newPeer(role Role, pc *webrtc.PeerConnection) *peer {
	p := &peer{role: role, pc: pc}

	// Record PC state (informational only).
	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		util.LogDebug("%s connection state: %s", role, state.String())
	})
	pc.OnICEConnectionStateChange(func(state webrtc.ICEConnectionState) {
		util.LogDebug("%s ICE state: %s", role, state.String())
	})

	return p
}

// ---------------------------------------------------------------------------
// Signaling
// ---------------------------------------------------------------------------

// CreateOffer generates an offer. Requested receive directions with no local
// track of that kind get a recvonly transceiver first.
func (p *peer) CreateOffer(opts config.OfferOptions) (session.Description, error) {
	if opts.ReceiveAudio {
		if err := p.ensureTransceiver(webrtc.RTPCodecTypeAudio); err != nil {
			return session.Description{}, err
		}
	}
	if opts.ReceiveVideo {
		if err := p.ensureTransceiver(webrtc.RTPCodecTypeVideo); err != nil {
			return session.Description{}, err
		}
	}

	offer, err := p.pc.CreateOffer(nil)
	if err != nil {
		return session.Description{}, err
	}
	return fromPion(offer), nil
}

func (p *peer) ensureTransceiver(kind webrtc.RTPCodecType) error {
	for _, t := range p.pc.GetTransceivers() {
		if t.Kind() == kind {
			return nil
		}
	}
	_, err := p.pc.AddTransceiverFromKind(kind, webrtc.RTPTransceiverInit{
		Direction: webrtc.RTPTransceiverDirectionRecvonly,
	})
	return err
}

// CreateAnswer generates an answer to the applied remote offer.
func (p *peer) CreateAnswer() (session.Description, error) {
	answer, err := p.pc.CreateAnswer(nil)
	if err != nil {
		return session.Description{}, err
	}
	return fromPion(answer), nil
}

func (p *peer) SetLocalDescription(d session.Description) error {
	return p.pc.SetLocalDescription(toPion(d))
}

func (p *peer) SetRemoteDescription(d session.Description) error {
	return p.pc.SetRemoteDescription(toPion(d))
}

func (p *peer) RemoteDescription() (session.Description, bool) {
	d := p.pc.RemoteDescription()
	if d == nil {
		return session.Description{}, false
	}
	return fromPion(*d), true
}

// AddICECandidate adds a remote candidate; nil signals end of candidates.
func (p *peer) AddICECandidate(c *webrtc.ICECandidateInit) error {
	if c == nil {
		return p.pc.AddICECandidate(webrtc.ICECandidateInit{})
	}
	return p.pc.AddICECandidate(*c)
}

// OnICECandidate registers a callback invoked whenever a new local ICE
// candidate is gathered. A nil candidate signals the end of gathering.
func (p *peer) OnICECandidate(fn func(*webrtc.ICECandidateInit)) {
	p.pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			fn(nil)
			return
		}
		init := c.ToJSON()
		fn(&init)
	})
}

// ---------------------------------------------------------------------------
// Media & channels
// ---------------------------------------------------------------------------

func (p *peer) AddTrack(track webrtc.TrackLocal) error {
	_, err := p.pc.AddTrack(track)
	return err
}

func (p *peer) OnTrack(fn func(TrackInfo)) {
	p.pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		fn(TrackInfo{
			ID:       track.ID(),
			Kind:     track.Kind().String(),
			StreamID: track.StreamID(),
		})
	})
}

// CreateDataChannel creates an ordered data channel.
func (p *peer) CreateDataChannel(label string) (Channel, error) {
	ordered := true
	dc, err := p.pc.CreateDataChannel(label, &webrtc.DataChannelInit{
		Ordered: &ordered,
	})
	if err != nil {
		return nil, err
	}
	return NewDataChannel(dc), nil
}

func (p *peer) OnDataChannel(fn func(Channel)) {
	p.pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		fn(NewDataChannel(dc))
	})
}

// Close shuts down the PeerConnection.
func (p *peer) Close() error {
	return p.pc.Close()
}

func toPion(d session.Description) webrtc.SessionDescription {
	typ := webrtc.SDPTypeOffer
	if d.Kind() == session.KindAnswer {
		typ = webrtc.SDPTypeAnswer
	}
	return webrtc.SessionDescription{Type: typ, SDP: d.Body()}
}

func fromPion(d webrtc.SessionDescription) session.Description {
	kind := session.KindOffer
	if d.Type == webrtc.SDPTypeAnswer {
		kind = session.KindAnswer
	}
	return session.New(kind, d.SDP)
}

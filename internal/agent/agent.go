// Package agent defines the connection-agent capability the coordinator
// drives: one endpoint of the offer/answer exchange, its ICE candidates,
// media tracks and data channels. The production implementation wraps a pion
// PeerConnection; tests substitute agenttest fakes.
package agent

import (
	"fmt"

	"github.com/pion/webrtc/v4"

	"github.com/1ureka/mungesdp/internal/config"
	"github.com/1ureka/mungesdp/internal/session"
)

// Role names the end of the call an agent represents.
type Role uint8

const (
	RoleInitiator Role = iota + 1
	RoleResponder
)

func (r Role) String() string {
	switch r {
	case RoleInitiator:
		return "initiator"
	case RoleResponder:
		return "responder"
	default:
		return fmt.Sprintf("role(%d)", uint8(r))
	}
}

// Opposite returns the role on the other end of the call.
func (r Role) Opposite() Role {
	if r == RoleInitiator {
		return RoleResponder
	}
	return RoleInitiator
}

// TrackInfo describes a remote track that arrived on an agent.
type TrackInfo struct {
	ID       string
	Kind     string
	StreamID string
}

// Channel is an ordered, reliable data channel.
type Channel interface {
	Label() string
	ReadyState() webrtc.DataChannelState
	SendText(text string) error
	OnOpen(fn func())
	OnClose(fn func())
	OnError(fn func(error))
	OnMessage(fn func([]byte))
	Close() error
}

// Agent is one endpoint of the negotiation. A nil candidate passed to
// AddICECandidate, or delivered to an OnICECandidate handler, marks the end
// of candidates.
type Agent interface {
	CreateOffer(opts config.OfferOptions) (session.Description, error)
	CreateAnswer() (session.Description, error)
	SetLocalDescription(d session.Description) error
	SetRemoteDescription(d session.Description) error
	AddICECandidate(c *webrtc.ICECandidateInit) error

	// RemoteDescription returns the applied remote description, if any.
	RemoteDescription() (session.Description, bool)

	AddTrack(track webrtc.TrackLocal) error
	CreateDataChannel(label string) (Channel, error)

	OnICECandidate(fn func(*webrtc.ICECandidateInit))
	OnTrack(fn func(TrackInfo))
	OnDataChannel(fn func(Channel))

	Close() error
}

// Factory creates the agent for one role of a call.
type Factory func(role Role) (Agent, error)

// Pair is the two agents of one call. Given either, the other is resolvable.
type Pair struct {
	Initiator Agent
	Responder Agent
}

// Of returns the agent playing role.
func (p Pair) Of(role Role) Agent {
	if role == RoleInitiator {
		return p.Initiator
	}
	return p.Responder
}

// Other returns the opposite agent of a, or nil if a is not in the pair.
func (p Pair) Other(a Agent) Agent {
	switch a {
	case p.Initiator:
		return p.Responder
	case p.Responder:
		return p.Initiator
	default:
		return nil
	}
}

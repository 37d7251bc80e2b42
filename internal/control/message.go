// Package control exposes a call session to a remote UI over a WebSocket.
// The UI sends one JSON action per message and gets back the resulting
// snapshot, or an error describing which step failed.
package control

import (
	"github.com/1ureka/mungesdp/internal/media"
	"github.com/1ureka/mungesdp/internal/negotiation"
)

// Action identifies an operator action.
type Action string

const (
	ActionAcquireMedia      Action = "acquireMedia"
	ActionCreateConnections Action = "createConnections"
	ActionCreateOffer       Action = "createOffer"
	ActionApplyOffer        Action = "applyOffer"
	ActionCreateAnswer      Action = "createAnswer"
	ActionApplyAnswer       Action = "applyAnswer"
	ActionHangup            Action = "hangup"
	ActionSnapshot          Action = "snapshot"
)

// Request is the JSON structure sent by the UI.
type Request struct {
	Action Action `json:"action"`
	SDP    string `json:"sdp,omitempty"`   // edited text for applyOffer / applyAnswer
	Audio  string `json:"audio,omitempty"` // device ID for acquireMedia
	Video  string `json:"video,omitempty"` // device ID for acquireMedia
}

// ResponseType identifies the kind of reply.
type ResponseType string

const (
	TypeSnapshot ResponseType = "snapshot"
	TypeError    ResponseType = "error"
)

// ErrorKind classifies a failed action for the UI.
type ErrorKind string

const (
	KindDevice      ErrorKind = "device"
	KindValidation  ErrorKind = "validation"
	KindNegotiation ErrorKind = "negotiation"
	KindTransition  ErrorKind = "transition"
	KindClosed      ErrorKind = "closed"
	KindRequest     ErrorKind = "request"
	KindInternal    ErrorKind = "internal"
)

// Response is the JSON structure sent back for every request.
type Response struct {
	Type     ResponseType          `json:"type"`
	Action   Action                `json:"action,omitempty"`
	Kind     ErrorKind             `json:"kind,omitempty"`
	Error    string                `json:"error,omitempty"`
	Snapshot *negotiation.Snapshot `json:"snapshot,omitempty"`
}

// DevicesResponse is the body of GET /devices.
type DevicesResponse struct {
	Devices []media.Device `json:"devices"`
}

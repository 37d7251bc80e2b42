// Package negotiation coordinates the manual offer/answer handshake between
// an initiator and a responder agent living in the same process.
//
// All transitions run on a single loop goroutine (see Coordinator.Run). Agent
// callbacks and operator actions are turned into messages for that loop, so
// the state and everything the coordinator owns are only touched by one
// goroutine at a time.
package negotiation

import "fmt"

// State is the position of a call in the handshake.
type State uint8

const (
	StateIdle State = iota
	StateMediaReady
	StateConnectionsCreated
	StateOfferCreated
	StateOfferApplied
	StateAnswerCreated
	StateAnswerApplied
	StateClosed
)

var stateNames = [...]string{
	StateIdle:               "idle",
	StateMediaReady:         "media-ready",
	StateConnectionsCreated: "connections-created",
	StateOfferCreated:       "offer-created",
	StateOfferApplied:       "offer-applied",
	StateAnswerCreated:      "answer-created",
	StateAnswerApplied:      "answer-applied",
	StateClosed:             "closed",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(text []byte) error {
	for i, name := range stateNames {
		if name == string(text) {
			*s = State(i)
			return nil
		}
	}
	return fmt.Errorf("unknown state %q", text)
}

// Trigger is an operator action.
type Trigger uint8

const (
	TriggerAcquireMedia Trigger = iota + 1
	TriggerCreateConnections
	TriggerCreateOffer
	TriggerApplyOffer
	TriggerCreateAnswer
	TriggerApplyAnswer
	TriggerHangup
)

var triggerNames = [...]string{
	TriggerAcquireMedia:      "acquire media",
	TriggerCreateConnections: "create connections",
	TriggerCreateOffer:       "create offer",
	TriggerApplyOffer:        "apply offer",
	TriggerCreateAnswer:      "create answer",
	TriggerApplyAnswer:       "apply answer",
	TriggerHangup:            "hangup",
}

func (t Trigger) String() string {
	if t > 0 && int(t) < len(triggerNames) {
		return triggerNames[t]
	}
	return fmt.Sprintf("trigger(%d)", uint8(t))
}

// transitions maps a state and trigger to the state reached when the
// trigger's action succeeds. Hangup is handled by Next directly.
var transitions = map[State]map[Trigger]State{
	StateIdle: {
		TriggerAcquireMedia: StateMediaReady,
	},
	StateMediaReady: {
		TriggerAcquireMedia:      StateMediaReady,
		TriggerCreateConnections: StateConnectionsCreated,
	},
	StateConnectionsCreated: {
		TriggerCreateOffer: StateOfferCreated,
	},
	StateOfferCreated: {
		TriggerApplyOffer: StateOfferApplied,
	},
	StateOfferApplied: {
		TriggerCreateAnswer: StateAnswerCreated,
	},
	StateAnswerCreated: {
		TriggerApplyAnswer: StateAnswerApplied,
	},
}

// Next returns the state reached from s when t succeeds. It is pure: no
// agent is consulted. Hangup is accepted from every state; from Closed it
// leaves the state where it is.
func Next(s State, t Trigger) (State, error) {
	if t == TriggerHangup {
		return StateClosed, nil
	}
	if s == StateClosed {
		return s, ErrClosed
	}
	if to, ok := transitions[s][t]; ok {
		return to, nil
	}
	return s, &TransitionError{State: s, Trigger: t}
}

package negotiation

import (
	"errors"
	"fmt"

	"github.com/1ureka/mungesdp/internal/agent"
)

var (
	// ErrInvalidTransition is the cause of every TransitionError.
	ErrInvalidTransition = errors.New("action not allowed in current state")

	// ErrClosed is returned for any action other than hangup after the call
	// has ended.
	ErrClosed = errors.New("call is closed")

	// ErrNotRunning is returned when the coordinator loop has exited.
	ErrNotRunning = errors.New("coordinator is not running")
)

// TransitionError rejects a trigger that the current state does not accept.
// No agent call is made when it is returned.
type TransitionError struct {
	State   State
	Trigger Trigger
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s in state %s", e.Trigger, e.State)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// NegotiationError is a connection agent rejecting a step. The state is left
// unchanged and the step may be retried.
type NegotiationError struct {
	Step string
	Err  error
}

func (e *NegotiationError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Step, e.Err)
}

func (e *NegotiationError) Unwrap() error { return e.Err }

// CandidateError is a rejected candidate relay. It is logged and never
// interrupts the call.
type CandidateError struct {
	From agent.Role
	Err  error
}

func (e *CandidateError) Error() string {
	return fmt.Sprintf("failed to add %s candidate on %s: %v", e.From, e.From.Opposite(), e.Err)
}

func (e *CandidateError) Unwrap() error { return e.Err }

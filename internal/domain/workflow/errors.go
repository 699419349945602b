package workflow

import "errors"

var (
	// ErrInvalidTransition means the trigger has no transition out of the current state
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrTerminal is wrapped together with ErrInvalidTransition when the
	// machine already sits in a terminal state
	ErrTerminal = errors.New("state machine is in a terminal state")

	// ErrGuardFailed means every guarded transition of the trigger refused
	ErrGuardFailed = errors.New("guard condition failed")
)

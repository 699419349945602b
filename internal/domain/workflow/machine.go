package workflow

import "context"

// StateMachine holds the lifecycle state of a session. It is not safe for
// concurrent use; callers serialize access with their own lock.
type StateMachine interface {
	State() State

	// CanFire reports whether the current state has a transition for trigger.
	// Guards are not evaluated.
	CanFire(trigger Trigger) bool

	// Fire moves to the first transition of trigger whose guard passes
	Fire(ctx context.Context, trigger Trigger) error
}

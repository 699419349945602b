package workflow

import "context"

// NewSessionMachine builds the lifecycle of one bulk completion session.
//
//	EMPTY -> LOADING -> EDITING -> SUBMITTING -> TASK_RUNNING -> EDITING
//
// Any state but SUBMITTING can be closed. hasData tells whether a grid from
// an earlier load survives a failed reload.
func NewSessionMachine(hasData GuardFunc) StateMachine {
	if hasData == nil {
		hasData = func(context.Context) bool { return false }
	}
	noData := func(ctx context.Context) bool { return !hasData(ctx) }

	b := NewBuilder()

	b.Configure(StateEmpty).
		Permit(TriggerLoad, StateLoading).
		Permit(TriggerClose, StateClosed)

	b.Configure(StateLoading).
		Permit(TriggerLoaded, StateEditing).
		PermitIf(TriggerLoadFailed, StateEditing, hasData).
		PermitIf(TriggerLoadFailed, StateEmpty, noData).
		Permit(TriggerClose, StateClosed)

	b.Configure(StateEditing).
		Permit(TriggerLoad, StateLoading).
		Permit(TriggerSubmit, StateSubmitting).
		Permit(TriggerClose, StateClosed)

	b.Configure(StateSubmitting).
		Permit(TriggerEnqueued, StateTaskRunning).
		Permit(TriggerEnqueueFailed, StateEditing)

	b.Configure(StateTaskRunning).
		Permit(TriggerTaskFinished, StateEditing).
		Permit(TriggerClose, StateClosed)

	// a tracked task may still report after the session was closed
	b.Configure(StateClosed).
		Permit(TriggerTaskFinished, StateClosed)

	return b.Build(StateEmpty)
}

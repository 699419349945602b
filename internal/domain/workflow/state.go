package workflow

// State is a stage in the life of a bulk completion session
type State string

const (
	StateEmpty       State = "EMPTY"
	StateLoading     State = "LOADING"
	StateEditing     State = "EDITING"
	StateSubmitting  State = "SUBMITTING"
	StateTaskRunning State = "TASK_RUNNING"
	StateClosed      State = "CLOSED"
)

var validStates = map[State]bool{
	StateEmpty:       true,
	StateLoading:     true,
	StateEditing:     true,
	StateSubmitting:  true,
	StateTaskRunning: true,
	StateClosed:      true,
}

// IsTerminal reports whether the session has ended. Only task bookkeeping
// triggers are accepted afterwards.
func (s State) IsTerminal() bool {
	return s == StateClosed
}

// AcceptsEdits reports whether grid values may be changed in this state.
// Editing continues while a submitted task runs in the background.
func (s State) AcceptsEdits() bool {
	return s == StateEditing || s == StateTaskRunning
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is a valid session state
func (s State) IsValid() bool {
	return validStates[s]
}

package workflow

// Trigger is an event that moves a session between states
type Trigger string

const (
	TriggerLoad          Trigger = "LOAD"
	TriggerLoaded        Trigger = "LOADED"
	TriggerLoadFailed    Trigger = "LOAD_FAILED"
	TriggerSubmit        Trigger = "SUBMIT"
	TriggerEnqueued      Trigger = "ENQUEUED"
	TriggerEnqueueFailed Trigger = "ENQUEUE_FAILED"
	TriggerTaskFinished  Trigger = "TASK_FINISHED"
	TriggerClose         Trigger = "CLOSE"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}

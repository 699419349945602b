package entity

import "time"

// Operation kinds
const (
	OperationSaveAnswers = "save_answers"
	OperationComplete    = "complete"
)

// Operation status constants
const (
	OperationStatusEnqueued  = "ENQUEUED"
	OperationStatusRejected  = "REJECTED"
	OperationStatusSucceeded = "SUCCEEDED"
	OperationStatusFailed    = "FAILED"
)

// Operation is one bulk save or complete request sent to the backend.
// Rejected operations never got a task id.
type Operation struct {
	ID        int64  `json:"id"`
	SessionID string `json:"session_id"`
	Kind      string `json:"kind"`
	TaskID    string `json:"task_id,omitempty"`
	Status    string `json:"status"`

	// AssessmentIDs are the assessments the request carried
	AssessmentIDs []int64 `json:"assessment_ids"`
	// RowCount is len(AssessmentIDs) at submit time
	RowCount int    `json:"row_count"`
	Message  string `json:"message,omitempty"`

	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// IsFinished reports whether the backend task reached a final status
func (o *Operation) IsFinished() bool {
	switch o.Status {
	case OperationStatusSucceeded, OperationStatusFailed, OperationStatusRejected:
		return true
	default:
		return false
	}
}

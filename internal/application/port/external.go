package port

import (
	"context"
	"errors"
	"io"

	"github.com/garyjia/assessment-bulk/internal/domain/bulk"
)

// ErrConnectionLost marks failures caused by losing the network connection
var ErrConnectionLost = errors.New("connection lost")

// TaskStatus is the state of a backend background task
type TaskStatus string

const (
	TaskStatusPending TaskStatus = "Pending"
	TaskStatusRunning TaskStatus = "Running"
	TaskStatusSuccess TaskStatus = "Success"
	TaskStatusFailure TaskStatus = "Failure"
)

// IsFinal reports whether the task will not change status anymore
func (s TaskStatus) IsFinal() bool {
	return s == TaskStatusSuccess || s == TaskStatusFailure
}

// SearchClient loads the assessments and attribute columns of a grid
type SearchClient interface {
	Search(ctx context.Context, assessmentIDs []int64) (*bulk.SearchResult, error)
}

// BulkOperationClient enqueues bulk operations. An empty task id with a nil
// error means the backend did not enqueue anything.
type BulkOperationClient interface {
	SaveAnswers(ctx context.Context, req *bulk.Request) (taskID string, err error)
	Complete(ctx context.Context, req *bulk.Request) (taskID string, err error)
	TaskURL(taskID string) string
}

// TaskStatusClient reads background task status
type TaskStatusClient interface {
	TaskStatus(ctx context.Context, taskURL string) (TaskStatus, error)
}

// TaskTracker follows a background task and calls exactly one of the
// callbacks once it resolves. Track does not block.
type TaskTracker interface {
	Track(ctx context.Context, taskURL string, onSuccess, onFailure func())
}

// Confirmer asks the user to confirm a destructive or bulk action
type Confirmer interface {
	Confirm(ctx context.Context, message string) bool
}

// ConfirmFunc adapts a function to Confirmer
type ConfirmFunc func(ctx context.Context, message string) bool

// Confirm implements Confirmer
func (f ConfirmFunc) Confirm(ctx context.Context, message string) bool {
	return f(ctx, message)
}

// UploadSource is a file handed to the uploader
type UploadSource struct {
	Name    string
	Content io.Reader
}

// UploadedFile is what the file store returns for an uploaded file
type UploadedFile struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	AlternateLink string `json:"alternateLink"`
}

// FileUploader stores evidence files. Failures caused by connectivity wrap
// ErrConnectionLost.
type FileUploader interface {
	Upload(ctx context.Context, sources []UploadSource) ([]UploadedFile, error)
}

// Notifier shows messages to the user of a session
type Notifier interface {
	Success(ctx context.Context, message string)
	Error(ctx context.Context, message string)
	ConnectionLost(ctx context.Context)
}

// MessageSender sends plain text chat messages
type MessageSender interface {
	SendText(ctx context.Context, receiveID string, text string) error
}

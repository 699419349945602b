package service

import "errors"

var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrSessionClosed     = errors.New("session is closed")
	ErrNotEditable       = errors.New("session does not accept edits")
	ErrTaskInProgress    = errors.New("a background task is in progress")
	ErrNothingToComplete = errors.New("no assessments are ready to complete")
	ErrNothingToSave     = errors.New("no answers were modified")
	ErrUnsavedChanges    = errors.New("unsaved changes")
	ErrNotConfirmed      = errors.New("action not confirmed")
	ErrLoadFailed        = errors.New("failed to load assessments")
	ErrEnqueueFailed     = errors.New("bulk operation was not enqueued")
	ErrUploadFailed      = errors.New("file upload failed")
	ErrInvalidURL        = errors.New("invalid url")
)

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/garyjia/assessment-bulk/internal/application/dispatcher"
	"github.com/garyjia/assessment-bulk/internal/application/port"
	"github.com/garyjia/assessment-bulk/internal/domain/attribute"
	"github.com/garyjia/assessment-bulk/internal/domain/bulk"
	"github.com/garyjia/assessment-bulk/internal/domain/entity"
	"github.com/garyjia/assessment-bulk/internal/domain/event"
	"github.com/garyjia/assessment-bulk/internal/domain/workflow"
	"github.com/garyjia/assessment-bulk/pkg/utils"
)

// Logger defines logging interface for services
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

// Dependencies are the collaborators of a completion session. Events and
// Logger are optional. Logger is expected to carry the session id already.
type Dependencies struct {
	Search   port.SearchClient
	Bulk     port.BulkOperationClient
	Tracker  port.TaskTracker
	Uploader port.FileUploader
	Notifier port.Notifier
	Events   dispatcher.Dispatcher
	Logger   Logger

	// PersonID is recorded as the author of comments
	PersonID int64
}

// Submission describes a bulk operation the backend accepted
type Submission struct {
	SessionID     string  `json:"session_id"`
	Kind          string  `json:"kind"`
	TaskID        string  `json:"task_id"`
	TaskURL       string  `json:"task_url"`
	AssessmentIDs []int64 `json:"assessment_ids"`
	RowCount      int     `json:"row_count"`
}

// Snapshot is a read-only copy of a session
type Snapshot struct {
	ID           string         `json:"id"`
	State        workflow.State `json:"state"`
	Grid         bulk.GridView  `json:"grid"`
	CreatedAt    time.Time      `json:"created_at"`
	LastActivity time.Time      `json:"last_activity"`
}

// CompletionService drives one bulk completion grid. All grid access is
// serialized by mu; tracker callbacks take the same lock.
type CompletionService struct {
	id   string
	deps Dependencies

	mu           sync.Mutex
	grid         *bulk.Grid
	machine      workflow.StateMachine
	loadedOnce   bool
	createdAt    time.Time
	lastActivity time.Time
}

// NewCompletionService creates an empty session
func NewCompletionService(id string, deps Dependencies) *CompletionService {
	if deps.Logger == nil {
		deps.Logger = nopLogger{}
	}

	now := time.Now()
	s := &CompletionService{
		id:           id,
		deps:         deps,
		grid:         bulk.NewGrid(),
		createdAt:    now,
		lastActivity: now,
	}
	s.machine = workflow.NewSessionMachine(func(context.Context) bool {
		return s.loadedOnce
	})
	return s
}

// ID returns the session id
func (s *CompletionService) ID() string {
	return s.id
}

// State returns the lifecycle state of the session
func (s *CompletionService) State() workflow.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.State()
}

// LastActivity returns the time of the last user action
func (s *CompletionService) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// Load searches the given assessments and replaces the grid. Unsaved edits
// are only discarded when confirmer agrees.
func (s *CompletionService) Load(ctx context.Context, ids []int64, confirmer port.Confirmer) error {
	if err := utils.ValidateIDs(ids); err != nil {
		return err
	}
	if err := s.confirmDiscard(ctx, confirmer); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkState(workflow.TriggerLoad); err != nil {
		return err
	}
	if err := s.machine.Fire(ctx, workflow.TriggerLoad); err != nil {
		return err
	}
	s.touch()
	s.grid.BeginLoad()

	s.deps.Logger.Info("Loading assessments", "count", len(ids))

	result, err := s.deps.Search.Search(ctx, ids)
	if err != nil {
		s.grid.AbortLoad()
		if fireErr := s.machine.Fire(ctx, workflow.TriggerLoadFailed); fireErr != nil {
			s.deps.Logger.Error("Failed to leave loading state", "error", fireErr)
		}
		s.deps.Logger.Error("Search failed", "error", err)
		s.notifyFailure(ctx, err, MsgLoadFailed)
		return fmt.Errorf("%w: %v", ErrLoadFailed, err)
	}

	s.grid.Load(result)
	s.loadedOnce = true
	if err := s.machine.Fire(ctx, workflow.TriggerLoaded); err != nil {
		return err
	}

	for _, col := range s.grid.Columns() {
		if !col.KnownType {
			s.deps.Logger.Info("Unknown attribute type treated as text",
				"title", col.Title, "attribute_type", col.ServerType)
		}
	}
	s.deps.Logger.Info("Assessments loaded",
		"rows", len(s.grid.Rows()),
		"columns", len(s.grid.Columns()),
		"ready", s.grid.ReadyCount())

	return nil
}

// ChangeValue applies a raw input to the attribute at index of a row
func (s *CompletionService) ChangeValue(ctx context.Context, assessmentID int64, index int, raw json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkEditable(); err != nil {
		return err
	}

	row, err := s.grid.Row(assessmentID)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(row.Attributes) {
		return fmt.Errorf("%w: %d", bulk.ErrAttributeIndex, index)
	}

	value, err := attribute.ParseInput(row.Attributes[index].Type, raw)
	if err != nil {
		return err
	}
	if err := s.grid.ChangeValue(assessmentID, index, value); err != nil {
		return err
	}
	s.touch()
	return nil
}

// SaveRequiredInfo stores the comment, urls and files supplied for an attribute
func (s *CompletionService) SaveRequiredInfo(ctx context.Context, attributeID int64, changes bulk.RequiredInfoChanges) error {
	for _, u := range changes.URLs {
		if err := utils.ValidateURL(u); err != nil {
			return fmt.Errorf("%w: %s", ErrInvalidURL, u)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkEditable(); err != nil {
		return err
	}
	if err := s.grid.UpdateRequiredInfo(attributeID, changes); err != nil {
		return err
	}
	s.touch()
	return nil
}

// AddFiles uploads evidence files and returns them in the shape the
// required-info dialog expects
func (s *CompletionService) AddFiles(ctx context.Context, sources []port.UploadSource) ([]attribute.File, error) {
	s.mu.Lock()
	err := s.checkEditable()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	uploaded, err := s.deps.Uploader.Upload(ctx, sources)
	if err != nil {
		s.deps.Logger.Error("File upload failed", "error", err)
		s.notifyFailure(ctx, err, MsgUploadFailed)
		return nil, fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}

	files := make([]attribute.File, 0, len(uploaded))
	for _, f := range uploaded {
		files = append(files, attribute.File{
			ID:    f.ID,
			Title: f.Title,
			Link:  f.AlternateLink,
		})
	}
	return files, nil
}

// SaveAnswers sends every modified answer without completing anything
func (s *CompletionService) SaveAnswers(ctx context.Context) (*Submission, error) {
	return s.submit(ctx, entity.OperationSaveAnswers)
}

// Complete completes the ready rows once confirmer agrees
func (s *CompletionService) Complete(ctx context.Context, confirmer port.Confirmer) (*Submission, error) {
	s.mu.Lock()
	err := s.checkSubmit(entity.OperationComplete)
	count := s.grid.ReadyCount()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	if confirmer == nil || !confirmer.Confirm(ctx, completeConfirmation(count)) {
		return nil, ErrNotConfirmed
	}
	return s.submit(ctx, entity.OperationComplete)
}

// Close ends the session. Unsaved edits are only discarded when confirmer
// agrees. Closing twice is a no-op.
func (s *CompletionService) Close(ctx context.Context, confirmer port.Confirmer) error {
	s.mu.Lock()
	closed := s.machine.State().IsTerminal()
	s.mu.Unlock()
	if closed {
		return nil
	}

	if err := s.confirmDiscard(ctx, confirmer); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.machine.State().IsTerminal() {
		return nil
	}
	if err := s.machine.Fire(ctx, workflow.TriggerClose); err != nil {
		return err
	}
	s.deps.Logger.Info("Session closed")
	return nil
}

// Snapshot returns a copy of the grid and session state
func (s *CompletionService) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Snapshot{
		ID:           s.id,
		State:        s.machine.State(),
		Grid:         s.grid.View(),
		CreatedAt:    s.createdAt,
		LastActivity: s.lastActivity,
	}
}

func (s *CompletionService) submit(ctx context.Context, kind string) (*Submission, error) {
	s.mu.Lock()

	if err := s.checkSubmit(kind); err != nil {
		s.mu.Unlock()
		return nil, err
	}

	saveOnly := kind == entity.OperationSaveAnswers
	req := s.grid.BuildRequest(saveOnly, s.deps.PersonID)
	ids := requestIDs(req, saveOnly)

	if err := s.machine.Fire(ctx, workflow.TriggerSubmit); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.touch()

	s.deps.Logger.Info("Submitting bulk operation",
		"operation", kind, "assessments", len(ids))

	var taskID string
	var err error
	if saveOnly {
		taskID, err = s.deps.Bulk.SaveAnswers(ctx, req)
	} else {
		taskID, err = s.deps.Bulk.Complete(ctx, req)
	}

	if err != nil || taskID == "" {
		if fireErr := s.machine.Fire(ctx, workflow.TriggerEnqueueFailed); fireErr != nil {
			s.deps.Logger.Error("Failed to leave submitting state", "error", fireErr)
		}
		if err == nil {
			err = errors.New("backend returned no task id")
		}
		s.deps.Logger.Error("Bulk operation rejected", "operation", kind, "error", err)
		s.notifyFailure(ctx, err, failedMessage(kind))
		s.mu.Unlock()

		s.dispatch(ctx, event.TypeBulkRejected, map[string]interface{}{
			event.KeyOperation: kind,
			event.KeyIDs:       ids,
			event.KeyCount:     len(ids),
			event.KeyMessage:   err.Error(),
		})
		return nil, fmt.Errorf("%w: %v", ErrEnqueueFailed, err)
	}

	s.grid.SetBackgroundTaskInProgress(true)
	if saveOnly {
		s.grid.CleanUpAfterSaveAnswers()
	} else {
		s.grid.CleanUpAfterCompletion()
	}
	if err := s.machine.Fire(ctx, workflow.TriggerEnqueued); err != nil {
		s.deps.Logger.Error("Failed to enter task state", "error", err)
	}

	sub := &Submission{
		SessionID:     s.id,
		Kind:          kind,
		TaskID:        taskID,
		TaskURL:       s.deps.Bulk.TaskURL(taskID),
		AssessmentIDs: ids,
		RowCount:      len(ids),
	}
	s.mu.Unlock()

	s.deps.Logger.Info("Bulk operation enqueued",
		"operation", kind, "task_id", taskID)

	s.dispatch(ctx, event.TypeBulkEnqueued, submissionPayload(sub))

	trackCtx := context.WithoutCancel(ctx)
	s.deps.Tracker.Track(trackCtx, sub.TaskURL,
		func() { s.finish(trackCtx, sub, true) },
		func() { s.finish(trackCtx, sub, false) },
	)

	return sub, nil
}

// finish runs when the tracked task resolved
func (s *CompletionService) finish(ctx context.Context, sub *Submission, succeeded bool) {
	s.mu.Lock()
	s.grid.SetBackgroundTaskInProgress(false)
	if err := s.machine.Fire(ctx, workflow.TriggerTaskFinished); err != nil {
		s.deps.Logger.Error("Failed to leave task state", "error", err)
	}
	s.mu.Unlock()

	payload := submissionPayload(sub)
	if succeeded {
		s.deps.Logger.Info("Bulk operation finished", "task_id", sub.TaskID)
		s.deps.Notifier.Success(ctx, finishedMessage(sub.Kind))
		s.dispatch(ctx, event.TypeBulkSucceeded, payload)
		return
	}

	s.deps.Logger.Error("Bulk operation failed", "task_id", sub.TaskID)
	s.deps.Notifier.Error(ctx, failedMessage(sub.Kind))
	payload[event.KeyMessage] = failedMessage(sub.Kind)
	s.dispatch(ctx, event.TypeBulkFailed, payload)
}

func (s *CompletionService) checkState(trigger workflow.Trigger) error {
	state := s.machine.State()
	switch {
	case state.IsTerminal():
		return ErrSessionClosed
	case state == workflow.StateTaskRunning || s.grid.IsBackgroundTaskInProgress():
		if trigger == workflow.TriggerSubmit || trigger == workflow.TriggerLoad {
			return ErrTaskInProgress
		}
	}
	if !s.machine.CanFire(trigger) {
		return fmt.Errorf("%w: %s", ErrNotEditable, state)
	}
	return nil
}

func (s *CompletionService) checkEditable() error {
	state := s.machine.State()
	if state.IsTerminal() {
		return ErrSessionClosed
	}
	if !state.AcceptsEdits() {
		return fmt.Errorf("%w: %s", ErrNotEditable, state)
	}
	return nil
}

func (s *CompletionService) checkSubmit(kind string) error {
	if err := s.checkState(workflow.TriggerSubmit); err != nil {
		return err
	}
	if kind == entity.OperationComplete {
		if !s.grid.IsCompleteEnabled() {
			return ErrNothingToComplete
		}
		return nil
	}
	if !s.grid.IsSaveEnabled() {
		return ErrNothingToSave
	}
	return nil
}

// confirmDiscard asks before unsaved edits are thrown away
func (s *CompletionService) confirmDiscard(ctx context.Context, confirmer port.Confirmer) error {
	s.mu.Lock()
	modified := s.grid.IsAttributeModified()
	s.mu.Unlock()

	if !modified {
		return nil
	}
	if confirmer == nil || !confirmer.Confirm(ctx, MsgDiscardChanges) {
		return ErrUnsavedChanges
	}
	return nil
}

func (s *CompletionService) notifyFailure(ctx context.Context, err error, message string) {
	if errors.Is(err, port.ErrConnectionLost) {
		s.deps.Notifier.ConnectionLost(ctx)
		return
	}
	s.deps.Notifier.Error(ctx, message)
}

func (s *CompletionService) dispatch(ctx context.Context, eventType event.Type, payload map[string]interface{}) {
	if s.deps.Events == nil {
		return
	}
	evt := event.NewEventWithCorrelation(eventType, payload, s.id)
	if err := s.deps.Events.Dispatch(ctx, evt); err != nil {
		s.deps.Logger.Error("Event handler failed", "event_type", eventType, "error", err)
	}
}

func (s *CompletionService) touch() {
	s.lastActivity = time.Now()
}

func submissionPayload(sub *Submission) map[string]interface{} {
	return map[string]interface{}{
		event.KeyOperation: sub.Kind,
		event.KeyTaskID:    sub.TaskID,
		event.KeyIDs:       sub.AssessmentIDs,
		event.KeyCount:     sub.RowCount,
	}
}

// requestIDs lists the assessments a request touches
func requestIDs(req *bulk.Request, saveOnly bool) []int64 {
	if !saveOnly {
		return append([]int64(nil), req.AssessmentsIDs...)
	}
	ids := make([]int64, 0, len(req.Attributes))
	for _, a := range req.Attributes {
		ids = append(ids, a.Assessment.ID)
	}
	return ids
}

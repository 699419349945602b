package service

import (
	"context"
	"fmt"

	"github.com/garyjia/assessment-bulk/internal/application/dispatcher"
	"github.com/garyjia/assessment-bulk/internal/application/port"
	"github.com/garyjia/assessment-bulk/internal/domain/entity"
	"github.com/garyjia/assessment-bulk/internal/domain/event"
)

// OperationHistory records bulk operation events in the operation repository
type OperationHistory struct {
	repo   port.OperationRepository
	logger Logger
}

// NewOperationHistory creates the history recorder
func NewOperationHistory(repo port.OperationRepository, logger Logger) *OperationHistory {
	if logger == nil {
		logger = nopLogger{}
	}
	return &OperationHistory{repo: repo, logger: logger}
}

// Register subscribes the recorder to every bulk event
func (h *OperationHistory) Register(d dispatcher.Dispatcher) {
	d.SubscribeBulk("operation_history", h.Handle)
}

// Handle stores one bulk event
func (h *OperationHistory) Handle(ctx context.Context, evt *event.Event) error {
	switch evt.Type {
	case event.TypeBulkEnqueued, event.TypeBulkRejected:
		status := entity.OperationStatusEnqueued
		if evt.Type == event.TypeBulkRejected {
			status = entity.OperationStatusRejected
		}
		op := &entity.Operation{
			SessionID:     evt.CorrelationID,
			Kind:          evt.GetPayloadString(event.KeyOperation),
			TaskID:        evt.GetPayloadString(event.KeyTaskID),
			Status:        status,
			AssessmentIDs: evt.GetPayloadIDs(event.KeyIDs),
			RowCount:      int(evt.GetPayloadInt(event.KeyCount)),
			Message:       evt.GetPayloadString(event.KeyMessage),
		}
		if err := h.repo.Create(ctx, op); err != nil {
			return fmt.Errorf("record operation: %w", err)
		}
		h.logger.Info("Operation recorded", "id", op.ID, "status", status, "session_id", op.SessionID)

	case event.TypeBulkSucceeded, event.TypeBulkFailed:
		status := entity.OperationStatusSucceeded
		if evt.Type == event.TypeBulkFailed {
			status = entity.OperationStatusFailed
		}
		taskID := evt.GetPayloadString(event.KeyTaskID)
		if err := h.repo.UpdateStatus(ctx, taskID, status, evt.GetPayloadString(event.KeyMessage)); err != nil {
			return fmt.Errorf("update operation %s: %w", taskID, err)
		}
		h.logger.Info("Operation finished", "task_id", taskID, "status", status)
	}
	return nil
}

// Recent returns the latest operations across sessions
func (h *OperationHistory) Recent(ctx context.Context, limit int) ([]*entity.Operation, error) {
	if limit <= 0 {
		limit = 50
	}
	return h.repo.ListRecent(ctx, limit)
}

// ForSession returns the operations of one session
func (h *OperationHistory) ForSession(ctx context.Context, sessionID string) ([]*entity.Operation, error) {
	return h.repo.ListBySession(ctx, sessionID)
}

package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/assessment-bulk/internal/application/dispatcher"
	"github.com/garyjia/assessment-bulk/internal/domain/entity"
	"github.com/garyjia/assessment-bulk/internal/domain/event"
)

func TestOperationHistory_Handle(t *testing.T) {
	repo := &mockOperationRepo{}
	h := NewOperationHistory(repo, nil)
	ctx := context.Background()

	enqueued := event.NewEventWithCorrelation(event.TypeBulkEnqueued, map[string]interface{}{
		event.KeyOperation: entity.OperationComplete,
		event.KeyTaskID:    "42",
		event.KeyIDs:       []int64{1, 2},
		event.KeyCount:     2,
	}, "session-1")
	rejected := event.NewEventWithCorrelation(event.TypeBulkRejected, map[string]interface{}{
		event.KeyOperation: entity.OperationSaveAnswers,
		event.KeyIDs:       []int64{3},
		event.KeyCount:     1,
		event.KeyMessage:   "status 500",
	}, "session-1")
	succeeded := event.NewEventWithCorrelation(event.TypeBulkSucceeded, map[string]interface{}{
		event.KeyTaskID: "42",
	}, "session-1")
	failed := event.NewEventWithCorrelation(event.TypeBulkFailed, map[string]interface{}{
		event.KeyTaskID:  "43",
		event.KeyMessage: MsgSaveFailed,
	}, "session-1")

	for _, evt := range []*event.Event{enqueued, rejected, succeeded, failed} {
		require.NoError(t, h.Handle(ctx, evt))
	}

	require.Len(t, repo.created, 2)
	assert.Equal(t, &entity.Operation{
		ID:            1,
		SessionID:     "session-1",
		Kind:          entity.OperationComplete,
		TaskID:        "42",
		Status:        entity.OperationStatusEnqueued,
		AssessmentIDs: []int64{1, 2},
		RowCount:      2,
	}, repo.created[0])
	assert.Equal(t, entity.OperationStatusRejected, repo.created[1].Status)
	assert.Equal(t, "status 500", repo.created[1].Message)
	assert.Empty(t, repo.created[1].TaskID)

	assert.Equal(t, []string{
		"42:" + entity.OperationStatusSucceeded + ":",
		"43:" + entity.OperationStatusFailed + ":" + MsgSaveFailed,
	}, repo.updates)
}

func TestOperationHistory_RepositoryError(t *testing.T) {
	repo := &mockOperationRepo{err: errors.New("disk full")}
	h := NewOperationHistory(repo, nil)

	err := h.Handle(context.Background(), event.NewEventWithCorrelation(event.TypeBulkEnqueued, nil, "s"))

	assert.Error(t, err)
}

func TestOperationHistory_RecordsSessionEvents(t *testing.T) {
	repo := &mockOperationRepo{}
	history := NewOperationHistory(repo, nil)
	d := dispatcher.NewDispatcher()
	t.Cleanup(func() { _ = d.Close() })
	history.Register(d)

	h := newHarness(t)
	h.service.deps.Events = d
	h.load(t)

	_, err := h.service.Complete(context.Background(), confirm(true, nil))
	require.NoError(t, err)
	h.tracker.succeed(0)

	ops, err := history.ForSession(context.Background(), "session-1")
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, "42", ops[0].TaskID)
	assert.Equal(t, []int64{1}, ops[0].AssessmentIDs)
	assert.Equal(t, []string{"42:" + entity.OperationStatusSucceeded + ":"}, repo.updates)

	recent, err := history.Recent(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, recent, 1)
}

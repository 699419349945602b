package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/assessment-bulk/internal/application/port"
	"github.com/garyjia/assessment-bulk/internal/domain/entity"
	"github.com/garyjia/assessment-bulk/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/assessment-bulk/migrations"
	"github.com/garyjia/assessment-bulk/pkg/database"
)

func newTestRepo(t *testing.T) (*OperationRepository, *sqlite.TxManager) {
	t.Helper()
	logger := zap.NewNop()

	db, err := database.New(database.Config{Path: filepath.Join(t.TempDir(), "history.db")}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.NewMigrator(db, logger).RunMigrations(context.Background(), migrations.FS))

	tx := sqlite.NewTxManager(db.DB, logger)
	return NewOperationRepository(db.DB, tx, logger), tx
}

func TestOperationRepository_CreateAndGet(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	op := &entity.Operation{
		SessionID:     "s1",
		Kind:          entity.OperationComplete,
		TaskID:        "42",
		Status:        entity.OperationStatusEnqueued,
		AssessmentIDs: []int64{3, 1, 2},
		RowCount:      3,
	}
	require.NoError(t, repo.Create(ctx, op))
	assert.NotZero(t, op.ID)

	got, err := repo.GetByTaskID(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, op.ID, got.ID)
	assert.Equal(t, "s1", got.SessionID)
	assert.Equal(t, entity.OperationComplete, got.Kind)
	assert.Equal(t, entity.OperationStatusEnqueued, got.Status)
	assert.Equal(t, []int64{3, 1, 2}, got.AssessmentIDs)
	assert.Equal(t, 3, got.RowCount)
	assert.Nil(t, got.FinishedAt)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestOperationRepository_UpdateStatus(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &entity.Operation{
		SessionID: "s1",
		Kind:      entity.OperationSaveAnswers,
		TaskID:    "7",
		Status:    entity.OperationStatusEnqueued,
	}))

	require.NoError(t, repo.UpdateStatus(ctx, "7", entity.OperationStatusFailed, "task failed"))

	got, err := repo.GetByTaskID(ctx, "7")
	require.NoError(t, err)
	assert.Equal(t, entity.OperationStatusFailed, got.Status)
	assert.Equal(t, "task failed", got.Message)
	assert.NotNil(t, got.FinishedAt)
	assert.True(t, got.IsFinished())
	assert.Empty(t, got.AssessmentIDs)

	err = repo.UpdateStatus(ctx, "missing", entity.OperationStatusSucceeded, "")
	assert.ErrorIs(t, err, port.ErrNotFound)
}

func TestOperationRepository_GetMissing(t *testing.T) {
	repo, _ := newTestRepo(t)

	_, err := repo.GetByTaskID(context.Background(), "nope")

	assert.ErrorIs(t, err, port.ErrNotFound)
}

func TestOperationRepository_RejectedWithoutTaskID(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		require.NoError(t, repo.Create(ctx, &entity.Operation{
			SessionID: "s1",
			Kind:      entity.OperationComplete,
			Status:    entity.OperationStatusRejected,
			Message:   "status 500",
		}))
	}

	ops, err := repo.ListBySession(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, ops, 2)
	assert.Empty(t, ops[0].TaskID)
	assert.NotNil(t, ops[0].FinishedAt)
}

func TestOperationRepository_Lists(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	for i, session := range []string{"a", "b", "a"} {
		require.NoError(t, repo.Create(ctx, &entity.Operation{
			SessionID:     session,
			Kind:          entity.OperationSaveAnswers,
			TaskID:        string(rune('1' + i)),
			Status:        entity.OperationStatusEnqueued,
			AssessmentIDs: []int64{int64(i + 1)},
			RowCount:      1,
		}))
	}

	bySession, err := repo.ListBySession(ctx, "a")
	require.NoError(t, err)
	require.Len(t, bySession, 2)
	assert.Equal(t, "1", bySession[0].TaskID)
	assert.Equal(t, "3", bySession[1].TaskID)
	assert.Equal(t, []int64{3}, bySession[1].AssessmentIDs)

	recent, err := repo.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "3", recent[0].TaskID)
	assert.Equal(t, "2", recent[1].TaskID)

	none, err := repo.ListBySession(ctx, "zzz")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestOperationRepository_TransactionRollback(t *testing.T) {
	repo, tx := newTestRepo(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := repo.Create(ctx, &entity.Operation{
			SessionID: "s1",
			Kind:      entity.OperationComplete,
			TaskID:    "9",
			Status:    entity.OperationStatusEnqueued,
		}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = repo.GetByTaskID(ctx, "9")
	assert.ErrorIs(t, err, port.ErrNotFound)
}

func TestOperationRepository_RejectsUnknownKind(t *testing.T) {
	repo, _ := newTestRepo(t)

	err := repo.Create(context.Background(), &entity.Operation{
		SessionID: "s1",
		Kind:      "archive",
		Status:    entity.OperationStatusEnqueued,
	})

	assert.Error(t, err)
}

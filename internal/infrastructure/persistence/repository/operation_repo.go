package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/assessment-bulk/internal/application/port"
	"github.com/garyjia/assessment-bulk/internal/domain/entity"
	"github.com/garyjia/assessment-bulk/internal/infrastructure/persistence/sqlite"
)

// OperationRepository implements port.OperationRepository
type OperationRepository struct {
	db     *sql.DB
	tx     port.TransactionManager
	logger *zap.Logger
}

// NewOperationRepository creates a new operation repository
func NewOperationRepository(db *sql.DB, tx port.TransactionManager, logger *zap.Logger) *OperationRepository {
	return &OperationRepository{
		db:     db,
		tx:     tx,
		logger: logger,
	}
}

var _ port.OperationRepository = (*OperationRepository)(nil)

const operationColumns = `
	id, session_id, kind, task_id, status, row_count, message,
	created_at, updated_at, finished_at
`

// Create stores an operation and the assessments it carried
func (r *OperationRepository) Create(ctx context.Context, op *entity.Operation) error {
	now := time.Now().UTC()
	if op.CreatedAt.IsZero() {
		op.CreatedAt = now
	}
	op.UpdatedAt = op.CreatedAt
	if op.IsFinished() && op.FinishedAt == nil {
		finished := op.CreatedAt
		op.FinishedAt = &finished
	}

	err := r.tx.WithTransaction(ctx, func(ctx context.Context) error {
		exec := sqlite.ExecutorFrom(ctx, r.db)

		result, err := exec.ExecContext(ctx, `
			INSERT INTO bulk_operations (
				session_id, kind, task_id, status, row_count, message,
				created_at, updated_at, finished_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			op.SessionID,
			op.Kind,
			nullString(op.TaskID),
			op.Status,
			op.RowCount,
			op.Message,
			op.CreatedAt,
			op.UpdatedAt,
			op.FinishedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert operation: %w", err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert id: %w", err)
		}

		for i, assessmentID := range op.AssessmentIDs {
			_, err := exec.ExecContext(ctx,
				`INSERT INTO bulk_operation_assessments (operation_id, assessment_id, position) VALUES (?, ?, ?)`,
				id, assessmentID, i,
			)
			if err != nil {
				return fmt.Errorf("failed to insert operation assessment %d: %w", assessmentID, err)
			}
		}

		op.ID = id
		return nil
	})
	if err != nil {
		r.logger.Error("Failed to create operation", zap.String("session_id", op.SessionID), zap.Error(err))
		return err
	}
	return nil
}

// UpdateStatus records the outcome of a background task
func (r *OperationRepository) UpdateStatus(ctx context.Context, taskID string, status string, message string) error {
	now := time.Now().UTC()
	var finishedAt *time.Time
	op := entity.Operation{Status: status}
	if op.IsFinished() {
		finishedAt = &now
	}

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, `
		UPDATE bulk_operations
		SET status = ?, message = ?, updated_at = ?, finished_at = ?
		WHERE task_id = ?
	`, status, message, now, finishedAt, taskID)
	if err != nil {
		r.logger.Error("Failed to update operation status", zap.String("task_id", taskID), zap.Error(err))
		return fmt.Errorf("failed to update operation status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("operation with task %s: %w", taskID, port.ErrNotFound)
	}
	return nil
}

// GetByTaskID retrieves an operation by its background task id
func (r *OperationRepository) GetByTaskID(ctx context.Context, taskID string) (*entity.Operation, error) {
	exec := sqlite.ExecutorFrom(ctx, r.db)
	row := exec.QueryRowContext(ctx,
		`SELECT `+operationColumns+` FROM bulk_operations WHERE task_id = ?`, taskID)

	op, err := scanOperation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("operation with task %s: %w", taskID, port.ErrNotFound)
	}
	if err != nil {
		r.logger.Error("Failed to get operation", zap.String("task_id", taskID), zap.Error(err))
		return nil, fmt.Errorf("failed to get operation: %w", err)
	}

	if err := r.loadAssessments(ctx, exec, []*entity.Operation{op}); err != nil {
		return nil, err
	}
	return op, nil
}

// ListBySession returns the operations of a session, oldest first
func (r *OperationRepository) ListBySession(ctx context.Context, sessionID string) ([]*entity.Operation, error) {
	return r.list(ctx,
		`SELECT `+operationColumns+` FROM bulk_operations WHERE session_id = ? ORDER BY created_at, id`,
		sessionID)
}

// ListRecent returns the latest operations, newest first
func (r *OperationRepository) ListRecent(ctx context.Context, limit int) ([]*entity.Operation, error) {
	return r.list(ctx,
		`SELECT `+operationColumns+` FROM bulk_operations ORDER BY id DESC LIMIT ?`,
		limit)
}

func (r *OperationRepository) list(ctx context.Context, query string, args ...interface{}) ([]*entity.Operation, error) {
	exec := sqlite.ExecutorFrom(ctx, r.db)

	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list operations", zap.Error(err))
		return nil, fmt.Errorf("failed to list operations: %w", err)
	}
	defer rows.Close()

	ops := make([]*entity.Operation, 0)
	for rows.Next() {
		op, err := scanOperation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan operation: %w", err)
		}
		ops = append(ops, op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate operations: %w", err)
	}
	rows.Close()

	if err := r.loadAssessments(ctx, exec, ops); err != nil {
		return nil, err
	}
	return ops, nil
}

func (r *OperationRepository) loadAssessments(ctx context.Context, exec sqlite.Executor, ops []*entity.Operation) error {
	for _, op := range ops {
		rows, err := exec.QueryContext(ctx, `
			SELECT assessment_id FROM bulk_operation_assessments
			WHERE operation_id = ?
			ORDER BY position
		`, op.ID)
		if err != nil {
			return fmt.Errorf("failed to load assessments of operation %d: %w", op.ID, err)
		}

		ids := make([]int64, 0)
		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan assessment id: %w", err)
			}
			ids = append(ids, id)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return fmt.Errorf("failed to iterate assessment ids: %w", err)
		}
		op.AssessmentIDs = ids
	}
	return nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanOperation(s scanner) (*entity.Operation, error) {
	var op entity.Operation
	var taskID sql.NullString
	var finishedAt sql.NullTime

	err := s.Scan(
		&op.ID,
		&op.SessionID,
		&op.Kind,
		&taskID,
		&op.Status,
		&op.RowCount,
		&op.Message,
		&op.CreatedAt,
		&op.UpdatedAt,
		&finishedAt,
	)
	if err != nil {
		return nil, err
	}

	op.TaskID = taskID.String
	if finishedAt.Valid {
		op.FinishedAt = &finishedAt.Time
	}
	return &op, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

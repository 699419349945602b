package port

import (
	"context"
	"errors"

	"github.com/garyjia/assessment-bulk/internal/domain/entity"
)

// ErrNotFound is returned by repositories when a record does not exist
var ErrNotFound = errors.New("record not found")

// OperationRepository stores the history of bulk operations
type OperationRepository interface {
	Create(ctx context.Context, op *entity.Operation) error
	UpdateStatus(ctx context.Context, taskID string, status string, message string) error
	GetByTaskID(ctx context.Context, taskID string) (*entity.Operation, error)
	ListBySession(ctx context.Context, sessionID string) ([]*entity.Operation, error)
	ListRecent(ctx context.Context, limit int) ([]*entity.Operation, error)
}

// TransactionManager runs fn in a transaction; repositories called with the
// ctx passed to fn join it
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

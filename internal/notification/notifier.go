package notification

import (
	"context"

	"go.uber.org/zap"

	"github.com/garyjia/assessment-bulk/internal/application/port"
)

// LogNotifier writes notices to the log
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a notifier logging with the session fields of logger
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

var _ port.Notifier = (*LogNotifier)(nil)

// Success implements port.Notifier
func (n *LogNotifier) Success(ctx context.Context, message string) {
	n.logger.Info("Notice", zap.String("level", LevelSuccess), zap.String("message", message))
}

// Error implements port.Notifier
func (n *LogNotifier) Error(ctx context.Context, message string) {
	n.logger.Warn("Notice", zap.String("level", LevelError), zap.String("message", message))
}

// ConnectionLost implements port.Notifier
func (n *LogNotifier) ConnectionLost(ctx context.Context) {
	n.logger.Warn("Notice", zap.String("level", LevelConnectionLost), zap.String("message", MsgConnectionLost))
}

// Multi forwards every notice to all of its notifiers
type Multi []port.Notifier

var _ port.Notifier = Multi(nil)

// Success implements port.Notifier
func (m Multi) Success(ctx context.Context, message string) {
	for _, n := range m {
		n.Success(ctx, message)
	}
}

// Error implements port.Notifier
func (m Multi) Error(ctx context.Context, message string) {
	for _, n := range m {
		n.Error(ctx, message)
	}
}

// ConnectionLost implements port.Notifier
func (m Multi) ConnectionLost(ctx context.Context) {
	for _, n := range m {
		n.ConnectionLost(ctx)
	}
}

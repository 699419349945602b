package dispatcher

import (
	"context"

	"github.com/garyjia/assessment-bulk/internal/domain/event"
)

// Handler processes a session event
type Handler func(ctx context.Context, evt *event.Event) error

// HandlerInfo describes a registered handler
type HandlerInfo struct {
	Name      string
	EventType event.Type
	Handler   Handler
}

package notification

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/garyjia/assessment-bulk/internal/application/dispatcher"
	"github.com/garyjia/assessment-bulk/internal/application/port"
	"github.com/garyjia/assessment-bulk/internal/domain/entity"
	"github.com/garyjia/assessment-bulk/internal/domain/event"
)

// Chat message titles
const (
	TitleSaveFinished     = "Saving certifications in bulk is finished"
	TitleCompleteFinished = "Completing certifications in bulk is finished"
	TitleSaveFailed       = "Failed to save answers for the following certifications:"
	TitleCompleteFailed   = "Failed to complete the following certifications:"
)

// LarkNotifier posts the outcome of bulk operations to a Lark chat
type LarkNotifier struct {
	sender    port.MessageSender
	receiveID string
	logger    *zap.Logger
}

// NewLarkNotifier creates a notifier posting to receiveID
func NewLarkNotifier(sender port.MessageSender, receiveID string, logger *zap.Logger) *LarkNotifier {
	return &LarkNotifier{
		sender:    sender,
		receiveID: receiveID,
		logger:    logger,
	}
}

// Register subscribes to the final outcomes of bulk operations
func (n *LarkNotifier) Register(d dispatcher.Dispatcher) {
	for _, t := range []event.Type{event.TypeBulkSucceeded, event.TypeBulkFailed, event.TypeBulkRejected} {
		d.SubscribeNamed(t, "lark_notifier", n.Handle)
	}
}

// Handle sends the chat message of an event. Delivery failures are logged
// and do not fail the dispatch.
func (n *LarkNotifier) Handle(ctx context.Context, evt *event.Event) error {
	text := FormatOutcome(evt)
	if text == "" {
		return nil
	}

	if err := n.sender.SendText(ctx, n.receiveID, text); err != nil {
		n.logger.Warn("Failed to post bulk outcome to Lark",
			zap.String("event_type", evt.Type.String()),
			zap.String("task_id", evt.GetPayloadString(event.KeyTaskID)),
			zap.Error(err))
		return nil
	}
	return nil
}

// FormatOutcome renders the chat text of a bulk outcome event, empty for
// other events
func FormatOutcome(evt *event.Event) string {
	complete := evt.GetPayloadString(event.KeyOperation) == entity.OperationComplete
	ids := evt.GetPayloadIDs(event.KeyIDs)

	var b strings.Builder
	switch evt.Type {
	case event.TypeBulkSucceeded:
		if complete {
			b.WriteString(TitleCompleteFinished)
		} else {
			b.WriteString(TitleSaveFinished)
		}
		fmt.Fprintf(&b, "\nCertifications: %d", len(ids))
	case event.TypeBulkFailed, event.TypeBulkRejected:
		if complete {
			b.WriteString(TitleCompleteFailed)
		} else {
			b.WriteString(TitleSaveFailed)
		}
		b.WriteString("\n")
		b.WriteString(joinIDs(ids))
		if msg := evt.GetPayloadString(event.KeyMessage); msg != "" {
			fmt.Fprintf(&b, "\nReason: %s", msg)
		}
	default:
		return ""
	}

	if taskID := evt.GetPayloadString(event.KeyTaskID); taskID != "" {
		fmt.Fprintf(&b, "\nTask: %s", taskID)
	}
	return b.String()
}

func joinIDs(ids []int64) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, strconv.FormatInt(id, 10))
	}
	return strings.Join(parts, ", ")
}

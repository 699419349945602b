package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/garyjia/assessment-bulk/internal/application/dispatcher"
	"github.com/garyjia/assessment-bulk/internal/domain/event"
)

// outcomeWatcher records the bulk outcomes of one session from the moment it
// subscribes, so a task that finishes before its id is returned is still seen
type outcomeWatcher struct {
	d         dispatcher.Dispatcher
	sessionID string
	name      string

	mu       sync.Mutex
	outcomes map[string]event.Type
	signal   chan struct{}
}

func watchOutcomes(d dispatcher.Dispatcher, sessionID string) *outcomeWatcher {
	w := &outcomeWatcher{
		d:         d,
		sessionID: sessionID,
		name:      "bulkctl_" + sessionID,
		outcomes:  make(map[string]event.Type),
		signal:    make(chan struct{}, 1),
	}
	d.SubscribeNamed(event.TypeBulkSucceeded, w.name, w.handle)
	d.SubscribeNamed(event.TypeBulkFailed, w.name, w.handle)
	return w
}

func (w *outcomeWatcher) handle(_ context.Context, evt *event.Event) error {
	if evt.CorrelationID != w.sessionID {
		return nil
	}
	taskID := evt.GetPayloadString(event.KeyTaskID)
	if taskID == "" {
		return nil
	}

	w.mu.Lock()
	w.outcomes[taskID] = evt.Type
	w.mu.Unlock()

	select {
	case w.signal <- struct{}{}:
	default:
	}
	return nil
}

func (w *outcomeWatcher) lookup(taskID string) (event.Type, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	outcome, ok := w.outcomes[taskID]
	return outcome, ok
}

// wait returns the outcome of taskID, which may already have been recorded
func (w *outcomeWatcher) wait(ctx context.Context, taskID string, timeout time.Duration) (event.Type, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		if outcome, ok := w.lookup(taskID); ok {
			return outcome, nil
		}
		select {
		case <-w.signal:
		case <-timer.C:
			return "", fmt.Errorf("task %s did not finish within %s", taskID, timeout)
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

func (w *outcomeWatcher) stop() {
	w.d.Unsubscribe(event.TypeBulkSucceeded, w.name)
	w.d.Unsubscribe(event.TypeBulkFailed, w.name)
}

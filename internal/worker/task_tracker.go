package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/assessment-bulk/internal/application/port"
)

// subscriber is one Track call waiting for a task
type subscriber struct {
	ctx       context.Context
	onSuccess func()
	onFailure func()
}

// watch is one tracked background task. A task tracked twice keeps one
// watch with both subscribers.
type watch struct {
	taskURL     string
	subscribers []subscriber
	deadline    time.Time
	errors      int
}

// TaskTracker polls the backend for background task status and reports the
// outcome through the callbacks given to Track
type TaskTracker struct {
	client port.TaskStatusClient
	logger *zap.Logger

	pollInterval   time.Duration
	taskTimeout    time.Duration
	requestTimeout time.Duration

	mu        sync.Mutex
	watches   map[string]*watch
	isRunning bool
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewTaskTracker creates a tracker. Start must be called before tasks resolve.
func NewTaskTracker(client port.TaskStatusClient, pollInterval, taskTimeout time.Duration, logger *zap.Logger) *TaskTracker {
	return &TaskTracker{
		client:         client,
		logger:         logger,
		pollInterval:   pollInterval,
		taskTimeout:    taskTimeout,
		requestTimeout: 10 * time.Second,
		watches:        make(map[string]*watch),
	}
}

var _ port.TaskTracker = (*TaskTracker)(nil)

// Start starts the polling loop
func (t *TaskTracker) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.isRunning {
		return fmt.Errorf("task tracker is already running")
	}

	loopCtx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.done = make(chan struct{})
	t.isRunning = true

	t.logger.Info("TaskTracker started",
		zap.Duration("poll_interval", t.pollInterval),
		zap.Duration("task_timeout", t.taskTimeout))

	go t.pollLoop(loopCtx, t.done)

	return nil
}

// Stop stops the polling loop and waits for it to exit. Unresolved tasks
// are dropped without calling their callbacks.
func (t *TaskTracker) Stop() {
	t.mu.Lock()
	if !t.isRunning {
		t.mu.Unlock()
		return
	}
	t.isRunning = false
	t.cancel()
	done := t.done
	pending := len(t.watches)
	t.mu.Unlock()

	<-done

	t.logger.Info("TaskTracker stopped", zap.Int("unresolved_tasks", pending))
}

// Name returns the worker name for identification
func (t *TaskTracker) Name() string {
	return "TaskTracker"
}

// Track registers a task. Exactly one of the callbacks runs once the task
// succeeds, fails, times out or ctx is cancelled. Tracking a task that is
// already tracked adds the callbacks to the running watch.
func (t *TaskTracker) Track(ctx context.Context, taskURL string, onSuccess, onFailure func()) {
	if onSuccess == nil {
		onSuccess = func() {}
	}
	if onFailure == nil {
		onFailure = func() {}
	}
	sub := subscriber{ctx: ctx, onSuccess: onSuccess, onFailure: onFailure}

	t.mu.Lock()
	defer t.mu.Unlock()

	if w, exists := t.watches[taskURL]; exists {
		w.subscribers = append(w.subscribers, sub)
		t.logger.Info("Task already tracked, callbacks attached",
			zap.String("task_url", taskURL),
			zap.Int("subscribers", len(w.subscribers)))
		return
	}

	t.watches[taskURL] = &watch{
		taskURL:     taskURL,
		subscribers: []subscriber{sub},
		deadline:    time.Now().Add(t.taskTimeout),
	}

	t.logger.Info("Tracking background task", zap.String("task_url", taskURL))
}

// Pending returns the number of unresolved tasks
func (t *TaskTracker) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.watches)
}

func (t *TaskTracker) pollLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(t.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.logger.Debug("Poll loop context cancelled")
			return

		case <-ticker.C:
			t.pollTasks(ctx)
		}
	}
}

// pollTasks checks every tracked task once
func (t *TaskTracker) pollTasks(ctx context.Context) {
	t.mu.Lock()
	watches := make([]*watch, 0, len(t.watches))
	for _, w := range t.watches {
		watches = append(watches, w)
	}
	t.mu.Unlock()

	for _, w := range watches {
		if ctx.Err() != nil {
			return
		}
		if !t.dropCancelled(w) {
			continue
		}

		status, resolved := t.check(ctx, w)
		if !resolved {
			continue
		}

		t.mu.Lock()
		delete(t.watches, w.taskURL)
		subscribers := w.subscribers
		t.mu.Unlock()

		for _, sub := range subscribers {
			if status == port.TaskStatusSuccess {
				sub.onSuccess()
			} else {
				sub.onFailure()
			}
		}
	}
}

// dropCancelled fails the subscribers whose context ended and reports
// whether the watch still has someone waiting
func (t *TaskTracker) dropCancelled(w *watch) bool {
	t.mu.Lock()
	var cancelled []subscriber
	active := make([]subscriber, 0, len(w.subscribers))
	for _, sub := range w.subscribers {
		if sub.ctx != nil && sub.ctx.Err() != nil {
			cancelled = append(cancelled, sub)
			continue
		}
		active = append(active, sub)
	}
	w.subscribers = active
	if len(active) == 0 {
		delete(t.watches, w.taskURL)
	}
	t.mu.Unlock()

	if len(cancelled) > 0 {
		t.logger.Warn("Task tracking cancelled",
			zap.String("task_url", w.taskURL),
			zap.Int("subscribers", len(cancelled)))
	}
	for _, sub := range cancelled {
		sub.onFailure()
	}
	return len(active) > 0
}

// check reports the final status of the task, resolved is false while it runs
func (t *TaskTracker) check(ctx context.Context, w *watch) (status port.TaskStatus, resolved bool) {
	if time.Now().After(w.deadline) {
		t.logger.Error("Background task timed out", zap.String("task_url", w.taskURL))
		return port.TaskStatusFailure, true
	}

	reqCtx, cancel := context.WithTimeout(ctx, t.requestTimeout)
	defer cancel()

	status, err := t.client.TaskStatus(reqCtx, w.taskURL)
	if err != nil {
		w.errors++
		t.logger.Warn("Failed to read task status",
			zap.String("task_url", w.taskURL),
			zap.Int("consecutive_errors", w.errors),
			zap.Error(err))
		return "", false
	}
	w.errors = 0

	switch status {
	case port.TaskStatusSuccess:
		t.logger.Info("Background task succeeded", zap.String("task_url", w.taskURL))
		return status, true
	case port.TaskStatusFailure:
		t.logger.Warn("Background task failed", zap.String("task_url", w.taskURL))
		return status, true
	default:
		return status, false
	}
}

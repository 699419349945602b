package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/garyjia/assessment-bulk/internal/application/port"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// scriptedStatusClient returns the scripted statuses of a task in order and
// repeats the last one
type scriptedStatusClient struct {
	mu      sync.Mutex
	scripts map[string][]port.TaskStatus
	errs    map[string]error
	calls   atomic.Int32
}

func (c *scriptedStatusClient) TaskStatus(ctx context.Context, taskURL string) (port.TaskStatus, error) {
	c.calls.Add(1)
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.errs[taskURL]; err != nil {
		return "", err
	}
	script := c.scripts[taskURL]
	if len(script) == 0 {
		return port.TaskStatusPending, nil
	}
	status := script[0]
	if len(script) > 1 {
		c.scripts[taskURL] = script[1:]
	}
	return status, nil
}

type outcome struct {
	success chan struct{}
	failure chan struct{}
}

func newOutcome() *outcome {
	return &outcome{
		success: make(chan struct{}, 1),
		failure: make(chan struct{}, 1),
	}
}

func (o *outcome) callbacks() (func(), func()) {
	return func() { o.success <- struct{}{} }, func() { o.failure <- struct{}{} }
}

func (o *outcome) wait(t *testing.T) string {
	t.Helper()
	select {
	case <-o.success:
		return "success"
	case <-o.failure:
		return "failure"
	case <-time.After(2 * time.Second):
		t.Fatal("task did not resolve")
		return ""
	}
}

func startTracker(t *testing.T, client port.TaskStatusClient, timeout time.Duration) *TaskTracker {
	t.Helper()
	tracker := NewTaskTracker(client, 5*time.Millisecond, timeout, zap.NewNop())
	require.NoError(t, tracker.Start(context.Background()))
	t.Cleanup(tracker.Stop)
	return tracker
}

func TestTaskTracker_ResolvesTasks(t *testing.T) {
	client := &scriptedStatusClient{scripts: map[string][]port.TaskStatus{
		"/api/background_tasks/1": {port.TaskStatusPending, port.TaskStatusRunning, port.TaskStatusSuccess},
		"/api/background_tasks/2": {port.TaskStatusRunning, port.TaskStatusFailure},
	}}
	tracker := startTracker(t, client, time.Minute)

	ok := newOutcome()
	failed := newOutcome()
	onSuccess, onFailure := ok.callbacks()
	tracker.Track(context.Background(), "/api/background_tasks/1", onSuccess, onFailure)
	onSuccess, onFailure = failed.callbacks()
	tracker.Track(context.Background(), "/api/background_tasks/2", onSuccess, onFailure)

	assert.Equal(t, "success", ok.wait(t))
	assert.Equal(t, "failure", failed.wait(t))
	assert.Eventually(t, func() bool { return tracker.Pending() == 0 }, time.Second, 5*time.Millisecond)
}

func TestTaskTracker_CallbackRunsOnce(t *testing.T) {
	client := &scriptedStatusClient{scripts: map[string][]port.TaskStatus{
		"/t": {port.TaskStatusSuccess},
	}}
	tracker := startTracker(t, client, time.Minute)

	var calls atomic.Int32
	tracker.Track(context.Background(), "/t", func() { calls.Add(1) }, func() { calls.Add(100) })

	assert.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestTaskTracker_TimeoutFails(t *testing.T) {
	client := &scriptedStatusClient{}
	tracker := startTracker(t, client, 20*time.Millisecond)

	out := newOutcome()
	onSuccess, onFailure := out.callbacks()
	tracker.Track(context.Background(), "/never", onSuccess, onFailure)

	assert.Equal(t, "failure", out.wait(t))
}

func TestTaskTracker_StatusErrorsKeepPolling(t *testing.T) {
	client := &scriptedStatusClient{
		scripts: map[string][]port.TaskStatus{"/flaky": {port.TaskStatusSuccess}},
		errs:    map[string]error{"/flaky": errors.New("boom")},
	}
	tracker := startTracker(t, client, time.Minute)

	out := newOutcome()
	onSuccess, onFailure := out.callbacks()
	tracker.Track(context.Background(), "/flaky", onSuccess, onFailure)

	assert.Eventually(t, func() bool { return client.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	client.mu.Lock()
	client.errs = nil
	client.mu.Unlock()

	assert.Equal(t, "success", out.wait(t))
}

func TestTaskTracker_CancelledContextFails(t *testing.T) {
	tracker := startTracker(t, &scriptedStatusClient{}, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	out := newOutcome()
	onSuccess, onFailure := out.callbacks()
	tracker.Track(ctx, "/cancelled", onSuccess, onFailure)
	cancel()

	assert.Equal(t, "failure", out.wait(t))
}

func TestTaskTracker_DuplicateTrackSharesOneWatch(t *testing.T) {
	tracker := NewTaskTracker(&scriptedStatusClient{}, time.Hour, time.Minute, zap.NewNop())

	tracker.Track(context.Background(), "/dup", nil, nil)
	tracker.Track(context.Background(), "/dup", nil, nil)

	assert.Equal(t, 1, tracker.Pending())
}

func TestTaskTracker_DuplicateTrackRunsEveryCallback(t *testing.T) {
	client := &scriptedStatusClient{scripts: map[string][]port.TaskStatus{
		"/dup": {port.TaskStatusRunning, port.TaskStatusSuccess},
	}}
	tracker := startTracker(t, client, time.Minute)

	first := newOutcome()
	second := newOutcome()
	onSuccess, onFailure := first.callbacks()
	tracker.Track(context.Background(), "/dup", onSuccess, onFailure)
	onSuccess, onFailure = second.callbacks()
	tracker.Track(context.Background(), "/dup", onSuccess, onFailure)

	assert.Equal(t, "success", first.wait(t))
	assert.Equal(t, "success", second.wait(t))
}

func TestTaskTracker_CancelledDuplicateFailsAlone(t *testing.T) {
	client := &scriptedStatusClient{}
	tracker := startTracker(t, client, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	kept := newOutcome()
	dropped := newOutcome()
	onSuccess, onFailure := kept.callbacks()
	tracker.Track(context.Background(), "/shared", onSuccess, onFailure)
	onSuccess, onFailure = dropped.callbacks()
	tracker.Track(ctx, "/shared", onSuccess, onFailure)
	cancel()

	assert.Equal(t, "failure", dropped.wait(t))
	assert.Equal(t, 1, tracker.Pending())

	client.mu.Lock()
	client.scripts = map[string][]port.TaskStatus{"/shared": {port.TaskStatusSuccess}}
	client.mu.Unlock()

	assert.Equal(t, "success", kept.wait(t))
}

func TestTaskTracker_StartStop(t *testing.T) {
	tracker := NewTaskTracker(&scriptedStatusClient{}, time.Millisecond, time.Minute, zap.NewNop())

	require.NoError(t, tracker.Start(context.Background()))
	assert.Error(t, tracker.Start(context.Background()))

	tracker.Stop()
	tracker.Stop()

	assert.Equal(t, "TaskTracker", tracker.Name())
}

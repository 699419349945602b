package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/garyjia/assessment-bulk/internal/application/dispatcher"
	"github.com/garyjia/assessment-bulk/internal/application/port"
	"github.com/garyjia/assessment-bulk/internal/domain/bulk"
	"github.com/garyjia/assessment-bulk/internal/domain/entity"
	"github.com/garyjia/assessment-bulk/internal/domain/event"
)

// Assessment 1 is ready, assessment 2 has an empty mandatory conclusion
const searchJSON = `{
  "assessments": [
    {"id": 1, "slug": "ASSESSMENT-1", "title": "First", "status": "In Progress"},
    {"id": 2, "slug": "ASSESSMENT-2", "title": "Second", "status": "Not Started"}
  ],
  "attributes": [
    {"title": "Conclusion", "mandatory": true, "attribute_type": "Dropdown", "default_value": "",
     "values": {
       "1": {"value": "Effective", "definition_id": 1, "attribute_definition_id": 12,
             "multi_choice_options": "Effective,Ineffective", "multi_choice_mandatory": "0,1"},
       "2": {"value": "", "definition_id": 2, "attribute_definition_id": 22,
             "multi_choice_options": "Effective,Ineffective", "multi_choice_mandatory": "0,1"}
     }}
  ]
}`

func searchResult(t *testing.T) *bulk.SearchResult {
	t.Helper()
	var result bulk.SearchResult
	require.NoError(t, json.Unmarshal([]byte(searchJSON), &result))
	return &result
}

type mockSearchClient struct {
	searchFunc func(ctx context.Context, ids []int64) (*bulk.SearchResult, error)
	calls      int
}

func (m *mockSearchClient) Search(ctx context.Context, ids []int64) (*bulk.SearchResult, error) {
	m.calls++
	return m.searchFunc(ctx, ids)
}

type mockBulkClient struct {
	saveFunc     func(ctx context.Context, req *bulk.Request) (string, error)
	completeFunc func(ctx context.Context, req *bulk.Request) (string, error)
	requests     []*bulk.Request
}

func (m *mockBulkClient) SaveAnswers(ctx context.Context, req *bulk.Request) (string, error) {
	m.requests = append(m.requests, req)
	if m.saveFunc != nil {
		return m.saveFunc(ctx, req)
	}
	return "41", nil
}

func (m *mockBulkClient) Complete(ctx context.Context, req *bulk.Request) (string, error) {
	m.requests = append(m.requests, req)
	if m.completeFunc != nil {
		return m.completeFunc(ctx, req)
	}
	return "42", nil
}

func (m *mockBulkClient) TaskURL(taskID string) string {
	return "/api/background_tasks/" + taskID
}

// mockTracker keeps the callbacks so tests resolve tasks by hand
type mockTracker struct {
	mu      sync.Mutex
	urls    []string
	success []func()
	failure []func()
}

func (m *mockTracker) Track(ctx context.Context, taskURL string, onSuccess, onFailure func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.urls = append(m.urls, taskURL)
	m.success = append(m.success, onSuccess)
	m.failure = append(m.failure, onFailure)
}

func (m *mockTracker) succeed(i int) { m.success[i]() }
func (m *mockTracker) fail(i int)    { m.failure[i]() }

type mockUploader struct {
	uploadFunc func(ctx context.Context, sources []port.UploadSource) ([]port.UploadedFile, error)
}

func (m *mockUploader) Upload(ctx context.Context, sources []port.UploadSource) ([]port.UploadedFile, error) {
	return m.uploadFunc(ctx, sources)
}

type recordingNotifier struct {
	mu             sync.Mutex
	successes      []string
	errors         []string
	connectionLost int
}

func (n *recordingNotifier) Success(ctx context.Context, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.successes = append(n.successes, message)
}

func (n *recordingNotifier) Error(ctx context.Context, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errors = append(n.errors, message)
}

func (n *recordingNotifier) ConnectionLost(ctx context.Context) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.connectionLost++
}

type mockOperationRepo struct {
	created []*entity.Operation
	updates []string
	err     error
}

func (m *mockOperationRepo) Create(ctx context.Context, op *entity.Operation) error {
	if m.err != nil {
		return m.err
	}
	op.ID = int64(len(m.created) + 1)
	m.created = append(m.created, op)
	return nil
}

func (m *mockOperationRepo) UpdateStatus(ctx context.Context, taskID, status, message string) error {
	if m.err != nil {
		return m.err
	}
	m.updates = append(m.updates, taskID+":"+status+":"+message)
	return nil
}

func (m *mockOperationRepo) GetByTaskID(ctx context.Context, taskID string) (*entity.Operation, error) {
	for _, op := range m.created {
		if op.TaskID == taskID {
			return op, nil
		}
	}
	return nil, port.ErrNotFound
}

func (m *mockOperationRepo) ListBySession(ctx context.Context, sessionID string) ([]*entity.Operation, error) {
	var ops []*entity.Operation
	for _, op := range m.created {
		if op.SessionID == sessionID {
			ops = append(ops, op)
		}
	}
	return ops, nil
}

func (m *mockOperationRepo) ListRecent(ctx context.Context, limit int) ([]*entity.Operation, error) {
	if len(m.created) > limit {
		return m.created[:limit], nil
	}
	return m.created, nil
}

func confirm(answer bool, asked *[]string) port.Confirmer {
	return port.ConfirmFunc(func(ctx context.Context, message string) bool {
		if asked != nil {
			*asked = append(*asked, message)
		}
		return answer
	})
}

type harness struct {
	search   *mockSearchClient
	bulk     *mockBulkClient
	tracker  *mockTracker
	uploader *mockUploader
	notifier *recordingNotifier
	events   *[]*event.Event
	service  *CompletionService
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	var events []*event.Event
	d := dispatcher.NewDispatcher()
	d.SubscribeBulk("recorder", func(ctx context.Context, evt *event.Event) error {
		events = append(events, evt)
		return nil
	})
	t.Cleanup(func() { _ = d.Close() })

	h := &harness{
		search: &mockSearchClient{searchFunc: func(ctx context.Context, ids []int64) (*bulk.SearchResult, error) {
			return searchResult(t), nil
		}},
		bulk:     &mockBulkClient{},
		tracker:  &mockTracker{},
		uploader: &mockUploader{},
		notifier: &recordingNotifier{},
		events:   &events,
	}
	h.service = NewCompletionService("session-1", Dependencies{
		Search:   h.search,
		Bulk:     h.bulk,
		Tracker:  h.tracker,
		Uploader: h.uploader,
		Notifier: h.notifier,
		Events:   d,
		PersonID: 5,
	})
	return h
}

func (h *harness) load(t *testing.T) {
	t.Helper()
	require.NoError(t, h.service.Load(context.Background(), []int64{1, 2}, nil))
}

func (h *harness) eventTypes() []event.Type {
	types := make([]event.Type, 0, len(*h.events))
	for _, evt := range *h.events {
		types = append(types, evt.Type)
	}
	return types
}

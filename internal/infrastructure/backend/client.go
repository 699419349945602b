package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/assessment-bulk/internal/application/port"
	"github.com/garyjia/assessment-bulk/internal/domain/bulk"
)

const (
	searchPath      = "/api/bulk_operations/cavs/search"
	savePath        = "/api/bulk_operations/cavs/save"
	completePath    = "/api/bulk_operations/complete"
	uploadPath      = "/api/files"
	taskPathPrefix  = "/api/background_tasks/"
	requestedByName = "X-Requested-By"
	requestedByApp  = "GGRC"
)

// APIError wraps non-2xx responses
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// Client talks to the assessment backend
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a backend client
func NewClient(baseURL, token string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

var (
	_ port.SearchClient        = (*Client)(nil)
	_ port.BulkOperationClient = (*Client)(nil)
	_ port.TaskStatusClient    = (*Client)(nil)
	_ port.FileUploader        = (*Client)(nil)
)

// Search loads the grid data for the given assessments
func (c *Client) Search(ctx context.Context, assessmentIDs []int64) (*bulk.SearchResult, error) {
	var result bulk.SearchResult
	body := map[string]interface{}{"ids": assessmentIDs}
	if err := c.doJSON(ctx, http.MethodPost, searchPath, body, &result); err != nil {
		return nil, fmt.Errorf("search assessments: %w", err)
	}

	c.logger.Debug("Search completed",
		zap.Int("assessments", len(result.Assessments)),
		zap.Int("attributes", len(result.Attributes)))
	return &result, nil
}

// SaveAnswers enqueues a save of the given answers
func (c *Client) SaveAnswers(ctx context.Context, req *bulk.Request) (string, error) {
	return c.enqueue(ctx, savePath, req)
}

// Complete enqueues the completion of the ready assessments
func (c *Client) Complete(ctx context.Context, req *bulk.Request) (string, error) {
	return c.enqueue(ctx, completePath, req)
}

// TaskURL returns the status url of a background task
func (c *Client) TaskURL(taskID string) string {
	return taskPathPrefix + taskID
}

// TaskStatus reads the status of the task behind taskURL
func (c *Client) TaskStatus(ctx context.Context, taskURL string) (port.TaskStatus, error) {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.doJSON(ctx, http.MethodGet, taskURL, nil, &resp); err != nil {
		return "", fmt.Errorf("task status: %w", err)
	}
	return port.TaskStatus(resp.Status), nil
}

// Upload stores evidence files as a multipart request
func (c *Client) Upload(ctx context.Context, sources []port.UploadSource) ([]port.UploadedFile, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for _, src := range sources {
		part, err := writer.CreateFormFile("files", src.Name)
		if err != nil {
			return nil, fmt.Errorf("create form file: %w", err)
		}
		if _, err := io.Copy(part, src.Content); err != nil {
			return nil, fmt.Errorf("read %s: %w", src.Name, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart body: %w", err)
	}

	var files []port.UploadedFile
	if err := c.do(ctx, http.MethodPost, uploadPath, writer.FormDataContentType(), &buf, &files); err != nil {
		return nil, fmt.Errorf("upload files: %w", err)
	}

	c.logger.Info("Files uploaded", zap.Int("count", len(files)))
	return files, nil
}

func (c *Client) enqueue(ctx context.Context, path string, req *bulk.Request) (string, error) {
	var resp struct {
		ID json.RawMessage `json:"id"`
	}
	if err := c.doJSON(ctx, http.MethodPost, path, req, &resp); err != nil {
		return "", fmt.Errorf("enqueue %s: %w", path, err)
	}

	taskID := parseTaskID(resp.ID)
	if taskID == "" {
		c.logger.Warn("Backend did not enqueue a task", zap.String("path", path))
	}
	return taskID, nil
}

// parseTaskID accepts a numeric or string id; anything else means no task
func parseTaskID(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out interface{}) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	return c.do(ctx, method, path, "application/json", &buf, out)
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/"+strings.TrimLeft(path, "/"), body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestedByName, requestedByApp)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isConnectionError(err) {
			return fmt.Errorf("%w: %v", port.ErrConnectionLost, err)
		}
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.Error("Backend request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode))
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}

	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

// isConnectionError reports transport failures that are not caused by the
// caller giving up
func isConnectionError(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

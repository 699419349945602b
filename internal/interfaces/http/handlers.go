package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/assessment-bulk/internal/application/port"
	"github.com/garyjia/assessment-bulk/internal/application/service"
	"github.com/garyjia/assessment-bulk/internal/domain/bulk"
	"github.com/garyjia/assessment-bulk/internal/domain/workflow"
	"github.com/garyjia/assessment-bulk/pkg/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Handlers contains all HTTP request handlers
type Handlers struct {
	services Services
	logger   Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(services Services, logger Logger) *Handlers {
	return &Handlers{
		services: services,
		logger:   logger,
	}
}

// Response represents a standard JSON response. Confirmation carries the
// question the caller must accept, by repeating the request with the
// confirm or discard flag, before the action runs.
type Response struct {
	Success      bool        `json:"success"`
	Data         interface{} `json:"data,omitempty"`
	Error        string      `json:"error,omitempty"`
	Confirmation string      `json:"confirmation,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Sessions  int    `json:"sessions"`
}

// SessionSummary is one entry of the session list
type SessionSummary struct {
	ID                  string         `json:"id"`
	State               workflow.State `json:"state"`
	Rows                int            `json:"rows"`
	ReadyCount          int            `json:"ready_count"`
	IsAttributeModified bool           `json:"is_attribute_modified"`
	CreatedAt           time.Time      `json:"created_at"`
	LastActivity        time.Time      `json:"last_activity"`
}

// LoadRequest lists the assessments to show in the grid
type LoadRequest struct {
	IDs []int64 `json:"ids"`
}

// ChangeValueRequest carries the raw cell input
type ChangeValueRequest struct {
	Value json.RawMessage `json:"value"`
}

// ExportResponse names a stored export
type ExportResponse struct {
	Path string `json:"path"`
}

// ListOperationsRequest represents query parameters for the operation history
type ListOperationsRequest struct {
	Limit int `form:"limit"`
}

// requestConfirmer answers confirmations from a request flag and remembers
// the question it was asked
type requestConfirmer struct {
	allow bool
	asked string
}

func (r *requestConfirmer) Confirm(_ context.Context, message string) bool {
	r.asked = message
	return r.allow
}

func confirmerFrom(c *gin.Context, flag string) *requestConfirmer {
	allow, _ := strconv.ParseBool(c.Query(flag))
	return &requestConfirmer{allow: allow}
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	if h.services.Health != nil {
		if err := h.services.Health(c.Request.Context()); err != nil {
			h.logger.Error("Health check failed", "error", err)
			c.JSON(http.StatusServiceUnavailable, Response{
				Success: false,
				Error:   "unhealthy: " + err.Error(),
			})
			return
		}
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Sessions:  len(h.services.Sessions.List()),
		},
	})
}

// CreateSession handles POST /api/sessions. When ids are given the grid is
// loaded right away.
func (h *Handlers) CreateSession(c *gin.Context) {
	var req LoadRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid request body")
			return
		}
	}
	if len(req.IDs) > 0 {
		if err := utils.ValidateIDs(req.IDs); err != nil {
			badRequest(c, err.Error())
			return
		}
	}

	session := h.services.Sessions.Create()
	if len(req.IDs) > 0 {
		if err := session.Load(c.Request.Context(), req.IDs, nil); err != nil {
			h.fail(c, err, "")
			return
		}
	}

	c.JSON(http.StatusCreated, Response{
		Success: true,
		Data:    session.Snapshot(),
	})
}

// ListSessions handles GET /api/sessions
func (h *Handlers) ListSessions(c *gin.Context) {
	sessions := h.services.Sessions.List()
	out := make([]SessionSummary, 0, len(sessions))
	for _, s := range sessions {
		snap := s.Snapshot()
		out = append(out, SessionSummary{
			ID:                  snap.ID,
			State:               snap.State,
			Rows:                len(snap.Grid.Rows),
			ReadyCount:          snap.Grid.ReadyCount,
			IsAttributeModified: snap.Grid.IsAttributeModified,
			CreatedAt:           snap.CreatedAt,
			LastActivity:        snap.LastActivity,
		})
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    out,
	})
}

// GetSession handles GET /api/sessions/:id
func (h *Handlers) GetSession(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    session.Snapshot(),
	})
}

// LoadSession handles POST /api/sessions/:id/load?discard=true
func (h *Handlers) LoadSession(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	var req LoadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	if err := utils.ValidateIDs(req.IDs); err != nil {
		badRequest(c, err.Error())
		return
	}

	confirmer := confirmerFrom(c, "discard")
	if err := session.Load(c.Request.Context(), req.IDs, confirmer); err != nil {
		h.fail(c, err, confirmer.asked)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    session.Snapshot(),
	})
}

// ChangeValue handles PUT /api/sessions/:id/rows/:row/attributes/:index
func (h *Handlers) ChangeValue(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	assessmentID, err := strconv.ParseInt(c.Param("row"), 10, 64)
	if err != nil {
		badRequest(c, "invalid assessment id")
		return
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		badRequest(c, "invalid attribute index")
		return
	}

	var req ChangeValueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	if len(req.Value) == 0 {
		req.Value = json.RawMessage("null")
	}

	if err := session.ChangeValue(c.Request.Context(), assessmentID, index, req.Value); err != nil {
		h.fail(c, err, "")
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    session.Snapshot().Grid,
	})
}

// SaveRequiredInfo handles PUT /api/sessions/:id/attributes/:attr/required-info
func (h *Handlers) SaveRequiredInfo(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	attributeID, err := strconv.ParseInt(c.Param("attr"), 10, 64)
	if err != nil || attributeID <= 0 {
		badRequest(c, "invalid attribute id")
		return
	}

	var changes bulk.RequiredInfoChanges
	if err := c.ShouldBindJSON(&changes); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	if err := session.SaveRequiredInfo(c.Request.Context(), attributeID, changes); err != nil {
		h.fail(c, err, "")
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    session.Snapshot().Grid,
	})
}

// UploadFiles handles POST /api/sessions/:id/files with multipart "files"
func (h *Handlers) UploadFiles(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		badRequest(c, "multipart form expected")
		return
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		badRequest(c, "no files given")
		return
	}

	sources := make([]port.UploadSource, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			badRequest(c, fmt.Sprintf("unreadable file %s", fh.Filename))
			return
		}
		defer f.Close()
		sources = append(sources, port.UploadSource{Name: fh.Filename, Content: f})
	}

	files, err := session.AddFiles(c.Request.Context(), sources)
	if err != nil {
		h.fail(c, err, "")
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    files,
	})
}

// SaveAnswers handles POST /api/sessions/:id/save
func (h *Handlers) SaveAnswers(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	sub, err := session.SaveAnswers(c.Request.Context())
	if err != nil {
		h.fail(c, err, "")
		return
	}

	c.JSON(http.StatusAccepted, Response{
		Success: true,
		Data:    sub,
	})
}

// Complete handles POST /api/sessions/:id/complete?confirm=true
func (h *Handlers) Complete(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	confirmer := confirmerFrom(c, "confirm")
	sub, err := session.Complete(c.Request.Context(), confirmer)
	if err != nil {
		h.fail(c, err, confirmer.asked)
		return
	}

	c.JSON(http.StatusAccepted, Response{
		Success: true,
		Data:    sub,
	})
}

// CloseSession handles DELETE /api/sessions/:id?discard=true
func (h *Handlers) CloseSession(c *gin.Context) {
	confirmer := confirmerFrom(c, "discard")
	if err := h.services.Sessions.Close(c.Request.Context(), c.Param("id"), confirmer); err != nil {
		h.fail(c, err, confirmer.asked)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true})
}

// DownloadExport handles GET /api/sessions/:id/export
func (h *Handlers) DownloadExport(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := h.services.Exporter.Write(&buf, session.Snapshot().Grid); err != nil {
		h.fail(c, err, "")
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="assessments-%s.xlsx"`, session.ID()))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// StoreExport handles POST /api/sessions/:id/exports
func (h *Handlers) StoreExport(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	path, err := h.services.Exporter.Export(c.Request.Context(), session.ID(), session.Snapshot().Grid)
	if err != nil {
		h.fail(c, err, "")
		return
	}

	c.JSON(http.StatusCreated, Response{
		Success: true,
		Data:    ExportResponse{Path: path},
	})
}

// Messages handles GET /api/sessions/:id/messages
func (h *Handlers) Messages(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    h.services.Messages.Drain(session.ID()),
	})
}

// SessionOperations handles GET /api/sessions/:id/operations
func (h *Handlers) SessionOperations(c *gin.Context) {
	ops, err := h.services.History.ForSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err, "")
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    ops,
	})
}

// ListOperations handles GET /api/operations
func (h *Handlers) ListOperations(c *gin.Context) {
	var req ListOperationsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, "invalid query parameters")
		return
	}
	if req.Limit <= 0 || req.Limit > 500 {
		req.Limit = 50
	}

	ops, err := h.services.History.Recent(c.Request.Context(), req.Limit)
	if err != nil {
		h.fail(c, err, "")
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    ops,
	})
}

func (h *Handlers) session(c *gin.Context) (*service.CompletionService, bool) {
	session, err := h.services.Sessions.Get(c.Param("id"))
	if err != nil {
		h.fail(c, err, "")
		return nil, false
	}
	return session, true
}

package container

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/garyjia/assessment-bulk/internal/application/dispatcher"
	"github.com/garyjia/assessment-bulk/internal/application/service"
	"github.com/garyjia/assessment-bulk/internal/config"
	"github.com/garyjia/assessment-bulk/internal/export"
	"github.com/garyjia/assessment-bulk/internal/infrastructure/backend"
	"github.com/garyjia/assessment-bulk/internal/infrastructure/persistence/repository"
	"github.com/garyjia/assessment-bulk/internal/infrastructure/storage"
	"github.com/garyjia/assessment-bulk/internal/notification"
	"github.com/garyjia/assessment-bulk/internal/worker"
	"github.com/garyjia/assessment-bulk/pkg/database"
)

// Container manages all application dependencies and lifecycle.
// Components are initialized in dependency order and torn down in reverse.
type Container struct {
	config *config.Config
	logger *zap.Logger

	// Infrastructure - Data
	db         *database.DB
	operations *repository.OperationRepository

	// Infrastructure - External
	backend      *backend.Client
	larkNotifier *notification.LarkNotifier

	// Infrastructure - Storage
	fileStorage *storage.LocalFileStorage
	exporter    *export.MatrixExporter

	// Application
	dispatcher dispatcher.Dispatcher
	history    *service.OperationHistory
	hub        *notification.Hub
	sessions   *service.SessionRegistry

	// Workers
	tracker *worker.TaskTracker
	workers *worker.Manager

	// Lifecycle
	mu     sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc
	ready  atomic.Bool
	closed atomic.Bool
}

// HealthStatus represents the health of all components.
type HealthStatus struct {
	Overall    bool                       `json:"overall"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents health of a single component.
type ComponentHealth struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// NewContainer creates a new container from configuration.
// It does not initialize components - call Start() to initialize.
func NewContainer(cfg *config.Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Container{
		config: cfg,
		logger: logger,
	}, nil
}

// Start initializes all components and begins processing:
// database, external clients, storage, dispatcher, sessions, then workers.
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container has been closed")
	}
	if c.ready.Load() {
		return fmt.Errorf("container already started")
	}

	c.ctx, c.cancel = context.WithCancel(ctx)
	c.logger.Info("Starting container initialization")

	steps := []struct {
		name string
		fn   func() error
	}{
		{"database", c.initDatabase},
		{"external clients", c.initExternalClients},
		{"storage", c.initStorage},
		{"dispatcher", c.initDispatcher},
		{"sessions", c.initSessions},
		{"workers", c.initWorkers},
	}
	for _, step := range steps {
		if err := step.fn(); err != nil {
			c.teardown()
			return fmt.Errorf("failed to initialize %s: %w", step.name, err)
		}
		c.logger.Info("Component initialized", zap.String("component", step.name))
	}

	c.ready.Store(true)
	c.logger.Info("Container started successfully")
	return nil
}

// Close gracefully shuts down all components in reverse order.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container already closed")
	}

	c.logger.Info("Closing container")
	errs := c.teardown()

	c.closed.Store(true)
	c.ready.Store(false)

	if len(errs) > 0 {
		c.logger.Error("Container closed with errors", zap.Int("error_count", len(errs)))
		return fmt.Errorf("container closed with %d errors: %w", len(errs), errs[0])
	}

	c.logger.Info("Container closed successfully")
	return nil
}

func (c *Container) teardown() []error {
	var errs []error

	if c.cancel != nil {
		c.cancel()
	}

	if c.workers != nil {
		c.workers.StopAll()
		c.logger.Info("Workers stopped")
	}

	if c.dispatcher != nil {
		if err := c.dispatcher.Close(); err != nil {
			c.logger.Error("Failed to close dispatcher", zap.Error(err))
			errs = append(errs, fmt.Errorf("close dispatcher: %w", err))
		}
	}

	if c.db != nil {
		if err := c.db.Close(); err != nil {
			c.logger.Error("Failed to close database", zap.Error(err))
			errs = append(errs, fmt.Errorf("close database: %w", err))
		} else {
			c.logger.Info("Database closed")
		}
		c.db = nil
	}

	return errs
}

// Ready returns true when all components are initialized.
func (c *Container) Ready() bool {
	return c.ready.Load()
}

// Health returns health status of all components.
func (c *Container) Health(ctx context.Context) *HealthStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()

	status := &HealthStatus{
		Overall:    true,
		Components: make(map[string]ComponentHealth),
	}
	set := func(name string, healthy bool, message string) {
		status.Components[name] = ComponentHealth{Healthy: healthy, Message: message}
		if !healthy {
			status.Overall = false
		}
	}

	switch {
	case c.db == nil:
		set("database", false, "not initialized")
	default:
		if err := c.db.Health(ctx); err != nil {
			set("database", false, fmt.Sprintf("ping failed: %v", err))
		} else {
			set("database", true, "")
		}
	}

	if c.workers != nil {
		set("workers", c.ready.Load(), fmt.Sprintf("worker count: %d", c.workers.Count()))
	} else {
		set("workers", false, "not initialized")
	}

	if c.tracker != nil {
		set("task_tracker", true, fmt.Sprintf("pending tasks: %d", c.tracker.Pending()))
	}

	if c.sessions != nil {
		set("sessions", true, fmt.Sprintf("open sessions: %d", len(c.sessions.List())))
	}

	return status
}

// HealthCheck reports the first unhealthy component as an error.
func (c *Container) HealthCheck(ctx context.Context) error {
	status := c.Health(ctx)
	if status.Overall {
		return nil
	}
	for name, component := range status.Components {
		if !component.Healthy {
			return fmt.Errorf("%s: %s", name, component.Message)
		}
	}
	return fmt.Errorf("unhealthy")
}

func (c *Container) initDatabase() error {
	bundle, err := ProvideDatabase(c.ctx, &c.config.Database, c.logger)
	if err != nil {
		return err
	}
	c.db = bundle.DB
	c.operations = bundle.Operations
	return nil
}

func (c *Container) initExternalClients() error {
	client, err := ProvideBackend(&c.config.Backend, c.logger.Named("backend"))
	if err != nil {
		return err
	}
	c.backend = client

	notifier, err := ProvideLarkNotifier(&c.config.Lark, c.logger.Named("lark"))
	if err != nil {
		return err
	}
	c.larkNotifier = notifier
	return nil
}

func (c *Container) initStorage() error {
	bundle, err := ProvideStorage(&c.config.Export, c.logger)
	if err != nil {
		return err
	}
	c.fileStorage = bundle.FileStorage
	c.exporter = bundle.Exporter
	return nil
}

// initDispatcher creates the dispatcher and subscribes the operation
// history before the chat notifier so records exist first.
func (c *Container) initDispatcher() error {
	disp, err := ProvideDispatcher(c.logger)
	if err != nil {
		return err
	}
	c.dispatcher = disp

	c.history = service.NewOperationHistory(c.operations, &zapLoggerAdapter{logger: c.logger.Named("history")})
	c.history.Register(disp)

	if c.larkNotifier != nil {
		c.larkNotifier.Register(disp)
	}
	return nil
}

func (c *Container) initSessions() error {
	c.tracker = worker.NewTaskTracker(
		c.backend,
		c.config.Tracker.PollInterval,
		c.config.Tracker.TaskTimeout,
		c.logger.Named("tracker"),
	)
	c.hub = notification.NewHub(c.config.Session.InboxCapacity)
	c.sessions = ProvideSessions(&SessionDeps{
		Backend:    c.backend,
		Tracker:    c.tracker,
		Dispatcher: c.dispatcher,
		Hub:        c.hub,
		PersonID:   c.config.Backend.PersonID,
		Logger:     c.logger.Named("session"),
	}, &c.config.Session)
	return nil
}

func (c *Container) initWorkers() error {
	c.workers = ProvideWorkers(c.logger, c.tracker, c.sessions)
	if err := c.workers.StartAll(c.ctx); err != nil {
		return fmt.Errorf("failed to start workers: %w", err)
	}
	return nil
}

// Sessions returns the completion session registry.
func (c *Container) Sessions() *service.SessionRegistry {
	return c.sessions
}

// History returns the bulk operation history.
func (c *Container) History() *service.OperationHistory {
	return c.history
}

// Exporter returns the spreadsheet exporter.
func (c *Container) Exporter() *export.MatrixExporter {
	return c.exporter
}

// Messages returns the per-session notice inboxes.
func (c *Container) Messages() *notification.Hub {
	return c.hub
}

// FileStorage returns the export file storage.
func (c *Container) FileStorage() *storage.LocalFileStorage {
	return c.fileStorage
}

// Dispatcher returns the event dispatcher.
func (c *Container) Dispatcher() dispatcher.Dispatcher {
	return c.dispatcher
}

// Backend returns the assessment backend client.
func (c *Container) Backend() *backend.Client {
	return c.backend
}

// Logger returns the container's logger.
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// Config returns the container's configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// zapLoggerAdapter adapts zap.Logger to the key-value Logger interfaces of
// the service, dispatcher and http packages.
type zapLoggerAdapter struct {
	logger *zap.Logger
}

// NewLogger adapts logger to the key-value logging interfaces.
func NewLogger(logger *zap.Logger) service.Logger {
	return &zapLoggerAdapter{logger: logger}
}

func (a *zapLoggerAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.logger.Info(msg, convertToZapFields(keysAndValues...)...)
}

func (a *zapLoggerAdapter) Error(msg string, keysAndValues ...interface{}) {
	a.logger.Error(msg, convertToZapFields(keysAndValues...)...)
}

// convertToZapFields converts key-value pairs to zap fields.
func convertToZapFields(keysAndValues ...interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		if err, isErr := keysAndValues[i+1].(error); isErr {
			fields = append(fields, zap.NamedError(key, err))
			continue
		}
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}
	return fields
}

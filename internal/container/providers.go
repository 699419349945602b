// Package container provides dependency injection and lifecycle management
// for the bulk assessment completion server.
package container

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/garyjia/assessment-bulk/internal/application/dispatcher"
	"github.com/garyjia/assessment-bulk/internal/application/service"
	"github.com/garyjia/assessment-bulk/internal/config"
	"github.com/garyjia/assessment-bulk/internal/export"
	"github.com/garyjia/assessment-bulk/internal/infrastructure/backend"
	"github.com/garyjia/assessment-bulk/internal/infrastructure/persistence/repository"
	"github.com/garyjia/assessment-bulk/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/assessment-bulk/internal/infrastructure/storage"
	"github.com/garyjia/assessment-bulk/internal/lark"
	"github.com/garyjia/assessment-bulk/internal/notification"
	"github.com/garyjia/assessment-bulk/internal/worker"
	"github.com/garyjia/assessment-bulk/migrations"
	"github.com/garyjia/assessment-bulk/pkg/database"
	"github.com/garyjia/assessment-bulk/pkg/utils"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	DB         *database.DB
	TxManager  *sqlite.TxManager
	Operations *repository.OperationRepository
}

// StorageBundle holds export-related components.
type StorageBundle struct {
	FileStorage *storage.LocalFileStorage
	Exporter    *export.MatrixExporter
}

// ProvideDatabase opens the database, applies pending migrations and builds
// the operation repository. Migrations are read from cfg.MigrationsDir when
// that directory exists, from the embedded set otherwise.
func ProvideDatabase(ctx context.Context, cfg *config.DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	db, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, err
	}

	migrator := database.NewMigrator(db, logger)
	if info, statErr := os.Stat(cfg.MigrationsDir); cfg.MigrationsDir != "" && statErr == nil && info.IsDir() {
		err = migrator.RunMigrationsDir(ctx, cfg.MigrationsDir)
	} else {
		err = migrator.RunMigrations(ctx, migrations.FS)
	}
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	txManager := sqlite.NewTxManager(db.DB, logger)

	return &DatabaseBundle{
		DB:         db,
		TxManager:  txManager,
		Operations: repository.NewOperationRepository(db.DB, txManager, logger),
	}, nil
}

// ProvideBackend creates the assessment backend client.
func ProvideBackend(cfg *config.BackendConfig, logger *zap.Logger) (*backend.Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("backend config is required")
	}
	if err := utils.ValidateURL(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("backend.base_url: %w", err)
	}
	return backend.NewClient(cfg.BaseURL, cfg.Token, cfg.Timeout, logger), nil
}

// ProvideLarkNotifier creates the chat notifier for bulk outcomes. It
// returns nil when Lark is disabled.
func ProvideLarkNotifier(cfg *config.LarkConfig, logger *zap.Logger) (*notification.LarkNotifier, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, nil
	}
	if cfg.ReceiveID == "" {
		return nil, fmt.Errorf("lark.receive_id is required")
	}

	client := lark.NewClient(lark.Config{
		AppID:     cfg.AppID,
		AppSecret: cfg.AppSecret,
		Timeout:   cfg.APITimeout,
	}, logger)
	messages := lark.NewMessageAPI(client, cfg.ReceiveIDType, logger)

	return notification.NewLarkNotifier(messages, cfg.ReceiveID, logger), nil
}

// ProvideStorage creates the export storage and the spreadsheet exporter.
func ProvideStorage(cfg *config.ExportConfig, logger *zap.Logger) (*StorageBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("export config is required")
	}
	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create export directory: %w", err)
	}

	files := storage.NewLocalFileStorage(cfg.OutputDir, logger)
	return &StorageBundle{
		FileStorage: files,
		Exporter:    export.NewMatrixExporter(files, logger),
	}, nil
}

// ProvideDispatcher creates the event dispatcher.
func ProvideDispatcher(logger *zap.Logger) (dispatcher.Dispatcher, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return dispatcher.NewDispatcher(
		dispatcher.WithLogger(&zapLoggerAdapter{logger: logger.Named("dispatcher")}),
	), nil
}

// SessionDeps holds what every completion session shares.
type SessionDeps struct {
	Backend    *backend.Client
	Tracker    *worker.TaskTracker
	Dispatcher dispatcher.Dispatcher
	Hub        *notification.Hub
	PersonID   int64
	Logger     *zap.Logger
}

// ProvideSessions creates the session registry. Each session notifies its
// own inbox and the log.
func ProvideSessions(deps *SessionDeps, cfg *config.SessionConfig) *service.SessionRegistry {
	newDeps := func(sessionID string) service.Dependencies {
		logger := deps.Logger.With(zap.String("session_id", sessionID))
		return service.Dependencies{
			Search:   deps.Backend,
			Bulk:     deps.Backend,
			Tracker:  deps.Tracker,
			Uploader: deps.Backend,
			Notifier: notification.Multi{
				deps.Hub.For(sessionID),
				notification.NewLogNotifier(logger),
			},
			Events:   deps.Dispatcher,
			Logger:   &zapLoggerAdapter{logger: logger},
			PersonID: deps.PersonID,
		}
	}

	registry := service.NewSessionRegistry(newDeps, cfg.IdleTimeout, &zapLoggerAdapter{logger: deps.Logger})
	registry.OnClose(deps.Hub.Remove)
	return registry
}

// ProvideWorkers registers the background workers in start order.
func ProvideWorkers(logger *zap.Logger, workers ...worker.Worker) *worker.Manager {
	manager := worker.NewManager(logger)
	for _, w := range workers {
		manager.Register(w)
	}
	return manager
}

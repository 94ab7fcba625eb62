// Package app initializes and holds long-lived application services, acting
// as a dependency injection container. It is built once at startup and torn
// down after the run finishes.
package app

import (
	"context"
	"fmt"
	"time"

	gstorage "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/crimeatlas/crimes-grabber/internal/config"
	"github.com/crimeatlas/crimes-grabber/internal/metrics"
	"github.com/crimeatlas/crimes-grabber/internal/notify"
	"github.com/crimeatlas/crimes-grabber/internal/storage"
	"github.com/crimeatlas/crimes-grabber/internal/storage/gcs"
	"github.com/crimeatlas/crimes-grabber/internal/storage/local"
)

const shutdownTimeout = 5 * time.Second

// App holds the shared services for one invocation: the artifact store the
// chart lands in, the run-report publisher, and the optional metrics
// listener. The database handle is scoped to the run itself and lives
// outside the container.
type App struct {
	Logger    *zap.Logger
	Artifacts storage.Store
	Publisher notify.Publisher
	Metrics   *metrics.Server
}

// New instantiates the configured providers. It fails fast: a provider that
// cannot be reached (missing bucket, absent topic) aborts startup before any
// data is fetched.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	logger.Info("initializing application services")

	artifacts, err := buildArtifactStore(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, err
	}

	publisher, err := buildPublisher(ctx, cfg.Notify, logger)
	if err != nil {
		if closeErr := artifacts.Close(); closeErr != nil {
			logger.Warn("close artifact store after init failure", zap.Error(closeErr))
		}
		return nil, err
	}

	a := &App{
		Logger:    logger,
		Artifacts: artifacts,
		Publisher: publisher,
	}

	if cfg.Metrics.Listen != "" {
		a.Metrics = metrics.NewServer(cfg.Metrics.Listen, logger)
		a.Metrics.Start()
		logger.Info("metrics listener started", zap.String("addr", cfg.Metrics.Listen))
	}

	logger.Info("application services initialized")
	return a, nil
}

func buildArtifactStore(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (storage.Store, error) {
	switch cfg.Provider {
	case "local", "":
		store, err := local.New(local.Config{BaseDir: cfg.LocalDir})
		if err != nil {
			return nil, fmt.Errorf("initialize local artifact store: %w", err)
		}
		logger.Info("using local artifact store", zap.String("dir", cfg.LocalDir))
		return store, nil
	case "gcs":
		if cfg.GCSBucket == "" {
			return nil, fmt.Errorf("storage provider is 'gcs' but storage.gcs_bucket is not set")
		}
		client, err := gstorage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("create gcs client: %w", err)
		}
		store, err := gcs.New(ctx, client, gcs.Config{Bucket: cfg.GCSBucket}, logger)
		if err != nil {
			if closeErr := client.Close(); closeErr != nil {
				logger.Warn("close gcs client after init failure", zap.Error(closeErr))
			}
			return nil, fmt.Errorf("initialize gcs artifact store: %w", err)
		}
		logger.Info("using gcs artifact store", zap.String("bucket", cfg.GCSBucket))
		return store, nil
	case "noop":
		logger.Info("using no-op artifact store; charts will be discarded")
		return storage.NewNoop(), nil
	default:
		return nil, fmt.Errorf("unknown storage provider: %s", cfg.Provider)
	}
}

func buildPublisher(ctx context.Context, cfg config.NotifyConfig, logger *zap.Logger) (notify.Publisher, error) {
	switch cfg.Provider {
	case "noop", "":
		logger.Info("using no-op publisher; run reports will not be sent")
		return &notify.Noop{}, nil
	case "pubsub":
		if cfg.ProjectID == "" || cfg.Topic == "" {
			return nil, fmt.Errorf("notify provider is 'pubsub' but notify.project_id or notify.topic is not set")
		}
		publisher, err := notify.NewPubSub(ctx, cfg.ProjectID, cfg.Topic, logger)
		if err != nil {
			return nil, fmt.Errorf("initialize pubsub publisher: %w", err)
		}
		logger.Info("using pubsub publisher",
			zap.String("project", cfg.ProjectID), zap.String("topic", cfg.Topic))
		return publisher, nil
	default:
		return nil, fmt.Errorf("unknown notify provider: %s", cfg.Provider)
	}
}

// Close gracefully shuts down all services in the container. The logger is
// owned by the caller and is not synced here.
func (a *App) Close() {
	a.Logger.Info("shutting down application services")

	if a.Metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := a.Metrics.Shutdown(ctx); err != nil {
			a.Logger.Warn("metrics server shutdown", zap.Error(err))
		}
	}
	if a.Publisher != nil {
		if err := a.Publisher.Close(); err != nil {
			a.Logger.Warn("close publisher", zap.Error(err))
		}
	}
	if a.Artifacts != nil {
		if err := a.Artifacts.Close(); err != nil {
			a.Logger.Warn("close artifact store", zap.Error(err))
		}
	}
}

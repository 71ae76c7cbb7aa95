package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yungbote/postvoice-backend/internal/data/db"
	"github.com/yungbote/postvoice-backend/internal/data/repos"
	httpapi "github.com/yungbote/postvoice-backend/internal/http"
	"github.com/yungbote/postvoice-backend/internal/observability"
	"github.com/yungbote/postvoice-backend/internal/platform/logger"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Router   *gin.Engine
	Cfg      Config
	Metrics  *observability.Metrics
	Repos    repos.Set
	Clients  Clients
	Services Services

	dbService *db.Service
	shutdown  func(context.Context) error
}

// Bootstrap loads config, the logger and the database. Commands that do not
// serve traffic (migrate) stop here.
func Bootstrap() (*App, error) {
	cfg, loaded, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	if len(loaded) > 0 {
		log.Info("Loaded env files", "files", loaded)
	}

	svc, err := db.Open(log, cfg.DB)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init database: %w", err)
	}
	return &App{Log: log, DB: svc.DB(), Cfg: cfg, dbService: svc}, nil
}

func (a *App) Migrate() error {
	a.Log.Info("Running migrations", "driver", a.dbService.Driver())
	if err := db.AutoMigrateAll(a.DB); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	return nil
}

// New bootstraps, migrates and wires every component.
func New(ctx context.Context) (*App, error) {
	a, err := Bootstrap()
	if err != nil {
		return nil, err
	}
	if err := a.Migrate(); err != nil {
		a.Close()
		return nil, err
	}

	a.shutdown, err = observability.InitOTel(ctx, a.Log, a.Cfg.Otel)
	if err != nil {
		a.Log.Warn("Tracing disabled", "error", err)
	}
	if a.Cfg.MetricsEnabled {
		a.Metrics = observability.NewMetrics()
	}

	a.Repos = repos.NewSet(a.DB, a.Log)
	a.Clients, err = wireClients(ctx, a.Log, a.Cfg, a.Metrics)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Services, err = wireServices(a.DB, a.Log, a.Cfg, a.Repos, a.Clients, a.Metrics)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Router = wireRouter(a.Log, a.Cfg, a.Metrics, wireHandlers(a.Log, a.DB, a.Services))
	return a, nil
}

// StartWorker runs the job pool until ctx is cancelled.
func (a *App) StartWorker(ctx context.Context) {
	if a == nil || a.Services.JobWorker == nil {
		return
	}
	a.Services.JobWorker.Start(ctx)
	a.Metrics.StartJobQueueCollector(ctx, a.Log, a.DB, a.Cfg.QueueStatsEvery)
}

// Serve blocks until ctx is cancelled or the listener fails.
func (a *App) Serve(ctx context.Context) error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	addr := ":" + a.Cfg.Port
	a.Log.Info("HTTP server listening", "addr", addr)
	return (&httpapi.Server{Engine: a.Router}).Run(ctx, addr)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.Services.JobWorker != nil {
		a.Services.JobWorker.Wait()
	}
	a.Clients.Close()
	if a.shutdown != nil {
		_ = a.shutdown(context.Background())
	}
	if a.dbService != nil {
		_ = a.dbService.Close()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}

package app

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yungbote/tray-validation-backend/internal/data/db"
	"github.com/yungbote/tray-validation-backend/internal/data/repos"
	httpserver "github.com/yungbote/tray-validation-backend/internal/http"
	"github.com/yungbote/tray-validation-backend/internal/platform/logger"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Cfg      Config
	Repos    repos.Repos
	Services Services
	Server   *httpserver.Server
}

// New loads config, opens and migrates the store and wires every layer. It
// starts nothing; call Run to serve.
func New(ctx context.Context) (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading configuration...")
	cfg, err := LoadConfig(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("load config: %w", err)
	}

	theDB, err := openDB(log, cfg)
	if err != nil {
		log.Sync()
		return nil, err
	}
	if err := db.AutoMigrateAll(theDB); err != nil {
		log.Sync()
		return nil, fmt.Errorf("automigrate: %w", err)
	}

	reposet := wireRepos(theDB, log)

	serviceset, err := wireServices(ctx, theDB, log, cfg, reposet)
	if err != nil {
		log.Sync()
		return nil, err
	}

	handlerset := wireHandlers(theDB, log, serviceset)
	middleware := wireMiddleware(log, cfg)
	server := wireRouter(log, cfg, serviceset, handlerset, middleware)

	return &App{
		Log:      log,
		DB:       theDB,
		Cfg:      cfg,
		Repos:    reposet,
		Services: serviceset,
		Server:   server,
	}, nil
}

func openDB(log *logger.Logger, cfg Config) (*gorm.DB, error) {
	switch cfg.DBDriver {
	case DriverSQLite:
		theDB, err := db.OpenSQLite(log, cfg.SQLitePath, false)
		if err != nil {
			return nil, fmt.Errorf("init sqlite: %w", err)
		}
		return theDB, nil
	default:
		pg, err := db.NewPostgresService(log, cfg.Postgres)
		if err != nil {
			return nil, fmt.Errorf("init postgres: %w", err)
		}
		return pg.DB(), nil
	}
}

// Run seeds priorities if the table is empty, then serves HTTP alongside the
// optional stale sweep until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	if a.Cfg.PrioritySeedFile != "" {
		if _, err := a.SeedPriorities(ctx, a.Cfg.PrioritySeedFile, false); err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.Log.Info("Server listening", "port", a.Cfg.Port)
		return a.Server.Run(gctx)
	})
	g.Go(func() error {
		return a.Services.Bus.StartForwarder(gctx, a.logEvent)
	})
	if a.Cfg.StaleSweepCron != "" {
		g.Go(func() error {
			return a.runSweeper(gctx)
		})
	}
	return g.Wait()
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.Services.Bus != nil {
		if err := a.Services.Bus.Close(); err != nil {
			a.Log.Warn("close work bus", "error", err)
		}
	}
	if a.Services.ShutdownOTel != nil {
		if err := a.Services.ShutdownOTel(context.Background()); err != nil {
			a.Log.Warn("otel shutdown", "error", err)
		}
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}

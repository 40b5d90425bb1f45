package app

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/tray-validation-backend/internal/data/repos"
	httpserver "github.com/yungbote/tray-validation-backend/internal/http"
	httpH "github.com/yungbote/tray-validation-backend/internal/http/handlers"
	httpMW "github.com/yungbote/tray-validation-backend/internal/http/middleware"
	"github.com/yungbote/tray-validation-backend/internal/modules/validation"
	"github.com/yungbote/tray-validation-backend/internal/observability"
	"github.com/yungbote/tray-validation-backend/internal/platform/logger"
	"github.com/yungbote/tray-validation-backend/internal/realtime"
	"github.com/yungbote/tray-validation-backend/internal/realtime/bus"
)

type Services struct {
	Engine       *validation.Engine
	Bus          bus.Bus
	Metrics      *observability.Metrics
	ShutdownOTel func(context.Context) error
}

type Handlers struct {
	Work       *httpH.WorkHandler
	WorkingSet *httpH.WorkingSetHandler
	Flag       *httpH.FlagHandler
	Priority   *httpH.PriorityHandler
	Health     *httpH.HealthHandler
}

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

func wireRepos(db *gorm.DB, log *logger.Logger) repos.Repos {
	log.Info("Wiring repos...")
	return repos.New(db, log)
}

func wireServices(ctx context.Context, db *gorm.DB, log *logger.Logger, cfg Config, reposet repos.Repos) (Services, error) {
	log.Info("Wiring services...")

	shutdown := observability.InitOTel(ctx, log, cfg.Otel)
	metrics := observability.NewMetrics()

	var workBus bus.Bus
	if cfg.Redis.Addr != "" {
		b, err := bus.NewRedisBus(log, cfg.Redis)
		if err != nil {
			return Services{}, fmt.Errorf("init redis work bus: %w", err)
		}
		workBus = b
	} else {
		log.Info("REDIS_ADDR not set, work events are not published")
		workBus = bus.NewNoopBus()
	}

	engine := validation.New(validation.EngineDeps{
		DB:      db,
		Log:     log,
		Repos:   reposet,
		Bus:     workBus,
		Metrics: metrics,
		Policy: validation.Policy{
			StaleAfter:       cfg.StaleClaimWindow,
			MaxClaimAttempts: cfg.ClaimMaxAttempts,
		},
	})

	return Services{
		Engine:       engine,
		Bus:          workBus,
		Metrics:      metrics,
		ShutdownOTel: shutdown,
	}, nil
}

func wireHandlers(db *gorm.DB, log *logger.Logger, s Services) Handlers {
	log.Info("Wiring handlers...")
	var pinger httpH.Pinger
	if sqlDB, err := db.DB(); err == nil {
		pinger = sqlDB
	} else {
		log.Warn("sql handle unavailable, healthcheck will not ping", "error", err)
	}
	return Handlers{
		Work:       httpH.NewWorkHandler(log, s.Engine),
		WorkingSet: httpH.NewWorkingSetHandler(log, s.Engine),
		Flag:       httpH.NewFlagHandler(log, s.Engine),
		Priority:   httpH.NewPriorityHandler(log, s.Engine),
		Health:     httpH.NewHealthHandler(log, pinger),
	}
}

func wireMiddleware(log *logger.Logger, cfg Config) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth: httpMW.NewAuthMiddleware(log, cfg.JWTSecretKey),
	}
}

func wireRouter(log *logger.Logger, cfg Config, s Services, h Handlers, mw Middleware) *httpserver.Server {
	log.Info("Wiring router...")
	serviceName := ""
	if cfg.Otel.Enabled {
		serviceName = cfg.Otel.ServiceName
	}
	return httpserver.NewServer(":"+cfg.Port, httpserver.RouterConfig{
		Log:               log,
		Metrics:           s.Metrics,
		ServiceName:       serviceName,
		CORSOrigins:       cfg.CORSOrigins,
		AuthMiddleware:    mw.Auth,
		WorkHandler:       h.Work,
		WorkingSetHandler: h.WorkingSet,
		FlagHandler:       h.Flag,
		PriorityHandler:   h.Priority,
		HealthHandler:     h.Health,
	})
}

func (a *App) logEvent(ev realtime.WorkEvent) {
	a.Log.Debug("work event",
		"type", string(ev.Type),
		"recognition_id", ev.RecognitionID,
		"work_log_id", ev.WorkLogID,
		"actor_id", ev.ActorID,
	)
}

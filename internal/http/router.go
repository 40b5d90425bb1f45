package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/tray-validation-backend/internal/http/handlers"
	httpMW "github.com/yungbote/tray-validation-backend/internal/http/middleware"
	"github.com/yungbote/tray-validation-backend/internal/observability"
	"github.com/yungbote/tray-validation-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	Metrics     *observability.Metrics
	ServiceName string
	CORSOrigins []string

	AuthMiddleware *httpMW.AuthMiddleware

	WorkHandler       *httpH.WorkHandler
	WorkingSetHandler *httpH.WorkingSetHandler
	FlagHandler       *httpH.FlagHandler
	PriorityHandler   *httpH.PriorityHandler
	HealthHandler     *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachRequestContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	protected := r.Group("/api")
	{
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}

		// Claims and step progression
		if cfg.WorkHandler != nil {
			protected.POST("/work/acquire", cfg.WorkHandler.Acquire)
			protected.GET("/work/current", cfg.WorkHandler.Current)
			protected.GET("/work/:id", cfg.WorkHandler.Get)
			protected.GET("/work/:id/snapshots", cfg.WorkHandler.Snapshots)
			protected.POST("/work/:id/advance", cfg.WorkHandler.Advance)
			protected.POST("/work/:id/jump", cfg.WorkHandler.Jump)
			protected.POST("/work/:id/abandon", cfg.WorkHandler.Abandon)
		}

		// Working set
		if cfg.WorkingSetHandler != nil {
			protected.POST("/work/:id/reset", cfg.WorkingSetHandler.Reset)
			protected.GET("/work/:id/items", cfg.WorkingSetHandler.List)
			protected.POST("/work/:id/items", cfg.WorkingSetHandler.CreateItem)
			protected.PATCH("/work/:id/items/:itemId", cfg.WorkingSetHandler.UpdateItem)
			protected.DELETE("/work/:id/items/:itemId", cfg.WorkingSetHandler.DeleteItem)
			protected.POST("/work/:id/annotations", cfg.WorkingSetHandler.CreateAnnotation)
			protected.PATCH("/work/:id/annotations/:annId", cfg.WorkingSetHandler.UpdateAnnotation)
			protected.DELETE("/work/:id/annotations/:annId", cfg.WorkingSetHandler.DeleteAnnotation)
		}

		// Flags
		if cfg.FlagHandler != nil {
			protected.POST("/recognitions/:id/flag", cfg.FlagHandler.Flag)
			protected.POST("/corrections/:id/resolve", cfg.FlagHandler.Resolve)
		}

		// Priorities
		if cfg.PriorityHandler != nil {
			protected.GET("/priorities", cfg.PriorityHandler.List)
			protected.PUT("/priorities", cfg.PriorityHandler.Replace)
		}
	}

	return r
}

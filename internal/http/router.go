package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/slotswap-backend/internal/http/handlers"
	httpMW "github.com/yungbote/slotswap-backend/internal/http/middleware"
	"github.com/yungbote/slotswap-backend/internal/observability"
	"github.com/yungbote/slotswap-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	Metrics     *observability.Metrics
	CORSOrigins []string
	ServiceName string

	AuthHandler    *httpH.AuthHandler
	AuthMiddleware *httpMW.AuthMiddleware
	UserHandler    *httpH.UserHandler
	EventHandler   *httpH.EventHandler
	SwapHandler    *httpH.SwapHandler
	HealthHandler  *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.CORS(cfg.CORSOrigins))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.RequestLogger(cfg.Log))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	api := r.Group("/api")
	{
		// Auth (public)
		if cfg.AuthHandler != nil {
			api.POST("/register", cfg.AuthHandler.Register)
			api.POST("/login", cfg.AuthHandler.Login)
		}
	}

	protected := api.Group("/")
	{
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}

		if cfg.UserHandler != nil {
			protected.GET("/me", cfg.UserHandler.GetMe)
		}

		// Calendar events (slots)
		if cfg.EventHandler != nil {
			protected.GET("/events", cfg.EventHandler.List)
			protected.POST("/events", cfg.EventHandler.Create)
			protected.PATCH("/events/:id", cfg.EventHandler.Update)
			protected.DELETE("/events/:id", cfg.EventHandler.Delete)
		}

		// Swaps
		if cfg.SwapHandler != nil {
			protected.GET("/swappable-slots", cfg.SwapHandler.SwappableSlots)
			protected.POST("/swap-requests", cfg.SwapHandler.Create)
			protected.GET("/swap-requests/incoming", cfg.SwapHandler.Incoming)
			protected.GET("/swap-requests/outgoing", cfg.SwapHandler.Outgoing)
			protected.POST("/swap-requests/:id/accept", cfg.SwapHandler.Accept)
			protected.POST("/swap-requests/:id/reject", cfg.SwapHandler.Reject)
			protected.DELETE("/swap-requests/:id", cfg.SwapHandler.Cancel)
			protected.GET("/swap-requests/:id/events", cfg.SwapHandler.Events)
		}
	}

	return r
}

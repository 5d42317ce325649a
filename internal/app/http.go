package app

import (
	"github.com/yungbote/slotswap-backend/internal/data/txn"
	"github.com/yungbote/slotswap-backend/internal/http"
	httpH "github.com/yungbote/slotswap-backend/internal/http/handlers"
	httpMW "github.com/yungbote/slotswap-backend/internal/http/middleware"
	"github.com/yungbote/slotswap-backend/internal/observability"
	"github.com/yungbote/slotswap-backend/internal/platform/logger"
)

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

type Handlers struct {
	Health *httpH.HealthHandler
	Auth   *httpH.AuthHandler
	User   *httpH.UserHandler
	Event  *httpH.EventHandler
	Swap   *httpH.SwapHandler
}

func wireHandlers(log *logger.Logger, services Services, capability *txn.Capability, driver string) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health: httpH.NewHealthHandler(capability, driver),
		Auth:   httpH.NewAuthHandler(services.Auth),
		User:   httpH.NewUserHandler(services.User),
		Event:  httpH.NewEventHandler(services.Slot),
		Swap:   httpH.NewSwapHandler(services.Swap),
	}
}

func wireMiddleware(log *logger.Logger, services Services) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth: httpMW.NewAuthMiddleware(log, services.Auth),
	}
}

func wireServer(log *logger.Logger, cfg Config, handlers Handlers, middleware Middleware, metrics *observability.Metrics) *http.Server {
	serviceName := ""
	if cfg.Otel.Enabled {
		serviceName = cfg.Otel.ServiceName
	}
	return http.NewServer(http.RouterConfig{
		Log:         log,
		Metrics:     metrics,
		CORSOrigins: cfg.CORSOrigins,
		ServiceName: serviceName,

		HealthHandler:  handlers.Health,
		AuthHandler:    handlers.Auth,
		AuthMiddleware: middleware.Auth,
		UserHandler:    handlers.User,
		EventHandler:   handlers.Event,
		SwapHandler:    handlers.Swap,
	})
}

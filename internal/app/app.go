package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/slotswap-backend/internal/data/repos"
	"github.com/yungbote/slotswap-backend/internal/data/txn"
	"github.com/yungbote/slotswap-backend/internal/http"
	"github.com/yungbote/slotswap-backend/internal/observability"
	"github.com/yungbote/slotswap-backend/internal/platform/logger"
)

type App struct {
	Log         *logger.Logger
	Cfg         Config
	Store       *Store
	Capability  *txn.Capability
	Coordinator *txn.Coordinator
	Repos       repos.Set
	Services    Services
	Metrics     *observability.Metrics
	Server      *http.Server

	shutdownOTel func(context.Context) error
	cancel       context.CancelFunc
}

func NewLogger(cfg Config) (*logger.Logger, error) {
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return log, nil
}

// New opens the store, settles the transaction capability once and wires
// every layer on top of it.
func New(ctx context.Context, cfg Config, log *logger.Logger) (*App, error) {
	if strings.TrimSpace(cfg.JWTSecretKey) == "" {
		return nil, errors.New("JWT_SECRET_KEY is required")
	}
	if strings.EqualFold(cfg.LogMode, "prod") || strings.EqualFold(cfg.LogMode, "production") {
		gin.SetMode(gin.ReleaseMode)
	}

	shutdownOTel := observability.InitOTel(ctx, log, observability.OtelConfig{
		Enabled:     cfg.Otel.Enabled,
		ServiceName: cfg.Otel.ServiceName,
		Environment: cfg.AppEnv,
		Version:     cfg.Version,
		Endpoint:    cfg.Otel.Endpoint,
		Headers:     cfg.Otel.Headers,
		Insecure:    cfg.Otel.Insecure,
		SampleRatio: cfg.Otel.SampleRatio,
	})

	store, err := OpenStore(ctx, cfg, log)
	if err != nil {
		_ = shutdownOTel(ctx)
		return nil, err
	}
	if err := store.Migrate(); err != nil {
		_ = store.Close()
		_ = shutdownOTel(ctx)
		return nil, fmt.Errorf("automigrate: %w", err)
	}

	capability, err := NewCapability(ctx, cfg, store, log)
	if err != nil {
		_ = store.Close()
		_ = shutdownOTel(ctx)
		return nil, err
	}
	coord := txn.NewCoordinator(store.GormDB(), capability, log)

	var metrics *observability.Metrics
	if cfg.MetricsEnabled {
		metrics = observability.NewMetrics(log)
		metrics.SetTxnAtomic(capability.Atomic(ctx))
	}

	reposet := wireRepos(store, cfg, log)
	serviceset := wireServices(log, cfg, coord, reposet, metrics)
	handlerset := wireHandlers(log, serviceset, capability, store.Driver)
	middleware := wireMiddleware(log, serviceset)
	server := wireServer(log, cfg, handlerset, middleware, metrics)

	return &App{
		Log:          log,
		Cfg:          cfg,
		Store:        store,
		Capability:   capability,
		Coordinator:  coord,
		Repos:        reposet,
		Services:     serviceset,
		Metrics:      metrics,
		Server:       server,
		shutdownOTel: shutdownOTel,
	}, nil
}

// NewCapability pins the mode when TXN_MODE names one and probes the store
// otherwise.
func NewCapability(ctx context.Context, cfg Config, store *Store, log *logger.Logger) (*txn.Capability, error) {
	mode, err := cfg.TransactionMode()
	if err != nil {
		return nil, err
	}
	if mode != "" {
		log.Info("transaction mode pinned by config", "mode", mode)
		return txn.Fixed(mode), nil
	}
	return txn.ProbeCapability(ctx, store.Prober(), cfg.TxnProbeTimeout, log), nil
}

// Start launches the background metric collectors.
func (a *App) Start(ctx context.Context) {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	if a.Metrics != nil {
		if gdb := a.Store.GormDB(); gdb != nil {
			a.Metrics.StartDBCollector(ctx, a.Log, gdb)
		}
		if a.Store.Redis != nil {
			a.Metrics.StartRedisCollector(ctx, a.Log, a.Store.Redis)
		}
	}
}

// Run serves HTTP until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	a.Start(ctx)
	addr := a.Cfg.Address()
	a.Log.Info("http server listening", "addr", addr, "driver", a.Store.Driver, "txn_mode", a.Capability.Status().Mode)
	return a.Server.Run(ctx, addr, a.Cfg.ShutdownTimeout)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.shutdownOTel != nil {
		ctx, cancel := context.WithTimeout(context.Background(), a.Cfg.ShutdownTimeout)
		if err := a.shutdownOTel(ctx); err != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
		cancel()
	}
	if err := a.Store.Close(); err != nil {
		a.Log.Warn("store close failed", "error", err)
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}

package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/slotswap-backend/internal/data/db"
	"github.com/yungbote/slotswap-backend/internal/data/repos/swap"
	"github.com/yungbote/slotswap-backend/internal/data/txn"
	"github.com/yungbote/slotswap-backend/internal/platform/logger"
)

// Store is the backing store selected by STORE_DRIVER. Exactly one of SQL
// and Redis is set.
type Store struct {
	Driver string
	SQL    *db.Service
	Redis  *goredis.Client
}

func OpenStore(ctx context.Context, cfg Config, log *logger.Logger) (*Store, error) {
	log.Info("Opening store...", "driver", cfg.StoreDriver)
	switch cfg.StoreDriver {
	case DriverRedis:
		rdb, err := newRedisClient(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		log.Info("redis connected", "addr", cfg.Redis.Addr, "prefix", cfg.Redis.Prefix)
		return &Store{Driver: DriverRedis, Redis: rdb}, nil
	default:
		svc, err := db.NewService(db.Options{
			Driver:        cfg.StoreDriver,
			PostgresDSN:   cfg.PostgresDSN,
			SQLitePath:    cfg.SQLitePath,
			SlowThreshold: cfg.DBSlowThreshold,
		}, log)
		if err != nil {
			return nil, fmt.Errorf("init %s: %w", cfg.StoreDriver, err)
		}
		return &Store{Driver: svc.Driver(), SQL: svc}, nil
	}
}

func newRedisClient(ctx context.Context, cfg RedisConfig) (*goredis.Client, error) {
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

// GormDB is nil for the redis store.
func (s *Store) GormDB() *gorm.DB {
	if s == nil || s.SQL == nil {
		return nil
	}
	return s.SQL.DB()
}

func (s *Store) Prober() txn.Prober {
	if s.Redis != nil {
		return swap.RedisProber{Client: s.Redis}
	}
	return txn.GormProber{DB: s.GormDB()}
}

// Migrate creates or updates the relational schema. Redis needs none.
func (s *Store) Migrate() error {
	if s.SQL == nil {
		return nil
	}
	return s.SQL.AutoMigrateAll()
}

func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	if s.Redis != nil {
		return s.Redis.Close()
	}
	if s.SQL != nil {
		return s.SQL.Close()
	}
	return nil
}

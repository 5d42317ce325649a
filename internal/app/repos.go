package app

import (
	"github.com/yungbote/slotswap-backend/internal/data/repos"
	"github.com/yungbote/slotswap-backend/internal/platform/logger"
)

func wireRepos(store *Store, cfg Config, log *logger.Logger) repos.Set {
	log.Info("Wiring repos...", "driver", store.Driver)
	if store.Redis != nil {
		return repos.NewRedisSet(store.Redis, cfg.Redis.Prefix, log)
	}
	return repos.NewGormSet(store.GormDB(), log)
}

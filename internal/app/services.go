package app

import (
	"github.com/yungbote/slotswap-backend/internal/data/aggregates"
	"github.com/yungbote/slotswap-backend/internal/data/repos"
	"github.com/yungbote/slotswap-backend/internal/data/txn"
	"github.com/yungbote/slotswap-backend/internal/observability"
	"github.com/yungbote/slotswap-backend/internal/platform/logger"
	"github.com/yungbote/slotswap-backend/internal/services"
)

type Services struct {
	Auth services.AuthService
	User services.UserService
	Slot services.SlotService
	Swap services.SwapService
}

func wireServices(log *logger.Logger, cfg Config, coord *txn.Coordinator, reposet repos.Set, metrics *observability.Metrics) Services {
	log.Info("Wiring services...")

	swapAgg := aggregates.NewSwapAggregate(aggregates.SwapAggregateDeps{
		Base: aggregates.BaseDeps{
			Log:    log,
			Runner: coord,
			Hooks:  aggregates.NewObservabilityHooks(metrics),
		},
		Slots:    reposet.Slot,
		Requests: reposet.SwapRequest,
		Events:   reposet.SwapEvent,
		Users:    reposet.Directory,
	})

	return Services{
		Auth: services.NewAuthService(log, reposet.User, cfg.JWTSecretKey, cfg.AccessTokenTTL),
		User: services.NewUserService(log, reposet.User),
		Slot: services.NewSlotService(log, coord, reposet.Slot),
		Swap: services.NewSwapService(log, swapAgg, reposet),
	}
}

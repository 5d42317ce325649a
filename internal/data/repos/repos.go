package repos

import (
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/slotswap-backend/internal/data/repos/swap"
	"github.com/yungbote/slotswap-backend/internal/data/repos/user"
	"github.com/yungbote/slotswap-backend/internal/platform/logger"
)

type UserRepo = user.UserRepo
type UserDirectory = user.Directory

type SlotRepo = swap.SlotRepo
type SwapRequestRepo = swap.SwapRequestRepo
type SwapEventRepo = swap.SwapEventRepo

// Set is every store the service needs, backed by one driver.
type Set struct {
	User        UserRepo
	Directory   UserDirectory
	Slot        SlotRepo
	SwapRequest SwapRequestRepo
	SwapEvent   SwapEventRepo
}

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo { return user.NewUserRepo(db, baseLog) }
func NewSlotRepo(db *gorm.DB, baseLog *logger.Logger) SlotRepo { return swap.NewSlotRepo(db, baseLog) }
func NewSwapRequestRepo(db *gorm.DB, baseLog *logger.Logger) SwapRequestRepo {
	return swap.NewSwapRequestRepo(db, baseLog)
}
func NewSwapEventRepo(db *gorm.DB, baseLog *logger.Logger) SwapEventRepo {
	return swap.NewSwapEventRepo(db, baseLog)
}

func NewGormSet(db *gorm.DB, baseLog *logger.Logger) Set {
	users := NewUserRepo(db, baseLog)
	return Set{
		User:        users,
		Directory:   user.NewDirectory(users),
		Slot:        NewSlotRepo(db, baseLog),
		SwapRequest: NewSwapRequestRepo(db, baseLog),
		SwapEvent:   NewSwapEventRepo(db, baseLog),
	}
}

func NewRedisSet(rdb redis.UniversalClient, prefix string, baseLog *logger.Logger) Set {
	users := user.NewRedisUserRepo(rdb, prefix, baseLog)
	return Set{
		User:        users,
		Directory:   user.NewDirectory(users),
		Slot:        swap.NewRedisSlotRepo(rdb, prefix, baseLog),
		SwapRequest: swap.NewRedisSwapRequestRepo(rdb, prefix, baseLog),
		SwapEvent:   swap.NewRedisSwapEventRepo(rdb, prefix, baseLog),
	}
}

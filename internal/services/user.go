package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/yungbote/slotswap-backend/internal/data/repos"
	types "github.com/yungbote/slotswap-backend/internal/domain"
	"github.com/yungbote/slotswap-backend/internal/platform/apierr"
	"github.com/yungbote/slotswap-backend/internal/platform/dbctx"
	"github.com/yungbote/slotswap-backend/internal/platform/logger"
)

type UserService interface {
	GetMe(ctx context.Context) (*types.User, error)
}

type userService struct {
	log      *logger.Logger
	userRepo repos.UserRepo
}

func NewUserService(log *logger.Logger, userRepo repos.UserRepo) UserService {
	return &userService{log: log.With("service", "UserService"), userRepo: userRepo}
}

func (us *userService) GetMe(ctx context.Context) (*types.User, error) {
	userID, err := requireCaller(ctx)
	if err != nil {
		return nil, err
	}
	users, err := us.userRepo.GetByIDs(dbctx.Background(ctx), []uuid.UUID{userID})
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if len(users) == 0 || users[0] == nil {
		us.log.Warn("authenticated user not found", "user_id", userID)
		return nil, apierr.NotFound("not_found", "user not found")
	}
	return users[0], nil
}

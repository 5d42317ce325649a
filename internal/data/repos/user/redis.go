package user

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	types "github.com/yungbote/slotswap-backend/internal/domain"
	"github.com/yungbote/slotswap-backend/internal/platform/dbctx"
	"github.com/yungbote/slotswap-backend/internal/platform/logger"
)

// storedUser keeps the password hash, which types.User hides from JSON.
type storedUser struct {
	types.User
	Password string `json:"password"`
}

type redisUserRepo struct {
	rdb    redis.UniversalClient
	prefix string
	log    *logger.Logger
}

func NewRedisUserRepo(rdb redis.UniversalClient, prefix string, baseLog *logger.Logger) UserRepo {
	if prefix == "" {
		prefix = "slotswap"
	}
	return &redisUserRepo{rdb: rdb, prefix: prefix, log: baseLog.With("repo", "RedisUserRepo")}
}

func (r *redisUserRepo) userKey(id uuid.UUID) string { return r.prefix + ":user:" + id.String() }

func (r *redisUserRepo) emailKey(email string) string { return r.prefix + ":user:email:" + email }

func ctxOf(dbc dbctx.Context) context.Context {
	if dbc.Ctx == nil {
		return context.Background()
	}
	return dbc.Ctx
}

func (r *redisUserRepo) Create(dbc dbctx.Context, users []*types.User) ([]*types.User, error) {
	if len(users) == 0 {
		return []*types.User{}, nil
	}
	ctx := ctxOf(dbc)
	now := time.Now().UTC()
	for _, u := range users {
		if u == nil {
			continue
		}
		if u.ID == uuid.Nil {
			u.ID = uuid.New()
		}
		u.Email = normalizeEmail(u.Email)
		u.CreatedAt, u.UpdatedAt = now, now

		claimed, err := r.rdb.SetNX(ctx, r.emailKey(u.Email), u.ID.String(), 0).Result()
		if err != nil {
			return nil, err
		}
		if !claimed {
			return nil, fmt.Errorf("duplicate key: email %q already exists", u.Email)
		}
		payload, err := json.Marshal(storedUser{User: *u, Password: u.Password})
		if err != nil {
			return nil, err
		}
		if err := r.rdb.Set(ctx, r.userKey(u.ID), payload, 0).Err(); err != nil {
			_ = r.rdb.Del(ctx, r.emailKey(u.Email)).Err()
			return nil, err
		}
	}
	return users, nil
}

func (r *redisUserRepo) decode(raw string) (*types.User, error) {
	var su storedUser
	if err := json.Unmarshal([]byte(raw), &su); err != nil {
		return nil, err
	}
	u := su.User
	u.Password = su.Password
	return &u, nil
}

func (r *redisUserRepo) GetByIDs(dbc dbctx.Context, userIDs []uuid.UUID) ([]*types.User, error) {
	var results []*types.User
	if len(userIDs) == 0 {
		return results, nil
	}
	keys := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		keys = append(keys, r.userKey(id))
	}
	vals, err := r.rdb.MGet(ctxOf(dbc), keys...).Result()
	if err != nil {
		return nil, err
	}
	for _, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		u, err := r.decode(s)
		if err != nil {
			return nil, err
		}
		results = append(results, u)
	}
	return results, nil
}

func (r *redisUserRepo) GetByEmail(dbc dbctx.Context, email string) (*types.User, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, nil
	}
	ctx := ctxOf(dbc)
	rawID, err := r.rdb.Get(ctx, r.emailKey(email)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	id, err := uuid.Parse(strings.TrimSpace(rawID))
	if err != nil {
		return nil, err
	}
	rows, err := r.GetByIDs(dbc, []uuid.UUID{id})
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

func (r *redisUserRepo) EmailExists(dbc dbctx.Context, email string) (bool, error) {
	n, err := r.rdb.Exists(ctxOf(dbc), r.emailKey(normalizeEmail(email))).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *redisUserRepo) UpdateName(dbc dbctx.Context, userID uuid.UUID, name string) error {
	rows, err := r.GetByIDs(dbc, []uuid.UUID{userID})
	if err != nil || len(rows) == 0 {
		return err
	}
	u := rows[0]
	u.Name = strings.TrimSpace(name)
	u.UpdatedAt = time.Now().UTC()
	payload, err := json.Marshal(storedUser{User: *u, Password: u.Password})
	if err != nil {
		return err
	}
	return r.rdb.Set(ctxOf(dbc), r.userKey(u.ID), payload, 0).Err()
}

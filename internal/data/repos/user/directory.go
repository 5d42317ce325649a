package user

import (
	"context"

	"github.com/google/uuid"

	types "github.com/yungbote/slotswap-backend/internal/domain"
	"github.com/yungbote/slotswap-backend/internal/platform/dbctx"
)

// Directory resolves user ids to display summaries. Unknown ids are absent
// from the result.
type Directory interface {
	Lookup(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*types.UserSummary, error)
}

type repoDirectory struct {
	users UserRepo
}

func NewDirectory(users UserRepo) Directory {
	return &repoDirectory{users: users}
}

func (d *repoDirectory) Lookup(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*types.UserSummary, error) {
	out := make(map[uuid.UUID]*types.UserSummary, len(ids))
	seen := make(map[uuid.UUID]struct{}, len(ids))
	uniq := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		uniq = append(uniq, id)
	}
	if len(uniq) == 0 {
		return out, nil
	}
	rows, err := d.users.GetByIDs(dbctx.Background(ctx), uniq)
	if err != nil {
		return nil, err
	}
	for _, u := range rows {
		out[u.ID] = u.Summary()
	}
	return out, nil
}

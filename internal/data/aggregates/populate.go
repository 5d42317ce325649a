package aggregates

import (
	"context"

	"github.com/google/uuid"

	"github.com/yungbote/slotswap-backend/internal/data/repos"
	types "github.com/yungbote/slotswap-backend/internal/domain"
	"github.com/yungbote/slotswap-backend/internal/platform/dbctx"
)

// PopulateSwapRequests attaches both slots and both parties' summaries to each
// request in place. Records that no longer exist leave the field nil.
func PopulateSwapRequests(ctx context.Context, slots repos.SlotRepo, users repos.UserDirectory, reqs []*types.SwapRequest) error {
	if len(reqs) == 0 {
		return nil
	}
	if slots != nil {
		var missing []uuid.UUID
		for _, r := range reqs {
			if r.RequesterSlot == nil {
				missing = append(missing, r.RequesterSlotID)
			}
			if r.TargetSlot == nil {
				missing = append(missing, r.TargetSlotID)
			}
		}
		if len(missing) > 0 {
			rows, err := slots.GetByIDs(dbctx.Background(ctx), missing)
			if err != nil {
				return err
			}
			byID := make(map[uuid.UUID]*types.Slot, len(rows))
			for _, row := range rows {
				byID[row.ID] = row
			}
			for _, r := range reqs {
				if r.RequesterSlot == nil {
					r.RequesterSlot = byID[r.RequesterSlotID]
				}
				if r.TargetSlot == nil {
					r.TargetSlot = byID[r.TargetSlotID]
				}
			}
		}
	}
	if users == nil {
		return nil
	}

	ids := make([]uuid.UUID, 0, 2*len(reqs))
	for _, r := range reqs {
		ids = append(ids, r.RequesterID, r.TargetOwnerID)
		for _, s := range []*types.Slot{r.RequesterSlot, r.TargetSlot} {
			if s != nil {
				ids = append(ids, s.OwnerID)
			}
		}
	}
	summaries, err := users.Lookup(ctx, ids)
	if err != nil {
		return err
	}
	for _, r := range reqs {
		r.Requester = summaries[r.RequesterID]
		r.TargetOwner = summaries[r.TargetOwnerID]
		for _, s := range []*types.Slot{r.RequesterSlot, r.TargetSlot} {
			if s != nil {
				s.Owner = summaries[s.OwnerID]
			}
		}
	}
	return nil
}

// PopulateSlotOwners attaches owner summaries to slots in place.
func PopulateSlotOwners(ctx context.Context, users repos.UserDirectory, slots []*types.Slot) error {
	if users == nil || len(slots) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, 0, len(slots))
	for _, s := range slots {
		ids = append(ids, s.OwnerID)
	}
	summaries, err := users.Lookup(ctx, ids)
	if err != nil {
		return err
	}
	for _, s := range slots {
		s.Owner = summaries[s.OwnerID]
	}
	return nil
}

package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/slotswap-backend/internal/data/repos"
	"github.com/yungbote/slotswap-backend/internal/data/txn"
	types "github.com/yungbote/slotswap-backend/internal/domain"
	"github.com/yungbote/slotswap-backend/internal/platform/apierr"
	"github.com/yungbote/slotswap-backend/internal/platform/dbctx"
	"github.com/yungbote/slotswap-backend/internal/platform/logger"
)

type CreateSlotInput struct {
	Title     string
	StartTime time.Time
	EndTime   time.Time
	Status    types.SlotStatus
}

// UpdateSlotInput is a partial update; nil fields are left unchanged.
type UpdateSlotInput struct {
	Title     *string
	StartTime *time.Time
	EndTime   *time.Time
	Status    *types.SlotStatus
}

// SlotService manages a user's own calendar slots. Slots held by a pending
// swap request are read-only until the request resolves.
type SlotService interface {
	Create(ctx context.Context, in CreateSlotInput) (*types.Slot, error)
	ListMine(ctx context.Context) ([]*types.Slot, error)
	Update(ctx context.Context, slotID uuid.UUID, in UpdateSlotInput) (*types.Slot, error)
	Delete(ctx context.Context, slotID uuid.UUID) error
}

type slotService struct {
	log    *logger.Logger
	runner *txn.Coordinator
	slots  repos.SlotRepo
}

func NewSlotService(log *logger.Logger, runner *txn.Coordinator, slots repos.SlotRepo) SlotService {
	return &slotService{log: log.With("service", "SlotService"), runner: runner, slots: slots}
}

func (ss *slotService) Create(ctx context.Context, in CreateSlotInput) (*types.Slot, error) {
	owner, err := requireCaller(ctx)
	if err != nil {
		return nil, err
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, apierr.BadRequest("validation", "title is required")
	}
	if err := validateRange(in.StartTime, in.EndTime); err != nil {
		return nil, err
	}
	status := in.Status
	if status == "" {
		status = types.SlotStatusOccupied
	}
	if status != types.SlotStatusOccupied && status != types.SlotStatusOfferable {
		return nil, apierr.BadRequest("validation", fmt.Sprintf("status must be %s or %s", types.SlotStatusOccupied, types.SlotStatusOfferable))
	}
	rows, err := ss.slots.Create(dbctx.Background(ctx), []*types.Slot{{
		OwnerID:   owner,
		Title:     title,
		StartTime: in.StartTime.UTC(),
		EndTime:   in.EndTime.UTC(),
		Status:    status,
	}})
	if err != nil {
		return nil, fmt.Errorf("create slot: %w", err)
	}
	return rows[0], nil
}

func (ss *slotService) ListMine(ctx context.Context) ([]*types.Slot, error) {
	owner, err := requireCaller(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := ss.slots.ListByOwner(dbctx.Background(ctx), owner)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	if rows == nil {
		rows = []*types.Slot{}
	}
	return rows, nil
}

func (ss *slotService) Update(ctx context.Context, slotID uuid.UUID, in UpdateSlotInput) (*types.Slot, error) {
	owner, err := requireCaller(ctx)
	if err != nil {
		return nil, err
	}
	var out *types.Slot
	err = ss.runner.InTx(ctx, func(s txn.Scope) error {
		dbc := s.DB()
		slot, err := ss.ownedSlot(s, owner, slotID)
		if err != nil {
			return err
		}
		expected := slot.Status
		next := *slot
		if in.Title != nil {
			t := strings.TrimSpace(*in.Title)
			if t == "" {
				return apierr.BadRequest("validation", "title cannot be empty")
			}
			next.Title = t
		}
		if in.StartTime != nil {
			next.StartTime = in.StartTime.UTC()
		}
		if in.EndTime != nil {
			next.EndTime = in.EndTime.UTC()
		}
		if err := validateRange(next.StartTime, next.EndTime); err != nil {
			return err
		}
		if in.Status != nil {
			if *in.Status != types.SlotStatusOccupied && *in.Status != types.SlotStatusOfferable {
				return apierr.BadRequest("validation", "status can only toggle between BUSY and SWAPPABLE")
			}
			next.Status = *in.Status
		}
		ok, err := ss.slots.SaveIfStatus(dbc, &next, expected)
		if err != nil {
			return fmt.Errorf("save slot: %w", err)
		}
		if !ok {
			return apierr.Conflict("invalid_state", "slot changed while updating, retry")
		}
		txn.MarkWrite(s)
		out = &next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (ss *slotService) Delete(ctx context.Context, slotID uuid.UUID) error {
	owner, err := requireCaller(ctx)
	if err != nil {
		return err
	}
	return ss.runner.InTx(ctx, func(s txn.Scope) error {
		if _, err := ss.ownedSlot(s, owner, slotID); err != nil {
			return err
		}
		// A swap request may lock the slot after the read above when the
		// scope is not a transaction, so the delete re-checks the status.
		deleted, err := ss.slots.DeleteIfStatus(s.DB(), slotID, types.SlotStatusOccupied, types.SlotStatusOfferable)
		if err != nil {
			return fmt.Errorf("delete slot: %w", err)
		}
		if !deleted {
			return apierr.Conflict("invalid_state", "slot changed while deleting, retry")
		}
		txn.MarkWrite(s)
		ss.log.Debug("slot deleted", "slot_id", slotID, "owner_id", owner)
		return nil
	})
}

// ownedSlot loads a slot the caller may modify: it exists, belongs to owner
// and is not held by a pending swap request.
func (ss *slotService) ownedSlot(s txn.Scope, owner, slotID uuid.UUID) (*types.Slot, error) {
	var (
		slot *types.Slot
		err  error
	)
	if s.Atomic() {
		slot, err = ss.slots.LockByID(s.DB(), slotID)
	} else {
		slot, err = ss.slots.GetByID(s.DB(), slotID)
	}
	if err != nil {
		return nil, fmt.Errorf("load slot: %w", err)
	}
	if slot == nil {
		return nil, apierr.NotFound("not_found", "slot not found")
	}
	if slot.OwnerID != owner {
		return nil, apierr.Forbidden("unauthorized", "slot belongs to another user")
	}
	if slot.Status == types.SlotStatusLocked {
		return nil, apierr.Conflict("invalid_state", "slot is part of a pending swap request")
	}
	return slot, nil
}

func validateRange(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return apierr.BadRequest("validation", "start_time and end_time are required")
	}
	if !end.After(start) {
		return apierr.BadRequest("validation", "end_time must be after start_time")
	}
	return nil
}

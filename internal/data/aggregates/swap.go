package aggregates

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/slotswap-backend/internal/data/repos"
	swaprepo "github.com/yungbote/slotswap-backend/internal/data/repos/swap"
	"github.com/yungbote/slotswap-backend/internal/data/txn"
	types "github.com/yungbote/slotswap-backend/internal/domain"
	domainagg "github.com/yungbote/slotswap-backend/internal/domain/aggregates"
	"github.com/yungbote/slotswap-backend/internal/platform/dbctx"
	"github.com/yungbote/slotswap-backend/internal/platform/logger"
)

type SwapAggregateDeps struct {
	Base BaseDeps

	Slots    repos.SlotRepo
	Requests repos.SwapRequestRepo
	// Events and Users are optional.
	Events repos.SwapEventRepo
	Users  repos.UserDirectory
}

type swapAggregate struct {
	deps SwapAggregateDeps
	log  *logger.Logger
}

func NewSwapAggregate(deps SwapAggregateDeps) domainagg.SwapAggregate {
	deps.Base = deps.Base.withDefaults()
	return &swapAggregate{deps: deps, log: deps.Base.Log.With("aggregate", "SwapAggregate")}
}

func (a *swapAggregate) Contract() domainagg.Contract {
	return domainagg.SwapAggregateContract
}

func (a *swapAggregate) configured(op string) error {
	if a.deps.Slots == nil || a.deps.Requests == nil {
		return domainagg.NewError(domainagg.CodeInternal, op, "swap aggregate repos not configured", nil)
	}
	return nil
}

func (a *swapAggregate) CreateRequest(ctx context.Context, in domainagg.CreateSwapRequestInput) (*types.SwapRequest, error) {
	const op = "Swap.SwapAggregate.CreateRequest"
	if in.RequesterID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing requester_id", nil)
	}
	if in.RequesterSlotID == uuid.Nil || in.TargetSlotID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing slot id", nil)
	}
	if in.RequesterSlotID == in.TargetSlotID {
		return nil, domainagg.NewError(domainagg.CodeSelfSwap, op, "cannot swap a slot with itself", nil)
	}
	if err := a.configured(op); err != nil {
		return nil, err
	}

	var out *types.SwapRequest
	err := executeWrite(ctx, a.deps.Base, op, func(s txn.Scope) error {
		return guard(s, a.log, func(c *compensations) error {
			dbc := s.DB()
			mine, theirs, err := a.fetchPair(s, in.RequesterSlotID, in.TargetSlotID)
			if err != nil {
				return err
			}
			if mine == nil {
				return NotFoundError(fmt.Sprintf("slot not found: %s", in.RequesterSlotID))
			}
			if theirs == nil {
				return NotFoundError(fmt.Sprintf("slot not found: %s", in.TargetSlotID))
			}
			if mine.OwnerID != in.RequesterID {
				return UnauthorizedError("requester does not own the offered slot")
			}
			if theirs.OwnerID == mine.OwnerID {
				return SelfSwapError("both slots belong to the same owner")
			}
			if err := RequireSlotStatus(mine, types.SlotStatusOfferable); err != nil {
				return err
			}
			if err := RequireSlotStatus(theirs, types.SlotStatusOfferable); err != nil {
				return err
			}

			req := &types.SwapRequest{
				ID:              uuid.New(),
				RequesterID:     in.RequesterID,
				RequesterSlotID: mine.ID,
				TargetOwnerID:   theirs.OwnerID,
				TargetSlotID:    theirs.ID,
				Status:          types.RequestStatusPending,
			}
			if err := a.deps.Requests.Create(dbc, req); err != nil {
				return err
			}
			c.wrote("delete swap request", func(dbc dbctx.Context) error {
				_, err := a.deps.Requests.DeleteByID(dbc, req.ID)
				return err
			})

			for _, slot := range inCanonicalOrder(mine, theirs) {
				if err := a.lockSlot(c, dbc, slot, req.ID); err != nil {
					return err
				}
			}

			if err := a.appendEvent(dbc, req.ID, types.EventKindCreated, in.RequesterID, map[string]any{
				"requester_slot_id": mine.ID,
				"target_slot_id":    theirs.ID,
				"target_owner_id":   theirs.OwnerID,
			}); err != nil {
				return err
			}

			req.RequesterSlot = mine
			req.TargetSlot = theirs
			out = req
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	a.populate(ctx, out)
	return out, nil
}

func (a *swapAggregate) Accept(ctx context.Context, in domainagg.RespondSwapRequestInput) (*types.SwapRequest, error) {
	const op = "Swap.SwapAggregate.Accept"
	if err := a.validateRespond(op, in); err != nil {
		return nil, err
	}

	var out *types.SwapRequest
	err := executeWrite(ctx, a.deps.Base, op, func(s txn.Scope) error {
		return guard(s, a.log, func(c *compensations) error {
			dbc := s.DB()
			req, err := a.deps.Requests.LockByID(dbc, in.RequestID)
			if err != nil {
				return err
			}
			if err := RequireTransition(a.Contract(), domainagg.OpAccept, req, in.UserID); err != nil {
				return err
			}

			mine, theirs, err := a.fetchPair(s, req.RequesterSlotID, req.TargetSlotID)
			if err != nil {
				return err
			}
			if mine == nil || theirs == nil {
				return NotFoundError("a slot of the swap request no longer exists")
			}
			if err := RequireLockedBy(mine, req.ID); err != nil {
				return err
			}
			if err := RequireLockedBy(theirs, req.ID); err != nil {
				return err
			}

			if err := a.transitionRequest(c, dbc, req, types.RequestStatusAccepted); err != nil {
				return err
			}

			requesterOwner, targetOwner := mine.OwnerID, theirs.OwnerID
			newOwner := map[uuid.UUID]uuid.UUID{mine.ID: targetOwner, theirs.ID: requesterOwner}
			for _, slot := range inCanonicalOrder(mine, theirs) {
				if err := a.completeSlot(c, dbc, slot, req.ID, newOwner[slot.ID]); err != nil {
					return err
				}
			}

			if err := a.appendEvent(dbc, req.ID, types.EventKindAccepted, in.UserID, map[string]any{
				"requester_slot_owner": targetOwner,
				"target_slot_owner":    requesterOwner,
			}); err != nil {
				return err
			}

			req.RequesterSlot = mine
			req.TargetSlot = theirs
			out = req
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	a.populate(ctx, out)
	return out, nil
}

func (a *swapAggregate) Reject(ctx context.Context, in domainagg.RespondSwapRequestInput) (*types.SwapRequest, error) {
	const op = "Swap.SwapAggregate.Reject"
	if err := a.validateRespond(op, in); err != nil {
		return nil, err
	}

	var out *types.SwapRequest
	err := executeWrite(ctx, a.deps.Base, op, func(s txn.Scope) error {
		return guard(s, a.log, func(c *compensations) error {
			dbc := s.DB()
			req, err := a.deps.Requests.LockByID(dbc, in.RequestID)
			if err != nil {
				return err
			}
			if err := RequireTransition(a.Contract(), domainagg.OpReject, req, in.UserID); err != nil {
				return err
			}

			if err := a.transitionRequest(c, dbc, req, types.RequestStatusRejected); err != nil {
				return err
			}
			released, err := a.releaseSlots(c, s, req)
			if err != nil {
				return err
			}
			if err := a.appendEvent(dbc, req.ID, types.EventKindRejected, in.UserID, map[string]any{
				"released_slots": released,
			}); err != nil {
				return err
			}
			out = req
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	a.populate(ctx, out)
	return out, nil
}

func (a *swapAggregate) Cancel(ctx context.Context, in domainagg.RespondSwapRequestInput) error {
	const op = "Swap.SwapAggregate.Cancel"
	if err := a.validateRespond(op, in); err != nil {
		return err
	}

	return executeWrite(ctx, a.deps.Base, op, func(s txn.Scope) error {
		return guard(s, a.log, func(c *compensations) error {
			dbc := s.DB()
			req, err := a.deps.Requests.LockByID(dbc, in.RequestID)
			if err != nil {
				return err
			}
			if err := RequireTransition(a.Contract(), domainagg.OpCancel, req, in.UserID); err != nil {
				return err
			}

			deleted, err := a.deps.Requests.DeleteIfStatus(dbc, req.ID, types.RequestStatusPending)
			if err != nil {
				return err
			}
			if !deleted {
				current, err := a.deps.Requests.GetByID(dbc, req.ID)
				if err != nil {
					return err
				}
				if current == nil {
					return NotFoundError(fmt.Sprintf("swap request not found: %s", req.ID))
				}
				return ConflictError("swap request changed while cancelling")
			}
			c.wrote("recreate swap request", func(dbc dbctx.Context) error {
				restore := *req
				return a.deps.Requests.Create(dbc, &restore)
			})

			released, err := a.releaseSlots(c, s, req)
			if err != nil {
				return err
			}
			return a.appendEvent(dbc, req.ID, types.EventKindCancelled, in.UserID, map[string]any{
				"released_slots": released,
			})
		})
	})
}

func (a *swapAggregate) validateRespond(op string, in domainagg.RespondSwapRequestInput) error {
	if in.RequestID == uuid.Nil {
		return domainagg.NewError(domainagg.CodeValidation, op, "missing request_id", nil)
	}
	if in.UserID == uuid.Nil {
		return domainagg.NewError(domainagg.CodeValidation, op, "missing user_id", nil)
	}
	return a.configured(op)
}

// fetchPair reads both slots. Atomic scopes take row locks in canonical id
// order; pass-through scopes issue the two reads concurrently.
func (a *swapAggregate) fetchPair(s txn.Scope, first, second uuid.UUID) (*types.Slot, *types.Slot, error) {
	dbc := s.DB()
	if s.Atomic() {
		got := make(map[uuid.UUID]*types.Slot, 2)
		for _, id := range types.OrderedPair(first, second) {
			slot, err := a.deps.Slots.LockByID(dbc, id)
			if err != nil {
				return nil, nil, err
			}
			got[id] = slot
		}
		return got[first], got[second], nil
	}

	var x, y *types.Slot
	g, gctx := errgroup.WithContext(dbc.Ctx)
	gdbc := dbctx.Context{Ctx: gctx}
	g.Go(func() error {
		slot, err := a.deps.Slots.GetByID(gdbc, first)
		x = slot
		return err
	})
	g.Go(func() error {
		slot, err := a.deps.Slots.GetByID(gdbc, second)
		y = slot
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return x, y, nil
}

func inCanonicalOrder(x, y *types.Slot) [2]*types.Slot {
	if types.OrderedPair(x.ID, y.ID)[0] == x.ID {
		return [2]*types.Slot{x, y}
	}
	return [2]*types.Slot{y, x}
}

func (a *swapAggregate) lockSlot(c *compensations, dbc dbctx.Context, slot *types.Slot, requestID uuid.UUID) error {
	before := *slot
	next := *slot
	next.Lock(requestID)
	ok, err := a.deps.Slots.SaveIfStatus(dbc, &next, types.SlotStatusOfferable)
	if err != nil {
		return err
	}
	if err := RequireCASSuccess(ok, fmt.Sprintf("slot %s is no longer offerable", slot.ID)); err != nil {
		return err
	}
	c.wrote("unlock slot "+slot.ID.String(), func(dbc dbctx.Context) error {
		restore := before
		_, err := a.deps.Slots.SaveIfStatus(dbc, &restore, types.SlotStatusLocked)
		return err
	})
	*slot = next
	return nil
}

func (a *swapAggregate) completeSlot(c *compensations, dbc dbctx.Context, slot *types.Slot, requestID, owner uuid.UUID) error {
	before := *slot
	next := *slot
	next.Release(types.SlotStatusOccupied)
	next.OwnerID = owner
	ok, err := a.deps.Slots.SaveIfStatus(dbc, &next, types.SlotStatusLocked)
	if err != nil {
		return err
	}
	if err := RequireCASSuccess(ok, fmt.Sprintf("slot %s changed while accepting request %s", slot.ID, requestID)); err != nil {
		return err
	}
	c.wrote("restore slot "+slot.ID.String(), func(dbc dbctx.Context) error {
		restore := before
		_, err := a.deps.Slots.SaveIfStatus(dbc, &restore, types.SlotStatusOccupied)
		return err
	})
	*slot = next
	return nil
}

func (a *swapAggregate) transitionRequest(c *compensations, dbc dbctx.Context, req *types.SwapRequest, to types.RequestStatus) error {
	from := req.Status
	req.Status = to
	ok, err := a.deps.Requests.SaveIfStatus(dbc, req, from)
	if err != nil {
		req.Status = from
		return err
	}
	if !ok {
		req.Status = from
		return ConflictError(fmt.Sprintf("swap request %s changed concurrently", req.ID))
	}
	c.wrote("revert swap request status", func(dbc dbctx.Context) error {
		restore := *req
		restore.Status = from
		_, err := a.deps.Requests.SaveIfStatus(dbc, &restore, to)
		return err
	})
	return nil
}

// releaseSlots returns every slot still held by req to Offerable. Slots that
// are gone or no longer held by req are skipped.
func (a *swapAggregate) releaseSlots(c *compensations, s txn.Scope, req *types.SwapRequest) ([]uuid.UUID, error) {
	dbc := s.DB()
	released := make([]uuid.UUID, 0, 2)
	for _, id := range req.SlotIDs() {
		var (
			slot *types.Slot
			err  error
		)
		if s.Atomic() {
			slot, err = a.deps.Slots.LockByID(dbc, id)
		} else {
			slot, err = a.deps.Slots.GetByID(dbc, id)
		}
		if err != nil {
			return nil, err
		}
		if slot == nil {
			a.log.Warn("slot missing while releasing swap lock", "slot_id", id, "request_id", req.ID)
			continue
		}
		if !slot.LockedBy(req.ID) {
			a.log.Warn("slot not held by swap request, leaving as is", "slot_id", id, "request_id", req.ID, "status", slot.Status)
			continue
		}
		next := *slot
		next.Release(types.SlotStatusOfferable)
		ok, err := a.deps.Slots.SaveIfStatus(dbc, &next, types.SlotStatusLocked)
		if err != nil {
			return nil, err
		}
		if !ok {
			a.log.Warn("slot changed while releasing swap lock", "slot_id", id, "request_id", req.ID)
			continue
		}
		held := *slot
		c.wrote("relock slot "+id.String(), func(dbc dbctx.Context) error {
			_, err := a.deps.Slots.SaveIfStatus(dbc, &held, types.SlotStatusOfferable)
			return err
		})
		released = append(released, id)
	}
	return released, nil
}

func (a *swapAggregate) appendEvent(dbc dbctx.Context, requestID uuid.UUID, kind string, actor uuid.UUID, payload map[string]any) error {
	if a.deps.Events == nil {
		return nil
	}
	return a.deps.Events.Append(dbc, &types.SwapEvent{
		SwapRequestID: requestID,
		Kind:          kind,
		ActorID:       actor,
		Payload:       swaprepo.EventPayload(payload),
	})
}

func (a *swapAggregate) populate(ctx context.Context, req *types.SwapRequest) {
	if req == nil {
		return
	}
	if err := PopulateSwapRequests(ctx, a.deps.Slots, a.deps.Users, []*types.SwapRequest{req}); err != nil {
		a.log.Warn("populate swap request failed", "request_id", req.ID, "error", err)
	}
}

package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/yungbote/slotswap-backend/internal/data/aggregates"
	"github.com/yungbote/slotswap-backend/internal/data/repos"
	types "github.com/yungbote/slotswap-backend/internal/domain"
	domainagg "github.com/yungbote/slotswap-backend/internal/domain/aggregates"
	"github.com/yungbote/slotswap-backend/internal/platform/apierr"
	"github.com/yungbote/slotswap-backend/internal/platform/dbctx"
	"github.com/yungbote/slotswap-backend/internal/platform/logger"
)

// SwapService exposes the swap state machine and its read projections to the
// authenticated caller.
type SwapService interface {
	CreateRequest(ctx context.Context, mySlotID, theirSlotID uuid.UUID) (*types.SwapRequest, error)
	Accept(ctx context.Context, requestID uuid.UUID) (*types.SwapRequest, error)
	Reject(ctx context.Context, requestID uuid.UUID) (*types.SwapRequest, error)
	Cancel(ctx context.Context, requestID uuid.UUID) error

	AvailableSlots(ctx context.Context) ([]*types.Slot, error)
	Incoming(ctx context.Context) ([]*types.SwapRequest, error)
	Outgoing(ctx context.Context) ([]*types.SwapRequest, error)
	Events(ctx context.Context, requestID uuid.UUID) ([]*types.SwapEvent, error)
}

type swapService struct {
	log       *logger.Logger
	aggregate domainagg.SwapAggregate
	slots     repos.SlotRepo
	requests  repos.SwapRequestRepo
	events    repos.SwapEventRepo
	users     repos.UserDirectory
}

func NewSwapService(log *logger.Logger, aggregate domainagg.SwapAggregate, set repos.Set) SwapService {
	return &swapService{
		log:       log.With("service", "SwapService"),
		aggregate: aggregate,
		slots:     set.Slot,
		requests:  set.SwapRequest,
		events:    set.SwapEvent,
		users:     set.Directory,
	}
}

func (ss *swapService) CreateRequest(ctx context.Context, mySlotID, theirSlotID uuid.UUID) (*types.SwapRequest, error) {
	caller, err := requireCaller(ctx)
	if err != nil {
		return nil, err
	}
	return ss.aggregate.CreateRequest(ctx, domainagg.CreateSwapRequestInput{
		RequesterID:     caller,
		RequesterSlotID: mySlotID,
		TargetSlotID:    theirSlotID,
	})
}

func (ss *swapService) Accept(ctx context.Context, requestID uuid.UUID) (*types.SwapRequest, error) {
	caller, err := requireCaller(ctx)
	if err != nil {
		return nil, err
	}
	return ss.aggregate.Accept(ctx, domainagg.RespondSwapRequestInput{RequestID: requestID, UserID: caller})
}

func (ss *swapService) Reject(ctx context.Context, requestID uuid.UUID) (*types.SwapRequest, error) {
	caller, err := requireCaller(ctx)
	if err != nil {
		return nil, err
	}
	return ss.aggregate.Reject(ctx, domainagg.RespondSwapRequestInput{RequestID: requestID, UserID: caller})
}

func (ss *swapService) Cancel(ctx context.Context, requestID uuid.UUID) error {
	caller, err := requireCaller(ctx)
	if err != nil {
		return err
	}
	return ss.aggregate.Cancel(ctx, domainagg.RespondSwapRequestInput{RequestID: requestID, UserID: caller})
}

func (ss *swapService) AvailableSlots(ctx context.Context) ([]*types.Slot, error) {
	caller, err := requireCaller(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := ss.slots.ListOfferableExcludingOwner(dbctx.Background(ctx), caller)
	if err != nil {
		return nil, fmt.Errorf("list offerable slots: %w", err)
	}
	if rows == nil {
		rows = []*types.Slot{}
	}
	if err := aggregates.PopulateSlotOwners(ctx, ss.users, rows); err != nil {
		ss.log.Warn("populate slot owners failed", "error", err)
	}
	return rows, nil
}

func (ss *swapService) Incoming(ctx context.Context) ([]*types.SwapRequest, error) {
	caller, err := requireCaller(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := ss.requests.ListPendingByTargetOwner(dbctx.Background(ctx), caller)
	if err != nil {
		return nil, fmt.Errorf("list incoming requests: %w", err)
	}
	return ss.populate(ctx, rows), nil
}

func (ss *swapService) Outgoing(ctx context.Context) ([]*types.SwapRequest, error) {
	caller, err := requireCaller(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := ss.requests.ListPendingByRequester(dbctx.Background(ctx), caller)
	if err != nil {
		return nil, fmt.Errorf("list outgoing requests: %w", err)
	}
	return ss.populate(ctx, rows), nil
}

// Events returns the audit trail of a request to either party. The trail
// outlives cancelled requests, so participation is checked against the
// created event when the request row is gone.
func (ss *swapService) Events(ctx context.Context, requestID uuid.UUID) ([]*types.SwapEvent, error) {
	caller, err := requireCaller(ctx)
	if err != nil {
		return nil, err
	}
	if ss.events == nil {
		return []*types.SwapEvent{}, nil
	}
	dbc := dbctx.Background(ctx)
	evs, err := ss.events.ListByRequest(dbc, requestID)
	if err != nil {
		return nil, fmt.Errorf("list swap events: %w", err)
	}
	req, err := ss.requests.GetByID(dbc, requestID)
	if err != nil {
		return nil, fmt.Errorf("load swap request: %w", err)
	}
	switch {
	case req != nil:
		if req.RequesterID != caller && req.TargetOwnerID != caller {
			return nil, apierr.Forbidden("unauthorized", "not a participant of this swap request")
		}
	case len(evs) == 0:
		return nil, apierr.NotFound("not_found", "swap request not found")
	case !participantOf(evs, caller):
		return nil, apierr.Forbidden("unauthorized", "not a participant of this swap request")
	}
	return evs, nil
}

func participantOf(evs []*types.SwapEvent, userID uuid.UUID) bool {
	for _, ev := range evs {
		if ev.Kind != types.EventKindCreated {
			continue
		}
		if ev.ActorID == userID {
			return true
		}
		var payload struct {
			TargetOwnerID uuid.UUID `json:"target_owner_id"`
		}
		if err := json.Unmarshal(ev.Payload, &payload); err == nil && payload.TargetOwnerID == userID {
			return true
		}
	}
	return false
}

func (ss *swapService) populate(ctx context.Context, rows []*types.SwapRequest) []*types.SwapRequest {
	if rows == nil {
		return []*types.SwapRequest{}
	}
	if err := aggregates.PopulateSwapRequests(ctx, ss.slots, ss.users, rows); err != nil {
		ss.log.Warn("populate swap requests failed", "error", err)
	}
	return rows
}

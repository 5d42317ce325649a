package aggregates

import (
	"context"

	"github.com/google/uuid"

	"github.com/yungbote/slotswap-backend/internal/domain/swap"
)

const (
	OpCreate = "create"
	OpAccept = "accept"
	OpReject = "reject"
	OpCancel = "cancel"
)

var SwapAggregateContract = Contract{
	Name:  "Swap.SwapAggregate",
	Scope: ScopeOwnedByAggregate,
	Transitions: []Transition{
		{Op: OpCreate, Actor: ActorRequester, To: swap.RequestStatusPending},
		{Op: OpAccept, Actor: ActorTargetOwner, From: swap.RequestStatusPending, To: swap.RequestStatusAccepted},
		{Op: OpReject, Actor: ActorTargetOwner, From: swap.RequestStatusPending, To: swap.RequestStatusRejected},
		{Op: OpCancel, Actor: ActorRequester, From: swap.RequestStatusPending},
	},
}

// SwapAggregate owns the swap request state machine.
//
// Failures are *aggregates.Error with codes CodeValidation, CodeNotFound,
// CodeUnauthorized, CodeSelfSwap, CodeInvalidState, CodeRetryable or CodeInternal.
type SwapAggregate interface {
	Aggregate

	// CreateRequest locks both slots and records a pending request.
	CreateRequest(ctx context.Context, in CreateSwapRequestInput) (*swap.SwapRequest, error)

	// Accept exchanges slot owners and completes the request.
	Accept(ctx context.Context, in RespondSwapRequestInput) (*swap.SwapRequest, error)

	// Reject marks the request rejected and releases whatever locks it still holds.
	Reject(ctx context.Context, in RespondSwapRequestInput) (*swap.SwapRequest, error)

	// Cancel deletes a pending request on behalf of its requester.
	Cancel(ctx context.Context, in RespondSwapRequestInput) error
}

type CreateSwapRequestInput struct {
	RequesterID     uuid.UUID
	RequesterSlotID uuid.UUID
	TargetSlotID    uuid.UUID
}

type RespondSwapRequestInput struct {
	RequestID uuid.UUID
	UserID    uuid.UUID
}

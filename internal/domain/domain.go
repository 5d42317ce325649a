package domain

import (
	"github.com/yungbote/slotswap-backend/internal/domain/swap"
	"github.com/yungbote/slotswap-backend/internal/domain/user"
)

type (
	User        = user.User
	UserSummary = user.Summary

	Slot          = swap.Slot
	SlotStatus    = swap.SlotStatus
	SwapRequest   = swap.SwapRequest
	RequestStatus = swap.RequestStatus
	SwapEvent     = swap.SwapEvent
)

const (
	SlotStatusOccupied  = swap.SlotStatusOccupied
	SlotStatusOfferable = swap.SlotStatusOfferable
	SlotStatusLocked    = swap.SlotStatusLocked

	RequestStatusPending  = swap.RequestStatusPending
	RequestStatusAccepted = swap.RequestStatusAccepted
	RequestStatusRejected = swap.RequestStatusRejected

	EventKindCreated   = swap.EventKindCreated
	EventKindAccepted  = swap.EventKindAccepted
	EventKindRejected  = swap.EventKindRejected
	EventKindCancelled = swap.EventKindCancelled
)

// OrderedPair returns two ids in the canonical order slot writes follow.
var OrderedPair = swap.OrderedPair

// Models lists every persisted type in migration order.
func Models() []any {
	return []any{
		&User{},
		&Slot{},
		&SwapRequest{},
		&SwapEvent{},
	}
}

package aggregates

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	types "github.com/yungbote/slotswap-backend/internal/domain"
	domainagg "github.com/yungbote/slotswap-backend/internal/domain/aggregates"
)

// RequireCASSuccess converts a failed compare-and-set into a typed conflict error.
func RequireCASSuccess(ok bool, message string) error {
	if ok {
		return nil
	}
	return ConflictError(strings.TrimSpace(message))
}

// RequireSlotStatus validates the current slot status against allowed values.
func RequireSlotStatus(slot *types.Slot, allowed ...types.SlotStatus) error {
	if slot == nil {
		return NotFoundError("slot not found")
	}
	if len(allowed) == 0 {
		return ValidationError("allowed statuses cannot be empty")
	}
	for _, s := range allowed {
		if slot.Status == s {
			return nil
		}
	}
	return InvalidStateError(fmt.Sprintf("slot %s is %s", slot.ID, slot.Status))
}

// RequireLockedBy validates that slot is held by requestID.
func RequireLockedBy(slot *types.Slot, requestID uuid.UUID) error {
	if slot == nil {
		return NotFoundError("slot not found")
	}
	if !slot.LockedBy(requestID) {
		return InvalidStateError(fmt.Sprintf("slot %s is not locked by request %s", slot.ID, requestID))
	}
	return nil
}

// RequirePending validates that req exists and is still pending.
func RequirePending(req *types.SwapRequest) error {
	if req == nil {
		return NotFoundError("swap request not found")
	}
	if !req.Pending() {
		return InvalidStateError(fmt.Sprintf("swap request %s is %s", req.ID, req.Status))
	}
	return nil
}

// RequireTransition validates that req sits in the source state of the
// contract's op and that userID is the party allowed to drive it.
func RequireTransition(contract domainagg.Contract, op string, req *types.SwapRequest, userID uuid.UUID) error {
	t, ok := contract.Transition(op)
	if !ok {
		return fmt.Errorf("%s has no %q transition", contract.Name, op)
	}
	if err := RequirePending(req); err != nil {
		return err
	}
	if req.Status != t.From {
		return InvalidStateError(fmt.Sprintf("swap request %s is %s", req.ID, req.Status))
	}
	if t.ActorID(req) != userID {
		return UnauthorizedError(t.Forbidden())
	}
	return nil
}

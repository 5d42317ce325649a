package aggregates

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	types "github.com/yungbote/slotswap-backend/internal/domain"
	domainagg "github.com/yungbote/slotswap-backend/internal/domain/aggregates"
)

func TestRequireSlotStatus(t *testing.T) {
	slot := &types.Slot{ID: uuid.New(), Status: types.SlotStatusOfferable}
	if err := RequireSlotStatus(slot, types.SlotStatusOfferable); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if err := RequireSlotStatus(slot, types.SlotStatusOccupied); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected invalid state, got %v", err)
	}
	if err := RequireSlotStatus(nil, types.SlotStatusOfferable); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRequireLockedBy(t *testing.T) {
	reqID := uuid.New()
	slot := &types.Slot{ID: uuid.New(), Status: types.SlotStatusOfferable}
	if err := RequireLockedBy(slot, reqID); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected invalid state for unlocked slot, got %v", err)
	}
	slot.Lock(reqID)
	if err := RequireLockedBy(slot, reqID); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if err := RequireLockedBy(slot, uuid.New()); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected invalid state for foreign lock, got %v", err)
	}
}

func TestRequirePending(t *testing.T) {
	if err := RequirePending(nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	req := &types.SwapRequest{ID: uuid.New(), Status: types.RequestStatusAccepted}
	if err := RequirePending(req); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected invalid state, got %v", err)
	}
	req.Status = types.RequestStatusPending
	if err := RequirePending(req); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
}

func TestRequireCASSuccess(t *testing.T) {
	if err := RequireCASSuccess(true, "ok"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	err := RequireCASSuccess(false, "stale")
	if !errors.Is(err, ErrConflict) || !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected conflict tagged as invalid state, got %v", err)
	}
}

func TestRequireTransition(t *testing.T) {
	contract := domainagg.SwapAggregateContract
	requester, target := uuid.New(), uuid.New()
	req := &types.SwapRequest{ID: uuid.New(), RequesterID: requester, TargetOwnerID: target, Status: types.RequestStatusPending}

	cases := []struct {
		name string
		op   string
		user uuid.UUID
		want error
	}{
		{name: "target accepts", op: domainagg.OpAccept, user: target},
		{name: "requester accepts", op: domainagg.OpAccept, user: requester, want: ErrUnauthorized},
		{name: "target rejects", op: domainagg.OpReject, user: target},
		{name: "requester cancels", op: domainagg.OpCancel, user: requester},
		{name: "target cancels", op: domainagg.OpCancel, user: target, want: ErrUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := RequireTransition(contract, tc.op, req, tc.user)
			if tc.want == nil && err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
			if tc.want != nil && !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}

	if err := RequireTransition(contract, domainagg.OpAccept, req, requester); err.Error() != "only the target owner can accept a swap request" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	done := *req
	done.Status = types.RequestStatusRejected
	if err := RequireTransition(contract, domainagg.OpCancel, &done, requester); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected invalid state for settled request, got %v", err)
	}
	if err := RequireTransition(contract, domainagg.OpAccept, nil, target); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found for missing request, got %v", err)
	}
	if err := RequireTransition(contract, "merge", req, target); err == nil {
		t.Fatalf("expected unknown transition to fail")
	}
}

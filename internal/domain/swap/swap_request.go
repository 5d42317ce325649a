package swap

import (
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/slotswap-backend/internal/domain/user"
)

type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "PENDING"
	RequestStatusAccepted RequestStatus = "ACCEPTED"
	RequestStatusRejected RequestStatus = "REJECTED"
)

// SwapRequest proposes exchanging the requester's slot for the target owner's
// slot. Requests are only created pending; cancelled requests are deleted.
type SwapRequest struct {
	ID              uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	RequesterID     uuid.UUID     `gorm:"type:uuid;not null;index;column:requester_id" json:"requester_id"`
	RequesterSlotID uuid.UUID     `gorm:"type:uuid;not null;index;column:requester_slot_id" json:"requester_slot_id"`
	TargetOwnerID   uuid.UUID     `gorm:"type:uuid;not null;index;column:target_owner_id" json:"target_owner_id"`
	TargetSlotID    uuid.UUID     `gorm:"type:uuid;not null;index;column:target_slot_id" json:"target_slot_id"`
	Status          RequestStatus `gorm:"type:varchar(32);not null;index;column:status" json:"status"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`

	Requester     *user.Summary `gorm:"-" json:"requester,omitempty"`
	TargetOwner   *user.Summary `gorm:"-" json:"target_owner,omitempty"`
	RequesterSlot *Slot         `gorm:"-" json:"requester_slot,omitempty"`
	TargetSlot    *Slot         `gorm:"-" json:"target_slot,omitempty"`
}

func (SwapRequest) TableName() string { return "swap_request" }

func (r *SwapRequest) Pending() bool {
	return r != nil && r.Status == RequestStatusPending
}

// Involves reports whether slotID is one of the two slots of the request.
func (r *SwapRequest) Involves(slotID uuid.UUID) bool {
	return r != nil && (r.RequesterSlotID == slotID || r.TargetSlotID == slotID)
}

// SlotIDs returns both slot ids in ascending byte order. Writers touch slots in
// this order so two concurrent swaps over the same pair never invert locks.
func (r *SwapRequest) SlotIDs() [2]uuid.UUID {
	return OrderedPair(r.RequesterSlotID, r.TargetSlotID)
}

// OrderedPair returns a and b in ascending byte order.
func OrderedPair(a, b uuid.UUID) [2]uuid.UUID {
	for i := range a {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return [2]uuid.UUID{a, b}
			}
			return [2]uuid.UUID{b, a}
		}
	}
	return [2]uuid.UUID{a, b}
}

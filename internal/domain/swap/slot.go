package swap

import (
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/slotswap-backend/internal/domain/user"
)

type SlotStatus string

const (
	// SlotStatusOccupied is a slot in ordinary use, not offered for exchange.
	SlotStatusOccupied SlotStatus = "BUSY"
	// SlotStatusOfferable is a slot its owner has put up for swapping.
	SlotStatusOfferable SlotStatus = "SWAPPABLE"
	// SlotStatusLocked is a slot held by exactly one pending swap request.
	SlotStatusLocked SlotStatus = "SWAP_PENDING"
)

func (s SlotStatus) Valid() bool {
	switch s {
	case SlotStatusOccupied, SlotStatusOfferable, SlotStatusLocked:
		return true
	default:
		return false
	}
}

// Slot is a user-owned calendar range. Status and LockRef together act as the
// advisory lock taken by a pending swap request: Status is SlotStatusLocked
// exactly when LockRef is set.
type Slot struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerID   uuid.UUID  `gorm:"type:uuid;not null;index;column:owner_id" json:"owner_id"`
	Title     string     `gorm:"not null;column:title" json:"title"`
	StartTime time.Time  `gorm:"not null;index;column:start_time" json:"start_time"`
	EndTime   time.Time  `gorm:"not null;column:end_time" json:"end_time"`
	Status    SlotStatus `gorm:"type:varchar(32);not null;index;column:status" json:"status"`
	LockRef   *uuid.UUID `gorm:"type:uuid;index;column:lock_ref" json:"lock_ref,omitempty"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`

	Owner *user.Summary `gorm:"-" json:"owner,omitempty"`
}

func (Slot) TableName() string { return "slot" }

// LockedBy reports whether the slot is currently held by the given request.
func (s *Slot) LockedBy(requestID uuid.UUID) bool {
	return s != nil && s.Status == SlotStatusLocked && s.LockRef != nil && *s.LockRef == requestID
}

// Lock marks the slot as held by requestID.
func (s *Slot) Lock(requestID uuid.UUID) {
	id := requestID
	s.Status = SlotStatusLocked
	s.LockRef = &id
}

// Release clears the lock and moves the slot to status.
func (s *Slot) Release(status SlotStatus) {
	s.Status = status
	s.LockRef = nil
}

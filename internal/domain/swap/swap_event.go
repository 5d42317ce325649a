package swap

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	EventKindCreated   = "created"
	EventKindAccepted  = "accepted"
	EventKindRejected  = "rejected"
	EventKindCancelled = "cancelled"
)

// SwapEvent is an append-only audit record of a swap request transition.
// SwapRequestID is not a foreign key: cancelled requests are deleted but their
// history is kept.
type SwapEvent struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	SwapRequestID uuid.UUID      `gorm:"type:uuid;not null;index;column:swap_request_id" json:"swap_request_id"`
	Kind          string         `gorm:"type:varchar(32);not null;column:kind" json:"kind"`
	ActorID       uuid.UUID      `gorm:"type:uuid;not null;column:actor_id" json:"actor_id"`
	Payload       datatypes.JSON `gorm:"column:payload" json:"payload"`
	CreatedAt     time.Time      `gorm:"not null;autoCreateTime;index" json:"created_at"`
}

func (SwapEvent) TableName() string { return "swap_event" }

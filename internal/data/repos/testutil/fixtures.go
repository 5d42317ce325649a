package testutil

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/slotswap-backend/internal/domain"
)

func SeedUser(tb testing.TB, tx *gorm.DB, name, email string) *types.User {
	tb.Helper()
	u := &types.User{
		ID:       uuid.New(),
		Email:    email,
		Password: "pw",
		Name:     name,
	}
	if err := tx.Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

// SeedSlot inserts an unlocked one-hour slot starting a day from now.
func SeedSlot(tb testing.TB, tx *gorm.DB, ownerID uuid.UUID, title string, status types.SlotStatus) *types.Slot {
	tb.Helper()
	start := time.Now().UTC().Add(24 * time.Hour).Truncate(time.Second)
	s := &types.Slot{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Title:     title,
		StartTime: start,
		EndTime:   start.Add(time.Hour),
		Status:    status,
	}
	if err := tx.Create(s).Error; err != nil {
		tb.Fatalf("seed slot: %v", err)
	}
	return s
}

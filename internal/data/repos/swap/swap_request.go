package swap

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/slotswap-backend/internal/domain"
	"github.com/yungbote/slotswap-backend/internal/platform/dbctx"
	"github.com/yungbote/slotswap-backend/internal/platform/logger"
)

type SwapRequestRepo interface {
	Create(dbc dbctx.Context, row *types.SwapRequest) error

	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.SwapRequest, error)
	LockByID(dbc dbctx.Context, id uuid.UUID) (*types.SwapRequest, error)

	Save(dbc dbctx.Context, row *types.SwapRequest) error
	// SaveIfStatus writes row only if the stored status still equals expected.
	SaveIfStatus(dbc dbctx.Context, row *types.SwapRequest, expected types.RequestStatus) (bool, error)
	// DeleteByID reports whether a row was removed.
	DeleteByID(dbc dbctx.Context, id uuid.UUID) (bool, error)
	// DeleteIfStatus removes the row only while its status equals expected.
	DeleteIfStatus(dbc dbctx.Context, id uuid.UUID, expected types.RequestStatus) (bool, error)

	ListPendingByTargetOwner(dbc dbctx.Context, ownerID uuid.UUID) ([]*types.SwapRequest, error)
	ListPendingByRequester(dbc dbctx.Context, requesterID uuid.UUID) ([]*types.SwapRequest, error)
	ListPendingBySlot(dbc dbctx.Context, slotID uuid.UUID) ([]*types.SwapRequest, error)
}

type swapRequestRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSwapRequestRepo(db *gorm.DB, baseLog *logger.Logger) SwapRequestRepo {
	return &swapRequestRepo{db: db, log: baseLog.With("repo", "SwapRequestRepo")}
}

func (r *swapRequestRepo) Create(dbc dbctx.Context, row *types.SwapRequest) error {
	if row == nil {
		return nil
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	return dbc.Resolve(r.db).Create(row).Error
}

func (r *swapRequestRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.SwapRequest, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var row types.SwapRequest
	if err := dbc.Resolve(r.db).Where("id = ?", id).Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *swapRequestRepo) LockByID(dbc dbctx.Context, id uuid.UUID) (*types.SwapRequest, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var row types.SwapRequest
	err := dbc.Resolve(r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		Limit(1).
		Find(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *swapRequestRepo) Save(dbc dbctx.Context, row *types.SwapRequest) error {
	if row == nil {
		return nil
	}
	return dbc.Resolve(r.db).Save(row).Error
}

func (r *swapRequestRepo) SaveIfStatus(dbc dbctx.Context, row *types.SwapRequest, expected types.RequestStatus) (bool, error) {
	if row == nil || row.ID == uuid.Nil {
		return false, nil
	}
	now := time.Now().UTC()
	res := dbc.Resolve(r.db).
		Model(&types.SwapRequest{}).
		Where("id = ? AND status = ?", row.ID, expected).
		Updates(map[string]any{
			"status":     row.Status,
			"updated_at": now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	row.UpdatedAt = now
	return true, nil
}

func (r *swapRequestRepo) DeleteByID(dbc dbctx.Context, id uuid.UUID) (bool, error) {
	if id == uuid.Nil {
		return false, nil
	}
	res := dbc.Resolve(r.db).Where("id = ?", id).Delete(&types.SwapRequest{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *swapRequestRepo) DeleteIfStatus(dbc dbctx.Context, id uuid.UUID, expected types.RequestStatus) (bool, error) {
	if id == uuid.Nil {
		return false, nil
	}
	res := dbc.Resolve(r.db).Where("id = ? AND status = ?", id, expected).Delete(&types.SwapRequest{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *swapRequestRepo) ListPendingByTargetOwner(dbc dbctx.Context, ownerID uuid.UUID) ([]*types.SwapRequest, error) {
	return r.listPending(dbc, "target_owner_id = ?", ownerID)
}

func (r *swapRequestRepo) ListPendingByRequester(dbc dbctx.Context, requesterID uuid.UUID) ([]*types.SwapRequest, error) {
	return r.listPending(dbc, "requester_id = ?", requesterID)
}

func (r *swapRequestRepo) ListPendingBySlot(dbc dbctx.Context, slotID uuid.UUID) ([]*types.SwapRequest, error) {
	return r.listPending(dbc, "(requester_slot_id = ? OR target_slot_id = ?)", slotID, slotID)
}

func (r *swapRequestRepo) listPending(dbc dbctx.Context, where string, args ...any) ([]*types.SwapRequest, error) {
	var out []*types.SwapRequest
	for _, a := range args {
		if id, ok := a.(uuid.UUID); ok && id == uuid.Nil {
			return out, nil
		}
	}
	err := dbc.Resolve(r.db).
		Where("status = ?", types.RequestStatusPending).
		Where(where, args...).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

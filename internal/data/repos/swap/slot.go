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

type SlotRepo interface {
	Create(dbc dbctx.Context, rows []*types.Slot) ([]*types.Slot, error)

	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Slot, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Slot, error)

	// LockByID reads a slot with a row lock held until the enclosing
	// transaction ends. Outside a transaction it behaves like GetByID.
	LockByID(dbc dbctx.Context, id uuid.UUID) (*types.Slot, error)

	Save(dbc dbctx.Context, row *types.Slot) error
	// SaveIfStatus writes row only if the stored status still equals expected.
	// It reports false when the guard did not match or the slot is gone.
	SaveIfStatus(dbc dbctx.Context, row *types.Slot, expected types.SlotStatus) (bool, error)

	// DeleteIfStatus removes the slot only while its stored status is one of
	// allowed (any status when allowed is empty). It reports whether a row was
	// removed.
	DeleteIfStatus(dbc dbctx.Context, id uuid.UUID, allowed ...types.SlotStatus) (bool, error)

	ListByOwner(dbc dbctx.Context, ownerID uuid.UUID) ([]*types.Slot, error)
	ListOfferableExcludingOwner(dbc dbctx.Context, ownerID uuid.UUID) ([]*types.Slot, error)
}

type slotRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSlotRepo(db *gorm.DB, baseLog *logger.Logger) SlotRepo {
	return &slotRepo{db: db, log: baseLog.With("repo", "SlotRepo")}
}

func (r *slotRepo) Create(dbc dbctx.Context, rows []*types.Slot) ([]*types.Slot, error) {
	if len(rows) == 0 {
		return []*types.Slot{}, nil
	}
	for _, row := range rows {
		if row != nil && row.ID == uuid.Nil {
			row.ID = uuid.New()
		}
	}
	if err := dbc.Resolve(r.db).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *slotRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Slot, error) {
	var out []*types.Slot
	if len(ids) == 0 {
		return out, nil
	}
	if err := dbc.Resolve(r.db).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *slotRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Slot, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var row types.Slot
	if err := dbc.Resolve(r.db).Where("id = ?", id).Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *slotRepo) LockByID(dbc dbctx.Context, id uuid.UUID) (*types.Slot, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var row types.Slot
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

func (r *slotRepo) Save(dbc dbctx.Context, row *types.Slot) error {
	if row == nil {
		return nil
	}
	return dbc.Resolve(r.db).Save(row).Error
}

func (r *slotRepo) SaveIfStatus(dbc dbctx.Context, row *types.Slot, expected types.SlotStatus) (bool, error) {
	if row == nil || row.ID == uuid.Nil {
		return false, nil
	}
	now := time.Now().UTC()
	var lockRef any
	if row.LockRef != nil {
		lockRef = *row.LockRef
	}
	res := dbc.Resolve(r.db).
		Model(&types.Slot{}).
		Where("id = ? AND status = ?", row.ID, expected).
		Updates(map[string]any{
			"owner_id":   row.OwnerID,
			"title":      row.Title,
			"start_time": row.StartTime,
			"end_time":   row.EndTime,
			"status":     row.Status,
			"lock_ref":   lockRef,
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

func (r *slotRepo) DeleteIfStatus(dbc dbctx.Context, id uuid.UUID, allowed ...types.SlotStatus) (bool, error) {
	if id == uuid.Nil {
		return false, nil
	}
	q := dbc.Resolve(r.db).Where("id = ?", id)
	if len(allowed) > 0 {
		q = q.Where("status IN ?", allowed)
	}
	res := q.Delete(&types.Slot{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *slotRepo) ListByOwner(dbc dbctx.Context, ownerID uuid.UUID) ([]*types.Slot, error) {
	var out []*types.Slot
	if ownerID == uuid.Nil {
		return out, nil
	}
	err := dbc.Resolve(r.db).
		Where("owner_id = ?", ownerID).
		Order("start_time ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *slotRepo) ListOfferableExcludingOwner(dbc dbctx.Context, ownerID uuid.UUID) ([]*types.Slot, error) {
	var out []*types.Slot
	err := dbc.Resolve(r.db).
		Where("status = ? AND owner_id <> ?", types.SlotStatusOfferable, ownerID).
		Order("start_time ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

package swap

import (
	"encoding/json"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/slotswap-backend/internal/domain"
	"github.com/yungbote/slotswap-backend/internal/platform/dbctx"
	"github.com/yungbote/slotswap-backend/internal/platform/logger"
)

type SwapEventRepo interface {
	Append(dbc dbctx.Context, row *types.SwapEvent) error
	ListByRequest(dbc dbctx.Context, requestID uuid.UUID) ([]*types.SwapEvent, error)
}

type swapEventRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSwapEventRepo(db *gorm.DB, baseLog *logger.Logger) SwapEventRepo {
	return &swapEventRepo{db: db, log: baseLog.With("repo", "SwapEventRepo")}
}

func (r *swapEventRepo) Append(dbc dbctx.Context, row *types.SwapEvent) error {
	if row == nil {
		return nil
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if len(row.Payload) == 0 {
		row.Payload = datatypes.JSON([]byte("{}"))
	}
	return dbc.Resolve(r.db).Create(row).Error
}

func (r *swapEventRepo) ListByRequest(dbc dbctx.Context, requestID uuid.UUID) ([]*types.SwapEvent, error) {
	var out []*types.SwapEvent
	if requestID == uuid.Nil {
		return out, nil
	}
	err := dbc.Resolve(r.db).
		Where("swap_request_id = ?", requestID).
		Order("created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// EventPayload marshals v into a JSON column value, falling back to an empty
// object.
func EventPayload(v any) datatypes.JSON {
	if v == nil {
		return datatypes.JSON([]byte("{}"))
	}
	b, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON([]byte("{}"))
	}
	return datatypes.JSON(b)
}

package aggregates

import (
	"context"

	"github.com/yungbote/slotswap-backend/internal/data/txn"
)

// TxRunner provides the scope boundary for aggregate writes. fn receives the
// open scope so it can tell an atomic scope from a pass-through one.
type TxRunner interface {
	InTx(ctx context.Context, fn func(s txn.Scope) error) error
}

var _ TxRunner = (*txn.Coordinator)(nil)

package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/yungbote/slotswap-backend/internal/data/aggregates"
	"github.com/yungbote/slotswap-backend/internal/data/txn"
)

// ErrInjected is returned by InjectedTxRunner when a failure is requested
// without a specific error.
var ErrInjected = errors.New("injected tx failure")

// InjectedTxRunner wraps a TxRunner for aggregate tests and injects failures
// at the scope boundaries. A failure after the body is returned from inside
// the inner runner so the scope aborts instead of committing.
type InjectedTxRunner struct {
	Inner aggregates.TxRunner

	mu sync.Mutex

	FailBegin      error
	FailBeforeBody error
	FailCommit     error

	BeginCalls    int
	CommitCalls   int
	RollbackCalls int
}

var _ aggregates.TxRunner = (*InjectedTxRunner)(nil)

func (r *InjectedTxRunner) InTx(ctx context.Context, fn func(s txn.Scope) error) error {
	r.mu.Lock()
	r.BeginCalls++
	failBegin := r.FailBegin
	failBeforeBody := r.FailBeforeBody
	failCommit := r.FailCommit
	inner := r.Inner
	r.mu.Unlock()

	if failBegin != nil {
		return failBegin
	}
	if inner == nil {
		inner = txn.NewCoordinator(nil, txn.Fixed(txn.ModeNone), nil)
	}

	err := inner.InTx(ctx, func(s txn.Scope) error {
		if failBeforeBody != nil {
			return failBeforeBody
		}
		if fn != nil {
			if err := fn(s); err != nil {
				return err
			}
		}
		return failCommit
	})

	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.RollbackCalls++
		return err
	}
	r.CommitCalls++
	return nil
}

package txn

import (
	"context"
	"database/sql"
	"errors"
	"sync"

	"gorm.io/gorm"

	"github.com/yungbote/slotswap-backend/internal/platform/dbctx"
	"github.com/yungbote/slotswap-backend/internal/platform/logger"
)

// Scope is the unit-of-work handle returned by Coordinator.Begin. The only
// implementations are AtomicScope and NoopScope.
//
// Commit and Abort are idempotent: once either has run, later calls return nil.
type Scope interface {
	Commit() error
	Abort() error
	Atomic() bool
	DB() dbctx.Context

	scope()
}

// AtomicScope wraps an open gorm transaction.
type AtomicScope struct {
	ctx context.Context
	tx  *gorm.DB

	mu   sync.Mutex
	done bool
}

func newAtomicScope(ctx context.Context, tx *gorm.DB) *AtomicScope {
	return &AtomicScope{ctx: ctx, tx: tx}
}

func (s *AtomicScope) scope() {}

func (s *AtomicScope) Atomic() bool { return true }

func (s *AtomicScope) DB() dbctx.Context {
	return dbctx.Context{Ctx: s.ctx, Tx: s.tx}
}

func (s *AtomicScope) Commit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return nil
	}
	s.done = true
	return s.tx.Commit().Error
}

func (s *AtomicScope) Abort() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return nil
	}
	s.done = true
	if err := s.tx.Rollback().Error; err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}

// NoopScope is handed out when the store cannot run transactions. Writes made
// through it are applied immediately and Abort cannot revert them.
type NoopScope struct {
	ctx context.Context
	log *logger.Logger

	mu     sync.Mutex
	done   bool
	writes int
}

func newNoopScope(ctx context.Context, log *logger.Logger) *NoopScope {
	if log == nil {
		log = logger.Nop()
	}
	return &NoopScope{ctx: ctx, log: log}
}

func (s *NoopScope) scope() {}

func (s *NoopScope) Atomic() bool { return false }

func (s *NoopScope) DB() dbctx.Context {
	return dbctx.Context{Ctx: s.ctx}
}

// MarkWrite records that a write went through this scope so an abort can
// report what it could not undo.
func (s *NoopScope) MarkWrite() {
	s.mu.Lock()
	s.writes++
	s.mu.Unlock()
}

func (s *NoopScope) Commit() error {
	s.mu.Lock()
	s.done = true
	s.mu.Unlock()
	return nil
}

func (s *NoopScope) Abort() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return nil
	}
	s.done = true
	if s.writes > 0 {
		s.log.Warn("abort without transaction support, earlier writes remain applied", "writes", s.writes)
	}
	return nil
}

// MarkWrite notes a write on scopes that track them. It is a no-op for
// atomic scopes.
func MarkWrite(s Scope) {
	if n, ok := s.(*NoopScope); ok && n != nil {
		n.MarkWrite()
	}
}

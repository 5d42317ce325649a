package txn

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/slotswap-backend/internal/platform/logger"
)

// Coordinator opens scopes against a single store.
type Coordinator struct {
	db         *gorm.DB
	capability *Capability
	log        *logger.Logger
}

// NewCoordinator returns a coordinator. db may be nil for stores that never
// run transactions; every scope is then a NoopScope.
func NewCoordinator(db *gorm.DB, capability *Capability, log *logger.Logger) *Coordinator {
	if log == nil {
		log = logger.Nop()
	}
	if capability == nil {
		capability = Fixed(ModeNone)
	}
	return &Coordinator{db: db, capability: capability, log: log.With("component", "TxnCoordinator")}
}

func (c *Coordinator) Capability() *Capability { return c.capability }

// Atomic reports whether Begin would currently return an AtomicScope.
func (c *Coordinator) Atomic(ctx context.Context) bool {
	return c.db != nil && c.capability.Atomic(ctx)
}

func (c *Coordinator) Begin(ctx context.Context) (Scope, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !c.Atomic(ctx) {
		return newNoopScope(ctx, c.log), nil
	}
	tx := c.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	return newAtomicScope(ctx, tx), nil
}

// InTx runs fn inside a fresh scope. It commits when fn returns nil and aborts
// on error or panic; a panic is re-raised after the abort.
func (c *Coordinator) InTx(ctx context.Context, fn func(s Scope) error) (err error) {
	if fn == nil {
		return nil
	}
	s, err := c.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			if abortErr := s.Abort(); abortErr != nil {
				c.log.Error("abort after panic failed", "error", abortErr)
			}
			panic(r)
		}
	}()

	if err = fn(s); err != nil {
		if abortErr := s.Abort(); abortErr != nil {
			c.log.Error("abort failed", "error", abortErr, "cause", err)
		}
		return err
	}
	if err = s.Commit(); err != nil {
		_ = s.Abort()
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

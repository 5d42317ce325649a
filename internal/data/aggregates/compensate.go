package aggregates

import (
	"github.com/yungbote/slotswap-backend/internal/data/txn"
	"github.com/yungbote/slotswap-backend/internal/platform/dbctx"
	"github.com/yungbote/slotswap-backend/internal/platform/logger"
)

type compensationStep struct {
	name string
	fn   func(dbc dbctx.Context) error
}

// compensations records undo steps for writes made under a pass-through
// scope, where Abort leaves them applied. Under an atomic scope add is a
// no-op and the rollback does the work.
type compensations struct {
	scope txn.Scope
	steps []compensationStep
}

func newCompensations(s txn.Scope) *compensations {
	return &compensations{scope: s}
}

// wrote marks a write on the scope and registers how to undo it.
func (c *compensations) wrote(name string, undo func(dbc dbctx.Context) error) {
	txn.MarkWrite(c.scope)
	if c.scope.Atomic() || undo == nil {
		return
	}
	c.steps = append(c.steps, compensationStep{name: name, fn: undo})
}

// run applies undo steps newest first. Failures are logged and skipped.
func (c *compensations) run(log *logger.Logger) {
	if len(c.steps) == 0 {
		return
	}
	dbc := c.scope.DB()
	for i := len(c.steps) - 1; i >= 0; i-- {
		step := c.steps[i]
		if err := step.fn(dbc); err != nil {
			log.Warn("compensation step failed", "step", step.name, "error", err)
			continue
		}
		log.Debug("compensation step applied", "step", step.name)
	}
	c.steps = nil
}

// guard runs body and, on error, compensates before the scope aborts.
func guard(s txn.Scope, log *logger.Logger, body func(c *compensations) error) error {
	c := newCompensations(s)
	err := body(c)
	if err != nil {
		c.run(log)
	}
	return err
}

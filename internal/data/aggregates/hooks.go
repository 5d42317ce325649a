package aggregates

import (
	"time"

	"github.com/yungbote/slotswap-backend/internal/observability"
)

// WriteOutcome describes one aggregate write after its scope has closed.
type WriteOutcome struct {
	Op     string
	Status string // "success" or the aggregate error code
	// Atomic is false when the write ran in a pass-through scope and relied
	// on compensations instead of a rollback.
	Atomic    bool
	Conflict  bool
	Retryable bool
	Duration  time.Duration
}

// Hooks receives one WriteOutcome per aggregate write.
type Hooks interface {
	WriteFinished(WriteOutcome)
}

// HooksFunc adapts a plain function to Hooks.
type HooksFunc func(WriteOutcome)

func (f HooksFunc) WriteFinished(o WriteOutcome) {
	if f != nil {
		f(o)
	}
}

// NewObservabilityHooks feeds write outcomes into the prometheus collectors.
// A nil metrics value yields hooks that drop everything.
func NewObservabilityHooks(metrics *observability.Metrics) Hooks {
	return HooksFunc(func(o WriteOutcome) {
		metrics.ObserveAggregateOperation(o.Op, o.Status, o.Duration)
		if o.Conflict {
			metrics.IncAggregateConflict(o.Op)
		}
		if o.Retryable {
			metrics.IncAggregateRetry(o.Op)
		}
	})
}

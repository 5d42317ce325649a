package testutil

import (
	"sync"

	"github.com/yungbote/slotswap-backend/internal/data/aggregates"
)

// HooksRecorder keeps every write outcome reported by an aggregate.
type HooksRecorder struct {
	mu       sync.Mutex
	outcomes []aggregates.WriteOutcome
}

var _ aggregates.Hooks = (*HooksRecorder)(nil)

func (h *HooksRecorder) WriteFinished(o aggregates.WriteOutcome) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.outcomes = append(h.outcomes, o)
}

// Outcomes returns the recorded outcomes for op, oldest first.
func (h *HooksRecorder) Outcomes(op string) []aggregates.WriteOutcome {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []aggregates.WriteOutcome
	for _, o := range h.outcomes {
		if o.Op == op {
			out = append(out, o)
		}
	}
	return out
}

// Statuses returns the recorded statuses for op, oldest first.
func (h *HooksRecorder) Statuses(op string) []string {
	var out []string
	for _, o := range h.Outcomes(op) {
		out = append(out, o.Status)
	}
	return out
}

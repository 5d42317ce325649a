package txn

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"github.com/yungbote/slotswap-backend/internal/platform/logger"
)

type Mode string

const (
	ModeAtomic Mode = "atomic"
	ModeNone   Mode = "none"
)

const DefaultProbeTimeout = 3 * time.Second

// Prober reports whether a store can commit or abort writes to several
// documents as one unit.
type Prober interface {
	SupportsTransactions(ctx context.Context) (bool, error)
}

// Status is a point-in-time view of the probe result.
type Status struct {
	Mode     Mode      `json:"mode"`
	Probed   bool      `json:"probed"`
	ProbedAt time.Time `json:"probed_at,omitempty"`
	Reason   string    `json:"reason,omitempty"`
}

// Capability caches the atomicity probe for the lifetime of its owner. It is
// probed at most once unless Refresh is called.
type Capability struct {
	prober  Prober
	timeout time.Duration
	log     *logger.Logger

	mu     sync.Mutex
	status Status
	fixed  bool

	// flight collapses concurrent probes; mu is never held while one runs.
	flight singleflight.Group
}

func NewCapability(prober Prober, timeout time.Duration, log *logger.Logger) *Capability {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Capability{
		prober:  prober,
		timeout: timeout,
		log:     log.With("component", "TxnCapability"),
	}
}

// ProbeCapability builds a capability and probes the store immediately.
func ProbeCapability(ctx context.Context, prober Prober, timeout time.Duration, log *logger.Logger) *Capability {
	c := NewCapability(prober, timeout, log)
	c.Refresh(ctx)
	return c
}

// Fixed returns a capability pinned to mode that never probes.
func Fixed(mode Mode) *Capability {
	return &Capability{
		log:    logger.Nop(),
		fixed:  true,
		status: Status{Mode: mode, Probed: true, ProbedAt: time.Now().UTC(), Reason: "configured"},
	}
}

// ParseMode maps "auto", "atomic" and "none" style config values. Auto yields
// an empty mode.
func ParseMode(raw string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "auto":
		return "", nil
	case "atomic", "tx", "transactions":
		return ModeAtomic, nil
	case "none", "noop", "off":
		return ModeNone, nil
	default:
		return "", fmt.Errorf("unknown transaction mode %q", raw)
	}
}

// Atomic reports whether scopes should be real transactions, probing on first use.
func (c *Capability) Atomic(ctx context.Context) bool {
	st := c.Status()
	if !st.Probed {
		st = c.probe(ctx)
	}
	return st.Mode == ModeAtomic
}

// Refresh probes again and replaces the cached result. Pinned capabilities
// keep their mode. Readers see the previous result until the probe finishes.
func (c *Capability) Refresh(ctx context.Context) Status {
	if c.fixed {
		return c.Status()
	}
	return c.probe(ctx)
}

func (c *Capability) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

func (c *Capability) probe(ctx context.Context) Status {
	if ctx == nil {
		ctx = context.Background()
	}
	// The result is shared and cached, so one caller giving up must not
	// cancel it for the others.
	ctx = context.WithoutCancel(ctx)
	v, _, _ := c.flight.Do("probe", func() (any, error) {
		mode, reason := c.runProbe(ctx)
		st := Status{Mode: mode, Probed: true, ProbedAt: time.Now().UTC(), Reason: reason}
		c.mu.Lock()
		c.status = st
		c.mu.Unlock()
		if mode == ModeAtomic {
			c.log.Info("store supports transactions", "mode", mode)
		} else {
			c.log.Warn("store transactions unavailable, aborts will not roll back writes", "mode", mode, "reason", reason)
		}
		return st, nil
	})
	return v.(Status)
}

type probeResult struct {
	ok  bool
	err error
}

// runProbe never waits longer than the configured timeout, even if the
// prober ignores context cancellation.
func (c *Capability) runProbe(ctx context.Context) (Mode, string) {
	if c.prober == nil {
		return ModeNone, "no prober configured"
	}
	pctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	done := make(chan probeResult, 1)
	go func() {
		ok, err := c.prober.SupportsTransactions(pctx)
		done <- probeResult{ok: ok, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return ModeNone, res.err.Error()
		}
		if !res.ok {
			return ModeNone, "store reported no transaction support"
		}
		return ModeAtomic, ""
	case <-pctx.Done():
		if errors.Is(pctx.Err(), context.DeadlineExceeded) {
			return ModeNone, fmt.Sprintf("probe timed out after %s", c.timeout)
		}
		return ModeNone, pctx.Err().Error()
	}
}

// GormProber opens and rolls back an empty transaction.
type GormProber struct {
	DB *gorm.DB
}

func (p GormProber) SupportsTransactions(ctx context.Context) (bool, error) {
	if p.DB == nil {
		return false, errors.New("nil db")
	}
	tx := p.DB.WithContext(ctx).Begin()
	if tx.Error != nil {
		return false, tx.Error
	}
	if err := tx.Exec("SELECT 1").Error; err != nil {
		_ = tx.Rollback()
		return false, err
	}
	if err := tx.Rollback().Error; err != nil {
		return false, err
	}
	return true, nil
}

package txn

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type probeRow struct {
	ID   uint `gorm:"primaryKey"`
	Name string
}

func openSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:txn_%s_%d?mode=memory&cache=shared", name, time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := db.AutoMigrate(&probeRow{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func countRows(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	if err := db.Model(&probeRow{}).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

type countingProber struct {
	calls atomic.Int32
	ok    bool
	err   error
}

func (p *countingProber) SupportsTransactions(context.Context) (bool, error) {
	p.calls.Add(1)
	return p.ok, p.err
}

type stuckProber struct{ release chan struct{} }

func (p stuckProber) SupportsTransactions(context.Context) (bool, error) {
	<-p.release
	return true, nil
}

func TestCapabilityProbesOnceUntilRefresh(t *testing.T) {
	p := &countingProber{ok: true}
	c := NewCapability(p, time.Second, nil)
	for i := 0; i < 3; i++ {
		if !c.Atomic(context.Background()) {
			t.Fatalf("expected atomic mode")
		}
	}
	if got := p.calls.Load(); got != 1 {
		t.Fatalf("expected one probe, got %d", got)
	}
	st := c.Refresh(context.Background())
	if st.Mode != ModeAtomic || !st.Probed {
		t.Fatalf("unexpected status after refresh: %+v", st)
	}
	if got := p.calls.Load(); got != 2 {
		t.Fatalf("expected refresh to probe again, got %d calls", got)
	}
}

// gatedProber blocks every call made while hold is set until release closes.
type gatedProber struct {
	hold    atomic.Bool
	entered chan struct{}
	release chan struct{}
}

func (p *gatedProber) SupportsTransactions(context.Context) (bool, error) {
	if p.hold.Load() {
		p.entered <- struct{}{}
		<-p.release
	}
	return true, nil
}

func TestCapabilityReadsDoNotWaitForRefresh(t *testing.T) {
	p := &gatedProber{entered: make(chan struct{}, 1), release: make(chan struct{})}
	c := ProbeCapability(context.Background(), p, 5*time.Second, nil)
	first := c.Status()
	if first.Mode != ModeAtomic {
		t.Fatalf("expected atomic after first probe, got %+v", first)
	}

	p.hold.Store(true)
	refreshed := make(chan Status, 1)
	go func() { refreshed <- c.Refresh(context.Background()) }()
	<-p.entered

	reads := make(chan bool, 1)
	go func() {
		st := c.Status()
		reads <- st.Mode == ModeAtomic && st.ProbedAt.Equal(first.ProbedAt) && c.Atomic(context.Background())
	}()
	select {
	case ok := <-reads:
		if !ok {
			t.Fatalf("expected the previous result while refresh runs")
		}
	case <-time.After(time.Second):
		t.Fatalf("Status and Atomic blocked behind a running probe")
	}

	close(p.release)
	select {
	case st := <-refreshed:
		if st.Mode != ModeAtomic || st.ProbedAt.Before(first.ProbedAt) {
			t.Fatalf("unexpected refreshed status: %+v", st)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("refresh never finished")
	}
}

func TestCapabilityProbeErrorIsConservative(t *testing.T) {
	p := &countingProber{ok: true, err: errors.New("boom")}
	c := ProbeCapability(context.Background(), p, time.Second, nil)
	if c.Atomic(context.Background()) {
		t.Fatalf("expected no atomicity on probe error")
	}
	if st := c.Status(); st.Mode != ModeNone || !strings.Contains(st.Reason, "boom") {
		t.Fatalf("unexpected status: %+v", st)
	}
}

func TestCapabilityProbeTimeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	start := time.Now()
	c := ProbeCapability(context.Background(), stuckProber{release: release}, 30*time.Millisecond, nil)
	if c.Atomic(context.Background()) {
		t.Fatalf("expected no atomicity after timeout")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("probe did not honor timeout: %s", elapsed)
	}
	if st := c.Status(); !strings.Contains(st.Reason, "timed out") {
		t.Fatalf("expected timeout reason, got %q", st.Reason)
	}
}

func TestCapabilityNilProber(t *testing.T) {
	c := NewCapability(nil, 0, nil)
	if c.Atomic(context.Background()) {
		t.Fatalf("nil prober must not report atomicity")
	}
}

func TestFixedCapabilityIgnoresRefresh(t *testing.T) {
	c := Fixed(ModeAtomic)
	if st := c.Refresh(context.Background()); st.Mode != ModeAtomic || st.Reason != "configured" {
		t.Fatalf("unexpected fixed status: %+v", st)
	}
}

func TestParseMode(t *testing.T) {
	cases := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"", "", false},
		{"auto", "", false},
		{"ATOMIC", ModeAtomic, false},
		{" none ", ModeNone, false},
		{"sometimes", "", true},
	}
	for _, tc := range cases {
		got, err := ParseMode(tc.in)
		if (err != nil) != tc.wantErr {
			t.Fatalf("ParseMode(%q) err=%v wantErr=%v", tc.in, err, tc.wantErr)
		}
		if got != tc.want {
			t.Fatalf("ParseMode(%q)=%q want %q", tc.in, got, tc.want)
		}
	}
}

func TestGormProberOnSQLite(t *testing.T) {
	db := openSQLite(t)
	ok, err := GormProber{DB: db}.SupportsTransactions(context.Background())
	if err != nil || !ok {
		t.Fatalf("expected sqlite to support transactions, ok=%v err=%v", ok, err)
	}
}

func TestAtomicScopeAbortRollsBack(t *testing.T) {
	db := openSQLite(t)
	coord := NewCoordinator(db, Fixed(ModeAtomic), nil)

	s, err := coord.Begin(context.Background())
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if !s.Atomic() {
		t.Fatalf("expected atomic scope")
	}
	if err := s.DB().Tx.Create(&probeRow{Name: "a"}).Error; err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.Abort(); err != nil {
		t.Fatalf("abort: %v", err)
	}
	if err := s.Abort(); err != nil {
		t.Fatalf("second abort: %v", err)
	}
	if err := s.Commit(); err != nil {
		t.Fatalf("commit after abort: %v", err)
	}
	if n := countRows(t, db); n != 0 {
		t.Fatalf("expected rollback, found %d rows", n)
	}
}

func TestAtomicScopeCommitThenAbortIsNoop(t *testing.T) {
	db := openSQLite(t)
	coord := NewCoordinator(db, Fixed(ModeAtomic), nil)

	s, err := coord.Begin(context.Background())
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := s.DB().Tx.Create(&probeRow{Name: "a"}).Error; err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if err := s.Abort(); err != nil {
		t.Fatalf("abort after commit: %v", err)
	}
	if n := countRows(t, db); n != 1 {
		t.Fatalf("expected committed row, found %d", n)
	}
}

func TestNoopScopeAbortKeepsWrites(t *testing.T) {
	db := openSQLite(t)
	coord := NewCoordinator(db, Fixed(ModeNone), nil)

	s, err := coord.Begin(context.Background())
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if s.Atomic() {
		t.Fatalf("expected noop scope")
	}
	if s.DB().Tx != nil {
		t.Fatalf("noop scope must not carry a transaction")
	}
	if err := db.Create(&probeRow{Name: "a"}).Error; err != nil {
		t.Fatalf("create: %v", err)
	}
	MarkWrite(s)
	if err := s.Abort(); err != nil {
		t.Fatalf("abort: %v", err)
	}
	if n := countRows(t, db); n != 1 {
		t.Fatalf("noop abort cannot undo writes, expected 1 row, found %d", n)
	}
}

func TestCoordinatorWithoutDBIsNoop(t *testing.T) {
	coord := NewCoordinator(nil, Fixed(ModeAtomic), nil)
	s, err := coord.Begin(context.Background())
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if s.Atomic() {
		t.Fatalf("expected noop scope without db")
	}
}

func TestInTxCommitsAndAborts(t *testing.T) {
	db := openSQLite(t)
	coord := NewCoordinator(db, Fixed(ModeAtomic), nil)
	ctx := context.Background()

	err := coord.InTx(ctx, func(s Scope) error {
		return s.DB().Tx.Create(&probeRow{Name: "kept"}).Error
	})
	if err != nil {
		t.Fatalf("in tx: %v", err)
	}

	sentinel := errors.New("fail")
	err = coord.InTx(ctx, func(s Scope) error {
		if err := s.DB().Tx.Create(&probeRow{Name: "dropped"}).Error; err != nil {
			return err
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel error, got %v", err)
	}
	if n := countRows(t, db); n != 1 {
		t.Fatalf("expected 1 row, found %d", n)
	}
}

func TestInTxAbortsOnPanic(t *testing.T) {
	db := openSQLite(t)
	coord := NewCoordinator(db, Fixed(ModeAtomic), nil)

	func() {
		defer func() {
			if r := recover(); r == nil {
				t.Fatalf("expected panic to propagate")
			}
		}()
		_ = coord.InTx(context.Background(), func(s Scope) error {
			if err := s.DB().Tx.Create(&probeRow{Name: "x"}).Error; err != nil {
				return err
			}
			panic("kaboom")
		})
	}()

	if n := countRows(t, db); n != 0 {
		t.Fatalf("expected rollback after panic, found %d rows", n)
	}
}

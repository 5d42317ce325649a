package aggregates_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/slotswap-backend/internal/data/aggregates"
	aggtest "github.com/yungbote/slotswap-backend/internal/data/aggregates/testutil"
	"github.com/yungbote/slotswap-backend/internal/data/repos"
	"github.com/yungbote/slotswap-backend/internal/data/repos/testutil"
	"github.com/yungbote/slotswap-backend/internal/data/txn"
	types "github.com/yungbote/slotswap-backend/internal/domain"
	domainagg "github.com/yungbote/slotswap-backend/internal/domain/aggregates"
	"github.com/yungbote/slotswap-backend/internal/platform/dbctx"
)

type swapFixture struct {
	db    *gorm.DB
	set   repos.Set
	hooks *aggtest.HooksRecorder
	agg   domainagg.SwapAggregate

	alice, bob, carol *types.User
}

func newSwapFixture(t *testing.T, mode txn.Mode) *swapFixture {
	t.Helper()
	return newSwapFixtureWith(t, mode, nil)
}

func newSwapFixtureWith(t *testing.T, mode txn.Mode, wrapEvents func(repos.SwapEventRepo) repos.SwapEventRepo) *swapFixture {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	set := repos.NewGormSet(db, log)
	events := set.SwapEvent
	if wrapEvents != nil {
		events = wrapEvents(events)
	}
	hooks := &aggtest.HooksRecorder{}
	f := &swapFixture{
		db:    db,
		set:   set,
		hooks: hooks,
		agg: aggregates.NewSwapAggregate(aggregates.SwapAggregateDeps{
			Base: aggregates.BaseDeps{
				Log:    log,
				Runner: txn.NewCoordinator(db, txn.Fixed(mode), log),
				Hooks:  hooks,
			},
			Slots:    set.Slot,
			Requests: set.SwapRequest,
			Events:   events,
			Users:    set.Directory,
		}),
	}
	f.alice = testutil.SeedUser(t, db, "Alice", "alice@example.com")
	f.bob = testutil.SeedUser(t, db, "Bob", "bob@example.com")
	f.carol = testutil.SeedUser(t, db, "Carol", "carol@example.com")
	return f
}

func bg() dbctx.Context { return dbctx.Background(context.Background()) }

func (f *swapFixture) slot(t *testing.T, owner *types.User, status types.SlotStatus) *types.Slot {
	t.Helper()
	return testutil.SeedSlot(t, f.db, owner.ID, owner.Name+" slot", status)
}

func (f *swapFixture) reload(t *testing.T, id uuid.UUID) *types.Slot {
	t.Helper()
	s, err := f.set.Slot.GetByID(bg(), id)
	if err != nil {
		t.Fatalf("reload slot: %v", err)
	}
	if s == nil {
		t.Fatalf("slot %s missing", id)
	}
	assertLockInvariant(t, s)
	return s
}

func (f *swapFixture) request(t *testing.T, id uuid.UUID) *types.SwapRequest {
	t.Helper()
	r, err := f.set.SwapRequest.GetByID(bg(), id)
	if err != nil {
		t.Fatalf("reload request: %v", err)
	}
	return r
}

func (f *swapFixture) create(t *testing.T, requester *types.User, mine, theirs *types.Slot) *types.SwapRequest {
	t.Helper()
	req, err := f.agg.CreateRequest(context.Background(), domainagg.CreateSwapRequestInput{
		RequesterID:     requester.ID,
		RequesterSlotID: mine.ID,
		TargetSlotID:    theirs.ID,
	})
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	return req
}

func assertLockInvariant(t *testing.T, s *types.Slot) {
	t.Helper()
	if (s.Status == types.SlotStatusLocked) != (s.LockRef != nil) {
		t.Fatalf("slot %s status=%s lock_ref=%v breaks lock invariant", s.ID, s.Status, s.LockRef)
	}
}

func assertCode(t *testing.T, err error, code domainagg.ErrorCode) {
	t.Helper()
	if !domainagg.IsCode(err, code) {
		t.Fatalf("expected code %s, got %q (%v)", code, domainagg.CodeOf(err), err)
	}
}

func eventKinds(t *testing.T, f *swapFixture, requestID uuid.UUID) map[string]int {
	t.Helper()
	evs, err := f.set.SwapEvent.ListByRequest(bg(), requestID)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	out := map[string]int{}
	for _, ev := range evs {
		out[ev.Kind]++
	}
	return out
}

func forEachMode(t *testing.T, fn func(t *testing.T, mode txn.Mode)) {
	for _, mode := range []txn.Mode{txn.ModeAtomic, txn.ModeNone} {
		t.Run(string(mode), func(t *testing.T) { fn(t, mode) })
	}
}

func TestSwapCreateLocksBothSlots(t *testing.T) {
	forEachMode(t, func(t *testing.T, mode txn.Mode) {
		f := newSwapFixture(t, mode)
		mine := f.slot(t, f.alice, types.SlotStatusOfferable)
		theirs := f.slot(t, f.bob, types.SlotStatusOfferable)

		req := f.create(t, f.alice, mine, theirs)
		if req.Status != types.RequestStatusPending {
			t.Fatalf("status: want=%s got=%s", types.RequestStatusPending, req.Status)
		}
		if req.TargetOwnerID != f.bob.ID {
			t.Fatalf("target owner: want=%s got=%s", f.bob.ID, req.TargetOwnerID)
		}
		if req.Requester == nil || req.Requester.Name != "Alice" {
			t.Fatalf("requester summary not populated: %+v", req.Requester)
		}
		if req.TargetOwner == nil || req.TargetOwner.Name != "Bob" {
			t.Fatalf("target owner summary not populated: %+v", req.TargetOwner)
		}

		for _, id := range []uuid.UUID{mine.ID, theirs.ID} {
			s := f.reload(t, id)
			if !s.LockedBy(req.ID) {
				t.Fatalf("slot %s should be locked by %s: %+v", id, req.ID, s)
			}
		}
		stored := f.request(t, req.ID)
		if stored == nil || !stored.Pending() {
			t.Fatalf("stored request not pending: %+v", stored)
		}
		if got := eventKinds(t, f, req.ID); got[types.EventKindCreated] != 1 {
			t.Fatalf("expected one created event, got %+v", got)
		}
		if st := f.hooks.Statuses("Swap.SwapAggregate.CreateRequest"); len(st) != 1 || st[0] != "success" {
			t.Fatalf("unexpected hook statuses: %+v", st)
		}
	})
}

func TestSwapAcceptExchangesOwners(t *testing.T) {
	forEachMode(t, func(t *testing.T, mode txn.Mode) {
		f := newSwapFixture(t, mode)
		mine := f.slot(t, f.alice, types.SlotStatusOfferable)
		theirs := f.slot(t, f.bob, types.SlotStatusOfferable)
		req := f.create(t, f.alice, mine, theirs)

		out, err := f.agg.Accept(context.Background(), domainagg.RespondSwapRequestInput{RequestID: req.ID, UserID: f.bob.ID})
		if err != nil {
			t.Fatalf("accept: %v", err)
		}
		if out.Status != types.RequestStatusAccepted {
			t.Fatalf("status: want=%s got=%s", types.RequestStatusAccepted, out.Status)
		}

		a := f.reload(t, mine.ID)
		b := f.reload(t, theirs.ID)
		if a.OwnerID != f.bob.ID || b.OwnerID != f.alice.ID {
			t.Fatalf("owners not exchanged: requester slot=%s target slot=%s", a.OwnerID, b.OwnerID)
		}
		for _, s := range []*types.Slot{a, b} {
			if s.Status != types.SlotStatusOccupied || s.LockRef != nil {
				t.Fatalf("slot %s should be occupied and unlocked: %+v", s.ID, s)
			}
		}
		if stored := f.request(t, req.ID); stored == nil || stored.Status != types.RequestStatusAccepted {
			t.Fatalf("stored request not accepted: %+v", stored)
		}
		kinds := eventKinds(t, f, req.ID)
		if kinds[types.EventKindCreated] != 1 || kinds[types.EventKindAccepted] != 1 {
			t.Fatalf("unexpected events: %+v", kinds)
		}

		_, err = f.agg.Accept(context.Background(), domainagg.RespondSwapRequestInput{RequestID: req.ID, UserID: f.bob.ID})
		assertCode(t, err, domainagg.CodeInvalidState)
	})
}

func TestSwapRejectReleasesSlots(t *testing.T) {
	forEachMode(t, func(t *testing.T, mode txn.Mode) {
		f := newSwapFixture(t, mode)
		mine := f.slot(t, f.alice, types.SlotStatusOfferable)
		theirs := f.slot(t, f.bob, types.SlotStatusOfferable)
		req := f.create(t, f.alice, mine, theirs)

		out, err := f.agg.Reject(context.Background(), domainagg.RespondSwapRequestInput{RequestID: req.ID, UserID: f.bob.ID})
		if err != nil {
			t.Fatalf("reject: %v", err)
		}
		if out.Status != types.RequestStatusRejected {
			t.Fatalf("status: want=%s got=%s", types.RequestStatusRejected, out.Status)
		}
		a := f.reload(t, mine.ID)
		b := f.reload(t, theirs.ID)
		if a.Status != types.SlotStatusOfferable || b.Status != types.SlotStatusOfferable {
			t.Fatalf("slots not released: %s %s", a.Status, b.Status)
		}
		if a.OwnerID != f.alice.ID || b.OwnerID != f.bob.ID {
			t.Fatalf("reject must not change owners")
		}

		// Released slots can be offered again.
		again := f.create(t, f.alice, mine, theirs)
		if again.ID == req.ID {
			t.Fatalf("expected a new request id")
		}

		_, err = f.agg.Accept(context.Background(), domainagg.RespondSwapRequestInput{RequestID: req.ID, UserID: f.bob.ID})
		assertCode(t, err, domainagg.CodeInvalidState)
	})
}

// stealLock points the slot's lock_ref at some other request, as a concurrent
// writer would.
func (f *swapFixture) stealLock(t *testing.T, slotID uuid.UUID) uuid.UUID {
	t.Helper()
	other := uuid.New()
	if err := f.db.Model(&types.Slot{}).Where("id = ?", slotID).Update("lock_ref", other).Error; err != nil {
		t.Fatalf("steal lock: %v", err)
	}
	return other
}

func TestSwapRejectSurvivesConcurrentSlotChanges(t *testing.T) {
	forEachMode(t, func(t *testing.T, mode txn.Mode) {
		f := newSwapFixture(t, mode)

		mine := f.slot(t, f.alice, types.SlotStatusOfferable)
		theirs := f.slot(t, f.bob, types.SlotStatusOfferable)
		req := f.create(t, f.alice, mine, theirs)
		if deleted, err := f.set.Slot.DeleteIfStatus(bg(), mine.ID); err != nil || !deleted {
			t.Fatalf("delete requester slot: deleted=%v err=%v", deleted, err)
		}
		out, err := f.agg.Reject(context.Background(), domainagg.RespondSwapRequestInput{RequestID: req.ID, UserID: f.bob.ID})
		if err != nil {
			t.Fatalf("reject with deleted slot: %v", err)
		}
		if out.Status != types.RequestStatusRejected {
			t.Fatalf("status: want=%s got=%s", types.RequestStatusRejected, out.Status)
		}
		if b := f.reload(t, theirs.ID); b.Status != types.SlotStatusOfferable || b.OwnerID != f.bob.ID {
			t.Fatalf("surviving slot not released: %+v", b)
		}

		spare := f.slot(t, f.carol, types.SlotStatusOfferable)
		req = f.create(t, f.carol, spare, theirs)
		other := f.stealLock(t, spare.ID)
		out, err = f.agg.Reject(context.Background(), domainagg.RespondSwapRequestInput{RequestID: req.ID, UserID: f.bob.ID})
		if err != nil {
			t.Fatalf("reject with foreign lock: %v", err)
		}
		if out.Status != types.RequestStatusRejected {
			t.Fatalf("status: want=%s got=%s", types.RequestStatusRejected, out.Status)
		}
		if s := f.reload(t, spare.ID); !s.LockedBy(other) {
			t.Fatalf("slot held by another request must be left alone: %+v", s)
		}
		if b := f.reload(t, theirs.ID); b.Status != types.SlotStatusOfferable {
			t.Fatalf("target slot not released: %+v", b)
		}
	})
}

func TestSwapAcceptRequiresOwnLock(t *testing.T) {
	forEachMode(t, func(t *testing.T, mode txn.Mode) {
		f := newSwapFixture(t, mode)
		mine := f.slot(t, f.alice, types.SlotStatusOfferable)
		theirs := f.slot(t, f.bob, types.SlotStatusOfferable)
		req := f.create(t, f.alice, mine, theirs)
		f.stealLock(t, theirs.ID)

		_, err := f.agg.Accept(context.Background(), domainagg.RespondSwapRequestInput{RequestID: req.ID, UserID: f.bob.ID})
		assertCode(t, err, domainagg.CodeInvalidState)

		a := f.reload(t, mine.ID)
		b := f.reload(t, theirs.ID)
		if a.OwnerID != f.alice.ID || b.OwnerID != f.bob.ID {
			t.Fatalf("owners changed by a refused accept: %s %s", a.OwnerID, b.OwnerID)
		}
		if !a.LockedBy(req.ID) {
			t.Fatalf("requester slot should still be held by the request: %+v", a)
		}
		if stored := f.request(t, req.ID); stored == nil || !stored.Pending() {
			t.Fatalf("request should stay pending: %+v", stored)
		}
	})
}

func TestSwapCancelDeletesRequest(t *testing.T) {
	forEachMode(t, func(t *testing.T, mode txn.Mode) {
		f := newSwapFixture(t, mode)
		mine := f.slot(t, f.alice, types.SlotStatusOfferable)
		theirs := f.slot(t, f.bob, types.SlotStatusOfferable)
		req := f.create(t, f.alice, mine, theirs)

		in := domainagg.RespondSwapRequestInput{RequestID: req.ID, UserID: f.alice.ID}
		if err := f.agg.Cancel(context.Background(), in); err != nil {
			t.Fatalf("cancel: %v", err)
		}
		if stored := f.request(t, req.ID); stored != nil {
			t.Fatalf("cancelled request should be deleted: %+v", stored)
		}
		for _, id := range []uuid.UUID{mine.ID, theirs.ID} {
			if s := f.reload(t, id); s.Status != types.SlotStatusOfferable {
				t.Fatalf("slot %s not released: %s", id, s.Status)
			}
		}
		if got := eventKinds(t, f, req.ID); got[types.EventKindCancelled] != 1 {
			t.Fatalf("expected cancelled event to survive deletion, got %+v", got)
		}

		assertCode(t, f.agg.Cancel(context.Background(), in), domainagg.CodeNotFound)
	})
}

func TestSwapAuthorization(t *testing.T) {
	f := newSwapFixture(t, txn.ModeAtomic)
	mine := f.slot(t, f.alice, types.SlotStatusOfferable)
	theirs := f.slot(t, f.bob, types.SlotStatusOfferable)

	_, err := f.agg.CreateRequest(context.Background(), domainagg.CreateSwapRequestInput{
		RequesterID:     f.carol.ID,
		RequesterSlotID: mine.ID,
		TargetSlotID:    theirs.ID,
	})
	assertCode(t, err, domainagg.CodeUnauthorized)
	if s := f.reload(t, mine.ID); s.Status != types.SlotStatusOfferable {
		t.Fatalf("failed create must not lock slots: %s", s.Status)
	}

	req := f.create(t, f.alice, mine, theirs)

	_, err = f.agg.Accept(context.Background(), domainagg.RespondSwapRequestInput{RequestID: req.ID, UserID: f.alice.ID})
	assertCode(t, err, domainagg.CodeUnauthorized)
	_, err = f.agg.Reject(context.Background(), domainagg.RespondSwapRequestInput{RequestID: req.ID, UserID: f.carol.ID})
	assertCode(t, err, domainagg.CodeUnauthorized)
	assertCode(t, f.agg.Cancel(context.Background(), domainagg.RespondSwapRequestInput{RequestID: req.ID, UserID: f.bob.ID}), domainagg.CodeUnauthorized)

	if stored := f.request(t, req.ID); stored == nil || !stored.Pending() {
		t.Fatalf("request should remain pending: %+v", stored)
	}
}

func TestSwapSelfSwap(t *testing.T) {
	f := newSwapFixture(t, txn.ModeAtomic)
	a1 := f.slot(t, f.alice, types.SlotStatusOfferable)
	a2 := f.slot(t, f.alice, types.SlotStatusOfferable)

	_, err := f.agg.CreateRequest(context.Background(), domainagg.CreateSwapRequestInput{
		RequesterID: f.alice.ID, RequesterSlotID: a1.ID, TargetSlotID: a1.ID,
	})
	assertCode(t, err, domainagg.CodeSelfSwap)

	_, err = f.agg.CreateRequest(context.Background(), domainagg.CreateSwapRequestInput{
		RequesterID: f.alice.ID, RequesterSlotID: a1.ID, TargetSlotID: a2.ID,
	})
	assertCode(t, err, domainagg.CodeSelfSwap)
}

func TestSwapInvalidStateAndNotFound(t *testing.T) {
	forEachMode(t, func(t *testing.T, mode txn.Mode) {
		f := newSwapFixture(t, mode)
		mine := f.slot(t, f.alice, types.SlotStatusOfferable)
		busy := f.slot(t, f.bob, types.SlotStatusOccupied)
		theirs := f.slot(t, f.bob, types.SlotStatusOfferable)
		other := f.slot(t, f.carol, types.SlotStatusOfferable)

		_, err := f.agg.CreateRequest(context.Background(), domainagg.CreateSwapRequestInput{
			RequesterID: f.alice.ID, RequesterSlotID: mine.ID, TargetSlotID: busy.ID,
		})
		assertCode(t, err, domainagg.CodeInvalidState)

		_, err = f.agg.CreateRequest(context.Background(), domainagg.CreateSwapRequestInput{
			RequesterID: f.alice.ID, RequesterSlotID: mine.ID, TargetSlotID: uuid.New(),
		})
		assertCode(t, err, domainagg.CodeNotFound)

		_, err = f.agg.CreateRequest(context.Background(), domainagg.CreateSwapRequestInput{
			RequesterID: f.alice.ID, RequesterSlotID: uuid.Nil, TargetSlotID: theirs.ID,
		})
		assertCode(t, err, domainagg.CodeValidation)

		f.create(t, f.alice, mine, theirs)

		// Both slots are held now; neither can back a second request.
		_, err = f.agg.CreateRequest(context.Background(), domainagg.CreateSwapRequestInput{
			RequesterID: f.carol.ID, RequesterSlotID: other.ID, TargetSlotID: theirs.ID,
		})
		assertCode(t, err, domainagg.CodeInvalidState)
		if s := f.reload(t, other.ID); s.Status != types.SlotStatusOfferable {
			t.Fatalf("losing requester slot must stay offerable: %s", s.Status)
		}

		_, err = f.agg.Accept(context.Background(), domainagg.RespondSwapRequestInput{RequestID: uuid.New(), UserID: f.bob.ID})
		assertCode(t, err, domainagg.CodeNotFound)
	})
}

func TestSwapConcurrentCreatesHoldOneLock(t *testing.T) {
	// Without transactions the status and lock_ref guards alone must pick one winner.
	forEachMode(t, func(t *testing.T, mode txn.Mode) {
		f := newSwapFixture(t, mode)
		target := f.slot(t, f.bob, types.SlotStatusOfferable)

		const n = 6
		offered := make([]*types.Slot, n)
		for i := range offered {
			offered[i] = f.slot(t, f.alice, types.SlotStatusOfferable)
		}

		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			wins int
			errs []error
		)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(s *types.Slot) {
				defer wg.Done()
				_, err := f.agg.CreateRequest(context.Background(), domainagg.CreateSwapRequestInput{
					RequesterID: f.alice.ID, RequesterSlotID: s.ID, TargetSlotID: target.ID,
				})
				mu.Lock()
				defer mu.Unlock()
				if err == nil {
					wins++
					return
				}
				errs = append(errs, err)
			}(offered[i])
		}
		wg.Wait()

		if wins != 1 {
			t.Fatalf("expected exactly one winning create, got %d (errs=%v)", wins, errs)
		}
		for _, err := range errs {
			assertCode(t, err, domainagg.CodeInvalidState)
		}
		pending, err := f.set.SwapRequest.ListPendingBySlot(bg(), target.ID)
		if err != nil {
			t.Fatalf("list pending: %v", err)
		}
		if len(pending) != 1 {
			t.Fatalf("expected one pending request for target slot, got %d", len(pending))
		}
		locked := 0
		for _, s := range offered {
			if f.reload(t, s.ID).Status == types.SlotStatusLocked {
				locked++
			}
		}
		if locked != 1 {
			t.Fatalf("expected one locked requester slot, got %d", locked)
		}
	})
}

func failEventsOf(kind string, err error) func(repos.SwapEventRepo) repos.SwapEventRepo {
	return func(inner repos.SwapEventRepo) repos.SwapEventRepo {
		return &failingEvents{SwapEventRepo: inner, kind: kind, err: err}
	}
}

type failingEvents struct {
	repos.SwapEventRepo
	kind string
	err  error
}

func (e *failingEvents) Append(dbc dbctx.Context, row *types.SwapEvent) error {
	if row != nil && row.Kind == e.kind {
		return e.err
	}
	return e.SwapEventRepo.Append(dbc, row)
}

func TestSwapCreateFailureLeavesNoTrace(t *testing.T) {
	forEachMode(t, func(t *testing.T, mode txn.Mode) {
		boom := errors.New("event store unavailable")
		f := newSwapFixtureWith(t, mode, failEventsOf(types.EventKindCreated, boom))
		mine := f.slot(t, f.alice, types.SlotStatusOfferable)
		theirs := f.slot(t, f.bob, types.SlotStatusOfferable)

		_, err := f.agg.CreateRequest(context.Background(), domainagg.CreateSwapRequestInput{
			RequesterID: f.alice.ID, RequesterSlotID: mine.ID, TargetSlotID: theirs.ID,
		})
		assertCode(t, err, domainagg.CodeInternal)
		if !errors.Is(err, boom) {
			t.Fatalf("expected cause to be preserved, got %v", err)
		}

		for _, id := range []uuid.UUID{mine.ID, theirs.ID} {
			s := f.reload(t, id)
			if s.Status != types.SlotStatusOfferable {
				t.Fatalf("slot %s should be offerable after failed create, got %s", id, s.Status)
			}
		}
		pending, err := f.set.SwapRequest.ListPendingByRequester(bg(), f.alice.ID)
		if err != nil {
			t.Fatalf("list pending: %v", err)
		}
		if len(pending) != 0 {
			t.Fatalf("failed create left %d pending requests", len(pending))
		}
	})
}

func TestSwapAcceptFailureRestoresPending(t *testing.T) {
	forEachMode(t, func(t *testing.T, mode txn.Mode) {
		boom := errors.New("event store unavailable")
		f := newSwapFixtureWith(t, mode, failEventsOf(types.EventKindAccepted, boom))
		mine := f.slot(t, f.alice, types.SlotStatusOfferable)
		theirs := f.slot(t, f.bob, types.SlotStatusOfferable)
		req := f.create(t, f.alice, mine, theirs)

		_, err := f.agg.Accept(context.Background(), domainagg.RespondSwapRequestInput{RequestID: req.ID, UserID: f.bob.ID})
		if err == nil {
			t.Fatalf("expected accept to fail")
		}

		if stored := f.request(t, req.ID); stored == nil || !stored.Pending() {
			t.Fatalf("request should be pending again: %+v", stored)
		}
		a := f.reload(t, mine.ID)
		b := f.reload(t, theirs.ID)
		if !a.LockedBy(req.ID) || !b.LockedBy(req.ID) {
			t.Fatalf("slots should still be held by the request: %+v %+v", a, b)
		}
		if a.OwnerID != f.alice.ID || b.OwnerID != f.bob.ID {
			t.Fatalf("owners should be unchanged after failed accept")
		}
	})
}

func TestSwapRunnerFailureIsMapped(t *testing.T) {
	f := newSwapFixture(t, txn.ModeNone)
	mine := f.slot(t, f.alice, types.SlotStatusOfferable)
	theirs := f.slot(t, f.bob, types.SlotStatusOfferable)

	runner := &aggtest.InjectedTxRunner{FailBegin: aggregates.RetryableError("pool exhausted")}
	agg := aggregates.NewSwapAggregate(aggregates.SwapAggregateDeps{
		Base:     aggregates.BaseDeps{Runner: runner},
		Slots:    f.set.Slot,
		Requests: f.set.SwapRequest,
	})
	_, err := agg.CreateRequest(context.Background(), domainagg.CreateSwapRequestInput{
		RequesterID: f.alice.ID, RequesterSlotID: mine.ID, TargetSlotID: theirs.ID,
	})
	assertCode(t, err, domainagg.CodeRetryable)
	if runner.BeginCalls != 1 || runner.CommitCalls != 0 {
		t.Fatalf("unexpected runner counters: %+v", runner)
	}
	if s := f.reload(t, mine.ID); s.Status != types.SlotStatusOfferable {
		t.Fatalf("slot should be untouched: %s", s.Status)
	}
}

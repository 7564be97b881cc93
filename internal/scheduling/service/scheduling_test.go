package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	schedulingerrors "slotbook/internal/scheduling/errors"
	"slotbook/internal/scheduling/repository"
	"slotbook/internal/testutil"
	"slotbook/pkg/config"
	"slotbook/pkg/db"
	apperrors "slotbook/pkg/errors"
	"slotbook/pkg/events"
	"slotbook/pkg/model"
	"slotbook/pkg/profile"
	"slotbook/pkg/timenorm"
)

// ────────────────────────────────────────────────
// Test harness
// ────────────────────────────────────────────────

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, 0, len(p.events))
	for _, e := range p.events {
		types = append(types, e.Type)
	}
	return types
}

type rateFunc func(ctx context.Context, providerID string) (int64, error)

func (f rateFunc) HourlyRateCents(ctx context.Context, providerID string) (int64, error) {
	return f(ctx, providerID)
}

type harness struct {
	svc       SchedulingService
	store     *repository.Store
	clock     *testClock
	publisher *recordingPublisher
	build     func()
}

const (
	trainer = "trainer-1"
	clientA = "client-a"
	clientB = "client-b"
)

// Day before the booked sessions, in UTC.
var dayBefore = time.Date(2025, 1, 9, 12, 0, 0, 0, time.UTC)

func newHarness(t *testing.T, rates profile.RateProvider) *harness {
	t.Helper()

	normalizer, err := timenorm.NewFromName("Asia/Jerusalem")
	if err != nil {
		t.Fatalf("load zone: %v", err)
	}
	if rates == nil {
		rates = profile.StaticRateProvider{Cents: 12000}
	}
	cfg := &config.Config{
		Log:               testutil.NewLogger(),
		ReservationExpiry: time.Hour,
		StoreMaxAttempts:  3,
		SweepBatchSize:    10,
	}

	h := &harness{
		store:     repository.NewSQLStore(testutil.NewSQLiteDB(t)),
		clock:     &testClock{now: dayBefore},
		publisher: &recordingPublisher{},
	}
	h.build = func() {
		h.svc = NewSchedulingService(h.store, normalizer, rates, h.publisher, cfg, h.clock.Now)
	}
	h.build()
	return h
}

// directTx runs fn without a transaction so concurrent callers are not
// serialized by the single test connection.
type directTx struct{}

func (directTx) ExecuteTransaction(ctx context.Context, fn db.TxFunc) error {
	return fn(ctx)
}

// overlapBarrier holds every FindActiveOverlapping call until n callers have
// made one, so each caller has already read the window as open and found no
// active reservation before anyone writes.
type overlapBarrier struct {
	repository.ReservationRepository
	n        int
	mu       sync.Mutex
	arrived  int
	released chan struct{}
}

func newOverlapBarrier(next repository.ReservationRepository, n int) *overlapBarrier {
	return &overlapBarrier{ReservationRepository: next, n: n, released: make(chan struct{})}
}

func (b *overlapBarrier) FindActiveOverlapping(ctx context.Context, providerID string, start, end time.Time) ([]*model.Reservation, error) {
	found, err := b.ReservationRepository.FindActiveOverlapping(ctx, providerID, start, end)

	b.mu.Lock()
	b.arrived++
	if b.arrived == b.n {
		close(b.released)
	}
	b.mu.Unlock()

	select {
	case <-b.released:
	case <-time.After(5 * time.Second):
		return nil, errors.New("callers never met at the barrier")
	}
	return found, err
}

func (h *harness) addWindow(t *testing.T, date, start, end string) *model.AvailabilityWindow {
	t.Helper()
	w, err := h.svc.AddWindow(context.Background(), AddWindowInput{
		ProviderID: trainer,
		Date:       date,
		StartLocal: start,
		EndLocal:   end,
	})
	if err != nil {
		t.Fatalf("add window %s %s-%s: %v", date, start, end, err)
	}
	return w
}

func (h *harness) book(clientID, windowID string) (*model.Reservation, error) {
	return h.svc.CreateReservation(context.Background(), CreateReservationInput{
		ClientID:   clientID,
		ProviderID: trainer,
		WindowID:   windowID,
	})
}

func (h *harness) transition(id string, target model.ReservationStatus, actorID string, role model.ActorRole) (*model.Reservation, error) {
	return h.svc.Transition(context.Background(), TransitionInput{
		ReservationID: id,
		Target:        target,
		ActorID:       actorID,
		ActorRole:     role,
	})
}

func (h *harness) window(t *testing.T, id string) *model.AvailabilityWindow {
	t.Helper()
	w, err := h.store.Windows.FindByID(context.Background(), id)
	if err != nil {
		t.Fatalf("load window %s: %v", id, err)
	}
	return w
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s, got nil", code)
	}
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected AppError %s, got %T: %v", code, err, err)
	}
	if appErr.Code != code {
		t.Fatalf("expected %s, got %s: %v", code, appErr.Code, err)
	}
}

// ────────────────────────────────────────────────
// Scenarios
// ────────────────────────────────────────────────

func TestScenario_BookConfirmComplete(t *testing.T) {
	h := newHarness(t, nil)
	w := h.addWindow(t, "2025-01-10", "09:00", "10:00")

	if want := time.Date(2025, 1, 10, 7, 0, 0, 0, time.UTC); !w.StartInstant.Equal(want) {
		t.Fatalf("window start = %v, want %v", w.StartInstant, want)
	}

	a, err := h.book(clientA, w.ID)
	if err != nil {
		t.Fatalf("client A booking failed: %v", err)
	}
	if a.Status != model.StatusPendingConfirmation {
		t.Errorf("status = %s, want %s", a.Status, model.StatusPendingConfirmation)
	}
	if !h.window(t, w.ID).IsBooked {
		t.Error("window should be booked after client A's reservation")
	}

	_, err = h.book(clientB, w.ID)
	assertCode(t, err, apperrors.CodeWindowUnavailable)

	confirmed, err := h.transition(a.ID, model.StatusConfirmed, trainer, model.RoleProvider)
	if err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	if confirmed.Status != model.StatusConfirmed || confirmed.ConfirmedAt == nil {
		t.Errorf("expected confirmed reservation with confirmed_at, got %s", confirmed.Status)
	}

	h.clock.Set(time.Date(2025, 1, 10, 7, 30, 0, 0, time.UTC))
	_, err = h.transition(a.ID, model.StatusCompleted, trainer, model.RoleProvider)
	assertCode(t, err, apperrors.CodeInvalidTransition)

	h.clock.Set(time.Date(2025, 1, 10, 8, 1, 0, 0, time.UTC))
	completed, err := h.transition(a.ID, model.StatusCompleted, trainer, model.RoleProvider)
	if err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if completed.Status != model.StatusCompleted {
		t.Errorf("status = %s, want %s", completed.Status, model.StatusCompleted)
	}
	if !h.window(t, w.ID).IsBooked {
		t.Error("window should stay booked after completion")
	}

	_, err = h.transition(a.ID, model.StatusCancelledByClient, clientA, model.RoleClient)
	assertCode(t, err, apperrors.CodeInvalidTransition)

	types := h.publisher.Types()
	want := []string{events.TypeReservationCreated, events.TypeReservationStateChanged, events.TypeReservationStateChanged}
	if fmt.Sprint(types) != fmt.Sprint(want) {
		t.Errorf("published events = %v, want %v", types, want)
	}
}

func TestScenario_PastWindowIsRejected(t *testing.T) {
	h := newHarness(t, nil)
	w := h.addWindow(t, "2025-01-10", "09:00", "10:00")

	h.clock.Set(time.Date(2025, 1, 10, 7, 0, 0, 0, time.UTC))
	_, err := h.book(clientA, w.ID)
	assertCode(t, err, apperrors.CodePastTime)

	if h.window(t, w.ID).IsBooked {
		t.Error("rejected booking must not book the window")
	}
	_, total, err := h.svc.ListReservations(context.Background(), model.ReservationFilter{ProviderID: trainer})
	if err != nil {
		t.Fatalf("list reservations: %v", err)
	}
	if total != 0 {
		t.Errorf("rejected booking must not create a reservation, found %d", total)
	}
	if len(h.publisher.Types()) != 0 {
		t.Error("rejected booking must not publish events")
	}
}

// ────────────────────────────────────────────────
// Reservation ledger
// ────────────────────────────────────────────────

func TestCreateReservation_AtMostOneWinner(t *testing.T) {
	const callers = 8

	h := newHarness(t, nil)
	w := h.addWindow(t, "2025-01-10", "09:00", "10:00")

	h.store.Tx = directTx{}
	h.store.Reservations = newOverlapBarrier(h.store.Reservations, callers)
	h.build()

	var wg sync.WaitGroup
	results := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := h.svc.CreateReservation(context.Background(), CreateReservationInput{
				ClientID:   fmt.Sprintf("client-%d", i),
				ProviderID: trainer,
				WindowID:   w.ID,
				Start:      &w.StartInstant,
				End:        &w.EndInstant,
			})
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	wins := 0
	for err := range results {
		if err == nil {
			wins++
			continue
		}
		if code := apperrors.AsAppError(err).Code; code != apperrors.CodeWindowUnavailable {
			t.Errorf("loser got %s, want %s: %v", code, apperrors.CodeWindowUnavailable, err)
		}
	}
	if wins != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins)
	}

	active, err := h.store.Reservations.Count(context.Background(), model.ReservationFilter{
		ProviderID: trainer,
		Status:     model.StatusPendingConfirmation,
	})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if active != 1 {
		t.Errorf("expected exactly one active reservation, got %d", active)
	}
}

func TestCreateReservation_PriceSnapshot(t *testing.T) {
	var calls int
	h := newHarness(t, rateFunc(func(ctx context.Context, providerID string) (int64, error) {
		calls++
		return 12345, nil
	}))
	w := h.addWindow(t, "2025-01-10", "09:00", "10:30")

	r, err := h.book(clientA, w.ID)
	if err != nil {
		t.Fatalf("booking failed: %v", err)
	}
	if r.HourlyRateCents != 12345 {
		t.Errorf("hourly rate = %d, want 12345", r.HourlyRateCents)
	}
	if r.PriceSnapshotCents != 18518 {
		t.Errorf("price snapshot = %d, want 18518", r.PriceSnapshotCents)
	}
	if calls != 1 {
		t.Errorf("rate should be read once, got %d calls", calls)
	}

	stored, err := h.svc.GetReservation(context.Background(), r.ID)
	if err != nil {
		t.Fatalf("get reservation: %v", err)
	}
	if stored.PriceSnapshotCents != r.PriceSnapshotCents || !stored.StartInstant.Equal(w.StartInstant) {
		t.Errorf("stored reservation differs from returned one")
	}
}

func TestCreateReservation_Rejections(t *testing.T) {
	h := newHarness(t, nil)
	w := h.addWindow(t, "2025-01-10", "09:00", "10:00")
	otherStart := w.StartInstant.Add(15 * time.Minute)
	end := w.EndInstant
	longNote := make([]byte, maxClientNoteLength+1)
	for i := range longNote {
		longNote[i] = 'x'
	}

	tests := []struct {
		name  string
		input CreateReservationInput
		code  string
	}{
		{
			name:  "unknown window",
			input: CreateReservationInput{ClientID: clientA, ProviderID: trainer, WindowID: "7b0c3bde-4c1a-4c4e-9f8e-2f1f0a5d1a11"},
			code:  apperrors.CodeWindowUnavailable,
		},
		{
			name:  "window of another provider",
			input: CreateReservationInput{ClientID: clientA, ProviderID: "trainer-2", WindowID: w.ID},
			code:  apperrors.CodeWindowUnavailable,
		},
		{
			name:  "partial slot",
			input: CreateReservationInput{ClientID: clientA, ProviderID: trainer, WindowID: w.ID, Start: &otherStart, End: &end},
			code:  apperrors.CodeWindowMismatch,
		},
		{
			name:  "local times of another slot",
			input: CreateReservationInput{ClientID: clientA, ProviderID: trainer, WindowID: w.ID, Date: "2025-01-10", StartLocal: "09:00", EndLocal: "09:45"},
			code:  apperrors.CodeWindowMismatch,
		},
		{
			name:  "local time malformed",
			input: CreateReservationInput{ClientID: clientA, ProviderID: trainer, WindowID: w.ID, Date: "2025-01-10", StartLocal: "9", EndLocal: "10:00"},
			code:  apperrors.CodeInvalidTimeFormat,
		},
		{
			name:  "malformed window id",
			input: CreateReservationInput{ClientID: clientA, ProviderID: trainer, WindowID: "not-a-uuid"},
			code:  apperrors.CodeInvalidInput,
		},
		{
			name:  "missing client",
			input: CreateReservationInput{ProviderID: trainer, WindowID: w.ID},
			code:  apperrors.CodeInvalidInput,
		},
		{
			name:  "note too long",
			input: CreateReservationInput{ClientID: clientA, ProviderID: trainer, WindowID: w.ID, Note: string(longNote)},
			code:  apperrors.CodeValidation,
		},
		{
			name:  "reversed bounds",
			input: CreateReservationInput{ClientID: clientA, ProviderID: trainer, WindowID: w.ID, Start: &end, End: &otherStart},
			code:  apperrors.CodeInvalidInterval,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.svc.CreateReservation(context.Background(), tt.input)
			assertCode(t, err, tt.code)
			if h.window(t, w.ID).IsBooked {
				t.Error("rejected booking must not book the window")
			}
		})
	}
}

func TestCreateReservation_WithLocalTimes(t *testing.T) {
	h := newHarness(t, nil)
	w := h.addWindow(t, "2025-01-10", "09:00", "10:00")

	r, err := h.svc.CreateReservation(context.Background(), CreateReservationInput{
		ClientID:   clientA,
		ProviderID: trainer,
		WindowID:   w.ID,
		Note:       "  first   session ",
		Date:       "2025-01-10",
		StartLocal: "09:00",
		EndLocal:   "10:00",
	})
	if err != nil {
		t.Fatalf("booking failed: %v", err)
	}
	if !r.StartInstant.Equal(w.StartInstant) || !r.EndInstant.Equal(w.EndInstant) {
		t.Errorf("reservation bounds %v-%v differ from window", r.StartInstant, r.EndInstant)
	}
	if r.ClientNote != "first session" {
		t.Errorf("note should be normalized, got %q", r.ClientNote)
	}
}

func TestCreateReservation_RateUnavailable(t *testing.T) {
	h := newHarness(t, rateFunc(func(ctx context.Context, providerID string) (int64, error) {
		return 0, errors.New("connection refused")
	}))
	w := h.addWindow(t, "2025-01-10", "09:00", "10:00")

	_, err := h.book(clientA, w.ID)
	assertCode(t, err, apperrors.CodeUnavailable)
	if h.window(t, w.ID).IsBooked {
		t.Error("window must stay open when the rate cannot be read")
	}
}

func TestTransition_ReleasesWindow(t *testing.T) {
	tests := []struct {
		name    string
		confirm bool
		target  model.ReservationStatus
		actorID string
		role    model.ActorRole
		at      time.Time
	}{
		{name: "rejected by provider", target: model.StatusRejectedByProvider, actorID: trainer, role: model.RoleProvider},
		{name: "cancelled by client while pending", target: model.StatusCancelledByClient, actorID: clientA, role: model.RoleClient},
		{name: "cancelled by client after confirmation", confirm: true, target: model.StatusCancelledByClient, actorID: clientA, role: model.RoleClient},
		{name: "cancelled by provider", confirm: true, target: model.StatusCancelledByProvider, actorID: trainer, role: model.RoleProvider},
		{name: "rejected by system", target: model.StatusRejectedBySystem, actorID: model.SystemActorID, role: model.RoleSystem, at: dayBefore.Add(2 * time.Hour)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil)
			w := h.addWindow(t, "2025-01-10", "09:00", "10:00")

			r, err := h.book(clientA, w.ID)
			if err != nil {
				t.Fatalf("booking failed: %v", err)
			}
			if tt.confirm {
				if _, err := h.transition(r.ID, model.StatusConfirmed, trainer, model.RoleProvider); err != nil {
					t.Fatalf("confirm failed: %v", err)
				}
			}
			if !tt.at.IsZero() {
				h.clock.Set(tt.at)
			}

			updated, err := h.transition(r.ID, tt.target, tt.actorID, tt.role)
			if err != nil {
				t.Fatalf("transition failed: %v", err)
			}
			if updated.TerminatedAt == nil {
				t.Error("terminated_at should be recorded")
			}
			if h.window(t, w.ID).IsBooked {
				t.Fatal("window should be released")
			}

			if _, err := h.book(clientB, w.ID); err != nil {
				t.Errorf("released window should be bookable again: %v", err)
			}
		})
	}
}

func TestTransition_RefusedLeavesRecordUntouched(t *testing.T) {
	h := newHarness(t, nil)
	w := h.addWindow(t, "2025-01-10", "09:00", "10:00")
	r, err := h.book(clientA, w.ID)
	if err != nil {
		t.Fatalf("booking failed: %v", err)
	}

	tests := []struct {
		name    string
		target  model.ReservationStatus
		actorID string
		role    model.ActorRole
		code    string
	}{
		{name: "client confirms", target: model.StatusConfirmed, actorID: clientA, role: model.RoleClient, code: apperrors.CodeInvalidTransition},
		{name: "other provider confirms", target: model.StatusConfirmed, actorID: "trainer-2", role: model.RoleProvider, code: apperrors.CodeInvalidTransition},
		{name: "other client cancels", target: model.StatusCancelledByClient, actorID: clientB, role: model.RoleClient, code: apperrors.CodeInvalidTransition},
		{name: "provider cancels pending", target: model.StatusCancelledByProvider, actorID: trainer, role: model.RoleProvider, code: apperrors.CodeInvalidTransition},
		{name: "system expires too early", target: model.StatusRejectedBySystem, actorID: model.SystemActorID, role: model.RoleSystem, code: apperrors.CodeInvalidTransition},
		{name: "unknown status", target: "archived", actorID: trainer, role: model.RoleProvider, code: apperrors.CodeInvalidTransition},
		{name: "unknown role", target: model.StatusConfirmed, actorID: trainer, role: "admin", code: apperrors.CodeInvalidTransition},
		{name: "missing actor", target: model.StatusConfirmed, role: model.RoleProvider, code: apperrors.CodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.transition(r.ID, tt.target, tt.actorID, tt.role)
			assertCode(t, err, tt.code)

			stored, err := h.svc.GetReservation(context.Background(), r.ID)
			if err != nil {
				t.Fatalf("get reservation: %v", err)
			}
			if stored.Status != model.StatusPendingConfirmation {
				t.Errorf("status changed to %s", stored.Status)
			}
			if !h.window(t, w.ID).IsBooked {
				t.Error("window must stay booked")
			}
		})
	}

	_, err = h.transition("7b0c3bde-4c1a-4c4e-9f8e-2f1f0a5d1a11", model.StatusConfirmed, trainer, model.RoleProvider)
	assertCode(t, err, apperrors.CodeNotFound)
}

func TestListReservations(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	for _, slot := range [][2]string{{"11:00", "12:00"}, {"09:00", "10:00"}, {"13:00", "14:00"}} {
		w := h.addWindow(t, "2025-01-10", slot[0], slot[1])
		if _, err := h.book(clientA, w.ID); err != nil {
			t.Fatalf("booking %s failed: %v", slot[0], err)
		}
	}

	items, total, err := h.svc.ListReservations(ctx, model.ReservationFilter{ClientID: clientA, Limit: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 3 || len(items) != 2 {
		t.Fatalf("expected 2 of 3 reservations, got %d of %d", len(items), total)
	}
	if !items[0].StartInstant.Before(items[1].StartInstant) {
		t.Error("reservations should be ordered by start")
	}

	rest, _, err := h.svc.ListReservations(ctx, model.ReservationFilter{ClientID: clientA, Limit: 2, Offset: 2})
	if err != nil {
		t.Fatalf("list page 2: %v", err)
	}
	if len(rest) != 1 {
		t.Errorf("expected 1 reservation on page 2, got %d", len(rest))
	}

	invalid := []model.ReservationFilter{
		{},
		{ClientID: clientA, ProviderID: trainer},
		{ClientID: clientA, Status: "archived"},
	}
	for _, filter := range invalid {
		_, _, err := h.svc.ListReservations(ctx, filter)
		assertCode(t, err, apperrors.CodeInvalidInput)
	}
}

func TestSweeps(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	pendingWindow := h.addWindow(t, "2025-01-10", "09:00", "10:00")
	confirmedWindow := h.addWindow(t, "2025-01-10", "11:00", "12:00")

	pending, err := h.book(clientA, pendingWindow.ID)
	if err != nil {
		t.Fatalf("booking failed: %v", err)
	}
	confirmed, err := h.book(clientB, confirmedWindow.ID)
	if err != nil {
		t.Fatalf("booking failed: %v", err)
	}
	if _, err := h.transition(confirmed.ID, model.StatusConfirmed, trainer, model.RoleProvider); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}

	expired, err := h.svc.ExpirePending(ctx, dayBefore.Add(30*time.Minute))
	if err != nil || expired != 0 {
		t.Fatalf("nothing should expire yet, got %d (%v)", expired, err)
	}
	expired, err = h.svc.ExpirePending(ctx, dayBefore.Add(2*time.Hour))
	if err != nil || expired != 1 {
		t.Fatalf("expected one expired reservation, got %d (%v)", expired, err)
	}

	stored, _ := h.svc.GetReservation(ctx, pending.ID)
	if stored.Status != model.StatusRejectedBySystem || stored.StatusActor != model.SystemActorID {
		t.Errorf("expected rejected_by_system by system, got %s by %s", stored.Status, stored.StatusActor)
	}
	if h.window(t, pendingWindow.ID).IsBooked {
		t.Error("expired reservation should release its window")
	}

	completed, err := h.svc.CompleteElapsed(ctx, confirmed.EndInstant.Add(-time.Minute))
	if err != nil || completed != 0 {
		t.Fatalf("nothing should complete yet, got %d (%v)", completed, err)
	}
	completed, err = h.svc.CompleteElapsed(ctx, confirmed.EndInstant)
	if err != nil || completed != 1 {
		t.Fatalf("expected one completed reservation, got %d (%v)", completed, err)
	}
	stored, _ = h.svc.GetReservation(ctx, confirmed.ID)
	if stored.Status != model.StatusCompleted {
		t.Errorf("expected completed, got %s", stored.Status)
	}
}

// ────────────────────────────────────────────────
// Availability
// ────────────────────────────────────────────────

func TestAddWindow(t *testing.T) {
	h := newHarness(t, nil)
	h.addWindow(t, "2025-01-10", "09:00", "10:00")

	tests := []struct {
		name  string
		date  string
		start string
		end   string
		code  string
	}{
		{name: "touching after", date: "2025-01-10", start: "10:00", end: "11:00"},
		{name: "touching before", date: "2025-01-10", start: "08:00", end: "09:00"},
		{name: "same slot other day", date: "2025-01-11", start: "09:00", end: "10:00"},
		{name: "identical", date: "2025-01-10", start: "09:00", end: "10:00", code: apperrors.CodeOverlapConflict},
		{name: "contained", date: "2025-01-10", start: "09:15", end: "09:45", code: apperrors.CodeOverlapConflict},
		{name: "ends at midnight", date: "2025-01-13", start: "23:00", end: "24:00"},
		{name: "touching next midnight", date: "2025-01-14", start: "00:00", end: "01:00"},
		{name: "spans midnight", date: "2025-01-12", start: "23:00", end: "01:00", code: apperrors.CodeInvalidInterval},
		{name: "empty", date: "2025-01-12", start: "12:00", end: "12:00", code: apperrors.CodeInvalidInterval},
		{name: "bad time", date: "2025-01-12", start: "9am", end: "10:00", code: apperrors.CodeInvalidTimeFormat},
		{name: "bad date", date: "2025-02-30", start: "09:00", end: "10:00", code: apperrors.CodeInvalidDate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.svc.AddWindow(context.Background(), AddWindowInput{
				ProviderID: trainer,
				Date:       tt.date,
				StartLocal: tt.start,
				EndLocal:   tt.end,
			})
			if tt.code == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			assertCode(t, err, tt.code)
		})
	}
}

func TestAddWindow_ConcurrentOverlapsSerialize(t *testing.T) {
	h := newHarness(t, nil)

	const callers = 6
	var wg sync.WaitGroup
	var mu sync.Mutex
	created := 0
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := h.svc.AddWindow(context.Background(), AddWindowInput{
				ProviderID: trainer,
				Date:       "2025-01-10",
				StartLocal: "09:00",
				EndLocal:   fmt.Sprintf("10:%02d", i),
			})
			if err == nil {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if created != 1 {
		t.Errorf("expected exactly one of the overlapping windows to be created, got %d", created)
	}
}

func TestUpdateAndRemoveWindow(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	first := h.addWindow(t, "2025-01-10", "09:00", "10:00")
	second := h.addWindow(t, "2025-01-10", "11:00", "12:00")

	updated, err := h.svc.UpdateWindow(ctx, UpdateWindowInput{ProviderID: trainer, WindowID: first.ID, StartLocal: "09:30", EndLocal: "10:30"})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if date, clock := h.svc.Normalizer().ToLocalParts(updated.StartInstant); date != "2025-01-10" || clock != "09:30" {
		t.Errorf("updated start = %s %s, want 2025-01-10 09:30", date, clock)
	}

	_, err = h.svc.UpdateWindow(ctx, UpdateWindowInput{ProviderID: trainer, WindowID: first.ID, StartLocal: "10:00", EndLocal: "11:30"})
	assertCode(t, err, apperrors.CodeOverlapConflict)

	_, err = h.svc.UpdateWindow(ctx, UpdateWindowInput{ProviderID: "trainer-2", WindowID: first.ID, StartLocal: "09:00", EndLocal: "10:00"})
	assertCode(t, err, apperrors.CodeNotFound)

	if _, err := h.book(clientA, second.ID); err != nil {
		t.Fatalf("booking failed: %v", err)
	}
	_, err = h.svc.UpdateWindow(ctx, UpdateWindowInput{ProviderID: trainer, WindowID: second.ID, StartLocal: "11:00", EndLocal: "12:30"})
	assertCode(t, err, apperrors.CodeWindowBooked)
	assertCode(t, h.svc.RemoveWindow(ctx, trainer, second.ID), apperrors.CodeWindowBooked)
	assertCode(t, h.svc.RemoveWindow(ctx, "trainer-2", first.ID), apperrors.CodeNotFound)
	assertCode(t, h.svc.RemoveWindow(ctx, trainer, "nope"), apperrors.CodeInvalidInput)

	if err := h.svc.RemoveWindow(ctx, trainer, first.ID); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if _, err := h.store.Windows.FindByID(ctx, first.ID); !errors.Is(err, schedulingerrors.ErrWindowNotFound) {
		t.Errorf("removed window should be gone, got %v", err)
	}
}

func TestListWindows(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	h.addWindow(t, "2025-01-11", "09:00", "10:00")
	late := h.addWindow(t, "2025-01-10", "15:00", "16:00")
	early := h.addWindow(t, "2025-01-10", "08:00", "09:00")
	if _, err := h.book(clientA, late.ID); err != nil {
		t.Fatalf("booking failed: %v", err)
	}

	all, err := h.svc.ListWindows(ctx, model.WindowFilter{ProviderID: trainer, FromDate: "2025-01-10", ToDate: "2025-01-10"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 || all[0].ID != early.ID || all[1].ID != late.ID {
		t.Fatalf("expected [early, late] ordered by start, got %d windows", len(all))
	}

	open, err := h.svc.ListWindows(ctx, model.WindowFilter{ProviderID: trainer, OnlyOpen: true})
	if err != nil {
		t.Fatalf("list open: %v", err)
	}
	if len(open) != 2 {
		t.Errorf("expected 2 open windows, got %d", len(open))
	}

	_, err = h.svc.ListWindows(ctx, model.WindowFilter{ProviderID: trainer, FromDate: "2025-13-01"})
	assertCode(t, err, apperrors.CodeInvalidDate)
	_, err = h.svc.ListWindows(ctx, model.WindowFilter{ProviderID: trainer, FromDate: "2025-01-11", ToDate: "2025-01-10"})
	assertCode(t, err, apperrors.CodeInvalidInterval)
	_, err = h.svc.ListWindows(ctx, model.WindowFilter{})
	assertCode(t, err, apperrors.CodeInvalidInput)
}

package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"
	"unicode/utf8"

	schedulingerrors "slotbook/internal/scheduling/errors"
	"slotbook/internal/scheduling/lifecycle"
	"slotbook/internal/scheduling/repository"
	"slotbook/pkg/config"
	apperrors "slotbook/pkg/errors"
	"slotbook/pkg/events"
	"slotbook/pkg/model"
	"slotbook/pkg/profile"
	"slotbook/pkg/sanitizer"
	"slotbook/pkg/timenorm"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type ReservationLedger interface {
	CreateReservation(ctx context.Context, input CreateReservationInput) (*model.Reservation, error)
	Transition(ctx context.Context, input TransitionInput) (*model.Reservation, error)
	GetReservation(ctx context.Context, id string) (*model.Reservation, error)
	ListReservations(ctx context.Context, filter model.ReservationFilter) ([]*model.Reservation, int64, error)
	ExpirePending(ctx context.Context, now time.Time) (int, error)
	CompleteElapsed(ctx context.Context, now time.Time) (int, error)
}

// CreateReservationInput books a whole window. The candidate interval is
// either Start/End or the local Date, StartLocal and EndLocal; it defaults to
// the window bounds and must match them exactly when given.
type CreateReservationInput struct {
	ClientID   string
	ProviderID string
	WindowID   string
	Note       string
	Start      *time.Time
	End        *time.Time
	Date       string
	StartLocal string
	EndLocal   string
}

type TransitionInput struct {
	ReservationID string
	Target        model.ReservationStatus
	ActorID       string
	ActorRole     model.ActorRole
}

type reservationLedger struct {
	store      *repository.Store
	detector   ConflictDetector
	normalizer *timenorm.Normalizer
	rates      profile.RateProvider
	publisher  events.Publisher
	cfg        *config.Config
	now        Clock
}

func NewReservationLedger(
	store *repository.Store,
	detector ConflictDetector,
	normalizer *timenorm.Normalizer,
	rates profile.RateProvider,
	publisher events.Publisher,
	cfg *config.Config,
	now Clock,
) ReservationLedger {
	return &reservationLedger{
		store:      store,
		detector:   detector,
		normalizer: normalizer,
		rates:      rates,
		publisher:  publisher,
		cfg:        cfg,
		now:        now,
	}
}

func (l *reservationLedger) CreateReservation(ctx context.Context, input CreateReservationInput) (res *model.Reservation, err error) {
	ctx, span := tracer.Start(ctx, "ReservationLedger.CreateReservation", trace.WithAttributes(
		attribute.String("provider_id", input.ProviderID),
		attribute.String("window_id", input.WindowID),
	))
	defer func() { endSpan(span, err) }()

	if err := l.validateCreate(&input); err != nil {
		return nil, err
	}

	rate, err := l.rates.HourlyRateCents(ctx, input.ProviderID)
	if err != nil {
		l.cfg.Log.Error("Failed to read provider rate", "provider_id", input.ProviderID, "error", err)
		if apperrors.IsAppError(err) {
			return nil, err
		}
		return nil, apperrors.Unavailable("Profile service")
	}

	var reservation *model.Reservation
	err = retryTransient(ctx, l.cfg.StoreMaxAttempts, func() error {
		return l.store.Tx.ExecuteTransaction(ctx, func(txCtx context.Context) error {
			created, err := l.book(txCtx, input, rate)
			if err != nil {
				return err
			}
			reservation = created
			return nil
		})
	}, nil)
	if err != nil {
		err = translate(err)
		logFailure(l.cfg.Log, "Reservation rejected", err,
			"client_id", input.ClientID,
			"provider_id", input.ProviderID,
			"window_id", input.WindowID,
		)
		return nil, err
	}

	l.publish(ctx, events.NewReservationCreated(reservation, reservation.CreatedAt))
	l.cfg.Log.Info("Reservation created successfully",
		"id", reservation.ID,
		"client_id", reservation.ClientID,
		"provider_id", reservation.ProviderID,
		"window_id", reservation.AvailabilityWindowID,
		"start_instant", reservation.StartInstant,
		"price_snapshot_cents", reservation.PriceSnapshotCents,
	)
	return reservation, nil
}

// book runs inside the transaction: check, claim the window, insert.
func (l *reservationLedger) book(ctx context.Context, input CreateReservationInput, rate int64) (*model.Reservation, error) {
	start, end, err := l.candidate(ctx, input)
	if err != nil {
		return nil, err
	}
	if err := l.detector.CheckAvailable(ctx, input.ProviderID, input.WindowID, start, end); err != nil {
		return nil, err
	}

	now := l.now()
	if err := l.store.Windows.MarkBooked(ctx, input.ProviderID, input.WindowID, now); err != nil {
		return nil, err
	}

	price, err := priceCents(rate, start, end)
	if err != nil {
		return nil, err
	}

	reservation := &model.Reservation{
		ID:                   uuid.NewString(),
		ClientID:             input.ClientID,
		ProviderID:           input.ProviderID,
		AvailabilityWindowID: input.WindowID,
		StartInstant:         start,
		EndInstant:           end,
		HourlyRateCents:      rate,
		PriceSnapshotCents:   price,
		Status:               model.StatusPendingConfirmation,
		ClientNote:           input.Note,
		StatusActor:          input.ClientID,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := l.store.Reservations.Create(ctx, reservation); err != nil {
		return nil, err
	}
	return reservation, nil
}

func (l *reservationLedger) candidate(ctx context.Context, input CreateReservationInput) (time.Time, time.Time, error) {
	if input.Start != nil && input.End != nil {
		return input.Start.UTC(), input.End.UTC(), nil
	}
	window, err := l.store.Windows.FindByID(ctx, input.WindowID)
	if err != nil {
		if errors.Is(err, schedulingerrors.ErrWindowNotFound) {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: %s", schedulingerrors.ErrWindowUnavailable, input.WindowID)
		}
		return time.Time{}, time.Time{}, err
	}
	start, end := window.StartInstant, window.EndInstant
	if input.Start != nil {
		start = input.Start.UTC()
	}
	if input.End != nil {
		end = input.End.UTC()
	}
	return start, end, nil
}

func (l *reservationLedger) validateCreate(input *CreateReservationInput) error {
	if input.ClientID == "" {
		return apperrors.InvalidInput("Client ID cannot be empty")
	}
	if input.ProviderID == "" {
		return apperrors.InvalidInput("Provider ID cannot be empty")
	}
	if err := validateID(input.WindowID, schedulingerrors.ErrInvalidWindowID); err != nil {
		return translate(err)
	}
	input.Note = sanitizer.TrimAndNormalize(input.Note)
	if utf8.RuneCountInString(input.Note) > maxClientNoteLength {
		return apperrors.Validation("Client note is too long", map[string]any{
			"max_length": maxClientNoteLength,
		})
	}
	if input.Date != "" || input.StartLocal != "" || input.EndLocal != "" {
		start, end, err := l.normalizer.Interval(input.Date, input.StartLocal, input.EndLocal)
		if err != nil {
			return translate(err)
		}
		input.Start, input.End = &start, &end
	}
	if input.Start != nil && input.End != nil && !input.Start.Before(*input.End) {
		return translate(fmt.Errorf("%w: start must be before end", timenorm.ErrInvalidInterval))
	}
	return nil
}

func (l *reservationLedger) Transition(ctx context.Context, input TransitionInput) (*model.Reservation, error) {
	return l.transitionAt(ctx, input, l.now())
}

func (l *reservationLedger) transitionAt(ctx context.Context, input TransitionInput, now time.Time) (res *model.Reservation, err error) {
	ctx, span := tracer.Start(ctx, "ReservationLedger.Transition", trace.WithAttributes(
		attribute.String("reservation_id", input.ReservationID),
		attribute.String("target", string(input.Target)),
		attribute.String("actor_role", string(input.ActorRole)),
	))
	defer func() { endSpan(span, err) }()

	if err := validateID(input.ReservationID, schedulingerrors.ErrInvalidReservationID); err != nil {
		return nil, translate(err)
	}
	if input.ActorRole == model.RoleSystem && input.ActorID == "" {
		input.ActorID = model.SystemActorID
	}
	if input.ActorID == "" {
		return nil, apperrors.InvalidInput("Actor ID cannot be empty")
	}

	var (
		updated *model.Reservation
		change  model.StatusChange
	)
	err = retryTransient(ctx, l.cfg.StoreMaxAttempts, func() error {
		return l.store.Tx.ExecuteTransaction(ctx, func(txCtx context.Context) error {
			r, c, err := l.applyTransition(txCtx, input, now)
			if err != nil {
				return err
			}
			updated, change = r, c
			return nil
		})
	}, isTransientOrStale)
	if err != nil {
		err = translate(err)
		logFailure(l.cfg.Log, "Reservation transition rejected", err,
			"id", input.ReservationID,
			"target", input.Target,
			"actor_id", input.ActorID,
			"actor_role", input.ActorRole,
		)
		return nil, err
	}

	l.publish(ctx, events.NewReservationStateChanged(updated, change, input.ActorRole))
	l.cfg.Log.Info("Reservation status changed successfully",
		"id", updated.ID,
		"from", change.From,
		"to", change.To,
		"actor_id", change.ActorID,
	)
	return updated, nil
}

func (l *reservationLedger) applyTransition(ctx context.Context, input TransitionInput, now time.Time) (*model.Reservation, model.StatusChange, error) {
	r, err := l.store.Reservations.FindByID(ctx, input.ReservationID)
	if err != nil {
		return nil, model.StatusChange{}, err
	}
	if err := authorizeActor(r, input.ActorID, input.ActorRole); err != nil {
		return nil, model.StatusChange{}, err
	}

	facts := lifecycle.Facts{
		Now:               now,
		ReservationEnd:    r.EndInstant,
		CreatedAt:         r.CreatedAt,
		ReservationExpiry: l.cfg.ReservationExpiry,
	}
	if err := lifecycle.Transition(r.Status, input.Target, input.ActorRole, facts); err != nil {
		return nil, model.StatusChange{}, err
	}

	change := model.StatusChange{
		ReservationID: r.ID,
		From:          r.Status,
		To:            input.Target,
		ActorID:       input.ActorID,
		At:            now,
	}
	if err := l.store.Reservations.UpdateStatus(ctx, change); err != nil {
		return nil, model.StatusChange{}, err
	}
	if lifecycle.ReleasesWindow(change.To) {
		if err := l.store.Windows.Release(ctx, r.AvailabilityWindowID, now); err != nil {
			return nil, model.StatusChange{}, err
		}
	}

	applyStatusChange(r, change)
	return r, change, nil
}

// authorizeActor binds the acting party to the reservation. System actors are
// trusted.
func authorizeActor(r *model.Reservation, actorID string, role model.ActorRole) error {
	switch role {
	case model.RoleProvider:
		if actorID != r.ProviderID {
			return fmt.Errorf("%w: provider %s does not own reservation %s", schedulingerrors.ErrInvalidTransition, actorID, r.ID)
		}
	case model.RoleClient:
		if actorID != r.ClientID {
			return fmt.Errorf("%w: client %s does not own reservation %s", schedulingerrors.ErrInvalidTransition, actorID, r.ID)
		}
	case model.RoleSystem:
	default:
		return fmt.Errorf("%w: unknown actor role %q", schedulingerrors.ErrInvalidTransition, role)
	}
	return nil
}

func applyStatusChange(r *model.Reservation, change model.StatusChange) {
	at := change.At
	r.Status = change.To
	r.StatusActor = change.ActorID
	r.UpdatedAt = at
	switch {
	case change.To == model.StatusConfirmed:
		r.ConfirmedAt = &at
	case change.To == model.StatusCompleted:
		r.CompletedAt = &at
	case lifecycle.ReleasesWindow(change.To):
		r.TerminatedAt = &at
	}
}

func (l *reservationLedger) GetReservation(ctx context.Context, id string) (*model.Reservation, error) {
	if err := validateID(id, schedulingerrors.ErrInvalidReservationID); err != nil {
		return nil, translate(err)
	}
	reservation, err := l.store.Reservations.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, schedulingerrors.ErrReservationNotFound) {
			return nil, apperrors.NotFoundWithID("Reservation", id)
		}
		err = translate(err)
		logFailure(l.cfg.Log, "Failed to retrieve reservation", err, "id", id)
		return nil, err
	}
	return reservation, nil
}

func (l *reservationLedger) ListReservations(ctx context.Context, filter model.ReservationFilter) ([]*model.Reservation, int64, error) {
	if (filter.ProviderID == "") == (filter.ClientID == "") {
		return nil, 0, apperrors.InvalidInput("Exactly one of provider_id or client_id is required")
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, apperrors.InvalidInput(fmt.Sprintf("Unknown reservation status %q", filter.Status))
	}
	filter.Limit = config.NormalizePaginationLimit(filter.Limit)
	filter.Offset = config.NormalizeOffset(filter.Offset)

	var count int64
	var reservations []*model.Reservation
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = l.store.Reservations.Count(ctx, filter)
		if errCount != nil {
			l.cfg.Log.Error("Failed to count reservations", "error", errCount)
			errCount = translate(errCount)
		}
	}()

	go func() {
		defer wg.Done()
		reservations, errFind = l.store.Reservations.Search(ctx, filter)
		if errFind != nil {
			l.cfg.Log.Error("Failed to list reservations", "error", errFind)
			errFind = translate(errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return reservations, count, nil
}

// ExpirePending rejects pending reservations older than the configured expiry.
// It returns how many were rejected.
func (l *reservationLedger) ExpirePending(ctx context.Context, now time.Time) (int, error) {
	if l.cfg.ReservationExpiry <= 0 {
		return 0, nil
	}
	due, err := l.store.Reservations.FindPendingCreatedBefore(ctx, now.Add(-l.cfg.ReservationExpiry), l.batchSize())
	if err != nil {
		err = translate(err)
		logFailure(l.cfg.Log, "Failed to find expired reservations", err)
		return 0, err
	}
	return l.sweep(ctx, due, model.StatusRejectedBySystem, now)
}

// CompleteElapsed completes confirmed reservations whose end has passed. It
// returns how many were completed.
func (l *reservationLedger) CompleteElapsed(ctx context.Context, now time.Time) (int, error) {
	due, err := l.store.Reservations.FindConfirmedEndedBy(ctx, now, l.batchSize())
	if err != nil {
		err = translate(err)
		logFailure(l.cfg.Log, "Failed to find elapsed reservations", err)
		return 0, err
	}
	return l.sweep(ctx, due, model.StatusCompleted, now)
}

// sweep transitions each reservation as the system actor. Reservations moved
// by someone else in the meantime are skipped.
func (l *reservationLedger) sweep(ctx context.Context, due []*model.Reservation, target model.ReservationStatus, now time.Time) (int, error) {
	done := 0
	var errs []error
	for _, r := range due {
		_, err := l.transitionAt(ctx, TransitionInput{
			ReservationID: r.ID,
			Target:        target,
			ActorID:       model.SystemActorID,
			ActorRole:     model.RoleSystem,
		}, now)
		switch {
		case err == nil:
			done++
		case errors.Is(err, schedulingerrors.ErrInvalidTransition):
			l.cfg.Log.Debug("Skipping reservation changed during sweep", "id", r.ID, "target", target)
		default:
			errs = append(errs, fmt.Errorf("reservation %s: %w", r.ID, err))
		}
	}
	return done, errors.Join(errs...)
}

func (l *reservationLedger) batchSize() int {
	if l.cfg.SweepBatchSize > 0 {
		return l.cfg.SweepBatchSize
	}
	return config.DefaultSweepBatchSize
}

// publish hands the event to the publisher after commit. Delivery failures are
// logged and never affect the caller.
func (l *reservationLedger) publish(ctx context.Context, event events.Event) {
	if err := l.publisher.Publish(context.WithoutCancel(ctx), event); err != nil {
		l.cfg.Log.Warn("Failed to publish domain event",
			"event_id", event.ID,
			"type", event.Type,
			"reservation_id", event.ReservationID,
			"error", err,
		)
	}
}

// priceCents rounds rate × duration to the nearest cent.
func priceCents(rateCents int64, start, end time.Time) (int64, error) {
	hours, err := timenorm.DurationHours(start, end)
	if err != nil {
		return 0, err
	}
	return int64(math.Round(float64(rateCents) * hours)), nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

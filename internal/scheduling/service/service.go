package service

import (
	"context"
	"errors"
	"time"

	schedulingerrors "slotbook/internal/scheduling/errors"
	"slotbook/pkg/db"
	apperrors "slotbook/pkg/errors"
	"slotbook/pkg/logger"
	"slotbook/pkg/timenorm"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel"
)

const (
	maxClientNoteLength = 500
	defaultMaxAttempts  = 3
)

var tracer = otel.Tracer("slotbook/internal/scheduling/service")

// Clock returns the current instant. Tests inject a fixed clock.
type Clock func() time.Time

// SystemClock truncates to milliseconds so stored instants compare equal on
// every backend.
func SystemClock() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// retryTransient runs fn until it succeeds, fails with a non-retryable error or
// exhausts attempts. Exhausted retries are reported as TransientStorage.
func retryTransient(ctx context.Context, attempts int, fn func() error, retryable func(error) bool) error {
	if attempts <= 0 {
		attempts = defaultMaxAttempts
	}
	if retryable == nil {
		retryable = db.IsTransient
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 10 * time.Millisecond
	policy.MaxInterval = 200 * time.Millisecond

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := fn()
		if err != nil && !retryable(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	}, backoff.WithBackOff(policy), backoff.WithMaxTries(uint(attempts)))

	// The last attempt comes back still wrapped.
	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		err = permanent.Unwrap()
	}
	if err != nil && retryable(err) {
		return apperrors.TransientStorage(err)
	}
	return err
}

func isTransientOrStale(err error) bool {
	return db.IsTransient(err) || errors.Is(err, schedulingerrors.ErrStaleStatus)
}

// translate maps domain and storage errors to AppErrors. Errors that already
// are AppErrors pass through.
func translate(err error) error {
	if err == nil || apperrors.IsAppError(err) {
		return err
	}

	switch {
	case errors.Is(err, timenorm.ErrInvalidTimeFormat):
		return apperrors.InvalidTimeFormat(err)
	case errors.Is(err, timenorm.ErrInvalidDate):
		return apperrors.InvalidDate(err)
	case errors.Is(err, timenorm.ErrInvalidInterval):
		return apperrors.InvalidInterval(err)
	case errors.Is(err, schedulingerrors.ErrOverlapConflict):
		return apperrors.OverlapConflict(err)
	case errors.Is(err, schedulingerrors.ErrWindowBooked):
		return apperrors.WindowBooked(err)
	case errors.Is(err, schedulingerrors.ErrWindowUnavailable):
		return apperrors.WindowUnavailable(err)
	case errors.Is(err, schedulingerrors.ErrWindowMismatch):
		return apperrors.WindowMismatch(err)
	case errors.Is(err, schedulingerrors.ErrPastTime):
		return apperrors.PastTime(err)
	case errors.Is(err, schedulingerrors.ErrScheduleConflict):
		return apperrors.ScheduleConflict(err)
	case errors.Is(err, schedulingerrors.ErrInvalidTransition):
		return apperrors.InvalidTransition(err)
	case errors.Is(err, schedulingerrors.ErrWindowNotFound):
		return apperrors.NotFound("Availability window")
	case errors.Is(err, schedulingerrors.ErrReservationNotFound):
		return apperrors.NotFound("Reservation")
	case errors.Is(err, schedulingerrors.ErrInvalidWindowID):
		return apperrors.InvalidInput("Invalid window ID format")
	case errors.Is(err, schedulingerrors.ErrInvalidReservationID):
		return apperrors.InvalidInput("Invalid reservation ID format")
	case isTransientOrStale(err):
		return apperrors.TransientStorage(err)
	}
	return apperrors.Internal("Storage operation failed", err)
}

// logFailure logs business rejections at Info, refused transitions at Warn and
// everything else at Error.
func logFailure(log *logger.Logger, msg string, err error, args ...any) {
	appErr := apperrors.AsAppError(err)
	args = append(args, "code", appErr.Code, "error", err)

	switch appErr.Code {
	case apperrors.CodeInvalidTransition:
		log.Warn(msg, args...)
	case apperrors.CodeInternal, apperrors.CodeTransientStorage, apperrors.CodeUnavailable:
		log.Error(msg, args...)
	default:
		log.Info(msg, args...)
	}
}

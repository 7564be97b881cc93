package errors

import "errors"

var (
	ErrWindowNotFound      = errors.New("availability window not found")
	ErrReservationNotFound = errors.New("reservation not found")

	ErrOverlapConflict   = errors.New("window overlaps another window of the provider on the same date")
	ErrWindowBooked      = errors.New("window is booked")
	ErrWindowUnavailable = errors.New("window does not exist, belongs to another provider or is already booked")
	ErrWindowMismatch    = errors.New("requested interval does not match the window bounds")
	ErrPastTime          = errors.New("requested interval starts in the past")
	ErrScheduleConflict  = errors.New("requested interval overlaps an active reservation")

	ErrInvalidTransition = errors.New("transition is not permitted")
	ErrStaleStatus       = errors.New("reservation status changed concurrently")

	ErrInvalidWindowID      = errors.New("invalid window ID format")
	ErrInvalidReservationID = errors.New("invalid reservation ID format")
)

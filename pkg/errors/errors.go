package errors

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeNotFound     = "NOT_FOUND"
	CodeValidation   = "VALIDATION_ERROR"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeConflict     = "CONFLICT"
	CodeInternal     = "INTERNAL_ERROR"
	CodeBadRequest   = "BAD_REQUEST"
	CodeTimeout      = "TIMEOUT"
	CodeUnavailable  = "SERVICE_UNAVAILABLE"
	CodeInvalidInput = "INVALID_INPUT"

	CodeInvalidTimeFormat = "INVALID_TIME_FORMAT"
	CodeInvalidDate       = "INVALID_DATE"
	CodeInvalidInterval   = "INVALID_INTERVAL"
	CodeOverlapConflict   = "OVERLAP_CONFLICT"
	CodeWindowBooked      = "WINDOW_BOOKED"
	CodeWindowUnavailable = "WINDOW_UNAVAILABLE"
	CodeWindowMismatch    = "WINDOW_MISMATCH"
	CodePastTime          = "PAST_TIME"
	CodeScheduleConflict  = "SCHEDULE_CONFLICT"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeTransientStorage  = "TRANSIENT_STORAGE"
)

type AppError struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	Err        error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) StatusCode() int {
	return e.HTTPStatus
}

func New(code, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

func Wrap(err error, code, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

func (e *AppError) WithDetails(details map[string]any) *AppError {
	e.Details = details
	return e
}

func NotFound(resource string) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
	}
}

func NotFoundWithID(resource, id string) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details: map[string]any{
			"resource": resource,
			"id":       id,
		},
	}
}

func Validation(message string, details map[string]any) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    details,
	}
}

func InvalidInput(message string) *AppError {
	return &AppError{
		Code:       CodeInvalidInput,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

func Unauthorized(message string) *AppError {
	return &AppError{
		Code:       CodeUnauthorized,
		Message:    message,
		HTTPStatus: http.StatusUnauthorized,
	}
}

func Forbidden(message string) *AppError {
	return &AppError{
		Code:       CodeForbidden,
		Message:    message,
		HTTPStatus: http.StatusForbidden,
	}
}

func Conflict(message string) *AppError {
	return &AppError{
		Code:       CodeConflict,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

func Internal(message string, err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func Timeout(message string) *AppError {
	return &AppError{
		Code:       CodeTimeout,
		Message:    message,
		HTTPStatus: http.StatusGatewayTimeout,
	}
}

func Unavailable(service string) *AppError {
	return &AppError{
		Code:       CodeUnavailable,
		Message:    fmt.Sprintf("%s is temporarily unavailable", service),
		HTTPStatus: http.StatusServiceUnavailable,
	}
}

// Scheduling rejections. Each carries the domain sentinel as its cause so
// callers can match with errors.Is.

func InvalidTimeFormat(err error) *AppError {
	return Wrap(err, CodeInvalidTimeFormat, "Time must be HH:MM in 24-hour format", http.StatusBadRequest)
}

func InvalidDate(err error) *AppError {
	return Wrap(err, CodeInvalidDate, "Date must be a real calendar date in YYYY-MM-DD format", http.StatusBadRequest)
}

func InvalidInterval(err error) *AppError {
	return Wrap(err, CodeInvalidInterval, "End time must be after start time on the same date", http.StatusBadRequest)
}

func OverlapConflict(err error) *AppError {
	return Wrap(err, CodeOverlapConflict, "Window overlaps another window on the same date", http.StatusConflict)
}

func WindowBooked(err error) *AppError {
	return Wrap(err, CodeWindowBooked, "Window is booked and cannot be changed", http.StatusConflict)
}

func WindowUnavailable(err error) *AppError {
	return Wrap(err, CodeWindowUnavailable, "Window is not available for booking", http.StatusConflict)
}

func WindowMismatch(err error) *AppError {
	return Wrap(err, CodeWindowMismatch, "Requested time does not match the window", http.StatusUnprocessableEntity)
}

func PastTime(err error) *AppError {
	return Wrap(err, CodePastTime, "Cannot book a time that has already started", http.StatusUnprocessableEntity)
}

func ScheduleConflict(err error) *AppError {
	return Wrap(err, CodeScheduleConflict, "Requested time conflicts with an existing reservation", http.StatusConflict)
}

func InvalidTransition(err error) *AppError {
	return Wrap(err, CodeInvalidTransition, "Status change is not allowed", http.StatusForbidden)
}

func TransientStorage(err error) *AppError {
	return Wrap(err, CodeTransientStorage, "Storage is temporarily unavailable, retry the request", http.StatusServiceUnavailable)
}

func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal("An unexpected error occurred", err)
}

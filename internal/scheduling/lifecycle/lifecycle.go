// Package lifecycle is the reservation state machine: which status may follow
// which, who may move it there, and what each status means for the window.
package lifecycle

import (
	"fmt"
	"time"

	schedulingerrors "slotbook/internal/scheduling/errors"
	"slotbook/pkg/model"
)

// Facts are the time-dependent inputs of the guarded transitions.
type Facts struct {
	Now               time.Time
	ReservationEnd    time.Time
	CreatedAt         time.Time
	ReservationExpiry time.Duration
}

type guard func(Facts) error

type edge struct {
	from  model.ReservationStatus
	to    model.ReservationStatus
	roles []model.ActorRole
	guard guard
}

var edges = []edge{
	{model.StatusPendingConfirmation, model.StatusConfirmed, []model.ActorRole{model.RoleProvider}, nil},
	{model.StatusPendingConfirmation, model.StatusRejectedByProvider, []model.ActorRole{model.RoleProvider}, nil},
	{model.StatusPendingConfirmation, model.StatusRejectedBySystem, []model.ActorRole{model.RoleSystem}, expired},
	{model.StatusConfirmed, model.StatusCompleted, []model.ActorRole{model.RoleProvider, model.RoleSystem}, ended},
	{model.StatusPendingConfirmation, model.StatusCancelledByClient, []model.ActorRole{model.RoleClient}, nil},
	{model.StatusConfirmed, model.StatusCancelledByClient, []model.ActorRole{model.RoleClient}, nil},
	{model.StatusConfirmed, model.StatusCancelledByProvider, []model.ActorRole{model.RoleProvider}, nil},
}

func ended(f Facts) error {
	if f.Now.Before(f.ReservationEnd) {
		return fmt.Errorf("%w: reservation ends at %s", schedulingerrors.ErrInvalidTransition, f.ReservationEnd.Format(time.RFC3339))
	}
	return nil
}

func expired(f Facts) error {
	if f.ReservationExpiry <= 0 || f.Now.Sub(f.CreatedAt) < f.ReservationExpiry {
		return fmt.Errorf("%w: reservation has not been pending for %s", schedulingerrors.ErrInvalidTransition, f.ReservationExpiry)
	}
	return nil
}

// Transition reports whether role may move a reservation from one status to
// another given facts. Every rejection wraps ErrInvalidTransition.
func Transition(from, to model.ReservationStatus, role model.ActorRole, facts Facts) error {
	if !from.Valid() || !to.Valid() {
		return fmt.Errorf("%w: unknown status %q -> %q", schedulingerrors.ErrInvalidTransition, from, to)
	}
	if !role.Valid() {
		return fmt.Errorf("%w: unknown actor role %q", schedulingerrors.ErrInvalidTransition, role)
	}
	if IsTerminal(from) {
		return fmt.Errorf("%w: %s is terminal", schedulingerrors.ErrInvalidTransition, from)
	}

	for _, e := range edges {
		if e.from != from || e.to != to {
			continue
		}
		if !hasRole(e.roles, role) {
			return fmt.Errorf("%w: %s may not move %s to %s", schedulingerrors.ErrInvalidTransition, role, from, to)
		}
		if e.guard != nil {
			return e.guard(facts)
		}
		return nil
	}
	return fmt.Errorf("%w: %s -> %s", schedulingerrors.ErrInvalidTransition, from, to)
}

// Targets lists the statuses role may request from the given status, ignoring
// time guards.
func Targets(from model.ReservationStatus, role model.ActorRole) []model.ReservationStatus {
	var targets []model.ReservationStatus
	for _, e := range edges {
		if e.from == from && hasRole(e.roles, role) {
			targets = append(targets, e.to)
		}
	}
	return targets
}

func IsTerminal(status model.ReservationStatus) bool {
	switch status {
	case model.StatusCompleted,
		model.StatusRejectedByProvider,
		model.StatusRejectedBySystem,
		model.StatusCancelledByClient,
		model.StatusCancelledByProvider:
		return true
	default:
		return false
	}
}

// ReleasesWindow reports whether entering status frees the referenced window
// for new reservations.
func ReleasesWindow(status model.ReservationStatus) bool {
	switch status {
	case model.StatusRejectedByProvider,
		model.StatusRejectedBySystem,
		model.StatusCancelledByClient,
		model.StatusCancelledByProvider:
		return true
	default:
		return false
	}
}

func hasRole(roles []model.ActorRole, role model.ActorRole) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

package model

type ReservationStatus string

const (
	StatusPendingConfirmation ReservationStatus = "pending_confirmation"
	StatusConfirmed           ReservationStatus = "confirmed"
	StatusCompleted           ReservationStatus = "completed"
	StatusRejectedByProvider  ReservationStatus = "rejected_by_pt"
	StatusRejectedBySystem    ReservationStatus = "rejected_by_system"
	StatusCancelledByClient   ReservationStatus = "cancelled_by_client"
	StatusCancelledByProvider ReservationStatus = "cancelled_by_pt"
)

var AllReservationStatuses = []ReservationStatus{
	StatusPendingConfirmation,
	StatusConfirmed,
	StatusCompleted,
	StatusRejectedByProvider,
	StatusRejectedBySystem,
	StatusCancelledByClient,
	StatusCancelledByProvider,
}

// ActiveStatuses hold their availability window. A window has at most one
// reservation in any of these statuses.
var ActiveStatuses = []ReservationStatus{
	StatusPendingConfirmation,
	StatusConfirmed,
	StatusCompleted,
}

func (s ReservationStatus) Valid() bool {
	for _, known := range AllReservationStatuses {
		if s == known {
			return true
		}
	}
	return false
}

func (s ReservationStatus) Active() bool {
	for _, active := range ActiveStatuses {
		if s == active {
			return true
		}
	}
	return false
}

type ActorRole string

const (
	RoleClient   ActorRole = "client"
	RoleProvider ActorRole = "provider"
	RoleSystem   ActorRole = "system"
)

var AllActorRoles = []ActorRole{RoleClient, RoleProvider, RoleSystem}

func (r ActorRole) Valid() bool {
	switch r {
	case RoleClient, RoleProvider, RoleSystem:
		return true
	default:
		return false
	}
}

// SystemActorID is recorded as the status actor for sweeper-driven transitions.
const SystemActorID = "system"

package model

import "time"

type Reservation struct {
	ID                   string            `json:"id" bson:"_id" gorm:"type:varchar(36);primaryKey"`
	ClientID             string            `json:"client_id" bson:"client_id" gorm:"type:varchar(64);not null;index"`
	ProviderID           string            `json:"provider_id" bson:"provider_id" gorm:"type:varchar(64);not null;index"`
	AvailabilityWindowID string            `json:"availability_window_id" bson:"availability_window_id" gorm:"type:varchar(36);not null;index"`
	StartInstant         time.Time         `json:"start_instant" bson:"start_instant" gorm:"not null;index"`
	EndInstant           time.Time         `json:"end_instant" bson:"end_instant" gorm:"not null"`
	HourlyRateCents      int64             `json:"hourly_rate_cents" bson:"hourly_rate_cents" gorm:"not null"`
	PriceSnapshotCents   int64             `json:"price_snapshot_cents" bson:"price_snapshot_cents" gorm:"not null"`
	Status               ReservationStatus `json:"status" bson:"status" gorm:"type:varchar(32);not null;index;check:chk_reservations_status,status IN ('pending_confirmation','confirmed','completed','rejected_by_pt','rejected_by_system','cancelled_by_client','cancelled_by_pt')"`
	ClientNote           string            `json:"client_note,omitempty" bson:"client_note,omitempty" gorm:"type:text"`
	StatusActor          string            `json:"status_actor" bson:"status_actor" gorm:"type:varchar(64)"`
	CreatedAt            time.Time         `json:"created_at" bson:"created_at" gorm:"not null;index"`
	UpdatedAt            time.Time         `json:"updated_at" bson:"updated_at" gorm:"not null"`
	ConfirmedAt          *time.Time        `json:"confirmed_at,omitempty" bson:"confirmed_at,omitempty"`
	CompletedAt          *time.Time        `json:"completed_at,omitempty" bson:"completed_at,omitempty"`
	TerminatedAt         *time.Time        `json:"terminated_at,omitempty" bson:"terminated_at,omitempty"`
}

func (Reservation) TableName() string {
	return "reservations"
}

// ReservationFilter selects reservations by exactly one party. Status is optional.
type ReservationFilter struct {
	ProviderID string
	ClientID   string
	Status     ReservationStatus
	Limit      int
	Offset     int64
}

// StatusChange is the conditional write performed for a lifecycle transition.
type StatusChange struct {
	ReservationID string
	From          ReservationStatus
	To            ReservationStatus
	ActorID       string
	At            time.Time
}

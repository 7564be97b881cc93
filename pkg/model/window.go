package model

import "time"

// AvailabilityWindow is a bookable time range published by a provider for one
// local calendar date. Bounds are stored as UTC instants.
type AvailabilityWindow struct {
	ID           string    `json:"id" bson:"_id" gorm:"type:varchar(36);primaryKey"`
	ProviderID   string    `json:"provider_id" bson:"provider_id" gorm:"type:varchar(64);not null;index:idx_windows_provider_date,priority:1"`
	Date         string    `json:"date" bson:"date" gorm:"type:varchar(10);not null;index:idx_windows_provider_date,priority:2"`
	StartInstant time.Time `json:"start_instant" bson:"start_instant" gorm:"not null;index"`
	EndInstant   time.Time `json:"end_instant" bson:"end_instant" gorm:"not null"`
	IsBooked     bool      `json:"is_booked" bson:"is_booked" gorm:"not null;default:false"`
	IsRecurring  bool      `json:"is_recurring" bson:"is_recurring" gorm:"not null;default:false"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at" gorm:"not null"`
	UpdatedAt    time.Time `json:"updated_at" bson:"updated_at" gorm:"not null"`
}

func (AvailabilityWindow) TableName() string {
	return "availability_windows"
}

type WindowFilter struct {
	ProviderID string
	FromDate   string
	ToDate     string
	OnlyOpen   bool
}

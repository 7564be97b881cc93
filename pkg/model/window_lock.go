package model

import "time"

// WindowLock is touched inside every transaction that adds or moves a window so
// that concurrent edits of one provider's day are serialized by the store.
type WindowLock struct {
	ID        string    `bson:"_id" json:"id" gorm:"type:varchar(96);primaryKey"`
	Version   int64     `bson:"version" json:"version" gorm:"not null;default:0"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at" gorm:"not null"`
}

func (WindowLock) TableName() string {
	return "window_locks"
}

func WindowLockID(providerID, date string) string {
	return providerID + "|" + date
}

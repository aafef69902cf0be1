package models

import "time"

type NotificationStatus string

const (
	NotificationPending   NotificationStatus = "pending"
	NotificationDelivered NotificationStatus = "delivered"
	NotificationFailed    NotificationStatus = "failed"
)

// NotificationJob is spawned exactly once, at the transition into confirmed.
// The unique index on BookingID is the backstop against double-spawning.
type NotificationJob struct {
	ID            uint               `gorm:"primaryKey" json:"id"`
	BookingID     uint               `gorm:"not null;uniqueIndex" json:"booking_id"`
	Recipient     string             `gorm:"not null" json:"recipient"`
	Body          string             `gorm:"type:text;not null" json:"body"`
	Attempts      int                `gorm:"not null;default:0" json:"attempts"`
	NextAttemptAt time.Time          `gorm:"not null;index" json:"next_attempt_at"`
	Status        NotificationStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	LastError     string             `json:"last_error,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

package models

import "time"

type BookingStatus string

const (
	StatusPendingPayment BookingStatus = "pending_payment"
	StatusConfirmed      BookingStatus = "confirmed"
	StatusExpired        BookingStatus = "expired"
	StatusCancelled      BookingStatus = "cancelled"
	StatusFailed         BookingStatus = "failed"
)

// IsTerminal reports whether no further transition may be applied.
func (s BookingStatus) IsTerminal() bool {
	return s != StatusPendingPayment
}

type Booking struct {
	ID             uint          `gorm:"primaryKey" json:"id"`
	EventID        uint          `gorm:"not null;index" json:"event_id"`
	AttendeeName   string        `gorm:"not null" json:"attendee_name"`
	AttendeePhone  string        `gorm:"not null" json:"attendee_phone"`
	AttendeeEmail  string        `json:"attendee_email,omitempty"`
	Seats          int           `gorm:"not null" json:"seats"`
	Status         BookingStatus `gorm:"type:varchar(20);not null;default:'pending_payment';index" json:"status"`
	PaymentOrderID string        `gorm:"index" json:"payment_order_id,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`

	Event *Event `gorm:"foreignKey:EventID" json:"event,omitempty"`
}

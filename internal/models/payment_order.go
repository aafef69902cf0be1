package models

import "time"

type PaymentOrderStatus string

const (
	OrderCreated PaymentOrderStatus = "created"
	OrderPaid    PaymentOrderStatus = "paid"
	OrderFailed  PaymentOrderStatus = "failed"
)

// PaymentOrder mirrors the order created at the gateway. One per booking,
// never reused across bookings.
type PaymentOrder struct {
	OrderID   string             `gorm:"primaryKey" json:"order_id"`
	BookingID uint               `gorm:"not null;uniqueIndex" json:"booking_id"`
	Amount    int64              `gorm:"not null" json:"amount"` // smallest currency unit (paise)
	Currency  string             `gorm:"type:varchar(10);not null" json:"currency"`
	Status    PaymentOrderStatus `gorm:"type:varchar(20);not null;default:'created'" json:"status"`
	PaymentID string             `json:"payment_id,omitempty"`
	ReceiptID string             `json:"receipt_id,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

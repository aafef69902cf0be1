package dto

import (
	"time"

	"github.com/jbs-labs/booking-service/internal/models"
	"github.com/jbs-labs/booking-service/internal/payment"
)

type BookingResponse struct {
	ID             uint                 `json:"id"`
	EventID        uint                 `json:"event_id"`
	AttendeeName   string               `json:"attendee_name"`
	AttendeePhone  string               `json:"attendee_phone"`
	Seats          int                  `json:"seats"`
	Status         models.BookingStatus `json:"status"`
	PaymentOrderID string               `json:"payment_order_id,omitempty"`
	CreatedAt      time.Time            `json:"created_at"`
}

// PaymentParams is what the client needs to complete payment out-of-band.
type PaymentParams struct {
	OrderID  string `json:"order_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	KeyID    string `json:"key_id"`
}

type CreateBookingResponse struct {
	Booking BookingResponse `json:"booking"`
	Payment PaymentParams   `json:"payment"`
}

type EventStatusResponse struct {
	ID             uint      `json:"id"`
	Name           string    `json:"name"`
	Capacity       int       `json:"capacity"`
	Reserved       int       `json:"reserved"`
	SeatsAvailable int       `json:"seats_available"`
	Price          float64   `json:"price"`
	StartAt        time.Time `json:"start_at"`
}

type WebhookResponse struct {
	Status string `json:"status"`
}

type ErrorResponse struct {
	Message string `json:"message"`
}

func ToEventStatusResponse(e *models.Event) EventStatusResponse {
	return EventStatusResponse{
		ID:             e.ID,
		Name:           e.Name,
		Capacity:       e.Capacity,
		Reserved:       e.Reserved,
		SeatsAvailable: e.Capacity - e.Reserved,
		Price:          e.Price,
		StartAt:        e.StartAt,
	}
}

func ToBookingResponse(b *models.Booking) BookingResponse {
	return BookingResponse{
		ID:             b.ID,
		EventID:        b.EventID,
		AttendeeName:   b.AttendeeName,
		AttendeePhone:  b.AttendeePhone,
		Seats:          b.Seats,
		Status:         b.Status,
		PaymentOrderID: b.PaymentOrderID,
		CreatedAt:      b.CreatedAt,
	}
}

func ToCreateBookingResponse(b *models.Booking, order *payment.Order, keyID string) CreateBookingResponse {
	return CreateBookingResponse{
		Booking: ToBookingResponse(b),
		Payment: PaymentParams{
			OrderID:  order.ID,
			Amount:   order.Amount,
			Currency: order.Currency,
			KeyID:    keyID,
		},
	}
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jbs-labs/booking-service/internal/models"
	"github.com/jbs-labs/booking-service/internal/payment"
	"github.com/jbs-labs/booking-service/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrEventNotFound      = errors.New("event not found")
	ErrBookingNotFound    = errors.New("booking not found")
	ErrInvalidSeatCount   = errors.New("seat count must be positive and within event capacity")
	ErrCapacityExhausted  = errors.New("event capacity exhausted")
	ErrPaymentOrderFailed = errors.New("payment order creation failed")
	ErrAlreadyFinalized   = errors.New("booking is already in a terminal state")
	ErrUnknownOrder       = errors.New("no booking for payment order")
)

const orderCurrency = "INR"

type CreateBookingInput struct {
	AttendeeName  string
	AttendeePhone string
	AttendeeEmail string
	Seats         int
}

type BookingService interface {
	CreateBooking(ctx context.Context, eventID uint, in CreateBookingInput) (*models.Booking, *payment.Order, error)
	CancelBooking(ctx context.Context, bookingID uint) (*models.Booking, error)
	GetBooking(ctx context.Context, id uint) (*models.Booking, error)
	ListBookings(ctx context.Context, eventID uint, status *models.BookingStatus) ([]models.Booking, error)
	GetEvent(ctx context.Context, id uint) (*models.Event, error)
	ListEvents(ctx context.Context) ([]models.Event, error)

	// ExpireBooking reclaims capacity from a pending booking older than the
	// TTL. Returns true only when this call performed the transition.
	ExpireBooking(ctx context.Context, bookingID uint) (bool, error)

	// MarkVerifiedTx and MarkFailedTx run inside the webhook processor's
	// transaction so the transition commits atomically with the dedupe record.
	MarkVerifiedTx(ctx context.Context, tx *gorm.DB, orderID, paymentID string) (*models.NotificationJob, error)
	MarkFailedTx(ctx context.Context, tx *gorm.DB, orderID string) error
}

type Options struct {
	BookingTTL     time.Duration
	GatewayTimeout time.Duration
	// NotifyTo routes every confirmation to a fixed operator number when set;
	// otherwise the attendee's phone is used.
	NotifyTo string
}

type bookingService struct {
	bookingRepo repository.BookingRepository
	eventRepo   repository.EventRepository
	orderRepo   repository.PaymentOrderRepository
	jobRepo     repository.NotificationJobRepository
	gateway     payment.Gateway
	opts        Options
}

func NewBookingService(
	bookingRepo repository.BookingRepository,
	eventRepo repository.EventRepository,
	orderRepo repository.PaymentOrderRepository,
	jobRepo repository.NotificationJobRepository,
	gateway payment.Gateway,
	opts Options,
) BookingService {
	if opts.BookingTTL <= 0 {
		opts.BookingTTL = 15 * time.Minute
	}
	if opts.GatewayTimeout <= 0 {
		opts.GatewayTimeout = 10 * time.Second
	}
	return &bookingService{
		bookingRepo: bookingRepo,
		eventRepo:   eventRepo,
		orderRepo:   orderRepo,
		jobRepo:     jobRepo,
		gateway:     gateway,
		opts:        opts,
	}
}

// CreateBooking reserves capacity and persists a pending booking in one
// transaction, then creates the gateway order outside it so no row lock is
// held across the network call. A gateway failure rolls the reservation back
// in a compensating transaction.
func (s *bookingService) CreateBooking(ctx context.Context, eventID uint, in CreateBookingInput) (*models.Booking, *payment.Order, error) {
	event, err := s.eventRepo.FindByID(ctx, eventID)
	if err != nil {
		return nil, nil, ErrEventNotFound
	}
	if in.Seats <= 0 || in.Seats > event.Capacity {
		return nil, nil, ErrInvalidSeatCount
	}

	booking := &models.Booking{
		EventID:       eventID,
		AttendeeName:  in.AttendeeName,
		AttendeePhone: in.AttendeePhone,
		AttendeeEmail: in.AttendeeEmail,
		Seats:         in.Seats,
		Status:        models.StatusPendingPayment,
	}

	err = s.bookingRepo.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.eventRepo.ReserveSeats(ctx, tx, eventID, in.Seats); err != nil {
			if errors.Is(err, repository.ErrNoCapacity) {
				return ErrCapacityExhausted
			}
			return err
		}
		return s.bookingRepo.Create(ctx, tx, booking)
	})
	if err != nil {
		return nil, nil, err
	}

	amount := int64(math.Round(event.Price*100)) * int64(in.Seats)
	receipt := newReceiptID()

	orderCtx, cancel := context.WithTimeout(ctx, s.opts.GatewayTimeout)
	defer cancel()

	order, err := s.gateway.CreateOrder(orderCtx, amount, orderCurrency, receipt)
	if err != nil {
		s.abortBooking(ctx, booking)
		return nil, nil, fmt.Errorf("%w: %v", ErrPaymentOrderFailed, err)
	}

	err = s.bookingRepo.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.orderRepo.Create(ctx, tx, &models.PaymentOrder{
			OrderID:   order.ID,
			BookingID: booking.ID,
			Amount:    amount,
			Currency:  orderCurrency,
			Status:    models.OrderCreated,
			ReceiptID: receipt,
		}); err != nil {
			return err
		}
		return s.bookingRepo.SetPaymentOrder(ctx, tx, booking.ID, order.ID)
	})
	if err != nil {
		s.abortBooking(ctx, booking)
		return nil, nil, fmt.Errorf("persist payment order: %w", err)
	}

	booking.PaymentOrderID = order.ID
	return booking, order, nil
}

// abortBooking fails a freshly created pending booking and releases its
// reservation. Best effort: the sweeper reclaims anything missed here.
func (s *bookingService) abortBooking(ctx context.Context, booking *models.Booking) {
	err := s.bookingRepo.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.bookingRepo.FindByIDForUpdate(ctx, tx, booking.ID)
		if err != nil {
			return err
		}
		if current.Status != models.StatusPendingPayment {
			return nil
		}
		if err := s.bookingRepo.TransitionStatus(ctx, tx, booking.ID, models.StatusPendingPayment, models.StatusFailed); err != nil {
			return err
		}
		return s.eventRepo.ReleaseSeats(ctx, tx, booking.EventID, booking.Seats)
	})
	if err != nil {
		log.Printf("[Booking] abort of booking %d failed: %v", booking.ID, err)
	}
}

func (s *bookingService) MarkVerifiedTx(ctx context.Context, tx *gorm.DB, orderID, paymentID string) (*models.NotificationJob, error) {
	order, err := s.orderRepo.FindByOrderID(ctx, tx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnknownOrder
		}
		return nil, err
	}

	booking, err := s.bookingRepo.FindByIDForUpdate(ctx, tx, order.BookingID)
	if err != nil {
		return nil, err
	}
	if booking.Status.IsTerminal() {
		// Replay or late delivery after expiry/cancellation; idempotent no-op.
		return nil, nil
	}

	if err := s.bookingRepo.TransitionStatus(ctx, tx, booking.ID, models.StatusPendingPayment, models.StatusConfirmed); err != nil {
		return nil, err
	}
	if err := s.orderRepo.UpdateStatus(ctx, tx, orderID, models.OrderPaid, paymentID); err != nil {
		return nil, err
	}

	event, err := s.eventRepo.FindByID(ctx, booking.EventID)
	if err != nil {
		return nil, err
	}

	job := &models.NotificationJob{
		BookingID:     booking.ID,
		Recipient:     s.notifyRecipient(booking),
		Body:          confirmationMessage(booking, event, order),
		Status:        models.NotificationPending,
		NextAttemptAt: time.Now(),
	}
	if err := s.jobRepo.Create(ctx, tx, job); err != nil {
		return nil, err
	}
	return job, nil
}

func (s *bookingService) MarkFailedTx(ctx context.Context, tx *gorm.DB, orderID string) error {
	order, err := s.orderRepo.FindByOrderID(ctx, tx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUnknownOrder
		}
		return err
	}

	booking, err := s.bookingRepo.FindByIDForUpdate(ctx, tx, order.BookingID)
	if err != nil {
		return err
	}
	if booking.Status.IsTerminal() {
		return nil
	}

	if err := s.bookingRepo.TransitionStatus(ctx, tx, booking.ID, models.StatusPendingPayment, models.StatusFailed); err != nil {
		return err
	}
	if err := s.orderRepo.UpdateStatus(ctx, tx, orderID, models.OrderFailed, ""); err != nil {
		return err
	}
	return s.eventRepo.ReleaseSeats(ctx, tx, booking.EventID, booking.Seats)
}

func (s *bookingService) ExpireBooking(ctx context.Context, bookingID uint) (bool, error) {
	expired := false
	err := s.bookingRepo.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		booking, err := s.bookingRepo.FindByIDForUpdate(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		// A webhook may have confirmed the booking between the sweep scan and
		// this lock; the re-read decides who wins.
		if booking.Status.IsTerminal() {
			return nil
		}
		if time.Since(booking.CreatedAt) <= s.opts.BookingTTL {
			return nil
		}
		if err := s.bookingRepo.TransitionStatus(ctx, tx, booking.ID, models.StatusPendingPayment, models.StatusExpired); err != nil {
			return err
		}
		if err := s.eventRepo.ReleaseSeats(ctx, tx, booking.EventID, booking.Seats); err != nil {
			return err
		}
		expired = true
		return nil
	})
	return expired, err
}

func (s *bookingService) CancelBooking(ctx context.Context, bookingID uint) (*models.Booking, error) {
	var result *models.Booking
	err := s.bookingRepo.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		booking, err := s.bookingRepo.FindByIDForUpdate(ctx, tx, bookingID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookingNotFound
			}
			return err
		}
		if booking.Status.IsTerminal() {
			return ErrAlreadyFinalized
		}
		if err := s.bookingRepo.TransitionStatus(ctx, tx, booking.ID, models.StatusPendingPayment, models.StatusCancelled); err != nil {
			return err
		}
		if err := s.eventRepo.ReleaseSeats(ctx, tx, booking.EventID, booking.Seats); err != nil {
			return err
		}
		booking.Status = models.StatusCancelled
		result = booking
		return nil
	})
	return result, err
}

func (s *bookingService) GetBooking(ctx context.Context, id uint) (*models.Booking, error) {
	booking, err := s.bookingRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return booking, nil
}

func (s *bookingService) ListBookings(ctx context.Context, eventID uint, status *models.BookingStatus) ([]models.Booking, error) {
	return s.bookingRepo.FindByEventID(ctx, eventID, status)
}

func (s *bookingService) GetEvent(ctx context.Context, id uint) (*models.Event, error) {
	event, err := s.eventRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	return event, nil
}

func (s *bookingService) ListEvents(ctx context.Context) ([]models.Event, error) {
	return s.eventRepo.FindAll(ctx)
}

func (s *bookingService) notifyRecipient(booking *models.Booking) string {
	if s.opts.NotifyTo != "" {
		return s.opts.NotifyTo
	}
	return "whatsapp:" + booking.AttendeePhone
}

func newReceiptID() string {
	return "BK" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func confirmationMessage(booking *models.Booking, event *models.Event, order *models.PaymentOrder) string {
	return fmt.Sprintf(
		"Booking confirmed!\n"+
			"Booking: #%d\n"+
			"Event: %s\n"+
			"Starts: %s\n"+
			"Seats: %d\n"+
			"Total: Rs %.2f\n"+
			"Attendee: %s (%s)",
		booking.ID,
		event.Name,
		event.StartAt.Format("2006-01-02 15:04"),
		booking.Seats,
		float64(order.Amount)/100,
		booking.AttendeeName,
		booking.AttendeePhone,
	)
}

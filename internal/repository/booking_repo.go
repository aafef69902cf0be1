package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jbs-labs/booking-service/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrStateChanged reports a transition whose from-state predicate matched no
// row: another transaction moved the booking first.
var ErrStateChanged = errors.New("booking state changed concurrently")

type BookingRepository interface {
	Create(ctx context.Context, tx *gorm.DB, booking *models.Booking) error
	FindByID(ctx context.Context, id uint) (*models.Booking, error)
	FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.Booking, error)
	FindByEventID(ctx context.Context, eventID uint, status *models.BookingStatus) ([]models.Booking, error)
	FindPendingOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]models.Booking, error)
	TransitionStatus(ctx context.Context, tx *gorm.DB, bookingID uint, from, to models.BookingStatus) error
	SetPaymentOrder(ctx context.Context, tx *gorm.DB, bookingID uint, orderID string) error
	CountSeatsHeld(ctx context.Context, eventID uint) (int64, error)
	GetDB() *gorm.DB
}

type bookingRepository struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) BookingRepository {
	return &bookingRepository{db: db}
}

func (r *bookingRepository) GetDB() *gorm.DB {
	return r.db
}

func (r *bookingRepository) Create(ctx context.Context, tx *gorm.DB, booking *models.Booking) error {
	return tx.WithContext(ctx).Create(booking).Error
}

func (r *bookingRepository) FindByID(ctx context.Context, id uint) (*models.Booking, error) {
	var booking models.Booking
	if err := r.db.WithContext(ctx).First(&booking, id).Error; err != nil {
		return nil, err
	}
	return &booking, nil
}

// FindByIDForUpdate acquires a row-level lock on the booking within the given
// transaction. Every state transition reads through this method so that
// concurrent webhook replays and sweeper races cannot produce lost updates.
func (r *bookingRepository) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.Booking, error) {
	var booking models.Booking
	if err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}).
		First(&booking, id).Error; err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *bookingRepository) FindByEventID(ctx context.Context, eventID uint, status *models.BookingStatus) ([]models.Booking, error) {
	var bookings []models.Booking
	q := r.db.WithContext(ctx).Where("event_id = ?", eventID)
	if status != nil {
		q = q.Where("status = ?", *status)
	}
	if err := q.Order("id ASC").Find(&bookings).Error; err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *bookingRepository) FindPendingOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]models.Booking, error) {
	var bookings []models.Booking
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", models.StatusPendingPayment, cutoff).
		Order("id ASC").
		Limit(limit).
		Find(&bookings).Error
	if err != nil {
		return nil, err
	}
	return bookings, nil
}

// TransitionStatus is a compare-and-set: the from-state predicate backs up
// the row lock, so a write after a stale read still cannot clobber a
// concurrent transition.
func (r *bookingRepository) TransitionStatus(ctx context.Context, tx *gorm.DB, bookingID uint, from, to models.BookingStatus) error {
	result := tx.WithContext(ctx).
		Model(&models.Booking{}).
		Where("id = ? AND status = ?", bookingID, from).
		Update("status", to)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStateChanged
	}
	return nil
}

func (r *bookingRepository) SetPaymentOrder(ctx context.Context, tx *gorm.DB, bookingID uint, orderID string) error {
	return tx.WithContext(ctx).
		Model(&models.Booking{}).
		Where("id = ?", bookingID).
		Update("payment_order_id", orderID).Error
}

// CountSeatsHeld sums seats across bookings still holding capacity.
func (r *bookingRepository) CountSeatsHeld(ctx context.Context, eventID uint) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("event_id = ? AND status IN ?", eventID,
			[]models.BookingStatus{models.StatusPendingPayment, models.StatusConfirmed}).
		Select("COALESCE(SUM(seats), 0)").
		Scan(&total).Error
	return total, err
}

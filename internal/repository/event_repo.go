package repository

import (
	"context"
	"errors"

	"github.com/jbs-labs/booking-service/internal/models"
	"gorm.io/gorm"
)

var ErrNoCapacity = errors.New("insufficient remaining capacity")

type EventRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Event, error)
	FindAll(ctx context.Context) ([]models.Event, error)
	ReserveSeats(ctx context.Context, tx *gorm.DB, eventID uint, seats int) error
	ReleaseSeats(ctx context.Context, tx *gorm.DB, eventID uint, seats int) error
}

type eventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepository{db: db}
}

func (r *eventRepository) FindByID(ctx context.Context, id uint) (*models.Event, error) {
	var event models.Event
	if err := r.db.WithContext(ctx).First(&event, id).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *eventRepository) FindAll(ctx context.Context) ([]models.Event, error) {
	var events []models.Event
	if err := r.db.WithContext(ctx).Order("start_at ASC").Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

// ReserveSeats increments the reserved count only while it stays within
// capacity. The guarded UPDATE is a single atomic read-modify-write, so
// concurrent callers across service instances serialize on the row.
func (r *eventRepository) ReserveSeats(ctx context.Context, tx *gorm.DB, eventID uint, seats int) error {
	result := tx.WithContext(ctx).
		Model(&models.Event{}).
		Where("id = ? AND reserved + ? <= capacity", eventID, seats).
		Update("reserved", gorm.Expr("reserved + ?", seats))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		// Caller resolves the event first, so zero rows means the guard failed.
		return ErrNoCapacity
	}
	return nil
}

// ReleaseSeats decrements the reserved count, clamped at zero.
func (r *eventRepository) ReleaseSeats(ctx context.Context, tx *gorm.DB, eventID uint, seats int) error {
	return tx.WithContext(ctx).
		Model(&models.Event{}).
		Where("id = ?", eventID).
		Update("reserved", gorm.Expr("GREATEST(reserved - ?, 0)", seats)).Error
}

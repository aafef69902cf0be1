package repository

import (
	"context"
	"time"

	"github.com/jbs-labs/booking-service/internal/models"
	"gorm.io/gorm"
)

type NotificationJobRepository interface {
	Create(ctx context.Context, tx *gorm.DB, job *models.NotificationJob) error
	FindByID(ctx context.Context, id uint) (*models.NotificationJob, error)
	FindDue(ctx context.Context, now time.Time, limit int) ([]models.NotificationJob, error)
	MarkDelivered(ctx context.Context, id uint) error
	MarkFailed(ctx context.Context, id uint, attempts int, lastError string) error
	ScheduleRetry(ctx context.Context, id uint, attempts int, nextAttemptAt time.Time, lastError string) error
}

type notificationJobRepository struct {
	db *gorm.DB
}

func NewNotificationJobRepository(db *gorm.DB) NotificationJobRepository {
	return &notificationJobRepository{db: db}
}

func (r *notificationJobRepository) Create(ctx context.Context, tx *gorm.DB, job *models.NotificationJob) error {
	return tx.WithContext(ctx).Create(job).Error
}

func (r *notificationJobRepository) FindByID(ctx context.Context, id uint) (*models.NotificationJob, error) {
	var job models.NotificationJob
	if err := r.db.WithContext(ctx).First(&job, id).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *notificationJobRepository) FindDue(ctx context.Context, now time.Time, limit int) ([]models.NotificationJob, error) {
	var jobs []models.NotificationJob
	err := r.db.WithContext(ctx).
		Where("status = ? AND next_attempt_at <= ?", models.NotificationPending, now).
		Order("next_attempt_at ASC").
		Limit(limit).
		Find(&jobs).Error
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

// MarkDelivered flips a pending job to delivered. The status guard keeps an
// already-delivered job from ever being re-sent, even when re-enqueued.
func (r *notificationJobRepository) MarkDelivered(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).
		Model(&models.NotificationJob{}).
		Where("id = ? AND status = ?", id, models.NotificationPending).
		Updates(map[string]any{
			"status":   models.NotificationDelivered,
			"attempts": gorm.Expr("attempts + 1"),
		}).Error
}

func (r *notificationJobRepository) MarkFailed(ctx context.Context, id uint, attempts int, lastError string) error {
	return r.db.WithContext(ctx).
		Model(&models.NotificationJob{}).
		Where("id = ? AND status = ?", id, models.NotificationPending).
		Updates(map[string]any{
			"status":     models.NotificationFailed,
			"attempts":   attempts,
			"last_error": lastError,
		}).Error
}

func (r *notificationJobRepository) ScheduleRetry(ctx context.Context, id uint, attempts int, nextAttemptAt time.Time, lastError string) error {
	return r.db.WithContext(ctx).
		Model(&models.NotificationJob{}).
		Where("id = ? AND status = ?", id, models.NotificationPending).
		Updates(map[string]any{
			"attempts":        attempts,
			"next_attempt_at": nextAttemptAt,
			"last_error":      lastError,
		}).Error
}

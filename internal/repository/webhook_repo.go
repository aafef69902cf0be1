package repository

import (
	"context"

	"github.com/jbs-labs/booking-service/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type WebhookEventRepository interface {
	InsertIfAbsent(ctx context.Context, tx *gorm.DB, record *models.WebhookEvent) (bool, error)
	Exists(ctx context.Context, gatewayEventID string) (bool, error)
}

type webhookEventRepository struct {
	db *gorm.DB
}

func NewWebhookEventRepository(db *gorm.DB) WebhookEventRepository {
	return &webhookEventRepository{db: db}
}

// InsertIfAbsent writes the dedupe record, returning false when the gateway
// event id was already recorded. Running inside the same transaction as the
// booking transition closes the race where two concurrent deliveries both
// see "absent".
func (r *webhookEventRepository) InsertIfAbsent(ctx context.Context, tx *gorm.DB, record *models.WebhookEvent) (bool, error) {
	result := tx.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "gateway_event_id"}},
			DoNothing: true,
		}).
		Create(record)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *webhookEventRepository) Exists(ctx context.Context, gatewayEventID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.WebhookEvent{}).
		Where("gateway_event_id = ?", gatewayEventID).
		Count(&count).Error
	return count > 0, err
}

package repository

import (
	"context"

	"github.com/jbs-labs/booking-service/internal/models"
	"gorm.io/gorm"
)

type PaymentOrderRepository interface {
	Create(ctx context.Context, tx *gorm.DB, order *models.PaymentOrder) error
	FindByOrderID(ctx context.Context, tx *gorm.DB, orderID string) (*models.PaymentOrder, error)
	UpdateStatus(ctx context.Context, tx *gorm.DB, orderID string, status models.PaymentOrderStatus, paymentID string) error
}

type paymentOrderRepository struct {
	db *gorm.DB
}

func NewPaymentOrderRepository(db *gorm.DB) PaymentOrderRepository {
	return &paymentOrderRepository{db: db}
}

func (r *paymentOrderRepository) Create(ctx context.Context, tx *gorm.DB, order *models.PaymentOrder) error {
	return tx.WithContext(ctx).Create(order).Error
}

func (r *paymentOrderRepository) FindByOrderID(ctx context.Context, tx *gorm.DB, orderID string) (*models.PaymentOrder, error) {
	var order models.PaymentOrder
	if err := tx.WithContext(ctx).
		Where("order_id = ?", orderID).
		First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *paymentOrderRepository) UpdateStatus(ctx context.Context, tx *gorm.DB, orderID string, status models.PaymentOrderStatus, paymentID string) error {
	updates := map[string]any{"status": status}
	if paymentID != "" {
		updates["payment_id"] = paymentID
	}
	return tx.WithContext(ctx).
		Model(&models.PaymentOrder{}).
		Where("order_id = ?", orderID).
		Updates(updates).Error
}

package database

import (
	"log"

	"github.com/jbs-labs/booking-service/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func NewPostgresDB(dsn string) *gorm.DB {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.Event{},
		&models.Booking{},
		&models.PaymentOrder{},
		&models.WebhookEvent{},
		&models.NotificationJob{},
	); err != nil {
		log.Fatalf("failed to auto-migrate: %v", err)
	}

	// Reserved seats can never exceed capacity, whatever path writes them
	db.Exec(`
		ALTER TABLE events DROP CONSTRAINT IF EXISTS chk_events_reserved;
		ALTER TABLE events ADD CONSTRAINT chk_events_reserved
		CHECK (reserved >= 0 AND reserved <= capacity)
	`)

	return db
}

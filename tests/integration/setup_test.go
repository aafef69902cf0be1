//go:build integration

package integration

import (
	"fmt"
	"log"
	"os"
	"testing"

	"github.com/jbs-labs/booking-service/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testDB *gorm.DB

func TestMain(m *testing.M) {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		getEnv("TEST_DB_HOST", "localhost"),
		getEnv("TEST_DB_PORT", "5434"),
		getEnv("TEST_DB_USER", "postgres"),
		getEnv("TEST_DB_PASSWORD", "postgres"),
		getEnv("TEST_DB_NAME", "booking_test_db"),
	)

	var err error
	testDB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		log.Fatalf("failed to connect to test database: %v", err)
	}

	dropTables()

	if err := testDB.AutoMigrate(
		&models.Event{},
		&models.Booking{},
		&models.PaymentOrder{},
		&models.WebhookEvent{},
		&models.NotificationJob{},
	); err != nil {
		log.Fatalf("failed to auto-migrate test database: %v", err)
	}

	code := m.Run()

	dropTables()

	os.Exit(code)
}

func dropTables() {
	testDB.Exec("DROP TABLE IF EXISTS notification_jobs")
	testDB.Exec("DROP TABLE IF EXISTS webhook_events")
	testDB.Exec("DROP TABLE IF EXISTS payment_orders")
	testDB.Exec("DROP TABLE IF EXISTS bookings")
	testDB.Exec("DROP TABLE IF EXISTS events")
}

func cleanTables() {
	testDB.Exec("DELETE FROM notification_jobs")
	testDB.Exec("DELETE FROM webhook_events")
	testDB.Exec("DELETE FROM payment_orders")
	testDB.Exec("DELETE FROM bookings")
	testDB.Exec("DELETE FROM events")
	testDB.Exec("ALTER SEQUENCE IF EXISTS events_id_seq RESTART WITH 1")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

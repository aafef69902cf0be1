package main

import (
	"context"
	"log"

	"github.com/jbs-labs/booking-service/config"
	"github.com/jbs-labs/booking-service/internal/dispatcher"
	"github.com/jbs-labs/booking-service/internal/handler"
	"github.com/jbs-labs/booking-service/internal/middleware"
	"github.com/jbs-labs/booking-service/internal/notifier"
	"github.com/jbs-labs/booking-service/internal/payment"
	"github.com/jbs-labs/booking-service/internal/repository"
	"github.com/jbs-labs/booking-service/internal/service"
	"github.com/jbs-labs/booking-service/internal/sweeper"
	"github.com/jbs-labs/booking-service/pkg/database"
	"github.com/jbs-labs/booking-service/pkg/rabbitmq"
	"github.com/labstack/echo/v4"
	echoMw "github.com/labstack/echo/v4/middleware"
)

func main() {
	cfg := config.Load()

	db := database.NewPostgresDB(cfg.DSN())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// RabbitMQ: webhook processing publishes notification jobs, the
	// dispatcher consumes them
	publisher, err := rabbitmq.NewPublisher(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect to RabbitMQ: %v", err)
	}
	defer publisher.Close()

	mqConsumer, err := rabbitmq.NewConsumer(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect to RabbitMQ: %v", err)
	}
	defer mqConsumer.Close()

	msgs, err := mqConsumer.Consume()
	if err != nil {
		log.Fatalf("failed to start consuming: %v", err)
	}

	// Repositories
	eventRepo := repository.NewEventRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	orderRepo := repository.NewPaymentOrderRepository(db)
	webhookRepo := repository.NewWebhookEventRepository(db)
	jobRepo := repository.NewNotificationJobRepository(db)

	// External collaborators
	gateway := payment.NewRazorpayGateway(cfg.RazorpayKeyID, cfg.RazorpayKeySecret, cfg.RazorpayWebhookSecret)
	sender := notifier.NewTwilioNotifier(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.WhatsAppFrom)

	// Services
	bookingSvc := service.NewBookingService(bookingRepo, eventRepo, orderRepo, jobRepo, gateway, service.Options{
		BookingTTL:     cfg.BookingTTL,
		GatewayTimeout: cfg.GatewayTimeout,
		NotifyTo:       cfg.WhatsAppTo,
	})
	webhookSvc := service.NewWebhookService(db, webhookRepo, bookingSvc, gateway)

	// Background workers
	dispatcher.New(jobRepo, sender, cfg.NotifyMaxAttempts, cfg.NotifyBackoffBase).Start(ctx, msgs)
	sweeper.New(bookingRepo, bookingSvc, cfg.BookingTTL, cfg.SweepInterval).Start(ctx)

	// Echo
	e := echo.New()
	e.HTTPErrorHandler = middleware.ErrorHandler
	e.Use(echoMw.RequestLoggerWithConfig(echoMw.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v echoMw.RequestLoggerValues) error {
			log.Printf("%s %s %d", v.Method, v.URI, v.Status)
			return nil
		},
	}))
	e.Use(echoMw.Recover())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok", "service": "booking-service"})
	})

	handler.NewBookingHandler(bookingSvc, gateway.KeyID()).RegisterRoutes(e)
	handler.NewWebhookHandler(webhookSvc, publisher).RegisterRoutes(e)

	log.Printf("Booking Service starting on :%s", cfg.ServerPort)
	e.Logger.Fatal(e.Start(":" + cfg.ServerPort))
}

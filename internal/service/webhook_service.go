package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jbs-labs/booking-service/internal/models"
	"github.com/jbs-labs/booking-service/internal/payment"
	"github.com/jbs-labs/booking-service/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrInvalidSignature = errors.New("webhook signature verification failed")
	ErrBadPayload       = errors.New("webhook payload could not be parsed")
	ErrMissingEventID   = errors.New("webhook is missing the gateway event id")
)

// WebhookOutcome reports what processing did, for the handler's response and
// for waking the notification dispatcher after commit.
type WebhookOutcome struct {
	Duplicate bool
	Job       *models.NotificationJob
}

type WebhookService interface {
	Process(ctx context.Context, payload []byte, signature, gatewayEventID string) (*WebhookOutcome, error)
}

type webhookService struct {
	db          *gorm.DB
	webhookRepo repository.WebhookEventRepository
	bookings    BookingService
	gateway     payment.Gateway
}

func NewWebhookService(db *gorm.DB, webhookRepo repository.WebhookEventRepository, bookings BookingService, gateway payment.Gateway) WebhookService {
	return &webhookService{
		db:          db,
		webhookRepo: webhookRepo,
		bookings:    bookings,
		gateway:     gateway,
	}
}

// Process authenticates, deduplicates and applies one gateway callback. The
// dedupe insert and the booking transition share a transaction, so two
// concurrent deliveries of the same event cannot both transition. An unknown
// order rolls the whole transaction back: the record is not kept, and the
// gateway's own retry policy covers redelivery.
func (s *webhookService) Process(ctx context.Context, payload []byte, signature, gatewayEventID string) (*WebhookOutcome, error) {
	if !s.gateway.VerifySignature(payload, signature) {
		return nil, ErrInvalidSignature
	}
	if gatewayEventID == "" {
		return nil, ErrMissingEventID
	}

	parsed, err := payment.ParseWebhook(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}

	digest := sha256.Sum256(payload)
	outcome := &WebhookOutcome{}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inserted, err := s.webhookRepo.InsertIfAbsent(ctx, tx, &models.WebhookEvent{
			GatewayEventID: gatewayEventID,
			PayloadDigest:  hex.EncodeToString(digest[:]),
			ProcessedAt:    time.Now(),
		})
		if err != nil {
			return err
		}
		if !inserted {
			outcome.Duplicate = true
			return nil
		}

		switch parsed.Outcome {
		case payment.OutcomeSuccess:
			job, err := s.bookings.MarkVerifiedTx(ctx, tx, parsed.OrderID, parsed.PaymentID)
			if err != nil {
				return err
			}
			outcome.Job = job
		case payment.OutcomeFailure:
			return s.bookings.MarkFailedTx(ctx, tx, parsed.OrderID)
		default:
			log.Printf("[Webhook] unrecognized event %s, recorded and skipped", gatewayEventID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

//go:build integration

package integration

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jbs-labs/booking-service/internal/models"
	"github.com/jbs-labs/booking-service/internal/repository"
	"github.com/jbs-labs/booking-service/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capturedPayload(orderID, paymentID string) []byte {
	return fmt.Appendf(nil, `{"event":"payment.captured","payload":{"payment":{"entity":{"id":%q,"order_id":%q,"status":"captured"}}}}`, paymentID, orderID)
}

func failedPayload(orderID, paymentID, reason string) []byte {
	return fmt.Appendf(nil, `{"event":"payment.failed","payload":{"payment":{"entity":{"id":%q,"order_id":%q,"status":"failed","error_description":%q}}}}`, paymentID, orderID, reason)
}

func TestWebhookConfirmsBooking(t *testing.T) {
	cleanTables()
	event := createTestEvent(t, "Golang Meetup Hyderabad", 5, 499)
	svc, webhookSvc := newServices(&fakeGateway{}, 15*time.Minute)

	booking, order, err := svc.CreateBooking(t.Context(), event.ID, attendee(1))
	require.NoError(t, err)

	payload := capturedPayload(order.ID, "pay_it0001")
	outcome, err := webhookSvc.Process(t.Context(), payload, signPayload(payload), "evt_it0001")

	require.NoError(t, err)
	assert.False(t, outcome.Duplicate)
	require.NotNil(t, outcome.Job)
	assert.Equal(t, models.NotificationPending, outcome.Job.Status)
	assert.Contains(t, outcome.Job.Body, event.Name)
	assert.Contains(t, outcome.Job.Body, fmt.Sprintf("#%d", booking.ID))

	got, err := svc.GetBooking(t.Context(), booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, got.Status)
	assert.Equal(t, 1, reservedCount(t, event.ID))

	var paid models.PaymentOrder
	require.NoError(t, testDB.Where("order_id = ?", order.ID).First(&paid).Error)
	assert.Equal(t, models.OrderPaid, paid.Status)
	assert.Equal(t, "pay_it0001", paid.PaymentID)
}

// A redelivered success webhook must not confirm twice or create a second
// notification job.
func TestWebhookDuplicateDeliveryIsIdempotent(t *testing.T) {
	cleanTables()
	event := createTestEvent(t, "Golang Meetup Hyderabad", 5, 499)
	svc, webhookSvc := newServices(&fakeGateway{}, 15*time.Minute)

	booking, order, err := svc.CreateBooking(t.Context(), event.ID, attendee(1))
	require.NoError(t, err)

	payload := capturedPayload(order.ID, "pay_it0001")
	first, err := webhookSvc.Process(t.Context(), payload, signPayload(payload), "evt_it0001")
	require.NoError(t, err)
	require.NotNil(t, first.Job)

	second, err := webhookSvc.Process(t.Context(), payload, signPayload(payload), "evt_it0001")
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.Nil(t, second.Job)

	got, err := svc.GetBooking(t.Context(), booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, got.Status)

	var jobs int64
	require.NoError(t, testDB.Model(&models.NotificationJob{}).Where("booking_id = ?", booking.ID).Count(&jobs).Error)
	assert.Equal(t, int64(1), jobs)
}

func TestWebhookFailureReleasesSeats(t *testing.T) {
	cleanTables()
	event := createTestEvent(t, "Golang Meetup Hyderabad", 5, 499)
	svc, webhookSvc := newServices(&fakeGateway{}, 15*time.Minute)

	booking, order, err := svc.CreateBooking(t.Context(), event.ID, attendee(1))
	require.NoError(t, err)
	assert.Equal(t, 1, reservedCount(t, event.ID))

	payload := failedPayload(order.ID, "pay_it0002", "card declined")
	outcome, err := webhookSvc.Process(t.Context(), payload, signPayload(payload), "evt_it0002")
	require.NoError(t, err)
	assert.Nil(t, outcome.Job)

	got, err := svc.GetBooking(t.Context(), booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, got.Status)
	assert.Equal(t, 0, reservedCount(t, event.ID))

	var failed models.PaymentOrder
	require.NoError(t, testDB.Where("order_id = ?", order.ID).First(&failed).Error)
	assert.Equal(t, models.OrderFailed, failed.Status)
}

// A bad signature leaves no trace: no dedupe record, no state change.
func TestWebhookRejectsInvalidSignature(t *testing.T) {
	cleanTables()
	event := createTestEvent(t, "Golang Meetup Hyderabad", 5, 499)
	svc, webhookSvc := newServices(&fakeGateway{}, 15*time.Minute)

	booking, order, err := svc.CreateBooking(t.Context(), event.ID, attendee(1))
	require.NoError(t, err)

	payload := capturedPayload(order.ID, "pay_it0003")
	_, err = webhookSvc.Process(t.Context(), payload, "deadbeef", "evt_it0003")
	assert.ErrorIs(t, err, service.ErrInvalidSignature)

	got, err := svc.GetBooking(t.Context(), booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingPayment, got.Status)

	recorded, err := repository.NewWebhookEventRepository(testDB).Exists(t.Context(), "evt_it0003")
	require.NoError(t, err)
	assert.False(t, recorded)
}

// An unknown order id rolls the transaction back so the dedupe record is not
// kept and the gateway can redeliver once the order is known.
func TestWebhookUnknownOrderKeepsNoRecord(t *testing.T) {
	cleanTables()
	createTestEvent(t, "Golang Meetup Hyderabad", 5, 499)
	_, webhookSvc := newServices(&fakeGateway{}, 15*time.Minute)

	payload := capturedPayload("order_missing", "pay_it0004")
	_, err := webhookSvc.Process(t.Context(), payload, signPayload(payload), "evt_it0004")
	assert.ErrorIs(t, err, service.ErrUnknownOrder)

	recorded, err := repository.NewWebhookEventRepository(testDB).Exists(t.Context(), "evt_it0004")
	require.NoError(t, err)
	assert.False(t, recorded)
}

// A success webhook after the booking already expired must not resurrect it.
func TestWebhookAfterExpiryDoesNotConfirm(t *testing.T) {
	cleanTables()
	event := createTestEvent(t, "Golang Meetup Hyderabad", 5, 499)
	svc, webhookSvc := newServices(&fakeGateway{}, 15*time.Minute)

	booking, order, err := svc.CreateBooking(t.Context(), event.ID, attendee(1))
	require.NoError(t, err)

	backdatePending(t, booking.ID, 16*time.Minute)
	expired, err := svc.ExpireBooking(t.Context(), booking.ID)
	require.NoError(t, err)
	require.True(t, expired)

	// Late capture lands as an idempotent no-op: accepted and recorded, but
	// the expired booking is not resurrected.
	payload := capturedPayload(order.ID, "pay_it0005")
	outcome, err := webhookSvc.Process(t.Context(), payload, signPayload(payload), "evt_it0005")
	require.NoError(t, err)
	assert.Nil(t, outcome.Job)

	got, err := svc.GetBooking(t.Context(), booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusExpired, got.Status)
	assert.Equal(t, 0, reservedCount(t, event.ID))
}

// Expiry and confirmation racing on the same pending booking: the row lock
// plus the from-state predicate let exactly one transition win, and the
// reserved count always matches the winner.
func TestExpireAndConfirmRaceExactlyOneWins(t *testing.T) {
	cleanTables()
	event := createTestEvent(t, "Golang Meetup Hyderabad", 10, 499)
	svc, webhookSvc := newServices(&fakeGateway{}, 15*time.Minute)

	confirmed := 0
	for i := 0; i < 5; i++ {
		booking, order, err := svc.CreateBooking(t.Context(), event.ID, attendee(i))
		require.NoError(t, err)
		backdatePending(t, booking.ID, 16*time.Minute)

		payload := capturedPayload(order.ID, fmt.Sprintf("pay_race%04d", i))
		eventID := fmt.Sprintf("evt_race%04d", i)

		var wg sync.WaitGroup
		var expired bool
		var expireErr, confirmErr error
		var outcome *service.WebhookOutcome

		wg.Add(2)
		go func() {
			defer wg.Done()
			expired, expireErr = svc.ExpireBooking(t.Context(), booking.ID)
		}()
		go func() {
			defer wg.Done()
			outcome, confirmErr = webhookSvc.Process(t.Context(), payload, signPayload(payload), eventID)
		}()
		wg.Wait()

		require.NoError(t, expireErr)
		require.NoError(t, confirmErr)

		got, err := svc.GetBooking(t.Context(), booking.ID)
		require.NoError(t, err)

		if expired {
			assert.Equal(t, models.StatusExpired, got.Status)
			assert.Nil(t, outcome.Job, "expired booking must not spawn a notification")
		} else {
			assert.Equal(t, models.StatusConfirmed, got.Status)
			require.NotNil(t, outcome.Job, "confirmation without expiry must spawn the notification")
			confirmed++
		}
		assert.Equal(t, confirmed, reservedCount(t, event.ID))
	}

	var jobs int64
	require.NoError(t, testDB.Model(&models.NotificationJob{}).Count(&jobs).Error)
	assert.Equal(t, int64(confirmed), jobs)
}

func backdatePending(t *testing.T, bookingID uint, age time.Duration) {
	t.Helper()
	err := testDB.Model(&models.Booking{}).
		Where("id = ?", bookingID).
		Update("created_at", time.Now().Add(-age)).Error
	require.NoError(t, err)
}

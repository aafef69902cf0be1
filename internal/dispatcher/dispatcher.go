package dispatcher

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/jbs-labs/booking-service/internal/models"
	"github.com/jbs-labs/booking-service/internal/notifier"
	"github.com/jbs-labs/booking-service/internal/repository"
	amqp "github.com/rabbitmq/amqp091-go"
)

// RoutingKeyCreated wakes the dispatcher as soon as a confirmation commits.
const RoutingKeyCreated = "notification.created"

type JobMessage struct {
	JobID uint `json:"job_id"`
}

// Dispatcher delivers notification jobs with bounded exponential backoff.
// Queue messages make delivery prompt; the poll loop replays scheduled
// retries and anything the queue lost, straight from the store.
type Dispatcher struct {
	jobs        repository.NotificationJobRepository
	sender      notifier.Notifier
	maxAttempts int
	backoffBase time.Duration
	pollEvery   time.Duration
}

func New(jobs repository.NotificationJobRepository, sender notifier.Notifier, maxAttempts int, backoffBase time.Duration) *Dispatcher {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if backoffBase <= 0 {
		backoffBase = time.Second
	}
	return &Dispatcher{
		jobs:        jobs,
		sender:      sender,
		maxAttempts: maxAttempts,
		backoffBase: backoffBase,
		pollEvery:   time.Second,
	}
}

// Start launches the queue consumer and the retry poll loop. msgs may be nil
// when the broker is unavailable; delivery then runs on polling alone.
func (d *Dispatcher) Start(ctx context.Context, msgs <-chan amqp.Delivery) {
	if msgs != nil {
		go func() {
			for msg := range msgs {
				d.handleMessage(ctx, msg)
			}
			log.Println("[Dispatcher] channel closed, stopping queue consumer")
		}()
	}
	go d.pollLoop(ctx)
}

func (d *Dispatcher) handleMessage(ctx context.Context, msg amqp.Delivery) {
	var jm JobMessage
	if err := json.Unmarshal(msg.Body, &jm); err != nil {
		log.Printf("[Dispatcher] failed to unmarshal: %v", err)
		msg.Nack(false, false)
		return
	}

	job, err := d.jobs.FindByID(ctx, jm.JobID)
	if err != nil {
		log.Printf("[Dispatcher] job %d not found: %v", jm.JobID, err)
		msg.Nack(false, false)
		return
	}

	d.attempt(ctx, job)
	msg.Ack(false)
}

func (d *Dispatcher) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(d.pollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.ProcessDueOnce(ctx)
		}
	}
}

// ProcessDueOnce drains the jobs currently due for an attempt.
func (d *Dispatcher) ProcessDueOnce(ctx context.Context) {
	jobs, err := d.jobs.FindDue(ctx, time.Now(), 50)
	if err != nil {
		log.Printf("[Dispatcher] poll failed: %v", err)
		return
	}
	for i := range jobs {
		d.attempt(ctx, &jobs[i])
	}
}

// attempt performs one delivery try and records the result. A job that is no
// longer pending, or not yet due, is left alone.
func (d *Dispatcher) attempt(ctx context.Context, job *models.NotificationJob) {
	if job.Status != models.NotificationPending {
		return
	}
	now := time.Now()
	if job.NextAttemptAt.After(now) {
		return
	}

	err := d.sender.Send(ctx, job.Recipient, job.Body)
	if err == nil {
		if err := d.jobs.MarkDelivered(ctx, job.ID); err != nil {
			log.Printf("[Dispatcher] job %d delivered but not recorded: %v", job.ID, err)
			return
		}
		log.Printf("[Dispatcher] job %d delivered to %s", job.ID, job.Recipient)
		return
	}

	attempts := job.Attempts + 1
	if notifier.IsTransient(err) && attempts < d.maxAttempts {
		next := now.Add(d.backoff(attempts))
		if err := d.jobs.ScheduleRetry(ctx, job.ID, attempts, next, err.Error()); err != nil {
			log.Printf("[Dispatcher] job %d retry not scheduled: %v", job.ID, err)
			return
		}
		log.Printf("[Dispatcher] job %d attempt %d failed, retrying at %s: %v",
			job.ID, attempts, next.Format(time.RFC3339), err)
		return
	}

	if err := d.jobs.MarkFailed(ctx, job.ID, attempts, err.Error()); err != nil {
		log.Printf("[Dispatcher] job %d failure not recorded: %v", job.ID, err)
		return
	}
	// Booking state is untouched: payment, not notification delivery, is the
	// source of truth for the booking outcome.
	log.Printf("[Dispatcher] ALERT job %d failed permanently after %d attempts (booking %d): %v",
		job.ID, attempts, job.BookingID, err)
}

// backoff grows by a fixed multiplier of 5 per failed attempt: 1s, 5s, 25s...
func (d *Dispatcher) backoff(attempts int) time.Duration {
	delay := d.backoffBase
	for i := 1; i < attempts; i++ {
		delay *= 5
	}
	return delay
}

package sweeper

import (
	"context"
	"log"
	"time"

	"github.com/jbs-labs/booking-service/internal/repository"
	"github.com/jbs-labs/booking-service/internal/service"
)

// Sweeper reclaims capacity from pending bookings that outlived the TTL.
// Each expiry re-checks state under a row lock, so a webhook confirming the
// booking mid-sweep wins cleanly.
type Sweeper struct {
	bookings repository.BookingRepository
	svc      service.BookingService
	ttl      time.Duration
	interval time.Duration
}

func New(bookings repository.BookingRepository, svc service.BookingService, ttl, interval time.Duration) *Sweeper {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Sweeper{bookings: bookings, svc: svc, ttl: ttl, interval: interval}
}

func (s *Sweeper) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				log.Println("[Sweeper] stopping")
				return
			case <-ticker.C:
				s.sweep(ctx)
			}
		}
	}()
}

func (s *Sweeper) sweep(ctx context.Context) {
	cutoff := time.Now().Add(-s.ttl)
	stale, err := s.bookings.FindPendingOlderThan(ctx, cutoff, 100)
	if err != nil {
		log.Printf("[Sweeper] scan failed: %v", err)
		return
	}

	for _, booking := range stale {
		expired, err := s.svc.ExpireBooking(ctx, booking.ID)
		if err != nil {
			log.Printf("[Sweeper] expire booking %d failed: %v", booking.ID, err)
			continue
		}
		if expired {
			log.Printf("[Sweeper] expired booking %d, released %d seats on event %d",
				booking.ID, booking.Seats, booking.EventID)
		}
	}
}

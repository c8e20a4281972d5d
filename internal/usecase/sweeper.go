package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/pattadon/petshop/internal/domain"
)

// Sweeper periodically cancels and removes ready orders whose pickup
// window has passed. It is the single writer for expiration-triggered
// cancellation; an open browser tab is not part of the design.
type Sweeper struct {
	Store    domain.Store
	Orders   *OrderUC
	Interval time.Duration
}

// Start runs the sweep loop until ctx is cancelled. The loop never blocks
// request handling: each pass is its own set of short transactions.
func (s *Sweeper) Start(ctx context.Context) {
	interval := s.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Sweep(ctx)
			}
		}
	}()
}

// Sweep runs one pass. Safe to call concurrently: each order's transition
// is claimed inside its own transaction, so a second sweep over an
// already-handled order is a no-op. Returns how many orders were expired.
func (s *Sweeper) Sweep(ctx context.Context) int {
	expired, err := s.Store.Orders().ListExpired(ctx, time.Now())
	if err != nil {
		log.Error().Err(err).Msg("sweep: listing expired orders")
		return 0
	}
	n := 0
	for _, o := range expired {
		if err := s.Orders.Expire(ctx, o.ID); err != nil {
			// keep the order for the next pass rather than lose inventory
			log.Error().Err(err).Str("order_id", o.ID.String()).Msg("sweep: expire failed")
			continue
		}
		n++
	}
	if n > 0 {
		log.Info().Int("expired", n).Msg("sweep: cancelled expired pickups")
	}
	return n
}

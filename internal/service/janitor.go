package service

import (
	"context"
	"log"
	"time"

	"dispatch/internal/repository"
)

// OfferJanitor periodically removes offers that became inert when their
// order left WAITING_FOR_OFFERS. Inert offers are unreachable through
// any accept path; purging them is housekeeping, not lifecycle logic.
type OfferJanitor struct {
	offerRepo repository.OfferRepository
	interval  time.Duration
}

// NewOfferJanitor creates a janitor that sweeps at the given interval.
func NewOfferJanitor(offerRepo repository.OfferRepository, interval time.Duration) *OfferJanitor {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &OfferJanitor{offerRepo: offerRepo, interval: interval}
}

// Run sweeps until ctx is cancelled. Intended to run in its own goroutine.
func (j *OfferJanitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			purged, err := j.offerRepo.PurgeInert(ctx)
			if err != nil {
				log.Printf("offer janitor: purge failed: %v", err)
				continue
			}
			if purged > 0 {
				log.Printf("offer janitor: purged %d inert offers", purged)
			}
		}
	}
}

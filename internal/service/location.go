package service

import (
	"context"
	"time"

	"dispatch/internal/domain"
	"dispatch/internal/geo"
	"dispatch/internal/observability"
	"dispatch/internal/redis"
)

// LocationService maintains last-known actor positions and hands out
// per-actor subscriptions for live map views. Tracking runs in parallel
// with the order lifecycle and never affects order state.
type LocationService struct {
	locationStore redis.LocationStoreInterface
	maxSampleAge  time.Duration
}

// NewLocationService creates a new LocationService. maxSampleAge is the
// staleness threshold beyond which a sample is reported as not fresh.
func NewLocationService(locationStore redis.LocationStoreInterface, maxSampleAge time.Duration) *LocationService {
	if maxSampleAge <= 0 {
		maxSampleAge = 2 * time.Minute
	}
	return &LocationService{locationStore: locationStore, maxSampleAge: maxSampleAge}
}

// PushSampleRequest contains the parameters for a position update.
type PushSampleRequest struct {
	ActorID    string
	Lat        float64
	Lng        float64
	RecordedAt time.Time // zero means now
	IsDriver   bool
}

// PushSample records an actor's position and fans it out to subscribers.
func (s *LocationService) PushSample(ctx context.Context, req PushSampleRequest) error {
	if req.ActorID == "" {
		return ErrInvalidActorID
	}
	if !geo.ValidLatitude(req.Lat) || !geo.ValidLongitude(req.Lng) {
		return ErrInvalidLocation
	}

	recordedAt := req.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now()
	}

	sample := domain.LocationSample{
		ActorID:    req.ActorID,
		Lat:        req.Lat,
		Lng:        req.Lng,
		RecordedAt: recordedAt,
	}

	if err := s.locationStore.PushSample(ctx, sample, req.IsDriver); err != nil {
		return err
	}

	observability.LocationSamplesTotal.Inc()
	return nil
}

// Latest returns the actor's last-known sample and whether it is still
// fresh. A nil sample means the position is unknown. Staleness is the
// consumer's concern: the store never deletes a sample for being old,
// it only reports the age verdict alongside it.
func (s *LocationService) Latest(ctx context.Context, actorID string) (*domain.LocationSample, bool, error) {
	if actorID == "" {
		return nil, false, ErrInvalidActorID
	}

	sample, err := s.locationStore.GetSample(ctx, actorID)
	if err != nil {
		return nil, false, err
	}
	if sample == nil {
		return nil, false, nil
	}

	fresh := time.Since(sample.RecordedAt) <= s.maxSampleAge
	return sample, fresh, nil
}

// Stream subscribes to an actor's position updates. Samples older than
// the newest one already delivered are dropped, so out-of-order pub/sub
// delivery never moves a marker backwards. The subscription ends when
// stop is called or ctx ends.
func (s *LocationService) Stream(ctx context.Context, actorID string) (<-chan domain.LocationSample, func(), error) {
	if actorID == "" {
		return nil, nil, ErrInvalidActorID
	}

	in, stop, err := s.locationStore.Subscribe(ctx, actorID)
	if err != nil {
		return nil, nil, err
	}

	out := make(chan domain.LocationSample)
	go func() {
		defer close(out)
		var last domain.LocationSample
		var seen bool
		for sample := range in {
			if seen && !sample.NewerThan(last) {
				continue
			}
			last = sample
			seen = true
			select {
			case out <- sample:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, stop, nil
}

// NearbyDrivers returns online driver positions within radiusKm of the
// given point, closest first.
func (s *LocationService) NearbyDrivers(ctx context.Context, lat, lng, radiusKm float64) ([]redis.DriverLocation, error) {
	if !geo.ValidLatitude(lat) || !geo.ValidLongitude(lng) {
		return nil, ErrInvalidLocation
	}
	if radiusKm <= 0 {
		radiusKm = 5
	}
	return s.locationStore.FindNearbyDrivers(ctx, lat, lng, radiusKm)
}

// EndDriverSession removes a driver from the live index when they go
// offline; their position becomes unknown to consumers immediately.
func (s *LocationService) EndDriverSession(ctx context.Context, driverID string) error {
	if driverID == "" {
		return ErrInvalidDriverID
	}
	return s.locationStore.RemoveDriver(ctx, driverID)
}

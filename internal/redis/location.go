package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"dispatch/internal/domain"
)

const driverLocationKey = "drivers:locations"

// DriverLocation is a driver's position in the geo index.
type DriverLocation struct {
	DriverID string
	Lat      float64
	Lng      float64
}

// LocationStore maintains last-known actor positions in Redis: a geo
// index over online drivers for nearby queries, plus one JSON sample per
// actor with a TTL so stale positions expire instead of lingering.
// Every write is published on a per-actor channel for subscribers.
type LocationStore struct {
	client    *redis.Client
	sampleTTL time.Duration
}

// NewLocationStore creates a new LocationStore. sampleTTL bounds how long
// a sample stays readable after the last update.
func NewLocationStore(client *redis.Client, sampleTTL time.Duration) *LocationStore {
	if sampleTTL <= 0 {
		sampleTTL = time.Hour
	}
	return &LocationStore{client: client, sampleTTL: sampleTTL}
}

func sampleKey(actorID string) string {
	return "location:sample:" + actorID
}

func sampleChannel(actorID string) string {
	return "location:updates:" + actorID
}

// PushSample stores an actor's sample and publishes it to subscribers.
// Drivers are also upserted into the geo index.
func (s *LocationStore) PushSample(ctx context.Context, sample domain.LocationSample, isDriver bool) error {
	data, err := json.Marshal(sample)
	if err != nil {
		return err
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, sampleKey(sample.ActorID), data, s.sampleTTL)
	if isDriver {
		pipe.GeoAdd(ctx, driverLocationKey, &redis.GeoLocation{
			Name:      sample.ActorID,
			Longitude: sample.Lng,
			Latitude:  sample.Lat,
		})
	}
	pipe.Publish(ctx, sampleChannel(sample.ActorID), data)

	_, err = pipe.Exec(ctx)
	return err
}

// GetSample returns the actor's last-known sample. A missing or expired
// key returns (nil, nil); the position is unknown, not an error.
func (s *LocationStore) GetSample(ctx context.Context, actorID string) (*domain.LocationSample, error) {
	data, err := s.client.Get(ctx, sampleKey(actorID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var sample domain.LocationSample
	if err := json.Unmarshal(data, &sample); err != nil {
		return nil, err
	}
	return &sample, nil
}

// Subscribe delivers every published sample for the actor on the
// returned channel until stop is called or ctx ends. Out-of-order
// delivery is possible; consumers compare timestamps.
func (s *LocationStore) Subscribe(ctx context.Context, actorID string) (<-chan domain.LocationSample, func(), error) {
	sub := s.client.Subscribe(ctx, sampleChannel(actorID))
	// Force the subscription to be established before returning.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, err
	}

	out := make(chan domain.LocationSample)
	done := make(chan struct{})
	var stopOnce sync.Once
	stop := func() {
		stopOnce.Do(func() {
			close(done)
			_ = sub.Close()
		})
	}

	go func() {
		defer close(out)
		ch := sub.Channel()
		for {
			select {
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var sample domain.LocationSample
				if err := json.Unmarshal([]byte(msg.Payload), &sample); err != nil {
					continue
				}
				select {
				case out <- sample:
				case <-done:
					return
				case <-ctx.Done():
					return
				}
			case <-done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, stop, nil
}

// FindNearbyDrivers returns driver positions within the radius (km),
// closest first.
func (s *LocationStore) FindNearbyDrivers(ctx context.Context, lat, lng, radiusKm float64) ([]DriverLocation, error) {
	results, err := s.client.GeoRadius(ctx, driverLocationKey, lng, lat, &redis.GeoRadiusQuery{
		Radius:    radiusKm,
		Unit:      "km",
		WithCoord: true,
		Sort:      "ASC",
	}).Result()
	if err != nil {
		return nil, err
	}

	locations := make([]DriverLocation, 0, len(results))
	for _, r := range results {
		locations = append(locations, DriverLocation{
			DriverID: r.Name,
			Lat:      r.Latitude,
			Lng:      r.Longitude,
		})
	}

	return locations, nil
}

// RemoveDriver removes a driver from the geo index and drops their
// sample, ending the online session as far as consumers are concerned.
func (s *LocationStore) RemoveDriver(ctx context.Context, driverID string) error {
	pipe := s.client.Pipeline()
	pipe.ZRem(ctx, driverLocationKey, driverID)
	pipe.Del(ctx, sampleKey(driverID))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("remove driver location: %w", err)
	}
	return nil
}

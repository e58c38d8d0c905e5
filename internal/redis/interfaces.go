package redis

import (
	"context"
	"time"

	"dispatch/internal/domain"
)

// LocationStoreInterface defines the interface for actor location tracking.
type LocationStoreInterface interface {
	PushSample(ctx context.Context, sample domain.LocationSample, isDriver bool) error
	GetSample(ctx context.Context, actorID string) (*domain.LocationSample, error)
	Subscribe(ctx context.Context, actorID string) (<-chan domain.LocationSample, func(), error)
	FindNearbyDrivers(ctx context.Context, lat, lng, radiusKm float64) ([]DriverLocation, error)
	RemoveDriver(ctx context.Context, driverID string) error
}

// LockStoreInterface defines the interface for distributed locking.
type LockStoreInterface interface {
	AcquireOrderLock(ctx context.Context, orderID string, ttl time.Duration) (bool, error)
	ReleaseOrderLock(ctx context.Context, orderID string) error
}

// EventStoreInterface defines the interface for order event publication.
type EventStoreInterface interface {
	PublishOrderEvent(ctx context.Context, event OrderEvent) error
	SubscribeOrderEvents(ctx context.Context, orderID string) (<-chan OrderEvent, func(), error)
}

// Ensure concrete types implement interfaces.
var (
	_ LocationStoreInterface = (*LocationStore)(nil)
	_ LockStoreInterface     = (*LockStore)(nil)
	_ EventStoreInterface    = (*EventStore)(nil)
)

package repository

import (
	"context"
	"time"

	"dispatch/internal/domain"
)

// OrderRepository defines the persistence operations for orders.
type OrderRepository interface {
	// Create persists a new order.
	Create(ctx context.Context, order *domain.Order) error

	// GetByID retrieves an order by ID.
	GetByID(ctx context.Context, id string) (*domain.Order, error)

	// GetAll retrieves recent orders.
	GetAll(ctx context.Context) ([]*domain.Order, error)

	// GetOpen retrieves orders still open for bidding at the given time.
	GetOpen(ctx context.Context, now time.Time) ([]*domain.Order, error)

	// Assign atomically binds a driver and the accepted price to an order,
	// moving it from WAITING_FOR_OFFERS to ACCEPTED. The write is
	// conditional on the order still being in WAITING_FOR_OFFERS; a lost
	// race returns ErrConflict.
	Assign(ctx context.Context, orderID string, driver *domain.Driver, price int64, acceptedAt time.Time) error

	// Transition writes the order row conditionally on its stored status
	// still being from. Returns ErrConflict when the guard fails, so a
	// concurrent writer can never be silently overwritten.
	Transition(ctx context.Context, order *domain.Order, from domain.OrderStatus) error
}

package repository

import (
	"context"

	"dispatch/internal/domain"
)

// OfferRepository defines the persistence operations for driver offers.
type OfferRepository interface {
	// Create persists a new offer.
	Create(ctx context.Context, offer *domain.Offer) error

	// GetByID retrieves an offer by ID.
	GetByID(ctx context.Context, id string) (*domain.Offer, error)

	// GetByOrderID retrieves all offers against one order, oldest first.
	GetByOrderID(ctx context.Context, orderID string) ([]*domain.Offer, error)

	// DeleteByOrder removes every offer against the given order.
	DeleteByOrder(ctx context.Context, orderID string) error

	// PurgeInert deletes offers whose order has left WAITING_FOR_OFFERS.
	// Returns the number of offers removed.
	PurgeInert(ctx context.Context) (int64, error)
}

package postgres

import (
	"context"
	"database/sql"
	"errors"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
)

// OfferRepository is a PostgreSQL implementation of repository.OfferRepository.
type OfferRepository struct {
	q Querier
}

// NewOfferRepository creates a new PostgreSQL offer repository.
func NewOfferRepository(db *sql.DB) *OfferRepository {
	return &OfferRepository{q: db}
}

// NewOfferRepositoryWithTx creates an offer repository using a transaction.
func NewOfferRepositoryWithTx(tx *sql.Tx) *OfferRepository {
	return &OfferRepository{q: tx}
}

const offerColumns = `
	id, order_id, driver_id, driver_name, driver_phone, driver_rating,
	vehicle_class, price, created_at
`

// Create persists a new offer.
func (r *OfferRepository) Create(ctx context.Context, offer *domain.Offer) error {
	query := `
		INSERT INTO offers (` + offerColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.q.ExecContext(ctx, query,
		offer.ID,
		offer.OrderID,
		offer.DriverID,
		nullString(offer.DriverName),
		nullString(offer.DriverPhone),
		offer.DriverRating,
		offer.VehicleClass,
		offer.Price,
		offer.CreatedAt,
	)

	return err
}

// GetByID retrieves an offer by ID.
func (r *OfferRepository) GetByID(ctx context.Context, id string) (*domain.Offer, error) {
	query := `SELECT ` + offerColumns + ` FROM offers WHERE id = $1`

	offer, err := scanOffer(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return offer, nil
}

// GetByOrderID retrieves all offers against one order, oldest first.
func (r *OfferRepository) GetByOrderID(ctx context.Context, orderID string) ([]*domain.Offer, error) {
	query := `SELECT ` + offerColumns + ` FROM offers WHERE order_id = $1 ORDER BY created_at ASC`

	rows, err := r.q.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var offers []*domain.Offer
	for rows.Next() {
		offer, err := scanOffer(rows)
		if err != nil {
			return nil, err
		}
		offers = append(offers, offer)
	}
	return offers, rows.Err()
}

// DeleteByOrder removes every offer against the given order.
func (r *OfferRepository) DeleteByOrder(ctx context.Context, orderID string) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM offers WHERE order_id = $1`, orderID)
	return err
}

// PurgeInert deletes offers whose order has left WAITING_FOR_OFFERS.
// Such offers are unreachable through any accept path and only take up
// space.
func (r *OfferRepository) PurgeInert(ctx context.Context) (int64, error) {
	query := `
		DELETE FROM offers o
		USING orders ord
		WHERE o.order_id = ord.id AND ord.status <> $1
	`

	result, err := r.q.ExecContext(ctx, query, domain.OrderStatusWaitingForOffers)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func scanOffer(row rowScanner) (*domain.Offer, error) {
	var offer domain.Offer
	var driverName, driverPhone sql.NullString

	err := row.Scan(
		&offer.ID,
		&offer.OrderID,
		&offer.DriverID,
		&driverName,
		&driverPhone,
		&offer.DriverRating,
		&offer.VehicleClass,
		&offer.Price,
		&offer.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	offer.DriverName = driverName.String
	offer.DriverPhone = driverPhone.String
	return &offer, nil
}

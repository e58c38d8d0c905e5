package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
)

// OrderRepository is a PostgreSQL implementation of repository.OrderRepository.
type OrderRepository struct {
	q Querier
}

// NewOrderRepository creates a new PostgreSQL order repository.
func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{q: db}
}

// NewOrderRepositoryWithTx creates an order repository using a transaction.
func NewOrderRepositoryWithTx(tx *sql.Tx) *OrderRepository {
	return &OrderRepository{q: tx}
}

const orderColumns = `
	id, customer_id, category,
	pickup_lat, pickup_lng, pickup_label,
	dropoff_lat, dropoff_lng, dropoff_label,
	driver_id, driver_name, driver_phone, driver_rating,
	vehicle_class, price, distance_km, status,
	items_subtotal, special_note, prescription_ref,
	created_at, expires_at, accepted_at, delivered_at, cancelled_at, cancelled_by,
	rated_at, rating, feedback
`

// Create persists a new order.
func (r *OrderRepository) Create(ctx context.Context, order *domain.Order) error {
	query := `
		INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
		        $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29)
	`

	_, err := r.q.ExecContext(ctx, query,
		order.ID,
		order.CustomerID,
		order.Category,
		order.Pickup.Lat,
		order.Pickup.Lng,
		nullString(order.Pickup.Label),
		order.Dropoff.Lat,
		order.Dropoff.Lng,
		nullString(order.Dropoff.Label),
		nullString(order.DriverID),
		nullString(order.DriverName),
		nullString(order.DriverPhone),
		order.DriverRating,
		order.VehicleClass,
		order.Price,
		order.DistanceKm,
		order.Status,
		order.ItemsSubtotal,
		nullString(order.SpecialNote),
		nullString(order.Prescription),
		order.CreatedAt,
		nullTime(order.ExpiresAt),
		nullTime(order.AcceptedAt),
		nullTime(order.DeliveredAt),
		nullTime(order.CancelledAt),
		nullString(order.CancelledBy),
		nullTime(order.RatedAt),
		order.Rating,
		nullString(order.Feedback),
	)

	return err
}

// GetByID retrieves an order by ID.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	order, err := scanOrder(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return order, nil
}

// GetAll retrieves recent orders.
func (r *OrderRepository) GetAll(ctx context.Context) ([]*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders ORDER BY created_at DESC LIMIT 100`
	return r.queryOrders(ctx, query)
}

// GetOpen retrieves orders still open for bidding at the given time.
func (r *OrderRepository) GetOpen(ctx context.Context, now time.Time) ([]*domain.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE status = $1 AND (expires_at IS NULL OR expires_at > $2)
		ORDER BY created_at ASC
	`
	return r.queryOrders(ctx, query, domain.OrderStatusWaitingForOffers, now)
}

// Assign atomically binds a driver and the accepted price to the order.
// The UPDATE is conditional on the stored status still being
// WAITING_FOR_OFFERS: the second of two concurrent acceptances matches
// zero rows and gets ErrConflict instead of overwriting the first.
func (r *OrderRepository) Assign(ctx context.Context, orderID string, driver *domain.Driver, price int64, acceptedAt time.Time) error {
	query := `
		UPDATE orders
		SET status = $1,
		    driver_id = $2, driver_name = $3, driver_phone = $4, driver_rating = $5,
		    vehicle_class = $6, price = $7, accepted_at = $8
		WHERE id = $9 AND status = $10
	`

	result, err := r.q.ExecContext(ctx, query,
		domain.OrderStatusAccepted,
		driver.ID,
		nullString(driver.Name),
		nullString(driver.Phone),
		driver.Rating,
		driver.VehicleClass,
		price,
		acceptedAt,
		orderID,
		domain.OrderStatusWaitingForOffers,
	)
	if err != nil {
		return err
	}

	return r.checkConditional(ctx, result, orderID)
}

// Transition writes the full order row conditionally on its stored
// status still being from.
func (r *OrderRepository) Transition(ctx context.Context, order *domain.Order, from domain.OrderStatus) error {
	query := `
		UPDATE orders
		SET status = $1,
		    driver_id = $2, driver_name = $3, driver_phone = $4, driver_rating = $5,
		    price = $6, expires_at = $7,
		    accepted_at = $8, delivered_at = $9, cancelled_at = $10, cancelled_by = $11,
		    rated_at = $12, rating = $13, feedback = $14
		WHERE id = $15 AND status = $16
	`

	result, err := r.q.ExecContext(ctx, query,
		order.Status,
		nullString(order.DriverID),
		nullString(order.DriverName),
		nullString(order.DriverPhone),
		order.DriverRating,
		order.Price,
		nullTime(order.ExpiresAt),
		nullTime(order.AcceptedAt),
		nullTime(order.DeliveredAt),
		nullTime(order.CancelledAt),
		nullString(order.CancelledBy),
		nullTime(order.RatedAt),
		order.Rating,
		nullString(order.Feedback),
		order.ID,
		from,
	)
	if err != nil {
		return err
	}

	return r.checkConditional(ctx, result, order.ID)
}

// checkConditional maps a zero-row conditional update to ErrNotFound or
// ErrConflict depending on whether the order exists at all.
func (r *OrderRepository) checkConditional(ctx context.Context, result sql.Result, orderID string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}

	var exists bool
	if err := r.q.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM orders WHERE id = $1)`, orderID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return repository.ErrNotFound
	}
	return repository.ErrConflict
}

func (r *OrderRepository) queryOrders(ctx context.Context, query string, args ...any) ([]*domain.Order, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var order domain.Order
	var category, status string
	var pickupLabel, dropoffLabel sql.NullString
	var driverID, driverName, driverPhone sql.NullString
	var specialNote, prescription, cancelledBy, feedback sql.NullString
	var expiresAt, acceptedAt, deliveredAt, cancelledAt, ratedAt sql.NullTime

	err := row.Scan(
		&order.ID,
		&order.CustomerID,
		&category,
		&order.Pickup.Lat,
		&order.Pickup.Lng,
		&pickupLabel,
		&order.Dropoff.Lat,
		&order.Dropoff.Lng,
		&dropoffLabel,
		&driverID,
		&driverName,
		&driverPhone,
		&order.DriverRating,
		&order.VehicleClass,
		&order.Price,
		&order.DistanceKm,
		&status,
		&order.ItemsSubtotal,
		&specialNote,
		&prescription,
		&order.CreatedAt,
		&expiresAt,
		&acceptedAt,
		&deliveredAt,
		&cancelledAt,
		&cancelledBy,
		&ratedAt,
		&order.Rating,
		&feedback,
	)
	if err != nil {
		return nil, err
	}

	// Reject unknown enum values at the deserialization boundary.
	order.Status, err = domain.ParseOrderStatus(status)
	if err != nil {
		return nil, err
	}
	order.Category, err = domain.ParseOrderCategory(category)
	if err != nil {
		return nil, err
	}

	order.Pickup.Label = pickupLabel.String
	order.Dropoff.Label = dropoffLabel.String
	order.DriverID = driverID.String
	order.DriverName = driverName.String
	order.DriverPhone = driverPhone.String
	order.SpecialNote = specialNote.String
	order.Prescription = prescription.String
	order.CancelledBy = cancelledBy.String
	order.Feedback = feedback.String
	if expiresAt.Valid {
		order.ExpiresAt = expiresAt.Time
	}
	if acceptedAt.Valid {
		order.AcceptedAt = acceptedAt.Time
	}
	if deliveredAt.Valid {
		order.DeliveredAt = deliveredAt.Time
	}
	if cancelledAt.Valid {
		order.CancelledAt = cancelledAt.Time
	}
	if ratedAt.Valid {
		order.RatedAt = ratedAt.Time
	}

	return &order, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}

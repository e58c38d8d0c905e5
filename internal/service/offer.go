package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"dispatch/internal/domain"
	"dispatch/internal/observability"
	"dispatch/internal/redis"
	"dispatch/internal/repository"
	"dispatch/internal/repository/postgres"
)

// acceptLockTTL bounds how long an in-flight acceptance can hold the
// order lock; the lock expires on its own if the process dies mid-write.
const acceptLockTTL = 10 * time.Second

// OfferService collects competing driver offers against open orders and
// finalizes exactly one of them. Acceptance is the only path that moves
// an order from WAITING_FOR_OFFERS to ACCEPTED.
type OfferService struct {
	db         *sql.DB
	offerRepo  repository.OfferRepository
	orderRepo  repository.OrderRepository
	driverRepo repository.DriverRepository
	lockStore  redis.LockStoreInterface
	cacheStore *redis.CacheStore
	events     redis.EventStoreInterface
}

// NewOfferService creates a new OfferService.
func NewOfferService(
	db *sql.DB,
	offerRepo repository.OfferRepository,
	orderRepo repository.OrderRepository,
	driverRepo repository.DriverRepository,
	lockStore redis.LockStoreInterface,
	cacheStore *redis.CacheStore,
	events redis.EventStoreInterface,
) *OfferService {
	return &OfferService{
		db:         db,
		offerRepo:  offerRepo,
		orderRepo:  orderRepo,
		driverRepo: driverRepo,
		lockStore:  lockStore,
		cacheStore: cacheStore,
		events:     events,
	}
}

// SubmitOfferRequest contains the parameters for a driver's bid.
type SubmitOfferRequest struct {
	OrderID  string
	DriverID string
	Price    int64
}

// SubmitOffer records a driver's price bid against an open order. There
// is no upper bound on outstanding offers per order; submission only
// fails when the order has left the bidding pool.
func (s *OfferService) SubmitOffer(ctx context.Context, req SubmitOfferRequest) (*domain.Offer, error) {
	if req.OrderID == "" {
		return nil, ErrInvalidOrderID
	}
	if req.DriverID == "" {
		return nil, ErrInvalidDriverID
	}
	if req.Price <= 0 {
		return nil, ErrInvalidPrice
	}

	order, err := s.orderRepo.GetByID(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}

	if !order.Biddable(time.Now()) {
		return nil, ErrOrderNotBiddable
	}

	driver, err := s.getDriver(ctx, req.DriverID)
	if err != nil {
		return nil, err
	}
	if driver.Status != domain.DriverStatusOnline {
		return nil, ErrDriverOffline
	}

	offer := &domain.Offer{
		ID:           uuid.New().String(),
		OrderID:      req.OrderID,
		DriverID:     driver.ID,
		DriverName:   driver.Name,
		DriverPhone:  driver.Phone,
		DriverRating: driver.Rating,
		VehicleClass: driver.VehicleClass,
		Price:        req.Price,
		CreatedAt:    time.Now(),
	}

	if err := s.offerRepo.Create(ctx, offer); err != nil {
		return nil, err
	}

	observability.OffersSubmittedTotal.Inc()
	return offer, nil
}

// AcceptOfferRequest contains the parameters for accepting an offer.
type AcceptOfferRequest struct {
	OfferID    string
	CustomerID string
}

// AcceptOffer finalizes one offer: the order moves to ACCEPTED carrying
// the offer's driver and price. Concurrent acceptances on the same order
// are serialized by a short-TTL Redis lock and settled by a conditional
// update; the loser gets ErrOrderAlreadyAssigned, never a silent
// overwrite.
func (s *OfferService) AcceptOffer(ctx context.Context, req AcceptOfferRequest) (*domain.Order, error) {
	if req.OfferID == "" {
		return nil, ErrInvalidOfferID
	}
	if req.CustomerID == "" {
		return nil, ErrInvalidCustomerID
	}

	offer, err := s.offerRepo.GetByID(ctx, req.OfferID)
	if err != nil {
		return nil, err
	}

	order, err := s.orderRepo.GetByID(ctx, offer.OrderID)
	if err != nil {
		return nil, err
	}

	if order.CustomerID != req.CustomerID {
		return nil, ErrNotOrderCustomer
	}

	switch {
	case order.Status == domain.OrderStatusAccepted || order.Assigned():
		return nil, ErrOrderAlreadyAssigned
	case !order.Biddable(time.Now()):
		return nil, ErrOrderNotBiddable
	}

	if s.lockStore != nil {
		locked, err := s.lockStore.AcquireOrderLock(ctx, order.ID, acceptLockTTL)
		if err != nil {
			return nil, err
		}
		if !locked {
			// Another acceptance is in flight for this order.
			observability.AcceptConflictsTotal.Inc()
			return nil, ErrOrderAlreadyAssigned
		}
		defer func() { _ = s.lockStore.ReleaseOrderLock(ctx, order.ID) }()
	}

	driver := &domain.Driver{
		ID:           offer.DriverID,
		Name:         offer.DriverName,
		Phone:        offer.DriverPhone,
		Rating:       offer.DriverRating,
		VehicleClass: offer.VehicleClass,
	}

	acceptedAt := time.Now()
	if err := s.assign(ctx, order.ID, driver, offer.Price, acceptedAt); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			observability.AcceptConflictsTotal.Inc()
			return nil, ErrOrderAlreadyAssigned
		}
		return nil, err
	}

	// Final price equals the accepted offer's price, not the original quote.
	order.Status = domain.OrderStatusAccepted
	order.DriverID = driver.ID
	order.DriverName = driver.Name
	order.DriverPhone = driver.Phone
	order.DriverRating = driver.Rating
	order.VehicleClass = driver.VehicleClass
	order.Price = offer.Price
	order.AcceptedAt = acceptedAt

	if s.cacheStore != nil {
		_ = s.cacheStore.InvalidateDriver(ctx, driver.ID)
	}

	observability.OffersAcceptedTotal.Inc()
	observability.OrderTransitionsTotal.WithLabelValues(string(domain.OrderStatusAccepted)).Inc()

	if s.events != nil {
		_ = s.events.PublishOrderEvent(ctx, redis.OrderEvent{
			OrderID:    order.ID,
			Status:     order.Status,
			DriverID:   order.DriverID,
			Price:      order.Price,
			OccurredAt: acceptedAt,
		})
	}

	return order, nil
}

// ListOffers returns all offers against one order, oldest first.
func (s *OfferService) ListOffers(ctx context.Context, orderID string) ([]*domain.Offer, error) {
	if orderID == "" {
		return nil, ErrInvalidOrderID
	}
	return s.offerRepo.GetByOrderID(ctx, orderID)
}

// assign runs the conditional order update and the driver status change
// in one transaction. Without a *sql.DB (tests), it falls back to the
// repository's own conditional write, which carries the same guard.
func (s *OfferService) assign(ctx context.Context, orderID string, driver *domain.Driver, price int64, acceptedAt time.Time) error {
	if s.db == nil {
		if err := s.orderRepo.Assign(ctx, orderID, driver, price, acceptedAt); err != nil {
			return err
		}
		return s.markDriverBusy(ctx, s.driverRepo, driver.ID)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	txOrderRepo := postgres.NewOrderRepositoryWithTx(tx)
	txDriverRepo := postgres.NewDriverRepositoryWithTx(tx)

	if err = txOrderRepo.Assign(ctx, orderID, driver, price, acceptedAt); err != nil {
		return err
	}

	if err = s.markDriverBusy(ctx, txDriverRepo, driver.ID); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *OfferService) markDriverBusy(ctx context.Context, repo repository.DriverRepository, driverID string) error {
	err := repo.UpdateStatus(ctx, driverID, domain.DriverStatusBusy)
	if errors.Is(err, repository.ErrNotFound) {
		// Offer snapshots can outlive the driver record; assignment stands.
		return nil
	}
	return err
}

// getDriver fetches driver metadata, preferring the short-TTL cache.
func (s *OfferService) getDriver(ctx context.Context, driverID string) (*domain.Driver, error) {
	if s.cacheStore != nil {
		cached, err := s.cacheStore.GetDriver(ctx, driverID)
		if err == nil && cached != nil {
			return &domain.Driver{
				ID:           cached.ID,
				Name:         cached.Name,
				Phone:        cached.Phone,
				Status:       domain.DriverStatus(cached.Status),
				VehicleClass: domain.VehicleClass(cached.VehicleClass),
				Rating:       cached.Rating,
			}, nil
		}
	}

	driver, err := s.driverRepo.GetByID(ctx, driverID)
	if err != nil {
		return nil, err
	}

	if s.cacheStore != nil {
		_ = s.cacheStore.SetDriver(ctx, &redis.CachedDriver{
			ID:           driver.ID,
			Name:         driver.Name,
			Phone:        driver.Phone,
			Status:       string(driver.Status),
			VehicleClass: string(driver.VehicleClass),
			Rating:       driver.Rating,
		})
	}

	return driver, nil
}

package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"dispatch/internal/domain"
	"dispatch/internal/geo"
	"dispatch/internal/observability"
	"dispatch/internal/pricing"
	"dispatch/internal/redis"
	"dispatch/internal/repository"
	"dispatch/internal/routing"
)

// OrderService owns the order lifecycle: creation, cancellation and every
// status transition reported by the driver and customer. All writes go
// through conditional updates so a stale read can never overwrite a
// concurrent transition.
type OrderService struct {
	orderRepo   repository.OrderRepository
	offerRepo   repository.OfferRepository
	driverRepo  repository.DriverRepository
	engine      *pricing.Engine
	resolver    *routing.Resolver
	events      redis.EventStoreInterface
	offerWindow time.Duration
}

// NewOrderService creates a new OrderService. offerWindow bounds how long
// a new order stays open for bidding.
func NewOrderService(
	orderRepo repository.OrderRepository,
	offerRepo repository.OfferRepository,
	driverRepo repository.DriverRepository,
	engine *pricing.Engine,
	resolver *routing.Resolver,
	events redis.EventStoreInterface,
	offerWindow time.Duration,
) *OrderService {
	if offerWindow <= 0 {
		offerWindow = 30 * time.Minute
	}
	return &OrderService{
		orderRepo:   orderRepo,
		offerRepo:   offerRepo,
		driverRepo:  driverRepo,
		engine:      engine,
		resolver:    resolver,
		events:      events,
		offerWindow: offerWindow,
	}
}

// CreateOrderRequest contains the parameters for creating an order.
type CreateOrderRequest struct {
	CustomerID    string
	Category      domain.OrderCategory
	Pickup        domain.Point
	Dropoff       domain.Point
	VehicleClass  domain.VehicleClass
	ItemsSubtotal int64
	SpecialNote   string
	Prescription  string
}

// CreateOrderResponse contains the created order plus route data for the
// initial map view.
type CreateOrderResponse struct {
	Order       *domain.Order
	DeliveryFee int64
	DurationMin int
	Geometry    []routing.LatLng
}

// CreateOrder prices the request, resolves the route and persists the
// order in WAITING_FOR_OFFERS. Routing degradation is absorbed: the
// order is always created with a usable distance estimate.
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*CreateOrderResponse, error) {
	if err := s.validateCreateRequest(req); err != nil {
		return nil, err
	}

	route := s.resolver.Resolve(ctx,
		routing.LatLng{Lat: req.Pickup.Lat, Lng: req.Pickup.Lng},
		routing.LatLng{Lat: req.Dropoff.Lat, Lng: req.Dropoff.Lng},
	)

	quote := s.engine.Price(pricing.QuoteInput{
		Pickup:        req.Pickup,
		Dropoff:       req.Dropoff,
		DistanceKm:    route.DistanceKm,
		VehicleClass:  req.VehicleClass,
		Category:      req.Category,
		ItemsSubtotal: req.ItemsSubtotal,
	})

	now := time.Now()
	order := &domain.Order{
		ID:            uuid.New().String(),
		CustomerID:    req.CustomerID,
		Category:      req.Category,
		Pickup:        s.labelled(req.Pickup),
		Dropoff:       s.labelled(req.Dropoff),
		VehicleClass:  req.VehicleClass,
		Price:         quote.Total,
		DistanceKm:    route.DistanceKm,
		Status:        domain.OrderStatusWaitingForOffers,
		ItemsSubtotal: req.ItemsSubtotal,
		SpecialNote:   req.SpecialNote,
		Prescription:  req.Prescription,
		CreatedAt:     now,
		ExpiresAt:     now.Add(s.offerWindow),
	}

	if err := s.orderRepo.Create(ctx, order); err != nil {
		return nil, err
	}

	observability.OrdersCreatedTotal.WithLabelValues(string(order.Category)).Inc()
	s.publish(ctx, order)

	return &CreateOrderResponse{
		Order:       order,
		DeliveryFee: quote.DeliveryFee,
		DurationMin: route.DurationMin,
		Geometry:    route.Geometry,
	}, nil
}

// labelled fills a point's label from the nearest village when the
// caller left it empty.
func (s *OrderService) labelled(p domain.Point) domain.Point {
	if p.Label != "" {
		return p
	}
	if v, ok := s.engine.NearestVillage(p.Lat, p.Lng); ok {
		p.Label = v.Name
	}
	return p
}

// GetOrder retrieves an order by ID.
func (s *OrderService) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	if orderID == "" {
		return nil, ErrInvalidOrderID
	}
	return s.orderRepo.GetByID(ctx, orderID)
}

// GetOpenOrders returns the current bidding pool.
func (s *OrderService) GetOpenOrders(ctx context.Context) ([]*domain.Order, error) {
	return s.orderRepo.GetOpen(ctx, time.Now())
}

// CancelOrderRequest contains the parameters for cancelling an order.
type CancelOrderRequest struct {
	OrderID     string
	CancelledBy string
}

// CancelOrder cancels an order. Only WAITING_FOR_OFFERS and ACCEPTED
// orders can be cancelled. Cancelling an accepted order unbinds the
// driver and frees them for new work.
func (s *OrderService) CancelOrder(ctx context.Context, req CancelOrderRequest) (*domain.Order, error) {
	if req.OrderID == "" {
		return nil, ErrInvalidOrderID
	}

	order, err := s.orderRepo.GetByID(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}

	from := order.Status
	if !from.CanTransitionTo(domain.OrderStatusCancelled) {
		return nil, ErrInvalidTransition
	}

	driverID := order.DriverID
	order.Status = domain.OrderStatusCancelled
	order.CancelledAt = time.Now()
	order.CancelledBy = req.CancelledBy
	order.ClearDriver()

	if err := s.transition(ctx, order, from); err != nil {
		return nil, err
	}

	if driverID != "" {
		if err := s.driverRepo.UpdateStatus(ctx, driverID, domain.DriverStatusOnline); err != nil &&
			!errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
	}
	return order, nil
}

// ConfirmPickup moves an ACCEPTED order to PICKED_UP. Only the assigned
// driver may report pickup.
func (s *OrderService) ConfirmPickup(ctx context.Context, orderID, driverID string) (*domain.Order, error) {
	order, err := s.driverOrder(ctx, orderID, driverID)
	if err != nil {
		return nil, err
	}

	if order.Status != domain.OrderStatusAccepted {
		return nil, ErrInvalidTransition
	}

	order.Status = domain.OrderStatusPickedUp

	if err := s.transition(ctx, order, domain.OrderStatusAccepted); err != nil {
		return nil, err
	}
	return order, nil
}

// ConfirmDelivery moves a PICKED_UP order to DELIVERED. Only the
// assigned driver may report delivery.
func (s *OrderService) ConfirmDelivery(ctx context.Context, orderID, driverID string) (*domain.Order, error) {
	order, err := s.driverOrder(ctx, orderID, driverID)
	if err != nil {
		return nil, err
	}

	if order.Status != domain.OrderStatusPickedUp {
		return nil, ErrInvalidTransition
	}

	order.Status = domain.OrderStatusDelivered
	order.DeliveredAt = time.Now()

	if err := s.transition(ctx, order, domain.OrderStatusPickedUp); err != nil {
		return nil, err
	}

	// The driver is free for new work once the goods are handed over.
	if err := s.driverRepo.UpdateStatus(ctx, driverID, domain.DriverStatusOnline); err != nil &&
		!errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	return order, nil
}

// SubmitRatingRequest contains the parameters for rating a delivered order.
type SubmitRatingRequest struct {
	OrderID    string
	CustomerID string
	Rating     int
	Feedback   string
}

// SubmitRating moves a DELIVERED order to DELIVERED_RATED. Only the
// order's customer may rate, and only from DELIVERED.
func (s *OrderService) SubmitRating(ctx context.Context, req SubmitRatingRequest) (*domain.Order, error) {
	if req.OrderID == "" {
		return nil, ErrInvalidOrderID
	}
	if req.CustomerID == "" {
		return nil, ErrInvalidCustomerID
	}
	if req.Rating < 1 || req.Rating > 5 {
		return nil, ErrInvalidRating
	}

	order, err := s.orderRepo.GetByID(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}

	if order.CustomerID != req.CustomerID {
		return nil, ErrNotOrderCustomer
	}
	if order.Status != domain.OrderStatusDelivered {
		return nil, ErrInvalidTransition
	}

	order.Status = domain.OrderStatusDeliveredRated
	order.RatedAt = time.Now()
	order.Rating = req.Rating
	order.Feedback = req.Feedback

	if err := s.transition(ctx, order, domain.OrderStatusDelivered); err != nil {
		return nil, err
	}
	return order, nil
}

// WithdrawDriver returns an ACCEPTED order to the bidding pool. Only the
// assigned driver may withdraw. Driver fields are cleared; the
// previously accepted price is retained and a fresh bidding window
// opens.
func (s *OrderService) WithdrawDriver(ctx context.Context, orderID, driverID string) (*domain.Order, error) {
	order, err := s.driverOrder(ctx, orderID, driverID)
	if err != nil {
		return nil, err
	}

	if order.Status != domain.OrderStatusAccepted {
		return nil, ErrInvalidTransition
	}

	// Bids from the closed window must not become actionable again once
	// the order reopens. The order is still ACCEPTED here, so no new
	// offer can slip in before the delete.
	if err := s.offerRepo.DeleteByOrder(ctx, order.ID); err != nil {
		return nil, err
	}

	order.Status = domain.OrderStatusWaitingForOffers
	order.ClearDriver()
	order.ExpiresAt = time.Now().Add(s.offerWindow)

	if err := s.transition(ctx, order, domain.OrderStatusAccepted); err != nil {
		return nil, err
	}

	if err := s.driverRepo.UpdateStatus(ctx, driverID, domain.DriverStatusOnline); err != nil &&
		!errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	return order, nil
}

// QuoteRequest contains the parameters for a speculative price quote.
type QuoteRequest struct {
	Pickup        domain.Point
	Dropoff       domain.Point
	VehicleClass  domain.VehicleClass
	Category      domain.OrderCategory
	ItemsSubtotal int64
}

// QuoteResponse is a display quote; nothing is persisted.
type QuoteResponse struct {
	Total       int64
	DeliveryFee int64
	SameZone    bool
	DistanceKm  float64
	DurationMin int
}

// Quote prices a prospective order for display before creation.
func (s *OrderService) Quote(ctx context.Context, req QuoteRequest) (*QuoteResponse, error) {
	if !geo.ValidLatitude(req.Pickup.Lat) || !geo.ValidLongitude(req.Pickup.Lng) {
		return nil, ErrInvalidPickupLocation
	}
	if !geo.ValidLatitude(req.Dropoff.Lat) || !geo.ValidLongitude(req.Dropoff.Lng) {
		return nil, ErrInvalidDropoffLocation
	}

	route := s.resolver.Resolve(ctx,
		routing.LatLng{Lat: req.Pickup.Lat, Lng: req.Pickup.Lng},
		routing.LatLng{Lat: req.Dropoff.Lat, Lng: req.Dropoff.Lng},
	)

	quote := s.engine.Price(pricing.QuoteInput{
		Pickup:        req.Pickup,
		Dropoff:       req.Dropoff,
		DistanceKm:    route.DistanceKm,
		VehicleClass:  req.VehicleClass,
		Category:      req.Category,
		ItemsSubtotal: req.ItemsSubtotal,
	})

	return &QuoteResponse{
		Total:       quote.Total,
		DeliveryFee: quote.DeliveryFee,
		SameZone:    quote.SameZone,
		DistanceKm:  route.DistanceKm,
		DurationMin: route.DurationMin,
	}, nil
}

// driverOrder loads an order and checks the caller is its assigned driver.
func (s *OrderService) driverOrder(ctx context.Context, orderID, driverID string) (*domain.Order, error) {
	if orderID == "" {
		return nil, ErrInvalidOrderID
	}
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.DriverID != driverID {
		return nil, ErrNotAssignedDriver
	}
	return order, nil
}

// transition applies a conditional write and publishes the committed
// event. A guard failure means the stored status moved under us, so the
// requested transition is no longer legal.
func (s *OrderService) transition(ctx context.Context, order *domain.Order, from domain.OrderStatus) error {
	if err := s.orderRepo.Transition(ctx, order, from); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return ErrInvalidTransition
		}
		return err
	}

	observability.OrderTransitionsTotal.WithLabelValues(string(order.Status)).Inc()
	s.publish(ctx, order)
	return nil
}

// publish emits an order event; delivery is best-effort.
func (s *OrderService) publish(ctx context.Context, order *domain.Order) {
	if s.events == nil {
		return
	}
	_ = s.events.PublishOrderEvent(ctx, redis.OrderEvent{
		OrderID:    order.ID,
		Status:     order.Status,
		DriverID:   order.DriverID,
		Price:      order.Price,
		OccurredAt: time.Now(),
	})
}

func (s *OrderService) validateCreateRequest(req CreateOrderRequest) error {
	if req.CustomerID == "" {
		return ErrInvalidCustomerID
	}
	if !geo.ValidLatitude(req.Pickup.Lat) || !geo.ValidLongitude(req.Pickup.Lng) {
		return ErrInvalidPickupLocation
	}
	if !geo.ValidLatitude(req.Dropoff.Lat) || !geo.ValidLongitude(req.Dropoff.Lng) {
		return ErrInvalidDropoffLocation
	}
	if _, ok := domain.ParseVehicleClass(string(req.VehicleClass)); !ok {
		return ErrInvalidVehicleClass
	}
	if req.ItemsSubtotal < 0 {
		return ErrInvalidPrice
	}
	return nil
}

package tests

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"dispatch/internal/domain"
	"dispatch/internal/redis"
	"dispatch/internal/service"
)

// ──────────────────────────────────────────────
// OFFER BROKER
// ──────────────────────────────────────────────

func newOfferService(offerRepo *MockOfferRepository, orderRepo *MockOrderRepository, driverRepo *MockDriverRepository, lockStore *MockLockStore, events *MockEventStore) *service.OfferService {
	// nil *sql.DB routes the assignment through the repository's own
	// conditional write instead of a real transaction.
	var lock redis.LockStoreInterface
	if lockStore != nil {
		lock = lockStore
	}
	var eventStore redis.EventStoreInterface
	if events != nil {
		eventStore = events
	}
	return service.NewOfferService(nil, offerRepo, orderRepo, driverRepo, lock, nil, eventStore)
}

func biddableOrder(id, customerID string) *domain.Order {
	return &domain.Order{
		ID:         id,
		CustomerID: customerID,
		Status:     domain.OrderStatusWaitingForOffers,
		Price:      50,
		CreatedAt:  time.Now(),
		ExpiresAt:  time.Now().Add(30 * time.Minute),
	}
}

func onlineDriver(id string) *domain.Driver {
	return &domain.Driver{
		ID:           id,
		Name:         "Driver " + id,
		Phone:        "0599-" + id,
		Status:       domain.DriverStatusOnline,
		VehicleClass: domain.VehicleTuktuk,
		Rating:       4.6,
	}
}

func TestOffer_SubmitSnapshotsDriverMeta(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	orderRepo := NewMockOrderRepository()
	orderRepo.AddOrder(biddableOrder("order-1", "customer-1"))
	offerRepo := NewMockOfferRepository()
	driverRepo := NewMockDriverRepository()
	driverRepo.AddDriver(onlineDriver("driver-1"))

	offerService := newOfferService(offerRepo, orderRepo, driverRepo, nil, nil)

	offer, err := offerService.SubmitOffer(ctx, service.SubmitOfferRequest{OrderID: "order-1", DriverID: "driver-1", Price: 45})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if offer.Price != 45 {
		t.Errorf("expected price 45, got %d", offer.Price)
	}
	// The offer carries the driver's display fields so listings need no join.
	if offer.DriverName != "Driver driver-1" || offer.DriverPhone != "0599-driver-1" || offer.DriverRating != 4.6 {
		t.Errorf("driver meta not snapshotted: %+v", offer)
	}
	if offer.VehicleClass != domain.VehicleTuktuk {
		t.Errorf("expected TUKTUK, got %s", offer.VehicleClass)
	}
}

func TestOffer_SubmitRejectsNonBiddableOrder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	for _, status := range []domain.OrderStatus{
		domain.OrderStatusAccepted,
		domain.OrderStatusPickedUp,
		domain.OrderStatusDelivered,
		domain.OrderStatusCancelled,
	} {
		orderRepo := NewMockOrderRepository()
		order := biddableOrder("order-1", "customer-1")
		order.Status = status
		orderRepo.AddOrder(order)

		driverRepo := NewMockDriverRepository()
		driverRepo.AddDriver(onlineDriver("driver-1"))

		offerService := newOfferService(NewMockOfferRepository(), orderRepo, driverRepo, nil, nil)

		_, err := offerService.SubmitOffer(ctx, service.SubmitOfferRequest{OrderID: "order-1", DriverID: "driver-1", Price: 40})
		if !errors.Is(err, service.ErrOrderNotBiddable) {
			t.Errorf("submit on %s: expected ErrOrderNotBiddable, got %v", status, err)
		}
	}
}

func TestOffer_SubmitRejectsExpiredWindow(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	orderRepo := NewMockOrderRepository()
	order := biddableOrder("order-1", "customer-1")
	order.ExpiresAt = time.Now().Add(-time.Minute)
	orderRepo.AddOrder(order)

	driverRepo := NewMockDriverRepository()
	driverRepo.AddDriver(onlineDriver("driver-1"))

	offerService := newOfferService(NewMockOfferRepository(), orderRepo, driverRepo, nil, nil)

	_, err := offerService.SubmitOffer(ctx, service.SubmitOfferRequest{OrderID: "order-1", DriverID: "driver-1", Price: 40})
	if !errors.Is(err, service.ErrOrderNotBiddable) {
		t.Errorf("expected ErrOrderNotBiddable on expired window, got %v", err)
	}
}

func TestOffer_SubmitRejectsOfflineDriver(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	orderRepo := NewMockOrderRepository()
	orderRepo.AddOrder(biddableOrder("order-1", "customer-1"))

	driverRepo := NewMockDriverRepository()
	driver := onlineDriver("driver-1")
	driver.Status = domain.DriverStatusOffline
	driverRepo.AddDriver(driver)

	offerService := newOfferService(NewMockOfferRepository(), orderRepo, driverRepo, nil, nil)

	_, err := offerService.SubmitOffer(ctx, service.SubmitOfferRequest{OrderID: "order-1", DriverID: "driver-1", Price: 40})
	if !errors.Is(err, service.ErrDriverOffline) {
		t.Errorf("expected ErrDriverOffline, got %v", err)
	}
}

func TestOffer_SubmitValidation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	offerService := newOfferService(NewMockOfferRepository(), NewMockOrderRepository(), NewMockDriverRepository(), nil, nil)

	tests := []struct {
		name    string
		req     service.SubmitOfferRequest
		wantErr error
	}{
		{"missing order", service.SubmitOfferRequest{DriverID: "d", Price: 10}, service.ErrInvalidOrderID},
		{"missing driver", service.SubmitOfferRequest{OrderID: "o", Price: 10}, service.ErrInvalidDriverID},
		{"zero price", service.SubmitOfferRequest{OrderID: "o", DriverID: "d"}, service.ErrInvalidPrice},
		{"negative price", service.SubmitOfferRequest{OrderID: "o", DriverID: "d", Price: -5}, service.ErrInvalidPrice},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := offerService.SubmitOffer(ctx, tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestOffer_AcceptFinalizesOrder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	orderRepo := NewMockOrderRepository()
	orderRepo.AddOrder(biddableOrder("order-1", "customer-1"))

	offerRepo := NewMockOfferRepository()
	offerRepo.AddOffer(&domain.Offer{
		ID:           "offer-1",
		OrderID:      "order-1",
		DriverID:     "driver-1",
		DriverName:   "Sami",
		DriverPhone:  "0599",
		DriverRating: 4.9,
		VehicleClass: domain.VehicleMotorcycle,
		Price:        42,
		CreatedAt:    time.Now(),
	})

	driverRepo := NewMockDriverRepository()
	driverRepo.AddDriver(onlineDriver("driver-1"))

	lockStore := NewMockLockStore()
	events := NewMockEventStore()
	offerService := newOfferService(offerRepo, orderRepo, driverRepo, lockStore, events)

	order, err := offerService.AcceptOffer(ctx, service.AcceptOfferRequest{OfferID: "offer-1", CustomerID: "customer-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if order.Status != domain.OrderStatusAccepted {
		t.Errorf("expected ACCEPTED, got %s", order.Status)
	}
	// The accepted offer's price replaces the original quote.
	if order.Price != 42 {
		t.Errorf("expected final price 42, got %d", order.Price)
	}
	if order.DriverID != "driver-1" || order.DriverName != "Sami" || order.VehicleClass != domain.VehicleMotorcycle {
		t.Errorf("driver not bound to order: %+v", order)
	}
	if order.AcceptedAt.IsZero() {
		t.Error("expected AcceptedAt set")
	}

	// Persisted state matches.
	stored := orderRepo.GetOrder("order-1")
	if stored.Status != domain.OrderStatusAccepted || stored.Price != 42 {
		t.Errorf("stored order not finalized: %+v", stored)
	}

	// The winning driver is no longer available for other work.
	if driverRepo.GetDriver("driver-1").Status != domain.DriverStatusBusy {
		t.Errorf("expected driver BUSY, got %s", driverRepo.GetDriver("driver-1").Status)
	}

	// The lock is released after the write.
	if lockStore.IsLocked("order-1") {
		t.Error("expected order lock released")
	}

	last := events.LastEvent()
	if last == nil || last.Status != domain.OrderStatusAccepted || last.Price != 42 {
		t.Errorf("expected ACCEPTED event with final price, got %+v", last)
	}
}

func TestOffer_AcceptOnlyByOrderCustomer(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	orderRepo := NewMockOrderRepository()
	orderRepo.AddOrder(biddableOrder("order-1", "customer-1"))

	offerRepo := NewMockOfferRepository()
	offerRepo.AddOffer(&domain.Offer{ID: "offer-1", OrderID: "order-1", DriverID: "driver-1", Price: 42})

	offerService := newOfferService(offerRepo, orderRepo, NewMockDriverRepository(), nil, nil)

	_, err := offerService.AcceptOffer(ctx, service.AcceptOfferRequest{OfferID: "offer-1", CustomerID: "customer-2"})
	if !errors.Is(err, service.ErrNotOrderCustomer) {
		t.Errorf("expected ErrNotOrderCustomer, got %v", err)
	}
}

func TestOffer_AcceptRejectsAssignedOrder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	orderRepo := NewMockOrderRepository()
	order := biddableOrder("order-1", "customer-1")
	order.Status = domain.OrderStatusAccepted
	order.DriverID = "driver-9"
	orderRepo.AddOrder(order)

	offerRepo := NewMockOfferRepository()
	offerRepo.AddOffer(&domain.Offer{ID: "offer-1", OrderID: "order-1", DriverID: "driver-1", Price: 42})

	offerService := newOfferService(offerRepo, orderRepo, NewMockDriverRepository(), nil, nil)

	_, err := offerService.AcceptOffer(ctx, service.AcceptOfferRequest{OfferID: "offer-1", CustomerID: "customer-1"})
	if !errors.Is(err, service.ErrOrderAlreadyAssigned) {
		t.Errorf("expected ErrOrderAlreadyAssigned, got %v", err)
	}
}

func TestOffer_AcceptLosesToHeldLock(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	orderRepo := NewMockOrderRepository()
	orderRepo.AddOrder(biddableOrder("order-1", "customer-1"))

	offerRepo := NewMockOfferRepository()
	offerRepo.AddOffer(&domain.Offer{ID: "offer-1", OrderID: "order-1", DriverID: "driver-1", Price: 42})

	driverRepo := NewMockDriverRepository()
	driverRepo.AddDriver(onlineDriver("driver-1"))

	lockStore := NewMockLockStore()
	lockStore.AcquireOrderLock(ctx, "order-1", 10*time.Second)

	offerService := newOfferService(offerRepo, orderRepo, driverRepo, lockStore, nil)

	_, err := offerService.AcceptOffer(ctx, service.AcceptOfferRequest{OfferID: "offer-1", CustomerID: "customer-1"})
	if !errors.Is(err, service.ErrOrderAlreadyAssigned) {
		t.Errorf("expected ErrOrderAlreadyAssigned while lock held, got %v", err)
	}

	// Nothing was written.
	if orderRepo.GetOrder("order-1").Status != domain.OrderStatusWaitingForOffers {
		t.Error("expected order untouched while lock held")
	}
}

func TestOffer_ConcurrentAcceptsSettleOnce(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	orderRepo := NewMockOrderRepository()
	orderRepo.AddOrder(biddableOrder("order-1", "customer-1"))

	offerRepo := NewMockOfferRepository()
	driverRepo := NewMockDriverRepository()

	numOffers := 10
	for i := 0; i < numOffers; i++ {
		id := string(rune('a' + i))
		driverRepo.AddDriver(onlineDriver("driver-" + id))
		offerRepo.AddOffer(&domain.Offer{
			ID:        "offer-" + id,
			OrderID:   "order-1",
			DriverID:  "driver-" + id,
			Price:     int64(40 + i),
			CreatedAt: time.Now(),
		})
	}

	// No lock store: the conditional write alone must settle the race.
	offerService := newOfferService(offerRepo, orderRepo, driverRepo, nil, nil)

	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0
	losers := 0

	wg.Add(numOffers)
	for i := 0; i < numOffers; i++ {
		id := string(rune('a' + i))
		go func(offerID string) {
			defer wg.Done()
			_, err := offerService.AcceptOffer(ctx, service.AcceptOfferRequest{OfferID: offerID, CustomerID: "customer-1"})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				winners++
			case errors.Is(err, service.ErrOrderAlreadyAssigned):
				losers++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}("offer-" + id)
	}
	wg.Wait()

	if winners != 1 {
		t.Errorf("expected exactly 1 winner, got %d", winners)
	}
	if losers != numOffers-1 {
		t.Errorf("expected %d losers, got %d", numOffers-1, losers)
	}

	// The stored order carries exactly one driver.
	stored := orderRepo.GetOrder("order-1")
	if stored.Status != domain.OrderStatusAccepted || !stored.Assigned() {
		t.Errorf("expected assigned ACCEPTED order, got %+v", stored)
	}
}

func TestOffer_ListReturnsOldestFirst(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	offerRepo := NewMockOfferRepository()
	base := time.Now()
	offerRepo.AddOffer(&domain.Offer{ID: "offer-2", OrderID: "order-1", CreatedAt: base.Add(time.Minute)})
	offerRepo.AddOffer(&domain.Offer{ID: "offer-1", OrderID: "order-1", CreatedAt: base})
	offerRepo.AddOffer(&domain.Offer{ID: "offer-3", OrderID: "order-2", CreatedAt: base})

	offerService := newOfferService(offerRepo, NewMockOrderRepository(), NewMockDriverRepository(), nil, nil)

	offers, err := offerService.ListOffers(ctx, "order-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(offers) != 2 {
		t.Fatalf("expected 2 offers, got %d", len(offers))
	}
	if offers[0].ID != "offer-1" || offers[1].ID != "offer-2" {
		t.Errorf("expected oldest first, got %s then %s", offers[0].ID, offers[1].ID)
	}
}

func TestOffer_JanitorPurgesInertOffers(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	orderRepo := NewMockOrderRepository()
	orderRepo.AddOrder(biddableOrder("order-open", "customer-1"))
	taken := biddableOrder("order-taken", "customer-1")
	taken.Status = domain.OrderStatusAccepted
	taken.DriverID = "driver-1"
	orderRepo.AddOrder(taken)

	offerRepo := NewMockOfferRepository()
	offerRepo.Orders = orderRepo
	offerRepo.AddOffer(&domain.Offer{ID: "offer-live", OrderID: "order-open"})
	offerRepo.AddOffer(&domain.Offer{ID: "offer-inert-1", OrderID: "order-taken"})
	offerRepo.AddOffer(&domain.Offer{ID: "offer-inert-2", OrderID: "order-taken"})

	purged, err := offerRepo.PurgeInert(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if purged != 2 {
		t.Errorf("expected 2 purged, got %d", purged)
	}
	if offerRepo.CountOffers() != 1 {
		t.Errorf("expected only the live offer left, got %d", offerRepo.CountOffers())
	}
}

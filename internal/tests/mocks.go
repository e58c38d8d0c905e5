package tests

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"dispatch/internal/domain"
	"dispatch/internal/redis"
	"dispatch/internal/repository"
)

// ──────────────────────────────────────────────
// MOCK ORDER REPOSITORY
// ──────────────────────────────────────────────

// MockOrderRepository is a mock implementation of OrderRepository. Its
// Assign and Transition carry the same conditional-write guard as the
// real repository, so races settle the same way under test.
type MockOrderRepository struct {
	mu     sync.RWMutex
	orders map[string]*domain.Order

	// Counters for verification
	CreateCallCount     int32
	AssignCallCount     int32
	TransitionCallCount int32

	// Error injection
	CreateError     error
	AssignError     error
	TransitionError error
}

// NewMockOrderRepository creates a new mock order repository.
func NewMockOrderRepository() *MockOrderRepository {
	return &MockOrderRepository{
		orders: make(map[string]*domain.Order),
	}
}

// AddOrder adds an order to the mock repository.
func (m *MockOrderRepository) AddOrder(order *domain.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[order.ID] = order
}

func (m *MockOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *order
	m.orders[order.ID] = &copy
	return nil
}

func (m *MockOrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	order, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	// Return a copy to avoid mutation issues.
	copy := *order
	return &copy, nil
}

func (m *MockOrderRepository) GetAll(ctx context.Context) ([]*domain.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Order, 0, len(m.orders))
	for _, o := range m.orders {
		copy := *o
		result = append(result, &copy)
	}
	return result, nil
}

func (m *MockOrderRepository) GetOpen(ctx context.Context, now time.Time) ([]*domain.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Order, 0)
	for _, o := range m.orders {
		if o.Biddable(now) {
			copy := *o
			result = append(result, &copy)
		}
	}
	return result, nil
}

func (m *MockOrderRepository) Assign(ctx context.Context, orderID string, driver *domain.Driver, price int64, acceptedAt time.Time) error {
	atomic.AddInt32(&m.AssignCallCount, 1)
	if m.AssignError != nil {
		return m.AssignError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[orderID]
	if !ok {
		return repository.ErrNotFound
	}
	if order.Status != domain.OrderStatusWaitingForOffers {
		return repository.ErrConflict
	}
	order.Status = domain.OrderStatusAccepted
	order.DriverID = driver.ID
	order.DriverName = driver.Name
	order.DriverPhone = driver.Phone
	order.DriverRating = driver.Rating
	order.VehicleClass = driver.VehicleClass
	order.Price = price
	order.AcceptedAt = acceptedAt
	return nil
}

func (m *MockOrderRepository) Transition(ctx context.Context, order *domain.Order, from domain.OrderStatus) error {
	atomic.AddInt32(&m.TransitionCallCount, 1)
	if m.TransitionError != nil {
		return m.TransitionError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.orders[order.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if stored.Status != from {
		return repository.ErrConflict
	}
	copy := *order
	m.orders[order.ID] = &copy
	return nil
}

// GetOrder returns the stored order for test assertions.
func (m *MockOrderRepository) GetOrder(id string) *domain.Order {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.orders[id]
}

// CountOrders returns the number of stored orders.
func (m *MockOrderRepository) CountOrders() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.orders)
}

// ──────────────────────────────────────────────
// MOCK OFFER REPOSITORY
// ──────────────────────────────────────────────

// MockOfferRepository is a mock implementation of OfferRepository. When
// Orders is set, PurgeInert consults it the way the SQL join does.
type MockOfferRepository struct {
	mu     sync.RWMutex
	offers map[string]*domain.Offer

	// Orders backs PurgeInert's status lookup.
	Orders *MockOrderRepository

	// Counters for verification
	CreateCallCount int32
	PurgeCallCount  int32

	// Error injection
	CreateError error
	PurgeError  error
}

// NewMockOfferRepository creates a new mock offer repository.
func NewMockOfferRepository() *MockOfferRepository {
	return &MockOfferRepository{
		offers: make(map[string]*domain.Offer),
	}
}

// AddOffer adds an offer to the mock repository.
func (m *MockOfferRepository) AddOffer(offer *domain.Offer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.offers[offer.ID] = offer
}

func (m *MockOfferRepository) Create(ctx context.Context, offer *domain.Offer) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *offer
	m.offers[offer.ID] = &copy
	return nil
}

func (m *MockOfferRepository) GetByID(ctx context.Context, id string) (*domain.Offer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	offer, ok := m.offers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *offer
	return &copy, nil
}

func (m *MockOfferRepository) GetByOrderID(ctx context.Context, orderID string) ([]*domain.Offer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Offer, 0)
	for _, o := range m.offers {
		if o.OrderID == orderID {
			copy := *o
			result = append(result, &copy)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (m *MockOfferRepository) DeleteByOrder(ctx context.Context, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, o := range m.offers {
		if o.OrderID == orderID {
			delete(m.offers, id)
		}
	}
	return nil
}

func (m *MockOfferRepository) PurgeInert(ctx context.Context) (int64, error) {
	atomic.AddInt32(&m.PurgeCallCount, 1)
	if m.PurgeError != nil {
		return 0, m.PurgeError
	}
	if m.Orders == nil {
		return 0, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var purged int64
	for id, o := range m.offers {
		order := m.Orders.GetOrder(o.OrderID)
		if order != nil && order.Status != domain.OrderStatusWaitingForOffers {
			delete(m.offers, id)
			purged++
		}
	}
	return purged, nil
}

// CountOffers returns the number of stored offers.
func (m *MockOfferRepository) CountOffers() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.offers)
}

// ──────────────────────────────────────────────
// MOCK DRIVER REPOSITORY
// ──────────────────────────────────────────────

// MockDriverRepository is a mock implementation of DriverRepository.
type MockDriverRepository struct {
	mu      sync.RWMutex
	drivers map[string]*domain.Driver

	// Counters for verification
	CreateCallCount       int32
	UpdateStatusCallCount int32

	// Error injection
	CreateError       error
	UpdateStatusError error
}

// NewMockDriverRepository creates a new mock driver repository.
func NewMockDriverRepository() *MockDriverRepository {
	return &MockDriverRepository{
		drivers: make(map[string]*domain.Driver),
	}
}

// AddDriver adds a driver to the mock repository.
func (m *MockDriverRepository) AddDriver(driver *domain.Driver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drivers[driver.ID] = driver
}

func (m *MockDriverRepository) Create(ctx context.Context, driver *domain.Driver) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *driver
	m.drivers[driver.ID] = &copy
	return nil
}

func (m *MockDriverRepository) GetByID(ctx context.Context, id string) (*domain.Driver, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	driver, ok := m.drivers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *driver
	return &copy, nil
}

func (m *MockDriverRepository) GetAll(ctx context.Context) ([]*domain.Driver, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Driver, 0, len(m.drivers))
	for _, d := range m.drivers {
		copy := *d
		result = append(result, &copy)
	}
	return result, nil
}

func (m *MockDriverRepository) UpdateStatus(ctx context.Context, id string, status domain.DriverStatus) error {
	atomic.AddInt32(&m.UpdateStatusCallCount, 1)
	if m.UpdateStatusError != nil {
		return m.UpdateStatusError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	driver, ok := m.drivers[id]
	if !ok {
		return repository.ErrNotFound
	}
	driver.Status = status
	return nil
}

// GetDriver returns the stored driver for test assertions.
func (m *MockDriverRepository) GetDriver(id string) *domain.Driver {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.drivers[id]
}

// ──────────────────────────────────────────────
// MOCK LOCATION STORE
// ──────────────────────────────────────────────

// MockLocationStore is a mock implementation of LocationStoreInterface.
// Subscriptions are in-process channels, so tests can assert on fan-out
// ordering without Redis.
type MockLocationStore struct {
	mu          sync.RWMutex
	samples     map[string]*domain.LocationSample
	drivers     map[string]redis.DriverLocation
	subscribers map[string][]chan domain.LocationSample

	// Counters for verification
	PushCallCount int32

	// Error injection
	PushError      error
	GetSampleError error
	SubscribeError error
}

// NewMockLocationStore creates a new mock location store.
func NewMockLocationStore() *MockLocationStore {
	return &MockLocationStore{
		samples:     make(map[string]*domain.LocationSample),
		drivers:     make(map[string]redis.DriverLocation),
		subscribers: make(map[string][]chan domain.LocationSample),
	}
}

func (m *MockLocationStore) PushSample(ctx context.Context, sample domain.LocationSample, isDriver bool) error {
	atomic.AddInt32(&m.PushCallCount, 1)
	if m.PushError != nil {
		return m.PushError
	}
	m.mu.Lock()
	copy := sample
	m.samples[sample.ActorID] = &copy
	if isDriver {
		m.drivers[sample.ActorID] = redis.DriverLocation{
			DriverID: sample.ActorID,
			Lat:      sample.Lat,
			Lng:      sample.Lng,
		}
	}
	subs := append([]chan domain.LocationSample(nil), m.subscribers[sample.ActorID]...)
	m.mu.Unlock()

	for _, ch := range subs {
		ch <- sample
	}
	return nil
}

func (m *MockLocationStore) GetSample(ctx context.Context, actorID string) (*domain.LocationSample, error) {
	if m.GetSampleError != nil {
		return nil, m.GetSampleError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	sample, ok := m.samples[actorID]
	if !ok {
		return nil, nil
	}
	copy := *sample
	return &copy, nil
}

func (m *MockLocationStore) Subscribe(ctx context.Context, actorID string) (<-chan domain.LocationSample, func(), error) {
	if m.SubscribeError != nil {
		return nil, nil, m.SubscribeError
	}
	ch := make(chan domain.LocationSample, 16)
	m.mu.Lock()
	m.subscribers[actorID] = append(m.subscribers[actorID], ch)
	m.mu.Unlock()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			m.mu.Lock()
			subs := m.subscribers[actorID]
			for i, c := range subs {
				if c == ch {
					m.subscribers[actorID] = append(subs[:i], subs[i+1:]...)
					break
				}
			}
			m.mu.Unlock()
			close(ch)
		})
	}
	return ch, stop, nil
}

func (m *MockLocationStore) FindNearbyDrivers(ctx context.Context, lat, lng, radiusKm float64) ([]redis.DriverLocation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	// Mock does no geo filtering; tests control the contents.
	result := make([]redis.DriverLocation, 0, len(m.drivers))
	for _, loc := range m.drivers {
		result = append(result, loc)
	}
	return result, nil
}

func (m *MockLocationStore) RemoveDriver(ctx context.Context, driverID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.drivers, driverID)
	return nil
}

// HasDriver checks whether a driver is in the live index.
func (m *MockLocationStore) HasDriver(driverID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.drivers[driverID]
	return ok
}

// ──────────────────────────────────────────────
// MOCK LOCK STORE
// ──────────────────────────────────────────────

// MockLockStore is a mock implementation of LockStoreInterface.
type MockLockStore struct {
	mu    sync.Mutex
	locks map[string]time.Time

	// Counters for verification
	AcquireCallCount int32
	ReleaseCallCount int32

	// Error injection
	AcquireError error

	// Force lock failure
	ForceAcquireFailure bool
}

// NewMockLockStore creates a new mock lock store.
func NewMockLockStore() *MockLockStore {
	return &MockLockStore{
		locks: make(map[string]time.Time),
	}
}

func (m *MockLockStore) AcquireOrderLock(ctx context.Context, orderID string, ttl time.Duration) (bool, error) {
	atomic.AddInt32(&m.AcquireCallCount, 1)
	if m.AcquireError != nil {
		return false, m.AcquireError
	}
	if m.ForceAcquireFailure {
		return false, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	key := "lock:order:" + orderID
	if expiry, exists := m.locks[key]; exists {
		if time.Now().Before(expiry) {
			return false, nil // Lock still held.
		}
	}

	m.locks[key] = time.Now().Add(ttl)
	return true, nil
}

func (m *MockLockStore) ReleaseOrderLock(ctx context.Context, orderID string) error {
	atomic.AddInt32(&m.ReleaseCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, "lock:order:"+orderID)
	return nil
}

// IsLocked checks whether an order is locked (for test assertions).
func (m *MockLockStore) IsLocked(orderID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	expiry, exists := m.locks["lock:order:"+orderID]
	return exists && time.Now().Before(expiry)
}

// ──────────────────────────────────────────────
// MOCK EVENT STORE
// ──────────────────────────────────────────────

// MockEventStore records published order events for assertions.
type MockEventStore struct {
	mu     sync.Mutex
	events []redis.OrderEvent

	// Error injection
	PublishError error
}

// NewMockEventStore creates a new mock event store.
func NewMockEventStore() *MockEventStore {
	return &MockEventStore{}
}

func (m *MockEventStore) PublishOrderEvent(ctx context.Context, event redis.OrderEvent) error {
	if m.PublishError != nil {
		return m.PublishError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *MockEventStore) SubscribeOrderEvents(ctx context.Context, orderID string) (<-chan redis.OrderEvent, func(), error) {
	ch := make(chan redis.OrderEvent)
	close(ch)
	return ch, func() {}, nil
}

// Events returns a copy of everything published so far.
func (m *MockEventStore) Events() []redis.OrderEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]redis.OrderEvent, len(m.events))
	copy(result, m.events)
	return result
}

// LastEvent returns the most recently published event, or nil.
func (m *MockEventStore) LastEvent() *redis.OrderEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.events) == 0 {
		return nil
	}
	event := m.events[len(m.events)-1]
	return &event
}

// ──────────────────────────────────────────────
// HELPER ERRORS
// ──────────────────────────────────────────────

var (
	ErrMockDBConstraint = errors.New("mock: unique constraint violation")
	ErrMockTimeout      = errors.New("mock: operation timeout")
)

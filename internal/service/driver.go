package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"dispatch/internal/domain"
	"dispatch/internal/redis"
	"dispatch/internal/repository"
)

// DriverService handles driver registration and availability.
type DriverService struct {
	driverRepo      repository.DriverRepository
	cacheStore      *redis.CacheStore
	locationService *LocationService
}

// NewDriverService creates a new DriverService.
func NewDriverService(
	driverRepo repository.DriverRepository,
	cacheStore *redis.CacheStore,
	locationService *LocationService,
) *DriverService {
	return &DriverService{
		driverRepo:      driverRepo,
		cacheStore:      cacheStore,
		locationService: locationService,
	}
}

// RegisterDriverRequest contains the parameters for registering a driver.
type RegisterDriverRequest struct {
	Name         string
	Phone        string
	VehicleClass domain.VehicleClass
}

// Register creates a new driver in OFFLINE status.
func (s *DriverService) Register(ctx context.Context, req RegisterDriverRequest) (*domain.Driver, error) {
	if req.Name == "" || req.Phone == "" {
		return nil, ErrInvalidDriverID
	}
	class, ok := domain.ParseVehicleClass(string(req.VehicleClass))
	if !ok || class == "" {
		return nil, ErrInvalidVehicleClass
	}

	driver := &domain.Driver{
		ID:           uuid.New().String(),
		Name:         req.Name,
		Phone:        req.Phone,
		Status:       domain.DriverStatusOffline,
		VehicleClass: class,
		Rating:       5.0,
	}

	if err := s.driverRepo.Create(ctx, driver); err != nil {
		return nil, err
	}
	return driver, nil
}

// GetAll retrieves all drivers.
func (s *DriverService) GetAll(ctx context.Context) ([]*domain.Driver, error) {
	return s.driverRepo.GetAll(ctx)
}

// SetOnline marks a driver available for bidding.
func (s *DriverService) SetOnline(ctx context.Context, driverID string) error {
	if driverID == "" {
		return ErrInvalidDriverID
	}
	if err := s.driverRepo.UpdateStatus(ctx, driverID, domain.DriverStatusOnline); err != nil {
		return err
	}
	s.invalidate(ctx, driverID)
	return nil
}

// SetOffline marks a driver unavailable and ends their location session.
func (s *DriverService) SetOffline(ctx context.Context, driverID string) error {
	if driverID == "" {
		return ErrInvalidDriverID
	}
	if err := s.driverRepo.UpdateStatus(ctx, driverID, domain.DriverStatusOffline); err != nil {
		return err
	}
	s.invalidate(ctx, driverID)

	if s.locationService != nil {
		if err := s.locationService.EndDriverSession(ctx, driverID); err != nil &&
			!errors.Is(err, repository.ErrNotFound) {
			return err
		}
	}
	return nil
}

func (s *DriverService) invalidate(ctx context.Context, driverID string) {
	if s.cacheStore != nil {
		_ = s.cacheStore.InvalidateDriver(ctx, driverID)
	}
}

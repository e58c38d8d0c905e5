package tests

import (
	"context"
	"errors"
	"testing"
	"time"

	"dispatch/internal/domain"
	"dispatch/internal/service"
)

// ──────────────────────────────────────────────
// LOCATION TRACKING
// ──────────────────────────────────────────────

func TestLocation_PushAndLatest(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	locationStore := NewMockLocationStore()
	locationService := service.NewLocationService(locationStore, 2*time.Minute)

	err := locationService.PushSample(ctx, service.PushSampleRequest{
		ActorID:  "driver-1",
		Lat:      31.5,
		Lng:      34.45,
		IsDriver: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sample, fresh, err := locationService.Latest(ctx, "driver-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sample == nil {
		t.Fatal("expected a sample")
	}
	if !fresh {
		t.Error("expected a just-pushed sample to be fresh")
	}
	if sample.Lat != 31.5 || sample.Lng != 34.45 {
		t.Errorf("unexpected coordinates: %f %f", sample.Lat, sample.Lng)
	}
	if !locationStore.HasDriver("driver-1") {
		t.Error("expected driver in the live index")
	}
}

func TestLocation_PushValidation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	locationService := service.NewLocationService(NewMockLocationStore(), 0)

	tests := []struct {
		name    string
		req     service.PushSampleRequest
		wantErr error
	}{
		{"missing actor", service.PushSampleRequest{Lat: 31.5, Lng: 34.45}, service.ErrInvalidActorID},
		{"latitude out of range", service.PushSampleRequest{ActorID: "a", Lat: 91, Lng: 34.45}, service.ErrInvalidLocation},
		{"longitude out of range", service.PushSampleRequest{ActorID: "a", Lat: 31.5, Lng: -181}, service.ErrInvalidLocation},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := locationService.PushSample(ctx, tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLocation_LatestUnknownActor(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	locationService := service.NewLocationService(NewMockLocationStore(), 0)

	sample, fresh, err := locationService.Latest(ctx, "ghost")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sample != nil || fresh {
		t.Errorf("expected unknown position, got %+v fresh=%v", sample, fresh)
	}
}

func TestLocation_LatestReportsStaleness(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	locationStore := NewMockLocationStore()
	locationService := service.NewLocationService(locationStore, time.Minute)

	// An old sample is returned, but flagged as not fresh.
	err := locationService.PushSample(ctx, service.PushSampleRequest{
		ActorID:    "driver-1",
		Lat:        31.5,
		Lng:        34.45,
		RecordedAt: time.Now().Add(-5 * time.Minute),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sample, fresh, err := locationService.Latest(ctx, "driver-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sample == nil {
		t.Fatal("expected the stale sample returned")
	}
	if fresh {
		t.Error("expected a 5-minute-old sample to be stale")
	}
}

func TestLocation_StreamDropsOutOfOrderSamples(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	locationStore := NewMockLocationStore()
	locationService := service.NewLocationService(locationStore, time.Minute)

	out, stop, err := locationService.Stream(ctx, "driver-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer stop()

	base := time.Now()
	push := func(lat float64, at time.Time) {
		if err := locationService.PushSample(ctx, service.PushSampleRequest{
			ActorID:    "driver-1",
			Lat:        lat,
			Lng:        34.45,
			RecordedAt: at,
		}); err != nil {
			t.Fatalf("push failed: %v", err)
		}
	}

	push(31.50, base)
	push(31.51, base.Add(2*time.Second))
	push(31.49, base.Add(time.Second)) // late arrival, must be dropped
	push(31.52, base.Add(3*time.Second))

	want := []float64{31.50, 31.51, 31.52}
	for i, lat := range want {
		select {
		case sample := <-out:
			if sample.Lat != lat {
				t.Errorf("sample %d: expected lat %f, got %f", i, lat, sample.Lat)
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for sample %d", i)
		}
	}

	// Nothing else should arrive; the out-of-order sample was dropped.
	select {
	case sample := <-out:
		t.Errorf("unexpected extra sample: %+v", sample)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestLocation_StreamStopEndsSubscription(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	locationStore := NewMockLocationStore()
	locationService := service.NewLocationService(locationStore, time.Minute)

	out, stop, err := locationService.Stream(ctx, "driver-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stop()

	select {
	case _, ok := <-out:
		if ok {
			t.Error("expected channel closed after stop")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for channel close")
	}
}

func TestLocation_NearbyDriversValidation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	locationService := service.NewLocationService(NewMockLocationStore(), 0)

	_, err := locationService.NearbyDrivers(ctx, 120, 34.45, 5)
	if !errors.Is(err, service.ErrInvalidLocation) {
		t.Errorf("expected ErrInvalidLocation, got %v", err)
	}
}

// ──────────────────────────────────────────────
// DRIVER SESSIONS
// ──────────────────────────────────────────────

func TestDriver_RegisterStartsOffline(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	driverRepo := NewMockDriverRepository()
	driverService := service.NewDriverService(driverRepo, nil, nil)

	driver, err := driverService.Register(ctx, service.RegisterDriverRequest{
		Name:         "Sami",
		Phone:        "0599",
		VehicleClass: domain.VehicleMotorcycle,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if driver.Status != domain.DriverStatusOffline {
		t.Errorf("expected OFFLINE, got %s", driver.Status)
	}
	if driver.Rating != 5.0 {
		t.Errorf("expected starting rating 5.0, got %f", driver.Rating)
	}
	if driver.ID == "" {
		t.Error("expected a generated ID")
	}
}

func TestDriver_RegisterRejectsUnknownVehicleClass(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	driverService := service.NewDriverService(NewMockDriverRepository(), nil, nil)

	_, err := driverService.Register(ctx, service.RegisterDriverRequest{
		Name:         "Sami",
		Phone:        "0599",
		VehicleClass: "JETSKI",
	})
	if !errors.Is(err, service.ErrInvalidVehicleClass) {
		t.Errorf("expected ErrInvalidVehicleClass, got %v", err)
	}
}

func TestDriver_OfflineEndsLocationSession(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	driverRepo := NewMockDriverRepository()
	driverRepo.AddDriver(&domain.Driver{ID: "driver-1", Status: domain.DriverStatusOnline})

	locationStore := NewMockLocationStore()
	locationService := service.NewLocationService(locationStore, time.Minute)
	driverService := service.NewDriverService(driverRepo, nil, locationService)

	// Establish a live position first.
	if err := locationService.PushSample(ctx, service.PushSampleRequest{
		ActorID: "driver-1", Lat: 31.5, Lng: 34.45, IsDriver: true,
	}); err != nil {
		t.Fatalf("push failed: %v", err)
	}

	if err := driverService.SetOffline(ctx, "driver-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if driverRepo.GetDriver("driver-1").Status != domain.DriverStatusOffline {
		t.Error("expected driver OFFLINE")
	}
	if locationStore.HasDriver("driver-1") {
		t.Error("expected driver removed from the live index")
	}
}

package pricing

import (
	"testing"

	"dispatch/internal/domain"
)

func testConfig() Config {
	return Config{
		BaseFare:      12,
		PerKmRate:     9,
		SameZoneFare:  15,
		MinFare:       20,
		MaxFare:       500,
		FoodPerKmRate: 3,
		Multipliers:   DefaultMultipliers(),
		ZoneRadiusKm:  2.0,
	}
}

func testVillages() []domain.Village {
	return []domain.Village{
		{ID: "v-1", Name: "North Village", Lat: 31.5000, Lng: 34.4500},
		{ID: "v-2", Name: "South Village", Lat: 31.4000, Lng: 34.3500},
	}
}

func TestPrice_RideDifferentZones(t *testing.T) {
	t.Parallel()

	engine := NewEngine(testConfig(), testVillages())

	// 12 + 5.2*9 = 58.8; 58.8 * 0.9 = 52.92 -> 53
	q := engine.Price(QuoteInput{
		Pickup:       domain.Point{Lat: 31.5001, Lng: 34.4501},
		Dropoff:      domain.Point{Lat: 31.4001, Lng: 34.3501},
		DistanceKm:   5.2,
		VehicleClass: domain.VehicleMotorcycle,
		Category:     domain.OrderCategoryRide,
	})

	if q.Total != 53 {
		t.Errorf("expected price 53, got %d", q.Total)
	}
	if q.SameZone {
		t.Error("expected different zones")
	}
}

func TestPrice_SameZoneFlatFare(t *testing.T) {
	t.Parallel()

	engine := NewEngine(testConfig(), testVillages())

	// Both points resolve to v-1; flat fare regardless of class or distance.
	for _, class := range []domain.VehicleClass{
		domain.VehicleBicycle, domain.VehicleMotorcycle, domain.VehicleTuktuk, domain.VehicleCar,
	} {
		q := engine.Price(QuoteInput{
			Pickup:       domain.Point{Lat: 31.5001, Lng: 34.4501},
			Dropoff:      domain.Point{Lat: 31.5010, Lng: 34.4510},
			DistanceKm:   9.9,
			VehicleClass: class,
			Category:     domain.OrderCategoryRide,
		})
		if q.Total != 15 {
			t.Errorf("class %s: expected same-zone fare 15, got %d", class, q.Total)
		}
		if !q.SameZone {
			t.Errorf("class %s: expected same-zone detection", class)
		}
	}
}

func TestPrice_FoodDeliveryFeeSeparateFromSubtotal(t *testing.T) {
	t.Parallel()

	engine := NewEngine(testConfig(), testVillages())

	// fee = max(4*3, 20) = 20; total = 150 + 20
	q := engine.Price(QuoteInput{
		Pickup:        domain.Point{Lat: 31.5001, Lng: 34.4501},
		Dropoff:       domain.Point{Lat: 31.4001, Lng: 34.3501},
		DistanceKm:    4,
		VehicleClass:  domain.VehicleMotorcycle,
		Category:      domain.OrderCategoryFood,
		ItemsSubtotal: 150,
	})

	if q.DeliveryFee != 20 {
		t.Errorf("expected delivery fee 20, got %d", q.DeliveryFee)
	}
	if q.Total != 170 {
		t.Errorf("expected total 170, got %d", q.Total)
	}
}

func TestPrice_MinFareFloor(t *testing.T) {
	t.Parallel()

	engine := NewEngine(testConfig(), testVillages())

	// 12 + 0.5*9 = 16.5; 16.5 * 0.7 = 11.55 < min 20
	q := engine.Price(QuoteInput{
		Pickup:       domain.Point{Lat: 31.5001, Lng: 34.4501},
		Dropoff:      domain.Point{Lat: 31.4001, Lng: 34.3501},
		DistanceKm:   0.5,
		VehicleClass: domain.VehicleBicycle,
		Category:     domain.OrderCategoryRide,
	})

	if q.Total != 20 {
		t.Errorf("expected min fare 20, got %d", q.Total)
	}
}

func TestPrice_MaxFareCap(t *testing.T) {
	t.Parallel()

	engine := NewEngine(testConfig(), testVillages())

	q := engine.Price(QuoteInput{
		Pickup:       domain.Point{Lat: 31.5001, Lng: 34.4501},
		Dropoff:      domain.Point{Lat: 31.4001, Lng: 34.3501},
		DistanceKm:   200,
		VehicleClass: domain.VehicleCar,
		Category:     domain.OrderCategoryRide,
	})

	if q.Total != 500 {
		t.Errorf("expected capped fare 500, got %d", q.Total)
	}
}

func TestPrice_UnknownClassDefaultsToMultiplierOne(t *testing.T) {
	t.Parallel()

	engine := NewEngine(testConfig(), testVillages())

	q := engine.Price(QuoteInput{
		Pickup:       domain.Point{Lat: 31.5001, Lng: 34.4501},
		Dropoff:      domain.Point{Lat: 31.4001, Lng: 34.3501},
		DistanceKm:   5.2,
		VehicleClass: domain.VehicleClass("HOVERCRAFT"),
		Category:     domain.OrderCategoryRide,
	})

	// 12 + 5.2*9 = 58.8 -> 59 with multiplier 1
	if q.Total != 59 {
		t.Errorf("expected price 59, got %d", q.Total)
	}
}

func TestPrice_AlwaysNonNegativeWithinBounds(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	engine := NewEngine(cfg, testVillages())

	distances := []float64{0, 0.1, 1, 5.2, 17.3, 42, 120, 999}
	classes := []domain.VehicleClass{
		domain.VehicleBicycle, domain.VehicleMotorcycle,
		domain.VehicleTuktuk, domain.VehicleCar, "",
	}

	for _, d := range distances {
		for _, class := range classes {
			q := engine.Price(QuoteInput{
				Pickup:       domain.Point{Lat: 31.5001, Lng: 34.4501},
				Dropoff:      domain.Point{Lat: 31.4001, Lng: 34.3501},
				DistanceKm:   d,
				VehicleClass: class,
				Category:     domain.OrderCategoryRide,
			})
			if q.Total < cfg.MinFare {
				t.Errorf("dist=%v class=%s: price %d below min fare", d, class, q.Total)
			}
			if q.Total > cfg.MaxFare {
				t.Errorf("dist=%v class=%s: price %d above max fare", d, class, q.Total)
			}
		}
	}
}

func TestNearestVillage_OutsideRadius(t *testing.T) {
	t.Parallel()

	engine := NewEngine(testConfig(), testVillages())

	// A point far from every village resolves to no zone.
	if _, ok := engine.NearestVillage(0, 0); ok {
		t.Error("expected no village match far from all villages")
	}
}

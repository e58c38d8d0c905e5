package pricing

import (
	"math"

	"dispatch/internal/domain"
	"dispatch/internal/geo"
)

// Config holds the static fare table. Immutable at runtime; loaded once.
type Config struct {
	BaseFare      float64
	PerKmRate     float64
	SameZoneFare  int64
	MinFare       int64
	MaxFare       int64
	FoodPerKmRate float64
	// Multipliers maps a vehicle class to its fare multiplier. An unknown
	// class falls back to 1.
	Multipliers map[domain.VehicleClass]float64
	// ZoneRadiusKm is how close a point must be to a village's
	// representative coordinate to resolve to that zone.
	ZoneRadiusKm float64
}

// DefaultMultipliers returns the standard per-class multiplier table.
func DefaultMultipliers() map[domain.VehicleClass]float64 {
	return map[domain.VehicleClass]float64{
		domain.VehicleBicycle:    0.7,
		domain.VehicleMotorcycle: 0.9,
		domain.VehicleTuktuk:     1.0,
		domain.VehicleCar:        1.3,
	}
}

// Engine computes quoted prices. It is a pure function of its inputs and
// the loaded config/village table; no side effects, so it is safe to call
// speculatively for display before an order exists.
type Engine struct {
	cfg      Config
	villages []domain.Village
}

// NewEngine creates an Engine over the given config and village table.
func NewEngine(cfg Config, villages []domain.Village) *Engine {
	if cfg.ZoneRadiusKm <= 0 {
		cfg.ZoneRadiusKm = 2.0
	}
	return &Engine{cfg: cfg, villages: villages}
}

// QuoteInput contains everything a price depends on.
type QuoteInput struct {
	Pickup        domain.Point
	Dropoff       domain.Point
	DistanceKm    float64
	VehicleClass  domain.VehicleClass
	Category      domain.OrderCategory
	ItemsSubtotal int64 // FOOD/PHARMACY item cost, excluded from the fee
}

// Quote is the result of a pricing computation. Total is what the
// customer sees; for delivery categories it includes the item subtotal.
type Quote struct {
	Total       int64
	DeliveryFee int64 // zero for rides
	SameZone    bool
}

// Price computes the quoted price for the given input. All outputs are
// non-negative integer currency units, rounded half-up.
func (e *Engine) Price(in QuoteInput) Quote {
	same := e.SameZone(in.Pickup, in.Dropoff)

	if in.Category.IsDelivery() {
		fee := e.deliveryFee(in.DistanceKm, same)
		return Quote{Total: in.ItemsSubtotal + fee, DeliveryFee: fee, SameZone: same}
	}

	if same {
		return Quote{Total: e.cfg.SameZoneFare, SameZone: true}
	}

	raw := (e.cfg.BaseFare + in.DistanceKm*e.cfg.PerKmRate) * e.multiplier(in.VehicleClass)
	total := roundHalfUp(math.Max(raw, float64(e.cfg.MinFare)))
	if e.cfg.MaxFare > 0 && total > e.cfg.MaxFare {
		total = e.cfg.MaxFare
	}
	return Quote{Total: total}
}

// deliveryFee prices the courier leg of a FOOD/PHARMACY order, separate
// from the item cost.
func (e *Engine) deliveryFee(distanceKm float64, sameZone bool) int64 {
	if sameZone {
		return e.cfg.SameZoneFare
	}
	return roundHalfUp(math.Max(distanceKm*e.cfg.FoodPerKmRate, float64(e.cfg.MinFare)))
}

// SameZone reports whether both points resolve to the same named village.
// Points that resolve to no village are never in the same zone.
func (e *Engine) SameZone(a, b domain.Point) bool {
	va, ok := e.NearestVillage(a.Lat, a.Lng)
	if !ok {
		return false
	}
	vb, ok := e.NearestVillage(b.Lat, b.Lng)
	if !ok {
		return false
	}
	return va.ID == vb.ID
}

// NearestVillage resolves a coordinate to the closest village within the
// zone radius, used for same-zone pricing and human-readable labels.
func (e *Engine) NearestVillage(lat, lng float64) (domain.Village, bool) {
	var best domain.Village
	bestDist := math.MaxFloat64
	for _, v := range e.villages {
		d := geo.HaversineKm(lat, lng, v.Lat, v.Lng)
		if d < bestDist {
			best = v
			bestDist = d
		}
	}
	if bestDist > e.cfg.ZoneRadiusKm {
		return domain.Village{}, false
	}
	return best, true
}

func (e *Engine) multiplier(class domain.VehicleClass) float64 {
	if m, ok := e.cfg.Multipliers[class]; ok {
		return m
	}
	return 1
}

// roundHalfUp rounds a non-negative fare to the nearest integer, with
// halves rounding up.
func roundHalfUp(x float64) int64 {
	return int64(math.Floor(x + 0.5))
}

package routing

import (
	"context"
	"log"
	"math"
	"net/http"
	"time"

	"dispatch/internal/geo"
	"dispatch/internal/observability"
)

const (
	// Empirical road-vs-straight-line inflation factor used when the
	// routing service is unavailable.
	fallbackInflation = 1.3
	// Fallback pace: minutes per straight-line kilometer.
	fallbackMinPerKm = 3
)

// LatLng is a bare coordinate pair, ordered lat then lng.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Route is a resolved road route between two coordinates.
type Route struct {
	DistanceKm  float64  // rounded to one decimal place
	DurationMin int      // rounded up to the next whole minute
	Geometry    []LatLng // polyline; at least the two endpoints
	Fallback    bool     // true when the estimate is straight-line based
}

// Resolver resolves road distance and route geometry via an external
// routing service, falling back to a deterministic straight-line
// estimate on any failure. Resolve never returns an error; callers
// always receive a usable estimate.
type Resolver struct {
	osrm *OSRMClient
}

// NewResolver creates a Resolver backed by the OSRM endpoint. An empty
// endpoint disables the network path entirely (every call falls back).
func NewResolver(endpoint string, timeout time.Duration) *Resolver {
	if endpoint == "" {
		return &Resolver{}
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Resolver{osrm: NewOSRMClient(endpoint, &http.Client{Timeout: timeout})}
}

// Resolve returns the road route between two points. Network errors,
// non-Ok responses and empty routes all degrade to the fallback.
func (r *Resolver) Resolve(ctx context.Context, from, to LatLng) Route {
	if r.osrm != nil {
		route, err := r.osrm.Route(ctx, from, to)
		if err == nil {
			return route
		}
		log.Printf("routing: falling back to straight-line estimate: %v", err)
	}
	observability.RoutingFallbacksTotal.Inc()
	return fallbackRoute(from, to)
}

// fallbackRoute builds a deterministic estimate from the haversine
// distance: distance inflated by 1.3, duration at 3 min per straight km,
// geometry a two-point straight segment.
func fallbackRoute(from, to LatLng) Route {
	straightKm := geo.HaversineKm(from.Lat, from.Lng, to.Lat, to.Lng)
	return Route{
		DistanceKm:  roundDistance(straightKm*fallbackInflation, from, to),
		DurationMin: int(math.Ceil(straightKm * fallbackMinPerKm)),
		Geometry:    []LatLng{from, to},
		Fallback:    true,
	}
}

// roundDistance rounds to one decimal but never reports zero for two
// distinct points.
func roundDistance(km float64, from, to LatLng) float64 {
	rounded := geo.Round1(km)
	if rounded == 0 && from != to {
		return 0.1
	}
	return rounded
}

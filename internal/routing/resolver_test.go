package routing

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"dispatch/internal/geo"
)

var (
	testFrom = LatLng{Lat: 31.5000, Lng: 34.4500}
	testTo   = LatLng{Lat: 31.4100, Lng: 34.3600}
)

func TestResolve_UsesOSRMRoute(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/route/v1/driving/") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("geometries") != "geojson" {
			t.Errorf("expected geojson geometries, got %q", r.URL.Query().Get("geometries"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"code": "Ok",
			"routes": [{
				"distance": 13450,
				"duration": 1130,
				"geometry": {"coordinates": [[34.4500,31.5000],[34.4000,31.4500],[34.3600,31.4100]]}
			}]
		}`))
	}))
	defer server.Close()

	resolver := NewResolver(server.URL, time.Second)
	route := resolver.Resolve(context.Background(), testFrom, testTo)

	if route.Fallback {
		t.Fatal("expected OSRM route, got fallback")
	}
	if route.DistanceKm != 13.5 {
		t.Errorf("expected distance 13.5, got %v", route.DistanceKm)
	}
	// 1130s = 18.83 min -> 19
	if route.DurationMin != 19 {
		t.Errorf("expected duration 19, got %d", route.DurationMin)
	}
	if len(route.Geometry) != 3 {
		t.Fatalf("expected 3 geometry points, got %d", len(route.Geometry))
	}
	if route.Geometry[0].Lat != 31.5 || route.Geometry[0].Lng != 34.45 {
		t.Errorf("geometry not converted from lon,lat order: %+v", route.Geometry[0])
	}
}

func TestResolve_FallbackOnServerError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	resolver := NewResolver(server.URL, time.Second)
	route := resolver.Resolve(context.Background(), testFrom, testTo)

	assertFallback(t, route)
}

func TestResolve_FallbackOnNonOkCode(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code": "NoRoute", "routes": []}`))
	}))
	defer server.Close()

	resolver := NewResolver(server.URL, time.Second)
	route := resolver.Resolve(context.Background(), testFrom, testTo)

	assertFallback(t, route)
}

func TestResolve_FallbackOnUnreachableEndpoint(t *testing.T) {
	t.Parallel()

	// Closed port; the request fails at dial time.
	resolver := NewResolver("http://127.0.0.1:1", 200*time.Millisecond)
	route := resolver.Resolve(context.Background(), testFrom, testTo)

	assertFallback(t, route)
}

func TestResolve_NoEndpointAlwaysFallback(t *testing.T) {
	t.Parallel()

	resolver := NewResolver("", 0)
	route := resolver.Resolve(context.Background(), testFrom, testTo)

	assertFallback(t, route)
}

func TestResolve_NeverZeroForDistinctPoints(t *testing.T) {
	t.Parallel()

	resolver := NewResolver("", 0)

	// Two points ~11 meters apart.
	near := LatLng{Lat: 31.5001, Lng: 34.4500}
	route := resolver.Resolve(context.Background(), testFrom, near)

	if route.DistanceKm <= 0 {
		t.Errorf("expected positive distance for distinct points, got %v", route.DistanceKm)
	}
}

// assertFallback checks the deterministic straight-line estimate:
// distance = haversine * 1.3 (one decimal), duration = ceil(straight * 3),
// geometry = the two endpoints.
func assertFallback(t *testing.T, route Route) {
	t.Helper()

	if !route.Fallback {
		t.Fatal("expected fallback route")
	}

	straight := geo.HaversineKm(testFrom.Lat, testFrom.Lng, testTo.Lat, testTo.Lng)
	wantDistance := geo.Round1(straight * 1.3)
	wantDuration := int(math.Ceil(straight * 3))

	if route.DistanceKm != wantDistance {
		t.Errorf("expected fallback distance %v, got %v", wantDistance, route.DistanceKm)
	}
	if route.DurationMin != wantDuration {
		t.Errorf("expected fallback duration %d, got %d", wantDuration, route.DurationMin)
	}
	if len(route.Geometry) != 2 || route.Geometry[0] != testFrom || route.Geometry[1] != testTo {
		t.Errorf("expected two-point straight segment, got %+v", route.Geometry)
	}
	if route.DistanceKm <= 0 {
		t.Errorf("expected positive distance, got %v", route.DistanceKm)
	}
}

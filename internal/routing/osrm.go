package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
)

// OSRMClient performs route lookups against an OSRM HTTP server.
type OSRMClient struct {
	endpoint string
	client   *http.Client
}

// NewOSRMClient creates a client for the given OSRM base endpoint.
func NewOSRMClient(endpoint string, client *http.Client) *OSRMClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &OSRMClient{endpoint: endpoint, client: client}
}

type osrmResponse struct {
	Code   string `json:"code"`
	Routes []struct {
		Distance float64 `json:"distance"` // meters
		Duration float64 `json:"duration"` // seconds
		Geometry struct {
			Coordinates [][]float64 `json:"coordinates"` // [lon, lat]
		} `json:"geometry"`
	} `json:"routes"`
}

// Route queries OSRM between two points. OSRM expects lon,lat pairs:
// /route/v1/driving/{lon1},{lat1};{lon2},{lat2}?overview=full&geometries=geojson
func (c *OSRMClient) Route(ctx context.Context, from, to LatLng) (Route, error) {
	url := fmt.Sprintf("%s/route/v1/driving/%.6f,%.6f;%.6f,%.6f?overview=full&geometries=geojson",
		c.endpoint, from.Lng, from.Lat, to.Lng, to.Lat)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Route{}, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return Route{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Route{}, fmt.Errorf("osrm status %d", resp.StatusCode)
	}

	var out osrmResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Route{}, err
	}

	if out.Code != "Ok" || len(out.Routes) == 0 {
		return Route{}, fmt.Errorf("osrm no route: %s", out.Code)
	}

	best := out.Routes[0]
	geometry := make([]LatLng, 0, len(best.Geometry.Coordinates))
	for _, c := range best.Geometry.Coordinates {
		if len(c) < 2 {
			continue
		}
		geometry = append(geometry, LatLng{Lat: c[1], Lng: c[0]})
	}
	if len(geometry) < 2 {
		geometry = []LatLng{from, to}
	}

	return Route{
		DistanceKm:  roundDistance(best.Distance/1000, from, to),
		DurationMin: int(math.Ceil(best.Duration / 60)),
		Geometry:    geometry,
	}, nil
}

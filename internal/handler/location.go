package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"dispatch/internal/service"
)

// LocationHandler handles HTTP requests for actor positions.
type LocationHandler struct {
	locationService *service.LocationService
}

// NewLocationHandler creates a new LocationHandler.
func NewLocationHandler(locationService *service.LocationService) *LocationHandler {
	return &LocationHandler{locationService: locationService}
}

// PushSampleRequest is the HTTP request body for a position update.
type PushSampleRequest struct {
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
	RecordedAt string  `json:"recorded_at"` // RFC3339, optional
}

// SampleResponse is the HTTP representation of a location sample.
type SampleResponse struct {
	ActorID    string  `json:"actor_id"`
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
	RecordedAt string  `json:"recorded_at"`
	Fresh      bool    `json:"fresh"`
}

// PushDriverSample handles POST /v1/drivers/:id/location
func (h *LocationHandler) PushDriverSample(c *gin.Context) {
	h.pushSample(c, true)
}

// PushActorSample handles POST /v1/actors/:id/location
func (h *LocationHandler) PushActorSample(c *gin.Context) {
	h.pushSample(c, false)
}

func (h *LocationHandler) pushSample(c *gin.Context, isDriver bool) {
	var req PushSampleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	var recordedAt time.Time
	if req.RecordedAt != "" {
		var err error
		recordedAt, err = time.Parse(time.RFC3339, req.RecordedAt)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid recorded_at timestamp"})
			return
		}
	}

	err := h.locationService.PushSample(c.Request.Context(), service.PushSampleRequest{
		ActorID:    c.Param("id"),
		Lat:        req.Lat,
		Lng:        req.Lng,
		RecordedAt: recordedAt,
		IsDriver:   isDriver,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "recorded"})
}

// GetLatest handles GET /v1/actors/:id/location
func (h *LocationHandler) GetLatest(c *gin.Context) {
	sample, fresh, err := h.locationService.Latest(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if sample == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "location unknown"})
		return
	}

	c.JSON(http.StatusOK, SampleResponse{
		ActorID:    sample.ActorID,
		Lat:        sample.Lat,
		Lng:        sample.Lng,
		RecordedAt: sample.RecordedAt.Format(time.RFC3339),
		Fresh:      fresh,
	})
}

// NearbyDriversQuery binds the query parameters for a nearby search.
type NearbyDriversQuery struct {
	Lat      float64 `form:"lat"`
	Lng      float64 `form:"lng"`
	RadiusKm float64 `form:"radius_km"`
}

// NearbyDriverResponse is one driver position in a nearby search result.
type NearbyDriverResponse struct {
	DriverID string  `json:"driver_id"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
}

// NearbyDrivers handles GET /v1/drivers/nearby
func (h *LocationHandler) NearbyDrivers(c *gin.Context) {
	var q NearbyDriversQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid query parameters"})
		return
	}

	locations, err := h.locationService.NearbyDrivers(c.Request.Context(), q.Lat, q.Lng, q.RadiusKm)
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]NearbyDriverResponse, 0, len(locations))
	for _, l := range locations {
		response = append(response, NearbyDriverResponse{
			DriverID: l.DriverID,
			Lat:      l.Lat,
			Lng:      l.Lng,
		})
	}
	c.JSON(http.StatusOK, response)
}

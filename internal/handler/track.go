package handler

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"dispatch/internal/service"
)

const trackWriteTimeout = 10 * time.Second

var trackUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// TrackHandler streams live actor positions over a websocket.
type TrackHandler struct {
	locationService *service.LocationService
}

// NewTrackHandler creates a new TrackHandler.
func NewTrackHandler(locationService *service.LocationService) *TrackHandler {
	return &TrackHandler{locationService: locationService}
}

// Track handles GET /v1/track/:id. It upgrades the connection and
// forwards every position update for the actor until the client
// disconnects.
func (h *TrackHandler) Track(c *gin.Context) {
	actorID := c.Param("id")

	samples, stop, err := h.locationService.Stream(c.Request.Context(), actorID)
	if err != nil {
		respondError(c, err)
		return
	}

	conn, err := trackUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		stop()
		return
	}
	defer conn.Close()
	defer stop()

	// Drain the read side so close frames are processed.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	// Send the last-known position immediately so clients do not wait
	// for the next update before rendering a marker.
	if last, _, err := h.locationService.Latest(c.Request.Context(), actorID); err == nil && last != nil {
		conn.SetWriteDeadline(time.Now().Add(trackWriteTimeout))
		if err := conn.WriteJSON(last); err != nil {
			return
		}
	}

	for {
		select {
		case sample, ok := <-samples:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(trackWriteTimeout))
			if err := conn.WriteJSON(sample); err != nil {
				log.Printf("track: write to %s failed: %v", actorID, err)
				return
			}
		case <-done:
			return
		}
	}
}

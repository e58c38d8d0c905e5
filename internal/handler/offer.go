package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"dispatch/internal/domain"
	"dispatch/internal/service"
)

// OfferHandler handles HTTP requests for driver offers.
type OfferHandler struct {
	offerService *service.OfferService
}

// NewOfferHandler creates a new OfferHandler.
func NewOfferHandler(offerService *service.OfferService) *OfferHandler {
	return &OfferHandler{offerService: offerService}
}

// SubmitOfferRequest is the HTTP request body for submitting an offer.
type SubmitOfferRequest struct {
	DriverID string `json:"driver_id"`
	Price    int64  `json:"price"`
}

// OfferResponse is the HTTP representation of an offer.
type OfferResponse struct {
	ID           string  `json:"id"`
	OrderID      string  `json:"order_id"`
	DriverID     string  `json:"driver_id"`
	DriverName   string  `json:"driver_name,omitempty"`
	DriverPhone  string  `json:"driver_phone,omitempty"`
	DriverRating float64 `json:"driver_rating,omitempty"`
	VehicleClass string  `json:"vehicle_type,omitempty"`
	Price        int64   `json:"price"`
	CreatedAt    string  `json:"created_at"`
}

func offerToResponse(o *domain.Offer) OfferResponse {
	return OfferResponse{
		ID:           o.ID,
		OrderID:      o.OrderID,
		DriverID:     o.DriverID,
		DriverName:   o.DriverName,
		DriverPhone:  o.DriverPhone,
		DriverRating: o.DriverRating,
		VehicleClass: string(o.VehicleClass),
		Price:        o.Price,
		CreatedAt:    o.CreatedAt.Format(time.RFC3339),
	}
}

// SubmitOffer handles POST /v1/orders/:id/offers
func (h *OfferHandler) SubmitOffer(c *gin.Context) {
	var req SubmitOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	offer, err := h.offerService.SubmitOffer(c.Request.Context(), service.SubmitOfferRequest{
		OrderID:  c.Param("id"),
		DriverID: req.DriverID,
		Price:    req.Price,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, offerToResponse(offer))
}

// ListOffers handles GET /v1/orders/:id/offers
func (h *OfferHandler) ListOffers(c *gin.Context) {
	offers, err := h.offerService.ListOffers(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]OfferResponse, 0, len(offers))
	for _, o := range offers {
		response = append(response, offerToResponse(o))
	}
	c.JSON(http.StatusOK, response)
}

// AcceptOfferRequest is the HTTP request body for accepting an offer.
type AcceptOfferRequest struct {
	CustomerID string `json:"customer_id"`
}

// AcceptOffer handles POST /v1/offers/:id/accept
func (h *OfferHandler) AcceptOffer(c *gin.Context) {
	var req AcceptOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	order, err := h.offerService.AcceptOffer(c.Request.Context(), service.AcceptOfferRequest{
		OfferID:    c.Param("id"),
		CustomerID: req.CustomerID,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, orderToResponse(order))
}

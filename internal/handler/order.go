package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
	"dispatch/internal/routing"
	"dispatch/internal/service"
)

// OrderHandler handles HTTP requests for orders.
type OrderHandler struct {
	orderService *service.OrderService
	orderRepo    repository.OrderRepository
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(orderService *service.OrderService, orderRepo repository.OrderRepository) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		orderRepo:    orderRepo,
	}
}

// PointRequest is a coordinate pair with an optional label in a request body.
type PointRequest struct {
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
	Label string  `json:"label,omitempty"`
}

// CreateOrderRequest is the HTTP request body for creating an order.
type CreateOrderRequest struct {
	CustomerID    string       `json:"customer_id"`
	Category      string       `json:"category,omitempty"`
	Pickup        PointRequest `json:"pickup"`
	Dropoff       PointRequest `json:"dropoff"`
	VehicleClass  string       `json:"vehicle_class,omitempty"`
	ItemsSubtotal int64        `json:"items_subtotal,omitempty"`
	SpecialNote   string       `json:"special_note,omitempty"`
	Prescription  string       `json:"prescription,omitempty"`
}

// PointResponse mirrors PointRequest in responses.
type PointResponse struct {
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
	Label string  `json:"label,omitempty"`
}

// OrderResponse is the HTTP representation of an order.
type OrderResponse struct {
	ID            string        `json:"id"`
	CustomerID    string        `json:"customer_id"`
	Category      string        `json:"category"`
	Pickup        PointResponse `json:"pickup"`
	Dropoff       PointResponse `json:"dropoff"`
	Status        string        `json:"status"`
	DriverID      string        `json:"driver_id,omitempty"`
	DriverName    string        `json:"driver_name,omitempty"`
	DriverPhone   string        `json:"driver_phone,omitempty"`
	DriverRating  float64       `json:"driver_rating,omitempty"`
	VehicleClass  string        `json:"requested_vehicle_type,omitempty"`
	Price         int64         `json:"price"`
	DistanceKm    float64       `json:"distance"`
	ItemsSubtotal int64         `json:"items_subtotal,omitempty"`
	SpecialNote   string        `json:"special_note,omitempty"`
	Prescription  string        `json:"prescription,omitempty"`
	CreatedAt     string        `json:"created_at"`
	ExpiresAt     string        `json:"expires_at,omitempty"`
	AcceptedAt    string        `json:"accepted_at,omitempty"`
	DeliveredAt   string        `json:"delivered_at,omitempty"`
	CancelledAt   string        `json:"cancelled_at,omitempty"`
	CancelledBy   string        `json:"cancelled_by,omitempty"`
	RatedAt       string        `json:"rated_at,omitempty"`
	Rating        int           `json:"rating,omitempty"`
	Feedback      string        `json:"feedback,omitempty"`
}

// CreateOrderResponse adds the route preview to the created order.
type CreateOrderResponse struct {
	OrderResponse
	DeliveryFee int64            `json:"delivery_fee,omitempty"`
	DurationMin int              `json:"duration_min"`
	Geometry    []routing.LatLng `json:"geometry,omitempty"`
}

func orderToResponse(o *domain.Order) OrderResponse {
	resp := OrderResponse{
		ID:            o.ID,
		CustomerID:    o.CustomerID,
		Category:      string(o.Category),
		Pickup:        PointResponse{Lat: o.Pickup.Lat, Lng: o.Pickup.Lng, Label: o.Pickup.Label},
		Dropoff:       PointResponse{Lat: o.Dropoff.Lat, Lng: o.Dropoff.Lng, Label: o.Dropoff.Label},
		Status:        string(o.Status),
		DriverID:      o.DriverID,
		DriverName:    o.DriverName,
		DriverPhone:   o.DriverPhone,
		DriverRating:  o.DriverRating,
		VehicleClass:  string(o.VehicleClass),
		Price:         o.Price,
		DistanceKm:    o.DistanceKm,
		ItemsSubtotal: o.ItemsSubtotal,
		SpecialNote:   o.SpecialNote,
		Prescription:  o.Prescription,
		CreatedAt:     o.CreatedAt.Format(time.RFC3339),
		Rating:        o.Rating,
		Feedback:      o.Feedback,
	}

	if !o.ExpiresAt.IsZero() {
		resp.ExpiresAt = o.ExpiresAt.Format(time.RFC3339)
	}
	if !o.AcceptedAt.IsZero() {
		resp.AcceptedAt = o.AcceptedAt.Format(time.RFC3339)
	}
	if !o.DeliveredAt.IsZero() {
		resp.DeliveredAt = o.DeliveredAt.Format(time.RFC3339)
	}
	if !o.CancelledAt.IsZero() {
		resp.CancelledAt = o.CancelledAt.Format(time.RFC3339)
		resp.CancelledBy = o.CancelledBy
	}
	if !o.RatedAt.IsZero() {
		resp.RatedAt = o.RatedAt.Format(time.RFC3339)
	}

	return resp
}

// CreateOrder handles POST /v1/orders
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	category, err := domain.ParseOrderCategory(req.Category)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: service.ErrInvalidCategory.Error()})
		return
	}

	result, err := h.orderService.CreateOrder(c.Request.Context(), service.CreateOrderRequest{
		CustomerID:    req.CustomerID,
		Category:      category,
		Pickup:        domain.Point{Lat: req.Pickup.Lat, Lng: req.Pickup.Lng, Label: req.Pickup.Label},
		Dropoff:       domain.Point{Lat: req.Dropoff.Lat, Lng: req.Dropoff.Lng, Label: req.Dropoff.Label},
		VehicleClass:  domain.VehicleClass(req.VehicleClass),
		ItemsSubtotal: req.ItemsSubtotal,
		SpecialNote:   req.SpecialNote,
		Prescription:  req.Prescription,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, CreateOrderResponse{
		OrderResponse: orderToResponse(result.Order),
		DeliveryFee:   result.DeliveryFee,
		DurationMin:   result.DurationMin,
		Geometry:      result.Geometry,
	})
}

// GetOrder handles GET /v1/orders/:id
func (h *OrderHandler) GetOrder(c *gin.Context) {
	order, err := h.orderService.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, orderToResponse(order))
}

// GetAll handles GET /v1/orders
func (h *OrderHandler) GetAll(c *gin.Context) {
	orders, err := h.orderRepo.GetAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]OrderResponse, 0, len(orders))
	for _, o := range orders {
		response = append(response, orderToResponse(o))
	}
	c.JSON(http.StatusOK, response)
}

// GetOpen handles GET /v1/orders/open, the pool drivers bid on.
func (h *OrderHandler) GetOpen(c *gin.Context) {
	orders, err := h.orderService.GetOpenOrders(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]OrderResponse, 0, len(orders))
	for _, o := range orders {
		response = append(response, orderToResponse(o))
	}
	c.JSON(http.StatusOK, response)
}

// CancelOrderRequest is the HTTP request body for cancelling an order.
type CancelOrderRequest struct {
	CancelledBy string `json:"cancelled_by"`
}

// CancelOrder handles POST /v1/orders/:id/cancel
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	var req CancelOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	order, err := h.orderService.CancelOrder(c.Request.Context(), service.CancelOrderRequest{
		OrderID:     c.Param("id"),
		CancelledBy: req.CancelledBy,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, orderToResponse(order))
}

// DriverActionRequest is the HTTP request body for driver-reported
// transitions (pickup, delivery, withdrawal).
type DriverActionRequest struct {
	DriverID string `json:"driver_id"`
}

// ConfirmPickup handles POST /v1/orders/:id/pickup
func (h *OrderHandler) ConfirmPickup(c *gin.Context) {
	var req DriverActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	order, err := h.orderService.ConfirmPickup(c.Request.Context(), c.Param("id"), req.DriverID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, orderToResponse(order))
}

// ConfirmDelivery handles POST /v1/orders/:id/deliver
func (h *OrderHandler) ConfirmDelivery(c *gin.Context) {
	var req DriverActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	order, err := h.orderService.ConfirmDelivery(c.Request.Context(), c.Param("id"), req.DriverID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, orderToResponse(order))
}

// Withdraw handles POST /v1/orders/:id/withdraw
func (h *OrderHandler) Withdraw(c *gin.Context) {
	var req DriverActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	order, err := h.orderService.WithdrawDriver(c.Request.Context(), c.Param("id"), req.DriverID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, orderToResponse(order))
}

// RateOrderRequest is the HTTP request body for rating a delivered order.
type RateOrderRequest struct {
	CustomerID string `json:"customer_id"`
	Rating     int    `json:"rating"`
	Feedback   string `json:"feedback,omitempty"`
}

// RateOrder handles POST /v1/orders/:id/rate
func (h *OrderHandler) RateOrder(c *gin.Context) {
	var req RateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	order, err := h.orderService.SubmitRating(c.Request.Context(), service.SubmitRatingRequest{
		OrderID:    c.Param("id"),
		CustomerID: req.CustomerID,
		Rating:     req.Rating,
		Feedback:   req.Feedback,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, orderToResponse(order))
}

// QuoteRequest query params are bound manually in Quote.

// QuoteResponse is the HTTP response for GET /v1/quote.
type QuoteResponse struct {
	Price       int64   `json:"price"`
	DeliveryFee int64   `json:"delivery_fee,omitempty"`
	SameZone    bool    `json:"same_zone"`
	DistanceKm  float64 `json:"distance"`
	DurationMin int     `json:"duration_min"`
}

// Quote handles GET /v1/quote, a speculative price for display before
// order creation.
func (h *OrderHandler) Quote(c *gin.Context) {
	var query struct {
		PickupLat     float64 `form:"pickup_lat"`
		PickupLng     float64 `form:"pickup_lng"`
		DropoffLat    float64 `form:"dropoff_lat"`
		DropoffLng    float64 `form:"dropoff_lng"`
		VehicleClass  string  `form:"vehicle_class"`
		Category      string  `form:"category"`
		ItemsSubtotal int64   `form:"items_subtotal"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid query parameters"})
		return
	}

	category, err := domain.ParseOrderCategory(query.Category)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: service.ErrInvalidCategory.Error()})
		return
	}

	quote, err := h.orderService.Quote(c.Request.Context(), service.QuoteRequest{
		Pickup:        domain.Point{Lat: query.PickupLat, Lng: query.PickupLng},
		Dropoff:       domain.Point{Lat: query.DropoffLat, Lng: query.DropoffLng},
		VehicleClass:  domain.VehicleClass(query.VehicleClass),
		Category:      category,
		ItemsSubtotal: query.ItemsSubtotal,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, QuoteResponse{
		Price:       quote.Total,
		DeliveryFee: quote.DeliveryFee,
		SameZone:    quote.SameZone,
		DistanceKm:  quote.DistanceKm,
		DurationMin: quote.DurationMin,
	})
}

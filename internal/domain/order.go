package domain

import (
	"fmt"
	"time"
)

// OrderStatus represents the current status of an order.
type OrderStatus string

const (
	OrderStatusWaitingForOffers OrderStatus = "WAITING_FOR_OFFERS"
	OrderStatusAccepted         OrderStatus = "ACCEPTED"
	OrderStatusPickedUp         OrderStatus = "PICKED_UP"
	OrderStatusDelivered        OrderStatus = "DELIVERED"
	OrderStatusDeliveredRated   OrderStatus = "DELIVERED_RATED"
	OrderStatusCancelled        OrderStatus = "CANCELLED"
)

// ParseOrderStatus validates a status string at the deserialization boundary.
// Unknown values are rejected here rather than at use-time.
func ParseOrderStatus(s string) (OrderStatus, error) {
	switch OrderStatus(s) {
	case OrderStatusWaitingForOffers, OrderStatusAccepted, OrderStatusPickedUp,
		OrderStatusDelivered, OrderStatusDeliveredRated, OrderStatusCancelled:
		return OrderStatus(s), nil
	default:
		return "", fmt.Errorf("unknown order status %q", s)
	}
}

// IsTerminal reports whether no further transitions are possible.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDeliveredRated || s == OrderStatusCancelled
}

// CanTransitionTo reports whether the transition s -> next is a legal edge.
// The full table:
//
//	WAITING_FOR_OFFERS -> ACCEPTED | CANCELLED
//	ACCEPTED           -> PICKED_UP | WAITING_FOR_OFFERS | CANCELLED
//	PICKED_UP          -> DELIVERED
//	DELIVERED          -> DELIVERED_RATED
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	switch s {
	case OrderStatusWaitingForOffers:
		return next == OrderStatusAccepted || next == OrderStatusCancelled
	case OrderStatusAccepted:
		return next == OrderStatusPickedUp ||
			next == OrderStatusWaitingForOffers ||
			next == OrderStatusCancelled
	case OrderStatusPickedUp:
		return next == OrderStatusDelivered
	case OrderStatusDelivered:
		return next == OrderStatusDeliveredRated
	default:
		return false
	}
}

// OrderCategory represents what kind of job the order is.
type OrderCategory string

const (
	OrderCategoryRide     OrderCategory = "RIDE"
	OrderCategoryFood     OrderCategory = "FOOD"
	OrderCategoryPharmacy OrderCategory = "PHARMACY"
	OrderCategoryOther    OrderCategory = "OTHER"
)

// ParseOrderCategory validates a category string.
func ParseOrderCategory(s string) (OrderCategory, error) {
	switch OrderCategory(s) {
	case OrderCategoryRide, OrderCategoryFood, OrderCategoryPharmacy, OrderCategoryOther:
		return OrderCategory(s), nil
	case "":
		return OrderCategoryRide, nil
	default:
		return "", fmt.Errorf("unknown order category %q", s)
	}
}

// IsDelivery reports whether the category carries goods rather than a passenger.
// Delivery categories price the courier fee separately from the item subtotal.
func (c OrderCategory) IsDelivery() bool {
	return c == OrderCategoryFood || c == OrderCategoryPharmacy
}

// Point is a coordinate pair with an optional human-readable label.
type Point struct {
	Lat   float64
	Lng   float64
	Label string
}

// Order represents a delivery or ride job in the system.
// An order is never deleted; it only transitions to a terminal status.
type Order struct {
	ID         string
	CustomerID string
	Category   OrderCategory
	Pickup     Point
	Dropoff    Point

	// Driver fields are set at ACCEPTED and cleared on withdrawal.
	DriverID      string
	DriverName    string
	DriverPhone   string
	DriverRating  float64
	VehicleClass  VehicleClass // requested class; replaced by the accepted offer's class
	Price         int64        // quoted price, replaced by the accepted offer's price
	DistanceKm    float64
	Status        OrderStatus
	ItemsSubtotal int64  // FOOD/PHARMACY: item cost on top of the delivery fee
	SpecialNote   string // free-text special request
	Prescription  string // PHARMACY: attachment reference

	CreatedAt   time.Time
	ExpiresAt   time.Time // end of the bidding window
	AcceptedAt  time.Time
	DeliveredAt time.Time
	CancelledAt time.Time
	CancelledBy string // actor who cancelled: the customer ID or an operator tag
	RatedAt     time.Time
	Rating      int
	Feedback    string
}

// Assigned reports whether a driver is currently bound to the order.
// Invariant: this holds iff status is ACCEPTED, PICKED_UP, DELIVERED
// or DELIVERED_RATED.
func (o *Order) Assigned() bool {
	return o.DriverID != ""
}

// Biddable reports whether the order is still open to driver offers.
func (o *Order) Biddable(now time.Time) bool {
	if o.Status != OrderStatusWaitingForOffers {
		return false
	}
	return o.ExpiresAt.IsZero() || now.Before(o.ExpiresAt)
}

// ClearDriver nulls out all driver fields, on withdrawal and on
// cancellation of an accepted order. The previously accepted price is
// retained.
func (o *Order) ClearDriver() {
	o.DriverID = ""
	o.DriverName = ""
	o.DriverPhone = ""
	o.DriverRating = 0
	o.AcceptedAt = time.Time{}
}

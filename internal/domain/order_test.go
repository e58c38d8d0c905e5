package domain

import (
	"testing"
	"time"
)

func TestParseOrderStatus(t *testing.T) {
	t.Parallel()

	valid := []string{
		"WAITING_FOR_OFFERS", "ACCEPTED", "PICKED_UP",
		"DELIVERED", "DELIVERED_RATED", "CANCELLED",
	}
	for _, s := range valid {
		if _, err := ParseOrderStatus(s); err != nil {
			t.Errorf("ParseOrderStatus(%q): unexpected error: %v", s, err)
		}
	}

	invalid := []string{"", "waiting_for_offers", "ASSIGNED", "DONE"}
	for _, s := range invalid {
		if _, err := ParseOrderStatus(s); err == nil {
			t.Errorf("ParseOrderStatus(%q): expected error", s)
		}
	}
}

func TestOrderStatusTransitionTable(t *testing.T) {
	t.Parallel()

	all := []OrderStatus{
		OrderStatusWaitingForOffers, OrderStatusAccepted, OrderStatusPickedUp,
		OrderStatusDelivered, OrderStatusDeliveredRated, OrderStatusCancelled,
	}

	legal := map[OrderStatus][]OrderStatus{
		OrderStatusWaitingForOffers: {OrderStatusAccepted, OrderStatusCancelled},
		OrderStatusAccepted:         {OrderStatusPickedUp, OrderStatusWaitingForOffers, OrderStatusCancelled},
		OrderStatusPickedUp:         {OrderStatusDelivered},
		OrderStatusDelivered:        {OrderStatusDeliveredRated},
	}

	for _, from := range all {
		allowed := make(map[OrderStatus]bool)
		for _, to := range legal[from] {
			allowed[to] = true
		}
		for _, to := range all {
			got := from.CanTransitionTo(to)
			if got != allowed[to] {
				t.Errorf("%s -> %s: got %v, want %v", from, to, got, allowed[to])
			}
		}
	}
}

func TestOrderStatusIsTerminal(t *testing.T) {
	t.Parallel()

	if !OrderStatusDeliveredRated.IsTerminal() || !OrderStatusCancelled.IsTerminal() {
		t.Error("expected DELIVERED_RATED and CANCELLED terminal")
	}
	for _, s := range []OrderStatus{OrderStatusWaitingForOffers, OrderStatusAccepted, OrderStatusPickedUp, OrderStatusDelivered} {
		if s.IsTerminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

func TestOrderBiddable(t *testing.T) {
	t.Parallel()

	now := time.Now()

	order := &Order{Status: OrderStatusWaitingForOffers, ExpiresAt: now.Add(time.Minute)}
	if !order.Biddable(now) {
		t.Error("expected open order biddable")
	}

	order.ExpiresAt = now.Add(-time.Minute)
	if order.Biddable(now) {
		t.Error("expected expired order not biddable")
	}

	// A zero expiry means no window limit.
	order.ExpiresAt = time.Time{}
	if !order.Biddable(now) {
		t.Error("expected order without window biddable")
	}

	order.Status = OrderStatusAccepted
	if order.Biddable(now) {
		t.Error("expected accepted order not biddable")
	}
}

func TestOrderClearDriverRetainsPrice(t *testing.T) {
	t.Parallel()

	order := &Order{
		DriverID:     "driver-1",
		DriverName:   "Sami",
		DriverPhone:  "0599",
		DriverRating: 4.8,
		Price:        60,
		AcceptedAt:   time.Now(),
	}

	order.ClearDriver()

	if order.Assigned() {
		t.Error("expected no driver after clear")
	}
	if order.DriverName != "" || order.DriverPhone != "" || order.DriverRating != 0 {
		t.Error("expected driver display fields cleared")
	}
	if !order.AcceptedAt.IsZero() {
		t.Error("expected AcceptedAt cleared")
	}
	if order.Price != 60 {
		t.Errorf("expected price retained, got %d", order.Price)
	}
}

func TestParseOrderCategory(t *testing.T) {
	t.Parallel()

	if c, err := ParseOrderCategory(""); err != nil || c != OrderCategoryRide {
		t.Errorf("empty category: got %s, %v", c, err)
	}
	if _, err := ParseOrderCategory("GROCERY"); err == nil {
		t.Error("expected error for unknown category")
	}
	if !OrderCategoryFood.IsDelivery() || !OrderCategoryPharmacy.IsDelivery() {
		t.Error("expected FOOD and PHARMACY to be deliveries")
	}
	if OrderCategoryRide.IsDelivery() {
		t.Error("RIDE is not a delivery")
	}
}

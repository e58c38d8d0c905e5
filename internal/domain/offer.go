package domain

import "time"

// Offer is a driver's price bid against one order. Offers are only
// actionable while the order is in WAITING_FOR_OFFERS; once the order
// leaves that status every outstanding offer becomes inert.
type Offer struct {
	ID           string
	OrderID      string
	DriverID     string
	DriverName   string
	DriverPhone  string
	DriverRating float64
	VehicleClass VehicleClass
	Price        int64
	CreatedAt    time.Time
}

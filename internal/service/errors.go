package service

import "errors"

var (
	// ErrOrderNotBiddable is returned when an offer is submitted against an
	// order that is no longer open for bidding.
	ErrOrderNotBiddable = errors.New("order not open for offers")

	// ErrOrderAlreadyAssigned is returned when an acceptance loses the race
	// to a concurrent acceptance on the same order.
	ErrOrderAlreadyAssigned = errors.New("order already assigned to a driver")

	// ErrInvalidTransition is returned for any status change outside the
	// transition table.
	ErrInvalidTransition = errors.New("invalid order status transition")

	// ErrNotAssignedDriver is returned when a driver action comes from a
	// driver other than the one assigned to the order.
	ErrNotAssignedDriver = errors.New("caller is not the assigned driver")

	// ErrNotOrderCustomer is returned when a customer action comes from a
	// caller other than the order's customer.
	ErrNotOrderCustomer = errors.New("caller is not the order's customer")

	// ErrInvalidCustomerID is returned when the customer ID is empty.
	ErrInvalidCustomerID = errors.New("invalid customer id")

	// ErrInvalidOrderID is returned when the order ID is empty.
	ErrInvalidOrderID = errors.New("invalid order id")

	// ErrInvalidOfferID is returned when the offer ID is empty.
	ErrInvalidOfferID = errors.New("invalid offer id")

	// ErrInvalidDriverID is returned when the driver ID is empty.
	ErrInvalidDriverID = errors.New("invalid driver id")

	// ErrInvalidActorID is returned when the actor ID is empty.
	ErrInvalidActorID = errors.New("invalid actor id")

	// ErrInvalidPickupLocation is returned when pickup coordinates are invalid.
	ErrInvalidPickupLocation = errors.New("invalid pickup location")

	// ErrInvalidDropoffLocation is returned when dropoff coordinates are invalid.
	ErrInvalidDropoffLocation = errors.New("invalid dropoff location")

	// ErrInvalidLocation is returned when location coordinates are invalid.
	ErrInvalidLocation = errors.New("invalid location")

	// ErrInvalidPrice is returned when an offered price is not positive.
	ErrInvalidPrice = errors.New("invalid price")

	// ErrInvalidRating is returned when a rating is outside 1..5.
	ErrInvalidRating = errors.New("invalid rating")

	// ErrInvalidVehicleClass is returned when the vehicle class is unknown.
	ErrInvalidVehicleClass = errors.New("invalid vehicle class")

	// ErrInvalidCategory is returned when the order category is unknown.
	ErrInvalidCategory = errors.New("invalid order category")

	// ErrDriverOffline is returned when an offline driver tries to bid.
	ErrDriverOffline = errors.New("driver is not online")
)

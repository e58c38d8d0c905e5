package domain

// DriverStatus represents the current status of a driver.
type DriverStatus string

const (
	DriverStatusOnline  DriverStatus = "ONLINE"
	DriverStatusOffline DriverStatus = "OFFLINE"
	DriverStatusBusy    DriverStatus = "BUSY"
)

// VehicleClass represents the vehicle a driver operates. Lighter classes
// carry a cheaper pricing multiplier; CAR is the most expensive.
type VehicleClass string

const (
	VehicleBicycle    VehicleClass = "BICYCLE"
	VehicleMotorcycle VehicleClass = "MOTORCYCLE"
	VehicleTuktuk     VehicleClass = "TUKTUK"
	VehicleCar        VehicleClass = "CAR"
)

// ParseVehicleClass validates a vehicle class string. Empty means "any".
func ParseVehicleClass(s string) (VehicleClass, bool) {
	switch VehicleClass(s) {
	case VehicleBicycle, VehicleMotorcycle, VehicleTuktuk, VehicleCar, "":
		return VehicleClass(s), true
	default:
		return "", false
	}
}

// Driver represents a driver in the system.
type Driver struct {
	ID           string
	Name         string
	Phone        string
	Status       DriverStatus
	VehicleClass VehicleClass
	Rating       float64
}

package domain

// Village is a named geographic unit with a representative coordinate.
// Villages resolve human-readable pickup/dropoff labels and drive the
// same-zone flat fare.
type Village struct {
	ID   string
	Name string
	Lat  float64
	Lng  float64
}

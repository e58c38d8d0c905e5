package domain

import "time"

// LocationSample is an actor's last reported position. One sample per
// actor, overwritten in place; no history is retained. Consumers must
// treat a sample older than their staleness threshold as unknown.
type LocationSample struct {
	ActorID    string    `json:"actor_id"`
	Lat        float64   `json:"lat"`
	Lng        float64   `json:"lng"`
	RecordedAt time.Time `json:"recorded_at"`
}

// NewerThan reports whether this sample supersedes other. Out-of-order
// delivery is possible; callers compare timestamps before overwriting
// a cached sample.
func (s LocationSample) NewerThan(other LocationSample) bool {
	return s.RecordedAt.After(other.RecordedAt)
}

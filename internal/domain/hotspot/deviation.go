package hotspot

import "time"

// DeviationEvent records one re-route trigger. Append-only audit log; each
// event targets a new row so independent sessions can record concurrently.
type DeviationEvent struct {
	ID              string
	DriverID        string
	AssignmentID    string
	DeviatedLat     float64
	DeviatedLng     float64
	DeviationMeters float64
	CreatedAt       time.Time
}

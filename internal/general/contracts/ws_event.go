package contracts

// WSPositionReport mirrors the frames a tracked driver sends over the
// tracking WebSocket.
type WSPositionReport struct {
	Lat          float64 `json:"lat"`
	Lng          float64 `json:"lng"`
	AssignmentID string  `json:"assignment_id"`
}

// WSTrackingStatus mirrors the status frames sent back to the driver.
// Polyline is only populated on "route changed".
type WSTrackingStatus struct {
	Status   string     `json:"status"` // ok|alert|route changed|warning|success
	Message  string     `json:"message"`
	ETA      string     `json:"eta"`      // e.g. "4.20 mins"
	Distance string     `json:"distance"` // e.g. "2.10 km"
	Polyline []GeoPoint `json:"polyline,omitempty"`
	Envelope
}

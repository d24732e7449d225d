package contracts

import "time"

// DeviationMessage is broadcast by Hotspot Service when a tracked driver
// leaves the planned route and a reroute is issued.
// Exchange: ExchangeDeviationFanout (fanout, no routing key).
type DeviationMessage struct {
	AssignmentID    string    `json:"assignment_id"`
	DriverID        string    `json:"driver_id"`
	Location        GeoPoint  `json:"location"`
	DeviationMeters float64   `json:"deviation_meters"`
	Timestamp       time.Time `json:"timestamp"`
	Envelope
}

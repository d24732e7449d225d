package contracts

import "time"

// HotspotAssignedMessage is published by Hotspot Service when a driver is
// handed a new hotspot route.
// Routing key: "hotspot.assigned.{driver_id}" on ExchangeHotspotTopic.
type HotspotAssignedMessage struct {
	AssignmentID   string    `json:"assignment_id"`
	DriverID       string    `json:"driver_id"`
	OrderID        string    `json:"order_id,omitempty"`
	Start          GeoPoint  `json:"start"`
	Hotspot        GeoPoint  `json:"hotspot"`
	DistanceMeters int       `json:"distance_meters"`
	DurationSecs   int       `json:"duration_seconds"`
	Timestamp      time.Time `json:"timestamp"`
	Envelope
}

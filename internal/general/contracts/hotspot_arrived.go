package contracts

import "time"

// HotspotArrivedMessage is published by Hotspot Service when a tracked
// driver closes within the arrival threshold of the assigned hotspot.
// Routing key: "hotspot.arrived.{driver_id}" on ExchangeHotspotTopic.
type HotspotArrivedMessage struct {
	AssignmentID string    `json:"assignment_id"`
	DriverID     string    `json:"driver_id"`
	Location     GeoPoint  `json:"location"`
	Timestamp    time.Time `json:"timestamp"`
	Envelope
}

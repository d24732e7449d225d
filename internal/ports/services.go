package ports

import (
	"context"

	"fleet-track/internal/domain/hotspot"
)

// ----- DTOs for the Hotspot Service -----

// RequestHotspotInput is the validated input for POST /drivers/{driver_id}/hotspot.
type RequestHotspotInput struct {
	DriverID  string  // from path
	Latitude  float64 // from body
	Longitude float64 // from body
}

// HotspotPoint is the recommended pickup location returned to the client.
type HotspotPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// RequestHotspotResult is returned by HotspotService.RequestHotspot().
// Found=false means ranking produced no nearby hotspot; that is a normal
// outcome, not an error.
type RequestHotspotResult struct {
	Found        bool               `json:"found"`
	AssignmentID string             `json:"assignment_id,omitempty"`
	OrderID      string             `json:"order_id,omitempty"`
	Hotspot      *HotspotPoint      `json:"hotspot,omitempty"`
	Route        *hotspot.RoutePlan `json:"route,omitempty"`
}

// TripTakenInput marks the driver's current assignment as converted to a trip.
type TripTakenInput struct {
	DriverID     string
	AssignmentID string
}

// TripTakenResult reports whether this call performed the flip.
type TripTakenResult struct {
	AssignmentID string `json:"assignment_id"`
	Updated      bool   `json:"updated"`
}

// ----- Service interfaces -----

// HotspotService exposes the boundary for hotspot assignment.
type HotspotService interface {
	RequestHotspot(ctx context.Context, in RequestHotspotInput) (RequestHotspotResult, error)
	MarkTripTaken(ctx context.Context, in TripTakenInput) (TripTakenResult, error)
}

// RoutePlanner converts an origin and destination into a routable path via
// the external routing provider. Implementations must bound the outbound
// call with the context deadline. A provider response without a usable route
// surfaces as hotspot.ErrRouteUnavailable.
type RoutePlanner interface {
	PlanRoute(ctx context.Context, originLat, originLng, destLat, destLng float64) (*hotspot.RoutePlan, error)
}

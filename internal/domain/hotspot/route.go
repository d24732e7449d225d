package hotspot

import "fleet-track/internal/domain/geo"

// RouteStep is one turn-by-turn instruction of a planned route.
type RouteStep struct {
	Start           geo.Point   `json:"start_location"`
	End             geo.Point   `json:"end_location"`
	DistanceMeters  int         `json:"distance_meters"`
	DurationSeconds int         `json:"duration_seconds"`
	Instruction     string      `json:"instruction"`
	Polyline        string      `json:"polyline"`
	Path            []geo.Point `json:"navigation"`
}

// RoutePlan is the routable path returned by the routing provider: overview
// geometry plus the ordered step list, with display texts for the client.
type RoutePlan struct {
	Start            geo.Point   `json:"start"`
	End              geo.Point   `json:"end"`
	DistanceMeters   int         `json:"distance_meters"`
	DistanceText     string      `json:"distance_text"`
	DurationSeconds  int         `json:"duration_seconds"`
	DurationText     string      `json:"duration_text"`
	OverviewPolyline string      `json:"overview_polyline"`
	Overview         []geo.Point `json:"overview_navigation"`
	Steps            []RouteStep `json:"navigation"`
}

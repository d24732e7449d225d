package hotspot

import (
	"strings"
	"time"

	"fleet-track/internal/domain/geo"
)

// Assignment is the persisted record of a planned route from a driver to a
// chosen hotspot (the `hotspot_assignments` table). Created when a route is
// planned; mutated only by the tracking session (arrival) or the trip-start
// flow (trip acceptance); never deleted, only superseded.
type Assignment struct {
	ID        string
	DriverID  string
	CreatedAt time.Time

	Start geo.Point
	End   geo.Point

	RouteDistanceMeters int
	RouteDistanceText   string
	RouteDurationSecs   int
	RouteDurationText   string
	OverviewPolyline    string      // encoded provider polyline, persisted verbatim
	Overview            []geo.Point // decoded overview geometry

	OrderID *string // historical order that produced the hotspot, if any

	Reached     bool
	ReachedAt   *time.Time
	TripTaken   bool
	TripTakenAt *time.Time
}

// NewAssignment builds an unsaved assignment from a planned route.
func NewAssignment(driverID string, plan *RoutePlan, orderID *string) (*Assignment, error) {
	if strings.TrimSpace(driverID) == "" {
		return nil, ErrEmptyDriverID
	}
	if plan == nil {
		return nil, ErrNilRoutePlan
	}
	if err := geo.ValidatePath(plan.Overview); err != nil {
		return nil, err
	}

	return &Assignment{
		DriverID:            strings.TrimSpace(driverID),
		CreatedAt:           time.Now().UTC(),
		Start:               plan.Start,
		End:                 plan.End,
		RouteDistanceMeters: plan.DistanceMeters,
		RouteDistanceText:   plan.DistanceText,
		RouteDurationSecs:   plan.DurationSeconds,
		RouteDurationText:   plan.DurationText,
		OverviewPolyline:    plan.OverviewPolyline,
		Overview:            plan.Overview,
		OrderID:             orderID,
	}, nil
}

// TerminalAt returns the timestamp the cool-down window is measured from:
// trip completion when a trip was taken, otherwise the arrival time, and the
// creation time while the assignment is still unresolved.
func (a *Assignment) TerminalAt() time.Time {
	if a.TripTaken && a.TripTakenAt != nil {
		return *a.TripTakenAt
	}
	if a.ReachedAt != nil {
		return *a.ReachedAt
	}
	return a.CreatedAt
}

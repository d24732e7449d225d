package hotspot

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrRouteUnavailable means the routing provider returned no usable
	// route. During initial planning this aborts the request; during an
	// in-session reroute it degrades to an off-route warning.
	ErrRouteUnavailable = errors.New("routing provider returned no route")

	ErrEmptyDriverID = errors.New("driver id cannot be empty")
	ErrNilRoutePlan  = errors.New("route plan cannot be nil")

	// ErrAssignmentNotFound is returned by repositories when no row matches.
	ErrAssignmentNotFound = errors.New("assignment not found")
)

// CoolDownError is the user-facing rejection of a hotspot request made while
// the driver's previous assignment is still inside its cool-down window. It
// carries the remaining wait so callers can present a retry hint.
type CoolDownError struct {
	Remaining time.Duration
}

func (e *CoolDownError) Error() string {
	return fmt.Sprintf("%d mins", e.RemainingMinutes())
}

// RemainingMinutes is the whole minutes left to wait.
func (e *CoolDownError) RemainingMinutes() int {
	return int(e.Remaining.Minutes())
}

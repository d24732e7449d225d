package ports

import (
	"context"
	"time"

	"fleet-track/internal/domain/hotspot"
)

// UnitOfWork interface is used to manage transactions across multiple repository operations.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// AssignmentRepository defines the methods for managing hotspot assignment data.
type AssignmentRepository interface {
	Create(ctx context.Context, a *hotspot.Assignment) error
	GetByID(ctx context.Context, id string) (*hotspot.Assignment, error)
	LatestForDriver(ctx context.Context, driverID string) (*hotspot.Assignment, error)
	// OccupiedOrderIDs lists order ids referenced by assignments created
	// since the given time; those candidates are claimed elsewhere and
	// must be excluded from ranking.
	OccupiedOrderIDs(ctx context.Context, since time.Time) ([]string, error)
	// MarkReached flips reached=false -> true and stamps reached_at.
	// Returns false when the flag was already set (idempotent arrival).
	MarkReached(ctx context.Context, id string, at time.Time) (bool, error)
	// MarkTripTaken flips trip_taken=false -> true and stamps trip_taken_at.
	// Conditional update: returns false when another writer got there first.
	MarkTripTaken(ctx context.Context, id string, at time.Time) (bool, error)
}

// DeviationLogRepository appends re-route audit events. Pure append; safe to
// call concurrently across independent tracking sessions.
type DeviationLogRepository interface {
	Append(ctx context.Context, e *hotspot.DeviationEvent) error
}

// CandidateSource is the read-only view over the periodically refreshed
// historical order table. The snapshot refresh is owned by an external
// process; a stale snapshot is acceptable and callers never block on refresh.
type CandidateSource interface {
	Snapshot(ctx context.Context) ([]hotspot.CandidateRecord, error)
}

// CooldownCache is a best-effort cache of each driver's most recent terminal
// assignment timestamp. A miss falls back to the assignment repository; cache
// failures are logged and ignored.
type CooldownCache interface {
	// RemainingCooldown returns the time left in the driver's cool-down
	// window, or 0 when none is cached.
	RemainingCooldown(ctx context.Context, driverID string) (time.Duration, error)
	// StartCooldown records a terminal event for the driver with the
	// cool-down window as TTL.
	StartCooldown(ctx context.Context, driverID string, window time.Duration) error
}

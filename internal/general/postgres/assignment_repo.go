package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"fleet-track/internal/domain/geo"
	"fleet-track/internal/domain/hotspot"
	"fleet-track/internal/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// AssignmentRepo persists hotspot assignments using pgx and plain SQL.
type AssignmentRepo struct{}

// NewAssignmentRepo constructs a new AssignmentRepo.
func NewAssignmentRepo() ports.AssignmentRepository {
	return &AssignmentRepo{}
}

// Create inserts a new hotspot_assignments row. The decoded route geometry is
// stored as JSONB next to the raw provider polyline.
func (repo *AssignmentRepo) Create(ctx context.Context, a *hotspot.Assignment) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	overview, err := json.Marshal(a.Overview)
	if err != nil {
		return fmt.Errorf("marshal overview path: %w", err)
	}

	if a.ID == "" {
		a.ID = uuid.NewString()
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO hotspot_assignments (
			id, driver_id, order_id,
			start_lat, start_lng, end_lat, end_lng,
			route_distance_meters, route_distance_text,
			route_duration_seconds, route_duration_text,
			overview_polyline, overview_path
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13::jsonb)
		RETURNING created_at
	`,
		a.ID,
		a.DriverID,
		a.OrderID,
		a.Start.Lat,
		a.Start.Lng,
		a.End.Lat,
		a.End.Lng,
		a.RouteDistanceMeters,
		a.RouteDistanceText,
		a.RouteDurationSecs,
		a.RouteDurationText,
		a.OverviewPolyline,
		string(overview),
	).Scan(&a.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert assignment: %w", err)
	}

	return nil
}

// GetByID fetches an assignment by primary key (uuid).
func (repo *AssignmentRepo) GetByID(ctx context.Context, id string) (*hotspot.Assignment, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	row := tx.QueryRow(ctx, selectAssignment+` WHERE id = $1`, id)
	return scanAssignment(row)
}

// LatestForDriver returns the driver's most recent assignment, or
// ErrAssignmentNotFound when the driver has none.
func (repo *AssignmentRepo) LatestForDriver(ctx context.Context, driverID string) (*hotspot.Assignment, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	row := tx.QueryRow(ctx, selectAssignment+`
		WHERE driver_id = $1
		ORDER BY created_at DESC
		LIMIT 1`, driverID)
	return scanAssignment(row)
}

// OccupiedOrderIDs lists order ids referenced by assignments created since
// the given time.
func (repo *AssignmentRepo) OccupiedOrderIDs(ctx context.Context, since time.Time) ([]string, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `
		SELECT DISTINCT order_id
		FROM hotspot_assignments
		WHERE order_id IS NOT NULL AND created_at >= $1
	`, since)
	if err != nil {
		return nil, fmt.Errorf("query occupied order ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan order id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return ids, nil
}

// MarkReached flips reached=false -> true and stamps reached_at. The update
// is conditional so a second arrival report is a no-op.
func (repo *AssignmentRepo) MarkReached(ctx context.Context, id string, at time.Time) (bool, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return false, err
	}

	tag, err := tx.Exec(ctx, `
		UPDATE hotspot_assignments
		SET reached = TRUE, reached_at = $2
		WHERE id = $1 AND reached = FALSE
	`, id, at)
	if err != nil {
		return false, fmt.Errorf("mark reached: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// MarkTripTaken flips trip_taken=false -> true and stamps trip_taken_at.
func (repo *AssignmentRepo) MarkTripTaken(ctx context.Context, id string, at time.Time) (bool, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return false, err
	}

	tag, err := tx.Exec(ctx, `
		UPDATE hotspot_assignments
		SET trip_taken = TRUE, trip_taken_at = $2
		WHERE id = $1 AND trip_taken = FALSE
	`, id, at)
	if err != nil {
		return false, fmt.Errorf("mark trip taken: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

const selectAssignment = `
	SELECT id, driver_id, order_id, created_at,
	       start_lat, start_lng, end_lat, end_lng,
	       route_distance_meters, route_distance_text,
	       route_duration_seconds, route_duration_text,
	       overview_polyline, overview_path,
	       reached, reached_at, trip_taken, trip_taken_at
	FROM hotspot_assignments`

func scanAssignment(row pgx.Row) (*hotspot.Assignment, error) {
	var a hotspot.Assignment
	var overview []byte

	err := row.Scan(
		&a.ID, &a.DriverID, &a.OrderID, &a.CreatedAt,
		&a.Start.Lat, &a.Start.Lng, &a.End.Lat, &a.End.Lng,
		&a.RouteDistanceMeters, &a.RouteDistanceText,
		&a.RouteDurationSecs, &a.RouteDurationText,
		&a.OverviewPolyline, &overview,
		&a.Reached, &a.ReachedAt, &a.TripTaken, &a.TripTakenAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, hotspot.ErrAssignmentNotFound
		}
		return nil, fmt.Errorf("scan assignment: %w", err)
	}

	if len(overview) > 0 {
		if err := json.Unmarshal(overview, &a.Overview); err != nil {
			return nil, fmt.Errorf("unmarshal overview path: %w", err)
		}
	}
	// keep a usable path even if the stored JSON was empty
	if a.Overview == nil {
		a.Overview = []geo.Point{}
	}

	return &a, nil
}

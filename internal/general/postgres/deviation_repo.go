package postgres

import (
	"context"
	"fmt"

	"fleet-track/internal/domain/hotspot"
	"fleet-track/internal/ports"

	"github.com/google/uuid"
)

// DeviationLogRepo persists route deviation events using pgx and plain SQL.
type DeviationLogRepo struct{}

// NewDeviationLogRepo constructs a new DeviationLogRepo.
func NewDeviationLogRepo() ports.DeviationLogRepository {
	return &DeviationLogRepo{}
}

// Append inserts a new route_deviations row.
func (repo *DeviationLogRepo) Append(ctx context.Context, e *hotspot.DeviationEvent) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	if e.ID == "" {
		e.ID = uuid.NewString()
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO route_deviations (id, driver_id, assignment_id, deviated_lat, deviated_lng, deviation_meters)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`,
		e.ID,
		e.DriverID,
		e.AssignmentID,
		e.DeviatedLat,
		e.DeviatedLng,
		e.DeviationMeters,
	).Scan(&e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert deviation: %w", err)
	}

	return nil
}

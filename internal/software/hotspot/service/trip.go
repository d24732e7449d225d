package service

import (
	"context"
	"time"

	"fleet-track/internal/domain/hotspot"
	"fleet-track/internal/ports"
)

// MarkTripTaken records that the driver converted the assignment into a trip.
// The flip is conditional, so replays and racing callers see Updated=false
// instead of an error. A successful flip restarts the cool-down clock.
func (service *hotspotService) MarkTripTaken(ctx context.Context, in ports.TripTakenInput) (ports.TripTakenResult, error) {
	if in.DriverID == "" {
		return ports.TripTakenResult{}, hotspot.ErrEmptyDriverID
	}

	now := time.Now().UTC()
	var updated bool

	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		assignment, err := service.assignments.GetByID(txCtx, in.AssignmentID)
		if err != nil {
			return err
		}
		if assignment.DriverID != in.DriverID {
			return hotspot.ErrAssignmentNotFound
		}

		updated, err = service.assignments.MarkTripTaken(txCtx, in.AssignmentID, now)
		return err
	})
	if err != nil {
		service.logger.Error(ctx, "trip_taken_failed", "Failed to mark assignment trip as taken", err, map[string]any{
			"driver_id":     in.DriverID,
			"assignment_id": in.AssignmentID,
		})
		return ports.TripTakenResult{}, err
	}

	if updated {
		window := time.Duration(service.cfg.CoolDownMinutes) * time.Minute
		if err := service.cooldown.StartCooldown(ctx, in.DriverID, window); err != nil {
			service.logger.Error(ctx, "cooldown_start_failed", "Failed to record cool-down in cache", err, map[string]any{
				"driver_id": in.DriverID,
			})
		}
		service.logger.Info(ctx, "trip_taken", "Assignment converted to trip", map[string]any{
			"driver_id":     in.DriverID,
			"assignment_id": in.AssignmentID,
		})
	}

	return ports.TripTakenResult{AssignmentID: in.AssignmentID, Updated: updated}, nil
}

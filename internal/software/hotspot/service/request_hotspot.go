package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fleet-track/internal/domain/geo"
	"fleet-track/internal/domain/hotspot"
	"fleet-track/internal/general/contracts"
	"fleet-track/internal/ports"
)

// RequestHotspot ranks the historical candidates around the driver, plans a
// route to the best one, and persists the resulting assignment.
func (service *hotspotService) RequestHotspot(ctx context.Context, in ports.RequestHotspotInput) (ports.RequestHotspotResult, error) {
	var correlationID = generateCorrelationID()

	if in.DriverID == "" {
		return ports.RequestHotspotResult{}, hotspot.ErrEmptyDriverID
	}
	origin := geo.Point{Lat: in.Latitude, Lng: in.Longitude}
	if err := origin.Validate(); err != nil {
		return ports.RequestHotspotResult{}, err
	}

	// fast path: the cache remembers the driver's last terminal event
	if remaining, err := service.cooldown.RemainingCooldown(ctx, in.DriverID); err != nil {
		service.logger.Error(ctx, "cooldown_cache_unavailable", "Cool-down cache lookup failed, falling back to database", err, map[string]any{
			"driver_id":  in.DriverID,
			"request_id": correlationID,
		})
	} else if remaining > 0 {
		return ports.RequestHotspotResult{}, &hotspot.CoolDownError{Remaining: remaining}
	}

	window := time.Duration(service.cfg.CoolDownMinutes) * time.Minute
	now := time.Now().UTC()

	var (
		ranked   []hotspot.ScoredCandidate
		hasPrior bool
	)

	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		// authoritative cool-down check against the latest assignment
		latest, err := service.assignments.LatestForDriver(txCtx, in.DriverID)
		if err != nil && !errors.Is(err, hotspot.ErrAssignmentNotFound) {
			return err
		}
		if latest != nil {
			hasPrior = true
			if since := now.Sub(latest.TerminalAt()); since < window {
				return &hotspot.CoolDownError{Remaining: window - since}
			}
		}

		// candidates claimed by other drivers within the last hour are off the table
		occupiedIDs, err := service.assignments.OccupiedOrderIDs(txCtx, now.Add(-time.Hour))
		if err != nil {
			return err
		}
		occupied := make(map[string]struct{}, len(occupiedIDs))
		for _, id := range occupiedIDs {
			occupied[id] = struct{}{}
		}

		records, err := service.candidates.Snapshot(txCtx)
		if err != nil {
			return err
		}

		q := rankQuery{
			Lat:        in.Latitude,
			Lng:        in.Longitude,
			Now:        now,
			RadiusKm:   service.cfg.RadiusKm,
			OverloadKm: service.cfg.OverloadKm,
			Occupied:   occupied,
			Weights:    WeightsFromConfig(service.cfg),
		}
		// a driver with a prior assignment gets an exclusion ring so the
		// next hotspot is not the spot they are already standing on
		if hasPrior {
			q.ExclusionKm = service.cfg.CoolDownExclusionKm
		}

		ranked = rank(records, q)
		return nil
	})
	if err != nil {
		var cde *hotspot.CoolDownError
		if !errors.As(err, &cde) {
			service.logger.Error(ctx, "hotspot_ranking_failed", "Failed to rank hotspot candidates", err, map[string]any{
				"driver_id":  in.DriverID,
				"request_id": correlationID,
			})
		}
		return ports.RequestHotspotResult{}, err
	}

	if len(ranked) == 0 {
		service.logger.Info(ctx, "hotspot_not_found", "No hotspot candidates near driver", map[string]any{
			"driver_id":  in.DriverID,
			"lat":        in.Latitude,
			"lng":        in.Longitude,
			"request_id": correlationID,
		})
		return ports.RequestHotspotResult{Found: false}, nil
	}

	best := ranked[0]

	// plan the route before touching the database; a provider failure
	// aborts the request and no assignment row is written
	plan, err := service.planner.PlanRoute(ctx, in.Latitude, in.Longitude, best.PickupLat, best.PickupLng)
	if err != nil {
		service.logger.Error(ctx, "route_plan_failed", "Failed to plan route to hotspot", err, map[string]any{
			"driver_id":  in.DriverID,
			"order_id":   best.OrderID,
			"request_id": correlationID,
		})
		return ports.RequestHotspotResult{}, err
	}

	orderID := best.OrderID
	assignment, err := hotspot.NewAssignment(in.DriverID, plan, &orderID)
	if err != nil {
		return ports.RequestHotspotResult{}, err
	}

	err = service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		return service.assignments.Create(txCtx, assignment)
	})
	if err != nil {
		service.logger.Error(ctx, "assignment_persist_failed", "Failed to persist hotspot assignment", err, map[string]any{
			"driver_id":  in.DriverID,
			"request_id": correlationID,
		})
		return ports.RequestHotspotResult{}, err
	}

	// announce the assignment; a broker hiccup must not fail the request
	msg := contracts.HotspotAssignedMessage{
		AssignmentID:   assignment.ID,
		DriverID:       assignment.DriverID,
		OrderID:        orderID,
		Start:          contracts.GeoPoint{Lat: plan.Start.Lat, Lng: plan.Start.Lng},
		Hotspot:        contracts.GeoPoint{Lat: plan.End.Lat, Lng: plan.End.Lng},
		DistanceMeters: plan.DistanceMeters,
		DurationSecs:   plan.DurationSeconds,
		Timestamp:      now,
		Envelope: contracts.Envelope{
			CorrelationID: correlationID,
			Producer:      "hotspot-service",
			SentAt:        time.Now().UTC(),
		},
	}
	if err := service.publishAssigned(ctx, msg); err != nil {
		service.logger.Error(ctx, "hotspot_assigned_publish_failed", "Failed to publish hotspot assignment to RabbitMQ", err, map[string]any{
			"assignment_id": assignment.ID,
			"request_id":    correlationID,
		})
	}

	service.logger.Info(ctx, "hotspot_assigned", fmt.Sprintf("Hotspot assigned to driver %s", in.DriverID), map[string]any{
		"assignment_id": assignment.ID,
		"driver_id":     in.DriverID,
		"order_id":      orderID,
		"score":         best.Score,
		"distance_km":   best.DistanceKm,
		"request_id":    correlationID,
	})

	return ports.RequestHotspotResult{
		Found:        true,
		AssignmentID: assignment.ID,
		OrderID:      orderID,
		Hotspot: &ports.HotspotPoint{
			Latitude:  best.PickupLat,
			Longitude: best.PickupLng,
		},
		Route: plan,
	}, nil
}

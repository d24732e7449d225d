package websocket

import (
	"context"
	"fmt"
	"math"
	"time"

	"fleet-track/internal/domain/geo"
	"fleet-track/internal/domain/hotspot"
	"fleet-track/internal/general/contracts"
	"fleet-track/internal/general/logger"
	"fleet-track/internal/general/rabbitmq"
	"fleet-track/internal/ports"

	"github.com/google/uuid"
)

const (
	onRouteThresholdMeters = 80.0
	arrivalThresholdMeters = 30.0
	stallRepeatThreshold   = 15
	rerouteTimeout         = 10 * time.Second

	// ETA assumes urban average speed of 30 km/h = 500 m/min
	etaMetersPerMinute = 500.0
)

// TrackingSession classifies a driver's position reports against the active
// route of one assignment. State is owned by the single connection goroutine
// that feeds HandleReport; nothing here is shared across connections.
type TrackingSession struct {
	logger      *logger.Logger
	uow         ports.UnitOfWork
	assignments ports.AssignmentRepository
	deviations  ports.DeviationLogRepository
	planner     ports.RoutePlanner
	pub         *rabbitmq.MQPublisher
	cooldown    ports.CooldownCache

	cooldownWindow time.Duration

	driverID     string
	assignmentID string
	path         []geo.Point

	prevLat    float64 // rounded to 5 decimals
	prevLng    float64
	hasPrev    bool
	stallCount int
}

// NewTrackingSession creates a session for one driver connection. The active
// path is loaded lazily on the first report.
func NewTrackingSession(
	logger *logger.Logger,
	uow ports.UnitOfWork,
	assignments ports.AssignmentRepository,
	deviations ports.DeviationLogRepository,
	planner ports.RoutePlanner,
	pub *rabbitmq.MQPublisher,
	cooldown ports.CooldownCache,
	cooldownWindow time.Duration,
	driverID string,
) *TrackingSession {
	return &TrackingSession{
		logger:         logger,
		uow:            uow,
		assignments:    assignments,
		deviations:     deviations,
		planner:        planner,
		pub:            pub,
		cooldown:       cooldown,
		cooldownWindow: cooldownWindow,
		driverID:       driverID,
	}
}

// HandleReport processes one inbound position report and returns the status
// frames to send back, in order. done=true means the session is finished
// (arrival) and the connection should close after the frames are written.
func (s *TrackingSession) HandleReport(ctx context.Context, report contracts.WSPositionReport) (frames []contracts.WSTrackingStatus, done bool, err error) {
	// reject out-of-range coordinates before any state changes
	if err := (geo.Point{Lat: report.Lat, Lng: report.Lng}).Validate(); err != nil {
		return nil, false, err
	}
	if err := s.ensurePath(ctx, report.AssignmentID); err != nil {
		return nil, false, err
	}

	// stall detection: identical rounded positions accumulate, any movement
	// resets the counter
	lat5, lng5 := round5(report.Lat), round5(report.Lng)
	if s.hasPrev && lat5 == s.prevLat && lng5 == s.prevLng {
		s.stallCount++
	} else {
		s.prevLat, s.prevLng = lat5, lng5
		s.hasPrev = true
		s.stallCount = 0
	}

	remaining := geo.RemainingDistanceMeters(report.Lat, report.Lng, s.path)
	eta := etaText(remaining)
	dist := distanceText(remaining)

	if s.stallCount >= stallRepeatThreshold {
		s.stallCount = 0
		frames = append(frames, contracts.WSTrackingStatus{
			Status:   "alert",
			Message:  "Vehicle Stopped",
			ETA:      eta,
			Distance: dist,
		})
	}

	destination := s.path[len(s.path)-1]

	// arrival wins over the on-route classification
	if geo.DistanceMeters(report.Lat, report.Lng, destination.Lat, destination.Lng) < arrivalThresholdMeters {
		if err := s.markArrived(ctx, report); err != nil {
			return frames, false, err
		}
		frames = append(frames, contracts.WSTrackingStatus{
			Status:   "success",
			Message:  "You have reached your destination.",
			ETA:      eta,
			Distance: dist,
		})
		return frames, true, nil
	}

	_, nearest := geo.NearestVertexMeters(report.Lat, report.Lng, s.path)
	if nearest < onRouteThresholdMeters {
		frames = append(frames, contracts.WSTrackingStatus{
			Status:   "ok",
			Message:  "On route",
			ETA:      eta,
			Distance: dist,
		})
		return frames, false, nil
	}

	frames = append(frames, s.reroute(ctx, report, destination, nearest, eta, dist))
	return frames, false, nil
}

// ensurePath loads the assignment's persisted overview geometry once per
// session.
func (s *TrackingSession) ensurePath(ctx context.Context, assignmentID string) error {
	if len(s.path) > 0 {
		return nil
	}

	var assignment *hotspot.Assignment
	err := s.uow.WithinTx(ctx, func(txCtx context.Context) error {
		var err error
		assignment, err = s.assignments.GetByID(txCtx, assignmentID)
		return err
	})
	if err != nil {
		return err
	}
	if assignment.DriverID != s.driverID {
		return hotspot.ErrAssignmentNotFound
	}
	if err := geo.ValidatePath(assignment.Overview); err != nil {
		return err
	}

	s.assignmentID = assignmentID
	s.path = assignment.Overview
	return nil
}

// markArrived flips the reached flag (idempotent) and announces the arrival.
func (s *TrackingSession) markArrived(ctx context.Context, report contracts.WSPositionReport) error {
	now := time.Now().UTC()
	var updated bool

	err := s.uow.WithinTx(ctx, func(txCtx context.Context) error {
		var err error
		updated, err = s.assignments.MarkReached(txCtx, s.assignmentID, now)
		return err
	})
	if err != nil {
		return err
	}

	s.logger.Info(ctx, "hotspot_reached", "Driver reached the assigned hotspot", map[string]any{
		"driver_id":     s.driverID,
		"assignment_id": s.assignmentID,
		"first_report":  updated,
	})

	if !updated {
		return nil
	}

	// arrival opens the same request window that taking the trip does
	if s.cooldown != nil {
		if err := s.cooldown.StartCooldown(ctx, s.driverID, s.cooldownWindow); err != nil {
			s.logger.Error(ctx, "cooldown_start_failed", "Failed to record cool-down in cache", err, map[string]any{
				"driver_id": s.driverID,
			})
		}
	}

	msg := contracts.HotspotArrivedMessage{
		AssignmentID: s.assignmentID,
		DriverID:     s.driverID,
		Location:     contracts.GeoPoint{Lat: report.Lat, Lng: report.Lng},
		Timestamp:    now,
		Envelope: contracts.Envelope{
			CorrelationID: uuid.NewString(),
			Producer:      "hotspot-service",
			SentAt:        now,
		},
	}
	if err := s.publish(contracts.ExchangeHotspotTopic, contracts.RouteHotspotArrivedPrefix+s.driverID, msg); err != nil {
		s.logger.Error(ctx, "hotspot_arrived_publish_failed", "Failed to publish arrival to RabbitMQ", err, map[string]any{
			"assignment_id": s.assignmentID,
		})
	}

	return nil
}

// reroute asks the planner for a fresh route from the current position to the
// original destination. On success the deviation is logged and the active
// path replaced; on failure the old path stays active and the driver gets a
// warning.
func (s *TrackingSession) reroute(ctx context.Context, report contracts.WSPositionReport, destination geo.Point, deviationMeters float64, oldETA, oldDist string) contracts.WSTrackingStatus {
	planCtx, cancel := context.WithTimeout(ctx, rerouteTimeout)
	defer cancel()

	plan, err := s.planner.PlanRoute(planCtx, report.Lat, report.Lng, destination.Lat, destination.Lng)
	if err != nil {
		s.logger.Error(ctx, "reroute_failed", "Failed to plan replacement route", err, map[string]any{
			"driver_id":     s.driverID,
			"assignment_id": s.assignmentID,
		})
		return contracts.WSTrackingStatus{
			Status:   "warning",
			Message:  "Off route! Please return to the navigation path.",
			ETA:      oldETA,
			Distance: oldDist,
		}
	}

	event := &hotspot.DeviationEvent{
		DriverID:        s.driverID,
		AssignmentID:    s.assignmentID,
		DeviatedLat:     report.Lat,
		DeviatedLng:     report.Lng,
		DeviationMeters: deviationMeters,
	}
	err = s.uow.WithinTx(ctx, func(txCtx context.Context) error {
		return s.deviations.Append(txCtx, event)
	})
	if err != nil {
		s.logger.Error(ctx, "deviation_log_failed", "Failed to persist deviation event", err, map[string]any{
			"driver_id":     s.driverID,
			"assignment_id": s.assignmentID,
		})
	}

	msg := contracts.DeviationMessage{
		AssignmentID:    s.assignmentID,
		DriverID:        s.driverID,
		Location:        contracts.GeoPoint{Lat: report.Lat, Lng: report.Lng},
		DeviationMeters: deviationMeters,
		Timestamp:       time.Now().UTC(),
		Envelope: contracts.Envelope{
			CorrelationID: uuid.NewString(),
			Producer:      "hotspot-service",
			SentAt:        time.Now().UTC(),
		},
	}
	if err := s.publish(contracts.ExchangeDeviationFanout, "", msg); err != nil {
		s.logger.Error(ctx, "deviation_publish_failed", "Failed to publish deviation to RabbitMQ", err, map[string]any{
			"assignment_id": s.assignmentID,
		})
	}

	// the next report is evaluated against the replacement path
	s.path = plan.Overview

	polyline := make([]contracts.GeoPoint, 0, len(plan.Overview))
	for _, p := range plan.Overview {
		polyline = append(polyline, contracts.GeoPoint{Lat: p.Lat, Lng: p.Lng})
	}

	return contracts.WSTrackingStatus{
		Status:   "route changed",
		Message:  "Rerouting...",
		ETA:      plan.DurationText,
		Distance: distanceText(float64(plan.DistanceMeters)),
		Polyline: polyline,
	}
}

func (s *TrackingSession) publish(exchange, routingKey string, msg any) error {
	if s.pub == nil {
		return nil
	}
	return s.pub.PublishJSON(exchange, routingKey, msg)
}

func etaText(remainingMeters float64) string {
	return fmt.Sprintf("%.2f mins", remainingMeters/etaMetersPerMinute)
}

func distanceText(remainingMeters float64) string {
	return fmt.Sprintf("%.2f km", remainingMeters/1000.0)
}

func round5(v float64) float64 {
	return math.Round(v*1e5) / 1e5
}

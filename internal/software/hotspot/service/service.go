package service

import (
	"fleet-track/internal/general/config"
	"fleet-track/internal/general/logger"
	"fleet-track/internal/general/rabbitmq"
	"fleet-track/internal/ports"
)

// Service encapsulates the hotspot assignment logic and dependencies.
type hotspotService struct {
	logger      *logger.Logger
	cfg         config.HotspotConfig
	uow         ports.UnitOfWork
	assignments ports.AssignmentRepository
	candidates  ports.CandidateSource
	cooldown    ports.CooldownCache
	planner     ports.RoutePlanner
	pub         *rabbitmq.MQPublisher
}

// NewHotspotService creates a new instance of the HotspotService with the provided dependencies.
func NewHotspotService(
	logger *logger.Logger,
	cfg config.HotspotConfig,
	uow ports.UnitOfWork,
	assignments ports.AssignmentRepository,
	candidates ports.CandidateSource,
	cooldown ports.CooldownCache,
	planner ports.RoutePlanner,
	pub *rabbitmq.MQPublisher,
) ports.HotspotService {
	return &hotspotService{
		logger:      logger,
		cfg:         cfg,
		uow:         uow,
		assignments: assignments,
		candidates:  candidates,
		cooldown:    cooldown,
		planner:     planner,
		pub:         pub,
	}
}

package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"fleet-track/internal/general/contracts"
)

// generateCorrelationID creates a simple correlation ID for tracing requests.
func generateCorrelationID() string {
	var b [3]byte // 6 hex chars
	_, _ = rand.Read(b[:])
	ts := time.Now().UTC().Format("20060102T150405") // e.g., 20251028T184523
	return "req_" + ts + "_" + hex.EncodeToString(b[:])
}

// publishAssigned sends a hotspot assignment to the hotspot topic exchange
// using routing key hotspot.assigned.{driver_id}.
func (service *hotspotService) publishAssigned(ctx context.Context, msg contracts.HotspotAssignedMessage) error {
	routingKey := contracts.RouteHotspotAssignedPrefix + msg.DriverID

	if err := service.pub.PublishJSON(contracts.ExchangeHotspotTopic, routingKey, msg); err != nil {
		return err
	}

	service.logger.Info(ctx, "hotspot_assigned_published", "Published hotspot assignment to RabbitMQ", map[string]any{
		"routing_key": routingKey,
	})

	return nil
}

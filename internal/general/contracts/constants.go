package contracts

// Exchanges
const (
	ExchangeHotspotTopic    = "hotspot_topic"
	ExchangeDeviationFanout = "deviation_fanout"
)

// Queues
const (
	QueueHotspotAssigned = "hotspot_assigned"
	QueueHotspotArrivals = "hotspot_arrivals"
	QueueDeviationAudit  = "deviation_audit"
)

// Routing patterns
const (
	RouteHotspotAssignedPrefix = "hotspot.assigned." // {driver_id}
	RouteHotspotArrivedPrefix  = "hotspot.arrived."  // {driver_id}
)

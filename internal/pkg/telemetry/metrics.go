package telemetry

// SLI metric names used for instrumentation.
const (
	// Latency
	MetricAPILatencyP50 = "api.latency.p50"
	MetricAPILatencyP95 = "api.latency.p95"
	MetricAPILatencyP99 = "api.latency.p99"

	// Throughput
	MetricRequestsPerSec = "api.requests_per_second"

	// Map freshness
	MetricMarkerLag    = "map.marker_reconcile_lag"
	MetricSessionCount = "map.active_sessions"

	// Availability
	MetricUptime = "service.uptime_percentage"

	// Business
	MetricSightings = "business.sightings_reported"
	MetricAdoptions = "business.adoptions_recorded"
)

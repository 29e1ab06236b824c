// Package observability provides structured logging, Prometheus metrics, and
// health probes for the basecamp service.
//
// The Logger wraps stdlib slog with field chaining and context propagation.
// Metrics covers HTTP traffic, permission-gate decisions, identity directory
// round trips, and cache effectiveness. HealthChecker serves liveness and
// readiness endpoints for the orchestrator.
package observability

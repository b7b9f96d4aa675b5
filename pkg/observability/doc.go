// Package observability provides structured logging, Prometheus metrics,
// optional OpenTelemetry export, and graceful shutdown for the service.
package observability

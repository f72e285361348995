// Package observe provides telemetry for tool execution: OpenTelemetry
// tracing and metrics, and a structured JSON logger.
//
// The execution engine consumes the write-only Metrics interface for its
// counters (calls, retries, cache hits, errors, breaker opens), latency
// histogram, and breaker-state gauge. Observer wires real exporters;
// no-op implementations keep telemetry optional.
package observe

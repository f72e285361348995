// Package health reports the operational state of the execution layer.
//
// The central signal is circuit breaker state: a closed breaker means
// the tool's backend is reachable, half-open means it is recovering,
// and open means calls are being refused. BreakerChecker translates
// those states into health statuses that aggregate with any other
// registered checks.
//
// # Basic Usage
//
//	engine := exec.NewEngine()
//	// ... register tools ...
//
//	agg := health.NewAggregator()
//	agg.Register("breakers", health.NewBreakerChecker(engine))
//
//	results := agg.CheckAll(ctx)
//	overall := agg.OverallStatus(results)
//
// # HTTP Endpoints
//
//	mux := http.NewServeMux()
//	health.RegisterHandlers(mux, agg)
//	// GET /healthz  liveness
//	// GET /readyz   readiness (503 when any breaker is open)
//	// GET /health   detailed JSON per check
package health

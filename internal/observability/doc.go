// Package observability provides logging and metrics support for the price
// comparison service.
//
// # Logging
//
// Create a logger from configuration:
//
//	logger := observability.NewLogger(observability.LoggingConfig{
//	    Level:  "info",
//	    Format: "json",
//	    Output: "stdout",
//	})
//
// Attach search or pharmacy fields to a sub-logger:
//
//	logger = observability.WithSearchContext(logger, searchID, "Dolo 650")
//	logger = observability.WithSourceContext(logger, "netmeds")
//
// # Metrics
//
// Metrics are registered with the default Prometheus registry and served
// by the metrics listener in cmd/server:
//
//	metrics := observability.NewMetrics("price_compare")
//	metrics.RecordSourceResult("apollo", "timed_out", 0, 90)
//
// A nil *Metrics records nothing, which keeps CLI and test wiring simple.
//
// # Context
//
// Request, search and user ids travel on context.Context through
// WithRequestID, WithSearchID and WithUserID.
package observability

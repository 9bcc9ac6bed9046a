package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// RPCCalls counts node JSON-RPC calls by method and outcome.
	RPCCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sui_rpc_calls_total",
			Help: "Total number of Sui JSON-RPC calls.",
		},
		[]string{"method", "status"},
	)

	// RPCDuration observes node JSON-RPC call latency per method.
	RPCDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sui_rpc_call_duration_seconds",
			Help:    "Latency of Sui JSON-RPC calls.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// PriceSourceAttempts counts external price/supply source attempts by
	// source and outcome.
	PriceSourceAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "price_source_attempts_total",
			Help: "Total attempts against external price/supply sources.",
		},
		[]string{"source", "status"},
	)

	// ScanEntries counts container entries examined per protocol, split by
	// whether the target marker matched.
	ScanEntries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scan_entries_total",
			Help: "Container entries examined during protocol scans.",
		},
		[]string{"protocol", "matched"},
	)
)

// MustRegisterMetrics registers all collectors with the default registry.
// Call once at startup before serving /metrics.
func MustRegisterMetrics() {
	prometheus.MustRegister(
		RPCCalls,
		RPCDuration,
		PriceSourceAttempts,
		ScanEntries,
	)
}

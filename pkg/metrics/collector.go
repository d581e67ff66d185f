// Package metrics registers the ledger's Prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	operationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_operations_total",
			Help: "Total number of ledger operations labeled by operation and status",
		},
		[]string{"operation", "status"},
	)
	operationDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ledger_operation_duration_seconds",
			Help:    "Duration of ledger operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
	amountTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_amount_total",
			Help: "Total balance units moved, split by transaction kind",
		},
		[]string{"kind"},
	)
	compensationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_compensations_total",
			Help: "Number of compensating rollbacks executed per operation",
		},
		[]string{"operation"},
	)
	grpcRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_grpc_requests_total",
			Help: "Total number of gRPC requests labeled by method and status code",
		},
		[]string{"method", "code"},
	)
	accountsGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ledger_accounts",
			Help: "Number of accounts in the ledger",
		},
	)
)

// RecordOperation increments operation counters and records duration.
func RecordOperation(operation, status string, duration time.Duration) {
	if operation == "" {
		operation = "unknown"
	}
	if status == "" {
		status = "unknown"
	}

	operationsTotal.WithLabelValues(operation, status).Inc()
	operationDurationSeconds.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordAmount adds the committed balance delta of a transaction kind.
func RecordAmount(kind string, amount uint64) {
	amountTotal.WithLabelValues(kind).Add(float64(amount))
}

// RecordCompensation counts a compensating rollback.
func RecordCompensation(operation string) {
	compensationsTotal.WithLabelValues(operation).Inc()
}

// RecordGRPCRequest counts a finished RPC.
func RecordGRPCRequest(method, code string) {
	grpcRequestsTotal.WithLabelValues(method, code).Inc()
}

// SetAccounts updates the account gauge.
func SetAccounts(count int) {
	accountsGauge.Set(float64(count))
}

// IncAccounts counts a newly created account.
func IncAccounts() {
	accountsGauge.Inc()
}

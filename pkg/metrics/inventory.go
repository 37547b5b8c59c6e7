package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "auditmagic"

// Outcome labels for inventory operations.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// InventoryMetrics records counts and latency for store operations and the
// ledger entries they write.
type InventoryMetrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	entries    *prometheus.CounterVec
}

// NewInventoryMetrics registers the inventory metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewInventoryMetrics(reg prometheus.Registerer) *InventoryMetrics {
	if reg == nil {
		return &InventoryMetrics{}
	}
	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "inventory",
		Name:      "operations_total",
		Help:      "Inventory operations by outcome.",
	}, []string{"operation", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "inventory",
		Name:      "operation_duration_seconds",
		Help:      "Duration of inventory operations in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})
	entries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "entries_total",
		Help:      "Ledger entries appended by transaction type.",
	}, []string{"type"})
	reg.MustRegister(operations, duration, entries)
	return &InventoryMetrics{
		operations: operations,
		duration:   duration,
		entries:    entries,
	}
}

// Observe records one finished operation. A nil err counts as success.
func (m *InventoryMetrics) Observe(operation string, started time.Time, err error) {
	if m == nil || m.operations == nil {
		return
	}
	op := normalizeLabel(operation)
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	m.operations.WithLabelValues(op, outcome).Inc()
	m.duration.WithLabelValues(op).Observe(time.Since(started).Seconds())
}

// AddLedgerEntries counts n appended entries of the given transaction type.
func (m *InventoryMetrics) AddLedgerEntries(txType string, n int) {
	if m == nil || m.entries == nil || n <= 0 {
		return
	}
	m.entries.WithLabelValues(normalizeLabel(txType)).Add(float64(n))
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}

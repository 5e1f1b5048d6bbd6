// Package metrics exposes Prometheus metrics for the catalog sync.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Record outcomes.
const (
	OutcomeSynced   = "synced"
	OutcomeDeferred = "deferred"
	OutcomeDisabled = "disabled"
	OutcomeSuppress = "suppressed"
	OutcomeFailed   = "failed"
)

var (
	RecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hexim",
			Subsystem: "sync",
			Name:      "records_total",
			Help:      "Source records handled by the batch driver, by outcome",
		},
		[]string{"outcome"},
	)

	BatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "hexim",
			Subsystem: "sync",
			Name:      "batch_duration_seconds",
			Help:      "Duration of one sync batch in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
	)

	LookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hexim",
			Subsystem: "sync",
			Name:      "lookups_total",
			Help:      "Bulk id-mapping lookups issued during preload, by category",
		},
		[]string{"category"},
	)

	DeletesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hexim",
			Subsystem: "sync",
			Name:      "deletes_total",
			Help:      "Relation rows deleted on flush, by relation",
		},
		[]string{"relation"},
	)

	SchemaFieldsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "hexim",
			Subsystem: "sync",
			Name:      "schema_fields_created_total",
			Help:      "Custom fields provisioned for dynamic properties",
		},
	)

	UpsertsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "hexim",
			Subsystem: "sync",
			Name:      "upserts_total",
			Help:      "Product payloads sent to the target system",
		},
	)
)

func RecordOutcome(outcome string) {
	RecordsTotal.WithLabelValues(outcome).Inc()
}

func RecordLookup(category string) {
	LookupsTotal.WithLabelValues(category).Inc()
}

func RecordDeletes(relation string, count int) {
	DeletesTotal.WithLabelValues(relation).Add(float64(count))
}

func RecordUpserts(count int) {
	UpsertsTotal.Add(float64(count))
}

func RecordBatch(durationSeconds float64) {
	BatchDuration.Observe(durationSeconds)
}

// Package metrics provides Prometheus observability metrics for the
// exception analyser: ingestion volume and error counters plus gauges
// describing the last completed run.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry is the custom prometheus registry for our application
var Registry = prometheus.NewRegistry()

// factory allows us to register metrics to our custom Registry directly
var factory = promauto.With(Registry)

// =============================================================================
// INGESTION METRICS
// =============================================================================

// RowsParsedTotal counts rows successfully parsed, by export schema.
var RowsParsedTotal = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "parser",
	Name:      "rows_total",
	Help:      "Total rows successfully parsed, by schema (call-detail or call-quality)",
}, []string{"schema"})

// RowErrorsTotal counts skipped rows by failure reason.
var RowErrorsTotal = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "parser",
	Name:      "row_errors_total",
	Help:      "Total rows skipped due to parse failures, by reason",
}, []string{"reason"})

// FilesSkippedTotal counts input files whose header matched no schema.
var FilesSkippedTotal = factory.NewCounter(prometheus.CounterOpts{
	Namespace: "parser",
	Name:      "files_skipped_total",
	Help:      "Input files skipped because the header matched neither export schema",
})

// ParseDurationSeconds tracks time to read and parse all input files.
var ParseDurationSeconds = factory.NewHistogram(prometheus.HistogramOpts{
	Namespace: "parser",
	Name:      "duration_seconds",
	Help:      "Time taken to read and parse the input files",
	Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
})

// =============================================================================
// CORRELATION & CLASSIFICATION METRICS
// =============================================================================

// OrphanQualityRecords tracks quality records with no matching call.
var OrphanQualityRecords = factory.NewGauge(prometheus.GaugeOpts{
	Namespace: "correlate",
	Name:      "orphan_quality_records",
	Help:      "Quality records whose call identifier matched no call record at finalize",
})

// CallsInWindow tracks calls that survived the date-range filter.
var CallsInWindow = factory.NewGauge(prometheus.GaugeOpts{
	Namespace: "analyser",
	Name:      "calls_in_window",
	Help:      "Correlated calls whose origination time fell inside the report window",
})

// ExceptionGroups tracks classified groups by severity.
var ExceptionGroups = factory.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "analyser",
	Name:      "exception_groups",
	Help:      "Exception groups in the last run, by severity",
}, []string{"severity"})

// ClassifyDurationSeconds tracks time for classification + aggregation.
var ClassifyDurationSeconds = factory.NewHistogram(prometheus.HistogramOpts{
	Namespace: "analyser",
	Name:      "classify_duration_seconds",
	Help:      "Time taken to classify and aggregate the in-window calls",
	Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
})

// =============================================================================
// Helper Functions
// =============================================================================

// ResetRunGauges resets the per-run gauges before a new analysis run.
func ResetRunGauges() {
	OrphanQualityRecords.Set(0)
	CallsInWindow.Set(0)
	ExceptionGroups.Reset()
}

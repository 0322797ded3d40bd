package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "metar_etl"

// Metrics holds the Prometheus counters, histograms, and gauges for the ETL pipeline.
type Metrics struct {
	MessagesConsumed prometheus.Counter
	MessagesProduced prometheus.Counter
	TransformErrors  prometheus.Counter
	PipelineRunning  prometheus.Gauge

	// Batch processing metrics.
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram

	// Report checking metrics.
	ValidationRejections *prometheus.CounterVec // labels: rule
	NilReports           prometheus.Counter

	// Station lookup metrics.
	StationLookupRequests *prometheus.CounterVec // labels: outcome={success,error,empty}
	StationLookupCache    *prometheus.CounterVec // labels: result={hit,miss}
	StationLookupDuration prometheus.Histogram
	StationLookupEnabled  prometheus.Gauge
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		MessagesConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_consumed_total",
			Help:      "Total messages read from the source topic.",
		}),
		MessagesProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_produced_total",
			Help:      "Total messages written to the sink topic.",
		}),
		TransformErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transform_errors_total",
			Help:      "Total reports that could not be parsed or decoded.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 when the pipeline is active, 0 when shut down.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      "Number of messages per batch extracted from Kafka.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of a complete batch extract-transform-load cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		ValidationRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validation_rejections_total",
			Help:      "Reports rejected by the validator, by rule.",
		}, []string{"rule"}),
		NilReports: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "nil_reports_total",
			Help:      "Reports marked NIL (no observation).",
		}),
		StationLookupRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "station_lookup_requests_total",
			Help:      "Station lookup API requests by outcome.",
		}, []string{"outcome"}),
		StationLookupCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "station_lookup_cache_total",
			Help:      "Station lookup cache lookups by result.",
		}, []string{"result"}),
		StationLookupDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "station_lookup_duration_seconds",
			Help:      "Mapbox API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		StationLookupEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "station_lookup_enabled",
			Help:      "1 when station enrichment is enabled, 0 otherwise.",
		}),
	}

	prometheus.MustRegister(
		m.MessagesConsumed,
		m.MessagesProduced,
		m.TransformErrors,
		m.PipelineRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
		m.ValidationRejections,
		m.NilReports,
		m.StationLookupRequests,
		m.StationLookupCache,
		m.StationLookupDuration,
		m.StationLookupEnabled,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		MessagesConsumed:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "messages_consumed_total"}),
		MessagesProduced:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "messages_produced_total"}),
		TransformErrors:         prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "transform_errors_total"}),
		PipelineRunning:         prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "pipeline_running"}),
		BatchSize:               prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: namespace, Name: "batch_size"}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: namespace, Name: "batch_processing_duration_seconds"}),
		ValidationRejections:    prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "validation_rejections_total"}, []string{"rule"}),
		NilReports:              prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "nil_reports_total"}),
		StationLookupRequests:   prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "station_lookup_requests_total"}, []string{"outcome"}),
		StationLookupCache:      prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "station_lookup_cache_total"}, []string{"result"}),
		StationLookupDuration:   prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: namespace, Name: "station_lookup_duration_seconds"}),
		StationLookupEnabled:    prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "station_lookup_enabled"}),
	}
}

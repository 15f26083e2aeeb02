package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "trip_etl"

// Metrics holds the Prometheus counters, histograms, and gauges for the ETL pipeline.
type Metrics struct {
	TripsRead       prometheus.Counter
	ResultsStored   prometheus.Counter
	PipelineRunning prometheus.Gauge

	// Per-record skips by reason: invalid_coordinate, lookup_failed,
	// malformed_response, duplicate_result.
	RecordsSkipped *prometheus.CounterVec

	// Routing lookup metrics.
	LookupRequests    *prometheus.CounterVec // labels: outcome={ok,status,error}
	LookupCache       *prometheus.CounterVec // labels: result={hit,miss}
	LookupAPIDuration prometheus.Histogram

	// Cleaning metrics.
	TripsExcluded *prometheus.CounterVec // labels: rule
	TripsCleaned  prometheus.Gauge
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.TripsRead,
		m.ResultsStored,
		m.PipelineRunning,
		m.RecordsSkipped,
		m.LookupRequests,
		m.LookupCache,
		m.LookupAPIDuration,
		m.TripsExcluded,
		m.TripsCleaned,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		TripsRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trips_read_total",
			Help:      "Total trip records read from the source store.",
		}),
		ResultsStored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "results_stored_total",
			Help:      "Total enrichment results written to the sink store.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 while a pipeline run is active, 0 otherwise.",
		}),
		RecordsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_skipped_total",
			Help:      "Trip records skipped during enrichment, by reason.",
		}, []string{"reason"}),
		LookupRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lookup_requests_total",
			Help:      "Routing lookups by outcome.",
		}, []string{"outcome"}),
		LookupCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lookup_cache_total",
			Help:      "Routing lookup cache lookups by result.",
		}, []string{"result"}),
		LookupAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "lookup_api_duration_seconds",
			Help:      "Routing API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		TripsExcluded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trips_excluded_total",
			Help:      "Merged trips removed by cleaning, by rule.",
		}, []string{"rule"}),
		TripsCleaned: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "trips_cleaned",
			Help:      "Number of trips in the cleaned dataset of the last run.",
		}),
	}
}

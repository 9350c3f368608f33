package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "hazard_engine"

// Metrics holds the Prometheus counters, histograms, and gauges for ingest,
// the processing pass, and the forecast path.
type Metrics struct {
	// Reading ingest.
	ReadingsConsumed        prometheus.Counter
	ReadingsStored          prometheus.Counter
	ParseErrors             prometheus.Counter
	IngestRunning           prometheus.Gauge
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram

	// Processing pass.
	Passes          *prometheus.CounterVec // labels: outcome={success,error}
	PassDuration    prometheus.Histogram
	ZonesPublished  *prometheus.GaugeVec // labels: classification={Low,Medium,High}
	PredictorErrors prometheus.Counter
	AlertsNotified  *prometheus.CounterVec // labels: outcome={sent,error}

	// Forecast.
	ForecastRequests    *prometheus.CounterVec // labels: outcome={success,error,rejected}
	ForecastCache       *prometheus.CounterVec // labels: result={hit,miss}
	ForecastAPIDuration prometheus.Histogram
	ForecastEnabled     prometheus.Gauge
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.ReadingsConsumed,
		m.ReadingsStored,
		m.ParseErrors,
		m.IngestRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
		m.Passes,
		m.PassDuration,
		m.ZonesPublished,
		m.PredictorErrors,
		m.AlertsNotified,
		m.ForecastRequests,
		m.ForecastCache,
		m.ForecastAPIDuration,
		m.ForecastEnabled,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics so tests can build as
// many instances as they need without "already registered" panics.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		ReadingsConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "readings_consumed_total",
			Help:      "Total reading messages read from the source topic.",
		}),
		ReadingsStored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "readings_stored_total",
			Help:      "Total readings written to the event store.",
		}),
		ParseErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parse_errors_total",
			Help:      "Total reading messages skipped as unparseable.",
		}),
		IngestRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ingest_running",
			Help:      "1 when the ingest loop is active, 0 when shut down.",
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
			Help:      "Duration of a complete extract-parse-store cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		Passes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "passes_total",
			Help:      "Processing passes by outcome.",
		}, []string{"outcome"}),
		PassDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pass_duration_seconds",
			Help:      "Duration of a processing pass from store read to publish.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		ZonesPublished: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "zones_published",
			Help:      "Risk zones in the current snapshot by classification.",
		}, []string{"classification"}),
		PredictorErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictor_unknown_total",
			Help:      "Predictions that degraded to Unknown.",
		}),
		AlertsNotified: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_notified_total",
			Help:      "Alert notifications handed to the sink by outcome.",
		}, []string{"outcome"}),
		ForecastRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forecast_requests_total",
			Help:      "Upstream forecast requests by outcome.",
		}, []string{"outcome"}),
		ForecastCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forecast_cache_total",
			Help:      "Forecast cache lookups by result.",
		}, []string{"result"}),
		ForecastAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "forecast_api_duration_seconds",
			Help:      "Open-Meteo request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
		}),
		ForecastEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "forecast_enabled",
			Help:      "1 when the forecast endpoint is enabled, 0 otherwise.",
		}),
	}
}

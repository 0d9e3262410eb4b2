package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// correction pipeline and the station registry.
type Metrics struct {
	RequestsConsumed    prometheus.Counter
	CorrectionsProduced prometheus.Counter
	CorrectionErrors    *prometheus.CounterVec // labels: reason={parse,resolve,day_of_year,out_of_region}
	PipelineRunning     prometheus.Gauge

	// Batch processing metrics.
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram

	// Model metrics.
	CorrectionDuration prometheus.Histogram
	HeightDiff         prometheus.Histogram
	ScaleHeight        *prometheus.GaugeVec // label: component={zhd,ztd,zwd}

	// Station registry metrics.
	StationResolves *prometheus.CounterVec // labels: backend={postgres,static}, outcome={hit,miss,error}
	StationCache    *prometheus.CounterVec // labels: result={hit,miss,error}
}

// NewMetrics creates and registers all service metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		RequestsConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tropo",
			Name:      "requests_consumed_total",
			Help:      "Total correction requests read from the request topic.",
		}),
		CorrectionsProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tropo",
			Name:      "corrections_produced_total",
			Help:      "Total corrections written to the sink topic.",
		}),
		CorrectionErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tropo",
			Name:      "correction_errors_total",
			Help:      "Correction failures by reason.",
		}, []string{"reason"}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tropo",
			Name:      "pipeline_running",
			Help:      "1 when the pipeline is active, 0 when shut down.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "tropo",
			Name:      "batch_size",
			Help:      "Number of requests per batch extracted from Kafka.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "tropo",
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of a complete batch extract-transform-load cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		CorrectionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "tropo",
			Name:      "correction_duration_seconds",
			Help:      "Duration of a single height correction, resolution included.",
			Buckets:   []float64{0.000001, 0.00001, 0.0001, 0.001, 0.01, 0.1, 1},
		}),
		HeightDiff: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "tropo",
			Name:      "height_diff_meters",
			Help:      "Rover minus reference height per correction.",
			Buckets:   []float64{-1000, -500, -200, -100, -50, 0, 50, 100, 200, 500, 1000},
		}),
		ScaleHeight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "tropo",
			Name:      "scale_height_meters",
			Help:      "Scale height used by the most recent correction, per component.",
		}, []string{"component"}),
		StationResolves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tropo",
			Name:      "station_resolve_total",
			Help:      "Station registry lookups by backend and outcome.",
		}, []string{"backend", "outcome"}),
		StationCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tropo",
			Name:      "station_cache_total",
			Help:      "Station cache lookups by result.",
		}, []string{"result"}),
	}

	prometheus.MustRegister(
		m.RequestsConsumed,
		m.CorrectionsProduced,
		m.CorrectionErrors,
		m.PipelineRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
		m.CorrectionDuration,
		m.HeightDiff,
		m.ScaleHeight,
		m.StationResolves,
		m.StationCache,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		RequestsConsumed:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: "tropo", Name: "requests_consumed_total"}),
		CorrectionsProduced:     prometheus.NewCounter(prometheus.CounterOpts{Namespace: "tropo", Name: "corrections_produced_total"}),
		CorrectionErrors:        prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "tropo", Name: "correction_errors_total"}, []string{"reason"}),
		PipelineRunning:         prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "tropo", Name: "pipeline_running"}),
		BatchSize:               prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "tropo", Name: "batch_size"}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "tropo", Name: "batch_processing_duration_seconds"}),
		CorrectionDuration:      prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "tropo", Name: "correction_duration_seconds"}),
		HeightDiff:              prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "tropo", Name: "height_diff_meters"}),
		ScaleHeight:             prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: "tropo", Name: "scale_height_meters"}, []string{"component"}),
		StationResolves:         prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "tropo", Name: "station_resolve_total"}, []string{"backend", "outcome"}),
		StationCache:            prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "tropo", Name: "station_cache_total"}, []string{"result"}),
	}
}

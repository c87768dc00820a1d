package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "radar_accum"

// Metrics holds the Prometheus counters, histograms, and gauges for an
// accumulation run.
type Metrics struct {
	Units          *prometheus.CounterVec   // labels: tier, outcome={committed,replaced,skipped,failed}
	UnitDuration   *prometheus.HistogramVec // labels: tier
	MissingInputs  *prometheus.CounterVec   // labels: tier
	ConfigNotFound prometheus.Counter
	RunRunning     prometheus.Gauge
	LastRunSuccess prometheus.Gauge
}

func newMetrics() *Metrics {
	return &Metrics{
		Units: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "units_total",
			Help:      "Tier generations by outcome.",
		}, []string{"tier", "outcome"}),
		UnitDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "unit_duration_seconds",
			Help:      "Duration of one tier generation, including rendering and moves.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"tier"}),
		MissingInputs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "missing_inputs_total",
			Help:      "Input rasters replaced by zeros, by generated tier.",
		}, []string{"tier"}),
		ConfigNotFound: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "config_not_found_total",
			Help:      "(zone, timestamp) runs skipped because no snapshot was found within the hour.",
		}),
		RunRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_running",
			Help:      "1 while a run is in progress, 0 otherwise.",
		}),
		LastRunSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_success",
			Help:      "1 if the last run had no failed unit, 0 otherwise.",
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.Units,
		m.UnitDuration,
		m.MissingInputs,
		m.ConfigNotFound,
		m.RunRunning,
		m.LastRunSuccess,
	}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsWithRegistry registers the metrics with reg instead of the default
// registry.
func NewMetricsWithRegistry(reg prometheus.Registerer) *Metrics {
	m := newMetrics()
	reg.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid "already
// registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// refresh scheduler and its collaborators.
type Metrics struct {
	Fetches       *prometheus.CounterVec   // labels: kind={forecast,astro}, outcome={success,error,discarded}
	FetchDuration *prometheus.HistogramVec // labels: kind={forecast,astro}

	MergedTimeslices  prometheus.Counter
	ExpiredTimeslices prometheus.Counter
	Timeslices        prometheus.Gauge

	ConditionsRecomputed prometheus.Counter
	DayNightTransitions  prometheus.Counter

	CacheEvents      *prometheus.CounterVec // labels: op={read,write}, result={ok,rejected,error}
	SchedulerRunning prometheus.Gauge
}

// NewMetrics creates and registers all scheduler metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.Fetches,
		m.FetchDuration,
		m.MergedTimeslices,
		m.ExpiredTimeslices,
		m.Timeslices,
		m.ConditionsRecomputed,
		m.DayNightTransitions,
		m.CacheEvents,
		m.SchedulerRunning,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		Fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "meteod",
			Name:      "fetches_total",
			Help:      "Remote document fetches by kind and outcome.",
		}, []string{"kind", "outcome"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "meteod",
			Name:      "fetch_duration_seconds",
			Help:      "Remote fetch duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"kind"}),
		MergedTimeslices: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "meteod",
			Name:      "merged_timeslices_total",
			Help:      "Timeslices upserted into the dataset from parsed documents.",
		}),
		ExpiredTimeslices: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "meteod",
			Name:      "expired_timeslices_total",
			Help:      "Timeslices removed by retention expiry.",
		}),
		Timeslices: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "meteod",
			Name:      "timeslices",
			Help:      "Timeslices currently held in the dataset.",
		}),
		ConditionsRecomputed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "meteod",
			Name:      "conditions_recomputed_total",
			Help:      "Current-conditions selection runs.",
		}),
		DayNightTransitions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "meteod",
			Name:      "day_night_transitions_total",
			Help:      "Observed day/night status changes.",
		}),
		CacheEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "meteod",
			Name:      "cache_events_total",
			Help:      "Disk cache operations by op and result.",
		}, []string{"op", "result"}),
		SchedulerRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "meteod",
			Name:      "scheduler_running",
			Help:      "1 when the refresh scheduler is active, 0 when shut down.",
		}),
	}
}

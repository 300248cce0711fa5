package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds the Prometheus metrics cmd/regimewatch exposes on /metrics,
// generalizing internal/interfaces/http.MetricsRegistry's per-domain counter
// set from scan/cache metrics to classification-run metrics.
type Registry struct {
	RunsTotal       *prometheus.CounterVec
	RunErrorsTotal  *prometheus.CounterVec
	RunDuration     *prometheus.HistogramVec
	ActiveRegime    *prometheus.GaugeVec
	RegimeSwitches  *prometheus.CounterVec
}

// NewRegistry builds and registers the metric set. Call once at process start.
func NewRegistry() *Registry {
	r := &Registry{
		RunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "regimewatch_runs_total",
				Help: "Total classification runs, by instrument.",
			},
			[]string{"instrument"},
		),
		RunErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "regimewatch_run_errors_total",
				Help: "Total classification run failures, by instrument and error kind.",
			},
			[]string{"instrument", "kind"},
		),
		RunDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "regimewatch_run_duration_seconds",
				Help:    "Wall-clock duration of a full classification run.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
			},
			[]string{"instrument"},
		),
		ActiveRegime: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "regimewatch_active_regime",
				Help: "1 for the currently active primary_regime per instrument, 0 otherwise.",
			},
			[]string{"instrument", "regime"},
		),
		RegimeSwitches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "regimewatch_regime_switches_total",
				Help: "Total primary_regime transitions, by instrument.",
			},
			[]string{"instrument"},
		),
	}

	prometheus.MustRegister(
		r.RunsTotal,
		r.RunErrorsTotal,
		r.RunDuration,
		r.ActiveRegime,
		r.RegimeSwitches,
	)
	return r
}

// Handler returns the HTTP handler to mount at /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

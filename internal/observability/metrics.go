package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the engine's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	evaluations    *prometheus.CounterVec
	evalErrors     *prometheus.CounterVec
	sweepDuration  prometheus.Histogram
	sweepHabits    prometheus.Gauge
	sweepFailures  prometheus.Gauge
	sweepLastRun   prometheus.Gauge
	proofsRecorded prometheus.Counter
	httpRequests   *prometheus.CounterVec
}

// NewMetrics registers every collector with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		evaluations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "streaks_evaluations_total",
			Help: "Habit evaluations by trigger and outcome",
		}, []string{"trigger", "outcome"}),
		evalErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "streaks_evaluation_errors_total",
			Help: "Habit evaluations that failed with a store error",
		}, []string{"trigger"}),
		sweepDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "streaks_sweep_duration_seconds",
			Help:    "Wall time of a full sweep",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 15, 60, 300},
		}),
		sweepHabits: f.NewGauge(prometheus.GaugeOpts{
			Name: "streaks_sweep_habits_processed",
			Help: "Habits processed by the most recent sweep",
		}),
		sweepFailures: f.NewGauge(prometheus.GaugeOpts{
			Name: "streaks_sweep_failures",
			Help: "Per-habit failures in the most recent sweep",
		}),
		sweepLastRun: f.NewGauge(prometheus.GaugeOpts{
			Name: "streaks_sweep_last_run_timestamp_seconds",
			Help: "Unix time the most recent sweep started",
		}),
		proofsRecorded: f.NewCounter(prometheus.CounterOpts{
			Name: "streaks_proofs_recorded_total",
			Help: "Proofs durably stored",
		}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "streaks_http_requests_total",
			Help: "HTTP requests by route and status",
		}, []string{"route", "status"}),
	}
}

func (m *Metrics) ObserveEvaluation(trigger, outcome string) {
	if m == nil {
		return
	}
	m.evaluations.WithLabelValues(trigger, outcome).Inc()
}

func (m *Metrics) ObserveEvaluationError(trigger string) {
	if m == nil {
		return
	}
	m.evalErrors.WithLabelValues(trigger).Inc()
}

func (m *Metrics) ObserveSweep(startedAt time.Time, d time.Duration, processed, failures int) {
	if m == nil {
		return
	}
	m.sweepDuration.Observe(d.Seconds())
	m.sweepHabits.Set(float64(processed))
	m.sweepFailures.Set(float64(failures))
	m.sweepLastRun.Set(float64(startedAt.Unix()))
}

func (m *Metrics) ObserveProofRecorded() {
	if m == nil {
		return
	}
	m.proofsRecorded.Inc()
}

func (m *Metrics) ObserveHTTP(route, status string) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, status).Inc()
}

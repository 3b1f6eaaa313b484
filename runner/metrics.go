package runner

import (
	"sync"
	"time"

	"github.com/hupe1980/answermesh/core"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors that report dispatcher activity.
type Metrics struct {
	tasksTotal      *prometheus.CounterVec
	taskDuration    *prometheus.HistogramVec
	tasksActive     prometheus.Gauge
	persistFailures prometheus.Counter
}

var (
	defaultMetricsOnce sync.Once
	sharedMetrics      *Metrics
)

// defaultMetrics returns the package-level metrics registered with the global
// Prometheus registry, created once so repeated dispatchers do not panic on
// duplicate registration.
func defaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		sharedMetrics = MustNewMetrics(prometheus.DefaultRegisterer)
	})
	return sharedMetrics
}

// MustNewMetrics constructs Metrics using the provided registerer. Tests pass a
// fresh registry. Registration errors panic, mirroring promauto.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		tasksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "answermesh",
				Subsystem: "dispatcher",
				Name:      "tasks_total",
				Help:      "Total number of dispatched tasks by final status.",
			},
			[]string{"status"},
		),
		taskDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "answermesh",
				Subsystem: "dispatcher",
				Name:      "task_duration_seconds",
				Help:      "Wall time spent answering one task.",
				Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
			},
			[]string{"status"},
		),
		tasksActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "answermesh",
				Subsystem: "dispatcher",
				Name:      "tasks_active",
				Help:      "Number of tasks currently being answered.",
			},
		),
		persistFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "answermesh",
				Subsystem: "dispatcher",
				Name:      "persist_failures_total",
				Help:      "Number of batches whose result set could not be persisted.",
			},
		),
	}

	reg.MustRegister(m.tasksTotal, m.taskDuration, m.tasksActive, m.persistFailures)

	return m
}

func (m *Metrics) taskStarted() {
	if m == nil {
		return
	}
	m.tasksActive.Inc()
}

func (m *Metrics) taskFinished(status core.Status, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.tasksActive.Dec()
	m.tasksTotal.WithLabelValues(string(status)).Inc()
	m.taskDuration.WithLabelValues(string(status)).Observe(elapsed.Seconds())
}

func (m *Metrics) persistFailed() {
	if m == nil {
		return
	}
	m.persistFailures.Inc()
}

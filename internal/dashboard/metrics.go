package dashboard

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is safe to use as a nil pointer; every method is then a no-op.
type Metrics struct {
	syncs            *prometheus.CounterVec
	syncDuration     prometheus.Histogram
	forecastFailures prometheus.Counter
	commands         *prometheus.CounterVec
}

// NewMetrics builds the collectors and registers them on reg when non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		syncs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dashboard",
			Name:      "sync_total",
			Help:      "Sync cycles by result (ok, stale, error).",
		}, []string{"result"}),
		syncDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "dashboard",
			Name:      "sync_duration_seconds",
			Help:      "Wall time of complete sync cycles.",
			Buckets:   prometheus.DefBuckets,
		}),
		forecastFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dashboard",
			Name:      "forecast_failures_total",
			Help:      "Per-product forecast requests dropped from a snapshot.",
		}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dashboard",
			Name:      "commands_total",
			Help:      "Commands by name and result.",
		}, []string{"command", "result"}),
	}
	if reg != nil {
		reg.MustRegister(m.syncs, m.syncDuration, m.forecastFailures, m.commands)
	}
	return m
}

func (m *Metrics) observeSync(result string, started time.Time) {
	if m == nil {
		return
	}
	m.syncs.WithLabelValues(result).Inc()
	m.syncDuration.Observe(time.Since(started).Seconds())
}

func (m *Metrics) forecastFailed(n int) {
	if m == nil || n == 0 {
		return
	}
	m.forecastFailures.Add(float64(n))
}

func (m *Metrics) command(name string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.commands.WithLabelValues(name, result).Inc()
}

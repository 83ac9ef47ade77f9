// Package metrics содержит счётчики Prometheus для журнала и аналитики.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	recorded   *prometheus.CounterVec
	restocks   prometheus.Counter
	collisions prometheus.Counter
	analytics  *prometheus.HistogramVec
}

// New создаёт и регистрирует коллекторы в reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		recorded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "warehouse",
			Name:      "transactions_recorded_total",
			Help:      "Recorded inventory transactions by entry path.",
		}, []string{"path"}),
		restocks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "warehouse",
			Name:      "restock_flags_total",
			Help:      "Transactions recorded with restock flag YES.",
		}),
		collisions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "warehouse",
			Name:      "code_collisions_total",
			Help:      "Generated transaction codes that were already taken.",
		}),
		analytics: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "warehouse",
			Name:      "analytics_duration_seconds",
			Help:      "Time spent computing an analytics metric.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"metric"}),
	}
	reg.MustRegister(m.recorded, m.restocks, m.collisions, m.analytics)
	return m
}

// Методы безопасны для nil: без метрик компоненты работают так же.

func (m *Metrics) Recorded(path string, restock bool) {
	if m == nil {
		return
	}
	m.recorded.WithLabelValues(path).Inc()
	if restock {
		m.restocks.Inc()
	}
}

func (m *Metrics) CodeCollision() {
	if m == nil {
		return
	}
	m.collisions.Inc()
}

func (m *Metrics) ObserveAnalytics(metric string, started time.Time) {
	if m == nil {
		return
	}
	m.analytics.WithLabelValues(metric).Observe(time.Since(started).Seconds())
}

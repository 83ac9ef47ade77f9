package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordedCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.Recorded("auto", true)
	m.Recorded("auto", false)
	m.Recorded("manual", false)
	m.CodeCollision()

	if got := testutil.ToFloat64(m.recorded.WithLabelValues("auto")); got != 2 {
		t.Errorf("auto: got %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.recorded.WithLabelValues("manual")); got != 1 {
		t.Errorf("manual: got %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.restocks); got != 1 {
		t.Errorf("restocks: got %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.collisions); got != 1 {
		t.Errorf("collisions: got %v, want 1", got)
	}
}

func TestAnalyticsHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.ObserveAnalytics("turnover", time.Now())

	if n := testutil.CollectAndCount(m.analytics); n != 1 {
		t.Errorf("series: got %d, want 1", n)
	}
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.Recorded("auto", true)
	m.CodeCollision()
	m.ObserveAnalytics("trend-out", time.Now())
}

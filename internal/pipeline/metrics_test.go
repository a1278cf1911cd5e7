package pipeline

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics(t *testing.T) {
	t.Parallel()

	t.Run("nil metrics are safe", func(t *testing.T) {
		t.Parallel()

		var m *Metrics
		m.ObserveRender(true)
		m.ObserveRetry()
		m.ObserveRenderError("timeout")
		m.ObservePage(false)
		m.AuditStarted()
		m.AuditFinished("success", time.Second, 80)
	})

	t.Run("records observations", func(t *testing.T) {
		t.Parallel()

		m := NewMetrics()
		m.ObserveRender(true)
		m.ObserveRender(false)
		m.ObserveRender(false)
		m.ObserveRetry()
		m.ObserveRenderError("http")
		m.ObservePage(true)
		m.AuditStarted()
		m.AuditStarted()
		m.AuditFinished("timeout", 3*time.Second, -1)

		checks := []struct {
			name string
			got  float64
			want float64
		}{
			{"renders success", testutil.ToFloat64(m.RendersTotal.WithLabelValues("success")), 1},
			{"renders failure", testutil.ToFloat64(m.RendersTotal.WithLabelValues("failure")), 2},
			{"retries", testutil.ToFloat64(m.RetriesTotal), 1},
			{"errors http", testutil.ToFloat64(m.ErrorsTotal.WithLabelValues("http")), 1},
			{"pages analyzed", testutil.ToFloat64(m.PagesTotal.WithLabelValues("analyzed")), 1},
			{"audits timeout", testutil.ToFloat64(m.AuditsTotal.WithLabelValues("timeout")), 1},
			{"in flight", testutil.ToFloat64(m.AuditsInFlight), 1},
		}
		for _, c := range checks {
			if c.got != c.want {
				t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
			}
		}

		if n := testutil.CollectAndCount(m.OverallScore); n != 1 {
			t.Errorf("expected one score histogram, got %d", n)
		}
	})

	t.Run("registry gathers all collectors", func(t *testing.T) {
		t.Parallel()

		m := NewMetrics()
		m.ObserveRender(true)
		families, err := m.Registry.Gather()
		if err != nil {
			t.Fatalf("gather failed: %v", err)
		}
		if len(families) == 0 {
			t.Error("expected metric families")
		}
	})
}

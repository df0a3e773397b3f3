package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/meetly/meetly/internal/metrics"
)

func TestMetricsHandler(t *testing.T) {
	t.Parallel()

	rec := metrics.NewInMemory()
	rec.IncJoinCacheHit()
	rec.IncMeetingCreated()
	rec.IncMeetingCreated()
	rec.IncSweepRun("success")
	rec.IncSweepRun("failure")
	rec.AddSweepPurged(3)

	h := NewMetricsHandler(rec)
	w := httptest.NewRecorder()
	h.Metrics(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	body := w.Body.String()
	for _, line := range []string{
		"meetly_join_cache_hits_total 1",
		"meetly_meetings_created_total 2",
		`meetly_sweep_runs_total{status="success"} 1`,
		`meetly_sweep_runs_total{status="failure"} 1`,
		"meetly_sweep_purged_total 3",
	} {
		if !strings.Contains(body, line+"\n") {
			t.Errorf("missing %q in:\n%s", line, body)
		}
	}
}

func TestMetricsHandler_NoSnapshotter(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	NewMetricsHandler(nil).Metrics(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

package handler

import (
	"fmt"
	"net/http"

	"github.com/meetly/meetly/internal/metrics"
)

// MetricsHandler exposes in-memory metrics.
type MetricsHandler struct {
	snapshotter metrics.Snapshotter
}

// NewMetricsHandler creates a new MetricsHandler.
func NewMetricsHandler(snapshotter metrics.Snapshotter) *MetricsHandler {
	return &MetricsHandler{snapshotter: snapshotter}
}

// Metrics returns metrics in Prometheus exposition format.
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.snapshotter == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	snap := h.snapshotter.Snapshot()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	writeMetric(w, "meetly_join_cache_hits_total %d\n", snap.JoinCacheHits)
	writeMetric(w, "meetly_join_cache_misses_total %d\n", snap.JoinCacheMisses)
	writeMetric(w, "meetly_join_duration_seconds_count %d\n", snap.JoinDurationCount)
	writeMetric(w, "meetly_join_duration_seconds_sum %.6f\n", float64(snap.JoinDurationTotalNs)/1e9)

	writeMetric(w, "meetly_meetings_created_total %d\n", snap.MeetingsCreated)
	writeMetric(w, "meetly_meetings_updated_total %d\n", snap.MeetingsUpdated)
	writeMetric(w, "meetly_meetings_canceled_total %d\n", snap.MeetingsCanceled)
	writeMetric(w, "meetly_meetings_deleted_total %d\n", snap.MeetingsDeleted)

	writeMetric(w, "meetly_registrations_total %d\n", snap.Registrations)
	writeMetric(w, "meetly_login_failures_total %d\n", snap.LoginFailures)

	writeMetric(w, "meetly_invitations_total{status=\"sent\"} %d\n", snap.InvitationsSent)
	writeMetric(w, "meetly_invitations_total{status=\"failed\"} %d\n", snap.InvitationsFailed)

	var sweepOK uint64
	if snap.SweepRuns > snap.SweepFailures {
		sweepOK = snap.SweepRuns - snap.SweepFailures
	}
	writeMetric(w, "meetly_sweep_runs_total{status=\"success\"} %d\n", sweepOK)
	writeMetric(w, "meetly_sweep_runs_total{status=\"failure\"} %d\n", snap.SweepFailures)
	writeMetric(w, "meetly_sweep_purged_total %d\n", snap.SweepPurged)
}

func writeMetric(w http.ResponseWriter, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}

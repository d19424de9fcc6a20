package handler

import (
	"fmt"
	"net/http"

	"github.com/postboard/postboard/internal/metrics"
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

	writeMetric(w, "postboard_posts_created_total %d\n", snap.PostsCreated)
	writeMetric(w, "postboard_posts_updated_total %d\n", snap.PostsUpdated)
	writeMetric(w, "postboard_posts_deleted_total %d\n", snap.PostsDeleted)
	writeMetric(w, "postboard_ownership_denied_total %d\n", snap.OwnershipDenied)

	writeMetric(w, "postboard_post_cache_hits_total %d\n", snap.PostCacheHits)
	writeMetric(w, "postboard_post_cache_misses_total %d\n", snap.PostCacheMisses)

	writeMetric(w, "postboard_users_registered_total %d\n", snap.UsersRegistered)
	writeMetric(w, "postboard_logins_total{status=\"success\"} %d\n", snap.LoginsSucceeded)
	writeMetric(w, "postboard_logins_total{status=\"failed\"} %d\n", snap.LoginsFailed)

	writeMetric(w, "postboard_rate_limited_total %d\n", snap.RateLimited)
	writeMetric(w, "postboard_http_request_duration_seconds_count %d\n", snap.RequestDurationCount)
	writeMetric(w, "postboard_http_request_duration_seconds_sum %.6f\n", float64(snap.RequestDurationTotalNs)/1e9)
}

func writeMetric(w http.ResponseWriter, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}

package handler

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/coffeeshop/coffeeshop/internal/metrics"
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

	writeMetric(w, "coffeeshop_menu_cache_hits_total %d\n", snap.MenuCacheHits)
	writeMetric(w, "coffeeshop_menu_cache_misses_total %d\n", snap.MenuCacheMisses)
	writeMetric(w, "coffeeshop_menu_load_duration_seconds_count %d\n", snap.MenuLoadDurationCount)
	writeMetric(w, "coffeeshop_menu_load_duration_seconds_sum %.6f\n", float64(snap.MenuLoadDurationNs)/1e9)

	writeMetric(w, "coffeeshop_drinks_created_total %d\n", snap.DrinksCreated)
	writeMetric(w, "coffeeshop_drinks_updated_total %d\n", snap.DrinksUpdated)
	writeMetric(w, "coffeeshop_drinks_deleted_total %d\n", snap.DrinksDeleted)

	codes := make([]string, 0, len(snap.AuthRejections))
	for code := range snap.AuthRejections {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	for _, code := range codes {
		writeMetric(w, "coffeeshop_auth_rejections_total{code=%q} %d\n", code, snap.AuthRejections[code])
	}
}

func writeMetric(w http.ResponseWriter, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}

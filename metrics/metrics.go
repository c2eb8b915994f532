// Package metrics provides Prometheus metrics for the workspace server.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Collaborator call metrics
	remoteCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workspace_remote_calls_total",
			Help: "Total collaborator calls by operation and outcome",
		},
		[]string{"op", "status"},
	)

	remoteCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "workspace_remote_call_duration_seconds",
			Help:    "Collaborator call duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	// Tree metrics
	treeNodesLoaded = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "workspace_tree_nodes_loaded",
			Help: "Number of loaded nodes in the project tree",
		},
	)

	treePatchMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "workspace_tree_patch_misses_total",
			Help: "Fetched subtrees discarded because their target was gone",
		},
	)

	// Buffer metrics
	buffersOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "workspace_buffers_open",
			Help: "Number of open buffers",
		},
	)

	buffersDirty = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "workspace_buffers_dirty",
			Help: "Number of open buffers with unsaved edits",
		},
	)

	// Persistence metrics
	snapshotWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workspace_snapshot_writes_total",
			Help: "Total snapshot writes by outcome",
		},
		[]string{"status"},
	)

	snapshotBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "workspace_snapshot_bytes",
			Help: "Size of the last written snapshot",
		},
	)

	// VCS metrics
	vcsStaleRefreshesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "workspace_vcs_stale_refreshes_total",
			Help: "Status refresh responses discarded as superseded",
		},
	)

	vcsStatusEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "workspace_vcs_status_entries",
			Help: "Number of entries in the cached repository status",
		},
	)

	// Terminal metrics
	terminalTabs = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "workspace_terminal_tabs",
			Help: "Number of terminal tabs",
		},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordRemoteCall records a collaborator call.
func RecordRemoteCall(op string, duration time.Duration, err error) {
	remoteCallsTotal.WithLabelValues(op, status(err)).Inc()
	remoteCallDuration.WithLabelValues(op).Observe(duration.Seconds())
}

// SetTreeNodesLoaded sets the number of loaded tree nodes.
func SetTreeNodesLoaded(count int) {
	treeNodesLoaded.Set(float64(count))
}

// RecordTreePatchMiss records a discarded subtree fetch.
func RecordTreePatchMiss() {
	treePatchMissesTotal.Inc()
}

// SetBuffers sets the open and dirty buffer gauges.
func SetBuffers(open, dirty int) {
	buffersOpen.Set(float64(open))
	buffersDirty.Set(float64(dirty))
}

// RecordSnapshotWrite records a snapshot write.
func RecordSnapshotWrite(bytes int, err error) {
	snapshotWritesTotal.WithLabelValues(status(err)).Inc()
	if err == nil {
		snapshotBytes.Set(float64(bytes))
	}
}

// RecordStaleRefresh records a discarded VCS status response.
func RecordStaleRefresh() {
	vcsStaleRefreshesTotal.Inc()
}

// SetStatusEntries sets the cached status entry count.
func SetStatusEntries(count int) {
	vcsStatusEntries.Set(float64(count))
}

// SetTerminalTabs sets the number of terminal tabs.
func SetTerminalTabs(count int) {
	terminalTabs.Set(float64(count))
}

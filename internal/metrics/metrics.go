// Package metrics provides Prometheus metrics for alias runs.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RunsTotal counts batch runs by outcome (ok, partial, interrupted, source_error, plan_error)
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "alias",
			Subsystem: "run",
			Name:      "runs_total",
			Help:      "Total number of alias runs by status",
		},
		[]string{"status"},
	)

	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "alias",
			Subsystem: "run",
			Name:      "duration_seconds",
			Help:      "Duration of alias runs in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
	)

	// ClustersFound is the cluster count of the last plan
	ClustersFound = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "alias",
			Subsystem: "cluster",
			Name:      "clusters",
			Help:      "Number of clusters found by the last plan",
		},
	)

	WritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "alias",
			Subsystem: "store",
			Name:      "writes_total",
			Help:      "Alias write-backs by result",
		},
		[]string{"result"},
	)

	// PreviewRequests counts /alias/preview calls by status code class
	PreviewRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "alias",
			Subsystem: "http",
			Name:      "preview_requests_total",
			Help:      "Preview API requests by status",
		},
		[]string{"status"},
	)

	ImportedRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "alias",
			Subsystem: "import",
			Name:      "rows_total",
			Help:      "Imported product rows by store and result",
		},
		[]string{"store", "result"},
	)
)

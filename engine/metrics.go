package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	commits       *prometheus.CounterVec
	casConflicts  prometheus.Counter
	rowsMutated   *prometheus.CounterVec
	blocksWritten *prometheus.CounterVec
	commitSeconds prometheus.Histogram
	compactions   prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	return &metrics{
		commits: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "strata_commits_total",
			Help: "Commits by table and outcome.",
		}, []string{"table", "result"}),
		casConflicts: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "strata_cas_conflicts_total",
			Help: "Compare-and-swap attempts lost to a concurrent commit.",
		}),
		rowsMutated: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "strata_mutation_rows_total",
			Help: "Rows affected by committed mutations.",
		}, []string{"table", "kind"}),
		blocksWritten: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "strata_blocks_written_total",
			Help: "Blocks written by committed mutations.",
		}, []string{"table", "op"}),
		commitSeconds: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "strata_commit_duration_seconds",
			Help:    "End-to-end mutation latency, retries included.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
		}),
		compactions: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "strata_compactions_total",
			Help: "Completed compactions.",
		}),
	}
}

package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	queriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cubegate_queries_total",
			Help: "Total number of query executions by outcome.",
		},
		[]string{"outcome"},
	)
	queryDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cubegate_query_duration_seconds",
			Help:    "End-to-end query execution latency in seconds.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)
	queryResultRows = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cubegate_query_result_rows",
			Help:    "Number of rows materialized per successful query.",
			Buckets: []float64{1, 10, 100, 1000, 10000, 100000, 1000000},
		},
	)
	metadataRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cubegate_metadata_requests_total",
			Help: "Total number of metadata discovery requests by outcome.",
		},
		[]string{"outcome"},
	)
	metadataDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cubegate_metadata_duration_seconds",
			Help:    "Metadata discovery latency in seconds, session open included.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)
	discoveryStrategyTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cubegate_discovery_strategy_total",
			Help: "Discovery strategy attempts by half, strategy, and outcome.",
		},
		[]string{"kind", "strategy", "outcome"},
	)
	tokenRefreshesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cubegate_token_refreshes_total",
			Help: "Client-credentials token exchanges by outcome.",
		},
		[]string{"outcome"},
	)
	historyWritesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cubegate_history_writes_total",
			Help: "Query history insert attempts by outcome.",
		},
		[]string{"outcome"},
	)
	archiveRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cubegate_archive_runs_total",
			Help: "Archiver job runs by job and outcome.",
		},
		[]string{"job", "outcome"},
	)
	archivedResultsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cubegate_archived_results_total",
			Help: "Total number of query results written to the archive store.",
		},
	)
	retentionDeletedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cubegate_retention_deleted_total",
			Help: "Total number of history entries removed by retention.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		queriesTotal,
		queryDurationSeconds,
		queryResultRows,
		metadataRequestsTotal,
		metadataDurationSeconds,
		discoveryStrategyTotal,
		tokenRefreshesTotal,
		historyWritesTotal,
		archiveRunsTotal,
		archivedResultsTotal,
		retentionDeletedTotal,
	)
}

func ObserveQuery(outcome string, rows int, elapsed time.Duration) {
	queriesTotal.WithLabelValues(outcome).Inc()
	queryDurationSeconds.Observe(elapsed.Seconds())
	if outcome == "succeeded" {
		queryResultRows.Observe(float64(rows))
	}
}

func ObserveMetadata(outcome string, elapsed time.Duration) {
	metadataRequestsTotal.WithLabelValues(outcome).Inc()
	metadataDurationSeconds.Observe(elapsed.Seconds())
}

func ObserveDiscoveryStrategy(kind, strategy, outcome string) {
	discoveryStrategyTotal.WithLabelValues(kind, strategy, outcome).Inc()
}

func ObserveTokenRefresh(outcome string) {
	tokenRefreshesTotal.WithLabelValues(outcome).Inc()
}

func ObserveHistoryWrite(outcome string) {
	historyWritesTotal.WithLabelValues(outcome).Inc()
}

func ObserveArchiveRun(job, outcome string) {
	archiveRunsTotal.WithLabelValues(job, outcome).Inc()
}

func AddArchivedResults(count int) {
	if count > 0 {
		archivedResultsTotal.Add(float64(count))
	}
}

func AddRetentionDeleted(count int64) {
	if count > 0 {
		retentionDeletedTotal.Add(float64(count))
	}
}

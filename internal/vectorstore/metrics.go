package vectorstore

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// QueriesTotal counts similarity-search queries by provider.
	QueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trulybot",
			Subsystem: "vectorstore",
			Name:      "queries_total",
			Help:      "Total number of similarity-search queries",
		},
		[]string{"provider"},
	)

	// QueryDuration tracks similarity-search latency.
	QueryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "trulybot",
			Subsystem: "vectorstore",
			Name:      "query_duration_seconds",
			Help:      "Duration of similarity-search queries in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// ChunksAddedTotal counts stored chunks.
	ChunksAddedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "trulybot",
			Subsystem: "vectorstore",
			Name:      "chunks_added_total",
			Help:      "Total number of chunks written to the store",
		},
	)

	// ScopeViolationsTotal counts dropped out-of-scope results.
	// Any nonzero value indicates a store fault worth paging on.
	ScopeViolationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "trulybot",
			Subsystem: "vectorstore",
			Name:      "scope_violations_total",
			Help:      "Search results dropped for crossing the workspace boundary",
		},
	)
)

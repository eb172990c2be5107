// Package metrics holds the Prometheus collectors exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// CacheReads counts cache reads by kind and result (hit, miss, bypass, error).
	CacheReads = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ingestdesk",
		Name:      "cache_reads_total",
		Help:      "Resource cache reads by kind and result.",
	}, []string{"kind", "result"})

	// CacheRefreshItems counts items written by cache refreshes.
	CacheRefreshItems = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ingestdesk",
		Name:      "cache_refresh_items_total",
		Help:      "Items written to the resource cache by kind and outcome.",
	}, []string{"kind", "outcome"})

	// FileTransitions counts import file status changes by target status.
	FileTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ingestdesk",
		Name:      "file_transitions_total",
		Help:      "Import file status transitions by target status.",
	}, []string{"status"})
)

// Cache read results.
const (
	ResultHit    = "hit"
	ResultMiss   = "miss"
	ResultBypass = "bypass"
	ResultError  = "error"
)

// Refresh outcomes.
const (
	OutcomeStored = "stored"
	OutcomeFailed = "failed"
)

func init() {
	prometheus.MustRegister(CacheReads, CacheRefreshItems, FileTransitions)
}

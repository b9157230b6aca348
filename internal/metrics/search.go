package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Search backends for the "backend" label
const (
	SearchBackendElasticsearch = "elasticsearch"
	SearchBackendDatabase      = "database"
)

var (
	SearchQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_queries_total",
			Help: "Total number of search queries",
		},
		[]string{"type", "backend"},
	)

	SearchQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "search_query_duration_seconds",
			Help:    "Search query duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"type", "backend"},
	)

	SearchResultsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_results_total",
			Help: "Total number of search results returned",
		},
		[]string{"type"},
	)

	SearchErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_errors_total",
			Help: "Search failures; the database fallback is used afterwards",
		},
		[]string{"type", "backend"},
	)
)

// RecordSearch records one completed query
func RecordSearch(searchType, backend string, results int, took time.Duration, err error) {
	SearchQueriesTotal.WithLabelValues(searchType, backend).Inc()
	SearchQueryDuration.WithLabelValues(searchType, backend).Observe(took.Seconds())
	if err != nil {
		SearchErrorsTotal.WithLabelValues(searchType, backend).Inc()
		return
	}
	SearchResultsTotal.WithLabelValues(searchType).Add(float64(results))
}

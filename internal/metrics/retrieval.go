package metrics

import "github.com/prometheus/client_golang/prometheus"

// Retrieval Prometheus metrics.
var (
	SearchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cognimark",
			Name:      "searches_total",
			Help:      "Total number of retrieval searches per source",
		},
		[]string{"source", "degraded"},
	)

	SearchCandidates = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cognimark",
			Name:      "search_candidates",
			Help:      "Fused candidate count per search",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50, 100},
		},
		[]string{"source"},
	)

	RebuildDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cognimark",
			Name:      "rebuild_duration_seconds",
			Help:      "Index rebuild duration per source",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 300},
		},
		[]string{"source", "status"},
	)

	IndexedVectors = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "cognimark",
			Name:      "indexed_vectors",
			Help:      "Number of vectors currently indexed per source",
		},
		[]string{"source"},
	)
)

var retrievalMetricsRegistered bool

// RegisterRetrievalMetrics registers Prometheus retrieval metrics. Must be called once from main.
func RegisterRetrievalMetrics() {
	if retrievalMetricsRegistered {
		return
	}
	prometheus.MustRegister(SearchesTotal)
	prometheus.MustRegister(SearchCandidates)
	prometheus.MustRegister(RebuildDuration)
	prometheus.MustRegister(IndexedVectors)
	retrievalMetricsRegistered = true
}

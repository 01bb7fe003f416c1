package metrics

import "github.com/prometheus/client_golang/prometheus"

// Index and matching Prometheus metrics.
var (
	IndexEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "canonic",
			Name:      "index_entries",
			Help:      "Number of catalog variants in the active index",
		},
	)

	IndexBuildDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "canonic",
			Name:      "index_build_duration_seconds",
			Help:      "Catalog index build duration in seconds, embedding included",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300},
		},
	)

	MatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "canonic",
			Name:      "matches_total",
			Help:      "Distinct query values by resolution outcome",
		},
		[]string{"outcome"}, // substituted / confirmed / unmatched
	)

	MatchScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "canonic",
			Name:      "match_score",
			Help:      "Top-1 cosine similarity per query",
			Buckets:   []float64{0.3, 0.5, 0.6, 0.7, 0.75, 0.8, 0.85, 0.9, 0.95, 0.99},
		},
	)

	RunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "canonic",
			Name:      "cleaning_runs_total",
			Help:      "Cleaning runs by outcome",
		},
		[]string{"status"}, // ok / input_error / index_error / system_error
	)

	RunDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "canonic",
			Name:      "cleaning_run_duration_seconds",
			Help:      "Cleaning run duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300},
		},
	)
)

var matchMetricsRegistered bool

// RegisterMatchingMetrics registers index and matching metrics. Must be called once from main.
func RegisterMatchingMetrics() {
	if matchMetricsRegistered {
		return
	}
	prometheus.MustRegister(IndexEntries)
	prometheus.MustRegister(IndexBuildDuration)
	prometheus.MustRegister(MatchesTotal)
	prometheus.MustRegister(MatchScore)
	prometheus.MustRegister(RunsTotal)
	prometheus.MustRegister(RunDuration)
	matchMetricsRegistered = true
}

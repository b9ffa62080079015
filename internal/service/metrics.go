package service

import "github.com/prometheus/client_golang/prometheus"

// Engine-side collectors. HTTP-level metrics live in the handler package.
var (
	recalcDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "sentinel_reputation_recalculation_duration_seconds",
		Help:    "Duration of full reputation recalculations.",
		Buckets: prometheus.DefBuckets,
	})

	cacheHits = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sentinel_reputation_cache_hits_total",
		Help: "Reputation reads served without recomputation, by layer.",
	}, []string{"layer"})

	cacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sentinel_reputation_cache_misses_total",
		Help: "Reputation reads that triggered a recomputation.",
	})

	votesSubmitted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sentinel_votes_submitted_total",
		Help: "Vote submissions, by outcome.",
	}, []string{"outcome"})

	schedulerPasses = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sentinel_scheduler_passes_total",
		Help: "Maintenance scheduler passes, by task and outcome.",
	}, []string{"task", "outcome"})
)

func init() {
	prometheus.MustRegister(
		recalcDuration,
		cacheHits,
		cacheMisses,
		votesSubmitted,
		schedulerPasses,
	)
}

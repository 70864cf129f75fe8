package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	CacheEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mash_cache_events_total",
			Help: "Result cache events.",
		},
		[]string{"event"}, // hit | miss | evict
	)
	PairScores = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mash_pair_scores_total",
			Help: "Pairwise score computations by policy and outcome.",
		},
		[]string{"policy", "outcome"}, // computed | cached | stored
	)
	RankingRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mash_ranking_runs_total",
			Help: "Candidate ranking runs by feature.",
		},
		[]string{"feature"},
	)
	RetryAttempts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mash_retry_attempts_total",
			Help: "Retries performed against upstream collaborators.",
		},
	)
)

func init() {
	prometheus.MustRegister(CacheEvents, PairScores, RankingRuns, RetryAttempts)
}

func Handler() http.Handler { return promhttp.Handler() }

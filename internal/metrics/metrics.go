// Package metrics exposes Prometheus counters for the scoring pipeline,
// served on the /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ObservationsIngested counts raw observations accepted at the ingestion boundary
	ObservationsIngested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tacticalfit_observations_ingested_total",
		Help: "Raw observations ingested from the raw-observations topic.",
	})

	// ProfilesBuilt counts profiles aggregated from observations (cache misses)
	ProfilesBuilt = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tacticalfit_profiles_built_total",
		Help: "Profiles built by the aggregator, excluding cache hits.",
	})

	// ScoresComputed counts successful fit-scoring runs
	ScoresComputed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tacticalfit_scores_computed_total",
		Help: "Fit scores computed successfully.",
	})

	// ScoringFailures counts scoring runs that failed, by reason
	ScoringFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tacticalfit_scoring_failures_total",
		Help: "Fit-scoring runs that failed, partitioned by reason.",
	}, []string{"reason"})
)

// Package aggregator folds time-windowed sequences of resolved observations
// into comparable, confidence-annotated profiles.
package aggregator

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aegis-analytics/tacticalfit-service/internal/models"
	"github.com/aegis-analytics/tacticalfit-service/internal/registry"
)

// Params holds aggregation parameters
type Params struct {
	// MinSampleSize is the sample size below which aggregated confidence is
	// discounted by the small-sample penalty min(1, n/MinSampleSize).
	MinSampleSize int
}

// Aggregator builds profiles from resolved observations.
// Pure function of its inputs, parameters and the registry.
type Aggregator struct {
	params Params
	logger zerolog.Logger
}

// New creates an aggregator
func New(params Params, logger zerolog.Logger) *Aggregator {
	return &Aggregator{
		params: params,
		logger: logger.With().Str("component", "aggregator").Logger(),
	}
}

// partial accumulates one metric's contributions during a fold
type partial struct {
	kind       models.MetricKind
	valueSum   float64
	counts     models.Distribution
	confSum    float64
	sampleSize int
	allDirect  bool
}

// Aggregate folds the observation sequence into a profile for one entity and
// window. Metrics with zero usable contributions are absent from the profile:
// absence is missing data, never "metric = 0".
func (a *Aggregator) Aggregate(entityID string, window models.Window, reg *registry.Registry, observations []models.ResolvedObservation) models.Profile {
	selected := a.selectWindow(window, observations)

	partials := make(map[string]*partial)
	for _, obs := range selected {
		for metricID, rm := range obs.Metrics {
			p, ok := partials[metricID]
			if !ok {
				p = &partial{kind: rm.Kind, counts: models.Distribution{}, allDirect: true}
				partials[metricID] = p
			}
			switch rm.Kind {
			case models.KindScalar:
				p.valueSum += rm.Value
			case models.KindDistribution:
				for label, mass := range rm.Distribution {
					p.counts[label] += mass
				}
			}
			p.confSum += rm.Confidence
			p.sampleSize++
			if rm.Strategy != models.StrategyDirect {
				p.allDirect = false
			}
		}
	}

	metrics := make(map[string]models.ProfileMetric, len(partials))
	for metricID, p := range partials {
		if p.sampleSize == 0 {
			continue
		}

		pm := models.ProfileMetric{
			Kind:       p.kind,
			Confidence: (p.confSum / float64(p.sampleSize)) * a.samplePenalty(p.sampleSize),
			SampleSize: p.sampleSize,
			Strategy:   models.StrategyProxy,
		}
		if p.allDirect {
			pm.Strategy = models.StrategyDirect
		}
		switch p.kind {
		case models.KindScalar:
			pm.Value = p.valueSum / float64(p.sampleSize)
		case models.KindDistribution:
			pm.Distribution = p.counts.Normalize()
		}
		metrics[metricID] = pm
	}

	a.logger.Debug().
		Str("entity_id", entityID).
		Int("observation_count", len(selected)).
		Int("metric_count", len(metrics)).
		Msg("aggregated profile")

	return models.Profile{
		ID:              uuid.New(),
		EntityID:        entityID,
		Window:          window,
		RegistryVersion: reg.Version(),
		Metrics:         metrics,
		BuiltAt:         time.Now().UTC(),
	}
}

// selectWindow filters and orders observations for the window: explicit
// windows filter by timestamp, last-N windows keep the N most recent fixtures.
func (a *Aggregator) selectWindow(window models.Window, observations []models.ResolvedObservation) []models.ResolvedObservation {
	selected := make([]models.ResolvedObservation, 0, len(observations))
	for _, obs := range observations {
		if window.Contains(obs.Timestamp) {
			selected = append(selected, obs)
		}
	}
	sort.Slice(selected, func(i, j int) bool {
		return selected[i].Timestamp.Before(selected[j].Timestamp)
	})
	if window.LastN > 0 && len(selected) > window.LastN {
		selected = selected[len(selected)-window.LastN:]
	}
	return selected
}

// samplePenalty is monotonically non-decreasing in n and caps at 1.0, so
// aggregation can never invent certainty from a thin sample.
func (a *Aggregator) samplePenalty(n int) float64 {
	if a.params.MinSampleSize <= 0 || n >= a.params.MinSampleSize {
		return 1.0
	}
	return float64(n) / float64(a.params.MinSampleSize)
}

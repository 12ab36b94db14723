// Package fitscore computes confidence-aware fit scores between two tactical
// profiles over a weighted subset of canonical metrics.
package fitscore

import (
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aegis-analytics/tacticalfit-service/internal/models"
	"github.com/aegis-analytics/tacticalfit-service/internal/registry"
)

const (
	// weightSumTolerance bounds the accepted float drift when validating that
	// configured weights sum to 1
	weightSumTolerance = 1e-6

	defaultScaleMax = 100.0
)

// Scorer computes fit scores. Deterministic and symmetric under the default
// similarity functions; safe for concurrent use.
type Scorer struct {
	logger zerolog.Logger
}

// NewScorer creates a fit scorer
func NewScorer(logger zerolog.Logger) *Scorer {
	return &Scorer{
		logger: logger.With().Str("component", "fit_scorer").Logger(),
	}
}

// ValidateConfig rejects invalid scoring configurations before any
// computation: unknown metrics, non-positive weights, or weights not summing
// to 1 are all ConfigurationErrors.
func ValidateConfig(cfg models.ScoringConfig, reg *registry.Registry) error {
	if len(cfg.Weights) == 0 {
		return models.NewConfigurationError("scoring config declares no metric weights")
	}
	var sum float64
	for metricID, weight := range cfg.Weights {
		if _, ok := reg.Metric(metricID); !ok {
			return models.NewConfigurationError("scoring config references unknown metric %q", metricID)
		}
		if weight <= 0 {
			return models.NewConfigurationError("scoring config weight for %q must be positive, got %f", metricID, weight)
		}
		sum += weight
	}
	if math.Abs(sum-1.0) > weightSumTolerance {
		return models.NewConfigurationError("scoring config weights sum to %f, must sum to 1", sum)
	}
	if cfg.MinConfidence < 0 || cfg.MinConfidence > 1 {
		return models.NewConfigurationError("scoring config min_confidence %f outside [0,1]", cfg.MinConfidence)
	}
	return nil
}

// Score computes a fit score between two profiles. Metrics absent from either
// profile or below the confidence threshold are excluded and the remaining
// weights renormalized over the used subset; if nothing survives, the run
// fails with ErrNoUsableMetrics rather than returning a misleading zero.
func (s *Scorer) Score(a, b models.Profile, reg *registry.Registry, cfg models.ScoringConfig) (*models.Score, error) {
	if err := ValidateConfig(cfg, reg); err != nil {
		return nil, err
	}
	if a.RegistryVersion != reg.Version() || b.RegistryVersion != reg.Version() {
		return nil, models.NewConfigurationError(
			"profiles built against registry versions %q and %q, scorer runs %q; scores are only comparable within one version",
			a.RegistryVersion, b.RegistryVersion, reg.Version())
	}

	// stable metric order keeps the breakdown deterministic
	metricIDs := make([]string, 0, len(cfg.Weights))
	for metricID := range cfg.Weights {
		metricIDs = append(metricIDs, metricID)
	}
	sort.Strings(metricIDs)

	type usable struct {
		metricID   string
		similarity float64
		confidence float64
	}

	var (
		used           []usable
		excluded       []models.ExcludedMetric
		usedWeight     float64
		excludedWeight float64
	)

	for _, metricID := range metricIDs {
		weight := cfg.Weights[metricID]
		metricA, okA := a.Metrics[metricID]
		metricB, okB := b.Metrics[metricID]

		if !okA || !okB {
			reason := models.ExcludedAbsentInA
			switch {
			case !okA && !okB:
				reason = models.ExcludedAbsentInBoth
			case !okB:
				reason = models.ExcludedAbsentInB
			}
			excluded = append(excluded, models.ExcludedMetric{Metric: metricID, Reason: reason, Weight: weight})
			excludedWeight += weight
			continue
		}

		confidence := math.Min(metricA.Confidence, metricB.Confidence)
		if confidence < cfg.MinConfidence {
			excluded = append(excluded, models.ExcludedMetric{Metric: metricID, Reason: models.ExcludedBelowConfidence, Weight: weight})
			excludedWeight += weight
			continue
		}

		metric, _ := reg.Metric(metricID)
		similarity, err := metricA.MetricValue().Similarity(metricB.MetricValue(), metric.Domain)
		if err != nil {
			return nil, models.NewConfigurationError("similarity for metric %q: %s", metricID, err)
		}

		used = append(used, usable{metricID: metricID, similarity: similarity, confidence: confidence})
		usedWeight += weight
	}

	if len(used) == 0 || usedWeight <= 0 {
		s.logger.Debug().
			Str("entity_a", a.EntityID).
			Str("entity_b", b.EntityID).
			Int("excluded_count", len(excluded)).
			Msg("no usable metrics between profiles")
		return nil, models.ErrNoUsableMetrics
	}

	scaleMax := cfg.ScaleMax
	if scaleMax == 0 {
		scaleMax = defaultScaleMax
	}

	// renormalize over the used subset so exclusions rescale rather than
	// silently zero out the score
	var (
		total         float64
		minConfidence = 1.0
		contributions = make([]models.MetricContribution, 0, len(used))
	)
	for _, u := range used {
		weight := cfg.Weights[u.metricID] / usedWeight
		weighted := u.similarity * weight
		total += weighted
		if u.confidence < minConfidence {
			minConfidence = u.confidence
		}
		contributions = append(contributions, models.MetricContribution{
			Metric:     u.metricID,
			Similarity: u.similarity,
			Weight:     weight,
			Weighted:   weighted,
			Confidence: u.confidence,
		})
	}

	value := total * scaleMax

	// a score built from part of the intended signal is reported as less
	// certain even when the surviving metrics are individually high-confidence
	confidence := minConfidence * (1.0 - excludedWeight)

	score := &models.Score{
		ID:              uuid.New(),
		EntityA:         a.EntityID,
		EntityB:         b.EntityID,
		ProfileAID:      a.ID,
		ProfileBID:      b.ID,
		Value:           value,
		Confidence:      confidence,
		Classification:  models.Classify(value * defaultScaleMax / scaleMax),
		RegistryVersion: reg.Version(),
		Contributions:   contributions,
		Excluded:        excluded,
		ScoredAt:        time.Now().UTC(),
	}

	s.logger.Info().
		Str("entity_a", a.EntityID).
		Str("entity_b", b.EntityID).
		Float64("score", score.Value).
		Float64("confidence", score.Confidence).
		Int("used_count", len(used)).
		Int("excluded_count", len(excluded)).
		Msg("computed fit score")

	return score, nil
}

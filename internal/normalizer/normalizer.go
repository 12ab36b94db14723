// Package normalizer converts raw provider statistic records into canonical
// metric values, applying unit conversion and polarity inversion exactly once
// so downstream components never special-case raw units.
package normalizer

import (
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aegis-analytics/tacticalfit-service/internal/models"
	"github.com/aegis-analytics/tacticalfit-service/internal/registry"
)

// Normalizer resolves canonical metrics from raw observations.
// Pure function of its inputs and the registry; safe for concurrent use.
type Normalizer struct {
	logger zerolog.Logger
}

// New creates a normalizer
func New(logger zerolog.Logger) *Normalizer {
	return &Normalizer{
		logger: logger.With().Str("component", "normalizer").Logger(),
	}
}

// Normalize resolves every registry metric against one raw observation.
// Metrics are processed in registry declaration order so proxy formulas may
// reference metrics resolved earlier in the table. Metrics with no satisfiable
// strategy are absent from the result, never zero.
func (n *Normalizer) Normalize(obs models.RawObservation, reg *registry.Registry) models.ResolvedObservation {
	availableStats := obs.AvailableStats()
	resolvedSet := make(map[string]bool)
	resolved := models.ResolvedObservation{
		EntityID:        obs.EntityID,
		FixtureID:       obs.FixtureID,
		Timestamp:       obs.Timestamp,
		RegistryVersion: reg.Version(),
		Metrics:         make(map[string]models.ResolvedMetric),
	}

	for _, metric := range reg.Metrics() {
		strategy, ok := reg.Resolve(metric.ID, availableStats, resolvedSet)
		if !ok {
			continue
		}

		var (
			value    models.ResolvedMetric
			resolvOK bool
		)
		if strategy.Type == registry.Direct {
			value, resolvOK = n.resolveDirect(obs, metric, strategy)
		} else {
			value, resolvOK = n.resolveProxy(resolved.Metrics, obs, metric, strategy)
		}
		if !resolvOK {
			continue
		}

		resolved.Metrics[metric.ID] = value
		resolvedSet[metric.ID] = true
	}

	n.logger.Debug().
		Str("entity_id", obs.EntityID).
		Str("fixture_id", obs.FixtureID).
		Int("resolved_count", len(resolved.Metrics)).
		Int("metric_count", len(reg.Metrics())).
		Msg("normalized observation")

	return resolved
}

// resolveDirect copies the raw value verbatim at confidence 1.0, after unit
// scaling and polarity inversion across the metric's domain.
func (n *Normalizer) resolveDirect(obs models.RawObservation, metric registry.Metric, strategy registry.Strategy) (models.ResolvedMetric, bool) {
	if metric.Kind == models.KindDistribution {
		label, ok := obs.Labels[strategy.Source]
		if !ok || label == "" {
			return models.ResolvedMetric{}, false
		}
		return models.ResolvedMetric{
			Kind:         models.KindDistribution,
			Distribution: models.Distribution{label: 1.0},
			Confidence:   1.0,
			Strategy:     models.StrategyDirect,
			Source:       strategy.Source,
		}, true
	}

	raw, ok := obs.Stats[strategy.Source]
	if !ok {
		return models.ResolvedMetric{}, false
	}

	scaled := raw
	if strategy.Scale != 0 {
		scaled = raw.Mul(decimal.NewFromFloat(strategy.Scale))
	}
	value := scaled.InexactFloat64()
	if strategy.Invert {
		// polarity flip across the domain, e.g. goals conceded -> defensive solidity
		value = metric.Domain.Max + metric.Domain.Min - value
	}
	value = metric.Domain.Clamp(value)

	return models.ResolvedMetric{
		Kind:       models.KindScalar,
		Value:      value,
		Confidence: 1.0,
		Strategy:   models.StrategyDirect,
		Source:     strategy.Source,
	}, true
}

// resolveProxy evaluates the declared formula over raw statistics and
// already-resolved metrics. Confidence is the strategy's declared weight
// discounted by the mean confidence of any metric inputs.
func (n *Normalizer) resolveProxy(resolved map[string]models.ResolvedMetric, obs models.RawObservation, metric registry.Metric, strategy registry.Strategy) (models.ResolvedMetric, bool) {
	numerator, confSum, confCount, ok := n.sumTerms(strategy.Formula.Terms, resolved, obs)
	if !ok {
		return models.ResolvedMetric{}, false
	}

	value := numerator
	if strategy.Formula.Op == registry.Ratio {
		denominator, dConfSum, dConfCount, ok := n.sumTerms(strategy.Formula.Denominator, resolved, obs)
		if !ok {
			return models.ResolvedMetric{}, false
		}
		if denominator == 0 {
			// a zero denominator carries no information; treat as a data gap
			n.logger.Debug().
				Str("entity_id", obs.EntityID).
				Str("metric", metric.ID).
				Msg("proxy ratio denominator is zero, marking unavailable")
			return models.ResolvedMetric{}, false
		}
		value = numerator / denominator
		confSum += dConfSum
		confCount += dConfCount
	}

	confidence := strategy.Confidence
	if confCount > 0 {
		confidence *= confSum / float64(confCount)
	}

	return models.ResolvedMetric{
		Kind:       models.KindScalar,
		Value:      metric.Domain.Clamp(value),
		Confidence: confidence,
		Strategy:   models.StrategyProxy,
		Source:     "proxy:" + string(strategy.Formula.Op),
	}, true
}

// sumTerms evaluates a term list, accumulating the confidence of metric
// inputs (raw statistics count as confidence 1.0 and are not accumulated).
func (n *Normalizer) sumTerms(terms []registry.Term, resolved map[string]models.ResolvedMetric, obs models.RawObservation) (sum, confSum float64, confCount int, ok bool) {
	for _, term := range terms {
		if ref, isMetric := term.MetricRef(); isMetric {
			input, present := resolved[ref]
			if !present || input.Kind != models.KindScalar {
				return 0, 0, 0, false
			}
			sum += term.Coeff * input.Value
			confSum += input.Confidence
			confCount++
			continue
		}

		ref, _ := term.StatRef()
		raw, present := obs.Stats[ref]
		if !present {
			return 0, 0, 0, false
		}
		sum += term.Coeff * raw.InexactFloat64()
	}
	return sum, confSum, confCount, true
}

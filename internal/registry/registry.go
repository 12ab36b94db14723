// Package registry holds the versioned catalogue of canonical tactical
// metrics and their resolution strategies. A registry is loaded once at
// startup, validated, and read-only thereafter; it is passed explicitly into
// every component call so concurrent runs against different versions cannot
// interfere.
package registry

import (
	"strings"

	"github.com/aegis-analytics/tacticalfit-service/internal/models"
)

// StrategyType discriminates resolution strategies
type StrategyType string

const (
	// Direct reads the metric verbatim from one provider statistic
	Direct StrategyType = "direct"
	// Proxy approximates the metric from other statistics or metrics
	Proxy StrategyType = "proxy"
)

// FormulaOp is the closed set of proxy operations
type FormulaOp string

const (
	// WeightedSum is a linear combination of the terms
	WeightedSum FormulaOp = "weighted_sum"
	// Ratio divides the summed numerator terms by the summed denominator terms
	Ratio FormulaOp = "ratio"
)

// RefStatPrefix and RefMetricPrefix namespace formula input references
const (
	RefStatPrefix   = "stat:"
	RefMetricPrefix = "metric:"
)

// Term is one input to a proxy formula: a namespaced reference and coefficient
type Term struct {
	Ref   string  `mapstructure:"ref" json:"ref"`
	Coeff float64 `mapstructure:"coeff" json:"coeff"`
}

// MetricRef returns the canonical metric id if the term references a metric
func (t Term) MetricRef() (string, bool) {
	if strings.HasPrefix(t.Ref, RefMetricPrefix) {
		return strings.TrimPrefix(t.Ref, RefMetricPrefix), true
	}
	return "", false
}

// StatRef returns the provider statistic id if the term references a raw statistic
func (t Term) StatRef() (string, bool) {
	if strings.HasPrefix(t.Ref, RefStatPrefix) {
		return strings.TrimPrefix(t.Ref, RefStatPrefix), true
	}
	return "", false
}

// Formula is the closed expression representation for proxy strategies,
// validated once at load time rather than evaluated as arbitrary code.
type Formula struct {
	Op          FormulaOp `mapstructure:"op" json:"op"`
	Terms       []Term    `mapstructure:"terms" json:"terms"`
	Denominator []Term    `mapstructure:"denominator" json:"denominator,omitempty"`
}

// AllTerms returns every term of the formula, denominator included
func (f Formula) AllTerms() []Term {
	terms := make([]Term, 0, len(f.Terms)+len(f.Denominator))
	terms = append(terms, f.Terms...)
	terms = append(terms, f.Denominator...)
	return terms
}

// Strategy is one way of resolving a canonical metric from provider data
type Strategy struct {
	Type StrategyType `mapstructure:"type" json:"type"`

	// Direct fields
	Source string  `mapstructure:"source" json:"source,omitempty"`
	Scale  float64 `mapstructure:"scale" json:"scale,omitempty"` // unit conversion multiplier, 0 means 1
	Invert bool    `mapstructure:"invert" json:"invert,omitempty"`

	// Proxy fields
	Confidence float64  `mapstructure:"confidence" json:"confidence,omitempty"`
	Formula    *Formula `mapstructure:"formula" json:"formula,omitempty"`
}

// ConfidenceWeight returns the declared confidence of the strategy.
// Direct strategies are always 1.0 by invariant.
func (s Strategy) ConfidenceWeight() float64 {
	if s.Type == Direct {
		return 1.0
	}
	return s.Confidence
}

// Kind maps the strategy to its observation-level tag
func (s Strategy) Kind() models.StrategyKind {
	if s.Type == Direct {
		return models.StrategyDirect
	}
	return models.StrategyProxy
}

// Metric is one canonical tactical metric with its ordered strategies
type Metric struct {
	ID         string            `mapstructure:"id" json:"id"`
	Kind       models.MetricKind `mapstructure:"kind" json:"kind"`
	Unit       string            `mapstructure:"unit" json:"unit"`
	Domain     models.Domain     `mapstructure:"domain" json:"domain"`
	Strategies []Strategy        `mapstructure:"strategies" json:"strategies"`
}

// Registry is the immutable metric catalogue for one version tag
type Registry struct {
	version string
	metrics []Metric
	index   map[string]int
}

// New validates the metric table and builds a registry.
// Declaration order is preserved: proxy formulas may only reference metrics,
// and the normalizer resolves metrics in this order.
func New(version string, metrics []Metric) (*Registry, error) {
	if version == "" {
		return nil, models.NewConfigurationError("registry version tag is required")
	}
	if len(metrics) == 0 {
		return nil, models.NewConfigurationError("registry declares no metrics")
	}

	index := make(map[string]int, len(metrics))
	for i, m := range metrics {
		if m.ID == "" {
			return nil, models.NewConfigurationError("metric at position %d has no id", i)
		}
		if _, dup := index[m.ID]; dup {
			return nil, models.NewConfigurationError("duplicate metric id %q", m.ID)
		}
		index[m.ID] = i
	}

	r := &Registry{version: version, metrics: metrics, index: index}
	for _, m := range metrics {
		if err := r.validateMetric(m); err != nil {
			return nil, err
		}
	}
	if err := r.checkAcyclic(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Registry) validateMetric(m Metric) error {
	switch m.Kind {
	case models.KindScalar:
		if m.Domain.Width() <= 0 {
			return models.NewConfigurationError("metric %q declares an empty domain [%f, %f]", m.ID, m.Domain.Min, m.Domain.Max)
		}
	case models.KindDistribution:
	default:
		return models.NewConfigurationError("metric %q has unknown kind %q", m.ID, m.Kind)
	}

	if len(m.Strategies) == 0 {
		return models.NewConfigurationError("metric %q declares no resolution strategies", m.ID)
	}

	for i, s := range m.Strategies {
		switch s.Type {
		case Direct:
			if s.Source == "" {
				return models.NewConfigurationError("metric %q strategy %d: direct strategy requires a source statistic", m.ID, i)
			}
		case Proxy:
			if m.Kind == models.KindDistribution {
				return models.NewConfigurationError("metric %q: distribution metrics only support direct strategies", m.ID)
			}
			if s.Confidence <= 0 || s.Confidence >= 1 {
				return models.NewConfigurationError("metric %q strategy %d: proxy confidence %f outside (0,1)", m.ID, i, s.Confidence)
			}
			if s.Formula == nil || len(s.Formula.Terms) == 0 {
				return models.NewConfigurationError("metric %q strategy %d: proxy strategy requires a formula with terms", m.ID, i)
			}
			switch s.Formula.Op {
			case WeightedSum:
				if len(s.Formula.Denominator) != 0 {
					return models.NewConfigurationError("metric %q strategy %d: weighted_sum does not take a denominator", m.ID, i)
				}
			case Ratio:
				if len(s.Formula.Denominator) == 0 {
					return models.NewConfigurationError("metric %q strategy %d: ratio requires denominator terms", m.ID, i)
				}
			default:
				return models.NewConfigurationError("metric %q strategy %d: unknown formula op %q", m.ID, i, s.Formula.Op)
			}
			for _, term := range s.Formula.AllTerms() {
				if term.Coeff == 0 {
					return models.NewConfigurationError("metric %q term %q requires a non-zero coeff", m.ID, term.Ref)
				}
				if ref, ok := term.MetricRef(); ok {
					if _, known := r.index[ref]; !known {
						return models.NewConfigurationError("metric %q references unknown metric %q", m.ID, ref)
					}
					continue
				}
				if _, ok := term.StatRef(); !ok {
					return models.NewConfigurationError("metric %q has term ref %q without stat: or metric: prefix", m.ID, term.Ref)
				}
			}
		default:
			return models.NewConfigurationError("metric %q strategy %d has unknown type %q", m.ID, i, s.Type)
		}
	}
	return nil
}

// checkAcyclic rejects proxy dependency cycles with depth-first search over
// the union of metric references across every strategy of a metric.
func (r *Registry) checkAcyclic() error {
	const (
		unvisited = 0
		inStack   = 1
		done      = 2
	)
	state := make(map[string]int, len(r.metrics))

	var visit func(id string, path []string) error
	visit = func(id string, path []string) error {
		switch state[id] {
		case inStack:
			return models.NewConfigurationError("cyclic proxy dependency: %s -> %s", strings.Join(path, " -> "), id)
		case done:
			return nil
		}
		state[id] = inStack
		m := r.metrics[r.index[id]]
		for _, s := range m.Strategies {
			if s.Type != Proxy {
				continue
			}
			for _, term := range s.Formula.AllTerms() {
				if ref, ok := term.MetricRef(); ok {
					if err := visit(ref, append(path, id)); err != nil {
						return err
					}
				}
			}
		}
		state[id] = done
		return nil
	}

	for _, m := range r.metrics {
		if err := visit(m.ID, nil); err != nil {
			return err
		}
	}
	return nil
}

// Version returns the registry's version tag
func (r *Registry) Version() string { return r.version }

// Metrics returns the metric table in declaration order
func (r *Registry) Metrics() []Metric { return r.metrics }

// Metric looks up one canonical metric by id
func (r *Registry) Metric(id string) (Metric, bool) {
	i, ok := r.index[id]
	if !ok {
		return Metric{}, false
	}
	return r.metrics[i], true
}

// Resolve selects the first strategy, in declared preference order, whose
// required inputs are all present. Stat references must appear in
// availableStats; metric references must already be resolved. A false return
// marks the metric Unavailable for that observation, which is a first-class
// outcome rather than an error.
func (r *Registry) Resolve(metricID string, availableStats map[string]bool, resolvedMetrics map[string]bool) (Strategy, bool) {
	m, ok := r.Metric(metricID)
	if !ok {
		return Strategy{}, false
	}

	for _, s := range m.Strategies {
		if s.Type == Direct {
			if availableStats[s.Source] {
				return s, true
			}
			continue
		}

		satisfied := true
		for _, term := range s.Formula.AllTerms() {
			if ref, ok := term.MetricRef(); ok {
				if !resolvedMetrics[ref] {
					satisfied = false
					break
				}
				continue
			}
			ref, _ := term.StatRef()
			if !availableStats[ref] {
				satisfied = false
				break
			}
		}
		if satisfied {
			return s, true
		}
	}
	return Strategy{}, false
}

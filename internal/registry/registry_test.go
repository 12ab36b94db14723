package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegis-analytics/tacticalfit-service/internal/models"
)

// testMetrics returns a small valid metric table
func testMetrics() []Metric {
	return []Metric{
		{
			ID:     "possession",
			Kind:   models.KindScalar,
			Unit:   "percent",
			Domain: models.Domain{Min: 0, Max: 100},
			Strategies: []Strategy{
				{Type: Direct, Source: "possession_pct"},
			},
		},
		{
			ID:     "pressing_intensity",
			Kind:   models.KindScalar,
			Unit:   "ratio",
			Domain: models.Domain{Min: 0, Max: 1},
			Strategies: []Strategy{
				{Type: Direct, Source: "pressing_direct"},
				{
					Type:       Proxy,
					Confidence: 0.7,
					Formula: &Formula{
						Op: Ratio,
						Terms: []Term{
							{Ref: "stat:tackles", Coeff: 1},
							{Ref: "stat:interceptions", Coeff: 1},
						},
						Denominator: []Term{
							{Ref: "stat:opponent_passes_total", Coeff: 1},
						},
					},
				},
			},
		},
		{
			ID:     "attacking_intent",
			Kind:   models.KindScalar,
			Unit:   "composite",
			Domain: models.Domain{Min: 0, Max: 100},
			Strategies: []Strategy{
				{
					Type:       Proxy,
					Confidence: 0.55,
					Formula: &Formula{
						Op: WeightedSum,
						Terms: []Term{
							{Ref: "metric:possession", Coeff: 0.5},
							{Ref: "stat:shots_total", Coeff: 1.25},
						},
					},
				},
			},
		},
		{
			ID:     "formation_usage",
			Kind:   models.KindDistribution,
			Unit:   "formation_label",
			Domain: models.Domain{Min: 0, Max: 1},
			Strategies: []Strategy{
				{Type: Direct, Source: "formation"},
			},
		},
	}
}

// TestNew_Valid tests registry construction with a valid table
func TestNew_Valid(t *testing.T) {
	reg, err := New("v-test", testMetrics())

	require.NoError(t, err)
	assert.Equal(t, "v-test", reg.Version())
	assert.Len(t, reg.Metrics(), 4)

	m, ok := reg.Metric("possession")
	assert.True(t, ok)
	assert.Equal(t, models.KindScalar, m.Kind)
}

// TestNew_MissingVersion tests that an empty version tag is rejected
func TestNew_MissingVersion(t *testing.T) {
	_, err := New("", testMetrics())

	require.Error(t, err)
	assert.True(t, models.IsConfigurationError(err))
}

// TestNew_DuplicateMetric tests that duplicate metric ids are rejected
func TestNew_DuplicateMetric(t *testing.T) {
	metrics := testMetrics()
	metrics = append(metrics, metrics[0])

	_, err := New("v-test", metrics)

	require.Error(t, err)
	assert.True(t, models.IsConfigurationError(err))
	assert.Contains(t, err.Error(), "duplicate metric id")
}

// TestNew_UnknownMetricRef tests that a proxy referencing an unknown metric fails
func TestNew_UnknownMetricRef(t *testing.T) {
	metrics := testMetrics()
	metrics[2].Strategies[0].Formula.Terms[0].Ref = "metric:does_not_exist"

	_, err := New("v-test", metrics)

	require.Error(t, err)
	assert.True(t, models.IsConfigurationError(err))
	assert.Contains(t, err.Error(), "unknown metric")
}

// TestNew_SelfCycle tests that a proxy whose inputs include itself fails at load
func TestNew_SelfCycle(t *testing.T) {
	metrics := []Metric{
		{
			ID:     "x",
			Kind:   models.KindScalar,
			Domain: models.Domain{Min: 0, Max: 1},
			Strategies: []Strategy{
				{
					Type:       Proxy,
					Confidence: 0.5,
					Formula: &Formula{
						Op:    WeightedSum,
						Terms: []Term{{Ref: "metric:x", Coeff: 1}},
					},
				},
			},
		},
	}

	_, err := New("v-test", metrics)

	require.Error(t, err)
	assert.True(t, models.IsConfigurationError(err))
	assert.Contains(t, err.Error(), "cyclic proxy dependency")
}

// TestNew_TransitiveCycle tests cycle detection across two metrics
func TestNew_TransitiveCycle(t *testing.T) {
	proxyOn := func(id, ref string) Metric {
		return Metric{
			ID:     id,
			Kind:   models.KindScalar,
			Domain: models.Domain{Min: 0, Max: 1},
			Strategies: []Strategy{
				{
					Type:       Proxy,
					Confidence: 0.5,
					Formula: &Formula{
						Op:    WeightedSum,
						Terms: []Term{{Ref: "metric:" + ref, Coeff: 1}},
					},
				},
			},
		}
	}

	_, err := New("v-test", []Metric{proxyOn("a", "b"), proxyOn("b", "a")})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "cyclic proxy dependency")
}

// TestNew_ProxyConfidenceBounds tests that proxy confidence must sit strictly inside (0,1)
func TestNew_ProxyConfidenceBounds(t *testing.T) {
	for _, confidence := range []float64{0, 1, 1.5, -0.1} {
		metrics := testMetrics()
		metrics[1].Strategies[1].Confidence = confidence

		_, err := New("v-test", metrics)

		require.Error(t, err, "confidence %f should be rejected", confidence)
		assert.True(t, models.IsConfigurationError(err))
	}
}

// TestNew_DistributionProxyRejected tests that distribution metrics cannot use proxies
func TestNew_DistributionProxyRejected(t *testing.T) {
	metrics := testMetrics()
	metrics[3].Strategies = []Strategy{
		{
			Type:       Proxy,
			Confidence: 0.5,
			Formula:    &Formula{Op: WeightedSum, Terms: []Term{{Ref: "stat:formation", Coeff: 1}}},
		},
	}

	_, err := New("v-test", metrics)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "only support direct strategies")
}

// TestNew_EmptyDomain tests that scalar metrics require a non-empty domain
func TestNew_EmptyDomain(t *testing.T) {
	metrics := testMetrics()
	metrics[0].Domain = models.Domain{Min: 5, Max: 5}

	_, err := New("v-test", metrics)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty domain")
}

// TestResolve_PreferenceOrder tests that the first satisfiable strategy wins
func TestResolve_PreferenceOrder(t *testing.T) {
	reg, err := New("v-test", testMetrics())
	require.NoError(t, err)

	// direct source present: direct wins even though the proxy is satisfiable
	strategy, ok := reg.Resolve("pressing_intensity", map[string]bool{
		"pressing_direct":       true,
		"tackles":               true,
		"interceptions":         true,
		"opponent_passes_total": true,
	}, nil)
	require.True(t, ok)
	assert.Equal(t, Direct, strategy.Type)
	assert.Equal(t, 1.0, strategy.ConfidenceWeight())

	// direct source missing: falls through to the proxy
	strategy, ok = reg.Resolve("pressing_intensity", map[string]bool{
		"tackles":               true,
		"interceptions":         true,
		"opponent_passes_total": true,
	}, nil)
	require.True(t, ok)
	assert.Equal(t, Proxy, strategy.Type)
	assert.Equal(t, 0.7, strategy.ConfidenceWeight())
}

// TestResolve_Unavailable tests that an unsatisfiable metric resolves to nothing
func TestResolve_Unavailable(t *testing.T) {
	reg, err := New("v-test", testMetrics())
	require.NoError(t, err)

	_, ok := reg.Resolve("pressing_intensity", map[string]bool{"tackles": true}, nil)
	assert.False(t, ok)

	_, ok = reg.Resolve("unknown_metric", map[string]bool{}, nil)
	assert.False(t, ok)
}

// TestResolve_MetricInputs tests that metric references require prior resolution
func TestResolve_MetricInputs(t *testing.T) {
	reg, err := New("v-test", testMetrics())
	require.NoError(t, err)

	stats := map[string]bool{"shots_total": true}

	_, ok := reg.Resolve("attacking_intent", stats, nil)
	assert.False(t, ok, "possession not resolved yet")

	strategy, ok := reg.Resolve("attacking_intent", stats, map[string]bool{"possession": true})
	require.True(t, ok)
	assert.Equal(t, Proxy, strategy.Type)
}

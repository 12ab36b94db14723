package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegis-analytics/tacticalfit-service/internal/models"
)

// writeRegistryFile writes a registry YAML into a temp dir
func writeRegistryFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "registry.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// TestLoad_Valid tests loading a valid registry file
func TestLoad_Valid(t *testing.T) {
	path := writeRegistryFile(t, `
version: "v-file"
metrics:
  - id: possession
    kind: scalar
    unit: percent
    domain: { min: 0, max: 100 }
    strategies:
      - type: direct
        source: possession_pct
  - id: pressing_intensity
    kind: scalar
    unit: ratio
    domain: { min: 0, max: 1 }
    strategies:
      - type: proxy
        confidence: 0.7
        formula:
          op: ratio
          terms:
            - { ref: "stat:tackles", coeff: 1 }
          denominator:
            - { ref: "stat:opponent_passes_total", coeff: 1 }
  - id: formation_usage
    kind: distribution
    unit: formation_label
    domain: { min: 0, max: 1 }
    strategies:
      - type: direct
        source: formation
`)

	reg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "v-file", reg.Version())
	assert.Len(t, reg.Metrics(), 3)

	m, ok := reg.Metric("pressing_intensity")
	require.True(t, ok)
	require.Len(t, m.Strategies, 1)
	assert.Equal(t, Proxy, m.Strategies[0].Type)
	assert.Equal(t, 0.7, m.Strategies[0].Confidence)
	require.NotNil(t, m.Strategies[0].Formula)
	assert.Equal(t, Ratio, m.Strategies[0].Formula.Op)
}

// TestLoad_CyclicFile tests that a cyclic table in the file fails before any processing
func TestLoad_CyclicFile(t *testing.T) {
	path := writeRegistryFile(t, `
version: "v-cycle"
metrics:
  - id: x
    kind: scalar
    domain: { min: 0, max: 1 }
    strategies:
      - type: proxy
        confidence: 0.5
        formula:
          op: weighted_sum
          terms:
            - { ref: "metric:x", coeff: 1 }
`)

	_, err := Load(path)

	require.Error(t, err)
	assert.True(t, models.IsConfigurationError(err))
	assert.Contains(t, err.Error(), "cyclic proxy dependency")
}

// TestLoad_MissingFile tests load failure on a nonexistent path
func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

// TestLoad_EmptyPath tests that an empty path is a configuration error
func TestLoad_EmptyPath(t *testing.T) {
	_, err := Load("")

	require.Error(t, err)
	assert.True(t, models.IsConfigurationError(err))
}

// TestLoad_ShippedRegistry tests that the registry shipped in config/ is valid
func TestLoad_ShippedRegistry(t *testing.T) {
	reg, err := Load(filepath.Join("..", "..", "config", "registry.yaml"))

	require.NoError(t, err)
	assert.NotEmpty(t, reg.Version())
	assert.NotEmpty(t, reg.Metrics())
}

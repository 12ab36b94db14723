package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoadConfig_Defaults tests loading configuration with default values
func TestLoadConfig_Defaults(t *testing.T) {
	// Load config without a file (should use defaults)
	config, err := LoadConfig("")

	require.NoError(t, err)
	require.NotNil(t, config)

	// Verify server defaults
	assert.Equal(t, 8082, config.Server.Port)
	assert.Equal(t, 30*time.Second, config.Server.ReadTimeout)
	assert.Equal(t, 30*time.Second, config.Server.WriteTimeout)

	// Verify Kafka defaults
	assert.Equal(t, []string{"localhost:9092"}, config.Kafka.Brokers)
	assert.Equal(t, "raw_observations", config.Kafka.Topic)
	assert.Equal(t, "tacticalfit", config.Kafka.GroupID)

	// Verify Redis defaults
	assert.Equal(t, "localhost:6379", config.Redis.Addr)
	assert.Equal(t, "", config.Redis.Password)
	assert.Equal(t, 0, config.Redis.DB)
	assert.Equal(t, 30*time.Minute, config.Redis.TTL)

	// Verify registry and aggregation defaults
	assert.Equal(t, "config/registry.yaml", config.Registry.Path)
	assert.Equal(t, 5, config.Aggregation.MinSampleSize)

	// Verify scoring defaults
	assert.Equal(t, 0.3, config.Scoring.MinConfidence)
	assert.NotEmpty(t, config.Scoring.Weights)
	var sum float64
	for _, w := range config.Scoring.Weights {
		sum += w
	}
	assert.InDelta(t, 1.0, sum, 1e-9, "default scoring weights must sum to 1")

	// Verify logging defaults
	assert.Equal(t, "info", config.Logging.Level)
	assert.Equal(t, "json", config.Logging.Format)
}

// TestLoadConfig_WithFile tests loading configuration from file
func TestLoadConfig_WithFile(t *testing.T) {
	// Create temporary config file
	content := `
server:
  port: 9090
redis:
  addr: redis.internal:6379
  ttl: 1h
aggregation:
  min_sample_size: 8
scoring:
  min_confidence: 0.5
logging:
  level: debug
  format: console
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	config, err := LoadConfig(path)

	require.NoError(t, err)
	assert.Equal(t, 9090, config.Server.Port)
	assert.Equal(t, "redis.internal:6379", config.Redis.Addr)
	assert.Equal(t, time.Hour, config.Redis.TTL)
	assert.Equal(t, 8, config.Aggregation.MinSampleSize)
	assert.Equal(t, 0.5, config.Scoring.MinConfidence)
	assert.Equal(t, "debug", config.Logging.Level)
	assert.Equal(t, "console", config.Logging.Format)

	// Unset keys keep their defaults
	assert.Equal(t, "raw_observations", config.Kafka.Topic)
}

// TestLoadConfig_MissingFile tests load failure on a nonexistent path
func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

// TestToScoringConfig tests conversion to the scorer's configuration
func TestToScoringConfig(t *testing.T) {
	cfg := ScoringConfig{
		Weights:       map[string]float64{"possession": 0.7, "shot_volume": 0.3},
		MinConfidence: 0.4,
	}

	scoring := cfg.ToScoringConfig()

	assert.Equal(t, 0.4, scoring.MinConfidence)
	assert.Equal(t, 0.7, scoring.Weights["possession"])

	// the conversion copies the map rather than sharing it
	scoring.Weights["possession"] = 0.1
	assert.Equal(t, 0.7, cfg.Weights["possession"])
}

// TestToAggregatorParams tests conversion to aggregation parameters
func TestToAggregatorParams(t *testing.T) {
	cfg := AggregationConfig{MinSampleSize: 6}
	assert.Equal(t, 6, cfg.ToAggregatorParams().MinSampleSize)
}

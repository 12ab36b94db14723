package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/aegis-analytics/tacticalfit-service/internal/aggregator"
	"github.com/aegis-analytics/tacticalfit-service/internal/models"
)

// Config holds all configuration for tacticalfit-service
type Config struct {
	Server      ServerConfig
	Kafka       KafkaConfig
	Redis       RedisConfig
	Registry    RegistryConfig
	Aggregation AggregationConfig
	Scoring     ScoringConfig
	Logging     LoggingConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig holds Kafka configuration
type KafkaConfig struct {
	Brokers []string
	Topic   string // Topic to consume from (raw_observations)
	GroupID string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration // cache TTL for derived profiles/scores
}

// RegistryConfig points at the declarative metric table
type RegistryConfig struct {
	Path string
}

// AggregationConfig holds profile aggregation parameters
type AggregationConfig struct {
	MinSampleSize int // below this, aggregated confidence is penalized
}

// ScoringConfig holds the default fit-scoring configuration, used when a
// scoring request does not carry its own
type ScoringConfig struct {
	Weights       map[string]float64
	MinConfidence float64
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("server.port", 8082)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)

	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "raw_observations")
	v.SetDefault("kafka.group_id", "tacticalfit")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 30*time.Minute)

	v.SetDefault("registry.path", "config/registry.yaml")

	v.SetDefault("aggregation.min_sample_size", 5)

	v.SetDefault("scoring.weights", map[string]float64{
		"possession":         0.20,
		"pressing_intensity": 0.20,
		"directness":         0.15,
		"defensive_solidity": 0.15,
		"attacking_output":   0.15,
		"formation_usage":    0.15,
	})
	v.SetDefault("scoring.min_confidence", 0.3)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Read config file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Override with environment variables
	v.SetEnvPrefix("TACTICALFIT")
	v.AutomaticEnv()
	// Replace . with _ for environment variables
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Unmarshal to struct
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

// ToScoringConfig converts config to the default scoring configuration
func (c *ScoringConfig) ToScoringConfig() models.ScoringConfig {
	weights := make(map[string]float64, len(c.Weights))
	for metric, weight := range c.Weights {
		weights[metric] = weight
	}
	return models.ScoringConfig{
		Weights:       weights,
		MinConfidence: c.MinConfidence,
	}
}

// ToAggregatorParams converts config to aggregation parameters
func (c *AggregationConfig) ToAggregatorParams() aggregator.Params {
	return aggregator.Params{
		MinSampleSize: c.MinSampleSize,
	}
}

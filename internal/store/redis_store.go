// Package store persists raw observations and caches derived profiles and
// scores in Redis. Profiles and scores are recompute-on-demand artifacts, so
// cache entries carry a TTL; raw observations are the ingested source of
// truth and are stored without one.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/aegis-analytics/tacticalfit-service/internal/models"
)

// RedisStore stores observations and caches profiles/scores in Redis
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// RedisStoreConfig holds Redis store configuration
type RedisStoreConfig struct {
	Addr     string // e.g., "localhost:6379"
	Password string
	DB       int
	TTL      time.Duration // cache TTL for derived profiles and scores
}

// NewRedisStore creates a new Redis store
func NewRedisStore(config RedisStoreConfig, logger zerolog.Logger) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	return &RedisStore{
		client: client,
		ttl:    config.TTL,
		logger: logger.With().Str("component", "redis_store").Logger(),
	}
}

func observationKey(entityID, fixtureID string) string {
	return fmt.Sprintf("obs:%s:%s", entityID, fixtureID)
}

func profileKey(entityID string, window models.Window, registryVersion string) string {
	return fmt.Sprintf("profile:%s:%s:%s", entityID, window.Key(), registryVersion)
}

// SaveObservations stores a batch of raw observations, one key per
// (entity, fixture). Re-ingesting the same fixture overwrites identically,
// so ingestion retries are idempotent.
func (s *RedisStore) SaveObservations(ctx context.Context, observations []models.RawObservation) error {
	if len(observations) == 0 {
		return nil
	}

	pipe := s.client.Pipeline()
	for _, obs := range observations {
		data, err := json.Marshal(obs)
		if err != nil {
			return fmt.Errorf("failed to marshal observation %s/%s: %w", obs.EntityID, obs.FixtureID, err)
		}
		pipe.Set(ctx, observationKey(obs.EntityID, obs.FixtureID), data, 0)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to execute pipeline: %w", err)
	}

	s.logger.Info().
		Int("count", len(observations)).
		Msg("stored raw observations")

	return nil
}

// ObservationsByEntity retrieves every stored observation for one entity.
// Window filtering is applied downstream by the aggregator.
func (s *RedisStore) ObservationsByEntity(ctx context.Context, entityID string) ([]models.RawObservation, error) {
	pattern := fmt.Sprintf("obs:%s:*", entityID)

	var cursor uint64
	var keys []string
	for {
		var scanKeys []string
		var err error
		scanKeys, cursor, err = s.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan keys: %w", err)
		}
		keys = append(keys, scanKeys...)
		if cursor == 0 {
			break
		}
	}

	observations := make([]models.RawObservation, 0, len(keys))
	for _, key := range keys {
		data, err := s.client.Get(ctx, key).Bytes()
		if err != nil {
			s.logger.Warn().Err(err).Str("key", key).Msg("failed to get key")
			continue
		}

		var obs models.RawObservation
		if err := json.Unmarshal(data, &obs); err != nil {
			s.logger.Warn().Err(err).Str("key", key).Msg("failed to unmarshal observation")
			continue
		}
		observations = append(observations, obs)
	}

	return observations, nil
}

// SaveProfile caches a derived profile under its entity, window and registry version
func (s *RedisStore) SaveProfile(ctx context.Context, profile *models.Profile) error {
	key := profileKey(profile.EntityID, profile.Window, profile.RegistryVersion)

	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}
	if err := s.client.Set(ctx, key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set in Redis: %w", err)
	}

	s.logger.Debug().
		Str("key", key).
		Dur("ttl", s.ttl).
		Msg("cached profile")

	return nil
}

// GetProfile retrieves a cached profile, keyed by entity, window and registry
// version so two registry versions can never serve each other's profiles.
func (s *RedisStore) GetProfile(ctx context.Context, entityID string, window models.Window, registryVersion string) (*models.Profile, error) {
	key := profileKey(entityID, window, registryVersion)

	data, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, fmt.Errorf("profile not found in cache")
	} else if err != nil {
		return nil, fmt.Errorf("failed to get from Redis: %w", err)
	}

	var profile models.Profile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("failed to unmarshal profile: %w", err)
	}
	return &profile, nil
}

// SaveScore caches a computed score by its id
func (s *RedisStore) SaveScore(ctx context.Context, score *models.Score) error {
	key := fmt.Sprintf("score:%s", score.ID)

	data, err := json.Marshal(score)
	if err != nil {
		return fmt.Errorf("failed to marshal score: %w", err)
	}
	if err := s.client.Set(ctx, key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set in Redis: %w", err)
	}

	s.logger.Debug().
		Str("key", key).
		Msg("cached score")

	return nil
}

// GetScore retrieves a cached score by id
func (s *RedisStore) GetScore(ctx context.Context, id string) (*models.Score, error) {
	key := fmt.Sprintf("score:%s", id)

	data, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, fmt.Errorf("score not found in cache")
	} else if err != nil {
		return nil, fmt.Errorf("failed to get from Redis: %w", err)
	}

	var score models.Score
	if err := json.Unmarshal(data, &score); err != nil {
		return nil, fmt.Errorf("failed to unmarshal score: %w", err)
	}
	return &score, nil
}

// Ping checks the Redis connection
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}

package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/aegis-analytics/tacticalfit-service/internal/metrics"
	"github.com/aegis-analytics/tacticalfit-service/internal/models"
	"github.com/aegis-analytics/tacticalfit-service/internal/service"
)

// KafkaConsumer consumes raw observation batches from the external
// data-retrieval collaborator and stores them for on-demand profiling.
// The core never issues network calls toward the provider itself.
type KafkaConsumer struct {
	reader *kafka.Reader
	store  service.Store
	logger zerolog.Logger
}

// KafkaConsumerConfig holds Kafka consumer configuration
type KafkaConsumerConfig struct {
	Brokers []string // e.g., ["localhost:9092"]
	Topic   string   // e.g., "raw_observations"
	GroupID string   // e.g., "tacticalfit"
}

// NewKafkaConsumer creates a new Kafka consumer
func NewKafkaConsumer(
	config KafkaConsumerConfig,
	store service.Store,
	logger zerolog.Logger,
) *KafkaConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        config.Brokers,
		Topic:          config.Topic,
		GroupID:        config.GroupID,
		MinBytes:       1e3,  // 1KB
		MaxBytes:       10e6, // 10MB
		CommitInterval: 1000, // Commit every 1 second
	})

	return &KafkaConsumer{
		reader: reader,
		store:  store,
		logger: logger.With().Str("component", "kafka_consumer").Logger(),
	}
}

// Start begins consuming messages from Kafka
func (c *KafkaConsumer) Start(ctx context.Context) error {
	c.logger.Info().
		Str("topic", c.reader.Config().Topic).
		Str("group_id", c.reader.Config().GroupID).
		Msg("started consuming from Kafka")

	for {
		select {
		case <-ctx.Done():
			c.logger.Info().Msg("stopping Kafka consumer")
			return c.reader.Close()

		default:
			msg, err := c.reader.FetchMessage(ctx)
			if err != nil {
				if err == context.Canceled {
					return nil
				}
				c.logger.Error().Err(err).Msg("failed to fetch message")
				continue
			}

			if err := c.processMessage(ctx, msg); err != nil {
				c.logger.Error().
					Err(err).
					Int64("offset", msg.Offset).
					Str("key", string(msg.Key)).
					Msg("failed to process message")
				// Don't commit if processing failed
				continue
			}

			if err := c.reader.CommitMessages(ctx, msg); err != nil {
				c.logger.Error().Err(err).Msg("failed to commit message")
			}
		}
	}
}

// processMessage stores one batch of raw observations. Storage is keyed by
// (entity, fixture), so redelivered batches are idempotent.
func (c *KafkaConsumer) processMessage(ctx context.Context, msg kafka.Message) error {
	var batch models.KafkaObservationBatchMessage
	if err := json.Unmarshal(msg.Value, &batch); err != nil {
		return fmt.Errorf("failed to unmarshal message: %w", err)
	}

	c.logger.Debug().
		Int("observation_count", len(batch.Observations)).
		Str("batch_id", batch.BatchID).
		Msg("processing observation batch")

	for _, obs := range batch.Observations {
		if obs.EntityID == "" || obs.FixtureID == "" {
			return fmt.Errorf("batch %s contains an observation without entity or fixture id", batch.BatchID)
		}
	}

	if err := c.store.SaveObservations(ctx, batch.Observations); err != nil {
		return fmt.Errorf("failed to store observations: %w", err)
	}
	metrics.ObservationsIngested.Add(float64(len(batch.Observations)))

	c.logger.Info().
		Int("observation_count", len(batch.Observations)).
		Str("batch_id", batch.BatchID).
		Msg("stored observation batch")

	return nil
}

// Close closes the Kafka reader
func (c *KafkaConsumer) Close() error {
	return c.reader.Close()
}

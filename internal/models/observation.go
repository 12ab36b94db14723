package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RawObservation is one entity at one fixture or reporting period, exactly as
// supplied by the ingestion boundary. Immutable once ingested.
type RawObservation struct {
	EntityID  string                     `json:"entity_id"`
	FixtureID string                     `json:"fixture_id"`
	Timestamp time.Time                  `json:"timestamp"`
	Stats     map[string]decimal.Decimal `json:"stats"`  // provider statistic id -> numeric value
	Labels    map[string]string          `json:"labels"` // provider statistic id -> label value (e.g. formation)
}

// AvailableStats returns the set of provider statistic ids present in this
// observation, covering both numeric and label-valued statistics.
func (o RawObservation) AvailableStats() map[string]bool {
	available := make(map[string]bool, len(o.Stats)+len(o.Labels))
	for id := range o.Stats {
		available[id] = true
	}
	for id := range o.Labels {
		available[id] = true
	}
	return available
}

// StrategyKind records how a canonical metric value was obtained
type StrategyKind string

const (
	// StrategyDirect means the value was read verbatim from a provider statistic
	StrategyDirect StrategyKind = "direct"
	// StrategyProxy means the value was approximated from other statistics
	StrategyProxy StrategyKind = "proxy"
)

// ResolvedMetric is one canonical metric value in a resolved observation
type ResolvedMetric struct {
	Kind         MetricKind   `json:"kind"`
	Value        float64      `json:"value,omitempty"`
	Distribution Distribution `json:"distribution,omitempty"`
	Confidence   float64      `json:"confidence"`
	Strategy     StrategyKind `json:"strategy"`
	Source       string       `json:"source"` // provider statistic id or proxy description
}

// MetricValue returns the tagged variant for similarity computation
func (m ResolvedMetric) MetricValue() MetricValue {
	if m.Kind == KindDistribution {
		return m.Distribution
	}
	return Scalar(m.Value)
}

// ResolvedObservation maps canonical metrics to values for one entity/fixture.
// Metrics that could not be resolved are absent from the map, never zero.
// Built by the normalizer; never mutated after construction.
type ResolvedObservation struct {
	EntityID        string                    `json:"entity_id"`
	FixtureID       string                    `json:"fixture_id"`
	Timestamp       time.Time                 `json:"timestamp"`
	RegistryVersion string                    `json:"registry_version"`
	Metrics         map[string]ResolvedMetric `json:"metrics"`
}

// KafkaObservationBatchMessage is the message shape consumed from the
// raw-observations topic, produced by the external data-retrieval collaborator.
type KafkaObservationBatchMessage struct {
	Observations []RawObservation `json:"observations"`
	Timestamp    time.Time        `json:"timestamp"`
	BatchID      string           `json:"batch_id"`
}

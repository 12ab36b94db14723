package models

import (
	"time"

	"github.com/google/uuid"
)

// ScoringConfig controls one fit-scoring run
type ScoringConfig struct {
	// Weights maps participating canonical metrics to their relative importance.
	// Must sum to 1 over the configured metrics.
	Weights map[string]float64 `json:"weights"`
	// MinConfidence excludes a metric from this run when either profile's
	// confidence for it falls below the threshold.
	MinConfidence float64 `json:"min_confidence"`
	// ScaleMax is the upper bound of the output range (0 defaults to 100)
	ScaleMax float64 `json:"scale_max,omitempty"`
}

// ExclusionReason explains why a configured metric did not contribute to a score
type ExclusionReason string

const (
	ExcludedAbsentInA       ExclusionReason = "absent_in_a"
	ExcludedAbsentInB       ExclusionReason = "absent_in_b"
	ExcludedAbsentInBoth    ExclusionReason = "absent_in_both"
	ExcludedBelowConfidence ExclusionReason = "below_confidence_threshold"
)

// MetricContribution is one metric's share of a fit score
type MetricContribution struct {
	Metric     string  `json:"metric"`
	Similarity float64 `json:"similarity"`
	Weight     float64 `json:"weight"` // renormalized over the used subset
	Weighted   float64 `json:"weighted"`
	Confidence float64 `json:"confidence"` // min of the two profile confidences
}

// ExcludedMetric records a configured metric left out of the weighted sum
type ExcludedMetric struct {
	Metric string          `json:"metric"`
	Reason ExclusionReason `json:"reason"`
	Weight float64         `json:"weight"` // configured weight that was forfeited
}

// Classification buckets a fit score for squad reporting
type Classification string

const (
	KeyEnabler              Classification = "Key Enabler"
	GoodFit                 Classification = "Good Fit"
	SystemDependent         Classification = "System Dependent"
	PotentiallyMarginalised Classification = "Potentially Marginalised"
)

// Classify maps a fit score on a 0-100 scale to its tier
func Classify(score float64) Classification {
	switch {
	case score >= 75:
		return KeyEnabler
	case score >= 60:
		return GoodFit
	case score >= 45:
		return SystemDependent
	default:
		return PotentiallyMarginalised
	}
}

// Score is the output of one fit-scoring run: a pure function of the two
// profiles and the scoring configuration. Immutable.
type Score struct {
	ID              uuid.UUID            `json:"id"`
	EntityA         string               `json:"entity_a"`
	EntityB         string               `json:"entity_b"`
	ProfileAID      uuid.UUID            `json:"profile_a_id"`
	ProfileBID      uuid.UUID            `json:"profile_b_id"`
	Value           float64              `json:"value"`
	Confidence      float64              `json:"confidence"`
	Classification  Classification       `json:"classification"`
	RegistryVersion string               `json:"registry_version"`
	Contributions   []MetricContribution `json:"contributions"`
	Excluded        []ExcludedMetric     `json:"excluded"`
	ScoredAt        time.Time            `json:"scored_at"`
}

// GapState classifies how a canonical metric was sourced for a profile or score
type GapState string

const (
	GapDirect      GapState = "direct"
	GapProxy       GapState = "proxy"
	GapUnavailable GapState = "unavailable"
	GapExcluded    GapState = "excluded"
)

// GapEntry is one metric's line in a gap summary
type GapEntry struct {
	Metric     string   `json:"metric"`
	State      GapState `json:"state"`
	Confidence float64  `json:"confidence,omitempty"`
	Detail     string   `json:"detail,omitempty"`
}

// GapSummary is the audit record of data completeness behind a profile or score
type GapSummary struct {
	Entries []GapEntry `json:"entries"`
}

// PlayerFit is one candidate's result in a squad-fit run
type PlayerFit struct {
	EntityID       string         `json:"entity_id"`
	Score          float64        `json:"score"`
	Confidence     float64        `json:"confidence"`
	Classification Classification `json:"classification"`
}

// SquadFitSummary counts candidates per classification tier
type SquadFitSummary struct {
	KeyEnablers     int `json:"key_enablers"`
	GoodFit         int `json:"good_fit"`
	SystemDependent int `json:"system_dependent"`
	Marginalised    int `json:"marginalised"`
}

// SquadFitResult ranks a candidate squad against one manager profile
type SquadFitResult struct {
	ManagerID       string            `json:"manager_id"`
	RegistryVersion string            `json:"registry_version"`
	Fits            []PlayerFit       `json:"fits"` // sorted by score, descending
	Summary         SquadFitSummary   `json:"summary"`
	Skipped         map[string]string `json:"skipped,omitempty"` // entity id -> reason
}

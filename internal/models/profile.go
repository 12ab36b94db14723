package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Window selects the observations contributing to a profile: either an
// explicit start/end range or the most recent N fixtures.
type Window struct {
	Start time.Time `json:"start,omitempty"`
	End   time.Time `json:"end,omitempty"`
	LastN int       `json:"last_n,omitempty"`
}

// Validate checks that exactly one window form is declared
func (w Window) Validate() error {
	if w.LastN > 0 {
		if !w.Start.IsZero() || !w.End.IsZero() {
			return fmt.Errorf("window declares both last_n and an explicit range")
		}
		return nil
	}
	if w.Start.IsZero() || w.End.IsZero() {
		return fmt.Errorf("window requires either last_n or an explicit start/end range")
	}
	if !w.Start.Before(w.End) {
		return fmt.Errorf("window start %s is not before end %s", w.Start.Format(time.RFC3339), w.End.Format(time.RFC3339))
	}
	return nil
}

// Contains reports whether t falls inside an explicit window.
// Always true for last-N windows; recency is applied by the aggregator.
func (w Window) Contains(t time.Time) bool {
	if w.LastN > 0 {
		return true
	}
	return !t.Before(w.Start) && t.Before(w.End)
}

// Key returns a stable cache key fragment for the window
func (w Window) Key() string {
	if w.LastN > 0 {
		return fmt.Sprintf("last%d", w.LastN)
	}
	return fmt.Sprintf("%s_%s", w.Start.UTC().Format("20060102T150405"), w.End.UTC().Format("20060102T150405"))
}

// ProfileMetric is one aggregated canonical metric inside a profile
type ProfileMetric struct {
	Kind         MetricKind   `json:"kind"`
	Value        float64      `json:"value,omitempty"`
	Distribution Distribution `json:"distribution,omitempty"`
	Confidence   float64      `json:"confidence"`
	SampleSize   int          `json:"sample_size"`
	Strategy     StrategyKind `json:"strategy"` // direct only if every contribution was direct
}

// MetricValue returns the tagged variant for similarity computation
func (m ProfileMetric) MetricValue() MetricValue {
	if m.Kind == KindDistribution {
		return m.Distribution
	}
	return Scalar(m.Value)
}

// Profile is a time-windowed, confidence-annotated aggregation of canonical
// metrics for one entity. Metrics with zero contributing observations are
// absent from the map. Immutable once built.
type Profile struct {
	ID              uuid.UUID                `json:"id"`
	EntityID        string                   `json:"entity_id"`
	Window          Window                   `json:"window"`
	RegistryVersion string                   `json:"registry_version"`
	Metrics         map[string]ProfileMetric `json:"metrics"`
	BuiltAt         time.Time                `json:"built_at"`
}

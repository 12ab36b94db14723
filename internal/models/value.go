package models

import (
	"fmt"
	"math"
)

// MetricKind distinguishes the two shapes a canonical metric can take
type MetricKind string

const (
	// KindScalar is a single bounded numeric value (e.g. possession percentage)
	KindScalar MetricKind = "scalar"
	// KindDistribution is a probability distribution over labels (e.g. formation usage)
	KindDistribution MetricKind = "distribution"
)

// Domain is the declared value range of a scalar metric
type Domain struct {
	Min float64 `json:"min" mapstructure:"min"`
	Max float64 `json:"max" mapstructure:"max"`
}

// Width returns the span of the domain
func (d Domain) Width() float64 {
	return d.Max - d.Min
}

// Clamp bounds v to the domain
func (d Domain) Clamp(v float64) float64 {
	if v < d.Min {
		return d.Min
	}
	if v > d.Max {
		return d.Max
	}
	return v
}

// MetricValue is the tagged variant over metric shapes. Both variants carry
// a symmetric similarity function in [0,1] so the scorer never branches on shape.
type MetricValue interface {
	Kind() MetricKind
	Similarity(other MetricValue, domain Domain) (float64, error)
}

// Scalar is a single numeric metric value
type Scalar float64

// Kind implements MetricValue
func (s Scalar) Kind() MetricKind { return KindScalar }

// Similarity computes normalized inverse absolute difference over the metric's domain
func (s Scalar) Similarity(other MetricValue, domain Domain) (float64, error) {
	o, ok := other.(Scalar)
	if !ok {
		return 0, fmt.Errorf("cannot compare scalar with %s value", other.Kind())
	}
	width := domain.Width()
	if width <= 0 {
		return 0, fmt.Errorf("scalar similarity requires a bounded domain, got [%f, %f]", domain.Min, domain.Max)
	}
	sim := 1.0 - math.Abs(float64(s)-float64(o))/width
	if sim < 0 {
		sim = 0
	}
	return sim, nil
}

// Distribution is a probability distribution over labels
type Distribution map[string]float64

// Kind implements MetricValue
func (d Distribution) Kind() MetricKind { return KindDistribution }

// Similarity computes one minus the total-variation distance between the two distributions
func (d Distribution) Similarity(other MetricValue, domain Domain) (float64, error) {
	o, ok := other.(Distribution)
	if !ok {
		return 0, fmt.Errorf("cannot compare distribution with %s value", other.Kind())
	}

	// total variation = half the L1 distance over the union of labels
	var tv float64
	for label, p := range d {
		tv += math.Abs(p - o[label])
	}
	for label, q := range o {
		if _, seen := d[label]; !seen {
			tv += q
		}
	}
	tv /= 2

	sim := 1.0 - tv
	if sim < 0 {
		sim = 0
	}
	if sim > 1 {
		sim = 1
	}
	return sim, nil
}

// Normalize rescales the distribution so its mass sums to 1
func (d Distribution) Normalize() Distribution {
	var total float64
	for _, v := range d {
		total += v
	}
	if total <= 0 {
		return d
	}
	out := make(Distribution, len(d))
	for label, v := range d {
		out[label] = v / total
	}
	return out
}

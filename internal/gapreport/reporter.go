// Package gapreport summarizes data completeness behind profiles and scores:
// which canonical metrics were direct, proxy, unavailable, or excluded.
// Pure reads of already-computed state, no recomputation.
package gapreport

import (
	"fmt"
	"sort"

	"github.com/aegis-analytics/tacticalfit-service/internal/models"
	"github.com/aegis-analytics/tacticalfit-service/internal/registry"
)

// ForProfile reports, for every registry metric, whether the profile carries
// it directly, via proxy, or not at all.
func ForProfile(profile models.Profile, reg *registry.Registry) models.GapSummary {
	entries := make([]models.GapEntry, 0, len(reg.Metrics()))
	for _, metric := range reg.Metrics() {
		pm, ok := profile.Metrics[metric.ID]
		if !ok {
			entries = append(entries, models.GapEntry{
				Metric: metric.ID,
				State:  models.GapUnavailable,
				Detail: "no contributing observations",
			})
			continue
		}

		entry := models.GapEntry{
			Metric:     metric.ID,
			Confidence: pm.Confidence,
			Detail:     fmt.Sprintf("%d observations", pm.SampleSize),
		}
		if pm.Strategy == models.StrategyDirect {
			entry.State = models.GapDirect
		} else {
			entry.State = models.GapProxy
		}
		entries = append(entries, entry)
	}
	return models.GapSummary{Entries: entries}
}

// ForScore reports how each configured metric entered the weighted sum, and
// for excluded metrics why they were left out.
func ForScore(score models.Score, a, b models.Profile) models.GapSummary {
	entries := make([]models.GapEntry, 0, len(score.Contributions)+len(score.Excluded))

	for _, c := range score.Contributions {
		state := models.GapDirect
		if a.Metrics[c.Metric].Strategy == models.StrategyProxy || b.Metrics[c.Metric].Strategy == models.StrategyProxy {
			state = models.GapProxy
		}
		entries = append(entries, models.GapEntry{
			Metric:     c.Metric,
			State:      state,
			Confidence: c.Confidence,
			Detail:     fmt.Sprintf("weight %.3f after renormalization", c.Weight),
		})
	}

	for _, e := range score.Excluded {
		entries = append(entries, models.GapEntry{
			Metric: e.Metric,
			State:  models.GapExcluded,
			Detail: exclusionDetail(e),
		})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Metric < entries[j].Metric })
	return models.GapSummary{Entries: entries}
}

func exclusionDetail(e models.ExcludedMetric) string {
	switch e.Reason {
	case models.ExcludedAbsentInA:
		return "excluded (absent in first profile)"
	case models.ExcludedAbsentInB:
		return "excluded (absent in second profile)"
	case models.ExcludedAbsentInBoth:
		return "excluded (absent in both profiles)"
	case models.ExcludedBelowConfidence:
		return "excluded (below confidence threshold)"
	default:
		return "excluded"
	}
}

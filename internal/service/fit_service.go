package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/aegis-analytics/tacticalfit-service/internal/aggregator"
	"github.com/aegis-analytics/tacticalfit-service/internal/gapreport"
	"github.com/aegis-analytics/tacticalfit-service/internal/metrics"
	"github.com/aegis-analytics/tacticalfit-service/internal/models"
	"github.com/aegis-analytics/tacticalfit-service/internal/normalizer"
	"github.com/aegis-analytics/tacticalfit-service/internal/registry"
	"github.com/aegis-analytics/tacticalfit-service/pkg/fitscore"
)

// FitService orchestrates the scoring pipeline: fetch observations,
// normalize, aggregate, score, with a cache-first strategy for profiles.
// Profiles are recomputed on demand rather than incrementally maintained.
type FitService struct {
	store          Store
	registry       *registry.Registry
	normalizer     *normalizer.Normalizer
	aggregator     *aggregator.Aggregator
	scorer         *fitscore.Scorer
	defaultScoring models.ScoringConfig
	logger         zerolog.Logger
}

// NewFitService creates the orchestrating service
func NewFitService(
	store Store,
	reg *registry.Registry,
	norm *normalizer.Normalizer,
	agg *aggregator.Aggregator,
	scorer *fitscore.Scorer,
	defaultScoring models.ScoringConfig,
	logger zerolog.Logger,
) *FitService {
	return &FitService{
		store:          store,
		registry:       reg,
		normalizer:     norm,
		aggregator:     agg,
		scorer:         scorer,
		defaultScoring: defaultScoring,
		logger:         logger.With().Str("component", "fit_service").Logger(),
	}
}

// ScoreRequest identifies the two entities and windows to score
type ScoreRequest struct {
	EntityA string                `json:"entity_a"`
	WindowA models.Window         `json:"window_a"`
	EntityB string                `json:"entity_b"`
	WindowB models.Window         `json:"window_b"`
	Config  *models.ScoringConfig `json:"config,omitempty"` // nil uses the configured defaults
}

// SquadFitRequest scores one manager profile against a candidate list
type SquadFitRequest struct {
	ManagerID       string                `json:"manager_id"`
	ManagerWindow   models.Window         `json:"manager_window"`
	Candidates      []string              `json:"candidates"`
	CandidateWindow models.Window         `json:"candidate_window"`
	Config          *models.ScoringConfig `json:"config,omitempty"`
}

// BuildProfile returns the profile for one entity and window, cache-first.
// On a miss the profile is rebuilt from stored observations and cached;
// cache write failures degrade to a warning, never a request failure.
func (s *FitService) BuildProfile(ctx context.Context, entityID string, window models.Window) (*models.Profile, models.GapSummary, error) {
	if err := window.Validate(); err != nil {
		return nil, models.GapSummary{}, fmt.Errorf("invalid window: %w", err)
	}

	cached, err := s.store.GetProfile(ctx, entityID, window, s.registry.Version())
	if err == nil && cached != nil {
		s.logger.Debug().
			Str("entity_id", entityID).
			Str("window", window.Key()).
			Msg("cache hit for profile")
		return cached, gapreport.ForProfile(*cached, s.registry), nil
	}

	observations, err := s.store.ObservationsByEntity(ctx, entityID)
	if err != nil {
		return nil, models.GapSummary{}, fmt.Errorf("failed to fetch observations: %w", err)
	}

	resolved := make([]models.ResolvedObservation, 0, len(observations))
	for _, obs := range observations {
		resolved = append(resolved, s.normalizer.Normalize(obs, s.registry))
	}

	profile := s.aggregator.Aggregate(entityID, window, s.registry, resolved)
	metrics.ProfilesBuilt.Inc()

	if err := s.store.SaveProfile(ctx, &profile); err != nil {
		s.logger.Warn().
			Err(err).
			Str("entity_id", entityID).
			Str("window", window.Key()).
			Msg("failed to cache profile")
	}

	s.logger.Info().
		Str("entity_id", entityID).
		Str("window", window.Key()).
		Int("observation_count", len(observations)).
		Int("metric_count", len(profile.Metrics)).
		Msg("built profile")

	return &profile, gapreport.ForProfile(profile, s.registry), nil
}

// ScorePair builds both profiles and computes their fit score with the
// request's scoring config, falling back to the configured defaults.
func (s *FitService) ScorePair(ctx context.Context, req ScoreRequest) (*models.Score, models.GapSummary, error) {
	profileA, _, err := s.BuildProfile(ctx, req.EntityA, req.WindowA)
	if err != nil {
		return nil, models.GapSummary{}, fmt.Errorf("profile for %s: %w", req.EntityA, err)
	}
	profileB, _, err := s.BuildProfile(ctx, req.EntityB, req.WindowB)
	if err != nil {
		return nil, models.GapSummary{}, fmt.Errorf("profile for %s: %w", req.EntityB, err)
	}

	cfg := s.defaultScoring
	if req.Config != nil {
		cfg = *req.Config
	}

	score, err := s.scorer.Score(*profileA, *profileB, s.registry, cfg)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNoUsableMetrics):
			metrics.ScoringFailures.WithLabelValues("no_usable_metrics").Inc()
		case models.IsConfigurationError(err):
			metrics.ScoringFailures.WithLabelValues("configuration").Inc()
		default:
			metrics.ScoringFailures.WithLabelValues("other").Inc()
		}
		return nil, models.GapSummary{}, err
	}
	metrics.ScoresComputed.Inc()

	if err := s.store.SaveScore(ctx, score); err != nil {
		s.logger.Warn().
			Err(err).
			Str("entity_a", req.EntityA).
			Str("entity_b", req.EntityB).
			Msg("failed to cache score")
	}

	return score, gapreport.ForScore(*score, *profileA, *profileB), nil
}

// SquadFit scores every candidate against the manager profile and ranks the
// results. Candidates with no usable metrics are skipped and reported, not
// scored as zero.
func (s *FitService) SquadFit(ctx context.Context, req SquadFitRequest) (*models.SquadFitResult, error) {
	if len(req.Candidates) == 0 {
		return nil, fmt.Errorf("squad fit requires at least one candidate")
	}

	managerProfile, _, err := s.BuildProfile(ctx, req.ManagerID, req.ManagerWindow)
	if err != nil {
		return nil, fmt.Errorf("manager profile: %w", err)
	}

	cfg := s.defaultScoring
	if req.Config != nil {
		cfg = *req.Config
	}

	result := &models.SquadFitResult{
		ManagerID:       req.ManagerID,
		RegistryVersion: s.registry.Version(),
		Skipped:         make(map[string]string),
	}

	for _, candidateID := range req.Candidates {
		candidateProfile, _, err := s.BuildProfile(ctx, candidateID, req.CandidateWindow)
		if err != nil {
			return nil, fmt.Errorf("candidate profile for %s: %w", candidateID, err)
		}

		score, err := s.scorer.Score(*managerProfile, *candidateProfile, s.registry, cfg)
		if err != nil {
			if errors.Is(err, models.ErrNoUsableMetrics) {
				metrics.ScoringFailures.WithLabelValues("no_usable_metrics").Inc()
				result.Skipped[candidateID] = "no usable metrics"
				continue
			}
			return nil, fmt.Errorf("scoring candidate %s: %w", candidateID, err)
		}
		metrics.ScoresComputed.Inc()

		fit := models.PlayerFit{
			EntityID:       candidateID,
			Score:          score.Value,
			Confidence:     score.Confidence,
			Classification: score.Classification,
		}
		result.Fits = append(result.Fits, fit)

		switch fit.Classification {
		case models.KeyEnabler:
			result.Summary.KeyEnablers++
		case models.GoodFit:
			result.Summary.GoodFit++
		case models.SystemDependent:
			result.Summary.SystemDependent++
		default:
			result.Summary.Marginalised++
		}
	}

	sort.Slice(result.Fits, func(i, j int) bool { return result.Fits[i].Score > result.Fits[j].Score })

	s.logger.Info().
		Str("manager_id", req.ManagerID).
		Int("candidate_count", len(req.Candidates)).
		Int("scored_count", len(result.Fits)).
		Int("skipped_count", len(result.Skipped)).
		Msg("squad fit complete")

	return result, nil
}

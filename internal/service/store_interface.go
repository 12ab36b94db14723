package service

import (
	"context"

	"github.com/aegis-analytics/tacticalfit-service/internal/models"
)

// Store is an interface that abstracts observation storage and the
// profile/score cache. This allows for easier testing and mocking.
type Store interface {
	SaveObservations(ctx context.Context, observations []models.RawObservation) error
	ObservationsByEntity(ctx context.Context, entityID string) ([]models.RawObservation, error)
	SaveProfile(ctx context.Context, profile *models.Profile) error
	GetProfile(ctx context.Context, entityID string, window models.Window, registryVersion string) (*models.Profile, error)
	SaveScore(ctx context.Context, score *models.Score) error
	GetScore(ctx context.Context, id string) (*models.Score, error)
	Ping(ctx context.Context) error
	Close() error
}

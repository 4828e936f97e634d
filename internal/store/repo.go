package store

import (
	"context"
	"errors"
	"time"

	"github.com/shereeliao123/buddy-plant-watering-app/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Repo defines storage operations for plants, watering history,
// notification preferences and push subscriptions.
type Repo interface {
	// Notification preference, one boolean per user.
	GetPreference(ctx context.Context, userID string) (bool, error)
	UpsertPreference(ctx context.Context, userID string, enabled bool) error

	// Plants.
	ListPlants(ctx context.Context, userID string) ([]domain.Plant, error)
	GetPlant(ctx context.Context, plantID string) (*domain.Plant, error)
	CreatePlant(ctx context.Context, userID string, p *domain.Plant) error
	UpdatePlant(ctx context.Context, p *domain.Plant) error
	DeletePlant(ctx context.Context, plantID string) error

	// Watering events.
	AddWatering(ctx context.Context, plantID string, at time.Time) error
	RemoveWatering(ctx context.Context, plantID string, at time.Time) error

	// Web Push subscriptions. GetSubscription returns (nil, nil) when
	// the user has no stored subscription.
	GetSubscription(ctx context.Context, userID string) (*domain.PushSubscription, error)
	SaveSubscription(ctx context.Context, userID string, sub domain.PushSubscription) error

	Close() error
}

package database

import (
	"context"

	"github.com/benvon/carbon-tracker/internal/models"
	"github.com/google/uuid"
)

// ActivityStore defines activity persistence as used by the services.
// It allows in-memory implementations in tests.
type ActivityStore interface {
	Create(ctx context.Context, a *models.Activity) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Activity, error)
	List(ctx context.Context, filter models.ActivityFilter, page, pageSize int) ([]*models.Activity, int, error)
	ListAll(ctx context.Context, filter models.ActivityFilter) ([]*models.Activity, error)
	Summarize(ctx context.Context, filter models.ActivityFilter) ([]models.TypeBreakdown, error)
	Update(ctx context.Context, a *models.Activity) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// SettingsStore defines settings persistence as used by the reloaders
type SettingsStore interface {
	Get(ctx context.Context, key string) (*models.Setting, error)
	Set(ctx context.Context, key, value string) error
}

// Ensure concrete types implement the interfaces
var (
	_ ActivityStore = (*ActivityRepository)(nil)
	_ SettingsStore = (*SettingsRepository)(nil)
)

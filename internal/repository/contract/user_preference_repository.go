package contract

import (
	"context"

	"survey-assistant-be/internal/entity"
)

type UserPreferenceRepository interface {
	// FindByUserId returns nil, nil when the user has no stored preferences.
	FindByUserId(ctx context.Context, userId string) (*entity.UserPreferences, error)
	Upsert(ctx context.Context, prefs *entity.UserPreferences) error
}

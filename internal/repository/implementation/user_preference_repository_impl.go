package implementation

import (
	"context"
	"errors"

	"survey-assistant-be/internal/entity"
	"survey-assistant-be/internal/mapper"
	"survey-assistant-be/internal/model"
	"survey-assistant-be/internal/repository/contract"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserPreferenceRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.UserPreferenceMapper
}

func NewUserPreferenceRepository(db *gorm.DB) contract.UserPreferenceRepository {
	return &UserPreferenceRepositoryImpl{
		db:     db,
		mapper: mapper.NewUserPreferenceMapper(),
	}
}

func (r *UserPreferenceRepositoryImpl) FindByUserId(ctx context.Context, userId string) (*entity.UserPreferences, error) {
	var m model.UserReasoningPreference
	if err := r.db.WithContext(ctx).Where("user_id = ?", userId).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *UserPreferenceRepositoryImpl) Upsert(ctx context.Context, prefs *entity.UserPreferences) error {
	m := r.mapper.ToModel(prefs)
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"preferred_complexity", "always_show_thinking", "verbosity", "updated_at"}),
	}).Create(m).Error
	if err != nil && !isDuplicateKey(err) {
		return err
	}
	return nil
}

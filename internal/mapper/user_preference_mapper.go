package mapper

import (
	"survey-assistant-be/internal/entity"
	"survey-assistant-be/internal/model"
)

type UserPreferenceMapper struct{}

func NewUserPreferenceMapper() *UserPreferenceMapper {
	return &UserPreferenceMapper{}
}

func (m *UserPreferenceMapper) ToEntity(p *model.UserReasoningPreference) *entity.UserPreferences {
	if p == nil {
		return nil
	}
	var preferred *entity.ComplexityLevel
	if p.PreferredComplexity != nil {
		level := entity.ComplexityLevel(*p.PreferredComplexity)
		preferred = &level
	}
	updatedAt := p.UpdatedAt
	return &entity.UserPreferences{
		UserId:              p.UserId,
		PreferredComplexity: preferred,
		AlwaysShowThinking:  p.AlwaysShowThinking,
		Verbosity:           p.Verbosity,
		UpdatedAt:           &updatedAt,
	}
}

func (m *UserPreferenceMapper) ToModel(p *entity.UserPreferences) *model.UserReasoningPreference {
	if p == nil {
		return nil
	}
	var preferred *string
	if p.PreferredComplexity != nil {
		level := string(*p.PreferredComplexity)
		preferred = &level
	}
	out := &model.UserReasoningPreference{
		UserId:              p.UserId,
		PreferredComplexity: preferred,
		AlwaysShowThinking:  p.AlwaysShowThinking,
		Verbosity:           p.Verbosity,
	}
	if p.UpdatedAt != nil {
		out.UpdatedAt = *p.UpdatedAt
	}
	return out
}

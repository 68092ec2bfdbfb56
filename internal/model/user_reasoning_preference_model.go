package model

import "time"

type UserReasoningPreference struct {
	UserId              string    `gorm:"type:text;primaryKey"`
	PreferredComplexity *string   `gorm:"type:varchar(20)"`
	AlwaysShowThinking  bool      `gorm:"default:false"`
	Verbosity           string    `gorm:"type:varchar(20);not null;default:'balanced'"`
	CreatedAt           time.Time `gorm:"autoCreateTime"`
	UpdatedAt           time.Time `gorm:"autoUpdateTime"`
}

func (UserReasoningPreference) TableName() string {
	return "user_reasoning_preferences"
}

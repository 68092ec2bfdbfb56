package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ReasoningSession is the durable summary of a conversation. The id is the
// caller's session id, so repeated flushes update one row.
type ReasoningSession struct {
	Id                 string                      `gorm:"type:text;primaryKey"`
	UserId             string                      `gorm:"type:text;not null;default:'';index"`
	Summary            string                      `gorm:"type:text"`
	MessageCount       int                         `gorm:"default:0"`
	TotalTokens        int                         `gorm:"default:0"`
	TotalCost          float64                     `gorm:"type:numeric(12,6);default:0"`
	DominantComplexity string                      `gorm:"type:varchar(20)"`
	Patterns           datatypes.JSONSlice[string] `gorm:"type:jsonb"`
	StartedAt          time.Time
	CreatedAt          time.Time `gorm:"autoCreateTime"`
	UpdatedAt          time.Time `gorm:"autoUpdateTime;index"`
}

func (ReasoningSession) TableName() string {
	return "reasoning_sessions"
}

// ReasoningPhase is one phase of a stored reasoning result. (result_id,
// phase_index) is unique so re-sending a result is an upsert.
type ReasoningPhase struct {
	Id          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SessionId   string    `gorm:"type:text;not null;index"`
	ResultId    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_reasoning_phase_result"`
	PhaseIndex  int       `gorm:"not null;uniqueIndex:idx_reasoning_phase_result"`
	Type        string    `gorm:"type:varchar(50);not null"`
	Content     string    `gorm:"type:text"`
	TokenCount  int       `gorm:"default:0"`
	DurationMs  int64     `gorm:"default:0"`
	Corrections int       `gorm:"default:0"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`

	Session *ReasoningSession `gorm:"foreignKey:SessionId;references:Id;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

func (ReasoningPhase) TableName() string {
	return "reasoning_phases"
}

package dto

import (
	"time"

	"github.com/google/uuid"
)

type ReasoningPhaseDto struct {
	Type        string `json:"type" validate:"required"`
	Content     string `json:"content"`
	TokenCount  int    `json:"token_count" validate:"gte=0"`
	DurationMs  int64  `json:"duration_ms" validate:"gte=0"`
	Corrections int    `json:"corrections" validate:"gte=0"`
}

type ComplexityDto struct {
	Level      string  `json:"level" validate:"required,oneof=SIMPLE MODERATE COMPLEX CREATIVE"`
	Confidence float64 `json:"confidence" validate:"gte=0,lte=1"`
}

type ReasoningResultDto struct {
	Id              uuid.UUID           `json:"id"`
	Phases          []ReasoningPhaseDto `json:"phases" validate:"dive"`
	TotalTokens     int                 `json:"total_tokens" validate:"gte=0"`
	TotalCost       float64             `json:"total_cost" validate:"gte=0"`
	DurationMs      int64               `json:"duration_ms" validate:"gte=0"`
	Confidence      float64             `json:"confidence" validate:"gte=0,lte=1"`
	Complexity      ComplexityDto       `json:"complexity"`
	ModelId         string              `json:"model_id"`
	TemplateId      string              `json:"template_id"`
	SelfCorrections int                 `json:"self_corrections" validate:"gte=0"`
	CanUseCache     bool                `json:"can_use_cache"`
}

type CacheLookupRequest struct {
	Query string `json:"query" validate:"required"`
}

type CacheLookupResponse struct {
	Hit        bool                `json:"hit"`
	Exact      bool                `json:"exact"`
	Similarity float64             `json:"similarity"`
	HitCount   int                 `json:"hit_count"`
	Result     *ReasoningResultDto `json:"result"`
}

type CacheStoreRequest struct {
	SessionId string             `json:"session_id"`
	Query     string             `json:"query" validate:"required"`
	Result    ReasoningResultDto `json:"result"`
}

type CacheStoreResponse struct {
	Cached      bool       `json:"cached"`
	ContentHash string     `json:"content_hash,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

type CacheCandidateResponse struct {
	ContentHash string  `json:"content_hash"`
	Query       string  `json:"query"`
	Similarity  float64 `json:"similarity"`
}

type InvalidateTagResponse struct {
	Tag     string `json:"tag"`
	Removed int    `json:"removed"`
}

type AppendMessageRequest struct {
	SessionId string              `json:"-"`
	Role      string              `json:"role" validate:"omitempty,oneof=user assistant"`
	Content   string              `json:"content" validate:"required"`
	Result    *ReasoningResultDto `json:"result"`
}

type MessageResponse struct {
	Id         uuid.UUID `json:"id"`
	Role       string    `json:"role"`
	Content    string    `json:"content"`
	TokenCount int       `json:"token_count"`
	Relevance  *float64  `json:"relevance,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

type RecordComplexityRequest struct {
	SessionId string `json:"-"`
	ComplexityDto
}

type SelectContextRequest struct {
	SessionId string `json:"-"`
	Query     string `json:"query" validate:"required"`
	Budget    int    `json:"budget" validate:"gte=0"`
}

type SelectContextResponse struct {
	Messages       []*MessageResponse `json:"messages"`
	PlanningBudget int                `json:"planning_budget"`
}

type PreferencesDto struct {
	PreferredComplexity *string    `json:"preferred_complexity" validate:"omitempty,oneof=SIMPLE MODERATE COMPLEX CREATIVE"`
	AlwaysShowThinking  bool       `json:"always_show_thinking"`
	Verbosity           string     `json:"verbosity" validate:"omitempty,oneof=concise balanced detailed"`
	UpdatedAt           *time.Time `json:"updated_at,omitempty"`
}

type SessionResponse struct {
	Id                string             `json:"id"`
	UserId            string             `json:"user_id"`
	Messages          []*MessageResponse `json:"messages"`
	Patterns          []string           `json:"patterns"`
	ComplexityHistory []ComplexityDto    `json:"complexity_history"`
	Preferences       PreferencesDto     `json:"preferences"`
	CreatedAt         time.Time          `json:"created_at"`
	LastActivity      time.Time          `json:"last_activity"`
}

type HistoricalSessionResponse struct {
	Id                 string    `json:"id"`
	Summary            string    `json:"summary"`
	MessageCount       int       `json:"message_count"`
	TotalTokens        int       `json:"total_tokens"`
	TotalCost          float64   `json:"total_cost"`
	DominantComplexity string    `json:"dominant_complexity"`
	Patterns           []string  `json:"patterns"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

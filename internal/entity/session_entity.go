package entity

import (
	"time"

	"github.com/google/uuid"
)

const (
	MessageRoleUser      = "user"
	MessageRoleAssistant = "assistant"
)

type Message struct {
	Id         uuid.UUID
	Role       string
	Content    string
	Timestamp  time.Time
	Result     *ReasoningResult
	TokenCount int
	// Relevance is filled per context selection and never stored on the session copy.
	Relevance *float64
}

type Session struct {
	Id                string
	UserId            string
	Messages          []Message
	Patterns          []string
	ComplexityHistory []ComplexityAssessment
	Preferences       UserPreferences
	CreatedAt         time.Time
	LastActivity      time.Time
}

// HistoricalSession is the durable summary of a finished or flushed session.
type HistoricalSession struct {
	Id                 string
	UserId             string
	Summary            string
	MessageCount       int
	TotalTokens        int
	TotalCost          float64
	DominantComplexity ComplexityLevel
	Patterns           []string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

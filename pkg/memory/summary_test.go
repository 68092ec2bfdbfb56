package memory

import (
	"strings"
	"testing"
	"time"

	"survey-assistant-be/internal/entity"

	"github.com/stretchr/testify/assert"
)

func TestSummarize(t *testing.T) {
	created := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	s := entity.Session{
		Id:     "s-1",
		UserId: "u-1",
		Messages: []entity.Message{
			{Role: entity.MessageRoleUser, Content: "Draft an onboarding survey"},
			{Role: entity.MessageRoleAssistant, Content: "Here is a draft", TokenCount: 900,
				Result: &entity.ReasoningResult{TotalCost: 0.01, Complexity: entity.ComplexityAssessment{Level: entity.ComplexityModerate}}},
			{Role: entity.MessageRoleUser, Content: "  Add a satisfaction question  "},
			{Role: entity.MessageRoleAssistant, Content: "Added", TokenCount: 300,
				Result: &entity.ReasoningResult{TotalCost: 0.005, Complexity: entity.ComplexityAssessment{Level: entity.ComplexitySimple}}},
		},
		Patterns:     []string{"complexity:moderate"},
		CreatedAt:    created,
		LastActivity: created.Add(time.Hour),
	}

	got := Summarize(s)
	assert.Equal(t, "Draft an onboarding survey | Add a satisfaction question", got.Summary)
	assert.Equal(t, 4, got.MessageCount)
	assert.Equal(t, 1200, got.TotalTokens)
	assert.InDelta(t, 0.015, got.TotalCost, 1e-9)
	assert.Equal(t, entity.ComplexitySimple, got.DominantComplexity, "ties go to the most recent level")
	assert.Equal(t, created.Add(time.Hour), got.UpdatedAt)
}

func TestSummarize_PrefersRecordedComplexity(t *testing.T) {
	s := entity.Session{
		Messages: []entity.Message{{Result: &entity.ReasoningResult{Complexity: entity.ComplexityAssessment{Level: entity.ComplexitySimple}}}},
		ComplexityHistory: []entity.ComplexityAssessment{
			{Level: entity.ComplexityCreative},
			{Level: entity.ComplexityComplex},
			{Level: entity.ComplexityCreative},
		},
	}
	assert.Equal(t, entity.ComplexityCreative, Summarize(s).DominantComplexity)
}

func TestSummarize_TruncatesLongTopics(t *testing.T) {
	s := entity.Session{Messages: []entity.Message{{Role: entity.MessageRoleUser, Content: strings.Repeat("é", 400)}}}
	assert.Equal(t, summaryMaxRunes, len([]rune(Summarize(s).Summary)))
}

package mapper

import (
	"testing"
	"time"

	"survey-assistant-be/internal/entity"
	"survey-assistant-be/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestReasoningCacheMapper(t *testing.T) {
	m := NewReasoningCacheMapper()
	created := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)

	entry := &entity.CacheEntry{
		ContentHash: "abc",
		Query:       "what drives nps",
		Result: &entity.ReasoningResult{
			TotalTokens: 420,
			Phases:      []entity.ReasoningPhase{{Type: "analysis", Content: "promoters"}},
		},
		CreatedAt:    created,
		TTL:          24 * time.Hour,
		HitCount:     2,
		LastAccessed: created.Add(time.Hour),
		Tags:         []string{"nps"},
		Embedding:    []float32{0.1, 0.2},
	}

	row, err := m.ToModel("u-1", entry)
	require.NoError(t, err)
	assert.Equal(t, "u-1", row.UserId)
	assert.Equal(t, int64(86400), row.TtlSeconds)
	assert.Equal(t, created.Add(24*time.Hour), row.ExpiresAt)
	require.NotNil(t, row.Embedding)

	back, err := m.ToEntity(row)
	require.NoError(t, err)
	assert.Equal(t, entry.TTL, back.TTL)
	assert.Equal(t, entry.Embedding, back.Embedding)
	assert.Equal(t, 420, back.Result.TotalTokens)
	assert.Equal(t, "promoters", back.Result.FinalContent())

	t.Run("missing embedding stays nil", func(t *testing.T) {
		e := *entry
		e.Embedding = nil
		row, err := m.ToModel("u-1", &e)
		require.NoError(t, err)
		assert.Nil(t, row.Embedding)
	})

	t.Run("undecodable result", func(t *testing.T) {
		_, err := m.ToEntity(&model.ReasoningCacheEntry{ContentHash: "bad", Result: datatypes.JSON("{")})
		assert.Error(t, err)
	})
}

func TestPhasesToModels_StableResultId(t *testing.T) {
	m := NewReasoningSessionMapper()
	result := &entity.ReasoningResult{
		Query: "draft a survey",
		Phases: []entity.ReasoningPhase{
			{Type: "analysis", Duration: 1500 * time.Millisecond},
			{Type: "execution", Corrections: 2},
		},
	}

	first := m.PhasesToModels("s-1", result)
	second := m.PhasesToModels("s-1", result)
	require.Len(t, first, 2)

	assert.Equal(t, first[0].ResultId, second[0].ResultId, "same session and query map to the same result")
	assert.Equal(t, first[0].ResultId, first[1].ResultId)
	assert.Equal(t, 1, first[1].PhaseIndex)
	assert.Equal(t, int64(1500), first[0].DurationMs)
	assert.Equal(t, uuid.Nil, result.Id, "the shared result is not modified")

	other := m.PhasesToModels("s-2", result)
	assert.NotEqual(t, first[0].ResultId, other[0].ResultId)

	explicit := uuid.New()
	result.Id = explicit
	assert.Equal(t, explicit, m.PhasesToModels("s-1", result)[0].ResultId)
}

func TestUserPreferenceMapper(t *testing.T) {
	m := NewUserPreferenceMapper()
	level := entity.ComplexityCreative
	prefs := &entity.UserPreferences{UserId: "u-1", PreferredComplexity: &level, Verbosity: entity.VerbosityConcise}

	row := m.ToModel(prefs)
	require.NotNil(t, row.PreferredComplexity)
	assert.Equal(t, "CREATIVE", *row.PreferredComplexity)

	back := m.ToEntity(row)
	require.NotNil(t, back.PreferredComplexity)
	assert.Equal(t, level, *back.PreferredComplexity)
	assert.Equal(t, entity.VerbosityConcise, back.Verbosity)

	assert.Nil(t, m.ToModel(nil))
	assert.Nil(t, m.ToEntity(nil))
}

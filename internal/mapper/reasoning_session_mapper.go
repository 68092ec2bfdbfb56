package mapper

import (
	"time"

	"survey-assistant-be/internal/entity"
	"survey-assistant-be/internal/model"

	"github.com/google/uuid"
)

type ReasoningSessionMapper struct{}

func NewReasoningSessionMapper() *ReasoningSessionMapper {
	return &ReasoningSessionMapper{}
}

func (m *ReasoningSessionMapper) ToEntity(s *model.ReasoningSession) *entity.HistoricalSession {
	if s == nil {
		return nil
	}
	return &entity.HistoricalSession{
		Id:                 s.Id,
		UserId:             s.UserId,
		Summary:            s.Summary,
		MessageCount:       s.MessageCount,
		TotalTokens:        s.TotalTokens,
		TotalCost:          s.TotalCost,
		DominantComplexity: entity.ComplexityLevel(s.DominantComplexity),
		Patterns:           append([]string(nil), s.Patterns...),
		CreatedAt:          s.StartedAt,
		UpdatedAt:          s.UpdatedAt,
	}
}

func (m *ReasoningSessionMapper) ToModel(s *entity.HistoricalSession) *model.ReasoningSession {
	if s == nil {
		return nil
	}
	return &model.ReasoningSession{
		Id:                 s.Id,
		UserId:             s.UserId,
		Summary:            s.Summary,
		MessageCount:       s.MessageCount,
		TotalTokens:        s.TotalTokens,
		TotalCost:          s.TotalCost,
		DominantComplexity: string(s.DominantComplexity),
		Patterns:           append([]string{}, s.Patterns...),
		StartedAt:          s.CreatedAt,
	}
}

func (m *ReasoningSessionMapper) ToEntities(sessions []*model.ReasoningSession) []*entity.HistoricalSession {
	entities := make([]*entity.HistoricalSession, len(sessions))
	for i, s := range sessions {
		entities[i] = m.ToEntity(s)
	}
	return entities
}

// PhasesToModels flattens a result's phases into rows. A result without an
// id is keyed by a name-based id of session and query, so resending it
// updates the same rows.
func (m *ReasoningSessionMapper) PhasesToModels(sessionId string, result *entity.ReasoningResult) []*model.ReasoningPhase {
	if result == nil {
		return nil
	}
	resultId := result.Id
	if resultId == uuid.Nil {
		resultId = uuid.NewSHA1(uuid.NameSpaceURL, []byte(sessionId+"|"+result.Query))
	}

	models := make([]*model.ReasoningPhase, len(result.Phases))
	for i, p := range result.Phases {
		id := p.Id
		if id == uuid.Nil {
			id = uuid.New()
		}
		models[i] = &model.ReasoningPhase{
			Id:          id,
			SessionId:   sessionId,
			ResultId:    resultId,
			PhaseIndex:  i,
			Type:        p.Type,
			Content:     p.Content,
			TokenCount:  p.TokenCount,
			DurationMs:  p.Duration.Milliseconds(),
			Corrections: p.Corrections,
		}
	}
	return models
}

func (m *ReasoningSessionMapper) PhaseToEntity(p *model.ReasoningPhase) *entity.ReasoningPhase {
	if p == nil {
		return nil
	}
	return &entity.ReasoningPhase{
		Id:          p.Id,
		Type:        p.Type,
		Content:     p.Content,
		TokenCount:  p.TokenCount,
		Duration:    time.Duration(p.DurationMs) * time.Millisecond,
		Corrections: p.Corrections,
	}
}

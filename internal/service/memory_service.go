package service

import (
	"context"
	"time"

	"survey-assistant-be/internal/dto"
	"survey-assistant-be/internal/entity"
	"survey-assistant-be/pkg/memory"
)

type IMemoryService interface {
	Lookup(ctx context.Context, req *dto.CacheLookupRequest) (*dto.CacheLookupResponse, error)
	Store(ctx context.Context, userId string, req *dto.CacheStoreRequest) (*dto.CacheStoreResponse, error)
	Candidates(ctx context.Context, query string) ([]*dto.CacheCandidateResponse, error)
	InvalidateTag(ctx context.Context, tag string) (*dto.InvalidateTagResponse, error)

	OpenSession(ctx context.Context, userId string, sessionId string) (*dto.SessionResponse, error)
	AppendMessage(ctx context.Context, userId string, req *dto.AppendMessageRequest) (*dto.MessageResponse, error)
	RecordComplexity(ctx context.Context, userId string, req *dto.RecordComplexityRequest) error
	SelectContext(ctx context.Context, userId string, req *dto.SelectContextRequest) (*dto.SelectContextResponse, error)
	ShowSession(ctx context.Context, userId string, sessionId string) (*dto.SessionResponse, error)
	CloseSession(ctx context.Context, userId string, sessionId string) error

	History(ctx context.Context, userId string, limit int) ([]*dto.HistoricalSessionResponse, error)
	UpdatePreferences(ctx context.Context, userId string, req *dto.PreferencesDto) (*dto.PreferencesDto, error)
	Stats(ctx context.Context) memory.Stats
}

// InvalidationPublisher fans a tag invalidation out to peer instances.
type InvalidationPublisher interface {
	PublishInvalidate(ctx context.Context, tag string)
}

type memoryService struct {
	manager     *memory.Manager
	invalidator InvalidationPublisher
}

func NewMemoryService(manager *memory.Manager, invalidator InvalidationPublisher) IMemoryService {
	return &memoryService{
		manager:     manager,
		invalidator: invalidator,
	}
}

func (s *memoryService) Lookup(ctx context.Context, req *dto.CacheLookupRequest) (*dto.CacheLookupResponse, error) {
	hit, err := s.manager.Lookup(ctx, req.Query)
	if err != nil {
		return nil, err
	}
	if hit == nil {
		return &dto.CacheLookupResponse{Hit: false}, nil
	}
	return &dto.CacheLookupResponse{
		Hit:        true,
		Exact:      hit.Exact,
		Similarity: hit.Similarity,
		HitCount:   hit.Entry.HitCount,
		Result:     toResultDto(hit.Result),
	}, nil
}

// authorize hides live sessions owned by other users behind
// ErrSessionNotFound. Unknown ids pass so they can be opened implicitly.
func (s *memoryService) authorize(userId, sessionId string) error {
	if sessionId == "" {
		return nil
	}
	if session, ok := s.manager.Session(sessionId); ok && session.UserId != userId {
		return memory.ErrSessionNotFound
	}
	return nil
}

func (s *memoryService) Store(ctx context.Context, userId string, req *dto.CacheStoreRequest) (*dto.CacheStoreResponse, error) {
	if err := s.authorize(userId, req.SessionId); err != nil {
		return nil, err
	}
	result := toResult(req.Query, &req.Result)
	entry, err := s.manager.Store(ctx, req.SessionId, userId, req.Query, result)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return &dto.CacheStoreResponse{Cached: false}, nil
	}
	expiresAt := entry.ExpiresAt()
	return &dto.CacheStoreResponse{
		Cached:      true,
		ContentHash: entry.ContentHash,
		Tags:        entry.Tags,
		ExpiresAt:   &expiresAt,
	}, nil
}

func (s *memoryService) Candidates(ctx context.Context, query string) ([]*dto.CacheCandidateResponse, error) {
	candidates, err := s.manager.Candidates(ctx, query)
	if err != nil {
		return nil, err
	}
	res := make([]*dto.CacheCandidateResponse, 0, len(candidates))
	for _, c := range candidates {
		res = append(res, &dto.CacheCandidateResponse{
			ContentHash: c.ContentHash,
			Query:       c.Query,
			Similarity:  c.Similarity,
		})
	}
	return res, nil
}

func (s *memoryService) InvalidateTag(ctx context.Context, tag string) (*dto.InvalidateTagResponse, error) {
	removed := s.manager.InvalidateTag(tag)
	if s.invalidator != nil {
		s.invalidator.PublishInvalidate(ctx, tag)
	}
	return &dto.InvalidateTagResponse{Tag: tag, Removed: removed}, nil
}

func (s *memoryService) OpenSession(ctx context.Context, userId string, sessionId string) (*dto.SessionResponse, error) {
	session, err := s.manager.OpenSession(ctx, sessionId, userId)
	if err != nil {
		return nil, err
	}
	if session.UserId != userId {
		return nil, memory.ErrSessionNotFound
	}
	return toSessionResponse(session), nil
}

func (s *memoryService) AppendMessage(ctx context.Context, userId string, req *dto.AppendMessageRequest) (*dto.MessageResponse, error) {
	if err := s.authorize(userId, req.SessionId); err != nil {
		return nil, err
	}
	var result *entity.ReasoningResult
	if req.Result != nil {
		result = toResult("", req.Result)
	}
	msg, err := s.manager.AppendMessage(ctx, req.SessionId, userId, entity.Message{
		Role:    req.Role,
		Content: req.Content,
	}, result)
	if err != nil {
		return nil, err
	}
	return toMessageResponse(msg), nil
}

func (s *memoryService) RecordComplexity(ctx context.Context, userId string, req *dto.RecordComplexityRequest) error {
	if err := s.authorize(userId, req.SessionId); err != nil {
		return err
	}
	return s.manager.RecordComplexity(ctx, req.SessionId, userId, entity.ComplexityAssessment{
		Level:      entity.ComplexityLevel(req.Level),
		Confidence: req.Confidence,
	})
}

func (s *memoryService) SelectContext(ctx context.Context, userId string, req *dto.SelectContextRequest) (*dto.SelectContextResponse, error) {
	if err := s.authorize(userId, req.SessionId); err != nil {
		return nil, err
	}
	messages, err := s.manager.SelectContext(ctx, req.SessionId, req.Query, req.Budget)
	if err != nil {
		return nil, err
	}
	res := &dto.SelectContextResponse{
		Messages:       make([]*dto.MessageResponse, 0, len(messages)),
		PlanningBudget: s.manager.PlanningBudget(),
	}
	for _, m := range messages {
		res.Messages = append(res.Messages, toMessageResponse(m))
	}
	return res, nil
}

// ShowSession hides sessions owned by other users behind ErrSessionNotFound.
func (s *memoryService) ShowSession(ctx context.Context, userId string, sessionId string) (*dto.SessionResponse, error) {
	session, ok := s.manager.Session(sessionId)
	if !ok || session.UserId != userId {
		return nil, memory.ErrSessionNotFound
	}
	return toSessionResponse(session), nil
}

func (s *memoryService) CloseSession(ctx context.Context, userId string, sessionId string) error {
	session, ok := s.manager.Session(sessionId)
	if !ok || session.UserId != userId {
		return memory.ErrSessionNotFound
	}
	s.manager.CloseSession(sessionId)
	return nil
}

func (s *memoryService) History(ctx context.Context, userId string, limit int) ([]*dto.HistoricalSessionResponse, error) {
	sessions, err := s.manager.HistoricalSessions(ctx, userId, limit)
	if err != nil {
		return nil, err
	}
	res := make([]*dto.HistoricalSessionResponse, 0, len(sessions))
	for _, h := range sessions {
		res = append(res, &dto.HistoricalSessionResponse{
			Id:                 h.Id,
			Summary:            h.Summary,
			MessageCount:       h.MessageCount,
			TotalTokens:        h.TotalTokens,
			TotalCost:          h.TotalCost,
			DominantComplexity: string(h.DominantComplexity),
			Patterns:           h.Patterns,
			CreatedAt:          h.CreatedAt,
			UpdatedAt:          h.UpdatedAt,
		})
	}
	return res, nil
}

func (s *memoryService) UpdatePreferences(ctx context.Context, userId string, req *dto.PreferencesDto) (*dto.PreferencesDto, error) {
	prefs := entity.UserPreferences{
		UserId:             userId,
		AlwaysShowThinking: req.AlwaysShowThinking,
		Verbosity:          req.Verbosity,
	}
	if req.PreferredComplexity != nil {
		level := entity.ComplexityLevel(*req.PreferredComplexity)
		prefs.PreferredComplexity = &level
	}

	updated, err := s.manager.UpdatePreferences(ctx, prefs)
	if err != nil {
		return nil, err
	}
	res := toPreferencesDto(updated)
	return &res, nil
}

func (s *memoryService) Stats(ctx context.Context) memory.Stats {
	return s.manager.Stats()
}

func toResult(query string, d *dto.ReasoningResultDto) *entity.ReasoningResult {
	phases := make([]entity.ReasoningPhase, 0, len(d.Phases))
	for _, p := range d.Phases {
		phases = append(phases, entity.ReasoningPhase{
			Type:        p.Type,
			Content:     p.Content,
			TokenCount:  p.TokenCount,
			Duration:    time.Duration(p.DurationMs) * time.Millisecond,
			Corrections: p.Corrections,
		})
	}
	return &entity.ReasoningResult{
		Id:          d.Id,
		Query:       query,
		Phases:      phases,
		TotalTokens: d.TotalTokens,
		TotalCost:   d.TotalCost,
		Duration:    time.Duration(d.DurationMs) * time.Millisecond,
		Confidence:  d.Confidence,
		Complexity: entity.ComplexityAssessment{
			Level:      entity.ComplexityLevel(d.Complexity.Level),
			Confidence: d.Complexity.Confidence,
		},
		ModelId:         d.ModelId,
		TemplateId:      d.TemplateId,
		SelfCorrections: d.SelfCorrections,
		CanUseCache:     d.CanUseCache,
		CreatedAt:       time.Now(),
	}
}

func toResultDto(r *entity.ReasoningResult) *dto.ReasoningResultDto {
	if r == nil {
		return nil
	}
	phases := make([]dto.ReasoningPhaseDto, 0, len(r.Phases))
	for _, p := range r.Phases {
		phases = append(phases, dto.ReasoningPhaseDto{
			Type:        p.Type,
			Content:     p.Content,
			TokenCount:  p.TokenCount,
			DurationMs:  p.Duration.Milliseconds(),
			Corrections: p.Corrections,
		})
	}
	return &dto.ReasoningResultDto{
		Id:          r.Id,
		Phases:      phases,
		TotalTokens: r.TotalTokens,
		TotalCost:   r.TotalCost,
		DurationMs:  r.Duration.Milliseconds(),
		Confidence:  r.Confidence,
		Complexity: dto.ComplexityDto{
			Level:      string(r.Complexity.Level),
			Confidence: r.Complexity.Confidence,
		},
		ModelId:         r.ModelId,
		TemplateId:      r.TemplateId,
		SelfCorrections: r.SelfCorrections,
		CanUseCache:     r.CanUseCache,
	}
}

func toMessageResponse(m entity.Message) *dto.MessageResponse {
	return &dto.MessageResponse{
		Id:         m.Id,
		Role:       m.Role,
		Content:    m.Content,
		TokenCount: m.TokenCount,
		Relevance:  m.Relevance,
		Timestamp:  m.Timestamp,
	}
}

func toPreferencesDto(p entity.UserPreferences) dto.PreferencesDto {
	res := dto.PreferencesDto{
		AlwaysShowThinking: p.AlwaysShowThinking,
		Verbosity:          p.Verbosity,
		UpdatedAt:          p.UpdatedAt,
	}
	if p.PreferredComplexity != nil {
		level := string(*p.PreferredComplexity)
		res.PreferredComplexity = &level
	}
	return res
}

func toSessionResponse(s entity.Session) *dto.SessionResponse {
	res := &dto.SessionResponse{
		Id:                s.Id,
		UserId:            s.UserId,
		Messages:          make([]*dto.MessageResponse, 0, len(s.Messages)),
		Patterns:          s.Patterns,
		ComplexityHistory: make([]dto.ComplexityDto, 0, len(s.ComplexityHistory)),
		Preferences:       toPreferencesDto(s.Preferences),
		CreatedAt:         s.CreatedAt,
		LastActivity:      s.LastActivity,
	}
	for _, m := range s.Messages {
		res.Messages = append(res.Messages, toMessageResponse(m))
	}
	for _, c := range s.ComplexityHistory {
		res.ComplexityHistory = append(res.ComplexityHistory, dto.ComplexityDto{
			Level:      string(c.Level),
			Confidence: c.Confidence,
		})
	}
	return res
}

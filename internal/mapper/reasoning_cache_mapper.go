package mapper

import (
	"encoding/json"
	"fmt"
	"time"

	"survey-assistant-be/internal/entity"
	"survey-assistant-be/internal/model"

	"github.com/pgvector/pgvector-go"
)

type ReasoningCacheMapper struct{}

func NewReasoningCacheMapper() *ReasoningCacheMapper {
	return &ReasoningCacheMapper{}
}

func (m *ReasoningCacheMapper) ToModel(userId string, e *entity.CacheEntry) (*model.ReasoningCacheEntry, error) {
	if e == nil {
		return nil, nil
	}
	result, err := json.Marshal(e.Result)
	if err != nil {
		return nil, fmt.Errorf("failed to encode cached result: %w", err)
	}

	var embedding *pgvector.Vector
	if len(e.Embedding) > 0 {
		v := pgvector.NewVector(e.Embedding)
		embedding = &v
	}

	return &model.ReasoningCacheEntry{
		ContentHash:  e.ContentHash,
		UserId:       userId,
		Query:        e.Query,
		Result:       result,
		Tags:         append([]string{}, e.Tags...),
		Embedding:    embedding,
		HitCount:     e.HitCount,
		TtlSeconds:   int64(e.TTL / time.Second),
		LastAccessed: e.LastAccessed,
		ExpiresAt:    e.ExpiresAt(),
		CreatedAt:    e.CreatedAt,
	}, nil
}

func (m *ReasoningCacheMapper) ToEntity(c *model.ReasoningCacheEntry) (*entity.CacheEntry, error) {
	if c == nil {
		return nil, nil
	}
	var result entity.ReasoningResult
	if err := json.Unmarshal(c.Result, &result); err != nil {
		return nil, fmt.Errorf("failed to decode cached result %s: %w", c.ContentHash, err)
	}

	var embedding []float32
	if c.Embedding != nil {
		embedding = c.Embedding.Slice()
	}

	return &entity.CacheEntry{
		ContentHash:  c.ContentHash,
		Query:        c.Query,
		Result:       &result,
		CreatedAt:    c.CreatedAt,
		TTL:          time.Duration(c.TtlSeconds) * time.Second,
		HitCount:     c.HitCount,
		LastAccessed: c.LastAccessed,
		Tags:         append([]string(nil), c.Tags...),
		Embedding:    embedding,
	}, nil
}

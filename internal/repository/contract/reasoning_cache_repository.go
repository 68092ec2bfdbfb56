package contract

import (
	"context"
	"time"

	"survey-assistant-be/internal/entity"
	"survey-assistant-be/internal/repository/specification"
)

type ReasoningCacheRepository interface {
	// Upsert writes the entry keyed by (content hash, user id). A duplicate key is not an error.
	Upsert(ctx context.Context, userId string, entry *entity.CacheEntry) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.CacheEntry, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.CacheEntry, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

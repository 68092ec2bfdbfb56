package contract

import (
	"context"

	"survey-assistant-be/internal/entity"
	"survey-assistant-be/internal/repository/specification"
)

type ReasoningSessionRepository interface {
	Upsert(ctx context.Context, session *entity.HistoricalSession) error
	// EnsureExists inserts an empty row for id unless one is already there.
	EnsureExists(ctx context.Context, id, userId string) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.HistoricalSession, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.HistoricalSession, error)
}

type ReasoningPhaseRepository interface {
	// UpsertForResult writes every phase of result; rows are keyed by (result, phase index).
	UpsertForResult(ctx context.Context, sessionId string, result *entity.ReasoningResult) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ReasoningPhase, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}

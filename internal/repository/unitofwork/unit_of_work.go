package unitofwork

import (
	"context"

	"survey-assistant-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	// Transaction runs fn inside a transaction scoped to a fresh unit of work,
	// committing when fn returns nil.
	Transaction(ctx context.Context, fn func(tx UnitOfWork) error) error

	ReasoningSessionRepository() contract.ReasoningSessionRepository
	ReasoningPhaseRepository() contract.ReasoningPhaseRepository
	ReasoningCacheRepository() contract.ReasoningCacheRepository
	UserPreferenceRepository() contract.UserPreferenceRepository
}

package service

import (
	"context"
	"time"

	"survey-assistant-be/internal/entity"
	"survey-assistant-be/internal/repository/specification"
	"survey-assistant-be/internal/repository/unitofwork"
	"survey-assistant-be/pkg/memory"
)

// longTermStore is the postgres-backed memory.LongTermStore.
type longTermStore struct {
	uowFactory unitofwork.RepositoryFactory
	now        func() time.Time
}

func NewLongTermStore(uowFactory unitofwork.RepositoryFactory) memory.LongTermStore {
	return &longTermStore{
		uowFactory: uowFactory,
		now:        time.Now,
	}
}

// GetUserPreferences falls back to the neutral defaults when nothing is stored.
func (s *longTermStore) GetUserPreferences(ctx context.Context, userId string) (*entity.UserPreferences, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	prefs, err := uow.UserPreferenceRepository().FindByUserId(ctx, userId)
	if err != nil {
		return nil, err
	}
	if prefs == nil {
		def := entity.DefaultUserPreferences(userId)
		return &def, nil
	}
	return prefs, nil
}

func (s *longTermStore) GetHistoricalSessions(ctx context.Context, userId string, limit int) ([]*entity.HistoricalSession, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	sessions, err := uow.ReasoningSessionRepository().FindAll(ctx,
		specification.OwnedByUser{UserID: userId},
		specification.OrderBy{Field: "updated_at", Desc: true},
		specification.Pagination{Limit: limit},
	)
	if err != nil {
		return nil, err
	}
	if sessions == nil {
		sessions = make([]*entity.HistoricalSession, 0)
	}
	return sessions, nil
}

func (s *longTermStore) UpsertSessionSummary(ctx context.Context, summary *entity.HistoricalSession) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	return uow.ReasoningSessionRepository().Upsert(ctx, summary)
}

// UpsertReasoningPhases writes the phases and makes sure the owning session
// row exists, in one transaction.
func (s *longTermStore) UpsertReasoningPhases(ctx context.Context, sessionId string, result *entity.ReasoningResult) error {
	return s.uowFactory.NewUnitOfWork(ctx).Transaction(ctx, func(tx unitofwork.UnitOfWork) error {
		if err := tx.ReasoningSessionRepository().EnsureExists(ctx, sessionId, ""); err != nil {
			return err
		}
		return tx.ReasoningPhaseRepository().UpsertForResult(ctx, sessionId, result)
	})
}

func (s *longTermStore) UpsertCacheEntry(ctx context.Context, userId string, entry *entity.CacheEntry) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	return uow.ReasoningCacheRepository().Upsert(ctx, userId, entry)
}

func (s *longTermStore) UpsertUserPreferences(ctx context.Context, prefs *entity.UserPreferences) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	return uow.UserPreferenceRepository().Upsert(ctx, prefs)
}

// LoadCacheEntries returns the most recently used live entries, newest first.
func (s *longTermStore) LoadCacheEntries(ctx context.Context, limit int) ([]*entity.CacheEntry, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	return uow.ReasoningCacheRepository().FindAll(ctx,
		specification.NotExpired{Now: s.now()},
		specification.OrderBy{Field: "last_accessed", Desc: true},
		specification.Pagination{Limit: limit},
	)
}

func (s *longTermStore) DeleteExpiredCacheEntries(ctx context.Context) (int64, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	return uow.ReasoningCacheRepository().DeleteExpired(ctx, s.now())
}

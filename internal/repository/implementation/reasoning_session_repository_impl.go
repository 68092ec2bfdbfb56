package implementation

import (
	"context"
	"errors"
	"time"

	"survey-assistant-be/internal/entity"
	"survey-assistant-be/internal/mapper"
	"survey-assistant-be/internal/model"
	"survey-assistant-be/internal/repository/contract"
	"survey-assistant-be/internal/repository/specification"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ReasoningSessionRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ReasoningSessionMapper
}

func NewReasoningSessionRepository(db *gorm.DB) contract.ReasoningSessionRepository {
	return &ReasoningSessionRepositoryImpl{
		db:     db,
		mapper: mapper.NewReasoningSessionMapper(),
	}
}

func (r *ReasoningSessionRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *ReasoningSessionRepositoryImpl) Upsert(ctx context.Context, session *entity.HistoricalSession) error {
	m := r.mapper.ToModel(session)
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"user_id", "summary", "message_count", "total_tokens", "total_cost",
			"dominant_complexity", "patterns", "updated_at",
		}),
	}).Create(m).Error
	if err != nil && !isDuplicateKey(err) {
		return err
	}
	return nil
}

func (r *ReasoningSessionRepositoryImpl) EnsureExists(ctx context.Context, id, userId string) error {
	now := time.Now()
	m := &model.ReasoningSession{
		Id:        id,
		UserId:    userId,
		StartedAt: now,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(m).Error
}

func (r *ReasoningSessionRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.HistoricalSession, error) {
	var m model.ReasoningSession
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *ReasoningSessionRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.HistoricalSession, error) {
	var models []*model.ReasoningSession
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

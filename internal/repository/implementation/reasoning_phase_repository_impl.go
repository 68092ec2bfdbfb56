package implementation

import (
	"context"

	"survey-assistant-be/internal/entity"
	"survey-assistant-be/internal/mapper"
	"survey-assistant-be/internal/model"
	"survey-assistant-be/internal/repository/contract"
	"survey-assistant-be/internal/repository/specification"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ReasoningPhaseRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ReasoningSessionMapper
}

func NewReasoningPhaseRepository(db *gorm.DB) contract.ReasoningPhaseRepository {
	return &ReasoningPhaseRepositoryImpl{
		db:     db,
		mapper: mapper.NewReasoningSessionMapper(),
	}
}

func (r *ReasoningPhaseRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *ReasoningPhaseRepositoryImpl) UpsertForResult(ctx context.Context, sessionId string, result *entity.ReasoningResult) error {
	models := r.mapper.PhasesToModels(sessionId, result)
	if len(models) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "result_id"}, {Name: "phase_index"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"session_id", "type", "content", "token_count", "duration_ms", "corrections", "updated_at",
		}),
	}).Create(models).Error
	if err != nil && !isDuplicateKey(err) {
		return err
	}
	return nil
}

func (r *ReasoningPhaseRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ReasoningPhase, error) {
	var models []*model.ReasoningPhase
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.ReasoningPhase, len(models))
	for i, m := range models {
		entities[i] = r.mapper.PhaseToEntity(m)
	}
	return entities, nil
}

func (r *ReasoningPhaseRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	err := query.Model(&model.ReasoningPhase{}).Count(&count).Error
	return count, err
}

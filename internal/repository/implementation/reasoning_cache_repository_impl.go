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

type ReasoningCacheRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ReasoningCacheMapper
}

func NewReasoningCacheRepository(db *gorm.DB) contract.ReasoningCacheRepository {
	return &ReasoningCacheRepositoryImpl{
		db:     db,
		mapper: mapper.NewReasoningCacheMapper(),
	}
}

func (r *ReasoningCacheRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *ReasoningCacheRepositoryImpl) Upsert(ctx context.Context, userId string, entry *entity.CacheEntry) error {
	m, err := r.mapper.ToModel(userId, entry)
	if err != nil || m == nil {
		return err
	}

	err = r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "content_hash"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"query", "result", "tags", "embedding", "hit_count",
			"ttl_seconds", "last_accessed", "expires_at", "created_at", "updated_at",
		}),
	}).Create(m).Error
	if err != nil && !isDuplicateKey(err) {
		return err
	}
	return nil
}

func (r *ReasoningCacheRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.CacheEntry, error) {
	var m model.ReasoningCacheEntry
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m)
}

// FindAll skips rows whose stored result cannot be decoded.
func (r *ReasoningCacheRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.CacheEntry, error) {
	var models []*model.ReasoningCacheEntry
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}

	entities := make([]*entity.CacheEntry, 0, len(models))
	for _, m := range models {
		e, err := r.mapper.ToEntity(m)
		if err != nil {
			continue
		}
		entities = append(entities, e)
	}
	return entities, nil
}

func (r *ReasoningCacheRepositoryImpl) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("expires_at < ?", now).Delete(&model.ReasoningCacheEntry{})
	return res.RowsAffected, res.Error
}

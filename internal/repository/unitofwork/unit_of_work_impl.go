package unitofwork

import (
	"context"
	"errors"

	"survey-assistant-be/internal/repository/contract"
	"survey-assistant-be/internal/repository/implementation"

	"gorm.io/gorm"
)

var (
	ErrTxActive   = errors.New("unitofwork: transaction already started")
	ErrTxInactive = errors.New("unitofwork: no active transaction")
)

type UnitOfWorkImpl struct {
	db *gorm.DB
	tx *gorm.DB // nil outside Begin/Commit
}

func NewUnitOfWork(db *gorm.DB) UnitOfWork {
	return &UnitOfWorkImpl{db: db}
}

func (u *UnitOfWorkImpl) conn() *gorm.DB {
	if u.tx != nil {
		return u.tx
	}
	return u.db
}

func (u *UnitOfWorkImpl) Begin(ctx context.Context) error {
	if u.tx != nil {
		return ErrTxActive
	}
	tx := u.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}
	u.tx = tx
	return nil
}

func (u *UnitOfWorkImpl) Commit() error {
	if u.tx == nil {
		return ErrTxInactive
	}
	err := u.tx.Commit().Error
	u.tx = nil
	return err
}

func (u *UnitOfWorkImpl) Transaction(ctx context.Context, fn func(tx UnitOfWork) error) error {
	if u.tx != nil {
		return ErrTxActive
	}
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&UnitOfWorkImpl{db: tx, tx: tx})
	})
}

// Rollback is a no-op after Commit so it can always be deferred.
func (u *UnitOfWorkImpl) Rollback() error {
	if u.tx == nil {
		return nil
	}
	err := u.tx.Rollback().Error
	u.tx = nil
	return err
}

func (u *UnitOfWorkImpl) ReasoningSessionRepository() contract.ReasoningSessionRepository {
	return implementation.NewReasoningSessionRepository(u.conn())
}

func (u *UnitOfWorkImpl) ReasoningPhaseRepository() contract.ReasoningPhaseRepository {
	return implementation.NewReasoningPhaseRepository(u.conn())
}

func (u *UnitOfWorkImpl) ReasoningCacheRepository() contract.ReasoningCacheRepository {
	return implementation.NewReasoningCacheRepository(u.conn())
}

func (u *UnitOfWorkImpl) UserPreferenceRepository() contract.UserPreferenceRepository {
	return implementation.NewUserPreferenceRepository(u.conn())
}

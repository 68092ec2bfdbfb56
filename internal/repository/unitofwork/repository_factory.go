package unitofwork

import "context"

// RepositoryFactory hands out a fresh UnitOfWork per durable operation, so
// concurrent persistence jobs never share a transaction.
type RepositoryFactory interface {
	NewUnitOfWork(ctx context.Context) UnitOfWork
}

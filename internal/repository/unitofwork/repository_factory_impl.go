package unitofwork

import (
	"context"

	"deonai-be/pkg/auth"

	"gorm.io/gorm"
)

type RepositoryFactoryImpl struct {
	db      *gorm.DB
	rlsRole string
}

// NewRepositoryFactory returns a factory whose units of work assume rlsRole
// inside their transactions. An empty role keeps the connection's own role.
func NewRepositoryFactory(db *gorm.DB, rlsRole string) RepositoryFactory {
	return &RepositoryFactoryImpl{
		db:      db,
		rlsRole: rlsRole,
	}
}

func (f *RepositoryFactoryImpl) NewUnitOfWork(ctx context.Context, caller auth.Identity) UnitOfWork {
	return NewUnitOfWork(f.db, caller, f.rlsRole)
}

package unitofwork

import (
	"context"

	"deonai-be/pkg/auth"
)

type RepositoryFactory interface {
	NewUnitOfWork(ctx context.Context, caller auth.Identity) UnitOfWork
}

package unitofwork

import (
	"context"

	"deonai-be/internal/repository/contract"
)

// UnitOfWork groups repository calls made on behalf of one caller. Begin
// opens a transaction scoped to the caller's token so store-side row-level
// security applies to every statement issued through it.
type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	ConversationRepository() contract.ConversationRepository
	MessageRepository() contract.MessageRepository
}

package contract

import (
	"context"

	"deonai-be/internal/entity"
	"deonai-be/internal/repository/specification"
)

type ConversationRepository interface {
	Create(ctx context.Context, conversation *entity.Conversation) error
	// UpdateFields applies a partial update to every row matched by specs and
	// reports how many rows were affected.
	UpdateFields(ctx context.Context, fields map[string]interface{}, specs ...specification.Specification) (int64, error)
	Delete(ctx context.Context, specs ...specification.Specification) (int64, error)
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Conversation, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Conversation, error)
}

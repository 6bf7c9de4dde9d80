package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"deonai-be/internal/entity"
	"deonai-be/internal/repository/specification"
	"deonai-be/internal/repository/unitofwork"
	"deonai-be/pkg/auth"

	"github.com/google/uuid"
)

const (
	DefaultConversationTitle = "New conversation"
	MaxTitleLength           = 120
	MaxMessageLength         = 4000

	titleFromMessageLength = 60
)

// IConversationService is the persistence gateway for conversations and
// their messages. Each method runs in its own caller-scoped transaction; no
// guarantee spans two calls.
type IConversationService interface {
	CreateConversation(ctx context.Context, caller auth.Identity, title, modelId string) (*entity.Conversation, error)
	UpdateConversationModel(ctx context.Context, caller auth.Identity, conversationId uuid.UUID, modelId string) error
	UpdateConversationTitle(ctx context.Context, caller auth.Identity, conversationId uuid.UUID, title string) (*entity.Conversation, error)
	DeleteConversation(ctx context.Context, caller auth.Identity, conversationId uuid.UUID) error
	ListConversations(ctx context.Context, caller auth.Identity) ([]*entity.Conversation, error)
	AppendMessage(ctx context.Context, caller auth.Identity, conversationId uuid.UUID, role entity.MessageRole, content string) (*entity.Message, error)
	ListMessages(ctx context.Context, caller auth.Identity, conversationId uuid.UUID) ([]*entity.Message, error)
}

type conversationService struct {
	uowFactory unitofwork.RepositoryFactory
}

func NewConversationService(uowFactory unitofwork.RepositoryFactory) IConversationService {
	return &conversationService{uowFactory: uowFactory}
}

// NormalizeTitle substitutes the default for a blank title. Non-blank titles
// are kept as given.
func NormalizeTitle(title string) string {
	if strings.TrimSpace(title) == "" {
		return DefaultConversationTitle
	}
	return title
}

// TitleFromMessage derives a conversation title from the first 60 characters
// of the trimmed message.
func TitleFromMessage(message string) string {
	trimmed := strings.TrimSpace(message)
	if utf8.RuneCountInString(trimmed) > titleFromMessageLength {
		trimmed = string([]rune(trimmed)[:titleFromMessageLength])
	}
	return NormalizeTitle(trimmed)
}

func (s *conversationService) withUnitOfWork(ctx context.Context, caller auth.Identity, op string, fn func(uow unitofwork.UnitOfWork) error) error {
	uow := s.uowFactory.NewUnitOfWork(ctx, caller)
	if err := uow.Begin(ctx); err != nil {
		return storeError(op, err)
	}
	defer uow.Rollback()

	if err := fn(uow); err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrValidation) {
			return err
		}
		return storeError(op, err)
	}

	if err := uow.Commit(); err != nil {
		return storeError(op, err)
	}
	return nil
}

func (s *conversationService) CreateConversation(ctx context.Context, caller auth.Identity, title, modelId string) (*entity.Conversation, error) {
	title = NormalizeTitle(title)
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return nil, invalid("title", "must be at most 120 characters")
	}
	if strings.TrimSpace(modelId) == "" {
		return nil, invalid("model_id", "is required")
	}

	conversation := entity.Conversation{
		Id:        uuid.New(),
		UserId:    caller.Subject,
		Title:     title,
		ModelId:   modelId,
		CreatedAt: time.Now(),
	}

	err := s.withUnitOfWork(ctx, caller, "create conversation", func(uow unitofwork.UnitOfWork) error {
		return uow.ConversationRepository().Create(ctx, &conversation)
	})
	if err != nil {
		return nil, err
	}
	return &conversation, nil
}

func (s *conversationService) UpdateConversationModel(ctx context.Context, caller auth.Identity, conversationId uuid.UUID, modelId string) error {
	return s.withUnitOfWork(ctx, caller, "update conversation model", func(uow unitofwork.UnitOfWork) error {
		affected, err := uow.ConversationRepository().UpdateFields(ctx,
			map[string]interface{}{"model_id": modelId, "updated_at": time.Now()},
			specification.ByID{ID: conversationId},
			specification.UserOwnedBy{UserID: caller.Subject},
		)
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (s *conversationService) UpdateConversationTitle(ctx context.Context, caller auth.Identity, conversationId uuid.UUID, title string) (*entity.Conversation, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, invalid("title", "must not be empty")
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return nil, invalid("title", "must be at most 120 characters")
	}

	var updated *entity.Conversation
	err := s.withUnitOfWork(ctx, caller, "update conversation title", func(uow unitofwork.UnitOfWork) error {
		repo := uow.ConversationRepository()
		owned := []specification.Specification{
			specification.ByID{ID: conversationId},
			specification.UserOwnedBy{UserID: caller.Subject},
		}

		affected, err := repo.UpdateFields(ctx, map[string]interface{}{"title": title, "updated_at": time.Now()}, owned...)
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrNotFound
		}

		updated, err = repo.FindOne(ctx, owned...)
		if err != nil {
			return err
		}
		if updated == nil {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteConversation removes the conversation; its messages go with it
// through the foreign key cascade. Deleting an unknown id is not an error.
func (s *conversationService) DeleteConversation(ctx context.Context, caller auth.Identity, conversationId uuid.UUID) error {
	return s.withUnitOfWork(ctx, caller, "delete conversation", func(uow unitofwork.UnitOfWork) error {
		_, err := uow.ConversationRepository().Delete(ctx,
			specification.ByID{ID: conversationId},
			specification.UserOwnedBy{UserID: caller.Subject},
		)
		return err
	})
}

func (s *conversationService) ListConversations(ctx context.Context, caller auth.Identity) ([]*entity.Conversation, error) {
	var conversations []*entity.Conversation
	err := s.withUnitOfWork(ctx, caller, "list conversations", func(uow unitofwork.UnitOfWork) error {
		var err error
		conversations, err = uow.ConversationRepository().FindAll(ctx,
			specification.UserOwnedBy{UserID: caller.Subject},
			specification.NewestFirst{},
		)
		return err
	})
	if err != nil {
		return nil, err
	}
	return conversations, nil
}

func (s *conversationService) AppendMessage(ctx context.Context, caller auth.Identity, conversationId uuid.UUID, role entity.MessageRole, content string) (*entity.Message, error) {
	if !role.Valid() {
		return nil, invalid("role", "must be user or assistant")
	}
	if content == "" {
		return nil, invalid("content", "must not be empty")
	}

	message := entity.Message{
		Id:             uuid.New(),
		ConversationId: conversationId,
		Role:           role,
		Content:        content,
		CreatedAt:      time.Now(),
	}

	err := s.withUnitOfWork(ctx, caller, "append message", func(uow unitofwork.UnitOfWork) error {
		owner, err := uow.ConversationRepository().FindOne(ctx,
			specification.ByID{ID: conversationId},
			specification.UserOwnedBy{UserID: caller.Subject},
		)
		if err != nil {
			return err
		}
		if owner == nil {
			return ErrNotFound
		}
		return uow.MessageRepository().Create(ctx, &message)
	})
	if err != nil {
		return nil, err
	}
	return &message, nil
}

// ListMessages returns the conversation's messages oldest first. A
// conversation the caller cannot see yields an empty list.
func (s *conversationService) ListMessages(ctx context.Context, caller auth.Identity, conversationId uuid.UUID) ([]*entity.Message, error) {
	var messages []*entity.Message
	err := s.withUnitOfWork(ctx, caller, "list messages", func(uow unitofwork.UnitOfWork) error {
		var err error
		messages, err = uow.MessageRepository().FindAll(ctx,
			specification.OwnedConversation{ConversationID: conversationId, UserID: caller.Subject},
			specification.Chronological{},
		)
		return err
	})
	if err != nil {
		return nil, err
	}
	return messages, nil
}

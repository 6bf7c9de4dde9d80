package controller

import (
	"context"

	"deonai-be/internal/dto"
	"deonai-be/internal/entity"
	"deonai-be/internal/service"
	"deonai-be/pkg/auth"
	"deonai-be/pkg/llm"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type mockChatService struct {
	mock.Mock
}

func (m *mockChatService) Prepare(ctx context.Context, caller auth.Identity, req *dto.ChatRequest) (*service.ChatTurn, error) {
	args := m.Called(ctx, caller, req)
	turn, _ := args.Get(0).(*service.ChatTurn)
	return turn, args.Error(1)
}

func (m *mockChatService) Stream(ctx context.Context, turn *service.ChatTurn, emit service.EmitFunc) {
	m.Called(ctx, turn, emit)
}

type mockConversationService struct {
	mock.Mock
}

func (m *mockConversationService) CreateConversation(ctx context.Context, caller auth.Identity, title, modelId string) (*entity.Conversation, error) {
	args := m.Called(ctx, caller, title, modelId)
	c, _ := args.Get(0).(*entity.Conversation)
	return c, args.Error(1)
}

func (m *mockConversationService) UpdateConversationModel(ctx context.Context, caller auth.Identity, id uuid.UUID, modelId string) error {
	return m.Called(ctx, caller, id, modelId).Error(0)
}

func (m *mockConversationService) UpdateConversationTitle(ctx context.Context, caller auth.Identity, id uuid.UUID, title string) (*entity.Conversation, error) {
	args := m.Called(ctx, caller, id, title)
	c, _ := args.Get(0).(*entity.Conversation)
	return c, args.Error(1)
}

func (m *mockConversationService) DeleteConversation(ctx context.Context, caller auth.Identity, id uuid.UUID) error {
	return m.Called(ctx, caller, id).Error(0)
}

func (m *mockConversationService) ListConversations(ctx context.Context, caller auth.Identity) ([]*entity.Conversation, error) {
	args := m.Called(ctx, caller)
	cs, _ := args.Get(0).([]*entity.Conversation)
	return cs, args.Error(1)
}

func (m *mockConversationService) AppendMessage(ctx context.Context, caller auth.Identity, id uuid.UUID, role entity.MessageRole, content string) (*entity.Message, error) {
	args := m.Called(ctx, caller, id, role, content)
	msg, _ := args.Get(0).(*entity.Message)
	return msg, args.Error(1)
}

func (m *mockConversationService) ListMessages(ctx context.Context, caller auth.Identity, id uuid.UUID) ([]*entity.Message, error) {
	args := m.Called(ctx, caller, id)
	msgs, _ := args.Get(0).([]*entity.Message)
	return msgs, args.Error(1)
}

type mockModelService struct {
	mock.Mock
}

func (m *mockModelService) ValidateModel(modelId string) error {
	return m.Called(modelId).Error(0)
}

func (m *mockModelService) ListModels(ctx context.Context, apiKey string) ([]llm.ModelInfo, error) {
	args := m.Called(ctx, apiKey)
	models, _ := args.Get(0).([]llm.ModelInfo)
	return models, args.Error(1)
}

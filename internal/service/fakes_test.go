package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"deonai-be/internal/entity"
	"deonai-be/pkg/auth"
	"deonai-be/pkg/events"
	"deonai-be/pkg/llm"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// memoryConversations is an in-memory IConversationService used by the chat tests.
type memoryConversations struct {
	mu            sync.Mutex
	conversations map[uuid.UUID]*entity.Conversation
	messages      map[uuid.UUID][]*entity.Message
	failAppend    map[entity.MessageRole]error
	clock         time.Time
}

func newMemoryConversations() *memoryConversations {
	return &memoryConversations{
		conversations: make(map[uuid.UUID]*entity.Conversation),
		messages:      make(map[uuid.UUID][]*entity.Message),
		failAppend:    make(map[entity.MessageRole]error),
		clock:         time.Unix(1_700_000_000, 0),
	}
}

func (m *memoryConversations) tick() time.Time {
	m.clock = m.clock.Add(time.Millisecond)
	return m.clock
}

func (m *memoryConversations) CreateConversation(ctx context.Context, caller auth.Identity, title, modelId string) (*entity.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := &entity.Conversation{Id: uuid.New(), UserId: caller.Subject, Title: NormalizeTitle(title), ModelId: modelId, CreatedAt: m.tick()}
	m.conversations[c.Id] = c
	return c, nil
}

func (m *memoryConversations) owned(caller auth.Identity, id uuid.UUID) *entity.Conversation {
	c, ok := m.conversations[id]
	if !ok || c.UserId != caller.Subject {
		return nil
	}
	return c
}

func (m *memoryConversations) UpdateConversationModel(ctx context.Context, caller auth.Identity, id uuid.UUID, modelId string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.owned(caller, id)
	if c == nil {
		return ErrNotFound
	}
	c.ModelId = modelId
	return nil
}

func (m *memoryConversations) UpdateConversationTitle(ctx context.Context, caller auth.Identity, id uuid.UUID, title string) (*entity.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.owned(caller, id)
	if c == nil {
		return nil, ErrNotFound
	}
	c.Title = title
	return c, nil
}

func (m *memoryConversations) DeleteConversation(ctx context.Context, caller auth.Identity, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.owned(caller, id) != nil {
		delete(m.conversations, id)
		delete(m.messages, id)
	}
	return nil
}

func (m *memoryConversations) ListConversations(ctx context.Context, caller auth.Identity) ([]*entity.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.Conversation
	for _, c := range m.conversations {
		if c.UserId == caller.Subject {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memoryConversations) AppendMessage(ctx context.Context, caller auth.Identity, id uuid.UUID, role entity.MessageRole, content string) (*entity.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failAppend[role]; err != nil {
		return nil, err
	}
	if m.owned(caller, id) == nil {
		return nil, ErrNotFound
	}
	msg := &entity.Message{Id: uuid.New(), ConversationId: id, Role: role, Content: content, CreatedAt: m.tick()}
	m.messages[id] = append(m.messages[id], msg)
	return msg, nil
}

func (m *memoryConversations) ListMessages(ctx context.Context, caller auth.Identity, id uuid.UUID) ([]*entity.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.owned(caller, id) == nil {
		return []*entity.Message{}, nil
	}
	return append([]*entity.Message(nil), m.messages[id]...), nil
}

func (m *memoryConversations) messagesOf(id uuid.UUID) []*entity.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*entity.Message(nil), m.messages[id]...)
}

// scriptedProvider replays a fixed token list, optionally failing up front or
// after the tokens.
type scriptedProvider struct {
	tokens   []string
	startErr error
	endErr   error
	models   []llm.ModelInfo
	modelErr error

	mu          sync.Mutex
	gotHistory  []llm.Message
	gotOptions  llm.Options
	listCalls   int
	streamCalls int
}

func (p *scriptedProvider) StreamChat(ctx context.Context, history []llm.Message, opts ...llm.Option) (*llm.Stream, error) {
	p.mu.Lock()
	p.streamCalls++
	p.gotHistory = append([]llm.Message(nil), history...)
	for _, opt := range opts {
		opt(&p.gotOptions)
	}
	p.mu.Unlock()

	if p.startErr != nil {
		return nil, p.startErr
	}

	ch := make(chan string)
	stream, finish := llm.NewStream(ch)
	go func() {
		defer close(ch)
		for _, tok := range p.tokens {
			select {
			case ch <- tok:
			case <-ctx.Done():
				finish(ctx.Err())
				return
			}
		}
		finish(p.endErr)
	}()
	return stream, nil
}

func (p *scriptedProvider) ListModels(ctx context.Context, apiKey string) ([]llm.ModelInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listCalls++
	return p.models, p.modelErr
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, event events.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

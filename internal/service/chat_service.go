package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"deonai-be/internal/dto"
	"deonai-be/internal/entity"
	"deonai-be/internal/pkg/logger"
	"deonai-be/pkg/auth"
	"deonai-be/pkg/events"
	"deonai-be/pkg/llm"

	"github.com/google/uuid"
)

const (
	chatModule         = "chat"
	persistTimeout     = 10 * time.Second
	publishTimeout     = 2 * time.Second
	genericStreamError = "The assistant is unavailable right now. Please try again."
)

// EventPublisher is the optional sink for usage events.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// EmitFunc writes one event to the client. A non-nil error means the client
// is gone and no further events can be delivered.
type EmitFunc func(event dto.ChatEvent) error

// ChatTurn is the state reached once the conversation is resolved and its
// history loaded, ready to be streamed.
type ChatTurn struct {
	Caller         auth.Identity
	ConversationId uuid.UUID
	ModelId        string
	APIKey         string
	History        []llm.Message
	Created        bool
}

type IChatService interface {
	// Prepare resolves (or creates) the conversation, stores the user message
	// and loads the full history. Errors here happen before any byte of the
	// response is committed.
	Prepare(ctx context.Context, caller auth.Identity, req *dto.ChatRequest) (*ChatTurn, error)

	// Stream relays upstream tokens through emit, then stores the assistant
	// reply and emits the completion event. Failures are reported in-band.
	Stream(ctx context.Context, turn *ChatTurn, emit EmitFunc)
}

type chatService struct {
	conversations IConversationService
	models        IModelService
	provider      llm.LLMProvider
	publisher     EventPublisher
	logger        logger.ILogger
}

func NewChatService(
	conversations IConversationService,
	models IModelService,
	provider llm.LLMProvider,
	publisher EventPublisher,
	log logger.ILogger,
) IChatService {
	return &chatService{
		conversations: conversations,
		models:        models,
		provider:      provider,
		publisher:     publisher,
		logger:        log,
	}
}

func (cs *chatService) Prepare(ctx context.Context, caller auth.Identity, req *dto.ChatRequest) (*ChatTurn, error) {
	if req.Message == "" {
		return nil, invalid("message", "is required")
	}
	if utf8.RuneCountInString(req.Message) > MaxMessageLength {
		return nil, invalid("message", "must be at most 4000 characters")
	}
	if err := cs.models.ValidateModel(req.ModelId); err != nil {
		return nil, err
	}

	turn := &ChatTurn{
		Caller:  caller,
		ModelId: req.ModelId,
		APIKey:  req.ApiKey,
	}

	// Idle -> ConversationResolved
	if req.ConversationId == nil || *req.ConversationId == uuid.Nil {
		conversation, err := cs.conversations.CreateConversation(ctx, caller, TitleFromMessage(req.Message), req.ModelId)
		if err != nil {
			return nil, err
		}
		turn.ConversationId = conversation.Id
		turn.Created = true
		cs.publish(ctx, events.TypeConversationCreated, map[string]interface{}{
			"conversation_id": conversation.Id.String(),
			"user_id":         caller.Subject,
			"model_id":        req.ModelId,
		})
	} else {
		if err := cs.conversations.UpdateConversationModel(ctx, caller, *req.ConversationId, req.ModelId); err != nil {
			return nil, err
		}
		turn.ConversationId = *req.ConversationId
	}

	// ConversationResolved -> HistoryLoaded
	if _, err := cs.conversations.AppendMessage(ctx, caller, turn.ConversationId, entity.MessageRoleUser, req.Message); err != nil {
		return nil, err
	}

	messages, err := cs.conversations.ListMessages(ctx, caller, turn.ConversationId)
	if err != nil {
		return nil, err
	}

	turn.History = make([]llm.Message, 0, len(messages))
	for _, m := range messages {
		turn.History = append(turn.History, llm.Message{Role: string(m.Role), Content: m.Content})
	}

	return turn, nil
}

func (cs *chatService) Stream(ctx context.Context, turn *ChatTurn, emit EmitFunc) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	details := map[string]interface{}{
		"conversation_id": turn.ConversationId.String(),
		"model_id":        turn.ModelId,
		"history_len":     len(turn.History),
	}
	cs.logger.Info(chatModule, "Upstream stream starting", details)

	stream, err := cs.provider.StreamChat(ctx, turn.History,
		llm.WithModel(turn.ModelId),
		llm.WithAPIKey(turn.APIKey),
	)
	if err != nil {
		cs.fail(ctx, turn, err, "", emit)
		return
	}

	// HistoryLoaded -> Streaming
	var reply strings.Builder
	tokens := 0
	disconnected := false
	for token := range stream.Tokens {
		reply.WriteString(token)
		tokens++
		if disconnected {
			continue
		}
		if err := emit(dto.TokenEvent(token)); err != nil {
			disconnected = true
			// stops the producer; the channel is closed once it notices
			cancel()
		}
	}

	if disconnected {
		cs.logger.Warn(chatModule, "Client disconnected mid-stream", map[string]interface{}{
			"conversation_id": turn.ConversationId.String(),
			"tokens":          tokens,
		})
		cs.persistReply(ctx, turn, reply.String())
		return
	}

	if err := stream.Err(); err != nil {
		cs.fail(ctx, turn, err, reply.String(), emit)
		return
	}

	// Streaming -> Persisted
	if err := cs.persistReply(ctx, turn, reply.String()); err != nil {
		_ = emit(dto.ErrorEvent(describeStreamError(err)))
		return
	}

	// Persisted -> Done
	_ = emit(dto.DoneEvent(turn.ConversationId))

	cs.publish(ctx, events.TypeChatCompleted, map[string]interface{}{
		"conversation_id": turn.ConversationId.String(),
		"user_id":         turn.Caller.Subject,
		"model_id":        turn.ModelId,
		"tokens":          tokens,
		"reply_chars":     len([]rune(reply.String())),
	})
	cs.logger.Info(chatModule, "Chat turn completed", map[string]interface{}{
		"conversation_id": turn.ConversationId.String(),
		"tokens":          tokens,
	})
}

// fail is the Errored state: whatever was buffered is kept, then a single
// error event ends the stream without a completion event.
func (cs *chatService) fail(ctx context.Context, turn *ChatTurn, cause error, partial string, emit EmitFunc) {
	cs.logger.Error(chatModule, "Upstream stream failed", map[string]interface{}{
		"conversation_id": turn.ConversationId.String(),
		"model_id":        turn.ModelId,
		"error":           cause.Error(),
	})

	_ = cs.persistReply(ctx, turn, partial)
	_ = emit(dto.ErrorEvent(describeStreamError(cause)))

	cs.publish(ctx, events.TypeChatFailed, map[string]interface{}{
		"conversation_id": turn.ConversationId.String(),
		"user_id":         turn.Caller.Subject,
		"model_id":        turn.ModelId,
		"error":           cause.Error(),
	})
}

// persistReply stores the trimmed assistant reply when there is one. It
// detaches from ctx so a departed client does not abort the write.
func (cs *chatService) persistReply(ctx context.Context, turn *ChatTurn, reply string) error {
	content := strings.TrimSpace(reply)
	if content == "" {
		return nil
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	if _, err := cs.conversations.AppendMessage(writeCtx, turn.Caller, turn.ConversationId, entity.MessageRoleAssistant, content); err != nil {
		cs.logger.Error(chatModule, "Failed to persist assistant reply", map[string]interface{}{
			"conversation_id": turn.ConversationId.String(),
			"error":           err.Error(),
		})
		return err
	}
	return nil
}

func (cs *chatService) publish(ctx context.Context, eventType string, data map[string]interface{}) {
	if cs.publisher == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := cs.publisher.Publish(pubCtx, events.New(eventType, data)); err != nil {
		cs.logger.Warn(chatModule, "Failed to publish event", map[string]interface{}{
			"type":  eventType,
			"error": err.Error(),
		})
	}
}

// describeStreamError turns a failure into the message sent to the client.
func describeStreamError(err error) string {
	var upstreamErr *llm.UpstreamError
	var networkErr *llm.NetworkError

	switch {
	case errors.Is(err, llm.ErrInvalidCredentials):
		return "Invalid upstream API key"
	case errors.Is(err, llm.ErrInsufficientCredits):
		return "Insufficient upstream credits"
	case errors.Is(err, llm.ErrUpstreamThrottled):
		return "Upstream rate limit reached, please retry shortly"
	case errors.As(err, &upstreamErr):
		return upstreamErr.Error()
	case errors.As(err, &networkErr):
		return "Could not reach the upstream model provider"
	case errors.Is(err, ErrStore), errors.Is(err, ErrNotFound):
		return "Failed to save the assistant reply"
	default:
		return genericStreamError
	}
}

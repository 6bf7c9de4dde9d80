package dto

import (
	"github.com/google/uuid"
)

type ChatRequest struct {
	Message        string     `json:"message" validate:"required,min=1,max=4000"`
	ModelId        string     `json:"model_id" validate:"required,max=200"`
	ConversationId *uuid.UUID `json:"conversation_id"`
	ApiKey         string     `json:"api_key,omitempty"`
}

// ChatEvent is the payload of one server-sent event on the chat stream.
// Exactly one of Token, Done or Error is set.
type ChatEvent struct {
	Token          string     `json:"token,omitempty"`
	Done           bool       `json:"done,omitempty"`
	ConversationId *uuid.UUID `json:"conversation_id,omitempty"`
	Error          string     `json:"error,omitempty"`
}

func TokenEvent(token string) ChatEvent {
	return ChatEvent{Token: token}
}

func DoneEvent(conversationId uuid.UUID) ChatEvent {
	return ChatEvent{Done: true, ConversationId: &conversationId}
}

func ErrorEvent(message string) ChatEvent {
	return ChatEvent{Error: message}
}

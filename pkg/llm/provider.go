package llm

import (
	"context"
	"sync"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message represents a chat message in a provider-agnostic format
type Message struct {
	Role    string // "user", "assistant", "system"
	Content string
}

// Option sets per-request parameters such as the model or credential.
type Option func(*Options)

type Options struct {
	Model  string
	APIKey string // Per-request credential, falls back to the provider key
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

func WithAPIKey(key string) Option {
	return func(o *Options) {
		o.APIKey = key
	}
}

// ModelInfo is one entry of the upstream model catalog.
type ModelInfo struct {
	Id            string `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
	ContextLength int    `json:"context_length,omitempty"`
}

// LLMProvider defines the contract for the chat-completion backend
type LLMProvider interface {
	// StreamChat sends the full history and returns a stream of text tokens.
	// Failures detected before the first token are returned directly.
	StreamChat(ctx context.Context, history []Message, options ...Option) (*Stream, error)

	// ListModels returns the models available to the given credential.
	ListModels(ctx context.Context, apiKey string) ([]ModelInfo, error)
}

// Stream is a finite, non-restartable sequence of tokens. Tokens is closed
// when the producer stops; Err is meaningful only after that.
type Stream struct {
	Tokens <-chan string

	mu  sync.Mutex
	err error
}

// NewStream returns a stream reading from tokens together with the function
// the producer calls once, right before closing tokens, to record its outcome.
func NewStream(tokens <-chan string) (*Stream, func(error)) {
	s := &Stream{Tokens: tokens}
	return s, func(err error) {
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
	}
}

func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

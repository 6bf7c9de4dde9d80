package openrouter

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"deonai-be/pkg/llm"
)

const (
	DefaultCompletionsURL = "https://openrouter.ai/api/v1/chat/completions"
	DefaultModelsURL      = "https://openrouter.ai/api/v1/models"

	dataPrefix   = "data:"
	doneSentinel = "[DONE]"
	maxLineSize  = 1024 * 1024
)

type OpenRouterProvider struct {
	CompletionsURL string
	ModelsURL      string
	APIKey         string
	Client         *http.Client
}

// Ensure OpenRouterProvider implements LLMProvider
var _ llm.LLMProvider = &OpenRouterProvider{}

// NewOpenRouterProvider builds a client for an OpenAI-compatible completions
// endpoint. headerTimeout bounds the wait for response headers only; the
// streamed body itself is bounded by the caller's context.
func NewOpenRouterProvider(completionsURL, modelsURL, apiKey string, headerTimeout time.Duration) *OpenRouterProvider {
	if completionsURL == "" {
		completionsURL = DefaultCompletionsURL
	}
	if modelsURL == "" {
		modelsURL = DefaultModelsURL
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = headerTimeout

	return &OpenRouterProvider{
		CompletionsURL: completionsURL,
		ModelsURL:      modelsURL,
		APIKey:         apiKey,
		Client:         &http.Client{Transport: transport},
	}
}

// --- Request/Response structs (Internal to this package) ---

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chunkDelta struct {
	Content string `json:"content"`
}

type chunkChoice struct {
	Delta chunkDelta `json:"delta"`
}

type chatCompletionChunk struct {
	Choices []chunkChoice `json:"choices"`
}

type modelsResponse struct {
	Data []llm.ModelInfo `json:"data"`
}

// --- Interface Implementation ---

func (p *OpenRouterProvider) StreamChat(ctx context.Context, history []llm.Message, opts ...llm.Option) (*llm.Stream, error) {
	options := &llm.Options{}
	for _, opt := range opts {
		opt(options)
	}

	apiKey := options.APIKey
	if apiKey == "" {
		apiKey = p.APIKey
	}
	if apiKey == "" {
		return nil, llm.ErrInvalidCredentials
	}

	messages := make([]chatMessage, len(history))
	for i, msg := range history {
		messages[i] = chatMessage{Role: msg.Role, Content: msg.Content}
	}

	reqPayload := chatCompletionRequest{
		Model:    options.Model,
		Messages: messages,
		Stream:   true,
	}

	payloadBytes, err := json.Marshal(reqPayload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.CompletionsURL, bytes.NewReader(payloadBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, wrapTransportError("request", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		defer resp.Body.Close()
		return nil, classifyStatus(resp)
	}

	tokens := make(chan string)
	stream, finish := llm.NewStream(tokens)

	go func() {
		defer close(tokens)
		defer resp.Body.Close()
		finish(readEvents(ctx, resp.Body, tokens))
	}()

	return stream, nil
}

func (p *OpenRouterProvider) ListModels(ctx context.Context, apiKey string) ([]llm.ModelInfo, error) {
	if apiKey == "" {
		apiKey = p.APIKey
	}
	if apiKey == "" {
		return nil, llm.ErrInvalidCredentials
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.ModelsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, wrapTransportError("list models", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, classifyStatus(resp)
	}

	var body modelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode models: %w", err)
	}
	return body.Data, nil
}

// readEvents consumes the SSE body line by line and forwards every non-empty
// delta. It returns nil on the terminal sentinel or a clean EOF.
func readEvents(ctx context.Context, body io.Reader, tokens chan<- string) error {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, dataPrefix) {
			continue
		}

		data := strings.TrimSpace(strings.TrimPrefix(line, dataPrefix))
		if data == doneSentinel {
			return nil
		}

		token, ok := parseChunk(data)
		if !ok {
			continue
		}

		select {
		case tokens <- token:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if err := scanner.Err(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return wrapTransportError("stream read", err)
	}
	return nil
}

// parseChunk extracts the first choice's delta content. Malformed chunks and
// empty deltas report ok=false.
func parseChunk(data string) (string, bool) {
	var chunk chatCompletionChunk
	if err := json.Unmarshal([]byte(data), &chunk); err != nil {
		return "", false
	}
	if len(chunk.Choices) == 0 {
		return "", false
	}
	content := chunk.Choices[0].Delta.Content
	if content == "" {
		return "", false
	}
	return content, true
}

func classifyStatus(resp *http.Response) error {
	bodyBytes, _ := io.ReadAll(resp.Body)

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return llm.ErrInvalidCredentials
	case http.StatusPaymentRequired:
		return llm.ErrInsufficientCredits
	case http.StatusTooManyRequests:
		return llm.ErrUpstreamThrottled
	default:
		return &llm.UpstreamError{Status: resp.StatusCode, Body: string(bodyBytes)}
	}
}

func wrapTransportError(op string, err error) error {
	// caller cancellation is not a network fault
	if errors.Is(err, context.Canceled) {
		return err
	}
	return &llm.NetworkError{Op: op, Err: err}
}

package openrouter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"deonai-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, s *llm.Stream) []string {
	t.Helper()
	var out []string
	timeout := time.After(5 * time.Second)
	for {
		select {
		case tok, ok := <-s.Tokens:
			if !ok {
				return out
			}
			out = append(out, tok)
		case <-timeout:
			t.Fatal("stream did not finish")
		}
	}
}

func newProvider(url string) *OpenRouterProvider {
	return NewOpenRouterProvider(url+"/chat/completions", url+"/models", "server-key", 5*time.Second)
}

func TestStreamChatYieldsDeltas(t *testing.T) {
	var gotBody chatCompletionRequest
	var gotAuth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, ": OPENROUTER PROCESSING\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"Hi\"}}]}\n\n")
		fmt.Fprint(w, "data: {not json\n\n")
		fmt.Fprint(w, "data: {\"choices\":[]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"role\":\"assistant\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\" there\"}}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"after done\"}}]}\n\n")
	}))
	defer srv.Close()

	p := newProvider(srv.URL)
	history := []llm.Message{
		{Role: llm.RoleUser, Content: "hello"},
		{Role: llm.RoleAssistant, Content: "hey"},
		{Role: llm.RoleUser, Content: "again"},
	}

	stream, err := p.StreamChat(context.Background(), history, llm.WithModel("openai/gpt-4o-mini"))
	require.NoError(t, err)

	assert.Equal(t, []string{"Hi", " there"}, collect(t, stream))
	assert.NoError(t, stream.Err())

	assert.Equal(t, "Bearer server-key", gotAuth)
	assert.True(t, gotBody.Stream)
	assert.Equal(t, "openai/gpt-4o-mini", gotBody.Model)
	require.Len(t, gotBody.Messages, 3)
	assert.Equal(t, "again", gotBody.Messages[2].Content)
}

func TestStreamChatUsesRequestKey(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		fmt.Fprint(w, "data: [DONE]\n")
	}))
	defer srv.Close()

	stream, err := newProvider(srv.URL).StreamChat(context.Background(), nil, llm.WithAPIKey("user-key"))
	require.NoError(t, err)
	assert.Empty(t, collect(t, stream))
	assert.Equal(t, "Bearer user-key", gotAuth)
}

func TestStreamChatWithoutAnyKey(t *testing.T) {
	p := NewOpenRouterProvider("http://127.0.0.1:1", "", "", time.Second)
	_, err := p.StreamChat(context.Background(), nil)
	assert.ErrorIs(t, err, llm.ErrInvalidCredentials)
}

func TestStreamChatStatusClassification(t *testing.T) {
	tests := []struct {
		status  int
		wantErr error
	}{
		{status: http.StatusUnauthorized, wantErr: llm.ErrInvalidCredentials},
		{status: http.StatusPaymentRequired, wantErr: llm.ErrInsufficientCredits},
		{status: http.StatusTooManyRequests, wantErr: llm.ErrUpstreamThrottled},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, `{"error":{"message":"nope"}}`)
			}))
			defer srv.Close()

			stream, err := newProvider(srv.URL).StreamChat(context.Background(), nil)
			assert.Nil(t, stream)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	t.Run("generic upstream error keeps status and body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			fmt.Fprint(w, "bad gateway")
		}))
		defer srv.Close()

		_, err := newProvider(srv.URL).StreamChat(context.Background(), nil)
		var upstreamErr *llm.UpstreamError
		require.True(t, errors.As(err, &upstreamErr))
		assert.Equal(t, http.StatusBadGateway, upstreamErr.Status)
		assert.Equal(t, "bad gateway", upstreamErr.Body)
	})
}

func TestStreamChatNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := newProvider(url).StreamChat(context.Background(), nil)
	var netErr *llm.NetworkError
	assert.True(t, errors.As(err, &netErr))
}

func TestStreamChatStopsOnCancel(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"one\"}}]}\n\n")
		flusher.Flush()
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	stream, err := newProvider(srv.URL).StreamChat(ctx, nil)
	require.NoError(t, err)

	assert.Equal(t, "one", <-stream.Tokens)
	cancel()

	for range stream.Tokens {
	}
	assert.ErrorIs(t, stream.Err(), context.Canceled)
}

func TestListModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models", r.URL.Path)
		assert.Equal(t, "Bearer user-key", r.Header.Get("Authorization"))
		fmt.Fprint(w, `{"data":[{"id":"openai/gpt-4o-mini","name":"GPT-4o mini","context_length":128000}]}`)
	}))
	defer srv.Close()

	models, err := newProvider(srv.URL).ListModels(context.Background(), "user-key")
	require.NoError(t, err)
	require.Len(t, models, 1)
	assert.Equal(t, "openai/gpt-4o-mini", models[0].Id)
	assert.Equal(t, 128000, models[0].ContextLength)
}

func TestParseChunk(t *testing.T) {
	tok, ok := parseChunk(`{"choices":[{"delta":{"content":"x"}},{"delta":{"content":"y"}}]}`)
	assert.True(t, ok)
	assert.Equal(t, "x", tok)

	_, ok = parseChunk(`{"choices":[{"delta":{"content":""}}]}`)
	assert.False(t, ok)
}

package completion_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akibhusain830-ctrl/trulybot.xyz-sub004/internal/completion"
)

func newCompletionServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *completion.HTTPClient) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := completion.NewHTTPClient(completion.Config{
		BaseURL: srv.URL,
		Model:   "gpt-4o-mini",
		APIKey:  "test-key",
	})
	require.NoError(t, err)
	return srv, client
}

func TestComplete(t *testing.T) {
	var captured struct {
		Model       string               `json:"model"`
		Messages    []completion.Message `json:"messages"`
		MaxTokens   int                  `json:"max_tokens"`
		Temperature float64              `json:"temperature"`
	}
	_, client := newCompletionServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "the answer"}},
			},
		})
	})

	text, err := client.Complete(context.Background(), completion.Request{
		System:   "be brief",
		Messages: []completion.Message{{Role: "user", Content: "hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "the answer", text)

	// The system prompt travels as the leading system message.
	require.Len(t, captured.Messages, 2)
	assert.Equal(t, "system", captured.Messages[0].Role)
	assert.Equal(t, "be brief", captured.Messages[0].Content)
	assert.Equal(t, 512, captured.MaxTokens)
	assert.Equal(t, 0.2, captured.Temperature)
}

func TestComplete_PerRequestOverrides(t *testing.T) {
	var captured struct {
		MaxTokens   int     `json:"max_tokens"`
		Temperature float64 `json:"temperature"`
	}
	_, client := newCompletionServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "ok"}},
			},
		})
	})

	_, err := client.Complete(context.Background(), completion.Request{
		Messages:    []completion.Message{{Role: "user", Content: "hi"}},
		MaxTokens:   256,
		Temperature: 0.1,
	})
	require.NoError(t, err)
	assert.Equal(t, 256, captured.MaxTokens)
	assert.Equal(t, 0.1, captured.Temperature)
}

func TestComplete_UpstreamError(t *testing.T) {
	_, client := newCompletionServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{"type": "rate_limit", "message": "slow down"},
		})
	})

	_, err := client.Complete(context.Background(), completion.Request{
		Messages: []completion.Message{{Role: "user", Content: "hi"}},
	})
	assert.ErrorIs(t, err, completion.ErrCompletionFailed)
	assert.Contains(t, err.Error(), "slow down")
}

func TestComplete_EmptyChoices(t *testing.T) {
	_, client := newCompletionServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	})

	_, err := client.Complete(context.Background(), completion.Request{
		Messages: []completion.Message{{Role: "user", Content: "hi"}},
	})
	assert.ErrorIs(t, err, completion.ErrCompletionFailed)
}

func TestNewHTTPClient_Validation(t *testing.T) {
	_, err := completion.NewHTTPClient(completion.Config{Model: "m"})
	assert.ErrorIs(t, err, completion.ErrInvalidConfig)

	_, err = completion.NewHTTPClient(completion.Config{BaseURL: "http://x"})
	assert.ErrorIs(t, err, completion.ErrInvalidConfig)
}

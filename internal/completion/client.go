// Package completion provides the chat-completion capability consumed by
// the retrieval orchestrator and the fallback answer generator.
package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

var (
	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrCompletionFailed indicates upstream completion failure.
	// The chat path recovers by answering from the fact sheet; it is
	// never surfaced as a 5xx unless the fallback also fails.
	ErrCompletionFailed = errors.New("completion generation failed")
)

// Message is one turn of a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request describes one completion call.
type Request struct {
	// System is the system prompt.
	System string

	// Messages is the conversation window, oldest first.
	Messages []Message

	// MaxTokens bounds the response. Zero uses the client default.
	MaxTokens int

	// Temperature overrides the client default when > 0.
	Temperature float64
}

// Client is the interface for chat-completion providers.
// This enables testing with mocks.
type Client interface {
	// Complete generates an assistant reply for the request.
	Complete(ctx context.Context, req Request) (string, error)
}

// Config holds configuration for the HTTP completion client.
type Config struct {
	// BaseURL is the OpenAI-compatible API base URL.
	BaseURL string

	// Model is the completion model.
	Model string

	// APIKey authenticates against the provider.
	APIKey string

	// Timeout bounds each call. Default: 10s.
	Timeout time.Duration

	// MaxTokens is the default response budget. Default: 512.
	MaxTokens int

	// Temperature is the default sampling temperature. Default: 0.2.
	Temperature float64
}

// HTTPClient implements Client over an OpenAI-compatible chat endpoint.
type HTTPClient struct {
	config     Config
	httpClient *http.Client
}

// NewHTTPClient creates a completion client.
func NewHTTPClient(config Config) (*HTTPClient, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("%w: base URL required", ErrInvalidConfig)
	}
	if config.Model == "" {
		return nil, fmt.Errorf("%w: model required", ErrInvalidConfig)
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = 512
	}
	if config.Temperature == 0 {
		config.Temperature = 0.2
	}
	return &HTTPClient{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
	}, nil
}

// chatRequest is the request format for the chat completions endpoint.
type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
}

// chatResponse is the response format from the chat completions endpoint.
type chatResponse struct {
	Choices []struct {
		Message      Message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// chatError is an error response from the endpoint.
type chatError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Complete generates an assistant reply for the request.
func (c *HTTPClient) Complete(ctx context.Context, req Request) (string, error) {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.config.MaxTokens
	}
	temperature := req.Temperature
	if temperature == 0 {
		temperature = c.config.Temperature
	}

	messages := make([]Message, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, Message{Role: "system", Content: req.System})
	}
	messages = append(messages, req.Messages...)

	body, err := json.Marshal(chatRequest{
		Model:       c.config.Model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.config.BaseURL+"/chat/completions", bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCompletionFailed, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp chatError
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error.Message != "" {
			return "", fmt.Errorf("%w: status %d: %s", ErrCompletionFailed, resp.StatusCode, errResp.Error.Message)
		}
		return "", fmt.Errorf("%w: status %d: %s", ErrCompletionFailed, resp.StatusCode, string(respBody))
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("parsing response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%w: empty response", ErrCompletionFailed)
	}
	text := parsed.Choices[0].Message.Content
	if text == "" {
		return "", fmt.Errorf("%w: empty completion text", ErrCompletionFailed)
	}
	return text, nil
}

var _ Client = (*HTTPClient)(nil)

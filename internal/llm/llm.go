package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kaptinlin/jsonrepair"
	openai "github.com/sashabaranov/go-openai"
)

// Gateway is what the generation and grading pipeline needs from the LLM
// provider: a single JSON-object completion call plus an availability probe
// so callers can take their fallback path without burning retries.
type Gateway interface {
	// Available reports whether a credential is configured.
	Available() bool

	// GenerateJSON sends a prompt (and optional system prompt) and returns
	// the model's response decoded as a JSON object. Errors are one of
	// ErrUnavailable, *RequestFailedError, or *MalformedResponseError.
	GenerateJSON(ctx context.Context, prompt, systemPrompt string) (map[string]any, error)
}

// Config holds LLM client configuration.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float32
	MaxTokens   int

	// MaxAttempts is the total transport attempt budget per call.
	MaxAttempts int

	// Timeout bounds the wall-clock time of a single HTTP call.
	Timeout time.Duration
}

// DefaultConfig returns a Config with the standard transport budget.
func DefaultConfig() Config {
	return Config{
		Model:       "meta-llama/Llama-3-8b-chat-hf",
		Temperature: 0.7,
		MaxTokens:   2000,
		MaxAttempts: 3,
		Timeout:     60 * time.Second,
	}
}

// Client wraps an OpenAI-compatible chat-completion API.
type Client struct {
	api    *openai.Client
	config Config
}

// New creates a new LLM client. An empty API key is allowed: the client
// reports itself unavailable and never makes a network call.
func New(cfg Config) *Client {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}
	return &Client{
		api:    openai.NewClientWithConfig(apiCfg),
		config: cfg,
	}
}

// Available reports whether an API key is configured.
func (c *Client) Available() bool {
	return strings.TrimSpace(c.config.APIKey) != ""
}

// GenerateJSON sends the prompt to the chat-completion endpoint and parses
// the response body as a JSON object. Transient failures are retried up to
// the configured attempt budget with no backoff.
func (c *Client) GenerateJSON(ctx context.Context, prompt, systemPrompt string) (map[string]any, error) {
	if !c.Available() {
		return nil, ErrUnavailable
	}

	var messages []openai.ChatCompletionMessage
	if systemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: systemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})

	req := openai.ChatCompletionRequest{
		Model:       c.config.Model,
		Messages:    messages,
		Temperature: c.config.Temperature,
		MaxTokens:   c.config.MaxTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	var lastErr error
	for attempt := 1; attempt <= c.config.MaxAttempts; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
		resp, err := c.api.CreateChatCompletion(callCtx, req)
		cancel()

		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("llm: request canceled: %w", ctx.Err())
			}
			if isAuthError(err) {
				return nil, &RequestFailedError{Attempts: attempt, Last: err}
			}
			lastErr = err
			slog.Warn("LLM call failed", "attempt", attempt, "error", err)
			continue
		}

		if len(resp.Choices) == 0 {
			lastErr = errors.New("no choices in response")
			slog.Warn("LLM call returned no choices", "attempt", attempt)
			continue
		}

		raw := resp.Choices[0].Message.Content
		slog.Debug("LLM response", "raw", raw)
		return parseJSONObject(raw)
	}

	return nil, &RequestFailedError{Attempts: c.config.MaxAttempts, Last: lastErr}
}

// parseJSONObject decodes raw model output into a JSON object, running it
// through jsonrepair when straight decoding fails (models frequently emit
// trailing commas or unquoted keys).
func parseJSONObject(raw string) (map[string]any, error) {
	var out map[string]any
	if err := json.Unmarshal([]byte(raw), &out); err == nil {
		return out, nil
	}

	repaired, err := jsonrepair.JSONRepair(raw)
	if err != nil {
		return nil, &MalformedResponseError{Raw: raw, Err: err}
	}
	if err := json.Unmarshal([]byte(repaired), &out); err != nil {
		return nil, &MalformedResponseError{Raw: raw, Err: err}
	}
	slog.Debug("repaired malformed LLM JSON", "raw", raw)
	return out, nil
}

// isAuthError reports whether the provider rejected our credential.
// Auth failures are not transient and must not consume further attempts.
func isAuthError(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusUnauthorized ||
			apiErr.HTTPStatusCode == http.StatusForbidden
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusUnauthorized ||
			reqErr.HTTPStatusCode == http.StatusForbidden
	}
	return false
}

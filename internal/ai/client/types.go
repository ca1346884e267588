package client

import (
	"context"
	"errors"

	"github.com/sashabaranov/go-openai"
)

var (
	// ErrContentBlocked is returned when the provider refuses to complete a request.
	ErrContentBlocked = errors.New("content blocked by provider")
	// ErrCircuitOpen is returned while the circuit breaker rejects requests.
	ErrCircuitOpen = errors.New("vision model temporarily unavailable")
	// ErrNotConfigured is returned when no API key was configured.
	ErrNotConfigured = errors.New("vision model is not configured")
)

// Client provides a unified interface for making AI requests.
type Client interface {
	Chat() ChatCompletions
	Model() string
}

// ChatCompletions provides chat completion methods.
type ChatCompletions interface {
	New(ctx context.Context, req openai.ChatCompletionRequest) (*openai.ChatCompletionResponse, error)
	NewWithRetry(ctx context.Context, req openai.ChatCompletionRequest, callback RetryCallback) error
}

// RetryCallback inspects a completed response. Returning an error retries the
// request unless the error is wrapped with backoff.Permanent.
type RetryCallback func(resp *openai.ChatCompletionResponse) error

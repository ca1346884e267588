package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/robalyx/sentinel/internal/setup/config"
	"github.com/robalyx/sentinel/pkg/utils"
	"github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// AIClient wraps an OpenAI-compatible client with a circuit breaker and a
// concurrency limit.
type AIClient struct {
	client     *openai.Client
	breaker    *gobreaker.CircuitBreaker
	semaphore  *semaphore.Weighted
	model      string
	configured bool
	retry      utils.RetryOptions
	logger     *zap.Logger
}

// NewClient creates a new AIClient.
func NewClient(cfg *config.OpenAI, logger *zap.Logger) *AIClient {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	timeout := time.Duration(cfg.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	clientCfg.HTTPClient = &http.Client{Timeout: timeout}

	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}

	logger = logger.Named("ai_client")

	// Create circuit breaker settings
	settings := gobreaker.Settings{
		Name:        "openai",
		MaxRequests: 1,
		Timeout:     60 * time.Second,
		Interval:    0,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 10 && failureRatio >= 0.6
		},
		OnStateChange: func(_ string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}

	return &AIClient{
		client:     openai.NewClientWithConfig(clientCfg),
		breaker:    gobreaker.NewCircuitBreaker(settings),
		semaphore:  semaphore.NewWeighted(maxConcurrent),
		model:      cfg.Model,
		configured: cfg.APIKey != "",
		retry:      utils.GetAIRetryOptions(),
		logger:     logger,
	}
}

// SetRetryOptions replaces the retry options used by NewWithRetry.
func (c *AIClient) SetRetryOptions(opts utils.RetryOptions) {
	c.retry = opts
}

// Configured reports whether an API key is available.
func (c *AIClient) Configured() bool {
	return c.configured
}

// Model returns the configured model name.
func (c *AIClient) Model() string {
	return c.model
}

// Chat returns a ChatCompletions implementation.
func (c *AIClient) Chat() ChatCompletions {
	return &chatCompletions{client: c}
}

// chatCompletions implements the ChatCompletions interface.
type chatCompletions struct {
	client *AIClient
}

// New makes a single chat completion request.
func (c *chatCompletions) New(
	ctx context.Context, req openai.ChatCompletionRequest,
) (*openai.ChatCompletionResponse, error) {
	if !c.client.configured {
		return nil, ErrNotConfigured
	}

	if err := c.client.semaphore.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("failed to acquire semaphore: %w", err)
	}
	defer c.client.semaphore.Release(1)

	return c.execute(ctx, req)
}

// NewWithRetry makes a chat completion request, retrying transient failures
// and any response the callback rejects.
func (c *chatCompletions) NewWithRetry(
	ctx context.Context, req openai.ChatCompletionRequest, callback RetryCallback,
) error {
	if !c.client.configured {
		return ErrNotConfigured
	}

	if err := c.client.semaphore.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("failed to acquire semaphore: %w", err)
	}
	defer c.client.semaphore.Release(1)

	var attempt int

	_, err := utils.WithRetry(ctx, func() (struct{}, error) {
		if err := ctx.Err(); err != nil {
			return struct{}{}, backoff.Permanent(err)
		}

		attempt++

		resp, err := c.execute(ctx, req)
		if err != nil {
			if errors.Is(err, ErrCircuitOpen) || errors.Is(err, ErrContentBlocked) {
				return struct{}{}, backoff.Permanent(err)
			}

			c.client.logger.Warn("Failed to make request",
				zap.Error(err),
				zap.String("model", req.Model),
				zap.Int("attempt", attempt))
			return struct{}{}, err
		}

		if err := callback(resp); err != nil {
			c.client.logger.Warn("Response rejected",
				zap.Error(err),
				zap.Int("attempt", attempt))
			return struct{}{}, err
		}

		return struct{}{}, nil
	}, c.client.retry)
	if err != nil {
		return fmt.Errorf("all retry attempts failed: %w", err)
	}

	return nil
}

// execute sends one request through the circuit breaker.
func (c *chatCompletions) execute(
	ctx context.Context, req openai.ChatCompletionRequest,
) (*openai.ChatCompletionResponse, error) {
	result, err := c.client.breaker.Execute(func() (any, error) {
		resp, err := c.client.client.CreateChatCompletion(ctx, req)
		if err != nil {
			return nil, err
		}
		if err := c.checkFinishReason(&resp, req.Model); err != nil {
			return nil, err
		}
		return &resp, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %w", ErrCircuitOpen, err)
		}
		return nil, err
	}

	return result.(*openai.ChatCompletionResponse), nil
}

// checkFinishReason rejects responses that were cut off by content filtering.
func (c *chatCompletions) checkFinishReason(resp *openai.ChatCompletionResponse, model string) error {
	if len(resp.Choices) == 0 {
		c.client.logger.Warn("Received empty choices", zap.String("model", model))
		return fmt.Errorf("%w: received empty choices", ErrContentBlocked)
	}

	switch reason := resp.Choices[0].FinishReason; reason {
	case openai.FinishReasonStop, openai.FinishReasonLength, openai.FinishReasonNull:
		return nil
	case openai.FinishReasonContentFilter:
		c.client.logger.Warn("Content blocked",
			zap.String("model", model),
			zap.String("finishReason", string(reason)))
		return fmt.Errorf("%w: %s", ErrContentBlocked, reason)
	default:
		c.client.logger.Warn("Unknown finish reason",
			zap.String("model", model),
			zap.String("finishReason", string(reason)))
		return nil
	}
}

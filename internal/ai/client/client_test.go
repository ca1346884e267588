package client_test

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/robalyx/sentinel/internal/ai/client"
	"github.com/robalyx/sentinel/internal/setup/config"
	"github.com/robalyx/sentinel/pkg/utils"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func completion(content, finishReason string) string {
	return `{"id":"1","object":"chat.completion","created":1,"model":"test","choices":[` +
		`{"index":0,"message":{"role":"assistant","content":"` + content + `"},"finish_reason":"` + finishReason + `"}]}`
}

func newClient(t *testing.T, handler http.HandlerFunc) *client.AIClient {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c := client.NewClient(&config.OpenAI{
		BaseURL:       server.URL + "/v1",
		APIKey:        "test-key",
		Model:         "test-model",
		MaxConcurrent: 2,
	}, zap.NewNop())
	c.SetRetryOptions(utils.RetryOptions{
		MaxElapsedTime:  time.Second,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
		MaxRetries:      2,
	})

	return c
}

func request() openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model:    "test-model",
		Messages: []openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleUser, Content: "hi"}},
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completion("hello", "stop")))
	})

	resp, err := c.Chat().New(t.Context(), request())
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Choices[0].Message.Content)
}

func TestNewContentFiltered(t *testing.T) {
	t.Parallel()

	c := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completion("", "content_filter")))
	})

	_, err := c.Chat().New(t.Context(), request())
	require.ErrorIs(t, err, client.ErrContentBlocked)
}

func TestNewWithRetry(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	c := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":{"message":"boom"}}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completion("ok", "stop")))
	})

	var content string
	err := c.Chat().NewWithRetry(t.Context(), request(), func(resp *openai.ChatCompletionResponse) error {
		content = resp.Choices[0].Message.Content
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", content)
	assert.Equal(t, int32(2), calls.Load())
}

func TestNotConfigured(t *testing.T) {
	t.Parallel()

	c := client.NewClient(&config.OpenAI{Model: "test-model"}, zap.NewNop())
	assert.False(t, c.Configured())

	_, err := c.Chat().New(t.Context(), request())
	require.ErrorIs(t, err, client.ErrNotConfigured)
}

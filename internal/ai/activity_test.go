package ai_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/robalyx/sentinel/internal/ai"
	"github.com/robalyx/sentinel/internal/ai/client"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var errUpstream = errors.New("upstream failure")

// fakeChat answers each request with the reply registered for its image URL.
type fakeChat struct {
	replies map[string]string
	fail    map[string]bool
}

func (f *fakeChat) New(context.Context, openai.ChatCompletionRequest) (*openai.ChatCompletionResponse, error) {
	return nil, errUpstream
}

func (f *fakeChat) NewWithRetry(
	_ context.Context, req openai.ChatCompletionRequest, callback client.RetryCallback,
) error {
	url := req.Messages[0].MultiContent[1].ImageURL.URL
	if f.fail[url] {
		return errUpstream
	}

	return callback(&openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{
			Message:      openai.ChatCompletionMessage{Content: f.replies[url]},
			FinishReason: openai.FinishReasonStop,
		}},
	})
}

type fakeClient struct{ chat *fakeChat }

func (f *fakeClient) Chat() client.ChatCompletions { return f.chat }
func (f *fakeClient) Model() string                { return "test-model" }

func image(name string) ai.Image {
	return ai.Image{URL: "https://cdn.example/" + name, Filename: name, ContentType: "image/png"}
}

func TestValidateImages(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		images  []ai.Image
		wantErr error
	}{
		{name: "none", images: nil, wantErr: ai.ErrNoImages},
		{name: "one png", images: []ai.Image{image("a.png")}},
		{
			name:   "content type with parameters",
			images: []ai.Image{{Filename: "a.jpg", ContentType: "image/jpeg; charset=binary"}},
		},
		{
			name:    "too many",
			images:  []ai.Image{image("1"), image("2"), image("3"), image("4"), image("5"), image("6")},
			wantErr: ai.ErrTooManyImages,
		},
		{
			name:    "not an image",
			images:  []ai.Image{image("a.png"), {Filename: "notes.txt", ContentType: "text/plain"}},
			wantErr: ai.ErrUnsupportedImage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := ai.ValidateImages(tt.images)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestParseActivityResponse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		content  string
		expected []ai.ActivityEntry
		wantErr  bool
	}{
		{
			name:     "plain json",
			content:  `[{"member_name":"Alice","week_activity_points":1200}]`,
			expected: []ai.ActivityEntry{{MemberName: "Alice", WeekActivityPoints: 1200}},
		},
		{
			name:     "json fence",
			content:  "```json\n[{\"member_name\":\"Bob\",\"week_activity_points\":5}]\n```",
			expected: []ai.ActivityEntry{{MemberName: "Bob", WeekActivityPoints: 5}},
		},
		{
			name:    "bare fence",
			content: "```\n[]\n```",
		},
		{name: "prose", content: "I could not read the image.", wantErr: true},
		{name: "empty", content: "  ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			entries, err := ai.ParseActivityResponse(tt.content)
			if tt.wantErr {
				require.ErrorIs(t, err, ai.ErrInvalidResponse)
				return
			}
			require.NoError(t, err)
			if len(tt.expected) == 0 {
				assert.Empty(t, entries)
				return
			}
			assert.Equal(t, tt.expected, entries)
		})
	}
}

func TestMergeActivity(t *testing.T) {
	t.Parallel()

	// "é" composed and decomposed must merge into one member.
	composed := "Ren\u00e9"
	decomposed := "Rene\u0301"

	merged := ai.MergeActivity([]ai.ActivityEntry{
		{MemberName: "Alice", WeekActivityPoints: 100},
		{MemberName: " Alice ", WeekActivityPoints: 300},
		{MemberName: composed, WeekActivityPoints: 50},
		{MemberName: decomposed, WeekActivityPoints: 75},
		{MemberName: "Bob", WeekActivityPoints: 300},
		{MemberName: "", WeekActivityPoints: 999},
	})

	assert.Equal(t, []ai.ActivityEntry{
		{MemberName: "Alice", WeekActivityPoints: 300},
		{MemberName: "Bob", WeekActivityPoints: 300},
		{MemberName: composed, WeekActivityPoints: 75},
	}, merged)
}

func TestExtract(t *testing.T) {
	t.Parallel()

	chat := &fakeChat{
		replies: map[string]string{
			"https://cdn.example/one.png": `[{"member_name":"Alice","week_activity_points":10},{"member_name":"Bob","week_activity_points":40}]`,
			"https://cdn.example/two.png": "```json\n[{\"member_name\":\"Alice\",\"week_activity_points\":25}]\n```",
		},
		fail: map[string]bool{"https://cdn.example/bad.png": true},
	}
	analyzer := ai.NewActivityAnalyzer(&fakeClient{chat: chat}, zap.NewNop())

	t.Run("merges across images", func(t *testing.T) {
		t.Parallel()

		result, err := analyzer.Extract(t.Context(), []ai.Image{image("one.png"), image("two.png"), image("bad.png")})
		require.NoError(t, err)

		assert.Equal(t, 2, result.Images)
		assert.Equal(t, []string{"bad.png"}, result.Failed)
		assert.Equal(t, []ai.ActivityEntry{
			{MemberName: "Bob", WeekActivityPoints: 40},
			{MemberName: "Alice", WeekActivityPoints: 25},
		}, result.Entries)
	})

	t.Run("every image failed", func(t *testing.T) {
		t.Parallel()

		_, err := analyzer.Extract(t.Context(), []ai.Image{image("bad.png")})
		require.ErrorIs(t, err, ai.ErrNothingExtracted)
	})
}

func TestFormatActivity(t *testing.T) {
	t.Parallel()

	t.Run("empty", func(t *testing.T) {
		t.Parallel()

		report := ai.FormatActivity(nil)
		assert.Zero(t, report.Count)
		assert.Empty(t, report.Fields)
		assert.Nil(t, report.Highest)
	})

	t.Run("summary and separators", func(t *testing.T) {
		t.Parallel()

		report := ai.FormatActivity([]ai.ActivityEntry{
			{MemberName: "Alice", WeekActivityPoints: 12345},
			{MemberName: "Bob", WeekActivityPoints: 7},
		})

		require.Len(t, report.Fields, 1)
		assert.Equal(t, "**Alice**: 12,345 points\n**Bob**: 7 points", report.Fields[0])
		assert.Equal(t, 2, report.Count)
		assert.Equal(t, "Alice", report.Highest.MemberName)
		assert.Equal(t, "Bob", report.Lowest.MemberName)
	})

	t.Run("fields stay within limit", func(t *testing.T) {
		t.Parallel()

		entries := make([]ai.ActivityEntry, 0, 100)
		for i := range 100 {
			entries = append(entries, ai.ActivityEntry{
				MemberName:         strings.Repeat("m", 20) + string(rune('A'+i%26)),
				WeekActivityPoints: 1000 - i,
			})
		}

		report := ai.FormatActivity(entries)
		require.Greater(t, len(report.Fields), 1)

		lines := 0
		for _, field := range report.Fields {
			assert.LessOrEqual(t, len([]rune(field)), ai.MaxFieldLength)
			lines += strings.Count(field, "\n") + 1
		}
		assert.Equal(t, 100, lines)
	})
}

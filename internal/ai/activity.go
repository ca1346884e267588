package ai

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cenkalti/backoff/v4"
	"github.com/robalyx/sentinel/internal/ai/client"
	"github.com/robalyx/sentinel/pkg/utils"
	"github.com/sashabaranov/go-openai"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"
)

// ActivityAnalyzer extracts weekly activity points from leaderboard screenshots.
type ActivityAnalyzer struct {
	chat   client.ChatCompletions
	model  string
	logger *zap.Logger
}

// NewActivityAnalyzer creates a new activity analyzer.
func NewActivityAnalyzer(c client.Client, logger *zap.Logger) *ActivityAnalyzer {
	return &ActivityAnalyzer{
		chat:   c.Chat(),
		model:  c.Model(),
		logger: logger.Named("ai_activity"),
	}
}

// ValidateImages checks the number and content types of the screenshots.
func ValidateImages(images []Image) error {
	switch {
	case len(images) == 0:
		return ErrNoImages
	case len(images) > MaxImages:
		return fmt.Errorf("%w: %d (max %d)", ErrTooManyImages, len(images), MaxImages)
	}

	for _, img := range images {
		contentType := strings.ToLower(strings.TrimSpace(strings.SplitN(img.ContentType, ";", 2)[0]))
		if _, ok := supportedImageTypes[contentType]; !ok {
			return fmt.Errorf("%w: %s", ErrUnsupportedImage, img.Filename)
		}
	}

	return nil
}

// Extract analyzes every screenshot and merges the rows they contain. A failed
// screenshot is logged and skipped; the call only fails when nothing could be read.
func (a *ActivityAnalyzer) Extract(ctx context.Context, images []Image) (*ActivityResult, error) {
	if err := ValidateImages(images); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	type imageResult struct {
		filename string
		entries  []ActivityEntry
		err      error
	}

	p := pool.NewWithResults[imageResult]().WithMaxGoroutines(len(images))
	for _, img := range images {
		p.Go(func() imageResult {
			entries, err := a.analyzeImage(ctx, img)
			return imageResult{filename: img.Filename, entries: entries, err: err}
		})
	}

	result := &ActivityResult{}

	var all []ActivityEntry
	for _, res := range p.Wait() {
		if res.err != nil {
			a.logger.Error("Failed to analyze image",
				zap.String("filename", res.filename),
				zap.Error(res.err))
			result.Failed = append(result.Failed, res.filename)
			continue
		}

		a.logger.Info("Analyzed image",
			zap.String("filename", res.filename),
			zap.Int("members", len(res.entries)))

		result.Images++
		all = append(all, res.entries...)
	}

	if result.Images == 0 {
		return result, fmt.Errorf("%w: all %d image(s) failed", ErrNothingExtracted, len(images))
	}

	sort.Strings(result.Failed)
	result.Entries = MergeActivity(all)

	return result, nil
}

// analyzeImage sends one screenshot to the model and parses the reply.
func (a *ActivityAnalyzer) analyzeImage(ctx context.Context, img Image) ([]ActivityEntry, error) {
	req := openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: ActivitySystemPrompt,
					},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    img.URL,
							Detail: openai.ImageURLDetailHigh,
						},
					},
				},
			},
		},
		MaxTokens:   2000,
		Temperature: 0.2,
	}

	var entries []ActivityEntry

	err := a.chat.NewWithRetry(ctx, req, func(resp *openai.ChatCompletionResponse) error {
		parsed, err := ParseActivityResponse(resp.Choices[0].Message.Content)
		if err != nil {
			return backoff.Permanent(err)
		}

		entries = parsed
		return nil
	})
	if err != nil {
		return nil, err
	}

	return entries, nil
}

// ParseActivityResponse decodes the model reply, tolerating a surrounding
// markdown code fence.
func ParseActivityResponse(content string) ([]ActivityEntry, error) {
	content = stripCodeFence(content)
	if content == "" {
		return nil, fmt.Errorf("%w: empty content", ErrInvalidResponse)
	}

	var entries []ActivityEntry
	if err := sonic.UnmarshalString(content, &entries); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}

	return entries, nil
}

// stripCodeFence removes a leading ``` or ```json fence and its closing fence.
func stripCodeFence(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}

	content = strings.TrimPrefix(content, "```")
	if idx := strings.Index(content, "```"); idx >= 0 {
		content = content[:idx]
	}
	content = strings.TrimPrefix(content, "json")

	return strings.TrimSpace(content)
}

// MergeActivity collapses entries sharing a normalized member name, keeping
// the highest points, and orders them by points descending. Entries without a
// name are dropped.
func MergeActivity(entries []ActivityEntry) []ActivityEntry {
	merged := make(map[string]ActivityEntry, len(entries))

	for _, entry := range entries {
		name := norm.NFC.String(utils.CompressAllWhitespace(entry.MemberName))
		if name == "" {
			continue
		}

		if existing, ok := merged[name]; ok && existing.WeekActivityPoints >= entry.WeekActivityPoints {
			continue
		}
		merged[name] = ActivityEntry{MemberName: name, WeekActivityPoints: entry.WeekActivityPoints}
	}

	result := make([]ActivityEntry, 0, len(merged))
	for _, entry := range merged {
		result = append(result, entry)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].WeekActivityPoints != result[j].WeekActivityPoints {
			return result[i].WeekActivityPoints > result[j].WeekActivityPoints
		}
		return result[i].MemberName < result[j].MemberName
	})

	return result
}

package commands

import (
	"errors"
	"strconv"
	"time"

	"github.com/robalyx/sentinel/internal/ai"
	"go.uber.org/zap"
)

func (h *Handler) extractActivity(r *Request) error {
	if h.deps.Analyzer == nil {
		r.Text(errorText("Activity recognition is not configured. Please set the OpenAI API key."))
		return nil
	}

	images := make([]ai.Image, 0, ai.MaxImages)
	for i := 1; i <= ai.MaxImages; i++ {
		attachment, ok := r.data.OptAttachment(imageOption(i))
		if !ok {
			continue
		}

		img := ai.Image{URL: attachment.URL, Filename: attachment.Filename}
		if attachment.ContentType != nil {
			img.ContentType = *attachment.ContentType
		}
		images = append(images, img)
	}

	if err := ai.ValidateImages(images); err != nil {
		r.Text(errorText("%s. Please upload only image files (PNG, JPEG, WebP, GIF).", capitalize(err.Error())))
		return nil
	}

	r.Text("🔄 Analyzing " + imageCount(len(images)) + "...")

	result, err := h.deps.Analyzer.Extract(r.Context(), images)
	if errors.Is(err, ai.ErrNothingExtracted) {
		r.Text(errorText("None of the screenshots could be analyzed. Please try again with clearer images."))
		return nil
	}
	if err != nil {
		return err
	}

	h.logger.Info("Extracted activity",
		zap.Int("members", len(result.Entries)),
		zap.Int("images", result.Images),
		zap.Strings("failed", result.Failed))

	r.Embeds(ActivityEmbed(result, time.Now()))
	return nil
}

func imageCount(n int) string {
	if n == 1 {
		return "1 image"
	}
	return strconv.Itoa(n) + " images"
}

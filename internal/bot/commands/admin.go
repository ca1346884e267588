package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/robalyx/sentinel/internal/bot/constants"
	"github.com/robalyx/sentinel/internal/export"
	"go.uber.org/zap"
)

func (h *Handler) sync(r *Request) error {
	count, err := h.deps.Sync(r.Context())
	if err != nil {
		return err
	}

	h.logger.Info("Synced commands", zap.Int("count", count), zap.Uint64("guildID", r.GuildID))
	r.Text(fmt.Sprintf("✅ Synced %d commands.", count))
	return nil
}

func (h *Handler) databaseStats(r *Request) error {
	stats, err := h.deps.DB.Model().Stats().DatabaseStats(r.Context())
	if err != nil {
		return err
	}

	r.Embeds(DatabaseStatsEmbed(stats, time.Now()))
	return nil
}

func (h *Handler) cleanupOldData(r *Request) error {
	retention := h.deps.Config.Retention

	days := retention.DefaultDays
	if v := r.optInt(constants.DaysOption); v != nil {
		days = *v
	}
	if days < retention.MinimumDays {
		r.Text(errorText("Minimum retention period is %d days.", retention.MinimumDays))
		return nil
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	deleted, err := h.deps.DB.Model().Tracking().Cleanup(r.Context(), cutoff)
	if err != nil {
		return err
	}

	h.logger.Info("Cleaned up old tracking data",
		zap.Int("deleted", deleted),
		zap.Int("days", days),
		zap.Uint64("requestedBy", uint64(r.User.ID)))

	r.Embeds(CleanupEmbed(deleted, days, time.Now()))
	return nil
}

func (h *Handler) exportUserData(r *Request) error {
	user, _ := r.optUser(constants.UserOption)

	if err := os.MkdirAll(h.deps.ExportDir, 0o755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}
	dir, err := os.MkdirTemp(h.deps.ExportDir, "export-*")
	if err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}
	defer os.RemoveAll(dir)

	result, err := h.deps.Exporter.ExportUser(r.Context(), uint64(user.ID), dir)
	if errors.Is(err, export.ErrNoData) {
		r.Text(fmt.Sprintf("No tracking data found for %s.", user.EffectiveName()))
		return nil
	}
	if err != nil {
		return err
	}

	files := make([]*discord.File, 0, 2)
	for _, path := range []string{result.DataPath, result.SummaryPath} {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open export file: %w", err)
		}
		defer f.Close()

		files = append(files, discord.NewFile(filepath.Base(path), "", f))
	}

	r.Update(discord.NewMessageUpdateBuilder().
		SetEmbeds(ExportEmbed(user, result.Summary, time.Now())).
		AddFiles(files...).
		Build())
	return nil
}

func (h *Handler) cleanupDuplicateRoles(r *Request) error {
	removed, err := h.deps.DB.Model().Tracking().CleanupDuplicateInitialRoles(r.Context())
	if err != nil {
		return err
	}

	h.logger.Info("Removed duplicate initial roles", zap.Int("removed", removed))
	r.Embeds(DuplicateCleanupEmbed(removed, time.Now()))
	return nil
}

package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		_, err := db.NewRaw(`
			CREATE TABLE IF NOT EXISTS scheduled_messages (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				guild_id INTEGER NOT NULL,
				name TEXT NOT NULL,
				channel_id INTEGER NOT NULL,
				message TEXT NOT NULL,
				interval_days INTEGER NOT NULL DEFAULT 0,
				interval_hours INTEGER NOT NULL DEFAULT 0,
				interval_minutes INTEGER NOT NULL DEFAULT 0,
				role_ids TEXT,
				next_run TIMESTAMP NOT NULL,
				last_sent TIMESTAMP,
				is_active BOOLEAN NOT NULL DEFAULT TRUE,
				embed_title TEXT NOT NULL DEFAULT '',
				embed_color INTEGER NOT NULL DEFAULT 3447003,
				failure_count INTEGER NOT NULL DEFAULT 0,
				created_by INTEGER NOT NULL DEFAULT 0,
				created_at TIMESTAMP NOT NULL
			)
		`).Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to create scheduled_messages table: %w", err)
		}

		_, err = db.NewRaw(`
			CREATE INDEX IF NOT EXISTS idx_scheduled_messages_due
			ON scheduled_messages (is_active, next_run)
		`).Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to create scheduled_messages index: %w", err)
		}

		_, err = db.NewRaw(`
			CREATE INDEX IF NOT EXISTS idx_scheduled_messages_guild
			ON scheduled_messages (guild_id, id)
		`).Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to create scheduled_messages guild index: %w", err)
		}

		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		_, err := db.NewRaw("DROP TABLE IF EXISTS scheduled_messages").Exec(ctx)
		return err
	})
}

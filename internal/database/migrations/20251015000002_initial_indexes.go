package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		statements := []string{
			`CREATE INDEX IF NOT EXISTS idx_users_username ON users (username)`,
			`CREATE INDEX IF NOT EXISTS idx_guild_members_guild ON guild_members (guild_id)`,
			`CREATE INDEX IF NOT EXISTS idx_username_changes_user ON username_changes (user_id, changed_at DESC)`,
			`CREATE INDEX IF NOT EXISTS idx_nickname_changes_user ON nickname_changes (user_id, changed_at DESC)`,
			`CREATE INDEX IF NOT EXISTS idx_nickname_changes_guild ON nickname_changes (guild_id, changed_at DESC)`,
			`CREATE INDEX IF NOT EXISTS idx_role_changes_user ON role_changes (user_id, changed_at DESC)`,
			`CREATE INDEX IF NOT EXISTS idx_role_changes_role ON role_changes (role_id)`,
			`CREATE INDEX IF NOT EXISTS idx_role_changes_triple ON role_changes (guild_id, user_id, role_id)`,
			`CREATE INDEX IF NOT EXISTS idx_roles_guild ON roles (guild_id)`,
			`CREATE INDEX IF NOT EXISTS idx_join_leave_events_guild ON join_leave_events (guild_id, timestamp DESC)`,
		}

		for _, stmt := range statements {
			if _, err := db.NewRaw(stmt).Exec(ctx); err != nil {
				return fmt.Errorf("failed to create index: %w", err)
			}
		}

		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		indexes := []string{
			"idx_users_username",
			"idx_guild_members_guild",
			"idx_username_changes_user",
			"idx_nickname_changes_user",
			"idx_nickname_changes_guild",
			"idx_role_changes_user",
			"idx_role_changes_role",
			"idx_role_changes_triple",
			"idx_roles_guild",
			"idx_join_leave_events_guild",
		}

		for _, index := range indexes {
			if _, err := db.NewRaw("DROP INDEX IF EXISTS ?", bun.Ident(index)).Exec(ctx); err != nil {
				return fmt.Errorf("failed to drop index %s: %w", index, err)
			}
		}

		return nil
	})
}

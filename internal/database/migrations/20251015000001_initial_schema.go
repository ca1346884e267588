package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() { //nolint:funlen
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		statements := []string{
			`CREATE TABLE IF NOT EXISTS users (
				user_id INTEGER PRIMARY KEY,
				username TEXT NOT NULL,
				discriminator TEXT NOT NULL DEFAULT '',
				display_name TEXT NOT NULL DEFAULT '',
				avatar_url TEXT NOT NULL DEFAULT '',
				is_bot BOOLEAN NOT NULL DEFAULT FALSE,
				created_at TIMESTAMP NOT NULL,
				first_seen TIMESTAMP NOT NULL,
				last_seen TIMESTAMP NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS guild_members (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				guild_id INTEGER NOT NULL,
				user_id INTEGER NOT NULL,
				joined_at TIMESTAMP NOT NULL,
				nickname TEXT NOT NULL DEFAULT '',
				is_active BOOLEAN NOT NULL DEFAULT TRUE,
				UNIQUE (guild_id, user_id)
			)`,
			`CREATE TABLE IF NOT EXISTS roles (
				role_id INTEGER PRIMARY KEY,
				guild_id INTEGER NOT NULL,
				name TEXT NOT NULL,
				color INTEGER NOT NULL DEFAULT 0,
				position INTEGER NOT NULL DEFAULT 0,
				permissions TEXT NOT NULL DEFAULT '0',
				is_hoisted BOOLEAN NOT NULL DEFAULT FALSE,
				is_mentionable BOOLEAN NOT NULL DEFAULT FALSE,
				created_at TIMESTAMP NOT NULL,
				updated_at TIMESTAMP NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS username_changes (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				user_id INTEGER NOT NULL,
				old_username TEXT NOT NULL,
				new_username TEXT NOT NULL,
				changed_at TIMESTAMP NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS nickname_changes (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				guild_id INTEGER NOT NULL,
				user_id INTEGER NOT NULL,
				old_nickname TEXT NOT NULL,
				new_nickname TEXT NOT NULL,
				changed_at TIMESTAMP NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS role_changes (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				guild_id INTEGER NOT NULL,
				user_id INTEGER NOT NULL,
				role_id INTEGER NOT NULL REFERENCES roles (role_id),
				action TEXT NOT NULL CHECK (action IN ('added', 'removed', 'initial')),
				changed_at TIMESTAMP NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS join_leave_events (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				guild_id INTEGER NOT NULL,
				user_id INTEGER NOT NULL,
				event_type TEXT NOT NULL CHECK (event_type IN ('join', 'leave')),
				timestamp TIMESTAMP NOT NULL
			)`,
		}

		for _, stmt := range statements {
			if _, err := db.NewRaw(stmt).Exec(ctx); err != nil {
				return fmt.Errorf("failed to create table: %w", err)
			}
		}

		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		tables := []string{
			"join_leave_events",
			"role_changes",
			"nickname_changes",
			"username_changes",
			"roles",
			"guild_members",
			"users",
		}

		for _, table := range tables {
			if _, err := db.NewRaw("DROP TABLE IF EXISTS ?", bun.Ident(table)).Exec(ctx); err != nil {
				return fmt.Errorf("failed to drop table %s: %w", table, err)
			}
		}

		return nil
	})
}

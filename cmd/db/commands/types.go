package commands

import (
	"errors"

	"github.com/robalyx/sentinel/internal/database"
	"github.com/robalyx/sentinel/internal/export"
	"github.com/robalyx/sentinel/internal/setup/config"
	"github.com/uptrace/bun/migrate"
	"go.uber.org/zap"
)

var (
	ErrNameRequired      = errors.New("NAME argument required")
	ErrUserIDRequired    = errors.New("USER_ID argument required")
	ErrInvalidUserID     = errors.New("invalid user ID: must be a number")
	ErrFileRequired      = errors.New("FILE argument required")
	ErrRetentionTooShort = errors.New("retention period is below the configured minimum")
	ErrNotConfirmed      = errors.New("rollback drops tracked history, rerun with --yes")
)

// CLIDependencies holds the common dependencies needed by CLI commands.
type CLIDependencies struct {
	DB        database.Client
	Migrator  *migrate.Migrator
	Exporter  *export.Exporter
	Retention *config.Retention
	Logger    *zap.Logger
}

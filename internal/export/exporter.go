package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/robalyx/sentinel/internal/database"
	"github.com/robalyx/sentinel/internal/database/types"
	"github.com/robalyx/sentinel/internal/export/sqlite"
	"go.uber.org/zap"
)

// ErrNoData is returned when a user has no recorded history to export.
var ErrNoData = errors.New("no data found for user")

// Summary describes the contents of an export file.
type Summary struct {
	UserID          string    `json:"userId"`
	ExportedAt      time.Time `json:"exportedAt"`
	UsernameChanges int       `json:"usernameChanges"`
	NicknameChanges int       `json:"nicknameChanges"`
	RoleChanges     int       `json:"roleChanges"`
	JoinLeaveEvents int       `json:"joinLeaveEvents"`
	Total           int       `json:"total"`
	DataFile        string    `json:"dataFile"`
}

// Result holds the files produced by an export.
type Result struct {
	Summary     *Summary
	Data        *types.UserExport
	DataPath    string
	SummaryPath string
}

// Exporter writes portable copies of a user's tracked history.
type Exporter struct {
	db     database.Client
	logger *zap.Logger
	now    func() time.Time
}

// New creates a new exporter.
func New(db database.Client, logger *zap.Logger) *Exporter {
	return &Exporter{
		db:     db,
		logger: logger.Named("export"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// ExportUser writes the user's audit rows to a SQLite file in dir along with a
// JSON summary. File names carry a random suffix so repeated exports never collide.
func (e *Exporter) ExportUser(ctx context.Context, userID uint64, dir string) (*Result, error) {
	data, err := e.db.Model().Tracking().ExportUserData(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user data: %w", err)
	}

	if data.Total() == 0 {
		return nil, ErrNoData
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create export directory: %w", err)
	}

	exportedAt := e.now()
	base := fmt.Sprintf("user_%d_%s", userID, uuid.New().String()[:8])
	dataPath := filepath.Join(dir, base+".db")
	summaryPath := filepath.Join(dir, base+".json")

	if err := sqlite.Write(dataPath, data, exportedAt); err != nil {
		return nil, fmt.Errorf("failed to write export database: %w", err)
	}

	summary := NewSummary(data, exportedAt)
	summary.DataFile = filepath.Base(dataPath)

	raw, err := sonic.ConfigStd.MarshalIndent(summary, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal summary: %w", err)
	}

	if err := os.WriteFile(summaryPath, raw, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write summary: %w", err)
	}

	e.logger.Info("Exported user data",
		zap.Uint64("userID", userID),
		zap.Int("rows", summary.Total),
		zap.String("path", dataPath))

	return &Result{
		Summary:     summary,
		Data:        data,
		DataPath:    dataPath,
		SummaryPath: summaryPath,
	}, nil
}

// NewSummary counts the rows of an export.
func NewSummary(data *types.UserExport, exportedAt time.Time) *Summary {
	return &Summary{
		UserID:          fmt.Sprintf("%d", data.UserID),
		ExportedAt:      exportedAt,
		UsernameChanges: len(data.UsernameChanges),
		NicknameChanges: len(data.NicknameChanges),
		RoleChanges:     len(data.RoleChanges),
		JoinLeaveEvents: len(data.JoinLeaveEvents),
		Total:           data.Total(),
	}
}

// ReadUserExport loads an export file produced by ExportUser.
func ReadUserExport(path string) (*types.UserExport, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to open export: %w", err)
	}

	return sqlite.Read(path)
}

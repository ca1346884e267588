package sqlite

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/robalyx/sentinel/internal/database/types"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// ErrNotAnExport is returned when a file lacks the export metadata table.
var ErrNotAnExport = errors.New("file is not a user export")

// FormatVersion identifies the layout of export files.
const FormatVersion = 1

const schema = `
CREATE TABLE export_meta (
	format_version INTEGER NOT NULL,
	user_id TEXT NOT NULL,
	exported_at TEXT NOT NULL
);
CREATE TABLE username_changes (
	id INTEGER PRIMARY KEY,
	user_id TEXT NOT NULL,
	old_username TEXT NOT NULL,
	new_username TEXT NOT NULL,
	changed_at TEXT NOT NULL
);
CREATE TABLE nickname_changes (
	id INTEGER PRIMARY KEY,
	guild_id TEXT NOT NULL,
	user_id TEXT NOT NULL,
	old_nickname TEXT NOT NULL,
	new_nickname TEXT NOT NULL,
	changed_at TEXT NOT NULL
);
CREATE TABLE role_changes (
	id INTEGER PRIMARY KEY,
	guild_id TEXT NOT NULL,
	user_id TEXT NOT NULL,
	role_id TEXT NOT NULL,
	action TEXT NOT NULL,
	changed_at TEXT NOT NULL
);
CREATE TABLE join_leave_events (
	id INTEGER PRIMARY KEY,
	guild_id TEXT NOT NULL,
	user_id TEXT NOT NULL,
	event_type TEXT NOT NULL,
	timestamp TEXT NOT NULL
);
`

// Write stores a user export as a standalone SQLite database, replacing any
// existing file. Snowflakes are stored as text to survive signed 64-bit columns.
func Write(path string, export *types.UserExport, exportedAt time.Time) (err error) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove existing file: %w", err)
	}

	conn, err := sqlite.OpenConn(path, sqlite.OpenCreate|sqlite.OpenReadWrite)
	if err != nil {
		return fmt.Errorf("failed to open SQLite database: %w", err)
	}
	defer conn.Close()

	if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}

	endFn, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer endFn(&err)

	exec := func(query string, args ...any) error {
		return sqlitex.Execute(conn, query, &sqlitex.ExecOptions{Args: args})
	}

	if err := exec(`INSERT INTO export_meta (format_version, user_id, exported_at) VALUES (?, ?, ?)`,
		FormatVersion, id(export.UserID), stamp(exportedAt)); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}

	for _, c := range export.UsernameChanges {
		if err := exec(`INSERT INTO username_changes (id, user_id, old_username, new_username, changed_at)
			VALUES (?, ?, ?, ?, ?)`,
			c.ID, id(c.UserID), c.OldUsername, c.NewUsername, stamp(c.ChangedAt)); err != nil {
			return fmt.Errorf("failed to write username change: %w", err)
		}
	}

	for _, c := range export.NicknameChanges {
		if err := exec(`INSERT INTO nickname_changes (id, guild_id, user_id, old_nickname, new_nickname, changed_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			c.ID, id(c.GuildID), id(c.UserID), c.OldNickname, c.NewNickname, stamp(c.ChangedAt)); err != nil {
			return fmt.Errorf("failed to write nickname change: %w", err)
		}
	}

	for _, c := range export.RoleChanges {
		if err := exec(`INSERT INTO role_changes (id, guild_id, user_id, role_id, action, changed_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			c.ID, id(c.GuildID), id(c.UserID), id(c.RoleID), string(c.Action), stamp(c.ChangedAt)); err != nil {
			return fmt.Errorf("failed to write role change: %w", err)
		}
	}

	for _, e := range export.JoinLeaveEvents {
		if err := exec(`INSERT INTO join_leave_events (id, guild_id, user_id, event_type, timestamp)
			VALUES (?, ?, ?, ?, ?)`,
			e.ID, id(e.GuildID), id(e.UserID), string(e.EventType), stamp(e.Timestamp)); err != nil {
			return fmt.Errorf("failed to write join/leave event: %w", err)
		}
	}

	return nil
}

// Read loads a user export written by Write.
func Read(path string) (*types.UserExport, error) {
	conn, err := sqlite.OpenConn(path, sqlite.OpenReadOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	defer conn.Close()

	export := &types.UserExport{}
	var (
		found   bool
		scanErr error
	)

	err = sqlitex.ExecuteTransient(conn, `SELECT format_version, user_id FROM export_meta LIMIT 1`, &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			if v := stmt.ColumnInt(0); v != FormatVersion {
				return fmt.Errorf("%w: unsupported format version %d", ErrNotAnExport, v)
			}
			found = true
			export.UserID, scanErr = parseID(stmt.ColumnText(1))
			return scanErr
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotAnExport, err)
	}
	if !found {
		return nil, ErrNotAnExport
	}

	r := &reader{conn: conn}

	r.query(`SELECT id, user_id, old_username, new_username, changed_at FROM username_changes ORDER BY changed_at, id`,
		func(stmt *sqlite.Stmt) {
			export.UsernameChanges = append(export.UsernameChanges, &types.UsernameChange{
				ID:          stmt.ColumnInt64(0),
				UserID:      r.id(stmt.ColumnText(1)),
				OldUsername: stmt.ColumnText(2),
				NewUsername: stmt.ColumnText(3),
				ChangedAt:   r.time(stmt.ColumnText(4)),
			})
		})

	r.query(`SELECT id, guild_id, user_id, old_nickname, new_nickname, changed_at FROM nickname_changes
		ORDER BY changed_at, id`,
		func(stmt *sqlite.Stmt) {
			export.NicknameChanges = append(export.NicknameChanges, &types.NicknameChange{
				ID:          stmt.ColumnInt64(0),
				GuildID:     r.id(stmt.ColumnText(1)),
				UserID:      r.id(stmt.ColumnText(2)),
				OldNickname: stmt.ColumnText(3),
				NewNickname: stmt.ColumnText(4),
				ChangedAt:   r.time(stmt.ColumnText(5)),
			})
		})

	r.query(`SELECT id, guild_id, user_id, role_id, action, changed_at FROM role_changes ORDER BY changed_at, id`,
		func(stmt *sqlite.Stmt) {
			export.RoleChanges = append(export.RoleChanges, &types.RoleChange{
				ID:        stmt.ColumnInt64(0),
				GuildID:   r.id(stmt.ColumnText(1)),
				UserID:    r.id(stmt.ColumnText(2)),
				RoleID:    r.id(stmt.ColumnText(3)),
				Action:    types.RoleAction(stmt.ColumnText(4)),
				ChangedAt: r.time(stmt.ColumnText(5)),
			})
		})

	r.query(`SELECT id, guild_id, user_id, event_type, timestamp FROM join_leave_events ORDER BY timestamp, id`,
		func(stmt *sqlite.Stmt) {
			export.JoinLeaveEvents = append(export.JoinLeaveEvents, &types.JoinLeaveEvent{
				ID:        stmt.ColumnInt64(0),
				GuildID:   r.id(stmt.ColumnText(1)),
				UserID:    r.id(stmt.ColumnText(2)),
				EventType: types.JoinLeaveType(stmt.ColumnText(3)),
				Timestamp: r.time(stmt.ColumnText(4)),
			})
		})

	if r.err != nil {
		return nil, r.err
	}

	return export, nil
}

// reader runs row queries, keeping the first failure.
type reader struct {
	conn *sqlite.Conn
	err  error
}

func (r *reader) query(query string, row func(stmt *sqlite.Stmt)) {
	if r.err != nil {
		return
	}

	err := sqlitex.ExecuteTransient(r.conn, query, &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			row(stmt)
			return r.err
		},
	})
	if err != nil && r.err == nil {
		r.err = fmt.Errorf("failed to read export: %w", err)
	}
}

func (r *reader) id(s string) uint64 {
	v, err := parseID(s)
	if err != nil && r.err == nil {
		r.err = err
	}
	return v
}

func (r *reader) time(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil && r.err == nil {
		r.err = fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t.UTC()
}

func id(v uint64) string {
	return fmt.Sprintf("%d", v)
}

func parseID(s string) (uint64, error) {
	var v uint64
	if _, err := fmt.Sscanf(s, "%d", &v); err != nil {
		return 0, fmt.Errorf("invalid id %q: %w", s, err)
	}
	return v, nil
}

func stamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

package models

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/robalyx/sentinel/internal/database/dbretry"
	"github.com/robalyx/sentinel/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// TrackingModel records membership state and the audit log of its changes.
type TrackingModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewTracking creates a new tracking model instance.
func NewTracking(db *bun.DB, logger *zap.Logger) *TrackingModel {
	return &TrackingModel{
		db:     db,
		logger: logger.Named("db_tracking"),
	}
}

// UpsertRoles inserts or refreshes role definitions.
func (m *TrackingModel) UpsertRoles(ctx context.Context, roles []types.RoleSnapshot) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		return upsertRoles(ctx, m.db, roles, nowUTC())
	})
}

// UpsertMember upserts the user and then the membership, marking it active.
func (m *TrackingModel) UpsertMember(ctx context.Context, member *types.MemberSnapshot) error {
	return dbretry.Transaction(ctx, m.db, func(ctx context.Context, tx bun.Tx) error {
		now := nowUTC()
		if err := upsertUser(ctx, tx, &member.User, now); err != nil {
			return err
		}
		return upsertMember(ctx, tx, member.GuildID, member.User.ID, member.Nickname, joinedAtOr(member.JoinedAt, now))
	})
}

// LogUsernameChange refreshes the user row and appends a username change.
func (m *TrackingModel) LogUsernameChange(
	ctx context.Context, user *types.UserSnapshot, oldUsername string,
) error {
	err := dbretry.Transaction(ctx, m.db, func(ctx context.Context, tx bun.Tx) error {
		now := nowUTC()
		if err := upsertUser(ctx, tx, user, now); err != nil {
			return err
		}

		_, err := tx.NewInsert().Model(&types.UsernameChange{
			UserID:      user.ID,
			OldUsername: oldUsername,
			NewUsername: user.Username,
			ChangedAt:   now,
		}).Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to insert username change: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	m.logger.Debug("Logged username change",
		zap.Uint64("userID", user.ID),
		zap.String("old", oldUsername),
		zap.String("new", user.Username))

	return nil
}

// LogNicknameChange refreshes the membership and appends a nickname change.
func (m *TrackingModel) LogNicknameChange(
	ctx context.Context, member *types.MemberSnapshot, oldNickname string,
) error {
	err := dbretry.Transaction(ctx, m.db, func(ctx context.Context, tx bun.Tx) error {
		now := nowUTC()
		if err := upsertUser(ctx, tx, &member.User, now); err != nil {
			return err
		}

		err := upsertMember(ctx, tx, member.GuildID, member.User.ID, member.Nickname, joinedAtOr(member.JoinedAt, now))
		if err != nil {
			return err
		}

		_, err = tx.NewInsert().Model(&types.NicknameChange{
			GuildID:     member.GuildID,
			UserID:      member.User.ID,
			OldNickname: oldNickname,
			NewNickname: member.Nickname,
			ChangedAt:   now,
		}).Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to insert nickname change: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	m.logger.Debug("Logged nickname change",
		zap.Uint64("guildID", member.GuildID),
		zap.Uint64("userID", member.User.ID),
		zap.String("old", oldNickname),
		zap.String("new", member.Nickname))

	return nil
}

// LogRoleChange records the difference between two role sets. Every touched
// role is upserted before any change row referencing it is written.
func (m *TrackingModel) LogRoleChange(
	ctx context.Context, guildID, userID uint64, before, after []types.RoleSnapshot,
) (*types.RoleChangeResult, error) {
	added, removed := DiffRoles(before, after)
	result := &types.RoleChangeResult{Added: len(added), Removed: len(removed)}

	if len(added) == 0 && len(removed) == 0 {
		return result, nil
	}

	err := dbretry.Transaction(ctx, m.db, func(ctx context.Context, tx bun.Tx) error {
		now := nowUTC()

		// Roles rebuilt from stored history carry only an ID and must not
		// overwrite the recorded definition
		var known []types.RoleSnapshot
		var unknown []uint64
		for _, role := range append(append([]types.RoleSnapshot{}, added...), removed...) {
			if role.Name == "" {
				unknown = append(unknown, role.ID)
				continue
			}
			known = append(known, role)
		}

		if err := upsertRoles(ctx, tx, known, now); err != nil {
			return err
		}
		if err := ensureRoles(ctx, tx, guildID, unknown, now); err != nil {
			return err
		}

		changes := make([]*types.RoleChange, 0, len(added)+len(removed))
		for _, role := range added {
			changes = append(changes, &types.RoleChange{
				GuildID:   guildID,
				UserID:    userID,
				RoleID:    role.ID,
				Action:    types.RoleActionAdded,
				ChangedAt: now,
			})
		}
		for _, role := range removed {
			changes = append(changes, &types.RoleChange{
				GuildID:   guildID,
				UserID:    userID,
				RoleID:    role.ID,
				Action:    types.RoleActionRemoved,
				ChangedAt: now,
			})
		}

		if _, err := tx.NewInsert().Model(&changes).Exec(ctx); err != nil {
			return fmt.Errorf("failed to insert role changes: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	m.logger.Debug("Logged role changes",
		zap.Uint64("guildID", guildID),
		zap.Uint64("userID", userID),
		zap.Int("added", result.Added),
		zap.Int("removed", result.Removed))

	return result, nil
}

// LogJoin marks the membership active and appends a join event.
func (m *TrackingModel) LogJoin(ctx context.Context, member *types.MemberSnapshot) error {
	err := dbretry.Transaction(ctx, m.db, func(ctx context.Context, tx bun.Tx) error {
		now := nowUTC()
		if err := upsertUser(ctx, tx, &member.User, now); err != nil {
			return err
		}

		err := upsertMember(ctx, tx, member.GuildID, member.User.ID, member.Nickname, joinedAtOr(member.JoinedAt, now))
		if err != nil {
			return err
		}

		return insertJoinLeave(ctx, tx, member.GuildID, member.User.ID, types.JoinLeaveTypeJoin, now)
	})
	if err != nil {
		return err
	}

	m.logger.Debug("Logged member join",
		zap.Uint64("guildID", member.GuildID),
		zap.Uint64("userID", member.User.ID))

	return nil
}

// LogLeave marks the membership inactive and appends a leave event.
// No audit rows are removed.
func (m *TrackingModel) LogLeave(ctx context.Context, guildID uint64, user *types.UserSnapshot) error {
	err := dbretry.Transaction(ctx, m.db, func(ctx context.Context, tx bun.Tx) error {
		now := nowUTC()
		if err := upsertUser(ctx, tx, user, now); err != nil {
			return err
		}

		_, err := tx.NewInsert().
			Model(&types.GuildMember{
				GuildID:  guildID,
				UserID:   user.ID,
				JoinedAt: now,
				IsActive: false,
			}).
			On("CONFLICT (guild_id, user_id) DO UPDATE").
			Set("is_active = EXCLUDED.is_active").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to deactivate member: %w", err)
		}

		return insertJoinLeave(ctx, tx, guildID, user.ID, types.JoinLeaveTypeLeave, now)
	})
	if err != nil {
		return err
	}

	m.logger.Debug("Logged member leave",
		zap.Uint64("guildID", guildID),
		zap.Uint64("userID", user.ID))

	return nil
}

// DiffRoles returns the roles present only in after (added) and only in
// before (removed), each ordered by role ID.
func DiffRoles(before, after []types.RoleSnapshot) ([]types.RoleSnapshot, []types.RoleSnapshot) {
	beforeSet := make(map[uint64]struct{}, len(before))
	for _, role := range before {
		beforeSet[role.ID] = struct{}{}
	}

	afterSet := make(map[uint64]struct{}, len(after))
	for _, role := range after {
		afterSet[role.ID] = struct{}{}
	}

	var added, removed []types.RoleSnapshot
	seen := make(map[uint64]struct{})

	for _, role := range after {
		if _, ok := beforeSet[role.ID]; ok {
			continue
		}
		if _, dup := seen[role.ID]; dup {
			continue
		}
		seen[role.ID] = struct{}{}
		added = append(added, role)
	}

	for _, role := range before {
		if _, ok := afterSet[role.ID]; ok {
			continue
		}
		if _, dup := seen[role.ID]; dup {
			continue
		}
		seen[role.ID] = struct{}{}
		removed = append(removed, role)
	}

	byID := func(a, b types.RoleSnapshot) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	}
	slices.SortFunc(added, byID)
	slices.SortFunc(removed, byID)

	return added, removed
}

// insertJoinLeave appends a join or leave event.
func insertJoinLeave(
	ctx context.Context, db bun.IDB, guildID, userID uint64, eventType types.JoinLeaveType, now time.Time,
) error {
	_, err := db.NewInsert().Model(&types.JoinLeaveEvent{
		GuildID:   guildID,
		UserID:    userID,
		EventType: eventType,
		Timestamp: now,
	}).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to insert %s event: %w", eventType, err)
	}
	return nil
}

// joinedAtOr returns joinedAt, or fallback when the platform did not supply one.
func joinedAtOr(joinedAt, fallback time.Time) time.Time {
	if joinedAt.IsZero() {
		return fallback
	}
	return joinedAt
}

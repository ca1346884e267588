package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/robalyx/sentinel/internal/database/models"
	"github.com/robalyx/sentinel/internal/database/types"
	"go.uber.org/zap"
)

// MemberDelta is the minimal set of changes between two member snapshots.
type MemberDelta struct {
	UsernameChanged bool
	OldUsername     string
	NicknameChanged bool
	OldNickname     string
	AddedRoles      []types.RoleSnapshot
	RemovedRoles    []types.RoleSnapshot
}

// IsEmpty reports whether the delta records nothing.
func (d *MemberDelta) IsEmpty() bool {
	return !d.UsernameChanged && !d.NicknameChanged && len(d.AddedRoles) == 0 && len(d.RemovedRoles) == 0
}

// DiffMember compares two snapshots of the same member.
func DiffMember(before, after *types.MemberSnapshot) *MemberDelta {
	delta := &MemberDelta{}

	if before.User.Username != after.User.Username {
		delta.UsernameChanged = true
		delta.OldUsername = before.User.Username
	}

	if before.Nickname != after.Nickname {
		delta.NicknameChanged = true
		delta.OldNickname = before.Nickname
	}

	delta.AddedRoles, delta.RemovedRoles = models.DiffRoles(before.Roles, after.Roles)

	return delta
}

// TrackingService applies observed membership events to the audit log.
type TrackingService struct {
	tracking *models.TrackingModel
	user     *models.UserModel
	logger   *zap.Logger
}

// NewTracking creates a new tracking service.
func NewTracking(tracking *models.TrackingModel, user *models.UserModel, logger *zap.Logger) *TrackingService {
	return &TrackingService{
		tracking: tracking,
		user:     user,
		logger:   logger.Named("tracking_service"),
	}
}

// ApplyMemberUpdate records the differences between before and after. A nil
// before is rebuilt from the recorded state; when nothing was recorded yet the
// member is only upserted. Usernames are global, so a rename is compared with
// the stored username whenever the user is known, whatever guild reports it.
func (s *TrackingService) ApplyMemberUpdate(
	ctx context.Context, before, after *types.MemberSnapshot,
) (*MemberDelta, error) {
	rebuilt := before == nil
	if rebuilt {
		stored, err := s.storedSnapshot(ctx, after)
		if err != nil {
			return nil, err
		}
		if stored == nil {
			return &MemberDelta{}, s.tracking.UpsertMember(ctx, after)
		}
		before = stored
	}

	delta := DiffMember(before, after)
	if !rebuilt {
		if err := s.compareStoredUsername(ctx, delta, &after.User); err != nil {
			return nil, err
		}
	}
	if delta.IsEmpty() {
		return delta, s.tracking.UpsertMember(ctx, after)
	}

	var errs []error

	if delta.UsernameChanged {
		if err := s.tracking.LogUsernameChange(ctx, &after.User, delta.OldUsername); err != nil {
			errs = append(errs, err)
		}
	}

	if delta.NicknameChanged {
		if err := s.tracking.LogNicknameChange(ctx, after, delta.OldNickname); err != nil {
			errs = append(errs, err)
		}
	} else if err := s.tracking.UpsertMember(ctx, after); err != nil {
		errs = append(errs, err)
	}

	if len(delta.AddedRoles) > 0 || len(delta.RemovedRoles) > 0 {
		_, err := s.tracking.LogRoleChange(ctx, after.GuildID, after.User.ID, before.Roles, after.Roles)
		if err != nil {
			errs = append(errs, err)
		}
	}

	if err := errors.Join(errs...); err != nil {
		return delta, fmt.Errorf("failed to apply member update: %w", err)
	}

	s.logger.Debug("Applied member update",
		zap.Uint64("guildID", after.GuildID),
		zap.Uint64("userID", after.User.ID),
		zap.Bool("username", delta.UsernameChanged),
		zap.Bool("nickname", delta.NicknameChanged),
		zap.Int("rolesAdded", len(delta.AddedRoles)),
		zap.Int("rolesRemoved", len(delta.RemovedRoles)))

	return delta, nil
}

// compareStoredUsername replaces the username part of the delta with a
// comparison against the users table. Unknown users keep the cached result.
func (s *TrackingService) compareStoredUsername(
	ctx context.Context, delta *MemberDelta, user *types.UserSnapshot,
) error {
	stored, err := s.user.GetUser(ctx, user.ID)
	if err != nil {
		if errors.Is(err, types.ErrUserNotFound) {
			return nil
		}
		return fmt.Errorf("failed to load stored user: %w", err)
	}

	delta.UsernameChanged = stored.Username != user.Username
	delta.OldUsername = ""
	if delta.UsernameChanged {
		delta.OldUsername = stored.Username
	}
	return nil
}

// storedSnapshot rebuilds the previous snapshot of a member from the store.
// Roles still held carry the definitions from after; dropped roles carry only
// their ID.
func (s *TrackingService) storedSnapshot(
	ctx context.Context, after *types.MemberSnapshot,
) (*types.MemberSnapshot, error) {
	state, err := s.user.GetMemberState(ctx, after.GuildID, after.User.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load member state: %w", err)
	}
	if !state.Known {
		return nil, nil //nolint:nilnil // no recorded state
	}

	current := make(map[uint64]types.RoleSnapshot, len(after.Roles))
	for _, role := range after.Roles {
		current[role.ID] = role
	}

	before := &types.MemberSnapshot{
		GuildID:  after.GuildID,
		User:     after.User,
		Nickname: state.Nickname,
		JoinedAt: after.JoinedAt,
		Roles:    make([]types.RoleSnapshot, 0, len(state.RoleIDs)),
	}
	if state.Username != "" {
		before.User.Username = state.Username
	}

	for _, id := range state.RoleIDs {
		if role, ok := current[id]; ok {
			before.Roles = append(before.Roles, role)
			continue
		}
		before.Roles = append(before.Roles, types.RoleSnapshot{ID: id, GuildID: after.GuildID})
	}

	return before, nil
}

// Join records a member joining.
func (s *TrackingService) Join(ctx context.Context, member *types.MemberSnapshot) error {
	return s.tracking.LogJoin(ctx, member)
}

// Leave records a member leaving.
func (s *TrackingService) Leave(ctx context.Context, guildID uint64, user *types.UserSnapshot) error {
	return s.tracking.LogLeave(ctx, guildID, user)
}

// SeedMember upserts a member found by the startup inventory and records the
// roles it holds as initial. Returns the number of initial rows written.
func (s *TrackingService) SeedMember(ctx context.Context, member *types.MemberSnapshot) (int, error) {
	if err := s.tracking.UpsertMember(ctx, member); err != nil {
		return 0, err
	}
	return s.tracking.LogInitialRoles(ctx, member.GuildID, member.User.ID, member.Roles)
}

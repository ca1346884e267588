package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/robalyx/sentinel/internal/database/types"
	"go.uber.org/zap"
)

// DefaultRoleColor is shown for roles without a color.
const DefaultRoleColor = "#99aab5"

// RoleSource looks up the recorded roles of a member.
type RoleSource interface {
	CurrentRoles(ctx context.Context, userID, guildID uint64) ([]*types.CurrentRole, error)
}

// Exchanger turns an authorization code into a Discord identity.
type Exchanger interface {
	Exchange(ctx context.Context, code string) (*Identity, error)
}

// Session is the result of a successful login.
type Session struct {
	Token  string
	Claims *Claims
}

// Authenticator runs the dashboard login flow.
type Authenticator struct {
	codes         CodeStore
	oauth         Exchanger
	roles         RoleSource
	policy        *Policy
	issuer        *Issuer
	requiredGuild uint64
	logger        *zap.Logger
}

// NewAuthenticator wires the login flow together.
func NewAuthenticator(
	codes CodeStore, oauth Exchanger, roles RoleSource, policy *Policy, issuer *Issuer,
	requiredGuild uint64, logger *zap.Logger,
) *Authenticator {
	return &Authenticator{
		codes:         codes,
		oauth:         oauth,
		roles:         roles,
		policy:        policy,
		issuer:        issuer,
		requiredGuild: requiredGuild,
		logger:        logger.Named("auth"),
	}
}

// Login claims the code, exchanges it, checks guild membership and issues a
// session token. Roles come from the recorded history of the required guild.
func (a *Authenticator) Login(ctx context.Context, code string) (*Session, error) {
	if err := a.codes.Claim(ctx, code); err != nil {
		if errors.Is(err, ErrCodeAlreadyUsed) {
			a.logger.Warn("Rejected reused authorization code")
		}
		return nil, err
	}

	identity, err := a.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}

	userID := identity.User.UserID()
	if a.requiredGuild != 0 && !identity.InGuild(a.requiredGuild) && !a.policy.IsPrivileged(userID) {
		return nil, ErrNotInGuild
	}

	var roles []*types.CurrentRole
	if a.requiredGuild != 0 {
		roles, err = a.roles.CurrentRoles(ctx, userID, a.requiredGuild)
		if err != nil {
			a.logger.Error("Failed to load roles for login", zap.Uint64("userID", userID), zap.Error(err))
			roles = nil
		}
	}

	roleIDs := make([]uint64, 0, len(roles))
	roleClaims := make([]RoleClaim, 0, len(roles))
	for _, role := range roles {
		roleIDs = append(roleIDs, role.RoleID)
		roleClaims = append(roleClaims, RoleClaim{
			RoleID:   strconv.FormatUint(role.RoleID, 10),
			RoleName: role.Name,
			Color:    HexColor(role.Color),
			Position: role.Position,
		})
	}

	access := a.policy.Evaluate(userID, roleIDs)
	claims := Claims{
		UserID:           identity.User.ID,
		Username:         identity.User.Username,
		Discriminator:    identity.User.Discriminator,
		AvatarURL:        identity.User.AvatarURL(),
		Roles:            roleClaims,
		IsAdmin:          access.IsAdmin,
		IsGuest:          access.IsGuest,
		HasWebsiteAccess: access.HasWebsiteAccess,
	}

	token, err := a.issuer.Issue(&claims)
	if err != nil {
		return nil, err
	}

	a.logger.Info("User logged in",
		zap.Uint64("userID", userID),
		zap.Bool("admin", access.IsAdmin),
		zap.Bool("guest", access.IsGuest),
		zap.Bool("websiteAccess", access.HasWebsiteAccess))

	return &Session{Token: token, Claims: &claims}, nil
}

// Verify checks a bearer token.
func (a *Authenticator) Verify(token string) (*Claims, error) {
	return a.issuer.Verify(token)
}

// HexColor formats a role color, using the platform default for 0.
func HexColor(color int) string {
	if color == 0 {
		return DefaultRoleColor
	}
	return fmt.Sprintf("#%06x", color)
}

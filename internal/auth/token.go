package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

var (
	ErrTokenExpired = errors.New("token has expired")
	ErrInvalidToken = errors.New("invalid token")
	ErrNoSecret     = errors.New("jwt secret is not set")
)

// DefaultTokenTTL is the lifetime of a dashboard session token.
const DefaultTokenTTL = 24 * time.Hour

// RoleClaim is a role embedded in a session token.
type RoleClaim struct {
	RoleID   string `json:"role_id"`
	RoleName string `json:"role_name"`
	Color    string `json:"color"`
	Position int    `json:"position"`
}

// Claims is the payload of a session token.
type Claims struct {
	UserID           string      `json:"user_id"`
	Username         string      `json:"username"`
	Discriminator    string      `json:"discriminator"`
	AvatarURL        string      `json:"avatar_url,omitempty"`
	Roles            []RoleClaim `json:"roles"`
	IsAdmin          bool        `json:"is_admin"`
	IsGuest          bool        `json:"is_guest"`
	HasWebsiteAccess bool        `json:"has_website_access"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies HS256 session tokens.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer creates a token issuer.
func NewIssuer(secret string, ttl time.Duration) (*Issuer, error) {
	if secret == "" {
		return nil, ErrNoSecret
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	return &Issuer{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// SetClock overrides the issuing time source.
func (i *Issuer) SetClock(now func() time.Time) {
	i.now = now
}

// Issue signs a token for the claims, filling in iat and exp on them.
func (i *Issuer) Issue(claims *Claims) (string, error) {
	now := i.now()
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(i.ttl))
	if claims.Roles == nil {
		claims.Roles = []RoleClaim{}
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return token, nil
}

// Verify parses a token and returns its claims.
func (i *Issuer) Verify(raw string) (*Claims, error) {
	claims := &Claims{}

	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	return claims, nil
}

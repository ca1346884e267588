package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/robalyx/sentinel/internal/auth"
	"github.com/robalyx/sentinel/internal/rest/render"
	"github.com/uptrace/bunrouter"
)

// Verifier checks bearer tokens.
type Verifier interface {
	Verify(token string) (*auth.Claims, error)
}

type claimsCtxKey struct{}

// ClaimsFrom returns the session claims stored by Authenticate.
func ClaimsFrom(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsCtxKey{}).(*auth.Claims)
	return claims
}

// Authenticate requires a valid bearer token.
func Authenticate(verifier Verifier) bunrouter.MiddlewareFunc {
	return func(next bunrouter.HandlerFunc) bunrouter.HandlerFunc {
		return func(w http.ResponseWriter, req bunrouter.Request) error {
			if verifier == nil {
				return render.Errorf(http.StatusServiceUnavailable, "Authentication not configured")
			}

			header := req.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				w.Header().Set("WWW-Authenticate", "Bearer")
				return render.Errorf(http.StatusUnauthorized, "Not authenticated")
			}

			claims, err := verifier.Verify(strings.TrimSpace(token))
			if err != nil {
				if errors.Is(err, auth.ErrTokenExpired) {
					return render.Errorf(http.StatusUnauthorized, "Token has expired")
				}
				return render.Errorf(http.StatusUnauthorized, "Invalid token")
			}

			ctx := context.WithValue(req.Context(), claimsCtxKey{}, claims)
			return next(w, req.WithContext(ctx))
		}
	}
}

// RequireWebsiteAccess rejects sessions without dashboard access.
func RequireWebsiteAccess(next bunrouter.HandlerFunc) bunrouter.HandlerFunc {
	return func(w http.ResponseWriter, req bunrouter.Request) error {
		claims := ClaimsFrom(req.Context())
		if claims == nil || !claims.HasWebsiteAccess {
			return render.Errorf(http.StatusForbidden, "Website access required")
		}
		return next(w, req)
	}
}

// RequireAdmin rejects non-admin sessions.
func RequireAdmin(next bunrouter.HandlerFunc) bunrouter.HandlerFunc {
	return func(w http.ResponseWriter, req bunrouter.Request) error {
		claims := ClaimsFrom(req.Context())
		if claims == nil || !claims.IsAdmin {
			return render.Errorf(http.StatusForbidden, "Admin privileges required")
		}
		return next(w, req)
	}
}

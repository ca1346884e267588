package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/robalyx/sentinel/internal/auth"
	"github.com/robalyx/sentinel/internal/rest/convert"
	"github.com/robalyx/sentinel/internal/rest/middleware"
	"github.com/robalyx/sentinel/internal/rest/render"
	restTypes "github.com/robalyx/sentinel/internal/rest/types"
	"github.com/uptrace/bunrouter"
	"go.uber.org/zap"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 64 << 10

// LoginService runs the OAuth login flow.
type LoginService interface {
	Login(ctx context.Context, code string) (*auth.Session, error)
}

// AuthHandler serves the login endpoints.
type AuthHandler struct {
	login  LoginService
	logger *zap.Logger
}

// NewAuthHandler creates a new auth handler. A nil login service disables login.
func NewAuthHandler(login LoginService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		login:  login,
		logger: logger,
	}
}

// Callback handles POST /api/auth/discord/callback.
func (h *AuthHandler) Callback(w http.ResponseWriter, req bunrouter.Request) error {
	if h.login == nil {
		return render.Errorf(http.StatusServiceUnavailable, "Authentication not configured")
	}

	var body restTypes.AuthCallbackRequest
	if err := sonic.ConfigStd.NewDecoder(http.MaxBytesReader(w, req.Body, maxBodyBytes)).Decode(&body); err != nil {
		return render.Errorf(http.StatusBadRequest, "Invalid request body")
	}

	code := strings.TrimSpace(body.Code)
	if code == "" {
		return render.Errorf(http.StatusBadRequest, "Missing authorization code")
	}

	session, err := h.login.Login(req.Context(), code)
	if err != nil {
		return loginError(err)
	}

	return render.OK(w, restTypes.AuthCallbackResponse{
		Token: session.Token,
		User:  convert.AuthUser(session.Claims),
	})
}

// Me handles GET /api/auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, req bunrouter.Request) error {
	claims := middleware.ClaimsFrom(req.Context())
	if claims == nil {
		return render.Errorf(http.StatusUnauthorized, "Not authenticated")
	}
	return render.OK(w, convert.AuthUser(claims))
}

func loginError(err error) error {
	switch {
	case errors.Is(err, auth.ErrCodeAlreadyUsed):
		return render.Errorf(http.StatusBadRequest, "Authorization code has already been used")
	case errors.Is(err, auth.ErrOAuthNotConfigured):
		return render.Errorf(http.StatusServiceUnavailable, "Authentication not configured")
	case errors.Is(err, auth.ErrExchangeFailed):
		return render.Errorf(http.StatusBadRequest, "Failed to exchange Discord code")
	case errors.Is(err, auth.ErrDiscordRequest):
		return render.Errorf(http.StatusBadRequest, "Failed to get user info from Discord")
	case errors.Is(err, auth.ErrNotInGuild):
		return render.Errorf(http.StatusForbidden, "You must be a member of the required Discord server")
	default:
		return render.Wrap(http.StatusInternalServerError, "Authentication failed", err)
	}
}

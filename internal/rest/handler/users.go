package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/robalyx/sentinel/internal/auth"
	"github.com/robalyx/sentinel/internal/database"
	"github.com/robalyx/sentinel/internal/database/models"
	"github.com/robalyx/sentinel/internal/database/types"
	"github.com/robalyx/sentinel/internal/rest/convert"
	"github.com/robalyx/sentinel/internal/rest/render"
	restTypes "github.com/robalyx/sentinel/internal/rest/types"
	"github.com/robalyx/sentinel/internal/setup/config"
	"github.com/uptrace/bunrouter"
	"go.uber.org/zap"
)

const (
	// AllFilter disables role filtering.
	AllFilter = "all"
	// AllFilterColor is the color of the "All Users" filter.
	AllFilterColor = "#5865f2"

	searchLimit = 20
	debugLimit  = 10
)

// UserHandler serves user listings, roles and maintenance endpoints.
type UserHandler struct {
	db      database.Client
	filters *config.Filters
	logger  *zap.Logger
}

// NewUserHandler creates a new user handler.
func NewUserHandler(db database.Client, filters *config.Filters, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		db:      db,
		filters: filters,
		logger:  logger,
	}
}

// CurrentRoles handles GET /api/users/:id/current-roles?guild_id=.
func (h *UserHandler) CurrentRoles(w http.ResponseWriter, req bunrouter.Request) error {
	userID, err := pathID(req, "id", "user ID")
	if err != nil {
		return err
	}

	guildID, err := queryID(req, "guild_id", true)
	if err != nil {
		return err
	}

	roles, err := h.db.Model().Stats().CurrentRoles(req.Context(), userID, guildID)
	if err != nil {
		return render.Wrap(http.StatusInternalServerError, "Internal server error", err)
	}

	return render.OK(w, convert.CurrentRoles(roles))
}

// BulkRoles handles GET /api/servers/:id/users/bulk-roles?user_ids=.
func (h *UserHandler) BulkRoles(w http.ResponseWriter, req bunrouter.Request) error {
	guildID, err := pathID(req, "id", "guild ID")
	if err != nil {
		return err
	}

	userIDs, err := parseIDList(req.URL.Query().Get("user_ids"))
	if err != nil {
		return err
	}

	grouped, err := h.db.Model().Stats().BulkRoles(req.Context(), guildID, userIDs)
	if err != nil {
		if errors.Is(err, types.ErrTooManyUsers) {
			return render.Errorf(http.StatusBadRequest, "Too many user IDs (max 1000)")
		}
		return render.Wrap(http.StatusInternalServerError, "Internal server error", err)
	}

	return render.OK(w, convert.BulkRoles(grouped))
}

// Search handles GET /api/users/search?q=&guild_id=&role_filter=.
func (h *UserHandler) Search(w http.ResponseWriter, req bunrouter.Request) error {
	query := strings.TrimSpace(req.URL.Query().Get("q"))
	if len([]rune(query)) < models.MinSearchLength {
		return render.Errorf(http.StatusBadRequest, "Query must be at least 2 characters")
	}

	guildID, err := queryID(req, "guild_id", false)
	if err != nil {
		return err
	}

	roleFilter, err := h.resolveFilter(req.Context(), guildID, req.URL.Query().Get("role_filter"))
	if err != nil {
		return err
	}

	users, err := h.db.Model().User().SearchUsers(req.Context(), query, guildID, roleFilter, searchLimit)
	if err != nil {
		if errors.Is(err, types.ErrQueryTooShort) {
			return render.Errorf(http.StatusBadRequest, "Query must be at least 2 characters")
		}
		return render.Wrap(http.StatusInternalServerError, "Internal server error", err)
	}

	return render.OK(w, convert.Users(users))
}

// GuildUsers handles GET /api/servers/:id/users?active_only=&role_filter=.
func (h *UserHandler) GuildUsers(w http.ResponseWriter, req bunrouter.Request) error {
	guildID, err := pathID(req, "id", "guild ID")
	if err != nil {
		return err
	}

	activeOnly, err := queryBool(req, "active_only", true)
	if err != nil {
		return err
	}

	roleFilter, err := h.resolveFilter(req.Context(), guildID, req.URL.Query().Get("role_filter"))
	if err != nil {
		return err
	}

	users, err := h.db.Model().User().GuildUsers(req.Context(), guildID, activeOnly, roleFilter)
	if err != nil {
		return render.Wrap(http.StatusInternalServerError, "Internal server error", err)
	}

	return render.OK(w, convert.Users(users))
}

// RoleFilters handles GET /api/servers/:id/role-filters. Configured filter
// names that match a known role follow the "all" entry in configuration order.
func (h *UserHandler) RoleFilters(w http.ResponseWriter, req bunrouter.Request) error {
	guildID, err := pathID(req, "id", "guild ID")
	if err != nil {
		return err
	}

	filters := []restTypes.RoleFilter{{RoleID: AllFilter, RoleName: "All Users", RoleColor: AllFilterColor}}

	if len(h.filters.RoleNames) > 0 {
		roles, err := h.db.Model().Stats().GuildRoles(req.Context(), guildID)
		if err != nil {
			return render.Wrap(http.StatusInternalServerError, "Internal server error", err)
		}

		for _, name := range h.filters.RoleNames {
			for _, role := range roles {
				if strings.EqualFold(role.Name, strings.TrimSpace(name)) {
					filters = append(filters, restTypes.RoleFilter{
						RoleID:    convert.ID(role.RoleID),
						RoleName:  role.Name,
						RoleColor: auth.HexColor(role.Color),
					})
					break
				}
			}
		}
	}

	defaultFilter := strings.TrimSpace(h.filters.DefaultRole)
	if defaultFilter == "" {
		defaultFilter = AllFilter
	}

	return render.OK(w, restTypes.RoleFilters{Filters: filters, DefaultFilter: defaultFilter})
}

// DebugUsers handles GET /api/debug/users.
func (h *UserHandler) DebugUsers(w http.ResponseWriter, req bunrouter.Request) error {
	users, err := h.db.Model().User().RecentUsers(req.Context(), debugLimit)
	if err != nil {
		return render.Wrap(http.StatusInternalServerError, "Internal server error", err)
	}

	missing, err := h.db.Model().User().MissingUserIDs(req.Context())
	if err != nil {
		return render.Wrap(http.StatusInternalServerError, "Internal server error", err)
	}

	response := restTypes.DebugUsers{
		UsersTable:       make([]restTypes.DebugUser, 0, len(users)),
		MissingFromUsers: idStrings(missing),
	}
	for _, u := range users {
		response.UsersTable = append(response.UsersTable, restTypes.DebugUser{
			UserID:      convert.ID(u.UserID),
			Username:    u.Username,
			DisplayName: u.DisplayName,
		})
	}

	return render.OK(w, response)
}

// FixMissingUsers handles POST /api/debug/fix-missing-users.
func (h *UserHandler) FixMissingUsers(w http.ResponseWriter, req bunrouter.Request) error {
	missing, err := h.db.Model().User().MissingUserIDs(req.Context())
	if err != nil {
		return render.Wrap(http.StatusInternalServerError, "Internal server error", err)
	}

	fixed, err := h.db.Model().User().FixMissingUsers(req.Context())
	if err != nil {
		return render.Wrap(http.StatusInternalServerError, "Internal server error", err)
	}

	return render.OK(w, restTypes.FixMissingUsers{FixedUsers: fixed, MissingUsers: idStrings(missing)})
}

// resolveFilter turns a role_filter value into a role name. "all" and empty
// disable filtering; a role ID is looked up among the guild's roles.
func (h *UserHandler) resolveFilter(ctx context.Context, guildID uint64, raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, AllFilter) {
		return "", nil
	}

	roleID, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || guildID == 0 {
		return raw, nil
	}

	roles, err := h.db.Model().Stats().GuildRoles(ctx, guildID)
	if err != nil {
		return "", render.Wrap(http.StatusInternalServerError, "Internal server error", err)
	}

	for _, role := range roles {
		if role.RoleID == roleID {
			return role.Name, nil
		}
	}

	return raw, nil
}

func idStrings(ids []uint64) []string {
	result := make([]string, 0, len(ids))
	for _, id := range ids {
		result = append(result, convert.ID(id))
	}
	return result
}

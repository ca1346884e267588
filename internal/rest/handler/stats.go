package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/robalyx/sentinel/internal/database"
	"github.com/robalyx/sentinel/internal/database/types"
	"github.com/robalyx/sentinel/internal/rest/convert"
	"github.com/robalyx/sentinel/internal/rest/render"
	"github.com/uptrace/bunrouter"
	"go.uber.org/zap"
)

// StatsHandler serves the tracking statistics endpoints.
type StatsHandler struct {
	db     database.Client
	logger *zap.Logger
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(db database.Client, logger *zap.Logger) *StatsHandler {
	return &StatsHandler{
		db:     db,
		logger: logger,
	}
}

// UserStats handles GET /api/users/:id/stats.
func (h *StatsHandler) UserStats(w http.ResponseWriter, req bunrouter.Request) error {
	userID, err := pathID(req, "id", "user ID")
	if err != nil {
		return err
	}

	stats, err := h.db.Model().Stats().UserStats(req.Context(), userID)
	if err != nil {
		if errors.Is(err, types.ErrUserNotFound) {
			return render.Errorf(http.StatusNotFound, "User not found")
		}
		return render.Wrap(http.StatusInternalServerError, "Internal server error", err)
	}

	return render.OK(w, convert.UserStats(stats))
}

// ServerStats handles GET /api/servers/:id/stats.
func (h *StatsHandler) ServerStats(w http.ResponseWriter, req bunrouter.Request) error {
	guildID, err := pathID(req, "id", "guild ID")
	if err != nil {
		return err
	}

	stats, err := h.db.Model().Stats().ServerStats(req.Context(), guildID, time.Now().UTC())
	if err != nil {
		return render.Wrap(http.StatusInternalServerError, "Internal server error", err)
	}

	return render.OK(w, convert.ServerStats(stats))
}

// RecentChanges handles GET /api/servers/:id/recent-changes.
func (h *StatsHandler) RecentChanges(w http.ResponseWriter, req bunrouter.Request) error {
	guildID, err := pathID(req, "id", "guild ID")
	if err != nil {
		return err
	}

	limit, err := queryInt(req, "limit", 10, 1, 100)
	if err != nil {
		return err
	}

	changes, err := h.db.Model().Stats().RecentChanges(req.Context(), guildID, limit)
	if err != nil {
		return render.Wrap(http.StatusInternalServerError, "Internal server error", err)
	}

	return render.OK(w, convert.Changes(changes))
}

// RoleHistory handles GET /api/users/:id/role-history?guild_id=.
func (h *StatsHandler) RoleHistory(w http.ResponseWriter, req bunrouter.Request) error {
	userID, err := pathID(req, "id", "user ID")
	if err != nil {
		return err
	}

	guildID, err := queryID(req, "guild_id", true)
	if err != nil {
		return err
	}

	history, err := h.db.Model().Stats().RoleHistory(req.Context(), userID, guildID)
	if err != nil {
		return render.Wrap(http.StatusInternalServerError, "Internal server error", err)
	}

	return render.OK(w, convert.RoleHistory(history))
}

// WeeklyActivity handles GET /api/servers/:id/weekly-activity.
func (h *StatsHandler) WeeklyActivity(w http.ResponseWriter, req bunrouter.Request) error {
	guildID, err := pathID(req, "id", "guild ID")
	if err != nil {
		return err
	}

	days, err := h.db.Model().Stats().WeeklyActivity(req.Context(), guildID, time.Now().UTC())
	if err != nil {
		return render.Wrap(http.StatusInternalServerError, "Internal server error", err)
	}

	return render.OK(w, convert.WeeklyActivity(days))
}

// DatabaseStats handles GET /api/admin/database-stats.
func (h *StatsHandler) DatabaseStats(w http.ResponseWriter, req bunrouter.Request) error {
	stats, err := h.db.Model().Stats().DatabaseStats(req.Context())
	if err != nil {
		return render.Wrap(http.StatusInternalServerError, "Internal server error", err)
	}

	return render.OK(w, convert.DatabaseStats(stats))
}

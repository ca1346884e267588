package handler

import (
	"net/http"
	"time"

	"github.com/robalyx/sentinel/internal/rest/render"
	restTypes "github.com/robalyx/sentinel/internal/rest/types"
	"github.com/uptrace/bunrouter"
)

// APIVersion is reported by the health and index endpoints.
const APIVersion = "1.0.0"

// Health reports that the server is up.
func Health(w http.ResponseWriter, _ bunrouter.Request) error {
	return render.OK(w, restTypes.Health{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   APIVersion,
	})
}

// Index lists the main endpoints.
func Index(w http.ResponseWriter, _ bunrouter.Request) error {
	return render.OK(w, restTypes.Index{
		Message: "Sentinel Tracking API",
		Version: APIVersion,
		Endpoints: map[string]string{
			"user_stats":     "/api/users/{user_id}/stats",
			"server_stats":   "/api/servers/{guild_id}/stats",
			"recent_changes": "/api/servers/{guild_id}/recent-changes",
			"role_history":   "/api/users/{user_id}/role-history",
			"database_stats": "/api/admin/database-stats",
		},
	})
}

// NotFound is the fallback for unknown routes.
func NotFound(w http.ResponseWriter, _ bunrouter.Request) error {
	return render.Error(w, http.StatusNotFound, "Endpoint not found")
}

// MethodNotAllowed is the fallback for known routes with another method.
func MethodNotAllowed(w http.ResponseWriter, _ bunrouter.Request) error {
	return render.Error(w, http.StatusMethodNotAllowed, "Method not allowed")
}

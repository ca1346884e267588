package rest

import (
	"context"
	"net/http"

	"github.com/klauspost/compress/gzhttp"
	"github.com/robalyx/sentinel/internal/database"
	"github.com/robalyx/sentinel/internal/rest/handler"
	"github.com/robalyx/sentinel/internal/rest/middleware"
	"github.com/robalyx/sentinel/internal/setup/config"
	"github.com/rs/cors"
	"github.com/uptrace/bunrouter"
	"go.uber.org/zap"
)

// Authenticator is the login flow and token verification used by the server.
type Authenticator interface {
	handler.LoginService
	middleware.Verifier
}

// NewServer creates the REST API handler. A nil authenticator leaves login
// disabled and every protected route answers 503.
func NewServer(
	ctx context.Context, db database.Client, authenticator Authenticator, cfg *config.APIConfig, logger *zap.Logger,
) http.Handler {
	logger = logger.Named("rest")

	statsHandler := handler.NewStatsHandler(db, logger)
	userHandler := handler.NewUserHandler(db, &cfg.Filters, logger)

	var (
		login    handler.LoginService
		verifier middleware.Verifier
	)
	if authenticator != nil {
		login = authenticator
		verifier = authenticator
	}
	authHandler := handler.NewAuthHandler(login, logger)

	requestLogger := middleware.NewLogger(logger)
	rateLimiter := middleware.NewRateLimiter(ctx, &cfg.RateLimit, logger)
	authenticate := middleware.Authenticate(verifier)

	router := bunrouter.New(
		bunrouter.WithNotFoundHandler(handler.NotFound),
		bunrouter.WithMethodNotAllowedHandler(handler.MethodNotAllowed),
		bunrouter.Use(middleware.RequestID, requestLogger.Middleware, requestLogger.Errors),
	)

	router.GET("/health", handler.Health)
	router.GET("/", handler.Index)

	router.Use(rateLimiter.Middleware).WithGroup("/api", func(g *bunrouter.Group) {
		g.POST("/auth/discord/callback", authHandler.Callback)
		g.Use(authenticate).GET("/auth/me", authHandler.Me)

		data := g.Use(authenticate, middleware.RequireWebsiteAccess)
		data.GET("/users/search", userHandler.Search)
		data.GET("/users/:id/stats", statsHandler.UserStats)
		data.GET("/users/:id/role-history", statsHandler.RoleHistory)
		data.GET("/users/:id/current-roles", userHandler.CurrentRoles)
		data.GET("/servers/:id/stats", statsHandler.ServerStats)
		data.GET("/servers/:id/recent-changes", statsHandler.RecentChanges)
		data.GET("/servers/:id/weekly-activity", statsHandler.WeeklyActivity)
		data.GET("/servers/:id/users", userHandler.GuildUsers)
		data.GET("/servers/:id/users/bulk-roles", userHandler.BulkRoles)
		data.GET("/servers/:id/role-filters", userHandler.RoleFilters)

		admin := data.Use(middleware.RequireAdmin)
		admin.GET("/admin/database-stats", statsHandler.DatabaseStats)
		admin.GET("/debug/users", userHandler.DebugUsers)
		admin.POST("/debug/fix-missing-users", userHandler.FixMissingUsers)
	})

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: true,
	})

	return corsHandler.Handler(gzhttp.GzipHandler(router))
}

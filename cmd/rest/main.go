package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/robalyx/sentinel/internal/auth"
	"github.com/robalyx/sentinel/internal/redis"
	"github.com/robalyx/sentinel/internal/rest"
	"github.com/robalyx/sentinel/internal/setup"
	"github.com/robalyx/sentinel/internal/setup/config"
	"github.com/robalyx/sentinel/internal/setup/telemetry"
	"go.uber.org/zap"
)

// RESTLogDir specifies where REST server log files are stored.
const RESTLogDir = "logs/rest_logs"

// Server timeouts.
const (
	ReadTimeout     = 5 * time.Second
	WriteTimeout    = 30 * time.Second
	ShutdownTimeout = 30 * time.Second
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize application with required dependencies
	app, err := setup.InitializeApp(ctx, telemetry.ServiceAPI, RESTLogDir)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}
	defer app.Cleanup(context.Background())

	authenticator, err := newAuthenticator(ctx, app)
	if err != nil {
		app.Logger.Fatal("Failed to create authenticator", zap.Error(err))
	}

	handler := rest.NewServer(ctx, app.DB, authenticator, &app.Config.API, app.Logger)

	// Get server address from config
	addr := fmt.Sprintf("%s:%d", app.Config.API.Server.Host, app.Config.API.Server.Port)

	// Create HTTP server with timeouts
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  ReadTimeout,
		WriteTimeout: WriteTimeout,
	}

	go func() {
		app.Logger.Info("REST server started", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.Logger.Error("Failed to start server", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	app.Logger.Info("Shutting down REST server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		app.Logger.Error("Server forced to shutdown", zap.Error(err))
	}

	app.Logger.Info("Server gracefully stopped")
}

// newAuthenticator builds the login flow. Without a JWT secret login stays
// disabled and nil is returned. Authorization codes are shared through Redis
// when it is enabled so that every API instance rejects reuse.
func newAuthenticator(ctx context.Context, app *setup.App) (rest.Authenticator, error) {
	cfg := &app.Config.API.Auth
	if cfg.JWTSecret == "" {
		app.Logger.Warn("JWT secret not configured, dashboard login is disabled")
		return nil, nil //nolint:nilnil // login is optional
	}

	issuer, err := auth.NewIssuer(cfg.JWTSecret, time.Duration(cfg.TokenTTL)*time.Hour)
	if err != nil {
		return nil, err
	}

	codes, err := newCodeStore(ctx, app.RedisManager, cfg)
	if err != nil {
		return nil, err
	}

	oauth := auth.NewDiscordOAuth(cfg, auth.DiscordAPIBase, app.Logger)
	if !oauth.Configured() {
		app.Logger.Warn("Discord OAuth credentials not configured, logins will fail")
	}

	return auth.NewAuthenticator(
		codes, oauth, app.DB.Model().Stats(), auth.NewPolicy(cfg), issuer, cfg.RequiredGuildID, app.Logger,
	), nil
}

func newCodeStore(ctx context.Context, manager *redis.Manager, cfg *config.Auth) (auth.CodeStore, error) {
	ttl := time.Duration(cfg.CodeTTL) * time.Second

	if !manager.Enabled() {
		return auth.NewMemoryCodeStore(ctx, ttl), nil
	}

	client, err := manager.GetClient(redis.AuthDBIndex)
	if err != nil {
		return nil, err
	}
	return auth.NewRedisCodeStore(client, ttl), nil
}

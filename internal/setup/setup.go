package setup

import (
	"context"
	"log"

	aiClient "github.com/robalyx/sentinel/internal/ai/client"
	"github.com/robalyx/sentinel/internal/database"
	"github.com/robalyx/sentinel/internal/redis"
	"github.com/robalyx/sentinel/internal/setup/config"
	"github.com/robalyx/sentinel/internal/setup/telemetry"
	"go.uber.org/zap"
)

// App bundles all core dependencies and services needed by the application.
// Each field represents a major subsystem that needs initialization and cleanup.
type App struct {
	Config       *config.Config     // Application configuration
	ConfigDir    string             // Directory the configuration was loaded from
	Logger       *zap.Logger        // Main application logger
	DBLogger     *zap.Logger        // Database-specific logger
	DB           database.Client    // Database connection pool
	AIClient     *aiClient.AIClient // Vision model client
	RedisManager *redis.Manager     // Redis connection manager
	LogManager   *telemetry.Manager // Log management system
}

// InitializeApp bootstraps all application dependencies in the correct order,
// ensuring each component has its required dependencies available.
func InitializeApp(ctx context.Context, serviceType telemetry.ServiceType, logDir string) (*App, error) {
	// Load app configuration
	cfg, configDir, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	// Logging system is initialized next to capture setup issues
	logManager := telemetry.NewManager(serviceType, logDir, &cfg.Common.Debug)

	logger, dbLogger, err := logManager.GetLoggers()
	if err != nil {
		return nil, err
	}

	// Redis manager provides optional shared state
	redisManager := redis.NewManager(&cfg.Common.Redis, logger)

	// Long-running services apply pending migrations on startup
	db, err := database.NewConnection(ctx, &cfg.Common.SQLite, dbLogger, true)
	if err != nil {
		redisManager.Close()
		return nil, err
	}

	// Initialize AI client
	aiCli := aiClient.NewClient(&cfg.Common.OpenAI, logger)
	if !aiCli.Configured() {
		logger.Warn("OpenAI API key not configured, activity extraction is disabled")
	}

	logger.Info("Application initialized",
		zap.String("service", serviceType.String()),
		zap.String("configDir", configDir),
		zap.String("instanceID", logManager.GetInstanceID()),
		zap.String("logDir", logManager.GetCurrentSessionDir()),
		zap.Bool("redis", redisManager.Enabled()))

	// Bundle all initialized components
	return &App{
		Config:       cfg,
		ConfigDir:    configDir,
		Logger:       logger,
		DBLogger:     dbLogger.Named("database"),
		DB:           db,
		AIClient:     aiCli,
		RedisManager: redisManager,
		LogManager:   logManager,
	}, nil
}

// Cleanup ensures graceful shutdown of all components in reverse initialization order.
// Logs but does not fail on cleanup errors to ensure all components get cleanup attempts.
func (s *App) Cleanup(_ context.Context) {
	// Sync buffered logs before shutdown
	if err := s.Logger.Sync(); err != nil {
		log.Printf("Failed to sync logger: %v", err)
	}

	if err := s.DBLogger.Sync(); err != nil {
		log.Printf("Failed to sync DB logger: %v", err)
	}

	// Close database connections
	if err := s.DB.Close(); err != nil {
		log.Printf("Failed to close database connection: %v", err)
	}

	// Close Redis connections last as other components might need it during cleanup
	s.RedisManager.Close()
}

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/robalyx/sentinel/internal/bot"
	"github.com/robalyx/sentinel/internal/setup"
	"github.com/robalyx/sentinel/internal/setup/telemetry"
	"go.uber.org/zap"
)

const (
	// BotLogDir specifies where bot log files are stored.
	BotLogDir = "logs/bot_logs"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize application with required dependencies
	app, err := setup.InitializeApp(ctx, telemetry.ServiceBot, BotLogDir)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}
	defer app.Cleanup(context.Background())

	// Create bot instance
	discordBot, err := bot.New(ctx, app.Config, app.DB, app.AIClient, app.Logger)
	if err != nil {
		app.Logger.Error("Failed to create bot", zap.Error(err))
		return
	}

	// Start the bot and connect to Discord
	if err := discordBot.Start(); err != nil {
		app.Logger.Error("Failed to start bot", zap.Error(err))
		return
	}

	app.Logger.Info("Bot has been started. Waiting for interrupt signal to gracefully shutdown...")

	// Wait for interrupt signal to gracefully shutdown the bot
	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc

	// Stop the tracker and scheduler before the gateway closes
	cancel()
	discordBot.Close()
}

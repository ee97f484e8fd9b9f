package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"registerbot/pkg/bot"
	"registerbot/pkg/chat"
	"registerbot/pkg/config"
	"registerbot/pkg/dispatch"
	"registerbot/pkg/register"
	"registerbot/pkg/store"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting registration bot")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	pg := store.NewPostgres(db)
	if err := pg.Migrate(); err != nil {
		logger.Fatal("Failed to migrate schema", zap.Error(err))
	}

	client, err := chat.NewClient(cfg.APIURL, cfg.Token, logger)
	if err != nil {
		logger.Fatal("Failed to create platform client", zap.Error(err))
	}

	sessions := register.NewSessions(client, pg, register.Options{
		AbortToModify: cfg.AbortToModify,
	}, logger)

	server := dispatch.NewServer(client, cfg.WebhookURL, cfg.ListenAddr, logger)
	handlers := bot.New(client, sessions, pg, logger)
	handlers.RegisterRoutes(server)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := server.Setup(ctx); err != nil {
		logger.Fatal("Failed to set up dispatch engine", zap.Error(err))
	}
	logger.Info("Bot ready")

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info("Shutdown signal received")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown failed", zap.Error(err))
	}
	logger.Info("Bot stopped")
}

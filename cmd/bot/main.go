package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-telegram/bot"
	"github.com/joho/godotenv"
	"github.com/reshetovitsme/channel-admin-bot/internal/di"
	autopostService "github.com/reshetovitsme/channel-admin-bot/internal/modules/autopost/service"
	reportService "github.com/reshetovitsme/channel-admin-bot/internal/modules/report/service"
	"github.com/reshetovitsme/channel-admin-bot/internal/shared/config"
	httpServer "github.com/reshetovitsme/channel-admin-bot/internal/transport/http"
	telegramHandler "github.com/reshetovitsme/channel-admin-bot/internal/transport/telegram"
	"github.com/samber/do/v2"
	slogmulti "github.com/samber/slog-multi"
)

func main() {
	// A missing .env is fine, variables may come straight from the environment
	godotenv.Load()

	// Setup structured logging with multiple handlers using slog-multi
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	jsonHandler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	})

	// Use Fanout to send logs to both handlers
	multiHandler := slogmulti.Fanout(textHandler, jsonHandler)
	logger := slog.New(multiHandler)
	slog.SetDefault(logger)

	// Setup dependency injection
	injector, err := di.Setup()
	if err != nil {
		slog.Error("Failed to setup dependency injection", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := di.Shutdown(injector); err != nil {
			slog.Error("Error during shutdown", "error", err)
		}
	}()

	// Get services from DI container
	cfg := do.MustInvoke[*config.Config](injector)
	autopost := do.MustInvoke[*autopostService.Service](injector)
	reports := do.MustInvoke[*reportService.Service](injector)
	server := do.MustInvoke[*httpServer.Server](injector)
	handler := do.MustInvoke[*telegramHandler.Handler](injector)
	b := do.MustInvoke[*bot.Bot](injector)

	// The bootstrap logger assumed info, the environment decides for real
	if level := cfg.LogLevel(); level != slog.LevelInfo {
		textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
		slog.SetDefault(slog.New(slogmulti.Fanout(textHandler, jsonHandler)))
	}

	// Graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Start the auto-post scheduler
	autopost.Start(ctx)

	// Start the weekly report loop
	if cfg.WeeklyReport {
		reports.Start(ctx)
	}

	// Start HTTP server
	go func() {
		if err := server.Start(); err != nil {
			slog.Error("Failed to start HTTP server", "error", err)
			os.Exit(1)
		}
	}()

	// Advertise the command menu in the Telegram client
	handler.PublishCommands(ctx, b)

	slog.Info("Application started", "admin_id", cfg.AdminID, "port", cfg.HTTPPort)
	slog.Info("Press Ctrl+C to stop")

	// Long-poll for updates until interrupted
	b.Start(ctx)

	slog.Info("Shutting down...")
}

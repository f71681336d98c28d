package di

import (
	"context"
	"log/slog"

	"github.com/go-telegram/bot"
	approvalService "github.com/reshetovitsme/channel-admin-bot/internal/modules/approval/service"
	autopostService "github.com/reshetovitsme/channel-admin-bot/internal/modules/autopost/service"
	reportService "github.com/reshetovitsme/channel-admin-bot/internal/modules/report/service"
	"github.com/reshetovitsme/channel-admin-bot/internal/modules/store/repository"
	"github.com/reshetovitsme/channel-admin-bot/internal/shared/config"
	httpServer "github.com/reshetovitsme/channel-admin-bot/internal/transport/http"
	telegramHandler "github.com/reshetovitsme/channel-admin-bot/internal/transport/telegram"
	"github.com/samber/do/v2"
	"github.com/samber/oops"
)

// Setup initializes the dependency injection container
func Setup() (do.Injector, error) {
	injector := do.New()

	// Register Config
	do.Provide(injector, func(i do.Injector) (*config.Config, error) {
		cfg, err := config.Load()
		if err != nil {
			return nil, oops.With("context", "failed to load config").Wrap(err)
		}
		return cfg, nil
	})

	// Register Store
	do.Provide(injector, func(i do.Injector) (repository.Store, error) {
		cfg := do.MustInvoke[*config.Config](i)
		store, err := repository.NewFileStore(cfg.StoragePath, cfg.StrictLoad)
		if err != nil {
			return nil, oops.With("storage_path", cfg.StoragePath, "context", "failed to initialize store").Wrap(err)
		}
		return store, nil
	})

	// Register Approval Service
	do.Provide(injector, func(i do.Injector) (*approvalService.Service, error) {
		store := do.MustInvoke[repository.Store](i)
		return approvalService.New(store), nil
	})

	// Register Auto-Post Service
	do.Provide(injector, func(i do.Injector) (*autopostService.Service, error) {
		cfg := do.MustInvoke[*config.Config](i)
		store := do.MustInvoke[repository.Store](i)
		return autopostService.New(cfg, store), nil
	})

	// Register Report Service
	do.Provide(injector, func(i do.Injector) (*reportService.Service, error) {
		cfg := do.MustInvoke[*config.Config](i)
		store := do.MustInvoke[repository.Store](i)
		return reportService.New(cfg, store), nil
	})

	// Register Telegram Handler
	do.Provide(injector, func(i do.Injector) (*telegramHandler.Handler, error) {
		cfg := do.MustInvoke[*config.Config](i)
		store := do.MustInvoke[repository.Store](i)
		approvals := do.MustInvoke[*approvalService.Service](i)
		autopost := do.MustInvoke[*autopostService.Service](i)
		reports := do.MustInvoke[*reportService.Service](i)
		return telegramHandler.New(cfg, store, approvals, autopost, reports), nil
	})

	// Register HTTP Server
	do.Provide(injector, func(i do.Injector) (*httpServer.Server, error) {
		cfg := do.MustInvoke[*config.Config](i)
		reports := do.MustInvoke[*reportService.Service](i)
		server := httpServer.New(cfg, reports)
		server.SetLogger(slog.Default())
		return server, nil
	})

	// Register Bot (needs to be initialized after handlers are ready)
	do.Provide(injector, func(i do.Injector) (*bot.Bot, error) {
		cfg := do.MustInvoke[*config.Config](i)
		handler := do.MustInvoke[*telegramHandler.Handler](i)

		opts := []bot.Option{
			bot.WithServerURL(cfg.TelegramAPIURL),
			bot.WithDefaultHandler(handler.HandleUpdate),
		}

		b, err := bot.New(cfg.BotToken, opts...)
		if err != nil {
			return nil, oops.With("context", "failed to create telegram bot").Wrap(err)
		}

		// Register bot commands
		handler.RegisterCommands(b)

		// The services send through the same client
		do.MustInvoke[*approvalService.Service](i).SetBot(b)
		do.MustInvoke[*autopostService.Service](i).SetBot(b)
		do.MustInvoke[*reportService.Service](i).SetBot(b)

		return b, nil
	})

	return injector, nil
}

// Shutdown gracefully shuts down all services
func Shutdown(injector do.Injector) error {
	ctx := context.Background()

	// Shutdown bot if it exists
	if b, err := do.Invoke[*bot.Bot](injector); err == nil && b != nil {
		b.Close(ctx)
	}

	// Stop the background schedulers if they exist
	if autopost, err := do.Invoke[*autopostService.Service](injector); err == nil && autopost != nil {
		autopost.Stop()
	}
	if reports, err := do.Invoke[*reportService.Service](injector); err == nil && reports != nil {
		reports.Stop()
	}

	return nil
}

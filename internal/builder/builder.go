// Package builder assembles the application from configuration: database,
// service API client, dialogue service, Telegram transport, callback server
// and the reconciliation job.
package builder

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/InternetOfUs/app-telegram-bot-sub000/internal/api"
	"github.com/InternetOfUs/app-telegram-bot-sub000/internal/cache"
	"github.com/InternetOfUs/app-telegram-bot-sub000/internal/chatbot/handlers"
	"github.com/InternetOfUs/app-telegram-bot-sub000/internal/chatbot/state"
	"github.com/InternetOfUs/app-telegram-bot-sub000/internal/config"
	"github.com/InternetOfUs/app-telegram-bot-sub000/internal/i18n"
	"github.com/InternetOfUs/app-telegram-bot-sub000/internal/job"
	"github.com/InternetOfUs/app-telegram-bot-sub000/internal/repository"
	"github.com/InternetOfUs/app-telegram-bot-sub000/internal/telegram"
	"github.com/InternetOfUs/app-telegram-bot-sub000/internal/wenet"
	pkgHTTP "github.com/InternetOfUs/app-telegram-bot-sub000/pkg/http"
	"go.uber.org/zap"
)

// Build wires every component and returns the runnable application.
func Build() (*App, error) {
	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := setupLogger(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("setup logger: %w", err)
	}

	logger.Info("building application",
		zap.String("environment", cfg.Environment),
		zap.String("server_addr", cfg.ServerAddr),
	)

	db, err := setupDatabase(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("setup database: %w", err)
	}

	logger.Info("running database migrations")
	if err := repository.RunMigrations(cfg.DatabaseURL); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	contextRepo := repository.NewContextRepository(db)
	states := state.NewManager(contextRepo)

	payloadCache := cache.New(cfg.BotCfg.PayloadTTL, logger)

	translator, err := i18n.NewTranslator(cfg.BotCfg.LocalesDir, cfg.BotCfg.DefaultLocale, logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("load locale catalogs: %w", err)
	}

	wenetClient := wenet.NewClient(wenet.Config{
		BaseURL:      cfg.WeNetCfg.BaseURL,
		TokenURL:     cfg.WeNetCfg.TokenURL,
		ClientID:     cfg.WeNetCfg.ClientID,
		ClientSecret: cfg.WeNetCfg.ClientSecret,
		APIKey:       cfg.WeNetCfg.APIKey,
		Retry:        cfg.WeNetCfg.Retry,
	}, []pkgHTTP.HttpOpts{
		pkgHTTP.WithRequestTimeout(cfg.WeNetCfg.RequestTimeout),
	}, logger)

	bot, err := telegram.New(&cfg.TelegramCfg, cfg.BotCfg.AppID, payloadCache, translator, logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize telegram bot: %w", err)
	}
	sender := telegram.NewSender(bot.API())

	service := handlers.NewService(handlers.Config{
		AppID:           cfg.BotCfg.AppID,
		CommunityID:     cfg.BotCfg.CommunityID,
		TaskTypeID:      cfg.BotCfg.TaskTypeID,
		LoginURL:        cfg.BotCfg.LoginURL,
		DefaultLocale:   cfg.BotCfg.DefaultLocale,
		PayloadTTL:      cfg.BotCfg.PayloadTTL,
		AnsweredFlagTTL: cfg.BotCfg.AnsweredFlagTTL,
		ReminderWindow:  cfg.BotCfg.ReminderWindow,
	}, states, payloadCache, wenetClient, translator, sender)
	bot.BindService(service)

	reconciliation := job.NewPendingMessagesJob(states, sender, cfg.BotCfg.ReminderWindow)

	messagesHandler := api.NewMessagesHandler(service)
	router := api.SetupRouter(messagesHandler, logger)

	server := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Info("application built successfully",
		zap.String("environment", cfg.Environment),
	)

	return &App{
		server:      server,
		bot:         bot,
		job:         reconciliation,
		jobInterval: cfg.BotCfg.JobInterval,
		db:          db,
		logger:      logger,
	}, nil
}

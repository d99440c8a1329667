package telegram

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/InternetOfUs/app-telegram-bot-sub000/internal/cache"
	"github.com/InternetOfUs/app-telegram-bot-sub000/internal/chatbot/handlers"
	"github.com/InternetOfUs/app-telegram-bot-sub000/internal/chatbot/message"
	"github.com/InternetOfUs/app-telegram-bot-sub000/internal/chatbot/router"
	"github.com/InternetOfUs/app-telegram-bot-sub000/internal/config"
	"github.com/InternetOfUs/app-telegram-bot-sub000/internal/i18n"
	"github.com/InternetOfUs/app-telegram-bot-sub000/internal/telegram/middleware"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// msgButtonExpired is the translation key for the reply to a click on a
// button whose cached payload is gone.
const msgButtonExpired = "button_expired"

// Bot runs the long-poll loop and converts Telegram updates into dialogue
// events for the service.
type Bot struct {
	api        *tgbotapi.BotAPI
	cfg        *config.TelegramConfig
	service    *handlers.Service
	cache      *cache.Cache
	translator *i18n.Translator
	appID      string
	logger     *zap.Logger

	loggingMW   *middleware.LoggingMiddleware
	recoveryMW  *middleware.RecoveryMiddleware
	rateLimitMW *middleware.RateLimiterMiddleware

	updatesChan tgbotapi.UpdatesChannel
	stopChan    chan struct{}
	wg          sync.WaitGroup
}

// New authorizes against the Telegram API and builds the update pipeline.
// The dialogue service is attached with BindService before Start; the
// two-step construction lets the service send through the same authorized
// client the bot polls with.
func New(
	cfg *config.TelegramConfig,
	appID string,
	payloadCache *cache.Cache,
	translator *i18n.Translator,
	logger *zap.Logger,
) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("create bot API: %w", err)
	}
	api.Debug = false

	logger.Info("telegram bot authorized",
		zap.String("username", api.Self.UserName),
		zap.Int64("id", api.Self.ID),
	)

	b := &Bot{
		api:        api,
		cfg:        cfg,
		cache:      payloadCache,
		translator: translator,
		appID:      appID,
		logger:     logger,
		stopChan:   make(chan struct{}),
	}

	b.loggingMW = middleware.NewLoggingMiddleware(logger)
	b.recoveryMW = middleware.NewRecoveryMiddleware(logger)
	b.rateLimitMW = middleware.NewRateLimiterMiddleware(
		cfg.RateLimitPerMinute,
		cfg.RateLimitBurst,
		logger,
	)

	return b, nil
}

// API exposes the authorized client so the sender can share it.
func (b *Bot) API() *tgbotapi.BotAPI {
	return b.api
}

// BindService attaches the dialogue service. Must happen before Start.
func (b *Bot) BindService(service *handlers.Service) {
	b.service = service
}

// Start begins consuming updates. It returns immediately; processing runs
// in the background until Stop.
func (b *Bot) Start(ctx context.Context) error {
	if b.service == nil {
		return fmt.Errorf("telegram bot started without a dialogue service")
	}
	b.logger.Info("starting telegram bot")

	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.cfg.UpdateTimeout
	b.updatesChan = b.api.GetUpdatesChan(u)

	ctx = ctxzap.ToContext(ctx, b.logger)
	go b.processUpdates(ctx)

	return nil
}

// Stop drains in-flight handlers, bounded by the configured timeout.
func (b *Bot) Stop() error {
	b.logger.Info("stopping telegram bot")

	close(b.stopChan)
	b.api.StopReceivingUpdates()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	shutdownTimeout := time.Duration(b.cfg.ShutdownTimeout) * time.Second
	select {
	case <-done:
		b.logger.Info("all handlers completed gracefully")
	case <-time.After(shutdownTimeout):
		b.logger.Warn("shutdown timeout exceeded, some handlers may not have completed",
			zap.Duration("timeout", shutdownTimeout),
		)
		return fmt.Errorf("shutdown timeout exceeded")
	}
	return nil
}

func (b *Bot) processUpdates(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			ctxzap.Info(ctx, "context cancelled, stopping update processing")
			return
		case <-b.stopChan:
			ctxzap.Info(ctx, "stop signal received, stopping update processing")
			return
		case update := <-b.updatesChan:
			b.wg.Add(1)
			go func(u tgbotapi.Update) {
				defer b.wg.Done()
				b.handleUpdateWithMiddleware(ctx, u)
			}(update)
		}
	}
}

func (b *Bot) handleUpdateWithMiddleware(ctx context.Context, update tgbotapi.Update) {
	b.rateLimitMW.Handle(update, func(u tgbotapi.Update) {
		b.loggingMW.Handle(u, func(u2 tgbotapi.Update) {
			b.recoveryMW.Handle(u2, func(u3 tgbotapi.Update) {
				b.handleUpdate(ctx, u3)
			})
		})
	})
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.CallbackQuery != nil {
		b.handleCallbackQuery(ctx, update.CallbackQuery)
		return
	}
	if update.Message != nil {
		b.handleMessage(ctx, update.Message)
	}
}

// handleMessage maps a chat message onto an event: a command becomes its
// intent, free text rides with an empty intent, anything else (photos,
// stickers, voice, locations) is a non-text event the state rules decide on.
func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	ev := &router.Event{
		Recipient: b.recipient(msg.From.ID, msg.Chat.ID),
	}

	switch {
	case msg.IsCommand():
		ev.Intent = "/" + msg.Command()
	case msg.Text != "":
		ev.Text = msg.Text
	default:
		ev.NonText = true
	}

	b.service.HandleEvent(ctx, ev)
}

// handleCallbackQuery resolves the callback data against the payload cache.
// An expired or already-consumed key gets a "button expired" reply instead
// of an event.
func (b *Bot) handleCallbackQuery(ctx context.Context, query *tgbotapi.CallbackQuery) {
	// Acknowledge right away so the client stops its spinner.
	b.answerCallback(query.ID)

	if query.Message == nil {
		ctxzap.Warn(ctx, "callback without message, dropping",
			zap.Int64("user_id", query.From.ID),
		)
		return
	}
	chatID := query.Message.Chat.ID

	var payload cache.ButtonPayload
	if !b.cache.Get(query.Data, &payload) {
		ctxzap.Info(ctx, "expired button clicked",
			zap.String("key", query.Data),
			zap.Int64("user_id", query.From.ID),
		)
		b.sendExpiredNotice(ctx, chatID)
		return
	}

	ev := &router.Event{
		Intent:    payload.Intent,
		Recipient: b.recipient(query.From.ID, chatID),
		Payload:   &payload,
	}
	b.service.HandleEvent(ctx, ev)
}

func (b *Bot) recipient(userID, chatID int64) message.Recipient {
	return message.Recipient{
		AppID:  b.appID,
		UserID: strconv.FormatInt(userID, 10),
		ChatID: chatID,
	}
}

func (b *Bot) sendExpiredNotice(ctx context.Context, chatID int64) {
	text := b.translator.Translate(b.translator.DefaultLocale(), msgButtonExpired)
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		ctxzap.Error(ctx, "failed to send expired-button notice",
			zap.Error(err),
			zap.Int64("chat_id", chatID),
		)
	}
}

func (b *Bot) answerCallback(callbackID string) {
	callback := tgbotapi.NewCallback(callbackID, "")
	if _, err := b.api.Request(callback); err != nil {
		b.logger.Error("failed to answer callback",
			zap.Error(err),
			zap.String("callback_id", callbackID),
		)
	}
}

// Package handlers holds the dialogue logic of the ask-for-help bot: the
// question-asking state machine, the answer flow and the dispatch boundary
// tying them to the router.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/InternetOfUs/app-telegram-bot-sub000/internal/cache"
	"github.com/InternetOfUs/app-telegram-bot-sub000/internal/chatbot/message"
	"github.com/InternetOfUs/app-telegram-bot-sub000/internal/chatbot/router"
	"github.com/InternetOfUs/app-telegram-bot-sub000/internal/chatbot/state"
	"github.com/InternetOfUs/app-telegram-bot-sub000/internal/entity"
	"github.com/InternetOfUs/app-telegram-bot-sub000/internal/i18n"
	"github.com/InternetOfUs/app-telegram-bot-sub000/internal/wenet"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// Config holds the dialogue-level settings.
type Config struct {
	AppID       string
	CommunityID string
	TaskTypeID  string

	// LoginURL is offered when the user must re-authenticate.
	LoginURL string

	DefaultLocale string

	// PayloadTTL bounds how long an inline button stays clickable.
	PayloadTTL time.Duration

	// AnsweredFlagTTL bounds the "has answered before" flag that
	// suppresses the answer explainer.
	AnsweredFlagTTL time.Duration

	// ReminderWindow is the delay before a deferred question is re-sent.
	ReminderWindow time.Duration
}

// Service owns the router and every dialogue handler. All dependencies are
// injected; there is no hidden global state.
type Service struct {
	cfg        Config
	router     *router.Router
	states     *state.Manager
	cache      *cache.Cache
	api        wenet.API
	translator *i18n.Translator
	sender     message.Sender
}

// NewService wires the dialogue service and registers the fulfiller rules.
func NewService(
	cfg Config,
	states *state.Manager,
	payloadCache *cache.Cache,
	api wenet.API,
	translator *i18n.Translator,
	sender message.Sender,
) *Service {
	s := &Service{
		cfg:        cfg,
		router:     router.New(),
		states:     states,
		cache:      payloadCache,
		api:        api,
		translator: translator,
		sender:     sender,
	}
	s.registerRules()
	return s
}

// registerRules builds the dispatch table. Registration order is the
// precedence order: globals first, then specific intent+state rules, then
// state-gated free-text rules, and the catch-all strictly last.
func (s *Service) registerRules() {
	r := s.router

	// Global commands, matched regardless of state
	r.Register("cancel", IntentCancel, nil, s.Cancel)
	r.Register("start", IntentStart, nil, s.Start)
	r.Register("help", IntentHelp, nil, s.Help)
	r.Register("info", IntentInfo, nil, s.Info)
	r.Register("begin_question", IntentQuestion, nil, s.BeginQuestionFlow)

	// Answer-flow buttons carry their meaning in the cached payload, so
	// they route on intent alone.
	r.Register("answer_question", IntentAnswerQuestion, nil, s.BeginAnswer)
	r.Register("answer_remind_later", IntentAnswerRemindLater, nil, s.RemindLater)
	r.Register("answer_not_interested", IntentAnswerNotInterested, nil, s.NotInterested)
	r.Register("question_report", IntentQuestionReport, nil, s.ReportQuestion)
	r.Register("publish_anonymously", IntentPublishAnonymously,
		router.InState(state.StateAnsweringAnonymously), s.publishAnswer(true))
	r.Register("publish_with_name", IntentPublishWithName,
		router.InState(state.StateAnsweringAnonymously), s.publishAnswer(false))

	// Question flow, state-qualified
	r.RegisterRegex("select_domain", domainIntentRe,
		router.InState(state.StateQuestion2), s.SelectDomain)
	r.RegisterRegex("select_domain_interest", similarityIntentRe,
		router.InState(state.StateQuestion3), s.SelectDomainInterest)
	r.RegisterRegex("select_belief_similarity", similarityIntentRe,
		router.InState(state.StateQuestion4), s.SelectBeliefSimilarity)
	r.Register("select_sensitive", IntentSensitive,
		router.InState(state.StateQuestion41), s.selectSensitivity(true))
	r.Register("select_not_sensitive", IntentNotSensitive,
		router.InState(state.StateQuestion41), s.selectSensitivity(false))
	r.Register("select_anonymous", IntentAnonymous,
		router.InState(state.StateQuestion5), s.selectAnonymity(true))
	r.Register("select_not_anonymous", IntentNotAnonymous,
		router.InState(state.StateQuestion5), s.selectAnonymity(false))
	// Carried-over sensitivity answers still arriving at question_5 keep
	// their historical meaning; the answer kind is explicit per rule.
	r.Register("late_sensitive", IntentSensitive,
		router.InState(state.StateQuestion5), s.selectSensitivity(true))
	r.Register("late_not_sensitive", IntentNotSensitive,
		router.InState(state.StateQuestion5), s.selectSensitivity(false))
	r.RegisterRegex("select_social_closeness", similarityIntentRe,
		router.InState(state.StateQuestion6), s.SelectSocialCloseness)
	r.Register("finalize_nearby", IntentAskToNearby,
		router.InState(state.StateQuestion6), s.finalizeQuestion(true))
	r.Register("finalize_anywhere", IntentAskToAnywhere,
		router.InState(state.StateQuestion6), s.finalizeQuestion(false))

	// Free-text collectors: empty intent means "whatever arrives in this
	// state". Registered after every intent+state rule so they cannot
	// shadow them.
	r.Register("collect_question_text", "",
		router.InState(state.StateQuestion1), s.CollectQuestionText)
	r.Register("collect_answer", "",
		router.InState(state.StateAnswering), s.CollectAnswer)
	r.Register("collect_sensitive_answer", "",
		router.InState(state.StateAnsweringSensitive), s.CollectSensitiveAnswer)

	// Catch-all: anything unmatched gets a polite shrug. Must stay last.
	r.RegisterRegex("fallback", anyIntentRe, nil, s.Fallback)
}

// HandleEvent is the routing boundary: it serializes per-user access,
// loads the context, routes, runs the handler, persists the context and
// converts every failure into an outbound message. It never panics the
// event out to the transport.
func (s *Service) HandleEvent(ctx context.Context, ev *router.Event) {
	userID := ev.Recipient.UserID

	s.states.Lock(userID)
	defer s.states.Unlock(userID)

	conv, err := s.states.Get(ctx, userID)
	switch {
	case errors.Is(err, entity.ErrContextNotFound):
		conv = state.NewContext(userID, ev.Recipient)
	case err != nil:
		ctxzap.Error(ctx, "failed to load conversation context",
			zap.Error(err),
			zap.String("user_id", userID),
		)
		s.reply(ctx, ev.Recipient, s.cfg.DefaultLocale, msgErrorGeneric)
		return
	}
	// The chat can move (new device, migrated group); follow it.
	conv.Recipient = ev.Recipient

	handler, ruleName, err := s.router.Route(ev.Intent, conv)
	if err != nil {
		ctxzap.Error(ctx, "unroutable event",
			zap.Error(err),
			zap.String("intent", ev.Intent),
			zap.String("state", string(conv.State)),
			zap.String("user_id", userID),
		)
		s.reply(ctx, conv.Recipient, s.locale(conv), msgErrorGeneric)
		return
	}

	ctxzap.Debug(ctx, "event routed",
		zap.String("rule", ruleName),
		zap.String("intent", ev.Intent),
		zap.String("state", string(conv.State)),
	)

	handlerErr := handler(ctx, conv, ev)

	// Persist regardless of the handler outcome so deferred cleanup and
	// partial progress always land in the store.
	if err := s.states.Save(ctx, conv); err != nil {
		ctxzap.Error(ctx, "failed to persist conversation context",
			zap.Error(err),
			zap.String("user_id", userID),
		)
	}

	if handlerErr != nil {
		s.handleEscapedError(ctx, conv, ruleName, handlerErr)
	}
}

// handleEscapedError converts an error that escaped a handler into a
// user-visible message. Only the token-expiry case gets special treatment;
// everything else is the generic error.
func (s *Service) handleEscapedError(ctx context.Context, conv *state.Context, ruleName string, err error) {
	if errors.Is(err, wenet.ErrRefreshTokenExpired) {
		ctxzap.Warn(ctx, "user credentials expired",
			zap.String("user_id", conv.UserID),
		)
		text := s.translator.Translatef(s.locale(conv), msgErrorLogin,
			map[string]string{"url": s.cfg.LoginURL})
		s.send(ctx, conv.Recipient, message.TextualResponse{Text: text})
		return
	}

	ctxzap.Error(ctx, "handler error",
		zap.Error(err),
		zap.String("rule", ruleName),
		zap.String("user_id", conv.UserID),
		zap.String("state", string(conv.State)),
	)
	s.reply(ctx, conv.Recipient, s.locale(conv), msgErrorGeneric)
}

func (s *Service) locale(conv *state.Context) string {
	if conv != nil && conv.Locale != "" {
		return conv.Locale
	}
	return s.cfg.DefaultLocale
}

// reply sends a single localized text message.
func (s *Service) reply(ctx context.Context, to message.Recipient, locale, key string) {
	s.send(ctx, to, message.TextualResponse{Text: s.translator.Translate(locale, key)})
}

func (s *Service) send(ctx context.Context, to message.Recipient, responses ...message.Response) {
	if err := s.sender.Send(ctx, to, responses); err != nil {
		ctxzap.Error(ctx, "failed to send response",
			zap.Error(err),
			zap.String("user_id", to.UserID),
			zap.Int64("chat_id", to.ChatID),
		)
	}
}

// choice is one button of a multi-choice message before its payload is
// cached.
type choice struct {
	labelKey string
	intent   string
	data     map[string]any
}

// buildChoices caches a payload per option with the given TTL and links the
// group through related_buttons so one click invalidates every sibling.
func (s *Service) buildChoices(locale, textKey string, rowSize int, ttl time.Duration, choices []choice) (message.MultiChoiceResponse, error) {
	keys := make([]string, 0, len(choices))
	payloads := make([]cache.ButtonPayload, 0, len(choices))

	for _, c := range choices {
		p := cache.NewButtonPayload(c.intent, c.data)
		key, err := s.cache.Put(p, ttl, "")
		if err != nil {
			return message.MultiChoiceResponse{}, fmt.Errorf("cache button payload: %w", err)
		}
		keys = append(keys, key)
		payloads = append(payloads, p)
	}

	// Second pass: every payload learns the full sibling list.
	for i, p := range payloads {
		p.Payload[cache.PayloadKeyRelatedButtons] = keys
		if _, err := s.cache.Put(p, ttl, keys[i]); err != nil {
			return message.MultiChoiceResponse{}, fmt.Errorf("link button payload: %w", err)
		}
	}

	options := make([]message.Option, 0, len(choices))
	for i, c := range choices {
		options = append(options, message.Option{
			Label: s.translator.Translate(locale, c.labelKey),
			Key:   keys[i],
		})
	}

	return message.MultiChoiceResponse{
		Text:    s.translator.Translate(locale, textKey),
		Options: options,
		RowSize: rowSize,
	}, nil
}

// consumeRelated removes the clicked button and its whole group from the
// cache, enforcing at-most-one-click semantics.
func (s *Service) consumeRelated(p *cache.ButtonPayload) {
	if p == nil {
		return
	}
	for _, key := range p.RelatedButtons() {
		s.cache.Remove(key)
	}
}

// withAuth runs a service-API call with the user's access token, refreshing
// the pair once on a 401. A failed refresh surfaces ErrRefreshTokenExpired.
func (s *Service) withAuth(ctx context.Context, conv *state.Context, call func(token string) error) error {
	if conv.AccessToken == "" {
		if err := s.refreshCredentials(ctx, conv); err != nil {
			return err
		}
	}

	err := call(conv.AccessToken)
	if err != nil && wenet.IsUnauthorized(err) {
		if err := s.refreshCredentials(ctx, conv); err != nil {
			return err
		}
		err = call(conv.AccessToken)
	}
	return err
}

func (s *Service) refreshCredentials(ctx context.Context, conv *state.Context) error {
	if conv.RefreshToken == "" {
		return wenet.ErrRefreshTokenExpired
	}

	creds, err := s.api.RefreshCredentials(ctx, conv.RefreshToken)
	if err != nil {
		return err
	}

	conv.AccessToken = creds.AccessToken
	conv.RefreshToken = creds.RefreshToken
	return nil
}

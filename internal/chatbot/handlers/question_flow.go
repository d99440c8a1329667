package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/InternetOfUs/app-telegram-bot-sub000/internal/chatbot/message"
	"github.com/InternetOfUs/app-telegram-bot-sub000/internal/chatbot/router"
	"github.com/InternetOfUs/app-telegram-bot-sub000/internal/chatbot/state"
	"github.com/InternetOfUs/app-telegram-bot-sub000/internal/entity"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// Start greets the user.
func (s *Service) Start(ctx context.Context, conv *state.Context, _ *router.Event) error {
	s.reply(ctx, conv.Recipient, s.locale(conv), msgWelcome)
	return nil
}

// Help explains the available commands.
func (s *Service) Help(ctx context.Context, conv *state.Context, _ *router.Event) error {
	s.reply(ctx, conv.Recipient, s.locale(conv), msgHelp)
	return nil
}

// Info describes the project behind the bot.
func (s *Service) Info(ctx context.Context, conv *state.Context, _ *router.Event) error {
	s.reply(ctx, conv.Recipient, s.locale(conv), msgInfo)
	return nil
}

// Cancel aborts whatever flow is in progress. Credentials and pending
// deliveries survive a cancel.
func (s *Service) Cancel(ctx context.Context, conv *state.Context, _ *router.Event) error {
	if conv.State == state.StateIdle {
		s.reply(ctx, conv.Recipient, s.locale(conv), msgNothingToCancel)
		return nil
	}

	conv.ClearQuestionFlow()
	conv.ClearAnswerFlow()
	s.reply(ctx, conv.Recipient, s.locale(conv), msgCancelled)
	return nil
}

// Fallback answers anything no other rule wanted.
func (s *Service) Fallback(ctx context.Context, conv *state.Context, ev *router.Event) error {
	ctxzap.Debug(ctx, "fallback rule hit",
		zap.String("intent", ev.Intent),
		zap.String("state", string(conv.State)),
	)
	s.reply(ctx, conv.Recipient, s.locale(conv), msgNotUnderstood)
	return nil
}

// BeginQuestionFlow starts (or restarts) the question-asking dialogue.
func (s *Service) BeginQuestionFlow(ctx context.Context, conv *state.Context, _ *router.Event) error {
	conv.ClearQuestionFlow()
	conv.State = state.StateQuestion1

	locale := s.locale(conv)
	s.send(ctx, conv.Recipient,
		message.TextualResponse{Text: s.translator.Translate(locale, msgQuestionPreamble)},
		message.TextualResponse{Text: s.translator.Translate(locale, msgQuestionAskText)},
	)
	return nil
}

// CollectQuestionText stores the free-text question and presents the 11
// domain choices. Non-text input re-prompts without advancing.
func (s *Service) CollectQuestionText(ctx context.Context, conv *state.Context, ev *router.Event) error {
	text := strings.TrimSpace(ev.Text)
	if ev.NonText || text == "" {
		s.reply(ctx, conv.Recipient, s.locale(conv), msgTextExpected)
		return nil
	}

	conv.AskedQuestion = state.StringPtr(text)
	conv.State = state.StateQuestion2

	choices := make([]choice, 0, len(QuestionDomains))
	for _, domain := range QuestionDomains {
		choices = append(choices, choice{
			labelKey: domainLabelKey(domain),
			intent:   domain,
		})
	}

	resp, err := s.buildChoices(s.locale(conv), msgQuestionAskDomain, 2, s.cfg.PayloadTTL, choices)
	if err != nil {
		return err
	}
	s.send(ctx, conv.Recipient, resp)
	return nil
}

// SelectDomain stores the chosen domain and asks about interest similarity.
func (s *Service) SelectDomain(ctx context.Context, conv *state.Context, ev *router.Event) error {
	s.consumeRelated(ev.Payload)
	conv.QuestionDomain = state.StringPtr(ev.Intent)
	conv.State = state.StateQuestion3
	return s.askSimilarity(ctx, conv, msgQuestionAskInterest)
}

// SelectDomainInterest stores the interest answer and asks about belief and
// value similarity.
func (s *Service) SelectDomainInterest(ctx context.Context, conv *state.Context, ev *router.Event) error {
	s.consumeRelated(ev.Payload)
	conv.DomainInterest = state.StringPtr(ev.Intent)
	conv.State = state.StateQuestion4
	return s.askSimilarity(ctx, conv, msgQuestionAskBeliefs)
}

// SelectBeliefSimilarity stores the belief answer and asks whether the
// question is sensitive.
func (s *Service) SelectBeliefSimilarity(ctx context.Context, conv *state.Context, ev *router.Event) error {
	s.consumeRelated(ev.Payload)
	conv.BeliefValuesSimilarity = state.StringPtr(ev.Intent)
	conv.State = state.StateQuestion41

	resp, err := s.buildChoices(s.locale(conv), msgQuestionAskSensitivity, 2, s.cfg.PayloadTTL, []choice{
		{labelKey: lblSensitive, intent: IntentSensitive},
		{labelKey: lblNotSensitive, intent: IntentNotSensitive},
	})
	if err != nil {
		return err
	}
	s.send(ctx, conv.Recipient, resp)
	return nil
}

// selectSensitivity records the sensitivity answer. Sensitive questions go
// through the anonymity question first; others jump to social closeness.
func (s *Service) selectSensitivity(sensitive bool) router.Handler {
	return func(ctx context.Context, conv *state.Context, ev *router.Event) error {
		s.consumeRelated(ev.Payload)
		conv.SensitiveQuestion = state.BoolPtr(sensitive)

		if sensitive {
			conv.State = state.StateQuestion5
			resp, err := s.buildChoices(s.locale(conv), msgQuestionAskAnonymity, 2, s.cfg.PayloadTTL, []choice{
				{labelKey: lblAnonymous, intent: IntentAnonymous},
				{labelKey: lblNotAnonymous, intent: IntentNotAnonymous},
			})
			if err != nil {
				return err
			}
			s.send(ctx, conv.Recipient, resp)
			return nil
		}

		conv.State = state.StateQuestion6
		return s.askSimilarity(ctx, conv, msgQuestionAskCloseness)
	}
}

// selectAnonymity records the anonymity answer and moves on to social
// closeness.
func (s *Service) selectAnonymity(anonymous bool) router.Handler {
	return func(ctx context.Context, conv *state.Context, ev *router.Event) error {
		s.consumeRelated(ev.Payload)
		conv.AnonymousQuestion = state.BoolPtr(anonymous)
		conv.State = state.StateQuestion6
		return s.askSimilarity(ctx, conv, msgQuestionAskCloseness)
	}
}

// SelectSocialCloseness stores the closeness answer and asks where the
// answerer should be.
func (s *Service) SelectSocialCloseness(ctx context.Context, conv *state.Context, ev *router.Event) error {
	s.consumeRelated(ev.Payload)
	conv.SocialCloseness = state.StringPtr(ev.Intent)

	resp, err := s.buildChoices(s.locale(conv), msgQuestionAskPlace, 2, s.cfg.PayloadTTL, []choice{
		{labelKey: lblNearby, intent: IntentAskToNearby},
		{labelKey: lblAnywhere, intent: IntentAskToAnywhere},
	})
	if err != nil {
		return err
	}
	s.send(ctx, conv.Recipient, resp)
	return nil
}

// finalizeQuestion is the terminal step: it validates the collected
// answers, submits the task and resets the flow. A missing required field
// here is a programming error, not user input to recover from.
func (s *Service) finalizeQuestion(nearby bool) router.Handler {
	return func(ctx context.Context, conv *state.Context, ev *router.Event) error {
		s.consumeRelated(ev.Payload)

		task, err := s.composeTask(conv, nearby)
		if err != nil {
			return err
		}

		err = s.withAuth(ctx, conv, func(token string) error {
			_, createErr := s.api.CreateTask(ctx, token, task)
			return createErr
		})

		// A rejected creation is recovered here: apologize, reset, move
		// on. Auth expiry propagates to the boundary instead.
		if err != nil {
			if isRecoverableAPIError(err) {
				ctxzap.Warn(ctx, "task creation rejected",
					zap.Error(err),
					zap.String("user_id", conv.UserID),
				)
				conv.ClearQuestionFlow()
				s.reply(ctx, conv.Recipient, s.locale(conv), msgQuestionCreateFailed)
				return nil
			}
			return err
		}

		conv.ClearQuestionFlow()
		s.reply(ctx, conv.Recipient, s.locale(conv), msgQuestionCreated)
		return nil
	}
}

// composeTask builds the task record from the six collected answers.
func (s *Service) composeTask(conv *state.Context, nearby bool) (*entity.Task, error) {
	switch {
	case conv.AskedQuestion == nil:
		return nil, fmt.Errorf("%w: asked_question", entity.ErrMissingField)
	case conv.QuestionDomain == nil:
		return nil, fmt.Errorf("%w: question_domain", entity.ErrMissingField)
	case conv.DomainInterest == nil:
		return nil, fmt.Errorf("%w: domain_interest", entity.ErrMissingField)
	case conv.BeliefValuesSimilarity == nil:
		return nil, fmt.Errorf("%w: belief_values_similarity", entity.ErrMissingField)
	case conv.SocialCloseness == nil:
		return nil, fmt.Errorf("%w: social_closeness", entity.ErrMissingField)
	case conv.SensitiveQuestion == nil:
		return nil, fmt.Errorf("%w: sensitive_question", entity.ErrMissingField)
	}

	position := "anywhere"
	if nearby {
		position = "nearby"
	}
	anonymous := conv.AnonymousQuestion != nil && *conv.AnonymousQuestion

	return &entity.Task{
		AppID:       s.cfg.AppID,
		RequesterID: conv.UserID,
		TaskTypeID:  s.cfg.TaskTypeID,
		CommunityID: s.cfg.CommunityID,
		Goal:        entity.TaskGoal{Name: *conv.AskedQuestion},
		Attributes: map[string]any{
			"domain":             *conv.QuestionDomain,
			"domainInterest":     *conv.DomainInterest,
			"beliefsAndValues":   *conv.BeliefValuesSimilarity,
			"sensitive":          *conv.SensitiveQuestion,
			"anonymous":          anonymous,
			"socialCloseness":    *conv.SocialCloseness,
			"positionOfAnswerer": position,
		},
	}, nil
}

// askSimilarity sends the reusable similar/indifferent/different choice.
func (s *Service) askSimilarity(ctx context.Context, conv *state.Context, textKey string) error {
	resp, err := s.buildChoices(s.locale(conv), textKey, 3, s.cfg.PayloadTTL, []choice{
		{labelKey: lblSimilar, intent: IntentSimilar},
		{labelKey: lblIndifferent, intent: IntentIndifferent},
		{labelKey: lblDifferent, intent: IntentDifferent},
	})
	if err != nil {
		return err
	}
	s.send(ctx, conv.Recipient, resp)
	return nil
}

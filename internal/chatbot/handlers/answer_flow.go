package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/InternetOfUs/app-telegram-bot-sub000/internal/chatbot/message"
	"github.com/InternetOfUs/app-telegram-bot-sub000/internal/chatbot/router"
	"github.com/InternetOfUs/app-telegram-bot-sub000/internal/chatbot/state"
	"github.com/InternetOfUs/app-telegram-bot-sub000/internal/entity"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// QuestionNotification is the out-of-band "there is a question for you"
// event delivered by the WeNet platform, not by a user intent.
type QuestionNotification struct {
	TaskID    string
	Question  string
	UserID    string
	Sensitive bool
	Nearby    bool
}

// HandleQuestionNotification delivers (or queues) a new-question message.
// Busy recipients get it as a PendingWenetMessage on the next
// reconciliation pass instead of an interruption mid-flow.
func (s *Service) HandleQuestionNotification(ctx context.Context, n *QuestionNotification) error {
	s.states.Lock(n.UserID)
	defer s.states.Unlock(n.UserID)

	conv, err := s.states.Get(ctx, n.UserID)
	if err != nil {
		return err
	}

	resp, err := s.buildQuestionToAnswer(conv, n.TaskID, n.Question, n.Sensitive, n.Nearby, s.cfg.PayloadTTL)
	if err != nil {
		return err
	}

	if conv.State.IsBusy() {
		conv.PutPendingWenetMessage(&state.PendingWenetMessage{
			ID:        n.TaskID,
			Responses: message.Responses{resp},
			Recipient: conv.Recipient,
		})
		ctxzap.Info(ctx, "recipient busy, question notification queued",
			zap.String("user_id", n.UserID),
			zap.String("task_id", n.TaskID),
		)
		return s.states.Save(ctx, conv)
	}

	s.send(ctx, conv.Recipient, resp)
	return s.states.Save(ctx, conv)
}

// buildQuestionToAnswer renders the multi-button question message: the
// general variant offers answer / remind-later / not-interested / report,
// the nearby variant drops remind-later. The buttons stay clickable for ttl.
func (s *Service) buildQuestionToAnswer(conv *state.Context, taskID, question string, sensitive, nearby bool, ttl time.Duration) (message.MultiChoiceResponse, error) {
	data := map[string]any{
		payloadKeyTaskID:    taskID,
		payloadKeyQuestion:  question,
		payloadKeySensitive: sensitive,
		payloadKeyNearby:    nearby,
	}

	choices := []choice{{labelKey: lblAnswer, intent: IntentAnswerQuestion, data: data}}
	if !nearby {
		choices = append(choices, choice{labelKey: lblRemindLater, intent: IntentAnswerRemindLater, data: data})
	}
	choices = append(choices,
		choice{labelKey: lblNotInterested, intent: IntentAnswerNotInterested, data: data},
		choice{labelKey: lblReport, intent: IntentQuestionReport, data: data},
	)

	locale := s.locale(conv)
	resp, err := s.buildChoices(locale, msgNewQuestion, 2, ttl, choices)
	if err != nil {
		return message.MultiChoiceResponse{}, err
	}
	resp.Text = s.translator.Translatef(locale, msgNewQuestion,
		map[string]string{"question": question})
	return resp, nil
}

// BeginAnswer starts collecting an answer to the clicked question.
func (s *Service) BeginAnswer(ctx context.Context, conv *state.Context, ev *router.Event) error {
	if ev.Payload == nil {
		return entity.ErrMissingField
	}
	s.consumeRelated(ev.Payload)

	taskID, ok := ev.Payload.String(payloadKeyTaskID)
	if !ok {
		return entity.ErrMissingField
	}

	// Answering consumes any pending reminder for the same question.
	delete(conv.PendingAnswers, taskID)

	conv.QuestionToAnswer = state.StringPtr(taskID)
	if ev.Payload.Bool(payloadKeySensitive) {
		conv.State = state.StateAnsweringSensitive
	} else {
		conv.State = state.StateAnswering
	}

	locale := s.locale(conv)
	responses := []message.Response{}

	// First-time answerers get the explainer once; a long-lived cache
	// flag suppresses it afterwards.
	flagKey := "answered:" + conv.UserID
	var answered bool
	if !s.cache.Get(flagKey, &answered) {
		responses = append(responses,
			message.TextualResponse{Text: s.translator.Translate(locale, msgAnswerExplainer)})
	}

	responses = append(responses,
		message.TextualResponse{Text: s.translator.Translate(locale, msgAnswerPrompt)})
	s.send(ctx, conv.Recipient, responses...)
	return nil
}

// CollectAnswer submits a plain answer. The in-progress answer fields are
// cleared whatever happens, so a failed submission never wedges the user.
func (s *Service) CollectAnswer(ctx context.Context, conv *state.Context, ev *router.Event) error {
	text := strings.TrimSpace(ev.Text)
	if ev.NonText || text == "" {
		s.reply(ctx, conv.Recipient, s.locale(conv), msgTextExpected)
		return nil
	}

	conv.AnswerToQuestion = state.StringPtr(text)
	return s.submitAnswer(ctx, conv, false)
}

// CollectSensitiveAnswer stores the answer text and asks whether to
// publish it anonymously before submitting.
func (s *Service) CollectSensitiveAnswer(ctx context.Context, conv *state.Context, ev *router.Event) error {
	text := strings.TrimSpace(ev.Text)
	if ev.NonText || text == "" {
		s.reply(ctx, conv.Recipient, s.locale(conv), msgTextExpected)
		return nil
	}

	conv.AnswerToQuestion = state.StringPtr(text)
	conv.State = state.StateAnsweringAnonymously

	resp, err := s.buildChoices(s.locale(conv), msgAnswerAskAnonymity, 2, s.cfg.PayloadTTL, []choice{
		{labelKey: lblPublishAnon, intent: IntentPublishAnonymously},
		{labelKey: lblPublishName, intent: IntentPublishWithName},
	})
	if err != nil {
		return err
	}
	s.send(ctx, conv.Recipient, resp)
	return nil
}

// publishAnswer finishes the sensitive-answer flow with the chosen
// anonymity.
func (s *Service) publishAnswer(anonymous bool) router.Handler {
	return func(ctx context.Context, conv *state.Context, ev *router.Event) error {
		s.consumeRelated(ev.Payload)
		return s.submitAnswer(ctx, conv, anonymous)
	}
}

// submitAnswer sends the answer transaction. Cleanup of the answer fields
// is deferred so it runs on success, rejection and auth failure alike.
func (s *Service) submitAnswer(ctx context.Context, conv *state.Context, anonymous bool) error {
	defer conv.ClearAnswerFlow()

	if conv.QuestionToAnswer == nil || conv.AnswerToQuestion == nil {
		return entity.ErrMissingField
	}

	transaction := &entity.Transaction{
		TaskID:     *conv.QuestionToAnswer,
		ActioneeID: conv.UserID,
		Label:      entity.TransactionLabelAnswer,
		Attributes: map[string]any{
			"answer":    *conv.AnswerToQuestion,
			"anonymous": anonymous,
		},
	}

	err := s.withAuth(ctx, conv, func(token string) error {
		return s.api.CreateTaskTransaction(ctx, token, transaction)
	})
	if err != nil {
		if isRecoverableAPIError(err) {
			ctxzap.Warn(ctx, "answer submission rejected",
				zap.Error(err),
				zap.String("user_id", conv.UserID),
				zap.String("task_id", *conv.QuestionToAnswer),
			)
			s.reply(ctx, conv.Recipient, s.locale(conv), msgAnswerFailed)
			return nil
		}
		return err
	}

	// Remember that this user has answered before.
	flagKey := "answered:" + conv.UserID
	if _, err := s.cache.Put(true, s.cfg.AnsweredFlagTTL, flagKey); err != nil {
		ctxzap.Warn(ctx, "failed to store answered flag", zap.Error(err))
	}

	s.reply(ctx, conv.Recipient, s.locale(conv), msgAnswerSubmitted)
	return nil
}

// RemindLater re-renders the question message with fresh buttons, stores
// it as a pending reminder keyed by question id and leaves the user idle.
func (s *Service) RemindLater(ctx context.Context, conv *state.Context, ev *router.Event) error {
	if ev.Payload == nil {
		return entity.ErrMissingField
	}
	s.consumeRelated(ev.Payload)

	taskID, ok := ev.Payload.String(payloadKeyTaskID)
	if !ok {
		return entity.ErrMissingField
	}
	question, _ := ev.Payload.String(payloadKeyQuestion)

	// The re-rendered buttons wait out the reminder window before the job
	// redelivers them, so the plain payload TTL would expire them unseen.
	ttl := s.cfg.ReminderWindow + s.cfg.PayloadTTL
	resp, err := s.buildQuestionToAnswer(conv, taskID, question,
		ev.Payload.Bool(payloadKeySensitive), ev.Payload.Bool(payloadKeyNearby), ttl)
	if err != nil {
		return err
	}

	now := time.Now()
	conv.PutPendingAnswer(&state.PendingQuestionToAnswer{
		QuestionID: taskID,
		Response:   resp,
		Recipient:  conv.Recipient,
		Sent:       &now,
	})

	s.reply(ctx, conv.Recipient, s.locale(conv), msgAnswerRemindSet)
	return nil
}

// NotInterested marks the question as declined.
func (s *Service) NotInterested(ctx context.Context, conv *state.Context, ev *router.Event) error {
	if ev.Payload == nil {
		return entity.ErrMissingField
	}
	s.consumeRelated(ev.Payload)

	taskID, ok := ev.Payload.String(payloadKeyTaskID)
	if !ok {
		return entity.ErrMissingField
	}
	delete(conv.PendingAnswers, taskID)

	return s.submitSimpleTransaction(ctx, conv, taskID,
		entity.TransactionLabelNotInterested, msgNotInterestedAck)
}

// ReportQuestion reports the question as inappropriate.
func (s *Service) ReportQuestion(ctx context.Context, conv *state.Context, ev *router.Event) error {
	if ev.Payload == nil {
		return entity.ErrMissingField
	}
	s.consumeRelated(ev.Payload)

	taskID, ok := ev.Payload.String(payloadKeyTaskID)
	if !ok {
		return entity.ErrMissingField
	}
	delete(conv.PendingAnswers, taskID)

	return s.submitSimpleTransaction(ctx, conv, taskID,
		entity.TransactionLabelReport, msgReportAck)
}

func (s *Service) submitSimpleTransaction(ctx context.Context, conv *state.Context, taskID, label, ackKey string) error {
	transaction := &entity.Transaction{
		TaskID:     taskID,
		ActioneeID: conv.UserID,
		Label:      label,
	}

	err := s.withAuth(ctx, conv, func(token string) error {
		return s.api.CreateTaskTransaction(ctx, token, transaction)
	})
	if err != nil {
		if isRecoverableAPIError(err) {
			ctxzap.Warn(ctx, "transaction rejected",
				zap.Error(err),
				zap.String("label", label),
				zap.String("task_id", taskID),
			)
			s.reply(ctx, conv.Recipient, s.locale(conv), msgAnswerFailed)
			return nil
		}
		return err
	}

	s.reply(ctx, conv.Recipient, s.locale(conv), ackKey)
	return nil
}

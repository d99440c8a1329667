package handlers

import (
	"context"

	"github.com/InternetOfUs/app-telegram-bot-sub000/internal/chatbot/message"
	"github.com/InternetOfUs/app-telegram-bot-sub000/internal/chatbot/state"
	"github.com/google/uuid"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// HandleAnsweredQuestion tells an asker that somebody answered their
// question. Busy users get it queued, same as new-question notifications.
func (s *Service) HandleAnsweredQuestion(ctx context.Context, userID, taskID, answer string) error {
	s.states.Lock(userID)
	defer s.states.Unlock(userID)

	conv, err := s.states.Get(ctx, userID)
	if err != nil {
		return err
	}

	text := s.translator.Translatef(s.locale(conv), msgAnswerReceived,
		map[string]string{"answer": answer})
	resp := message.TextualResponse{Text: text}

	if conv.State.IsBusy() {
		conv.PutPendingWenetMessage(&state.PendingWenetMessage{
			ID:        taskID,
			Responses: message.Responses{resp},
			Recipient: conv.Recipient,
		})
		ctxzap.Info(ctx, "recipient busy, answered notification queued",
			zap.String("user_id", userID),
			zap.String("task_id", taskID),
		)
		return s.states.Save(ctx, conv)
	}

	s.send(ctx, conv.Recipient, resp)
	return s.states.Save(ctx, conv)
}

// HandleTextualMessage relays a free-form platform message to the user.
func (s *Service) HandleTextualMessage(ctx context.Context, userID, text string) error {
	s.states.Lock(userID)
	defer s.states.Unlock(userID)

	conv, err := s.states.Get(ctx, userID)
	if err != nil {
		return err
	}

	resp := message.TextualResponse{Text: text}

	if conv.State.IsBusy() {
		conv.PutPendingWenetMessage(&state.PendingWenetMessage{
			ID:        uuid.NewString(),
			Responses: message.Responses{resp},
			Recipient: conv.Recipient,
		})
		return s.states.Save(ctx, conv)
	}

	s.send(ctx, conv.Recipient, resp)
	return nil
}

// Package api exposes the HTTP surface the WeNet platform calls back on.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/InternetOfUs/app-telegram-bot-sub000/internal/chatbot/handlers"
	"github.com/InternetOfUs/app-telegram-bot-sub000/internal/pkg/response"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// Message labels the platform delivers to the callback endpoint.
const (
	labelQuestionToAnswer = "QuestionToAnswerMessage"
	labelAnsweredQuestion = "AnsweredQuestionMessage"
	labelTextualMessage   = "TextualMessage"
)

// platformMessage is the WeNet callback envelope. Everything label-specific
// lives in Attributes.
type platformMessage struct {
	AppID      string         `json:"appId"`
	ReceiverID string         `json:"receiverId"`
	Label      string         `json:"label"`
	Attributes map[string]any `json:"attributes"`
}

func (m *platformMessage) attrString(key string) string {
	v, _ := m.Attributes[key].(string)
	return v
}

func (m *platformMessage) attrBool(key string) bool {
	v, _ := m.Attributes[key].(bool)
	return v
}

// MessagesHandler receives platform callbacks and feeds them to the
// dialogue service.
type MessagesHandler struct {
	service *handlers.Service
}

// NewMessagesHandler creates the callback handler.
func NewMessagesHandler(service *handlers.Service) *MessagesHandler {
	return &MessagesHandler{service: service}
}

// Receive handles POST /messages.
func (h *MessagesHandler) Receive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var msg platformMessage
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		ctxzap.Warn(ctx, "malformed platform message", zap.Error(err))
		response.Error(w, http.StatusBadRequest, "invalid message body")
		return
	}
	if msg.ReceiverID == "" {
		response.Error(w, http.StatusBadRequest, "receiverId is required")
		return
	}

	var err error
	switch msg.Label {
	case labelQuestionToAnswer:
		err = h.service.HandleQuestionNotification(ctx, &handlers.QuestionNotification{
			TaskID:    msg.attrString("taskId"),
			Question:  msg.attrString("question"),
			UserID:    msg.ReceiverID,
			Sensitive: msg.attrBool("sensitive"),
			Nearby:    msg.attrString("positionOfAnswerer") == "nearby",
		})

	case labelAnsweredQuestion:
		err = h.service.HandleAnsweredQuestion(ctx, msg.ReceiverID,
			msg.attrString("taskId"), msg.attrString("answer"))

	case labelTextualMessage:
		err = h.service.HandleTextualMessage(ctx, msg.ReceiverID,
			msg.attrString("text"))

	default:
		ctxzap.Warn(ctx, "unknown platform message label",
			zap.String("label", msg.Label),
			zap.String("receiver_id", msg.ReceiverID),
		)
		response.Error(w, http.StatusBadRequest, "unknown message label")
		return
	}

	if err != nil {
		ctxzap.Error(ctx, "failed to process platform message",
			zap.Error(err),
			zap.String("label", msg.Label),
			zap.String("receiver_id", msg.ReceiverID),
		)
		response.Error(w, http.StatusInternalServerError, "failed to process message")
		return
	}

	response.NoContent(w)
}

// Package telegram is the transport: it turns platform-neutral responses
// into Telegram API calls and incoming updates into routed events.
package telegram

import (
	"context"
	"fmt"

	"github.com/InternetOfUs/app-telegram-bot-sub000/internal/chatbot/message"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sender delivers responses over the Telegram Bot API.
type Sender struct {
	api *tgbotapi.BotAPI
}

// NewSender wraps an authorized bot API client.
func NewSender(api *tgbotapi.BotAPI) *Sender {
	return &Sender{api: api}
}

// Send delivers the responses in order. The first failure aborts the batch
// so the conversation never sees a later message without an earlier one.
func (s *Sender) Send(ctx context.Context, to message.Recipient, responses []message.Response) error {
	for _, resp := range responses {
		if err := ctx.Err(); err != nil {
			return err
		}

		chattable, err := s.render(to.ChatID, resp)
		if err != nil {
			return err
		}
		if _, err := s.api.Send(chattable); err != nil {
			return fmt.Errorf("telegram send: %w", err)
		}
	}
	return nil
}

func (s *Sender) render(chatID int64, resp message.Response) (tgbotapi.Chattable, error) {
	switch r := resp.(type) {
	case message.TextualResponse:
		return tgbotapi.NewMessage(chatID, r.Text), nil

	case message.MultiChoiceResponse:
		msg := tgbotapi.NewMessage(chatID, r.Text)
		msg.ReplyMarkup = buildKeyboard(r)
		return msg, nil

	case message.UrlImageResponse:
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(r.URL))
		photo.Caption = r.Caption
		return photo, nil

	default:
		return nil, fmt.Errorf("telegram send: unsupported response type %T", resp)
	}
}

// buildKeyboard lays the options out RowSize per row; the callback data of
// each button is its payload cache key.
func buildKeyboard(r message.MultiChoiceResponse) tgbotapi.InlineKeyboardMarkup {
	rowSize := r.RowSize
	if rowSize <= 0 {
		rowSize = 1
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for _, opt := range r.Options {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(opt.Label, opt.Key))
		if len(row) == rowSize {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}

	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

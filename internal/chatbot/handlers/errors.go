package handlers

import (
	"errors"

	"github.com/InternetOfUs/app-telegram-bot-sub000/internal/entity"
	"github.com/InternetOfUs/app-telegram-bot-sub000/internal/wenet"
)

// isRecoverableAPIError reports whether a service-API failure is handled
// inside the handler with an apology, as opposed to auth expiry (boundary)
// or a programming error (boundary, error log).
func isRecoverableAPIError(err error) bool {
	var creation *wenet.CreationError
	if errors.As(err, &creation) {
		return true
	}
	return errors.Is(err, entity.ErrTaskNotFound)
}

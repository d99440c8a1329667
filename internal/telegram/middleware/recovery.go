package middleware

import (
	"runtime/debug"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// RecoveryMiddleware keeps a panicking handler from killing the polling
// loop. The update is lost; the loop lives.
type RecoveryMiddleware struct {
	logger *zap.Logger
}

// NewRecoveryMiddleware creates the recovery middleware.
func NewRecoveryMiddleware(logger *zap.Logger) *RecoveryMiddleware {
	return &RecoveryMiddleware{logger: logger}
}

// Handle runs next and swallows any panic with a stack trace log.
func (m *RecoveryMiddleware) Handle(update tgbotapi.Update, next func(tgbotapi.Update)) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("panic while processing update",
				zap.Any("panic", r),
				zap.Int("update_id", update.UpdateID),
				zap.ByteString("stack", debug.Stack()),
			)
		}
	}()

	next(update)
}

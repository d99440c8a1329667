package api

import (
	"net/http"
	"time"

	"github.com/InternetOfUs/app-telegram-bot-sub000/internal/api/middleware"
	"github.com/InternetOfUs/app-telegram-bot-sub000/internal/pkg/response"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// SetupRouter creates and configures the HTTP router.
func SetupRouter(messagesHandler *MessagesHandler, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(chimiddleware.Timeout(60 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})

	r.Post("/messages", messagesHandler.Receive)

	return r
}

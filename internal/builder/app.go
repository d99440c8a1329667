package builder

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/InternetOfUs/app-telegram-bot-sub000/internal/job"
	"github.com/InternetOfUs/app-telegram-bot-sub000/internal/telegram"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// App bundles the long-running components: the callback server, the
// Telegram bot and the reconciliation job.
type App struct {
	server      *http.Server
	bot         *telegram.Bot
	job         *job.PendingMessagesJob
	jobInterval time.Duration
	db          *pgxpool.Pool
	logger      *zap.Logger
}

// Run starts every component and blocks until a shutdown signal or a fatal
// server error.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := a.bot.Start(ctx); err != nil {
		return err
	}

	// The job logs through the context; without the logger attached its
	// output would vanish into ctxzap's no-op fallback.
	go a.job.Run(ctxzap.ToContext(ctx, a.logger), a.jobInterval)

	errChan := make(chan error, 1)
	go func() {
		a.logger.Info("starting HTTP server", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		a.logger.Error("server error", zap.Error(err))
		cancel()
		a.shutdown()
		return err
	case sig := <-sigChan:
		a.logger.Info("received shutdown signal", zap.String("signal", sig.String()))
	}

	cancel()
	return a.shutdown()
}

func (a *App) shutdown() error {
	ctx, cancelTimeout := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelTimeout()

	a.logger.Info("shutting down gracefully")

	if err := a.bot.Stop(); err != nil {
		a.logger.Error("telegram bot shutdown error", zap.Error(err))
	}

	if err := a.server.Shutdown(ctx); err != nil {
		a.logger.Error("server shutdown error", zap.Error(err))
		return err
	}

	a.logger.Info("closing database connections")
	if a.db != nil {
		a.db.Close()
	}

	a.logger.Info("application stopped gracefully")
	return nil
}

// Package job holds the periodic reconciliation work that runs next to the
// live dialogue: delivering deferred reminders and queued notifications.
package job

import (
	"context"
	"time"

	"github.com/InternetOfUs/app-telegram-bot-sub000/internal/chatbot/message"
	"github.com/InternetOfUs/app-telegram-bot-sub000/internal/chatbot/state"
	pkgLogger "github.com/InternetOfUs/app-telegram-bot-sub000/internal/pkg/logger"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// PendingMessagesJob scans every conversation context and pushes out items
// whose wait time has elapsed. It shares the per-user locks with live
// handling, so a reminder never races a message the user is sending.
type PendingMessagesJob struct {
	states *state.Manager
	sender message.Sender

	// window is how long after a defer click a reminder becomes due.
	window time.Duration

	now func() time.Time
}

// NewPendingMessagesJob creates the job with the given reminder window.
func NewPendingMessagesJob(states *state.Manager, sender message.Sender, window time.Duration) *PendingMessagesJob {
	return &PendingMessagesJob{
		states: states,
		sender: sender,
		window: window,
		now:    time.Now,
	}
}

// Execute performs one reconciliation pass. One broken context or pending
// record is skipped, never aborting the whole scan.
func (j *PendingMessagesJob) Execute(ctx context.Context) {
	ctx = pkgLogger.WithAction(ctx, "reconciliation")

	contexts, err := j.states.List(ctx)
	if err != nil {
		ctxzap.Error(ctx, "reconciliation: failed to list contexts", zap.Error(err))
		return
	}

	var delivered, skipped int
	for _, conv := range contexts {
		d, s := j.reconcileUser(ctx, conv.UserID)
		delivered += d
		skipped += s
	}

	ctxzap.Info(ctx, "reconciliation pass finished",
		zap.Int("contexts", len(contexts)),
		zap.Int("delivered", delivered),
		zap.Int("skipped", skipped),
	)
}

// reconcileUser re-reads one user's context under their lock and delivers
// whatever is due. Returns delivered and skipped counts.
func (j *PendingMessagesJob) reconcileUser(ctx context.Context, userID string) (delivered, skipped int) {
	j.states.Lock(userID)
	defer j.states.Unlock(userID)

	// Re-read under the lock: the listed snapshot may be stale by now.
	conv, err := j.states.Get(ctx, userID)
	if err != nil {
		ctxzap.Warn(ctx, "reconciliation: skipping unreadable context",
			zap.Error(err),
			zap.String("user_id", userID),
		)
		return 0, 1
	}

	// A busy user gets nothing: no delivery, no context write.
	if conv.State.IsBusy() {
		return 0, 0
	}

	changed := false

	for id, pending := range conv.PendingWenetMessages {
		if pending == nil || len(pending.Responses) == 0 {
			ctxzap.Warn(ctx, "reconciliation: dropping malformed pending message",
				zap.String("user_id", userID),
				zap.String("id", id),
			)
			delete(conv.PendingWenetMessages, id)
			changed = true
			skipped++
			continue
		}

		if err := j.sender.Send(ctx, pending.Recipient, pending.Responses); err != nil {
			ctxzap.Error(ctx, "reconciliation: failed to deliver pending message",
				zap.Error(err),
				zap.String("user_id", userID),
				zap.String("id", id),
			)
			continue
		}
		delete(conv.PendingWenetMessages, id)
		changed = true
		delivered++
	}

	now := j.now()
	for id, pending := range conv.PendingAnswers {
		if pending == nil || pending.Response == nil {
			ctxzap.Warn(ctx, "reconciliation: dropping malformed pending answer",
				zap.String("user_id", userID),
				zap.String("question_id", id),
			)
			delete(conv.PendingAnswers, id)
			changed = true
			skipped++
			continue
		}

		if !pending.IsDue(now, j.window) {
			continue
		}

		if err := j.sender.Send(ctx, pending.Recipient, []message.Response{pending.Response}); err != nil {
			ctxzap.Error(ctx, "reconciliation: failed to redeliver reminder",
				zap.Error(err),
				zap.String("user_id", userID),
				zap.String("question_id", id),
			)
			continue
		}

		// Clear the timestamp: the item waits for the next defer click
		// instead of being re-sent every pass.
		pending.Sent = nil
		changed = true
		delivered++
	}

	if changed {
		if err := j.states.Save(ctx, conv); err != nil {
			ctxzap.Error(ctx, "reconciliation: failed to persist context",
				zap.Error(err),
				zap.String("user_id", userID),
			)
		}
	}
	return delivered, skipped
}

// Run executes the job on a fixed interval until the context is cancelled.
func (j *PendingMessagesJob) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.Execute(ctx)
		}
	}
}

package middleware

import (
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

func messageUpdate(userID int64) tgbotapi.Update {
	return tgbotapi.Update{
		UpdateID: 1,
		Message: &tgbotapi.Message{
			From: &tgbotapi.User{ID: userID},
			Chat: &tgbotapi.Chat{ID: userID},
		},
	}
}

func TestBurstBoundsInitialBudget(t *testing.T) {
	rl := NewRateLimiterMiddleware(30, 5, zap.NewNop())

	for i := 0; i < 5; i++ {
		if !rl.allowRequest(1) {
			t.Fatalf("request %d within the burst must be allowed", i+1)
		}
	}
	if rl.allowRequest(1) {
		t.Fatal("request beyond the burst must be dropped")
	}
}

func TestRefillRestoresBudget(t *testing.T) {
	rl := NewRateLimiterMiddleware(30, 2, zap.NewNop())

	rl.allowRequest(1)
	rl.allowRequest(1)
	if rl.allowRequest(1) {
		t.Fatal("drained bucket must deny")
	}

	// At 30/min the bucket regains one token every two seconds; rewind the
	// refill clock instead of sleeping.
	rl.mu.Lock()
	limit := rl.limits[1]
	rl.mu.Unlock()
	limit.mu.Lock()
	limit.lastRefill = time.Now().Add(-3 * time.Second)
	limit.mu.Unlock()

	if !rl.allowRequest(1) {
		t.Fatal("bucket must refill with elapsed time")
	}
	if rl.allowRequest(1) {
		t.Fatal("refill must not exceed the elapsed budget")
	}
}

func TestNonPositiveBurstFallsBackToRate(t *testing.T) {
	rl := NewRateLimiterMiddleware(3, 0, zap.NewNop())

	for i := 0; i < 3; i++ {
		if !rl.allowRequest(1) {
			t.Fatalf("request %d within the per-minute budget must be allowed", i+1)
		}
	}
	if rl.allowRequest(1) {
		t.Fatal("request beyond the per-minute budget must be dropped")
	}
}

func TestHandleDropsOverLimitUpdates(t *testing.T) {
	rl := NewRateLimiterMiddleware(30, 1, zap.NewNop())

	calls := 0
	next := func(tgbotapi.Update) { calls++ }

	rl.Handle(messageUpdate(1), next)
	rl.Handle(messageUpdate(1), next)

	if calls != 1 {
		t.Fatalf("next called %d times, want the first update only", calls)
	}

	// Other users keep their own bucket.
	rl.Handle(messageUpdate(2), next)
	if calls != 2 {
		t.Fatalf("next called %d times, want a separate budget per user", calls)
	}
}

func TestHandlePassesUpdatesWithoutUser(t *testing.T) {
	rl := NewRateLimiterMiddleware(30, 1, zap.NewNop())

	calls := 0
	for i := 0; i < 3; i++ {
		rl.Handle(tgbotapi.Update{UpdateID: i}, func(tgbotapi.Update) { calls++ })
	}
	if calls != 3 {
		t.Fatalf("next called %d times, updates without a user are not limited", calls)
	}
}

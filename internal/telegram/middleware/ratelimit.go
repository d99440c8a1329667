package middleware

import (
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// userLimit tracks token-bucket state for a single user.
type userLimit struct {
	tokens     float64
	lastRefill time.Time
	mu         sync.Mutex
}

// RateLimiterMiddleware implements per-user token bucket rate limiting.
// Updates over the limit are dropped silently; the user's next allowed
// message behaves normally.
type RateLimiterMiddleware struct {
	limits     map[int64]*userLimit
	mu         sync.RWMutex
	maxTokens  float64 // bucket capacity, the burst size
	refillRate float64 // tokens per second
	logger     *zap.Logger
}

// NewRateLimiterMiddleware creates a limiter allowing bursts of burstSize
// updates and a sustained rate of requestsPerMinute. A non-positive burst
// falls back to the per-minute budget as the capacity.
func NewRateLimiterMiddleware(requestsPerMinute, burstSize int, logger *zap.Logger) *RateLimiterMiddleware {
	if burstSize <= 0 {
		burstSize = requestsPerMinute
	}

	rl := &RateLimiterMiddleware{
		limits:     make(map[int64]*userLimit),
		maxTokens:  float64(burstSize),
		refillRate: float64(requestsPerMinute) / 60.0,
		logger:     logger,
	}

	go rl.cleanupInactiveUsers()

	return rl
}

// Handle passes the update on if the user still has budget.
func (rl *RateLimiterMiddleware) Handle(update tgbotapi.Update, next func(tgbotapi.Update)) {
	var userID int64

	switch {
	case update.Message != nil:
		userID = update.Message.From.ID
	case update.CallbackQuery != nil:
		userID = update.CallbackQuery.From.ID
	default:
		next(update)
		return
	}

	if !rl.allowRequest(userID) {
		rl.logger.Warn("rate limit exceeded, dropping update",
			zap.Int64("user_id", userID),
			zap.Int("update_id", update.UpdateID),
		)
		return
	}

	next(update)
}

func (rl *RateLimiterMiddleware) allowRequest(userID int64) bool {
	rl.mu.Lock()
	limit, exists := rl.limits[userID]
	if !exists {
		limit = &userLimit{
			tokens:     rl.maxTokens,
			lastRefill: time.Now(),
		}
		rl.limits[userID] = limit
	}
	rl.mu.Unlock()

	limit.mu.Lock()
	defer limit.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(limit.lastRefill).Seconds()
	limit.tokens += elapsed * rl.refillRate
	if limit.tokens > rl.maxTokens {
		limit.tokens = rl.maxTokens
	}
	limit.lastRefill = now

	if limit.tokens >= 1.0 {
		limit.tokens -= 1.0
		return true
	}
	return false
}

// cleanupInactiveUsers removes buckets idle for over an hour.
func (rl *RateLimiterMiddleware) cleanupInactiveUsers() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		rl.mu.Lock()
		now := time.Now()
		for userID, limit := range rl.limits {
			limit.mu.Lock()
			if now.Sub(limit.lastRefill) > time.Hour {
				delete(rl.limits, userID)
			}
			limit.mu.Unlock()
		}
		rl.mu.Unlock()
	}
}

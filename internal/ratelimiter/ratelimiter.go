package ratelimiter

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// RateLimiter spaces out consecutive sends to the same chat. It never drops
// or retries anything, it only delays.
type RateLimiter struct {
	lastSent map[string]time.Time
	mu       sync.Mutex
	now      func() time.Time
	log      *slog.Logger
}

func New(log *slog.Logger) *RateLimiter {
	return &RateLimiter{
		lastSent: make(map[string]time.Time),
		now:      time.Now,
		log:      log,
	}
}

// Wait blocks until a message may be sent to chatID and reserves that slot.
// A cancelled wait gives the slot back.
func (rl *RateLimiter) Wait(ctx context.Context, chatID string) error {
	slot, prev, delay := rl.reserve(chatID)
	if delay <= 0 {
		return nil
	}

	rl.log.DebugContext(ctx, "Rate limiting message",
		"chatID", chatID,
		"delay", delay)

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		rl.release(chatID, slot, prev)
		return ctx.Err()
	}
}

func (rl *RateLimiter) reserve(chatID string) (slot, prev time.Time, delay time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()

	prev, ok := rl.lastSent[chatID]
	if ok {
		delay = getDelay(chatID, prev, now)
	}

	slot = now.Add(delay)
	rl.lastSent[chatID] = slot

	return slot, prev, delay
}

// release undoes a reservation unless a later one has already been queued
// behind it.
func (rl *RateLimiter) release(chatID string, slot, prev time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if current, ok := rl.lastSent[chatID]; !ok || !current.Equal(slot) {
		return
	}

	if prev.IsZero() {
		delete(rl.lastSent, chatID)
		return
	}

	rl.lastSent[chatID] = prev
}

func getDelay(
	chatID string,
	lastSent time.Time,
	now time.Time,
) time.Duration {
	elapsed := now.Sub(lastSent)
	rate := getRate(chatID)

	return max(rate-elapsed, 0)
}

// Groups and channels have negative ids or are addressed by @username.
func getRate(chatID string) time.Duration {
	chatID = strings.TrimSpace(chatID)
	if strings.HasPrefix(chatID, "-") || strings.HasPrefix(chatID, "@") {
		return groupChatRate
	}
	return privateChatRate
}

// Package ratelimit provides per-user admission control for AI requests.
package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/juju/clock"
	"github.com/juju/loggo/v2"
)

var logger = loggo.GetLogger("lingua.ratelimit")

// Window is the fixed interval after which a user's count resets.
const Window = 60 * time.Second

// ErrRateLimitExceeded is returned when a user has used up the window's budget.
var ErrRateLimitExceeded = errors.New("rate limit exceeded")

// Limiter decides whether a user may issue another AI request.
type Limiter interface {
	Allow(ctx context.Context, userID int64) error
}

type window struct {
	count   int
	resetAt time.Time
}

// MemoryLimiter keeps counters in process memory. With several server
// instances each one enforces the limit independently; use RedisLimiter
// for a global limit.
type MemoryLimiter struct {
	mu                sync.Mutex
	clock             clock.Clock
	requestsPerMinute int
	windows           map[int64]*window
}

// NewMemoryLimiter creates a limiter admitting requestsPerMinute requests
// per user per window.
func NewMemoryLimiter(requestsPerMinute int, clk clock.Clock) *MemoryLimiter {
	if clk == nil {
		clk = clock.WallClock
	}
	return &MemoryLimiter{
		clock:             clk,
		requestsPerMinute: requestsPerMinute,
		windows:           make(map[int64]*window),
	}
}

func (l *MemoryLimiter) Allow(ctx context.Context, userID int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	w, ok := l.windows[userID]
	if !ok || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(Window)}
		l.windows[userID] = w
	}
	if w.count >= l.requestsPerMinute {
		logger.Warningf("🚫 rate limit exceeded for user %d (%d/%d)", userID, w.count, l.requestsPerMinute)
		return ErrRateLimitExceeded
	}
	w.count++
	return nil
}

// Prune drops windows that have already expired.
func (l *MemoryLimiter) Prune() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	for userID, w := range l.windows {
		if !now.Before(w.resetAt) {
			delete(l.windows, userID)
		}
	}
}

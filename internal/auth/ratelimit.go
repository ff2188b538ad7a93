package auth

import (
	"slices"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// maxLimitedKeys bounds how many keys a RateLimiter tracks at once.
const maxLimitedKeys = 10000

// Decision is the outcome of one RateLimiter attempt.
type Decision struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// RateLimiter keeps a sliding log of attempt times per key. The caller
// supplies the clock reading on every call. Keys idle for a whole window
// are dropped.
type RateLimiter struct {
	mu     sync.Mutex
	window time.Duration
	logs   *expirable.LRU[string, []time.Time]
}

// NewRateLimiter returns an empty limiter with the given sliding window.
func NewRateLimiter(window time.Duration) *RateLimiter {
	if window <= 0 {
		window = defaultLoginWindow
	}
	return &RateLimiter{
		window: window,
		logs:   expirable.NewLRU[string, []time.Time](maxLimitedKeys, nil, window),
	}
}

// Window reports the sliding window length.
func (l *RateLimiter) Window() time.Duration { return l.window }

// Attempt records an attempt for key at now unless max attempts already
// fall inside the window ending at now. A max below one denies every attempt.
func (l *RateLimiter) Attempt(key string, max int, now time.Time) Decision {
	if max <= 0 {
		return Decision{Allowed: false, ResetAt: now.Add(l.window)}
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	kept := l.live(key, now)
	if len(kept) >= max {
		return Decision{Allowed: false, Remaining: 0, ResetAt: kept[0].Add(l.window)}
	}
	kept = append(kept, now)
	l.logs.Add(key, kept)
	return Decision{Allowed: true, Remaining: max - len(kept), ResetAt: kept[0].Add(l.window)}
}

// Clear forgets every attempt recorded for key.
func (l *RateLimiter) Clear(key string) {
	l.logs.Remove(key)
}

// History returns the attempts for key still inside the window at now,
// oldest first.
func (l *RateLimiter) History(key string, now time.Time) []time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]time.Time(nil), l.live(key, now)...)
}

// Restore replaces the log for key, e.g. with attempts saved by an earlier
// process. Attempts outside the window ending at now are dropped.
func (l *RateLimiter) Restore(key string, attempts []time.Time, now time.Time) {
	cutoff := now.Add(-l.window)
	kept := make([]time.Time, 0, len(attempts))
	for _, at := range attempts {
		if at.After(cutoff) && !at.After(now) {
			kept = append(kept, at)
		}
	}
	slices.SortFunc(kept, time.Time.Compare)
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(kept) == 0 {
		l.logs.Remove(key)
		return
	}
	l.logs.Add(key, kept)
}

// Len reports how many keys are tracked.
func (l *RateLimiter) Len() int { return l.logs.Len() }

func (l *RateLimiter) live(key string, now time.Time) []time.Time {
	cutoff := now.Add(-l.window)
	log, _ := l.logs.Peek(key)
	kept := make([]time.Time, 0, len(log)+1)
	for _, at := range log {
		if at.After(cutoff) {
			kept = append(kept, at)
		}
	}
	return kept
}

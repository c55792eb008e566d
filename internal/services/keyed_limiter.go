package services

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// KeyedLimiter holds one token bucket per key, refilled at limit tokens per
// period. Buckets idle for longer than the idle TTL are dropped by Cleanup.
type KeyedLimiter struct {
	mu      sync.Mutex
	entries map[string]*limiterEntry
	limit   rate.Limit
	burst   int
	idleTTL time.Duration
}

// NewKeyedLimiter allows limit events per period for each key. A burst below
// one defaults to limit.
func NewKeyedLimiter(limit int, period time.Duration, burst int) *KeyedLimiter {
	if burst < 1 {
		burst = limit
	}

	idleTTL := 3 * period
	if idleTTL < time.Minute {
		idleTTL = time.Minute
	}

	return &KeyedLimiter{
		entries: make(map[string]*limiterEntry),
		limit:   rate.Every(period / time.Duration(limit)),
		burst:   burst,
		idleTTL: idleTTL,
	}
}

func (l *KeyedLimiter) Allow(key string) bool {
	return l.get(key).Allow()
}

// RetryAfter is how long until the key's bucket will next admit an event.
// It does not consume a token.
func (l *KeyedLimiter) RetryAfter(key string) time.Duration {
	limiter := l.get(key)

	tokens := limiter.Tokens()
	if tokens >= 1 {
		return 0
	}
	return time.Duration((1 - tokens) / float64(limiter.Limit()) * float64(time.Second))
}

func (l *KeyedLimiter) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, exists := l.entries[key]
	if !exists {
		entry = &limiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.entries[key] = entry
	}
	entry.lastSeen = time.Now()
	return entry.limiter
}

// Cleanup drops buckets not used since the idle TTL and returns how many
// were removed.
func (l *KeyedLimiter) Cleanup(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, entry := range l.entries {
		if now.Sub(entry.lastSeen) > l.idleTTL {
			delete(l.entries, key)
			removed++
		}
	}
	return removed
}

// Run calls Cleanup every minute until ctx is done.
func (l *KeyedLimiter) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			l.Cleanup(now)
		}
	}
}

func (l *KeyedLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

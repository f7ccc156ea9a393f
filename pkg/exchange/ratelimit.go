package exchange

import (
	"log"
	"strconv"
	"sync"
	"time"
)

const (
	weightWarnPct  = 80
	weightDelayPct = 90
)

// RateLimiter mirrors the request-weight budget the venue reports in its
// response headers. The venue is authoritative; this only decides when the
// client should back off before the server starts rejecting.
type RateLimiter struct {
	mu     sync.Mutex
	used   int
	limit  int
	window time.Duration
	seenAt time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{limit: limit, window: window}
}

// UpdateFromHeader records the used weight reported by the last response.
func (rl *RateLimiter) UpdateFromHeader(value string) {
	if value == "" {
		return
	}
	used, err := strconv.Atoi(value)
	if err != nil {
		return
	}

	rl.mu.Lock()
	rl.used = used
	rl.seenAt = time.Now()
	limit := rl.limit
	rl.mu.Unlock()

	if pct := 100 * float64(used) / float64(limit); pct >= weightWarnPct {
		log.Printf("exchange: weight %d/%d (%.1f%%)", used, limit, pct)
	}
}

// Usage returns the last reported weight. A reading older than the window
// has rolled over on the server side and counts as zero.
func (rl *RateLimiter) Usage() (used, limit int, pct float64) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if rl.seenAt.IsZero() || time.Since(rl.seenAt) >= rl.window {
		return 0, rl.limit, 0
	}
	return rl.used, rl.limit, 100 * float64(rl.used) / float64(rl.limit)
}

// ShouldDelay reports whether the next request should wait for the window
// to roll over.
func (rl *RateLimiter) ShouldDelay() bool {
	_, _, pct := rl.Usage()
	return pct >= weightDelayPct
}

package coach

import (
	"log/slog"
	"sync"
	"time"
)

// Breaker defaults, tuned for a decorative feature: trip fast, retry soon.
const (
	breakerMaxFailures = 3
	breakerResetAfter  = time.Minute
)

// breaker gates provider calls so a failing upstream does not add its timeout
// to every session completion. After maxFailures consecutive failures the
// breaker opens and calls are skipped until resetAfter elapses; the next call
// is then a probe that closes the breaker on success or re-opens it on
// failure.
type breaker struct {
	maxFailures int
	resetAfter  time.Duration
	now         func() time.Time

	mu        sync.Mutex
	failures  int
	openUntil time.Time
}

func newBreaker(maxFailures int, resetAfter time.Duration) *breaker {
	return &breaker{
		maxFailures: maxFailures,
		resetAfter:  resetAfter,
		now:         time.Now,
	}
}

// allow reports whether a provider call may proceed.
func (b *breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.openUntil.IsZero() || !b.now().Before(b.openUntil)
}

// success closes the breaker and clears the failure count.
func (b *breaker) success() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.openUntil = time.Time{}
}

// failure records a failed call, opening the breaker once the threshold is
// reached. A failed probe while open re-arms the full reset window.
func (b *breaker) failure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures++
	if b.failures >= b.maxFailures {
		b.openUntil = b.now().Add(b.resetAfter)
		slog.Warn("coach provider circuit opened",
			"consecutive_failures", b.failures,
			"retry_at", b.openUntil.Format(time.RFC3339),
		)
	}
}

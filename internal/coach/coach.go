// Package coach produces a one-line spoken-style commentary on a completed
// practice session. Commentary is decorative: when the configured provider is
// missing or failing, a deterministic fallback line is used and the session
// completes normally either way.
package coach

import (
	"context"
	"log/slog"
	"time"

	"github.com/spinhq/cadence/pkg/scoring"
)

// Provider generates commentary from a session's analysis result.
//
// Implementations must be safe for concurrent use and must honour ctx
// cancellation.
type Provider interface {
	Comment(ctx context.Context, result scoring.Result, durationSeconds int) (string, error)
}

// commentTimeout bounds a single provider call. A slow provider must not
// delay session completion noticeably.
const commentTimeout = 10 * time.Second

// Commentator wraps an optional [Provider] with the [Static] fallback. A
// circuit breaker skips the provider after repeated failures so a dead
// upstream does not add [commentTimeout] to every session completion.
type Commentator struct {
	provider Provider
	fallback Static
	breaker  *breaker
	log      *slog.Logger
}

// NewCommentator returns a Commentator backed by provider. A nil provider is
// valid and means fallback-only operation.
func NewCommentator(provider Provider, log *slog.Logger) *Commentator {
	if log == nil {
		log = slog.Default()
	}
	return &Commentator{
		provider: provider,
		breaker:  newBreaker(breakerMaxFailures, breakerResetAfter),
		log:      log,
	}
}

// Comment returns a commentary line for the session. It never returns an
// error: provider failures are logged and answered from the fallback table.
func (c *Commentator) Comment(ctx context.Context, result scoring.Result, durationSeconds int) string {
	if c.provider == nil || !c.breaker.allow() {
		line, _ := c.fallback.Comment(ctx, result, durationSeconds)
		return line
	}

	ctx, cancel := context.WithTimeout(ctx, commentTimeout)
	defer cancel()

	line, err := c.provider.Comment(ctx, result, durationSeconds)
	if err != nil || line == "" {
		c.breaker.failure()
		c.log.Warn("coach provider failed, using fallback", "error", err)
		line, _ = c.fallback.Comment(ctx, result, durationSeconds)
		return line
	}
	c.breaker.success()
	return line
}

// Package storage defines the two durable repositories behind the progression
// engine: the singleton progress record and the append-only history. The
// interfaces are narrow load/save contracts so the engine stays fully
// unit-testable without a real backend.
//
// Implementations: postgres (production) and memstore (tests, and the
// in-memory-only fallback when no database is configured).
package storage

import (
	"context"
	"errors"

	"github.com/spinhq/cadence/internal/progression"
	"github.com/spinhq/cadence/internal/scene"
)

// ErrNotFound is returned by load operations when nothing has been persisted
// yet (a fresh user).
var ErrNotFound = errors.New("storage: not found")

// ProgressStore persists the user profile and the singleton progress record.
// Implementations must be safe for concurrent use.
type ProgressStore interface {
	// LoadProgress returns the persisted profile and progress, or
	// [ErrNotFound] when none exists yet.
	LoadProgress(ctx context.Context) (progression.Profile, progression.Progress, error)

	// SaveProgress writes the profile and progress, replacing any previous
	// record.
	SaveProgress(ctx context.Context, profile progression.Profile, progress progression.Progress) error
}

// HistoryStore persists the append-only session and crystal logs, the
// per-scene play statistics, and the used-technique ids.
// Implementations must be safe for concurrent use.
type HistoryStore interface {
	// AppendSession appends one completed session to the log.
	AppendSession(ctx context.Context, s progression.Session) error

	// AppendCrystal appends one earned crystal to the log.
	AppendCrystal(ctx context.Context, c progression.Crystal) error

	// LoadSessions returns the session log, oldest first.
	LoadSessions(ctx context.Context) ([]progression.Session, error)

	// LoadCrystals returns the crystal log, oldest first.
	LoadCrystals(ctx context.Context) ([]progression.Crystal, error)

	// SaveSceneStats replaces the persisted per-scene counters.
	SaveSceneStats(ctx context.Context, stats map[string]scene.Stats) error

	// LoadSceneStats returns the persisted per-scene counters. An empty map
	// (not ErrNotFound) when nothing has been recorded.
	LoadSceneStats(ctx context.Context) (map[string]scene.Stats, error)

	// MarkTechniqueUsed records a technique id; repeats are no-ops.
	MarkTechniqueUsed(ctx context.Context, id string) error

	// LoadTechniquesUsed returns the recorded technique ids.
	LoadTechniquesUsed(ctx context.Context) ([]string, error)
}

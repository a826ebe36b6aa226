// Package memstore provides thread-safe, in-memory implementations of the
// storage repositories. It backs unit tests and the in-memory-only fallback
// when no database is configured. State then lives for the process lifetime
// only.
package memstore

import (
	"context"
	"slices"
	"sync"

	"github.com/spinhq/cadence/internal/progression"
	"github.com/spinhq/cadence/internal/scene"
	"github.com/spinhq/cadence/internal/storage"
)

// Compile-time interface checks.
var (
	_ storage.ProgressStore = (*Store)(nil)
	_ storage.HistoryStore  = (*Store)(nil)
)

// Store is an in-memory implementation of both [storage.ProgressStore] and
// [storage.HistoryStore]. The zero value is ready to use.
type Store struct {
	mu sync.RWMutex

	hasProgress bool
	profile     progression.Profile
	progress    progression.Progress

	sessions       []progression.Session
	crystals       []progression.Crystal
	sceneStats     map[string]scene.Stats
	techniquesUsed []string

	// FailWrites, when set, makes every write return an error. Tests use it
	// to exercise the log-and-continue path.
	FailWrites error
}

// New returns an initialised [Store].
func New() *Store {
	return &Store{sceneStats: make(map[string]scene.Stats)}
}

// LoadProgress implements [storage.ProgressStore].
func (s *Store) LoadProgress(_ context.Context) (progression.Profile, progression.Progress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.hasProgress {
		return progression.Profile{}, progression.Progress{}, storage.ErrNotFound
	}
	return s.profile, s.progress, nil
}

// SaveProgress implements [storage.ProgressStore].
func (s *Store) SaveProgress(_ context.Context, profile progression.Profile, progress progression.Progress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWrites != nil {
		return s.FailWrites
	}
	s.hasProgress = true
	s.profile = profile
	s.progress = progress
	return nil
}

// AppendSession implements [storage.HistoryStore].
func (s *Store) AppendSession(_ context.Context, sess progression.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWrites != nil {
		return s.FailWrites
	}
	s.sessions = append(s.sessions, sess)
	return nil
}

// AppendCrystal implements [storage.HistoryStore].
func (s *Store) AppendCrystal(_ context.Context, c progression.Crystal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWrites != nil {
		return s.FailWrites
	}
	s.crystals = append(s.crystals, c)
	return nil
}

// LoadSessions implements [storage.HistoryStore].
func (s *Store) LoadSessions(_ context.Context) ([]progression.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.sessions), nil
}

// LoadCrystals implements [storage.HistoryStore].
func (s *Store) LoadCrystals(_ context.Context) ([]progression.Crystal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.crystals), nil
}

// SaveSceneStats implements [storage.HistoryStore].
func (s *Store) SaveSceneStats(_ context.Context, stats map[string]scene.Stats) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWrites != nil {
		return s.FailWrites
	}
	s.sceneStats = make(map[string]scene.Stats, len(stats))
	for id, st := range stats {
		s.sceneStats[id] = st
	}
	return nil
}

// LoadSceneStats implements [storage.HistoryStore].
func (s *Store) LoadSceneStats(_ context.Context) (map[string]scene.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]scene.Stats, len(s.sceneStats))
	for id, st := range s.sceneStats {
		out[id] = st
	}
	return out, nil
}

// MarkTechniqueUsed implements [storage.HistoryStore].
func (s *Store) MarkTechniqueUsed(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWrites != nil {
		return s.FailWrites
	}
	if !slices.Contains(s.techniquesUsed, id) {
		s.techniquesUsed = append(s.techniquesUsed, id)
	}
	return nil
}

// LoadTechniquesUsed implements [storage.HistoryStore].
func (s *Store) LoadTechniquesUsed(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.techniquesUsed), nil
}

// Package progression owns the persistent user state of Cadence: XP and
// level, the daily streak, session totals, and the append-only session and
// crystal logs.
//
// The engine is pure in-memory state behind a single-writer mutex. Callers
// apply scoring output as mutations (exactly once per completed session) and
// persist snapshots through the storage repositories; a storage failure never
// touches the in-memory state.
package progression

import (
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spinhq/cadence/pkg/scoring"
)

// dateLayout is the calendar-day key used for streak bookkeeping. Streaks are
// keyed by calendar day, not by wall-clock session time.
const dateLayout = "2006-01-02"

// SessionType distinguishes free practice from scenario play.
type SessionType string

const (
	SessionFreePractice SessionType = "free_practice"
	SessionScenario     SessionType = "scenario"
)

// IsValid reports whether t is a recognised session type.
func (t SessionType) IsValid() bool {
	return t == SessionFreePractice || t == SessionScenario
}

// Session is one completed practice session. Appended once, never mutated.
type Session struct {
	ID              string              `json:"id"`
	Type            SessionType         `json:"type"`
	SceneID         string              `json:"scene_id,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
	DurationSeconds int                 `json:"duration_seconds"`
	Scores          scoring.Scores      `json:"scores"`
	CrystalEarned   scoring.CrystalType `json:"crystal_earned"`
}

// Crystal is one earned collectible. Appended once, never mutated.
type Crystal struct {
	ID       string              `json:"id"`
	Type     scoring.CrystalType `json:"type"`
	EarnedAt time.Time           `json:"earned_at"`
}

// Profile is the user-editable identity part of the persisted state.
type Profile struct {
	Name      string `json:"name"`
	Onboarded bool   `json:"onboarded"`
}

// Progress is the singleton progression record. Level is derived from XP and
// cached; XP is monotonically non-decreasing.
type Progress struct {
	Level           int    `json:"level"`
	XP              int    `json:"xp"`
	StreakDays      int    `json:"streak_days"`
	BestStreak      int    `json:"best_streak"`
	LastSessionDate string `json:"last_session_date"`
	TotalSessions   int    `json:"total_sessions"`
	TotalMinutes    int    `json:"total_minutes"`
}

// State is a full snapshot of the engine, used for persistence round trips.
type State struct {
	Profile        Profile   `json:"profile"`
	Progress       Progress  `json:"progress"`
	Sessions       []Session `json:"sessions"`
	Crystals       []Crystal `json:"crystals"`
	TechniquesUsed []string  `json:"techniques_used"`
}

// Option configures an [Engine].
type Option func(*Engine)

// WithClock overrides the engine's time source. Used by tests to pin the
// calendar day.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// Engine is the progression state machine. All methods are safe for
// concurrent use; writes are serialised so the streak and XP invariants hold
// under concurrent session completions.
type Engine struct {
	now func() time.Time

	mu             sync.Mutex
	profile        Profile
	progress       Progress
	sessions       []Session
	crystals       []Crystal
	techniquesUsed []string
}

// NewEngine creates an Engine with zeroed state at level 1.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		now:      time.Now,
		progress: Progress{Level: 1},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Restore replaces the engine state with a previously persisted snapshot.
// The cached level is recomputed from XP so a stale snapshot cannot disagree
// with the level curve.
func (e *Engine) Restore(s State) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.profile = s.Profile
	e.progress = s.Progress
	e.progress.Level = GetLevelInfo(s.Progress.XP).Level
	e.sessions = slices.Clone(s.Sessions)
	e.crystals = slices.Clone(s.Crystals)
	e.techniquesUsed = slices.Clone(s.TechniquesUsed)
}

// State returns a deep snapshot of the engine for persistence.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return State{
		Profile:        e.profile,
		Progress:       e.progress,
		Sessions:       slices.Clone(e.sessions),
		Crystals:       slices.Clone(e.crystals),
		TechniquesUsed: slices.Clone(e.techniquesUsed),
	}
}

// Profile returns the current profile.
func (e *Engine) Profile() Profile {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.profile
}

// CompleteOnboarding records the user's name and marks onboarding done.
func (e *Engine) CompleteOnboarding(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.profile = Profile{Name: name, Onboarded: true}
}

// Progress returns the current progression record.
func (e *Engine) Progress() Progress {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.progress
}

// AddXP adds amount to the XP total and recomputes the cached level. It
// reports whether the level increased, and the resulting level, so the caller
// can trigger the one-time level-up presentation.
//
// AddXP is not idempotent: calling it twice double-applies. Callers must call
// it exactly once per completed session.
func (e *Engine) AddXP(amount int) (leveledUp bool, newLevel int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	oldLevel := GetLevelInfo(e.progress.XP).Level
	e.progress.XP += amount
	info := GetLevelInfo(e.progress.XP)
	e.progress.Level = info.Level
	return info.Level > oldLevel, info.Level
}

// UpdateStreak applies the calendar-day streak rules: a second session on the
// same day is a no-op, a session the day after the last one extends the
// streak, anything else resets it to 1. The best streak and the last-session
// date always catch up.
func (e *Engine) UpdateStreak() {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now().UTC()
	today := now.Format(dateLayout)
	if e.progress.LastSessionDate == today {
		return
	}

	yesterday := now.AddDate(0, 0, -1).Format(dateLayout)
	if e.progress.LastSessionDate == yesterday {
		e.progress.StreakDays++
	} else {
		e.progress.StreakDays = 1
	}
	e.progress.BestStreak = max(e.progress.BestStreak, e.progress.StreakDays)
	e.progress.LastSessionDate = today
}

// IncrementSession unconditionally bumps the session and minute totals.
func (e *Engine) IncrementSession(minutes int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.progress.TotalSessions++
	e.progress.TotalMinutes += minutes
}

// StreakAtRisk reports whether the active streak will break unless the user
// completes a session today. A zero streak is never at risk.
func (e *Engine) StreakAtRisk() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	p := e.progress
	if p.LastSessionDate == "" || p.StreakDays == 0 {
		return false
	}
	return p.LastSessionDate != e.now().UTC().Format(dateLayout)
}

// AddSession appends a completed session to the log and returns the stored
// record with its generated id and timestamp.
func (e *Engine) AddSession(typ SessionType, sceneID string, durationSeconds int, scores scoring.Scores, crystal scoring.CrystalType) Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := Session{
		ID:              uuid.NewString(),
		Type:            typ,
		SceneID:         sceneID,
		CreatedAt:       e.now().UTC(),
		DurationSeconds: durationSeconds,
		Scores:          scores,
		CrystalEarned:   crystal,
	}
	e.sessions = append(e.sessions, s)
	return s
}

// AddCrystal appends an earned crystal to the log and returns the stored
// record.
func (e *Engine) AddCrystal(typ scoring.CrystalType) Crystal {
	e.mu.Lock()
	defer e.mu.Unlock()
	c := Crystal{
		ID:       uuid.NewString(),
		Type:     typ,
		EarnedAt: e.now().UTC(),
	}
	e.crystals = append(e.crystals, c)
	return c
}

// MarkTechniqueUsed records that the technique was exercised at least once.
// Repeat marks are no-ops.
func (e *Engine) MarkTechniqueUsed(id string) {
	if id == "" {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if slices.Contains(e.techniquesUsed, id) {
		return
	}
	e.techniquesUsed = append(e.techniquesUsed, id)
}

// Sessions returns a copy of the session log, oldest first.
func (e *Engine) Sessions() []Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.sessions)
}

// Crystals returns a copy of the crystal log, oldest first.
func (e *Engine) Crystals() []Crystal {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.crystals)
}

// TechniquesUsed returns a copy of the used-technique id list.
func (e *Engine) TechniquesUsed() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.techniquesUsed)
}

// AverageScores reduces the session log to rounded mean clarity and impact.
// An empty log yields zeros.
func (e *Engine) AverageScores() scoring.Scores {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.sessions) == 0 {
		return scoring.Scores{}
	}
	var clarity, impact int
	for _, s := range e.sessions {
		clarity += s.Scores.Clarity
		impact += s.Scores.Impact
	}
	n := len(e.sessions)
	return scoring.Scores{
		Clarity: roundDiv(clarity, n),
		Impact:  roundDiv(impact, n),
	}
}

// CrystalCounts reduces the crystal log to a count per type. Every type is
// present in the result, possibly with a zero count.
func (e *Engine) CrystalCounts() map[scoring.CrystalType]int {
	e.mu.Lock()
	defer e.mu.Unlock()

	counts := map[scoring.CrystalType]int{
		scoring.CrystalClarte:   0,
		scoring.CrystalImpact:   0,
		scoring.CrystalCalme:    0,
		scoring.CrystalRepartie: 0,
	}
	for _, c := range e.crystals {
		counts[c.Type]++
	}
	return counts
}

// roundDiv divides a by n rounding half away from zero. Both are non-negative
// here.
func roundDiv(a, n int) int {
	return (a + n/2) / n
}

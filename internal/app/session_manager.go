package app

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/spinhq/cadence/internal/coach"
	"github.com/spinhq/cadence/internal/observe"
	"github.com/spinhq/cadence/internal/progression"
	"github.com/spinhq/cadence/internal/scene"
	"github.com/spinhq/cadence/internal/storage"
	"github.com/spinhq/cadence/pkg/scoring"
	"github.com/spinhq/cadence/pkg/voice"
)

// ErrSessionActive is returned by Start when a session is already running.
var ErrSessionActive = errors.New("app: a session is already active")

// ErrNoActiveSession is returned by Stop when no session is running.
var ErrNoActiveSession = errors.New("app: no active session")

// SessionInfo holds metadata about an active session.
type SessionInfo struct {
	Type        progression.SessionType
	SceneID     string
	TechniqueID string
	StartedAt   time.Time
}

// SessionResult is everything reported to the client when a session ends.
type SessionResult struct {
	Analysis   scoring.Result          `json:"analysis"`
	Metrics    voice.Metrics           `json:"metrics"`
	Duration   int                     `json:"duration_seconds"`
	XPEarned   int                     `json:"xp_earned"`
	LeveledUp  bool                    `json:"leveled_up"`
	NewLevel   int                     `json:"new_level,omitempty"`
	Commentary string                  `json:"commentary,omitempty"`
	Type       progression.SessionType `json:"type"`
}

// SessionManager runs the session lifecycle: acquire the sampler on Start,
// and on Stop score the metrics, apply the progression mutations exactly
// once, persist, and report the result.
//
// Only one session can be active at a time (enforced by mutex). All exported
// methods are safe for concurrent use.
type SessionManager struct {
	mu      sync.Mutex
	sampler *voice.Sampler
	info    SessionInfo
	active  bool

	// Dependencies injected at construction.
	scorer      *scoring.Scorer
	engine      *progression.Engine
	scenes      *scene.Registry
	progress    storage.ProgressStore
	history     storage.HistoryStore
	commentator *coach.Commentator
	metrics     *observe.Metrics
	now         func() time.Time
}

// SessionManagerConfig holds all dependencies for a [SessionManager].
type SessionManagerConfig struct {
	Scorer      *scoring.Scorer
	Engine      *progression.Engine
	Scenes      *scene.Registry
	Progress    storage.ProgressStore
	History     storage.HistoryStore
	Commentator *coach.Commentator
	Metrics     *observe.Metrics

	// Now overrides the clock, for tests. Defaults to time.Now.
	Now func() time.Time
}

// NewSessionManager creates a SessionManager with the given dependencies.
func NewSessionManager(cfg SessionManagerConfig) *SessionManager {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = observe.DefaultMetrics()
	}
	commentator := cfg.Commentator
	if commentator == nil {
		commentator = coach.NewCommentator(nil, nil)
	}
	return &SessionManager{
		scorer:      cfg.Scorer,
		engine:      cfg.Engine,
		scenes:      cfg.Scenes,
		progress:    cfg.Progress,
		history:     cfg.History,
		commentator: commentator,
		metrics:     metrics,
		now:         now,
	}
}

// Start begins a new practice session over the given frame source. For
// scenario sessions sceneID names the scene being played; techniqueID, when
// non-empty, is marked as used on completion.
//
// Returns [ErrSessionActive] when a session is already running, or an error
// when the source cannot be acquired.
func (sm *SessionManager) Start(ctx context.Context, source voice.Source, typ progression.SessionType, sceneID, techniqueID string) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.active {
		return ErrSessionActive
	}

	sampler := voice.NewSampler(source)
	if !sampler.Start(ctx) {
		return errors.New("app: acquire frame source")
	}

	sm.active = true
	sm.sampler = sampler
	sm.info = SessionInfo{
		Type:        typ,
		SceneID:     sceneID,
		TechniqueID: techniqueID,
		StartedAt:   sm.now(),
	}
	sm.metrics.ActiveSessions.Add(ctx, 1)

	slog.Info("session started",
		"type", typ,
		"scene_id", sceneID,
		"technique_id", techniqueID,
	)
	return nil
}

// IsActive reports whether a session is currently running.
func (sm *SessionManager) IsActive() bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.active
}

// Info returns metadata about the active session.
// Returns zero value if no session is active.
func (sm *SessionManager) Info() SessionInfo {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.info
}

// Stop ends the active session: collects the metric snapshot, scores it,
// applies the progression mutations, persists them, and returns the result.
//
// Storage failures are logged and do not fail the stop; the in-memory state
// remains authoritative for the rest of the run. Returns
// [ErrNoActiveSession] when nothing is running.
func (sm *SessionManager) Stop(ctx context.Context) (*SessionResult, error) {
	sm.mu.Lock()
	if !sm.active {
		sm.mu.Unlock()
		return nil, ErrNoActiveSession
	}

	metrics := sm.sampler.Stop()
	info := sm.info
	duration := int(sm.now().Sub(info.StartedAt).Seconds())

	sm.active = false
	sm.sampler = nil
	sm.info = SessionInfo{}
	sm.metrics.ActiveSessions.Add(ctx, -1)

	result := sm.complete(ctx, info, metrics, duration)
	sm.mu.Unlock()

	// The commentary may wait on a remote provider. Off the lock, a slow
	// coach never delays the next Start.
	result.Commentary = sm.commentator.Comment(ctx, result.Analysis, duration)

	slog.Info("session completed",
		"type", info.Type,
		"duration_s", duration,
		"clarity", result.Analysis.Scores.Clarity,
		"impact", result.Analysis.Scores.Impact,
		"xp", result.XPEarned,
		"leveled_up", result.LeveledUp,
	)
	return result, nil
}

// complete applies the scoring output to the progression state. The mutation
// order matters: XP is computed against the streak as it stood before this
// session extends it.
func (sm *SessionManager) complete(ctx context.Context, info SessionInfo, metrics voice.Metrics, duration int) *SessionResult {
	analysis := sm.scorer.Analyze(
		metrics.EstimatedPace,
		metrics.PauseCount,
		metrics.AverageSpeechVolume,
		metrics.VolumeVariance,
		float64(duration),
	)

	if info.Type == progression.SessionScenario && info.SceneID != "" {
		sm.scenes.UpdateScore(info.SceneID, int(math.Round(analysis.Scores.Average())))
	}

	sess := sm.engine.AddSession(info.Type, info.SceneID, duration, analysis.Scores, analysis.CrystalType)

	earned := scoring.SessionXP(analysis.Scores, float64(duration), sm.engine.Progress().StreakDays)
	leveledUp, newLevel := sm.engine.AddXP(earned)
	sm.engine.UpdateStreak()
	sm.engine.IncrementSession(int(math.Round(float64(duration) / 60)))
	crystal := sm.engine.AddCrystal(analysis.CrystalType)
	if info.TechniqueID != "" {
		sm.engine.MarkTechniqueUsed(info.TechniqueID)
	}

	sm.persist(ctx, info, sess, crystal)

	sm.metrics.RecordSessionCompleted(ctx, string(info.Type), duration, analysis.Scores.Average())
	sm.metrics.RecordXP(ctx, earned, leveledUp)

	return &SessionResult{
		Analysis:  analysis,
		Metrics:   metrics,
		Duration:  duration,
		XPEarned:  earned,
		LeveledUp: leveledUp,
		NewLevel:  newLevel,
		Type:      info.Type,
	}
}

// persist writes the post-session state through the repositories. Every
// failure is logged and swallowed; the in-memory engine stays authoritative.
func (sm *SessionManager) persist(ctx context.Context, info SessionInfo, sess progression.Session, crystal progression.Crystal) {
	if err := sm.progress.SaveProgress(ctx, sm.engine.Profile(), sm.engine.Progress()); err != nil {
		slog.Error("persist progress failed", "error", err)
	}
	if err := sm.history.AppendSession(ctx, sess); err != nil {
		slog.Error("persist session failed", "session_id", sess.ID, "error", err)
	}
	if err := sm.history.AppendCrystal(ctx, crystal); err != nil {
		slog.Error("persist crystal failed", "crystal_id", crystal.ID, "error", err)
	}
	if info.Type == progression.SessionScenario && info.SceneID != "" {
		if err := sm.history.SaveSceneStats(ctx, sm.scenes.Stats()); err != nil {
			slog.Error("persist scene stats failed", "scene_id", info.SceneID, "error", err)
		}
	}
	if info.TechniqueID != "" {
		if err := sm.history.MarkTechniqueUsed(ctx, info.TechniqueID); err != nil {
			slog.Error("persist technique failed", "technique_id", info.TechniqueID, "error", err)
		}
	}
}

// Package app wires the Cadence subsystems into a running application.
//
// The App struct owns the full lifecycle: [New] creates and connects the
// storage, progression, and coaching subsystems and restores persisted state,
// [App.Run] serves HTTP until the context ends, and [App.Shutdown] tears
// everything down in order.
//
// For testing, inject in-memory implementations via functional options
// (WithProgressStore, WithHistoryStore, WithCoachProvider). When an option is
// not provided, New creates real implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/spinhq/cadence/internal/coach"
	"github.com/spinhq/cadence/internal/config"
	"github.com/spinhq/cadence/internal/health"
	"github.com/spinhq/cadence/internal/progression"
	"github.com/spinhq/cadence/internal/scene"
	"github.com/spinhq/cadence/internal/storage"
	"github.com/spinhq/cadence/internal/storage/memstore"
	"github.com/spinhq/cadence/internal/storage/postgres"
	"github.com/spinhq/cadence/pkg/scoring"
)

// shutdownTimeout bounds the graceful HTTP drain when the run context ends.
const shutdownTimeout = 10 * time.Second

// App owns all subsystem lifetimes.
type App struct {
	cfg *config.Config

	progress storage.ProgressStore
	history  storage.HistoryStore
	pinger   health.Pinger
	engine   *progression.Engine
	scenes   *scene.Registry
	provider coach.Provider
	sessions *SessionManager

	// closers are called in order during Shutdown.
	closers []func() error

	stopOnce sync.Once
}

// Option is a functional option for [New]. Use these to inject test doubles.
type Option func(*App)

// WithProgressStore injects a progress store instead of creating one from
// config.
func WithProgressStore(s storage.ProgressStore) Option {
	return func(a *App) { a.progress = s }
}

// WithHistoryStore injects a history store instead of creating one from
// config.
func WithHistoryStore(s storage.HistoryStore) Option {
	return func(a *App) { a.history = s }
}

// WithCoachProvider injects a coach provider instead of creating one from the
// config registry.
func WithCoachProvider(p coach.Provider) Option {
	return func(a *App) { a.provider = p }
}

// New creates an App by wiring all subsystems together: the storage layer
// (PostgreSQL, or in-memory when no DSN is configured), the progression
// engine restored from persisted state, the scene registry, and the coach.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	a := &App{
		cfg:    cfg,
		engine: progression.NewEngine(),
		scenes: scene.NewRegistry(),
	}
	for _, o := range opts {
		o(a)
	}

	if err := a.initStorage(ctx); err != nil {
		return nil, fmt.Errorf("app: init storage: %w", err)
	}
	if err := a.restoreState(ctx); err != nil {
		return nil, fmt.Errorf("app: restore state: %w", err)
	}
	if err := a.initCoach(); err != nil {
		return nil, fmt.Errorf("app: init coach: %w", err)
	}

	a.sessions = NewSessionManager(SessionManagerConfig{
		Scorer:      scoring.New(nil),
		Engine:      a.engine,
		Scenes:      a.scenes,
		Progress:    a.progress,
		History:     a.history,
		Commentator: coach.NewCommentator(a.provider, nil),
	})
	return a, nil
}

// initStorage connects the configured store, or falls back to in-memory state
// when no DSN is set or stores were injected.
func (a *App) initStorage(ctx context.Context) error {
	if a.progress != nil && a.history != nil {
		return nil // both injected
	}

	dsn := a.cfg.Storage.PostgresDSN
	if dsn == "" {
		slog.Warn("no postgres_dsn configured, progression state is in-memory only")
		mem := memstore.New()
		if a.progress == nil {
			a.progress = mem
		}
		if a.history == nil {
			a.history = mem
		}
		return nil
	}

	store, err := postgres.NewStore(ctx, dsn)
	if err != nil {
		return err
	}
	a.pinger = store
	if a.progress == nil {
		a.progress = store
	}
	if a.history == nil {
		a.history = store
	}
	a.closers = append(a.closers, func() error {
		store.Close()
		return nil
	})
	return nil
}

// restoreState loads the persisted snapshot into the engine and the scene
// registry. A missing progress record means a fresh install, not an error.
func (a *App) restoreState(ctx context.Context) error {
	profile, progress, err := a.progress.LoadProgress(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		slog.Info("no persisted progress found, starting fresh")
		return nil
	}
	if err != nil {
		return err
	}

	sessions, err := a.history.LoadSessions(ctx)
	if err != nil {
		return err
	}
	crystals, err := a.history.LoadCrystals(ctx)
	if err != nil {
		return err
	}
	techniques, err := a.history.LoadTechniquesUsed(ctx)
	if err != nil {
		return err
	}
	a.engine.Restore(progression.State{
		Profile:        profile,
		Progress:       progress,
		Sessions:       sessions,
		Crystals:       crystals,
		TechniquesUsed: techniques,
	})

	stats, err := a.history.LoadSceneStats(ctx)
	if err != nil {
		return err
	}
	a.scenes.Restore(stats)

	slog.Info("restored persisted state",
		"level", progress.Level,
		"xp", progress.XP,
		"sessions", len(sessions),
	)
	return nil
}

// initCoach builds the configured coach provider via the registry. An empty
// coach name means the built-in static commentary only.
func (a *App) initCoach() error {
	if a.provider != nil || a.cfg.Coach.Name == "" {
		return nil
	}
	p, err := config.DefaultRegistry().CreateCoach(a.cfg.Coach)
	if err != nil {
		return err
	}
	a.provider = p
	slog.Info("coach provider configured", "name", a.cfg.Coach.Name, "model", a.cfg.Coach.Model)
	return nil
}

// Sessions returns the session manager.
func (a *App) Sessions() *SessionManager { return a.sessions }

// Engine returns the progression engine.
func (a *App) Engine() *progression.Engine { return a.engine }

// Scenes returns the scene registry.
func (a *App) Scenes() *scene.Registry { return a.scenes }

// Checkers returns the readiness checks for the configured backends. An
// in-memory deployment has none.
func (a *App) Checkers() []health.Checker {
	if a.pinger == nil {
		return nil
	}
	return []health.Checker{health.Database(a.pinger)}
}

// Run serves the given handler on the configured listen address and blocks
// until ctx is cancelled, then drains in-flight requests and returns.
func (a *App) Run(ctx context.Context, handler http.Handler) error {
	srv := &http.Server{
		Addr:              a.cfg.Server.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if tls := a.cfg.Server.TLS; tls != nil {
			slog.Info("listening", "addr", srv.Addr, "tls", true)
			err = srv.ListenAndServeTLS(tls.CertFile, tls.KeyFile)
		} else {
			slog.Info("listening", "addr", srv.Addr, "tls", false)
			err = srv.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-ctx.Done()
		drainCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(drainCtx)
	})

	err := g.Wait()

	// Persist the final snapshot so an idle-but-mutated engine is not lost.
	saveCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if serr := a.progress.SaveProgress(saveCtx, a.engine.Profile(), a.engine.Progress()); serr != nil {
		slog.Error("final progress save failed", "error", serr)
	}
	return err
}

// Shutdown tears down all subsystems in order. Safe to call more than once.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		if a.sessions.IsActive() {
			if _, err := a.sessions.Stop(ctx); err != nil {
				slog.Warn("stopping active session during shutdown", "error", err)
			}
		}
		for i, closer := range a.closers {
			if err := closer(); err != nil {
				slog.Warn("closer error", "index", i, "error", err)
			}
		}
		slog.Info("shutdown complete")
	})
	return shutdownErr
}

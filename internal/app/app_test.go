package app

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/spinhq/cadence/internal/config"
	"github.com/spinhq/cadence/internal/progression"
	"github.com/spinhq/cadence/internal/scene"
	"github.com/spinhq/cadence/internal/storage/memstore"
	"github.com/spinhq/cadence/pkg/scoring"
	"github.com/spinhq/cadence/pkg/voice/mock"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{ListenAddr: "127.0.0.1:0", LogLevel: config.LogError},
		Audio:  config.AudioConfig{SampleRate: 48000, Bins: 32},
	}
}

func TestNew_InMemoryFallback(t *testing.T) {
	t.Parallel()
	a, err := New(context.Background(), testConfig())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if a.Sessions() == nil || a.Engine() == nil || a.Scenes() == nil {
		t.Fatal("New() left a subsystem nil")
	}
	if a.Engine().Progress().Level != 1 {
		t.Errorf("fresh engine level = %d, want 1", a.Engine().Progress().Level)
	}
}

func TestNew_RestoresPersistedState(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := memstore.New()

	saved := progression.Progress{
		Level: 3, XP: 620, StreakDays: 4, BestStreak: 6,
		LastSessionDate: "2025-03-09", TotalSessions: 12, TotalMinutes: 40,
	}
	if err := store.SaveProgress(ctx, progression.Profile{Name: "Léa", Onboarded: true}, saved); err != nil {
		t.Fatalf("SaveProgress() error = %v", err)
	}
	if err := store.AppendSession(ctx, progression.Session{
		ID:              "s1",
		Type:            progression.SessionFreePractice,
		CreatedAt:       time.Now().UTC(),
		DurationSeconds: 90,
		Scores:          scoring.Scores{Clarity: 80, Impact: 70},
		CrystalEarned:   scoring.CrystalClarte,
	}); err != nil {
		t.Fatalf("AppendSession() error = %v", err)
	}
	if err := store.SaveSceneStats(ctx, map[string]scene.Stats{
		"client": {TimesPlayed: 2, BestScore: 74},
	}); err != nil {
		t.Fatalf("SaveSceneStats() error = %v", err)
	}

	a, err := New(ctx, testConfig(), WithProgressStore(store), WithHistoryStore(store))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	p := a.Engine().Progress()
	if p.XP != 620 || p.StreakDays != 4 || p.TotalSessions != 12 {
		t.Errorf("restored progress = %+v, want the persisted snapshot", p)
	}
	if p.Level != 3 {
		t.Errorf("restored level = %d, want 3 (recomputed from XP)", p.Level)
	}
	if got := a.Engine().Profile().Name; got != "Léa" {
		t.Errorf("restored profile name = %q, want Léa", got)
	}
	if n := len(a.Engine().Sessions()); n != 1 {
		t.Errorf("restored %d sessions, want 1", n)
	}
	sc, _ := a.Scenes().Get("client")
	if sc.TimesPlayed != 2 || sc.BestScore != 74 {
		t.Errorf("restored scene stats = %d/%d, want 2/74", sc.TimesPlayed, sc.BestScore)
	}
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	a, err := New(ctx, testConfig())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- a.Run(ctx, http.NewServeMux())
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil && err != context.Canceled {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after context cancellation")
	}
}

func TestShutdown_StopsActiveSession(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	a, err := New(ctx, testConfig())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := a.Sessions().Start(ctx, &mock.Source{}, progression.SessionFreePractice, "", ""); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := a.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if a.Sessions().IsActive() {
		t.Error("session still active after Shutdown")
	}
	// Second call is a no-op.
	if err := a.Shutdown(ctx); err != nil {
		t.Fatalf("second Shutdown() error = %v", err)
	}
}

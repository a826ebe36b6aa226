package memstore_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/spinhq/cadence/internal/progression"
	"github.com/spinhq/cadence/internal/scene"
	"github.com/spinhq/cadence/internal/storage"
	"github.com/spinhq/cadence/internal/storage/memstore"
	"github.com/spinhq/cadence/pkg/scoring"
)

func TestStore_ProgressRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memstore.New()

	if _, _, err := store.LoadProgress(ctx); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("LoadProgress() on empty store = %v, want storage.ErrNotFound", err)
	}

	profile := progression.Profile{Name: "Léa", Onboarded: true}
	progress := progression.Progress{Level: 2, XP: 150, StreakDays: 3}
	if err := store.SaveProgress(ctx, profile, progress); err != nil {
		t.Fatalf("SaveProgress() unexpected error: %v", err)
	}

	gotProfile, gotProgress, err := store.LoadProgress(ctx)
	if err != nil {
		t.Fatalf("LoadProgress() unexpected error: %v", err)
	}
	if gotProfile != profile {
		t.Errorf("profile = %+v, want %+v", gotProfile, profile)
	}
	if gotProgress != progress {
		t.Errorf("progress = %+v, want %+v", gotProgress, progress)
	}
}

func TestStore_HistoryRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memstore.New()
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	sess := progression.Session{
		ID:              "sess-1",
		Type:            progression.SessionFreePractice,
		CreatedAt:       now,
		DurationSeconds: 60,
		Scores:          scoring.Scores{Clarity: 80, Impact: 70},
		CrystalEarned:   scoring.CrystalCalme,
	}
	if err := store.AppendSession(ctx, sess); err != nil {
		t.Fatalf("AppendSession() unexpected error: %v", err)
	}
	if err := store.AppendCrystal(ctx, progression.Crystal{ID: "cry-1", Type: scoring.CrystalCalme, EarnedAt: now}); err != nil {
		t.Fatalf("AppendCrystal() unexpected error: %v", err)
	}

	sessions, err := store.LoadSessions(ctx)
	if err != nil || len(sessions) != 1 || sessions[0].ID != "sess-1" {
		t.Fatalf("LoadSessions() = %v, %v", sessions, err)
	}
	crystals, err := store.LoadCrystals(ctx)
	if err != nil || len(crystals) != 1 || crystals[0].Type != scoring.CrystalCalme {
		t.Fatalf("LoadCrystals() = %v, %v", crystals, err)
	}

	// Returned slices are copies; mutating them must not touch the store.
	sessions[0].ID = "mutated"
	again, _ := store.LoadSessions(ctx)
	if again[0].ID != "sess-1" {
		t.Error("LoadSessions() result should be isolated from the store")
	}
}

func TestStore_SceneStats(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memstore.New()

	stats := map[string]scene.Stats{"client": {TimesPlayed: 2, BestScore: 78}}
	if err := store.SaveSceneStats(ctx, stats); err != nil {
		t.Fatalf("SaveSceneStats() unexpected error: %v", err)
	}
	stats["client"] = scene.Stats{TimesPlayed: 99, BestScore: 99}

	got, err := store.LoadSceneStats(ctx)
	if err != nil {
		t.Fatalf("LoadSceneStats() unexpected error: %v", err)
	}
	if st := got["client"]; st.TimesPlayed != 2 || st.BestScore != 78 {
		t.Errorf("stats[client] = %+v, want {2 78}", st)
	}
}

func TestStore_TechniquesUsedDeduplicates(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memstore.New()

	for range 3 {
		if err := store.MarkTechniqueUsed(ctx, "pause-3s"); err != nil {
			t.Fatalf("MarkTechniqueUsed() unexpected error: %v", err)
		}
	}
	if err := store.MarkTechniqueUsed(ctx, "regle-de-3"); err != nil {
		t.Fatalf("MarkTechniqueUsed() unexpected error: %v", err)
	}

	ids, err := store.LoadTechniquesUsed(ctx)
	if err != nil {
		t.Fatalf("LoadTechniquesUsed() unexpected error: %v", err)
	}
	if len(ids) != 2 || ids[0] != "pause-3s" || ids[1] != "regle-de-3" {
		t.Errorf("LoadTechniquesUsed() = %v", ids)
	}
}

func TestStore_FailWrites(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memstore.New()
	wantErr := errors.New("disk full")
	store.FailWrites = wantErr

	if err := store.SaveProgress(ctx, progression.Profile{}, progression.Progress{}); !errors.Is(err, wantErr) {
		t.Errorf("SaveProgress() error = %v, want %v", err, wantErr)
	}
	if err := store.AppendSession(ctx, progression.Session{ID: "s"}); !errors.Is(err, wantErr) {
		t.Errorf("AppendSession() error = %v, want %v", err, wantErr)
	}

	// Failed writes must leave no partial state behind.
	store.FailWrites = nil
	if sessions, _ := store.LoadSessions(ctx); len(sessions) != 0 {
		t.Errorf("LoadSessions() after failed write = %v, want empty", sessions)
	}
}

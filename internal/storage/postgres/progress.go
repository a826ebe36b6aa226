package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/spinhq/cadence/internal/progression"
	"github.com/spinhq/cadence/internal/storage"
)

// LoadProgress implements [storage.ProgressStore].
func (s *Store) LoadProgress(ctx context.Context) (progression.Profile, progression.Progress, error) {
	const q = `
		SELECT name, onboarded, level, xp, streak_days, best_streak,
		       last_session_date, total_sessions, total_minutes
		FROM   user_progress
		WHERE  user_key = $1`

	var (
		profile  progression.Profile
		progress progression.Progress
	)
	err := s.db.QueryRow(ctx, q, userKey).Scan(
		&profile.Name,
		&profile.Onboarded,
		&progress.Level,
		&progress.XP,
		&progress.StreakDays,
		&progress.BestStreak,
		&progress.LastSessionDate,
		&progress.TotalSessions,
		&progress.TotalMinutes,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return progression.Profile{}, progression.Progress{}, storage.ErrNotFound
	}
	if err != nil {
		return progression.Profile{}, progression.Progress{}, fmt.Errorf("postgres: load progress: %w", err)
	}
	return profile, progress, nil
}

// SaveProgress implements [storage.ProgressStore]. The singleton row is
// upserted so the first save and every later one take the same path.
func (s *Store) SaveProgress(ctx context.Context, profile progression.Profile, progress progression.Progress) error {
	const q = `
		INSERT INTO user_progress
		    (user_key, name, onboarded, level, xp, streak_days, best_streak,
		     last_session_date, total_sessions, total_minutes, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now())
		ON CONFLICT (user_key) DO UPDATE SET
		    name              = EXCLUDED.name,
		    onboarded         = EXCLUDED.onboarded,
		    level             = EXCLUDED.level,
		    xp                = EXCLUDED.xp,
		    streak_days       = EXCLUDED.streak_days,
		    best_streak       = EXCLUDED.best_streak,
		    last_session_date = EXCLUDED.last_session_date,
		    total_sessions    = EXCLUDED.total_sessions,
		    total_minutes     = EXCLUDED.total_minutes,
		    updated_at        = now()`

	_, err := s.db.Exec(ctx, q,
		userKey,
		profile.Name,
		profile.Onboarded,
		progress.Level,
		progress.XP,
		progress.StreakDays,
		progress.BestStreak,
		progress.LastSessionDate,
		progress.TotalSessions,
		progress.TotalMinutes,
	)
	if err != nil {
		return fmt.Errorf("postgres: save progress: %w", err)
	}
	return nil
}

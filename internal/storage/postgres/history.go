package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/spinhq/cadence/internal/progression"
	"github.com/spinhq/cadence/internal/scene"
	"github.com/spinhq/cadence/pkg/scoring"
)

// AppendSession implements [storage.HistoryStore].
func (s *Store) AppendSession(ctx context.Context, sess progression.Session) error {
	const q = `
		INSERT INTO sessions
		    (id, type, scene_id, created_at, duration_seconds, clarity, impact, crystal_earned)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := s.db.Exec(ctx, q,
		sess.ID,
		string(sess.Type),
		sess.SceneID,
		sess.CreatedAt,
		sess.DurationSeconds,
		sess.Scores.Clarity,
		sess.Scores.Impact,
		string(sess.CrystalEarned),
	)
	if err != nil {
		return fmt.Errorf("postgres: append session: %w", err)
	}
	return nil
}

// AppendCrystal implements [storage.HistoryStore].
func (s *Store) AppendCrystal(ctx context.Context, c progression.Crystal) error {
	const q = `INSERT INTO crystals (id, type, earned_at) VALUES ($1, $2, $3)`

	if _, err := s.db.Exec(ctx, q, c.ID, string(c.Type), c.EarnedAt); err != nil {
		return fmt.Errorf("postgres: append crystal: %w", err)
	}
	return nil
}

// LoadSessions implements [storage.HistoryStore].
func (s *Store) LoadSessions(ctx context.Context) ([]progression.Session, error) {
	const q = `
		SELECT id, type, scene_id, created_at, duration_seconds, clarity, impact, crystal_earned
		FROM   sessions
		ORDER  BY created_at`

	rows, err := s.db.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("postgres: load sessions: %w", err)
	}
	sessions, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (progression.Session, error) {
		var (
			sess         progression.Session
			typ, crystal string
		)
		if err := row.Scan(
			&sess.ID,
			&typ,
			&sess.SceneID,
			&sess.CreatedAt,
			&sess.DurationSeconds,
			&sess.Scores.Clarity,
			&sess.Scores.Impact,
			&crystal,
		); err != nil {
			return progression.Session{}, err
		}
		sess.Type = progression.SessionType(typ)
		sess.CrystalEarned = scoring.CrystalType(crystal)
		return sess, nil
	})
	if err != nil {
		return nil, fmt.Errorf("postgres: scan sessions: %w", err)
	}
	return sessions, nil
}

// LoadCrystals implements [storage.HistoryStore].
func (s *Store) LoadCrystals(ctx context.Context) ([]progression.Crystal, error) {
	const q = `SELECT id, type, earned_at FROM crystals ORDER BY earned_at`

	rows, err := s.db.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("postgres: load crystals: %w", err)
	}
	crystals, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (progression.Crystal, error) {
		var (
			c   progression.Crystal
			typ string
		)
		if err := row.Scan(&c.ID, &typ, &c.EarnedAt); err != nil {
			return progression.Crystal{}, err
		}
		c.Type = scoring.CrystalType(typ)
		return c, nil
	})
	if err != nil {
		return nil, fmt.Errorf("postgres: scan crystals: %w", err)
	}
	return crystals, nil
}

// SaveSceneStats implements [storage.HistoryStore].
func (s *Store) SaveSceneStats(ctx context.Context, stats map[string]scene.Stats) error {
	const q = `
		INSERT INTO scene_stats (scene_id, times_played, best_score)
		VALUES ($1, $2, $3)
		ON CONFLICT (scene_id) DO UPDATE SET
		    times_played = EXCLUDED.times_played,
		    best_score   = EXCLUDED.best_score`

	for id, st := range stats {
		if _, err := s.db.Exec(ctx, q, id, st.TimesPlayed, st.BestScore); err != nil {
			return fmt.Errorf("postgres: save scene stats %q: %w", id, err)
		}
	}
	return nil
}

// LoadSceneStats implements [storage.HistoryStore].
func (s *Store) LoadSceneStats(ctx context.Context) (map[string]scene.Stats, error) {
	const q = `SELECT scene_id, times_played, best_score FROM scene_stats`

	rows, err := s.db.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("postgres: load scene stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[string]scene.Stats)
	for rows.Next() {
		var (
			id string
			st scene.Stats
		)
		if err := rows.Scan(&id, &st.TimesPlayed, &st.BestScore); err != nil {
			return nil, fmt.Errorf("postgres: scan scene stats: %w", err)
		}
		stats[id] = st
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: load scene stats: %w", err)
	}
	return stats, nil
}

// MarkTechniqueUsed implements [storage.HistoryStore].
func (s *Store) MarkTechniqueUsed(ctx context.Context, id string) error {
	const q = `INSERT INTO techniques_used (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`

	if _, err := s.db.Exec(ctx, q, id); err != nil {
		return fmt.Errorf("postgres: mark technique used: %w", err)
	}
	return nil
}

// LoadTechniquesUsed implements [storage.HistoryStore].
func (s *Store) LoadTechniquesUsed(ctx context.Context) ([]string, error) {
	const q = `SELECT id FROM techniques_used ORDER BY marked_at`

	rows, err := s.db.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("postgres: load techniques used: %w", err)
	}
	ids, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (string, error) {
		var id string
		err := row.Scan(&id)
		return id, err
	})
	if err != nil {
		return nil, fmt.Errorf("postgres: scan techniques used: %w", err)
	}
	return ids, nil
}

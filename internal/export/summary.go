// Package export renders user-facing progress exports. The output is plain
// text meant to be copied or downloaded as-is, not parsed.
package export

import (
	"fmt"
	"strings"

	"github.com/spinhq/cadence/internal/catalog"
	"github.com/spinhq/cadence/internal/progression"
)

// Summary renders a plain-text progress summary from an engine snapshot.
func Summary(e *progression.Engine) string {
	state := e.State()
	info := progression.GetLevelInfo(state.Progress.XP)
	avg := e.AverageScores()

	name := state.Profile.Name
	if name == "" {
		name = "Coach"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Cadence — Résumé\n")
	fmt.Fprintf(&b, "Utilisateur: %s\n", name)
	fmt.Fprintf(&b, "Niveau: %d (%s)\n", info.Level, info.Title)
	fmt.Fprintf(&b, "XP: %d\n", state.Progress.XP)
	fmt.Fprintf(&b, "Sessions: %d\n", state.Progress.TotalSessions)
	fmt.Fprintf(&b, "Minutes: %d\n", state.Progress.TotalMinutes)
	fmt.Fprintf(&b, "Meilleure série: %dj\n", state.Progress.BestStreak)
	fmt.Fprintf(&b, "Scores moyens: Clarté %d%%, Impact %d%%\n", avg.Clarity, avg.Impact)
	fmt.Fprintf(&b, "Cristaux: %d\n", len(state.Crystals))
	fmt.Fprintf(&b, "Techniques: %d/%d", len(state.TechniquesUsed), len(catalog.Techniques))
	return b.String()
}

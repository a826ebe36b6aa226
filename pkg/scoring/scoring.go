// Package scoring turns a completed session's voice metrics into bounded
// clarity/impact scores, coaching feedback, a crystal award, and an XP amount.
//
// The scoring is a deliberate heuristic over a handful of real-time-derived
// signals: fixed thresholds, bounded jitter, hard clamps. It makes no claim of
// psychoacoustic accuracy, only of producing plausible, reproducible-shape
// feedback. The two random injections (score jitter and the crystal tie-break)
// flow through a seedable source held by the [Scorer] so tests can fix them.
package scoring

import (
	"math"
	"math/rand/v2"
	"strconv"
	"time"
)

// CrystalType is the category of the collectible reward granted once per
// completed session.
type CrystalType string

const (
	CrystalClarte   CrystalType = "clarte"
	CrystalImpact   CrystalType = "impact"
	CrystalCalme    CrystalType = "calme"
	CrystalRepartie CrystalType = "repartie"
)

// IsValid reports whether c is a recognised crystal type.
func (c CrystalType) IsValid() bool {
	switch c {
	case CrystalClarte, CrystalImpact, CrystalCalme, CrystalRepartie:
		return true
	}
	return false
}

// Scores holds the two session scores, each clamped to [20, 100].
type Scores struct {
	Clarity int `json:"clarity"`
	Impact  int `json:"impact"`
}

// Average returns the mean of the two scores.
func (s Scores) Average() float64 {
	return (float64(s.Clarity) + float64(s.Impact)) / 2
}

// FeedbackType tags a feedback item as a strength or an improvement area.
type FeedbackType string

const (
	FeedbackStrength    FeedbackType = "strength"
	FeedbackImprovement FeedbackType = "improvement"
)

// FeedbackItem is one line of session feedback shown to the user.
type FeedbackItem struct {
	Type FeedbackType `json:"type"`
	Icon string       `json:"icon"`
	Text string       `json:"text"`
}

// Result is the immutable outcome of analysing one session. It is produced
// once by [Scorer.Analyze] and consumed once by the progression engine.
type Result struct {
	Scores      Scores         `json:"scores"`
	Feedback    []FeedbackItem `json:"feedback"`
	CrystalType CrystalType    `json:"crystal_type"`
}

// maxFeedbackItems bounds the feedback list; strengths are selected before
// improvements so they survive the cut.
const maxFeedbackItems = 3

// Scorer analyses session metrics. The zero value is not usable; construct
// with [New].
type Scorer struct {
	rng *rand.Rand
}

// New creates a Scorer drawing jitter and tie-breaks from rng. Pass nil to
// use a time-seeded source.
func New(rng *rand.Rand) *Scorer {
	if rng == nil {
		now := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(now, now>>32))
	}
	return &Scorer{rng: rng}
}

// Analyze scores a session from its final aggregated metrics.
//
// Both scores start at 50, collect fixed threshold bonuses, are perturbed by a
// uniform jitter in [-5, +5], clamped to [20, 100], and rounded. Feedback is
// picked in fixed priority order, at most one strength and one improvement
// branch per category, strengths first. The crystal follows the dominant
// score; an exact tie is broken uniformly at random.
func (s *Scorer) Analyze(pace, pauseCount int, avgVolume, volumeVariance, durationSeconds float64) Result {
	clarity, impact := 50.0, 50.0

	switch {
	case pace >= 120 && pace <= 160:
		clarity += 25
	case pace >= 100 && pace <= 180:
		clarity += 15
	}
	if pauseCount >= 2 && pauseCount <= 8 {
		clarity += 15
	}
	if avgVolume >= 0.15 && avgVolume <= 0.6 {
		impact += 20
	}
	if volumeVariance >= 0.05 && volumeVariance <= 0.3 {
		impact += 20
	}
	if durationSeconds >= 30 {
		impact += 5
	}
	if durationSeconds >= 60 {
		clarity += 5
	}

	clarity = clamp(clarity+s.jitter(), 20, 100)
	impact = clamp(impact+s.jitter(), 20, 100)

	scores := Scores{
		Clarity: int(math.Round(clarity)),
		Impact:  int(math.Round(impact)),
	}

	return Result{
		Scores:      scores,
		Feedback:    feedbackFor(scores, pace, pauseCount, avgVolume, volumeVariance),
		CrystalType: s.crystalFor(scores),
	}
}

// jitter returns a uniform value in [-5, +5).
func (s *Scorer) jitter() float64 {
	return s.rng.Float64()*10 - 5
}

// feedbackFor selects at most three feedback items: up to two strengths
// (clarity axis, then impact axis) followed by improvements in fixed priority
// order. Within each category only the first matching branch fires.
func feedbackFor(scores Scores, pace, pauseCount int, avgVolume, volumeVariance float64) []FeedbackItem {
	var items []FeedbackItem

	switch {
	case scores.Clarity >= 70:
		items = append(items, FeedbackItem{FeedbackStrength, "✨", "Ton rythme est clair et facile à suivre."})
	case pauseCount >= 2:
		items = append(items, FeedbackItem{FeedbackStrength, "⏸️", "Bien joué pour les pauses."})
	}

	switch {
	case scores.Impact >= 70:
		items = append(items, FeedbackItem{FeedbackStrength, "🎯", "Ta voix projette de l'assurance !"})
	case volumeVariance >= 0.1:
		items = append(items, FeedbackItem{FeedbackStrength, "📈", "Belle modulation vocale."})
	}

	switch {
	case pace > 170:
		items = append(items, FeedbackItem{FeedbackImprovement, "🐢", "Essaie de ralentir de 20%."})
	case avgVolume < 0.1:
		items = append(items, FeedbackItem{FeedbackImprovement, "📢", "Projette davantage ta voix."})
	case pauseCount < 2:
		items = append(items, FeedbackItem{FeedbackImprovement, "💨", "Ose les silences."})
	}

	if len(items) > maxFeedbackItems {
		items = items[:maxFeedbackItems]
	}
	return items
}

// crystalFor awards the crystal matching the dominant score, breaking an
// exact tie with a coin flip.
func (s *Scorer) crystalFor(scores Scores) CrystalType {
	switch {
	case scores.Clarity > scores.Impact:
		return CrystalClarte
	case scores.Impact > scores.Clarity:
		return CrystalImpact
	case s.rng.Float64() > 0.5:
		return CrystalClarte
	default:
		return CrystalImpact
	}
}

// SessionXP computes the XP award for a completed session. The result is
// always at least 10.
//
// Base is the average score over four, duration adds +5 at 60s and again at
// 90s, the active streak adds a flat bonus, and a high average multiplies the
// total before the floor applies.
func SessionXP(scores Scores, durationSeconds float64, streakDays int) int {
	avg := scores.Average()
	xp := math.Round(avg / 4)

	if durationSeconds >= 60 {
		xp += 5
	}
	if durationSeconds >= 90 {
		xp += 5
	}

	switch {
	case streakDays >= 7:
		xp += 15
	case streakDays >= 3:
		xp += 10
	case streakDays >= 1:
		xp += 5
	}

	switch {
	case avg >= 85:
		xp = math.Round(xp * 1.5)
	case avg >= 70:
		xp = math.Round(xp * 1.25)
	}

	return int(math.Max(10, xp))
}

// MotivationalMessage returns the home-screen encouragement line for the given
// streak and session totals.
func MotivationalMessage(streakDays, totalSessions int) string {
	switch {
	case totalSessions == 0:
		return "Prêt pour ta première session ?"
	case streakDays >= 7:
		return "🔥 " + strconv.Itoa(streakDays) + " jours d'affilée !"
	case streakDays >= 3:
		return "La régularité paie, continue !"
	case totalSessions >= 10:
		return "Tu progresses bien !"
	default:
		return "Chaque session compte 💪"
	}
}

// clamp bounds v to [lo, hi].
func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

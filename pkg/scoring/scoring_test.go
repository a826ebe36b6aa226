package scoring

import (
	"math/rand/v2"
	"testing"
)

func newTestScorer() *Scorer {
	return New(rand.New(rand.NewPCG(1, 2)))
}

func TestAnalyze_ScoreBounds(t *testing.T) {
	t.Parallel()

	s := newTestScorer()

	// Jitter is ±5, so any input must land inside the hard clamp.
	inputs := []struct {
		pace, pauses  int
		vol, variance float64
		duration      float64
	}{
		{0, 0, 0, 0, 0},
		{140, 4, 0.3, 0.1, 120},
		{300, 50, 1, 1, 10},
	}
	for _, in := range inputs {
		for i := 0; i < 50; i++ {
			r := s.Analyze(in.pace, in.pauses, in.vol, in.variance, in.duration)
			for _, score := range []int{r.Scores.Clarity, r.Scores.Impact} {
				if score < 20 || score > 100 {
					t.Fatalf("Analyze(%+v) score %d outside [20, 100]", in, score)
				}
			}
		}
	}
}

func TestAnalyze_ClarityBase(t *testing.T) {
	t.Parallel()

	s := newTestScorer()

	// Ideal pace and pause range: base 50+25+15 = 90 before jitter, so the
	// result stays within [85, 95] for a short session.
	for _, pace := range []int{120, 140, 160} {
		for _, pauses := range []int{2, 5, 8} {
			r := s.Analyze(pace, pauses, 0.3, 0.1, 20)
			if r.Scores.Clarity < 85 || r.Scores.Clarity > 95 {
				t.Errorf("Analyze(pace=%d, pauses=%d) clarity = %d, want within [85, 95]",
					pace, pauses, r.Scores.Clarity)
			}
		}
	}

	// Acceptable-but-not-ideal pace earns the smaller bonus.
	r := s.Analyze(105, 0, 0.3, 0.1, 20)
	if r.Scores.Clarity < 60 || r.Scores.Clarity > 70 {
		t.Errorf("Analyze(pace=105, pauses=0) clarity = %d, want within [60, 70]", r.Scores.Clarity)
	}
}

func TestAnalyze_FullScenario(t *testing.T) {
	t.Parallel()

	s := newTestScorer()

	// 60s free practice at pace 140, 4 pauses, healthy volume and variance:
	// clarity base 95 (50+25+15+5), impact base 95 (50+20+20+5).
	for i := 0; i < 50; i++ {
		r := s.Analyze(140, 4, 0.3, 0.1, 60)
		if r.Scores.Clarity < 90 {
			t.Fatalf("clarity = %d, want ≥ 90 for an ideal session", r.Scores.Clarity)
		}
		if r.Scores.Impact < 90 {
			t.Fatalf("impact = %d, want ≥ 90 for an ideal session", r.Scores.Impact)
		}
	}
}

func TestFeedbackFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		scores        Scores
		pace, pauses  int
		vol, variance float64
		want          []FeedbackItem
	}{
		{
			name:   "both strengths high scores",
			scores: Scores{Clarity: 90, Impact: 90},
			pace:   140, pauses: 4, vol: 0.3, variance: 0.1,
			want: []FeedbackItem{
				{FeedbackStrength, "✨", "Ton rythme est clair et facile à suivre."},
				{FeedbackStrength, "🎯", "Ta voix projette de l'assurance !"},
			},
		},
		{
			name:   "fallback strengths from raw metrics",
			scores: Scores{Clarity: 60, Impact: 60},
			pace:   140, pauses: 3, vol: 0.3, variance: 0.15,
			want: []FeedbackItem{
				{FeedbackStrength, "⏸️", "Bien joué pour les pauses."},
				{FeedbackStrength, "📈", "Belle modulation vocale."},
			},
		},
		{
			name:   "rushed session improvement first",
			scores: Scores{Clarity: 55, Impact: 55},
			pace:   180, pauses: 0, vol: 0.05, variance: 0.01,
			want: []FeedbackItem{
				{FeedbackImprovement, "🐢", "Essaie de ralentir de 20%."},
			},
		},
		{
			name:   "quiet session",
			scores: Scores{Clarity: 55, Impact: 55},
			pace:   140, pauses: 0, vol: 0.05, variance: 0.01,
			want: []FeedbackItem{
				{FeedbackImprovement, "📢", "Projette davantage ta voix."},
			},
		},
		{
			name:   "no pauses",
			scores: Scores{Clarity: 55, Impact: 55},
			pace:   140, pauses: 0, vol: 0.3, variance: 0.01,
			want: []FeedbackItem{
				{FeedbackImprovement, "💨", "Ose les silences."},
			},
		},
		{
			name:   "capped at three items",
			scores: Scores{Clarity: 90, Impact: 90},
			pace:   180, pauses: 0, vol: 0.05, variance: 0.01,
			want: []FeedbackItem{
				{FeedbackStrength, "✨", "Ton rythme est clair et facile à suivre."},
				{FeedbackStrength, "🎯", "Ta voix projette de l'assurance !"},
				{FeedbackImprovement, "🐢", "Essaie de ralentir de 20%."},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := feedbackFor(tt.scores, tt.pace, tt.pauses, tt.vol, tt.variance)
			if len(got) != len(tt.want) {
				t.Fatalf("feedbackFor() returned %d items, want %d: %+v", len(got), len(tt.want), got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("item %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestCrystalFor(t *testing.T) {
	t.Parallel()

	s := newTestScorer()

	if got := s.crystalFor(Scores{Clarity: 80, Impact: 60}); got != CrystalClarte {
		t.Errorf("crystalFor(80, 60) = %q, want clarte", got)
	}
	if got := s.crystalFor(Scores{Clarity: 60, Impact: 80}); got != CrystalImpact {
		t.Errorf("crystalFor(60, 80) = %q, want impact", got)
	}

	// A tie is broken at random between the two contested types; over many
	// draws both must appear and nothing else.
	seen := map[CrystalType]int{}
	for i := 0; i < 200; i++ {
		seen[s.crystalFor(Scores{Clarity: 70, Impact: 70})]++
	}
	if len(seen) != 2 || seen[CrystalClarte] == 0 || seen[CrystalImpact] == 0 {
		t.Errorf("tie-break distribution = %v, want both clarte and impact", seen)
	}
}

func TestSessionXP(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		scores   Scores
		duration float64
		streak   int
		want     int
	}{
		{"floor at minimum scores", Scores{20, 20}, 0, 0, 10},
		{"floor with short session", Scores{30, 30}, 10, 0, 10},
		{"plain average", Scores{60, 60}, 30, 0, 15},
		{"duration bonuses", Scores{60, 60}, 95, 0, 25},
		{"streak one day", Scores{60, 60}, 30, 1, 20},
		{"streak three days", Scores{60, 60}, 30, 3, 25},
		{"streak seven days", Scores{60, 60}, 30, 7, 30},
		{"multiplier at 70", Scores{70, 70}, 30, 0, 23}, // round(18*1.25)
		{"multiplier at 85", Scores{90, 90}, 95, 7, 72}, // round((23+10+15)*1.5)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := SessionXP(tt.scores, tt.duration, tt.streak); got != tt.want {
				t.Errorf("SessionXP(%+v, %v, %d) = %d, want %d",
					tt.scores, tt.duration, tt.streak, got, tt.want)
			}
		})
	}
}

func TestSessionXP_FloorInvariant(t *testing.T) {
	t.Parallel()

	// XP never drops below 10 for any score/duration/streak combination.
	for clarity := 20; clarity <= 100; clarity += 20 {
		for _, dur := range []float64{0, 30, 60, 90, 600} {
			for _, streak := range []int{0, 1, 3, 7, 30} {
				got := SessionXP(Scores{clarity, clarity}, dur, streak)
				if got < 10 {
					t.Fatalf("SessionXP(clarity=%d, dur=%v, streak=%d) = %d, want ≥ 10",
						clarity, dur, streak, got)
				}
			}
		}
	}
}

func TestMotivationalMessage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		streak, sessions int
		want             string
	}{
		{0, 0, "Prêt pour ta première session ?"},
		{8, 5, "🔥 8 jours d'affilée !"},
		{3, 5, "La régularité paie, continue !"},
		{0, 12, "Tu progresses bien !"},
		{1, 5, "Chaque session compte 💪"},
	}
	for _, tt := range tests {
		if got := MotivationalMessage(tt.streak, tt.sessions); got != tt.want {
			t.Errorf("MotivationalMessage(%d, %d) = %q, want %q", tt.streak, tt.sessions, got, tt.want)
		}
	}
}

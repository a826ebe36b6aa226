package coach

import (
	"context"

	"github.com/spinhq/cadence/pkg/scoring"
)

// Static is the deterministic fallback [Provider]. It picks a fixed French
// line from the session's average score band, so the same result always
// yields the same commentary.
type Static struct{}

var _ Provider = Static{}

// Comment implements [Provider]. It never fails.
func (Static) Comment(_ context.Context, result scoring.Result, durationSeconds int) (string, error) {
	avg := result.Scores.Average()
	switch {
	case avg >= 85:
		return "Performance remarquable ! Ta voix porte, garde ce cap.", nil
	case avg >= 70:
		return "Très belle session, ta progression est nette.", nil
	case avg >= 50:
		if durationSeconds < 60 {
			return "Bon début — essaie une session un peu plus longue la prochaine fois.", nil
		}
		return "Session solide. Travaille tes pauses pour passer un palier.", nil
	default:
		return "Chaque session compte. Reviens demain, la régularité fait tout.", nil
	}
}

package advice

import (
	"context"
	"fmt"

	"github.com/Billy-Davies-2/draft-engine/internal/draft"
	"github.com/Billy-Davies-2/draft-engine/internal/models"
)

const (
	soonPicks  = 12
	farPicks   = 24
	soonFactor = 0.8
	farFactor  = 1.3
)

// DraftAdvantage scores the opportunity cost of waiting: the player's value
// now minus what the same position is expected to offer at the team's
// following pick
type DraftAdvantage struct{}

func (DraftAdvantage) Name() string { return ModeDraftAdvantage }

// ExpectedReplacement returns the VORP expected to remain at a position after
// picksAway picks, assuming one player there leaves every teams picks.
// others must exclude the candidate and be sorted by VORP descending.
func ExpectedReplacement(others []draft.Candidate, picksAway, teams int) float64 {
	if teams <= 0 {
		return 0
	}
	gone := picksAway / teams
	if gone >= len(others) {
		return 0
	}
	return others[gone].VORP
}

// DistanceFactor scales the advantage by how long the team must wait
func DistanceFactor(picksAway int) float64 {
	switch {
	case picksAway <= soonPicks:
		return soonFactor
	case picksAway >= farPicks:
		return farFactor
	default:
		return 1
	}
}

func (DraftAdvantage) Rank(_ context.Context, v *draft.View, limit int) []models.Recommendation {
	byPos := make(map[models.Position][]draft.Candidate)
	for _, c := range v.Remaining {
		byPos[c.Player.Position] = append(byPos[c.Player.Position], c)
	}
	picksAway, hasNext := v.PicksUntilFollowing()

	items := make([]scored, 0, len(v.Remaining))
	for _, c := range v.Remaining {
		pos := c.Player.Position

		expected := 0.0
		if hasNext {
			others := make([]draft.Candidate, 0, len(byPos[pos]))
			for _, o := range byPos[pos] {
				if o.Player.ID != c.Player.ID {
					others = append(others, o)
				}
			}
			expected = ExpectedReplacement(others, picksAway, v.Teams)
		}

		das := c.VORP - expected
		why := fmt.Sprintf("VORP %.1f vs %.1f expected at next turn", c.VORP, expected)
		if hasNext {
			// plain scaling: a far next turn magnifies either sign
			das *= DistanceFactor(picksAway)
			why += fmt.Sprintf(" (%d picks away)", picksAway)
		} else {
			why += " (last pick)"
		}

		if pen := v.LineupPenalty(pos); pen != 1 {
			// the penalty always moves the score down, whatever its sign
			if das < 0 && pen > 0 {
				das /= pen
			} else {
				das *= pen
			}
			why += fmt.Sprintf(", %s starters already filled", pos)
		}
		items = append(items, scored{c: c, score: das, why: why})
	}
	return top(v, items, limit)
}

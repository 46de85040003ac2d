package draft

import (
	"github.com/Billy-Davies-2/draft-engine/internal/config"
	"github.com/Billy-Davies-2/draft-engine/internal/models"
)

// Need is the number of unfilled starter slots at a position
func Need(required, count int) int {
	if count >= required {
		return 0
	}
	return required - count
}

// NeedScore weights raw need by how scarce the position currently is
func NeedScore(need int, scarcityScore float64) float64 {
	return float64(need) * (1 + scarcityScore/10)
}

// LineupFilled reports whether every RB/WR/TE starter slot, FLEX included,
// is covered by the given positional counts
func LineupFilled(league config.League, counts map[models.Position]int) bool {
	surplus := 0
	for _, pos := range []models.Position{models.RB, models.WR, models.TE} {
		req := league.StartersFor(pos)
		if counts[pos] < req {
			return false
		}
		surplus += counts[pos] - req
	}
	return surplus >= league.Flex
}

// recomputeNeeds must run with d.mu held
func (d *Draft) recomputeNeeds(team int) map[models.Position]float64 {
	roster := d.rosters[team]
	for _, pos := range models.Positions {
		need := Need(d.settings.League.StartersFor(pos), roster.PositionalCounts[pos])
		roster.NeedScores[pos] = NeedScore(need, d.scarcity[pos].ScarcityScore)
	}
	return copyNeeds(roster.NeedScores)
}

func copyNeeds(in map[models.Position]float64) map[models.Position]float64 {
	out := make(map[models.Position]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

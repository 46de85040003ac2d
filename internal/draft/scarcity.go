package draft

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/Billy-Davies-2/draft-engine/internal/models"
)

const (
	scarcityTopN        = 10
	urgentScarcityScore = 2.0
	urgentTierDropoff   = 0.15
)

// Scarcity summarizes a position from its remaining VORP values, which must be
// sorted descending
func Scarcity(pos models.Position, vorps []float64, teams int, replacement float64) models.ScarcityMetrics {
	m := models.ScarcityMetrics{
		Position:         pos,
		ReplacementLevel: replacement,
		PlayersRemaining: len(vorps),
	}
	if len(vorps) == 0 {
		return m
	}

	top := vorps
	if len(top) > scarcityTopN {
		top = top[:scarcityTopN]
	}
	m.AvgVORPRemaining = stat.Mean(top, nil)

	for i := 0; i+1 < len(vorps); i++ {
		if vorps[i] <= 0 {
			continue
		}
		if drop := (vorps[i] - vorps[i+1]) / vorps[i]; drop > m.TierDropoff {
			m.TierDropoff = drop
		}
	}

	m.ScarcityScore = m.AvgVORPRemaining * math.Sqrt(float64(teams)) / math.Max(1, float64(len(vorps)))
	m.UrgencyFlag = m.ScarcityScore > urgentScarcityScore || m.TierDropoff > urgentTierDropoff
	return m
}

// scarcityFor relies on byPosition being sorted by projection, which keeps
// VORP sorted as well since the floor is monotone
func (d *Draft) scarcityFor(pos models.Position) models.ScarcityMetrics {
	ids := d.byPosition[pos]
	vorps := make([]float64, len(ids))
	for i, id := range ids {
		vorps[i] = d.vorp[id]
	}
	return Scarcity(pos, vorps, d.settings.Teams, d.replacement[pos])
}

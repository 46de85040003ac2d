package advice

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"github.com/Billy-Davies-2/draft-engine/internal/draft"
	"github.com/Billy-Davies-2/draft-engine/internal/models"
)

const (
	ecrTrust        = 0.2
	ecrBetterMargin = 0.9
	maxFallBonus    = 20.0
	fallExponent    = 1.5
	baseJitter      = 0.15
)

// BotRealistic predicts what a typical human drafter would take: mostly
// consensus rank, a little need, hard penalties for reaches and growing
// pull toward players who slide
type BotRealistic struct{}

func (BotRealistic) Name() string { return ModeBotRealistic }

// BlendedRank leans on ADP and lets ECR pull it forward only when the
// experts are clearly higher on the player
func BlendedRank(adp, ecr float64) float64 {
	if ecr > 0 && ecr < adp*ecrBetterMargin {
		return (1-ecrTrust)*adp + ecrTrust*ecr
	}
	return adp
}

// RoundWeights returns the consensus and need weights for a round
func RoundWeights(round int) (consensus, need float64) {
	switch {
	case round <= 3:
		return 0.95, 0.05
	case round <= 6:
		return 0.85, 0.15
	default:
		return 0.70, 0.30
	}
}

// ReachMultiplier punishes taking a player a round or more ahead of their rank
func ReachMultiplier(roundsEarly float64) float64 {
	switch {
	case roundsEarly >= 2:
		return 0.01
	case roundsEarly >= 1:
		return 0.1
	default:
		return 1
	}
}

// FallMultiplier grows superlinearly with the number of rounds a player has slid
func FallMultiplier(roundsFallen float64) float64 {
	if roundsFallen <= 0 {
		return 1
	}
	return math.Min(maxFallBonus, math.Pow(1+roundsFallen, fallExponent))
}

// JitterAmplitude shrinks toward zero for big steals
func JitterAmplitude(roundsFallen float64) float64 {
	if roundsFallen <= 0 {
		return baseJitter
	}
	return baseJitter / (1 + roundsFallen*roundsFallen)
}

func (b BotRealistic) Rank(_ context.Context, v *draft.View, limit int) []models.Recommendation {
	if len(v.Remaining) == 0 {
		return []models.Recommendation{}
	}

	pickNo := float64(v.PickIndex + 1)
	if v.HasUpcomingPick {
		pickNo = float64(v.UpcomingPick + 1)
	}
	round := int(math.Ceil(pickNo / float64(v.Teams)))
	wConsensus, wNeed := RoundWeights(round)

	poolSize := float64(v.League.CatalogSize)
	if poolSize <= 0 {
		poolSize = float64(v.PickIndex + len(v.Remaining))
	}
	maxNeed := 0.0
	for _, n := range v.NeedScores {
		maxNeed = math.Max(maxNeed, n)
	}

	rng := rand.New(rand.NewSource(v.Seed*31 + int64(v.TeamID)))
	teams := float64(v.Teams)

	items := make([]scored, 0, len(v.Remaining))
	for _, c := range v.Remaining {
		rank := BlendedRank(c.ADP, c.Player.ECR)

		consensus := 100 * math.Max(0, 1-(rank-1)/poolSize)
		need := 0.0
		if maxNeed > 0 {
			need = 100 * v.NeedScores[c.Player.Position] / maxNeed
		}
		score := wConsensus*consensus + wNeed*need

		early := (rank - pickNo) / teams
		fallen := (pickNo - rank) / teams
		score *= ReachMultiplier(early)
		score *= FallMultiplier(fallen)
		score *= 1 + JitterAmplitude(fallen)*(2*rng.Float64()-1)

		why := fmt.Sprintf("rank %.1f at pick %.0f", rank, pickNo)
		switch {
		case early >= 1:
			why += fmt.Sprintf(", a %.1f-round reach", early)
		case fallen >= 1:
			why += fmt.Sprintf(", slid %.1f rounds", fallen)
		}
		items = append(items, scored{c: c, score: score, why: why})
	}
	return top(v, items, limit)
}

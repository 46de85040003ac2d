package advice

import (
	"context"
	"fmt"

	"github.com/Billy-Davies-2/draft-engine/internal/draft"
	"github.com/Billy-Davies-2/draft-engine/internal/models"
)

// BestVORP ranks purely by cached VORP
type BestVORP struct{}

func (BestVORP) Name() string { return ModeBestVORP }

func (BestVORP) Rank(_ context.Context, v *draft.View, limit int) []models.Recommendation {
	items := make([]scored, 0, len(v.Remaining))
	for _, c := range v.Remaining {
		items = append(items, scored{
			c:     c,
			score: c.VORP,
			why:   fmt.Sprintf("%.1f points over %s replacement", c.VORP, c.Player.Position),
		})
	}
	return top(v, items, limit)
}

// FillNeed ranks by need score times VORP
type FillNeed struct{}

func (FillNeed) Name() string { return ModeFillNeed }

func (FillNeed) Rank(_ context.Context, v *draft.View, limit int) []models.Recommendation {
	items := make([]scored, 0, len(v.Remaining))
	for _, c := range v.Remaining {
		need := v.NeedScores[c.Player.Position]
		items = append(items, scored{
			c:     c,
			score: need * c.VORP,
			why:   fmt.Sprintf("fills %s need %.2f with VORP %.1f", c.Player.Position, need, c.VORP),
		})
	}
	return top(v, items, limit)
}

// Upside orders by VORP like BestVORP and calls out players whose expert
// rank runs ahead of the market
type Upside struct{}

func (Upside) Name() string { return ModeUpside }

func (Upside) Rank(_ context.Context, v *draft.View, limit int) []models.Recommendation {
	items := make([]scored, 0, len(v.Remaining))
	for _, c := range v.Remaining {
		why := fmt.Sprintf("VORP %.1f", c.VORP)
		if ecr := c.Player.ECR; ecr > 0 && ecr < c.ADP {
			why += fmt.Sprintf(", experts rank %.0f vs ADP %.1f", ecr, c.ADP)
		}
		items = append(items, scored{c: c, score: c.VORP, why: why})
	}
	return top(v, items, limit)
}

// Robust blends VORP, need and scarcity and applies the lineup penalty
type Robust struct{}

func (Robust) Name() string { return ModeRobust }

func (Robust) Rank(_ context.Context, v *draft.View, limit int) []models.Recommendation {
	items := make([]scored, 0, len(v.Remaining))
	for _, c := range v.Remaining {
		pos := c.Player.Position
		need := v.NeedScores[pos]
		scarcity := v.Scarcity[pos].ScarcityScore
		score := c.VORP + 2*need + 1.5*scarcity

		why := fmt.Sprintf("VORP %.1f, need %.2f, scarcity %.2f", c.VORP, need, scarcity)
		if pen := v.LineupPenalty(pos); pen != 1 {
			score *= pen
			why += fmt.Sprintf(", %s starters already filled (x%.2f)", pos, pen)
		}
		items = append(items, scored{c: c, score: score, why: why})
	}
	return top(v, items, limit)
}

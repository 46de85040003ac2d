package advice

import (
	"context"
	"fmt"
	"math"

	"github.com/Billy-Davies-2/draft-engine/internal/draft"
	"github.com/Billy-Davies-2/draft-engine/internal/logger"
	"github.com/Billy-Davies-2/draft-engine/internal/models"
)

const calibratedEarlyRounds = 8

// Calibration supplies fitted Plackett-Luce utilities keyed by player id.
// An empty map with a nil error means no fit is available yet.
type Calibration interface {
	Utilities(ctx context.Context, mode models.ScoringMode) (map[string]float64, error)
}

// InitialUtility is the starting utility for a player without a fitted value
func InitialUtility(adp float64) float64 {
	return math.Log(math.Max(1, 300-adp))
}

// NeedMultiplier boosts positions the team still has to fill, more so late
func NeedMultiplier(need int, round int) float64 {
	if round <= calibratedEarlyRounds {
		return 1 + float64(need)*0.2
	}
	return 1 + float64(need)*0.5
}

// Calibrated ranks by Plackett-Luce choice probability. Without a
// calibration it hands the view to its fallback.
type Calibrated struct {
	source   Calibration
	fallback Strategy
}

// NewCalibrated wraps a calibration source; source may be nil
func NewCalibrated(source Calibration, fallback Strategy) *Calibrated {
	return &Calibrated{source: source, fallback: fallback}
}

func (c *Calibrated) Name() string { return ModeCalibrated }

func (c *Calibrated) Rank(ctx context.Context, v *draft.View, limit int) []models.Recommendation {
	if len(v.Remaining) == 0 {
		return []models.Recommendation{}
	}
	if c.source == nil {
		return c.fallback.Rank(ctx, v, limit)
	}

	utils, err := c.source.Utilities(ctx, v.Scoring)
	if err != nil {
		logger.Warn("Calibration unavailable, using bot model", "error", err, "draft_id", v.DraftID)
		return c.fallback.Rank(ctx, v, limit)
	}
	if len(utils) == 0 {
		logger.Debug("No fitted calibration, using bot model", "draft_id", v.DraftID)
		return c.fallback.Rank(ctx, v, limit)
	}

	logits := make([]float64, len(v.Remaining))
	maxLogit := math.Inf(-1)
	for i, cand := range v.Remaining {
		u, ok := utils[cand.Player.ID]
		if !ok {
			u = InitialUtility(cand.ADP)
		}
		logits[i] = u + math.Log(NeedMultiplier(v.Needs[cand.Player.Position], v.Round))
		maxLogit = math.Max(maxLogit, logits[i])
	}

	sum := 0.0
	weights := make([]float64, len(logits))
	for i, l := range logits {
		weights[i] = math.Exp(l - maxLogit)
		sum += weights[i]
	}

	items := make([]scored, 0, len(v.Remaining))
	for i, cand := range v.Remaining {
		p := weights[i] / sum
		items = append(items, scored{
			c:     cand,
			score: p,
			why:   fmt.Sprintf("%.1f%% chance to be taken next", p*100),
		})
	}
	return top(v, items, limit)
}

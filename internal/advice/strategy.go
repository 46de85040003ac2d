package advice

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/Billy-Davies-2/draft-engine/internal/draft"
	"github.com/Billy-Davies-2/draft-engine/internal/models"
)

// Strategy mode names
const (
	ModeBestVORP       = "best_vorp"
	ModeFillNeed       = "fill_need"
	ModeUpside         = "upside"
	ModeRobust         = "robust"
	ModeBotRealistic   = "bot_realistic"
	ModeDraftAdvantage = "draft_advantage"
	ModeCalibrated     = "calibrated"

	DefaultMode  = ModeRobust
	DefaultLimit = 5
)

// ErrUnknownMode is returned for a mode that has no registered strategy
var ErrUnknownMode = errors.New("unknown advice mode")

// Strategy ranks the remaining pool for the team a view was built for
type Strategy interface {
	Name() string
	Rank(ctx context.Context, v *draft.View, limit int) []models.Recommendation
}

// Registry dispatches mode names to strategies
type Registry struct {
	strategies map[string]Strategy
}

// NewRegistry registers every built-in strategy. cal may be nil, in which
// case the calibrated mode always falls back to the bot model.
func NewRegistry(cal Calibration) *Registry {
	r := &Registry{strategies: make(map[string]Strategy)}
	bot := BotRealistic{}
	r.Register(BestVORP{})
	r.Register(FillNeed{})
	r.Register(Upside{})
	r.Register(Robust{})
	r.Register(bot)
	r.Register(DraftAdvantage{})
	r.Register(NewCalibrated(cal, bot))
	return r
}

// Register adds or replaces a strategy under its own name
func (r *Registry) Register(s Strategy) {
	r.strategies[s.Name()] = s
}

// Get looks up a strategy. An empty mode selects DefaultMode.
func (r *Registry) Get(mode string) (Strategy, error) {
	if mode == "" {
		mode = DefaultMode
	}
	s, ok := r.strategies[mode]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
	return s, nil
}

// Names lists the registered modes in sorted order
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Rank resolves mode and ranks the view with it
func (r *Registry) Rank(ctx context.Context, mode string, v *draft.View, limit int) ([]models.Recommendation, error) {
	s, err := r.Get(mode)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	return s.Rank(ctx, v, limit), nil
}

type scored struct {
	c     draft.Candidate
	score float64
	why   string
}

// top sorts by score and converts the first limit entries
func top(v *draft.View, items []scored, limit int) []models.Recommendation {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].score != items[j].score {
			return items[i].score > items[j].score
		}
		if items[i].c.VORP != items[j].c.VORP {
			return items[i].c.VORP > items[j].c.VORP
		}
		return items[i].c.Player.ID < items[j].c.Player.ID
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}

	out := make([]models.Recommendation, 0, len(items))
	for _, it := range items {
		p := it.c.Player
		urgent := v.Scarcity[p.Position].UrgencyFlag
		why := it.why
		if urgent {
			why += "; " + string(p.Position) + " is drying up"
		}
		out = append(out, models.Recommendation{
			PlayerID:      p.ID,
			Name:          p.Name,
			Position:      p.Position,
			Score:         it.score,
			VORP:          it.c.VORP,
			Justification: why,
			ScarcityFlag:  urgent,
		})
	}
	return out
}

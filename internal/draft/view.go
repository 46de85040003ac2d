package draft

import (
	"fmt"
	"sort"

	"github.com/Billy-Davies-2/draft-engine/internal/config"
	"github.com/Billy-Davies-2/draft-engine/internal/models"
)

// Candidate is one remaining player as seen by a ranking strategy
type Candidate struct {
	Player     models.Player
	Projection float64
	VORP       float64
	ADP        float64
}

// View is a consistent copy of everything a strategy needs to rank the pool
// for one team. It is detached from the draft and safe to use without locks.
type View struct {
	DraftID string
	Teams   int
	Snake   bool
	Scoring models.ScoringMode
	League  config.League
	Seed    int64

	TeamID    int
	PickIndex int
	Round     int

	// UpcomingPick is the team's next slot at or after the pointer, FollowingPick the one after it
	UpcomingPick     int
	HasUpcomingPick  bool
	FollowingPick    int
	HasFollowingPick bool

	// Remaining is sorted by VORP descending
	Remaining  []Candidate
	Scarcity   map[models.Position]models.ScarcityMetrics
	Counts     map[models.Position]int
	Needs      map[models.Position]int
	NeedScores map[models.Position]float64
}

// View returns a ranking view for team. Callers wanting every position
// populated should call EnsureRemaining first.
func (d *Draft) View(team int) (*View, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	roster, ok := d.rosters[team]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownTeam, team)
	}

	v := &View{
		DraftID:    d.id,
		Teams:      d.settings.Teams,
		Snake:      d.settings.Snake,
		Scoring:    d.settings.Scoring,
		League:     d.settings.League,
		Seed:       d.settings.Seed + int64(d.current),
		TeamID:     team,
		PickIndex:  d.current,
		Remaining:  make([]Candidate, 0, len(d.remaining)),
		Scarcity:   make(map[models.Position]models.ScarcityMetrics, len(d.scarcity)),
		Counts:     make(map[models.Position]int, len(models.Positions)),
		Needs:      make(map[models.Position]int, len(models.Positions)),
		NeedScores: copyNeeds(roster.NeedScores),
	}

	idx := d.current
	if idx >= len(d.order) {
		idx = len(d.order) - 1
	}
	v.Round, _ = RoundAndPick(idx, d.settings.Teams)

	if up, ok := d.nextSlot(team, d.current); ok {
		v.UpcomingPick, v.HasUpcomingPick = up, true
		v.FollowingPick, v.HasFollowingPick = d.nextSlot(team, up+1)
	}

	for pos, m := range d.scarcity {
		v.Scarcity[pos] = m
	}
	for _, pos := range models.Positions {
		c := roster.PositionalCounts[pos]
		v.Counts[pos] = c
		v.Needs[pos] = Need(d.settings.League.StartersFor(pos), c)
	}

	for _, id := range d.catalog {
		if _, ok := d.remaining[id]; !ok {
			continue
		}
		p := d.players[id]
		v.Remaining = append(v.Remaining, Candidate{
			Player:     p,
			Projection: d.projection[id],
			VORP:       d.vorp[id],
			ADP:        p.ADP(d.settings.Scoring),
		})
	}
	sort.SliceStable(v.Remaining, func(i, j int) bool {
		a, b := v.Remaining[i], v.Remaining[j]
		if a.VORP != b.VORP {
			return a.VORP > b.VORP
		}
		return a.Projection > b.Projection
	})
	return v, nil
}

// PicksUntilFollowing is the distance between the team's upcoming and following slots
func (v *View) PicksUntilFollowing() (int, bool) {
	if !v.HasFollowingPick {
		return 0, false
	}
	return v.FollowingPick - v.UpcomingPick, true
}

// AtPosition returns the remaining candidates at pos, still sorted by VORP
func (v *View) AtPosition(pos models.Position) []Candidate {
	out := make([]Candidate, 0)
	for _, c := range v.Remaining {
		if c.Player.Position == pos {
			out = append(out, c)
		}
	}
	return out
}

// LineupPenalty returns the multiplier applied to a candidate at pos when the
// team already has that position's starters but RB/WR/TE/FLEX are still open
func (v *View) LineupPenalty(pos models.Position) float64 {
	p := v.League.LineupPenalty
	if v.Round > p.RoundThreshold {
		return 1
	}
	if v.Counts[pos] < v.League.StartersFor(pos) {
		return 1
	}
	if LineupFilled(v.League, v.Counts) {
		return 1
	}
	if pos == models.TE {
		return p.TEMultiplier
	}
	return p.Multiplier
}

package draft

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Billy-Davies-2/draft-engine/internal/config"
	"github.com/Billy-Davies-2/draft-engine/internal/models"
)

// Settings are fixed when a draft is created
type Settings struct {
	Teams     int
	DraftSpot int
	Snake     bool
	Scoring   models.ScoringMode
	League    config.League
	// Seed drives every randomized ranking for this draft
	Seed int64
}

// Validate rejects settings before a draft is built
func (s Settings) Validate() error {
	if s.Teams <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidTeamCount, s.Teams)
	}
	if s.DraftSpot < 1 || s.DraftSpot > s.Teams {
		return fmt.Errorf("%w: %d not in 1..%d", ErrInvalidDraftSpot, s.DraftSpot, s.Teams)
	}
	switch s.Scoring {
	case models.PPR, models.HalfPPR, models.Standard:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidScoringMode, s.Scoring)
	}
	return s.League.Validate()
}

// Draft is the authoritative state of one draft. make pick is its only
// mutator; every method is safe for concurrent use.
type Draft struct {
	mu sync.RWMutex

	id        string
	settings  Settings
	createdAt time.Time
	now       func() time.Time

	order   []int
	current int
	picks   []models.Pick

	players    map[string]models.Player
	catalog    []string
	projection map[string]float64
	remaining  map[string]struct{}
	// remaining ids per position, sorted by projection descending
	byPosition map[models.Position][]string

	rosters      map[int]*models.TeamRoster
	vorp         map[string]float64
	scarcity     map[models.Position]models.ScarcityMetrics
	replacement  map[models.Position]float64
	drafted      map[models.Position]int
	materialized map[models.Position]bool
	// lazy materializations, replayed at the same pick index on restore
	ensured []EnsureMark
}

// EnsureMark records a lazy materialization of pos after AtPick picks
type EnsureMark struct {
	Position models.Position `json:"position"`
	AtPick   int             `json:"atPick"`
}

// New builds a draft over the catalog and eagerly materializes the league's
// primary positions
func New(id string, s Settings, catalog []models.Player) (*Draft, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if len(catalog) == 0 {
		return nil, ErrEmptyCatalog
	}

	order, err := GenerateOrder(s.Teams, s.League.Rounds, s.Snake)
	if err != nil {
		return nil, err
	}

	d := &Draft{
		id:           id,
		settings:     s,
		createdAt:    time.Now(),
		now:          time.Now,
		order:        order,
		picks:        make([]models.Pick, 0, len(order)),
		players:      make(map[string]models.Player, len(catalog)),
		catalog:      make([]string, 0, len(catalog)),
		projection:   make(map[string]float64, len(catalog)),
		remaining:    make(map[string]struct{}, len(catalog)),
		byPosition:   make(map[models.Position][]string, len(models.Positions)),
		rosters:      make(map[int]*models.TeamRoster, s.Teams),
		vorp:         make(map[string]float64, len(catalog)),
		scarcity:     make(map[models.Position]models.ScarcityMetrics, len(models.Positions)),
		replacement:  make(map[models.Position]float64, len(models.Positions)),
		drafted:      make(map[models.Position]int, len(models.Positions)),
		materialized: make(map[models.Position]bool, len(models.Positions)),
	}

	for _, p := range catalog {
		if p.ID == "" {
			return nil, fmt.Errorf("catalog player %q has no id", p.Name)
		}
		if _, dup := d.players[p.ID]; dup {
			return nil, fmt.Errorf("duplicate catalog player id %q", p.ID)
		}
		if _, err := models.ParsePosition(string(p.Position)); err != nil {
			return nil, fmt.Errorf("catalog player %q: %w", p.ID, err)
		}
		d.players[p.ID] = p
		d.catalog = append(d.catalog, p.ID)
		d.projection[p.ID] = p.Projection(s.Scoring)
		d.remaining[p.ID] = struct{}{}
		d.byPosition[p.Position] = append(d.byPosition[p.Position], p.ID)
	}

	for _, pos := range models.Positions {
		ids := d.byPosition[pos]
		sort.SliceStable(ids, func(i, j int) bool {
			pi, pj := d.projection[ids[i]], d.projection[ids[j]]
			if pi != pj {
				return pi > pj
			}
			return ids[i] < ids[j]
		})
		d.drafted[pos] = 0
		d.scarcity[pos] = models.ScarcityMetrics{Position: pos}
	}

	for team := 1; team <= s.Teams; team++ {
		d.rosters[team] = newRoster(team)
	}

	for _, pos := range s.League.Eager() {
		d.recomputePosition(pos)
	}
	for team := 1; team <= s.Teams; team++ {
		d.recomputeNeeds(team)
	}

	return d, nil
}

func newRoster(team int) *models.TeamRoster {
	r := &models.TeamRoster{
		TeamID:           team,
		Picks:            []string{},
		PositionalCounts: make(map[models.Position]int, len(models.Positions)),
		NeedScores:       make(map[models.Position]float64, len(models.Positions)),
	}
	for _, pos := range models.Positions {
		r.PositionalCounts[pos] = 0
		r.NeedScores[pos] = 0
	}
	return r
}

// ID returns the draft identifier
func (d *Draft) ID() string { return d.id }

// Settings returns the creation settings
func (d *Draft) Settings() Settings { return d.settings }

// CreatedAt returns when the draft was built
func (d *Draft) CreatedAt() time.Time { return d.createdAt }

// MakePick drafts playerID for the team on the clock
func (d *Draft) MakePick(playerID string) (*models.PickResult, error) {
	return d.makePickAt(playerID, time.Time{})
}

func (d *Draft) makePickAt(playerID string, at time.Time) (*models.PickResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	// every check happens before the first write
	if d.current >= len(d.order) {
		return nil, ErrDraftComplete
	}
	player, ok := d.players[playerID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPlayer, playerID)
	}
	if _, ok := d.remaining[playerID]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrPlayerUnavailable, playerID)
	}

	if at.IsZero() {
		at = d.now()
	}
	team := d.order[d.current]
	round, inRound := RoundAndPick(d.current, d.settings.Teams)
	pick := models.Pick{
		PickIndex:   d.current,
		TeamID:      team,
		PlayerID:    playerID,
		RoundNumber: round,
		PickInRound: inRound,
		Timestamp:   at.Unix(),
	}
	pickedVORP := d.vorp[playerID]

	d.picks = append(d.picks, pick)
	delete(d.remaining, playerID)
	delete(d.vorp, playerID)
	d.removeFromPosition(player.Position, playerID)
	d.drafted[player.Position]++
	roster := d.rosters[team]
	roster.Picks = append(roster.Picks, playerID)
	roster.PositionalCounts[player.Position]++
	d.current++

	updated := d.recomputePosition(player.Position)
	needs := d.recomputeNeeds(team)

	result := &models.PickResult{
		Pick:            pick,
		Player:          player,
		PickedVORP:      pickedVORP,
		UpdatedVORP:     updated,
		UpdatedScarcity: d.scarcity[player.Position],
		TeamNeeds:       needs,
		NextPickIndex:   d.current,
		Complete:        d.current >= len(d.order),
	}
	if !result.Complete {
		result.NextTeamID = d.order[d.current]
	}
	return result, nil
}

func (d *Draft) removeFromPosition(pos models.Position, id string) {
	ids := d.byPosition[pos]
	for i, cur := range ids {
		if cur == id {
			d.byPosition[pos] = append(ids[:i], ids[i+1:]...)
			return
		}
	}
}

// EnsurePosition materializes replacement level, VORP and scarcity for a
// position that has not been computed yet. It reports whether work was done.
func (d *Draft) EnsurePosition(pos models.Position) bool {
	d.mu.RLock()
	done := d.materialized[pos]
	d.mu.RUnlock()
	if done {
		return false
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.materialized[pos] {
		return false
	}
	d.recomputePosition(pos)
	d.ensured = append(d.ensured, EnsureMark{Position: pos, AtPick: d.current})
	return true
}

// EnsureRemaining materializes every position that still has players
func (d *Draft) EnsureRemaining() {
	for _, pos := range models.Positions {
		d.mu.RLock()
		n := len(d.byPosition[pos])
		d.mu.RUnlock()
		if n > 0 {
			d.EnsurePosition(pos)
		}
	}
}

// CurrentTeam returns the team on the clock, false once the draft is complete
func (d *Draft) CurrentTeam() (int, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.current >= len(d.order) {
		return 0, false
	}
	return d.order[d.current], true
}

// CurrentPickIndex returns the 0-based pointer
func (d *Draft) CurrentPickIndex() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.current
}

// RoundAndPick converts a pick index of this draft to round and pick in round
func (d *Draft) RoundAndPick(pickIndex int) (int, int) {
	return RoundAndPick(pickIndex, d.settings.Teams)
}

// IsComplete reports whether every slot has been used
func (d *Draft) IsComplete() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.current >= len(d.order)
}

// UserNextPickIndex returns the user's next slot at or after the pointer
func (d *Draft) UserNextPickIndex() (int, bool) {
	return d.NextPickIndexFor(d.settings.DraftSpot)
}

// NextPickIndexFor returns the team's next slot at or after the pointer
func (d *Draft) NextPickIndexFor(team int) (int, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.nextSlot(team, d.current)
}

func (d *Draft) nextSlot(team, from int) (int, bool) {
	for i := from; i < len(d.order); i++ {
		if d.order[i] == team {
			return i, true
		}
	}
	return 0, false
}

// Order returns a copy of the full draft order
func (d *Draft) Order() []int {
	out := make([]int, len(d.order))
	copy(out, d.order)
	return out
}

// Picks returns a copy of the pick log
func (d *Draft) Picks() []models.Pick {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]models.Pick, len(d.picks))
	copy(out, d.picks)
	return out
}

// Catalog returns the players the draft was created with, in catalog order
func (d *Draft) Catalog() []models.Player {
	out := make([]models.Player, 0, len(d.catalog))
	for _, id := range d.catalog {
		out = append(out, d.players[id])
	}
	return out
}

// Player looks up a catalog player
func (d *Draft) Player(id string) (models.Player, bool) {
	p, ok := d.players[id]
	return p, ok
}

// IsRemaining reports whether a player can still be drafted
func (d *Draft) IsRemaining(id string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.remaining[id]
	return ok
}

// RemainingIDs returns the undrafted player ids in catalog order
func (d *Draft) RemainingIDs() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]string, 0, len(d.remaining))
	for _, id := range d.catalog {
		if _, ok := d.remaining[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

// DraftedCount returns how many players at pos have been drafted
func (d *Draft) DraftedCount(pos models.Position) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.drafted[pos]
}

// VORPOf returns the cached VORP of a remaining player
func (d *Draft) VORPOf(id string) (float64, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	v, ok := d.vorp[id]
	return v, ok
}

// ReplacementLevelOf returns the cached replacement level of a position
func (d *Draft) ReplacementLevelOf(pos models.Position) float64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.replacement[pos]
}

// ScarcityOf returns the cached scarcity metrics of a position
func (d *Draft) ScarcityOf(pos models.Position) models.ScarcityMetrics {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.scarcity[pos]
}

// Roster returns a copy of a team's roster
func (d *Draft) Roster(team int) (models.TeamRoster, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	r, ok := d.rosters[team]
	if !ok {
		return models.TeamRoster{}, fmt.Errorf("%w: %d", ErrUnknownTeam, team)
	}
	return copyRoster(r), nil
}

func copyRoster(r *models.TeamRoster) models.TeamRoster {
	out := models.TeamRoster{
		TeamID:           r.TeamID,
		Picks:            append([]string(nil), r.Picks...),
		PositionalCounts: make(map[models.Position]int, len(r.PositionalCounts)),
		NeedScores:       copyNeeds(r.NeedScores),
	}
	for k, v := range r.PositionalCounts {
		out.PositionalCounts[k] = v
	}
	return out
}

// Ranked lists remaining players by VORP, optionally for one position.
// limit <= 0 returns everything.
func (d *Draft) Ranked(pos *models.Position, limit int) []models.RankedPlayer {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]models.RankedPlayer, 0, len(d.remaining))
	for _, id := range d.catalog {
		if _, ok := d.remaining[id]; !ok {
			continue
		}
		p := d.players[id]
		if pos != nil && p.Position != *pos {
			continue
		}
		sc := d.scarcity[p.Position]
		out = append(out, models.RankedPlayer{
			Player:           p,
			ProjectedPoints:  d.projection[id],
			VORP:             d.vorp[id],
			ADPValue:         p.ADP(d.settings.Scoring),
			ScarcityFlag:     sc.UrgencyFlag,
			ReplacementLevel: sc.ReplacementLevel,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].VORP != out[j].VORP {
			return out[i].VORP > out[j].VORP
		}
		return out[i].ProjectedPoints > out[j].ProjectedPoints
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// State returns a copied, serializable picture of the draft
func (d *Draft) State() models.DraftStateView {
	d.mu.RLock()
	defer d.mu.RUnlock()

	v := models.DraftStateView{
		DraftID:          d.id,
		NumTeams:         d.settings.Teams,
		DraftSpot:        d.settings.DraftSpot,
		Snake:            d.settings.Snake,
		ScoringMode:      d.settings.Scoring,
		CurrentPickIndex: d.current,
		TotalPicks:       len(d.order),
		PicksMade:        len(d.picks),
		Complete:         d.current >= len(d.order),
		Picks:            append([]models.Pick(nil), d.picks...),
		Rosters:          make(map[int]models.TeamRoster, len(d.rosters)),
		Scarcity:         make(map[models.Position]models.ScarcityMetrics, len(d.scarcity)),
	}
	if !v.Complete {
		v.CurrentTeamID = d.order[d.current]
	}
	if idx, ok := d.nextSlot(d.settings.DraftSpot, d.current); ok {
		v.UserNextPickIndex = &idx
	}
	for team, r := range d.rosters {
		v.Rosters[team] = copyRoster(r)
	}
	for pos, m := range d.scarcity {
		if d.materialized[pos] {
			v.Scarcity[pos] = m
		}
	}
	return v
}

// Summary returns the list entry for this draft
func (d *Draft) Summary() models.DraftSummary {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return models.DraftSummary{
		DraftID:          d.id,
		NumTeams:         d.settings.Teams,
		ScoringMode:      d.settings.Scoring,
		CurrentPickIndex: d.current,
		PicksMade:        len(d.picks),
		Complete:         d.current >= len(d.order),
	}
}

package engine

import (
	"context"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/Billy-Davies-2/draft-engine/internal/draft"
	"github.com/Billy-Davies-2/draft-engine/internal/models"
)

const (
	defaultSamples      = 100
	nextPickLineSamples = 100
	// ADP noise grows with the pick number but never drops below one slot
	adpNoiseFraction = 0.15
)

type adpEntry struct {
	id  string
	adp float64
}

// SimulateAvailability projects which players survive until team's next pick.
// The forecast assumes the pool goes in ADP order; confidence is the mean
// share of that forecast reproduced by sampled drafts with jittered ADPs.
func (e *Engine) SimulateAvailability(ctx context.Context, id string, team, samples int) (*models.Availability, error) {
	d, err := e.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := d.Roster(team); err != nil {
		return nil, err
	}
	return forecast(d, team, samples, d.Settings().League.MaxSamples), nil
}

func forecast(d *draft.Draft, team, samples, maxSamples int) *models.Availability {
	if samples <= 0 {
		samples = defaultSamples
	}
	if maxSamples > 0 && samples > maxSamples {
		samples = maxSamples
	}

	scoring := d.Settings().Scoring
	pool := make([]adpEntry, 0)
	for _, pid := range d.RemainingIDs() {
		p, _ := d.Player(pid)
		pool = append(pool, adpEntry{id: pid, adp: p.ADP(scoring)})
	}
	sortEntries(pool)

	out := &models.Availability{
		TeamID:          team,
		LikelyAvailable: []string{},
		LikelyGone:      []string{},
		Confidence:      1,
	}

	current := d.CurrentPickIndex()
	next, ok := d.NextPickIndexFor(team)
	if !ok {
		for _, en := range pool {
			out.LikelyAvailable = append(out.LikelyAvailable, en.id)
		}
		return out
	}
	out.HasNextPick = true
	out.NextPickIndex = next
	out.PicksUntil = next - current

	cut := out.PicksUntil
	if cut > len(pool) {
		cut = len(pool)
	}
	gone := make(map[string]bool, cut)
	for i, en := range pool {
		if i < cut {
			out.LikelyGone = append(out.LikelyGone, en.id)
			gone[en.id] = true
		} else {
			out.LikelyAvailable = append(out.LikelyAvailable, en.id)
		}
	}
	if cut == 0 {
		return out
	}

	rng := rand.New(rand.NewSource(d.Settings().Seed + int64(current)*1000 + int64(team)))
	agreement := make([]float64, samples)
	jittered := make([]adpEntry, len(pool))
	for s := 0; s < samples; s++ {
		for i, en := range pool {
			sd := math.Max(1, en.adp*adpNoiseFraction)
			jittered[i] = adpEntry{id: en.id, adp: en.adp + rng.NormFloat64()*sd}
		}
		sortEntries(jittered)

		hits := 0
		for _, en := range jittered[:cut] {
			if gone[en.id] {
				hits++
			}
		}
		agreement[s] = float64(hits) / float64(cut)
	}
	out.Samples = samples
	out.Confidence = stat.Mean(agreement, nil)
	return out
}

func sortEntries(entries []adpEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].adp != entries[j].adp {
			return entries[i].adp < entries[j].adp
		}
		return entries[i].id < entries[j].id
	})
}

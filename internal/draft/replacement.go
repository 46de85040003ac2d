package draft

import "github.com/Billy-Davies-2/draft-engine/internal/models"

// ReplacementIndex is the rank in the remaining list of the first player who
// would not be drafted as a starter
func ReplacementIndex(startersPerTeam, teams, benchBuffer, drafted int) int {
	idx := startersPerTeam*teams + benchBuffer - drafted
	if idx < 0 {
		return 0
	}
	return idx
}

// ReplacementLevel returns the projection at idx of a list sorted descending,
// or 0 when the pool is exhausted below that rank
func ReplacementLevel(sortedProjections []float64, idx int) float64 {
	if idx < 0 || idx >= len(sortedProjections) {
		return 0
	}
	return sortedProjections[idx]
}

// replacementFor must run with d.mu held and uses post-pick drafted counts
func (d *Draft) replacementFor(pos models.Position) float64 {
	idx := ReplacementIndex(
		d.settings.League.StartersFor(pos),
		d.settings.Teams,
		d.settings.League.BenchBuffer,
		d.drafted[pos],
	)
	ids := d.byPosition[pos]
	if idx >= len(ids) {
		return 0
	}
	return d.projection[ids[idx]]
}

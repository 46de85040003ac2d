package draft

import (
	"math"

	"github.com/Billy-Davies-2/draft-engine/internal/models"
)

// VORP is projected points over replacement, floored at zero
func VORP(projection, replacement float64) float64 {
	return math.Max(0, projection-replacement)
}

// recomputePosition refreshes replacement level, VORP and scarcity for one
// position, in that order. It returns the VORP values it wrote.
func (d *Draft) recomputePosition(pos models.Position) map[string]float64 {
	repl := d.replacementFor(pos)
	d.replacement[pos] = repl

	ids := d.byPosition[pos]
	updated := make(map[string]float64, len(ids))
	for _, id := range ids {
		v := VORP(d.projection[id], repl)
		d.vorp[id] = v
		updated[id] = v
	}

	d.scarcity[pos] = d.scarcityFor(pos)
	d.materialized[pos] = true
	return updated
}

package draft

import (
	"fmt"
	"time"

	"github.com/Billy-Davies-2/draft-engine/internal/models"
)

// History is everything needed to rebuild a draft besides its settings and catalog
type History struct {
	Picks     []models.Pick
	Ensured   []EnsureMark
	CreatedAt time.Time
}

// History returns copies of the pick log and lazy materialization marks
func (d *Draft) History() History {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return History{
		Picks:     append([]models.Pick(nil), d.picks...),
		Ensured:   append([]EnsureMark(nil), d.ensured...),
		CreatedAt: d.createdAt,
	}
}

// Restore rebuilds a draft from its catalog and history. Every cache is
// recomputed by replaying picks and lazy materializations in their original
// order, so the result matches the draft that produced the history.
func Restore(id string, s Settings, catalog []models.Player, h History) (*Draft, error) {
	d, err := New(id, s, catalog)
	if err != nil {
		return nil, err
	}
	if !h.CreatedAt.IsZero() {
		d.createdAt = h.CreatedAt
	}

	marks := h.Ensured
	applyMarks := func(at int) {
		for len(marks) > 0 && marks[0].AtPick <= at {
			d.EnsurePosition(marks[0].Position)
			marks = marks[1:]
		}
	}

	for i, p := range h.Picks {
		if p.PickIndex != i {
			return nil, fmt.Errorf("pick log out of order at %d: got index %d", i, p.PickIndex)
		}
		applyMarks(i)
		res, err := d.makePickAt(p.PlayerID, time.Unix(p.Timestamp, 0))
		if err != nil {
			return nil, fmt.Errorf("replay pick %d: %w", i, err)
		}
		if p.TeamID != 0 && res.Pick.TeamID != p.TeamID {
			return nil, fmt.Errorf("replay pick %d: logged team %d but order gives %d", i, p.TeamID, res.Pick.TeamID)
		}
	}
	applyMarks(len(h.Picks))
	return d, nil
}

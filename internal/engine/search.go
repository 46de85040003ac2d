package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/Billy-Davies-2/draft-engine/internal/models"
)

// PlayerMatch is a catalog player with its distance from a search query
type PlayerMatch struct {
	models.Player
	Distance int `json:"distance"`
}

// FindPlayers looks players up by name, tolerating typos. Substring matches
// rank first; otherwise the closest of the full name or any name part counts.
func (e *Engine) FindPlayers(ctx context.Context, query string, limit int) ([]PlayerMatch, error) {
	q := normalizeName(query)
	if q == "" {
		return []PlayerMatch{}, nil
	}
	players, err := e.catalog.LoadPlayers(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	maxDist := len(q) / 3
	if maxDist < 2 {
		maxDist = 2
	}

	matches := make([]PlayerMatch, 0)
	for _, p := range players {
		dist := nameDistance(q, normalizeName(p.Name))
		if dist <= maxDist {
			matches = append(matches, PlayerMatch{Player: p, Distance: dist})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Distance != matches[j].Distance {
			return matches[i].Distance < matches[j].Distance
		}
		return matches[i].ADP(models.PPR) < matches[j].ADP(models.PPR)
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func nameDistance(q, name string) int {
	if strings.Contains(name, q) {
		return 0
	}
	best := levenshtein.ComputeDistance(q, name)
	for _, part := range strings.Fields(name) {
		if d := levenshtein.ComputeDistance(q, part); d < best {
			best = d
		}
	}
	return best
}

func normalizeName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer(".", "", "'", "", "-", " ").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

package dal

import (
	"context"
	"errors"
	"sort"

	"github.com/Billy-Davies-2/draft-engine/internal/models"
)

// ErrSnapshotNotFound is returned when no snapshot is stored under an id
var ErrSnapshotNotFound = errors.New("snapshot not found")

// PlayerCatalog supplies the players new drafts are built over
type PlayerCatalog interface {
	// LoadPlayers returns up to limit players ordered by PPR ADP; limit <= 0 means all
	LoadPlayers(ctx context.Context, limit int) ([]models.Player, error)
	UpsertPlayers(ctx context.Context, players []models.Player) error
}

// SnapshotStore persists encoded draft snapshots by draft id
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, id string, data []byte) error
	LoadSnapshot(ctx context.Context, id string) ([]byte, error)
	DeleteSnapshot(ctx context.Context, id string) error
	ListSnapshots(ctx context.Context) ([]string, error)
}

// DraftDAL defines the interface for data access layer
type DraftDAL interface {
	PlayerCatalog
	SnapshotStore
	Ping(ctx context.Context) error
	Close() error
}

// sortByADP orders players by PPR ADP, then id, and applies limit
func sortByADP(players []models.Player, limit int) []models.Player {
	sort.SliceStable(players, func(i, j int) bool {
		ai, aj := players[i].ADP(models.PPR), players[j].ADP(models.PPR)
		if ai != aj {
			return ai < aj
		}
		return players[i].ID < players[j].ID
	})
	if limit > 0 && len(players) > limit {
		players = players[:limit]
	}
	return players
}

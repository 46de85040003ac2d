package dal

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/Billy-Davies-2/draft-engine/internal/models"
)

// MemoryDAL implements DraftDAL using in-memory storage
type MemoryDAL struct {
	mu        sync.RWMutex
	players   map[string]models.Player
	snapshots map[string][]byte
}

// NewMemoryDAL creates a new in-memory data access layer seeded with the sample catalog
func NewMemoryDAL() *MemoryDAL {
	m := &MemoryDAL{
		players:   make(map[string]models.Player),
		snapshots: make(map[string][]byte),
	}
	for _, p := range SamplePlayers() {
		m.players[p.ID] = p
	}
	return m
}

func (m *MemoryDAL) LoadPlayers(_ context.Context, limit int) ([]models.Player, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Player, 0, len(m.players))
	for _, p := range m.players {
		out = append(out, p)
	}
	return sortByADP(out, limit), nil
}

func (m *MemoryDAL) UpsertPlayers(_ context.Context, players []models.Player) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range players {
		if p.ID == "" {
			return fmt.Errorf("player %q has no id", p.Name)
		}
		m.players[p.ID] = p
	}
	return nil
}

func (m *MemoryDAL) SaveSnapshot(_ context.Context, id string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Copy to avoid aliasing the caller's buffer
	buf := make([]byte, len(data))
	copy(buf, data)
	m.snapshots[id] = buf
	return nil
}

func (m *MemoryDAL) LoadSnapshot(_ context.Context, id string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.snapshots[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSnapshotNotFound, id)
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	return buf, nil
}

func (m *MemoryDAL) DeleteSnapshot(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.snapshots, id)
	return nil
}

func (m *MemoryDAL) ListSnapshots(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.snapshots))
	for id := range m.snapshots {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *MemoryDAL) Ping(context.Context) error { return nil }

func (m *MemoryDAL) Close() error { return nil }

package mocks

import (
	"context"
	"math/rand"
	"sync"

	"github.com/Billy-Davies-2/draft-engine/internal/advice"
	"github.com/Billy-Davies-2/draft-engine/internal/dal"
	"github.com/Billy-Davies-2/draft-engine/internal/logger"
	"github.com/Billy-Davies-2/draft-engine/internal/models"
)

// MockClickHouseClient stands in for ClickHouse in local development. Its
// utilities are ADP-derived starting values with a little seeded noise, so the
// calibrated mode has a fit to rank with.
type MockClickHouseClient struct {
	catalog dal.PlayerCatalog
	seed    int64

	mu    sync.Mutex
	fits  map[models.ScoringMode]map[string]float64
	picks map[string][]models.Pick
}

// NewMockClickHouseClient creates a mock ClickHouse client over a player catalog
func NewMockClickHouseClient(catalog dal.PlayerCatalog, seed int64) *MockClickHouseClient {
	logger.Info("Using MOCK ClickHouse client for local development")
	return &MockClickHouseClient{
		catalog: catalog,
		seed:    seed,
		fits:    make(map[models.ScoringMode]map[string]float64),
		picks:   make(map[string][]models.Pick),
	}
}

// Utilities returns a synthetic fit for mode, built once per mode
func (m *MockClickHouseClient) Utilities(ctx context.Context, mode models.ScoringMode) (map[string]float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if fit, ok := m.fits[mode]; ok {
		return fit, nil
	}
	players, err := m.catalog.LoadPlayers(ctx, 0)
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(m.seed))
	fit := make(map[string]float64, len(players))
	for i := range players {
		// ±5% around the ADP-derived start
		u := advice.InitialUtility(players[i].ADP(mode))
		fit[players[i].ID] = u * (0.95 + rng.Float64()*0.1)
	}
	m.fits[mode] = fit
	return fit, nil
}

// RecordPick keeps the pick in memory
func (m *MockClickHouseClient) RecordPick(_ context.Context, draftID string, _ models.ScoringMode, pick models.Pick, _ models.Player) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.picks[draftID] = append(m.picks[draftID], pick)
	return nil
}

// PickCount returns how many picks have been recorded for a draft
func (m *MockClickHouseClient) PickCount(_ context.Context, draftID string) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return uint64(len(m.picks[draftID])), nil
}

// Ping always succeeds
func (m *MockClickHouseClient) Ping(context.Context) error { return nil }

// Close is a no-op for mock client
func (m *MockClickHouseClient) Close() error { return nil }

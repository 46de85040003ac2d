package mocks

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/Billy-Davies-2/draft-engine/internal/advice"
	"github.com/Billy-Davies-2/draft-engine/internal/dal"
	"github.com/Billy-Davies-2/draft-engine/internal/models"
)

func TestMockClickHouseUtilities(t *testing.T) {
	ctx := context.Background()
	store := dal.NewMemoryDAL()
	m := NewMockClickHouseClient(store, 99)

	fit, err := m.Utilities(ctx, models.PPR)
	if err != nil {
		t.Fatalf("Utilities() failed: %v", err)
	}
	players, _ := store.LoadPlayers(ctx, 0)
	if len(fit) != len(players) {
		t.Fatalf("fit covers %d players, want %d", len(fit), len(players))
	}
	for i := range players {
		start := advice.InitialUtility(players[i].ADP(models.PPR))
		u := fit[players[i].ID]
		if u < start*0.95-1e-9 || u > start*1.05+1e-9 {
			t.Errorf("%s: utility %f outside ±5%% of %f", players[i].ID, u, start)
		}
	}

	again, _ := m.Utilities(ctx, models.PPR)
	if again[players[0].ID] != fit[players[0].ID] {
		t.Error("fit should be stable per mode")
	}
}

func TestMockClickHouseRecordPick(t *testing.T) {
	ctx := context.Background()
	m := NewMockClickHouseClient(dal.NewMemoryDAL(), 1)

	for i := 0; i < 2; i++ {
		if err := m.RecordPick(ctx, "draft_a", models.PPR, models.Pick{PickIndex: i}, models.Player{}); err != nil {
			t.Fatalf("RecordPick() failed: %v", err)
		}
	}
	if n, _ := m.PickCount(ctx, "draft_a"); n != 2 {
		t.Errorf("draft_a picks = %d, want 2", n)
	}
	if n, _ := m.PickCount(ctx, "draft_b"); n != 0 {
		t.Errorf("draft_b picks = %d, want 0", n)
	}
}

func TestMockPostgresDAL(t *testing.T) {
	m, err := NewMockPostgresDAL(filepath.Join(t.TempDir(), "mock.sqlite"))
	if err != nil {
		t.Fatalf("NewMockPostgresDAL() failed: %v", err)
	}
	defer m.Close()

	players, err := m.LoadPlayers(context.Background(), 10)
	if err != nil {
		t.Fatalf("LoadPlayers() failed: %v", err)
	}
	if len(players) != 10 {
		t.Errorf("got %d players, want 10", len(players))
	}
}

package snapshot

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/Billy-Davies-2/draft-engine/internal/config"
	"github.com/Billy-Davies-2/draft-engine/internal/draft"
	"github.com/Billy-Davies-2/draft-engine/internal/models"
)

func catalog() []models.Player {
	var out []models.Player
	for _, pos := range models.Positions {
		for i := 0; i < 30; i++ {
			out = append(out, models.Player{
				ID:       fmt.Sprintf("%s%d", pos, i+1),
				Name:     fmt.Sprintf("%s %d", pos, i+1),
				Position: pos,
				Team:     "FA",
				ProjPPR:  300 - float64(i)*5,
				ADPPPR:   float64(i*6 + 1),
			})
		}
	}
	return out
}

func newDraft(t *testing.T) *draft.Draft {
	t.Helper()
	league := config.DefaultLeague()
	league.Rounds = 6
	d, err := draft.New("draft_snap", draft.Settings{
		Teams:     4,
		DraftSpot: 2,
		Snake:     true,
		Scoring:   models.HalfPPR,
		League:    league,
		Seed:      99,
	}, catalog())
	if err != nil {
		t.Fatalf("draft.New() failed: %v", err)
	}
	return d
}

func TestRoundTrip(t *testing.T) {
	d := newDraft(t)
	for i := 0; i < 9; i++ {
		if i == 5 {
			d.EnsurePosition(models.K)
		}
		ids := d.RemainingIDs()
		if _, err := d.MakePick(ids[len(ids)/2]); err != nil {
			t.Fatalf("MakePick failed: %v", err)
		}
	}

	data, err := Encode(d)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	restored, err := Load(data)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if !reflect.DeepEqual(restored.State(), d.State()) {
		t.Error("restored state differs from original")
	}
	if restored.Settings().Seed != 99 || restored.Settings().League.Rounds != 6 {
		t.Errorf("settings not restored: %+v", restored.Settings())
	}
	if !restored.CreatedAt().Equal(d.CreatedAt()) {
		t.Errorf("created_at = %v, want %v", restored.CreatedAt(), d.CreatedAt())
	}
}

func TestRoundTripKeepsZeroLeagueValues(t *testing.T) {
	league := config.DefaultLeague()
	league.Rounds = 6
	league.BenchBuffer = 0
	league.EagerPositions = nil
	league.LineupPenalty.Multiplier = 0
	league.LineupPenalty.TEMultiplier = 0
	league.LineupPenalty.RoundThreshold = 0
	d, err := draft.New("draft_zero", draft.Settings{
		Teams:     4,
		DraftSpot: 1,
		Snake:     true,
		Scoring:   models.PPR,
		League:    league,
		Seed:      7,
	}, catalog())
	if err != nil {
		t.Fatalf("draft.New() failed: %v", err)
	}
	d.EnsurePosition(models.QB)
	ids := d.RemainingIDs()
	if _, err := d.MakePick(ids[0]); err != nil {
		t.Fatalf("MakePick failed: %v", err)
	}

	data, err := Encode(d)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	restored, err := Load(data)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	got := restored.Settings().League
	if got.BenchBuffer != 0 {
		t.Errorf("bench buffer = %d, want 0", got.BenchBuffer)
	}
	if len(got.EagerPositions) != 0 {
		t.Errorf("eager positions = %v, want none", got.EagerPositions)
	}
	if got.LineupPenalty != league.LineupPenalty {
		t.Errorf("lineup penalty = %+v, want %+v", got.LineupPenalty, league.LineupPenalty)
	}
	if live, back := d.ReplacementLevelOf(models.QB), restored.ReplacementLevelOf(models.QB); live != back {
		t.Errorf("QB replacement = %v after restore, want %v", back, live)
	}
	if !reflect.DeepEqual(restored.State(), d.State()) {
		t.Error("restored state differs from original")
	}
}

func TestLegacySnapshotFillsDefaults(t *testing.T) {
	s := Take(newDraft(t))
	s.SchemaVersion = 1
	s.Settings.League.BenchBuffer = 0
	s.Settings.League.EagerPositions = nil
	s.Settings.League.Multiplier = 0

	d, err := s.Restore()
	if err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	want := config.DefaultLeague()
	got := d.Settings().League
	if got.BenchBuffer != want.BenchBuffer || got.LineupPenalty.Multiplier != want.LineupPenalty.Multiplier {
		t.Errorf("legacy league = %+v, want defaults for missing fields", got)
	}
	if len(got.EagerPositions) != len(want.EagerPositions) {
		t.Errorf("eager positions = %v, want %v", got.EagerPositions, want.EagerPositions)
	}
}

func TestDecodeIgnoresUnknownFields(t *testing.T) {
	d := newDraft(t)
	data, err := Encode(d)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	version := fmt.Sprintf(`"schema_version":%d`, SchemaVersion)
	extended := strings.Replace(string(data), version, version+`,"annotations":{"source":"import"}`, 1)
	if _, err := Load([]byte(extended)); err != nil {
		t.Fatalf("Load with extra fields failed: %v", err)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want error
	}{
		{"newer version", `{"schema_version":99,"draft_id":"x"}`, ErrUnsupportedVersion},
		{"missing id", `{"schema_version":1}`, ErrMissingDraftID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode([]byte(tt.data)); !errors.Is(err, tt.want) {
				t.Errorf("Decode() error = %v, want %v", err, tt.want)
			}
		})
	}

	if _, err := Decode([]byte("{not json")); err == nil {
		t.Error("expected an error for malformed JSON")
	}
}

func TestRestoreRejectsTamperedLog(t *testing.T) {
	d := newDraft(t)
	ids := d.RemainingIDs()
	if _, err := d.MakePick(ids[0]); err != nil {
		t.Fatalf("MakePick failed: %v", err)
	}
	s := Take(d)
	s.Picks = append(s.Picks, s.Picks[0])
	s.Picks[1].PickIndex = 1
	s.Picks[1].TeamID = 0
	if _, err := s.Restore(); !errors.Is(err, draft.ErrPlayerUnavailable) {
		t.Errorf("expected ErrPlayerUnavailable replaying a duplicate, got %v", err)
	}
}

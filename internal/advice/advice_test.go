package advice

import (
	"context"
	"errors"
	"fmt"
	"math"
	"reflect"
	"testing"

	"github.com/Billy-Davies-2/draft-engine/internal/config"
	"github.com/Billy-Davies-2/draft-engine/internal/draft"
	"github.com/Billy-Davies-2/draft-engine/internal/models"
)

func testCatalog() []models.Player {
	specs := []struct {
		pos  models.Position
		n    int
		proj float64
		step float64
		adp  float64
		gap  float64
	}{
		{models.QB, 24, 340, 6, 20, 7},
		{models.RB, 48, 300, 4, 1, 2.5},
		{models.WR, 56, 280, 3, 2, 2.3},
		{models.TE, 20, 200, 6, 15, 8},
		{models.K, 16, 140, 2, 130, 3},
		{models.DEF, 16, 130, 2, 125, 3},
	}
	var out []models.Player
	for _, s := range specs {
		for i := 0; i < s.n; i++ {
			adp := s.adp + float64(i)*s.gap
			out = append(out, models.Player{
				ID:       fmt.Sprintf("%s%d", s.pos, i+1),
				Name:     fmt.Sprintf("%s Player %d", s.pos, i+1),
				Position: s.pos,
				Team:     "FA",
				ProjPPR:  s.proj - float64(i)*s.step,
				ADPPPR:   adp,
				ECR:      adp,
			})
		}
	}
	return out
}

func newDraft(t *testing.T, teams, spot int) *draft.Draft {
	t.Helper()
	d, err := draft.New("draft_advice", draft.Settings{
		Teams:     teams,
		DraftSpot: spot,
		Snake:     true,
		Scoring:   models.PPR,
		League:    config.DefaultLeague(),
		Seed:      7,
	}, testCatalog())
	if err != nil {
		t.Fatalf("draft.New() failed: %v", err)
	}
	d.EnsureRemaining()
	return d
}

func viewFor(t *testing.T, d *draft.Draft) *draft.View {
	t.Helper()
	team, ok := d.CurrentTeam()
	if !ok {
		t.Fatal("draft has no current team")
	}
	v, err := d.View(team)
	if err != nil {
		t.Fatalf("View(%d) failed: %v", team, err)
	}
	return v
}

func TestRegistryNames(t *testing.T) {
	r := NewRegistry(nil)
	want := []string{
		ModeBestVORP, ModeBotRealistic, ModeCalibrated, ModeDraftAdvantage,
		ModeFillNeed, ModeRobust, ModeUpside,
	}
	if got := r.Names(); !reflect.DeepEqual(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}
}

func TestRegistryUnknownMode(t *testing.T) {
	r := NewRegistry(nil)
	d := newDraft(t, 10, 1)
	_, err := r.Rank(context.Background(), "moneyball", viewFor(t, d), 5)
	if !errors.Is(err, ErrUnknownMode) {
		t.Fatalf("expected ErrUnknownMode, got %v", err)
	}
}

func TestRegistryDefaultMode(t *testing.T) {
	r := NewRegistry(nil)
	s, err := r.Get("")
	if err != nil {
		t.Fatalf("Get(\"\") failed: %v", err)
	}
	if s.Name() != ModeRobust {
		t.Errorf("default mode = %s, want %s", s.Name(), ModeRobust)
	}
}

func TestEveryModeRespectsLimitAndPool(t *testing.T) {
	r := NewRegistry(nil)
	d := newDraft(t, 12, 5)
	for i := 0; i < 20; i++ {
		v := viewFor(t, d)
		if _, err := d.MakePick(v.Remaining[0].Player.ID); err != nil {
			t.Fatalf("MakePick failed: %v", err)
		}
	}
	v := viewFor(t, d)
	remaining := make(map[string]bool)
	for _, c := range v.Remaining {
		remaining[c.Player.ID] = true
	}

	for _, mode := range r.Names() {
		t.Run(mode, func(t *testing.T) {
			recs, err := r.Rank(context.Background(), mode, v, 5)
			if err != nil {
				t.Fatalf("Rank failed: %v", err)
			}
			if len(recs) != 5 {
				t.Fatalf("got %d recommendations, want 5", len(recs))
			}
			seen := make(map[string]bool)
			for i, rec := range recs {
				if !remaining[rec.PlayerID] {
					t.Errorf("recommended %s which is not remaining", rec.PlayerID)
				}
				if seen[rec.PlayerID] {
					t.Errorf("recommended %s twice", rec.PlayerID)
				}
				seen[rec.PlayerID] = true
				if rec.Justification == "" {
					t.Errorf("empty justification for %s", rec.PlayerID)
				}
				if i > 0 && rec.Score > recs[i-1].Score {
					t.Errorf("scores not descending at %d: %f > %f", i, rec.Score, recs[i-1].Score)
				}
			}
		})
	}
}

func TestEmptyPoolYieldsEmptyList(t *testing.T) {
	r := NewRegistry(nil)
	v := &draft.View{
		Teams:      10,
		League:     config.DefaultLeague(),
		Round:      1,
		Scarcity:   map[models.Position]models.ScarcityMetrics{},
		Counts:     map[models.Position]int{},
		Needs:      map[models.Position]int{},
		NeedScores: map[models.Position]float64{},
	}
	for _, mode := range r.Names() {
		recs, err := r.Rank(context.Background(), mode, v, 5)
		if err != nil {
			t.Fatalf("%s: Rank failed: %v", mode, err)
		}
		if recs == nil || len(recs) != 0 {
			t.Errorf("%s: expected empty non-nil list, got %v", mode, recs)
		}
	}
}

func TestBestVORPOrder(t *testing.T) {
	d := newDraft(t, 10, 1)
	v := viewFor(t, d)
	recs := BestVORP{}.Rank(context.Background(), v, 3)
	for i, rec := range recs {
		if rec.PlayerID != v.Remaining[i].Player.ID {
			t.Errorf("rank %d = %s, want %s", i, rec.PlayerID, v.Remaining[i].Player.ID)
		}
		if rec.Score != rec.VORP {
			t.Errorf("%s: score %f != VORP %f", rec.PlayerID, rec.Score, rec.VORP)
		}
	}
}

func TestFillNeedZeroWhenFilled(t *testing.T) {
	c := draft.Candidate{
		Player: models.Player{ID: "QB1", Position: models.QB},
		VORP:   50,
	}
	v := &draft.View{
		Teams:      10,
		League:     config.DefaultLeague(),
		Remaining:  []draft.Candidate{c},
		Scarcity:   map[models.Position]models.ScarcityMetrics{},
		NeedScores: map[models.Position]float64{models.QB: 0},
	}
	recs := FillNeed{}.Rank(context.Background(), v, 1)
	if len(recs) != 1 || recs[0].Score != 0 {
		t.Errorf("expected a single zero score, got %+v", recs)
	}
}

func TestRobustLineupPenalty(t *testing.T) {
	league := config.DefaultLeague()
	qb := draft.Candidate{Player: models.Player{ID: "QB2", Position: models.QB}, VORP: 40}
	rb := draft.Candidate{Player: models.Player{ID: "RB9", Position: models.RB}, VORP: 30}
	v := &draft.View{
		Teams:     10,
		League:    league,
		Round:     3,
		Remaining: []draft.Candidate{qb, rb},
		Scarcity:  map[models.Position]models.ScarcityMetrics{},
		Counts:    map[models.Position]int{models.QB: 1, models.RB: 1},
		NeedScores: map[models.Position]float64{
			models.QB: 0,
			models.RB: 1,
		},
	}
	recs := Robust{}.Rank(context.Background(), v, 2)
	if recs[0].PlayerID != "RB9" {
		t.Fatalf("expected the needed RB first, got %s", recs[0].PlayerID)
	}
	wantQB := 40 * league.LineupPenalty.Multiplier
	if math.Abs(recs[1].Score-wantQB) > 1e-9 {
		t.Errorf("penalized QB score = %f, want %f", recs[1].Score, wantQB)
	}

	v.Round = league.LineupPenalty.RoundThreshold + 1
	recs = Robust{}.Rank(context.Background(), v, 2)
	if recs[0].PlayerID != "QB2" {
		t.Errorf("penalty should lapse after round %d", league.LineupPenalty.RoundThreshold)
	}
}

func TestBlendedRank(t *testing.T) {
	tests := []struct {
		name     string
		adp, ecr float64
		want     float64
	}{
		{"experts agree", 20, 20, 20},
		{"experts slightly higher", 20, 19, 20},
		{"experts much higher", 50, 30, 46},
		{"no ecr", 40, 0, 40},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BlendedRank(tt.adp, tt.ecr); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("BlendedRank(%v, %v) = %v, want %v", tt.adp, tt.ecr, got, tt.want)
			}
		})
	}
}

func TestBotMultipliers(t *testing.T) {
	if ReachMultiplier(2.5) != 0.01 || ReachMultiplier(1.2) != 0.1 || ReachMultiplier(0.5) != 1 {
		t.Error("unexpected reach multipliers")
	}
	if FallMultiplier(0) != 1 {
		t.Error("no fall should not boost")
	}
	if got := FallMultiplier(3); math.Abs(got-8) > 1e-9 {
		t.Errorf("FallMultiplier(3) = %f, want 8", got)
	}
	if FallMultiplier(100) != maxFallBonus {
		t.Error("fall bonus should cap")
	}
	if JitterAmplitude(0) != baseJitter || JitterAmplitude(3) >= JitterAmplitude(1) {
		t.Error("jitter should shrink as players fall")
	}
	c, n := RoundWeights(1)
	if c != 0.95 || n != 0.05 {
		t.Errorf("round 1 weights = %v/%v", c, n)
	}
	c, n = RoundWeights(10)
	if c != 0.70 || n != 0.30 {
		t.Errorf("round 10 weights = %v/%v", c, n)
	}
}

func TestBotAvoidsReaches(t *testing.T) {
	d := newDraft(t, 12, 1)
	v := viewFor(t, d)
	recs := BotRealistic{}.Rank(context.Background(), v, 5)
	for _, rec := range recs {
		p, _ := d.Player(rec.PlayerID)
		if p.ADPPPR > 24 {
			t.Errorf("bot took %s (ADP %.1f) with the first pick", rec.PlayerID, p.ADPPPR)
		}
	}
}

func TestBotDeterministic(t *testing.T) {
	d := newDraft(t, 12, 3)
	v := viewFor(t, d)
	a := BotRealistic{}.Rank(context.Background(), v, 10)
	b := BotRealistic{}.Rank(context.Background(), v, 10)
	if !reflect.DeepEqual(a, b) {
		t.Error("bot ranking should be reproducible for the same view")
	}
}

func TestExpectedReplacement(t *testing.T) {
	others := []draft.Candidate{{VORP: 30}, {VORP: 20}, {VORP: 10}}
	tests := []struct {
		picksAway, teams int
		want             float64
	}{
		{5, 10, 30},
		{14, 10, 20},
		{25, 10, 10},
		{40, 10, 0},
		{5, 0, 0},
	}
	for _, tt := range tests {
		if got := ExpectedReplacement(others, tt.picksAway, tt.teams); got != tt.want {
			t.Errorf("ExpectedReplacement(%d, %d) = %v, want %v", tt.picksAway, tt.teams, got, tt.want)
		}
	}
}

func TestDistanceFactor(t *testing.T) {
	if DistanceFactor(3) != soonFactor || DistanceFactor(18) != 1 || DistanceFactor(30) != farFactor {
		t.Error("unexpected distance factors")
	}
}

func TestDraftAdvantageFarFactorScalesNegative(t *testing.T) {
	remaining := []draft.Candidate{
		{Player: models.Player{ID: "WR2", Position: models.WR}, VORP: 40},
		{Player: models.Player{ID: "WR3", Position: models.WR}, VORP: 30},
		{Player: models.Player{ID: "WR4", Position: models.WR}, VORP: 20},
		{Player: models.Player{ID: "WR5", Position: models.WR}, VORP: 10},
		{Player: models.Player{ID: "WR1", Position: models.WR}, VORP: 5},
	}
	v := &draft.View{
		Teams:            10,
		League:           config.DefaultLeague(),
		Round:            10,
		HasUpcomingPick:  true,
		UpcomingPick:     100,
		HasFollowingPick: true,
		FollowingPick:    130,
		Remaining:        remaining,
		Scarcity:         map[models.Position]models.ScarcityMetrics{},
		Counts:           map[models.Position]int{},
	}
	recs := DraftAdvantage{}.Rank(context.Background(), v, len(remaining))
	byID := map[string]float64{}
	for _, r := range recs {
		byID[r.PlayerID] = r.Score
	}
	// three receivers leave before the next turn, so WR1 is measured against WR5
	want := (5.0 - 10.0) * farFactor
	if math.Abs(byID["WR1"]-want) > 1e-9 {
		t.Errorf("WR1 score = %f, want %f", byID["WR1"], want)
	}
}

func TestDraftAdvantageLastPick(t *testing.T) {
	c := draft.Candidate{Player: models.Player{ID: "WR1", Position: models.WR}, VORP: 12}
	v := &draft.View{
		Teams:           10,
		League:          config.DefaultLeague(),
		Round:           16,
		HasUpcomingPick: true,
		UpcomingPick:    150,
		Remaining:       []draft.Candidate{c},
		Scarcity:        map[models.Position]models.ScarcityMetrics{},
		Counts:          map[models.Position]int{},
	}
	recs := DraftAdvantage{}.Rank(context.Background(), v, 1)
	if len(recs) != 1 || recs[0].Score != 12 {
		t.Errorf("with no following pick the advantage is the raw VORP, got %+v", recs)
	}
}

func TestDraftAdvantagePenaltyMovesDown(t *testing.T) {
	league := config.DefaultLeague()
	te := draft.Candidate{Player: models.Player{ID: "TE5", Position: models.TE}, VORP: 0}
	te2 := draft.Candidate{Player: models.Player{ID: "TE6", Position: models.TE}, VORP: 10}
	v := &draft.View{
		Teams:            10,
		League:           league,
		Round:            4,
		HasUpcomingPick:  true,
		UpcomingPick:     35,
		HasFollowingPick: true,
		FollowingPick:    44,
		Remaining:        []draft.Candidate{te2, te},
		Scarcity:         map[models.Position]models.ScarcityMetrics{},
		Counts:           map[models.Position]int{models.TE: 1},
	}
	recs := DraftAdvantage{}.Rank(context.Background(), v, 2)
	byID := map[string]float64{}
	for _, r := range recs {
		byID[r.PlayerID] = r.Score
	}
	// TE6: (10 - 0) * 0.8 * TE multiplier; TE5: (0 - 10) * 0.8 / TE multiplier
	wantHigh := 10 * soonFactor * league.LineupPenalty.TEMultiplier
	wantLow := -10 * soonFactor / league.LineupPenalty.TEMultiplier
	if math.Abs(byID["TE6"]-wantHigh) > 1e-9 {
		t.Errorf("TE6 score = %f, want %f", byID["TE6"], wantHigh)
	}
	if math.Abs(byID["TE5"]-wantLow) > 1e-9 {
		t.Errorf("TE5 score = %f, want %f", byID["TE5"], wantLow)
	}
}

type stubCalibration struct {
	utils map[string]float64
	err   error
}

func (s stubCalibration) Utilities(context.Context, models.ScoringMode) (map[string]float64, error) {
	return s.utils, s.err
}

func TestCalibratedFallsBack(t *testing.T) {
	d := newDraft(t, 12, 2)
	v := viewFor(t, d)
	want := BotRealistic{}.Rank(context.Background(), v, 5)

	sources := map[string]Calibration{
		"nil":   nil,
		"error": stubCalibration{err: errors.New("clickhouse down")},
		"empty": stubCalibration{utils: map[string]float64{}},
	}
	for name, src := range sources {
		t.Run(name, func(t *testing.T) {
			got := NewCalibrated(src, BotRealistic{}).Rank(context.Background(), v, 5)
			if !reflect.DeepEqual(got, want) {
				t.Errorf("expected bot fallback output")
			}
		})
	}
}

func TestCalibratedProbabilities(t *testing.T) {
	d := newDraft(t, 12, 2)
	v := viewFor(t, d)
	cal := stubCalibration{utils: map[string]float64{"K1": 50}}
	recs := NewCalibrated(cal, BotRealistic{}).Rank(context.Background(), v, len(v.Remaining))
	if recs[0].PlayerID != "K1" {
		t.Fatalf("dominant utility should rank first, got %s", recs[0].PlayerID)
	}
	sum := 0.0
	for _, r := range recs {
		if r.Score < 0 || r.Score > 1 {
			t.Errorf("%s probability %f out of range", r.PlayerID, r.Score)
		}
		sum += r.Score
	}
	if math.Abs(sum-1) > 1e-6 {
		t.Errorf("probabilities sum to %f", sum)
	}
}

func TestInitialUtility(t *testing.T) {
	if got := InitialUtility(299.5); got != 0 {
		t.Errorf("InitialUtility near the end of the board = %f, want 0", got)
	}
	if InitialUtility(1) <= InitialUtility(100) {
		t.Error("earlier ADP should carry more utility")
	}
	if NeedMultiplier(1, 3) != 1.2 || NeedMultiplier(2, 10) != 2 {
		t.Error("unexpected need multipliers")
	}
}

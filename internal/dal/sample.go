package dal

import (
	"fmt"
	"sort"

	"github.com/Billy-Davies-2/draft-engine/internal/models"
)

type samplePlayer struct {
	name string
	pos  models.Position
	team string
	bye  int
	proj float64
	adp  float64
}

var namedPlayers = []samplePlayer{
	{"Josh Allen", models.QB, "BUF", 12, 24.5, 15.2},
	{"Lamar Jackson", models.QB, "BAL", 14, 23.8, 18.7},
	{"Patrick Mahomes", models.QB, "KC", 10, 23.2, 22.1},
	{"Jalen Hurts", models.QB, "PHI", 7, 22.9, 25.3},
	{"Joe Burrow", models.QB, "CIN", 12, 21.8, 35.6},

	{"Christian McCaffrey", models.RB, "SF", 9, 22.1, 1.2},
	{"Austin Ekeler", models.RB, "LAC", 5, 19.8, 3.4},
	{"Jonathan Taylor", models.RB, "IND", 13, 18.9, 4.1},
	{"Derrick Henry", models.RB, "TEN", 7, 17.2, 8.9},
	{"Nick Chubb", models.RB, "CLE", 5, 16.8, 12.3},
	{"Saquon Barkley", models.RB, "NYG", 11, 16.1, 15.7},
	{"Josh Jacobs", models.RB, "LV", 6, 15.4, 19.2},
	{"Aaron Jones", models.RB, "GB", 13, 14.9, 23.8},

	{"Cooper Kupp", models.WR, "LAR", 10, 18.7, 5.2},
	{"Stefon Diggs", models.WR, "BUF", 12, 17.9, 6.8},
	{"Tyreek Hill", models.WR, "MIA", 11, 17.3, 7.1},
	{"Davante Adams", models.WR, "LV", 6, 16.8, 9.4},
	{"Ja'Marr Chase", models.WR, "CIN", 12, 16.2, 11.7},
	{"CeeDee Lamb", models.WR, "DAL", 9, 15.9, 13.2},
	{"A.J. Brown", models.WR, "PHI", 7, 15.4, 16.8},
	{"DeAndre Hopkins", models.WR, "ARI", 13, 14.8, 20.5},

	{"Travis Kelce", models.TE, "KC", 10, 14.2, 14.3},
	{"Mark Andrews", models.TE, "BAL", 14, 12.8, 28.9},
	{"George Kittle", models.TE, "SF", 9, 11.9, 42.1},
	{"T.J. Hockenson", models.TE, "MIN", 13, 10.8, 56.7},

	{"Justin Tucker", models.K, "BAL", 14, 8.9, 145.2},
	{"Daniel Carlson", models.K, "LV", 6, 8.4, 152.8},

	{"San Francisco 49ers", models.DEF, "SF", 9, 9.2, 138.7},
	{"Buffalo Bills", models.DEF, "BUF", 12, 8.8, 142.1},
}

// depth fills each position out to a draftable pool behind the named players
var depth = map[models.Position]struct {
	total    int
	projStep float64
	adpStep  float64
}{
	models.QB:  {32, 0.45, 7.5},
	models.RB:  {80, 0.18, 2.6},
	models.WR:  {90, 0.15, 2.3},
	models.TE:  {32, 0.22, 6.0},
	models.K:   {24, 0.12, 4.0},
	models.DEF: {24, 0.14, 4.0},
}

// SamplePlayers returns the default catalog: well-known players followed by
// generated depth. Half-PPR and standard values derive from PPR.
func SamplePlayers() []models.Player {
	var out []models.Player
	seq := 0
	add := func(s samplePlayer) {
		seq++
		out = append(out, models.Player{
			ID:           fmt.Sprintf("p%03d", seq),
			Name:         s.name,
			Position:     s.pos,
			Team:         s.team,
			ByeWeek:      s.bye,
			ProjPPR:      s.proj,
			ProjHalfPPR:  s.proj * 0.95,
			ProjStandard: s.proj * 0.85,
			ADPPPR:       s.adp,
			ADPHalfPPR:   s.adp * 1.1,
			ADPStandard:  s.adp * 1.2,
		})
	}

	last := make(map[models.Position]samplePlayer)
	count := make(map[models.Position]int)
	for _, s := range namedPlayers {
		add(s)
		last[s.pos] = s
		count[s.pos]++
	}

	for _, pos := range models.Positions {
		d := depth[pos]
		base := last[pos]
		for i := count[pos]; i < d.total; i++ {
			n := float64(i - count[pos] + 1)
			proj := base.proj - n*d.projStep
			if proj < 1 {
				proj = 1
			}
			add(samplePlayer{
				name: fmt.Sprintf("%s Depth %d", pos, i+1),
				pos:  pos,
				team: "FA",
				bye:  5 + i%10,
				proj: proj,
				adp:  base.adp + n*d.adpStep,
			})
		}
	}

	// expert rank follows overall ADP order
	byADP := make([]int, len(out))
	for i := range byADP {
		byADP[i] = i
	}
	sort.SliceStable(byADP, func(a, b int) bool {
		return out[byADP[a]].ADPPPR < out[byADP[b]].ADPPPR
	})
	for rank, idx := range byADP {
		out[idx].ECR = float64(rank + 1)
	}
	return out
}

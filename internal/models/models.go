package models

import (
	"fmt"
	"strings"
)

// Position is a draftable roster position
type Position string

const (
	QB  Position = "QB"
	RB  Position = "RB"
	WR  Position = "WR"
	TE  Position = "TE"
	K   Position = "K"
	DEF Position = "DEF"
)

// FlexSlot is the shared RB/WR/TE lineup slot. It is a roster slot, not a position.
const FlexSlot = "FLEX"

// Positions lists every draftable position in display order
var Positions = []Position{QB, RB, WR, TE, K, DEF}

// ParsePosition converts a user supplied string to a Position
func ParsePosition(s string) (Position, error) {
	p := Position(strings.ToUpper(strings.TrimSpace(s)))
	switch p {
	case QB, RB, WR, TE, K, DEF:
		return p, nil
	case "DST", "D/ST":
		return DEF, nil
	}
	return "", fmt.Errorf("invalid position %q", s)
}

// IsFlexEligible reports whether the position can fill the FLEX slot
func (p Position) IsFlexEligible() bool {
	return p == RB || p == WR || p == TE
}

// ScoringMode selects which projection and ADP columns are used
type ScoringMode string

const (
	PPR      ScoringMode = "ppr"
	HalfPPR  ScoringMode = "half_ppr"
	Standard ScoringMode = "standard"
)

// ParseScoringMode converts a user supplied string to a ScoringMode
func ParseScoringMode(s string) (ScoringMode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ppr", "":
		return PPR, true
	case "half_ppr", "half", "half-ppr":
		return HalfPPR, true
	case "standard", "std":
		return Standard, true
	}
	return "", false
}

// Player is a catalog record. It is never mutated while a draft references it.
type Player struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Position     Position `json:"position"`
	Team         string   `json:"team"`
	ByeWeek      int      `json:"byeWeek,omitempty"`
	ProjPPR      float64  `json:"projPpr"`
	ProjHalfPPR  float64  `json:"projHalfPpr"`
	ProjStandard float64  `json:"projStandard"`
	ADPPPR       float64  `json:"adpPpr"`
	ADPHalfPPR   float64  `json:"adpHalfPpr"`
	ADPStandard  float64  `json:"adpStandard"`
	ECR          float64  `json:"ecr"`
}

// DefaultADP is used when a player carries no ADP in any mode
const DefaultADP = 999.0

// Projection returns the projected points for the scoring mode. A missing
// value falls back to the other modes, scaled by the usual PPR ratios.
func (p *Player) Projection(mode ScoringMode) float64 {
	switch mode {
	case HalfPPR:
		if p.ProjHalfPPR > 0 {
			return p.ProjHalfPPR
		}
		if p.ProjPPR > 0 {
			return p.ProjPPR * 0.95
		}
		if p.ProjStandard > 0 {
			return p.ProjStandard / 0.85 * 0.95
		}
	case Standard:
		if p.ProjStandard > 0 {
			return p.ProjStandard
		}
		if p.ProjPPR > 0 {
			return p.ProjPPR * 0.85
		}
		if p.ProjHalfPPR > 0 {
			return p.ProjHalfPPR / 0.95 * 0.85
		}
	default:
		if p.ProjPPR > 0 {
			return p.ProjPPR
		}
		if p.ProjHalfPPR > 0 {
			return p.ProjHalfPPR / 0.95
		}
		if p.ProjStandard > 0 {
			return p.ProjStandard / 0.85
		}
	}
	return 0
}

// ADP returns the average draft position for the scoring mode, falling back
// ppr -> half -> standard and finally DefaultADP
func (p *Player) ADP(mode ScoringMode) float64 {
	var first float64
	switch mode {
	case HalfPPR:
		first = p.ADPHalfPPR
	case Standard:
		first = p.ADPStandard
	default:
		first = p.ADPPPR
	}
	for _, v := range []float64{first, p.ADPPPR, p.ADPHalfPPR, p.ADPStandard} {
		if v > 0 {
			return v
		}
	}
	return DefaultADP
}

// Pick is an immutable record of one selection
type Pick struct {
	PickIndex   int    `json:"pickIndex"`
	TeamID      int    `json:"teamId"`
	PlayerID    string `json:"playerId"`
	RoundNumber int    `json:"roundNumber"`
	PickInRound int    `json:"pickInRound"`
	Timestamp   int64  `json:"timestamp"`
}

// TeamRoster tracks one team's drafted players and positional needs
type TeamRoster struct {
	TeamID           int                  `json:"teamId"`
	Picks            []string             `json:"picks"`
	PositionalCounts map[Position]int     `json:"positionalCounts"`
	NeedScores       map[Position]float64 `json:"needScores"`
}

// ScarcityMetrics summarizes how fast value is leaving a position
type ScarcityMetrics struct {
	Position         Position `json:"position"`
	AvgVORPRemaining float64  `json:"avgVorpRemaining"`
	TierDropoff      float64  `json:"dropoffAtNextTier"`
	ScarcityScore    float64  `json:"scarcityScore"`
	UrgencyFlag      bool     `json:"urgencyFlag"`
	ReplacementLevel float64  `json:"replacementLevel"`
	PlayersRemaining int      `json:"playersRemaining"`
}

// Recommendation is one ranked entry returned by an advice strategy
type Recommendation struct {
	PlayerID      string   `json:"playerId"`
	Name          string   `json:"name"`
	Position      Position `json:"position"`
	Score         float64  `json:"score"`
	VORP          float64  `json:"vorp"`
	Justification string   `json:"justification"`
	ScarcityFlag  bool     `json:"scarcityFlag"`
}

// Availability is a forward projection of who survives until a team picks again
type Availability struct {
	TeamID          int      `json:"teamId"`
	NextPickIndex   int      `json:"nextPickIndex"`
	HasNextPick     bool     `json:"hasNextPick"`
	PicksUntil      int      `json:"picksUntilUser"`
	LikelyAvailable []string `json:"likelyAvailable"`
	LikelyGone      []string `json:"likelyGone"`
	Confidence      float64  `json:"confidence"`
	Samples         int      `json:"samples"`
}

// PickResult is returned after a successful pick
type PickResult struct {
	Pick            Pick                 `json:"pick"`
	Player          Player               `json:"player"`
	PickedVORP      float64              `json:"pickedVorp"`
	UpdatedVORP     map[string]float64   `json:"updatedVorp"`
	UpdatedScarcity ScarcityMetrics      `json:"updatedScarcity"`
	TeamNeeds       map[Position]float64 `json:"teamNeeds"`
	NextPickIndex   int                  `json:"nextPickIndex"`
	NextTeamID      int                  `json:"nextTeamId,omitempty"`
	Complete        bool                 `json:"complete"`
}

// RankedPlayer is a remaining player with its live VORP
type RankedPlayer struct {
	Player
	ProjectedPoints  float64 `json:"projectedPoints"`
	VORP             float64 `json:"vorp"`
	ADPValue         float64 `json:"adp"`
	ScarcityFlag     bool    `json:"scarcityFlag"`
	ReplacementLevel float64 `json:"replacementLevel"`
}

// DraftStateView is a copied, serializable picture of a draft
type DraftStateView struct {
	DraftID           string                       `json:"draftId"`
	NumTeams          int                          `json:"numTeams"`
	DraftSpot         int                          `json:"draftSpot"`
	Snake             bool                         `json:"snake"`
	ScoringMode       ScoringMode                  `json:"scoringMode"`
	CurrentPickIndex  int                          `json:"currentPickIndex"`
	CurrentTeamID     int                          `json:"currentTeamId,omitempty"`
	TotalPicks        int                          `json:"totalPicks"`
	PicksMade         int                          `json:"picksMade"`
	UserNextPickIndex *int                         `json:"userNextPickIndex"`
	Complete          bool                         `json:"complete"`
	Picks             []Pick                       `json:"picks"`
	Rosters           map[int]TeamRoster           `json:"rosters"`
	Scarcity          map[Position]ScarcityMetrics `json:"scarcityMetrics"`
}

// DraftSummary is the list entry for an active draft
type DraftSummary struct {
	DraftID          string      `json:"draftId"`
	NumTeams         int         `json:"numTeams"`
	ScoringMode      ScoringMode `json:"scoringMode"`
	CurrentPickIndex int         `json:"currentPickIndex"`
	PicksMade        int         `json:"picksMade"`
	Complete         bool        `json:"complete"`
}

// NextPickLine describes the user's next turn
type NextPickLine struct {
	HasNextPick          bool   `json:"hasNextPick"`
	UserNextPickIndex    int    `json:"userNextPickIndex,omitempty"`
	PicksUntilUser       int    `json:"picksUntilUser,omitempty"`
	RoundNumber          int    `json:"roundNumber,omitempty"`
	PickInRound          int    `json:"pickInRound,omitempty"`
	LikelyAvailableCount int    `json:"likelyAvailableCount,omitempty"`
	Message              string `json:"message"`
}

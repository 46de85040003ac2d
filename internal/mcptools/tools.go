package mcptools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Billy-Davies-2/draft-engine/internal/advice"
	"github.com/Billy-Davies-2/draft-engine/internal/engine"
	"github.com/Billy-Davies-2/draft-engine/internal/logger"
	"github.com/Billy-Davies-2/draft-engine/internal/models"
)

// ToolInfo describes a registered tool
type ToolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type CreateDraftArgs struct {
	NumTeams    int    `json:"num_teams" jsonschema:"Number of teams, 2-32 (required)"`
	DraftSpot   int    `json:"draft_spot" jsonschema:"Your 1-based draft position (required)"`
	Snake       *bool  `json:"snake,omitempty" jsonschema:"Snake order (default true)"`
	ScoringMode string `json:"scoring_mode,omitempty" jsonschema:"ppr|half_ppr|standard (default ppr)"`
	Seed        int64  `json:"seed,omitempty" jsonschema:"Seed for randomized rankings (0 = random)"`
}

type DraftArgs struct {
	DraftID string `json:"draft_id" jsonschema:"Draft id (required)"`
}

type PickArgs struct {
	DraftID    string `json:"draft_id" jsonschema:"Draft id (required)"`
	PlayerID   string `json:"player_id,omitempty" jsonschema:"Player id; takes precedence over player_name"`
	PlayerName string `json:"player_name,omitempty" jsonschema:"Player name, typos tolerated"`
}

type AdviceArgs struct {
	DraftID string `json:"draft_id" jsonschema:"Draft id (required)"`
	Team    int    `json:"team,omitempty" jsonschema:"Team id (default: your draft spot)"`
	Mode    string `json:"mode,omitempty" jsonschema:"Advice mode (default robust); see list_modes"`
	Limit   int    `json:"limit,omitempty" jsonschema:"How many recommendations (default 5)"`
}

type AvailabilityArgs struct {
	DraftID string `json:"draft_id" jsonschema:"Draft id (required)"`
	Team    int    `json:"team,omitempty" jsonschema:"Team id (default: your draft spot)"`
	Samples int    `json:"samples,omitempty" jsonschema:"Monte Carlo samples (default 100)"`
}

type PlayersArgs struct {
	DraftID  string `json:"draft_id" jsonschema:"Draft id (required)"`
	Position string `json:"position,omitempty" jsonschema:"QB|RB|WR|TE|K|DEF (default all)"`
	Limit    int    `json:"limit,omitempty" jsonschema:"How many players (default all)"`
}

type SearchArgs struct {
	Query string `json:"query" jsonschema:"Player name to look up (required)"`
	Limit int    `json:"limit,omitempty" jsonschema:"How many matches (default 10)"`
}

type NoArgs struct{}

// Tools exposes the engine as MCP tools
type Tools struct {
	engine   *engine.Engine
	registry []ToolInfo
}

// NewServer creates an MCP server with every draft tool registered
func NewServer(eng *engine.Engine, version string) (*mcp.Server, *Tools) {
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "draft-engine",
			Version: version,
		},
		nil,
	)
	t := &Tools{engine: eng, registry: make([]ToolInfo, 0, 10)}

	addTool(server, t, &mcp.Tool{
		Name:        "list_modes",
		Description: "Advice modes available to get_advice",
	}, t.ListModes)
	addTool(server, t, &mcp.Tool{
		Name:        "create_draft",
		Description: "Start a draft over the player catalog and return its state",
	}, t.CreateDraft)
	addTool(server, t, &mcp.Tool{
		Name:        "draft_state",
		Description: "Picks, rosters, team needs and positional scarcity of a draft",
	}, t.DraftState)
	addTool(server, t, &mcp.Tool{
		Name:        "list_players",
		Description: "Remaining players ranked by value over replacement",
	}, t.ListPlayers)
	addTool(server, t, &mcp.Tool{
		Name:        "make_pick",
		Description: "Draft a player for the team on the clock",
	}, t.MakePick)
	addTool(server, t, &mcp.Tool{
		Name:        "get_advice",
		Description: "Ranked pick recommendations with justifications",
	}, t.GetAdvice)
	addTool(server, t, &mcp.Tool{
		Name:        "simulate_availability",
		Description: "Which players are likely still available at a team's next pick",
	}, t.SimulateAvailability)
	addTool(server, t, &mcp.Tool{
		Name:        "next_pick_line",
		Description: "One-line summary of your next turn",
	}, t.NextPickLine)
	addTool(server, t, &mcp.Tool{
		Name:        "search_players",
		Description: "Find catalog players by name, tolerating typos",
	}, t.SearchPlayers)

	return server, t
}

// Registry lists the registered tools
func (t *Tools) Registry() []ToolInfo {
	return append([]ToolInfo(nil), t.registry...)
}

// Handler serves the MCP server over streamable HTTP
func Handler(server *mcp.Server) http.Handler {
	return mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server {
		return server
	}, &mcp.StreamableHTTPOptions{JSONResponse: true})
}

func addTool[T any](server *mcp.Server, t *Tools, tool *mcp.Tool, handler func(context.Context, *mcp.CallToolRequest, T) (*mcp.CallToolResult, any, error)) {
	t.registry = append(t.registry, ToolInfo{Name: tool.Name, Description: tool.Description})
	mcp.AddTool(server, tool, handler)
}

func (t *Tools) ListModes(ctx context.Context, req *mcp.CallToolRequest, args NoArgs) (*mcp.CallToolResult, any, error) {
	return toolJSON(map[string]any{"modes": t.engine.Modes(), "default_mode": advice.DefaultMode}, nil)
}

func (t *Tools) CreateDraft(ctx context.Context, req *mcp.CallToolRequest, args CreateDraftArgs) (*mcp.CallToolResult, any, error) {
	snake := true
	if args.Snake != nil {
		snake = *args.Snake
	}
	scoring := models.PPR
	if args.ScoringMode != "" {
		mode, ok := models.ParseScoringMode(args.ScoringMode)
		if !ok {
			return toolError(fmt.Errorf("unknown scoring_mode %q", args.ScoringMode)), nil, nil
		}
		scoring = mode
	}

	d, err := t.engine.CreateDraft(ctx, engine.CreateRequest{
		Teams:     args.NumTeams,
		DraftSpot: args.DraftSpot,
		Snake:     snake,
		Scoring:   scoring,
		Seed:      args.Seed,
	})
	if err != nil {
		return toolError(err), nil, nil
	}
	logger.Info("MCP: draft created", "draft_id", d.ID())
	return toolJSON(d.State(), nil)
}

func (t *Tools) DraftState(ctx context.Context, req *mcp.CallToolRequest, args DraftArgs) (*mcp.CallToolResult, any, error) {
	if args.DraftID == "" {
		return toolError(fmt.Errorf("draft_id is required")), nil, nil
	}
	return toolJSON(t.engine.State(ctx, args.DraftID))
}

func (t *Tools) ListPlayers(ctx context.Context, req *mcp.CallToolRequest, args PlayersArgs) (*mcp.CallToolResult, any, error) {
	if args.DraftID == "" {
		return toolError(fmt.Errorf("draft_id is required")), nil, nil
	}
	var pos *models.Position
	if args.Position != "" {
		p, err := models.ParsePosition(args.Position)
		if err != nil {
			return toolError(err), nil, nil
		}
		pos = &p
	}
	players, err := t.engine.Players(ctx, args.DraftID, pos, args.Limit)
	return toolJSON(map[string]any{"players": players}, err)
}

func (t *Tools) MakePick(ctx context.Context, req *mcp.CallToolRequest, args PickArgs) (*mcp.CallToolResult, any, error) {
	if args.DraftID == "" {
		return toolError(fmt.Errorf("draft_id is required")), nil, nil
	}
	playerID := args.PlayerID
	if playerID == "" {
		if strings.TrimSpace(args.PlayerName) == "" {
			return toolError(fmt.Errorf("player_id or player_name is required")), nil, nil
		}
		matches, err := t.engine.FindPlayers(ctx, args.PlayerName, 1)
		if err != nil {
			return toolError(err), nil, nil
		}
		if len(matches) == 0 {
			return toolError(fmt.Errorf("no player matches %q", args.PlayerName)), nil, nil
		}
		playerID = matches[0].ID
	}
	return toolJSON(t.engine.MakePick(ctx, args.DraftID, playerID))
}

func (t *Tools) team(ctx context.Context, draftID string, team int) (int, error) {
	if team != 0 {
		return team, nil
	}
	d, err := t.engine.Get(ctx, draftID)
	if err != nil {
		return 0, err
	}
	return d.Settings().DraftSpot, nil
}

func (t *Tools) GetAdvice(ctx context.Context, req *mcp.CallToolRequest, args AdviceArgs) (*mcp.CallToolResult, any, error) {
	if args.DraftID == "" {
		return toolError(fmt.Errorf("draft_id is required")), nil, nil
	}
	team, err := t.team(ctx, args.DraftID, args.Team)
	if err != nil {
		return toolError(err), nil, nil
	}
	recs, err := t.engine.GetAdvice(ctx, args.DraftID, team, args.Mode, args.Limit)
	mode := args.Mode
	if mode == "" {
		mode = advice.DefaultMode
	}
	return toolJSON(map[string]any{"team": team, "mode": mode, "recommendations": recs}, err)
}

func (t *Tools) SimulateAvailability(ctx context.Context, req *mcp.CallToolRequest, args AvailabilityArgs) (*mcp.CallToolResult, any, error) {
	if args.DraftID == "" {
		return toolError(fmt.Errorf("draft_id is required")), nil, nil
	}
	team, err := t.team(ctx, args.DraftID, args.Team)
	if err != nil {
		return toolError(err), nil, nil
	}
	return toolJSON(t.engine.SimulateAvailability(ctx, args.DraftID, team, args.Samples))
}

func (t *Tools) NextPickLine(ctx context.Context, req *mcp.CallToolRequest, args DraftArgs) (*mcp.CallToolResult, any, error) {
	if args.DraftID == "" {
		return toolError(fmt.Errorf("draft_id is required")), nil, nil
	}
	return toolJSON(t.engine.NextPickLine(ctx, args.DraftID))
}

func (t *Tools) SearchPlayers(ctx context.Context, req *mcp.CallToolRequest, args SearchArgs) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(args.Query) == "" {
		return toolError(fmt.Errorf("query is required")), nil, nil
	}
	limit := args.Limit
	if limit <= 0 {
		limit = 10
	}
	matches, err := t.engine.FindPlayers(ctx, args.Query, limit)
	return toolJSON(map[string]any{"query": args.Query, "players": matches}, err)
}

func toolJSON(v any, err error) (*mcp.CallToolResult, any, error) {
	if err != nil {
		return toolError(err), nil, nil
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return toolError(err), nil, nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(b)},
		},
	}, nil, nil
}

func toolError(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf("error: %v", err)},
		},
	}
}

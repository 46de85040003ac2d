package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Billy-Davies-2/draft-engine/internal/dal"
	"github.com/Billy-Davies-2/draft-engine/internal/draft"
	"github.com/Billy-Davies-2/draft-engine/internal/engine"
	"github.com/Billy-Davies-2/draft-engine/internal/models"
	"github.com/Billy-Davies-2/draft-engine/internal/pubsub"
)

func newTestServer(t *testing.T) (*http.ServeMux, *pubsub.PubSub) {
	t.Helper()
	store := dal.NewMemoryDAL()
	ps := pubsub.New()
	eng, err := engine.New(engine.Options{Catalog: store, Snapshots: store, Events: ps})
	if err != nil {
		t.Fatalf("engine.New() failed: %v", err)
	}
	mux := http.NewServeMux()
	NewAPIHandlers(eng, ps).Register(mux)
	return mux, ps
}

func do(t *testing.T, mux http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode %q: %v", rec.Body.String(), err)
	}
}

func createDraft(t *testing.T, mux http.Handler, body string) models.DraftStateView {
	t.Helper()
	rec := do(t, mux, http.MethodPost, "/api/drafts", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create draft: status %d, body %s", rec.Code, rec.Body.String())
	}
	var state models.DraftStateView
	decode(t, rec, &state)
	return state
}

const tenTeamDraft = `{"numTeams":10,"draftSpot":3,"snake":true,"scoringMode":"ppr","seed":42}`

func TestCreateDraft(t *testing.T) {
	mux, _ := newTestServer(t)
	state := createDraft(t, mux, tenTeamDraft)

	if state.DraftID == "" || state.NumTeams != 10 || state.DraftSpot != 3 {
		t.Errorf("unexpected state: %+v", state)
	}
	if state.CurrentPickIndex != 0 || state.PicksMade != 0 {
		t.Errorf("new draft should start at pick 0, got %d", state.CurrentPickIndex)
	}

	rec := do(t, mux, http.MethodGet, "/api/drafts", "")
	var list struct {
		Drafts []models.DraftSummary `json:"drafts"`
	}
	decode(t, rec, &list)
	if len(list.Drafts) != 1 || list.Drafts[0].DraftID != state.DraftID {
		t.Errorf("unexpected draft list: %+v", list.Drafts)
	}
}

func TestCreateDraftValidation(t *testing.T) {
	mux, _ := newTestServer(t)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"malformed json", `{"numTeams":`, http.StatusBadRequest},
		{"too few teams", `{"numTeams":1,"draftSpot":1,"snake":true}`, http.StatusBadRequest},
		{"spot out of range", `{"numTeams":10,"draftSpot":11,"snake":true}`, http.StatusBadRequest},
		{"unknown scoring", `{"numTeams":10,"draftSpot":1,"scoringMode":"six_point"}`, http.StatusBadRequest},
		{"scoring defaults to ppr", `{"numTeams":8,"draftSpot":8,"snake":false}`, http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, mux, http.MethodPost, "/api/drafts", tt.body)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d (%s)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestCreateDraftScoringAliases(t *testing.T) {
	mux, _ := newTestServer(t)

	tests := []struct {
		in   string
		want models.ScoringMode
	}{
		{"PPR", models.PPR},
		{"half", models.HalfPPR},
		{"Half-PPR", models.HalfPPR},
		{"std", models.Standard},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			body := fmt.Sprintf(`{"numTeams":10,"draftSpot":1,"snake":true,"scoringMode":%q}`, tt.in)
			state := createDraft(t, mux, body)
			if state.ScoringMode != tt.want {
				t.Errorf("scoring mode = %q, want %q", state.ScoringMode, tt.want)
			}
		})
	}
}

func TestPickFlow(t *testing.T) {
	mux, _ := newTestServer(t)
	state := createDraft(t, mux, tenTeamDraft)
	base := "/api/drafts/" + state.DraftID

	rec := do(t, mux, http.MethodGet, base+"/players?limit=3", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("players: status %d", rec.Code)
	}
	var players struct {
		Players []models.RankedPlayer `json:"players"`
	}
	decode(t, rec, &players)
	if len(players.Players) != 3 {
		t.Fatalf("got %d players, want 3", len(players.Players))
	}
	first := players.Players[0].ID

	rec = do(t, mux, http.MethodPost, base+"/pick", `{"playerId":"`+first+`"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("pick: status %d, body %s", rec.Code, rec.Body.String())
	}
	var res models.PickResult
	decode(t, rec, &res)
	if res.Pick.PickIndex != 0 || res.Pick.TeamID != 1 || res.Player.ID != first {
		t.Errorf("unexpected pick result: %+v", res.Pick)
	}

	// drafting the same player twice conflicts
	rec = do(t, mux, http.MethodPost, base+"/pick", `{"playerId":"`+first+`"}`)
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate pick: status %d, want 409", rec.Code)
	}

	rec = do(t, mux, http.MethodPost, base+"/pick", `{"playerId":"nobody"}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown player: status %d, want 404", rec.Code)
	}

	rec = do(t, mux, http.MethodPost, base+"/pick", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing player: status %d, want 400", rec.Code)
	}

	rec = do(t, mux, http.MethodGet, base+"/state", "")
	var after models.DraftStateView
	decode(t, rec, &after)
	if after.PicksMade != 1 || after.CurrentPickIndex != 1 {
		t.Errorf("state after pick: %+v", after)
	}
}

func TestPlayersByPosition(t *testing.T) {
	mux, _ := newTestServer(t)
	state := createDraft(t, mux, tenTeamDraft)

	rec := do(t, mux, http.MethodGet, "/api/drafts/"+state.DraftID+"/players?position=te&limit=5", "")
	var players struct {
		Players []models.RankedPlayer `json:"players"`
	}
	decode(t, rec, &players)
	if len(players.Players) != 5 {
		t.Fatalf("got %d players, want 5", len(players.Players))
	}
	for _, p := range players.Players {
		if p.Position != models.TE {
			t.Errorf("expected only TEs, got %s", p.Position)
		}
	}

	rec = do(t, mux, http.MethodGet, "/api/drafts/"+state.DraftID+"/players?position=LB", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad position: status %d, want 400", rec.Code)
	}
}

func TestAdvice(t *testing.T) {
	mux, _ := newTestServer(t)
	state := createDraft(t, mux, tenTeamDraft)
	base := "/api/drafts/" + state.DraftID

	tests := []struct {
		name  string
		query string
		want  int
		mode  string
	}{
		{"defaults to the draft spot and robust", "", http.StatusOK, "robust"},
		{"explicit mode and team", "?team=7&mode=best_vorp&limit=3", http.StatusOK, "best_vorp"},
		{"unknown mode", "?mode=vibes", http.StatusBadRequest, ""},
		{"unknown team", "?team=11", http.StatusBadRequest, ""},
		{"bad limit", "?limit=many", http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, mux, http.MethodGet, base+"/advice"+tt.query, "")
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.want, rec.Body.String())
			}
			if tt.want != http.StatusOK {
				return
			}
			var out struct {
				TeamID          int                     `json:"teamId"`
				Mode            string                  `json:"mode"`
				Recommendations []models.Recommendation `json:"recommendations"`
			}
			decode(t, rec, &out)
			if out.Mode != tt.mode {
				t.Errorf("mode = %s, want %s", out.Mode, tt.mode)
			}
			if len(out.Recommendations) == 0 {
				t.Error("expected recommendations")
			}
		})
	}
}

func TestAvailabilityAndNextPickLine(t *testing.T) {
	mux, _ := newTestServer(t)
	state := createDraft(t, mux, tenTeamDraft)
	base := "/api/drafts/" + state.DraftID

	rec := do(t, mux, http.MethodGet, base+"/availability?samples=20", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("availability: status %d", rec.Code)
	}
	var avail models.Availability
	decode(t, rec, &avail)
	if avail.TeamID != 3 || avail.PicksUntil != 2 || len(avail.LikelyGone) != 2 {
		t.Errorf("unexpected availability: team %d, picks until %d, gone %d", avail.TeamID, avail.PicksUntil, len(avail.LikelyGone))
	}

	rec = do(t, mux, http.MethodGet, base+"/next-pick-line", "")
	var line models.NextPickLine
	decode(t, rec, &line)
	if !line.HasNextPick || line.RoundNumber != 1 || line.PickInRound != 3 {
		t.Errorf("unexpected next pick line: %+v", line)
	}
}

func TestDraftNotFound(t *testing.T) {
	mux, _ := newTestServer(t)
	for _, path := range []string{
		"/api/drafts/missing/state",
		"/api/drafts/missing/players",
		"/api/drafts/missing/advice",
		"/api/drafts/missing/availability",
		"/api/drafts/missing/next-pick-line",
	} {
		if rec := do(t, mux, http.MethodGet, path, ""); rec.Code != http.StatusNotFound {
			t.Errorf("GET %s: status %d, want 404", path, rec.Code)
		}
	}
	if rec := do(t, mux, http.MethodDelete, "/api/drafts/missing", ""); rec.Code != http.StatusNotFound {
		t.Errorf("DELETE: status %d, want 404", rec.Code)
	}
}

func TestDeleteDraft(t *testing.T) {
	mux, _ := newTestServer(t)
	state := createDraft(t, mux, tenTeamDraft)

	if rec := do(t, mux, http.MethodDelete, "/api/drafts/"+state.DraftID, ""); rec.Code != http.StatusOK {
		t.Fatalf("delete: status %d", rec.Code)
	}
	if rec := do(t, mux, http.MethodGet, "/api/drafts/"+state.DraftID+"/state", ""); rec.Code != http.StatusNotFound {
		t.Errorf("deleted draft: status %d, want 404", rec.Code)
	}
}

func TestSearchPlayers(t *testing.T) {
	mux, _ := newTestServer(t)

	rec := do(t, mux, http.MethodGet, "/api/players/search?q=mccaffrey", "")
	var out struct {
		Players []engine.PlayerMatch `json:"players"`
	}
	decode(t, rec, &out)
	if len(out.Players) == 0 || out.Players[0].Name != "Christian McCaffrey" {
		t.Errorf("unexpected search result: %+v", out.Players)
	}

	if rec := do(t, mux, http.MethodGet, "/api/players/search", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("missing q: status %d, want 400", rec.Code)
	}
}

func TestListModes(t *testing.T) {
	mux, _ := newTestServer(t)
	rec := do(t, mux, http.MethodGet, "/api/modes", "")
	var out struct {
		Modes       []string `json:"modes"`
		DefaultMode string   `json:"defaultMode"`
	}
	decode(t, rec, &out)
	if len(out.Modes) != 7 || out.DefaultMode != "robust" {
		t.Errorf("unexpected modes: %+v", out)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{engine.ErrDraftNotFound, http.StatusNotFound},
		{draft.ErrUnknownPlayer, http.StatusNotFound},
		{draft.ErrPlayerUnavailable, http.StatusConflict},
		{draft.ErrDraftComplete, http.StatusConflict},
		{draft.ErrInvalidDraftSpot, http.StatusBadRequest},
		{draft.ErrUnknownTeam, http.StatusBadRequest},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := StatusFor(tt.err); got != tt.want {
			t.Errorf("StatusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestEventsSSEReplaysDraftEvents(t *testing.T) {
	mux, ps := newTestServer(t)
	a := createDraft(t, mux, tenTeamDraft)
	createDraft(t, mux, tenTeamDraft)

	srv := httptest.NewServer(mux)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/events?draft="+a.DraftID+"&replay=10", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /api/events failed: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type = %q", ct)
	}

	reader := bufio.NewReader(resp.Body)
	var events []pubsub.Event
	for len(events) < 3 {
		line, err := reader.ReadString('\n')
		if err != nil {
			t.Fatalf("read SSE stream: %v", err)
		}
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var e pubsub.Event
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &e); err != nil {
			t.Fatalf("bad SSE payload %q: %v", line, err)
		}
		events = append(events, e)
		if len(events) == 1 {
			// subscribed by now
			ps.Publish(pubsub.NewEvent("draft:pick", a.DraftID, nil))
		}
	}

	if events[0].Type != "connected" {
		t.Errorf("first event = %s, want connected", events[0].Type)
	}
	if events[1].Type != engine.EventDraftCreated || events[1].DraftID != a.DraftID {
		t.Errorf("replayed event = %+v", events[1])
	}
	if events[2].Type != "draft:pick" || events[2].DraftID != a.DraftID {
		t.Errorf("live event = %+v", events[2])
	}
}

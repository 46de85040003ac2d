package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Billy-Davies-2/draft-engine/internal/advice"
	"github.com/Billy-Davies-2/draft-engine/internal/draft"
	"github.com/Billy-Davies-2/draft-engine/internal/engine"
	"github.com/Billy-Davies-2/draft-engine/internal/logger"
	"github.com/Billy-Davies-2/draft-engine/internal/models"
	"github.com/Billy-Davies-2/draft-engine/internal/pubsub"
)

const (
	defaultSearchLimit = 10
	sseKeepalive       = 30 * time.Second
)

// APIHandlers contains all API handler methods
type APIHandlers struct {
	engine *engine.Engine
	pubsub *pubsub.PubSub
}

// NewAPIHandlers creates a new API handlers instance
func NewAPIHandlers(eng *engine.Engine, ps *pubsub.PubSub) *APIHandlers {
	return &APIHandlers{
		engine: eng,
		pubsub: ps,
	}
}

// Register mounts the draft API on mux
func (h *APIHandlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/drafts", h.CreateDraft)
	mux.HandleFunc("GET /api/drafts", h.ListDrafts)
	mux.HandleFunc("DELETE /api/drafts/{id}", h.DeleteDraft)
	mux.HandleFunc("GET /api/drafts/{id}/state", h.GetDraftState)
	mux.HandleFunc("GET /api/drafts/{id}/players", h.ListPlayers)
	mux.HandleFunc("POST /api/drafts/{id}/pick", h.DraftPick)
	mux.HandleFunc("GET /api/drafts/{id}/advice", h.GetAdvice)
	mux.HandleFunc("GET /api/drafts/{id}/availability", h.GetAvailability)
	mux.HandleFunc("GET /api/drafts/{id}/next-pick-line", h.GetNextPickLine)
	mux.HandleFunc("GET /api/players/search", h.SearchPlayers)
	mux.HandleFunc("GET /api/modes", h.ListModes)
	if h.pubsub != nil {
		mux.HandleFunc("GET /api/events", h.EventsSSE)
	}
}

// StatusFor maps engine errors to HTTP status codes
func StatusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrDraftNotFound), errors.Is(err, draft.ErrUnknownPlayer):
		return http.StatusNotFound
	case errors.Is(err, draft.ErrDraftComplete), errors.Is(err, draft.ErrPlayerUnavailable),
		errors.Is(err, engine.ErrDraftExists):
		return http.StatusConflict
	case errors.Is(err, draft.ErrInvalidTeamCount), errors.Is(err, draft.ErrInvalidDraftSpot),
		errors.Is(err, draft.ErrInvalidScoringMode), errors.Is(err, draft.ErrUnknownTeam),
		errors.Is(err, advice.ErrUnknownMode):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error("Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	} else {
		logger.Debug("Request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
}

// queryInt reads an optional integer query parameter
func queryInt(r *http.Request, key string, def int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, raw)
	}
	return n, nil
}

// teamParam reads ?team=, defaulting to the draft's own spot
func (h *APIHandlers) teamParam(r *http.Request, id string) (int, error) {
	team, err := queryInt(r, "team", 0)
	if err != nil || team != 0 {
		return team, err
	}
	d, err := h.engine.Get(r.Context(), id)
	if err != nil {
		return 0, err
	}
	return d.Settings().DraftSpot, nil
}

// CreateDraft starts a new draft
func (h *APIHandlers) CreateDraft(w http.ResponseWriter, r *http.Request) {
	var req engine.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("Failed to decode create draft request", "error", err)
		badRequest(w, err.Error())
		return
	}
	// unknown names pass through and fail validation in the engine
	if mode, ok := models.ParseScoringMode(string(req.Scoring)); ok {
		req.Scoring = mode
	}

	d, err := h.engine.CreateDraft(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, d.State())
}

// ListDrafts summarizes live drafts
func (h *APIHandlers) ListDrafts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"drafts": h.engine.List(r.Context()),
	})
}

// DeleteDraft removes a draft and its snapshot
func (h *APIHandlers) DeleteDraft(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.engine.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "draftId": id})
}

// GetDraftState returns the current draft state
func (h *APIHandlers) GetDraftState(w http.ResponseWriter, r *http.Request) {
	state, err := h.engine.State(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// ListPlayers returns the remaining pool ranked by VORP
func (h *APIHandlers) ListPlayers(w http.ResponseWriter, r *http.Request) {
	var pos *models.Position
	if raw := r.URL.Query().Get("position"); raw != "" {
		p, err := models.ParsePosition(raw)
		if err != nil {
			badRequest(w, err.Error())
			return
		}
		pos = &p
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	players, err := h.engine.Players(r.Context(), r.PathValue("id"), pos, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"players": players})
}

// DraftPick drafts a player for the team on the clock
func (h *APIHandlers) DraftPick(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlayerID string `json:"playerId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("Failed to decode draft pick request", "error", err)
		badRequest(w, err.Error())
		return
	}
	if req.PlayerID == "" {
		badRequest(w, "playerId is required")
		return
	}

	res, err := h.engine.MakePick(r.Context(), r.PathValue("id"), req.PlayerID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GetAdvice ranks the remaining pool for a team
func (h *APIHandlers) GetAdvice(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	team, err := h.teamParam(r, id)
	if err != nil {
		h.paramError(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	mode := r.URL.Query().Get("mode")

	recs, err := h.engine.GetAdvice(r.Context(), id, team, mode, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if mode == "" {
		mode = advice.DefaultMode
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"teamId":          team,
		"mode":            mode,
		"recommendations": recs,
	})
}

// GetAvailability forecasts who survives until a team's next pick
func (h *APIHandlers) GetAvailability(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	team, err := h.teamParam(r, id)
	if err != nil {
		h.paramError(w, r, err)
		return
	}
	samples, err := queryInt(r, "samples", 0)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	avail, err := h.engine.SimulateAvailability(r.Context(), id, team, samples)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, avail)
}

// GetNextPickLine describes the user's next turn
func (h *APIHandlers) GetNextPickLine(w http.ResponseWriter, r *http.Request) {
	line, err := h.engine.NextPickLine(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, line)
}

// SearchPlayers finds catalog players by name
func (h *APIHandlers) SearchPlayers(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		badRequest(w, "missing q parameter")
		return
	}
	limit, err := queryInt(r, "limit", defaultSearchLimit)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	matches, err := h.engine.FindPlayers(r.Context(), q, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"query": q, "players": matches})
}

// ListModes lists the advice modes
func (h *APIHandlers) ListModes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"modes":       h.engine.Modes(),
		"defaultMode": advice.DefaultMode,
	})
}

// paramError reports a bad query parameter, or the lookup error behind it
func (h *APIHandlers) paramError(w http.ResponseWriter, r *http.Request, err error) {
	if StatusFor(err) == http.StatusInternalServerError {
		badRequest(w, err.Error())
		return
	}
	writeError(w, r, err)
}

// EventsSSE streams draft events. ?draft= limits the stream to one draft and
// ?replay=N first sends up to N retained events.
func (h *APIHandlers) EventsSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}
	replay, err := queryInt(r, "replay", 0)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	draftID := r.URL.Query().Get("draft")

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	eventChan := h.pubsub.SubscribeDraft(draftID)
	defer h.pubsub.Unsubscribe(eventChan)

	fmt.Fprintf(w, "data: {\"type\":\"connected\"}\n\n")
	if replay > 0 {
		for _, event := range h.pubsub.Recent(draftID, replay) {
			writeSSE(w, event)
		}
	}
	flusher.Flush()

	for {
		select {
		case event, ok := <-eventChan:
			if !ok {
				return
			}
			writeSSE(w, event)
			flusher.Flush()
		case <-r.Context().Done():
			logger.Debug("SSE client disconnected", "draft_id", draftID)
			return
		case <-time.After(sseKeepalive):
			fmt.Fprintf(w, ": keepalive\n\n")
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, event pubsub.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		logger.Warn("Failed to marshal SSE event", "event_type", event.Type, "error", err)
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
}

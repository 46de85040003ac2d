package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Billy-Davies-2/draft-engine/internal/advice"
	"github.com/Billy-Davies-2/draft-engine/internal/config"
	"github.com/Billy-Davies-2/draft-engine/internal/dal"
	"github.com/Billy-Davies-2/draft-engine/internal/draft"
	"github.com/Billy-Davies-2/draft-engine/internal/logger"
	"github.com/Billy-Davies-2/draft-engine/internal/models"
	"github.com/Billy-Davies-2/draft-engine/internal/pubsub"
	"github.com/Billy-Davies-2/draft-engine/internal/snapshot"
)

// Event types published by the engine
const (
	EventDraftCreated = "draft:created"
	EventDraftPick    = "draft:pick"
	EventDraftDeleted = "draft:deleted"
)

// ErrDraftNotFound is returned for ids with no live draft and no snapshot
var ErrDraftNotFound = errors.New("draft not found")

// Publisher receives draft events
type Publisher interface {
	Publish(pubsub.Event)
}

// PickRecorder stores picks for offline analysis
type PickRecorder interface {
	RecordPick(ctx context.Context, draftID string, scoring models.ScoringMode, pick models.Pick, player models.Player) error
}

// Options wires an Engine. Catalog is required; everything else is optional.
type Options struct {
	Store       Store
	Catalog     dal.PlayerCatalog
	Snapshots   dal.SnapshotStore
	Calibration advice.Calibration
	Events      Publisher
	Recorder    PickRecorder
	League      config.League
}

// Engine runs drafts: creation, picks, advice and forecasts
type Engine struct {
	store      Store
	catalog    dal.PlayerCatalog
	snapshots  dal.SnapshotStore
	strategies *advice.Registry
	events     Publisher
	recorder   PickRecorder
	league     config.League

	// one lock per draft id, held across encode and save so snapshots land in pick order
	persistLocks sync.Map
}

// New creates an Engine
func New(opts Options) (*Engine, error) {
	if opts.Catalog == nil {
		return nil, errors.New("engine: player catalog is required")
	}
	if opts.Store == nil {
		opts.Store = NewMemoryStore()
	}
	if opts.League.Rounds == 0 {
		opts.League = config.DefaultLeague()
	}
	if err := opts.League.Validate(); err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	return &Engine{
		store:      opts.Store,
		catalog:    opts.Catalog,
		snapshots:  opts.Snapshots,
		strategies: advice.NewRegistry(opts.Calibration),
		events:     opts.Events,
		recorder:   opts.Recorder,
		league:     opts.League,
	}, nil
}

// League returns the rules new drafts are created with
func (e *Engine) League() config.League { return e.league }

// Modes lists the advice modes
func (e *Engine) Modes() []string { return e.strategies.Names() }

// CreateRequest are the caller-chosen settings of a new draft
type CreateRequest struct {
	Teams     int                `json:"numTeams"`
	DraftSpot int                `json:"draftSpot"`
	Snake     bool               `json:"snake"`
	Scoring   models.ScoringMode `json:"scoringMode"`
	// Seed fixes randomized rankings; 0 picks one from the clock
	Seed int64 `json:"seed,omitempty"`
}

func newDraftID() string {
	return "draft_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// CreateDraft builds a draft over the catalog and registers it
func (e *Engine) CreateDraft(ctx context.Context, req CreateRequest) (*draft.Draft, error) {
	seed := req.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	settings := draft.Settings{
		Teams:     req.Teams,
		DraftSpot: req.DraftSpot,
		Snake:     req.Snake,
		Scoring:   req.Scoring,
		League:    e.league,
		Seed:      seed,
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	players, err := e.catalog.LoadPlayers(ctx, e.league.CatalogSize)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	d, err := draft.New(newDraftID(), settings, players)
	if err != nil {
		return nil, err
	}
	if err := e.store.Put(d); err != nil {
		return nil, err
	}

	e.persist(ctx, d)
	logger.Info("Draft created", "draft_id", d.ID(), "teams", req.Teams, "draft_spot", req.DraftSpot,
		"scoring", req.Scoring, "players", len(players))
	e.publish(EventDraftCreated, d.ID(), map[string]interface{}{
		"draftId":     d.ID(),
		"numTeams":    req.Teams,
		"draftSpot":   req.DraftSpot,
		"scoringMode": string(req.Scoring),
	})
	return d, nil
}

// Get returns a live draft, resuming it from its snapshot when needed
func (e *Engine) Get(ctx context.Context, id string) (*draft.Draft, error) {
	if d, ok := e.store.Get(id); ok {
		return d, nil
	}
	if e.snapshots == nil {
		return nil, fmt.Errorf("%w: %s", ErrDraftNotFound, id)
	}

	data, err := e.snapshots.LoadSnapshot(ctx, id)
	if errors.Is(err, dal.ErrSnapshotNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrDraftNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", id, err)
	}
	d, err := snapshot.Load(data)
	if err != nil {
		return nil, err
	}

	if err := e.store.Put(d); errors.Is(err, ErrDraftExists) {
		// another request resumed it first
		if live, ok := e.store.Get(id); ok {
			return live, nil
		}
	}
	logger.Info("Draft resumed from snapshot", "draft_id", id, "picks", len(d.Picks()))
	return d, nil
}

// Delete drops a draft and its snapshot
func (e *Engine) Delete(ctx context.Context, id string) error {
	found := e.store.Delete(id)
	if e.snapshots != nil {
		mu := e.persistLock(id)
		mu.Lock()
		defer func() {
			mu.Unlock()
			e.persistLocks.Delete(id)
		}()
		if _, err := e.snapshots.LoadSnapshot(ctx, id); err == nil {
			found = true
		}
		if err := e.snapshots.DeleteSnapshot(ctx, id); err != nil {
			return fmt.Errorf("delete snapshot %s: %w", id, err)
		}
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrDraftNotFound, id)
	}
	logger.Info("Draft deleted", "draft_id", id)
	e.publish(EventDraftDeleted, id, map[string]interface{}{"draftId": id})
	return nil
}

// List summarizes live drafts
func (e *Engine) List(_ context.Context) []models.DraftSummary {
	drafts := e.store.List()
	out := make([]models.DraftSummary, 0, len(drafts))
	for _, d := range drafts {
		out = append(out, d.Summary())
	}
	return out
}

// ResumeAll loads every stored snapshot so restarted instances list their drafts.
// Snapshots that fail to load are logged and skipped.
func (e *Engine) ResumeAll(ctx context.Context) (int, error) {
	if e.snapshots == nil {
		return 0, nil
	}
	ids, err := e.snapshots.ListSnapshots(ctx)
	if err != nil {
		return 0, fmt.Errorf("list snapshots: %w", err)
	}
	resumed := 0
	for _, id := range ids {
		if _, err := e.Get(ctx, id); err != nil {
			logger.Warn("Skipping unreadable snapshot", "draft_id", id, "error", err)
			continue
		}
		resumed++
	}
	return resumed, nil
}

// State returns the full state of a draft
func (e *Engine) State(ctx context.Context, id string) (models.DraftStateView, error) {
	d, err := e.Get(ctx, id)
	if err != nil {
		return models.DraftStateView{}, err
	}
	return d.State(), nil
}

// MakePick drafts a player for the team on the clock
func (e *Engine) MakePick(ctx context.Context, id, playerID string) (*models.PickResult, error) {
	d, err := e.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	res, err := d.MakePick(playerID)
	if err != nil {
		return nil, err
	}

	e.persist(ctx, d)
	if e.recorder != nil {
		if err := e.recorder.RecordPick(ctx, id, d.Settings().Scoring, res.Pick, res.Player); err != nil {
			logger.Warn("Failed to record pick", "draft_id", id, "pick_index", res.Pick.PickIndex, "error", err)
		}
	}

	logger.Info("Pick made", "draft_id", id, "pick_index", res.Pick.PickIndex, "team_id", res.Pick.TeamID,
		"player_id", playerID, "player", res.Player.Name)
	e.publish(EventDraftPick, id, map[string]interface{}{
		"draftId":     id,
		"pickIndex":   res.Pick.PickIndex,
		"teamId":      res.Pick.TeamID,
		"playerId":    playerID,
		"playerName":  res.Player.Name,
		"position":    string(res.Player.Position),
		"roundNumber": res.Pick.RoundNumber,
		"pickInRound": res.Pick.PickInRound,
		"complete":    res.Complete,
	})
	return res, nil
}

// GetAdvice ranks the remaining pool for team with the named mode
func (e *Engine) GetAdvice(ctx context.Context, id string, team int, mode string, limit int) ([]models.Recommendation, error) {
	d, err := e.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := e.strategies.Get(mode); err != nil {
		return nil, err
	}

	d.EnsureRemaining()
	v, err := d.View(team)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = e.league.AdviceLimit
	}
	return e.strategies.Rank(ctx, mode, v, limit)
}

// Players lists remaining players by VORP, optionally for one position
func (e *Engine) Players(ctx context.Context, id string, pos *models.Position, limit int) ([]models.RankedPlayer, error) {
	d, err := e.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if pos != nil {
		d.EnsurePosition(*pos)
	} else {
		d.EnsureRemaining()
	}
	return d.Ranked(pos, limit), nil
}

// NextPickLine describes the user's next turn
func (e *Engine) NextPickLine(ctx context.Context, id string) (*models.NextPickLine, error) {
	d, err := e.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	next, ok := d.UserNextPickIndex()
	if !ok {
		return &models.NextPickLine{Message: "Draft complete or no more user picks"}, nil
	}

	avail, err := e.SimulateAvailability(ctx, id, d.Settings().DraftSpot, nextPickLineSamples)
	if err != nil {
		return nil, err
	}
	round, inRound := d.RoundAndPick(next)
	return &models.NextPickLine{
		HasNextPick:          true,
		UserNextPickIndex:    next,
		PicksUntilUser:       avail.PicksUntil,
		RoundNumber:          round,
		PickInRound:          inRound,
		LikelyAvailableCount: len(avail.LikelyAvailable),
		Message:              fmt.Sprintf("Your next pick: Round %d Pick %d (in ~%d picks)", round, inRound, avail.PicksUntil),
	}, nil
}

// persist stores a snapshot. Failures are logged; the in-memory draft stays authoritative.
func (e *Engine) persist(ctx context.Context, d *draft.Draft) {
	if e.snapshots == nil {
		return
	}
	mu := e.persistLock(d.ID())
	mu.Lock()
	defer mu.Unlock()

	data, err := snapshot.Encode(d)
	if err != nil {
		logger.Error("Failed to encode snapshot", "draft_id", d.ID(), "error", err)
		return
	}
	if err := e.snapshots.SaveSnapshot(ctx, d.ID(), data); err != nil {
		logger.Error("Failed to save snapshot", "draft_id", d.ID(), "error", err)
	}
}

func (e *Engine) persistLock(id string) *sync.Mutex {
	mu, _ := e.persistLocks.LoadOrStore(id, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

func (e *Engine) publish(eventType, draftID string, payload map[string]interface{}) {
	if e.events == nil {
		return
	}
	e.events.Publish(pubsub.NewEvent(eventType, draftID, payload))
}

package grpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/Billy-Davies-2/draft-engine/internal/advice"
	"github.com/Billy-Davies-2/draft-engine/internal/draft"
	"github.com/Billy-Davies-2/draft-engine/internal/engine"
	"github.com/Billy-Davies-2/draft-engine/internal/logger"
	"github.com/Billy-Davies-2/draft-engine/internal/models"
	"github.com/Billy-Davies-2/draft-engine/internal/pubsub"
)

// Server implements the gRPC DraftService
type Server struct {
	engine *engine.Engine
	pubsub *pubsub.PubSub
}

// NewServer creates a new gRPC server
func NewServer(eng *engine.Engine, ps *pubsub.PubSub) *Server {
	return &Server{
		engine: eng,
		pubsub: ps,
	}
}

// CodeFor maps engine errors to gRPC status codes
func CodeFor(err error) codes.Code {
	switch {
	case errors.Is(err, engine.ErrDraftNotFound), errors.Is(err, draft.ErrUnknownPlayer):
		return codes.NotFound
	case errors.Is(err, draft.ErrDraftComplete), errors.Is(err, draft.ErrPlayerUnavailable):
		return codes.FailedPrecondition
	case errors.Is(err, engine.ErrDraftExists):
		return codes.AlreadyExists
	case errors.Is(err, draft.ErrInvalidTeamCount), errors.Is(err, draft.ErrInvalidDraftSpot),
		errors.Is(err, draft.ErrInvalidScoringMode), errors.Is(err, draft.ErrUnknownTeam),
		errors.Is(err, advice.ErrUnknownMode), errors.Is(err, errBadArgument):
		return codes.InvalidArgument
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	default:
		return codes.Internal
	}
}

func toStatus(method string, err error) error {
	code := CodeFor(err)
	if code == codes.Internal {
		logger.Error("gRPC: request failed", "method", method, "error", err)
	}
	return status.Error(code, err.Error())
}

var errBadArgument = errors.New("bad argument")

func stringField(req *structpb.Struct, key string) string {
	return req.GetFields()[key].GetStringValue()
}

func requiredString(req *structpb.Struct, key string) (string, error) {
	s := stringField(req, key)
	if s == "" {
		return "", fmt.Errorf("%w: %s is required", errBadArgument, key)
	}
	return s, nil
}

func intField(req *structpb.Struct, key string, def int) (int, error) {
	v, ok := req.GetFields()[key]
	if !ok {
		return def, nil
	}
	if _, isNull := v.GetKind().(*structpb.Value_NullValue); isNull {
		return def, nil
	}
	n, isNum := v.GetKind().(*structpb.Value_NumberValue)
	if !isNum || n.NumberValue != math.Trunc(n.NumberValue) || math.Abs(n.NumberValue) > math.MaxInt32 {
		return 0, fmt.Errorf("%w: %s must be an integer", errBadArgument, key)
	}
	return int(n.NumberValue), nil
}

// toStruct converts a JSON-tagged value to a Struct
func toStruct(v interface{}) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return structpb.NewStruct(m)
}

func (s *Server) reply(method string, v interface{}, err error) (*structpb.Struct, error) {
	if err != nil {
		return nil, toStatus(method, err)
	}
	out, err := toStruct(v)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// teamField reads teamId, defaulting to the draft's own spot
func (s *Server) teamField(ctx context.Context, req *structpb.Struct, id string) (int, error) {
	team, err := intField(req, "teamId", 0)
	if err != nil || team != 0 {
		return team, err
	}
	d, err := s.engine.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	return d.Settings().DraftSpot, nil
}

// CreateDraft starts a new draft
func (s *Server) CreateDraft(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	teams, err := intField(req, "numTeams", 0)
	if err != nil {
		return nil, toStatus("CreateDraft", err)
	}
	spot, err := intField(req, "draftSpot", 0)
	if err != nil {
		return nil, toStatus("CreateDraft", err)
	}
	seed, err := intField(req, "seed", 0)
	if err != nil {
		return nil, toStatus("CreateDraft", err)
	}
	scoring := models.ScoringMode(stringField(req, "scoringMode"))
	if mode, ok := models.ParseScoringMode(string(scoring)); ok {
		scoring = mode
	}

	logger.Info("gRPC: Creating draft", "teams", teams, "draft_spot", spot)
	d, err := s.engine.CreateDraft(ctx, engine.CreateRequest{
		Teams:     teams,
		DraftSpot: spot,
		Snake:     req.GetFields()["snake"].GetBoolValue(),
		Scoring:   scoring,
		Seed:      int64(seed),
	})
	if err != nil {
		return nil, toStatus("CreateDraft", err)
	}
	return s.reply("CreateDraft", d.State(), nil)
}

// ListDrafts summarizes live drafts
func (s *Server) ListDrafts(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	return s.reply("ListDrafts", map[string]interface{}{"drafts": s.engine.List(ctx)}, nil)
}

// GetState returns the current draft state
func (s *Server) GetState(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := requiredString(req, "draftId")
	if err != nil {
		return nil, toStatus("GetState", err)
	}
	state, err := s.engine.State(ctx, id)
	return s.reply("GetState", state, err)
}

// DeleteDraft removes a draft and its snapshot
func (s *Server) DeleteDraft(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := requiredString(req, "draftId")
	if err != nil {
		return nil, toStatus("DeleteDraft", err)
	}
	logger.Info("gRPC: Deleting draft", "draft_id", id)
	err = s.engine.Delete(ctx, id)
	return s.reply("DeleteDraft", map[string]interface{}{"success": true, "draftId": id}, err)
}

// MakePick drafts a player for the team on the clock
func (s *Server) MakePick(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := requiredString(req, "draftId")
	if err != nil {
		return nil, toStatus("MakePick", err)
	}
	playerID, err := requiredString(req, "playerId")
	if err != nil {
		return nil, toStatus("MakePick", err)
	}
	res, err := s.engine.MakePick(ctx, id, playerID)
	return s.reply("MakePick", res, err)
}

// ListPlayers returns the remaining pool ranked by VORP
func (s *Server) ListPlayers(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := requiredString(req, "draftId")
	if err != nil {
		return nil, toStatus("ListPlayers", err)
	}
	limit, err := intField(req, "limit", 0)
	if err != nil {
		return nil, toStatus("ListPlayers", err)
	}
	var pos *models.Position
	if raw := stringField(req, "position"); raw != "" {
		p, err := models.ParsePosition(raw)
		if err != nil {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		pos = &p
	}
	players, err := s.engine.Players(ctx, id, pos, limit)
	return s.reply("ListPlayers", map[string]interface{}{"players": players}, err)
}

// GetAdvice ranks the remaining pool for a team
func (s *Server) GetAdvice(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := requiredString(req, "draftId")
	if err != nil {
		return nil, toStatus("GetAdvice", err)
	}
	team, err := s.teamField(ctx, req, id)
	if err != nil {
		return nil, toStatus("GetAdvice", err)
	}
	limit, err := intField(req, "limit", 0)
	if err != nil {
		return nil, toStatus("GetAdvice", err)
	}
	mode := stringField(req, "mode")

	recs, err := s.engine.GetAdvice(ctx, id, team, mode, limit)
	if mode == "" {
		mode = advice.DefaultMode
	}
	return s.reply("GetAdvice", map[string]interface{}{
		"teamId":          team,
		"mode":            mode,
		"recommendations": recs,
	}, err)
}

// SimulateAvailability forecasts who survives until a team's next pick
func (s *Server) SimulateAvailability(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := requiredString(req, "draftId")
	if err != nil {
		return nil, toStatus("SimulateAvailability", err)
	}
	team, err := s.teamField(ctx, req, id)
	if err != nil {
		return nil, toStatus("SimulateAvailability", err)
	}
	samples, err := intField(req, "samples", 0)
	if err != nil {
		return nil, toStatus("SimulateAvailability", err)
	}
	avail, err := s.engine.SimulateAvailability(ctx, id, team, samples)
	return s.reply("SimulateAvailability", avail, err)
}

// NextPickLine describes the user's next turn
func (s *Server) NextPickLine(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := requiredString(req, "draftId")
	if err != nil {
		return nil, toStatus("NextPickLine", err)
	}
	line, err := s.engine.NextPickLine(ctx, id)
	return s.reply("NextPickLine", line, err)
}

// SearchPlayers finds catalog players by name
func (s *Server) SearchPlayers(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	query, err := requiredString(req, "query")
	if err != nil {
		return nil, toStatus("SearchPlayers", err)
	}
	limit, err := intField(req, "limit", 10)
	if err != nil {
		return nil, toStatus("SearchPlayers", err)
	}
	matches, err := s.engine.FindPlayers(ctx, query, limit)
	return s.reply("SearchPlayers", map[string]interface{}{"query": query, "players": matches}, err)
}

// StreamEvents streams events to clients, optionally for one draft
func (s *Server) StreamEvents(req *structpb.Struct, stream grpc.ServerStream) error {
	draftID := stringField(req, "draftId")
	logger.Debug("gRPC: New client connected to event stream", "draft_id", draftID)
	eventChan := s.pubsub.SubscribeDraft(draftID)
	defer s.pubsub.Unsubscribe(eventChan)

	for {
		select {
		case event, ok := <-eventChan:
			if !ok {
				return nil
			}
			msg, err := toStruct(event)
			if err != nil {
				logger.Warn("gRPC: Failed to convert event", "event_type", event.Type, "error", err)
				continue
			}
			if err := stream.SendMsg(msg); err != nil {
				logger.Error("gRPC: Failed to send event to stream", "error", err)
				return err
			}
		case <-stream.Context().Done():
			logger.Debug("gRPC: Client disconnected from event stream")
			return nil
		}
	}
}

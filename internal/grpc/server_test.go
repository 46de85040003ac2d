package grpc

import (
	"context"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/Billy-Davies-2/draft-engine/internal/dal"
	"github.com/Billy-Davies-2/draft-engine/internal/engine"
	"github.com/Billy-Davies-2/draft-engine/internal/pubsub"
)

func startServer(t *testing.T) (*Client, *pubsub.PubSub) {
	t.Helper()
	store := dal.NewMemoryDAL()
	ps := pubsub.New()
	eng, err := engine.New(engine.Options{Catalog: store, Snapshots: store, Events: ps})
	if err != nil {
		t.Fatalf("engine.New() failed: %v", err)
	}

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	RegisterDraftServiceServer(srv, NewServer(eng, ps))
	go func() {
		_ = srv.Serve(lis)
	}()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("grpc.NewClient() failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return NewClient(conn), ps
}

func createDraft(t *testing.T, c *Client) string {
	t.Helper()
	out, err := c.Call(context.Background(), "CreateDraft", map[string]interface{}{
		"numTeams":    10,
		"draftSpot":   4,
		"snake":       true,
		"scoringMode": "Half",
		"seed":        7,
	})
	if err != nil {
		t.Fatalf("CreateDraft failed: %v", err)
	}
	id, _ := out["draftId"].(string)
	if id == "" {
		t.Fatalf("CreateDraft returned no draftId: %v", out)
	}
	return id
}

func TestGRPCDraftFlow(t *testing.T) {
	c, _ := startServer(t)
	ctx := context.Background()
	id := createDraft(t, c)

	players, err := c.Call(ctx, "ListPlayers", map[string]interface{}{"draftId": id, "limit": 2})
	if err != nil {
		t.Fatalf("ListPlayers failed: %v", err)
	}
	list, _ := players["players"].([]interface{})
	if len(list) != 2 {
		t.Fatalf("got %d players, want 2", len(list))
	}
	first := list[0].(map[string]interface{})["id"].(string)

	pick, err := c.Call(ctx, "MakePick", map[string]interface{}{"draftId": id, "playerId": first})
	if err != nil {
		t.Fatalf("MakePick failed: %v", err)
	}
	if p := pick["pick"].(map[string]interface{}); p["teamId"] != 1.0 || p["playerId"] != first {
		t.Errorf("unexpected pick: %v", p)
	}

	state, err := c.Call(ctx, "GetState", map[string]interface{}{"draftId": id})
	if err != nil {
		t.Fatalf("GetState failed: %v", err)
	}
	if state["picksMade"] != 1.0 || state["scoringMode"] != "half_ppr" {
		t.Errorf("unexpected state: picksMade=%v scoring=%v", state["picksMade"], state["scoringMode"])
	}

	adv, err := c.Call(ctx, "GetAdvice", map[string]interface{}{"draftId": id, "mode": "fill_need", "limit": 3})
	if err != nil {
		t.Fatalf("GetAdvice failed: %v", err)
	}
	if adv["teamId"] != 4.0 || adv["mode"] != "fill_need" {
		t.Errorf("advice should default to the draft spot: %v", adv["teamId"])
	}
	if recs, _ := adv["recommendations"].([]interface{}); len(recs) != 3 {
		t.Errorf("got %d recommendations, want 3", len(recs))
	}

	avail, err := c.Call(ctx, "SimulateAvailability", map[string]interface{}{"draftId": id, "samples": 10})
	if err != nil {
		t.Fatalf("SimulateAvailability failed: %v", err)
	}
	if avail["picksUntilUser"] != 2.0 {
		t.Errorf("picks until = %v, want 2", avail["picksUntilUser"])
	}

	line, err := c.Call(ctx, "NextPickLine", map[string]interface{}{"draftId": id})
	if err != nil {
		t.Fatalf("NextPickLine failed: %v", err)
	}
	if line["hasNextPick"] != true {
		t.Errorf("expected a next pick: %v", line)
	}

	if _, err := c.Call(ctx, "DeleteDraft", map[string]interface{}{"draftId": id}); err != nil {
		t.Fatalf("DeleteDraft failed: %v", err)
	}
	drafts, err := c.Call(ctx, "ListDrafts", nil)
	if err != nil {
		t.Fatalf("ListDrafts failed: %v", err)
	}
	if list, _ := drafts["drafts"].([]interface{}); len(list) != 0 {
		t.Errorf("expected no drafts after delete, got %d", len(list))
	}
}

func TestGRPCErrorCodes(t *testing.T) {
	c, _ := startServer(t)
	ctx := context.Background()
	id := createDraft(t, c)

	tests := []struct {
		name   string
		method string
		req    map[string]interface{}
		want   codes.Code
	}{
		{"missing draft id", "GetState", map[string]interface{}{}, codes.InvalidArgument},
		{"unknown draft", "GetState", map[string]interface{}{"draftId": "nope"}, codes.NotFound},
		{"bad team count", "CreateDraft", map[string]interface{}{"numTeams": 1, "draftSpot": 1}, codes.InvalidArgument},
		{"fractional team", "GetAdvice", map[string]interface{}{"draftId": id, "teamId": 1.5}, codes.InvalidArgument},
		{"unknown mode", "GetAdvice", map[string]interface{}{"draftId": id, "mode": "coin_flip"}, codes.InvalidArgument},
		{"unknown player", "MakePick", map[string]interface{}{"draftId": id, "playerId": "x999"}, codes.NotFound},
		{"bad position", "ListPlayers", map[string]interface{}{"draftId": id, "position": "OL"}, codes.InvalidArgument},
		{"missing query", "SearchPlayers", map[string]interface{}{}, codes.InvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Call(ctx, tt.method, tt.req)
			if got := status.Code(err); got != tt.want {
				t.Errorf("code = %s, want %s (%v)", got, tt.want, err)
			}
		})
	}
}

func TestGRPCDuplicatePick(t *testing.T) {
	c, _ := startServer(t)
	ctx := context.Background()
	id := createDraft(t, c)

	search, err := c.Call(ctx, "SearchPlayers", map[string]interface{}{"query": "Cooper Cup"})
	if err != nil {
		t.Fatalf("SearchPlayers failed: %v", err)
	}
	matches, _ := search["players"].([]interface{})
	if len(matches) == 0 {
		t.Fatal("expected a fuzzy match")
	}
	pid := matches[0].(map[string]interface{})["id"].(string)

	if _, err := c.Call(ctx, "MakePick", map[string]interface{}{"draftId": id, "playerId": pid}); err != nil {
		t.Fatalf("MakePick failed: %v", err)
	}
	_, err = c.Call(ctx, "MakePick", map[string]interface{}{"draftId": id, "playerId": pid})
	if status.Code(err) != codes.FailedPrecondition {
		t.Errorf("duplicate pick code = %s, want FailedPrecondition", status.Code(err))
	}
}

func TestGRPCStreamEvents(t *testing.T) {
	c, ps := startServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stream, err := c.StreamEvents(ctx, map[string]interface{}{"draftId": "draft_watch"})
	if err != nil {
		t.Fatalf("StreamEvents failed: %v", err)
	}

	// publish until the server side has subscribed
	go func() {
		ticker := time.NewTicker(20 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				ps.Publish(pubsub.NewEvent("draft:other", "draft_other", nil))
				ps.Publish(pubsub.NewEvent("draft:pick", "draft_watch", map[string]interface{}{"pickIndex": 0}))
			}
		}
	}()

	msg := new(structpb.Struct)
	if err := stream.RecvMsg(msg); err != nil {
		t.Fatalf("RecvMsg failed: %v", err)
	}
	got := msg.AsMap()
	if got["type"] != "draft:pick" || got["draftId"] != "draft_watch" {
		t.Errorf("unexpected event: %v", got)
	}
}

package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Billy-Davies-2/draft-engine/internal/config"
	"github.com/Billy-Davies-2/draft-engine/internal/draft"
	"github.com/Billy-Davies-2/draft-engine/internal/models"
)

// SchemaVersion is the snapshot layout this build writes. Version 2 stores
// every league field verbatim; version 1 snapshots may omit them.
const SchemaVersion = 2

var (
	// ErrUnsupportedVersion is returned for snapshots written by a newer layout
	ErrUnsupportedVersion = errors.New("unsupported snapshot version")
	// ErrMissingDraftID is returned for snapshots without an id
	ErrMissingDraftID = errors.New("snapshot has no draft id")
)

// Settings is the persisted form of draft.Settings
type Settings struct {
	Teams     int                `json:"teams"`
	DraftSpot int                `json:"draft_spot"`
	Snake     bool               `json:"snake"`
	Scoring   models.ScoringMode `json:"scoring_mode"`
	Seed      int64              `json:"seed"`
	League    League             `json:"league"`
}

// League is the persisted form of config.League
type League struct {
	Rounds         int            `json:"rounds"`
	BenchBuffer    int            `json:"bench_buffer"`
	Starters       map[string]int `json:"starters"`
	Flex           int            `json:"flex"`
	EagerPositions []string       `json:"eager_positions"`
	CatalogSize    int            `json:"catalog_size"`
	MaxSamples     int            `json:"max_samples"`
	AdviceLimit    int            `json:"advice_limit"`
	RoundThreshold int            `json:"lineup_round_threshold"`
	Multiplier     float64        `json:"lineup_multiplier"`
	TEMultiplier   float64        `json:"lineup_te_multiplier"`
}

// Snapshot is a self-contained record of one draft. Caches are not stored;
// they are rebuilt by replaying Picks over Catalog.
type Snapshot struct {
	SchemaVersion int                `json:"schema_version"`
	DraftID       string             `json:"draft_id"`
	Settings      Settings           `json:"settings"`
	Catalog       []models.Player    `json:"catalog"`
	Picks         []models.Pick      `json:"picks"`
	Ensured       []draft.EnsureMark `json:"ensured,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
	SavedAt       time.Time          `json:"saved_at"`
}

// Take captures a draft
func Take(d *draft.Draft) *Snapshot {
	s := d.Settings()
	h := d.History()
	return &Snapshot{
		SchemaVersion: SchemaVersion,
		DraftID:       d.ID(),
		Settings: Settings{
			Teams:     s.Teams,
			DraftSpot: s.DraftSpot,
			Snake:     s.Snake,
			Scoring:   s.Scoring,
			Seed:      s.Seed,
			League:    fromLeague(s.League),
		},
		Catalog:   d.Catalog(),
		Picks:     h.Picks,
		Ensured:   h.Ensured,
		CreatedAt: h.CreatedAt,
		SavedAt:   time.Now().UTC(),
	}
}

// Encode takes a snapshot of d and serializes it
func Encode(d *draft.Draft) ([]byte, error) {
	data, err := json.Marshal(Take(d))
	if err != nil {
		return nil, fmt.Errorf("encode snapshot %s: %w", d.ID(), err)
	}
	return data, nil
}

// Decode parses a snapshot. Unknown fields are ignored so older builds can
// read snapshots that carry extra data.
func Decode(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if s.SchemaVersion > SchemaVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, s.SchemaVersion)
	}
	if s.DraftID == "" {
		return nil, ErrMissingDraftID
	}
	return &s, nil
}

// Restore rebuilds the draft by replaying its pick log
func (s *Snapshot) Restore() (*draft.Draft, error) {
	settings := draft.Settings{
		Teams:     s.Settings.Teams,
		DraftSpot: s.Settings.DraftSpot,
		Snake:     s.Settings.Snake,
		Scoring:   s.Settings.Scoring,
		Seed:      s.Settings.Seed,
		League:    s.Settings.League.toLeague(s.SchemaVersion),
	}
	d, err := draft.Restore(s.DraftID, settings, s.Catalog, draft.History{
		Picks:     s.Picks,
		Ensured:   s.Ensured,
		CreatedAt: s.CreatedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("restore draft %s: %w", s.DraftID, err)
	}
	return d, nil
}

// Load decodes and restores in one step
func Load(data []byte) (*draft.Draft, error) {
	s, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return s.Restore()
}

func fromLeague(l config.League) League {
	starters := make(map[string]int, len(l.Starters))
	for k, v := range l.Starters {
		starters[k] = v
	}
	return League{
		Rounds:         l.Rounds,
		BenchBuffer:    l.BenchBuffer,
		Starters:       starters,
		Flex:           l.Flex,
		EagerPositions: append([]string{}, l.EagerPositions...),
		CatalogSize:    l.CatalogSize,
		MaxSamples:     l.MaxSamples,
		AdviceLimit:    l.AdviceLimit,
		RoundThreshold: l.LineupPenalty.RoundThreshold,
		Multiplier:     l.LineupPenalty.Multiplier,
		TEMultiplier:   l.LineupPenalty.TEMultiplier,
	}
}

// toLeague returns the persisted rules. Zero values are real settings from
// version 2 on; older snapshots fall back to the defaults for missing fields.
func (l League) toLeague(version int) config.League {
	if version < 2 {
		return l.legacyLeague()
	}
	starters := make(map[string]int, len(l.Starters))
	for k, v := range l.Starters {
		starters[k] = v
	}
	return config.League{
		Rounds:         l.Rounds,
		BenchBuffer:    l.BenchBuffer,
		Starters:       starters,
		Flex:           l.Flex,
		EagerPositions: append([]string{}, l.EagerPositions...),
		CatalogSize:    l.CatalogSize,
		MaxSamples:     l.MaxSamples,
		AdviceLimit:    l.AdviceLimit,
		LineupPenalty: config.LineupPenalty{
			RoundThreshold: l.RoundThreshold,
			Multiplier:     l.Multiplier,
			TEMultiplier:   l.TEMultiplier,
		},
	}
}

func (l League) legacyLeague() config.League {
	out := config.DefaultLeague()
	if l.Rounds > 0 {
		out.Rounds = l.Rounds
	}
	if l.BenchBuffer > 0 {
		out.BenchBuffer = l.BenchBuffer
	}
	if len(l.Starters) > 0 {
		out.Starters = l.Starters
	}
	out.Flex = l.Flex
	if len(l.EagerPositions) > 0 {
		out.EagerPositions = l.EagerPositions
	}
	if l.CatalogSize > 0 {
		out.CatalogSize = l.CatalogSize
	}
	if l.MaxSamples > 0 {
		out.MaxSamples = l.MaxSamples
	}
	if l.AdviceLimit > 0 {
		out.AdviceLimit = l.AdviceLimit
	}
	if l.RoundThreshold > 0 {
		out.LineupPenalty.RoundThreshold = l.RoundThreshold
	}
	if l.Multiplier > 0 {
		out.LineupPenalty.Multiplier = l.Multiplier
	}
	if l.TEMultiplier > 0 {
		out.LineupPenalty.TEMultiplier = l.TEMultiplier
	}
	return out
}

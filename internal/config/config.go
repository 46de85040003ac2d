package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/pelletier/go-toml/v2"

	"github.com/Billy-Davies-2/draft-engine/internal/models"
)

// LineupPenalty discourages drafting a position whose starters are already
// filled while other lineup slots are still open
type LineupPenalty struct {
	RoundThreshold int     `toml:"round_threshold"`
	Multiplier     float64 `toml:"multiplier"`
	TEMultiplier   float64 `toml:"te_multiplier"`
}

// League holds the rules every draft in this process is created with
type League struct {
	Rounds         int            `toml:"rounds"`
	BenchBuffer    int            `toml:"bench_buffer"`
	Starters       map[string]int `toml:"starters"`
	Flex           int            `toml:"flex"`
	EagerPositions []string       `toml:"eager_positions"`
	CatalogSize    int            `toml:"catalog_size"`
	MaxSamples     int            `toml:"max_samples"`
	AdviceLimit    int            `toml:"advice_limit"`
	LineupPenalty  LineupPenalty  `toml:"lineup_penalty"`
}

// DefaultLeague returns a standard 1QB/2RB/2WR/1TE/1FLEX/1K/1DEF league
func DefaultLeague() League {
	return League{
		Rounds:      16,
		BenchBuffer: 3,
		Starters: map[string]int{
			"QB":  1,
			"RB":  2,
			"WR":  2,
			"TE":  1,
			"K":   1,
			"DEF": 1,
		},
		Flex:           1,
		EagerPositions: []string{"QB", "RB", "WR", "TE"},
		CatalogSize:    300,
		MaxSamples:     200,
		AdviceLimit:    5,
		LineupPenalty: LineupPenalty{
			RoundThreshold: 8,
			Multiplier:     0.5,
			TEMultiplier:   0.15,
		},
	}
}

// StartersFor returns the starter count for a position, 0 when unset
func (l League) StartersFor(pos models.Position) int {
	return l.Starters[string(pos)]
}

// Eager returns the parsed eager positions, skipping unknown names
func (l League) Eager() []models.Position {
	out := make([]models.Position, 0, len(l.EagerPositions))
	for _, s := range l.EagerPositions {
		if p, err := models.ParsePosition(s); err == nil {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks the league for values that would break order generation or ranking
func (l League) Validate() error {
	if l.Rounds <= 0 {
		return fmt.Errorf("rounds must be positive, got %d", l.Rounds)
	}
	if l.BenchBuffer < 0 {
		return fmt.Errorf("bench_buffer must not be negative, got %d", l.BenchBuffer)
	}
	for name, n := range l.Starters {
		if _, err := models.ParsePosition(name); err != nil {
			return fmt.Errorf("starters: %w", err)
		}
		if n < 0 {
			return fmt.Errorf("starters for %s must not be negative", name)
		}
	}
	if l.LineupPenalty.Multiplier < 0 || l.LineupPenalty.TEMultiplier < 0 {
		return fmt.Errorf("lineup penalty multipliers must not be negative")
	}
	return nil
}

// LoadLeague reads a TOML league file on top of DefaultLeague. An empty path
// returns the defaults.
func LoadLeague(path string) (League, error) {
	league := DefaultLeague()
	if path == "" {
		return league, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return league, fmt.Errorf("failed to read league config: %w", err)
	}
	if err := toml.Unmarshal(data, &league); err != nil {
		return league, fmt.Errorf("failed to parse league config: %w", err)
	}
	if err := league.Validate(); err != nil {
		return league, err
	}
	return league, nil
}

// Config is the process configuration, read from the environment
type Config struct {
	Environment     string
	LogLevel        string
	Port            string
	GRPCPort        string
	DBDriver        string
	SQLiteFile      string
	DatabaseURL     string
	SnapshotBackend string
	RedisURL        string
	NATSURL         string
	NATSSubject     string
	ClickHouseAddr  string
	ClickHouseDB    string
	ClickHouseUser  string
	ClickHousePass  string
	LeagueFile      string
	League          League
}

// IsDevelopment reports whether embedded infrastructure should be used
func (c *Config) IsDevelopment() bool {
	return c.Environment == "" || c.Environment == "development"
}

// Load reads the environment and the optional league file
func Load() (*Config, error) {
	cfg := &Config{
		Environment:     os.Getenv("ENVIRONMENT"),
		LogLevel:        getenv("LOG_LEVEL", "info"),
		Port:            getenv("PORT", "3000"),
		GRPCPort:        getenv("GRPC_PORT", "50051"),
		DBDriver:        getenv("DB_DRIVER", "memory"),
		SQLiteFile:      getenv("SQLITE_FILE", "dev.sqlite"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		SnapshotBackend: getenv("SNAPSHOT_BACKEND", "dal"),
		RedisURL:        getenv("REDIS_URL", "redis://localhost:6379/0"),
		NATSURL:         getenv("NATS_URL", "nats://localhost:4222"),
		NATSSubject:     getenv("NATS_SUBJECT", "draft.events"),
		ClickHouseAddr:  getenv("CLICKHOUSE_ADDR", "localhost:9000"),
		ClickHouseDB:    getenv("CLICKHOUSE_DB", "default"),
		ClickHouseUser:  getenv("CLICKHOUSE_USER", "default"),
		ClickHousePass:  os.Getenv("CLICKHOUSE_PASSWORD"),
		LeagueFile:      os.Getenv("LEAGUE_CONFIG"),
	}

	league, err := LoadLeague(cfg.LeagueFile)
	if err != nil {
		return nil, err
	}

	// Individual overrides for the common knobs
	if v, ok := getenvInt("DRAFT_ROUNDS"); ok {
		league.Rounds = v
	}
	if v, ok := getenvInt("CATALOG_SIZE"); ok {
		league.CatalogSize = v
	}
	if v, ok := getenvInt("MAX_SAMPLES"); ok {
		league.MaxSamples = v
	}
	if err := league.Validate(); err != nil {
		return nil, err
	}
	cfg.League = league

	switch cfg.DBDriver {
	case "memory", "sqlite":
	case "postgres":
		// development falls back to a SQLite stand-in
		if cfg.DatabaseURL == "" && !cfg.IsDevelopment() {
			return nil, fmt.Errorf("DATABASE_URL environment variable is required for postgres driver")
		}
	default:
		return nil, fmt.Errorf("unknown DB_DRIVER: %s (valid: memory, sqlite, postgres)", cfg.DBDriver)
	}

	switch cfg.SnapshotBackend {
	case "dal", "redis", "none":
	default:
		return nil, fmt.Errorf("unknown SNAPSHOT_BACKEND: %s (valid: dal, redis, none)", cfg.SnapshotBackend)
	}

	return cfg, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/Billy-Davies-2/draft-engine/internal/models"
)

// Client reads fitted calibration utilities from ClickHouse and records
// picks for later fitting
type Client struct {
	conn        driver.Conn
	calibration *CachedCalibration
}

// NewClient creates a new ClickHouse client
func NewClient(addr, database, username, password string) (*Client, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: database,
			Username: username,
			Password: password,
		},
		DialTimeout: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	c := &Client{conn: conn}
	if err := c.ensureSchema(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	c.calibration = NewCachedCalibration(c.fetchUtilities, DefaultUtilityTTL, DefaultBreakerSettings())
	return c, nil
}

func (c *Client) ensureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS draft_picks (
			draft_id      String,
			scoring_mode  LowCardinality(String),
			pick_index    UInt32,
			round_number  UInt32,
			pick_in_round UInt32,
			team_id       UInt32,
			player_id     String,
			position      LowCardinality(String),
			adp           Float64,
			picked_at     DateTime64(3)
		) ENGINE = MergeTree
		ORDER BY (scoring_mode, draft_id, pick_index)`,
		`CREATE TABLE IF NOT EXISTS pl_utilities (
			scoring_mode LowCardinality(String),
			player_id    String,
			utility      Float64,
			fitted_at    DateTime
		) ENGINE = ReplacingMergeTree(fitted_at)
		ORDER BY (scoring_mode, player_id)`,
	}
	for _, stmt := range stmts {
		if err := c.conn.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create ClickHouse schema: %w", err)
		}
	}
	return nil
}

// fetchUtilities reads the latest fitted utility of every player for a scoring mode
func (c *Client) fetchUtilities(ctx context.Context, mode models.ScoringMode) (map[string]float64, error) {
	query := `
		SELECT
			player_id,
			argMax(utility, fitted_at) AS utility
		FROM pl_utilities
		WHERE scoring_mode = $1
		GROUP BY player_id
	`

	rows, err := c.conn.Query(ctx, query, string(mode))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	utils := make(map[string]float64)
	for rows.Next() {
		var id string
		var u float64
		if err := rows.Scan(&id, &u); err != nil {
			return nil, err
		}
		utils[id] = u
	}
	return utils, rows.Err()
}

// Utilities returns fitted utilities for mode through the cache and breaker
func (c *Client) Utilities(ctx context.Context, mode models.ScoringMode) (map[string]float64, error) {
	return c.calibration.Utilities(ctx, mode)
}

// StoreUtilities writes a fit. Newer fits replace older ones per player.
func (c *Client) StoreUtilities(ctx context.Context, mode models.ScoringMode, utils map[string]float64) error {
	batch, err := c.conn.PrepareBatch(ctx, "INSERT INTO pl_utilities")
	if err != nil {
		return fmt.Errorf("prepare utilities batch: %w", err)
	}
	fittedAt := time.Now().UTC()
	for id, u := range utils {
		if err := batch.Append(string(mode), id, u, fittedAt); err != nil {
			return fmt.Errorf("append utility %s: %w", id, err)
		}
	}
	return batch.Send()
}

// RecordPick stores a pick for offline calibration fitting
func (c *Client) RecordPick(ctx context.Context, draftID string, scoring models.ScoringMode, pick models.Pick, player models.Player) error {
	pickedAt := time.Unix(pick.Timestamp, 0).UTC()
	if pick.Timestamp == 0 {
		pickedAt = time.Now().UTC()
	}
	return c.conn.Exec(ctx, `
		INSERT INTO draft_picks
			(draft_id, scoring_mode, pick_index, round_number, pick_in_round, team_id, player_id, position, adp, picked_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		draftID, string(scoring), uint32(pick.PickIndex), uint32(pick.RoundNumber), uint32(pick.PickInRound),
		uint32(pick.TeamID), player.ID, string(player.Position), player.ADP(scoring), pickedAt,
	)
}

// PickCount returns how many picks have been recorded for a draft
func (c *Client) PickCount(ctx context.Context, draftID string) (uint64, error) {
	var n uint64
	row := c.conn.QueryRow(ctx, `SELECT count() FROM draft_picks WHERE draft_id = $1`, draftID)
	if err := row.Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// Ping checks the connection
func (c *Client) Ping(ctx context.Context) error {
	return c.conn.Ping(ctx)
}

// Close closes the ClickHouse connection
func (c *Client) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

package dal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/Billy-Davies-2/draft-engine/internal/logger"
	"github.com/Billy-Davies-2/draft-engine/internal/models"
)

// PostgresDAL implements DraftDAL using PostgreSQL
type PostgresDAL struct {
	db *sql.DB
}

// NewPostgresDAL creates a new PostgreSQL data access layer optimized for CloudNativePG
func NewPostgresDAL(connString string) (*PostgresDAL, error) {
	db, err := sql.Open("postgres", connString)
	if err != nil {
		return nil, err
	}

	// CloudNativePG default max_connections is 100
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(1 * time.Minute)

	// Retry for Kubernetes DNS propagation delays
	maxRetries := 5
	retryDelay := 5 * time.Second
	var lastErr error

	for i := 0; i < maxRetries; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		err := db.PingContext(ctx)
		cancel()

		if err == nil {
			lastErr = nil
			break
		}

		lastErr = err
		logger.Warn("Postgres ping failed", "attempt", i+1, "error", err)
		if i < maxRetries-1 {
			time.Sleep(retryDelay)
		}
	}

	if lastErr != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres after %d retries: %w", maxRetries, lastErr)
	}

	dal := &PostgresDAL{db: db}
	if err := dal.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return dal, nil
}

func (p *PostgresDAL) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS players (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		position TEXT NOT NULL,
		team TEXT NOT NULL,
		bye_week INTEGER NOT NULL DEFAULT 0,
		proj_ppr DOUBLE PRECISION NOT NULL DEFAULT 0,
		proj_half_ppr DOUBLE PRECISION NOT NULL DEFAULT 0,
		proj_standard DOUBLE PRECISION NOT NULL DEFAULT 0,
		adp_ppr DOUBLE PRECISION NOT NULL DEFAULT 0,
		adp_half_ppr DOUBLE PRECISION NOT NULL DEFAULT 0,
		adp_standard DOUBLE PRECISION NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS draft_snapshots (
		draft_id TEXT PRIMARY KEY,
		data JSONB NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_players_adp_ppr ON players(adp_ppr);
	CREATE INDEX IF NOT EXISTS idx_players_position ON players(position);
	CREATE INDEX IF NOT EXISTS idx_draft_snapshots_updated_at ON draft_snapshots(updated_at);
	`

	if _, err := p.db.Exec(schema); err != nil {
		return err
	}

	// Add ecr column to existing databases (migration)
	_, err := p.db.Exec(`
		ALTER TABLE players
		ADD COLUMN IF NOT EXISTS ecr DOUBLE PRECISION NOT NULL DEFAULT 0
	`)
	if err != nil {
		return fmt.Errorf("failed to add ecr column: %w", err)
	}

	var count int
	if err := p.db.QueryRow("SELECT COUNT(*) FROM players").Scan(&count); err != nil {
		return err
	}

	if count == 0 {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := p.UpsertPlayers(ctx, SamplePlayers()); err != nil {
			return fmt.Errorf("failed to seed players: %w", err)
		}
	}

	return nil
}

func (p *PostgresDAL) LoadPlayers(ctx context.Context, limit int) ([]models.Player, error) {
	query := `
		SELECT id, name, position, team, bye_week,
			proj_ppr, proj_half_ppr, proj_standard,
			adp_ppr, adp_half_ppr, adp_standard, ecr
		FROM players
		ORDER BY CASE WHEN adp_ppr > 0 THEN adp_ppr ELSE 999 END ASC, id ASC
	`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPlayers(rows)
}

func (p *PostgresDAL) UpsertPlayers(ctx context.Context, players []models.Player) error {
	// Batch the upserts in one transaction to reduce round trips
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO players (id, name, position, team, bye_week,
			proj_ppr, proj_half_ppr, proj_standard,
			adp_ppr, adp_half_ppr, adp_standard, ecr)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			position = EXCLUDED.position,
			team = EXCLUDED.team,
			bye_week = EXCLUDED.bye_week,
			proj_ppr = EXCLUDED.proj_ppr,
			proj_half_ppr = EXCLUDED.proj_half_ppr,
			proj_standard = EXCLUDED.proj_standard,
			adp_ppr = EXCLUDED.adp_ppr,
			adp_half_ppr = EXCLUDED.adp_half_ppr,
			adp_standard = EXCLUDED.adp_standard,
			ecr = EXCLUDED.ecr,
			updated_at = CURRENT_TIMESTAMP
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, pl := range players {
		if pl.ID == "" {
			return fmt.Errorf("player %q has no id", pl.Name)
		}
		_, err := stmt.ExecContext(ctx, pl.ID, pl.Name, string(pl.Position), pl.Team, pl.ByeWeek,
			pl.ProjPPR, pl.ProjHalfPPR, pl.ProjStandard,
			pl.ADPPPR, pl.ADPHalfPPR, pl.ADPStandard, pl.ECR)
		if err != nil {
			return fmt.Errorf("upsert player %s: %w", pl.ID, err)
		}
	}
	return tx.Commit()
}

func (p *PostgresDAL) SaveSnapshot(ctx context.Context, id string, data []byte) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO draft_snapshots (draft_id, data)
		VALUES ($1, $2)
		ON CONFLICT (draft_id) DO UPDATE SET data = EXCLUDED.data, updated_at = CURRENT_TIMESTAMP
	`, id, string(data))
	return err
}

func (p *PostgresDAL) LoadSnapshot(ctx context.Context, id string) ([]byte, error) {
	var data string
	err := p.db.QueryRowContext(ctx, `SELECT data::text FROM draft_snapshots WHERE draft_id = $1`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSnapshotNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return []byte(data), nil
}

func (p *PostgresDAL) DeleteSnapshot(ctx context.Context, id string) error {
	_, err := p.db.ExecContext(ctx, `DELETE FROM draft_snapshots WHERE draft_id = $1`, id)
	return err
}

func (p *PostgresDAL) ListSnapshots(ctx context.Context) ([]string, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT draft_id FROM draft_snapshots ORDER BY draft_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanIDs(rows)
}

func (p *PostgresDAL) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

func (p *PostgresDAL) Close() error {
	return p.db.Close()
}

package dal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Billy-Davies-2/draft-engine/internal/models"
)

// SQLiteDAL implements DraftDAL using SQLite
type SQLiteDAL struct {
	db *sql.DB
}

// NewSQLiteDAL creates a new SQLite data access layer
func NewSQLiteDAL(dbPath string) (*SQLiteDAL, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	// sqlite allows a single writer
	db.SetMaxOpenConns(1)

	dal := &SQLiteDAL{db: db}
	if err := dal.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return dal, nil
}

func (s *SQLiteDAL) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS players (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		position TEXT NOT NULL,
		team TEXT NOT NULL,
		bye_week INTEGER NOT NULL DEFAULT 0,
		proj_ppr REAL NOT NULL DEFAULT 0,
		proj_half_ppr REAL NOT NULL DEFAULT 0,
		proj_standard REAL NOT NULL DEFAULT 0,
		adp_ppr REAL NOT NULL DEFAULT 0,
		adp_half_ppr REAL NOT NULL DEFAULT 0,
		adp_standard REAL NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS draft_snapshots (
		draft_id TEXT PRIMARY KEY,
		data TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	// Add ecr column to existing databases (migration)
	// SQLite doesn't support IF NOT EXISTS for ALTER TABLE, so we check first
	var ecrExists int
	err := s.db.QueryRow(`
		SELECT COUNT(*)
		FROM pragma_table_info('players')
		WHERE name='ecr'
	`).Scan(&ecrExists)
	if err != nil {
		return fmt.Errorf("failed to check ecr column existence: %w", err)
	}

	if ecrExists == 0 {
		_, err = s.db.Exec(`ALTER TABLE players ADD COLUMN ecr REAL NOT NULL DEFAULT 0`)
		if err != nil {
			return fmt.Errorf("failed to add ecr column: %w", err)
		}
	}

	// Seed default data if empty
	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM players").Scan(&count); err != nil {
		return err
	}

	if count == 0 {
		if err := s.UpsertPlayers(context.Background(), SamplePlayers()); err != nil {
			return fmt.Errorf("failed to seed players: %w", err)
		}
	}

	return nil
}

func (s *SQLiteDAL) LoadPlayers(ctx context.Context, limit int) ([]models.Player, error) {
	query := `
		SELECT id, name, position, team, bye_week,
			proj_ppr, proj_half_ppr, proj_standard,
			adp_ppr, adp_half_ppr, adp_standard, ecr
		FROM players
		ORDER BY CASE WHEN adp_ppr > 0 THEN adp_ppr ELSE 999 END ASC, id ASC
	`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPlayers(rows)
}

func (s *SQLiteDAL) UpsertPlayers(ctx context.Context, players []models.Player) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO players (id, name, position, team, bye_week,
			proj_ppr, proj_half_ppr, proj_standard,
			adp_ppr, adp_half_ppr, adp_standard, ecr)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			position = excluded.position,
			team = excluded.team,
			bye_week = excluded.bye_week,
			proj_ppr = excluded.proj_ppr,
			proj_half_ppr = excluded.proj_half_ppr,
			proj_standard = excluded.proj_standard,
			adp_ppr = excluded.adp_ppr,
			adp_half_ppr = excluded.adp_half_ppr,
			adp_standard = excluded.adp_standard,
			ecr = excluded.ecr
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range players {
		if p.ID == "" {
			return fmt.Errorf("player %q has no id", p.Name)
		}
		_, err := stmt.ExecContext(ctx, p.ID, p.Name, string(p.Position), p.Team, p.ByeWeek,
			p.ProjPPR, p.ProjHalfPPR, p.ProjStandard,
			p.ADPPPR, p.ADPHalfPPR, p.ADPStandard, p.ECR)
		if err != nil {
			return fmt.Errorf("upsert player %s: %w", p.ID, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteDAL) SaveSnapshot(ctx context.Context, id string, data []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO draft_snapshots (draft_id, data, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(draft_id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at
	`, id, string(data), time.Now().Unix())
	return err
}

func (s *SQLiteDAL) LoadSnapshot(ctx context.Context, id string) ([]byte, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM draft_snapshots WHERE draft_id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSnapshotNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return []byte(data), nil
}

func (s *SQLiteDAL) DeleteSnapshot(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM draft_snapshots WHERE draft_id = ?`, id)
	return err
}

func (s *SQLiteDAL) ListSnapshots(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT draft_id FROM draft_snapshots ORDER BY draft_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanIDs(rows)
}

func (s *SQLiteDAL) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteDAL) Close() error {
	return s.db.Close()
}

func scanPlayers(rows *sql.Rows) ([]models.Player, error) {
	players := []models.Player{}
	for rows.Next() {
		var p models.Player
		var pos string
		err := rows.Scan(&p.ID, &p.Name, &pos, &p.Team, &p.ByeWeek,
			&p.ProjPPR, &p.ProjHalfPPR, &p.ProjStandard,
			&p.ADPPPR, &p.ADPHalfPPR, &p.ADPStandard, &p.ECR)
		if err != nil {
			return nil, err
		}
		p.Position = models.Position(pos)
		players = append(players, p)
	}
	return players, rows.Err()
}

func scanIDs(rows *sql.Rows) ([]string, error) {
	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

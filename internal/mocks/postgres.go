package mocks

import (
	"github.com/Billy-Davies-2/draft-engine/internal/dal"
	"github.com/Billy-Davies-2/draft-engine/internal/logger"
)

// MockPostgresDAL stands in for Postgres with SQLite when DB_DRIVER=postgres
// is set in development without a DATABASE_URL
type MockPostgresDAL struct {
	dal.DraftDAL
}

// NewMockPostgresDAL creates a mock Postgres DAL using SQLite
func NewMockPostgresDAL(sqliteFile string) (*MockPostgresDAL, error) {
	logger.Info("Using MOCK Postgres (SQLite) for local development", "file", sqliteFile)

	sqliteDAL, err := dal.NewSQLiteDAL(sqliteFile)
	if err != nil {
		return nil, err
	}
	return &MockPostgresDAL{DraftDAL: sqliteDAL}, nil
}

package postgres

import (
	"database/sql"
	"fmt"

	"github.com/blockshare-labs/share-backend/config"
	_ "github.com/lib/pq"
)

// NewConnection opens a database/sql connection for administrative
// work (schema bootstrap). Request serving uses the pgx pool instead.
func NewConnection(cfg *config.DatabaseConfig) (*sql.DB, error) {
	dsn := DSN(cfg)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(1)

	return db, nil
}

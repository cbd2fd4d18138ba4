package db

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// DB wraps the Postgres connection pool.
type DB struct {
	*sql.DB
}

// New opens and pings a Postgres connection.
func New(connectionString string) (*DB, error) {
	if connectionString == "" {
		return nil, fmt.Errorf("database connection string is required")
	}
	sqlDB, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	return &DB{DB: sqlDB}, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS orders (
	order_id        TEXT PRIMARY KEY,
	chatbot_id      TEXT NOT NULL,
	table_id        TEXT,
	lines           JSONB NOT NULL,
	subtotal_cents  BIGINT NOT NULL,
	currency        TEXT NOT NULL,
	status          TEXT NOT NULL,
	source_channel  TEXT NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS orders_chatbot_idx ON orders (chatbot_id, created_at);
`

// EnsureSchema creates the tables this service owns.
func (db *DB) EnsureSchema() error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (db *DB) HealthCheck() error {
	return db.Ping()
}

func (db *DB) Close() error {
	return db.DB.Close()
}

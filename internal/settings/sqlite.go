package settings

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS settings (
	scope      TEXT NOT NULL,
	key        TEXT NOT NULL,
	value      TEXT NOT NULL DEFAULT '[]',
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (scope, key)
);
`

// DB is a SQLite-backed Store. Every key lives under the scope given to Open,
// normally the absolute workspace root.
type DB struct {
	conn  *sql.DB
	scope string
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn, scope string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("settings: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("settings: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("settings: apply schema: %w", err)
	}
	return &DB{conn: conn, scope: scope}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Load returns the values stored under key in the current scope.
func (db *DB) Load(ctx context.Context, key string) ([]string, error) {
	var raw string
	err := db.conn.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE scope = ? AND key = ?`, db.scope, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("settings: load %s: %w", key, err)
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("settings: decode %s: %w", key, err)
	}
	return out, nil
}

// Save replaces the values stored under key in the current scope.
func (db *DB) Save(ctx context.Context, key string, values []string) error {
	if values == nil {
		values = []string{}
	}
	raw, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("settings: encode %s: %w", key, err)
	}
	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO settings (scope, key, value, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(scope, key) DO UPDATE SET
			value      = excluded.value,
			updated_at = excluded.updated_at
	`, db.scope, key, string(raw))
	if err != nil {
		return fmt.Errorf("settings: save %s: %w", key, err)
	}
	return nil
}

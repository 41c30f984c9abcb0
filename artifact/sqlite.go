// SQLite Store backend.
//
// Persists artifacts across process restarts so a failed run can be
// resumed with its per-batch files intact. Thread-safe via sql.DB's
// built-in connection pooling.
package artifact

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// SqliteStore implements Store backed by a SQLite database file.
type SqliteStore struct {
	db *sql.DB
}

// OpenSqlite opens or creates a SQLite artifact database at the given path.
// Creates parent directories if they don't exist.
func OpenSqlite(path string) (*SqliteStore, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	store := &SqliteStore{db: db}
	if err := store.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

// NewSqliteInMemory creates an in-memory database (useful for testing).
func NewSqliteInMemory() (*SqliteStore, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite: %w", err)
	}

	store := &SqliteStore{db: db}
	if err := store.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *SqliteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS artifacts (
			key TEXT PRIMARY KEY,
			data BLOB NOT NULL,
			byte_size INTEGER NOT NULL,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_artifacts_key_prefix
		ON artifacts(key);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Write stores data under key, overwriting any previous value.
func (s *SqliteStore) Write(ctx context.Context, key string, data []byte) error {
	now := time.Now().Unix()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO artifacts (key, data, byte_size, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			data = excluded.data,
			byte_size = excluded.byte_size,
			updated_at = excluded.updated_at
	`, key, data, len(data), now, now)
	if err != nil {
		return fmt.Errorf("failed to write artifact %q: %w", key, err)
	}
	return nil
}

// Read retrieves the blob for key, or ErrNotFound.
func (s *SqliteStore) Read(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM artifacts WHERE key = ?`, key).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact %q: %w", key, err)
	}
	return data, nil
}

// List returns all keys starting with prefix, sorted.
func (s *SqliteStore) List(ctx context.Context, prefix string) ([]string, error) {
	// LIKE wildcards in the prefix must be escaped so keys containing
	// '%' or '_' don't match unrelated entries.
	pattern := likeEscaper.Replace(prefix) + "%"
	rows, err := s.db.QueryContext(ctx,
		`SELECT key FROM artifacts WHERE key LIKE ? ESCAPE '\' ORDER BY key`,
		pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts under %q: %w", prefix, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// Close closes the database connection.
func (s *SqliteStore) Close() error {
	return s.db.Close()
}

// Package store provides SQLite-backed persistence for chat sessions.
// Uses ncruces/go-sqlite3/driver which provides a database/sql interface.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/asg017/sqlite-vec-go-bindings/ncruces"
	_ "github.com/ncruces/go-sqlite3/driver"
)

// SQLiteStore is the SQLite-backed slice store.
// Thread-safe for concurrent WASM callbacks.
type SQLiteStore struct {
	mu sync.RWMutex
	db *sql.DB
}

// schema holds one row per logical state slice.
const schema = `
CREATE TABLE IF NOT EXISTS slices (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at INTEGER NOT NULL
);
`

// NewSQLiteStore creates a new in-memory SQLite store.
func NewSQLiteStore() (*SQLiteStore, error) {
	return NewSQLiteStoreWithDSN(":memory:")
}

// NewSQLiteStoreWithDSN creates a store with a specific data source name.
// Use ":memory:" for in-memory or a file path for persistent storage.
func NewSQLiteStoreWithDSN(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Every :memory: connection is its own database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		err := s.db.Close()
		s.db = nil
		return err
	}
	return nil
}

// =============================================================================
// Slice CRUD
// =============================================================================

// LoadSlice returns the raw document stored under key.
func (s *SQLiteStore) LoadSlice(key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, false, fmt.Errorf("store closed")
	}

	var value string
	err := s.db.QueryRow("SELECT value FROM slices WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load %s: %w", key, err)
	}

	return []byte(value), true, nil
}

// SaveSlice inserts or replaces the document stored under key.
func (s *SQLiteStore) SaveSlice(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return fmt.Errorf("store closed")
	}

	_, err := s.db.Exec(`
		INSERT INTO slices (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, string(value), time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}

// =============================================================================
// Export/Import (whole-store serialization for OPFS sync)
// =============================================================================

// Export serializes every slice to a JSON object of key -> raw value.
func (s *SQLiteStore) Export() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, fmt.Errorf("store closed")
	}

	rows, err := s.db.Query("SELECT key, value FROM slices")
	if err != nil {
		return nil, fmt.Errorf("export slices: %w", err)
	}
	defer rows.Close()

	data := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scan slice: %w", err)
		}
		data[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return json.Marshal(data)
}

// Import restores the store from an Export payload.
// Clears all existing slices and re-inserts from the export inside one
// transaction, so a failed import leaves the previous contents in place.
func (s *SQLiteStore) Import(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(data) == 0 {
		return nil
	}
	if s.db == nil {
		return fmt.Errorf("store closed")
	}

	var slices map[string]string
	if err := json.Unmarshal(data, &slices); err != nil {
		return fmt.Errorf("import unmarshal: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("import begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM slices"); err != nil {
		return fmt.Errorf("clear slices: %w", err)
	}

	now := time.Now().UnixMilli()
	for k, v := range slices {
		if _, err := tx.Exec("INSERT INTO slices (key, value, updated_at) VALUES (?, ?, ?)", k, v, now); err != nil {
			return fmt.Errorf("import slice %s: %w", k, err)
		}
	}

	return tx.Commit()
}

// Compile-time interface check
var _ SliceStore = (*SQLiteStore)(nil)

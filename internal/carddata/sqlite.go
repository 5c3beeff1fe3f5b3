package carddata

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteConfig holds connection settings for a local definition database.
type SQLiteConfig struct {
	// Path is the file path to the SQLite database.
	// Use ":memory:" for an in-memory database (useful for testing).
	Path string

	// BusyTimeout sets how long to wait when the database is locked.
	// Default: 5 seconds.
	BusyTimeout time.Duration

	// AutoMigrate runs pending schema migrations on Open.
	AutoMigrate bool
}

// DefaultSQLiteConfig returns a SQLiteConfig with sensible defaults.
func DefaultSQLiteConfig(path string) *SQLiteConfig {
	return &SQLiteConfig{
		Path:        path,
		BusyTimeout: 5 * time.Second,
		AutoMigrate: true,
	}
}

// SQLiteStore is a DefinitionSource and TokenSource backed by a local
// SQLite file. Definitions are stored as normalized JSON payloads with
// indexed ref and token columns; lookups decode on read.
type SQLiteStore struct {
	conn *sql.DB
}

// OpenSQLite opens (and optionally migrates) a definition database.
func OpenSQLite(config *SQLiteConfig) (*SQLiteStore, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	if config.Path != ":memory:" {
		dir := filepath.Dir(config.Path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	if config.AutoMigrate && config.Path != ":memory:" {
		mgr, err := NewMigrationManager(config.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to create migration manager: %w", err)
		}
		if err := mgr.Up(); err != nil {
			_ = mgr.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		if err := mgr.Close(); err != nil {
			return nil, fmt.Errorf("failed to close migration manager: %w", err)
		}
	}

	busy := config.BusyTimeout
	if busy <= 0 {
		busy = 5 * time.Second
	}
	dsn := fmt.Sprintf("%s?_busy_timeout=%d&_journal_mode=WAL&_foreign_keys=on",
		config.Path, busy.Milliseconds())

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLiteStore{conn: conn}
	if config.Path == ":memory:" {
		if err := store.ensureSchema(context.Background()); err != nil {
			_ = conn.Close()
			return nil, err
		}
	}
	return store, nil
}

// ensureSchema creates the definition table directly. In-memory databases
// cannot be migrated through a second connection, so tests take this path.
func (s *SQLiteStore) ensureSchema(ctx context.Context) error {
	_, err := s.conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS card_definitions (
			set_code     TEXT NOT NULL,
			collector_id TEXT NOT NULL,
			name         TEXT NOT NULL,
			is_token     INTEGER NOT NULL DEFAULT 0,
			payload      TEXT NOT NULL,
			updated_at   TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (set_code, collector_id)
		);
		CREATE INDEX IF NOT EXISTS idx_card_definitions_token
			ON card_definitions (set_code, name) WHERE is_token = 1;
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// SaveDefinition inserts or updates one definition.
func (s *SQLiteStore) SaveDefinition(ctx context.Context, def CardDefinition) error {
	payload, err := json.Marshal(def)
	if err != nil {
		return fmt.Errorf("failed to encode definition %q: %w", def.Name, err)
	}

	query := `
		INSERT INTO card_definitions (set_code, collector_id, name, is_token, payload, updated_at)
		VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(set_code, collector_id) DO UPDATE SET
			name = excluded.name,
			is_token = excluded.is_token,
			payload = excluded.payload,
			updated_at = CURRENT_TIMESTAMP
	`
	_, err = s.conn.ExecContext(ctx, query,
		strings.ToUpper(def.SetCode), def.CollectorID, strings.ToLower(def.Name), def.IsToken, string(payload),
	)
	if err != nil {
		return fmt.Errorf("failed to save definition %q: %w", def.Name, err)
	}
	return nil
}

// SaveDefinitions stores a batch of definitions in one transaction.
func (s *SQLiteStore) SaveDefinitions(ctx context.Context, defs []CardDefinition) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO card_definitions (set_code, collector_id, name, is_token, payload, updated_at)
		VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(set_code, collector_id) DO UPDATE SET
			name = excluded.name,
			is_token = excluded.is_token,
			payload = excluded.payload,
			updated_at = CURRENT_TIMESTAMP
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, def := range defs {
		payload, err := json.Marshal(def)
		if err != nil {
			return fmt.Errorf("failed to encode definition %q: %w", def.Name, err)
		}
		if _, err := stmt.ExecContext(ctx,
			strings.ToUpper(def.SetCode), def.CollectorID, strings.ToLower(def.Name), def.IsToken, string(payload),
		); err != nil {
			return fmt.Errorf("failed to save definition %q: %w", def.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit definitions: %w", err)
	}
	return nil
}

// Definition implements DefinitionSource.
func (s *SQLiteStore) Definition(ctx context.Context, ref Ref) (CardDefinition, error) {
	query := `SELECT payload FROM card_definitions WHERE set_code = ? AND collector_id = ?`

	var payload string
	err := s.conn.QueryRowContext(ctx, query, strings.ToUpper(ref.SetCode), ref.CollectorID).Scan(&payload)
	if err == sql.ErrNoRows {
		return CardDefinition{}, fmt.Errorf("%s: %w", ref, ErrNotFound)
	}
	if err != nil {
		return CardDefinition{}, fmt.Errorf("failed to get definition %s: %w", ref, err)
	}
	return decodeDefinition(payload)
}

// Token implements TokenSource.
func (s *SQLiteStore) Token(ctx context.Context, setCode, name string) (CardDefinition, error) {
	query := `SELECT payload FROM card_definitions WHERE set_code = ? AND name = ? AND is_token = 1`

	var payload string
	err := s.conn.QueryRowContext(ctx, query, strings.ToUpper(setCode), strings.ToLower(name)).Scan(&payload)
	if err == sql.ErrNoRows {
		return CardDefinition{}, fmt.Errorf("token %s/%s: %w", setCode, name, ErrNotFound)
	}
	if err != nil {
		return CardDefinition{}, fmt.Errorf("failed to get token %s/%s: %w", setCode, name, err)
	}
	return decodeDefinition(payload)
}

// LoadAll reads every stored definition into a Catalog so a server can
// serve lookups from memory after startup.
func (s *SQLiteStore) LoadAll(ctx context.Context) (*Catalog, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT payload FROM card_definitions`)
	if err != nil {
		return nil, fmt.Errorf("failed to list definitions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	catalog := NewCatalog()
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan definition: %w", err)
		}
		def, err := decodeDefinition(payload)
		if err != nil {
			return nil, err
		}
		if err := catalog.Put(def); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating definitions: %w", err)
	}
	return catalog, nil
}

// Count reports the number of stored definitions.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM card_definitions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count definitions: %w", err)
	}
	return n, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

func decodeDefinition(payload string) (CardDefinition, error) {
	var def CardDefinition
	if err := json.Unmarshal([]byte(payload), &def); err != nil {
		return CardDefinition{}, fmt.Errorf("failed to decode definition payload: %w", err)
	}
	return def, nil
}

package carddata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore is a DefinitionSource and TokenSource backed by
// PostgreSQL, for deployments that share one definition database across
// server instances.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to the database at databaseURL.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// EnsureSchema creates the definitions table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS card_definitions (
			set_code     TEXT NOT NULL,
			collector_id TEXT NOT NULL,
			name         TEXT NOT NULL,
			is_token     BOOLEAN NOT NULL DEFAULT FALSE,
			payload      JSONB NOT NULL,
			updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (set_code, collector_id)
		);
		CREATE INDEX IF NOT EXISTS idx_card_definitions_token
			ON card_definitions (set_code, name) WHERE is_token;
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// ImportResult summarizes a batch import.
type ImportResult struct {
	Imported int
	Failed   int
}

// Import upserts definitions in batches of batchSize inside per-batch
// transactions. A failed row is counted and skipped rather than aborting
// the whole import.
func (s *PostgresStore) Import(ctx context.Context, defs []CardDefinition, batchSize int) (ImportResult, error) {
	if batchSize <= 0 {
		batchSize = 1000
	}

	var result ImportResult
	for i := 0; i < len(defs); i += batchSize {
		end := i + batchSize
		if end > len(defs) {
			end = len(defs)
		}
		batch := defs[i:end]

		tx, err := s.pool.Begin(ctx)
		if err != nil {
			return result, fmt.Errorf("failed to begin transaction: %w", err)
		}

		for _, def := range batch {
			payload, err := json.Marshal(def)
			if err != nil {
				result.Failed++
				continue
			}
			_, err = tx.Exec(ctx, `
				INSERT INTO card_definitions (set_code, collector_id, name, is_token, payload, updated_at)
				VALUES ($1, $2, $3, $4, $5, NOW())
				ON CONFLICT (set_code, collector_id) DO UPDATE SET
					name = EXCLUDED.name,
					is_token = EXCLUDED.is_token,
					payload = EXCLUDED.payload,
					updated_at = NOW()
			`, strings.ToUpper(def.SetCode), def.CollectorID, strings.ToLower(def.Name), def.IsToken, payload)
			if err != nil {
				result.Failed++
				continue
			}
			result.Imported++
		}

		if err := tx.Commit(ctx); err != nil {
			_ = tx.Rollback(ctx)
			return result, fmt.Errorf("failed to commit batch: %w", err)
		}
	}
	return result, nil
}

// Definition implements DefinitionSource.
func (s *PostgresStore) Definition(ctx context.Context, ref Ref) (CardDefinition, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx,
		`SELECT payload FROM card_definitions WHERE set_code = $1 AND collector_id = $2`,
		strings.ToUpper(ref.SetCode), ref.CollectorID,
	).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return CardDefinition{}, fmt.Errorf("%s: %w", ref, ErrNotFound)
	}
	if err != nil {
		return CardDefinition{}, fmt.Errorf("failed to get definition %s: %w", ref, err)
	}
	return decodeDefinition(string(payload))
}

// Token implements TokenSource.
func (s *PostgresStore) Token(ctx context.Context, setCode, name string) (CardDefinition, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx,
		`SELECT payload FROM card_definitions WHERE set_code = $1 AND name = $2 AND is_token`,
		strings.ToUpper(setCode), strings.ToLower(name),
	).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return CardDefinition{}, fmt.Errorf("token %s/%s: %w", setCode, name, ErrNotFound)
	}
	if err != nil {
		return CardDefinition{}, fmt.Errorf("failed to get token %s/%s: %w", setCode, name, err)
	}
	return decodeDefinition(string(payload))
}

// LoadAll reads every stored definition into a Catalog.
func (s *PostgresStore) LoadAll(ctx context.Context) (*Catalog, error) {
	rows, err := s.pool.Query(ctx, `SELECT payload FROM card_definitions`)
	if err != nil {
		return nil, fmt.Errorf("failed to list definitions: %w", err)
	}
	defer rows.Close()

	catalog := NewCatalog()
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan definition: %w", err)
		}
		def, err := decodeDefinition(string(payload))
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
func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM card_definitions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count definitions: %w", err)
	}
	return n, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists documents in a single jsonb table. One row per
// (kind, conversation); upserts replace the whole document.
type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ Store = (*PostgresStore)(nil)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS warden_documents (
	kind            TEXT        NOT NULL,
	conversation_id TEXT        NOT NULL,
	doc             JSONB       NOT NULL,
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (kind, conversation_id)
)`

// NewPostgresStore connects to the database and ensures the schema.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("docstore: connecting to postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("docstore: ensuring schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Get(ctx context.Context, kind, conversationID string, out any) (bool, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT doc FROM warden_documents WHERE kind = $1 AND conversation_id = $2`,
		kind, conversationID).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("docstore: reading %s/%s: %w", kind, conversationID, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("docstore: decoding %s/%s: %w", kind, conversationID, err)
	}
	return true, nil
}

func (s *PostgresStore) Put(ctx context.Context, kind, conversationID string, doc any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("docstore: encoding %s/%s: %w", kind, conversationID, err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO warden_documents (kind, conversation_id, doc, updated_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (kind, conversation_id)
		 DO UPDATE SET doc = EXCLUDED.doc, updated_at = now()`,
		kind, conversationID, raw)
	if err != nil {
		return fmt.Errorf("docstore: writing %s/%s: %w", kind, conversationID, err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, kind, conversationID string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM warden_documents WHERE kind = $1 AND conversation_id = $2`,
		kind, conversationID)
	if err != nil {
		return fmt.Errorf("docstore: deleting %s/%s: %w", kind, conversationID, err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, kind string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT conversation_id FROM warden_documents WHERE kind = $1`, kind)
	if err != nil {
		return nil, fmt.Errorf("docstore: listing %s: %w", kind, err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("docstore: listing %s: %w", kind, err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Close releases the underlying connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

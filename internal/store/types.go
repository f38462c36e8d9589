package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Harshitk-cp/actgraph/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS act_object_types (
	name       TEXT PRIMARY KEY,
	id         UUID,
	descriptor JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS act_fact_types (
	name       TEXT PRIMARY KEY,
	id         UUID,
	descriptor JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

// TypeStore persists type descriptors fetched from the platform so that a
// registry can start without listing every type again.
type TypeStore struct {
	db *pgxpool.Pool
}

func NewTypeStore(db *pgxpool.Pool) *TypeStore {
	return &TypeStore{db: db}
}

// EnsureSchema creates the cache tables if they do not exist.
func (s *TypeStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, schema)
	return err
}

func (s *TypeStore) ObjectTypes(ctx context.Context) ([]domain.ObjectType, error) {
	return loadAll[domain.ObjectType](ctx, s.db, `SELECT descriptor FROM act_object_types ORDER BY name`)
}

func (s *TypeStore) FactTypes(ctx context.Context) ([]domain.FactType, error) {
	return loadAll[domain.FactType](ctx, s.db, `SELECT descriptor FROM act_fact_types ORDER BY name`)
}

// GetObjectType loads a single cached descriptor. A miss returns
// domain.ErrTypeNotCached.
func (s *TypeStore) GetObjectType(ctx context.Context, name string) (domain.ObjectType, error) {
	return loadOne[domain.ObjectType](ctx, s.db, `SELECT descriptor FROM act_object_types WHERE name = $1`, name)
}

func (s *TypeStore) GetFactType(ctx context.Context, name string) (domain.FactType, error) {
	return loadOne[domain.FactType](ctx, s.db, `SELECT descriptor FROM act_fact_types WHERE name = $1`, name)
}

// PutObjectTypes replaces the cached object types in one transaction.
func (s *TypeStore) PutObjectTypes(ctx context.Context, types []domain.ObjectType) error {
	return replaceAll(ctx, s.db, "act_object_types", types, func(t domain.ObjectType) (string, any) {
		return t.Name, nullableID(t.ID)
	})
}

// PutFactTypes replaces the cached fact types in one transaction.
func (s *TypeStore) PutFactTypes(ctx context.Context, types []domain.FactType) error {
	return replaceAll(ctx, s.db, "act_fact_types", types, func(t domain.FactType) (string, any) {
		return t.Name, nullableID(t.ID)
	})
}

func nullableID(id uuid.UUID) any {
	if id == uuid.Nil {
		return nil
	}
	return id.String()
}

func loadAll[T any](ctx context.Context, db *pgxpool.Pool, query string) ([]T, error) {
	rows, err := db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var t T
		if err := json.Unmarshal(raw, &t); err != nil {
			return nil, fmt.Errorf("decode cached type: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func loadOne[T any](ctx context.Context, db *pgxpool.Pool, query, name string) (T, error) {
	var t T
	var raw []byte
	err := db.QueryRow(ctx, query, name).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return t, domain.ErrTypeNotCached
		}
		return t, err
	}
	if err := json.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("decode cached type: %w", err)
	}
	return t, nil
}

func replaceAll[T any](ctx context.Context, db *pgxpool.Pool, table string, types []T, key func(T) (string, any)) error {
	tx, err := db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM `+table); err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for _, t := range types {
		raw, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("encode type: %w", err)
		}
		name, id := key(t)
		batch.Queue(
			`INSERT INTO `+table+` (name, id, descriptor) VALUES ($1, $2, $3)
			 ON CONFLICT (name) DO UPDATE
			 SET id = EXCLUDED.id, descriptor = EXCLUDED.descriptor, updated_at = NOW()`,
			name, id, raw,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

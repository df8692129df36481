// Package postgres implements repository.Store on a single PostgreSQL table.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sakif/family-catalog/internal/apperror"
	"github.com/sakif/family-catalog/internal/repository"
)

var _ repository.Store = (*Store)(nil)

type Store struct {
	pool *pgxpool.Pool
}

// New opens a pool for dsn, pings it and creates the kv table if needed.
func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: opening pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS kv (
			path       TEXT PRIMARY KEY,
			value      BYTEA NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return fmt.Errorf("postgres: creating kv table: %w", err)
	}
	return nil
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) Get(ctx context.Context, path string) ([]byte, error) {
	if err := repository.ValidatePath(path); err != nil {
		return nil, apperror.ValidationFailed("path", err.Error())
	}

	var value []byte
	err := s.pool.QueryRow(ctx, `SELECT value FROM kv WHERE path = $1`, path).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NotFound("path", path)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: reading %s: %w", path, err)
	}
	return value, nil
}

func (s *Store) Set(ctx context.Context, path string, value []byte) error {
	if err := repository.ValidatePath(path); err != nil {
		return apperror.ValidationFailed("path", err.Error())
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO kv (path, value, updated_at) VALUES ($1, $2, now())
		 ON CONFLICT (path) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		path, value,
	)
	if err != nil {
		return fmt.Errorf("postgres: writing %s: %w", path, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, path string) error {
	if err := repository.ValidatePath(path); err != nil {
		return apperror.ValidationFailed("path", err.Error())
	}

	if _, err := s.pool.Exec(ctx, `DELETE FROM kv WHERE path = $1`, path); err != nil {
		return fmt.Errorf("postgres: deleting %s: %w", path, err)
	}
	return nil
}

// List uses the same [prefix+"/", prefix+"0") range as the sqlite store.
// The comparison is forced to the C collation so '/' sorts before '0'.
func (s *Store) List(ctx context.Context, prefix string) (map[string][]byte, error) {
	if err := repository.ValidatePath(prefix); err != nil {
		return nil, apperror.ValidationFailed("prefix", err.Error())
	}

	rows, err := s.pool.Query(ctx,
		`SELECT path, value FROM kv
		 WHERE path COLLATE "C" >= $1 AND path COLLATE "C" < $2
		 ORDER BY path COLLATE "C"`,
		prefix+"/", prefix+"0",
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing %s: %w", prefix, err)
	}
	defer rows.Close()

	out := make(map[string][]byte)
	for rows.Next() {
		var (
			path  string
			value []byte
		)
		if err := rows.Scan(&path, &value); err != nil {
			return nil, fmt.Errorf("postgres: scanning kv row: %w", err)
		}
		out[path] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterating %s: %w", prefix, err)
	}
	return out, nil
}

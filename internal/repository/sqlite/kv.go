package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sakif/family-catalog/internal/apperror"
	"github.com/sakif/family-catalog/internal/repository"
)

var _ repository.Store = (*DB)(nil)

func (db *DB) Get(ctx context.Context, path string) ([]byte, error) {
	if err := repository.ValidatePath(path); err != nil {
		return nil, apperror.ValidationFailed("path", err.Error())
	}

	var value []byte
	err := db.conn.QueryRowContext(ctx,
		`SELECT value FROM kv WHERE path = ?`, path,
	).Scan(&value)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("path", path)
		}
		return nil, fmt.Errorf("sqlite: reading %s: %w", path, err)
	}
	return value, nil
}

// Set is an upsert on the primary key, so concurrent writers to one path
// converge on the last write.
func (db *DB) Set(ctx context.Context, path string, value []byte) error {
	if err := repository.ValidatePath(path); err != nil {
		return apperror.ValidationFailed("path", err.Error())
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO kv (path, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		path, value, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: writing %s: %w", path, err)
	}
	return nil
}

func (db *DB) Delete(ctx context.Context, path string) error {
	if err := repository.ValidatePath(path); err != nil {
		return apperror.ValidationFailed("path", err.Error())
	}

	if _, err := db.conn.ExecContext(ctx, `DELETE FROM kv WHERE path = ?`, path); err != nil {
		return fmt.Errorf("sqlite: deleting %s: %w", path, err)
	}
	return nil
}

// List scans the half-open key range [prefix+"/", prefix+"0"). '0' is the
// byte after '/', so the range holds exactly the paths below prefix.
func (db *DB) List(ctx context.Context, prefix string) (map[string][]byte, error) {
	if err := repository.ValidatePath(prefix); err != nil {
		return nil, apperror.ValidationFailed("prefix", err.Error())
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT path, value FROM kv WHERE path >= ? AND path < ? ORDER BY path`,
		prefix+"/", prefix+"0",
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing %s: %w", prefix, err)
	}
	defer rows.Close()

	out := make(map[string][]byte)
	for rows.Next() {
		var (
			path  string
			value []byte
		)
		if err := rows.Scan(&path, &value); err != nil {
			return nil, fmt.Errorf("sqlite: scanning kv row: %w", err)
		}
		out[path] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating %s: %w", prefix, err)
	}
	return out, nil
}

package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sakif/family-catalog/internal/config"
	"github.com/sakif/family-catalog/internal/repository"
	"github.com/sakif/family-catalog/internal/repository/memory"
	"github.com/sakif/family-catalog/internal/repository/postgres"
	"github.com/sakif/family-catalog/internal/repository/redis"
	sqliteRepo "github.com/sakif/family-catalog/internal/repository/sqlite"
)

// Backend holds the storage opened from configuration. Accounts always live
// in SQLite; Store is whichever key-value backend cfg.StoreBackend names.
type Backend struct {
	Accounts *sqliteRepo.DB
	Store    repository.Store

	closers []func() error
}

// Open opens the account database and the configured store. The caller
// must Close the result.
func Open(ctx context.Context, cfg config.Config) (*Backend, error) {
	if cfg.DBPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return nil, fmt.Errorf("server: creating database directory: %w", err)
		}
	}

	accounts, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("server: opening account database: %w", err)
	}
	b := &Backend{Accounts: accounts, closers: []func() error{accounts.Close}}

	switch cfg.StoreBackend {
	case config.BackendSQLite:
		// Same file, separate kv table.
		b.Store = accounts
	case config.BackendMemory:
		b.Store = memory.New()
	case config.BackendRedis:
		store, err := redis.New(cfg.Redis.Addr, cfg.Redis.Password)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("server: opening redis store: %w", err)
		}
		b.Store = store
		b.closers = append(b.closers, store.Close)
	case config.BackendPostgres:
		store, err := postgres.New(ctx, cfg.Postgres.DSN)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("server: opening postgres store: %w", err)
		}
		b.Store = store
		b.closers = append(b.closers, func() error { store.Close(); return nil })
	default:
		b.Close()
		return nil, fmt.Errorf("server: unknown store backend %q", cfg.StoreBackend)
	}
	return b, nil
}

// Close releases every backend in reverse order of opening.
func (b *Backend) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	b.closers = nil
	return errors.Join(errs...)
}

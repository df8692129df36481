// Package redis implements repository.Store on a Redis server. Each path is
// stored as a plain string key under a fixed prefix.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/sakif/family-catalog/internal/apperror"
	"github.com/sakif/family-catalog/internal/repository"
)

const defaultPrefix = "catalog:"

// scanBatch is the COUNT hint passed to SCAN.
const scanBatch = 200

var _ repository.Store = (*Store)(nil)

type Store struct {
	client *goredis.Client
	prefix string
}

// New connects to addr and pings it before returning.
func New(addr, password string) (*Store, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", addr, err)
	}

	return &Store{client: client, prefix: defaultPrefix}, nil
}

// NewWithClient wraps an existing client. Tests use it with a per-run
// prefix so parallel runs do not see each other's keys.
func NewWithClient(client *goredis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Store{client: client, prefix: prefix}
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) key(path string) string {
	return s.prefix + path
}

func (s *Store) Get(ctx context.Context, path string) ([]byte, error) {
	if err := repository.ValidatePath(path); err != nil {
		return nil, apperror.ValidationFailed("path", err.Error())
	}

	val, err := s.client.Get(ctx, s.key(path)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, apperror.NotFound("path", path)
	}
	if err != nil {
		return nil, fmt.Errorf("redis: reading %s: %w", path, err)
	}
	return val, nil
}

func (s *Store) Set(ctx context.Context, path string, value []byte) error {
	if err := repository.ValidatePath(path); err != nil {
		return apperror.ValidationFailed("path", err.Error())
	}

	if err := s.client.Set(ctx, s.key(path), value, 0).Err(); err != nil {
		return fmt.Errorf("redis: writing %s: %w", path, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, path string) error {
	if err := repository.ValidatePath(path); err != nil {
		return apperror.ValidationFailed("path", err.Error())
	}

	if err := s.client.Del(ctx, s.key(path)).Err(); err != nil {
		return fmt.Errorf("redis: deleting %s: %w", path, err)
	}
	return nil
}

// List walks the keyspace with SCAN and then fetches the matches with MGET.
// A key deleted between the two calls is skipped.
func (s *Store) List(ctx context.Context, prefix string) (map[string][]byte, error) {
	if err := repository.ValidatePath(prefix); err != nil {
		return nil, apperror.ValidationFailed("prefix", err.Error())
	}

	var keys []string
	iter := s.client.Scan(ctx, 0, s.key(prefix)+"/*", scanBatch).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis: scanning %s: %w", prefix, err)
	}

	out := make(map[string][]byte, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: fetching %s: %w", prefix, err)
	}
	for i, v := range vals {
		str, ok := v.(string)
		if !ok {
			continue
		}
		out[keys[i][len(s.prefix):]] = []byte(str)
	}
	return out, nil
}

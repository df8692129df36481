// Package memory is a process-local repository.Store. It backs tests and
// the "memory" store backend for local development.
package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/sakif/family-catalog/internal/apperror"
	"github.com/sakif/family-catalog/internal/repository"
)

var _ repository.Store = (*Store)(nil)

type Store struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func New() *Store {
	return &Store{data: make(map[string][]byte)}
}

func (s *Store) Get(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := repository.ValidatePath(path); err != nil {
		return nil, apperror.ValidationFailed("path", err.Error())
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[path]
	if !ok {
		return nil, apperror.NotFound("path", path)
	}
	return append([]byte(nil), v...), nil
}

func (s *Store) Set(ctx context.Context, path string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := repository.ValidatePath(path); err != nil {
		return apperror.ValidationFailed("path", err.Error())
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[path] = append([]byte(nil), value...)
	return nil
}

func (s *Store) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := repository.ValidatePath(path); err != nil {
		return apperror.ValidationFailed("path", err.Error())
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, path)
	return nil
}

func (s *Store) List(ctx context.Context, prefix string) (map[string][]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := repository.ValidatePath(prefix); err != nil {
		return nil, apperror.ValidationFailed("prefix", err.Error())
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string][]byte)
	for k, v := range s.data {
		if strings.HasPrefix(k, prefix+"/") {
			out[k] = append([]byte(nil), v...)
		}
	}
	return out, nil
}

// Len reports the number of stored paths.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

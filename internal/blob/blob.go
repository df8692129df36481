// Package blob stores uploaded media files and hands back the URL they are
// served from.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/sakif/family-catalog/internal/apperror"
)

type Store interface {
	// Put writes the content of r at name and returns its public URL.
	Put(ctx context.Context, name string, r io.Reader) (string, error)
	// Delete removes the blob behind url. A missing blob is not an error.
	Delete(ctx context.Context, url string) error
}

var _ Store = (*FS)(nil)

// FS keeps blobs under a directory on disk and serves them under urlPrefix.
type FS struct {
	dir       string
	urlPrefix string
}

// NewFS creates dir if needed. urlPrefix is the route the directory is
// mounted on, for example "/media/".
func NewFS(dir, urlPrefix string) (*FS, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("blob: creating %s: %w", dir, err)
	}
	if !strings.HasSuffix(urlPrefix, "/") {
		urlPrefix += "/"
	}
	return &FS{dir: dir, urlPrefix: urlPrefix}, nil
}

// Dir is the directory the server exposes.
func (f *FS) Dir() string { return f.dir }

func (f *FS) Put(ctx context.Context, name string, r io.Reader) (string, error) {
	rel, err := cleanName(name)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	full := filepath.Join(f.dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("blob: creating directory for %s: %w", rel, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("blob: creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return "", fmt.Errorf("blob: writing %s: %w", rel, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("blob: closing %s: %w", rel, err)
	}
	if err := os.Rename(tmp.Name(), full); err != nil {
		return "", fmt.Errorf("blob: storing %s: %w", rel, err)
	}

	return f.urlPrefix + rel, nil
}

func (f *FS) Delete(ctx context.Context, url string) error {
	if !strings.HasPrefix(url, f.urlPrefix) {
		return apperror.ValidationFailed("url", fmt.Sprintf("%s is not a stored media url", url))
	}
	rel, err := cleanName(strings.TrimPrefix(url, f.urlPrefix))
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	err = os.Remove(filepath.Join(f.dir, filepath.FromSlash(rel)))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("blob: deleting %s: %w", rel, err)
	}
	return nil
}

// cleanName rejects names that would escape the blob directory.
func cleanName(name string) (string, error) {
	clean := path.Clean("/" + name)[1:]
	if clean == "" || clean != name || strings.HasPrefix(clean, "..") || strings.Contains(name, `\`) {
		return "", apperror.ValidationFailed("name", fmt.Sprintf("invalid media name %q", name))
	}
	return clean, nil
}

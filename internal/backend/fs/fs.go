// Package fs implements the Backend contract over a local filesystem
// root directory.
package fs

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/brn2/gograph/internal/backend"
	"go.uber.org/zap"
)

// Backend stores each key as a file under root, preserving the key's
// slash-separated structure as nested directories.
type Backend struct {
	root   string
	logger *zap.Logger
}

// New creates a filesystem backend rooted at dir, creating it if
// necessary.
func New(dir string, logger *zap.Logger) (*Backend, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Backend{root: dir, logger: logger}, nil
}

func (b *Backend) path(key string) string {
	return filepath.Join(b.root, filepath.FromSlash(key))
}

// Put implements backend.Backend.
func (b *Backend) Put(ctx context.Context, key string, value []byte) error {
	p := b.path(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, value, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, p)
}

// Get implements backend.Backend.
func (b *Backend) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(b.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, backend.ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

// Delete implements backend.Backend. Removing an absent key is a no-op.
func (b *Backend) Delete(ctx context.Context, key string) error {
	err := os.Remove(b.path(key))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// ListKeys implements backend.Backend, walking the subtree rooted at
// prefix and returning slash-separated keys relative to the backend
// root.
func (b *Backend) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	base := b.path(prefix)
	var keys []string
	err := filepath.WalkDir(base, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.HasSuffix(p, ".tmp") {
			return nil
		}
		rel, err := filepath.Rel(b.root, p)
		if err != nil {
			return err
		}
		keys = append(keys, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

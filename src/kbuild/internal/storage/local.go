package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rsuntk/kbuild/src/common/paths"
)

// LocalConfig holds the local filesystem mirror configuration
type LocalConfig struct {
	// BasePath is the directory archives are mirrored into
	BasePath string
}

// LocalBackend mirrors archives to a local directory. Mostly useful for
// tests and air-gapped build hosts.
type LocalBackend struct {
	basePath string
}

// NewLocal creates a new local mirror backend
func NewLocal(cfg LocalConfig) (*LocalBackend, error) {
	basePath := paths.Expand(cfg.BasePath)
	if basePath == "" {
		basePath = "mirror"
	}
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create mirror directory %s: %w", basePath, err)
	}
	return &LocalBackend{basePath: basePath}, nil
}

// resolve maps a storage key to a path under the base directory
func (b *LocalBackend) resolve(key string) string {
	return filepath.Join(b.basePath, filepath.FromSlash(key))
}

// Upload writes data to a file under the base directory
func (b *LocalBackend) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	target := b.resolve(key)
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", key, err)
	}

	out, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("failed to create object %s: %w", key, err)
	}

	if _, err := io.Copy(out, reader); err != nil {
		out.Close()
		os.Remove(target)
		return fmt.Errorf("failed to write object %s: %w", key, err)
	}
	return out.Close()
}

// Exists checks if an object file exists
func (b *LocalBackend) Exists(ctx context.Context, key string) (bool, error) {
	_, err := os.Stat(b.resolve(key))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Ping checks that the base directory is writable
func (b *LocalBackend) Ping(ctx context.Context) error {
	probe := filepath.Join(b.basePath, ".kbuild-probe")
	if err := os.WriteFile(probe, []byte("ok"), 0644); err != nil {
		return fmt.Errorf("mirror directory not writable: %w", err)
	}
	return os.Remove(probe)
}

// Type returns the backend type
func (b *LocalBackend) Type() string {
	return "local"
}

// Location returns the base directory
func (b *LocalBackend) Location() string {
	return b.basePath
}

// Package storage provides the optional artifact mirror backends: finished
// archives can be pushed to S3-compatible object storage or to a local
// directory in addition to the chat upload.
package storage

import (
	"context"
	"io"
)

// Backend defines the interface for mirror backends
type Backend interface {
	// Upload uploads data to storage under the given key
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error

	// Exists checks if an object exists
	Exists(ctx context.Context, key string) (bool, error)

	// Ping checks if the storage is accessible
	Ping(ctx context.Context) error

	// Type returns the storage backend type
	Type() string

	// Location returns a human-readable location description
	Location() string
}

// Config holds the mirror configuration
type Config struct {
	// Type is the backend type: "s3" or "local"
	Type string

	// Local backend configuration
	Local LocalConfig

	// S3 backend configuration
	S3 S3Config
}

// New creates a mirror backend based on configuration
func New(cfg Config) (Backend, error) {
	switch cfg.Type {
	case "s3":
		return NewS3(cfg.S3)
	default:
		return NewLocal(cfg.Local)
	}
}

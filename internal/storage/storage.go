// Package storage provides the durable key-value substrate that backs the
// task and category stores. Each key holds one JSON document; the substrate
// neither interprets nor validates the bytes it stores.
package storage

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"github.com/mesh-intelligence/todos/pkg/types"
)

// Substrate errors.
var (
	ErrNotFound   = errors.New("key not found")
	ErrInvalidKey = errors.New("invalid key")
	ErrClosed     = errors.New("store is closed")
)

// Store is a durable key-value store. Get returns ErrNotFound for a key that
// was never written. Set replaces the whole value; a failed Set leaves the
// previous value in place.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Close() error
}

// File names used by the local backends inside DataDir.
const (
	sqliteFileName = "todos.db"
	defaultMongoDB = "todos"
)

// Open validates cfg and returns the backend it selects. DataDir defaults to
// the working directory for the file and sqlite backends.
func Open(ctx context.Context, cfg types.Config) (Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	dataDir := cfg.DataDir
	if dataDir == "" {
		dataDir = "."
	}

	switch cfg.Backend {
	case types.BackendFile:
		return NewFileStore(dataDir)
	case types.BackendSQLite:
		return OpenSQLite(ctx, filepath.Join(dataDir, sqliteFileName))
	case types.BackendRedis:
		return OpenRedis(ctx, cfg.RedisURL)
	case types.BackendMongo:
		db := cfg.MongoDatabase
		if db == "" {
			db = defaultMongoDB
		}
		return OpenMongo(ctx, cfg.MongoURI, db)
	case types.BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, types.ErrBackendUnknown
	}
}

// validateKey rejects keys that cannot be used as a file name.
func validateKey(key string) error {
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, `/\`) {
		return ErrInvalidKey
	}
	return nil
}

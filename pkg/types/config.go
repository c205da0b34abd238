package types

import (
	"errors"
	"time"
)

// Config holds backend selection and write scheduling parameters for the
// key-value substrate behind the stores.
type Config struct {
	Backend       string        `json:"backend" yaml:"backend"`
	DataDir       string        `json:"data_dir" yaml:"data_dir"`
	SyncStrategy  string        `json:"sync_strategy" yaml:"sync_strategy"`
	BatchSize     int           `json:"batch_size" yaml:"batch_size"`
	BatchInterval time.Duration `json:"batch_interval" yaml:"batch_interval"`
	RedisURL      string        `json:"redis_url" yaml:"redis_url"`
	MongoURI      string        `json:"mongo_uri" yaml:"mongo_uri"`
	MongoDatabase string        `json:"mongo_database" yaml:"mongo_database"`
}

// Supported backend names.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMongo  = "mongo"
	BackendMemory = "memory"
)

// Sync strategies control when saved collections reach the substrate.
const (
	SyncImmediate = "immediate"
	SyncOnClose   = "on_close"
	SyncBatch     = "batch"
)

// Config validation errors.
var (
	ErrBackendEmpty         = errors.New("backend must not be empty")
	ErrBackendUnknown       = errors.New("unknown backend")
	ErrSyncStrategyUnknown  = errors.New("unknown sync strategy")
	ErrBatchSizeInvalid     = errors.New("batch size must be positive")
	ErrBatchIntervalInvalid = errors.New("batch interval must not be negative")
	ErrRedisURLEmpty        = errors.New("redis backend requires redis_url")
	ErrMongoURIEmpty        = errors.New("mongo backend requires mongo_uri")
)

var knownBackends = map[string]bool{
	BackendFile:   true,
	BackendSQLite: true,
	BackendRedis:  true,
	BackendMongo:  true,
	BackendMemory: true,
}

var knownSyncStrategies = map[string]bool{
	"":            true,
	SyncImmediate: true,
	SyncOnClose:   true,
	SyncBatch:     true,
}

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure. An empty SyncStrategy means immediate.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	if !knownSyncStrategies[c.SyncStrategy] {
		return ErrSyncStrategyUnknown
	}
	if c.SyncStrategy == SyncBatch && c.BatchSize <= 0 {
		return ErrBatchSizeInvalid
	}
	if c.BatchInterval < 0 {
		return ErrBatchIntervalInvalid
	}
	switch c.Backend {
	case BackendRedis:
		if c.RedisURL == "" {
			return ErrRedisURLEmpty
		}
	case BackendMongo:
		if c.MongoURI == "" {
			return ErrMongoURIEmpty
		}
	}
	return nil
}

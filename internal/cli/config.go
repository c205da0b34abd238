package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mesh-intelligence/todos/internal/paths"
	"github.com/mesh-intelligence/todos/internal/tracker"
	"github.com/mesh-intelligence/todos/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"
	envPrefix      = "TODOS"
)

// Config keys.
const (
	cfgKeyBackend       = "backend"
	cfgKeyDataDir       = "data_dir"
	cfgKeySyncStrategy  = "sync_strategy"
	cfgKeyBatchSize     = "batch_size"
	cfgKeyBatchInterval = "batch_interval"
	cfgKeyRedisURL      = "redis_url"
	cfgKeyMongoURI      = "mongo_uri"
	cfgKeyMongoDatabase = "mongo_database"
	cfgKeyListenAddr    = "listen_addr"
	cfgKeyLogLevel      = "log_level"
)

// Defaults applied before config.yaml and the environment.
const (
	defaultBackend       = types.BackendFile
	defaultSyncStrategy  = types.SyncImmediate
	defaultBatchSize     = 20
	defaultBatchInterval = 5 * time.Second
	defaultListenAddr    = "127.0.0.1:8080"
	defaultLogLevel      = "warn"
)

// settings is the resolved configuration for one command invocation.
type settings struct {
	types.Config
	ConfigDir  string
	ListenAddr string
	LogLevel   string
}

// loadSettings reads config.yaml from the resolved config directory using
// Viper, then applies TODOS_* environment variables and global flags. A
// missing config.yaml is not an error.
func loadSettings(f *rootFlags) (settings, error) {
	configDir, err := paths.ResolveConfigDir(f.configDir)
	if err != nil {
		return settings{}, sysError("resolve config dir: %w", err)
	}

	v := viper.New()
	v.SetDefault(cfgKeyBackend, defaultBackend)
	v.SetDefault(cfgKeySyncStrategy, defaultSyncStrategy)
	v.SetDefault(cfgKeyBatchSize, defaultBatchSize)
	v.SetDefault(cfgKeyBatchInterval, defaultBatchInterval)
	v.SetDefault(cfgKeyListenAddr, defaultListenAddr)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return settings{}, userError("read config %s: %w", filepath.Join(configDir, configFileExt), err)
		}
	}

	if f.backend != "" {
		v.Set(cfgKeyBackend, f.backend)
	}
	if f.logLevel != "" {
		v.Set(cfgKeyLogLevel, f.logLevel)
	}

	dataDir, err := paths.ResolveDataDir(f.dataDir, v.GetString(cfgKeyDataDir))
	if err != nil {
		return settings{}, sysError("resolve data dir: %w", err)
	}

	s := settings{
		Config: types.Config{
			Backend:       v.GetString(cfgKeyBackend),
			DataDir:       dataDir,
			SyncStrategy:  v.GetString(cfgKeySyncStrategy),
			BatchSize:     v.GetInt(cfgKeyBatchSize),
			BatchInterval: v.GetDuration(cfgKeyBatchInterval),
			RedisURL:      v.GetString(cfgKeyRedisURL),
			MongoURI:      v.GetString(cfgKeyMongoURI),
			MongoDatabase: v.GetString(cfgKeyMongoDatabase),
		},
		ConfigDir:  configDir,
		ListenAddr: v.GetString(cfgKeyListenAddr),
		LogLevel:   v.GetString(cfgKeyLogLevel),
	}
	if err := s.Validate(); err != nil {
		return settings{}, userError("invalid config: %w", err)
	}
	return s, nil
}

// newLogger returns a logrus logger writing to w at the configured level,
// or at fallback when none is configured.
func newLogger(w io.Writer, level, fallback string) (*log.Logger, error) {
	if level == "" {
		level = fallback
	}
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, userError("invalid log level %q", level)
	}
	logger := log.New()
	logger.SetOutput(w)
	logger.SetLevel(lvl)
	return logger, nil
}

// withTracker opens the configured tracker, runs fn, and closes the tracker.
// A failure to flush or close is reported as a system error.
func withTracker(cmd *cobra.Command, f *rootFlags, fn func(ctx context.Context, tr *tracker.Tracker) error) error {
	s, err := loadSettings(f)
	if err != nil {
		return err
	}
	logger, err := newLogger(cmd.ErrOrStderr(), s.LogLevel, defaultLogLevel)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	tr, err := tracker.Open(ctx, s.Config, logger)
	if err != nil {
		return sysError("%w", err)
	}

	runErr := fn(ctx, tr)
	if err := tr.Close(context.Background()); err != nil && runErr == nil {
		runErr = sysError("close storage: %w", err)
	}
	return runErr
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	data, err := marshalIndent(v)
	if err != nil {
		return sysError("encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/todos/internal/tracker"
)

// configFile holds the structure written to config.yaml.
type configFile struct {
	Backend      string `yaml:"backend"`
	DataDir      string `yaml:"data_dir,omitempty"`
	SyncStrategy string `yaml:"sync_strategy"`
	ListenAddr   string `yaml:"listen_addr"`
	LogLevel     string `yaml:"log_level,omitempty"`
}

type initResult struct {
	ConfigDir string `json:"configDir"`
	DataDir   string `json:"dataDir"`
	Backend   string `json:"backend"`
}

func newInitCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize todos configuration and storage",
		Long:  "Create the configuration directory with a default config.yaml, then open the storage backend once to create the data directory.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, f)
		},
	}
}

func runInit(cmd *cobra.Command, f *rootFlags) error {
	s, err := loadSettings(f)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(s.ConfigDir, 0o755); err != nil {
		return sysError("create config directory: %w", err)
	}
	configPath := filepath.Join(s.ConfigDir, configFileExt)
	cfg := configFile{
		Backend:      s.Backend,
		DataDir:      f.dataDir,
		SyncStrategy: s.SyncStrategy,
		ListenAddr:   s.ListenAddr,
		LogLevel:     s.LogLevel,
	}
	if cfg.DataDir != "" {
		cfg.DataDir = s.DataDir
	}
	if err := writeConfigIfMissing(configPath, cfg); err != nil {
		return sysError("write config: %w", err)
	}

	logger, err := newLogger(cmd.ErrOrStderr(), s.LogLevel, defaultLogLevel)
	if err != nil {
		return err
	}
	tr, err := tracker.Open(context.Background(), s.Config, logger)
	if err != nil {
		return sysError("initialize storage: %w", err)
	}
	if err := tr.Close(context.Background()); err != nil {
		return sysError("finalize storage: %w", err)
	}

	if f.jsonMode {
		return printJSON(cmd.OutOrStdout(), initResult{ConfigDir: s.ConfigDir, DataDir: s.DataDir, Backend: s.Backend})
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "todos initialized successfully")
	fmt.Fprintln(out, "  config:", s.ConfigDir)
	fmt.Fprintln(out, "  data:  ", s.DataDir)
	return nil
}

// writeConfigIfMissing creates config.yaml with cfg if the file does not
// exist. If it already exists, the function returns nil (idempotent).
func writeConfigIfMissing(path string, cfg configFile) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

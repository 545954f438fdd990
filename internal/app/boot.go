package app

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sphildreth/blackboard/internal/config"
	"github.com/sphildreth/blackboard/internal/logger"
	"github.com/sphildreth/blackboard/internal/nodes"
	"github.com/sphildreth/blackboard/internal/store"
)

// Version is the release string stamped into banners and templates.
const Version = "0.2.0"

var (
	Config *config.Config
	Logger *slog.Logger
	Store  *store.Store
	Nodes  *nodes.Manager
)

// Boot loads configuration and wires the process globals: logger, data
// store, node manager. Safe to call again for a config reload; on failure
// the previous globals stay in place.
func Boot(configPath string, quiet bool) error {
	if configPath == "" {
		configPath = "config/example.yml"
	}

	newConfig, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	Config = newConfig
	Logger = logger.Setup(Config.Loggers, quiet)

	dir := Config.Paths.Data
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create data path: %w", err)
	}

	newStore, err := store.New(filepath.Clean(filepath.Join(dir, "blackboard.sqlite3")), store.Options{
		Quiet: quiet,
		Debug: Config.Debug,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to the database: %w", err)
	}

	if Store != nil {
		if err := Store.Close(); err != nil {
			Logger.Error("Failed to close existing store", "err", err)
		}
	}
	Store = newStore

	// Node slots survive a reload only when the ceiling is unchanged;
	// resizing mid-flight would strand live connections.
	if Nodes == nil {
		Nodes = nodes.NewManager(Config.MaxNodes)
	}

	if !quiet {
		Logger.Info("Successfully loaded configuration", "file", configPath)
	}

	return nil
}

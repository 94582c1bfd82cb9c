// Package cli implements smartmarksctl, the operator tool that prepares
// the database and imports bookmarks without going through the browser.
package cli

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/smartmarks/internal/config"
	"github.com/MrSnakeDoc/smartmarks/internal/logger"
	"github.com/MrSnakeDoc/smartmarks/internal/version"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	LogLevel string
	DBPath   string // overrides SMARTMARKS_DB_PATH when set

	// Environment replaces the process environment when non-nil (tests).
	Environment map[string]string
}

// NewRootCommand creates the root command for smartmarksctl.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "smartmarksctl",
		Short:   "Smart Bookmarks administration",
		Version: version.String(),
	}

	// Global flags
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "warn", "log level (debug|info|warn|error)")
	cmd.PersistentFlags().StringVar(&opts.DBPath, "db", "", "SQLite database path (default from SMARTMARKS_DB_PATH)")

	// Add subcommands
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))

	return cmd
}

// load reads the server configuration and applies flag overrides.
func (o *RootOptions) load() (*config.Config, logger.Logger, error) {
	cfg, err := config.Parse(env.Options{Environment: o.Environment})
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if o.DBPath != "" {
		cfg.DBPath = o.DBPath
	}
	return cfg, logger.New(o.LogLevel, true), nil
}

package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"sharide/internal/config"
	"sharide/pkg/logging"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "sharide",
		Short: "SHARide rating ledger and directory backend",
		Long: `sharide serves the rating ledger, directory search and notification
cache over HTTP, and can record ratings, search the directory or issue
tokens from the command line.

Configuration comes from defaults, an optional YAML file (--config or
SHARIDE_CONFIG) and SHARIDE_* environment variables.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", os.Getenv("SHARIDE_CONFIG"), "path to a YAML config file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level override (debug, info, warn, error)")

	cmd.AddCommand(
		newServeCmd(opts),
		newRateCmd(opts),
		newSearchCmd(opts),
		newTokenCmd(opts),
	)
	return cmd
}

// load reads the configuration and installs the process logger.
func (o *rootOptions) load() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}

	logger := logging.New(os.Stderr, logging.ParseLevel(cfg.Log.Level))
	slog.SetDefault(logger)
	return cfg, logger, nil
}

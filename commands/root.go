// Package commands provides the moulinette CLI commands.
package commands

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/envergo/moulinette/config"

	// Register criterion evaluators via init()
	_ "github.com/envergo/moulinette/regulations"
)

// Version is the binary version, overridable at build time.
var Version = "0.1.0"

var (
	flagConfig   string
	flagLogLevel string
)

// NewRootCommand builds the root command tree.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "moulinette",
		Short: "Environmental regulation evaluation engine",
		Long: `Moulinette evaluates development and hedge removal projects against
French environmental regulations: water law, Natura 2000, EvalEnv,
protected species, BCAE 8 and tree alignments.

It answers, per applicable regulation and overall, whether a project is
subject to a procedure, forbidden, or needs further examination.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level (debug, info, warn, error)")

	cmd.AddCommand(newServeCommand())
	cmd.AddCommand(newEvaluateCommand())
	cmd.AddCommand(newCheckCommand())
	cmd.AddCommand(newInitCommand())
	cmd.AddCommand(newVersionCommand())

	return cmd
}

// loadConfig assembles the effective configuration: layered loader, then
// the explicit --config file, then flag overrides.
func loadConfig() (*config.Config, error) {
	_ = godotenv.Load()

	cfg, err := config.NewLoader(slog.Default()).Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if flagConfig != "" {
		override, err := config.LoadFromFile(flagConfig)
		if err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
		cfg.Merge(override)
	}
	if flagLogLevel != "" {
		cfg.Logging.Level = flagLogLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// setupLogging installs the default slog logger per the config.
func setupLogging(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Logging.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var handler slog.Handler
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

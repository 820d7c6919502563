// Command wayfinder runs an expected-free-energy navigation agent on a
// partially observable grid, with optional run records, HTML reports and
// a live-view API.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/talgya/wayfinder/internal/config"
)

var cfg = config.Default()

var rootCmd = &cobra.Command{
	Use:   "wayfinder",
	Short: "Active-inference grid navigation",
	Long: `Wayfinder steers a single agent through a partially observable grid by
minimizing expected free energy: every candidate move is scored by the
belief mass the goal currently holds plus the certainty the move would
buy, and each free or blocked observation sharpens the belief map.

Run an episode, list and replay recorded runs, or watch a remote run
over its live-view API.`,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	pf.BoolVar(&cfg.NoColor, "no-color", cfg.NoColor, "Disable colored terminal output")
	pf.StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite run-record path (empty disables records)")

	// Bind flags to viper for WAYFINDER_* environment variable support.
	viper.BindPFlags(pf)
	viper.SetEnvPrefix("WAYFINDER")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	rootCmd.AddCommand(runCmd, runsCmd, replayCmd, watchCmd)
}

// resolveConfig folds environment overrides into cfg and validates the
// result. Flags beat environment variables beat defaults.
func resolveConfig() error {
	if err := viper.Unmarshal(cfg); err != nil {
		return fmt.Errorf("resolve config: %w", err)
	}
	return cfg.Validate()
}

// setupLogging installs the default text logger at the configured level.
func setupLogging() {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

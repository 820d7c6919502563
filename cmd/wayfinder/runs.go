package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/talgya/wayfinder/internal/persistence"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded runs, newest first",
	Run:   runRuns,
}

func init() {
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "Most recent runs to list")
}

func runRuns(cmd *cobra.Command, args []string) {
	if err := resolveConfig(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	setupLogging()

	if cfg.DBPath == "" {
		slog.Error("no run store configured, set --db")
		os.Exit(1)
	}
	store, err := persistence.Open(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open run store", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	sums, err := store.ListRuns(runsLimit)
	if err != nil {
		slog.Error("failed to list runs", "error", err)
		os.Exit(1)
	}
	if len(sums) == 0 {
		fmt.Println("No recorded runs.")
		return
	}

	fmt.Printf("%-36s  %-10s  %-7s  %-12s  %5s  %7s  %s\n",
		"ID", "SCENARIO", "GRID", "OUTCOME", "STEPS", "BLOCKED", "WHEN")
	for _, s := range sums {
		fmt.Printf("%-36s  %-10s  %-7s  %-12s  %5d  %7d  %s\n",
			s.ID,
			s.Scenario,
			fmt.Sprintf("%dx%d", s.GridRows, s.GridCols),
			s.Outcome,
			s.Steps,
			s.Blocked,
			humanize.Time(s.Started()),
		)
	}
}

package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/talgya/wayfinder/internal/engine"
	"github.com/talgya/wayfinder/internal/grid"
	"github.com/talgya/wayfinder/internal/persistence"
	"github.com/talgya/wayfinder/internal/render"
)

var replayDelay time.Duration

var replayCmd = &cobra.Command{
	Use:   "replay <run-id>",
	Short: "Re-render a recorded run in the terminal",
	Long: `Replay draws a recorded run frame by frame from its step trace.
Pass a run ID from "wayfinder runs", or "last" for the most recent run.
Records are reporting artifacts: replay never loads belief state back
into a live agent.`,
	Args: cobra.ExactArgs(1),
	Run:  runReplay,
}

func init() {
	replayCmd.Flags().DurationVar(&replayDelay, "step-delay", 150*time.Millisecond, "Pause between frames")
}

func runReplay(cmd *cobra.Command, args []string) {
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

	id := args[0]
	if id == "last" {
		id, err = store.GetMeta(persistence.MetaLastRunID)
		if err != nil {
			slog.Error("no runs recorded yet", "error", err)
			os.Exit(1)
		}
	}

	stored, err := store.LoadRun(id)
	if err != nil {
		slog.Error("failed to load run", "id", id, "error", err)
		os.Exit(1)
	}

	color := !cfg.NoColor && isatty.IsTerminal(os.Stdout.Fd())
	renderer := render.NewRenderer(os.Stdout, color)

	fmt.Printf("replaying run %s: %s layout, %dx%d grid, %s started %s\n",
		stored.ID, stored.Scenario, stored.GridRows, stored.GridCols,
		stored.Outcome, stored.Started().Format(time.RFC3339))

	v := render.RunView{
		Rows:      stored.GridRows,
		Cols:      stored.GridCols,
		Obstacles: stored.Obstacles,
		Start:     stored.Start,
		Goal:      stored.Goal,
		Position:  stored.Start,
		Path:      []grid.Position{stored.Start},
	}
	renderer.Frame(v)

	path := []grid.Position{stored.Start}
	var entropies []float64
	for i, rec := range stored.Trace {
		if rec.Observation == grid.ObservationFree {
			path = append(path, rec.Position)
		}
		entropies = append(entropies, rec.Entropy)

		v.Position = rec.Position
		v.Path = append([]grid.Position(nil), path...)
		v.Step = rec.Step
		// Per-step belief is not recorded; only the final frame shades.
		if i == len(stored.Trace)-1 {
			v.Belief = stored.FinalBelief
		}

		time.Sleep(replayDelay)
		renderer.Frame(v)
	}

	outcome, err := engine.ParseOutcome(stored.Outcome)
	if err != nil {
		slog.Warn("unrecognized stored outcome", "outcome", stored.Outcome)
	}
	v.Outcome = engine.Result{Outcome: outcome, Steps: stored.Steps}.String()
	v.Entropy = entropies
	renderer.Summary(v)
}

package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/talgya/wayfinder/internal/api"
	"github.com/talgya/wayfinder/internal/render"
)

var (
	watchURL     string
	watchEvery   time.Duration
	watchTimeout time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch a remote run over its live-view API",
	Long: `Watch polls a running "wayfinder run --serve" instance and renders
its snapshots in the local terminal. Purely observational: nothing sent
back can influence the remote agent.`,
	Run: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchURL, "url", "http://localhost:8080", "Live-view base URL")
	watchCmd.Flags().DurationVar(&watchEvery, "interval", 500*time.Millisecond, "Poll interval")
	watchCmd.Flags().DurationVar(&watchTimeout, "ready-timeout", 30*time.Second, "How long to wait for the live view to come up")
}

func runWatch(cmd *cobra.Command, args []string) {
	if err := resolveConfig(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	setupLogging()

	client := api.NewClient(watchURL)
	slog.Info("waiting for live view", "url", watchURL)
	if err := client.WaitReady(watchTimeout); err != nil {
		slog.Error("live view unreachable", "error", err)
		os.Exit(1)
	}

	info, err := client.Grid()
	if err != nil {
		slog.Error("failed to fetch grid", "error", err)
		os.Exit(1)
	}

	color := !cfg.NoColor && isatty.IsTerminal(os.Stdout.Fd())
	renderer := render.NewRenderer(os.Stdout, color)

	fmt.Printf("watching %s: %dx%d grid, start %s, goal %s\n",
		watchURL, info.Rows, info.Cols, info.Start, info.Goal)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(watchEvery)
	defer ticker.Stop()

	var entropies []float64
	lastEpisode, lastStep := -1, -1

	for {
		select {
		case sig := <-sigCh:
			slog.Info("received signal, stopping watch", "signal", sig)
			fmt.Println("Watch stopped.")
			return
		case <-ticker.C:
			status, err := client.Status()
			if err != nil {
				slog.Warn("status poll failed", "error", err)
				continue
			}
			snap, err := client.Snapshot()
			if err != nil {
				// Nothing published yet.
				continue
			}

			if snap.Episode != lastEpisode {
				lastEpisode, lastStep = snap.Episode, -1
				entropies = nil
			}
			if snap.Step == lastStep {
				if !status.Running && snap.Outcome != "" {
					renderer.Summary(snapshotView(info, snap, entropies))
					return
				}
				continue
			}
			lastStep = snap.Step
			entropies = append(entropies, snap.Entropy)

			renderer.Frame(snapshotView(info, snap, entropies))

			if !status.Running && snap.Outcome != "" {
				renderer.Summary(snapshotView(info, snap, entropies))
				return
			}
		}
	}
}

// snapshotView combines the static grid with one remote snapshot.
func snapshotView(info *api.GridInfo, snap *api.Snapshot, entropies []float64) render.RunView {
	return render.RunView{
		Rows:      info.Rows,
		Cols:      info.Cols,
		Obstacles: info.Obstacles,
		Start:     info.Start,
		Goal:      info.Goal,
		Position:  snap.Position,
		Path:      snap.Path,
		Belief:    snap.Belief,
		Entropy:   entropies,
		Step:      snap.Step,
		Outcome:   snap.Outcome,
	}
}

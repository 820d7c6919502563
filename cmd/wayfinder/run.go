package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/talgya/wayfinder/internal/agent"
	"github.com/talgya/wayfinder/internal/api"
	"github.com/talgya/wayfinder/internal/config"
	"github.com/talgya/wayfinder/internal/engine"
	"github.com/talgya/wayfinder/internal/grid"
	"github.com/talgya/wayfinder/internal/persistence"
	"github.com/talgya/wayfinder/internal/render"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one or more navigation episodes",
	Run:   runRun,
}

func init() {
	f := runCmd.Flags()
	f.IntVar(&cfg.Rows, "rows", cfg.Rows, "Grid rows")
	f.IntVar(&cfg.Cols, "cols", cfg.Cols, "Grid columns")
	f.IntVar(&cfg.StartRow, "start-row", cfg.StartRow, "Start row")
	f.IntVar(&cfg.StartCol, "start-col", cfg.StartCol, "Start column")
	f.IntVar(&cfg.GoalRow, "goal-row", cfg.GoalRow, "Goal row")
	f.IntVar(&cfg.GoalCol, "goal-col", cfg.GoalCol, "Goal column")
	f.StringSliceVar(&cfg.Obstacles, "obstacle", cfg.Obstacles, `Obstacle cell as "row,col" (repeatable)`)
	f.StringVar(&cfg.Scenario, "scenario", cfg.Scenario, "Named layout: "+strings.Join(grid.PresetNames(), ", "))
	f.BoolVar(&cfg.NoiseWorld, "noise", cfg.NoiseWorld, "Generate obstacles from simplex noise")
	f.Float64Var(&cfg.NoiseThreshold, "noise-threshold", cfg.NoiseThreshold, "Noise value above which a cell is blocked")
	f.IntVar(&cfg.MaxSteps, "max-steps", cfg.MaxSteps, "Step budget per episode")
	f.Float64Var(&cfg.ExplorationRate, "exploration", cfg.ExplorationRate, "Probability of a uniform random action per decision")
	f.Int64Var(&cfg.Seed, "seed", cfg.Seed, "Random seed (0 = time-based)")
	f.IntVar(&cfg.Episodes, "episodes", cfg.Episodes, "Independent episodes to run")
	f.DurationVar(&cfg.StepDelay, "step-delay", cfg.StepDelay, "Pause between steps (makes runs watchable)")
	f.StringVar(&cfg.ReportPath, "report", cfg.ReportPath, "HTML report path (empty disables)")
	f.StringVar(&cfg.ServeAddr, "serve", cfg.ServeAddr, "Live-view listen address, e.g. :8080 (empty disables)")

	viper.BindPFlags(f)
}

func runRun(cmd *cobra.Command, args []string) {
	if err := resolveConfig(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	setupLogging()

	w, start, goal, scenario, err := buildWorld(cfg)
	if err != nil {
		slog.Error("world construction failed", "error", err)
		os.Exit(1)
	}

	color := !cfg.NoColor && isatty.IsTerminal(os.Stdout.Fd())
	renderer := render.NewRenderer(os.Stdout, color)

	var store *persistence.Store
	if cfg.DBPath != "" {
		if dir := filepath.Dir(cfg.DBPath); dir != "." {
			os.MkdirAll(dir, 0755)
		}
		store, err = persistence.Open(cfg.DBPath)
		if err != nil {
			slog.Error("failed to open run store", "error", err)
			os.Exit(1)
		}
		defer store.Close()
		slog.Info("run store opened", "path", cfg.DBPath)
	}

	var view *api.Server
	if cfg.ServeAddr != "" {
		view = api.NewServer(cfg.ServeAddr, api.GridInfo{
			Rows:      w.Rows(),
			Cols:      w.Cols(),
			Start:     start,
			Goal:      goal,
			Obstacles: w.Obstacles(),
		}, api.Status{
			Name:     "wayfinder",
			Scenario: scenario,
			Episodes: cfg.Episodes,
			MaxSteps: cfg.MaxSteps,
			Position: start,
			Goal:     goal,
		})
		view.Start()
		defer view.Shutdown(context.Background())
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, stopping run", "signal", sig)
		cancel()
	}()

	fmt.Printf("wayfinder: %s layout, %dx%d grid, start %s, goal %s, %d obstacle(s)\n",
		scenario, w.Rows(), w.Cols(), start, goal, w.ObstacleCount())

	showFrames := cfg.Episodes == 1
	var batch engine.BatchResult
	var lastView render.RunView

	for ep := 1; ep <= cfg.Episodes; ep++ {
		if ctx.Err() != nil {
			break
		}

		// Nonzero seeds stay reproducible while keeping episodes distinct.
		seed := cfg.Seed
		if seed != 0 {
			seed += int64(ep - 1)
		}
		a, err := agent.New(w, start, goal, cfg.ExplorationRate, seed)
		if err != nil {
			slog.Error("agent construction failed", "error", err)
			os.Exit(1)
		}

		runner := engine.NewRunner(w, a, cfg.MaxSteps)
		runner.StepDelay = cfg.StepDelay

		var trace []engine.StepRecord
		var entropies, goalMasses []float64

		if view != nil {
			view.BeginEpisode(ep, agentSnapshot(ep, 0, a))
		}

		runner.OnStep = func(rec engine.StepRecord) {
			trace = append(trace, rec)
			entropies = append(entropies, rec.Entropy)
			goalMasses = append(goalMasses, rec.GoalMass)

			if showFrames {
				renderer.Frame(render.RunView{
					Rows:      w.Rows(),
					Cols:      w.Cols(),
					Obstacles: w.Obstacles(),
					Start:     start,
					Goal:      goal,
					Position:  rec.Position,
					Path:      a.History(),
					Belief:    a.Belief().Values(),
					Step:      rec.Step,
				})
			}
			if view != nil {
				view.Publish(stepSnapshot(ep, rec, a))
			}
		}

		started := time.Now()
		res := runner.Run(ctx)
		batch.Add(res)

		if view != nil {
			view.Finish(res.String(), agentSnapshot(ep, res.Steps, a))
		}

		lastView = render.RunView{
			Rows:      w.Rows(),
			Cols:      w.Cols(),
			Obstacles: w.Obstacles(),
			Start:     start,
			Goal:      goal,
			Position:  a.Position(),
			Path:      res.Path,
			Belief:    res.FinalBelief.Values(),
			Entropy:   entropies,
			GoalMass:  goalMasses,
			Step:      res.Steps,
			Outcome:   res.String(),
		}

		if showFrames {
			renderer.Summary(lastView)
		} else {
			slog.Info("episode finished",
				"episode", ep,
				"outcome", res.Outcome.String(),
				"steps", res.Steps,
				"blocked", res.Blocked,
			)
		}

		if store != nil {
			rec := persistence.RunRecord{
				ID:          uuid.NewString(),
				StartedAt:   started,
				Scenario:    scenario,
				World:       w,
				Start:       start,
				Goal:        goal,
				Exploration: cfg.ExplorationRate,
				Seed:        seed,
				MaxSteps:    cfg.MaxSteps,
				Result:      res,
				Trace:       trace,
			}
			if err := store.SaveRun(rec); err != nil {
				slog.Error("run save failed", "id", rec.ID, "error", err)
			}
		}
	}

	if cfg.Episodes > 1 {
		fmt.Printf("episodes %d  success rate %.0f%%  mean steps %.1f  blocked %d\n",
			batch.Episodes, batch.SuccessRate()*100, batch.MeanSteps(), batch.TotalBlocked)
		slog.Info("batch finished",
			"episodes", batch.Episodes,
			"successes", batch.Successes,
			"success_rate", fmt.Sprintf("%.2f", batch.SuccessRate()),
			"mean_steps", fmt.Sprintf("%.1f", batch.MeanSteps()),
		)
	}

	if cfg.ReportPath != "" && batch.Episodes > 0 {
		if err := render.WriteReport(cfg.ReportPath, lastView); err != nil {
			slog.Error("report write failed", "path", cfg.ReportPath, "error", err)
		} else {
			slog.Info("report written", "path", cfg.ReportPath)
			fmt.Printf("Report: %s\n", cfg.ReportPath)
		}
	}

	if view != nil {
		view.Stop()
		if ctx.Err() == nil {
			fmt.Println("Live view still serving. Ctrl+C to exit.")
			<-ctx.Done()
		}
	}
}

// buildWorld constructs the occupancy world from whichever source the
// configuration selects: a named preset, a noise field, or the explicit
// shape and obstacle list.
func buildWorld(c *config.Config) (*grid.World, grid.Position, grid.Position, string, error) {
	if c.Scenario != "" {
		p, ok := grid.LookupPreset(c.Scenario)
		if !ok {
			return nil, grid.Position{}, grid.Position{}, "", fmt.Errorf("unknown scenario %q", c.Scenario)
		}
		w, err := p.Build()
		return w, p.Start, p.Goal, p.Name, err
	}

	start, goal := c.Start(), c.Goal()
	if c.NoiseWorld {
		nc := grid.DefaultNoiseConfig(c.Rows, c.Cols)
		nc.Seed = c.Seed
		nc.Threshold = c.NoiseThreshold
		w, err := grid.GenerateNoise(nc, start, goal)
		return w, start, goal, "noise", err
	}

	obstacles, err := c.ParseObstacles()
	if err != nil {
		return nil, grid.Position{}, grid.Position{}, "", err
	}
	w, err := grid.New(c.Rows, c.Cols, obstacles)
	return w, start, goal, "custom", err
}

// agentSnapshot captures the agent's current state for the live view.
func agentSnapshot(episode, step int, a *agent.Agent) api.Snapshot {
	b := a.Belief()
	return api.Snapshot{
		Episode:  episode,
		Step:     step,
		Position: a.Position(),
		Path:     a.History(),
		Belief:   b.Values(),
		Entropy:  b.Entropy(),
		GoalMass: b.At(a.Goal()),
	}
}

// stepSnapshot decorates an agent snapshot with the cycle that just ran.
func stepSnapshot(episode int, rec engine.StepRecord, a *agent.Agent) api.Snapshot {
	snap := agentSnapshot(episode, rec.Step, a)
	target := rec.Target
	snap.Action = rec.Action.String()
	snap.Target = &target
	snap.Observation = rec.Observation.String()
	snap.Entropy = rec.Entropy
	snap.GoalMass = rec.GoalMass
	return snap
}

// Package engine drives the perception-action loop: check the goal,
// choose an action, probe the world, fold the observation back into the
// agent, repeat until the goal or the step budget is reached.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/talgya/wayfinder/internal/agent"
	"github.com/talgya/wayfinder/internal/belief"
	"github.com/talgya/wayfinder/internal/grid"
)

// DefaultStallWindow is how many consecutive non-advancing cycles trigger
// a boxed-in warning.
const DefaultStallWindow = 25

// Outcome classifies how a run ended.
type Outcome uint8

const (
	OutcomeGoalReached Outcome = iota // Agent stands on the goal cell
	OutcomeStepLimit                  // Budget exhausted first
	OutcomeCanceled                   // Context canceled mid-run
)

// String returns a short name for logs and storage.
func (o Outcome) String() string {
	switch o {
	case OutcomeGoalReached:
		return "goal_reached"
	case OutcomeStepLimit:
		return "step_limit"
	case OutcomeCanceled:
		return "canceled"
	}
	return fmt.Sprintf("outcome(%d)", uint8(o))
}

// ParseOutcome maps a stored outcome name back to its value.
func ParseOutcome(s string) (Outcome, error) {
	switch s {
	case "goal_reached":
		return OutcomeGoalReached, nil
	case "step_limit":
		return OutcomeStepLimit, nil
	case "canceled":
		return OutcomeCanceled, nil
	}
	return OutcomeStepLimit, fmt.Errorf("unknown outcome %q", s)
}

// StepRecord captures one completed driver cycle for observers.
type StepRecord struct {
	Step        int
	Action      agent.Action
	Target      grid.Position
	Observation grid.Observation
	Position    grid.Position
	Entropy     float64
	GoalMass    float64
}

// Result summarizes a finished episode.
type Result struct {
	Outcome     Outcome
	Steps       int
	Blocked     int
	Path        []grid.Position
	FinalBelief *belief.Distribution
	Duration    time.Duration
}

// String reports the outcome the way an operator reads it.
func (r Result) String() string {
	switch r.Outcome {
	case OutcomeGoalReached:
		return fmt.Sprintf("goal reached in %d steps", r.Steps)
	case OutcomeCanceled:
		return fmt.Sprintf("run canceled after %d steps", r.Steps)
	}
	return fmt.Sprintf("goal not reached within %d steps", r.Steps)
}

// Runner executes one episode of one agent in one world. The optional
// OnStep callback fires after every completed cycle; records carry belief
// summaries computed from a snapshot, never the live distribution.
type Runner struct {
	World    *grid.World
	Agent    *agent.Agent
	MaxSteps int

	StepDelay   time.Duration // Optional pacing between cycles
	StallWindow int           // Non-advancing cycles before a warning (0 = default)

	OnStep func(rec StepRecord)
}

// NewRunner creates a runner with the default stall window.
func NewRunner(w *grid.World, a *agent.Agent, maxSteps int) *Runner {
	return &Runner{
		World:       w,
		Agent:       a,
		MaxSteps:    maxSteps,
		StallWindow: DefaultStallWindow,
	}
}

// Run executes the episode to completion. The goal check happens at the
// top of every cycle, so a zero budget with the agent already on the goal
// still reports success, and a zero budget elsewhere terminates before
// any action is chosen.
func (r *Runner) Run(ctx context.Context) Result {
	begin := time.Now()
	slog.Info("run started",
		"world", r.World.String(),
		"start", r.Agent.Position().String(),
		"goal", r.Agent.Goal().String(),
		"max_steps", r.MaxSteps,
	)

	window := r.StallWindow
	if window <= 0 {
		window = DefaultStallWindow
	}

	outcome := OutcomeStepLimit
	steps := 0
	blocked := 0
	stalled := 0

	for {
		if r.Agent.AtGoal() {
			outcome = OutcomeGoalReached
			break
		}
		if steps >= r.MaxSteps {
			outcome = OutcomeStepLimit
			break
		}
		if ctx.Err() != nil {
			outcome = OutcomeCanceled
			break
		}

		steps++
		prev := r.Agent.Position()
		act := r.Agent.ChooseAction()
		target := act.Apply(prev)

		// An out-of-bounds attempt reads as blocked but skips the belief
		// update: there is no cell to rule out.
		obs := grid.ObservationObstacle
		if r.World.InBounds(target) {
			obs = r.World.Observe(target)
			r.Agent.Observe(target, obs)
		}
		if obs == grid.ObservationObstacle {
			blocked++
		}

		if r.Agent.Position() == prev {
			stalled++
			if stalled == window {
				slog.Warn("agent appears boxed in",
					"position", prev.String(),
					"cycles", stalled,
				)
			}
		} else {
			stalled = 0
		}

		if r.OnStep != nil {
			b := r.Agent.Belief()
			r.OnStep(StepRecord{
				Step:        steps,
				Action:      act,
				Target:      target,
				Observation: obs,
				Position:    r.Agent.Position(),
				Entropy:     b.Entropy(),
				GoalMass:    b.At(r.Agent.Goal()),
			})
		}

		if r.StepDelay > 0 {
			time.Sleep(r.StepDelay)
		}
	}

	res := Result{
		Outcome:     outcome,
		Steps:       steps,
		Blocked:     blocked,
		Path:        r.Agent.History(),
		FinalBelief: r.Agent.Belief(),
		Duration:    time.Since(begin),
	}

	slog.Info("run finished",
		"outcome", outcome.String(),
		"steps", steps,
		"blocked", blocked,
		"duration", res.Duration.Round(time.Millisecond).String(),
	)
	return res
}

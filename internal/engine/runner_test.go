package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/wayfinder/internal/agent"
	"github.com/talgya/wayfinder/internal/grid"
)

func buildRun(t *testing.T, rows, cols int, obstacles []grid.Position, start, goal grid.Position, exploration float64, seed int64, maxSteps int) *Runner {
	t.Helper()
	w, err := grid.New(rows, cols, obstacles)
	require.NoError(t, err)
	a, err := agent.New(w, start, goal, exploration, seed)
	require.NoError(t, err)
	return NewRunner(w, a, maxSteps)
}

func TestZeroBudgetTerminatesWithoutChoosing(t *testing.T) {
	r := buildRun(t, 3, 3, nil,
		grid.Position{Row: 0, Col: 0}, grid.Position{Row: 2, Col: 2}, 0, 1, 0)

	fired := 0
	r.OnStep = func(StepRecord) { fired++ }

	res := r.Run(context.Background())

	assert.Equal(t, OutcomeStepLimit, res.Outcome)
	assert.Equal(t, 0, res.Steps)
	assert.Equal(t, 0, fired, "no action may be chosen on a zero budget")
	assert.Len(t, res.Path, 1, "path holds only the initial position")
	assert.Equal(t, "goal not reached within 0 steps", res.String())
}

func TestZeroBudgetOnGoalStillSucceeds(t *testing.T) {
	at := grid.Position{Row: 1, Col: 1}
	r := buildRun(t, 3, 3, nil, at, at, 0, 1, 0)

	res := r.Run(context.Background())

	assert.Equal(t, OutcomeGoalReached, res.Outcome)
	assert.Equal(t, 0, res.Steps)
}

func TestTwoByTwoRun(t *testing.T) {
	start := grid.Position{Row: 0, Col: 0}
	goal := grid.Position{Row: 0, Col: 1}
	r := buildRun(t, 2, 2, nil, start, goal, 0, 1, 10)

	var records []StepRecord
	r.OnStep = func(rec StepRecord) { records = append(records, rec) }

	res := r.Run(context.Background())

	assert.Equal(t, OutcomeGoalReached, res.Outcome)
	assert.Equal(t, 1, res.Steps)
	assert.Equal(t, "goal reached in 1 steps", res.String())
	assert.Equal(t, []grid.Position{start, goal}, res.Path)

	require.Len(t, records, 1)
	rec := records[0]
	assert.Equal(t, 1, rec.Step)
	assert.Equal(t, agent.ActionRight, rec.Action)
	assert.Equal(t, goal, rec.Target)
	assert.Equal(t, grid.ObservationFree, rec.Observation)
	assert.Equal(t, goal, rec.Position)
	assert.InDelta(t, 1.0, rec.GoalMass, 1e-6)
	assert.InDelta(t, 0.0, rec.Entropy, 1e-6)
}

func TestBlockedAttemptsAreCounted(t *testing.T) {
	blocked := grid.Position{Row: 0, Col: 1}
	r := buildRun(t, 3, 3, []grid.Position{blocked},
		grid.Position{Row: 0, Col: 0}, grid.Position{Row: 2, Col: 2}, 0, 1, 3)

	res := r.Run(context.Background())

	assert.GreaterOrEqual(t, res.Blocked, 1, "the first decision walks into the obstacle")
	assert.Equal(t, grid.Position{Row: 0, Col: 0}, res.Path[0])
}

func TestCanceledContext(t *testing.T) {
	r := buildRun(t, 3, 3, nil,
		grid.Position{Row: 0, Col: 0}, grid.Position{Row: 2, Col: 2}, 0, 1, 100)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := r.Run(ctx)

	assert.Equal(t, OutcomeCanceled, res.Outcome)
	assert.Equal(t, 0, res.Steps)
	assert.Equal(t, "run canceled after 0 steps", res.String())
}

func TestRunInvariantsUnderExploration(t *testing.T) {
	p, ok := grid.LookupPreset("crossing")
	require.True(t, ok)
	w, err := p.Build()
	require.NoError(t, err)
	a, err := agent.New(w, p.Start, p.Goal, 0.5, 7)
	require.NoError(t, err)

	r := NewRunner(w, a, 200)
	var steps []StepRecord
	r.OnStep = func(rec StepRecord) { steps = append(steps, rec) }

	res := r.Run(context.Background())

	assert.LessOrEqual(t, res.Steps, 200)
	assert.Equal(t, p.Start, res.Path[0])
	assert.Contains(t, []Outcome{OutcomeGoalReached, OutcomeStepLimit}, res.Outcome)
	assert.Equal(t, len(steps), res.Steps)

	// Step numbers ascend without gaps and the belief stays a pmf (or the
	// degenerate all-zero distribution).
	for i, rec := range steps {
		assert.Equal(t, i+1, rec.Step)
		assert.GreaterOrEqual(t, rec.GoalMass, 0.0)
		assert.LessOrEqual(t, rec.GoalMass, 1.0+1e-6)
	}
	sum := res.FinalBelief.Sum()
	assert.True(t, sum < 1e-6 || (sum > 1.0-1e-6 && sum < 1.0+1e-6),
		"final belief must sum to ~1 or be fully degenerate, got %f", sum)
}

func TestParseOutcomeRoundtrip(t *testing.T) {
	for _, o := range []Outcome{OutcomeGoalReached, OutcomeStepLimit, OutcomeCanceled} {
		got, err := ParseOutcome(o.String())
		require.NoError(t, err)
		assert.Equal(t, o, got)
	}

	_, err := ParseOutcome("wandered_off")
	assert.Error(t, err)
}

func TestBatchResultAggregation(t *testing.T) {
	var b BatchResult
	b.Add(Result{Outcome: OutcomeGoalReached, Steps: 4, Blocked: 1})
	b.Add(Result{Outcome: OutcomeStepLimit, Steps: 10, Blocked: 6})

	assert.Equal(t, 2, b.Episodes)
	assert.Equal(t, 1, b.Successes)
	assert.InDelta(t, 0.5, b.SuccessRate(), 1e-9)
	assert.InDelta(t, 7.0, b.MeanSteps(), 1e-9)
	assert.Equal(t, 7, b.TotalBlocked)

	var empty BatchResult
	assert.Zero(t, empty.SuccessRate())
	assert.Zero(t, empty.MeanSteps())
}

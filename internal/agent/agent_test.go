package agent

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/wayfinder/internal/grid"
)

func mustWorld(t *testing.T, rows, cols int, obstacles []grid.Position) *grid.World {
	t.Helper()
	w, err := grid.New(rows, cols, obstacles)
	require.NoError(t, err)
	return w
}

func TestActionDeltas(t *testing.T) {
	cases := []struct {
		act    Action
		dr, dc int
	}{
		{ActionUp, -1, 0},
		{ActionDown, 1, 0},
		{ActionLeft, 0, -1},
		{ActionRight, 0, 1},
	}
	for _, tc := range cases {
		dr, dc := tc.act.Delta()
		assert.Equal(t, tc.dr, dr, "%s row delta", tc.act)
		assert.Equal(t, tc.dc, dc, "%s col delta", tc.act)
	}
}

func TestApplyIsPure(t *testing.T) {
	p := grid.Position{Row: 2, Col: 2}
	first := ActionUp.Apply(p)
	second := ActionUp.Apply(p)

	assert.Equal(t, grid.Position{Row: 1, Col: 2}, first)
	assert.Equal(t, first, second)
	assert.Equal(t, grid.Position{Row: 2, Col: 2}, p, "input must not be mutated")
}

func TestNewValidates(t *testing.T) {
	w := mustWorld(t, 3, 3, nil)

	_, err := New(nil, grid.Position{}, grid.Position{}, 0, 1)
	assert.Error(t, err)

	_, err = New(w, grid.Position{Row: 3, Col: 0}, grid.Position{Row: 2, Col: 2}, 0, 1)
	assert.Error(t, err)

	_, err = New(w, grid.Position{Row: 0, Col: 0}, grid.Position{Row: 0, Col: 3}, 0, 1)
	assert.Error(t, err)

	_, err = New(w, grid.Position{Row: 0, Col: 0}, grid.Position{Row: 2, Col: 2}, 1.5, 1)
	assert.Error(t, err)

	_, err = New(w, grid.Position{Row: 0, Col: 0}, grid.Position{Row: 2, Col: 2}, -0.1, 1)
	assert.Error(t, err)
}

func TestScoreInfiniteOutOfBounds(t *testing.T) {
	w := mustWorld(t, 2, 2, nil)
	a, err := New(w, grid.Position{Row: 0, Col: 0}, grid.Position{Row: 1, Col: 1}, 0, 1)
	require.NoError(t, err)

	assert.True(t, math.IsInf(a.Score(ActionUp), 1), "up leaves the grid")
	assert.True(t, math.IsInf(a.Score(ActionLeft), 1), "left leaves the grid")
	assert.False(t, math.IsInf(a.Score(ActionRight), 1))
	assert.False(t, math.IsInf(a.Score(ActionDown), 1))
}

func TestScoreInfiniteForRuledOutCell(t *testing.T) {
	w := mustWorld(t, 2, 2, nil)
	a, err := New(w, grid.Position{Row: 0, Col: 0}, grid.Position{Row: 1, Col: 1}, 0, 1)
	require.NoError(t, err)

	assert.False(t, math.IsInf(a.Score(ActionRight), 1))
	a.Observe(grid.Position{Row: 0, Col: 1}, grid.ObservationObstacle)
	assert.True(t, math.IsInf(a.Score(ActionRight), 1), "ruled-out cell must be inadmissible")
}

func TestChooseActionDeterministicWithoutExploration(t *testing.T) {
	w := mustWorld(t, 3, 3, nil)
	a, err := New(w, grid.Position{Row: 1, Col: 1}, grid.Position{Row: 2, Col: 2}, 0, 99)
	require.NoError(t, err)

	first := a.ChooseAction()
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, a.ChooseAction(), "identical state must yield identical choices")
	}
}

func TestTwoByTwoReachesGoalInOneStep(t *testing.T) {
	w := mustWorld(t, 2, 2, nil)
	start := grid.Position{Row: 0, Col: 0}
	goal := grid.Position{Row: 0, Col: 1}
	a, err := New(w, start, goal, 0, 1)
	require.NoError(t, err)

	act := a.ChooseAction()
	require.Equal(t, ActionRight, act)

	target := act.Apply(a.Position())
	require.Equal(t, goal, target)
	a.Observe(target, w.Observe(target))

	assert.True(t, a.AtGoal())
	b := a.Belief()
	assert.InDelta(t, 1.0, b.At(goal), 1e-6)
	assert.InDelta(t, 1.0, b.Sum(), 1e-6)
	assert.Zero(t, b.At(start))
}

func TestObstacleConfirmationSticks(t *testing.T) {
	blocked := grid.Position{Row: 0, Col: 1}
	w := mustWorld(t, 3, 3, []grid.Position{blocked})
	start := grid.Position{Row: 0, Col: 0}
	a, err := New(w, start, grid.Position{Row: 2, Col: 2}, 0, 1)
	require.NoError(t, err)

	// The first decision walks into the obstacle cell.
	act := a.ChooseAction()
	require.Equal(t, ActionRight, act)

	target := act.Apply(a.Position())
	require.Equal(t, blocked, target)
	a.Observe(target, w.Observe(target))

	assert.Equal(t, start, a.Position(), "blocked move must not advance")
	assert.Len(t, a.History(), 1)
	assert.Zero(t, a.Belief().At(blocked))

	// The ruled-out cell stays ruled out and the next choice avoids it.
	next := a.ChooseAction()
	assert.Equal(t, ActionDown, next)
	nextTarget := next.Apply(a.Position())
	a.Observe(nextTarget, w.Observe(nextTarget))
	assert.Zero(t, a.Belief().At(blocked))
}

func TestBoxedInStillReturnsFirstAction(t *testing.T) {
	w := mustWorld(t, 2, 2, []grid.Position{
		{Row: 0, Col: 1},
		{Row: 1, Col: 0},
	})
	a, err := New(w, grid.Position{Row: 0, Col: 0}, grid.Position{Row: 1, Col: 1}, 0, 1)
	require.NoError(t, err)

	// Confirm both reachable neighbors as obstacles.
	a.Observe(grid.Position{Row: 0, Col: 1}, grid.ObservationObstacle)
	a.Observe(grid.Position{Row: 1, Col: 0}, grid.ObservationObstacle)

	for _, act := range ActionOrder {
		assert.True(t, math.IsInf(a.Score(act), 1), "%s should be inadmissible", act)
	}
	assert.Equal(t, ActionOrder[0], a.ChooseAction(), "an all-infinite scoreboard falls back to the first action")
}

func TestExplorationIgnoresScoresAndState(t *testing.T) {
	w := mustWorld(t, 3, 3, nil)
	a, err := New(w, grid.Position{Row: 1, Col: 1}, grid.Position{Row: 2, Col: 2}, 1.0, 42)
	require.NoError(t, err)

	before := a.Belief()
	seen := make(map[Action]bool)
	for i := 0; i < 100; i++ {
		act := a.ChooseAction()
		seen[act] = true
	}

	assert.GreaterOrEqual(t, len(seen), 2, "uniform draws should show variety")
	assert.Equal(t, grid.Position{Row: 1, Col: 1}, a.Position())
	assert.Equal(t, before.Values(), a.Belief().Values(), "exploration must not touch belief state")
	assert.Len(t, a.History(), 1)
}

func TestSameSeedSameTrajectory(t *testing.T) {
	build := func() *Agent {
		w := mustWorld(t, 4, 4, []grid.Position{{Row: 1, Col: 1}})
		a, err := New(w, grid.Position{Row: 0, Col: 0}, grid.Position{Row: 3, Col: 3}, 0.5, 1234)
		require.NoError(t, err)
		return a
	}

	first := build()
	second := build()
	w := mustWorld(t, 4, 4, []grid.Position{{Row: 1, Col: 1}})

	for i := 0; i < 20; i++ {
		actA := first.ChooseAction()
		actB := second.ChooseAction()
		require.Equal(t, actA, actB, "step %d diverged", i)

		target := actA.Apply(first.Position())
		if !w.InBounds(target) {
			continue
		}
		obs := w.Observe(target)
		first.Observe(target, obs)
		second.Observe(target, obs)
	}
	assert.Equal(t, first.Position(), second.Position())
}

func TestHistoryStartsWithInitialPosition(t *testing.T) {
	w := mustWorld(t, 2, 2, nil)
	start := grid.Position{Row: 1, Col: 0}
	a, err := New(w, start, grid.Position{Row: 0, Col: 1}, 0, 1)
	require.NoError(t, err)

	h := a.History()
	require.Len(t, h, 1)
	assert.Equal(t, start, h[0])

	// Mutating the returned slice must not leak into the agent.
	h[0] = grid.Position{Row: 9, Col: 9}
	assert.Equal(t, start, a.History()[0])
}

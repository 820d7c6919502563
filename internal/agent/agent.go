// Package agent implements the decision core: expected-free-energy action
// scoring over a belief distribution, epsilon-greedy exploration, and the
// perception commit that folds observations back into agent state.
package agent

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/talgya/wayfinder/internal/belief"
	"github.com/talgya/wayfinder/internal/grid"
)

// minAdmissibleMass is the belief floor below which a candidate cell is
// treated as a known obstacle. Obstacle updates force exact zeros and
// renormalization preserves them, so any tiny positive bound works; this
// one also absorbs denormal underflow.
const minAdmissibleMass = 1e-12

// Agent is a single navigator minimizing expected free energy. It owns
// its belief distribution and committed position; the world reference is
// used for bounds checks only, occupancy reaches the agent exclusively
// through observations.
type Agent struct {
	world           *grid.World
	goal            grid.Position
	explorationRate float64

	pos     grid.Position
	history []grid.Position
	belief  *belief.Distribution
	rng     *rand.Rand
}

// New creates an agent at start seeking goal. explorationRate is the
// probability per decision of a uniformly random action. Seed 0 draws a
// time-based seed; any other value makes the run reproducible.
func New(w *grid.World, start, goal grid.Position, explorationRate float64, seed int64) (*Agent, error) {
	if w == nil {
		return nil, fmt.Errorf("agent requires a world")
	}
	if !w.InBounds(start) {
		return nil, fmt.Errorf("start %s outside %s", start, w)
	}
	if !w.InBounds(goal) {
		return nil, fmt.Errorf("goal %s outside %s", goal, w)
	}
	if explorationRate < 0 || explorationRate > 1 {
		return nil, fmt.Errorf("exploration rate %.3f outside [0, 1]", explorationRate)
	}

	b, err := belief.New(w.Rows(), w.Cols(), start)
	if err != nil {
		return nil, fmt.Errorf("initial belief: %w", err)
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return &Agent{
		world:           w,
		goal:            goal,
		explorationRate: explorationRate,
		pos:             start,
		history:         []grid.Position{start},
		belief:          b,
		rng:             rand.New(rand.NewSource(seed)),
	}, nil
}

// Position returns the committed position.
func (a *Agent) Position() grid.Position { return a.pos }

// Goal returns the goal cell.
func (a *Agent) Goal() grid.Position { return a.goal }

// AtGoal reports whether the committed position is the goal.
func (a *Agent) AtGoal() bool { return a.pos == a.goal }

// History returns the committed positions in order, starting with the
// initial one, as a copy.
func (a *Agent) History() []grid.Position {
	out := make([]grid.Position, len(a.history))
	copy(out, a.history)
	return out
}

// Belief returns a snapshot of the current belief. The live distribution
// is mutated in place between steps and is never handed out.
func (a *Agent) Belief() *belief.Distribution {
	return a.belief.Clone()
}

// Score returns the expected free energy of attempting the action from
// the committed position: the negated sum of an instrumental term (log
// belief mass at the goal) and an epistemic term (divergence between a
// one-hot at the candidate cell and the current belief). Candidates out
// of bounds, or whose belief mass sits below the admissibility floor,
// score +Inf.
//
// The instrumental term reads the current pre-move belief at the goal for
// every candidate, so within a single decision actions are ranked by the
// epistemic term alone.
func (a *Agent) Score(act Action) float64 {
	candidate := act.Apply(a.pos)
	if !a.world.InBounds(candidate) {
		return math.Inf(1)
	}
	if a.belief.At(candidate) < minAdmissibleMass {
		return math.Inf(1)
	}

	instrumental := math.Log(a.belief.At(a.goal) + belief.Epsilon)
	epistemic := belief.KL(belief.OneHot(a.belief.Rows(), a.belief.Cols(), candidate), a.belief)
	return -(instrumental + epistemic)
}

// ChooseAction picks the next action. With probability explorationRate it
// returns a uniformly random action, ignoring scores and touching no
// belief or position state. Otherwise every action is scored in
// ActionOrder and the first minimum wins. An all-infinite scoreboard
// still returns the first action in order rather than halting; the
// driver records the resulting blocked attempt like any other.
func (a *Agent) ChooseAction() Action {
	if a.rng.Float64() < a.explorationRate {
		return ActionOrder[a.rng.Intn(len(ActionOrder))]
	}

	best := ActionOrder[0]
	bestScore := a.Score(best)
	for _, act := range ActionOrder[1:] {
		if s := a.Score(act); s < bestScore {
			best, bestScore = act, s
		}
	}
	return best
}

// Observe folds the outcome of an attempted move into agent state. The
// belief always updates; the committed position and history advance only
// when the move succeeded. The target must be in bounds.
func (a *Agent) Observe(target grid.Position, obs grid.Observation) {
	a.belief.Update(obs, target)
	if obs == grid.ObservationFree {
		a.pos = target
		a.history = append(a.history, target)
	}
}

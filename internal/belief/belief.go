// Package belief maintains the agent's probability distribution over grid
// cells together with the information-theoretic helpers policy scoring
// needs. The distribution approximates a pmf over "where am I / what is
// free"; every update renormalizes with an additive stabilizer so
// degenerate inputs decay to all-zero instead of NaN.
package belief

import (
	"fmt"
	"math"

	"github.com/talgya/wayfinder/internal/grid"
)

// Epsilon stabilizes normalization and logarithms.
const Epsilon = 1e-8

// Distribution is a dense probability mass function over the cells of a
// rows x cols grid. Entries are non-negative and sum to ~1 after every
// update. Mutation is in-place with a single owner; concurrent readers
// must work from a Clone.
type Distribution struct {
	rows int
	cols int
	mass []float64
}

// New returns the starting belief for a run: all-ones with the start cell
// forced to full weight, then normalized. Effectively a uniform prior with
// certainty about the start folded in at construction.
func New(rows, cols int, start grid.Position) (*Distribution, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("belief dimensions must be positive, got %dx%d", rows, cols)
	}
	d := &Distribution{
		rows: rows,
		cols: cols,
		mass: make([]float64, rows*cols),
	}
	if !d.inRange(start) {
		return nil, fmt.Errorf("start %s outside %dx%d belief grid", start, rows, cols)
	}
	for i := range d.mass {
		d.mass[i] = 1.0
	}
	d.mass[d.index(start)] = 1.0
	d.Normalize()
	return d, nil
}

// OneHot returns a distribution with all mass on a single cell. The cell
// must be in range.
func OneHot(rows, cols int, at grid.Position) *Distribution {
	d := &Distribution{
		rows: rows,
		cols: cols,
		mass: make([]float64, rows*cols),
	}
	d.mass[d.index(at)] = 1.0
	return d
}

func (d *Distribution) index(p grid.Position) int {
	return p.Row*d.cols + p.Col
}

func (d *Distribution) inRange(p grid.Position) bool {
	return p.Row >= 0 && p.Row < d.rows && p.Col >= 0 && p.Col < d.cols
}

// Rows returns the number of rows.
func (d *Distribution) Rows() int { return d.rows }

// Cols returns the number of columns.
func (d *Distribution) Cols() int { return d.cols }

// At returns the mass at p. The position must be in range.
func (d *Distribution) At(p grid.Position) float64 {
	return d.mass[d.index(p)]
}

// Sum returns the total mass.
func (d *Distribution) Sum() float64 {
	total := 0.0
	for _, v := range d.mass {
		total += v
	}
	return total
}

// Max returns the largest single-cell mass.
func (d *Distribution) Max() float64 {
	best := 0.0
	for _, v := range d.mass {
		if v > best {
			best = v
		}
	}
	return best
}

// Normalize rescales the distribution so it sums to ~1, dividing every
// entry by (sum + Epsilon). An all-zero distribution stays all-zero; it
// never errors and never produces NaN.
func (d *Distribution) Normalize() {
	denom := d.Sum() + Epsilon
	for i := range d.mass {
		d.mass[i] /= denom
	}
}

// Update folds one observation outcome into the belief, in place.
// An obstacle rules the target cell out: its mass is forced to exactly
// zero and the remainder renormalized. A free observation collapses the
// belief to certainty: a one-hot likelihood at the target is multiplied
// elementwise into the prior, then renormalized, leaving all mass at the
// observed cell. The target must be in range; selection and driver paths
// bounds-check before calling.
func (d *Distribution) Update(obs grid.Observation, target grid.Position) {
	idx := d.index(target)
	if obs == grid.ObservationObstacle {
		d.mass[idx] = 0
		d.Normalize()
		return
	}
	kept := d.mass[idx]
	for i := range d.mass {
		d.mass[i] = 0
	}
	d.mass[idx] = kept
	d.Normalize()
}

// Entropy returns the Shannon entropy in nats, treating 0 log 0 as 0.
func (d *Distribution) Entropy() float64 {
	h := 0.0
	for _, v := range d.mass {
		if v <= 0 {
			continue
		}
		h -= v * math.Log(v)
	}
	return h
}

// Clone returns an independent copy for observers; the live distribution
// is mutated in place by the owning agent.
func (d *Distribution) Clone() *Distribution {
	mass := make([]float64, len(d.mass))
	copy(mass, d.mass)
	return &Distribution{rows: d.rows, cols: d.cols, mass: mass}
}

// Values returns the mass values in row-major order, as a copy.
func (d *Distribution) Values() []float64 {
	out := make([]float64, len(d.mass))
	copy(out, d.mass)
	return out
}

// String returns a summary of the distribution.
func (d *Distribution) String() string {
	return fmt.Sprintf("Belief(%dx%d, sum=%.4f)", d.rows, d.cols, d.Sum())
}

// KL returns the relative entropy KL(p || q) in nats. Terms where p has
// no mass contribute nothing; q is epsilon-clamped so ruled-out cells do
// not produce infinities. Both distributions must share dimensions.
func KL(p, q *Distribution) float64 {
	total := 0.0
	for i := range p.mass {
		pv := p.mass[i]
		if pv <= 0 {
			continue
		}
		total += pv * math.Log((pv+Epsilon)/(q.mass[i]+Epsilon))
	}
	return total
}

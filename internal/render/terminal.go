// Package render draws runs for humans: colored terminal frames of the
// grid with belief shading, and an HTML report with charts.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/logrusorgru/aurora"

	"github.com/talgya/wayfinder/internal/grid"
)

// RunView is the plain, read-only data a frame or report is drawn from.
// Producers hand over copies; nothing here reaches back into live state.
type RunView struct {
	Rows      int
	Cols      int
	Obstacles []grid.Position
	Start     grid.Position
	Goal      grid.Position
	Position  grid.Position
	Path      []grid.Position
	Belief    []float64 // Row-major mass, len Rows*Cols
	Entropy   []float64 // Per completed step
	GoalMass  []float64 // Per completed step
	Step      int
	Outcome   string
}

// beliefRamp maps relative mass to a glyph, light to heavy.
const beliefRamp = " .:-=+*oO@"

// Renderer writes terminal frames to a single destination.
type Renderer struct {
	out   io.Writer
	color bool
}

// NewRenderer creates a renderer. Color is the caller's decision; pass
// false when the destination is not a terminal.
func NewRenderer(out io.Writer, color bool) *Renderer {
	return &Renderer{out: out, color: color}
}

// Frame draws one grid frame: obstacles, the traveled path, the agent and
// the goal, with free cells shaded by belief mass.
func (r *Renderer) Frame(v RunView) {
	obstacles := make(map[grid.Position]bool, len(v.Obstacles))
	for _, p := range v.Obstacles {
		obstacles[p] = true
	}
	visited := make(map[grid.Position]bool, len(v.Path))
	for _, p := range v.Path {
		visited[p] = true
	}

	maxMass := 0.0
	for _, m := range v.Belief {
		if m > maxMass {
			maxMass = m
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "step %d  position %s  goal %s\n", v.Step, v.Position, v.Goal)

	for row := 0; row < v.Rows; row++ {
		for col := 0; col < v.Cols; col++ {
			p := grid.Position{Row: row, Col: col}
			b.WriteString(r.cell(p, v, obstacles, visited, maxMass))
		}
		b.WriteByte('\n')
	}

	b.WriteString("A agent  G goal  # obstacle  . path  shading = belief mass\n")
	fmt.Fprint(r.out, b.String())
}

func (r *Renderer) cell(p grid.Position, v RunView, obstacles, visited map[grid.Position]bool, maxMass float64) string {
	switch {
	case p == v.Position:
		return r.paint("A ", paintAgent)
	case p == v.Goal:
		return r.paint("G ", paintGoal)
	case obstacles[p]:
		return r.paint("# ", paintObstacle)
	case visited[p]:
		return r.paint(". ", paintPath)
	}

	mass := 0.0
	if idx := p.Row*v.Cols + p.Col; idx < len(v.Belief) {
		mass = v.Belief[idx]
	}
	return r.shade(mass, maxMass)
}

type paintKind uint8

const (
	paintAgent paintKind = iota
	paintGoal
	paintObstacle
	paintPath
)

func (r *Renderer) paint(s string, kind paintKind) string {
	if !r.color {
		return s
	}
	switch kind {
	case paintAgent:
		return aurora.Green(s).Bold().String()
	case paintGoal:
		return aurora.Yellow(s).String()
	case paintObstacle:
		return aurora.Red(s).String()
	case paintPath:
		return aurora.Blue(s).String()
	}
	return s
}

// shade renders a free cell by its share of the heaviest belief mass.
func (r *Renderer) shade(mass, maxMass float64) string {
	frac := 0.0
	if maxMass > 0 {
		frac = mass / maxMass
	}
	idx := int(frac * float64(len(beliefRamp)-1))
	if idx < 0 {
		idx = 0
	}
	if idx > len(beliefRamp)-1 {
		idx = len(beliefRamp) - 1
	}
	s := string(beliefRamp[idx]) + " "
	if !r.color {
		return s
	}
	// 24-step grayscale, kept off the darkest levels so faint mass stays
	// visible on dark terminals.
	level := uint8(6 + frac*17)
	return aurora.Gray(level, s).String()
}

// Summary writes the closing lines of a run: outcome plus the entropy
// drop over the episode.
func (r *Renderer) Summary(v RunView) {
	if len(v.Entropy) == 0 {
		fmt.Fprintf(r.out, "%s\n", v.Outcome)
		return
	}
	first := v.Entropy[0]
	last := v.Entropy[len(v.Entropy)-1]
	fmt.Fprintf(r.out, "%s  entropy %.3f -> %.3f  visited %d cells\n",
		v.Outcome, first, last, len(uniquePositions(v.Path)))
}

func uniquePositions(path []grid.Position) []grid.Position {
	seen := make(map[grid.Position]bool, len(path))
	var out []grid.Position
	for _, p := range path {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}

// Package grid provides the rectangular occupancy world the agent navigates.
// Cells are addressed by (row, col) from the top-left corner; occupancy is
// fixed at construction and read-only afterwards.
package grid

import "fmt"

// Position addresses a single cell by row and column.
type Position struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// String formats the position as "(row,col)".
func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.Row, p.Col)
}

// ParsePosition reads a "row,col" pair.
func ParsePosition(s string) (Position, error) {
	var p Position
	if _, err := fmt.Sscanf(s, "%d,%d", &p.Row, &p.Col); err != nil {
		return Position{}, fmt.Errorf("invalid position %q, want \"row,col\": %w", s, err)
	}
	return p, nil
}

// Manhattan returns the taxicab distance between two positions.
func Manhattan(a, b Position) int {
	dr := a.Row - b.Row
	dc := a.Col - b.Col
	if dr < 0 {
		dr = -dr
	}
	if dc < 0 {
		dc = -dc
	}
	return dr + dc
}

// Occupancy marks a cell as traversable or blocked.
type Occupancy uint8

const (
	CellFree     Occupancy = iota // Traversable
	CellObstacle                  // Blocks movement
)

// Observation is the binary outcome of probing a cell: what the agent
// perceives when it attempts to move there.
type Observation uint8

const (
	ObservationFree     Observation = iota // Move succeeded, cell is traversable
	ObservationObstacle                    // Move blocked
)

// String returns a short name for log output.
func (o Observation) String() string {
	if o == ObservationObstacle {
		return "obstacle"
	}
	return "free"
}

// World holds the complete occupancy state of a rectangular grid.
// It is immutable once constructed; the only way to obtain one is
// through New, a Preset, or noise generation.
type World struct {
	rows  int
	cols  int
	cells []Occupancy
}

// New creates a world of the given dimensions with the listed cells
// blocked. Dimensions must be positive and every obstacle must lie
// inside the grid.
func New(rows, cols int, obstacles []Position) (*World, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("grid dimensions must be positive, got %dx%d", rows, cols)
	}
	w := &World{
		rows:  rows,
		cols:  cols,
		cells: make([]Occupancy, rows*cols),
	}
	for _, p := range obstacles {
		if !w.InBounds(p) {
			return nil, fmt.Errorf("obstacle %s outside %dx%d grid", p, rows, cols)
		}
		w.cells[w.index(p)] = CellObstacle
	}
	return w, nil
}

func (w *World) index(p Position) int {
	return p.Row*w.cols + p.Col
}

// Rows returns the number of rows.
func (w *World) Rows() int { return w.rows }

// Cols returns the number of columns.
func (w *World) Cols() int { return w.cols }

// InBounds reports whether the position lies inside the grid.
func (w *World) InBounds(p Position) bool {
	return p.Row >= 0 && p.Row < w.rows && p.Col >= 0 && p.Col < w.cols
}

// Occupancy returns the cell state at p. The position must be in bounds.
func (w *World) Occupancy(p Position) Occupancy {
	return w.cells[w.index(p)]
}

// Observe probes the cell at p and reports what an agent attempting to
// move there would perceive. The position must be in bounds.
func (w *World) Observe(p Position) Observation {
	if w.Occupancy(p) == CellObstacle {
		return ObservationObstacle
	}
	return ObservationFree
}

// Obstacles returns every blocked cell in row-major order.
func (w *World) Obstacles() []Position {
	var out []Position
	for r := 0; r < w.rows; r++ {
		for c := 0; c < w.cols; c++ {
			p := Position{Row: r, Col: c}
			if w.cells[w.index(p)] == CellObstacle {
				out = append(out, p)
			}
		}
	}
	return out
}

// ObstacleCount returns the number of blocked cells.
func (w *World) ObstacleCount() int {
	n := 0
	for _, c := range w.cells {
		if c == CellObstacle {
			n++
		}
	}
	return n
}

// String returns a summary of the world.
func (w *World) String() string {
	return fmt.Sprintf("World(%dx%d, obstacles=%d)", w.rows, w.cols, w.ObstacleCount())
}

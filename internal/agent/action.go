package agent

import (
	"fmt"

	"github.com/talgya/wayfinder/internal/grid"
)

// Action is one of the four orthogonal moves.
type Action uint8

const (
	ActionUp Action = iota
	ActionRight
	ActionDown
	ActionLeft
)

// ActionOrder is the fixed iteration order for scoring and tie-breaking:
// clockwise from up. The first minimal score in this order wins, which
// keeps selection fully deterministic when exploration is off.
var ActionOrder = [4]Action{ActionUp, ActionRight, ActionDown, ActionLeft}

// Delta returns the row and column displacement of the action.
func (a Action) Delta() (dr, dc int) {
	switch a {
	case ActionUp:
		return -1, 0
	case ActionRight:
		return 0, 1
	case ActionDown:
		return 1, 0
	case ActionLeft:
		return 0, -1
	}
	return 0, 0
}

// Apply returns the cell the action would reach from p. Pure displacement
// with no bounds or occupancy checks; callers validate the result.
func (a Action) Apply(p grid.Position) grid.Position {
	dr, dc := a.Delta()
	return grid.Position{Row: p.Row + dr, Col: p.Col + dc}
}

// String returns the lowercase action name.
func (a Action) String() string {
	switch a {
	case ActionUp:
		return "up"
	case ActionRight:
		return "right"
	case ActionDown:
		return "down"
	case ActionLeft:
		return "left"
	}
	return fmt.Sprintf("action(%d)", uint8(a))
}

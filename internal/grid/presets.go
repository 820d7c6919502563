package grid

import "sort"

// Preset is a named, ready-to-run world layout with its start and goal.
type Preset struct {
	Name      string
	Rows      int
	Cols      int
	Start     Position
	Goal      Position
	Obstacles []Position
}

// Build constructs the world described by the preset.
func (p Preset) Build() (*World, error) {
	return New(p.Rows, p.Cols, p.Obstacles)
}

var presets = map[string]Preset{
	"open": {
		Name:  "open",
		Rows:  6,
		Cols:  6,
		Start: Position{Row: 0, Col: 0},
		Goal:  Position{Row: 5, Col: 5},
	},
	"corridor": {
		Name:  "corridor",
		Rows:  5,
		Cols:  7,
		Start: Position{Row: 2, Col: 0},
		Goal:  Position{Row: 2, Col: 6},
		// Vertical wall with a single gap at the bottom row.
		Obstacles: []Position{
			{Row: 0, Col: 3},
			{Row: 1, Col: 3},
			{Row: 2, Col: 3},
			{Row: 3, Col: 3},
		},
	},
	"crossing": {
		Name:  "crossing",
		Rows:  4,
		Cols:  4,
		Start: Position{Row: 0, Col: 0},
		Goal:  Position{Row: 3, Col: 3},
		// Frozen-lake style holes.
		Obstacles: []Position{
			{Row: 1, Col: 1},
			{Row: 1, Col: 3},
			{Row: 2, Col: 3},
			{Row: 3, Col: 0},
		},
	},
	"pillars": {
		Name:  "pillars",
		Rows:  8,
		Cols:  8,
		Start: Position{Row: 0, Col: 0},
		Goal:  Position{Row: 7, Col: 7},
		Obstacles: []Position{
			{Row: 1, Col: 1},
			{Row: 1, Col: 4},
			{Row: 3, Col: 2},
			{Row: 3, Col: 5},
			{Row: 5, Col: 1},
			{Row: 5, Col: 4},
			{Row: 6, Col: 6},
		},
	},
}

// LookupPreset returns the preset with the given name.
func LookupPreset(name string) (Preset, bool) {
	p, ok := presets[name]
	return p, ok
}

// PresetNames returns all preset names in sorted order.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

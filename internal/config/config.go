// Package config holds the run configuration resolved from flags,
// WAYFINDER_* environment variables, and defaults before any component
// is built.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/talgya/wayfinder/internal/grid"
)

// Config describes one run (or batch of runs). A validated Config is
// treated as immutable by everything downstream.
type Config struct {
	// World shape. Ignored when Scenario is set.
	Rows     int `mapstructure:"rows"`
	Cols     int `mapstructure:"cols"`
	StartRow int `mapstructure:"start-row"`
	StartCol int `mapstructure:"start-col"`
	GoalRow  int `mapstructure:"goal-row"`
	GoalCol  int `mapstructure:"goal-col"`

	// Obstacle sources, mutually exclusive with each other.
	Obstacles      []string `mapstructure:"obstacle"` // "row,col" entries
	Scenario       string   `mapstructure:"scenario"` // Named preset layout
	NoiseWorld     bool     `mapstructure:"noise"`    // Simplex-noise obstacle field
	NoiseThreshold float64  `mapstructure:"noise-threshold"`

	// Agent and driver.
	MaxSteps        int           `mapstructure:"max-steps"`
	ExplorationRate float64       `mapstructure:"exploration"`
	Seed            int64         `mapstructure:"seed"` // 0 = time-based
	Episodes        int           `mapstructure:"episodes"`
	StepDelay       time.Duration `mapstructure:"step-delay"`

	// Outputs.
	DBPath     string `mapstructure:"db"`     // Empty disables run records
	ReportPath string `mapstructure:"report"` // Empty disables the HTML report
	ServeAddr  string `mapstructure:"serve"`  // Empty disables the live view

	// Presentation.
	LogLevel string `mapstructure:"log-level"`
	NoColor  bool   `mapstructure:"no-color"`
}

// Default returns a config with sensible defaults for a demo run.
func Default() *Config {
	return &Config{
		Rows:            6,
		Cols:            6,
		StartRow:        0,
		StartCol:        0,
		GoalRow:         5,
		GoalCol:         5,
		NoiseThreshold:  0.64,
		MaxSteps:        120,
		ExplorationRate: 0.3,
		Seed:            0,
		Episodes:        1,
		DBPath:          "wayfinder.db",
		LogLevel:        "info",
	}
}

// Start returns the configured start cell.
func (c *Config) Start() grid.Position {
	return grid.Position{Row: c.StartRow, Col: c.StartCol}
}

// Goal returns the configured goal cell.
func (c *Config) Goal() grid.Position {
	return grid.Position{Row: c.GoalRow, Col: c.GoalCol}
}

// ParseObstacles decodes the obstacle flags into positions.
func (c *Config) ParseObstacles() ([]grid.Position, error) {
	out := make([]grid.Position, 0, len(c.Obstacles))
	for _, s := range c.Obstacles {
		p, err := grid.ParsePosition(s)
		if err != nil {
			return nil, fmt.Errorf("obstacle: %w", err)
		}
		out = append(out, p)
	}
	return out, nil
}

// Validate checks the configuration before anything is constructed.
func (c *Config) Validate() error {
	if c.Scenario != "" {
		if _, ok := grid.LookupPreset(c.Scenario); !ok {
			return fmt.Errorf("unknown scenario %q (have: %s)",
				c.Scenario, strings.Join(grid.PresetNames(), ", "))
		}
		if c.NoiseWorld {
			return fmt.Errorf("scenario and noise are mutually exclusive")
		}
		if len(c.Obstacles) > 0 {
			return fmt.Errorf("scenario and explicit obstacles are mutually exclusive")
		}
	} else {
		if c.Rows <= 0 || c.Cols <= 0 {
			return fmt.Errorf("grid dimensions must be positive, got %dx%d", c.Rows, c.Cols)
		}
		if !c.inBounds(c.Start()) {
			return fmt.Errorf("start %s outside %dx%d grid", c.Start(), c.Rows, c.Cols)
		}
		if !c.inBounds(c.Goal()) {
			return fmt.Errorf("goal %s outside %dx%d grid", c.Goal(), c.Rows, c.Cols)
		}
		if c.NoiseWorld {
			if len(c.Obstacles) > 0 {
				return fmt.Errorf("noise and explicit obstacles are mutually exclusive")
			}
			if c.NoiseThreshold <= 0 || c.NoiseThreshold >= 1 {
				return fmt.Errorf("noise-threshold must be inside (0, 1), got %.3f", c.NoiseThreshold)
			}
		}
		obstacles, err := c.ParseObstacles()
		if err != nil {
			return err
		}
		for _, p := range obstacles {
			if !c.inBounds(p) {
				return fmt.Errorf("obstacle %s outside %dx%d grid", p, c.Rows, c.Cols)
			}
			if p == c.Start() {
				return fmt.Errorf("obstacle %s sits on the start cell", p)
			}
			if p == c.Goal() {
				return fmt.Errorf("obstacle %s sits on the goal cell", p)
			}
		}
	}

	if c.MaxSteps < 0 {
		return fmt.Errorf("max-steps must be >= 0, got %d", c.MaxSteps)
	}
	if c.ExplorationRate < 0 || c.ExplorationRate > 1 {
		return fmt.Errorf("exploration must be inside [0, 1], got %.3f", c.ExplorationRate)
	}
	if c.Episodes < 1 {
		return fmt.Errorf("episodes must be >= 1, got %d", c.Episodes)
	}
	if c.StepDelay < 0 {
		return fmt.Errorf("step-delay must be >= 0, got %s", c.StepDelay)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log-level must be debug, info, warn or error, got %q", c.LogLevel)
	}
	return nil
}

func (c *Config) inBounds(p grid.Position) bool {
	return p.Row >= 0 && p.Row < c.Rows && p.Col >= 0 && p.Col < c.Cols
}

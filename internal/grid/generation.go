// Obstacle field generation using layered simplex noise.
// Thresholds fractal noise into blocked cells, then carves the start and
// goal neighborhoods free so a run never begins boxed in.
package grid

import (
	"math/rand"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// NoiseConfig holds obstacle generation parameters.
type NoiseConfig struct {
	Rows        int
	Cols        int
	Seed        int64   // Random seed (0 = random)
	Threshold   float64 // Noise value above which a cell becomes an obstacle (0.0–1.0)
	Octaves     int
	Frequency   float64
	Persistence float64
}

// DefaultNoiseConfig returns parameters that produce scattered clumps
// covering roughly a quarter of the grid.
func DefaultNoiseConfig(rows, cols int) NoiseConfig {
	return NoiseConfig{
		Rows:        rows,
		Cols:        cols,
		Seed:        0,
		Threshold:   0.64,
		Octaves:     3,
		Frequency:   0.35,
		Persistence: 0.5,
	}
}

// GenerateNoise creates a world whose obstacles follow a fractal noise
// field. The start and goal cells and their orthogonal neighbors are
// always left free. Deterministic for a fixed nonzero seed.
func GenerateNoise(cfg NoiseConfig, start, goal Position) (*World, error) {
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Int63()
	}
	noise := opensimplex.NewNormalized(seed)

	var obstacles []Position
	for r := 0; r < cfg.Rows; r++ {
		for c := 0; c < cfg.Cols; c++ {
			p := Position{Row: r, Col: c}
			if carved(p, start, goal) {
				continue
			}
			v := octaveNoise(noise, float64(c), float64(r), cfg.Octaves, cfg.Frequency, cfg.Persistence)
			if v > cfg.Threshold {
				obstacles = append(obstacles, p)
			}
		}
	}

	return New(cfg.Rows, cfg.Cols, obstacles)
}

// carved reports whether p is within one orthogonal step of start or goal.
func carved(p, start, goal Position) bool {
	return Manhattan(p, start) <= 1 || Manhattan(p, goal) <= 1
}

// octaveNoise generates fractal noise by layering multiple frequencies.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}

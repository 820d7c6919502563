package render

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/wayfinder/internal/grid"
)

func TestWriteReport(t *testing.T) {
	v := sampleView()
	v.Outcome = "goal reached in 2 steps"
	v.Entropy = []float64{1.386, 0.0}
	v.GoalMass = []float64{0.25, 1.0}
	v.Path = []grid.Position{{Row: 0, Col: 0}, {Row: 0, Col: 1}, {Row: 1, Col: 1}}

	path := filepath.Join(t.TempDir(), "run.html")
	require.NoError(t, WriteReport(path, v))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	html := string(raw)

	assert.Contains(t, html, "echarts")
	assert.Contains(t, html, "final belief")
	assert.Contains(t, html, "belief entropy per step")
	assert.Contains(t, html, "goal-cell mass per step")
	assert.Contains(t, html, "goal reached in 2 steps")
}

func TestWriteReportCreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deeper", "run.html")
	require.NoError(t, WriteReport(path, sampleView()))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestWriteReportEmptyRun(t *testing.T) {
	// A zero-step run still renders: the heatmap holds the initial
	// belief and the step lines are empty.
	v := sampleView()
	path := filepath.Join(t.TempDir(), "empty.html")
	assert.NoError(t, WriteReport(path, v))
}

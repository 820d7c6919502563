package render

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// WriteReport renders the run as a standalone HTML page: the final
// belief heatmap with the path and goal overlaid, plus belief entropy
// and goal-cell mass traces over the episode.
func WriteReport(path string, v RunView) error {
	page := components.NewPage()
	page.PageTitle = "wayfinder run"
	page.AddCharts(
		beliefHeatmap(v),
		stepLine("belief entropy per step", "entropy", v.Entropy),
		stepLine("goal-cell mass per step", "goal mass", v.GoalMass),
	)

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("report dir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	defer f.Close()

	if err := page.Render(f); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}

// beliefHeatmap draws the final belief over category axes, with the
// traveled path and the goal overlaid as scatter marks. Rows are listed
// top-down so the chart matches the terminal frames.
func beliefHeatmap(v RunView) *charts.HeatMap {
	hm := charts.NewHeatMap()

	cols := make([]string, v.Cols)
	for c := 0; c < v.Cols; c++ {
		cols[c] = fmt.Sprintf("%d", c)
	}
	rows := make([]string, v.Rows)
	maxMass := 0.0
	for r := 0; r < v.Rows; r++ {
		rows[r] = fmt.Sprintf("%d", v.Rows-1-r)
	}
	for _, m := range v.Belief {
		if m > maxMass {
			maxMass = m
		}
	}
	if maxMass == 0 {
		maxMass = 1
	}

	hm.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "final belief",
			Subtitle: v.Outcome,
		}),
		charts.WithXAxisOpts(opts.XAxis{
			Type:      "category",
			SplitArea: &opts.SplitArea{Show: opts.Bool(true)},
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Type:      "category",
			Data:      rows,
			SplitArea: &opts.SplitArea{Show: opts.Bool(true)},
		}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(maxMass),
		}),
	)

	data := make([]opts.HeatMapData, 0, v.Rows*v.Cols)
	for r := 0; r < v.Rows; r++ {
		for c := 0; c < v.Cols; c++ {
			mass := 0.0
			if idx := r*v.Cols + c; idx < len(v.Belief) {
				mass = v.Belief[idx]
			}
			data = append(data, opts.HeatMapData{
				Value: [3]interface{}{c, v.Rows - 1 - r, mass},
			})
		}
	}
	hm.SetXAxis(cols).AddSeries("belief", data)

	marks := charts.NewScatter()
	pathData := make([]opts.ScatterData, 0, len(v.Path))
	for _, p := range v.Path {
		pathData = append(pathData, opts.ScatterData{
			Value:      []interface{}{p.Col, v.Rows - 1 - p.Row},
			Symbol:     "circle",
			SymbolSize: 10,
		})
	}
	marks.AddSeries("path", pathData)
	marks.AddSeries("goal", []opts.ScatterData{{
		Value:      []interface{}{v.Goal.Col, v.Rows - 1 - v.Goal.Row},
		Symbol:     "diamond",
		SymbolSize: 16,
	}})
	hm.Overlap(marks)

	return hm
}

// stepLine draws one per-step series against step numbers.
func stepLine(title, name string, values []float64) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: title}),
	)

	steps := make([]string, len(values))
	items := make([]opts.LineData, len(values))
	for i, val := range values {
		steps[i] = fmt.Sprintf("%d", i+1)
		items[i] = opts.LineData{Value: val}
	}

	line.SetXAxis(steps).AddSeries(name, items)
	return line
}

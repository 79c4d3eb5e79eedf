package report

import (
	"fmt"
	"path/filepath"

	"signal-engine/internal/model"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

const (
	RuntimePlotFile = "runtime_plot.png"
	MemoryPlotFile  = "memory_plot.png"
)

// WritePlots renders execution time and peak memory against N, one line per
// strategy, into dir.
func WritePlots(r *model.ProfileReport, dir string) error {
	runtime := lineChart{
		title:  "Execution Time vs Input Size",
		yLabel: "Time (seconds)",
		value:  func(res model.ProfileResult) float64 { return res.MeanElapsed.Seconds() },
	}
	if err := runtime.save(r, filepath.Join(dir, RuntimePlotFile)); err != nil {
		return fmt.Errorf("runtime plot: %w", err)
	}

	memory := lineChart{
		title:  "Peak Memory Usage vs Input Size",
		yLabel: "Memory (MB)",
		value:  func(res model.ProfileResult) float64 { return bytesToMB(res.PeakHeapBytes) },
	}
	if err := memory.save(r, filepath.Join(dir, MemoryPlotFile)); err != nil {
		return fmt.Errorf("memory plot: %w", err)
	}
	return nil
}

type lineChart struct {
	title  string
	yLabel string
	value  func(model.ProfileResult) float64
}

func (c lineChart) save(r *model.ProfileReport, path string) error {
	p := plot.New()
	p.Title.Text = c.title
	p.X.Label.Text = "Number of Ticks (N)"
	p.Y.Label.Text = c.yLabel
	p.Add(plotter.NewGrid())
	p.Legend.Top = true
	p.Legend.Left = true

	var lines []interface{}
	for _, name := range r.Strategies {
		series := r.Series(name)
		pts := make(plotter.XYs, len(series))
		for i, res := range series {
			pts[i].X = float64(res.TickCount)
			pts[i].Y = c.value(res)
		}
		lines = append(lines, seriesLabel(name), pts)
	}
	if err := plotutil.AddLinePoints(p, lines...); err != nil {
		return err
	}
	return p.Save(10*vg.Inch, 6*vg.Inch, path)
}

func seriesLabel(strategy string) string {
	switch strategy {
	case "naive":
		return "Naive (Full History)"
	case "windowed":
		return "Windowed (Ring Buffer)"
	default:
		return strategy
	}
}

func bytesToMB(b uint64) float64 {
	return float64(b) / (1 << 20)
}

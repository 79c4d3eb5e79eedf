// Package report renders profiling results as plots and a markdown summary.
package report

import (
	"fmt"
	"io"
	"os"
	"text/template"

	"signal-engine/internal/model"
)

const MarkdownFile = "complexity_report.md"

var markdownTmpl = template.Must(template.New("report").Funcs(template.FuncMap{
	"label":   seriesLabel,
	"seconds": func(r model.ProfileResult) string { return fmt.Sprintf("%.4f", r.MeanElapsed.Seconds()) },
	"mb":      func(b uint64) string { return fmt.Sprintf("%.2f", bytesToMB(b)) },
	"kb":      func(b uint64) string { return fmt.Sprintf("%.1f", float64(b)/1024) },
	"pertick": func(r model.ProfileResult) string { return r.PerTick().String() },
}).Parse(`# Complexity Analysis Report

Window size: {{.Report.WindowSize}}. Generated {{.Report.GeneratedAt.Format "2006-01-02 15:04:05 MST"}}.

## 1. Performance Metrics

| Input Size (N) | Strategy | Time (s) | Per Tick | Peak Memory (MB) | Retained (KB) |
|---|---|---|---|---|---|
{{range .Rows}}| {{.TickCount}} | {{label .Strategy}} | {{seconds .}} | {{pertick .}} | {{mb .PeakHeapBytes}} | {{kb .RetainedBytes}} |
{{end}}
## 2. Theoretical Complexity

### Naive
- **Time:** O(k) per tick to re-sum the last k prices, O(N·k) over N ticks.
- **Space:** O(N). Every price is kept in the history, so memory grows linearly with input size.

### Windowed
- **Time:** O(1) amortized per tick. The running sum is updated by one subtraction and one addition.
- **Space:** O(k). Only the last k prices live in a fixed ring buffer, so memory stays flat once N > k.

## 3. Observations
{{range .Observations}}- {{.}}
{{end}}`))

type markdownData struct {
	Report       *model.ProfileReport
	Rows         []model.ProfileResult
	Observations []string
}

// WriteMarkdown writes the report table, the complexity summary and
// observations derived from the measurements.
func WriteMarkdown(w io.Writer, r *model.ProfileReport) error {
	data := markdownData{Report: r, Observations: Observations(r)}
	for _, n := range r.TickCounts {
		for _, name := range r.Strategies {
			if res, ok := r.Lookup(name, n); ok {
				data.Rows = append(data.Rows, res)
			}
		}
	}
	return markdownTmpl.Execute(w, data)
}

func WriteMarkdownFile(path string, r *model.ProfileReport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	if err := WriteMarkdown(f, r); err != nil {
		f.Close()
		return fmt.Errorf("render report: %w", err)
	}
	return f.Close()
}

// Observations compares the smallest and largest N of every strategy.
func Observations(r *model.ProfileReport) []string {
	var out []string
	for _, name := range r.Strategies {
		series := r.Series(name)
		if len(series) < 2 {
			continue
		}
		first, last := series[0], series[len(series)-1]
		out = append(out, fmt.Sprintf(
			"**%s**: N grew %.0fx (%d to %d); total time grew %s, retained memory went from %.1f KB to %.1f KB.",
			seriesLabel(name),
			float64(last.TickCount)/float64(first.TickCount), first.TickCount, last.TickCount,
			growth(first.MeanElapsed.Seconds(), last.MeanElapsed.Seconds()),
			float64(first.RetainedBytes)/1024, float64(last.RetainedBytes)/1024,
		))
	}

	naive, okN := r.Lookup("naive", lastCount(r))
	windowed, okW := r.Lookup("windowed", lastCount(r))
	if okN && okW {
		out = append(out, fmt.Sprintf(
			"At N=%d the windowed strategy retains %.1f KB against %.1f KB for the naive one, and runs %s of the naive time.",
			naive.TickCount,
			float64(windowed.RetainedBytes)/1024, float64(naive.RetainedBytes)/1024,
			ratio(windowed.MeanElapsed.Seconds(), naive.MeanElapsed.Seconds()),
		))
	}
	if len(out) == 0 {
		out = append(out, "Not enough data points to compare growth.")
	}
	return out
}

func lastCount(r *model.ProfileReport) int {
	if len(r.TickCounts) == 0 {
		return 0
	}
	return r.TickCounts[len(r.TickCounts)-1]
}

func growth(from, to float64) string {
	if from <= 0 {
		return "from ~0"
	}
	return fmt.Sprintf("%.1fx", to/from)
}

func ratio(part, whole float64) string {
	if whole <= 0 {
		return "n/a"
	}
	return fmt.Sprintf("%.0f%%", 100*part/whole)
}

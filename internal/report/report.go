// Package report renders run summaries as standalone HTML charts.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/splatforge/splatforge/internal/runlog"
)

// WriteStageChart renders a bar chart of per-stage durations for one run as
// a self-contained HTML document.
func WriteStageChart(w io.Writer, run *runlog.Run, stages []runlog.StageRecord) error {
	if len(stages) == 0 {
		return fmt.Errorf("run %s has no recorded stages", run.ID)
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title: fmt.Sprintf("splatforge run %s", shortID(run.ID)),
			Subtitle: fmt.Sprintf("%s %s → %s (%s, %s total)",
				run.Mode, run.Input, run.OutputName, run.Status,
				run.FinishedAt.Sub(run.StartedAt).Round(time.Second)),
		}),
		charts.WithYAxisOpts(opts.YAxis{Name: "seconds"}),
	)

	var names []string
	var data []opts.BarData
	for _, s := range stages {
		label := s.Stage
		if s.Status != "ok" {
			label += " (failed)"
		}
		names = append(names, label)
		data = append(data, opts.BarData{Value: float64(s.DurationMS) / 1000.0})
	}
	bar.SetXAxis(names).AddSeries("stage duration", data)

	return bar.Render(w)
}

// shortID abbreviates a UUID for display, matching the history listing.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

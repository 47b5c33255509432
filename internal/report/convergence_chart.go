package report

import (
	"fmt"
	"io"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/velocity.ptv/internal/ptv/debug"
)

// WriteConvergenceChart renders trace as an HTML page: the mean winning
// probability and mean null mass per iteration, and the number of rows
// already above the match threshold.
func WriteConvergenceChart(w io.Writer, trace *debug.RunTrace) error {
	if trace == nil {
		return fmt.Errorf("no convergence trace recorded")
	}

	x := make([]int, len(trace.Iterations))
	rowMax := make([]opts.LineData, len(trace.Iterations))
	null := make([]opts.LineData, len(trace.Iterations))
	decided := make([]opts.BarData, len(trace.Iterations))
	for i, rec := range trace.Iterations {
		x[i] = rec.Iteration
		rowMax[i] = opts.LineData{Value: rec.MeanRowMax}
		null[i] = opts.LineData{Value: rec.MeanNull}
		decided[i] = opts.BarData{Value: rec.Decided}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "PTV Convergence", Width: "900px", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{Title: "Relaxation convergence", Subtitle: fmt.Sprintf("run=%s", trace.RunID)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "iteration", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "probability", Min: 0, Max: 1}),
	)
	line.SetXAxis(x).
		AddSeries("mean max Pij", rowMax).
		AddSeries("mean null", null)

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "320px"}),
		charts.WithTitleOpts(opts.Title{Title: "Decided rows"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "iteration", NameLocation: "middle", NameGap: 25}),
	)
	bar.SetXAxis(x).AddSeries("rows above threshold", decided)

	page := components.NewPage()
	page.AddCharts(line, bar)
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render convergence chart: %w", err)
	}
	return nil
}

// WriteConvergenceChartFile writes the chart to path.
func WriteConvergenceChartFile(path string, trace *debug.RunTrace) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return WriteConvergenceChart(f, trace)
}

package render

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/kittiscan/internal/kitti/summary"
)

// LabelHistogram writes an HTML page with one stacked bar per frame showing
// its point count per label. names maps label codes to series names; codes
// without a name are shown numerically.
func LabelHistogram(summaries []summary.FrameSummary, names map[int]string, w io.Writer) error {
	x := make([]string, len(summaries))
	for i, s := range summaries {
		x[i] = s.Name
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Label Histogram", Width: "100%", Height: "720px"}),
		charts.WithTitleOpts(opts.Title{Title: "Points per label", Subtitle: fmt.Sprintf("frames=%d", len(summaries))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Type: "scroll"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Frame"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Points"}),
	)
	bar.SetXAxis(x)

	for _, code := range summary.LabelCodes(summaries) {
		data := make([]opts.BarData, len(summaries))
		for i, s := range summaries {
			data[i] = opts.BarData{Value: s.Labels[code]}
		}
		name, ok := names[int(code)]
		if !ok {
			name = fmt.Sprintf("label %d", code)
		}
		bar.AddSeries(name, data, charts.WithBarChartOpts(opts.BarChart{Stack: "labels"}))
	}

	if err := bar.Render(w); err != nil {
		return fmt.Errorf("render label histogram: %w", err)
	}
	return nil
}

package chart

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/djangbahevans/RainflowCycleCounting/internal/rainflow"
	"github.com/djangbahevans/RainflowCycleCounting/internal/report"
)

// MaxLoopSeries caps the rain paths drawn on the signal chart. The
// largest ranges are kept.
const MaxLoopSeries = 200

// Options tunes Render.
type Options struct {
	Title      string
	MaxPaths   int    // 0 means MaxLoopSeries
	AssetsHost string // empty keeps the go-echarts CDN
}

// Point is a vertex of a rain path in extrema index space.
type Point struct {
	X, Y float64
}

// Render writes the HTML page for res. bins may be nil, in which case
// the histogram is omitted.
func Render(w io.Writer, res *rainflow.Result, bins []report.SpectrumBin, o Options) error {
	if o.Title == "" {
		o.Title = "Rainflow cycle counting"
	}

	page := components.NewPage()
	page.SetPageTitle(o.Title)
	if o.AssetsHost != "" {
		page.SetAssetsHost(o.AssetsHost)
	}
	page.AddCharts(SignalChart(res, o.MaxPaths), SpectrumChart(res))
	if len(bins) > 0 {
		page.AddCharts(HistogramChart(bins))
	}

	if err := page.Render(w); err != nil {
		return fmt.Errorf("render chart page: %w", err)
	}
	return nil
}

// SignalChart plots the extrema sequence and the rain path of up to
// maxPaths records.
func SignalChart(res *rainflow.Result, maxPaths int) *charts.Line {
	if maxPaths <= 0 {
		maxPaths = MaxLoopSeries
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Extrema and rain paths"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "item"}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: "extremum"}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: "load"}),
	)

	values := res.Extrema.Values
	signal := make([]opts.LineData, len(values))
	for i, v := range values {
		signal[i] = opts.LineData{Value: []float64{float64(i), v}}
	}
	line.AddSeries("extrema", signal,
		charts.WithLineStyleOpts(opts.LineStyle{Width: 3, Color: "black"}),
	)

	for _, rec := range largest(res.Records(), maxPaths) {
		path := FlowPath(values, rec)
		data := make([]opts.LineData, len(path))
		for i, p := range path {
			data[i] = opts.LineData{Value: []float64{p.X, p.Y}}
		}
		name := fmt.Sprintf("%s %d (%s)", rec.Kind(), rec.OriginIndex(), strconv.FormatFloat(rec.Range(), 'f', -1, 64))
		line.AddSeries(name, data,
			charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
		)
	}
	return line
}

// SpectrumChart plots half cycles against exact range on a log axis.
func SpectrumChart(res *rainflow.Result) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Range spectrum"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: "range"}),
		charts.WithYAxisOpts(opts.YAxis{Type: "log", Name: "half cycles"}),
	)

	spectrum := report.Spectrum(res)
	data := make([]opts.LineData, len(spectrum))
	for i, b := range spectrum {
		data[i] = opts.LineData{Value: []float64{b.Low, float64(b.HalfCycles)}}
	}
	line.AddSeries("half cycles", data)
	return line
}

// HistogramChart plots full cycles per range bin.
func HistogramChart(bins []report.SpectrumBin) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Cycles per range bin"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "range"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "cycles"}),
	)

	labels := make([]string, len(bins))
	data := make([]opts.BarData, len(bins))
	for i, b := range bins {
		labels[i] = BinLabel(b)
		data[i] = opts.BarData{Value: b.Cycles()}
	}
	bar.SetXAxis(labels).AddSeries("cycles", data)
	return bar
}

// BinLabel formats a bin as "low-high".
func BinLabel(b report.SpectrumBin) string {
	return strconv.FormatFloat(b.Low, 'f', -1, 64) + "-" + strconv.FormatFloat(b.High, 'f', -1, 64)
}

// FlowPath traces the rain path of rec over the extrema values. Where the
// level moves between two extrema the path follows the connecting slope,
// so each change contributes the two points where that slope crosses the
// old and the new level.
func FlowPath(values []float64, rec *rainflow.Record) []Point {
	hist := rec.History()
	path := make([]Point, 0, len(hist)+4)
	add := func(p Point) {
		if n := len(path); n > 0 && path[n-1] == p {
			return
		}
		path = append(path, p)
	}

	for i, p := range hist {
		if i == 0 || p.Level == hist[i-1].Level {
			add(Point{X: float64(p.Index), Y: p.Level})
			continue
		}
		prev := hist[i-1].Level
		add(Point{X: crossing(values, p.Index, prev), Y: prev})
		add(Point{X: crossing(values, p.Index, p.Level), Y: p.Level})
	}
	return path
}

// crossing returns the x in [i-1, i] where the segment from extremum i-1
// to extremum i reaches level.
func crossing(values []float64, i int, level float64) float64 {
	if i <= 0 || i >= len(values) {
		return float64(i)
	}
	a, b := values[i-1], values[i]
	if a == b {
		return float64(i)
	}
	t := (level - a) / (b - a)
	switch {
	case t < 0:
		t = 0
	case t > 1:
		t = 1
	}
	return float64(i-1) + t
}

func largest(records []*rainflow.Record, n int) []*rainflow.Record {
	if len(records) <= n {
		return records
	}
	sorted := make([]*rainflow.Record, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Range() > sorted[j].Range()
	})
	return sorted[:n]
}

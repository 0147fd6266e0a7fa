package chart

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/djangbahevans/RainflowCycleCounting/internal/rainflow"
	"github.com/djangbahevans/RainflowCycleCounting/internal/report"
	"github.com/djangbahevans/RainflowCycleCounting/internal/shared/testutil"
)

func TestFlowPath_ASTM(t *testing.T) {
	res := rainflow.CountFloats(testutil.ASTMSignal)
	values := res.Extrema.Values

	assert.Equal(t, []Point{{0, -2}, {1, 1}, {2, 1}}, FlowPath(values, &res.Valleys[0]))
	assert.Equal(t, []Point{{1, 1}, {2, -3}, {3, -3}}, FlowPath(values, &res.Peaks[0]))
}

func TestFlowPath_PartialSlope(t *testing.T) {
	res := rainflow.CountFloats([]float64{0, 2, 1, 4, -1})
	require.NotEmpty(t, res.Valleys)

	path := FlowPath(res.Extrema.Values, &res.Valleys[0])
	require.Len(t, path, 6)
	assert.Equal(t, Point{0, 0}, path[0])
	assert.Equal(t, Point{1, 2}, path[1])
	assert.Equal(t, Point{2, 2}, path[2])
	assert.InDelta(t, 2+1.0/3, path[3].X, 1e-12)
	assert.Equal(t, 2.0, path[3].Y)
	assert.Equal(t, Point{3, 4}, path[4])
	assert.Equal(t, Point{4, 4}, path[5])
}

func TestCrossing(t *testing.T) {
	values := []float64{-3, 5, 5}
	assert.Equal(t, 0.5, crossing(values, 1, 1))
	assert.Equal(t, 0.0, crossing(values, 1, -10), "clamped below")
	assert.Equal(t, 1.0, crossing(values, 1, 10), "clamped above")
	assert.Equal(t, 2.0, crossing(values, 2, 5), "flat segment")
	assert.Equal(t, 0.0, crossing(values, 0, 1), "no predecessor")
}

func TestLargest(t *testing.T) {
	res := rainflow.CountFloats(testutil.ASTMSignal)
	all := res.Records()

	assert.Len(t, largest(all, len(all)+1), len(all))

	top := largest(all, 2)
	require.Len(t, top, 2)
	assert.Equal(t, 9.0, top[0].Range())
	assert.Equal(t, 8.0, top[1].Range())
}

func TestBinLabel(t *testing.T) {
	assert.Equal(t, "0-2.5", BinLabel(report.SpectrumBin{Low: 0, High: 2.5}))
	assert.Equal(t, "7.5-10", BinLabel(report.SpectrumBin{Low: 7.5, High: 10, HalfCycles: 3}))
}

func TestRender(t *testing.T) {
	res := rainflow.CountFloats(testutil.ASTMSignal)
	bins, err := report.Bin(res, 2)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, res, bins, Options{Title: "ASTM example"}))

	html := buf.String()
	assert.True(t, strings.HasPrefix(strings.TrimSpace(html), "<!DOCTYPE html>") || strings.Contains(html, "<html"))
	assert.Contains(t, html, "ASTM example")
	assert.Contains(t, html, "Extrema and rain paths")
	assert.Contains(t, html, "Range spectrum")
	assert.Contains(t, html, "Cycles per range bin")
	assert.Contains(t, html, "echarts")
}

func TestRender_NoBinsAndEmptyResult(t *testing.T) {
	res := rainflow.CountFloats(nil)

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, res, nil, Options{AssetsHost: "http://localhost/assets/"}))

	html := buf.String()
	assert.Contains(t, html, "Rainflow cycle counting")
	assert.NotContains(t, html, "Cycles per range bin")
	assert.Contains(t, html, "http://localhost/assets/")
}

func TestSignalChart_CapsSeries(t *testing.T) {
	res := rainflow.CountFloats(testutil.ASTMSignal)

	line := SignalChart(res, 3)
	// extrema series plus three paths
	assert.Len(t, line.MultiSeries, 4)

	line = SignalChart(res, 0)
	assert.Len(t, line.MultiSeries, 1+len(res.Records()))
}

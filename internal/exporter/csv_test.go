package exporter

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/djangbahevans/RainflowCycleCounting/internal/config"
	"github.com/djangbahevans/RainflowCycleCounting/internal/rainflow"
	"github.com/djangbahevans/RainflowCycleCounting/internal/report"
	"github.com/djangbahevans/RainflowCycleCounting/internal/shared/testutil"
)

func setupWriter(t *testing.T) (*CSVWriter, *config.Paths) {
	t.Helper()
	paths := config.ResolvePaths(config.PathsConfig{}, t.TempDir())
	logger, _ := testutil.NewTestLogger(t)
	return NewCSVWriter(paths, logger), paths
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(data, utf8BOM), "file starts with a BOM")

	records, err := csv.NewReader(bytes.NewReader(data[len(utf8BOM):])).ReadAll()
	require.NoError(t, err)
	return records
}

func TestCSVWriter_WriteCycles(t *testing.T) {
	w, paths := setupWriter(t)
	res := rainflow.CountFloats(testutil.ASTMSignal)

	path, err := w.WriteCycles("astm_cycles.csv", report.Table(res))
	require.NoError(t, err)
	assert.Equal(t, paths.GetReportPath("astm_cycles.csv"), path)

	records := readCSV(t, path)
	require.Len(t, records, 9)
	assert.Equal(t, CyclesHeaders, records[0])
	assert.Equal(t, []string{"1", "-3", "4", "0.5", "peak", "1", "true"}, records[1])
	assert.Equal(t, []string{"-4", "4", "8", "0.5", "valley", "6", "false"}, records[8])
}

func TestCSVWriter_WriteSpectrum(t *testing.T) {
	w, _ := setupWriter(t)
	bins, err := report.Bin(rainflow.CountFloats(testutil.ASTMSignal), 2.5)
	require.NoError(t, err)

	path, err := w.WriteSpectrum("spectrum.csv", bins)
	require.NoError(t, err)

	records := readCSV(t, path)
	assert.Equal(t, [][]string{
		SpectrumHeaders,
		{"0", "2.5", "0", "0"},
		{"2.5", "5", "4", "2"},
		{"5", "7.5", "1", "0.5"},
		{"7.5", "10", "3", "1.5"},
	}, records)
}

func TestCSVWriter_WriteCSV(t *testing.T) {
	w, _ := setupWriter(t)
	path := filepath.Join(t.TempDir(), "nested", "custom.csv")

	got, err := w.WriteCSV(path, WriteOptions{
		Headers:   []string{"A"},
		Records:   [][]string{{"1"}},
		BOMPrefix: true,
	})
	require.NoError(t, err)
	assert.Equal(t, path, got, "absolute paths are kept")

	_, err = w.WriteCSV(path, WriteOptions{Records: [][]string{{"2"}}, Append: true, BOMPrefix: true})
	require.NoError(t, err)

	assert.Equal(t, [][]string{{"A"}, {"1"}, {"2"}}, readCSV(t, path))
}

func TestCSVWriter_EmptyTable(t *testing.T) {
	w, _ := setupWriter(t)

	path, err := w.WriteCycles("empty.csv", nil)
	require.NoError(t, err)
	assert.Equal(t, [][]string{CyclesHeaders}, readCSV(t, path))
}

func TestCSVWriter_Unwritable(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	w := NewCSVWriter(&config.Paths{ReportsDir: filepath.Join(blocker, "reports")}, nil)
	_, err := w.WriteCycles("x.csv", nil)
	assert.Error(t, err)
}

func TestFormatFloat(t *testing.T) {
	assert.Equal(t, "0.3", formatFloat(0.3))
	assert.Equal(t, "-1.5", formatFloat(-1.5))
	assert.Equal(t, "12", formatFloat(12))
}

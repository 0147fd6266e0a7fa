package loader

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	apperrors "github.com/djangbahevans/RainflowCycleCounting/internal/errors"
	"github.com/djangbahevans/RainflowCycleCounting/internal/rainflow"
	"github.com/djangbahevans/RainflowCycleCounting/internal/shared/testutil"
)

func TestLoadWorkbook_ColumnMajor(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteWorkbook(t, dir, "loads.xlsx", "Loads",
		[]any{-2, 1, -3, nil, 5},
		[]any{-1, 3, "", -4},
		[]any{4, -2},
	)

	values, err := LoadWorkbook(path, Options{})
	require.NoError(t, err)
	assert.Equal(t, []any{"-2", "1", "-3", "5", "-1", "3", "-4", "4", "-2"}, values)

	res := rainflow.Count(values)
	assert.Equal(t, testutil.ASTMSignal, []float64(res.Signal))
}

func TestLoadWorkbook_Options(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteWorkbook(t, dir, "loads.xlsx", "Loads",
		[]any{"time", 0, 1, 2},
		[]any{"load", 10.5, -3.25, 7},
	)

	tests := []struct {
		name string
		opts Options
		want []any
	}{
		{"all columns", Options{}, []any{"time", "0", "1", "2", "load", "10.5", "-3.25", "7"}},
		{"second column", Options{Column: 2}, []any{"load", "10.5", "-3.25", "7"}},
		{"skip header", Options{Column: 2, SkipRows: 1}, []any{"10.5", "-3.25", "7"}},
		{"named sheet", Options{Sheet: "Loads", Column: 1, SkipRows: 3}, []any{"2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, err := LoadWorkbook(path, tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, values)
		})
	}
}

func TestLoadWorkbook_FormattedNumbers(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	for i, v := range []float64{1234.5, 2500.25, 1000, 3999.9} {
		require.NoError(t, f.SetCellValue(sheet, fmt.Sprintf("A%d", i+1), v))
	}
	// #,##0.00
	style, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	require.NoError(t, err)
	require.NoError(t, f.SetCellStyle(sheet, "A1", "A4", style))

	path := filepath.Join(t.TempDir(), "styled.xlsx")
	require.NoError(t, f.SaveAs(path))

	values, err := LoadWorkbook(path, Options{})
	require.NoError(t, err)
	assert.Equal(t, []any{"1234.5", "2500.25", "1000", "3999.9"}, values)
	assert.Equal(t, rainflow.Signal{1234.5, 2500.2, 1000, 3999.9}, rainflow.Clean(values))
}

func TestLoadWorkbook_Errors(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteWorkbook(t, dir, "loads.xlsx", "", []any{1, 2, 3})

	_, err := LoadWorkbook(path, Options{Sheet: "Missing"})
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeNotFound), "got %v", err)

	_, err = LoadWorkbook(path, Options{Column: 4})
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation), "got %v", err)

	_, err = LoadWorkbook(path, Options{SkipRows: -1})
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation), "got %v", err)

	_, err = LoadWorkbook(filepath.Join(dir, "absent.xlsx"), Options{})
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeNotFound), "got %v", err)

	notWorkbook := testutil.WriteCSV(t, dir, "fake.xlsx", [][]string{{"1"}})
	_, err = LoadWorkbook(notWorkbook, Options{})
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeParsing), "got %v", err)
}

func TestLoadCSV(t *testing.T) {
	input := strings.Join([]string{
		"# exported load history",
		"a,b",
		"1,4",
		"2,",
		"3,6,9",
	}, "\n")

	values, err := LoadCSV(strings.NewReader(input), Options{SkipRows: 1})
	require.NoError(t, err)
	assert.Equal(t, []any{"1", "2", "3", "4", "6", "9"}, values)

	values, err = LoadCSV(strings.NewReader(input), Options{Column: 1})
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "1", "2", "3"}, values)
}

func TestLoadCSV_Malformed(t *testing.T) {
	_, err := LoadCSV(strings.NewReader("1,\"2\n3"), Options{})
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeParsing), "got %v", err)
}

func TestLoadCSV_Empty(t *testing.T) {
	values, err := LoadCSV(strings.NewReader(""), Options{})
	require.NoError(t, err)
	assert.Empty(t, values)
	assert.NotNil(t, values)
}

func TestLoad_Dispatch(t *testing.T) {
	dir := t.TempDir()
	csvPath := testutil.WriteCSV(t, dir, "loads.csv", [][]string{{"1", "3"}, {"2", "4"}})
	xlsxPath := testutil.WriteWorkbook(t, dir, "loads.xlsm", "", []any{1, 2}, []any{3, 4})

	fromCSV, err := Load(csvPath, Options{})
	require.NoError(t, err)
	fromXLSX, err := Load(xlsxPath, Options{})
	require.NoError(t, err)
	assert.Equal(t, fromCSV, fromXLSX)

	_, err = Load(filepath.Join(dir, "loads.json"), Options{})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = Load(filepath.Join(dir, "missing.csv"), Options{})
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeNotFound))
}

func TestLoadReader(t *testing.T) {
	values, err := LoadReader("upload.txt", strings.NewReader("5\n1\n6"), Options{})
	require.NoError(t, err)
	assert.Equal(t, []any{"5", "1", "6"}, values)

	_, err = LoadReader("upload.ods", strings.NewReader(""), Options{})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestDetectFormat(t *testing.T) {
	assert.Equal(t, FormatWorkbook, DetectFormat("a.xlsm"))
	assert.Equal(t, FormatWorkbook, DetectFormat("dir/A.XLTX"))
	assert.Equal(t, FormatCSV, DetectFormat("a.csv"))
	assert.Equal(t, FormatUnknown, DetectFormat("a.xls"))
	assert.Equal(t, FormatUnknown, DetectFormat("noext"))
}

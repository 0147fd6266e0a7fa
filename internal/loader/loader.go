package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	apperrors "github.com/djangbahevans/RainflowCycleCounting/internal/errors"
)

// ErrUnsupportedFormat is wrapped by Load when the file extension is
// neither a workbook nor a CSV extension.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// Format is an input file family.
type Format int

const (
	FormatUnknown Format = iota
	FormatWorkbook
	FormatCSV
)

// Options selects what part of a file is read.
type Options struct {
	// Sheet names the worksheet to read. Empty selects the first sheet.
	Sheet string
	// Column is the 1-based column to read. Zero reads every column.
	Column int
	// SkipRows drops this many leading cells from each column, for
	// header rows.
	SkipRows int
}

func (o Options) validate() error {
	if o.Column < 0 {
		return apperrors.NewAppValidationError(fmt.Sprintf("column must be >= 0, got %d", o.Column))
	}
	if o.SkipRows < 0 {
		return apperrors.NewAppValidationError(fmt.Sprintf("skip rows must be >= 0, got %d", o.SkipRows))
	}
	return nil
}

// DetectFormat maps a file name to its format by extension.
func DetectFormat(name string) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm", ".xltx", ".xltm":
		return FormatWorkbook
	case ".csv", ".txt":
		return FormatCSV
	default:
		return FormatUnknown
	}
}

// Load reads path with the reader matching its extension.
func Load(path string, opts Options) ([]any, error) {
	switch DetectFormat(path) {
	case FormatWorkbook:
		return LoadWorkbook(path, opts)
	case FormatCSV:
		file, err := os.Open(path)
		if err != nil {
			return nil, openError(path, err)
		}
		defer file.Close()
		return LoadCSV(file, opts)
	default:
		return nil, unsupported(path)
	}
}

// LoadReader reads r, using name only to pick the format. It serves
// uploads, which have a file name but no path.
func LoadReader(name string, r io.Reader, opts Options) ([]any, error) {
	switch DetectFormat(name) {
	case FormatWorkbook:
		return ReadWorkbook(r, opts)
	case FormatCSV:
		return LoadCSV(r, opts)
	default:
		return nil, unsupported(name)
	}
}

// LoadWorkbook reads one sheet of the workbook at path.
func LoadWorkbook(path string, opts Options) ([]any, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, openError(path, err)
	}
	defer f.Close()
	return readSheet(f, opts)
}

// ReadWorkbook reads one sheet of a workbook streamed from r.
func ReadWorkbook(r io.Reader, opts Options) ([]any, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, apperrors.NewParsingError("failed to open workbook", err)
	}
	defer f.Close()
	return readSheet(f, opts)
}

func readSheet(f *excelize.File, opts Options) ([]any, error) {
	sheet := opts.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, apperrors.NewNotFoundError("worksheet", nil)
		}
		sheet = sheets[0]
	} else if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("sheet %q", sheet), err).
			WithContext("sheets", f.GetSheetList())
	}

	// Raw values: number formats such as #,##0.00 would otherwise turn
	// 1234.5 into "1,234.50", which no longer parses as a number.
	cols, err := f.GetCols(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, apperrors.NewParsingError(fmt.Sprintf("failed to read sheet %q", sheet), err)
	}
	return flatten(cols, opts)
}

// LoadCSV reads comma separated values from r. Rows may be ragged.
func LoadCSV(r io.Reader, opts Options) ([]any, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comment = '#'
	cr.ReuseRecord = false

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, apperrors.NewParsingError("failed to read csv", err)
	}
	return flatten(transpose(rows), opts)
}

// transpose turns rows into columns, padding short rows with blanks.
func transpose(rows [][]string) [][]string {
	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}
	cols := make([][]string, width)
	for c := range cols {
		cols[c] = make([]string, len(rows))
		for r, row := range rows {
			if c < len(row) {
				cols[c][r] = row[c]
			}
		}
	}
	return cols
}

// flatten concatenates the selected columns top to bottom, dropping
// the skipped header cells and blank cells.
func flatten(cols [][]string, opts Options) ([]any, error) {
	if opts.Column > 0 {
		if opts.Column > len(cols) {
			return nil, apperrors.NewAppValidationError(
				fmt.Sprintf("column %d out of range, sheet has %d columns", opts.Column, len(cols)))
		}
		cols = cols[opts.Column-1 : opts.Column]
	}

	var out []any
	for _, col := range cols {
		for i, cell := range col {
			if i < opts.SkipRows {
				continue
			}
			cell = strings.TrimSpace(cell)
			if cell == "" {
				continue
			}
			out = append(out, cell)
		}
	}
	if out == nil {
		out = []any{}
	}
	return out, nil
}

func openError(path string, err error) error {
	if errors.Is(err, os.ErrNotExist) {
		return apperrors.NewNotFoundError(fmt.Sprintf("file %s", filepath.Base(path)), err)
	}
	return apperrors.NewParsingError(fmt.Sprintf("failed to open %s", filepath.Base(path)), err)
}

func unsupported(name string) error {
	ext := filepath.Ext(name)
	return apperrors.NewAppError(apperrors.ErrTypeValidation,
		fmt.Sprintf("extension %q is not a workbook or csv", ext), ErrUnsupportedFormat).
		WithContext("file", filepath.Base(name))
}

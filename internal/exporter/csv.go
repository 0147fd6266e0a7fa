package exporter

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/djangbahevans/RainflowCycleCounting/internal/config"
	"github.com/djangbahevans/RainflowCycleCounting/internal/report"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Report headers
var (
	CyclesHeaders   = []string{"FROM", "TO", "RANGE", "CYCLES", "KIND", "INDEX", "CLOSED"}
	SpectrumHeaders = []string{"RANGE_LOW", "RANGE_HIGH", "HALF_CYCLES", "CYCLES"}
)

// CSVWriter provides CSV export functionality
type CSVWriter struct {
	paths  *config.Paths
	logger *slog.Logger
}

// NewCSVWriter creates a writer rooted at the reports directory.
func NewCSVWriter(paths *config.Paths, logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{
		paths:  paths,
		logger: logger.With(slog.String("component", "csv_writer")),
	}
}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	Headers   []string
	Records   [][]string
	Append    bool
	BOMPrefix bool
}

// WriteCSV writes records to name and returns the resolved path.
func (w *CSVWriter) WriteCSV(name string, options WriteOptions) (string, error) {
	fullPath := w.resolvePath(name)

	w.logger.Debug("writing csv file",
		slog.String("full_path", fullPath),
		slog.Int("record_count", len(options.Records)))

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	flags := os.O_CREATE | os.O_WRONLY
	if options.Append {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}

	file, err := os.OpenFile(fullPath, flags, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	if options.BOMPrefix && !options.Append {
		if _, err := file.Write(utf8BOM); err != nil {
			return "", fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(file)
	if !options.Append && len(options.Headers) > 0 {
		if err := writer.Write(options.Headers); err != nil {
			return "", fmt.Errorf("failed to write headers: %w", err)
		}
	}
	for i, record := range options.Records {
		if err := writer.Write(record); err != nil {
			return "", fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", err
	}
	return fullPath, file.Close()
}

// WriteCycles writes the half-cycle table.
func (w *CSVWriter) WriteCycles(name string, rows []report.Row) (string, error) {
	sw, err := w.CreateStreamWriter(name, CyclesHeaders)
	if err != nil {
		return "", err
	}
	for _, row := range rows {
		if err := sw.WriteRecord(CycleRecord(row)); err != nil {
			sw.Close()
			return "", fmt.Errorf("failed to write cycle row: %w", err)
		}
	}
	return sw.Path(), sw.Close()
}

// WriteSpectrum writes range bins with their half and full cycle counts.
func (w *CSVWriter) WriteSpectrum(name string, bins []report.SpectrumBin) (string, error) {
	records := make([][]string, 0, len(bins))
	for _, b := range bins {
		records = append(records, SpectrumRecord(b))
	}
	return w.WriteCSV(name, WriteOptions{
		Headers:   SpectrumHeaders,
		Records:   records,
		BOMPrefix: true,
	})
}

// CycleRecord renders one table row in CyclesHeaders order.
func CycleRecord(row report.Row) []string {
	return []string{
		formatFloat(row.From),
		formatFloat(row.To),
		formatFloat(row.Range),
		formatFloat(row.Cycles),
		row.Kind.String(),
		formatInt(row.Index),
		formatBool(row.Closed),
	}
}

// SpectrumRecord renders one bin in SpectrumHeaders order.
func SpectrumRecord(b report.SpectrumBin) []string {
	return []string{
		formatFloat(b.Low),
		formatFloat(b.High),
		formatInt(b.HalfCycles),
		formatFloat(b.Cycles()),
	}
}

// StreamWriter writes CSV records one at a time
type StreamWriter struct {
	path   string
	file   *os.File
	writer *csv.Writer
}

// CreateStreamWriter creates name with a BOM and headers.
func (w *CSVWriter) CreateStreamWriter(name string, headers []string) (*StreamWriter, error) {
	fullPath := w.resolvePath(name)

	w.logger.Debug("creating csv stream writer",
		slog.String("full_path", fullPath),
		slog.Int("header_count", len(headers)))

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	if _, err := file.Write(utf8BOM); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to write BOM: %w", err)
	}

	writer := csv.NewWriter(file)
	if len(headers) > 0 {
		if err := writer.Write(headers); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to write headers: %w", err)
		}
	}

	return &StreamWriter{path: fullPath, file: file, writer: writer}, nil
}

// WriteRecord writes a single record to the stream
func (s *StreamWriter) WriteRecord(record []string) error {
	return s.writer.Write(record)
}

// Path returns the file being written
func (s *StreamWriter) Path() string {
	return s.path
}

// Close flushes and closes the stream writer
func (s *StreamWriter) Close() error {
	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		s.file.Close()
		return err
	}
	return s.file.Close()
}

// resolvePath places relative names in the reports directory.
func (w *CSVWriter) resolvePath(name string) string {
	if filepath.IsAbs(name) || w.paths == nil {
		return name
	}
	return w.paths.GetReportPath(name)
}

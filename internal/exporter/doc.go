// Package exporter writes rainflow reports as CSV files.
//
// CSVWriter resolves relative names against the configured reports
// directory and prefixes files with a UTF-8 BOM so spreadsheet
// applications detect the encoding. Two report layouts are provided:
//
//	FROM,TO,RANGE,CYCLES,KIND,INDEX,CLOSED          (WriteCycles)
//	RANGE_LOW,RANGE_HIGH,HALF_CYCLES,CYCLES         (WriteSpectrum)
//
// Example usage:
//
//	w := exporter.NewCSVWriter(paths, logger)
//	path, err := w.WriteCycles("loads_cycles.csv", report.Table(res))
package exporter

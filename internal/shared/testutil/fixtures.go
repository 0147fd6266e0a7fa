package testutil

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

// ASTMSignal is the ASTM E1049 rainflow example history. It yields half
// cycles of range 3, 4 (three), 6, 8 (two) and 9.
var ASTMSignal = []float64{-2, 1, -3, 5, -1, 3, -4, 4, -2}

// WriteWorkbook saves an xlsx file under dir with columns written
// top-down into sheet. Nil cells are left blank.
func WriteWorkbook(t *testing.T, dir, name, sheet string, columns ...[]any) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	if sheet != "" {
		if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
			t.Fatalf("rename sheet: %v", err)
		}
	} else {
		sheet = f.GetSheetName(0)
	}

	for c, col := range columns {
		for r, v := range col {
			if v == nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				t.Fatalf("cell name: %v", err)
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				t.Fatalf("set %s: %v", cell, err)
			}
		}
	}

	path := filepath.Join(dir, name)
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("failed to save workbook: %v", err)
	}
	return path
}

// WriteCSV saves rows as a CSV file under dir.
func WriteCSV(t *testing.T, dir, name string, rows [][]string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	file, err := os.Create(path)
	if err != nil {
		t.Fatalf("create csv: %v", err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.WriteAll(rows); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	return path
}

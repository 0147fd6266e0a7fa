package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Discover lists the workbook and CSV files directly inside dir, sorted
// by name. Subdirectories and other files are skipped.
func Discover(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, openError(dir, fmt.Errorf("failed to read directory: %w", err))
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || DetectFormat(entry.Name()) == FormatUnknown {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

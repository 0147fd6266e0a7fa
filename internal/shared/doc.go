// Package shared holds code used across packages that belongs to no
// single layer.
//
// The testutil subpackage provides the test helpers: a buffered slog
// handler for asserting on log output, the ASTM E1049 example history
// and writers for workbook and CSV fixtures.
//
//	func TestLoad(t *testing.T) {
//		path := testutil.WriteWorkbook(t, t.TempDir(), "loads.xlsx", "", []any{-2, 1, -3})
//		logger, logs := testutil.NewTestLogger(t)
//		...
//	}
package shared

// Package loader reads load histories from spreadsheets and CSV files.
//
// Sheets are flattened column by column, top to bottom, and blank cells
// are dropped, so a history split across several columns reads as one
// sequence. Cell text is returned as-is; numeric coercion is left to
// rainflow.Clean, which silently drops anything that does not parse.
package loader

// Package report turns a rainflow Result into the views a reader of a
// fatigue analysis works with.
//
// # Views
//
//   - Table: one half-cycle row per record, FROM the origin value TO the
//     level that closed the loop, with its range and a cycle weight of 0.5.
//   - Spectrum: the number of half cycles at each exact range, ascending.
//   - Bin: the same counts grouped into fixed-width range bins.
//   - Summarize: record counts, open and closed half cycles and the
//     largest range.
//
// Every function reads the Result only; none of them mutate records.
//
// # Usage
//
//	res := rainflow.CountFloats(samples)
//	for _, row := range report.Table(res) {
//	    fmt.Println(row.From, row.To, row.Range, row.Cycles)
//	}
//	bins, err := report.Bin(res, 0.5)
package report

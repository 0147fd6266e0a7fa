// Package chart renders rainflow results as a standalone HTML page: the
// extrema sequence with the rain path of each half cycle, the exact
// range spectrum on a log scale and the binned histogram.
package chart

package exporter

import (
	"strconv"
)

// formatFloat formats f with the fewest digits that round-trip, so
// one-decimal ranges stay one-decimal.
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatInt(i int) string {
	return strconv.Itoa(i)
}

func formatBool(b bool) string {
	return strconv.FormatBool(b)
}

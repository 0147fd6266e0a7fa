package rainflow

import "fmt"

// KindAt classifies extrema index i: a valley when the next value is
// greater, a peak otherwise. The last index has no successor and is
// judged against its predecessor instead.
//
// KindAt panics when i has neither neighbour. A well-formed extrema
// sequence never reaches that state, so it signals upstream corruption.
func KindAt(values []float64, i int) Kind {
	if i < 0 || i >= len(values) {
		panic(fmt.Sprintf("rainflow: extrema index %d out of range [0,%d)", i, len(values)))
	}
	if i+1 < len(values) {
		if values[i+1] > values[i] {
			return Valley
		}
		return Peak
	}
	if i-1 < 0 {
		panic(fmt.Sprintf("rainflow: extrema index %d has no neighbour to classify against", i))
	}
	if values[i-1] > values[i] {
		return Valley
	}
	return Peak
}

// Classify creates one record per extremum except the last and splits
// them by kind, preserving order. The final extremum is a boundary
// point: nothing follows it, so it cannot open a loop.
func Classify(ext ExtremaSequence) (peaks, valleys []Record) {
	for i := 0; i < ext.Len()-1; i++ {
		switch KindAt(ext.Values, i) {
		case Valley:
			valleys = append(valleys, newRecord(Valley, i, ext.Values[i]))
		default:
			peaks = append(peaks, newRecord(Peak, i, ext.Values[i]))
		}
	}
	return peaks, valleys
}

package rainflow

// Extract reduces a Signal to its alternating sequence of turning points.
//
// Four passes over first differences:
//  1. keep the first and last samples and every sample where the
//     difference changes sign or touches zero;
//  2. drop interior points whose surrounding differences are both zero
//     (flat interior of a plateau);
//  3. drop points equal to their predecessor (plateau remnants);
//  4. when more than two points remain, keep only strict sign changes,
//     removing points the collapses left on a monotonic run.
//
// The reduction is idempotent. Inputs shorter than two samples are
// returned unchanged.
func Extract(sig Signal) ExtremaSequence {
	vals := make([]float64, len(sig))
	copy(vals, sig)
	idx := make([]int, len(sig))
	for i := range idx {
		idx[i] = i
	}
	ext := ExtremaSequence{Values: vals, SignalIndex: idx}
	if ext.Len() < 2 {
		return ext
	}

	ext = ext.keep(func(d []float64, i int) bool {
		return d[i-1]*d[i] <= 0
	})
	ext = ext.keep(func(d []float64, i int) bool {
		return !(d[i-1] == 0 && d[i] == 0)
	})
	ext = ext.dedupe()
	if ext.Len() > 2 {
		ext = ext.keep(func(d []float64, i int) bool {
			return d[i-1]*d[i] < 0
		})
	}
	return ext
}

// keep retains the boundary points and every interior point i for which
// test(d, i) holds, where d[i-1] and d[i] are the differences entering
// and leaving point i.
func (e ExtremaSequence) keep(test func(d []float64, i int) bool) ExtremaSequence {
	n := e.Len()
	if n < 2 {
		return e
	}
	d := diff(e.Values)
	out := ExtremaSequence{
		Values:      make([]float64, 0, n),
		SignalIndex: make([]int, 0, n),
	}
	for i := 0; i < n; i++ {
		if i == 0 || i == n-1 || test(d, i) {
			out.Values = append(out.Values, e.Values[i])
			out.SignalIndex = append(out.SignalIndex, e.SignalIndex[i])
		}
	}
	return out
}

// dedupe drops every point equal to its predecessor.
func (e ExtremaSequence) dedupe() ExtremaSequence {
	out := ExtremaSequence{
		Values:      make([]float64, 0, e.Len()),
		SignalIndex: make([]int, 0, e.Len()),
	}
	for i, v := range e.Values {
		if i > 0 && v == e.Values[i-1] {
			continue
		}
		out.Values = append(out.Values, v)
		out.SignalIndex = append(out.SignalIndex, e.SignalIndex[i])
	}
	return out
}

func diff(v []float64) []float64 {
	if len(v) < 2 {
		return nil
	}
	d := make([]float64, len(v)-1)
	for i := range d {
		d[i] = v[i+1] - v[i]
	}
	return d
}

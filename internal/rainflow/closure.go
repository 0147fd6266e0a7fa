package rainflow

// Close runs the cycle closure pass over one kind's records. records
// must all share a kind and be ordered by origin index, as Classify
// returns them.
//
// Close mutates records in place and touches nothing else; closing the
// peak arena and the valley arena concurrently is safe.
func Close(ext ExtremaSequence, records []Record) {
	if len(records) == 0 {
		return
	}
	bounds := newLookback(records[0].kind, len(ext.Values))
	for a := range records {
		closeRecord(ext.Values, &records[a], bounds)
		bounds.add(&records[a])
	}
}

// closeRecord scans forward from r until its loop closes or the
// sequence ends.
func closeRecord(values []float64, r *Record, bounds *lookback) {
	for j := r.index + 1; j < len(values); j++ {
		v := values[j]
		cur := r.Last().Level

		if KindAt(values, j) == r.kind {
			// Same kind: the level carries forward and an excursion
			// beyond the origin closes the loop.
			r.push(j, cur)
			if beyondOrigin(r.kind, v, r.value) {
				r.terminated = true
				return
			}
			continue
		}

		// Opposite kind: the loop level follows the excursion.
		r.push(j, extend(r.kind, cur, v))

		// Earlier records still open at j cap this loop at the level
		// they held one step back.
		if lvl, ok := bounds.at(j); ok && caps(r.kind, lvl, r.Last().Level) {
			r.setLevel(lvl)
			r.terminated = true
			return
		}
	}
}

// lookback folds the histories of already closed records into one
// bound per extrema index: bound[j] is the tightest level any earlier
// record that reached j held at j-1. Valleys keep the lowest such level
// and peaks the highest, which is the level the strictest earlier record
// would impose.
type lookback struct {
	kind  Kind
	bound []float64
	set   []bool
}

func newLookback(kind Kind, n int) *lookback {
	return &lookback{
		kind:  kind,
		bound: make([]float64, n),
		set:   make([]bool, n),
	}
}

// add records the final history of r. It must be called once r is done.
func (l *lookback) add(r *Record) {
	for j := r.index + 1; j <= r.Reach(); j++ {
		lvl, _ := r.LevelAt(j - 1)
		if !l.set[j] || tighter(l.kind, lvl, l.bound[j]) {
			l.bound[j] = lvl
			l.set[j] = true
		}
	}
}

func (l *lookback) at(j int) (float64, bool) {
	return l.bound[j], l.set[j]
}

// tighter reports whether a bounds a loop of the given kind more
// strictly than b.
func tighter(kind Kind, a, b float64) bool {
	if kind == Valley {
		return a < b
	}
	return a > b
}

// beyondOrigin reports whether a same-kind value v reaches or passes the
// origin of a loop of the given kind.
func beyondOrigin(kind Kind, v, origin float64) bool {
	if kind == Valley {
		return v <= origin
	}
	return v >= origin
}

// extend moves the loop level towards an opposite-kind value: valleys
// rise to the highest peak, peaks fall to the lowest valley.
func extend(kind Kind, level, v float64) float64 {
	if kind == Valley {
		if v > level {
			return v
		}
		return level
	}
	if v < level {
		return v
	}
	return level
}

// caps reports whether an earlier record's level bounds the current one.
// The valley test is inclusive and the peak test strict.
func caps(kind Kind, earlier, level float64) bool {
	if kind == Valley {
		return earlier <= level
	}
	return earlier > level
}

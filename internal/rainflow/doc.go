// Package rainflow implements rainflow cycle counting for fatigue analysis.
//
// A raw load history (stress, temperature, strain...) is reduced to its
// turning points and every turning point is followed forward until the
// hysteresis loop it opens is closed. Each turning point yields one
// half cycle whose range feeds fatigue-life estimation.
//
// # Pipeline
//
//	raw values → Clean → Signal → Extract → ExtremaSequence
//	           → Classify → Peak / Valley records
//	           → Close (peaks) ‖ Close (valleys) → Assemble → Result
//
// The two closure passes touch disjoint record arenas and share a
// read-only ExtremaSequence, so Count runs them as a fork-join.
//
// # Usage
//
//	res := rainflow.Count([]any{2, 5, 1, 6, 1, 4})
//	for _, r := range res.Records() {
//	    fmt.Println(r.Kind(), r.OriginValue(), r.Last().Level, r.Range())
//	}
//
// A Counter adds logging, tracing and context handling around the same
// computation:
//
//	counter := rainflow.NewCounter(logger, rainflow.WithTracer(tracer))
//	res, err := counter.Count(ctx, values)
//
// # Closure rule
//
// A valley record raises its loop level to the highest opposite-kind
// value seen and closes when a later valley reaches or undercuts its
// origin. Peaks mirror this. When an earlier record of the same kind is
// still open over the current index, its level one step back caps the
// current record and closes it, which is how nested loops hand their
// boundaries to the enclosing loop. The counts reproduce the ASTM E1049
// reference example.
//
// Records that are never closed are open cycles at the end of the
// history; their range is taken from the last level reached.
package rainflow

package rainflow

import (
	"fmt"
	"math"
	"strconv"
)

// Kind identifies a turning point as a peak or a valley.
type Kind int

const (
	// Peak is a local maximum of the extrema sequence.
	Peak Kind = iota
	// Valley is a local minimum of the extrema sequence.
	Valley
)

// String returns the lower-case kind name
func (k Kind) String() string {
	switch k {
	case Peak:
		return "peak"
	case Valley:
		return "valley"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Signal is a cleaned, time-ordered load history.
type Signal []float64

// ExtremaSequence is the alternating turning-point sequence of a Signal.
// SignalIndex[i] is the Signal position Values[i] was taken from.
type ExtremaSequence struct {
	Values      []float64
	SignalIndex []int
}

// Len returns the number of extrema
func (e ExtremaSequence) Len() int {
	return len(e.Values)
}

// LevelPoint is one step of a record's loop level: the extrema index
// visited and the level the loop held there.
type LevelPoint struct {
	Index int
	Level float64
}

// Record is one turning point together with the evolving state of the
// loop it opens. Records are created by Classify, mutated only by Close
// and read-only afterwards.
type Record struct {
	kind       Kind
	value      float64
	index      int
	history    []LevelPoint
	terminated bool
}

func newRecord(kind Kind, index int, value float64) Record {
	return Record{
		kind:    kind,
		value:   value,
		index:   index,
		history: []LevelPoint{{Index: index, Level: value}},
	}
}

// Kind returns whether the record is a peak or a valley
func (r *Record) Kind() Kind { return r.kind }

// OriginValue returns the turning point value
func (r *Record) OriginValue() float64 { return r.value }

// OriginIndex returns the turning point position in the extrema sequence
func (r *Record) OriginIndex() int { return r.index }

// Terminated reports whether the loop closed inside the observed history
func (r *Record) Terminated() bool { return r.terminated }

// History returns a copy of the level history.
func (r *Record) History() []LevelPoint {
	out := make([]LevelPoint, len(r.history))
	copy(out, r.history)
	return out
}

// Last returns the most recent level point.
func (r *Record) Last() LevelPoint {
	return r.history[len(r.history)-1]
}

// Reach returns the highest extrema index the record has visited.
func (r *Record) Reach() int {
	return r.Last().Index
}

// LevelAt returns the level the record held at extrema index i.
// History indices are contiguous from the origin, so the lookup is an
// offset into the history slice.
func (r *Record) LevelAt(i int) (float64, bool) {
	off := i - r.index
	if off < 0 || off >= len(r.history) {
		return 0, false
	}
	return r.history[off].Level, true
}

// Range returns the half-cycle range rounded to one decimal place.
func (r *Record) Range() float64 {
	return RoundRange(math.Abs(r.value - r.Last().Level))
}

func (r *Record) push(i int, level float64) {
	r.history = append(r.history, LevelPoint{Index: i, Level: level})
}

func (r *Record) setLevel(level float64) {
	r.history[len(r.history)-1].Level = level
}

// RoundRange rounds x to one decimal place, ties to even on the exact
// binary value. strconv performs the correctly rounded conversion, which
// math.Round(x*10)/10 does not.
func RoundRange(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	v, err := strconv.ParseFloat(strconv.FormatFloat(x, 'f', 1, 64), 64)
	if err != nil {
		return x
	}
	if v == 0 {
		// normalise -0.0
		return 0
	}
	return v
}

// Result is the engine output: the cleaned signal, its extrema sequence
// and the closed peak and valley records.
type Result struct {
	Signal  Signal
	Extrema ExtremaSequence
	Peaks   []Record
	Valleys []Record
}

// Records returns peaks followed by valleys.
func (res *Result) Records() []*Record {
	out := make([]*Record, 0, len(res.Peaks)+len(res.Valleys))
	for i := range res.Peaks {
		out = append(out, &res.Peaks[i])
	}
	for i := range res.Valleys {
		out = append(out, &res.Valleys[i])
	}
	return out
}

// Open returns the records whose loops never closed.
func (res *Result) Open() []*Record {
	var out []*Record
	for _, r := range res.Records() {
		if !r.Terminated() {
			out = append(out, r)
		}
	}
	return out
}

// SignalIndexOf maps an extrema index to its position in the cleaned signal.
func (res *Result) SignalIndexOf(i int) int {
	if i < 0 || i >= len(res.Extrema.SignalIndex) {
		return -1
	}
	return res.Extrema.SignalIndex[i]
}

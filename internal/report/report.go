package report

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/djangbahevans/RainflowCycleCounting/internal/rainflow"
)

// HalfCycle is the cycle weight of a single record.
const HalfCycle = 0.5

// binEpsilon absorbs representation error when a range sits exactly on
// a bin edge, e.g. 0.6 / 0.2.
const binEpsilon = 1e-9

// MaxBins caps the histogram produced by Bin.
const MaxBins = 10_000

// ErrInvalidBinWidth is returned by Bin for a non-positive or non-finite
// width, or one so narrow that the histogram would exceed its bin cap.
var ErrInvalidBinWidth = errors.New("bin width must be a positive finite number")

// Row is one half cycle of the cycle table.
type Row struct {
	From   float64
	To     float64
	Range  float64
	Cycles float64
	Kind   rainflow.Kind
	Index  int
	Closed bool
}

// SpectrumBin counts half cycles whose range falls in [Low, High). For
// the exact spectrum Low and High are equal.
type SpectrumBin struct {
	Low        float64
	High       float64
	HalfCycles int
}

// Cycles returns the full-cycle equivalent of the bin.
func (b SpectrumBin) Cycles() float64 {
	return float64(b.HalfCycles) * HalfCycle
}

// Summary aggregates a Result.
type Summary struct {
	Samples    int
	Extrema    int
	Peaks      int
	Valleys    int
	HalfCycles int
	Closed     int
	Open       int
	FullCycles float64
	MaxRange   float64
}

// Table returns the half-cycle rows, peaks first then valleys.
func Table(res *rainflow.Result) []Row {
	if res == nil {
		return nil
	}
	records := res.Records()
	rows := make([]Row, 0, len(records))
	for _, r := range records {
		rows = append(rows, Row{
			From:   r.OriginValue(),
			To:     r.Last().Level,
			Range:  r.Range(),
			Cycles: HalfCycle,
			Kind:   r.Kind(),
			Index:  r.OriginIndex(),
			Closed: r.Terminated(),
		})
	}
	return rows
}

// Spectrum counts half cycles per exact range in ascending order.
// Zero-range records are counted at 0.
func Spectrum(res *rainflow.Result) []SpectrumBin {
	if res == nil {
		return nil
	}
	counts := make(map[float64]int)
	for _, r := range res.Records() {
		counts[r.Range()]++
	}

	out := make([]SpectrumBin, 0, len(counts))
	for rng, n := range counts {
		out = append(out, SpectrumBin{Low: rng, High: rng, HalfCycles: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Low < out[j].Low })
	return out
}

// Bin groups half cycles into contiguous bins [k*width, (k+1)*width)
// from zero up to the bin holding the largest range. Empty bins inside
// that span are kept so the result plots as a histogram. At most MaxBins
// bins are produced.
func Bin(res *rainflow.Result, width float64) ([]SpectrumBin, error) {
	return BinLimit(res, width, MaxBins)
}

// BinLimit is Bin with an explicit bin cap. A width that would need more
// than maxBins bins is rejected with ErrInvalidBinWidth; maxBins <= 0
// means MaxBins.
func BinLimit(res *rainflow.Result, width float64, maxBins int) ([]SpectrumBin, error) {
	if maxBins <= 0 {
		maxBins = MaxBins
	}
	if width <= 0 || math.IsNaN(width) || math.IsInf(width, 0) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBinWidth, width)
	}
	if res == nil {
		return nil, nil
	}
	records := res.Records()
	if len(records) == 0 {
		return nil, nil
	}

	counts := make(map[int]int)
	maxK := 0
	for _, r := range records {
		q := math.Floor(r.Range()/width + binEpsilon)
		if q >= float64(maxBins) {
			return nil, fmt.Errorf("%w: %v needs more than %d bins for range %v",
				ErrInvalidBinWidth, width, maxBins, r.Range())
		}
		k := int(q)
		counts[k]++
		if k > maxK {
			maxK = k
		}
	}

	bins := make([]SpectrumBin, maxK+1)
	for k := range bins {
		bins[k] = SpectrumBin{
			Low:        edge(k, width),
			High:       edge(k+1, width),
			HalfCycles: counts[k],
		}
	}
	return bins, nil
}

func edge(k int, width float64) float64 {
	return math.Round(float64(k)*width*1e9) / 1e9
}

// Summarize computes aggregate counts for res.
func Summarize(res *rainflow.Result) Summary {
	if res == nil {
		return Summary{}
	}
	s := Summary{
		Samples: len(res.Signal),
		Extrema: res.Extrema.Len(),
		Peaks:   len(res.Peaks),
		Valleys: len(res.Valleys),
	}
	for _, r := range res.Records() {
		s.HalfCycles++
		if r.Terminated() {
			s.Closed++
		} else {
			s.Open++
		}
		if rng := r.Range(); rng > s.MaxRange {
			s.MaxRange = rng
		}
	}
	s.FullCycles = float64(s.HalfCycles) * HalfCycle
	return s
}

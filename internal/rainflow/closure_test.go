package rainflow

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClose_ScenarioPeakAtFive(t *testing.T) {
	ext := Extract(Signal{2, 5, 1, 6, 1, 4})
	peaks, _ := Classify(ext)
	Close(ext, peaks)

	p := peaks[0]
	require.Equal(t, 5.0, p.OriginValue())
	assert.True(t, p.Terminated(), "6 at index 3 exceeds the origin")
	assert.Equal(t, 3, p.Reach())
	assert.Equal(t, 4.0, p.Range())
}

func TestClose_MonotonicStaysOpen(t *testing.T) {
	res := CountFloats([]float64{1, 2, 3, 4, 5})

	require.Len(t, res.Valleys, 1)
	v := res.Valleys[0]
	assert.False(t, v.Terminated())
	assert.Equal(t, 4.0, v.Range())
	assert.Len(t, res.Open(), 1)
}

func TestClose_NestedLoopCappedByEarlierRecord(t *testing.T) {
	// Valley 1 at index 6 rises to 10 at index 9, but valley 0 at index 0
	// held level 10 there one step back, so the loop closes at 10.
	res := CountFloats([]float64{0, 10, 2, 8, 4, 6, 1, 9, 3, 12, -1, 5})

	v := res.Valleys[3]
	require.Equal(t, 6, v.OriginIndex())
	assert.True(t, v.Terminated())
	assert.Equal(t, LevelPoint{Index: 9, Level: 10}, v.Last())
	assert.Equal(t, 9.0, v.Range())
}

func TestRecord_LevelAt(t *testing.T) {
	res := CountFloats([]float64{2, 5, 1, 6, 1, 4})
	v := res.Valleys[1]

	lvl, ok := v.LevelAt(3)
	assert.True(t, ok)
	assert.Equal(t, 6.0, lvl)

	lvl, ok = v.LevelAt(2)
	assert.True(t, ok)
	assert.Equal(t, 1.0, lvl)

	_, ok = v.LevelAt(1)
	assert.False(t, ok)
	_, ok = v.LevelAt(5)
	assert.False(t, ok)
}

func TestRecord_HistoryIsACopy(t *testing.T) {
	res := CountFloats([]float64{2, 5, 1, 6, 1, 4})
	h := res.Peaks[0].History()
	h[0].Level = 100
	assert.Equal(t, 5.0, res.Peaks[0].History()[0].Level)
}

func TestClose_Properties(t *testing.T) {
	r := rand.New(rand.NewSource(7))

	for i := 0; i < 300; i++ {
		sig := randomSignal(r, 2+r.Intn(80))
		res := CountFloats(sig)
		n := res.Extrema.Len()

		for _, rec := range res.Records() {
			h := rec.History()
			require.NotEmpty(t, h)
			assert.Equal(t, LevelPoint{rec.OriginIndex(), rec.OriginValue()}, h[0])
			for j := 1; j < len(h); j++ {
				assert.Equal(t, h[j-1].Index+1, h[j].Index, "history indices are contiguous")
			}
			assert.Less(t, rec.Reach(), n)
			if !rec.Terminated() {
				assert.Equal(t, n-1, rec.Reach(), "open records scan to the end")
			}

			rng := rec.Range()
			assert.GreaterOrEqual(t, rng, 0.0)
			assert.Equal(t, rng, math.Round(rng*10)/10, "range has one decimal")

			// Loop levels never cross the origin.
			for _, lp := range h {
				if rec.Kind() == Valley {
					assert.GreaterOrEqual(t, lp.Level, rec.OriginValue())
				} else {
					assert.LessOrEqual(t, lp.Level, rec.OriginValue())
				}
			}
		}
	}
}

// closeDirect is the closure pass with the earlier-record lookback done
// by scanning every earlier record at each step. It is cubic, but it
// states the rule without the folded bounds.
func closeDirect(values []float64, records []Record) {
	for a := range records {
		r := &records[a]
		for j := r.index + 1; j < len(values); j++ {
			cur := r.Last().Level
			if KindAt(values, j) == r.kind {
				r.push(j, cur)
				if beyondOrigin(r.kind, values[j], r.value) {
					r.terminated = true
					break
				}
				continue
			}
			r.push(j, extend(r.kind, cur, values[j]))
			for k := a - 1; k >= 0; k-- {
				prev := &records[k]
				if prev.Reach() < j {
					continue
				}
				if lvl, ok := prev.LevelAt(j - 1); ok && caps(r.kind, lvl, r.Last().Level) {
					r.setLevel(lvl)
					r.terminated = true
				}
			}
			if r.terminated {
				break
			}
		}
	}
}

func TestClose_MatchesDirectLookback(t *testing.T) {
	r := rand.New(rand.NewSource(11))

	for i := 0; i < 1000; i++ {
		ext := Extract(randomSignal(r, 2+r.Intn(80)))
		peaks, valleys := Classify(ext)
		wantPeaks, wantValleys := Classify(ext)

		Close(ext, peaks)
		Close(ext, valleys)
		closeDirect(ext.Values, wantPeaks)
		closeDirect(ext.Values, wantValleys)

		require.Equal(t, wantPeaks, peaks, "extrema %v", ext.Values)
		require.Equal(t, wantValleys, valleys, "extrema %v", ext.Values)
	}
}

func convergingSignal(n int) []float64 {
	sig := make([]float64, n)
	for i := range sig {
		amp := float64(n - i)
		if i%2 == 1 {
			amp = -amp
		}
		sig[i] = amp
	}
	return sig
}

func TestClose_ConvergingSignalStaysOpen(t *testing.T) {
	res := CountFloats(convergingSignal(400))

	require.Equal(t, 400, res.Extrema.Len())
	// Every excursion is smaller than the one before, so no loop closes.
	assert.Len(t, res.Open(), 399)
	for _, rec := range res.Records() {
		assert.Equal(t, 399, rec.Reach())
	}
}

package rainflow

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
)

func BenchmarkCount(b *testing.B) {
	sizes := []struct {
		name string
		n    int
	}{
		{"1k_samples", 1_000},
		{"10k_samples", 10_000},
		{"100k_samples", 100_000},
	}

	for _, bm := range sizes {
		b.Run(bm.name, func(b *testing.B) {
			sig := randomSignal(rand.New(rand.NewSource(1)), bm.n)

			b.ResetTimer()
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				CountFloats(sig)
			}
		})
	}
}

// BenchmarkCount_Converging runs the worst case: no loop ever closes,
// so every record scans to the end.
func BenchmarkCount_Converging(b *testing.B) {
	for _, n := range []int{1_000, 2_000, 4_000} {
		b.Run(fmt.Sprintf("%d_samples", n), func(b *testing.B) {
			sig := convergingSignal(n)

			b.ResetTimer()
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				CountFloats(sig)
			}
		})
	}
}

func BenchmarkCounter_Count(b *testing.B) {
	sig := randomSignal(rand.New(rand.NewSource(1)), 10_000)
	input := make([]any, len(sig))
	for i, v := range sig {
		input[i] = v
	}
	c := NewCounter(nil)
	ctx := context.Background()

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := c.Count(ctx, input); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkExtract(b *testing.B) {
	sig := randomSignal(rand.New(rand.NewSource(1)), 10_000)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Extract(sig)
	}
}

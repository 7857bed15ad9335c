package welch

import (
	"testing"

	"github.com/cwbudde/algo-coherence/dsp/signal"
)

func BenchmarkAccumulate(b *testing.B) {
	gen := signal.NewGenerator(1000, signal.WithSeed(1))

	x, err := gen.WhiteNoise(1, 4096)
	if err != nil {
		b.Fatalf("WhiteNoise error: %v", err)
	}

	y, err := signal.NewGenerator(1000, signal.WithSeed(2)).WhiteNoise(1, 4096)
	if err != nil {
		b.Fatalf("WhiteNoise error: %v", err)
	}

	est, err := NewEstimator(Config{SampleRate: 1000, WindowLength: 512, Overlap: 0.5})
	if err != nil {
		b.Fatalf("NewEstimator error: %v", err)
	}

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if err := est.Accumulate(x, y); err != nil {
			b.Fatalf("Accumulate error: %v", err)
		}
	}
}

func BenchmarkSpectra(b *testing.B) {
	gen := signal.NewGenerator(1000, signal.WithSeed(1))

	x, err := gen.WhiteNoise(1, 4096)
	if err != nil {
		b.Fatalf("WhiteNoise error: %v", err)
	}

	est, err := NewEstimator(Config{SampleRate: 1000, WindowLength: 512, Overlap: 0.5})
	if err != nil {
		b.Fatalf("NewEstimator error: %v", err)
	}

	if err := est.Accumulate(x, x); err != nil {
		b.Fatalf("Accumulate error: %v", err)
	}

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if _, err := est.Spectra(); err != nil {
			b.Fatalf("Spectra error: %v", err)
		}
	}
}

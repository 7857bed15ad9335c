package welch

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/algo-coherence/dsp/signal"
	"github.com/cwbudde/algo-coherence/dsp/window"
)

func TestConfigValidation(t *testing.T) {
	cases := []Config{
		{SampleRate: 0, WindowLength: 256},
		{SampleRate: 1000, WindowLength: 0},
		{SampleRate: 1000, WindowLength: 256, Overlap: -0.1},
		{SampleRate: 1000, WindowLength: 256, Overlap: 1},
		{SampleRate: 1000, WindowLength: 256, MaxFreq: 600},
		{SampleRate: 1000, WindowLength: 256, MaxFreq: -5},
	}

	for i, cfg := range cases {
		if _, err := NewEstimator(cfg); err == nil {
			t.Fatalf("case %d: expected config validation error for %+v", i, cfg)
		}
	}
}

func TestMaxFreqDefaultsToNyquist(t *testing.T) {
	est, err := NewEstimator(Config{SampleRate: 1000, WindowLength: 256})
	if err != nil {
		t.Fatalf("NewEstimator error: %v", err)
	}

	if est.Config().MaxFreq != 500 {
		t.Fatalf("MaxFreq=%f want=500", est.Config().MaxFreq)
	}
}

func TestSubWindowCount(t *testing.T) {
	est, err := NewEstimator(Config{SampleRate: 1024, WindowLength: 256, Overlap: 0.5})
	if err != nil {
		t.Fatalf("NewEstimator error: %v", err)
	}

	x := make([]float64, 1024)
	if err := est.Accumulate(x, x); err != nil {
		t.Fatalf("Accumulate error: %v", err)
	}

	// Offsets 0, 128, ..., 768: seven full sub-windows.
	if est.Segments() != 7 {
		t.Fatalf("Segments=%d want=7", est.Segments())
	}
}

func TestPSDSinePeakAndPower(t *testing.T) {
	const (
		sampleRate = 1024.0
		winLen     = 256
		freq       = 64.0 // bin-aligned: 16 cycles per window
	)

	gen := signal.NewGenerator(sampleRate)

	sine, err := gen.Sine(freq, 1, 8192)
	if err != nil {
		t.Fatalf("Sine error: %v", err)
	}

	spectra, err := EstimatePSD(sine, Config{
		SampleRate:   sampleRate,
		WindowLength: winLen,
		Overlap:      0.5,
		Window:       window.TypeHann,
	})
	if err != nil {
		t.Fatalf("EstimatePSD error: %v", err)
	}

	if spectra.Resolution != 4 {
		t.Fatalf("Resolution=%f want=4", spectra.Resolution)
	}

	peak := 0
	for i := range spectra.Sxx {
		if spectra.Sxx[i] > spectra.Sxx[peak] {
			peak = i
		}
	}

	if spectra.Freqs[peak] != freq {
		t.Fatalf("peak at %f Hz want=%f", spectra.Freqs[peak], freq)
	}

	// Integrated PSD recovers the total sine power A^2/2.
	power := 0.0
	for _, v := range spectra.Sxx {
		power += v * spectra.Resolution
	}

	if math.Abs(power-0.5) > 0.02 {
		t.Fatalf("integrated power=%f want~0.5", power)
	}
}

func TestAccumulateShapeMismatch(t *testing.T) {
	est, err := NewEstimator(Config{SampleRate: 1000, WindowLength: 64})
	if err != nil {
		t.Fatalf("NewEstimator error: %v", err)
	}

	err = est.Accumulate(make([]float64, 128), make([]float64, 129))

	var mismatch *ShapeMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected ShapeMismatchError, got %v", err)
	}

	if mismatch.XLen != 128 || mismatch.YLen != 129 {
		t.Fatalf("unexpected mismatch payload: %+v", mismatch)
	}
}

func TestInsufficientData(t *testing.T) {
	est, err := NewEstimator(Config{SampleRate: 1000, WindowLength: 512})
	if err != nil {
		t.Fatalf("NewEstimator error: %v", err)
	}

	// Epoch shorter than the window contributes nothing.
	short := make([]float64, 100)
	if err := est.Accumulate(short, short); err != nil {
		t.Fatalf("Accumulate error: %v", err)
	}

	if _, err := est.Spectra(); !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
}

func TestEpochOrderInvariance(t *testing.T) {
	gen := signal.NewGenerator(1000, signal.WithSeed(7))

	epochs := make([][]float64, 4)
	for i := range epochs {
		noise, err := gen.WhiteNoise(1, 500)
		if err != nil {
			t.Fatalf("WhiteNoise error: %v", err)
		}

		for j := range noise {
			noise[j] += float64(i)
		}

		epochs[i] = noise
	}

	cfg := Config{SampleRate: 1000, WindowLength: 128, Overlap: 0.5}

	forward, err := NewEstimator(cfg)
	if err != nil {
		t.Fatalf("NewEstimator error: %v", err)
	}

	backward, err := NewEstimator(cfg)
	if err != nil {
		t.Fatalf("NewEstimator error: %v", err)
	}

	for i := range epochs {
		if err := forward.Accumulate(epochs[i], epochs[i]); err != nil {
			t.Fatalf("Accumulate error: %v", err)
		}

		rev := epochs[len(epochs)-1-i]
		if err := backward.Accumulate(rev, rev); err != nil {
			t.Fatalf("Accumulate error: %v", err)
		}
	}

	fs, err := forward.Spectra()
	if err != nil {
		t.Fatalf("Spectra error: %v", err)
	}

	bs, err := backward.Spectra()
	if err != nil {
		t.Fatalf("Spectra error: %v", err)
	}

	for i := range fs.Sxx {
		if math.Abs(fs.Sxx[i]-bs.Sxx[i]) > 1e-9*math.Abs(fs.Sxx[i])+1e-15 {
			t.Fatalf("Sxx[%d] order-dependent: %g vs %g", i, fs.Sxx[i], bs.Sxx[i])
		}
	}
}

func TestMergeMatchesSequential(t *testing.T) {
	gen := signal.NewGenerator(1000, signal.WithSeed(3))

	a, err := gen.WhiteNoise(1, 512)
	if err != nil {
		t.Fatalf("WhiteNoise error: %v", err)
	}

	b, err := signal.NewGenerator(1000, signal.WithSeed(4)).WhiteNoise(1, 512)
	if err != nil {
		t.Fatalf("WhiteNoise error: %v", err)
	}

	cfg := Config{SampleRate: 1000, WindowLength: 128, Overlap: 0.25}

	sequential, err := NewEstimator(cfg)
	if err != nil {
		t.Fatalf("NewEstimator error: %v", err)
	}

	if err := sequential.Accumulate(a, a); err != nil {
		t.Fatalf("Accumulate error: %v", err)
	}

	if err := sequential.Accumulate(b, b); err != nil {
		t.Fatalf("Accumulate error: %v", err)
	}

	part1, err := NewEstimator(cfg)
	if err != nil {
		t.Fatalf("NewEstimator error: %v", err)
	}

	part2, err := NewEstimator(cfg)
	if err != nil {
		t.Fatalf("NewEstimator error: %v", err)
	}

	if err := part1.Accumulate(a, a); err != nil {
		t.Fatalf("Accumulate error: %v", err)
	}

	if err := part2.Accumulate(b, b); err != nil {
		t.Fatalf("Accumulate error: %v", err)
	}

	if err := part1.Merge(part2); err != nil {
		t.Fatalf("Merge error: %v", err)
	}

	want, err := sequential.Spectra()
	if err != nil {
		t.Fatalf("Spectra error: %v", err)
	}

	got, err := part1.Spectra()
	if err != nil {
		t.Fatalf("Spectra error: %v", err)
	}

	if got.Segments != want.Segments {
		t.Fatalf("merged segments=%d want=%d", got.Segments, want.Segments)
	}

	for i := range want.Sxx {
		if math.Abs(got.Sxx[i]-want.Sxx[i]) > 1e-12 {
			t.Fatalf("merged Sxx[%d]=%g want=%g", i, got.Sxx[i], want.Sxx[i])
		}
	}
}

func TestMergeRejectsDifferentConfig(t *testing.T) {
	a, err := NewEstimator(Config{SampleRate: 1000, WindowLength: 128})
	if err != nil {
		t.Fatalf("NewEstimator error: %v", err)
	}

	b, err := NewEstimator(Config{SampleRate: 1000, WindowLength: 256})
	if err != nil {
		t.Fatalf("NewEstimator error: %v", err)
	}

	if err := a.Merge(b); err == nil {
		t.Fatalf("expected merge config mismatch error")
	}
}

func TestMaxFreqRestrictsAxis(t *testing.T) {
	gen := signal.NewGenerator(1000)

	sine, err := gen.Sine(50, 1, 2048)
	if err != nil {
		t.Fatalf("Sine error: %v", err)
	}

	spectra, err := EstimatePSD(sine, Config{
		SampleRate:   1000,
		WindowLength: 256,
		Overlap:      0.5,
		MaxFreq:      80,
	})
	if err != nil {
		t.Fatalf("EstimatePSD error: %v", err)
	}

	last := spectra.Freqs[len(spectra.Freqs)-1]
	if last > 80 {
		t.Fatalf("frequency axis extends past MaxFreq: %f", last)
	}

	if last < 80-spectra.Resolution {
		t.Fatalf("frequency axis ends too early: %f", last)
	}
}

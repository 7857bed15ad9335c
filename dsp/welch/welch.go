package welch

import (
	"fmt"
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-coherence/dsp/core"
	"github.com/cwbudde/algo-coherence/dsp/window"
)

// Config holds cross-spectral estimation parameters.
type Config struct {
	// SampleRate of both input signals in Hz.
	SampleRate float64

	// WindowLength is the sub-window length in samples.
	WindowLength int

	// Overlap is the sub-window overlap fraction in [0, 1).
	Overlap float64

	// Window selects the taper applied to each sub-window.
	// Defaults to Hann.
	Window window.Type

	// WindowAlpha is the alpha/beta parameter for parametric tapers.
	WindowAlpha float64

	// MaxFreq restricts the output frequency axis, in Hz.
	// Zero means Nyquist.
	MaxFreq float64
}

func (cfg Config) validate() (Config, error) {
	if cfg.SampleRate <= 0 {
		return cfg, fmt.Errorf("sample rate must be > 0: %f", cfg.SampleRate)
	}

	if cfg.WindowLength <= 0 {
		return cfg, fmt.Errorf("window length must be > 0: %d", cfg.WindowLength)
	}

	if cfg.Overlap < 0 || cfg.Overlap >= 1 {
		return cfg, fmt.Errorf("overlap must be in [0,1): %f", cfg.Overlap)
	}

	nyquist := cfg.SampleRate / 2
	if cfg.MaxFreq == 0 {
		cfg.MaxFreq = nyquist
	}

	if cfg.MaxFreq < 0 || cfg.MaxFreq > nyquist {
		return cfg, fmt.Errorf("max frequency must be in (0, %f]: %f", nyquist, cfg.MaxFreq)
	}

	return cfg, nil
}

// CrossSpectra holds averaged one-sided auto- and cross-power spectral
// densities over [0, MaxFreq].
type CrossSpectra struct {
	// Freqs is the frequency axis in Hz.
	Freqs []float64

	// Sxx and Syy are the auto-spectral densities of the two inputs.
	Sxx []float64
	Syy []float64

	// Sxy is the complex cross-spectral density.
	Sxy []complex128

	// Resolution is the frequency bin spacing in Hz.
	Resolution float64

	// Segments is the total sub-window count averaged over.
	Segments int
}

// Estimator accumulates averaged auto- and cross-power spectra across
// overlapping tapered sub-windows of one or more epochs (Welch's method,
// cross-spectrum generalization). Accumulation is a pure sum: epoch
// presentation order does not affect the result, and partial estimators
// may be folded together with Merge.
type Estimator struct {
	cfg     Config
	coeffs  []float64
	energy  float64
	step    int
	fftSize int
	plan    *algofft.Plan[complex128]

	sxx []float64
	syy []float64
	sxy []complex128

	segments int

	// scratch buffers reused across sub-windows
	tapered []float64
	fftIn   []complex128
	fftOut  []complex128
	xRe     []float64
	xIm     []float64
	yRe     []float64
	yIm     []float64
	powBuf  []float64
}

// NewEstimator validates the configuration and prepares taper coefficients,
// the FFT plan, and zeroed accumulators.
func NewEstimator(cfg Config) (*Estimator, error) {
	cfg, err := cfg.validate()
	if err != nil {
		return nil, err
	}

	opts := []window.Option{window.WithPeriodic()}
	if cfg.WindowAlpha > 0 {
		opts = append(opts, window.WithAlpha(cfg.WindowAlpha))
	}

	coeffs := window.Generate(cfg.Window, cfg.WindowLength, opts...)

	energy, err := window.EnergyGain(coeffs)
	if err != nil {
		return nil, fmt.Errorf("window energy: %w", err)
	}

	if energy == 0 {
		return nil, fmt.Errorf("window has zero energy")
	}

	step := int(math.Round(float64(cfg.WindowLength) * (1 - cfg.Overlap)))
	if step < 1 {
		step = 1
	}

	fftSize := core.NextPowerOf2(cfg.WindowLength)

	plan, err := algofft.NewPlan64(fftSize)
	if err != nil {
		return nil, fmt.Errorf("fft plan: %w", err)
	}

	bins := fftSize/2 + 1

	return &Estimator{
		cfg:     cfg,
		coeffs:  coeffs,
		energy:  energy,
		step:    step,
		fftSize: fftSize,
		plan:    plan,
		sxx:     make([]float64, bins),
		syy:     make([]float64, bins),
		sxy:     make([]complex128, bins),
		tapered: make([]float64, cfg.WindowLength),
		fftIn:   make([]complex128, fftSize),
		fftOut:  make([]complex128, fftSize),
		xRe:     make([]float64, bins),
		xIm:     make([]float64, bins),
		yRe:     make([]float64, bins),
		yIm:     make([]float64, bins),
		powBuf:  make([]float64, bins),
	}, nil
}

// Config returns the validated estimator configuration.
func (e *Estimator) Config() Config {
	return e.cfg
}

// Segments returns the number of sub-windows accumulated so far.
func (e *Estimator) Segments() int {
	return e.segments
}

// Resolution returns the output frequency bin spacing in Hz.
func (e *Estimator) Resolution() float64 {
	return e.cfg.SampleRate / float64(e.fftSize)
}

// Accumulate folds one epoch of the signal pair into the running spectra.
// x and y must have equal length. An epoch shorter than the window length
// contributes no sub-windows; this only becomes an error if the total
// sub-window count is still zero when Spectra is called.
func (e *Estimator) Accumulate(x, y []float64) error {
	if len(x) != len(y) {
		return &ShapeMismatchError{XLen: len(x), YLen: len(y)}
	}

	w := e.cfg.WindowLength
	for off := 0; off+w <= len(x); off += e.step {
		e.transform(x[off:off+w], e.xRe, e.xIm)
		e.transform(y[off:off+w], e.yRe, e.yIm)

		vecmath.Power(e.powBuf, e.xRe, e.xIm)
		vecmath.AddBlockInPlace(e.sxx, e.powBuf)

		vecmath.Power(e.powBuf, e.yRe, e.yIm)
		vecmath.AddBlockInPlace(e.syy, e.powBuf)

		for i := range e.sxy {
			// X * conj(Y)
			re := e.xRe[i]*e.yRe[i] + e.xIm[i]*e.yIm[i]
			im := e.xIm[i]*e.yRe[i] - e.xRe[i]*e.yIm[i]
			e.sxy[i] += complex(re, im)
		}

		e.segments++
	}

	return nil
}

// transform tapers one sub-window, zero-pads it to the FFT size, and writes
// the real and imaginary parts of the non-negative-frequency bins into re
// and im.
func (e *Estimator) transform(seg []float64, re, im []float64) {
	vecmath.MulBlock(e.tapered, seg, e.coeffs)

	for i := range e.fftIn {
		if i < len(e.tapered) {
			e.fftIn[i] = complex(e.tapered[i], 0)
		} else {
			e.fftIn[i] = 0
		}
	}

	// Plan size is fixed at construction, so Forward cannot fail here.
	_ = e.plan.Forward(e.fftOut, e.fftIn)

	for i := range re {
		re[i] = real(e.fftOut[i])
		im[i] = imag(e.fftOut[i])
	}
}

// Merge folds the accumulators of another estimator into this one. Both
// estimators must share an identical configuration. The other estimator is
// left untouched.
func (e *Estimator) Merge(other *Estimator) error {
	if other == nil {
		return nil
	}

	if e.cfg != other.cfg {
		return fmt.Errorf("cannot merge estimators with different configurations")
	}

	vecmath.AddBlockInPlace(e.sxx, other.sxx)
	vecmath.AddBlockInPlace(e.syy, other.syy)

	for i := range e.sxy {
		e.sxy[i] += other.sxy[i]
	}

	e.segments += other.segments

	return nil
}

// Spectra divides the accumulators by the sub-window count, applies taper
// energy and one-sided density normalization, and restricts the frequency
// axis to [0, MaxFreq]. It fails with [ErrInsufficientData] when no
// sub-window was accumulated.
func (e *Estimator) Spectra() (*CrossSpectra, error) {
	if e.segments == 0 {
		return nil, fmt.Errorf("window length %d: %w", e.cfg.WindowLength, ErrInsufficientData)
	}

	df := e.Resolution()

	maxBin := int(math.Floor(e.cfg.MaxFreq/df + 1e-9))
	if maxBin > e.fftSize/2 {
		maxBin = e.fftSize / 2
	}

	bins := maxBin + 1

	// Welch PSD normalization: divide by segment count, sample rate, and
	// taper energy (sum of squared coefficients).
	scale := 1 / (float64(e.segments) * e.cfg.SampleRate * e.energy * float64(e.cfg.WindowLength))

	out := &CrossSpectra{
		Freqs:      make([]float64, bins),
		Sxx:        make([]float64, bins),
		Syy:        make([]float64, bins),
		Sxy:        make([]complex128, bins),
		Resolution: df,
		Segments:   e.segments,
	}

	for i := 0; i < bins; i++ {
		s := scale

		// One-sided density: interior bins carry the energy of both
		// spectrum halves.
		if i > 0 && i < e.fftSize/2 {
			s *= 2
		}

		out.Freqs[i] = float64(i) * df
		out.Sxx[i] = e.sxx[i] * s
		out.Syy[i] = e.syy[i] * s
		out.Sxy[i] = e.sxy[i] * complex(s, 0)
	}

	return out, nil
}

// EstimateCross computes averaged cross spectra of one continuous signal pair.
func EstimateCross(x, y []float64, cfg Config) (*CrossSpectra, error) {
	est, err := NewEstimator(cfg)
	if err != nil {
		return nil, err
	}

	if err := est.Accumulate(x, y); err != nil {
		return nil, err
	}

	return est.Spectra()
}

// EstimatePSD computes the averaged power spectral density of one signal.
func EstimatePSD(x []float64, cfg Config) (*CrossSpectra, error) {
	return EstimateCross(x, x, cfg)
}

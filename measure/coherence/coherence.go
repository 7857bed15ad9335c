package coherence

import (
	"fmt"

	"github.com/cwbudde/algo-coherence/dsp/core"
	"github.com/cwbudde/algo-coherence/dsp/epoch"
	"github.com/cwbudde/algo-coherence/dsp/welch"
)

// Signal is a named collection of time-aligned epoch segments of one
// channel or source waveform. All segments participating in one coherence
// computation must have equal length and share the configured sample rate.
type Signal struct {
	Label    string
	Segments [][]float64
}

// TargetLabel implements [Target].
func (s Signal) TargetLabel() string {
	return s.Label
}

// SignalFromEpochs collects one channel of a sequence of valid epochs into
// a Signal.
func SignalFromEpochs(label string, channel int, epochs []epoch.Epoch) (Signal, error) {
	segments := make([][]float64, 0, len(epochs))

	for i, ep := range epochs {
		if !ep.Valid {
			continue
		}

		if channel < 0 || channel >= len(ep.Samples) {
			return Signal{}, fmt.Errorf("epoch %d has no channel %d", i, channel)
		}

		segments = append(segments, ep.Samples[channel])
	}

	if len(segments) == 0 {
		return Signal{}, fmt.Errorf("signal %q: no valid epochs", label)
	}

	return Signal{Label: label, Segments: segments}, nil
}

// Spectrum is the coherence of one reference/target pair: magnitude-squared
// coherence per frequency bin, every value in [0, 1]. Immutable once
// produced.
type Spectrum struct {
	Ref    string
	Target string

	Freqs []float64
	Coh   []float64

	// Resolution is the frequency bin spacing in Hz.
	Resolution float64

	// Segments is the sub-window count the underlying spectra averaged over.
	Segments int
}

// FromCross derives magnitude-squared coherence from averaged cross spectra:
// coh(f) = |Sxy(f)|^2 / (Sxx(f)*Syy(f)), clamped into [0, 1]. Bins where
// either auto-spectrum is exactly zero are defined as 0.
func FromCross(ref, target string, cs *welch.CrossSpectra) *Spectrum {
	out := &Spectrum{
		Ref:        ref,
		Target:     target,
		Freqs:      append([]float64(nil), cs.Freqs...),
		Coh:        make([]float64, len(cs.Freqs)),
		Resolution: cs.Resolution,
		Segments:   cs.Segments,
	}

	for i := range cs.Freqs {
		den := cs.Sxx[i] * cs.Syy[i]
		if den == 0 {
			continue
		}

		re := real(cs.Sxy[i])
		im := imag(cs.Sxy[i])

		out.Coh[i] = core.Clamp((re*re+im*im)/den, 0, 1)
	}

	return out
}

// Compute estimates the coherence spectrum of one reference/target pair,
// averaging across every sub-window of every segment.
func Compute(ref, target Signal, cfg welch.Config) (*Spectrum, error) {
	if len(ref.Segments) != len(target.Segments) {
		return nil, fmt.Errorf("%q vs %q: segment count mismatch: %d != %d",
			ref.Label, target.Label, len(ref.Segments), len(target.Segments))
	}

	est, err := welch.NewEstimator(cfg)
	if err != nil {
		return nil, err
	}

	for i := range ref.Segments {
		if err := est.Accumulate(ref.Segments[i], target.Segments[i]); err != nil {
			return nil, fmt.Errorf("segment %d: %w", i, err)
		}
	}

	cs, err := est.Spectra()
	if err != nil {
		return nil, err
	}

	return FromCross(ref.Label, target.Label, cs), nil
}

package coherence

import (
	"fmt"

	"github.com/cwbudde/algo-coherence/dsp/welch"
	"github.com/cwbudde/algo-coherence/stats/reduce"
)

// Reduction selects how a region of constituent signals is collapsed into
// one coherence spectrum. The two modes are not numerically equivalent:
// coherence is nonlinear in the signals, so averaging signals before
// estimation and averaging coherence values after estimation give different
// results. The choice is always explicit, never inferred.
type Reduction int

const (
	// ReduceSignalMean averages the constituent signals element-wise into
	// one synthetic signal before spectral estimation.
	ReduceSignalMean Reduction = iota

	// ReduceCoherenceMean estimates coherence per constituent independently
	// and combines the per-frequency coherence values afterwards.
	ReduceCoherenceMean
)

// Region is a named group of constituent signals (e.g. the source-space
// locations of an anatomical scout) treated as one target.
type Region struct {
	Name      string
	Members   []Signal
	Reduction Reduction
}

// TargetLabel implements [Target].
func (r Region) TargetLabel() string {
	return r.Name
}

// MeanSignal returns the element-wise mean of the region members as one
// synthetic signal named after the region. All members must have identical
// segment counts and lengths.
func (r Region) MeanSignal() (Signal, error) {
	if len(r.Members) == 0 {
		return Signal{}, fmt.Errorf("region %q has no members", r.Name)
	}

	first := r.Members[0]
	segments := make([][]float64, len(first.Segments))

	for s := range first.Segments {
		segments[s] = make([]float64, len(first.Segments[s]))
	}

	for _, m := range r.Members {
		if len(m.Segments) != len(first.Segments) {
			return Signal{}, fmt.Errorf("region %q member %q segment count mismatch: %d != %d",
				r.Name, m.Label, len(m.Segments), len(first.Segments))
		}

		for s := range m.Segments {
			if len(m.Segments[s]) != len(segments[s]) {
				return Signal{}, &welch.ShapeMismatchError{XLen: len(m.Segments[s]), YLen: len(segments[s])}
			}

			for i, v := range m.Segments[s] {
				segments[s][i] += v
			}
		}
	}

	scale := 1 / float64(len(r.Members))
	for s := range segments {
		for i := range segments[s] {
			segments[s][i] *= scale
		}
	}

	return Signal{Label: r.Name, Segments: segments}, nil
}

// computeRegion estimates the coherence of a reference against a region
// according to the region's reduction mode. reducer combines per-member
// coherence values in the ReduceCoherenceMean mode; nil means arithmetic
// mean.
func computeRegion(ref Signal, region Region, cfg welch.Config, reducer reduce.Func) (*Spectrum, error) {
	if reducer == nil {
		reducer = reduce.Mean
	}

	switch region.Reduction {
	case ReduceSignalMean:
		synth, err := region.MeanSignal()
		if err != nil {
			return nil, err
		}

		return Compute(ref, synth, cfg)

	case ReduceCoherenceMean:
		if len(region.Members) == 0 {
			return nil, fmt.Errorf("region %q has no members", region.Name)
		}

		spectra := make([]*Spectrum, len(region.Members))

		for i, m := range region.Members {
			spec, err := Compute(ref, m, cfg)
			if err != nil {
				return nil, fmt.Errorf("region %q member %q: %w", region.Name, m.Label, err)
			}

			spectra[i] = spec
		}

		out := &Spectrum{
			Ref:        ref.Label,
			Target:     region.Name,
			Freqs:      append([]float64(nil), spectra[0].Freqs...),
			Coh:        make([]float64, len(spectra[0].Freqs)),
			Resolution: spectra[0].Resolution,
			Segments:   spectra[0].Segments,
		}

		values := make([]float64, len(spectra))
		for bin := range out.Coh {
			for i, spec := range spectra {
				values[i] = spec.Coh[bin]
			}

			out.Coh[bin] = reducer(values)
		}

		return out, nil

	default:
		return nil, fmt.Errorf("region %q: unknown reduction mode %d", region.Name, region.Reduction)
	}
}

package coherence

import (
	"fmt"

	"github.com/cwbudde/algo-coherence/stats/reduce"
)

// Band is a named closed frequency interval [LowHz, HighHz].
type Band struct {
	Name   string
	LowHz  float64
	HighHz float64
}

// BandValue is one band-reduced coherence scalar for one pair.
type BandValue struct {
	Band   string
	Ref    string
	Target string
	Value  float64
}

// ReduceBand collapses the spectrum samples whose frequency lies within the
// band (inclusive) into one scalar. reducer nil means arithmetic mean.
func ReduceBand(spec *Spectrum, band Band, reducer reduce.Func) (BandValue, error) {
	if band.HighHz < band.LowHz {
		return BandValue{}, fmt.Errorf("band %q bounds inverted: [%g, %g]", band.Name, band.LowHz, band.HighHz)
	}

	if reducer == nil {
		reducer = reduce.Mean
	}

	var values []float64

	for i, f := range spec.Freqs {
		if f >= band.LowHz && f <= band.HighHz {
			values = append(values, spec.Coh[i])
		}
	}

	if len(values) == 0 {
		return BandValue{}, &EmptyBandError{Band: band.Name, LowHz: band.LowHz, HighHz: band.HighHz}
	}

	return BandValue{
		Band:   band.Name,
		Ref:    spec.Ref,
		Target: spec.Target,
		Value:  reducer(values),
	}, nil
}

// ReduceBands applies ReduceBand to every band. Failing bands are reported
// individually and do not abort sibling bands; callers receive the partial
// value set plus the per-band failures.
func ReduceBands(spec *Spectrum, bands []Band, reducer reduce.Func) ([]BandValue, []error) {
	values := make([]BandValue, 0, len(bands))

	var failures []error

	for _, band := range bands {
		v, err := ReduceBand(spec, band, reducer)
		if err != nil {
			failures = append(failures, err)
			continue
		}

		values = append(values, v)
	}

	return values, failures
}

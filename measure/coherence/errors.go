package coherence

import "fmt"

// PairError reports one failed reference/target computation in a batch.
// Failures are isolated: sibling pairs complete regardless.
type PairError struct {
	Ref    string
	Target string
	Err    error
}

func (e *PairError) Error() string {
	return fmt.Sprintf("%q vs %q: %v", e.Ref, e.Target, e.Err)
}

func (e *PairError) Unwrap() error {
	return e.Err
}

// EmptyBandError reports a frequency band that contains no spectral samples,
// e.g. a band narrower than the frequency resolution or entirely above the
// spectrum's maximum frequency. Fatal to that band's reduction only.
type EmptyBandError struct {
	Band   string
	LowHz  float64
	HighHz float64
}

func (e *EmptyBandError) Error() string {
	return fmt.Sprintf("band %q [%g, %g] Hz contains no spectral samples", e.Band, e.LowHz, e.HighHz)
}

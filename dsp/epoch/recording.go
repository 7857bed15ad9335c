package epoch

import "fmt"

// Event marks a labeled time point in a recording.
type Event struct {
	Label    string
	Onset    float64 // seconds from recording start
	Duration float64 // seconds, 0 for point events
}

// BadSegment flags a contaminated interval. Epochs overlapping it are
// excluded from extraction.
type BadSegment struct {
	Start float64 // seconds, inclusive
	End   float64 // seconds, exclusive
}

// Channel is one named sample array of a recording.
type Channel struct {
	Label   string
	Samples []float64
}

// Recording is a continuous multichannel time series with event markers and
// bad-segment annotations. It is treated as immutable by this package.
type Recording struct {
	SampleRate  float64
	Channels    []Channel
	Events      []Event
	BadSegments []BadSegment
}

// Duration returns the recording length in seconds.
func (r *Recording) Duration() float64 {
	if r.SampleRate <= 0 || len(r.Channels) == 0 {
		return 0
	}

	return float64(len(r.Channels[0].Samples)) / r.SampleRate
}

// Channel returns the channel with the given label.
func (r *Recording) Channel(label string) (*Channel, error) {
	for i := range r.Channels {
		if r.Channels[i].Label == label {
			return &r.Channels[i], nil
		}
	}

	return nil, fmt.Errorf("recording has no channel %q", label)
}

// Validate checks the structural invariants extraction relies on:
// a positive sample rate and equal-length channels.
func (r *Recording) Validate() error {
	if r.SampleRate <= 0 {
		return fmt.Errorf("recording sample rate must be > 0: %f", r.SampleRate)
	}

	if len(r.Channels) == 0 {
		return fmt.Errorf("recording has no channels")
	}

	n := len(r.Channels[0].Samples)
	for _, ch := range r.Channels[1:] {
		if len(ch.Samples) != n {
			return fmt.Errorf("channel %q length mismatch: %d != %d", ch.Label, len(ch.Samples), n)
		}
	}

	return nil
}

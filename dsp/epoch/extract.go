package epoch

import (
	"fmt"
	"iter"
	"math"
	"sort"
)

// Epoch is a fixed-duration extract of a recording anchored at an event
// onset. Samples holds one slice per recording channel, in channel order.
// Invalid epochs carry a nil Samples and the rejection reason in Err.
type Epoch struct {
	Start    float64
	Duration float64
	Samples  [][]float64
	Valid    bool
	Err      error
}

// Config controls epoch extraction.
type Config struct {
	// Label selects the anchoring events.
	Label string

	// Start and End define the epoch span relative to each event onset,
	// in seconds. Start may be negative (pre-stimulus interval).
	Start float64
	End   float64

	// MinDuration permits epochs truncated at the recording end down to
	// this length, in seconds. Zero requires the full [Start, End] span.
	MinDuration float64

	// MaxTotal caps the accumulated duration of yielded valid epochs,
	// in seconds. Zero means unlimited.
	MaxTotal float64
}

// Extractor slices a recording into event-anchored epochs.
type Extractor struct {
	cfg Config
}

// NewExtractor validates the configuration and returns an extractor.
func NewExtractor(cfg Config) (*Extractor, error) {
	if cfg.End <= cfg.Start {
		return nil, fmt.Errorf("epoch window end must be after start: [%g, %g]", cfg.Start, cfg.End)
	}

	if cfg.MinDuration < 0 {
		return nil, fmt.Errorf("epoch minimum duration must be >= 0: %g", cfg.MinDuration)
	}

	if cfg.MinDuration > cfg.End-cfg.Start {
		return nil, fmt.Errorf("epoch minimum duration %g exceeds window length %g", cfg.MinDuration, cfg.End-cfg.Start)
	}

	if cfg.MaxTotal < 0 {
		return nil, fmt.Errorf("epoch max total duration must be >= 0: %g", cfg.MaxTotal)
	}

	return &Extractor{cfg: cfg}, nil
}

// Epochs returns a lazy sequence of candidate epochs for every matching
// event, in event-onset order. Rejected candidates are yielded with
// Valid=false and the rejection reason in Err; callers that only want
// valid epochs should use Extract.
func (x *Extractor) Epochs(rec *Recording) iter.Seq[Epoch] {
	return func(yield func(Epoch) bool) {
		if rec.Validate() != nil {
			return
		}

		events := matchingEvents(rec.Events, x.cfg.Label)
		recDuration := rec.Duration()
		total := 0.0

		for _, ev := range events {
			if x.cfg.MaxTotal > 0 && total >= x.cfg.MaxTotal {
				return
			}

			ep := x.cut(rec, ev, recDuration)
			if ep.Valid {
				total += ep.Duration
			}

			if !yield(ep) {
				return
			}
		}
	}
}

// Extract collects all valid epochs in onset order. It fails with
// [ErrNoValidEpochs] when every candidate was rejected.
func (x *Extractor) Extract(rec *Recording) ([]Epoch, error) {
	if err := rec.Validate(); err != nil {
		return nil, err
	}

	var out []Epoch

	for ep := range x.Epochs(rec) {
		if ep.Valid {
			out = append(out, ep)
		}
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("label %q: %w", x.cfg.Label, ErrNoValidEpochs)
	}

	return out, nil
}

// cut extracts one candidate epoch for the given event.
func (x *Extractor) cut(rec *Recording, ev Event, recDuration float64) Epoch {
	start := ev.Onset + x.cfg.Start
	end := ev.Onset + x.cfg.End

	reject := func(cause error) Epoch {
		return Epoch{
			Start:    start,
			Duration: end - start,
			Err:      &InvalidEpochError{Start: start, End: end, Cause: cause},
		}
	}

	if start < 0 || start >= recDuration {
		return reject(ErrOutOfBounds)
	}

	if end > recDuration {
		// A trailing epoch may be truncated down to MinDuration.
		if x.cfg.MinDuration <= 0 || recDuration-start < x.cfg.MinDuration {
			return reject(ErrOutOfBounds)
		}

		end = recDuration
	}

	for _, bad := range rec.BadSegments {
		if start < bad.End && bad.Start < end {
			return reject(ErrBadSegmentOverlap)
		}
	}

	startIdx := int(math.Round(start * rec.SampleRate))
	endIdx := int(math.Round(end * rec.SampleRate))

	chanLen := len(rec.Channels[0].Samples)
	if startIdx < 0 || endIdx > chanLen || endIdx <= startIdx {
		return reject(ErrOutOfBounds)
	}

	samples := make([][]float64, len(rec.Channels))
	for i := range rec.Channels {
		samples[i] = rec.Channels[i].Samples[startIdx:endIdx:endIdx]
	}

	return Epoch{
		Start:    start,
		Duration: float64(endIdx-startIdx) / rec.SampleRate,
		Samples:  samples,
		Valid:    true,
	}
}

// matchingEvents returns events with the given label sorted by onset.
// The recording's event slice is left untouched.
func matchingEvents(events []Event, label string) []Event {
	out := make([]Event, 0, len(events))
	for _, ev := range events {
		if ev.Label == label {
			out = append(out, ev)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Onset < out[j].Onset
	})

	return out
}

// Command cohgram computes band-averaged magnitude-squared coherence between
// channels of an EDF recording.
//
// Usage:
//
//	cohgram [flags] recording.edf
//
// The recording is cut into epochs, either at a fixed pitch or anchored on
// events from a CSV file, and one reference channel is compared against one
// or more target channels.
//
// Examples:
//
//	cohgram -rate 256 -ref ch0 -targets ch1,ch2 -epoch 2 rec.edf
//	cohgram -rate 500 -ref ch0 -targets ch1 -events stim.csv -label flex -start -0.5 -end 1.5 rec.edf
//	cohgram -rate 256 -ref ch0 -targets ch1 -epoch 2 -bands alpha:8-13,beta:13-30 rec.edf
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/cwbudde/algo-coherence/dsp/epoch"
	"github.com/cwbudde/algo-coherence/dsp/welch"
	"github.com/cwbudde/algo-coherence/dsp/window"
	"github.com/cwbudde/algo-coherence/edfio"
	"github.com/cwbudde/algo-coherence/measure/coherence"
	"github.com/cwbudde/algo-coherence/stats/reduce"
)

var windowTypes = map[string]window.Type{
	"rectangular":     window.TypeRectangular,
	"hann":            window.TypeHann,
	"hamming":         window.TypeHamming,
	"blackman":        window.TypeBlackman,
	"blackman-harris": window.TypeBlackmanHarris,
	"flat-top":        window.TypeFlatTop,
	"tukey":           window.TypeTukey,
	"kaiser":          window.TypeKaiser,
}

const epochLabel = "epoch"

func main() {
	rate := flag.Float64("rate", 0, "recording sample rate in Hz (required)")
	ref := flag.String("ref", "", "reference channel label (required)")
	targets := flag.String("targets", "", "comma-separated target channel labels (required)")

	epochLen := flag.Float64("epoch", 0, "fixed epoch length in seconds")
	eventsPath := flag.String("events", "", "event CSV (label,onset[,duration]) for event-anchored epochs")
	label := flag.String("label", "", "event label to anchor on (with -events)")
	start := flag.Float64("start", 0, "epoch start relative to event onset in seconds")
	end := flag.Float64("end", 1, "epoch end relative to event onset in seconds")
	minDuration := flag.Float64("min-duration", 0, "accept truncated trailing epochs of at least this many seconds")
	maxTotal := flag.Float64("max-total", 0, "cap on accumulated epoch duration in seconds, 0 for no cap")
	badPath := flag.String("bad", "", "bad segment CSV (start,end) in seconds")

	winLen := flag.Int("window", 256, "Welch sub-window length in samples")
	winName := flag.String("taper", "hann", "taper name (rectangular, hann, hamming, blackman, blackman-harris, flat-top, tukey, kaiser)")
	alpha := flag.Float64("alpha", math.NaN(), "taper parameter for tukey and kaiser")
	overlap := flag.Float64("overlap", 0.5, "sub-window overlap fraction in [0, 1)")
	maxFreq := flag.Float64("maxfreq", 0, "truncate the frequency axis at this frequency in Hz, 0 for Nyquist")

	bandsFlag := flag.String("bands", "", "comma-separated bands name:low-high in Hz; empty prints the full spectrum")
	reducerName := flag.String("reducer", "mean", "band statistic: mean, median, or trimmed:<fraction>")
	workers := flag.Int("workers", 0, "concurrent pair computations, 0 for GOMAXPROCS")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: cohgram [flags] recording.edf\n\n")
		fmt.Fprintf(os.Stderr, "Computes band-averaged coherence between EDF channels.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  cohgram -rate 256 -ref ch0 -targets ch1,ch2 -epoch 2 rec.edf\n")
		fmt.Fprintf(os.Stderr, "  cohgram -rate 256 -ref ch0 -targets ch1 -epoch 2 -bands alpha:8-13,beta:13-30 rec.edf\n")
	}
	flag.Parse()

	if flag.NArg() != 1 || *rate <= 0 || *ref == "" || *targets == "" {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(flag.Arg(0), options{
		rate:        *rate,
		ref:         *ref,
		targets:     splitList(*targets),
		epochLen:    *epochLen,
		eventsPath:  *eventsPath,
		label:       *label,
		start:       *start,
		end:         *end,
		minDuration: *minDuration,
		maxTotal:    *maxTotal,
		badPath:     *badPath,
		winLen:      *winLen,
		winName:     *winName,
		alpha:       *alpha,
		overlap:     *overlap,
		maxFreq:     *maxFreq,
		bands:       *bandsFlag,
		reducerName: *reducerName,
		workers:     *workers,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	rate        float64
	ref         string
	targets     []string
	epochLen    float64
	eventsPath  string
	label       string
	start       float64
	end         float64
	minDuration float64
	maxTotal    float64
	badPath     string
	winLen      int
	winName     string
	alpha       float64
	overlap     float64
	maxFreq     float64
	bands       string
	reducerName string
	workers     int
}

func run(path string, opts options) error {
	rec, err := edfio.LoadFile(path, opts.rate)
	if err != nil {
		return err
	}

	if opts.badPath != "" {
		rec.BadSegments, err = loadBadSegments(opts.badPath)
		if err != nil {
			return fmt.Errorf("bad segments: %w", err)
		}
	}

	cfg, err := epochConfig(rec, opts)
	if err != nil {
		return err
	}

	ext, err := epoch.NewExtractor(cfg)
	if err != nil {
		return err
	}

	epochs, err := ext.Extract(rec)
	if err != nil {
		return err
	}

	refIdx, err := channelIndex(rec, opts.ref)
	if err != nil {
		return err
	}

	refSig, err := coherence.SignalFromEpochs(opts.ref, refIdx, epochs)
	if err != nil {
		return err
	}

	targetSigs := make([]coherence.Signal, len(opts.targets))
	for i, name := range opts.targets {
		idx, err := channelIndex(rec, name)
		if err != nil {
			return err
		}

		targetSigs[i], err = coherence.SignalFromEpochs(name, idx, epochs)
		if err != nil {
			return err
		}
	}

	wcfg, err := welchConfig(opts)
	if err != nil {
		return err
	}

	reducer, err := parseReducer(opts.reducerName)
	if err != nil {
		return err
	}

	batchOpts := []coherence.Option{coherence.WithReducer(reducer)}
	if opts.workers > 0 {
		batchOpts = append(batchOpts, coherence.WithWorkers(opts.workers))
	}

	result := coherence.Broadcast(context.Background(), refSig, targetSigs, wcfg, batchOpts...)

	for _, f := range result.Failures {
		fmt.Fprintf(os.Stderr, "warning: %v\n", f)
	}

	bands, err := parseBands(opts.bands)
	if err != nil {
		return err
	}

	if len(bands) == 0 {
		return printSpectra(os.Stdout, result.Spectra)
	}

	return printBands(os.Stdout, result.Spectra, bands, reducer)
}

func epochConfig(rec *epoch.Recording, opts options) (epoch.Config, error) {
	if opts.eventsPath != "" {
		if opts.label == "" {
			return epoch.Config{}, fmt.Errorf("-events requires -label")
		}

		events, err := loadEvents(opts.eventsPath)
		if err != nil {
			return epoch.Config{}, fmt.Errorf("events: %w", err)
		}

		rec.Events = events

		return epoch.Config{
			Label:       opts.label,
			Start:       opts.start,
			End:         opts.end,
			MinDuration: opts.minDuration,
			MaxTotal:    opts.maxTotal,
		}, nil
	}

	if opts.epochLen <= 0 {
		return epoch.Config{}, fmt.Errorf("either -epoch or -events is required")
	}

	// Fixed pitch: synthesize one anchor event per epoch.
	for t := 0.0; t < rec.Duration(); t += opts.epochLen {
		rec.Events = append(rec.Events, epoch.Event{Label: epochLabel, Onset: t})
	}

	return epoch.Config{
		Label:       epochLabel,
		Start:       0,
		End:         opts.epochLen,
		MinDuration: opts.minDuration,
		MaxTotal:    opts.maxTotal,
	}, nil
}

func welchConfig(opts options) (welch.Config, error) {
	typ, ok := windowTypes[strings.ToLower(opts.winName)]
	if !ok {
		return welch.Config{}, fmt.Errorf("unknown taper %q", opts.winName)
	}

	cfg := welch.Config{
		SampleRate:   opts.rate,
		WindowLength: opts.winLen,
		Overlap:      opts.overlap,
		Window:       typ,
		MaxFreq:      opts.maxFreq,
	}

	if !math.IsNaN(opts.alpha) {
		cfg.WindowAlpha = opts.alpha
	}

	return cfg, nil
}

func channelIndex(rec *epoch.Recording, label string) (int, error) {
	for i, ch := range rec.Channels {
		if ch.Label == label {
			return i, nil
		}
	}

	return 0, fmt.Errorf("recording has no channel %q", label)
}

func parseReducer(name string) (reduce.Func, error) {
	switch {
	case name == "mean":
		return reduce.Mean, nil
	case name == "median":
		return reduce.Median, nil
	case strings.HasPrefix(name, "trimmed:"):
		frac, err := strconv.ParseFloat(strings.TrimPrefix(name, "trimmed:"), 64)
		if err != nil {
			return nil, fmt.Errorf("trimmed fraction: %w", err)
		}

		return reduce.TrimmedMean(frac)
	default:
		return nil, fmt.Errorf("unknown reducer %q", name)
	}
}

// parseBands parses "alpha:8-13,beta:13-30" into band definitions.
func parseBands(s string) ([]coherence.Band, error) {
	if s == "" {
		return nil, nil
	}

	var bands []coherence.Band

	for _, part := range splitList(s) {
		name, bounds, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("band %q: expected name:low-high", part)
		}

		lowStr, highStr, ok := strings.Cut(bounds, "-")
		if !ok {
			return nil, fmt.Errorf("band %q: expected name:low-high", part)
		}

		low, err := strconv.ParseFloat(lowStr, 64)
		if err != nil {
			return nil, fmt.Errorf("band %q low bound: %w", part, err)
		}

		high, err := strconv.ParseFloat(highStr, 64)
		if err != nil {
			return nil, fmt.Errorf("band %q high bound: %w", part, err)
		}

		bands = append(bands, coherence.Band{Name: name, LowHz: low, HighHz: high})
	}

	return bands, nil
}

func loadEvents(path string) ([]epoch.Event, error) {
	rows, err := readCSV(path)
	if err != nil {
		return nil, err
	}

	var events []epoch.Event

	for i, row := range rows {
		if len(row) < 2 {
			return nil, fmt.Errorf("row %d: expected label,onset[,duration]", i+1)
		}

		onset, err := strconv.ParseFloat(strings.TrimSpace(row[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("row %d onset: %w", i+1, err)
		}

		ev := epoch.Event{Label: strings.TrimSpace(row[0]), Onset: onset}

		if len(row) > 2 {
			ev.Duration, err = strconv.ParseFloat(strings.TrimSpace(row[2]), 64)
			if err != nil {
				return nil, fmt.Errorf("row %d duration: %w", i+1, err)
			}
		}

		events = append(events, ev)
	}

	return events, nil
}

func loadBadSegments(path string) ([]epoch.BadSegment, error) {
	rows, err := readCSV(path)
	if err != nil {
		return nil, err
	}

	var segments []epoch.BadSegment

	for i, row := range rows {
		if len(row) < 2 {
			return nil, fmt.Errorf("row %d: expected start,end", i+1)
		}

		start, err := strconv.ParseFloat(strings.TrimSpace(row[0]), 64)
		if err != nil {
			return nil, fmt.Errorf("row %d start: %w", i+1, err)
		}

		end, err := strconv.ParseFloat(strings.TrimSpace(row[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("row %d end: %w", i+1, err)
		}

		segments = append(segments, epoch.BadSegment{Start: start, End: end})
	}

	return segments, nil
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	return r.ReadAll()
}

func printSpectra(w io.Writer, spectra []*coherence.Spectrum) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	if _, err := fmt.Fprintf(tw, "Ref\tTarget\tFreq [Hz]\tCoherence\n"); err != nil {
		return err
	}

	for _, spec := range spectra {
		for i, f := range spec.Freqs {
			if _, err := fmt.Fprintf(tw, "%s\t%s\t%.4f\t%.6f\n", spec.Ref, spec.Target, f, spec.Coh[i]); err != nil {
				return err
			}
		}
	}

	return tw.Flush()
}

func printBands(w io.Writer, spectra []*coherence.Spectrum, bands []coherence.Band, reducer reduce.Func) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	if _, err := fmt.Fprintf(tw, "Ref\tTarget\tBand\tRange [Hz]\tCoherence\n"); err != nil {
		return err
	}

	byName := make(map[string]coherence.Band, len(bands))
	for _, b := range bands {
		byName[b.Name] = b
	}

	for _, spec := range spectra {
		values, failures := coherence.ReduceBands(spec, bands, reducer)
		for _, err := range failures {
			fmt.Fprintf(os.Stderr, "warning: %s vs %s: %v\n", spec.Ref, spec.Target, err)
		}

		for _, v := range values {
			b := byName[v.Band]
			if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\t%g-%g\t%.6f\n", v.Ref, v.Target, v.Band, b.LowHz, b.HighHz, v.Value); err != nil {
				return err
			}
		}
	}

	return tw.Flush()
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))

	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}

	return out
}

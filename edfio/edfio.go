// Package edfio adapts EDF/EDF+ files to the recording model used by epoch
// extraction. It maps sample data only; event markers and bad segments are
// attached by the caller, and EDF+ annotation decoding is out of scope.
package edfio

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/OpenPSG/edf"

	"github.com/cwbudde/algo-coherence/dsp/epoch"
)

// ErrNoSignals is returned when a file contains no readable signals.
var ErrNoSignals = errors.New("edf file contains no signals")

const readChunk = 4096

// Load reads every signal of an EDF/EDF+ file into recording channels.
// The reader does not expose per-signal record metadata, so the shared
// sample rate is supplied by the caller; channels are labeled by index
// (ch0, ch1, ...).
func Load(r io.ReadSeeker, sampleRate float64) (*epoch.Recording, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be > 0: %f", sampleRate)
	}

	er, err := edf.Open(r)
	if err != nil {
		return nil, fmt.Errorf("open edf: %w", err)
	}

	rec := &epoch.Recording{SampleRate: sampleRate}

	for i := 0; ; i++ {
		sr, err := er.Signal(i)
		if err != nil {
			break
		}

		samples, err := readAll(sr)
		if err != nil {
			return nil, fmt.Errorf("signal %d: %w", i, err)
		}

		rec.Channels = append(rec.Channels, epoch.Channel{
			Label:   fmt.Sprintf("ch%d", i),
			Samples: samples,
		})
	}

	if len(rec.Channels) == 0 {
		return nil, ErrNoSignals
	}

	if err := rec.Validate(); err != nil {
		return nil, err
	}

	return rec, nil
}

// LoadFile opens path and loads it via Load.
func LoadFile(path string, sampleRate float64) (*epoch.Recording, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Load(f, sampleRate)
}

func readAll(sr *edf.SignalReader) ([]float64, error) {
	var out []float64

	buf := make([]float64, readChunk)

	for {
		n, err := sr.Read(buf)
		out = append(out, buf[:n]...)

		if errors.Is(err, io.EOF) {
			return out, nil
		}

		if err != nil {
			return nil, err
		}

		if n == 0 {
			return out, nil
		}
	}
}

// Write exports a recording to EDF with one-second data records. The sample
// rate must be a whole number and every channel is truncated to a whole
// number of records.
func Write(w io.WriteSeeker, rec *epoch.Recording, patientID, recordingID string) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	samplesPerRecord := int(rec.SampleRate)
	if float64(samplesPerRecord) != rec.SampleRate {
		return fmt.Errorf("sample rate must be a whole number: %f", rec.SampleRate)
	}

	signals := make([]edf.SignalHeader, len(rec.Channels))
	for i, ch := range rec.Channels {
		lo, hi := physicalRange(ch.Samples)

		signals[i] = edf.SignalHeader{
			Label:            ch.Label,
			PhysicalMin:      lo,
			PhysicalMax:      hi,
			DigitalMin:       -32768,
			DigitalMax:       32767,
			SamplesPerRecord: samplesPerRecord,
		}
	}

	ew, err := edf.Create(w, edf.Header{
		Version:            edf.Version0,
		PatientID:          patientID,
		RecordingID:        recordingID,
		StartTime:          time.Now().UTC(),
		DataRecordDuration: time.Second,
		SignalCount:        len(signals),
		Signals:            signals,
	})
	if err != nil {
		return fmt.Errorf("create edf: %w", err)
	}

	records := len(rec.Channels[0].Samples) / samplesPerRecord

	for r := 0; r < records; r++ {
		chunk := make([][]float64, len(rec.Channels))
		for i, ch := range rec.Channels {
			chunk[i] = ch.Samples[r*samplesPerRecord : (r+1)*samplesPerRecord]
		}

		if err := ew.WriteRecord(chunk); err != nil {
			return fmt.Errorf("record %d: %w", r, err)
		}
	}

	return ew.Close()
}

// physicalRange returns calibration bounds covering the sample values.
// EDF calibration maps the physical range onto 16-bit digital values, so
// a degenerate range is widened to keep the mapping invertible.
func physicalRange(samples []float64) (lo, hi float64) {
	lo = math.Inf(1)
	hi = math.Inf(-1)

	for _, v := range samples {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}

	if len(samples) == 0 || lo > hi {
		return -1, 1
	}

	if lo == hi {
		return lo - 1, hi + 1
	}

	return lo, hi
}

package coherence

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/algo-coherence/dsp/welch"
	"github.com/cwbudde/algo-coherence/stats/reduce"
)

func TestBroadcastIsolatesFailures(t *testing.T) {
	ref := noiseSignal(t, "ref", 1, 3, 256)

	targets := []Signal{
		noiseSignal(t, "t1", 10, 3, 256),
		noiseSignal(t, "broken", 20, 2, 256), // wrong segment count
		noiseSignal(t, "t3", 30, 3, 256),
	}

	res := Broadcast(context.Background(), ref, targets, welch.Config{
		SampleRate:   1000,
		WindowLength: 64,
		Overlap:      0.5,
	})

	require.Len(t, res.Spectra, 2)
	require.Len(t, res.Failures, 1)

	// Results keep target order regardless of completion order.
	assert.Equal(t, "t1", res.Spectra[0].Target)
	assert.Equal(t, "t3", res.Spectra[1].Target)

	assert.Equal(t, "ref", res.Failures[0].Ref)
	assert.Equal(t, "broken", res.Failures[0].Target)
	assert.Error(t, res.Failures[0].Err)
}

func TestBroadcastIndependentPerTarget(t *testing.T) {
	ref := noiseSignal(t, "ref", 7, 2, 256)
	tgt := noiseSignal(t, "tgt", 8, 2, 256)

	cfg := welch.Config{SampleRate: 1000, WindowLength: 64, Overlap: 0.5}

	single, err := Compute(ref, tgt, cfg)
	require.NoError(t, err)

	// The same pair inside a batch, surrounded by other targets, must
	// produce the identical spectrum: no cross-target mixing.
	res := Broadcast(context.Background(), ref, []Signal{
		noiseSignal(t, "other1", 40, 2, 256),
		tgt,
		noiseSignal(t, "other2", 50, 2, 256),
	}, cfg, WithWorkers(3))

	require.Len(t, res.Spectra, 3)
	require.Empty(t, res.Failures)

	assert.Equal(t, single.Coh, res.Spectra[1].Coh)
}

func TestPairwiseWithRegions(t *testing.T) {
	refs := []Signal{
		noiseSignal(t, "emgL", 1, 3, 256),
		noiseSignal(t, "emgR", 2, 3, 256),
	}

	targets := []Target{
		noiseSignal(t, "cz", 3, 3, 256),
		Region{
			Name: "motor",
			Members: []Signal{
				noiseSignal(t, "m1", 4, 3, 256),
				noiseSignal(t, "m2", 5, 3, 256),
			},
			Reduction: ReduceCoherenceMean,
		},
	}

	res := Pairwise(context.Background(), refs, targets, welch.Config{
		SampleRate:   1000,
		WindowLength: 64,
		Overlap:      0.5,
	})

	require.Len(t, res.Spectra, 4)
	require.Empty(t, res.Failures)

	// (ref, target) order: emgL x cz, emgL x motor, emgR x cz, emgR x motor.
	assert.Equal(t, "emgL", res.Spectra[0].Ref)
	assert.Equal(t, "cz", res.Spectra[0].Target)
	assert.Equal(t, "motor", res.Spectra[1].Target)
	assert.Equal(t, "emgR", res.Spectra[2].Ref)
	assert.Equal(t, "motor", res.Spectra[3].Target)
}

func TestPairwiseCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ref := noiseSignal(t, "ref", 1, 2, 256)
	targets := []Target{
		noiseSignal(t, "t1", 2, 2, 256),
		noiseSignal(t, "t2", 3, 2, 256),
	}

	res := Pairwise(ctx, []Signal{ref}, targets, welch.Config{
		SampleRate:   1000,
		WindowLength: 64,
	})

	assert.Empty(t, res.Spectra)
	require.Len(t, res.Failures, 2)

	for _, f := range res.Failures {
		assert.True(t, errors.Is(f.Err, context.Canceled), "failure should carry the context error: %v", f.Err)
	}
}

func TestPairwiseEmptyInputs(t *testing.T) {
	res := Pairwise(context.Background(), nil, nil, welch.Config{SampleRate: 1000, WindowLength: 64})

	assert.Empty(t, res.Spectra)
	assert.Empty(t, res.Failures)
}

func TestBatchCustomReducer(t *testing.T) {
	ref := noiseSignal(t, "ref", 9, 2, 256)

	region := Region{
		Name: "scout",
		Members: []Signal{
			noiseSignal(t, "m1", 11, 2, 256),
			noiseSignal(t, "m2", 12, 2, 256),
			noiseSignal(t, "m3", 13, 2, 256),
		},
		Reduction: ReduceCoherenceMean,
	}

	cfg := welch.Config{SampleRate: 1000, WindowLength: 64, Overlap: 0.5}

	meanRes := Pairwise(context.Background(), []Signal{ref}, []Target{region}, cfg)
	require.Len(t, meanRes.Spectra, 1)

	medianRes := Pairwise(context.Background(), []Signal{ref}, []Target{region}, cfg,
		WithReducer(reduce.Median))
	require.Len(t, medianRes.Spectra, 1)

	// Median and mean across three members differ on generic data.
	assert.NotEqual(t, meanRes.Spectra[0].Coh, medianRes.Spectra[0].Coh)
}

func TestBatchWorkerOption(t *testing.T) {
	ref := noiseSignal(t, "ref", 21, 2, 256)

	targets := make([]Signal, 8)
	for i := range targets {
		targets[i] = noiseSignal(t, "t", int64(100+i*7), 2, 256)
	}

	cfg := welch.Config{SampleRate: 1000, WindowLength: 64, Overlap: 0.5}

	serial := Broadcast(context.Background(), ref, targets, cfg, WithWorkers(1))
	parallel := Broadcast(context.Background(), ref, targets, cfg, WithWorkers(4))

	require.Len(t, serial.Spectra, 8)
	require.Len(t, parallel.Spectra, 8)

	// Worker count must not change results.
	for i := range serial.Spectra {
		assert.Equal(t, serial.Spectra[i].Coh, parallel.Spectra[i].Coh)
	}
}

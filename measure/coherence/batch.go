package coherence

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/cwbudde/algo-coherence/dsp/welch"
	"github.com/cwbudde/algo-coherence/stats/reduce"
)

// Target is the right-hand side of a pairwise computation: either a plain
// [Signal] or a [Region].
type Target interface {
	TargetLabel() string
}

// Option configures batch computations.
type Option func(*batchConfig)

type batchConfig struct {
	workers int
	reducer reduce.Func
}

func defaultBatchConfig() batchConfig {
	return batchConfig{
		workers: runtime.GOMAXPROCS(0),
	}
}

// WithWorkers caps the number of concurrent pair computations.
func WithWorkers(n int) Option {
	return func(c *batchConfig) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithReducer sets the statistic used to combine per-member coherence
// values in ReduceCoherenceMean regions. Defaults to the arithmetic mean.
func WithReducer(fn reduce.Func) Option {
	return func(c *batchConfig) {
		if fn != nil {
			c.reducer = fn
		}
	}
}

// BatchResult holds the outcome of a broadcast or pairwise computation:
// every completed spectrum plus one entry per failed pair. A failing pair
// never aborts its siblings.
type BatchResult struct {
	Spectra  []*Spectrum
	Failures []*PairError
}

// Broadcast computes one reference signal against every target signal
// independently (1xN, no cross-target mixing). Cancelling ctx abandons the
// remaining pairs; spectra already computed are returned, and each
// abandoned pair is reported as a failure carrying the context error.
func Broadcast(ctx context.Context, ref Signal, targets []Signal, cfg welch.Config, opts ...Option) BatchResult {
	wrapped := make([]Target, len(targets))
	for i, t := range targets {
		wrapped[i] = t
	}

	return Pairwise(ctx, []Signal{ref}, wrapped, cfg, opts...)
}

// Pairwise computes every signal in refs against every target (|A|x|B|).
// Pair computations are independent and run on a worker pool; results are
// returned in (ref, target) order regardless of completion order.
func Pairwise(ctx context.Context, refs []Signal, targets []Target, cfg welch.Config, opts ...Option) BatchResult {
	bc := defaultBatchConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&bc)
		}
	}

	total := len(refs) * len(targets)
	if total == 0 {
		return BatchResult{}
	}

	workers := bc.workers
	if workers > total {
		workers = total
	}

	spectra := make([]*Spectrum, total)
	failures := make([]*PairError, total)

	jobs := make(chan int)

	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for idx := range jobs {
				ri := idx / len(targets)
				ti := idx % len(targets)

				ref := refs[ri]
				target := targets[ti]

				if err := ctx.Err(); err != nil {
					failures[idx] = &PairError{Ref: ref.Label, Target: target.TargetLabel(), Err: err}
					continue
				}

				spec, err := computePair(ref, target, cfg, bc.reducer)
				if err != nil {
					failures[idx] = &PairError{Ref: ref.Label, Target: target.TargetLabel(), Err: err}
					continue
				}

				spectra[idx] = spec
			}
		}()
	}

	for i := 0; i < total; i++ {
		jobs <- i
	}

	close(jobs)
	wg.Wait()

	out := BatchResult{}

	for i := 0; i < total; i++ {
		if spectra[i] != nil {
			out.Spectra = append(out.Spectra, spectra[i])
		}

		if failures[i] != nil {
			out.Failures = append(out.Failures, failures[i])
		}
	}

	return out
}

func computePair(ref Signal, target Target, cfg welch.Config, reducer reduce.Func) (*Spectrum, error) {
	switch t := target.(type) {
	case Signal:
		return Compute(ref, t, cfg)
	case Region:
		return computeRegion(ref, t, cfg, reducer)
	default:
		return nil, fmt.Errorf("unsupported target type %T", target)
	}
}

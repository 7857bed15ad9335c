// Package coherence computes magnitude-squared coherence between signal
// pairs from Welch-averaged cross spectra.
//
// Signals are epoch collections of single channels. Targets may also be
// regions, groups of channels collapsed either by averaging their samples
// before estimation or by averaging per-member coherence after it. Batch
// helpers fan pairs out over a worker pool and isolate per-pair failures.
package coherence

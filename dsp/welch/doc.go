// Package welch estimates auto- and cross-spectral densities by Welch's
// method: overlapped, tapered sub-windows whose periodograms are averaged.
//
// An Estimator accumulates across any number of equal-rate segments, so
// discontiguous epochs of a recording contribute to one averaged estimate.
// Estimators accumulated independently can be merged, which makes the
// averaging order irrelevant.
package welch

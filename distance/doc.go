// Package distance provides the per-metric capability sets of the forest:
// the ranking distance, the signed split-plane margin, the side decision,
// the two-means split construction and the user-facing distance
// normalization. Angular, Euclidean and Manhattan metrics are supported.
package distance

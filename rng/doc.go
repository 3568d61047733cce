// Package rng provides the deterministic pseudo-random source shared by every
// stage of the melody engine.
//
// What
//
//   - Source wraps a seeded *rand.Rand and exposes the small set of draws the
//     engine needs: floats, bounded integers, Bernoulli trials, weighted
//     choices and in-place shuffles.
//   - SubSeed derives child seeds from a caller seed and structural indices
//     (variant index, phrase index, stage index).
//
// Determinism
//
//	A Source is never shared between goroutines or between components.
//	Components receive their own Source built from SubSeed, so a given
//	(spec, seed) pair always produces the same draws regardless of how many
//	variants run or in which order they are scheduled.
//
// SubSeed arithmetic (stable, part of the public contract):
//
//	h := base
//	for _, idx := range indices {
//	    h = h*1_000_003 + int64(idx+1)*7_919
//	}
//
// Overflow wraps (two's complement), which is well defined in Go.
package rng

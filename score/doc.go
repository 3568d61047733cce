// Package score rates a repaired melody so the generator can pick the best of
// several variants.
//
// The score is a weighted sum of rewards minus weighted penalties:
//
//	rewards:   stepwise-motion ratio, pitch-class variety (normalised
//	           entropy), strong-beat chord-tone rate, non-harmonic resolution
//	           rate, contour direction changes near the target, cadence
//	           compliance weighted by the harmony transition weights, fit of
//	           the duration histogram to the target distribution, skip rate
//	           inside a healthy window
//	penalties: leap size beyond a perfect fifth, same-pitch backtracking,
//	           leaps that are not recovered by contrary step, unresolved
//	           repair entries
//
// Every term is returned in a Breakdown so callers can explain a choice.
//
// Determinism: Score is a pure function of its input.
//
// Complexity: O(n) in the number of events plus O(p) harmony lookups.
package score

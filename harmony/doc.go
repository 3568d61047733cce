// Package harmony implements the functional harmony generator: a weighted
// walk over the chord-root graph producing one chord per harmonic slot.
//
// Slots:
//
//	4/4 places a chord on beats 1 and 3 of every measure except the last
//	measure of a phrase, which holds a single chord on beat 1. 2/4 and 3/4
//	place one chord per measure.
//
// Walk:
//
//	Each phrase opens on the tonic. For every later slot the candidates are
//	the roots reachable from the current root within two graph steps (the
//	current root included). TransitionWeight scores a move from the edge
//	weight, the functional progression bonus (T→PD, PD→D, D→T), the
//	same-function penalty for the phrase stage, the repeated-root penalty,
//	the chord-tone overlap bonus and, before the cadence, a heavy multiplier
//	on retrogressions. A seeded weighted draw picks the next root; when no
//	weight is positive the walk falls back to the nearest root of the
//	expected function, then to the tonic.
//
// Cadence:
//
//	The last three slots of every phrase are overwritten with one pattern of
//	CadenceTails for the phrase's cadence type, so a valid cadence holds
//	regardless of the walk.
//
// Reuse:
//
//	A phrase flagged reuse-with-variation copies the roots of the earlier
//	phrase with the same label and re-applies its own cadence tail.
package harmony

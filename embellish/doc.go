// Package embellish realises a full melody from the rhythm grids and the
// structural anchors.
//
// Every grid onset becomes an attack. Anchor onsets take the skeleton pitch.
// A single weak slot between two anchors A and B tries, in order:
//
//	passing     A and B a third apart: the scale step between them
//	neighbor    B repeats A: a step above or below and back
//	suspension  the harmony changes under the slot, A is dissonant against
//	            the new chord and B steps down: A is held
//	escape      A steps to B: a step away from B, then a leap into it
//
// The first rule whose preconditions hold wins; when it offers several
// pitches the seeded source breaks the tie. Otherwise the nearest chord tone
// of the active harmony is used.
//
// Longer gaps are interpolated toward the next anchor under a per-step cap,
// preferring chord tones on whole beats; an interior skip of three or four
// semitones not followed by a contrary step is corrected afterwards.
//
// Eighth-pair attacks are tagged SmoothingRun, non-chord tones
// ConnectiveNonHarmonic, and the final two attacks of each phrase Cadence.
package embellish

// Package theory holds the small amount of tonal music theory the melody engine
// relies on: keys and modes, scale degrees, diatonic triads, pitch-class sets,
// MIDI note names, rhythmic duration classes and meters.
//
// Conventions
//
//   - Pitch classes are 0..11 with 0 = C.
//   - MIDI 60 is C4 (scientific pitch notation).
//   - Scale degrees are 1..7. In minor the scale is natural minor; the raised
//     leading tone belongs to the V and vii° triads and is reported as degree 7.
//   - Beats are 1-based within a measure and may be fractional (2.5 is the
//     eighth after beat 2).
//
// Everything here is pure and allocation-light; no function panics on
// user-controlled input.
package theory

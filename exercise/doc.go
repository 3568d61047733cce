// Package exercise defines the ExerciseSpec record consumed by the generator,
// its defaults, and fail-fast input validation.
//
// Validation covers the input-validation error class: malformed rhythm-weight
// totals, empty or over-sized allowed-duration sets, duration sets that match
// no rhythmic template, eighth-pair quotas that no template can satisfy, and
// malformed key, meter, register, phrase or degree fields. Every failure wraps
// ErrInvalidSpec and a more specific sentinel so callers can branch with
// errors.Is and still surface the message verbatim.
//
// Resolve turns a Spec into a Resolved value with parsed key, MIDI register
// bounds, duration bit-set, normalised rhythm distribution and rule lookups.
// Downstream packages only ever see Resolved values.
package exercise

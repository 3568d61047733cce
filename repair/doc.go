// Package repair implements the constraint repair pipeline: an ordered list
// of idempotent, deterministic passes that rewrite a realised melody in place
// until the hard rhythmic, tessitura and leap invariants hold and the user
// legality rules are enforced wherever a movable attack allows it.
//
// Default order:
//
//	Quantize → EighthPair → Opening → Leap → Register → EighthMotion →
//	Cadence → IllegalRules → Leap → Register → MergeRepeats
//
// followed by notation normalisation and Assert.
//
// Every fix is an ordered list of Strategy values tried in sequence; each
// reports present/absent and the first success wins. Every attempt, failed or
// not, appends an Entry to the Log, which is mirrored to a zap.Logger at
// Debug (unresolved outcomes at Warn).
//
// Locked attacks (anchor, structural, climax, cadence, edited) keep their
// pitch class under the illegal-rule loop; a violation on a locked attack is
// logged as unresolved and left in place. Octave substitution is allowed on
// locked attacks, and the leap pass may unlock and retune an inner anchor as
// a last resort.
//
// Assert checks the internal invariants (measure sums, duration classes,
// paired eighths, register, leap cap). A failure wraps ErrInvariant and is a
// defect, never a user-facing condition.
package repair

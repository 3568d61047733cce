// Package generator orchestrates one exercise generation end to end.
//
// Generate validates the ExerciseSpec, then runs a fixed number of
// independent variants. Variant v uses the sub-seed rng.SubSeed(seed, v) and
// walks the whole engine:
//
//	harmony → contour + rhythm per phrase → skeleton → embellish →
//	pitch overrides → repair → score
//
// and the highest-scoring variant is returned, ties going to the lower
// variant index. Variants share no mutable state and may run on a bounded
// worker pool (WithConcurrency); results do not depend on the pool size.
//
// Errors are split three ways:
//
//   - an invalid spec returns an error wrapping exercise.ErrInvalidSpec;
//   - when every variant hits an anchor with no legal candidate, Generate
//     returns a Result whose Infeasible field names the illegal degree,
//     interval and transition sets (not an error);
//   - a repaired melody that breaks an internal invariant returns an error
//     wrapping repair.ErrInvariant.
//
// Pitch overrides (WithOverrides) are keyed by the stable attack ID; they are
// applied after realisation, tagged Edited and locked, so the same edit on
// the same spec and seed survives regeneration.
package generator

// Package rhythm implements the phrase rhythm (grid) planner.
//
// What:
//
//	A fixed per-meter catalog of measure templates (onset lists in 1-based
//	beats) and a planner that assigns one template to every measure of a
//	phrase. Durations derive from the gaps between consecutive onsets and the
//	bar line, so every template fills its measure exactly.
//
// Selection order per phrase:
//
//  1. cadence measure (last)   → cadence family (whole or two halves);
//  2. climax measure           → climax family (long note then quarters);
//  3. eighth-pair quota        → smoothing/run templates force-assigned to
//     non-cadence, non-climax measures in seeded order;
//  4. every other measure      → best fit of the plan's duration-class
//     histogram against the target distribution (L1), weighted draw among
//     candidates within FitTolerance of the best, with a repetition penalty.
//
// A family that has no member legal under the allowed duration set falls back
// to any legal template. An allowed set with no legal template at all is an
// input-validation failure (ErrNoTemplate), as is an unsatisfiable quota
// (ErrEighthQuota); CheckFeasible reports both before generation starts.
//
// Determinism:
//
//	All draws go through the *rng.Source handed in; identical sources yield
//	identical plans.
//
// Complexity:
//
//	O(M·T) per phrase for M measures and T catalog templates (T ≤ 10).
package rhythm

// Package contour implements the phrase contour planner.
//
// A Plan fixes, per phrase, a shape (ascending, descending, arch, inverted
// arch or wave), a peak measure and degree, a start degree and an ordered
// cadence degree pair, and emits weighted scale-degree targets on strong
// beats. Targets carry a diatonic height (Step, scale steps above the tonic,
// negative below) so later stages can place them in the register; Degree is
// that height folded into 1..7.
//
// Heights are interpolated linearly from the start to the peak and from the
// peak to the penultimate cadence target, bent by a sine dip for inverted
// arches and by a sine ripple for waves. Targets are deduplicated by
// (measure, beat) keeping the highest priority.
//
// In a low register a direct move between degree 1 and degree 7 by more than
// a step is bridged with a degree 2 or 3 target between the pair.
package contour

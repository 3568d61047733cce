// Package skeleton implements the structural skeleton builder: one pitch per
// strong-beat anchor, chosen by minimising a weighted cost.
//
// Candidates:
//
//	chord tones of the active harmony inside the register whose degree is
//	legal. The first anchor of a phrase is filtered toward the start degree
//	and the final anchors toward the cadence degree; an empty filter falls
//	back to the unfiltered candidates. Illegal intervals and transitions
//	apply only between anchors that are consecutive attacks, under
//	relaxation tiers (exercise.Tier). Illegal degrees are never relaxed: an
//	anchor with no legal chord tone in register is infeasible and Build
//	returns an *Infeasible error wrapping ErrInfeasible.
//
// Cost (lower is better):
//
//	WEnvelope·|p − envelope|           envelope = mid + amp·sin(π·t)
//	WTarget·priority·|p − target|      contour target placed in register
//	WVoice·|p − prev| + surcharge      above a perfect fifth
//	WNonChord                          when p is not a chord tone
//	WCeiling                           near the top, except at the climax
//	endpoint gravity                   tonic rewarded, dominant penalised
//	climax shaping                     ascent before, stepwise descent after
//	WRecovery                          leap not recovered by a contrary step
//
// Ties go to the smallest distance from the previous pitch, then the lower
// pitch. A final climax repair makes the climax anchor the unique maximum.
package skeleton

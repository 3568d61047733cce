// Package dtw measures how closely two melodic profiles match when one may
// be stretched against the other, using Dynamic Time Warping.
//
// A profile is any numeric series: signed intervals between attacks, pitch
// heights, or onsets. DTW aligns the two series monotonically, paying
// |a[i]-b[j]| for every matched pair plus SlopePenalty for each step that
// advances only one side:
//
//	D[0][0] = 0, D[i][0] = D[0][j] = +Inf
//	D[i][j] = |a[i-1]-b[j-1]| + min(D[i-1][j-1], D[i-1][j]+p, D[i][j-1]+p)
//
// An optional Sakoe-Chiba band (WithWindow) keeps |i-j| <= w so a varied
// phrase is compared with its source bar by bar rather than freely.
//
// Distance keeps two rows of D; Align keeps the full matrix and also
// returns the warping path.
//
// Complexity: O(n·m) time; O(m) memory for Distance, O(n·m) for Align.
package dtw

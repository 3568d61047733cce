package exercise

import "github.com/katalvlaran/melodia/theory"

// Default values used by Default.
const (
	DefaultMeasures       = 4
	DefaultMaxLeap        = 9
	DefaultMaxLargeLeaps  = 1
	DefaultMinEighthPairs = 1
)

// Default returns C major, C4–C5, one four-measure phrase with an authentic
// cadence in 4/4.
func Default() Spec {
	return Spec{
		Key:               "C",
		Mode:              theory.Major,
		Low:               Pitch{Degree: 1, Octave: 4},
		High:              Pitch{Degree: 1, Octave: 5},
		Phrases:           []Phrase{{Label: "A", Cadence: Authentic}},
		MeasuresPerPhrase: DefaultMeasures,
		Meter:             theory.CommonTime,
		Rhythm:            RhythmWeights{Whole: 0.10, Half: 0.20, Quarter: 0.55, Eighth: 0.15},
		Constraints: Constraints{
			MaxLeap:          DefaultMaxLeap,
			MaxLargeLeaps:    DefaultMaxLargeLeaps,
			MinEighthPairs:   DefaultMinEighthPairs,
			AllowedDurations: []theory.Duration{theory.Eighth, theory.Quarter, theory.Half},
		},
	}
}

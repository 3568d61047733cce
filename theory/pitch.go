package theory

import (
	"fmt"
	"math/bits"
)

var (
	sharpNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}
	flatNames  = [12]string{"C", "Db", "D", "Eb", "E", "F", "Gb", "G", "Ab", "A", "Bb", "B"}
)

// PitchName spells a MIDI number as name+octave, e.g. 60 → "C4".
func PitchName(midi int, flats bool) string {
	if midi < 0 {
		return fmt.Sprintf("?%d", midi)
	}
	names := sharpNames
	if flats {
		names = flatNames
	}

	return fmt.Sprintf("%s%d", names[midi%12], midi/12-1)
}

// NameOf spells midi using the key's accidental preference.
func (k Key) NameOf(midi int) string { return PitchName(midi, k.flats) }

// PCSet is a set of pitch classes stored as a 12-bit mask.
type PCSet uint16

// Add returns the set with pc added.
func (s PCSet) Add(pc int) PCSet { return s | 1<<uint(((pc%12)+12)%12) }

// Has reports membership of pc.
func (s PCSet) Has(pc int) bool { return s&(1<<uint(((pc%12)+12)%12)) != 0 }

// Union returns s ∪ o.
func (s PCSet) Union(o PCSet) PCSet { return s | o }

// Intersect returns s ∩ o.
func (s PCSet) Intersect(o PCSet) PCSet { return s & o }

// Len is the cardinality of the set.
func (s PCSet) Len() int { return bits.OnesCount16(uint16(s)) }

// Slice lists members in ascending order.
func (s PCSet) Slice() []int {
	out := make([]int, 0, s.Len())
	for pc := 0; pc < 12; pc++ {
		if s.Has(pc) {
			out = append(out, pc)
		}
	}

	return out
}

// Interval helpers shared by the planners and the repair passes.
const (
	// StepMax is the largest interval, in semitones, counted as a step.
	StepMax = 2
	// SkipMax is the largest skip (a third) before motion counts as a leap proper.
	SkipMax = 4
	// PerfectFourth in semitones.
	PerfectFourth = 5
	// PerfectFifth in semitones.
	PerfectFifth = 7
	// LargeLeapMin is the smallest interval counted against the large-leap budget.
	LargeLeapMin = 6
)

// Abs returns |x|.
func Abs(x int) int {
	if x < 0 {
		return -x
	}

	return x
}

// IsStep reports a move of one or two semitones.
func IsStep(a, b int) bool {
	d := Abs(b - a)

	return d >= 1 && d <= StepMax
}

// IsLeap reports a move of three or more semitones.
func IsLeap(a, b int) bool { return Abs(b-a) > StepMax }

// Sign returns -1, 0 or 1.
func Sign(x int) int {
	switch {
	case x < 0:
		return -1
	case x > 0:
		return 1
	}

	return 0
}

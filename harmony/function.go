package harmony

import "github.com/katalvlaran/melodia/exercise"

// Function is a tonal function.
type Function int

const (
	// Other covers degrees outside the T/PD/D groups (the mediant).
	Other Function = iota
	Tonic
	Predominant
	Dominant
)

var functionNames = [...]string{"X", "T", "PD", "D"}

func (f Function) String() string {
	if f < Other || f > Dominant {
		return "?"
	}

	return functionNames[f]
}

// MarshalText implements encoding.TextMarshaler.
func (f Function) MarshalText() ([]byte, error) { return []byte(f.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Function) UnmarshalText(b []byte) error {
	for i, n := range functionNames {
		if n == string(b) {
			*f = Function(i)
			return nil
		}
	}
	*f = Other

	return nil
}

// FunctionOf classifies a chord root degree.
func FunctionOf(degree int) Function {
	switch degree {
	case 1, 6:
		return Tonic
	case 2, 4:
		return Predominant
	case 5, 7:
		return Dominant
	default:
		return Other
	}
}

// expected returns the function a progression from f moves to.
func (f Function) expected() Function {
	switch f {
	case Tonic:
		return Predominant
	case Predominant:
		return Dominant
	default:
		return Tonic
	}
}

// progresses reports whether from → to is a forward functional move.
func progresses(from, to Function) bool {
	return (from == Tonic && to == Predominant) ||
		(from == Predominant && to == Dominant) ||
		(from == Dominant && to == Tonic)
}

// retrogresses reports whether from → to runs against the progression.
func retrogresses(from, to Function) bool {
	return (from == Dominant && to == Predominant) || (from == Predominant && to == Tonic)
}

// Stage is the position of a slot within its phrase.
type Stage int

const (
	StageOpening Stage = iota
	StageMiddle
	StagePreCadence
	StageCadence
)

// StageOf returns the stage of a local 1-based measure in a phrase of n measures.
func StageOf(local, n int) Stage {
	switch {
	case local >= n:
		return StageCadence
	case local >= n-2:
		return StagePreCadence
	case local == 1:
		return StageOpening
	default:
		return StageMiddle
	}
}

// CadenceTails lists the patterns forced onto the last three slots.
var CadenceTails = map[exercise.CadenceType][][3]int{
	exercise.Authentic:   {{4, 5, 1}, {2, 5, 1}, {6, 5, 1}},
	exercise.Plagal:      {{1, 4, 1}, {6, 4, 1}, {2, 4, 1}},
	exercise.HalfCadence: {{1, 4, 5}, {6, 2, 5}, {1, 2, 5}},
}

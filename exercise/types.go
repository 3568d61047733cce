package exercise

import (
	"errors"
	"fmt"
	"strings"

	"github.com/katalvlaran/melodia/theory"
)

// Sentinel errors for input validation.
var (
	// ErrInvalidSpec wraps every validation failure.
	ErrInvalidSpec = errors.New("exercise: invalid spec")

	// ErrEmptyDurations indicates no allowed duration classes.
	ErrEmptyDurations = errors.New("exercise: allowed durations empty")

	// ErrTooManyDurations indicates all four duration classes were allowed.
	ErrTooManyDurations = errors.New("exercise: at most three duration classes may be allowed")

	// ErrRhythmWeights indicates negative, non-finite or mis-totalled rhythm weights.
	ErrRhythmWeights = errors.New("exercise: malformed rhythm weights")

	// ErrRegister indicates an unusable register.
	ErrRegister = errors.New("exercise: invalid register")

	// ErrPhrases indicates an empty phrase list or too few measures.
	ErrPhrases = errors.New("exercise: invalid phrase structure")

	// ErrLeapCap indicates a leap cap or large-leap budget out of range.
	ErrLeapCap = errors.New("exercise: invalid leap limits")

	// ErrDegree indicates a scale degree outside 1..7.
	ErrDegree = errors.New("exercise: degree out of range")
)

// CadenceType selects the cadence tail of a phrase.
type CadenceType int

const (
	// Authentic ends V–I.
	Authentic CadenceType = iota
	// Plagal ends IV–I.
	Plagal
	// HalfCadence ends on V.
	HalfCadence
)

var cadenceNames = [...]string{"authentic", "plagal", "half"}

func (c CadenceType) String() string {
	if c < Authentic || c > HalfCadence {
		return "unknown"
	}

	return cadenceNames[c]
}

// MarshalText implements encoding.TextMarshaler.
func (c CadenceType) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *CadenceType) UnmarshalText(b []byte) error {
	name := strings.ToLower(strings.TrimSpace(string(b)))
	for i, n := range cadenceNames {
		if n == name {
			*c = CadenceType(i)
			return nil
		}
	}

	return fmt.Errorf("%w: unknown cadence %q", ErrInvalidSpec, name)
}

// Phrase describes one phrase of the exercise.
type Phrase struct {
	Label   string      `json:"label"`
	Reuse   bool        `json:"reuse"`
	Cadence CadenceType `json:"cadence"`
}

// Pitch is a register bound as scale degree plus scientific octave.
type Pitch struct {
	Degree int `json:"degree"`
	Octave int `json:"octave"`
}

// Transition is a forbidden adjacent-degree move.
type Transition struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// RhythmWeights is the target duration-class distribution.
// Totals must be ~1 (fractions) or ~100 (percentages).
type RhythmWeights struct {
	Whole   float64 `json:"whole"`
	Half    float64 `json:"half"`
	Quarter float64 `json:"quarter"`
	Eighth  float64 `json:"eighth"`
}

// Constraints are the user's hard constraints.
type Constraints struct {
	// LockedStartDegree pins the first note's degree; 0 leaves it free.
	LockedStartDegree int `json:"locked_start_degree,omitempty"`
	// HardTonicStart forces the first note onto the tonic pitch class.
	HardTonicStart bool `json:"hard_tonic_start"`
	// Cadence, when set, overrides every phrase's cadence type.
	Cadence *CadenceType `json:"cadence,omitempty"`
	// MaxLeap is the leap cap in semitones.
	MaxLeap int `json:"max_leap"`
	// MaxLargeLeaps bounds leaps of LargeLeapMin semitones or more per phrase.
	MaxLargeLeaps int `json:"max_large_leaps"`
	// MinEighthPairs is the per-phrase eighth-pair quota.
	MinEighthPairs int `json:"min_eighth_pairs"`
	// AllowedDurations must be non-empty with at most three members.
	AllowedDurations []theory.Duration `json:"allowed_durations"`
}

// Spec is the ExerciseSpec record.
type Spec struct {
	Key                string        `json:"key"`
	Mode               theory.Mode   `json:"mode"`
	Low                Pitch         `json:"low"`
	High               Pitch         `json:"high"`
	Phrases            []Phrase      `json:"phrases"`
	MeasuresPerPhrase  int           `json:"measures_per_phrase"`
	Meter              theory.Meter  `json:"meter"`
	AllowChromatic     bool          `json:"allow_chromatic"`
	IllegalDegrees     []int         `json:"illegal_degrees,omitempty"`
	IllegalIntervals   []int         `json:"illegal_intervals,omitempty"`
	IllegalTransitions []Transition  `json:"illegal_transitions,omitempty"`
	Rhythm             RhythmWeights `json:"rhythm"`
	Constraints        Constraints   `json:"constraints"`
}

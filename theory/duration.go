package theory

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrUnknownDuration indicates a duration name or beat length outside the
// eighth/quarter/half/whole classes.
var ErrUnknownDuration = errors.New("theory: unknown duration class")

// Duration is a notated duration class.
type Duration int

const (
	// Eighth lasts half a beat.
	Eighth Duration = iota
	// Quarter lasts one beat.
	Quarter
	// Half lasts two beats.
	Half
	// Whole lasts four beats.
	Whole
)

// AllDurations lists classes from shortest to longest.
var AllDurations = []Duration{Eighth, Quarter, Half, Whole}

var durationNames = [...]string{"eighth", "quarter", "half", "whole"}

// Beats returns the length of d in quarter-note beats.
func (d Duration) Beats() float64 {
	switch d {
	case Eighth:
		return 0.5
	case Quarter:
		return 1
	case Half:
		return 2
	case Whole:
		return 4
	}

	return 0
}

func (d Duration) String() string {
	if d < Eighth || d > Whole {
		return "unknown"
	}

	return durationNames[d]
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	name := strings.ToLower(strings.TrimSpace(string(b)))
	for i, n := range durationNames {
		if n == name {
			*d = Duration(i)
			return nil
		}
	}

	return fmt.Errorf("%w: %q", ErrUnknownDuration, name)
}

// DurationForBeats maps an exact beat length to its class.
func DurationForBeats(beats float64) (Duration, bool) {
	for _, d := range AllDurations {
		if math.Abs(d.Beats()-beats) < 1e-9 {
			return d, true
		}
	}

	return 0, false
}

// DurationSet is a bit-set of duration classes.
type DurationSet uint8

// NewDurationSet builds a set from classes.
func NewDurationSet(ds ...Duration) DurationSet {
	var s DurationSet
	for _, d := range ds {
		s = s.Add(d)
	}

	return s
}

// Add returns the set with d added.
func (s DurationSet) Add(d Duration) DurationSet { return s | 1<<uint(d) }

// Has reports membership.
func (s DurationSet) Has(d Duration) bool { return d >= Eighth && d <= Whole && s&(1<<uint(d)) != 0 }

// Len is the number of classes in the set.
func (s DurationSet) Len() int {
	n := 0
	for _, d := range AllDurations {
		if s.Has(d) {
			n++
		}
	}

	return n
}

// Slice lists members shortest first.
func (s DurationSet) Slice() []Duration {
	out := make([]Duration, 0, 4)
	for _, d := range AllDurations {
		if s.Has(d) {
			out = append(out, d)
		}
	}

	return out
}

// AllowsBeats reports whether a length in beats is a member class.
func (s DurationSet) AllowsBeats(beats float64) bool {
	d, ok := DurationForBeats(beats)

	return ok && s.Has(d)
}

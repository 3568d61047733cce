package theory

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Sentinel errors for key and mode parsing.
var (
	// ErrUnknownKey indicates a key name that is not a note letter with an optional accidental.
	ErrUnknownKey = errors.New("theory: unknown key name")

	// ErrUnknownMode indicates a mode other than major or minor.
	ErrUnknownMode = errors.New("theory: unknown mode")
)

// Mode is the tonal mode of a key.
type Mode int

const (
	// Major is the Ionian mode.
	Major Mode = iota
	// Minor is natural minor with a raised leading tone in dominant harmony.
	Minor
)

// String returns "major" or "minor".
func (m Mode) String() string {
	if m == Minor {
		return "minor"
	}

	return "major"
}

// ParseMode accepts "major"/"minor" in any case, plus "maj"/"min".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "major", "maj", "":
		return Major, nil
	case "minor", "min":
		return Minor, nil
	}

	return Major, fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(b []byte) error {
	v, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = v

	return nil
}

var (
	majorSteps = [7]int{0, 2, 4, 5, 7, 9, 11}
	minorSteps = [7]int{0, 2, 3, 5, 7, 8, 10}

	letterPC = map[byte]int{'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11}

	// flat-side keys by mode, used for spelling pitch names.
	flatMajors = map[int]bool{5: true, 10: true, 3: true, 8: true, 1: true, 6: true}
	flatMinors = map[int]bool{2: true, 7: true, 0: true, 5: true, 10: true, 3: true, 8: true}
)

// Key is a tonic pitch class plus a mode.
type Key struct {
	Name  string
	Tonic int
	Mode  Mode
	flats bool
}

// ParseKey parses names such as "C", "f#", "Bb" or "Eb" for the given mode.
func ParseKey(name string, mode Mode) (Key, error) {
	n := strings.TrimSpace(name)
	if n == "" {
		return Key{}, fmt.Errorf("%w: empty", ErrUnknownKey)
	}
	letter := strings.ToUpper(n[:1])[0]
	pc, ok := letterPC[letter]
	if !ok {
		return Key{}, fmt.Errorf("%w: %q", ErrUnknownKey, name)
	}
	flatName := false
	switch rest := n[1:]; rest {
	case "":
	case "#", "s", "sharp":
		pc++
	case "b", "flat":
		pc--
		flatName = true
	default:
		return Key{}, fmt.Errorf("%w: %q", ErrUnknownKey, name)
	}
	pc = (pc + 12) % 12

	k := Key{Name: string(letter) + n[1:], Tonic: pc, Mode: mode}
	switch {
	case flatName:
		k.flats = true
	case strings.Contains(n, "#"):
		k.flats = false
	case mode == Major:
		k.flats = flatMajors[pc]
	default:
		k.flats = flatMinors[pc]
	}

	return k, nil
}

// PrefersFlats reports whether pitch names in this key are spelled with flats.
func (k Key) PrefersFlats() bool { return k.flats }

// String returns e.g. "C major".
func (k Key) String() string { return k.Name + " " + k.Mode.String() }

func (k Key) steps() [7]int {
	if k.Mode == Minor {
		return minorSteps
	}

	return majorSteps
}

// wrapDegree folds any integer degree into 1..7.
func wrapDegree(deg int) int {
	return ((deg-1)%7+7)%7 + 1
}

// DegreePC returns the pitch class of scale degree deg (wrapped into 1..7).
func (k Key) DegreePC(deg int) int {
	return (k.Tonic + k.steps()[wrapDegree(deg)-1]) % 12
}

// LeadingTonePC is the pitch class a semitone below the tonic.
func (k Key) LeadingTonePC() int { return (k.Tonic + 11) % 12 }

// DegreeOf maps a pitch class to its scale degree. In minor the raised
// leading tone maps to 7. ok is false for chromatic pitch classes.
func (k Key) DegreeOf(pc int) (deg int, ok bool) {
	pc = ((pc % 12) + 12) % 12
	st := k.steps()
	for i, s := range st {
		if (k.Tonic+s)%12 == pc {
			return i + 1, true
		}
	}
	if k.Mode == Minor && pc == k.LeadingTonePC() {
		return 7, true
	}

	return 0, false
}

// DegreeOfMIDI is DegreeOf applied to a MIDI note number.
func (k Key) DegreeOfMIDI(midi int) (int, bool) { return k.DegreeOf(midi % 12) }

// ScalePCs returns the diatonic pitch-class set. With raisedLeading the
// minor-mode leading tone is added; it has no effect in major.
func (k Key) ScalePCs(raisedLeading bool) PCSet {
	var s PCSet
	for deg := 1; deg <= 7; deg++ {
		s = s.Add(k.DegreePC(deg))
	}
	if raisedLeading && k.Mode == Minor {
		s = s.Add(k.LeadingTonePC())
	}

	return s
}

// MIDI returns the MIDI number of scale degree deg whose scientific octave
// number is octave (degree 1 octave 4 in C is 60).
func (k Key) MIDI(deg, octave int) int {
	return 12*(octave+1) + k.DegreePC(deg)
}

// Tones lists every MIDI number in [lo,hi] whose pitch class is in pcs, ascending.
func Tones(lo, hi int, pcs PCSet) []int {
	if hi < lo {
		return nil
	}
	out := make([]int, 0, (hi-lo+1)*pcs.Len()/12+1)
	for m := lo; m <= hi; m++ {
		if pcs.Has(m % 12) {
			out = append(out, m)
		}
	}

	return out
}

// Step returns the diatonic tone steps scale steps away from midi.
// midi must be diatonic (the raised leading tone is treated as degree 7).
// ok is false for chromatic input or when the result leaves MIDI 0..127.
func (k Key) Step(midi, steps int) (int, bool) {
	if _, ok := k.DegreeOfMIDI(midi); !ok {
		return 0, false
	}
	base := midi
	if k.Mode == Minor && midi%12 == k.LeadingTonePC() {
		base = midi - 1 // natural seventh anchors the step grid
	}
	scale := Tones(0, 127, k.ScalePCs(false))
	i := sort.SearchInts(scale, base)
	if i >= len(scale) || scale[i] != base {
		return 0, false
	}
	j := i + steps
	if j < 0 || j >= len(scale) {
		return 0, false
	}

	return scale[j], true
}

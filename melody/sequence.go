package melody

import (
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/katalvlaran/melodia/theory"
)

const beatEps = 1e-9

// Sequence is an owned, ordered run of events plus the notation context
// needed to respell and re-notate them.
type Sequence struct {
	Key     theory.Key
	Meter   theory.Meter
	Allowed theory.DurationSet
	Events  []Event
}

// Clone returns a deep copy.
func (s *Sequence) Clone() *Sequence {
	c := *s
	c.Events = append([]Event(nil), s.Events...)

	return &c
}

// Len returns the number of events.
func (s *Sequence) Len() int { return len(s.Events) }

// Attacks returns the indices of attack events in order.
func (s *Sequence) Attacks() []int {
	out := make([]int, 0, len(s.Events))
	for i, e := range s.Events {
		if e.Attack {
			out = append(out, i)
		}
	}

	return out
}

// AttackEvents returns copies of the attack events in order.
func (s *Sequence) AttackEvents() []Event {
	out := make([]Event, 0, len(s.Events))
	for _, e := range s.Events {
		if e.Attack {
			out = append(out, e)
		}
	}

	return out
}

// PrevAttack returns the nearest attack before i, or -1.
func (s *Sequence) PrevAttack(i int) int {
	for j := i - 1; j >= 0; j-- {
		if s.Events[j].Attack {
			return j
		}
	}

	return -1
}

// NextAttack returns the nearest attack after i, or -1.
func (s *Sequence) NextAttack(i int) int {
	for j := i + 1; j < len(s.Events); j++ {
		if s.Events[j].Attack {
			return j
		}
	}

	return -1
}

// Find returns the index of the attack with id, or -1.
func (s *Sequence) Find(id uuid.UUID) int {
	for i, e := range s.Events {
		if e.Attack && e.ID == id {
			return i
		}
	}

	return -1
}

// Measures returns the distinct measure numbers in order.
func (s *Sequence) Measures() []int {
	var out []int
	for _, e := range s.Events {
		if len(out) == 0 || out[len(out)-1] != e.Measure {
			out = append(out, e.Measure)
		}
	}

	return out
}

// MeasureRange returns the half-open index range [lo, hi) of measure m.
func (s *Sequence) MeasureRange(m int) (lo, hi int) {
	lo = sort.Search(len(s.Events), func(i int) bool { return s.Events[i].Measure >= m })
	hi = lo
	for hi < len(s.Events) && s.Events[hi].Measure == m {
		hi++
	}

	return lo, hi
}

// PhraseRange returns the half-open index range [lo, hi) of phrase p.
func (s *Sequence) PhraseRange(p int) (lo, hi int) {
	lo = sort.Search(len(s.Events), func(i int) bool { return s.Events[i].Phrase >= p })
	hi = lo
	for hi < len(s.Events) && s.Events[hi].Phrase == p {
		hi++
	}

	return lo, hi
}

// Phrases returns the number of phrases covered.
func (s *Sequence) Phrases() int {
	if len(s.Events) == 0 {
		return 0
	}

	return s.Events[len(s.Events)-1].Phrase + 1
}

// MeasureSum returns the total beat length of measure m.
func (s *Sequence) MeasureSum(m int) float64 {
	lo, hi := s.MeasureRange(m)
	sum := 0.0
	for _, e := range s.Events[lo:hi] {
		sum += e.Beats
	}

	return sum
}

// SetPitch retunes attack i and its trailing continuations.
func (s *Sequence) SetPitch(i, midi int, reason string) {
	name := s.Key.NameOf(midi)
	s.Events[i].MIDI = midi
	s.Events[i].Pitch = name
	if reason != "" {
		s.Events[i].Reason = reason
	}
	for j := i + 1; j < len(s.Events) && !s.Events[j].Attack; j++ {
		s.Events[j].MIDI = midi
		s.Events[j].Pitch = name
	}
}

// Interval returns the semitone distance from the attack before i to i, and
// false when i has no preceding attack.
func (s *Sequence) Interval(i int) (int, bool) {
	p := s.PrevAttack(i)
	if p < 0 {
		return 0, false
	}

	return s.Events[i].MIDI - s.Events[p].MIDI, true
}

// IsPairHead reports whether attack i opens an eighth pair.
func (s *Sequence) IsPairHead(i int) bool {
	e := s.Events[i]
	if !e.Attack || !e.IsEighth() || !theory.IsOnBeat(e.Onset) || i+1 >= len(s.Events) {
		return false
	}
	n := s.Events[i+1]

	return n.Attack && n.IsEighth() && n.Measure == e.Measure && math.Abs(n.Onset-e.Onset-0.5) < beatEps
}

// IsPairTail reports whether attack i closes an eighth pair.
func (s *Sequence) IsPairTail(i int) bool { return i > 0 && s.IsPairHead(i-1) }

// InPair reports whether attack i belongs to an eighth pair.
func (s *Sequence) InPair(i int) bool { return s.IsPairHead(i) || s.IsPairTail(i) }

// LoneEighths returns the eighth attacks that are not part of a pair.
func (s *Sequence) LoneEighths() []int {
	var out []int
	for i, e := range s.Events {
		if e.Attack && e.IsEighth() && !s.InPair(i) {
			out = append(out, i)
		}
	}

	return out
}

// EighthPairs counts the eighth pairs of phrase p.
func (s *Sequence) EighthPairs(p int) int {
	lo, hi := s.PhraseRange(p)
	n := 0
	for i := lo; i < hi; i++ {
		if s.IsPairHead(i) {
			n++
		}
	}

	return n
}

// LargeLeaps counts the leaps of at least theory.LargeLeapMin semitones
// between consecutive attacks of phrase p.
func (s *Sequence) LargeLeaps(p int) int {
	lo, hi := s.PhraseRange(p)
	n := 0
	for i := lo; i < hi; i++ {
		if !s.Events[i].Attack {
			continue
		}
		prev := s.PrevAttack(i)
		if prev < lo {
			continue
		}
		if theory.Abs(s.Events[i].MIDI-s.Events[prev].MIDI) >= theory.LargeLeapMin {
			n++
		}
	}

	return n
}

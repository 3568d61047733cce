package melody

import (
	"math"

	"github.com/katalvlaran/melodia/theory"
)

const tieReason = "tie"

// Rebuild re-notates measure m: each attack and its continuations are merged
// and split again into legal duration classes, largest first, preferring the
// allowed set. Leading continuations tied over the bar line are treated the
// same way. Rebuild is idempotent.
func (s *Sequence) Rebuild(m int) {
	lo, hi := s.MeasureRange(m)
	if lo == hi {
		return
	}
	s.splice(lo, hi, renotate(s.Events[lo:hi], s.Meter, s.Allowed))
}

// RebuildAll re-notates every measure.
func (s *Sequence) RebuildAll() {
	for _, m := range s.Measures() {
		s.Rebuild(m)
	}
}

// TryDemote turns attack i into a continuation of the preceding attack in the
// same measure when the re-notated measure stays legal: every attack keeps an
// allowed duration class and no eighth attack is left unpaired. It reports
// whether the demotion was applied.
func (s *Sequence) TryDemote(i int, reason string) bool {
	e := s.Events[i]
	if !e.Attack {
		return false
	}
	lo, hi := s.MeasureRange(e.Measure)
	p := s.PrevAttack(i)
	if i == lo || p < lo {
		return false
	}
	trial := append([]Event(nil), s.Events[lo:hi]...)
	head := trial[p-lo]
	for j := i - lo; j < len(trial) && (j == i-lo || !trial[j].Attack); j++ {
		trial[j].Attack = false
		trial[j].MIDI = head.MIDI
		trial[j].Pitch = head.Pitch
	}
	out := renotate(trial, s.Meter, s.Allowed)
	if !measureLegal(out, s.Allowed) {
		return false
	}
	for k := range out {
		if out[k].Attack && out[k].ID == head.ID && reason != "" {
			out[k].Reason = reason
		}
	}
	s.splice(lo, hi, out)

	return true
}

// CanSplit reports whether attack i is a quarter on a whole beat that can be
// split into an eighth pair.
func (s *Sequence) CanSplit(i int) bool {
	e := s.Events[i]
	if !e.Attack || e.Beats != theory.Quarter.Beats() || !theory.IsOnBeat(e.Onset) || !s.Allowed.Has(theory.Eighth) {
		return false
	}
	// the continuation run must end with the quarter
	return i+1 >= len(s.Events) || s.Events[i+1].Attack || s.Events[i+1].Measure != e.Measure
}

// Split replaces quarter attack i with an eighth pair on the same pitch and
// returns the index of the new tail attack, or -1.
func (s *Sequence) Split(i int, reason string) int {
	if !s.CanSplit(i) {
		return -1
	}
	half := theory.Eighth.Beats()
	head := s.Events[i]
	head.Beats, head.Duration = half, theory.Eighth
	head.Tags = head.Tags.With(SmoothingRun)
	tail := head
	tail.Onset = head.Onset + half
	tail.Index = head.Index + 1
	tail.ID = AttackID(tail.Measure, tail.Onset, tail.HarmonyID, tail.Index)
	tail.Tags = head.Tags.Without(Lock)
	tail.Reason = reason
	s.splice(i, i+1, []Event{head, tail})

	return i + 1
}

func (s *Sequence) splice(lo, hi int, repl []Event) {
	out := make([]Event, 0, len(s.Events)-(hi-lo)+len(repl))
	out = append(out, s.Events[:lo]...)
	out = append(out, repl...)
	out = append(out, s.Events[hi:]...)
	s.Events = out
}

// renotate merges every run (attack plus continuations) of a single measure
// and splits it into legal pieces.
func renotate(events []Event, m theory.Meter, allowed theory.DurationSet) []Event {
	out := make([]Event, 0, len(events))
	for i := 0; i < len(events); {
		head := events[i]
		span := head.Beats
		j := i + 1
		for j < len(events) && !events[j].Attack {
			span += events[j].Beats
			j++
		}
		pos := head.Onset
		for k, b := range decompose(pos, span, m, allowed) {
			ev := head
			ev.Onset = pos
			ev.Beats = b
			ev.Duration, _ = theory.DurationForBeats(b)
			if k > 0 {
				ev.Attack = false
				ev.Tags = 0
				ev.Reason = tieReason
			}
			out = append(out, ev)
			pos += b
		}
		i = j
	}

	return out
}

// decompose splits span beats starting at pos into duration classes: an
// eighth first when pos is off the beat, then the largest allowed class that
// fits, whole notes only on the downbeat of 4/4.
func decompose(pos, span float64, m theory.Meter, allowed theory.DurationSet) []float64 {
	var out []float64
	for rem := span; rem > beatEps; {
		b := pickPiece(pos, rem, m, allowed)
		if b == 0 {
			b = pickPiece(pos, rem, m, theory.NewDurationSet(theory.AllDurations...))
		}
		if b == 0 {
			// cannot happen for spans on the eighth grid
			b = rem
		}
		out = append(out, b)
		pos += b
		rem -= b
	}

	return out
}

func pickPiece(pos, rem float64, m theory.Meter, set theory.DurationSet) float64 {
	offBeat := math.Abs(pos-math.Floor(pos)) > beatEps
	for i := len(theory.AllDurations) - 1; i >= 0; i-- {
		d := theory.AllDurations[i]
		b := d.Beats()
		switch {
		case !set.Has(d), b > rem+beatEps:
			continue
		case offBeat && d != theory.Eighth:
			continue
		case d == theory.Whole && (m.Beats != 4 || math.Abs(pos-1) > beatEps):
			continue
		}

		return b
	}

	return 0
}

// measureLegal reports whether every attack of a re-notated measure has an
// allowed class and every eighth attack is paired.
func measureLegal(events []Event, allowed theory.DurationSet) bool {
	for i, e := range events {
		if _, ok := theory.DurationForBeats(e.Beats); !ok {
			return false
		}
		if !e.Attack {
			continue
		}
		if !allowed.Has(e.Duration) {
			return false
		}
		if e.IsEighth() && !pairedAt(events, i) {
			return false
		}
	}

	return true
}

func pairedAt(events []Event, i int) bool {
	e := events[i]
	if theory.IsOnBeat(e.Onset) {
		return i+1 < len(events) && events[i+1].Attack && events[i+1].IsEighth() &&
			math.Abs(events[i+1].Onset-e.Onset-0.5) < beatEps
	}

	return i > 0 && events[i-1].Attack && events[i-1].IsEighth() && theory.IsOnBeat(events[i-1].Onset) &&
		math.Abs(e.Onset-events[i-1].Onset-0.5) < beatEps
}

// ForceDemote turns attack i into a continuation of the preceding attack in
// its measure and re-notates the measure without checking the result. The
// downbeat of a measure is never demoted.
func (s *Sequence) ForceDemote(i int, reason string) bool {
	e := s.Events[i]
	lo, _ := s.MeasureRange(e.Measure)
	p := s.PrevAttack(i)
	if !e.Attack || i == lo || p < lo {
		return false
	}
	s.Events[p].Reason = reason
	for j := i; j < len(s.Events) && (j == i || !s.Events[j].Attack); j++ {
		s.Events[j].Attack = false
		s.Events[j].MIDI = s.Events[p].MIDI
		s.Events[j].Pitch = s.Events[p].Pitch
	}
	s.Rebuild(e.Measure)

	return true
}

// MeasureLegal reports whether measure m sums to the meter length, every
// piece has a legal class, every attack an allowed class, and every eighth
// attack is paired.
func (s *Sequence) MeasureLegal(m int) bool {
	lo, hi := s.MeasureRange(m)
	if lo == hi || math.Abs(s.MeasureSum(m)-s.Meter.Length()) > beatEps {
		return false
	}

	return measureLegal(s.Events[lo:hi], s.Allowed)
}

package repair

import (
	"sort"

	"github.com/google/uuid"

	"github.com/katalvlaran/melodia/exercise"
	"github.com/katalvlaran/melodia/harmony"
	"github.com/katalvlaran/melodia/melody"
	"github.com/katalvlaran/melodia/theory"
)

// Strategy is one way of fixing a violation at an attack. Try returns a
// detail for the log and whether it changed the sequence.
type Strategy struct {
	Name string
	Try  func(seq *melody.Sequence, i int) (detail string, ok bool)
}

// attempt tries strategies in order and stops at the first that applies.
// Every attempt is logged. When none applies and required is set, an
// Unresolved entry closes the chain.
func (env *Env) attempt(pass string, seq *melody.Sequence, i int, required bool, what string, ss []Strategy) bool {
	e := seq.Events[i]
	entry := Entry{Pass: pass, Index: i, Measure: e.Measure, Onset: e.Onset}
	for _, s := range ss {
		detail, ok := s.Try(seq, i)
		entry.Strategy, entry.Detail, entry.Outcome = s.Name, detail, Rejected
		if ok {
			entry.Outcome = Applied
			env.Log.record(entry)
			return true
		}
		env.Log.record(entry)
	}
	if required {
		entry.Strategy, entry.Detail, entry.Outcome = "none", what, Unresolved
		env.Log.record(entry)
	}

	return false
}

// unresolved logs a violation no strategy is allowed to touch.
func (env *Env) unresolved(pass string, seq *melody.Sequence, i int, detail string) {
	e := seq.Events[i]
	env.Log.record(Entry{
		Pass: pass, Index: i, Measure: e.Measure, Onset: e.Onset,
		Strategy: "none", Outcome: Unresolved, Detail: detail,
	})
}

// seen remembers attacks already reported unresolved in one pass run.
type seen map[uuid.UUID]bool

func (s seen) has(seq *melody.Sequence, i int) bool { return s[seq.Events[i].ID] }
func (s seen) add(seq *melody.Sequence, i int)      { s[seq.Events[i].ID] = true }

// harmonyOf returns the harmony event sounding under attack i.
func (env *Env) harmonyOf(seq *melody.Sequence, i int) (harmony.Event, bool) {
	h := seq.Events[i].HarmonyID
	if h < 0 || h >= len(env.Harmony) {
		return harmony.Event{}, false
	}

	return env.Harmony[h], true
}

// retune sets attack i to midi and refreshes its role.
func (env *Env) retune(seq *melody.Sequence, i, midi int, reason string) {
	seq.SetPitch(i, midi, reason)
	role := melody.ChordTone
	if h, ok := env.harmonyOf(seq, i); ok && !h.Contains(midi%12) {
		role = melody.NonHarmonic
	}
	for j := i; j < len(seq.Events) && (j == i || !seq.Events[j].Attack); j++ {
		seq.Events[j].Role = role
	}
}

// neighbours returns the pitches of the attacks around i.
func neighbours(seq *melody.Sequence, i int) (prev int, hasPrev bool, next int, hasNext bool) {
	if p := seq.PrevAttack(i); p >= 0 {
		prev, hasPrev = seq.Events[p].MIDI, true
	}
	if n := seq.NextAttack(i); n >= 0 {
		next, hasNext = seq.Events[n].MIDI, true
	}

	return prev, hasPrev, next, hasNext
}

// fits reports whether midi may replace attack i: in register, degree legal,
// within the leap cap of both neighbours and free of rule violations on both
// sides at tier.
func (env *Env) fits(seq *melody.Sequence, i, midi int, tier exercise.Tier) bool {
	r := env.R
	if !r.InRegister(midi) || !r.PitchLegal(midi) {
		return false
	}
	prev, hasPrev, next, hasNext := neighbours(seq, i)
	if hasPrev && (theory.Abs(midi-prev) > r.MaxLeap || !r.Legal(prev, true, midi, tier)) {
		return false
	}
	if hasNext && (theory.Abs(next-midi) > r.MaxLeap || !r.Legal(midi, true, next, tier)) {
		return false
	}

	return true
}

// fitsPrev is fits restricted to the preceding neighbour.
func (env *Env) fitsPrev(seq *melody.Sequence, i, midi int, tier exercise.Tier) bool {
	r := env.R
	if !r.InRegister(midi) || !r.PitchLegal(midi) {
		return false
	}
	prev, hasPrev, _, _ := neighbours(seq, i)

	return !hasPrev || (theory.Abs(midi-prev) <= r.MaxLeap && r.Legal(prev, true, midi, tier))
}

// chordTones lists the in-register chord tones under attack i, nearest to
// around first.
func (env *Env) chordTones(seq *melody.Sequence, i, around int) []int {
	h, ok := env.harmonyOf(seq, i)
	if !ok {
		return nil
	}

	return byDistance(theory.Tones(env.R.Low, env.R.High, h.ChordPCs), around)
}

// scaleTones lists the in-register scale tones, nearest to around first.
func (env *Env) scaleTones(around int) []int {
	return byDistance(theory.Tones(env.R.Low, env.R.High, env.R.Key.ScalePCs(true)), around)
}

// degreeTones lists the in-register tones of the given degrees, nearest to
// around first. In minor, degree 7 includes the raised leading tone.
func (env *Env) degreeTones(around int, degs ...int) []int {
	var pcs theory.PCSet
	k := env.R.Key
	for _, d := range degs {
		pcs = pcs.Add(k.DegreePC(d))
		if d == 7 && k.Mode == theory.Minor {
			pcs = pcs.Add(k.LeadingTonePC())
		}
	}

	return byDistance(theory.Tones(env.R.Low, env.R.High, pcs), around)
}

// byDistance sorts ms by distance to around, lower pitch first on ties.
func byDistance(ms []int, around int) []int {
	out := append([]int(nil), ms...)
	sort.SliceStable(out, func(a, b int) bool {
		da, db := theory.Abs(out[a]-around), theory.Abs(out[b]-around)
		if da != db {
			return da < db
		}
		return out[a] < out[b]
	})

	return out
}

// substitute returns a strategy retuning attack i to the first pool member
// that differs from the current pitch and satisfies ok.
func (env *Env) substitute(name, reason string, pool func(seq *melody.Sequence, i int) []int,
	ok func(seq *melody.Sequence, i, m int) bool) Strategy {
	return Strategy{Name: name, Try: func(seq *melody.Sequence, i int) (string, bool) {
		cur := seq.Events[i].MIDI
		for _, m := range pool(seq, i) {
			if m != cur && ok(seq, i, m) {
				env.retune(seq, i, m, reason)
				return seq.Key.NameOf(cur) + " -> " + seq.Key.NameOf(m), true
			}
		}
		return "no candidate", false
	}}
}

// demote returns a strategy turning attack i into a tie when the measure
// stays legal.
func demote(reason string) Strategy {
	return Strategy{Name: "demote", Try: func(seq *melody.Sequence, i int) (string, bool) {
		if seq.Events[i].Tags.Has(melody.Edited) {
			return "edited", false
		}
		if !seq.TryDemote(i, reason) {
			return "measure would break", false
		}
		return "tied to previous attack", true
	}}
}

// degreeOf returns the scale degree of midi, 0 when chromatic.
func (env *Env) degreeOf(midi int) int {
	d, _ := env.R.Key.DegreeOfMIDI(midi)
	return d
}

// firstAttack returns the first attack of phrase p, or -1.
func firstAttack(seq *melody.Sequence, p int) int {
	lo, hi := seq.PhraseRange(p)
	for i := lo; i < hi; i++ {
		if seq.Events[i].Attack {
			return i
		}
	}

	return -1
}

// lastAttack returns the last attack of phrase p, or -1.
func lastAttack(seq *melody.Sequence, p int) int {
	lo, hi := seq.PhraseRange(p)
	for i := hi - 1; i >= lo; i-- {
		if seq.Events[i].Attack {
			return i
		}
	}

	return -1
}

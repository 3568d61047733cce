package repair

import (
	"fmt"

	"github.com/katalvlaran/melodia/exercise"
	"github.com/katalvlaran/melodia/melody"
	"github.com/katalvlaran/melodia/theory"
)

// Eighth-pair motion limits in semitones.
const (
	// PairMaxInterval is the widest move allowed inside a pair.
	PairMaxInterval = theory.PerfectFourth
	// PairSkipMin and PairSkipMax bound a skip of a third, which must be
	// followed by a step.
	PairSkipMin = 3
	PairSkipMax = 4
)

// EighthMotionPass keeps eighth pairs singable: a pair moves by at most a
// perfect fourth, and a pair that skips a third resolves by step.
type EighthMotionPass struct{}

// Name implements Pass.
func (EighthMotionPass) Name() string { return "eighth-motion" }

// Apply implements Pass.
//
// Steps, per pair head h with tail t:
//  1. A move wider than PairMaxInterval retunes t to a step from h,
//     strict tier first; failure is logged unresolved.
//  2. A skip of a third not followed by a step first tries the same
//     narrowing, then retunes the next attack to a step from t.
func (mp EighthMotionPass) Apply(seq *melody.Sequence, env *Env) {
	for i := 0; i+1 < len(seq.Events); i++ {
		if !seq.IsPairHead(i) {
			continue
		}
		h, t := i, i+1
		iv := theory.Abs(seq.Events[t].MIDI - seq.Events[h].MIDI)
		switch {
		case iv > PairMaxInterval:
			env.attempt(mp.Name(), seq, t, true, fmt.Sprintf("pair moves %d semitones", iv), mp.narrow(env, h))
		case iv >= PairSkipMin && iv <= PairSkipMax && !resolvesByStep(seq, t):
			if env.attempt(mp.Name(), seq, t, false, "", mp.narrow(env, h)) {
				continue
			}
			if n := seq.NextAttack(t); n >= 0 {
				env.attempt(mp.Name(), seq, n, true, "pair skip left unresolved", []Strategy{mp.resolve(env, t)})
			}
		}
	}
}

// resolvesByStep reports whether the attack after t is a step away, or t is
// the last attack.
func resolvesByStep(seq *melody.Sequence, t int) bool {
	n := seq.NextAttack(t)
	return n < 0 || theory.IsStep(seq.Events[t].MIDI, seq.Events[n].MIDI)
}

// narrow retunes the pair tail to a step from head h.
func (mp EighthMotionPass) narrow(env *Env, h int) []Strategy {
	pool := func(seq *melody.Sequence, t int) []int {
		if seq.Events[t].Tags.Has(melody.Edited) {
			return nil
		}
		head := seq.Events[h].MIDI
		var out []int
		for _, m := range env.scaleTones(seq.Events[t].MIDI) {
			if theory.IsStep(head, m) {
				out = append(out, m)
			}
		}
		return out
	}

	return []Strategy{
		env.substitute("step tail", "pair motion", pool,
			func(seq *melody.Sequence, t, m int) bool { return env.fits(seq, t, m, exercise.TierStrict) }),
		env.substitute("step tail relaxed", "pair motion", pool,
			func(seq *melody.Sequence, t, m int) bool { return env.fits(seq, t, m, exercise.MaxTier) }),
	}
}

// resolve retunes the attack after tail t to a step from it.
func (mp EighthMotionPass) resolve(env *Env, t int) Strategy {
	return env.substitute("step resolution", "pair resolution", func(seq *melody.Sequence, n int) []int {
		if seq.Events[n].Locked() {
			return nil
		}
		tail := seq.Events[t].MIDI
		var out []int
		for _, m := range env.scaleTones(seq.Events[n].MIDI) {
			if theory.IsStep(tail, m) {
				out = append(out, m)
			}
		}
		return out
	}, func(seq *melody.Sequence, n, m int) bool { return env.fits(seq, n, m, exercise.TierStrict) })
}

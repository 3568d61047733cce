package repair

import (
	"fmt"

	"github.com/katalvlaran/melodia/exercise"
	"github.com/katalvlaran/melodia/melody"
	"github.com/katalvlaran/melodia/theory"
)

const octave = 12

// LeapPass enforces the leap cap between consecutive attacks and the
// per-phrase bound on large leaps. Cap fixes are tried in order: octave
// substitution, legal substitution (unlocking an inner anchor if needed),
// demotion, and finally the nearest tone within the cap.
type LeapPass struct{}

// Name implements Pass.
func (LeapPass) Name() string { return "leap" }

// Apply implements Pass. The cap is enforced over the whole sequence first,
// then the large-leap bound per phrase.
func (l LeapPass) Apply(seq *melody.Sequence, env *Env) {
	l.bound(seq, env)
	for p := 0; p < seq.Phrases(); p++ {
		l.large(seq, env, p)
	}
}

// leapTarget returns the attack to move for the leap into i: i itself unless it
// is an edited note and its predecessor is free.
func leapTarget(seq *melody.Sequence, i int) int {
	p := seq.PrevAttack(i)
	if seq.Events[i].Tags.Has(melody.Edited) && p >= 0 && !seq.Events[p].Locked() {
		return p
	}

	return i
}

// bound sweeps the sequence until no leap exceeds the cap or a sweep changes
// nothing. An attack whose every strategy failed is skipped for the rest of
// the run so its Unresolved entry is logged once.
func (l LeapPass) bound(seq *melody.Sequence, env *Env) {
	skip := seen{}
	strategies := l.capStrategies(env)
	for it := 0; it < env.MaxIterations; it++ {
		changed := false
		for i := range seq.Events {
			if i >= len(seq.Events) || !seq.Events[i].Attack {
				continue
			}
			iv, ok := seq.Interval(i)
			if !ok || theory.Abs(iv) <= env.R.MaxLeap {
				continue
			}
			t := leapTarget(seq, i)
			if skip.has(seq, t) {
				continue
			}
			what := fmt.Sprintf("leap of %d semitones exceeds %d", theory.Abs(iv), env.R.MaxLeap)
			if env.attempt(l.Name(), seq, t, true, what, strategies) {
				changed = true
			} else {
				skip.add(seq, t)
			}
		}
		if !changed {
			return
		}
	}
}

// capStrategies lists the leap-cap fixes from least to most invasive.
func (l LeapPass) capStrategies(env *Env) []Strategy {
	strict := func(seq *melody.Sequence, i, m int) bool { return env.fits(seq, i, m, exercise.TierStrict) }
	relaxed := func(seq *melody.Sequence, i, m int) bool { return env.fits(seq, i, m, exercise.MaxTier) }
	movable := func(seq *melody.Sequence, i int) bool {
		e := seq.Events[i]
		if !e.Locked() {
			return true
		}
		// inner anchors may be unlocked; phrase starts and cadences may not
		return !e.Tags.Any(melody.Cadence|melody.Edited) && firstAttack(seq, e.Phrase) != i
	}
	legal := func(pool func(seq *melody.Sequence, i int) []int) func(seq *melody.Sequence, i int) []int {
		return func(seq *melody.Sequence, i int) []int {
			if !movable(seq, i) {
				return nil
			}
			return pool(seq, i)
		}
	}

	return []Strategy{
		env.substitute("octave", "leap octave", env.octaves, strict),
		env.substitute("octave relaxed", "leap octave", env.octaves, relaxed),
		env.substitute("chord tone", "leap substitute", legal(func(seq *melody.Sequence, i int) []int {
			return env.chordTones(seq, i, seq.Events[i].MIDI)
		}), strict),
		env.substitute("scale tone", "leap substitute", legal(func(seq *melody.Sequence, i int) []int {
			return env.scaleTones(seq.Events[i].MIDI)
		}), relaxed),
		demote("leap demoted"),
		{Name: "nearest within cap", Try: env.nearestWithinCap},
	}
}

// octaves lists the octave transpositions of attack i in register.
func (env *Env) octaves(seq *melody.Sequence, i int) []int {
	cur := seq.Events[i].MIDI
	var out []int
	for k := 1; k <= 3; k++ {
		for _, m := range []int{cur - k*octave, cur + k*octave} {
			if env.R.InRegister(m) {
				out = append(out, m)
			}
		}
	}

	return out
}

// nearestWithinCap retunes attack i to the tone within the cap of its
// predecessor that best fits: both-side fit first, then legal degree, then
// scale membership, then nearness to the current pitch.
func (env *Env) nearestWithinCap(seq *melody.Sequence, i int) (string, bool) {
	r := env.R
	prev, hasPrev, next, hasNext := neighbours(seq, i)
	if !hasPrev {
		return "no predecessor", false
	}
	lo, hi := max(r.Low, prev-r.MaxLeap), min(r.High, prev+r.MaxLeap)
	cur := seq.Events[i].MIDI
	best, bestScore := 0, -1
	for m := lo; m <= hi; m++ {
		score := 0
		if !hasNext || theory.Abs(next-m) <= r.MaxLeap {
			score += 8
		}
		if r.PitchLegal(m) {
			score += 4
		}
		if _, ok := r.Key.DegreeOfMIDI(m); ok {
			score += 2
		}
		if score > bestScore || (score == bestScore && theory.Abs(m-cur) < theory.Abs(best-cur)) {
			best, bestScore = m, score
		}
	}
	if bestScore < 0 || best == cur {
		return "predecessor outside register", false
	}
	env.retune(seq, i, best, "leap clamped")

	return seq.Key.NameOf(cur) + " -> " + seq.Key.NameOf(best), true
}

// large keeps at most MaxLargeLeaps leaps of LargeLeapMin semitones or more
// in phrase p. Leaps into the climax are kept first.
func (l LeapPass) large(seq *melody.Sequence, env *Env, p int) {
	limit := env.R.MaxLargeLeaps
	skip := seen{}
	small := func(seq *melody.Sequence, i, m int) bool {
		prev, hasPrev, next, hasNext := neighbours(seq, i)
		if hasPrev && theory.Abs(m-prev) >= theory.LargeLeapMin {
			return false
		}
		if hasNext && theory.Abs(next-m) >= theory.LargeLeapMin {
			return false
		}
		return env.fits(seq, i, m, exercise.TierStrict)
	}
	unlocked := func(pool func(seq *melody.Sequence, i int) []int) func(seq *melody.Sequence, i int) []int {
		return func(seq *melody.Sequence, i int) []int {
			if seq.Events[i].Locked() {
				return nil
			}
			return pool(seq, i)
		}
	}
	strategies := []Strategy{
		env.substitute("octave", "large leap octave", env.octaves, small),
		env.substitute("scale tone", "large leap substitute", unlocked(func(seq *melody.Sequence, i int) []int {
			return env.scaleTones(seq.Events[i].MIDI)
		}), small),
		demote("large leap demoted"),
	}
	for it := 0; it < env.MaxIterations; it++ {
		leaps := largeLeaps(seq, p)
		if len(leaps) <= limit {
			return
		}
		// keep climax leaps, then the earliest ones
		keep := map[int]bool{}
		for _, i := range leaps {
			if seq.Events[i].Tags.Has(melody.Climax) && len(keep) < limit {
				keep[i] = true
			}
		}
		for _, i := range leaps {
			if !keep[i] && len(keep) < limit {
				keep[i] = true
			}
		}
		var extra []int
		for _, i := range leaps {
			if !keep[i] {
				extra = append(extra, i)
			}
		}
		changed := false
		for _, i := range extra {
			if skip.has(seq, i) {
				continue
			}
			if env.attempt(l.Name(), seq, i, true, "too many large leaps", strategies) {
				changed = true
				break
			}
			skip.add(seq, i)
		}
		if !changed {
			return
		}
	}
}

// largeLeaps returns the attacks of phrase p reached by a large leap.
func largeLeaps(seq *melody.Sequence, p int) []int {
	lo, hi := seq.PhraseRange(p)
	var out []int
	for i := lo; i < hi; i++ {
		if !seq.Events[i].Attack {
			continue
		}
		prev := seq.PrevAttack(i)
		if prev >= lo && theory.Abs(seq.Events[i].MIDI-seq.Events[prev].MIDI) >= theory.LargeLeapMin {
			out = append(out, i)
		}
	}

	return out
}

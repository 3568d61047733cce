package repair

import (
	"github.com/katalvlaran/melodia/melody"
)

// MergeRepeatsPass ties an attack to its predecessor in the same measure when
// both sound the same pitch, unless that would drop an eighth pair the phrase
// needs or erase an edited note.
type MergeRepeatsPass struct{}

// Name implements Pass.
func (MergeRepeatsPass) Name() string { return "merge-repeats" }

// Apply implements Pass.
func (mp MergeRepeatsPass) Apply(seq *melody.Sequence, env *Env) {
	for it := 0; it < env.MaxIterations; it++ {
		changed := false
		for i := 0; i < len(seq.Events); i++ {
			if !mergeable(seq, env, i) {
				continue
			}
			if env.attempt(mp.Name(), seq, i, false, "", []Strategy{demote("repeat merged")}) {
				changed = true
			}
		}
		if !changed {
			return
		}
	}
}

// mergeable reports whether attack i repeats its predecessor in the same
// measure and can be tied to it without breaking the measure or the eighth
// quota.
func mergeable(seq *melody.Sequence, env *Env, i int) bool {
	e := seq.Events[i]
	p := seq.PrevAttack(i)
	if !e.Attack || p < 0 || seq.Events[p].Measure != e.Measure || seq.Events[p].MIDI != e.MIDI {
		return false
	}
	if e.Tags.Has(melody.Edited) {
		return false
	}
	if (seq.InPair(i) || seq.InPair(p)) && seq.EighthPairs(e.Phrase) <= env.R.MinEighthPairs {
		return false
	}
	// only merges the measure can absorb
	trial := seq.Clone()

	return trial.TryDemote(i, "")
}

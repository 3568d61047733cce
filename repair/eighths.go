package repair

import (
	"fmt"
	"math"

	"github.com/katalvlaran/melodia/exercise"
	"github.com/katalvlaran/melodia/melody"
	"github.com/katalvlaran/melodia/theory"
)

// splitBeats is the preferred order of beats to split into an eighth pair.
var splitBeats = []float64{2, 1, 3, 4}

// EighthPairPass removes lone eighths and then splits quarters until every
// phrase holds the required number of eighth pairs.
type EighthPairPass struct{}

// Name implements Pass.
func (EighthPairPass) Name() string { return "eighth-pair" }

// Apply implements Pass.
func (p EighthPairPass) Apply(seq *melody.Sequence, env *Env) {
	p.lone(seq, env)
	for ph := 0; ph < seq.Phrases(); ph++ {
		p.quota(seq, env, ph)
	}
}

// lone removes eighths outside a pair: demote into the previous attack,
// absorb the next attack, or force the demotion. Each lone eighth is tried
// once per run.
func (p EighthPairPass) lone(seq *melody.Sequence, env *Env) {
	skip := seen{}
	strategies := []Strategy{
		demote("lone eighth"),
		{Name: "absorb next", Try: func(seq *melody.Sequence, i int) (string, bool) {
			n := seq.NextAttack(i)
			if n < 0 || seq.Events[n].Measure != seq.Events[i].Measure || seq.Events[n].Tags.Has(melody.Edited) {
				return "no following attack in measure", false
			}
			return "following attack tied", seq.TryDemote(n, "lone eighth")
		}},
		{Name: "force demote", Try: func(seq *melody.Sequence, i int) (string, bool) {
			return "merged regardless of class", seq.ForceDemote(i, "lone eighth")
		}},
	}
	for it := 0; it < env.MaxIterations*len(seq.Events); it++ {
		i := -1
		for _, j := range seq.LoneEighths() {
			if !skip.has(seq, j) {
				i = j
				break
			}
		}
		if i < 0 {
			return
		}
		if !env.attempt(p.Name(), seq, i, true, "lone eighth kept", strategies) {
			skip.add(seq, i)
		}
	}
}

// quota splits quarters of phrase ph into pairs until it holds
// MinEighthPairs. Each new tail steps toward the following attack.
func (p EighthPairPass) quota(seq *melody.Sequence, env *Env, ph int) {
	for it := 0; it < env.MaxIterations && seq.EighthPairs(ph) < env.R.MinEighthPairs; it++ {
		i := splitCandidate(seq, ph)
		if i < 0 {
			if j := firstAttack(seq, ph); j >= 0 {
				env.unresolved(p.Name(), seq, j,
					fmt.Sprintf("phrase %d has %d of %d eighth pairs", ph, seq.EighthPairs(ph), env.R.MinEighthPairs))
			}
			return
		}
		env.attempt(p.Name(), seq, i, false, "", []Strategy{{
			Name: "split quarter",
			Try: func(seq *melody.Sequence, i int) (string, bool) {
				t := seq.Split(i, "eighth quota")
				if t < 0 {
					return "not splittable", false
				}
				m := env.pairTail(seq, t)
				env.retune(seq, t, m, "eighth quota")
				return fmt.Sprintf("tail %s", seq.Key.NameOf(m)), true
			},
		}})
	}
}

// splitCandidate picks a quarter to split in phrase ph: plain-grid measures
// outside the cadence and climax measures first, preferred beats first.
func splitCandidate(seq *melody.Sequence, ph int) int {
	lo, hi := seq.PhraseRange(ph)
	if lo == hi {
		return -1
	}
	last := seq.Events[hi-1].Measure
	climax := map[int]bool{}
	attacks := map[int]int{}
	for i := lo; i < hi; i++ {
		e := seq.Events[i]
		if e.Attack {
			attacks[e.Measure]++
			if e.Tags.Has(melody.Climax) {
				climax[e.Measure] = true
			}
		}
	}
	for _, strict := range []bool{true, false} {
		for _, b := range splitBeats {
			for i := lo; i < hi; i++ {
				e := seq.Events[i]
				if e.Measure == last || math.Abs(e.Onset-b) > beatEps || !seq.CanSplit(i) || e.Tags.Has(melody.Edited) {
					continue
				}
				if strict && (climax[e.Measure] || attacks[e.Measure] != seq.Meter.Beats) {
					continue
				}
				return i
			}
		}
	}

	return -1
}

// pairTail picks the pitch of a new pair tail t: a scale step from the head
// toward the next attack, the other step, or the head pitch.
func (env *Env) pairTail(seq *melody.Sequence, t int) int {
	head := seq.Events[t-1].MIDI
	dir := 1
	if _, _, next, ok := neighbours(seq, t); ok && next < head {
		dir = -1
	}
	for _, d := range []int{dir, -dir} {
		if m, ok := seq.Key.Step(head, d); ok && env.fits(seq, t, m, exercise.TierStrict) && theory.IsStep(head, m) {
			return m
		}
	}

	return head
}

package repair

import (
	"fmt"

	"github.com/katalvlaran/melodia/exercise"
	"github.com/katalvlaran/melodia/melody"
	"github.com/katalvlaran/melodia/theory"
)

// cadenceShape lists the final degrees in preference order and the degrees
// that may approach the final by step.
type cadenceShape struct {
	finals   []int
	approach []int
}

// shapeOf returns the cadence shape of c; every type but HalfCadence ends on
// the tonic.
func shapeOf(c exercise.CadenceType) cadenceShape {
	if c == exercise.HalfCadence {
		return cadenceShape{finals: []int{5}, approach: []int{4, 6}}
	}

	return cadenceShape{finals: []int{1, 3}, approach: []int{2, 7}}
}

// CadencePass shapes every phrase ending: the final measure is held from its
// downbeat, the final attack lands on the tonic (mediant as fallback) or on
// the dominant under a half cadence, and the penultimate attack steps into it
// from an approach degree, unlocking that attack when needed.
type CadencePass struct{}

// Name implements Pass.
func (CadencePass) Name() string { return "cadence" }

// Apply implements Pass. Edited finals are left as the user set them.
func (c CadencePass) Apply(seq *melody.Sequence, env *Env) {
	for p := 0; p < seq.Phrases(); p++ {
		c.hold(seq, env, p)
		shape := shapeOf(env.R.Cadence(p))
		f := lastAttack(seq, p)
		if f < 0 || seq.Events[f].Tags.Has(melody.Edited) {
			continue
		}
		c.final(seq, env, f, shape)
		c.penultimate(seq, env, p, f, shape)
	}
}

// hold ties every attack after the downbeat of the phrase's last measure.
func (c CadencePass) hold(seq *melody.Sequence, env *Env, p int) {
	lo, hi := seq.PhraseRange(p)
	if lo == hi {
		return
	}
	mlo, mhi := seq.MeasureRange(seq.Events[hi-1].Measure)
	for i := mhi - 1; i > mlo; i-- {
		if i >= len(seq.Events) || !seq.Events[i].Attack {
			continue
		}
		env.attempt(c.Name(), seq, i, false, "", []Strategy{demote("cadence hold")})
	}
}

// final retunes the last attack f to the preferred final degree, falling
// back through shape.finals. A final already on an accepted degree is only
// improved, never reported.
func (c CadencePass) final(seq *melody.Sequence, env *Env, f int, shape cadenceShape) {
	cur := env.degreeOf(seq.Events[f].MIDI)
	if cur == shape.finals[0] {
		return
	}
	var ss []Strategy
	for _, d := range shape.finals {
		if d == cur {
			break
		}
		pool := func(seq *melody.Sequence, i int) []int { return env.degreeTones(seq.Events[i].MIDI, d) }
		ss = append(ss,
			env.substitute(fmt.Sprintf("degree %d", d), "cadence final", pool,
				func(seq *melody.Sequence, i, m int) bool { return env.fits(seq, i, m, exercise.TierStrict) }),
			env.substitute(fmt.Sprintf("degree %d relaxed", d), "cadence final", pool,
				func(seq *melody.Sequence, i, m int) bool { return env.fitsPrev(seq, i, m, exercise.MaxTier) }),
		)
	}
	accepted := false
	for _, d := range shape.finals {
		accepted = accepted || d == cur
	}
	env.attempt(c.Name(), seq, f, !accepted, fmt.Sprintf("final degree %d", cur), ss)
}

// penultimate makes the attack before f an approach degree a step away from
// the final.
func (c CadencePass) penultimate(seq *melody.Sequence, env *Env, p, f int, shape cadenceShape) {
	lo, _ := seq.PhraseRange(p)
	q := seq.PrevAttack(f)
	if q < lo || seq.Events[q].Tags.Has(melody.Edited) {
		return
	}
	final := seq.Events[f].MIDI
	cur := env.degreeOf(seq.Events[q].MIDI)
	for _, d := range shape.approach {
		if d == cur && theory.IsStep(seq.Events[q].MIDI, final) {
			return
		}
	}
	pool := func(seq *melody.Sequence, i int) []int {
		var out []int
		for _, m := range env.degreeTones(final, shape.approach...) {
			if theory.IsStep(m, final) {
				out = append(out, m)
			}
		}
		return out
	}
	reason := "cadence approach"
	if seq.Events[q].Tags.Any(melody.Lock &^ melody.Cadence) {
		reason = "cadence approach (unlocked)"
	}
	env.attempt(c.Name(), seq, q, true, fmt.Sprintf("penultimate degree %d", cur), []Strategy{
		env.substitute("approach", reason, pool,
			func(seq *melody.Sequence, i, m int) bool { return env.fits(seq, i, m, exercise.TierStrict) }),
		env.substitute("approach relaxed", reason, pool,
			func(seq *melody.Sequence, i, m int) bool { return env.fits(seq, i, m, exercise.MaxTier) }),
	})
}

package repair

import (
	"fmt"

	"github.com/katalvlaran/melodia/exercise"
	"github.com/katalvlaran/melodia/melody"
	"github.com/katalvlaran/melodia/theory"
)

// RegisterPass moves every attack outside the register back inside, by
// octave shift first and then by the nearest chord or scale tone.
type RegisterPass struct{}

// Name implements Pass.
func (RegisterPass) Name() string { return "register" }

// Apply implements Pass.
//
// Strategies, in order:
//  1. octave shift within the leap cap;
//  2. nearest chord tone, then nearest scale tone, within the cap;
//  3. best tone within the cap of the predecessor;
//  4. nearest in-register scale tone regardless of neighbours.
//
// The relaxed tier is used throughout: staying in register outranks the
// interval and transition rules.
func (rp RegisterPass) Apply(seq *melody.Sequence, env *Env) {
	// leap cap and degrees at the loosest tier
	capped := func(seq *melody.Sequence, i, m int) bool { return env.fits(seq, i, m, exercise.MaxTier) }
	inside := func(_ *melody.Sequence, _, m int) bool { return env.R.InRegister(m) }
	strategies := []Strategy{
		env.substitute("octave", "register octave", env.octaves, capped),
		env.substitute("chord tone", "register chord tone", func(seq *melody.Sequence, i int) []int {
			return env.chordTones(seq, i, seq.Events[i].MIDI)
		}, capped),
		env.substitute("scale tone", "register scale tone", func(seq *melody.Sequence, i int) []int {
			return env.scaleTones(seq.Events[i].MIDI)
		}, capped),
		{Name: "nearest within cap", Try: env.nearestWithinCap},
		env.substitute("clamp", "register clamp", func(seq *melody.Sequence, i int) []int {
			return env.scaleTones(seq.Events[i].MIDI)
		}, inside),
	}
	for i := range seq.Events {
		e := seq.Events[i]
		if !e.Attack || env.R.InRegister(e.MIDI) {
			continue
		}
		env.attempt(rp.Name(), seq, i, true,
			fmt.Sprintf("%s outside [%s, %s]", e.Pitch, theory.PitchName(env.R.Low, seq.Key.PrefersFlats()),
				theory.PitchName(env.R.High, seq.Key.PrefersFlats())), strategies)
	}
}

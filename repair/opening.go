package repair

import (
	"fmt"

	"github.com/katalvlaran/melodia/exercise"
	"github.com/katalvlaran/melodia/melody"
)

// biasDegrees are the degrees an unconstrained opening leans toward.
var biasDegrees = []int{1, 3}

// OpeningPass enforces a hard tonic or locked start degree on the first
// attack, or otherwise biases it toward degree 1 or 3 when a fitting chord
// tone exists.
type OpeningPass struct{}

// Name implements Pass.
func (OpeningPass) Name() string { return "opening" }

// Apply implements Pass.
func (o OpeningPass) Apply(seq *melody.Sequence, env *Env) {
	i := firstAttack(seq, 0)
	if i < 0 || seq.Events[i].Tags.Has(melody.Edited) {
		return
	}
	cur := env.degreeOf(seq.Events[i].MIDI)
	want := env.R.StartDegree
	if env.R.HardTonicStart {
		want = 1
	}
	if want == 0 {
		if cur == 1 || cur == 3 {
			return
		}
		env.attempt(o.Name(), seq, i, false, "", []Strategy{
			env.substitute("bias chord tone", "opening bias",
				func(seq *melody.Sequence, i int) []int {
					var out []int
					h, _ := env.harmonyOf(seq, i)
					for _, m := range env.degreeTones(seq.Events[i].MIDI, biasDegrees...) {
						if h.Contains(m % 12) {
							out = append(out, m)
						}
					}
					return out
				},
				func(seq *melody.Sequence, i, m int) bool { return env.fits(seq, i, m, exercise.TierStrict) }),
		})
		return
	}
	if cur == want {
		return
	}
	pool := func(seq *melody.Sequence, i int) []int { return env.degreeTones(seq.Events[i].MIDI, want) }
	env.attempt(o.Name(), seq, i, true, fmt.Sprintf("start degree %d not reachable", want), []Strategy{
		env.substitute("start degree", "start degree", pool,
			func(seq *melody.Sequence, i, m int) bool { return env.fits(seq, i, m, exercise.TierStrict) }),
		env.substitute("start degree relaxed", "start degree", pool,
			func(seq *melody.Sequence, i, m int) bool { return env.fits(seq, i, m, exercise.MaxTier) }),
		env.substitute("start degree forced", "start degree", pool,
			func(seq *melody.Sequence, i, m int) bool { return env.R.InRegister(m) }),
	})
}

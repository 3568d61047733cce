package repair

import (
	"fmt"

	"github.com/katalvlaran/melodia/melody"
)

// QuantizePass re-notates every measure onto the eighth grid and, while a
// measure stays illegal, demotes its lowest-priority attack.
type QuantizePass struct{}

// Name implements Pass.
func (QuantizePass) Name() string { return "quantize" }

// Apply implements Pass.
//
// Steps:
//  1. Re-notate each measure.
//  2. While it stays illegal, force-demote its lowest-priority attack.
//  3. Log a measure with nothing left to demote as unresolved.
func (q QuantizePass) Apply(seq *melody.Sequence, env *Env) {
	for _, m := range seq.Measures() {
		seq.Rebuild(m)
		for it := 0; it < env.MaxIterations && !seq.MeasureLegal(m); it++ {
			i := lowestPriority(seq, m)
			if i < 0 {
				lo, _ := seq.MeasureRange(m)
				env.unresolved(q.Name(), seq, lo, fmt.Sprintf("measure %d has no demotable attack", m))
				break
			}
			env.attempt(q.Name(), seq, i, false, "", []Strategy{{
				Name: "demote lowest priority",
				Try: func(seq *melody.Sequence, i int) (string, bool) {
					return "merged into previous attack", seq.ForceDemote(i, "quantized")
				},
			}})
		}
	}
}

// priority ranks an attack for demotion; lower goes first.
func priority(e melody.Event) int {
	switch {
	case e.Tags.Has(melody.Edited):
		return 6
	case e.Tags.Has(melody.Climax):
		return 5
	case e.Tags.Has(melody.Cadence):
		return 4
	case e.Tags.Any(melody.Anchor | melody.Structural):
		return 3
	case e.IsEighth():
		return 0
	case e.Role == melody.NonHarmonic:
		return 1
	}

	return 2
}

// lowestPriority returns the attack of measure m to demote first: unlocked
// before locked, lower priority first, later onset on ties. The downbeat is
// never chosen.
func lowestPriority(seq *melody.Sequence, m int) int {
	lo, hi := seq.MeasureRange(m)
	best, bestP := -1, 0
	for i := lo + 1; i < hi; i++ {
		e := seq.Events[i]
		if !e.Attack {
			continue
		}
		p := priority(e)
		if best < 0 || p <= bestP {
			best, bestP = i, p
		}
	}

	return best
}

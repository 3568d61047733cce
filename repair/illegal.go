package repair

import (
	"fmt"

	"github.com/katalvlaran/melodia/exercise"
	"github.com/katalvlaran/melodia/melody"
)

// IllegalRulesPass enforces the user's illegal degrees, intervals and
// transitions. A violating attack is retuned to a chord tone, then a scale
// tone, then demoted, then retuned under the relaxation tiers the broken
// rule allows: a degree fix may ignore intervals and transitions, an
// interval fix may ignore transitions, a transition fix ignores nothing.
// Locked attacks are not retuned; their violations are logged unresolved.
type IllegalRulesPass struct{}

// Name implements Pass.
func (IllegalRulesPass) Name() string { return "illegal-rules" }

// maxTierFor returns the loosest tier a fix for rule may use.
func maxTierFor(rule string) exercise.Tier {
	switch rule {
	case exercise.RuleDegree:
		return exercise.MaxTier
	case exercise.RuleInterval:
		return exercise.TierNoTransitions
	}

	return exercise.TierStrict
}

// violation returns the rule attack i breaks against its predecessor.
func (env *Env) violation(seq *melody.Sequence, i int) string {
	prev, hasPrev, _, _ := neighbours(seq, i)

	return env.R.Violation(prev, hasPrev, seq.Events[i].MIDI, exercise.TierStrict)
}

// Apply implements Pass. A locked attack breaking an interval or transition
// rule moves its free predecessor instead; a locked degree violation stays.
func (ip IllegalRulesPass) Apply(seq *melody.Sequence, env *Env) {
	skip := seen{}
	for it := 0; it < env.MaxIterations; it++ {
		changed := false
		for i := 0; i < len(seq.Events); i++ {
			if !seq.Events[i].Attack {
				continue
			}
			rule := env.violation(seq, i)
			if rule == "" {
				continue
			}
			t := i
			if seq.Events[i].Locked() && rule != exercise.RuleDegree {
				if p := seq.PrevAttack(i); p >= 0 && !seq.Events[p].Locked() {
					t = p
				}
			}
			if skip.has(seq, t) {
				continue
			}
			what := fmt.Sprintf("%s rule broken by %s", rule, seq.Events[i].Pitch)
			if seq.Events[t].Locked() {
				env.unresolved(ip.Name(), seq, t, what+" (locked "+seq.Events[t].Tags.String()+")")
				skip.add(seq, t)
				continue
			}
			if env.attempt(ip.Name(), seq, t, true, what, ip.strategies(env, maxTierFor(rule))) {
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

// strategies tries chord then scale tones at the strict tier, then demotion,
// then the relaxed tiers up to loosest.
func (ip IllegalRulesPass) strategies(env *Env, loosest exercise.Tier) []Strategy {
	var ss []Strategy
	for tier := exercise.TierStrict; tier <= loosest; tier++ {
		ok := func(seq *melody.Sequence, i, m int) bool { return env.fits(seq, i, m, tier) }
		ss = append(ss,
			env.substitute(fmt.Sprintf("chord tone tier %d", tier), "illegal rule", func(seq *melody.Sequence, i int) []int {
				return env.chordTones(seq, i, seq.Events[i].MIDI)
			}, ok),
			env.substitute(fmt.Sprintf("scale tone tier %d", tier), "illegal rule", func(seq *melody.Sequence, i int) []int {
				return env.scaleTones(seq.Events[i].MIDI)
			}, ok),
		)
		if tier == exercise.TierStrict {
			ss = append(ss, demote("illegal rule"))
		}
	}

	return ss
}

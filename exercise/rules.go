package exercise

import "github.com/katalvlaran/melodia/theory"

// Tier is a relaxation tier of the user legality rules. Illegal degrees are
// enforced at every tier.
type Tier int

const (
	// TierStrict enforces degrees, intervals and transitions.
	TierStrict Tier = iota
	// TierNoTransitions ignores illegal transitions.
	TierNoTransitions
	// TierNoIntervals also ignores illegal intervals.
	TierNoIntervals
)

// MaxTier is the last relaxation tier.
const MaxTier = TierNoIntervals

// Rule names reported by Violation.
const (
	RuleDegree     = "degree"
	RuleInterval   = "interval"
	RuleTransition = "transition"
)

// PitchLegal reports whether midi is a scale tone (or chromatic tones are
// allowed) whose degree is not illegal.
func (r *Resolved) PitchLegal(midi int) bool {
	deg, ok := r.Key.DegreeOfMIDI(midi)
	if !ok {
		return r.Spec.AllowChromatic
	}

	return !r.IllegalDegrees[deg]
}

// InRegister reports whether midi lies within the register bounds.
func (r *Resolved) InRegister(midi int) bool { return midi >= r.Low && midi <= r.High }

// Violation returns the first user rule broken by moving from prev to midi
// at the given tier, or "". hasPrev false checks the degree rule only.
func (r *Resolved) Violation(prev int, hasPrev bool, midi int, tier Tier) string {
	if !r.PitchLegal(midi) {
		return RuleDegree
	}
	if !hasPrev {
		return ""
	}
	if tier < TierNoIntervals && r.IllegalIntervals[theory.Abs(midi-prev)] {
		return RuleInterval
	}
	if tier < TierNoTransitions {
		from, ok1 := r.Key.DegreeOfMIDI(prev)
		to, ok2 := r.Key.DegreeOfMIDI(midi)
		if ok1 && ok2 && r.IllegalTransitions[Transition{From: from, To: to}] {
			return RuleTransition
		}
	}

	return ""
}

// Legal reports whether Violation is empty.
func (r *Resolved) Legal(prev int, hasPrev bool, midi int, tier Tier) bool {
	return r.Violation(prev, hasPrev, midi, tier) == ""
}

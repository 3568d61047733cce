package skeleton

import (
	"fmt"
	"math"

	"github.com/katalvlaran/melodia/contour"
	"github.com/katalvlaran/melodia/exercise"
	"github.com/katalvlaran/melodia/harmony"
	"github.com/katalvlaran/melodia/rhythm"
	"github.com/katalvlaran/melodia/theory"
)

// Cost weights. Every candidate anchor is scored as a weighted sum of the
// terms below and the cheapest one wins; negative weights are rewards.
const (
	// WEnvelope scales the distance to a sine arch rising from 35% of the
	// register to 75% mid-phrase and back.
	WEnvelope = 0.5
	// WTarget scales the distance to the contour target, times its priority.
	WTarget = 1.2
	// WVoice scales the semitone move from the previous anchor.
	WVoice = 0.6
	// WLargeLeap is added per semitone a move exceeds a perfect fifth.
	WLargeLeap = 2.0
	// WNonChord is added for a pitch outside the sounding chord.
	WNonChord = 6.0
	// WCeiling is added for a non-climax pitch within ceilingMargin of the
	// register top.
	WCeiling = 3.0
	// WTonicGravity rewards the tonic on the first and final anchors.
	WTonicGravity = -4.0
	// WDominantPull penalises the dominant on an endpoint, except the final
	// anchor of a half cadence.
	WDominantPull = 3.0
	// WAscentStep rewards rising steps before the climax and the rise into it.
	WAscentStep = -1.0
	// WClimaxLeap rewards a large leap into the climax while the phrase has
	// no large leap yet.
	WClimaxLeap = -1.5
	// WPostLeap penalises leaps after the climax.
	WPostLeap = 2.0
	// WDescentStep rewards falling motion after the climax.
	WDescentStep = -1.0
	// WRecovery penalises a move after a skip of 3 or more semitones that is
	// not a contrary step.
	WRecovery = 3.0

	ceilingMargin  = 2
	nearestPenalty = 0.5
)

// Anchor is one chosen structural pitch.
type Anchor struct {
	Phrase    int           `json:"phrase"`
	Measure   int           `json:"measure"`
	Beat      float64       `json:"beat"`
	MIDI      int           `json:"midi"`
	Degree    int           `json:"degree"`
	HarmonyID int           `json:"harmony_id"`
	Tier      exercise.Tier `json:"tier"`
	First     bool          `json:"first"`
	Final     bool          `json:"final"`
	Climax    bool          `json:"climax"`
}

// Trace records one anchor decision.
type Trace struct {
	Phrase     int           `json:"phrase"`
	Measure    int           `json:"measure"`
	Beat       float64       `json:"beat"`
	HarmonyID  int           `json:"harmony_id"`
	Candidates []int         `json:"candidates"`
	Chosen     int           `json:"chosen"`
	Cost       float64       `json:"cost"`
	Tier       exercise.Tier `json:"tier"`
	Reason     string        `json:"reason,omitempty"`
}

// Input bundles the upstream plans.
type Input struct {
	R        *exercise.Resolved
	Harmony  []harmony.Event
	Contours []contour.Plan
	Grids    []rhythm.Plan
}

// Result holds the anchors of every phrase in order.
type Result struct {
	Anchors []Anchor
	Trace   []Trace
}

// slot is an anchor position with its index in the flattened onset list.
type slot struct {
	measure, local int
	beat           float64
	flat           int
}

type builder struct {
	in        Input
	r         *exercise.Resolved
	tonicBase int
	res       *Result

	prev, prevPrev       int
	hasPrev, hasPrevPrev bool
	prevFlat             int
}

// Build chooses every anchor of every phrase, one per anchor onset of the
// rhythm grids, left to right.
//
// Preconditions:
//   - len(in.Grids) and len(in.Contours) equal the phrase count of in.R.
//   - in.Harmony covers every anchor onset.
//
// Steps:
//  1. Validate the grid and contour counts.
//  2. Pick the tonic octave that centres the contour in the register.
//  3. For each phrase, collect its anchor slots and, per slot, filter the
//     legal chord tones through the endpoint, reachability and relaxation
//     tiers before choosing the cheapest candidate.
//  4. Repair the climax so it stays the unique phrase maximum.
//
// Returns:
//   - the anchors and a per-anchor trace on success.
//   - an *Infeasible error when a slot has no legal chord tone in register.
//   - a plain error when the inputs disagree in length or a slot has no
//     harmony.
//
// Complexity: O(A·C) for A anchors and C candidates per anchor.
func Build(in Input) (*Result, error) {
	// 1) Shape check.
	if len(in.Grids) != in.R.PhraseCount() || len(in.Contours) != in.R.PhraseCount() {
		return nil, fmt.Errorf("skeleton: %d grids and %d contours for %d phrases", len(in.Grids), len(in.Contours), in.R.PhraseCount())
	}
	// 2) Register placement.
	b := &builder{in: in, r: in.R, res: &Result{}}
	b.tonicBase = tonicBase(in.R)

	// 3) Phrases, each closing with 4) its climax repair.
	flat := 0
	for p := range in.Grids {
		slots, n := phraseSlots(in.Grids[p], flat)
		flat += n
		if err := b.phrase(p, slots); err != nil {
			return nil, err
		}
	}

	return b.res, nil
}

func phraseSlots(g rhythm.Plan, offset int) ([]slot, int) {
	var out []slot
	n := 0
	for _, mp := range g.Measures {
		for _, on := range mp.Onsets {
			for _, a := range mp.Anchors {
				if math.Abs(a-on) < 1e-9 {
					out = append(out, slot{measure: mp.Measure, local: mp.Local, beat: on, flat: offset + n})
				}
			}
			n++
		}
	}

	return out, n
}

// tonicBase returns the tonic pitch placing contour height +4 semitones
// nearest the register midpoint.
func tonicBase(r *exercise.Resolved) int {
	mid := (r.Low + r.High) / 2
	best := -1
	for m := r.Low - 12; m <= r.High; m++ {
		if m%12 != r.Key.Tonic {
			continue
		}
		if best < 0 || theory.Abs(m+4-mid) < theory.Abs(best+4-mid) {
			best = m
		}
	}

	return best
}

func (b *builder) phrase(p int, slots []slot) error {
	plan := b.in.Contours[p]
	cadence := b.r.Cadence(p)
	first := len(b.res.Anchors)
	climax := climaxSlot(slots, plan, b.r.Measures)
	largeLeapUsed := false

	for i, s := range slots {
		h := harmony.Active(b.in.Harmony, s.measure, s.beat)
		if h < 0 {
			return fmt.Errorf("skeleton: no harmony at measure %d beat %g", s.measure, s.beat)
		}
		ev := b.in.Harmony[h]
		isFinal := s.local == b.r.Measures
		desired := 0
		switch {
		case i == 0:
			desired = plan.StartDegree
		case isFinal:
			desired = plan.Cadence[1]
		}

		pool := b.chordTones(ev)
		if len(pool) == 0 {
			return b.infeasible(p, s, "no legal chord tone in register")
		}
		cands, tier := b.candidates(pool, ev, desired, s)

		ctx := costCtx{
			i: i, k: len(slots), s: s,
			ev:            ev,
			climax:        i == climax,
			beforeClimax:  i < climax,
			afterClimax:   i > climax,
			endpoint:      i == 0 || isFinal,
			half:          cadence == exercise.HalfCadence && isFinal,
			largeLeapUsed: largeLeapUsed,
		}
		ctx.target, ctx.priority = b.target(plan, s)
		chosen, cost := b.pick(cands, ctx)
		if b.hasPrev && chosen-b.prev >= theory.LargeLeapMin {
			largeLeapUsed = true
		}

		deg, _ := b.r.Key.DegreeOfMIDI(chosen)
		b.res.Anchors = append(b.res.Anchors, Anchor{
			Phrase: p, Measure: s.measure, Beat: s.beat, MIDI: chosen, Degree: deg,
			HarmonyID: ev.ID, Tier: tier, First: i == 0, Final: isFinal, Climax: i == climax,
		})
		b.res.Trace = append(b.res.Trace, Trace{
			Phrase: p, Measure: s.measure, Beat: s.beat, HarmonyID: ev.ID,
			Candidates: cands, Chosen: chosen, Cost: cost, Tier: tier,
		})
		b.prevPrev, b.hasPrevPrev = b.prev, b.hasPrev
		b.prev, b.hasPrev, b.prevFlat = chosen, true, s.flat
	}
	// unique climax
	if climax >= 0 {
		b.repairClimax(first, first+climax)
	}

	return nil
}

func (b *builder) infeasible(p int, s slot, reason string) error {
	return &Infeasible{
		Phrase:      p,
		Measure:     s.measure,
		Beat:        s.beat,
		Degrees:     b.r.IllegalDegreeList(),
		Intervals:   b.r.IllegalIntervalList(),
		Transitions: b.r.IllegalTransitionList(),
		Reason:      reason,
	}
}

// climaxSlot returns the slot index of the phrase climax, or -1.
func climaxSlot(slots []slot, plan contour.Plan, measures int) int {
	if measures < 2 || len(slots) < 2 {
		return -1
	}
	var peakBeat float64 = 1
	for _, t := range plan.Targets {
		if t.Local == plan.PeakMeasure && t.Priority == contour.PriorityPeak {
			peakBeat = t.Beat
		}
	}
	fallback := -1
	for i, s := range slots {
		if s.local != plan.PeakMeasure || i == 0 {
			continue
		}
		if math.Abs(s.beat-peakBeat) < 1e-9 {
			return i
		}
		if fallback < 0 {
			fallback = i
		}
	}
	if fallback < 0 {
		fallback = 1
	}

	return fallback
}

// chordTones lists legal chord tones of ev in register.
func (b *builder) chordTones(ev harmony.Event) []int {
	var out []int
	for _, m := range theory.Tones(b.r.Low, b.r.High, ev.ChordPCs) {
		if b.r.PitchLegal(m) {
			out = append(out, m)
		}
	}

	return out
}

// candidates applies the endpoint filter, the reachability filter and the
// relaxation tiers.
func (b *builder) candidates(pool []int, ev harmony.Event, desired int, s slot) ([]int, exercise.Tier) {
	var pools [][]int
	if desired != 0 {
		var want []int
		pc := b.r.Key.DegreePC(desired)
		for _, m := range theory.Tones(b.r.Low, b.r.High, theory.PCSet(0).Add(pc)) {
			if b.r.PitchLegal(m) {
				want = append(want, m)
			}
		}
		if len(want) > 0 {
			pools = append(pools, want)
		}
	}
	pools = append(pools, pool)

	for _, pl := range pools {
		reach := pl
		if b.hasPrev {
			gap := s.flat - b.prevFlat
			var in []int
			for _, m := range pl {
				if theory.Abs(m-b.prev) <= b.r.MaxLeap*gap {
					in = append(in, m)
				}
			}
			if len(in) > 0 {
				reach = in
			}
		}
		adjacent := b.hasPrev && s.flat-b.prevFlat == 1
		for tier := exercise.TierStrict; tier <= exercise.MaxTier; tier++ {
			var out []int
			for _, m := range reach {
				if b.r.Legal(b.prev, adjacent, m, tier) {
					out = append(out, m)
				}
			}
			if len(out) > 0 {
				return out, tier
			}
		}
	}

	// every pool member is degree-legal, so the last tier never empties
	return pool, exercise.MaxTier
}

// target places the contour target for s in register.
func (b *builder) target(plan contour.Plan, s slot) (int, float64) {
	t, ok := plan.TargetAt(s.measure, s.beat)
	prio := t.Priority
	if !ok {
		if t, ok = plan.Nearest(s.measure, s.beat, b.r.Meter); !ok {
			return b.tonicBase, 0
		}
		prio = t.Priority * nearestPenalty
	}
	m, ok := b.r.Key.Step(b.tonicBase, t.Step)
	if !ok {
		return b.tonicBase, prio
	}

	return m, prio
}

type costCtx struct {
	i, k          int
	s             slot
	ev            harmony.Event
	target        int
	priority      float64
	climax        bool
	beforeClimax  bool
	afterClimax   bool
	endpoint      bool
	half          bool
	largeLeapUsed bool
}

// cost returns the weighted cost of candidate m.
func (b *builder) cost(m int, c costCtx) float64 {
	r := b.r
	cost := 0.0

	// envelope
	t := 0.5
	if c.k > 1 {
		t = float64(c.i) / float64(c.k-1)
	}
	span := float64(r.High - r.Low)
	env := float64(r.Low) + span*0.35 + span*0.4*math.Sin(math.Pi*t)
	cost += WEnvelope * math.Abs(float64(m)-env)

	// contour target
	cost += WTarget * c.priority * math.Abs(float64(m-c.target))

	// harmonic fit
	if !c.ev.Contains(m % 12) {
		cost += WNonChord
	}

	// ceiling
	if !c.climax && m >= r.High-ceilingMargin {
		cost += WCeiling
	}

	// endpoint gravity
	if c.endpoint {
		deg, _ := r.Key.DegreeOfMIDI(m)
		switch {
		case deg == 1:
			cost += WTonicGravity
		case deg == 5 && !c.half:
			cost += WDominantPull
		}
	}

	if !b.hasPrev {
		return cost
	}
	move := m - b.prev
	dist := theory.Abs(move)

	// voice leading
	cost += WVoice * float64(dist)
	if dist > theory.PerfectFifth {
		cost += WLargeLeap * float64(dist-theory.PerfectFifth)
	}

	// climax shaping
	switch {
	case c.beforeClimax && move > 0 && dist <= theory.StepMax:
		cost += WAscentStep
	case c.climax && move >= theory.LargeLeapMin && move <= r.MaxLeap && !c.largeLeapUsed:
		cost += WClimaxLeap
	case c.climax && move > 0:
		cost += WAscentStep
	case c.afterClimax && dist > theory.StepMax:
		cost += WPostLeap
	case c.afterClimax && move < 0:
		cost += WDescentStep
	}

	// leap recovery
	if b.hasPrevPrev {
		last := b.prev - b.prevPrev
		if theory.Abs(last) >= 3 && !(dist <= theory.StepMax && dist > 0 && theory.Sign(move) == -theory.Sign(last)) {
			cost += WRecovery
		}
	}

	return cost
}

// pick returns the cheapest candidate, ties to the smallest move then the
// lower pitch.
func (b *builder) pick(cands []int, c costCtx) (int, float64) {
	best, bestCost := cands[0], math.Inf(1)
	for _, m := range cands {
		cost := b.cost(m, c)
		switch {
		case cost < bestCost-1e-9:
		case math.Abs(cost-bestCost) <= 1e-9 && b.closer(m, best):
		default:
			continue
		}
		best, bestCost = m, cost
	}

	return best, bestCost
}

func (b *builder) closer(m, than int) bool {
	if !b.hasPrev {
		return m < than
	}
	dm, dt := theory.Abs(m-b.prev), theory.Abs(than-b.prev)
	if dm != dt {
		return dm < dt
	}

	return m < than
}

// repairClimax makes anchors[ci] the unique maximum of anchors[lo:].
func (b *builder) repairClimax(lo, ci int) {
	anchors := b.res.Anchors
	peak := anchors[ci].MIDI
	for j := lo; j < len(anchors); j++ {
		if j == ci || anchors[j].MIDI < peak {
			continue
		}
		if m, ok := b.lower(anchors[j], peak); ok {
			b.retune(j, m, "lowered below climax")
			continue
		}
		// raise the climax above every other anchor instead
		top := 0
		for k := lo; k < len(anchors); k++ {
			if k != ci && anchors[k].MIDI > top {
				top = anchors[k].MIDI
			}
		}
		if m, ok := b.raise(anchors[ci], top); ok {
			b.retune(ci, m, "climax raised")
			peak = m
			continue
		}
		b.res.Trace[j].Reason = "climax not unique"
	}
}

func (b *builder) lower(a Anchor, below int) (int, bool) {
	ev := b.in.Harmony[a.HarmonyID]
	best, found := 0, false
	for _, m := range b.chordTones(ev) {
		if m >= below {
			continue
		}
		if (a.First || a.Final) && m%12 != a.MIDI%12 {
			continue
		}
		if !found || theory.Abs(m-a.MIDI) < theory.Abs(best-a.MIDI) {
			best, found = m, true
		}
	}

	return best, found
}

func (b *builder) raise(a Anchor, above int) (int, bool) {
	for _, m := range b.chordTones(b.in.Harmony[a.HarmonyID]) {
		if m > above {
			return m, true
		}
	}

	return 0, false
}

func (b *builder) retune(j, m int, reason string) {
	deg, _ := b.r.Key.DegreeOfMIDI(m)
	b.res.Anchors[j].MIDI = m
	b.res.Anchors[j].Degree = deg
	b.res.Trace[j].Chosen = m
	b.res.Trace[j].Reason = reason
}

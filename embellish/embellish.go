package embellish

import (
	"fmt"
	"math"

	"github.com/katalvlaran/melodia/exercise"
	"github.com/katalvlaran/melodia/harmony"
	"github.com/katalvlaran/melodia/melody"
	"github.com/katalvlaran/melodia/rhythm"
	"github.com/katalvlaran/melodia/rng"
	"github.com/katalvlaran/melodia/skeleton"
	"github.com/katalvlaran/melodia/theory"
)

// StepCap bounds each interpolated move in semitones.
const StepCap = theory.SkipMax

// Provenance reasons written to Event.Reason.
const (
	ReasonAnchor       = "anchor"
	ReasonPassing      = "passing"
	ReasonNeighbor     = "neighbor"
	ReasonSuspension   = "suspension"
	ReasonEscape       = "escape"
	ReasonChordTone    = "nearest chord tone"
	ReasonInterpolated = "interpolated"
	ReasonHold         = "hold"
	ReasonSkipFixed    = "skip corrected"
)

// Input bundles everything the realizer consumes.
type Input struct {
	R       *exercise.Resolved
	Harmony []harmony.Event
	Grids   []rhythm.Plan
	Anchors []skeleton.Anchor
}

type slot struct {
	phrase, measure int
	onset, beats    float64
	harmony         int
	anchor          int // index into Anchors, -1 for fill
	index           int // attack index within the measure
	midi            int
	reason          string
}

type realizer struct {
	in  Input
	r   *exercise.Resolved
	src *rng.Source
	cap int
}

// Realize builds the full event sequence: one attack per grid onset, anchors
// at their skeleton pitches and every slot between them filled.
//
// Preconditions:
//   - every anchor of in.Anchors sits on an onset of in.Grids, in order.
//   - in.Harmony covers every onset.
//
// Steps:
//  1. Lay the grids out as slots and bind anchors and harmonies to them.
//  2. Per phrase, fill each gap between anchors. A single slot gets the
//     first ornament that applies: passing tone, neighbor, suspension,
//     escape tone, else the nearest chord tone. Longer gaps are
//     interpolated toward the next anchor and their unresolved skips
//     corrected. Slots after the last anchor hold its pitch.
//  3. Emit the attacks, tagging non-chord tones, anchors, eighth pairs and
//     the cadence pair of every phrase.
//
// Returns:
//   - the sequence, every event an attack carrying its provenance reason.
//   - an error when an onset has no harmony or an anchor misses the grid.
//
// Complexity: O(N·(H+C)) for N onsets, H harmony events and C the interpolation
// window of 2·StepCap+1 pitches.
func Realize(in Input, src *rng.Source) (*melody.Sequence, error) {
	z := &realizer{in: in, r: in.R, src: src, cap: StepCap}
	if in.R.MaxLeap < z.cap {
		z.cap = in.R.MaxLeap
	}

	// 1) Slots.
	slots, err := z.layout()
	if err != nil {
		return nil, err
	}

	// 2) Fill.
	for p := range in.Grids {
		z.phrase(slots, p)
	}

	// 3) Events.
	seq := &melody.Sequence{Key: in.R.Key, Meter: in.R.Meter, Allowed: in.R.Allowed}
	for _, s := range slots {
		e := melody.NewAttack(in.R.Key, s.phrase, s.measure, s.onset, s.beats, s.midi, s.harmony, s.index)
		e.Reason = s.reason
		ev := in.Harmony[s.harmony]
		if !ev.Contains(s.midi % 12) {
			e.Role = melody.NonHarmonic
			e.Tags = e.Tags.With(melody.ConnectiveNonHarmonic)
		}
		if s.anchor >= 0 {
			a := in.Anchors[s.anchor]
			e.Tags = e.Tags.With(melody.Anchor | melody.Structural)
			if a.Climax {
				e.Tags = e.Tags.With(melody.Climax)
			}
		}
		seq.Events = append(seq.Events, e)
	}
	tagPairsAndCadences(seq)

	return seq, nil
}

// layout expands the grids into slots and binds anchors and harmonies.
func (z *realizer) layout() ([]slot, error) {
	var out []slot
	next := 0
	for p, g := range z.in.Grids {
		for _, mp := range g.Measures {
			for i, on := range mp.Onsets {
				h := harmony.Active(z.in.Harmony, mp.Measure, on)
				if h < 0 {
					return nil, fmt.Errorf("embellish: no harmony at measure %d beat %g", mp.Measure, on)
				}
				s := slot{phrase: p, measure: mp.Measure, onset: on, beats: mp.Durations[i], harmony: h, anchor: -1, index: i}
				if next < len(z.in.Anchors) {
					a := z.in.Anchors[next]
					if a.Measure == mp.Measure && math.Abs(a.Beat-on) < 1e-9 {
						s.anchor, s.midi, s.reason = next, a.MIDI, ReasonAnchor
						next++
					}
				}
				out = append(out, s)
			}
		}
	}
	if next != len(z.in.Anchors) {
		return nil, fmt.Errorf("embellish: %d of %d anchors bound to the grid", next, len(z.in.Anchors))
	}

	return out, nil
}

func (z *realizer) phrase(slots []slot, p int) {
	lo, hi := -1, -1
	for i, s := range slots {
		if s.phrase == p {
			if lo < 0 {
				lo = i
			}
			hi = i + 1
		}
	}
	if lo < 0 {
		return
	}
	prevAnchor := -1
	for i := lo; i < hi; i++ {
		if slots[i].anchor < 0 {
			continue
		}
		if prevAnchor >= 0 && i-prevAnchor > 1 {
			z.fill(slots, prevAnchor, i)
		}
		prevAnchor = i
	}
	// trailing slots after the last anchor hold its pitch
	for i := prevAnchor + 1; prevAnchor >= 0 && i < hi; i++ {
		slots[i].midi, slots[i].reason = slots[prevAnchor].midi, ReasonHold
	}
}

// fill realises slots strictly between anchors a and b.
func (z *realizer) fill(slots []slot, a, b int) {
	if b-a == 2 {
		m, reason := z.ornament(slots, a, a+1, b)
		slots[a+1].midi, slots[a+1].reason = m, reason
		return
	}
	for i := a + 1; i < b; i++ {
		slots[i].midi, slots[i].reason = z.interpolate(slots, i, b), ReasonInterpolated
	}
	z.fixSkips(slots, a, b)
}

// ornament applies the first qualifying ornament rule to slot i.
func (z *realizer) ornament(slots []slot, a, i, b int) (int, string) {
	k := z.r.Key
	A, B := slots[a].midi, slots[b].midi
	dir := theory.Sign(B - A)
	d := theory.Abs(B - A)

	// passing
	if d >= 3 && d <= 4 {
		if m, ok := k.Step(A, dir); ok && z.usable(A, m) && theory.IsStep(m, B) {
			return m, ReasonPassing
		}
	}
	// neighbor
	if d == 0 {
		var opts []int
		for _, s := range []int{1, -1} {
			if m, ok := k.Step(A, s); ok && z.usable(A, m) {
				opts = append(opts, m)
			}
		}
		if len(opts) > 0 {
			return opts[z.src.Intn(len(opts))], ReasonNeighbor
		}
	}
	// suspension
	if slots[i].harmony != slots[a].harmony && !z.in.Harmony[slots[i].harmony].Contains(A%12) &&
		B < A && A-B <= theory.StepMax {
		return A, ReasonSuspension
	}
	// escape
	if d > 0 && d <= theory.StepMax {
		if m, ok := k.Step(A, -dir); ok && z.usable(A, m) {
			if leap := theory.Abs(B - m); leap >= 3 && leap <= z.r.MaxLeap {
				return m, ReasonEscape
			}
		}
	}

	return z.nearestChordTone(slots[i].harmony, (A+B)/2, A), ReasonChordTone
}

// usable reports whether m is in register, legal after prev and within the
// leap cap of prev.
func (z *realizer) usable(prev, m int) bool {
	return z.r.InRegister(m) && z.r.Legal(prev, true, m, exercise.TierStrict) && theory.Abs(m-prev) <= z.r.MaxLeap
}

func (z *realizer) nearestChordTone(h, around, prev int) int {
	ev := z.in.Harmony[h]
	best, found := prev, false
	for _, m := range theory.Tones(z.r.Low, z.r.High, ev.ChordPCs) {
		if !z.usable(prev, m) {
			continue
		}
		if !found || theory.Abs(m-around) < theory.Abs(best-around) ||
			(theory.Abs(m-around) == theory.Abs(best-around) && theory.Abs(m-prev) < theory.Abs(best-prev)) {
			best, found = m, true
		}
	}

	return best
}

// interpolate picks slot i moving from the previous slot toward anchor b.
func (z *realizer) interpolate(slots []slot, i, b int) int {
	cur, target := slots[i-1].midi, slots[b].midi
	remaining := b - i + 1
	ideal := float64(cur) + float64(target-cur)/float64(remaining)
	ev := z.in.Harmony[slots[i].harmony]
	strong := theory.IsOnBeat(slots[i].onset)

	best, bestScore := cur, math.Inf(1)
	for m := cur - z.cap; m <= cur+z.cap; m++ {
		if !z.r.InRegister(m) || !z.r.PitchLegal(m) {
			continue
		}
		if _, diatonic := z.r.Key.DegreeOfMIDI(m); !diatonic {
			continue
		}
		score := math.Abs(float64(m) - ideal)
		if strong && !ev.Contains(m%12) {
			score += 1.5
		}
		if theory.Sign(m-cur) != theory.Sign(target-cur) && target != cur {
			score += 1
		}
		if m == cur {
			score += 0.75
		}
		if !z.r.Legal(cur, true, m, exercise.TierStrict) {
			score += 4
		}
		// must still be able to reach the anchor
		if theory.Abs(target-m) > z.r.MaxLeap*(b-i) {
			score += 20
		}
		if score < bestScore-1e-9 {
			best, bestScore = m, score
		}
	}

	return best
}

// fixSkips retunes interior 3-4 semitone skips not followed by a contrary step.
func (z *realizer) fixSkips(slots []slot, a, b int) {
	for i := a + 1; i < b; i++ {
		prev, cur, next := slots[i-1].midi, slots[i].midi, slots[i+1].midi
		skip := theory.Abs(cur - prev)
		if skip < 3 || skip > 4 {
			continue
		}
		back := next - cur
		if theory.IsStep(cur, next) && back != 0 && theory.Sign(back) == -theory.Sign(cur-prev) {
			continue
		}
		if m, ok := z.r.Key.Step(prev, theory.Sign(next-prev)); ok && next != prev && z.usable(prev, m) &&
			theory.Abs(next-m) <= z.r.MaxLeap {
			slots[i].midi, slots[i].reason = m, ReasonSkipFixed
		}
	}
}

// tagPairsAndCadences tags eighth-pair members and the final two attacks of
// every phrase.
func tagPairsAndCadences(seq *melody.Sequence) {
	for i := range seq.Events {
		if seq.InPair(i) {
			seq.Events[i].Tags = seq.Events[i].Tags.With(melody.SmoothingRun)
		}
	}
	for p := 0; p < seq.Phrases(); p++ {
		lo, hi := seq.PhraseRange(p)
		n := 0
		for i := hi - 1; i >= lo && n < 2; i-- {
			if seq.Events[i].Attack {
				seq.Events[i].Tags = seq.Events[i].Tags.With(melody.Cadence)
				n++
			}
		}
	}
}

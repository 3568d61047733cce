package harmony

import (
	"fmt"

	"github.com/katalvlaran/melodia/exercise"
	"github.com/katalvlaran/melodia/rng"
	"github.com/katalvlaran/melodia/rootgraph"
	"github.com/katalvlaran/melodia/theory"
)

// Weighting constants of TransitionWeight.
const (
	ProgressionBonus = 2.0
	RepeatPenalty    = 0.25
	OverlapBonus     = 0.1
	RetroPenalty     = 0.05
	distantWeight    = 0.5
	otherFactor      = 0.8
)

var sameFunctionPenalty = map[Stage]float64{
	StageOpening:    0.8,
	StageMiddle:     0.6,
	StagePreCadence: 0.35,
	StageCadence:    0.35,
}

// Event is one HarmonyEvent.
type Event struct {
	ID       int            `json:"id"`
	Phrase   int            `json:"phrase"`
	Measure  int            `json:"measure"`
	Beat     float64        `json:"beat"`
	Degree   int            `json:"degree"`
	Root     int            `json:"root"`
	ChordPCs theory.PCSet   `json:"chord_pcs"`
	Quality  theory.Quality `json:"quality"`
	Function Function       `json:"function"`
}

// Contains reports whether pc is a chord tone of e.
func (e Event) Contains(pc int) bool { return e.ChordPCs.Has(pc) }

// Slot is one harmonic position within a phrase.
type Slot struct {
	Local int     // 1-based measure within the phrase
	Beat  float64 // 1-based beat
}

// Slots lists the harmonic slots of a phrase of n measures.
func Slots(m theory.Meter, n int) []Slot {
	var out []Slot
	for local := 1; local <= n; local++ {
		out = append(out, Slot{Local: local, Beat: 1})
		if m.Beats == 4 && local < n {
			out = append(out, Slot{Local: local, Beat: 3})
		}
	}

	return out
}

// Generator walks the root graph.
type Generator struct {
	g *rootgraph.Graph
}

// NewGenerator returns a Generator over g; a nil g uses rootgraph.Diatonic.
func NewGenerator(g *rootgraph.Graph) *Generator {
	if g == nil {
		g = rootgraph.Diatonic()
	}

	return &Generator{g: g}
}

// TransitionWeight scores the move from → to at the given stage. A move to
// a root farther than two steps weighs 0.
func (h *Generator) TransitionWeight(from, to int, stage Stage) float64 {
	if from == to {
		return RepeatPenalty
	}
	base, adjacent := h.g.Weight(rootgraph.ID(from), rootgraph.ID(to))
	if !adjacent {
		d, err := h.g.Distance(rootgraph.ID(from), rootgraph.ID(to))
		if err != nil || d > rootgraph.DefaultMaxDepth {
			return 0
		}
		base = distantWeight
	}
	ff, tf := FunctionOf(from), FunctionOf(to)
	w := base
	switch {
	case progresses(ff, tf):
		w *= ProgressionBonus
	case ff == tf:
		w *= sameFunctionPenalty[stage]
	case tf == Other:
		w *= otherFactor
	}
	if stage == StagePreCadence && retrogresses(ff, tf) {
		w *= RetroPenalty
	}

	return w
}

// Generate produces the harmony events of every phrase of r, contiguous and
// ordered, with global measure numbers.
//
// Steps:
//  1. Mark the playable roots: those whose triad keeps at least one legal
//     tone inside the register of r.
//  2. For each phrase, copy the progression of its reuse source or walk the
//     root graph from the tonic, one root per harmonic slot. Unplayable
//     roots weigh 0 in the walk.
//  3. Overwrite the last three slots with a cadence tail of the phrase
//     cadence, preferring tails made of playable roots only.
//  4. Emit one Event per slot.
//
// Returns:
//   - the events of all phrases in slot order, IDs 0..n-1.
//   - an error only when the root graph lacks a diatonic degree.
//
// Complexity: O(P·S·D) for P phrases, S slots per phrase and D = 7 degrees.
func (h *Generator) Generate(r *exercise.Resolved, src *rng.Source) ([]Event, error) {
	// 1) Playable roots.
	ok := Playable(r)

	slots := Slots(r.Meter, r.Measures)
	perPhrase := make([][]int, r.PhraseCount())
	var out []Event
	for p := 0; p < r.PhraseCount(); p++ {
		ps := src.Derive(p)

		// 2) Progression.
		var degs []int
		if from := r.ReuseSource(p); from >= 0 {
			degs = append([]int(nil), perPhrase[from]...)
		} else {
			var err error
			if degs, err = h.walk(r.Key, ok, slots, r.Measures, ps); err != nil {
				return nil, fmt.Errorf("harmony: phrase %d: %w", p, err)
			}
		}

		// 3) Cadence tail.
		applyTail(degs, r.Cadence(p), ok, ps)
		perPhrase[p] = degs

		// 4) Events.
		for i, s := range slots {
			out = append(out, h.event(r.Key, len(out), p, p*r.Measures+s.Local, s.Beat, degs[i]))
		}
	}

	return out, nil
}

// Playable reports, per scale degree 1..7, whether the triad on that degree
// has a legal tone inside the register of r. Index 0 is unused.
func Playable(r *exercise.Resolved) [8]bool {
	var out [8]bool
	for d := 1; d <= 7; d++ {
		for _, m := range theory.Tones(r.Low, r.High, r.Key.Triad(d).PCs) {
			if r.PitchLegal(m) {
				out[d] = true
				break
			}
		}
	}

	return out
}

func (h *Generator) event(k theory.Key, id, phrase, measure int, beat float64, deg int) Event {
	tr := k.Triad(deg)

	return Event{
		ID:       id,
		Phrase:   phrase,
		Measure:  measure,
		Beat:     beat,
		Degree:   deg,
		Root:     tr.Root,
		ChordPCs: tr.PCs,
		Quality:  tr.Quality,
		Function: FunctionOf(deg),
	}
}

// walk draws one root per slot after the opening tonic. Each reachable root
// weighs TransitionWeight plus a shared-tone bonus; unplayable roots weigh 0.
// When every weight is 0 the walk falls back to the nearest playable root of
// the expected function.
func (h *Generator) walk(k theory.Key, ok [8]bool, slots []Slot, n int, src *rng.Source) ([]int, error) {
	degs := make([]int, len(slots))
	degs[0] = 1
	for i := 1; i < len(slots); i++ {
		cur := degs[i-1]
		cands, err := h.g.ReachableDegrees(cur)
		if err != nil {
			return nil, err
		}
		stage := StageOf(slots[i].Local, n)
		weights := make([]float64, len(cands))
		prev := k.Triad(cur)
		for j, c := range cands {
			if !ok[c] {
				continue
			}
			w := h.TransitionWeight(cur, c, stage)
			if w > 0 {
				w += OverlapBonus * float64(theory.SharedTones(prev, k.Triad(c)))
			}
			weights[j] = w
		}
		if idx, found := src.WeightedIndex(weights); found {
			degs[i] = cands[idx]
			continue
		}
		degs[i] = h.fallback(cur, ok)
	}

	return degs, nil
}

// fallback returns the nearest playable root of the function expected after
// cur, lowest degree first on ties. Without one it takes the nearest playable
// root of any function, and the tonic when nothing is playable.
func (h *Generator) fallback(cur int, ok [8]bool) int {
	want := FunctionOf(cur).expected()
	for _, strict := range []bool{true, false} {
		best, bestDist := 0, -1
		for d := 1; d <= 7; d++ {
			if !ok[d] || (strict && FunctionOf(d) != want) {
				continue
			}
			dist, err := h.g.Distance(rootgraph.ID(cur), rootgraph.ID(d))
			if err != nil {
				continue
			}
			if bestDist < 0 || dist < bestDist {
				best, bestDist = d, dist
			}
		}
		if bestDist >= 0 {
			return best
		}
	}

	return 1
}

// applyTail writes a cadence tail of c over the last three slots. Tails made
// of playable roots only are preferred; when none exists every tail stays a
// candidate.
func applyTail(degs []int, c exercise.CadenceType, ok [8]bool, src *rng.Source) {
	tails := CadenceTails[c]
	var fit [][3]int
	for _, t := range tails {
		if ok[t[0]] && ok[t[1]] && ok[t[2]] {
			fit = append(fit, t)
		}
	}
	if len(fit) > 0 {
		tails = fit
	}
	tail := tails[src.Intn(len(tails))]
	n := len(degs)
	for i := 0; i < 3 && i < n; i++ {
		degs[n-1-i] = tail[2-i]
	}
}

// Active returns the index of the harmony event sounding at (measure, beat),
// or -1 before the first event.
func Active(events []Event, measure int, beat float64) int {
	idx := -1
	for i, e := range events {
		if e.Measure > measure || (e.Measure == measure && e.Beat > beat+1e-9) {
			break
		}
		idx = i
	}

	return idx
}

// PhraseEvents returns the events of phrase p.
func PhraseEvents(events []Event, p int) []Event {
	var out []Event
	for _, e := range events {
		if e.Phrase == p {
			out = append(out, e)
		}
	}

	return out
}

package rhythm

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/katalvlaran/melodia/rng"
	"github.com/katalvlaran/melodia/theory"
)

// Tuning constants of the best-fit search.
const (
	// FitTolerance is the L1 window above the best error inside which
	// candidates compete in the weighted tie-break.
	FitTolerance = 0.04

	// RepeatPenalty is added to the error of the previous measure's template.
	RepeatPenalty = 0.05

	fitEpsilon = 0.01
)

// Params configures PlanPhrase.
type Params struct {
	Meter   theory.Meter
	Allowed theory.DurationSet
	// Target is the normalised distribution indexed by theory.Duration.
	Target         [4]float64
	MinEighthPairs int
	Measures       int
	// FirstMeasure is the global number of the phrase's first measure.
	FirstMeasure int
	// Climax is the 1-based local climax measure; 0 means none.
	Climax int
}

// MeasurePlan is the grid of one measure.
type MeasurePlan struct {
	Measure    int       `json:"measure"`
	Local      int       `json:"local"`
	TemplateID string    `json:"template"`
	Family     Family    `json:"family"`
	Onsets     []float64 `json:"onsets"`
	Durations  []float64 `json:"durations"`
	Anchors    []float64 `json:"anchors"`
	Cadence    bool      `json:"cadence"`
	Climax     bool      `json:"climax"`
	Forced     bool      `json:"forced"`
}

// Plan is the PhraseGridPlan of one phrase.
type Plan struct {
	Phrase   int                     `json:"phrase"`
	Measures []MeasurePlan           `json:"measures"`
	Tally    map[theory.Duration]int `json:"tally"`
}

// EighthPairs counts the eighth pairs of the plan.
func (p Plan) EighthPairs() int {
	n := 0
	for _, m := range p.Measures {
		for _, d := range m.Durations {
			if d == theory.Eighth.Beats() {
				n++
			}
		}
	}

	return n / 2
}

// Measure returns the plan of global measure m.
func (p Plan) Measure(m int) (MeasurePlan, bool) {
	for _, mp := range p.Measures {
		if mp.Measure == m {
			return mp, true
		}
	}

	return MeasurePlan{}, false
}

type role int

const (
	roleFree role = iota
	roleCadence
	roleClimax
)

// roleOf classifies a 1-based local measure. The final measure is always the
// cadence; a climax is only honoured in phrases of three measures or more.
func (p Params) roleOf(local int) role {
	switch {
	case local == p.Measures:
		return roleCadence
	case local == p.Climax && p.Measures >= 3:
		return roleClimax
	default:
		return roleFree
	}
}

// PlanPhrase assigns one rhythm template per measure of a phrase.
//
// Preconditions:
//   - p.Measures >= 1 and p.Target is normalised.
//   - p.Allowed admits at least one template of p.Meter.
//
// Steps:
//  1. Validate inputs and collect the legal templates.
//  2. Fix the cadence measure and, for phrases of three or more measures,
//     the climax measure from their template families.
//  3. Place smoothing or run templates on free measures until the phrase
//     holds p.MinEighthPairs pairs.
//  4. Fill every remaining measure with a best-fit template: the one whose
//     addition brings the duration histogram closest to p.Target, ties
//     within FitTolerance broken by a weighted draw.
//
// Returns:
//   - the plan, one MeasurePlan per measure numbered from p.FirstMeasure.
//   - ErrNoTemplate when nothing fits the meter and allowed durations.
//   - ErrEighthQuota when the free measures cannot carry the pairs.
//
// Complexity: O(M²·T) for M measures and T legal templates, since every
// fit evaluation rescans the assigned measures.
func PlanPhrase(p Params, src *rng.Source) (Plan, error) {
	// 1) Validate inputs.
	if p.Measures < 1 {
		return Plan{}, fmt.Errorf("%w: %d measures", ErrNoTemplate, p.Measures)
	}
	legal := Legal(p.Meter, p.Allowed)
	if len(legal) == 0 {
		return Plan{}, fmt.Errorf("%w: meter %s", ErrNoTemplate, p.Meter)
	}
	chosen := make([]*Template, p.Measures)
	forced := make([]bool, p.Measures)

	// 2) Cadence and climax families.
	for local := 1; local <= p.Measures; local++ {
		switch p.roleOf(local) {
		case roleCadence:
			t := p.pickFamily(legal, FamilyCadence, src)
			chosen[local-1] = &t
		case roleClimax:
			t := p.pickFamily(legal, FamilyClimax, src)
			chosen[local-1] = &t
		}
	}

	// 3) Eighth quota.
	if err := p.forceEighths(legal, chosen, forced, src); err != nil {
		return Plan{}, err
	}

	// 4) Best fit for everything left.
	for i := range chosen {
		if chosen[i] != nil {
			continue
		}
		var prev string
		if i > 0 && chosen[i-1] != nil {
			prev = chosen[i-1].ID
		}
		t := p.bestFit(legal, chosen, prev, src)
		chosen[i] = &t
	}

	return p.assemble(chosen, forced), nil
}

// Vary derives a plan for a reuse-with-variation phrase: the earlier plan's
// templates are kept except one free measure, which is swapped for another
// template with the same eighth-pair count when one exists.
func Vary(prev Plan, p Params, src *rng.Source) Plan {
	legal := Legal(p.Meter, p.Allowed)
	chosen := make([]*Template, p.Measures)
	forced := make([]bool, p.Measures)
	var free []int
	for i := 0; i < p.Measures && i < len(prev.Measures); i++ {
		t, ok := Lookup(p.Meter, prev.Measures[i].TemplateID)
		if !ok {
			continue
		}
		chosen[i] = &t
		forced[i] = prev.Measures[i].Forced
		if p.roleOf(i+1) == roleFree {
			free = append(free, i)
		}
	}
	for i := range chosen {
		if chosen[i] == nil {
			t := p.bestFit(legal, chosen, "", src)
			chosen[i] = &t
		}
	}
	if len(free) > 0 {
		i := src.Pick(free)
		orig := chosen[i]
		var alts []Template
		for _, t := range legal {
			if t.ID != orig.ID && t.Family != FamilyCadence && t.Family != FamilyClimax &&
				t.EighthPairs(p.Meter) == orig.EighthPairs(p.Meter) {
				alts = append(alts, t)
			}
		}
		if len(alts) > 0 {
			t := alts[src.Intn(len(alts))]
			chosen[i] = &t
		}
	}

	return p.assemble(chosen, forced)
}

// pickFamily draws a template of family f, weighted by inverse fit error.
// A meter without such templates falls back through fallbackFor.
func (p Params) pickFamily(legal []Template, f Family, src *rng.Source) Template {
	var fam []Template
	for _, t := range legal {
		if t.Family == f {
			fam = append(fam, t)
		}
	}
	if len(fam) == 0 {
		fam = fallbackFor(p.Meter, legal, f)
	}
	weights := make([]float64, len(fam))
	for i, t := range fam {
		weights[i] = 1 / (fitEpsilon + p.fitError(nil, &t))
	}
	idx, _ := src.WeightedIndex(weights)

	return fam[idx]
}

// fallbackFor keeps the legal templates with the fewest attacks for cadence
// measures and the full legal set otherwise.
func fallbackFor(m theory.Meter, legal []Template, f Family) []Template {
	if f != FamilyCadence {
		return legal
	}
	best := -1
	var out []Template
	for _, t := range legal {
		n := len(t.Onsets) + t.EighthPairs(m)*4
		switch {
		case best < 0 || n < best:
			best, out = n, []Template{t}
		case n == best:
			out = append(out, t)
		}
	}

	return out
}

// forceEighths fills shuffled free measures with smoothing templates, or run
// templates when the pairs still needed outnumber the free measures, until
// MinEighthPairs is met. Filled measures are marked forced.
func (p Params) forceEighths(legal []Template, chosen []*Template, forced []bool, src *rng.Source) error {
	need := p.MinEighthPairs
	if need <= 0 {
		return nil
	}
	var smooth, run []Template
	for _, t := range legal {
		switch t.Family {
		case FamilySmoothing:
			smooth = append(smooth, t)
		case FamilyRun:
			run = append(run, t)
		}
	}
	var slots []int
	for i := range chosen {
		if chosen[i] == nil {
			slots = append(slots, i)
		}
	}
	src.Shuffle(slots)
	for k, i := range slots {
		if need <= 0 {
			break
		}
		remaining := len(slots) - k
		var pool []Template
		switch {
		case (need > remaining || len(smooth) == 0) && len(run) > 0:
			pool = run
		case len(smooth) > 0:
			pool = smooth
		default:
			pool = run
		}
		if len(pool) == 0 {
			break
		}
		t := pool[src.Intn(len(pool))]
		chosen[i] = &t
		forced[i] = true
		need -= t.EighthPairs(p.Meter)
	}
	if need > 0 {
		return fmt.Errorf("%w: %d pairs short", ErrEighthQuota, need)
	}

	return nil
}

// bestFit draws among the non-cadence templates whose fit error lies within
// FitTolerance of the best, weighted by inverse error. Repeating the previous
// measure's template costs RepeatPenalty.
func (p Params) bestFit(legal []Template, chosen []*Template, prev string, src *rng.Source) Template {
	var cands []Template
	for _, t := range legal {
		if t.Family != FamilyCadence {
			cands = append(cands, t)
		}
	}
	if len(cands) == 0 {
		cands = legal
	}
	errs := make([]float64, len(cands))
	for i := range cands {
		errs[i] = p.fitError(chosen, &cands[i])
		if cands[i].ID == prev {
			errs[i] += RepeatPenalty
		}
	}
	best := floats.Min(errs)
	weights := make([]float64, len(cands))
	for i, e := range errs {
		if e <= best+FitTolerance {
			weights[i] = 1 / (fitEpsilon + e)
		}
	}
	idx, _ := src.WeightedIndex(weights)

	return cands[idx]
}

// fitError is the L1 distance between the target and the histogram of the
// assigned templates plus extra.
func (p Params) fitError(chosen []*Template, extra *Template) float64 {
	var counts [4]float64
	add := func(t *Template) {
		cls, ok := t.Classes(p.Meter)
		if !ok {
			return
		}
		for _, d := range cls {
			counts[d]++
		}
	}
	for _, t := range chosen {
		if t != nil {
			add(t)
		}
	}
	if extra != nil {
		add(extra)
	}
	total := floats.Sum(counts[:])
	if total == 0 {
		return floats.Sum(p.Target[:])
	}
	floats.Scale(1/total, counts[:])

	return floats.Distance(counts[:], p.Target[:], 1)
}

// assemble turns the chosen templates into measure plans and tallies their
// duration classes.
func (p Params) assemble(chosen []*Template, forced []bool) Plan {
	plan := Plan{Tally: make(map[theory.Duration]int)}
	for i, t := range chosen {
		local := i + 1
		mp := MeasurePlan{
			Measure:    p.FirstMeasure + i,
			Local:      local,
			TemplateID: t.ID,
			Family:     t.Family,
			Onsets:     append([]float64(nil), t.Onsets...),
			Durations:  t.Durations(p.Meter),
			Anchors:    t.Anchors(p.Meter),
			Cadence:    local == p.Measures,
			Climax:     local == p.Climax && local != p.Measures,
			Forced:     forced[i],
		}
		cls, _ := t.Classes(p.Meter)
		for _, d := range cls {
			plan.Tally[d]++
		}
		plan.Measures = append(plan.Measures, mp)
	}

	return plan
}

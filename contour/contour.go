package contour

import (
	"math"
	"sort"

	"github.com/katalvlaran/melodia/exercise"
	"github.com/katalvlaran/melodia/rng"
	"github.com/katalvlaran/melodia/theory"
)

// Shape is a melodic contour.
type Shape int

const (
	Ascending Shape = iota
	Descending
	Arch
	InvertedArch
	Wave
)

var shapeNames = [...]string{"ascending", "descending", "arch", "inverted-arch", "wave"}

func (s Shape) String() string {
	if s < Ascending || s > Wave {
		return "unknown"
	}

	return shapeNames[s]
}

// MarshalText implements encoding.TextMarshaler.
func (s Shape) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Shape) UnmarshalText(b []byte) error {
	for i, n := range shapeNames {
		if n == string(b) {
			*s = Shape(i)
			return nil
		}
	}
	*s = Ascending

	return nil
}

// shapeWeights is indexed by Shape.
var shapeWeights = []float64{0.15, 0.20, 0.35, 0.15, 0.15}

// Target priorities.
const (
	PriorityStart  = 1.0
	PriorityFinal  = 1.0
	PriorityPeak   = 0.9
	PriorityPenult = 0.8
	PriorityBridge = 0.5
	PriorityFill   = 0.4
)

// LowRegisterMidpoint is the highest register midpoint (MIDI) that counts
// as a low register for bridging.
const LowRegisterMidpoint = 60

// Target is a weighted degree goal at one beat.
type Target struct {
	Measure  int     `json:"measure"`
	Local    int     `json:"local"`
	Beat     float64 `json:"beat"`
	Degree   int     `json:"degree"`
	Step     int     `json:"step"`
	Priority float64 `json:"priority"`
}

// Plan is the PhrasePlan of one phrase.
type Plan struct {
	Phrase      int      `json:"phrase"`
	Shape       Shape    `json:"shape"`
	PeakMeasure int      `json:"peak_measure"` // local
	PeakDegree  int      `json:"peak_degree"`
	StartDegree int      `json:"start_degree"`
	Cadence     [2]int   `json:"cadence"` // penultimate, final
	Targets     []Target `json:"targets"`
}

// PeakGlobal returns the global measure of the peak.
func (p Plan) PeakGlobal(firstMeasure int) int { return firstMeasure + p.PeakMeasure - 1 }

// TargetAt returns the target at (measure, beat).
func (p Plan) TargetAt(measure int, beat float64) (Target, bool) {
	for _, t := range p.Targets {
		if t.Measure == measure && math.Abs(t.Beat-beat) < 1e-9 {
			return t, true
		}
	}

	return Target{}, false
}

// Nearest returns the target closest in time to (measure, beat), measured in
// beats of meter m.
func (p Plan) Nearest(measure int, beat float64, m theory.Meter) (Target, bool) {
	if len(p.Targets) == 0 {
		return Target{}, false
	}
	pos := func(mm int, b float64) float64 { return float64(mm-1)*m.Length() + b }
	at := pos(measure, beat)
	best := p.Targets[0]
	for _, t := range p.Targets[1:] {
		if math.Abs(pos(t.Measure, t.Beat)-at) < math.Abs(pos(best.Measure, best.Beat)-at) {
			best = t
		}
	}

	return best, true
}

// Params configures PlanPhrase.
type Params struct {
	Phrase         int
	Measures       int
	FirstMeasure   int
	Meter          theory.Meter
	Cadence        exercise.CadenceType
	LockedStart    int
	HardTonicStart bool
	// RegisterMid is the register midpoint in MIDI.
	RegisterMid int
}

// ParamsFor returns the parameters of phrase p of r.
func ParamsFor(r *exercise.Resolved, p int) Params {
	return Params{
		Phrase:         p,
		Measures:       r.Measures,
		FirstMeasure:   p*r.Measures + 1,
		Meter:          r.Meter,
		Cadence:        r.Cadence(p),
		LockedStart:    r.StartDegree,
		HardTonicStart: r.HardTonicStart,
		RegisterMid:    (r.Low + r.High) / 2,
	}
}

// PlanPhrase draws a contour plan.
func PlanPhrase(p Params, src *rng.Source) Plan {
	plan := Plan{Phrase: p.Phrase}

	// 1) Shape.
	idx, _ := src.WeightedIndex(shapeWeights)
	plan.Shape = Shape(idx)

	// 2) Start degree.
	switch {
	case p.LockedStart != 0:
		plan.StartDegree = p.LockedStart
	case p.HardTonicStart:
		plan.StartDegree = 1
	default:
		if i, _ := src.WeightedIndex([]float64{0.65, 0.35}); i == 1 {
			plan.StartDegree = 3
		} else {
			plan.StartDegree = 1
		}
	}

	// 3) Peak.
	plan.PeakMeasure = peakMeasure(plan.Shape, p, src)
	plan.PeakDegree = 5 + src.Intn(2)
	if plan.PeakDegree == plan.StartDegree {
		plan.PeakDegree = 11 - plan.PeakDegree // 5 <-> 6
	}

	// 4) Cadence degrees.
	plan.Cadence = cadenceDegrees(p.Cadence, src)

	plan.Targets = buildTargets(plan, p)

	return plan
}

// Vary copies prev for a reuse-with-variation phrase, drawing fresh cadence
// degrees for p's cadence type.
func Vary(prev Plan, p Params, src *rng.Source) Plan {
	plan := prev
	plan.Phrase = p.Phrase
	plan.Cadence = cadenceDegrees(p.Cadence, src)
	plan.Targets = buildTargets(plan, p)

	return plan
}

func peakMeasure(s Shape, p Params, src *rng.Source) int {
	n := p.Measures
	switch {
	case n <= 2:
		return 1
	case s == Ascending:
		return n - 1
	case s == Descending && p.Meter.Beats == 4:
		return 1
	case s == Descending:
		return 2
	}
	lo := int(math.Max(2, math.Round(float64(n)*0.4)))
	hi := int(math.Min(float64(n-1), math.Round(float64(n)*0.75)))
	if hi < lo {
		hi = lo
	}
	weights := make([]float64, n-1)
	for m := 1; m < n; m++ {
		if m >= lo && m <= hi {
			weights[m-1] = 1
		} else {
			weights[m-1] = 0.2
		}
	}
	i, _ := src.WeightedIndex(weights)

	return i + 1
}

func cadenceDegrees(c exercise.CadenceType, src *rng.Source) [2]int {
	if c == exercise.HalfCadence {
		return [2]int{[]int{4, 6}[src.Intn(2)], 5}
	}

	return [2]int{[]int{2, 7}[src.Intn(2)], 1}
}

// height returns the diatonic height of degree d in the octave placing it
// closest to near.
func height(d, near int) int {
	base := d - 1
	best := base
	for k := -2; k <= 2; k++ {
		h := base + 7*k
		if abs(h-near) < abs(best-near) {
			best = h
		}
	}

	return best
}

// degreeOf folds a height into 1..7.
func degreeOf(h int) int { return ((h%7)+7)%7 + 1 }

func abs(x int) int {
	if x < 0 {
		return -x
	}

	return x
}

type pos struct {
	local int
	beat  float64
}

func buildTargets(plan Plan, p Params) []Target {
	n := p.Measures
	strongLast := p.Meter.StrongBeats()[len(p.Meter.StrongBeats())-1]

	// key positions
	start := pos{1, 1}
	peak := pos{plan.PeakMeasure, 1}
	if plan.PeakMeasure == 1 {
		peak.beat = 2
		if p.Meter.Beats == 4 {
			peak.beat = 3
		}
	}
	penult := pos{n - 1, strongLast}
	final := pos{n, 1}

	hs := plan.StartDegree - 1
	hp := height(plan.PeakDegree, hs+4)
	if hp <= hs {
		hp += 7
	}
	hf := height(plan.Cadence[1], hs)
	if plan.Cadence[1] == 5 && hf >= hp {
		hf -= 7
	}
	hq := height(plan.Cadence[0], hf)

	set := map[pos]Target{}
	add := func(at pos, h int, prio float64) {
		if at.local < 1 || at.local > n {
			return
		}
		if old, ok := set[at]; ok && old.Priority >= prio {
			return
		}
		set[at] = Target{
			Measure:  p.FirstMeasure + at.local - 1,
			Local:    at.local,
			Beat:     at.beat,
			Degree:   degreeOf(h),
			Step:     h,
			Priority: prio,
		}
	}

	// fill strong beats by interpolation; the cadence measure holds only the final
	slot := func(at pos) float64 {
		return float64(at.local-1)*p.Meter.Length() + at.beat
	}
	for local := 1; local < n; local++ {
		for _, b := range p.Meter.StrongBeats() {
			at := pos{local, b}
			add(at, fill(plan.Shape, slot(at), slot(start), slot(peak), slot(penult), hs, hp, hq), PriorityFill)
		}
	}
	add(start, hs, PriorityStart)
	add(peak, hp, PriorityPeak)
	if n >= 2 {
		add(penult, hq, PriorityPenult)
	}
	add(final, hf, PriorityFinal)

	out := make([]Target, 0, len(set))
	for _, t := range set {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Measure != out[j].Measure {
			return out[i].Measure < out[j].Measure
		}
		return out[i].Beat < out[j].Beat
	})
	if p.RegisterMid <= LowRegisterMidpoint {
		out = Bridge(out, p)
	}

	return out
}

// fill interpolates the height at x between start, peak and penultimate.
func fill(s Shape, x, xs, xp, xq float64, hs, hp, hq int) int {
	var h, t float64
	switch {
	case x <= xp:
		t = ratio(x, xs, xp)
		h = float64(hs) + t*float64(hp-hs)
	default:
		t = ratio(x, xp, xq)
		h = float64(hp) + t*float64(hq-hp)
	}
	switch s {
	case InvertedArch:
		if x < xp {
			h -= 2 * math.Sin(math.Pi*t)
		}
	case Wave:
		h += 1.5 * math.Sin(2*math.Pi*t)
	}
	// never overshoot the peak
	if hi := float64(hp - 1); h > hi && x != xp {
		h = hi
	}

	return int(math.Round(h))
}

func ratio(x, a, b float64) float64 {
	if b <= a {
		return 1
	}
	t := (x - a) / (b - a)

	return math.Max(0, math.Min(1, t))
}

// Bridge inserts a degree 2 or 3 target between adjacent targets jumping
// directly between degrees 1 and 7 by more than a step. When no free strong
// or on-beat position lies between them, the lower-priority target is
// retuned instead unless both are fixed.
func Bridge(ts []Target, p Params) []Target {
	out := make([]Target, 0, len(ts)+2)
	for i, t := range ts {
		if i == 0 {
			out = append(out, t)
			continue
		}
		prev := out[len(out)-1]
		if !isSevenOneJump(prev, t) {
			out = append(out, t)
			continue
		}
		mid := (prev.Step + t.Step) / 2
		h := height(2, mid)
		if abs(height(3, mid)-mid) < abs(h-mid) {
			h = height(3, mid)
		}
		if b, ok := between(prev, t, p); ok {
			out = append(out, Target{
				Measure: b.Measure, Local: b.Local, Beat: b.Beat,
				Degree: degreeOf(h), Step: h, Priority: PriorityBridge,
			})
			out = append(out, t)
			continue
		}
		switch {
		case t.Priority < PriorityPenult:
			t.Step, t.Degree = h, degreeOf(h)
		case prev.Priority < PriorityPenult:
			out[len(out)-1].Step, out[len(out)-1].Degree = h, degreeOf(h)
		}
		out = append(out, t)
	}

	return out
}

func isSevenOneJump(a, b Target) bool {
	pair := (a.Degree == 1 && b.Degree == 7) || (a.Degree == 7 && b.Degree == 1)

	return pair && abs(a.Step-b.Step) > 1
}

// between returns an on-beat position strictly between a and b.
func between(a, b Target, p Params) (Target, bool) {
	length := int(p.Meter.Length())
	x := (a.Local-1)*length + int(a.Beat)
	y := (b.Local-1)*length + int(b.Beat)
	if y-x < 2 {
		return Target{}, false
	}
	m := (x + y) / 2
	local, beat := (m-1)/length+1, (m-1)%length+1

	return Target{Measure: p.FirstMeasure + local - 1, Local: local, Beat: float64(beat)}, true
}

package score

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/katalvlaran/melodia/dtw"
	"github.com/katalvlaran/melodia/exercise"
	"github.com/katalvlaran/melodia/harmony"
	"github.com/katalvlaran/melodia/melody"
	"github.com/katalvlaran/melodia/theory"
)

// Shape targets.
const (
	// ContourTarget is the preferred number of direction changes per phrase.
	ContourTarget = 2
	// SkipLow and SkipHigh bound the healthy share of skips (3 to 7 semitones).
	SkipLow  = 0.15
	SkipHigh = 0.40
	// RecoveryMin is the smallest leap that wants a contrary step after it.
	RecoveryMin = theory.PerfectFourth
)

// Weights scales each term.
type Weights struct {
	Stepwise    float64
	Variety     float64
	StrongChord float64
	Resolution  float64
	Contour     float64
	Cadence     float64
	Rhythm      float64
	Skip        float64
	LargeLeap   float64
	Backtrack   float64
	Unrecovered float64
	Unresolved  float64
	Reprise     float64
}

// DefaultWeights returns the weights used by the generator.
func DefaultWeights() Weights {
	return Weights{
		Stepwise:    2.0,
		Variety:     1.0,
		StrongChord: 2.0,
		Resolution:  1.0,
		Contour:     1.0,
		Cadence:     2.0,
		Rhythm:      1.5,
		Skip:        1.0,
		LargeLeap:   1.5,
		Backtrack:   1.0,
		Unrecovered: 1.0,
		Unresolved:  0.5,
		Reprise:     1.0,
	}
}

// Breakdown holds every raw term and the weighted total. Reward terms lie in
// [0,1]; penalty terms are non-negative.
type Breakdown struct {
	Stepwise    float64 `json:"stepwise"`
	Variety     float64 `json:"variety"`
	StrongChord float64 `json:"strong_chord"`
	Resolution  float64 `json:"resolution"`
	Contour     float64 `json:"contour"`
	Cadence     float64 `json:"cadence"`
	Rhythm      float64 `json:"rhythm"`
	Skip        float64 `json:"skip"`
	LargeLeap   float64 `json:"large_leap"`
	Backtrack   float64 `json:"backtrack"`
	Unrecovered float64 `json:"unrecovered"`
	Unresolved  float64 `json:"unresolved"`
	Reprise     float64 `json:"reprise"`
	Total       float64 `json:"total"`
}

// Input is everything Score reads.
type Input struct {
	R       *exercise.Resolved
	Seq     *melody.Sequence
	Harmony []harmony.Event
	// Generator supplies cadence transition weights; nil uses the diatonic graph.
	Generator *harmony.Generator
	// Unresolved is the number of unresolved repair entries.
	Unresolved int
}

// Score rates in.Seq under w.
func Score(in Input, w Weights) Breakdown {
	gen := in.Generator
	if gen == nil {
		gen = harmony.NewGenerator(nil)
	}
	atk := in.Seq.AttackEvents()
	ivs := intervals(atk)

	var b Breakdown
	b.Stepwise = stepwise(ivs)
	b.Variety = variety(atk)
	b.StrongChord = strongChord(atk, in.Harmony, in.R.Meter)
	b.Resolution = resolution(atk, in.Harmony, in.R.Meter)
	b.Contour = contour(atk)
	b.Cadence = cadence(in, atk, gen)
	b.Rhythm = rhythmFit(atk, in.R.Distribution)
	b.Skip = skip(ivs)
	b.LargeLeap = largeLeap(ivs)
	b.Backtrack = backtrack(atk)
	b.Unrecovered = unrecovered(ivs)
	b.Unresolved = float64(in.Unresolved)
	b.Reprise = reprise(in.R, atk)

	b.Total = w.Stepwise*b.Stepwise +
		w.Variety*b.Variety +
		w.StrongChord*b.StrongChord +
		w.Resolution*b.Resolution +
		w.Contour*b.Contour +
		w.Cadence*b.Cadence +
		w.Rhythm*b.Rhythm +
		w.Skip*b.Skip +
		w.Reprise*b.Reprise -
		w.LargeLeap*b.LargeLeap -
		w.Backtrack*b.Backtrack -
		w.Unrecovered*b.Unrecovered -
		w.Unresolved*b.Unresolved

	return b
}

// intervals returns the signed moves between consecutive attacks of the
// same phrase.
func intervals(atk []melody.Event) []int {
	var out []int
	for i := 1; i < len(atk); i++ {
		if atk[i].Phrase == atk[i-1].Phrase {
			out = append(out, atk[i].MIDI-atk[i-1].MIDI)
		}
	}

	return out
}

func stepwise(ivs []int) float64 {
	if len(ivs) == 0 {
		return 0
	}
	n := 0
	for _, iv := range ivs {
		if a := theory.Abs(iv); a >= 1 && a <= theory.StepMax {
			n++
		}
	}

	return float64(n) / float64(len(ivs))
}

// variety is the pitch-class entropy normalised by its maximum for the
// number of attacks.
func variety(atk []melody.Event) float64 {
	if len(atk) < 2 {
		return 0
	}
	hist := make([]float64, 12)
	for _, e := range atk {
		hist[e.MIDI%12]++
	}
	floats.Scale(1/floats.Sum(hist), hist)
	maxH := math.Log(math.Min(12, float64(len(atk))))

	return stat.Entropy(hist) / maxH
}

func chordAt(hs []harmony.Event, e melody.Event) (harmony.Event, bool) {
	if e.HarmonyID < 0 || e.HarmonyID >= len(hs) {
		return harmony.Event{}, false
	}

	return hs[e.HarmonyID], true
}

func strongChord(atk []melody.Event, hs []harmony.Event, m theory.Meter) float64 {
	n, hit := 0, 0
	for _, e := range atk {
		if !m.IsStrong(e.Onset) {
			continue
		}
		n++
		if h, ok := chordAt(hs, e); ok && h.Contains(e.MIDI%12) {
			hit++
		}
	}
	if n == 0 {
		return 1
	}

	return float64(hit) / float64(n)
}

// resolution is the share of non-harmonic attacks whose next strong-beat
// attack in the phrase is a chord tone.
func resolution(atk []melody.Event, hs []harmony.Event, m theory.Meter) float64 {
	n, ok := 0, 0
	for i, e := range atk {
		if h, found := chordAt(hs, e); !found || h.Contains(e.MIDI%12) {
			continue
		}
		n++
		for j := i + 1; j < len(atk) && atk[j].Phrase == e.Phrase; j++ {
			if m.IsStrong(atk[j].Onset) {
				if h, found := chordAt(hs, atk[j]); found && h.Contains(atk[j].MIDI%12) {
					ok++
				}
				break
			}
		}
	}
	if n == 0 {
		return 1
	}

	return float64(ok) / float64(n)
}

// contour averages, over phrases, 1/(1+|changes-ContourTarget|).
func contour(atk []melody.Event) float64 {
	var per []float64
	for lo := 0; lo < len(atk); {
		hi := lo
		for hi < len(atk) && atk[hi].Phrase == atk[lo].Phrase {
			hi++
		}
		changes, dir := 0, 0
		for i := lo + 1; i < hi; i++ {
			s := theory.Sign(atk[i].MIDI - atk[i-1].MIDI)
			if s == 0 {
				continue
			}
			if dir != 0 && s != dir {
				changes++
			}
			dir = s
		}
		per = append(per, 1/(1+math.Abs(float64(changes-ContourTarget))))
		lo = hi
	}
	if len(per) == 0 {
		return 0
	}

	return stat.Mean(per, nil)
}

// cadence averages, over phrases, a melodic half (final degree and stepwise
// approach) and a harmonic half (last harmony transition weight squashed
// into [0,1)).
func cadence(in Input, atk []melody.Event, gen *harmony.Generator) float64 {
	var per []float64
	for p := 0; p < in.R.PhraseCount(); p++ {
		var mel []melody.Event
		for _, e := range atk {
			if e.Phrase == p {
				mel = append(mel, e)
			}
		}
		hs := harmony.PhraseEvents(in.Harmony, p)
		if len(mel) < 2 || len(hs) < 2 {
			continue
		}
		fin, pen := mel[len(mel)-1], mel[len(mel)-2]
		melodic := 0.0
		d, _ := in.R.Key.DegreeOfMIDI(fin.MIDI)
		switch c := in.R.Cadence(p); {
		case c == exercise.HalfCadence && d == 5, c != exercise.HalfCadence && d == 1:
			melodic += 0.6
		case c != exercise.HalfCadence && d == 3:
			melodic += 0.3
		}
		if theory.IsStep(pen.MIDI, fin.MIDI) {
			melodic += 0.4
		}
		w := gen.TransitionWeight(hs[len(hs)-2].Degree, hs[len(hs)-1].Degree, harmony.StageCadence)
		per = append(per, 0.5*melodic+0.5*w/(1+w))
	}
	if len(per) == 0 {
		return 0
	}

	return stat.Mean(per, nil)
}

// rhythmFit is 1 minus half the L1 distance between the attack duration
// histogram and the target distribution.
func rhythmFit(atk []melody.Event, target [4]float64) float64 {
	if len(atk) == 0 {
		return 0
	}
	hist := make([]float64, len(target))
	for _, e := range atk {
		hist[e.Duration]++
	}
	floats.Scale(1/float64(len(atk)), hist)

	return 1 - floats.Distance(hist, target[:], 1)/2
}

func skip(ivs []int) float64 {
	if len(ivs) == 0 {
		return 0
	}
	n := 0
	for _, iv := range ivs {
		if a := theory.Abs(iv); a > theory.StepMax && a <= theory.PerfectFifth {
			n++
		}
	}
	rate := float64(n) / float64(len(ivs))
	switch {
	case rate < SkipLow:
		return math.Max(0, 1-(SkipLow-rate)*4)
	case rate > SkipHigh:
		return math.Max(0, 1-(rate-SkipHigh)*4)
	}

	return 1
}

// largeLeap sums the semitones by which leaps exceed a perfect fifth, per
// interval.
func largeLeap(ivs []int) float64 {
	if len(ivs) == 0 {
		return 0
	}
	sum := 0.0
	for _, iv := range ivs {
		if a := theory.Abs(iv); a > theory.PerfectFifth {
			sum += float64(a - theory.PerfectFifth)
		}
	}

	return sum / float64(len(ivs))
}

// backtrack is the share of three-note groups a-b-a within a phrase.
func backtrack(atk []melody.Event) float64 {
	if len(atk) < 3 {
		return 0
	}
	n, groups := 0, 0
	for i := 2; i < len(atk); i++ {
		if atk[i].Phrase != atk[i-2].Phrase {
			continue
		}
		groups++
		if atk[i].MIDI == atk[i-2].MIDI && atk[i].MIDI != atk[i-1].MIDI {
			n++
		}
	}
	if groups == 0 {
		return 0
	}

	return float64(n) / float64(groups)
}

// unrecovered is the share of leaps of at least RecoveryMin semitones not
// followed by a contrary step.
func unrecovered(ivs []int) float64 {
	n, leaps := 0, 0
	for i, iv := range ivs {
		if theory.Abs(iv) < RecoveryMin {
			continue
		}
		leaps++
		if i+1 >= len(ivs) {
			continue
		}
		next := ivs[i+1]
		if theory.Abs(next) < 1 || theory.Abs(next) > theory.StepMax || theory.Sign(next) == theory.Sign(iv) {
			n++
		}
	}
	if leaps == 0 {
		return 0
	}

	return float64(n) / float64(leaps)
}

// reprise rates how well each reused phrase keeps the interval profile of
// its source, averaged over reused phrases. Zero without reuse.
func reprise(r *exercise.Resolved, atk []melody.Event) float64 {
	profiles := make([][]float64, r.PhraseCount())
	for i := 1; i < len(atk); i++ {
		if p := atk[i].Phrase; p == atk[i-1].Phrase && p < len(profiles) {
			profiles[p] = append(profiles[p], float64(atk[i].MIDI-atk[i-1].MIDI))
		}
	}

	var sum float64
	var n int
	for p := range profiles {
		src := r.ReuseSource(p)
		if src < 0 || len(profiles[p]) == 0 || len(profiles[src]) == 0 {
			continue
		}
		a, b := profiles[src], profiles[p]
		d, err := dtw.Distance(a, b,
			dtw.WithWindow(max(2, theory.Abs(len(a)-len(b)))),
			dtw.WithSlopePenalty(1))
		if err != nil {
			continue
		}
		sum += dtw.Similarity(d, max(len(a), len(b)))
		n++
	}
	if n == 0 {
		return 0
	}

	return sum / float64(n)
}

package exercise

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/katalvlaran/melodia/rhythm"
	"github.com/katalvlaran/melodia/theory"
)

// Re-exported sentinels raised by collaborators during validation.
var (
	ErrNoTemplate  = rhythm.ErrNoTemplate
	ErrEighthQuota = rhythm.ErrEighthQuota
	ErrMeter       = theory.ErrUnsupportedMeter
	ErrKey         = theory.ErrUnknownKey
)

// Register bounds accepted by Validate.
const (
	MinRegisterMIDI = 36
	MaxRegisterMIDI = 96
	MinRegisterSpan = 7
	MinLeapCap      = 2
	MaxLeapCap      = 24
	MinMeasures     = 2
	weightTolerance = 0.02
)

// Resolved is a validated Spec with every field parsed into engine form.
type Resolved struct {
	Spec     Spec
	Key      theory.Key
	Meter    theory.Meter
	Low      int // MIDI
	High     int // MIDI
	Allowed  theory.DurationSet
	Measures int // per phrase

	// Distribution is the normalised target indexed by theory.Duration.
	Distribution [4]float64

	StartDegree    int // 0 = free
	HardTonicStart bool
	MaxLeap        int
	MaxLargeLeaps  int
	MinEighthPairs int

	IllegalDegrees     map[int]bool
	IllegalIntervals   map[int]bool
	IllegalTransitions map[Transition]bool
}

// PhraseCount returns the number of phrases.
func (r *Resolved) PhraseCount() int { return len(r.Spec.Phrases) }

// TotalMeasures returns the number of measures across all phrases.
func (r *Resolved) TotalMeasures() int { return r.Measures * len(r.Spec.Phrases) }

// Cadence returns the effective cadence of phrase i, honouring the override.
func (r *Resolved) Cadence(i int) CadenceType {
	if r.Spec.Constraints.Cadence != nil {
		return *r.Spec.Constraints.Cadence
	}

	return r.Spec.Phrases[i].Cadence
}

// ReuseSource returns the index of the earlier phrase whose material phrase i
// reuses, or -1.
func (r *Resolved) ReuseSource(i int) int {
	p := r.Spec.Phrases[i]
	if !p.Reuse || p.Label == "" {
		return -1
	}
	for j := 0; j < i; j++ {
		if r.Spec.Phrases[j].Label == p.Label {
			return j
		}
	}

	return -1
}

// DegreeLegal reports whether deg is not in the illegal-degree set.
func (r *Resolved) DegreeLegal(deg int) bool { return !r.IllegalDegrees[deg] }

// IllegalDegreeList returns the illegal degrees in ascending order.
func (r *Resolved) IllegalDegreeList() []int { return sortedKeys(r.IllegalDegrees) }

// IllegalIntervalList returns the illegal intervals in ascending order.
func (r *Resolved) IllegalIntervalList() []int { return sortedKeys(r.IllegalIntervals) }

// IllegalTransitionList returns the illegal transitions ordered by (from, to).
func (r *Resolved) IllegalTransitionList() []Transition {
	out := make([]Transition, 0, len(r.IllegalTransitions))
	for t := range r.IllegalTransitions {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		return out[i].To < out[j].To
	})

	return out
}

// RhythmParams returns the per-phrase rhythm planner parameters.
func (r *Resolved) RhythmParams() rhythm.Params {
	return rhythm.Params{
		Meter:          r.Meter,
		Allowed:        r.Allowed,
		Target:         r.Distribution,
		MinEighthPairs: r.MinEighthPairs,
		Measures:       r.Measures,
	}
}

func sortedKeys(m map[int]bool) []int {
	out := make([]int, 0, len(m))
	for k, v := range m {
		if v {
			out = append(out, k)
		}
	}
	sort.Ints(out)

	return out
}

// Validate reports the first input-validation failure, or nil.
func (s Spec) Validate() error {
	_, err := s.Resolve()
	return err
}

// Resolve validates s and returns its engine form.
// Every error wraps ErrInvalidSpec.
func (s Spec) Resolve() (*Resolved, error) {
	// 1) Durations and rhythm weights.
	allowed, err := resolveDurations(s.Constraints.AllowedDurations)
	if err != nil {
		return nil, invalid(err)
	}
	dist, err := resolveWeights(s.Rhythm)
	if err != nil {
		return nil, invalid(err)
	}

	// 2) Key, meter, phrase shape.
	key, err := theory.ParseKey(s.Key, s.Mode)
	if err != nil {
		return nil, invalid(err)
	}
	if err = s.Meter.Validate(); err != nil {
		return nil, invalid(err)
	}
	if len(s.Phrases) == 0 {
		return nil, invalid(fmt.Errorf("%w: at least one phrase required", ErrPhrases))
	}
	if s.MeasuresPerPhrase < MinMeasures {
		return nil, invalid(fmt.Errorf("%w: measures per phrase %d < %d", ErrPhrases, s.MeasuresPerPhrase, MinMeasures))
	}
	for i, p := range s.Phrases {
		if p.Cadence < Authentic || p.Cadence > HalfCadence {
			return nil, invalid(fmt.Errorf("%w: phrase %d has unknown cadence", ErrPhrases, i))
		}
	}
	if c := s.Constraints.Cadence; c != nil && (*c < Authentic || *c > HalfCadence) {
		return nil, invalid(fmt.Errorf("%w: unknown cadence override", ErrPhrases))
	}

	// 3) Register.
	for _, p := range []Pitch{s.Low, s.High} {
		if err = checkDegree("register", p.Degree); err != nil {
			return nil, invalid(err)
		}
	}
	lo, hi := key.MIDI(s.Low.Degree, s.Low.Octave), key.MIDI(s.High.Degree, s.High.Octave)
	switch {
	case lo >= hi:
		return nil, invalid(fmt.Errorf("%w: low %s not below high %s", ErrRegister, key.NameOf(lo), key.NameOf(hi)))
	case hi-lo < MinRegisterSpan:
		return nil, invalid(fmt.Errorf("%w: span %d semitones < %d", ErrRegister, hi-lo, MinRegisterSpan))
	case lo < MinRegisterMIDI || hi > MaxRegisterMIDI:
		return nil, invalid(fmt.Errorf("%w: [%d, %d] outside MIDI [%d, %d]", ErrRegister, lo, hi, MinRegisterMIDI, MaxRegisterMIDI))
	}

	// 4) Leap limits and degree rules.
	c := s.Constraints
	if c.MaxLeap < MinLeapCap || c.MaxLeap > MaxLeapCap {
		return nil, invalid(fmt.Errorf("%w: max leap %d outside [%d, %d]", ErrLeapCap, c.MaxLeap, MinLeapCap, MaxLeapCap))
	}
	if c.MaxLargeLeaps < 0 {
		return nil, invalid(fmt.Errorf("%w: max large leaps %d < 0", ErrLeapCap, c.MaxLargeLeaps))
	}
	if c.MinEighthPairs < 0 {
		return nil, invalid(fmt.Errorf("%w: negative quota %d", ErrEighthQuota, c.MinEighthPairs))
	}
	if c.LockedStartDegree != 0 {
		if err = checkDegree("locked start", c.LockedStartDegree); err != nil {
			return nil, invalid(err)
		}
	}
	r := &Resolved{
		Spec:               s,
		Key:                key,
		Meter:              s.Meter,
		Low:                lo,
		High:               hi,
		Allowed:            allowed,
		Measures:           s.MeasuresPerPhrase,
		Distribution:       dist,
		StartDegree:        c.LockedStartDegree,
		HardTonicStart:     c.HardTonicStart,
		MaxLeap:            c.MaxLeap,
		MaxLargeLeaps:      c.MaxLargeLeaps,
		MinEighthPairs:     c.MinEighthPairs,
		IllegalDegrees:     make(map[int]bool, len(s.IllegalDegrees)),
		IllegalIntervals:   make(map[int]bool, len(s.IllegalIntervals)),
		IllegalTransitions: make(map[Transition]bool, len(s.IllegalTransitions)),
	}
	for _, d := range s.IllegalDegrees {
		if err = checkDegree("illegal degree", d); err != nil {
			return nil, invalid(err)
		}
		r.IllegalDegrees[d] = true
	}
	for _, iv := range s.IllegalIntervals {
		if iv < 0 || iv > MaxLeapCap {
			return nil, invalid(fmt.Errorf("%w: illegal interval %d outside [0, %d]", ErrLeapCap, iv, MaxLeapCap))
		}
		r.IllegalIntervals[iv] = true
	}
	for _, t := range s.IllegalTransitions {
		if err = checkDegree("transition", t.From); err != nil {
			return nil, invalid(err)
		}
		if err = checkDegree("transition", t.To); err != nil {
			return nil, invalid(err)
		}
		r.IllegalTransitions[t] = true
	}

	// 5) Template availability and eighth quota.
	if err = rhythm.CheckFeasible(s.Meter, allowed, s.MeasuresPerPhrase, c.MinEighthPairs); err != nil {
		return nil, invalid(err)
	}

	return r, nil
}

// Fingerprint returns a stable hex SHA-1 of the canonical JSON form of s.
func (s Spec) Fingerprint() string {
	c := s
	c.IllegalDegrees = sortedCopy(s.IllegalDegrees)
	c.IllegalIntervals = sortedCopy(s.IllegalIntervals)
	// Marshal cannot fail: every field is a plain value or a TextMarshaler
	// that never errors.
	b, _ := json.Marshal(c)
	sum := sha1.Sum(b)

	return hex.EncodeToString(sum[:])
}

func sortedCopy(in []int) []int {
	if in == nil {
		return nil
	}
	out := append([]int(nil), in...)
	sort.Ints(out)

	return out
}

func invalid(err error) error { return fmt.Errorf("%w: %w", ErrInvalidSpec, err) }

func checkDegree(what string, deg int) error {
	if deg < 1 || deg > 7 {
		return fmt.Errorf("%w: %s %d", ErrDegree, what, deg)
	}

	return nil
}

func resolveDurations(ds []theory.Duration) (theory.DurationSet, error) {
	set := theory.NewDurationSet(ds...)
	switch {
	case set.Len() == 0:
		return 0, ErrEmptyDurations
	case set.Len() > 3:
		return 0, fmt.Errorf("%w: got %d", ErrTooManyDurations, set.Len())
	}

	return set, nil
}

func resolveWeights(w RhythmWeights) ([4]float64, error) {
	var out [4]float64
	raw := [4]float64{theory.Eighth: w.Eighth, theory.Quarter: w.Quarter, theory.Half: w.Half, theory.Whole: w.Whole}
	total := 0.0
	for _, v := range raw {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return out, fmt.Errorf("%w: weight %v", ErrRhythmWeights, v)
		}
		total += v
	}
	switch {
	case math.Abs(total-1) <= weightTolerance:
	case math.Abs(total-100) <= weightTolerance*100:
	default:
		return out, fmt.Errorf("%w: total %.3f is neither ~1 nor ~100", ErrRhythmWeights, total)
	}
	for i, v := range raw {
		out[i] = v / total
	}

	return out, nil
}

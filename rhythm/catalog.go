package rhythm

import (
	"errors"
	"fmt"

	"github.com/katalvlaran/melodia/theory"
)

// Sentinel errors.
var (
	// ErrNoTemplate indicates the allowed durations admit no template.
	ErrNoTemplate = errors.New("rhythm: no template legal under allowed durations")

	// ErrEighthQuota indicates the eighth-pair quota cannot be met.
	ErrEighthQuota = errors.New("rhythm: eighth-pair quota unsatisfiable")
)

// Family groups templates by role.
type Family int

const (
	// FamilyPlain is quarter-note based material.
	FamilyPlain Family = iota
	// FamilySmoothing holds exactly one eighth pair.
	FamilySmoothing
	// FamilyRun holds two eighth pairs.
	FamilyRun
	// FamilyCadence holds long closing values.
	FamilyCadence
	// FamilyClimax opens on a long note.
	FamilyClimax
)

var familyNames = [...]string{"plain", "smoothing", "run", "cadence", "climax"}

func (f Family) String() string {
	if f < FamilyPlain || f > FamilyClimax {
		return "unknown"
	}

	return familyNames[f]
}

// MarshalText implements encoding.TextMarshaler.
func (f Family) MarshalText() ([]byte, error) { return []byte(f.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Family) UnmarshalText(b []byte) error {
	for i, n := range familyNames {
		if n == string(b) {
			*f = Family(i)
			return nil
		}
	}
	*f = FamilyPlain

	return nil
}

// Template is one catalog entry.
type Template struct {
	ID     string
	Family Family
	Onsets []float64
}

// Durations returns the beat length of each onset for meter m.
func (t Template) Durations(m theory.Meter) []float64 {
	end := m.Length() + 1
	out := make([]float64, len(t.Onsets))
	for i, on := range t.Onsets {
		next := end
		if i+1 < len(t.Onsets) {
			next = t.Onsets[i+1]
		}
		out[i] = next - on
	}

	return out
}

// Classes returns the duration class of each onset. ok is false when any gap
// is not a legal class.
func (t Template) Classes(m theory.Meter) (cls []theory.Duration, ok bool) {
	ds := t.Durations(m)
	cls = make([]theory.Duration, len(ds))
	for i, b := range ds {
		d, found := theory.DurationForBeats(b)
		if !found {
			return nil, false
		}
		cls[i] = d
	}

	return cls, true
}

// Legal reports whether every duration of t is in allowed.
func (t Template) Legal(m theory.Meter, allowed theory.DurationSet) bool {
	cls, ok := t.Classes(m)
	if !ok {
		return false
	}
	for _, d := range cls {
		if !allowed.Has(d) {
			return false
		}
	}

	return true
}

// EighthPairs counts the eighth pairs of t.
func (t Template) EighthPairs(m theory.Meter) int {
	n := 0
	for _, b := range t.Durations(m) {
		if b == theory.Eighth.Beats() {
			n++
		}
	}

	return n / 2
}

// Anchors returns the onsets of t that fall on strong beats of m.
func (t Template) Anchors(m theory.Meter) []float64 {
	var out []float64
	for _, on := range t.Onsets {
		if m.IsStrong(on) {
			out = append(out, on)
		}
	}

	return out
}

var catalogs = map[int][]Template{
	4: {
		{ID: "plain", Family: FamilyPlain, Onsets: []float64{1, 2, 3, 4}},
		{ID: "smooth1", Family: FamilySmoothing, Onsets: []float64{1, 1.5, 2, 3, 4}},
		{ID: "smooth2", Family: FamilySmoothing, Onsets: []float64{1, 2, 2.5, 3, 4}},
		{ID: "smooth3", Family: FamilySmoothing, Onsets: []float64{1, 2, 3, 3.5, 4}},
		{ID: "run12", Family: FamilyRun, Onsets: []float64{1, 1.5, 2, 2.5, 3, 4}},
		{ID: "run23", Family: FamilyRun, Onsets: []float64{1, 2, 2.5, 3, 3.5, 4}},
		{ID: "cadence-whole", Family: FamilyCadence, Onsets: []float64{1}},
		{ID: "cadence-halves", Family: FamilyCadence, Onsets: []float64{1, 3}},
		{ID: "climax", Family: FamilyClimax, Onsets: []float64{1, 3, 4}},
		{ID: "long-tail", Family: FamilyPlain, Onsets: []float64{1, 2, 3}},
	},
	3: {
		{ID: "plain", Family: FamilyPlain, Onsets: []float64{1, 2, 3}},
		{ID: "smooth1", Family: FamilySmoothing, Onsets: []float64{1, 1.5, 2, 3}},
		{ID: "smooth2", Family: FamilySmoothing, Onsets: []float64{1, 2, 2.5, 3}},
		{ID: "smooth3", Family: FamilySmoothing, Onsets: []float64{1, 2, 3, 3.5}},
		{ID: "run12", Family: FamilyRun, Onsets: []float64{1, 1.5, 2, 2.5, 3}},
		{ID: "run23", Family: FamilyRun, Onsets: []float64{1, 2, 2.5, 3, 3.5}},
		{ID: "cadence-halves", Family: FamilyCadence, Onsets: []float64{1, 3}},
		{ID: "climax", Family: FamilyClimax, Onsets: []float64{1, 3}},
		{ID: "long-tail", Family: FamilyPlain, Onsets: []float64{1, 2}},
	},
	2: {
		{ID: "plain", Family: FamilyPlain, Onsets: []float64{1, 2}},
		{ID: "smooth1", Family: FamilySmoothing, Onsets: []float64{1, 1.5, 2}},
		{ID: "smooth2", Family: FamilySmoothing, Onsets: []float64{1, 2, 2.5}},
		{ID: "run12", Family: FamilyRun, Onsets: []float64{1, 1.5, 2, 2.5}},
		{ID: "cadence-halves", Family: FamilyCadence, Onsets: []float64{1}},
		{ID: "climax", Family: FamilyClimax, Onsets: []float64{1}},
	},
}

// Catalog returns a copy of the template catalog for m, or nil when m is
// unsupported.
func Catalog(m theory.Meter) []Template {
	if m.Validate() != nil {
		return nil
	}
	src := catalogs[m.Beats]
	out := make([]Template, len(src))
	for i, t := range src {
		out[i] = Template{ID: t.ID, Family: t.Family, Onsets: append([]float64(nil), t.Onsets...)}
	}

	return out
}

// Lookup returns the template with id for m.
func Lookup(m theory.Meter, id string) (Template, bool) {
	for _, t := range Catalog(m) {
		if t.ID == id {
			return t, true
		}
	}

	return Template{}, false
}

// Legal returns the catalog templates of m legal under allowed, in catalog order.
func Legal(m theory.Meter, allowed theory.DurationSet) []Template {
	var out []Template
	for _, t := range Catalog(m) {
		if t.Legal(m, allowed) {
			out = append(out, t)
		}
	}

	return out
}

// EligibleMeasures returns how many measures of a phrase may receive a
// forced eighth-bearing template: all but the cadence measure, and all but
// the climax measure when the phrase has at least three measures.
func EligibleMeasures(measures int) int {
	switch {
	case measures >= 3:
		return measures - 2
	case measures == 2:
		return 1
	default:
		return 0
	}
}

// CheckFeasible reports whether a phrase of the given length can be planned.
func CheckFeasible(m theory.Meter, allowed theory.DurationSet, measures, quota int) error {
	if err := m.Validate(); err != nil {
		return err
	}
	legal := Legal(m, allowed)
	if len(legal) == 0 {
		return fmt.Errorf("%w: meter %s, allowed %v", ErrNoTemplate, m, allowed.Slice())
	}
	if quota <= 0 {
		return nil
	}
	if !allowed.Has(theory.Eighth) {
		return fmt.Errorf("%w: %d pairs required but eighths are not allowed", ErrEighthQuota, quota)
	}
	maxPairs := 0
	for _, t := range legal {
		if p := t.EighthPairs(m); p > maxPairs {
			maxPairs = p
		}
	}
	if capacity := EligibleMeasures(measures) * maxPairs; quota > capacity {
		return fmt.Errorf("%w: %d pairs required, at most %d fit", ErrEighthQuota, quota, capacity)
	}

	return nil
}

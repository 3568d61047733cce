package theory

// Quality is the interval structure of a triad.
type Quality int

const (
	// QualityMajor is root, major third, perfect fifth.
	QualityMajor Quality = iota
	// QualityMinor is root, minor third, perfect fifth.
	QualityMinor
	// QualityDiminished is root, minor third, diminished fifth.
	QualityDiminished
	// QualityAugmented is root, major third, augmented fifth.
	QualityAugmented
)

func (q Quality) String() string {
	switch q {
	case QualityMinor:
		return "minor"
	case QualityDiminished:
		return "diminished"
	case QualityAugmented:
		return "augmented"
	}

	return "major"
}

// MarshalText implements encoding.TextMarshaler.
func (q Quality) MarshalText() ([]byte, error) { return []byte(q.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (q *Quality) UnmarshalText(b []byte) error {
	for _, c := range []Quality{QualityMinor, QualityDiminished, QualityAugmented} {
		if c.String() == string(b) {
			*q = c
			return nil
		}
	}
	*q = QualityMajor

	return nil
}

// Triad is a diatonic triad built on a scale degree.
type Triad struct {
	Degree  int
	Root    int
	PCs     PCSet
	Quality Quality
}

// Contains reports whether pc is a chord tone.
func (t Triad) Contains(pc int) bool { return t.PCs.Has(((pc % 12) + 12) % 12) }

// Triad builds the triad on degree deg. In minor the dominant (V) and
// leading-tone (vii°) triads use the raised seventh.
func (k Key) Triad(deg int) Triad {
	deg = wrapDegree(deg)
	pcs := [3]int{k.DegreePC(deg), k.DegreePC(deg + 2), k.DegreePC(deg + 4)}
	if k.Mode == Minor && (deg == 5 || deg == 7) {
		natural7 := k.DegreePC(7)
		for i, pc := range pcs {
			if pc == natural7 {
				pcs[i] = k.LeadingTonePC()
			}
		}
	}

	var set PCSet
	for _, pc := range pcs {
		set = set.Add(pc)
	}
	third := (pcs[1] - pcs[0] + 12) % 12
	fifth := (pcs[2] - pcs[0] + 12) % 12

	q := QualityMajor
	switch {
	case third == 4 && fifth == 8:
		q = QualityAugmented
	case third == 3 && fifth == 6:
		q = QualityDiminished
	case third == 3:
		q = QualityMinor
	}

	return Triad{Degree: deg, Root: pcs[0], PCs: set, Quality: q}
}

// SharedTones counts common pitch classes between two triads.
func SharedTones(a, b Triad) int { return a.PCs.Intersect(b.PCs).Len() }

package melody

import "strings"

// Tags is a bit-set of function tags.
type Tags uint8

// Function tags.
const (
	Anchor Tags = 1 << iota
	Structural
	Climax
	Cadence
	ConnectiveNonHarmonic
	SmoothingRun
	Edited
)

// Lock is the set of tags that pin an attack against retuning by the
// illegal-rule loop.
const Lock = Anchor | Structural | Climax | Cadence | Edited

var tagNames = []struct {
	tag  Tags
	name string
}{
	{Anchor, "anchor"},
	{Structural, "structural"},
	{Climax, "climax"},
	{Cadence, "cadence"},
	{ConnectiveNonHarmonic, "connective-non-harmonic"},
	{SmoothingRun, "smoothing-run"},
	{Edited, "edited"},
}

// Has reports whether every tag in t is set.
func (s Tags) Has(t Tags) bool { return s&t == t }

// Any reports whether any tag in t is set.
func (s Tags) Any(t Tags) bool { return s&t != 0 }

// With returns s plus t.
func (s Tags) With(t Tags) Tags { return s | t }

// Without returns s minus t.
func (s Tags) Without(t Tags) Tags { return s &^ t }

// Locked reports whether s contains a locking tag.
func (s Tags) Locked() bool { return s.Any(Lock) }

func (s Tags) String() string {
	var parts []string
	for _, tn := range tagNames {
		if s.Has(tn.tag) {
			parts = append(parts, tn.name)
		}
	}

	return strings.Join(parts, ",")
}

// MarshalText implements encoding.TextMarshaler.
func (s Tags) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler; unknown names are ignored.
func (s *Tags) UnmarshalText(b []byte) error {
	*s = 0
	for _, part := range strings.Split(string(b), ",") {
		for _, tn := range tagNames {
			if tn.name == strings.TrimSpace(part) {
				*s |= tn.tag
			}
		}
	}

	return nil
}

// Role classifies a pitch against its harmony.
type Role int

const (
	// ChordTone belongs to the active triad.
	ChordTone Role = iota
	// NonHarmonic lies outside the active triad.
	NonHarmonic
	// FallbackTonic was placed on the tonic after every rule failed.
	FallbackTonic
)

var roleNames = [...]string{"chord-tone", "non-harmonic", "fallback-tonic"}

func (r Role) String() string {
	if r < ChordTone || r > FallbackTonic {
		return "unknown"
	}

	return roleNames[r]
}

// MarshalText implements encoding.TextMarshaler.
func (r Role) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Role) UnmarshalText(b []byte) error {
	for i, n := range roleNames {
		if n == string(b) {
			*r = Role(i)
			return nil
		}
	}
	*r = ChordTone

	return nil
}

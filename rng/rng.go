package rng

import (
	"math"
	"math/rand"
)

const (
	subSeedMul  int64 = 1_000_003
	subSeedStep int64 = 7_919
)

// Source is a seeded generator. The zero value is not usable; call New.
type Source struct {
	r    *rand.Rand
	seed int64
}

// New returns a Source seeded with seed.
// Complexity: O(1).
func New(seed int64) *Source {
	return &Source{r: rand.New(rand.NewSource(seed)), seed: seed}
}

// Derive returns a fresh Source seeded with SubSeed(s.Seed(), indices...).
// The parent stream is not advanced.
func (s *Source) Derive(indices ...int) *Source {
	return New(SubSeed(s.seed, indices...))
}

// Seed reports the seed the Source was built from.
func (s *Source) Seed() int64 { return s.seed }

// SubSeed combines base with structural indices. See package doc for the formula.
func SubSeed(base int64, indices ...int) int64 {
	h := base
	for _, idx := range indices {
		h = h*subSeedMul + int64(idx+1)*subSeedStep
	}

	return h
}

// Float64 returns a value in [0,1).
func (s *Source) Float64() float64 { return s.r.Float64() }

// Intn returns a value in [0,n). Returns 0 when n <= 0.
func (s *Source) Intn(n int) int {
	if n <= 0 {
		return 0
	}

	return s.r.Intn(n)
}

// IntRange returns a value in the closed range [lo,hi].
func (s *Source) IntRange(lo, hi int) int {
	if hi <= lo {
		return lo
	}

	return lo + s.r.Intn(hi-lo+1)
}

// Chance reports true with probability p (clamped to [0,1]).
func (s *Source) Chance(p float64) bool {
	switch {
	case p <= 0:
		return false
	case p >= 1:
		return true
	}

	return s.r.Float64() < p
}

// WeightedIndex draws an index with probability proportional to weights[i].
// Non-positive and non-finite weights are ignored. ok is false when no weight
// is positive; callers then apply their own deterministic fallback.
// Complexity: O(len(weights)).
func (s *Source) WeightedIndex(weights []float64) (idx int, ok bool) {
	total := 0.0
	for _, w := range weights {
		if w > 0 && !math.IsInf(w, 0) && !math.IsNaN(w) {
			total += w
		}
	}
	if total <= 0 {
		return 0, false
	}

	x := s.r.Float64() * total
	last := -1
	for i, w := range weights {
		if w <= 0 || math.IsInf(w, 0) || math.IsNaN(w) {
			continue
		}
		last = i
		if x < w {
			return i, true
		}
		x -= w
	}

	// floating point residue lands on the last positive weight
	return last, true
}

// Pick returns one of the given ints uniformly. Panics on an empty slice,
// which is a programming error at every call site.
func (s *Source) Pick(values []int) int {
	if len(values) == 0 {
		panic("rng: Pick on empty slice")
	}

	return values[s.r.Intn(len(values))]
}

// Shuffle permutes values in place.
func (s *Source) Shuffle(values []int) {
	s.r.Shuffle(len(values), func(i, j int) { values[i], values[j] = values[j], values[i] })
}

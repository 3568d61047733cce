package dtw

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrEmptySequence indicates one or both inputs are empty.
	ErrEmptySequence = errors.New("dtw: input sequences must be non-empty")

	// ErrWindowTooNarrow indicates the band cannot reach the corner (n, m).
	ErrWindowTooNarrow = errors.New("dtw: window narrower than the length difference")
)

// Options configures a comparison.
type Options struct {
	// Window is the Sakoe-Chiba half-width; 0 disables the band.
	Window int
	// SlopePenalty is added for every insertion or deletion step.
	SlopePenalty float64
}

// Option mutates Options.
type Option func(*Options)

// WithWindow limits |i-j| to w. Panics if w < 0.
func WithWindow(w int) Option {
	if w < 0 {
		panic(fmt.Sprintf("dtw: WithWindow(%d): window must be >= 0", w))
	}

	return func(o *Options) { o.Window = w }
}

// WithSlopePenalty sets the cost of a non-diagonal step. Panics if p < 0.
func WithSlopePenalty(p float64) Option {
	if p < 0 || math.IsNaN(p) {
		panic(fmt.Sprintf("dtw: WithSlopePenalty(%v): penalty must be >= 0", p))
	}

	return func(o *Options) { o.SlopePenalty = p }
}

// Coord is one matched pair (I indexes a, J indexes b).
type Coord struct {
	I, J int
}

func setup(a, b []float64, opts []Option) (Options, error) {
	var o Options
	for _, opt := range opts {
		opt(&o)
	}
	if len(a) == 0 || len(b) == 0 {
		return o, ErrEmptySequence
	}
	if o.Window > 0 && abs(len(a)-len(b)) > o.Window {
		return o, fmt.Errorf("%w: |%d-%d| > %d", ErrWindowTooNarrow, len(a), len(b), o.Window)
	}

	return o, nil
}

func (o Options) outside(i, j int) bool { return o.Window > 0 && abs(i-j) > o.Window }

// Distance returns the DTW distance between a and b using two rows.
func Distance(a, b []float64, opts ...Option) (float64, error) {
	o, err := setup(a, b, opts)
	if err != nil {
		return 0, err
	}
	n, m := len(a), len(b)
	inf := math.Inf(1)

	prev := make([]float64, m+1)
	curr := make([]float64, m+1)
	for j := 1; j <= m; j++ {
		prev[j] = inf
	}
	for i := 1; i <= n; i++ {
		curr[0] = inf
		for j := 1; j <= m; j++ {
			if o.outside(i, j) {
				curr[j] = inf
				continue
			}
			best := min(prev[j-1], prev[j]+o.SlopePenalty, curr[j-1]+o.SlopePenalty)
			curr[j] = math.Abs(a[i-1]-b[j-1]) + best
		}
		prev, curr = curr, prev
	}

	return prev[m], nil
}

// Align returns the DTW distance and the warping path from (0,0) to
// (len(a)-1, len(b)-1). Ties prefer the diagonal.
func Align(a, b []float64, opts ...Option) (float64, []Coord, error) {
	o, err := setup(a, b, opts)
	if err != nil {
		return 0, nil, err
	}
	n, m := len(a), len(b)
	inf := math.Inf(1)

	// 1) Fill the full matrix.
	d := make([][]float64, n+1)
	for i := range d {
		d[i] = make([]float64, m+1)
		for j := range d[i] {
			if i > 0 || j > 0 {
				d[i][j] = inf
			}
		}
	}
	for i := 1; i <= n; i++ {
		for j := 1; j <= m; j++ {
			if o.outside(i, j) {
				continue
			}
			best := min(d[i-1][j-1], d[i-1][j]+o.SlopePenalty, d[i][j-1]+o.SlopePenalty)
			d[i][j] = math.Abs(a[i-1]-b[j-1]) + best
		}
	}

	// 2) Walk back along the cheapest predecessor.
	var path []Coord
	for i, j := n, m; i > 0 && j > 0; {
		path = append(path, Coord{I: i - 1, J: j - 1})
		diag, up, left := d[i-1][j-1], d[i-1][j]+o.SlopePenalty, d[i][j-1]+o.SlopePenalty
		switch {
		case diag <= up && diag <= left:
			i, j = i-1, j-1
		case up <= left:
			i--
		default:
			j--
		}
	}
	for l, r := 0, len(path)-1; l < r; l, r = l+1, r-1 {
		path[l], path[r] = path[r], path[l]
	}

	return d[n][m], path, nil
}

// Similarity maps a distance over profiles of length n into (0,1]:
// 1 / (1 + distance/n).
func Similarity(distance float64, n int) float64 {
	if n <= 0 || math.IsInf(distance, 1) {
		return 0
	}

	return 1 / (1 + distance/float64(n))
}

func abs(x int) int {
	if x < 0 {
		return -x
	}

	return x
}

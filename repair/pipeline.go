package repair

import (
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/katalvlaran/melodia/exercise"
	"github.com/katalvlaran/melodia/harmony"
	"github.com/katalvlaran/melodia/melody"
	"github.com/katalvlaran/melodia/theory"
)

// ErrInvariant is returned by Assert when a repaired melody breaks an
// internal invariant.
var ErrInvariant = errors.New("repair: invariant violated")

// DefaultMaxIterations bounds every sweep loop.
const DefaultMaxIterations = 16

const beatEps = 1e-9

// Pass is one repair pass. Apply mutates seq in place; applying a pass to
// its own output leaves it unchanged.
type Pass interface {
	Name() string
	Apply(seq *melody.Sequence, env *Env)
}

// Env is the read-only context shared by the passes of one run plus the log
// they append to.
type Env struct {
	R             *exercise.Resolved
	Harmony       []harmony.Event
	MaxIterations int
	Log           *Log
}

// NewEnv returns an Env with a fresh log on logger.
func NewEnv(r *exercise.Resolved, h []harmony.Event, logger *zap.Logger) *Env {
	return &Env{R: r, Harmony: h, MaxIterations: DefaultMaxIterations, Log: NewLog(logger)}
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger mirrors log entries to logger.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithMaxIterations sets the sweep cap of every loop.
// Panics if n < 1.
func WithMaxIterations(n int) Option {
	if n < 1 {
		panic(fmt.Sprintf("repair: WithMaxIterations(%d): must be >= 1", n))
	}

	return func(p *Pipeline) { p.maxIter = n }
}

// WithPasses replaces the default pass order.
func WithPasses(ps ...Pass) Option {
	return func(p *Pipeline) { p.passes = append([]Pass(nil), ps...) }
}

// Pipeline runs an ordered list of passes and asserts the result.
type Pipeline struct {
	passes  []Pass
	maxIter int
	logger  *zap.Logger
}

// DefaultPasses returns the standard pass order: rhythm first, then the
// opening, leaps and register, eighth motion, the cadence and the user rules.
// Leap and register run again after the rules pass, which may retune pitches,
// and repeated pitches are merged last.
func DefaultPasses() []Pass {
	return []Pass{
		QuantizePass{},
		EighthPairPass{},
		OpeningPass{},
		LeapPass{},
		RegisterPass{},
		EighthMotionPass{},
		CadencePass{},
		IllegalRulesPass{},
		LeapPass{},
		RegisterPass{},
		MergeRepeatsPass{},
	}
}

// New returns a Pipeline with the default passes.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{passes: DefaultPasses(), maxIter: DefaultMaxIterations, logger: zap.NewNop()}
	for _, o := range opts {
		o(p)
	}

	return p
}

// Passes returns the configured pass order.
func (p *Pipeline) Passes() []Pass { return append([]Pass(nil), p.passes...) }

// Run repairs seq in place so that it satisfies r.
//
// Preconditions:
//   - seq covers every measure of r and its attacks reference events of h.
//   - h is the harmony seq was realised over.
//
// Steps:
//  1. Apply every configured pass once, in order, sharing one Env and Log.
//  2. Alternate LeapPass and RegisterPass until every attack is in register
//     and within the leap cap, at most MaxIterations sweeps.
//  3. Re-notate every measure.
//  4. Assert the finished-melody invariants.
//
// Returns:
//   - the log of every strategy attempt; it is complete even on failure.
//   - nil, or an error wrapping ErrInvariant from Assert.
//
// Complexity: O(P·I·N) for P passes, I = MaxIterations and N events.
func (p *Pipeline) Run(seq *melody.Sequence, r *exercise.Resolved, h []harmony.Event) (*Log, error) {
	env := NewEnv(r, h, p.logger)
	env.MaxIterations = p.maxIter

	// 1) Passes.
	for _, ps := range p.passes {
		ps.Apply(seq, env)
	}

	// 2) Settle bounds; a register fix can open a leap and vice versa.
	settle := []Pass{LeapPass{}, RegisterPass{}}
	for it := 0; it < env.MaxIterations && !boundsHold(seq, r); it++ {
		for _, ps := range settle {
			ps.Apply(seq, env)
		}
	}

	// 3) Notation.
	seq.RebuildAll()

	// 4) Invariants.
	return env.Log, Assert(seq, r)
}

// boundsHold reports whether every attack is in register and within the leap
// cap of its predecessor.
func boundsHold(seq *melody.Sequence, r *exercise.Resolved) bool {
	prev := -1
	for _, e := range seq.Events {
		if !e.Attack {
			continue
		}
		if !r.InRegister(e.MIDI) || (prev >= 0 && theory.Abs(e.MIDI-prev) > r.MaxLeap) {
			return false
		}
		prev = e.MIDI
	}

	return true
}

// Assert checks the invariants every finished melody must hold: each of the
// r.TotalMeasures() measures sums to the meter length, every piece has a
// legal duration class, every eighth attack is paired, every attack lies in
// register and no leap exceeds the cap. Failures wrap ErrInvariant.
func Assert(seq *melody.Sequence, r *exercise.Resolved) error {
	ms := seq.Measures()
	if len(ms) != r.TotalMeasures() {
		return fmt.Errorf("%w: %d measures, want %d", ErrInvariant, len(ms), r.TotalMeasures())
	}
	for _, m := range ms {
		if sum := seq.MeasureSum(m); math.Abs(sum-r.Meter.Length()) > beatEps {
			return fmt.Errorf("%w: measure %d sums to %g beats, want %g", ErrInvariant, m, sum, r.Meter.Length())
		}
	}
	prev := -1
	for i, e := range seq.Events {
		if _, ok := theory.DurationForBeats(e.Beats); !ok {
			return fmt.Errorf("%w: measure %d beat %g lasts %g beats", ErrInvariant, e.Measure, e.Onset, e.Beats)
		}
		if !e.Attack {
			continue
		}
		if e.IsEighth() && !seq.InPair(i) {
			return fmt.Errorf("%w: lone eighth at measure %d beat %g", ErrInvariant, e.Measure, e.Onset)
		}
		if !r.InRegister(e.MIDI) {
			return fmt.Errorf("%w: %s at measure %d beat %g outside register", ErrInvariant, e.Pitch, e.Measure, e.Onset)
		}
		if prev >= 0 && theory.Abs(e.MIDI-prev) > r.MaxLeap {
			return fmt.Errorf("%w: leap of %d semitones into measure %d beat %g exceeds %d",
				ErrInvariant, theory.Abs(e.MIDI-prev), e.Measure, e.Onset, r.MaxLeap)
		}
		prev = e.MIDI
	}

	return nil
}

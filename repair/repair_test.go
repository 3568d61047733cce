package repair_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/katalvlaran/melodia/exercise"
	"github.com/katalvlaran/melodia/harmony"
	"github.com/katalvlaran/melodia/melody"
	"github.com/katalvlaran/melodia/repair"
	"github.com/katalvlaran/melodia/theory"
)

type note struct {
	onset, beats float64
	midi         int
	tags         melody.Tags
}

func q(onset float64, midi int) note { return note{onset: onset, beats: 1, midi: midi} }

func quarters(ms ...int) []note {
	out := make([]note, len(ms))
	for i, m := range ms {
		out[i] = q(float64(i+1), m)
	}

	return out
}

// finalBar is a half on the supertonic resolving to a half on the tonic.
var finalBar = []note{{onset: 1, beats: 2, midi: 62}, {onset: 3, beats: 2, midi: 60}}

// build lays bars out as one phrase over a I-V-IV-I harmony, one chord per bar.
func build(r *exercise.Resolved, bars ...[]note) (*melody.Sequence, []harmony.Event) {
	degs := []int{1, 5, 4, 1}
	var hs []harmony.Event
	seq := &melody.Sequence{Key: r.Key, Meter: r.Meter, Allowed: r.Allowed}
	for m, bar := range bars {
		d := degs[m%len(degs)]
		tr := r.Key.Triad(d)
		hs = append(hs, harmony.Event{
			ID:       m,
			Measure:  m + 1,
			Beat:     1,
			Degree:   d,
			Root:     tr.Root,
			ChordPCs: tr.PCs,
			Quality:  tr.Quality,
			Function: harmony.FunctionOf(d),
		})
		for i, n := range bar {
			e := melody.NewAttack(r.Key, 0, m+1, n.onset, n.beats, n.midi, m, i)
			e.Tags = n.tags
			seq.Events = append(seq.Events, e)
		}
	}

	return seq, hs
}

func resolve(t *testing.T, mutate func(*exercise.Spec)) *exercise.Resolved {
	t.Helper()
	s := exercise.Default()
	if mutate != nil {
		mutate(&s)
	}
	r, err := s.Resolve()
	require.NoError(t, err)

	return r
}

func baseMelody(r *exercise.Resolved) (*melody.Sequence, []harmony.Event) {
	return build(r,
		quarters(60, 62, 64, 65),
		quarters(67, 65, 64, 62),
		quarters(64, 65, 67, 65),
		finalBar,
	)
}

func attacksIn(seq *melody.Sequence, m int) []melody.Event {
	var out []melody.Event
	lo, hi := seq.MeasureRange(m)
	for _, e := range seq.Events[lo:hi] {
		if e.Attack {
			out = append(out, e)
		}
	}

	return out
}

func TestAssert(t *testing.T) {
	r := resolve(t, nil)
	seq, _ := baseMelody(r)
	require.NoError(t, repair.Assert(seq, r))

	cases := []struct {
		name   string
		mutate func(*melody.Sequence)
	}{
		{"measure sum", func(s *melody.Sequence) { s.Events[0].Beats = 2 }},
		{"register", func(s *melody.Sequence) { s.Events[0].MIDI = 50 }},
		{"leap cap", func(s *melody.Sequence) { s.Events[1].MIDI = 72 }},
		{"missing measure", func(s *melody.Sequence) {
			lo, _ := s.MeasureRange(4)
			s.Events = s.Events[:lo]
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := seq.Clone()
			tc.mutate(c)
			err := repair.Assert(c, r)
			require.Error(t, err)
			assert.True(t, errors.Is(err, repair.ErrInvariant))
		})
	}
}

func TestQuantizePass_DemotesLowestPriority(t *testing.T) {
	r := resolve(t, func(s *exercise.Spec) {
		s.Constraints.MinEighthPairs = 0
		s.Constraints.AllowedDurations = []theory.Duration{theory.Quarter, theory.Half}
	})
	seq, hs := build(r,
		[]note{{onset: 1, beats: 0.5, midi: 60}, {onset: 1.5, beats: 0.5, midi: 62}, q(2, 64), {onset: 3, beats: 2, midi: 65}},
		quarters(67, 65, 64, 62),
		quarters(64, 65, 67, 65),
		finalBar,
	)
	env := repair.NewEnv(r, hs, nil)
	repair.QuantizePass{}.Apply(seq, env)

	assert.True(t, seq.MeasureLegal(1))
	got := attacksIn(seq, 1)
	require.Len(t, got, 3)
	assert.Equal(t, []int{60, 64, 65}, []int{got[0].MIDI, got[1].MIDI, got[2].MIDI})
	assert.Equal(t, 1.0, got[0].Beats)
	assert.Equal(t, "quantized", got[0].Reason)
	require.NotEmpty(t, env.Log.ByPass("quantize"))
	assert.Equal(t, repair.Applied, env.Log.ByPass("quantize")[0].Outcome)
}

func TestEighthPairPass_MeetsQuota(t *testing.T) {
	r := resolve(t, nil)
	seq, hs := baseMelody(r)
	env := repair.NewEnv(r, hs, nil)
	repair.EighthPairPass{}.Apply(seq, env)

	assert.Equal(t, 1, seq.EighthPairs(0))
	assert.Equal(t, 62, seq.Events[1].MIDI)
	assert.Equal(t, 0.5, seq.Events[1].Beats)
	assert.Equal(t, 64, seq.Events[2].MIDI)
	assert.Equal(t, 2.5, seq.Events[2].Onset)
	assert.True(t, seq.Events[2].Tags.Has(melody.SmoothingRun))
	assert.Empty(t, seq.LoneEighths())

	before := seq.Clone()
	repair.EighthPairPass{}.Apply(seq, env)
	assert.Equal(t, before.Events, seq.Events)
}

func TestOpeningPass(t *testing.T) {
	t.Run("hard tonic", func(t *testing.T) {
		r := resolve(t, func(s *exercise.Spec) { s.Constraints.HardTonicStart = true })
		seq, hs := build(r, quarters(64, 62, 64, 65), quarters(67, 65, 64, 62), quarters(64, 65, 67, 65), finalBar)
		repair.OpeningPass{}.Apply(seq, repair.NewEnv(r, hs, nil))
		assert.Equal(t, 60, seq.Events[0].MIDI)
		assert.Equal(t, "start degree", seq.Events[0].Reason)
	})
	t.Run("bias toward mediant", func(t *testing.T) {
		r := resolve(t, nil)
		seq, hs := build(r, quarters(67, 65, 64, 62), quarters(67, 65, 64, 62), quarters(64, 65, 67, 65), finalBar)
		repair.OpeningPass{}.Apply(seq, repair.NewEnv(r, hs, nil))
		assert.Equal(t, 64, seq.Events[0].MIDI)
	})
	t.Run("tonic left alone", func(t *testing.T) {
		r := resolve(t, nil)
		seq, hs := baseMelody(r)
		before := seq.Clone()
		repair.OpeningPass{}.Apply(seq, repair.NewEnv(r, hs, nil))
		assert.Equal(t, before.Events, seq.Events)
	})
}

func TestLeapPass_ChordToneSubstitution(t *testing.T) {
	r := resolve(t, nil)
	seq, hs := build(r, quarters(60, 71, 64, 65), quarters(67, 65, 64, 62), quarters(64, 65, 67, 65), finalBar)
	env := repair.NewEnv(r, hs, nil)
	repair.LeapPass{}.Apply(seq, env)

	assert.Equal(t, 67, seq.Events[1].MIDI)
	assert.Equal(t, melody.ChordTone, seq.Events[1].Role)
	var applied []string
	for _, e := range env.Log.ByPass("leap") {
		if e.Outcome == repair.Applied {
			applied = append(applied, e.Strategy)
		}
	}
	assert.Equal(t, []string{"chord tone"}, applied)
	assert.Empty(t, env.Log.Unresolved())
}

func TestLeapPass_LargeLeapBound(t *testing.T) {
	r := resolve(t, nil)
	seq, hs := build(r, quarters(60, 67, 64, 65), quarters(72, 67, 64, 62), quarters(64, 65, 67, 65), finalBar)
	require.Equal(t, 2, seq.LargeLeaps(0))

	repair.LeapPass{}.Apply(seq, repair.NewEnv(r, hs, nil))
	assert.Equal(t, r.MaxLargeLeaps, seq.LargeLeaps(0))
	assert.Equal(t, 67, seq.Events[1].MIDI)
	assert.Equal(t, 69, seq.Events[4].MIDI)
}

func TestIllegalRulesPass_LockedStaysUnresolved(t *testing.T) {
	r := resolve(t, func(s *exercise.Spec) { s.IllegalDegrees = []int{4} })
	bar2 := quarters(67, 65, 64, 62)
	bar2[1].tags = melody.Anchor | melody.Structural
	seq, hs := build(r, quarters(60, 62, 64, 65), bar2, quarters(64, 62, 60, 62), []note{
		{onset: 1, beats: 2, midi: 60}, {onset: 3, beats: 2, midi: 64},
	})
	env := repair.NewEnv(r, hs, nil)
	repair.IllegalRulesPass{}.Apply(seq, env)

	assert.Equal(t, 64, seq.Events[3].MIDI)
	assert.Equal(t, 65, seq.Events[5].MIDI)
	un := env.Log.Unresolved()
	require.Len(t, un, 1)
	assert.Equal(t, "illegal-rules", un[0].Pass)
	assert.Equal(t, 2, un[0].Measure)
	assert.Contains(t, un[0].Detail, "locked")
}

func TestCadencePass(t *testing.T) {
	r := resolve(t, nil)
	seq, hs := baseMelody(r)
	env := repair.NewEnv(r, hs, nil)
	repair.CadencePass{}.Apply(seq, env)

	last := attacksIn(seq, 4)
	require.Len(t, last, 1)
	assert.Equal(t, 60, last[0].MIDI)
	assert.Equal(t, 4.0, seq.MeasureSum(4))
	pen := attacksIn(seq, 3)
	assert.Equal(t, 62, pen[len(pen)-1].MIDI)
	assert.Equal(t, "cadence approach", pen[len(pen)-1].Reason)

	before := seq.Clone()
	repair.CadencePass{}.Apply(seq, env)
	assert.Equal(t, before.Events, seq.Events)
}

func TestCadencePass_Half(t *testing.T) {
	r := resolve(t, func(s *exercise.Spec) { s.Phrases[0].Cadence = exercise.HalfCadence })
	seq, hs := baseMelody(r)
	repair.CadencePass{}.Apply(seq, repair.NewEnv(r, hs, nil))

	last := attacksIn(seq, 4)
	require.Len(t, last, 1)
	deg, _ := r.Key.DegreeOfMIDI(last[0].MIDI)
	assert.Equal(t, 5, deg)
	pen := attacksIn(seq, 3)
	pd, _ := r.Key.DegreeOfMIDI(pen[len(pen)-1].MIDI)
	assert.Contains(t, []int{4, 6}, pd)
	assert.True(t, theory.IsStep(pen[len(pen)-1].MIDI, last[0].MIDI))
}

func TestMergeRepeatsPass(t *testing.T) {
	r := resolve(t, nil)
	seq, hs := build(r, quarters(60, 60, 64, 65), quarters(67, 65, 64, 62), quarters(64, 65, 67, 65), finalBar)
	repair.MergeRepeatsPass{}.Apply(seq, repair.NewEnv(r, hs, nil))

	got := attacksIn(seq, 1)
	require.Len(t, got, 3)
	assert.Equal(t, 2.0, got[0].Beats)
	assert.Equal(t, 60, got[0].MIDI)
}

func TestPipeline_Run(t *testing.T) {
	r := resolve(t, nil)
	seq, hs := baseMelody(r)
	core, logs := observer.New(zapcore.DebugLevel)
	p := repair.New(repair.WithLogger(zap.New(core)))

	log, err := p.Run(seq, r, hs)
	require.NoError(t, err)
	require.NotNil(t, log)
	assert.Empty(t, log.Unresolved())
	assert.Equal(t, len(log.Entries), logs.FilterMessage("repair: attempt").Len())

	first := seq.AttackEvents()[0]
	d, _ := r.Key.DegreeOfMIDI(first.MIDI)
	assert.Contains(t, []int{1, 3}, d)
	last := attacksIn(seq, 4)
	require.Len(t, last, 1)
	d, _ = r.Key.DegreeOfMIDI(last[0].MIDI)
	assert.Equal(t, 1, d)
	assert.Equal(t, 1, seq.EighthPairs(0))

	t.Run("every pass is idempotent on the result", func(t *testing.T) {
		for _, ps := range repair.DefaultPasses() {
			c := seq.Clone()
			ps.Apply(c, repair.NewEnv(r, hs, nil))
			assert.Equal(t, seq.Events, c.Events, ps.Name())
		}
	})
}

func TestWithMaxIterations_Panics(t *testing.T) {
	assert.Panics(t, func() { repair.WithMaxIterations(0) })
	assert.NotPanics(t, func() { repair.New(repair.WithMaxIterations(1)) })
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "applied", repair.Applied.String())
	assert.Equal(t, "unresolved", repair.Unresolved.String())
	assert.Equal(t, "unknown", repair.Outcome(9).String())
}

// strategies returns the strategy and outcome of every entry of pass.
func strategies(env *repair.Env, pass string) []string {
	var out []string
	for _, e := range env.Log.ByPass(pass) {
		out = append(out, e.Strategy+":"+e.Outcome.String())
	}

	return out
}

func TestRegisterPass(t *testing.T) {
	cases := []struct {
		name   string
		bar1   []note
		bar2   []note
		index  int
		want   int
		reason string
		log    []string
	}{
		{
			name:   "octave shift",
			bar1:   quarters(60, 62, 52, 65),
			bar2:   quarters(67, 65, 64, 62),
			index:  2,
			want:   64,
			reason: "register octave",
			log:    []string{"octave:applied"},
		},
		{
			name:   "chord tone when the octave overshoots the cap",
			bar1:   quarters(60, 64, 67, 74),
			bar2:   quarters(72, 71, 69, 67),
			index:  3,
			want:   72,
			reason: "register chord tone",
			log:    []string{"octave:rejected", "chord tone:applied"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := resolve(t, nil)
			seq, hs := build(r, tc.bar1, tc.bar2, quarters(64, 65, 67, 65), finalBar)
			env := repair.NewEnv(r, hs, nil)
			repair.RegisterPass{}.Apply(seq, env)

			assert.Equal(t, tc.want, seq.Events[tc.index].MIDI)
			assert.Equal(t, tc.reason, seq.Events[tc.index].Reason)
			assert.Equal(t, tc.log, strategies(env, "register"))
			assert.Empty(t, env.Log.Unresolved())
		})
	}
}

func TestEighthMotionPass(t *testing.T) {
	cases := []struct {
		name   string
		bar1   []note
		index  int
		want   int
		reason string
		log    []string
	}{
		{
			name: "pair wider than a fourth is narrowed",
			bar1: []note{
				q(1, 60), {onset: 2, beats: 0.5, midi: 62}, {onset: 2.5, beats: 0.5, midi: 69}, {onset: 3, beats: 2, midi: 67},
			},
			index:  2,
			want:   64,
			reason: "pair motion",
			log:    []string{"step tail:applied"},
		},
		{
			name: "edited skip resolves by step",
			bar1: []note{
				q(1, 60), {onset: 2, beats: 0.5, midi: 60},
				{onset: 2.5, beats: 0.5, midi: 64, tags: melody.Edited}, {onset: 3, beats: 2, midi: 67},
			},
			index:  3,
			want:   65,
			reason: "pair resolution",
			log:    []string{"step tail:rejected", "step tail relaxed:rejected", "step resolution:applied"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := resolve(t, nil)
			seq, hs := build(r, tc.bar1, quarters(67, 65, 64, 62), quarters(64, 65, 67, 65), finalBar)
			env := repair.NewEnv(r, hs, nil)
			repair.EighthMotionPass{}.Apply(seq, env)

			assert.Equal(t, tc.want, seq.Events[tc.index].MIDI)
			assert.Equal(t, tc.reason, seq.Events[tc.index].Reason)
			assert.Equal(t, tc.log, strategies(env, "eighth-motion"))
			assert.LessOrEqual(t, theory.Abs(seq.Events[2].MIDI-seq.Events[1].MIDI), repair.PairMaxInterval)
		})
	}
}

func TestEighthPairPass_LoneEighth(t *testing.T) {
	cases := []struct {
		name string
		bar1 []note
		tie  int
		log  []string
	}{
		{
			name: "demoted into the previous attack",
			bar1: []note{q(1, 60), {onset: 2, beats: 0.5, midi: 62}, {onset: 2.5, beats: 0.5, midi: 62}, q(3, 64), q(4, 65)},
			tie:  2,
			log:  []string{"demote:applied"},
		},
		{
			name: "downbeat eighth absorbs the next attack",
			bar1: []note{{onset: 1, beats: 0.5, midi: 60}, {onset: 1.5, beats: 0.5, midi: 60}, q(2, 62), q(3, 64), q(4, 65)},
			tie:  1,
			log:  []string{"demote:rejected", "absorb next:applied"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := resolve(t, func(s *exercise.Spec) { s.Constraints.MinEighthPairs = 0 })
			seq, hs := build(r, tc.bar1, quarters(67, 65, 64, 62), quarters(64, 65, 67, 65), finalBar)
			seq.Events[tc.tie].Attack = false
			require.Len(t, seq.LoneEighths(), 1)

			env := repair.NewEnv(r, hs, nil)
			repair.EighthPairPass{}.Apply(seq, env)

			assert.Empty(t, seq.LoneEighths())
			assert.Equal(t, tc.log, strategies(env, "eighth-pair"))
			got := attacksIn(seq, 1)
			require.Len(t, got, 3)
			assert.Equal(t, 60, got[0].MIDI)
			assert.Equal(t, 2.0, got[0].Beats)
			assert.Equal(t, "lone eighth", got[0].Reason)
			assert.Equal(t, []int{64, 65}, []int{got[1].MIDI, got[2].MIDI})
			assert.Equal(t, 4.0, seq.MeasureSum(1))
		})
	}
}

package generator_test

import (
	"errors"
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/katalvlaran/melodia/exercise"
	"github.com/katalvlaran/melodia/generator"
	"github.com/katalvlaran/melodia/harmony"
	"github.com/katalvlaran/melodia/melody"
	"github.com/katalvlaran/melodia/score"
	"github.com/katalvlaran/melodia/theory"
)

type GeneratorSuite struct {
	suite.Suite
	spec exercise.Spec
	r    *exercise.Resolved
}

func (s *GeneratorSuite) SetupTest() {
	s.spec = exercise.Default()
	r, err := s.spec.Resolve()
	s.Require().NoError(err)
	s.r = r
}

func TestGeneratorSuite(t *testing.T) {
	suite.Run(t, new(GeneratorSuite))
}

func (s *GeneratorSuite) TestDefaultScenario() {
	g := generator.New()
	for seed := int64(0); seed < 8; seed++ {
		res, err := g.Generate(s.spec, seed)
		s.Require().NoError(err, "seed %d", seed)
		s.Require().True(res.OK(), "seed %d", seed)

		atk := res.Attacks()
		s.Require().NotEmpty(atk)
		first, _ := s.r.Key.DegreeOfMIDI(atk[0].MIDI)
		s.Contains([]int{1, 3}, first, "seed %d first degree", seed)
		last, _ := s.r.Key.DegreeOfMIDI(atk[len(atk)-1].MIDI)
		s.Equal(1, last, "seed %d final degree", seed)
		s.Len(res.Scores, generator.DefaultVariants)
		s.Equal(res.Score.Total, res.Scores[res.Variant])
	}
}

func (s *GeneratorSuite) TestMelodyProperties() {
	g := generator.New()
	for seed := int64(10); seed < 16; seed++ {
		res, err := g.Generate(s.spec, seed)
		s.Require().NoError(err)
		s.Require().True(res.OK())

		seq := &melody.Sequence{Key: s.r.Key, Meter: s.r.Meter, Allowed: s.r.Allowed, Events: res.Events}
		s.Len(seq.Measures(), s.r.TotalMeasures())
		for _, m := range seq.Measures() {
			s.InDelta(s.r.Meter.Length(), seq.MeasureSum(m), 1e-9, "seed %d measure %d", seed, m)
		}
		prev := -1
		for i, e := range seq.Events {
			_, ok := theory.DurationForBeats(e.Beats)
			s.True(ok)
			if !e.Attack {
				continue
			}
			if e.IsEighth() {
				s.True(seq.InPair(i), "seed %d lone eighth at %d/%g", seed, e.Measure, e.Onset)
			}
			s.True(s.r.InRegister(e.MIDI))
			if prev >= 0 {
				s.LessOrEqual(theory.Abs(e.MIDI-prev), s.r.MaxLeap)
			}
			prev = e.MIDI
		}
		s.False(math.IsNaN(res.Score.Total))
	}
}

func (s *GeneratorSuite) TestOnlyTonicLegalHasNoSolution() {
	spec := s.spec
	spec.IllegalDegrees = []int{2, 3, 4, 5, 6, 7}
	res, err := generator.New().Generate(spec, 1)
	s.Require().NoError(err)
	s.Require().False(res.OK())
	s.Equal([]int{2, 3, 4, 5, 6, 7}, res.Infeasible.Degrees)
	s.Empty(res.Events)
	s.NotEmpty(res.Infeasible.Reason)
	s.Contains(res.Infeasible.String(), "no solution")
}

func (s *GeneratorSuite) TestIllegalDegreesKeepEverySeedSolvable() {
	g := generator.New(generator.WithVariants(1))
	for _, illegal := range [][]int{{2, 4, 6}, {2, 4, 7}, {3, 5, 7}} {
		spec := s.spec
		spec.IllegalDegrees = illegal
		r, err := spec.Resolve()
		s.Require().NoError(err)
		playable := harmony.Playable(r)
		for seed := int64(0); seed < 200; seed++ {
			res, err := g.Generate(spec, seed)
			s.Require().NoError(err, "illegal %v seed %d", illegal, seed)
			s.Require().True(res.OK(), "illegal %v seed %d: %v", illegal, seed, res.Infeasible)
			for _, e := range res.Harmony {
				s.True(playable[e.Degree], "illegal %v seed %d root %d", illegal, seed, e.Degree)
			}
		}
	}
}

func (s *GeneratorSuite) TestQuotaWithoutEighthsIsInvalid() {
	spec := s.spec
	spec.Constraints.MinEighthPairs = 2
	spec.Constraints.AllowedDurations = []theory.Duration{theory.Quarter, theory.Half}
	res, err := generator.New().Generate(spec, 1)
	s.Require().Error(err)
	s.Nil(res)
	s.True(errors.Is(err, exercise.ErrInvalidSpec))
	s.True(errors.Is(err, exercise.ErrEighthQuota))
}

func (s *GeneratorSuite) TestDeterministicAcrossConcurrency() {
	a, err := generator.New().Generate(s.spec, 7)
	s.Require().NoError(err)
	b, err := generator.New(generator.WithConcurrency(4)).Generate(s.spec, 7)
	s.Require().NoError(err)
	s.Equal(a.Events, b.Events)
	s.Equal(a.Variant, b.Variant)
	s.Equal(a.Scores, b.Scores)
}

func (s *GeneratorSuite) TestTwoPhrasesWithReuse() {
	spec := s.spec
	spec.Phrases = []exercise.Phrase{
		{Label: "A", Cadence: exercise.HalfCadence},
		{Label: "A", Reuse: true, Cadence: exercise.Authentic},
	}
	res, err := generator.New().Generate(spec, 3)
	s.Require().NoError(err)
	s.Require().True(res.OK())
	s.Len(res.Contours, 2)
	s.Len(res.Grids, 2)
	s.Equal(5, res.Grids[1].Measures[0].Measure)
	atk := res.Attacks()
	s.Equal(1, atk[len(atk)-1].Phrase)
}

func TestOverridesSurviveRegeneration(t *testing.T) {
	spec := exercise.Default()
	r, err := spec.Resolve()
	require.NoError(t, err)
	base, err := generator.New(generator.WithVariants(1)).Generate(spec, 5)
	require.NoError(t, err)
	require.True(t, base.OK())

	seq := &melody.Sequence{Key: r.Key, Meter: r.Meter, Allowed: r.Allowed, Events: base.Events}
	var id uuid.UUID
	want := -1
	atk := seq.Attacks()
	for k := 1; k+3 < len(atk) && want < 0; k++ {
		i := atk[k]
		e := seq.Events[i]
		if seq.InPair(i) || e.Locked() {
			continue
		}
		m, ok := r.Key.Step(e.MIDI, 1)
		if !ok || !r.InRegister(m) {
			continue
		}
		p, n := seq.Events[atk[k-1]].MIDI, seq.Events[atk[k+1]].MIDI
		if theory.Abs(m-p) < theory.LargeLeapMin-1 && theory.Abs(n-m) < theory.LargeLeapMin-1 && m != p && m != n {
			id, want = e.ID, m
		}
	}
	require.GreaterOrEqual(t, want, 0, "no movable attack found")

	got, err := generator.New(generator.WithVariants(1), generator.WithOverrides(map[uuid.UUID]int{id: want})).Generate(spec, 5)
	require.NoError(t, err)
	out := &melody.Sequence{Events: got.Events}
	i := out.Find(id)
	require.GreaterOrEqual(t, i, 0)
	assert.Equal(t, want, got.Events[i].MIDI)
	assert.True(t, got.Events[i].Tags.Has(melody.Edited))
	assert.Equal(t, map[uuid.UUID]int{id: want}, got.Overrides)
}

func TestGenerate_Logs(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	_, err := generator.New(generator.WithLogger(zap.New(core))).Generate(exercise.Default(), 2)
	require.NoError(t, err)
	sel := logs.FilterMessage("variant selected").All()
	require.Len(t, sel, 1)
	assert.Contains(t, sel[0].ContextMap(), "variant")
	assert.Contains(t, sel[0].ContextMap(), "fingerprint")
}

func TestOptions_Panic(t *testing.T) {
	assert.Panics(t, func() { generator.WithVariants(0) })
	assert.Panics(t, func() { generator.WithConcurrency(0) })
	assert.Panics(t, func() { generator.WithRepairIterations(0) })
	assert.Equal(t, 3, generator.New(generator.WithVariants(3)).Variants())
}

func TestFingerprint_FollowsSettings(t *testing.T) {
	spec := exercise.Default()
	base := generator.New().Fingerprint(spec)
	assert.Len(t, base, 40)
	assert.Equal(t, base, generator.New(generator.WithConcurrency(4)).Fingerprint(spec))
	assert.Equal(t, base, generator.New().With(generator.WithOverrides(map[uuid.UUID]int{uuid.New(): 60})).Fingerprint(spec))

	w := score.DefaultWeights()
	w.Reprise = 2
	for name, g := range map[string]*generator.Generator{
		"variants": generator.New(generator.WithVariants(2)),
		"weights":  generator.New(generator.WithWeights(w)),
		"repair":   generator.New(generator.WithRepairIterations(3)),
	} {
		assert.NotEqual(t, base, g.Fingerprint(spec), name)
	}

	other := spec
	other.Key = "G"
	assert.NotEqual(t, base, generator.New().Fingerprint(other))

	res, err := generator.New(generator.WithVariants(1)).Generate(spec, 4)
	require.NoError(t, err)
	assert.Equal(t, generator.New(generator.WithVariants(1)).Fingerprint(spec), res.Fingerprint)
}

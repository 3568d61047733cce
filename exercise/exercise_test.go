package exercise_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/melodia/exercise"
	"github.com/katalvlaran/melodia/theory"
)

func TestDefault_Resolves(t *testing.T) {
	r, err := exercise.Default().Resolve()
	require.NoError(t, err)
	assert.Equal(t, 60, r.Low)
	assert.Equal(t, 72, r.High)
	assert.Equal(t, 4, r.TotalMeasures())
	assert.Equal(t, exercise.Authentic, r.Cadence(0))
	assert.InDelta(t, 0.55, r.Distribution[theory.Quarter], 1e-9)
	assert.True(t, r.Allowed.Has(theory.Eighth))
	assert.False(t, r.Allowed.Has(theory.Whole))
}

func TestValidate_Failures(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*exercise.Spec)
		want   error
	}{
		{"empty durations", func(s *exercise.Spec) { s.Constraints.AllowedDurations = nil }, exercise.ErrEmptyDurations},
		{"four durations", func(s *exercise.Spec) { s.Constraints.AllowedDurations = theory.AllDurations }, exercise.ErrTooManyDurations},
		{"weights total", func(s *exercise.Spec) { s.Rhythm.Quarter = 3 }, exercise.ErrRhythmWeights},
		{"negative weight", func(s *exercise.Spec) { s.Rhythm.Whole = -0.1; s.Rhythm.Quarter = 0.75 }, exercise.ErrRhythmWeights},
		{"eighth quota without eighths", func(s *exercise.Spec) {
			s.Constraints.MinEighthPairs = 2
			s.Constraints.AllowedDurations = []theory.Duration{theory.Quarter, theory.Half}
		}, exercise.ErrEighthQuota},
		{"no template", func(s *exercise.Spec) {
			s.Meter = theory.Meter{Beats: 3, Unit: 4}
			s.Constraints.MinEighthPairs = 0
			s.Constraints.AllowedDurations = []theory.Duration{theory.Whole}
		}, exercise.ErrNoTemplate},
		{"unknown key", func(s *exercise.Spec) { s.Key = "H" }, exercise.ErrKey},
		{"meter", func(s *exercise.Spec) { s.Meter = theory.Meter{Beats: 5, Unit: 4} }, exercise.ErrMeter},
		{"inverted register", func(s *exercise.Spec) { s.Low, s.High = s.High, s.Low }, exercise.ErrRegister},
		{"narrow register", func(s *exercise.Spec) { s.High = exercise.Pitch{Degree: 4, Octave: 4} }, exercise.ErrRegister},
		{"no phrases", func(s *exercise.Spec) { s.Phrases = nil }, exercise.ErrPhrases},
		{"one measure", func(s *exercise.Spec) { s.MeasuresPerPhrase = 1 }, exercise.ErrPhrases},
		{"leap cap", func(s *exercise.Spec) { s.Constraints.MaxLeap = 1 }, exercise.ErrLeapCap},
		{"bad degree", func(s *exercise.Spec) { s.IllegalDegrees = []int{8} }, exercise.ErrDegree},
		{"bad transition", func(s *exercise.Spec) {
			s.IllegalTransitions = []exercise.Transition{{From: 0, To: 1}}
		}, exercise.ErrDegree},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := exercise.Default()
			tc.mutate(&s)
			err := s.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, exercise.ErrInvalidSpec))
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
		})
	}
}

func TestValidate_PercentWeights(t *testing.T) {
	s := exercise.Default()
	s.Rhythm = exercise.RhythmWeights{Whole: 10, Half: 20, Quarter: 55, Eighth: 15}
	r, err := s.Resolve()
	require.NoError(t, err)
	assert.InDelta(t, 0.15, r.Distribution[theory.Eighth], 1e-9)
}

func TestResolved_Rules(t *testing.T) {
	s := exercise.Default()
	s.IllegalDegrees = []int{7, 4}
	s.IllegalIntervals = []int{6}
	s.IllegalTransitions = []exercise.Transition{{From: 5, To: 3}, {From: 2, To: 1}}
	override := exercise.HalfCadence
	s.Constraints.Cadence = &override
	s.Phrases = append(s.Phrases, exercise.Phrase{Label: "A", Reuse: true})

	r, err := s.Resolve()
	require.NoError(t, err)
	assert.Equal(t, []int{4, 7}, r.IllegalDegreeList())
	assert.Equal(t, []int{6}, r.IllegalIntervalList())
	assert.Equal(t, []exercise.Transition{{From: 2, To: 1}, {From: 5, To: 3}}, r.IllegalTransitionList())
	assert.False(t, r.DegreeLegal(4))
	assert.True(t, r.DegreeLegal(1))
	assert.Equal(t, exercise.HalfCadence, r.Cadence(1))
	assert.Equal(t, -1, r.ReuseSource(0))
	assert.Equal(t, 0, r.ReuseSource(1))
}

func TestFingerprint(t *testing.T) {
	a := exercise.Default()
	b := exercise.Default()
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.Len(t, a.Fingerprint(), 40)

	a.IllegalDegrees = []int{3, 2}
	b.IllegalDegrees = []int{2, 3}
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())

	b.Key = "G"
	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
}

func TestSpec_JSON(t *testing.T) {
	raw := `{
		"key": "Bb", "mode": "minor",
		"low": {"degree": 5, "octave": 3}, "high": {"degree": 5, "octave": 4},
		"phrases": [{"label": "A", "cadence": "half"}, {"label": "A", "reuse": true, "cadence": "authentic"}],
		"measures_per_phrase": 4,
		"meter": {"beats": 3, "unit": 4},
		"rhythm": {"whole": 0, "half": 25, "quarter": 60, "eighth": 15},
		"constraints": {"max_leap": 7, "max_large_leaps": 1, "min_eighth_pairs": 1,
			"allowed_durations": ["eighth", "quarter", "half"]}
	}`
	var s exercise.Spec
	require.NoError(t, json.Unmarshal([]byte(raw), &s))
	assert.Equal(t, theory.Minor, s.Mode)
	assert.Equal(t, exercise.HalfCadence, s.Phrases[0].Cadence)

	r, err := s.Resolve()
	require.NoError(t, err)
	assert.Equal(t, 53, r.Low) // F3
	assert.Equal(t, 65, r.High)
	assert.Equal(t, 0, r.ReuseSource(1))
}

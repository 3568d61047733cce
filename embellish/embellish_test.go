package embellish_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/melodia/contour"
	"github.com/katalvlaran/melodia/embellish"
	"github.com/katalvlaran/melodia/exercise"
	"github.com/katalvlaran/melodia/harmony"
	"github.com/katalvlaran/melodia/melody"
	"github.com/katalvlaran/melodia/rhythm"
	"github.com/katalvlaran/melodia/rng"
	"github.com/katalvlaran/melodia/skeleton"
)

func realize(t *testing.T, s exercise.Spec, seed int64) (embellish.Input, *melody.Sequence) {
	r, err := s.Resolve()
	require.NoError(t, err)
	src := rng.New(seed)
	hs, err := harmony.NewGenerator(nil).Generate(r, src.Derive(0))
	require.NoError(t, err)
	sk := skeleton.Input{R: r, Harmony: hs}
	for p := 0; p < r.PhraseCount(); p++ {
		cp := contour.PlanPhrase(contour.ParamsFor(r, p), src.Derive(1, p))
		rp := r.RhythmParams()
		rp.FirstMeasure = p*r.Measures + 1
		rp.Climax = cp.PeakMeasure
		grid, err := rhythm.PlanPhrase(rp, src.Derive(2, p))
		require.NoError(t, err)
		sk.Contours = append(sk.Contours, cp)
		sk.Grids = append(sk.Grids, grid)
	}
	res, err := skeleton.Build(sk)
	require.NoError(t, err)
	in := embellish.Input{R: r, Harmony: hs, Grids: sk.Grids, Anchors: res.Anchors}
	seq, err := embellish.Realize(in, src.Derive(3))
	require.NoError(t, err)

	return in, seq
}

func TestRealize_CoversGrid(t *testing.T) {
	for seed := int64(0); seed < 15; seed++ {
		in, seq := realize(t, exercise.Default(), seed)
		onsets := 0
		for _, g := range in.Grids {
			for _, mp := range g.Measures {
				onsets += len(mp.Onsets)
				assert.Equal(t, 4.0, seq.MeasureSum(mp.Measure))
			}
		}
		require.Len(t, seq.Events, onsets)
		assert.Empty(t, seq.LoneEighths())

		anchors := 0
		for _, e := range seq.Events {
			assert.True(t, e.Attack)
			assert.NotEmpty(t, e.Reason)
			assert.GreaterOrEqual(t, e.MIDI, in.R.Low)
			assert.LessOrEqual(t, e.MIDI, in.R.High)
			if e.Tags.Has(melody.Anchor) {
				assert.Equal(t, in.Anchors[anchors].MIDI, e.MIDI)
				anchors++
			}
			if e.Role == melody.NonHarmonic {
				assert.True(t, e.Tags.Has(melody.ConnectiveNonHarmonic))
			}
		}
		assert.Equal(t, len(in.Anchors), anchors)

		attacks := seq.Attacks()
		last := seq.Events[attacks[len(attacks)-1]]
		assert.True(t, last.Tags.Has(melody.Cadence))
	}
}

func TestRealize_PairsTagged(t *testing.T) {
	_, seq := realize(t, exercise.Default(), 3)
	pairs := 0
	for i, e := range seq.Events {
		if seq.IsPairHead(i) {
			pairs++
			assert.True(t, e.Tags.Has(melody.SmoothingRun))
			assert.True(t, seq.Events[i+1].Tags.Has(melody.SmoothingRun))
		}
	}
	assert.GreaterOrEqual(t, pairs, 1)
}

func TestRealize_Deterministic(t *testing.T) {
	_, a := realize(t, exercise.Default(), 21)
	_, b := realize(t, exercise.Default(), 21)
	assert.Equal(t, a.Events, b.Events)
}

// chord returns the triad on degree sounding from beat of measure 1.
func chord(r *exercise.Resolved, id int, beat float64, degree int) harmony.Event {
	tr := r.Key.Triad(degree)
	return harmony.Event{
		ID: id, Measure: 1, Beat: beat, Degree: degree,
		Root: tr.Root, ChordPCs: tr.PCs, Quality: tr.Quality, Function: harmony.FunctionOf(degree),
	}
}

func TestRealize_OrnamentOrder(t *testing.T) {
	r, err := exercise.Default().Resolve()
	require.NoError(t, err)

	cases := []struct {
		name    string
		a, b    int
		harmony []harmony.Event
		want    []int
		reason  string
	}{
		{"passing tone bridges a third", 60, 64, []harmony.Event{chord(r, 0, 1, 1)}, []int{62}, embellish.ReasonPassing},
		{"neighbor between repeated anchors", 64, 64, []harmony.Event{chord(r, 0, 1, 1)}, []int{62, 65}, embellish.ReasonNeighbor},
		{"suspension over a chord change", 65, 64, []harmony.Event{chord(r, 0, 1, 4), chord(r, 1, 2, 1)}, []int{65}, embellish.ReasonSuspension},
		{"escape tone leaves against the step", 62, 64, []harmony.Event{chord(r, 0, 1, 1)}, []int{60}, embellish.ReasonEscape},
		{"nearest chord tone otherwise", 60, 67, []harmony.Event{chord(r, 0, 1, 1)}, []int{64}, embellish.ReasonChordTone},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := embellish.Input{
				R:       r,
				Harmony: tc.harmony,
				Grids: []rhythm.Plan{{Measures: []rhythm.MeasurePlan{{
					Measure: 1, Onsets: []float64{1, 2, 3}, Durations: []float64{1, 1, 2},
				}}}},
				Anchors: []skeleton.Anchor{
					{Measure: 1, Beat: 1, MIDI: tc.a},
					{Measure: 1, Beat: 3, MIDI: tc.b},
				},
			}
			seq, err := embellish.Realize(in, rng.New(1))
			require.NoError(t, err)
			require.Len(t, seq.Events, 3)

			fill := seq.Events[1]
			assert.Contains(t, tc.want, fill.MIDI)
			assert.Equal(t, tc.reason, fill.Reason)
			assert.Equal(t, embellish.ReasonAnchor, seq.Events[0].Reason)
			assert.Equal(t, tc.b, seq.Events[2].MIDI)
		})
	}
}

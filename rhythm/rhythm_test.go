package rhythm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/melodia/rhythm"
	"github.com/katalvlaran/melodia/rng"
	"github.com/katalvlaran/melodia/theory"
)

var defaultAllowed = theory.NewDurationSet(theory.Eighth, theory.Quarter, theory.Half)

func params() rhythm.Params {
	return rhythm.Params{
		Meter:          theory.CommonTime,
		Allowed:        defaultAllowed,
		Target:         [4]float64{theory.Whole: .10, theory.Half: .20, theory.Quarter: .55, theory.Eighth: .15},
		MinEighthPairs: 1,
		Measures:       4,
		FirstMeasure:   1,
		Climax:         2,
	}
}

func TestCatalog_FillsEveryMeasure(t *testing.T) {
	for _, beats := range []int{2, 3, 4} {
		m := theory.Meter{Beats: beats, Unit: 4}
		cat := rhythm.Catalog(m)
		require.NotEmpty(t, cat, "meter %s", m)
		for _, tpl := range cat {
			sum := 0.0
			for _, d := range tpl.Durations(m) {
				sum += d
			}
			assert.Equal(t, m.Length(), sum, "%s %s", m, tpl.ID)
			_, ok := tpl.Classes(m)
			assert.True(t, ok, "%s %s has an illegal gap", m, tpl.ID)
			assert.Equal(t, 1.0, tpl.Onsets[0])
		}
	}
	assert.Nil(t, rhythm.Catalog(theory.Meter{Beats: 6, Unit: 8}))
}

func TestTemplate_PairsAndAnchors(t *testing.T) {
	m := theory.CommonTime
	run, ok := rhythm.Lookup(m, "run12")
	require.True(t, ok)
	assert.Equal(t, 2, run.EighthPairs(m))
	assert.Equal(t, []float64{1, 3}, run.Anchors(m))

	whole, ok := rhythm.Lookup(m, "cadence-whole")
	require.True(t, ok)
	assert.Equal(t, []float64{4}, whole.Durations(m))
	assert.Equal(t, []float64{1}, whole.Anchors(m))
	assert.False(t, whole.Legal(m, defaultAllowed))
}

func TestCheckFeasible(t *testing.T) {
	m := theory.CommonTime
	require.NoError(t, rhythm.CheckFeasible(m, defaultAllowed, 4, 1))

	err := rhythm.CheckFeasible(m, theory.NewDurationSet(theory.Quarter, theory.Half), 4, 2)
	assert.ErrorIs(t, err, rhythm.ErrEighthQuota)

	// run templates give two pairs on each of the two eligible measures
	assert.NoError(t, rhythm.CheckFeasible(m, defaultAllowed, 4, 4))
	assert.ErrorIs(t, rhythm.CheckFeasible(m, defaultAllowed, 4, 5), rhythm.ErrEighthQuota)

	// 3/4 whole notes do not fit, dotted values are not in the catalog
	err = rhythm.CheckFeasible(theory.Meter{Beats: 3, Unit: 4}, theory.NewDurationSet(theory.Whole), 4, 0)
	assert.ErrorIs(t, err, rhythm.ErrNoTemplate)
}

func TestPlanPhrase_Roles(t *testing.T) {
	p := params()
	plan, err := rhythm.PlanPhrase(p, rng.New(7))
	require.NoError(t, err)
	require.Len(t, plan.Measures, 4)

	last := plan.Measures[3]
	assert.True(t, last.Cadence)
	assert.Equal(t, "cadence-halves", last.TemplateID, "whole notes are not allowed")
	assert.True(t, plan.Measures[1].Climax)
	assert.Equal(t, "climax", plan.Measures[1].TemplateID)
	assert.GreaterOrEqual(t, plan.EighthPairs(), 1)

	for i, mp := range plan.Measures {
		assert.Equal(t, i+1, mp.Measure)
		assert.Equal(t, mp.Onsets[0], mp.Anchors[0])
	}
}

func TestPlanPhrase_Deterministic(t *testing.T) {
	p := params()
	a, err := rhythm.PlanPhrase(p, rng.New(99))
	require.NoError(t, err)
	b, err := rhythm.PlanPhrase(p, rng.New(99))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestPlanPhrase_QuotaAcrossSeeds(t *testing.T) {
	p := params()
	p.MinEighthPairs = 3
	for seed := int64(0); seed < 25; seed++ {
		plan, err := rhythm.PlanPhrase(p, rng.New(seed))
		require.NoError(t, err)
		assert.GreaterOrEqual(t, plan.EighthPairs(), 3, "seed %d", seed)
	}
}

func TestPlanPhrase_FallbackWithoutFamilies(t *testing.T) {
	p := params()
	p.Allowed = theory.NewDurationSet(theory.Quarter)
	p.MinEighthPairs = 0
	plan, err := rhythm.PlanPhrase(p, rng.New(3))
	require.NoError(t, err)
	for _, mp := range plan.Measures {
		assert.Equal(t, "plain", mp.TemplateID)
	}
	assert.Equal(t, 16, plan.Tally[theory.Quarter])
}

func TestVary_KeepsQuotaAndCadence(t *testing.T) {
	p := params()
	base, err := rhythm.PlanPhrase(p, rng.New(11))
	require.NoError(t, err)
	p.FirstMeasure = 5
	v := rhythm.Vary(base, p, rng.New(12))
	require.Len(t, v.Measures, 4)
	assert.Equal(t, base.EighthPairs(), v.EighthPairs())
	assert.Equal(t, base.Measures[3].TemplateID, v.Measures[3].TemplateID)
	assert.Equal(t, 5, v.Measures[0].Measure)
}

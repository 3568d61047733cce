package rng_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/melodia/rng"
)

func TestSource_Reproducible(t *testing.T) {
	a, b := rng.New(42), rng.New(42)
	for i := 0; i < 64; i++ {
		require.Equal(t, a.Float64(), b.Float64(), "draw %d diverged", i)
	}
}

func TestSubSeed_Formula(t *testing.T) {
	assert.Equal(t, int64(7), rng.SubSeed(7))
	assert.Equal(t, int64(7*1_000_003+7_919), rng.SubSeed(7, 0))
	assert.Equal(t, (int64(7*1_000_003+7_919))*1_000_003+2*7_919, rng.SubSeed(7, 0, 1))
	assert.NotEqual(t, rng.SubSeed(7, 0, 1), rng.SubSeed(7, 1, 0), "order of indices matters")
}

func TestDerive_DoesNotAdvanceParent(t *testing.T) {
	parent := rng.New(3)
	ref := rng.New(3)
	_ = parent.Derive(1, 2)
	assert.Equal(t, ref.Float64(), parent.Float64())
	assert.Equal(t, rng.SubSeed(3, 1, 2), parent.Derive(1, 2).Seed())
}

func TestWeightedIndex(t *testing.T) {
	s := rng.New(1)

	_, ok := s.WeightedIndex([]float64{0, -1, 0})
	assert.False(t, ok, "no positive weight")

	for i := 0; i < 100; i++ {
		idx, ok := s.WeightedIndex([]float64{0, 0, 5, 0})
		require.True(t, ok)
		require.Equal(t, 2, idx)
	}

	counts := make([]int, 2)
	for i := 0; i < 2000; i++ {
		idx, _ := s.WeightedIndex([]float64{1, 3})
		counts[idx]++
	}
	assert.Greater(t, counts[1], counts[0], "heavier weight should win more often")
}

func TestIntRangeAndChance(t *testing.T) {
	s := rng.New(9)
	for i := 0; i < 200; i++ {
		v := s.IntRange(2, 4)
		require.GreaterOrEqual(t, v, 2)
		require.LessOrEqual(t, v, 4)
	}
	assert.Equal(t, 5, s.IntRange(5, 5))
	assert.False(t, s.Chance(0))
	assert.True(t, s.Chance(1))
	assert.Equal(t, 0, s.Intn(0))
}

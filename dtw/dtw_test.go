package dtw_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/melodia/dtw"
)

func TestDistance_Errors(t *testing.T) {
	_, err := dtw.Distance(nil, []float64{1})
	assert.ErrorIs(t, err, dtw.ErrEmptySequence)
	_, _, err = dtw.Align([]float64{1}, nil)
	assert.ErrorIs(t, err, dtw.ErrEmptySequence)

	_, err = dtw.Distance([]float64{1, 2, 3, 4}, []float64{1}, dtw.WithWindow(2))
	assert.ErrorIs(t, err, dtw.ErrWindowTooNarrow)
}

func TestDistance(t *testing.T) {
	cases := []struct {
		name string
		a, b []float64
		opts []dtw.Option
		want float64
	}{
		{"identical", []float64{2, -1, -1, 2}, []float64{2, -1, -1, 2}, nil, 0},
		{"stretched", []float64{1, 2, 3}, []float64{1, 2, 2, 3}, nil, 0},
		{"stretched with penalty", []float64{1, 2, 3}, []float64{1, 2, 2, 3}, []dtw.Option{dtw.WithSlopePenalty(1)}, 1},
		{"one step off", []float64{2, 2, -2}, []float64{2, 1, -2}, nil, 1},
		{"inverted", []float64{2, 2}, []float64{-2, -2}, []dtw.Option{dtw.WithWindow(1)}, 8},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := dtw.Distance(tc.a, tc.b, tc.opts...)
			require.NoError(t, err)
			assert.InDelta(t, tc.want, got, 1e-9)

			full, _, err := dtw.Align(tc.a, tc.b, tc.opts...)
			require.NoError(t, err)
			assert.InDelta(t, got, full, 1e-9)
		})
	}
}

func TestAlign_Path(t *testing.T) {
	dist, path, err := dtw.Align([]float64{1, 2, 3}, []float64{1, 2, 2, 3})
	require.NoError(t, err)
	assert.Zero(t, dist)
	assert.Equal(t, []dtw.Coord{{I: 0, J: 0}, {I: 1, J: 1}, {I: 1, J: 2}, {I: 2, J: 3}}, path)
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, dtw.Similarity(0, 4))
	assert.InDelta(t, 0.5, dtw.Similarity(4, 4), 1e-12)
	assert.Zero(t, dtw.Similarity(3, 0))
}

func TestOptions_Panic(t *testing.T) {
	assert.Panics(t, func() { dtw.WithWindow(-1) })
	assert.Panics(t, func() { dtw.WithSlopePenalty(-0.5) })
}

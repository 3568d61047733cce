package store_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/melodia/exercise"
	"github.com/katalvlaran/melodia/generator"
	"github.com/katalvlaran/melodia/store"
)

func open(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	return s
}

func generate(t *testing.T, seed int64) *generator.Result {
	t.Helper()
	res, err := generator.New(generator.WithVariants(2)).Generate(exercise.Default(), seed)
	require.NoError(t, err)
	require.True(t, res.OK())

	return res
}

func TestStore_PutGet(t *testing.T) {
	ctx := context.Background()
	s := open(t)
	res := generate(t, 4)

	id, err := s.Put(ctx, res)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id)

	rec, err := s.Get(ctx, res.Fingerprint, 4)
	require.NoError(t, err)
	assert.Equal(t, id, rec.ID)
	assert.Equal(t, res.Fingerprint, rec.Fingerprint)
	assert.Equal(t, int64(4), rec.Seed)
	assert.Equal(t, res.Events, rec.Result.Events)
	assert.Equal(t, res.Score, rec.Result.Score)
	assert.Equal(t, res.Variant, rec.Result.Variant)
	assert.False(t, rec.CreatedAt.IsZero())
}

func TestStore_PutReplacesPayloadKeepsID(t *testing.T) {
	ctx := context.Background()
	s := open(t)
	res := generate(t, 1)

	first, err := s.Put(ctx, res)
	require.NoError(t, err)
	res.Variant = 99
	second, err := s.Put(ctx, res)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	rec, err := s.Get(ctx, res.Fingerprint, 1)
	require.NoError(t, err)
	assert.Equal(t, 99, rec.Result.Variant)
}

func TestStore_NotFound(t *testing.T) {
	ctx := context.Background()
	s := open(t)

	_, err := s.Get(ctx, "missing", 1)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, "missing", 1), store.ErrNotFound)

	_, err = s.Put(ctx, &generator.Result{})
	assert.ErrorIs(t, err, store.ErrNoFingerprint)
}

func TestStore_SeedsAndDelete(t *testing.T) {
	ctx := context.Background()
	s := open(t)
	for _, seed := range []int64{3, 1, 2} {
		res := &generator.Result{Fingerprint: "fp", Seed: seed}
		_, err := s.Put(ctx, res)
		require.NoError(t, err)
	}

	seeds, err := s.Seeds(ctx, "fp")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, seeds)

	require.NoError(t, s.Delete(ctx, "fp", 2))
	seeds, err = s.Seeds(ctx, "fp")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3}, seeds)
}

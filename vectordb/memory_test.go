package vectordb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryVectorStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryVectorStore(3)

	require.NoError(t, s.Upsert(ctx, "x", []float32{1, 0, 0}, map[string]string{"k": "x"}))
	require.NoError(t, s.Upsert(ctx, "y", []float32{0, 2, 0}, nil))
	require.NoError(t, s.Upsert(ctx, "xy", []float32{1, 1, 0}, nil))
	assert.Error(t, s.Upsert(ctx, "bad", []float32{1}, nil))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	hits, err := s.Search(ctx, []float32{3, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "x", hits[0].ID)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
	assert.Equal(t, "x", hits[0].Meta["k"])
	assert.Equal(t, "xy", hits[1].ID)

	hits[0].Meta["k"] = "mutated"
	again, err := s.Search(ctx, []float32{1, 0, 0}, 1)
	require.NoError(t, err)
	assert.Equal(t, "x", again[0].Meta["k"])

	require.NoError(t, s.Upsert(ctx, "x", []float32{0, 0, 1}, nil))
	hits, err = s.Search(ctx, []float32{0, 0, 1}, 0)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, "x", hits[0].ID)

	require.NoError(t, s.Delete(ctx, "x"))
	n, err = s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = s.Search(ctx, []float32{1, 0}, 1)
	assert.Error(t, err)
}

func TestMemoryVectorStore_TiesByID(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryVectorStore(2)
	for _, id := range []string{"c", "a", "b"} {
		require.NoError(t, s.Upsert(ctx, id, []float32{1, 1}, nil))
	}
	hits, err := s.Search(ctx, []float32{1, 1}, 0)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{hits[0].ID, hits[1].ID, hits[2].ID})
}

package embeddings

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cosine(a, b []float32) float64 {
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

func TestHashEmbedder(t *testing.T) {
	ctx := context.Background()
	e := NewHashEmbedder(128)
	assert.Equal(t, 128, e.Dimension())

	a, err := e.EmbedText(ctx, "Count the cafes in Berlin.")
	require.NoError(t, err)
	require.Len(t, a, 128)

	var norm float64
	for _, v := range a {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-5)

	again, err := e.EmbedText(ctx, "count THE cafes in berlin")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, cosine(a, again), 1e-5, "case and punctuation do not matter")

	near, err := e.EmbedText(ctx, "Count the cafes in Bern.")
	require.NoError(t, err)
	far, err := e.EmbedText(ctx, "Tokyo has more people than Paris.")
	require.NoError(t, err)
	assert.Greater(t, cosine(a, near), cosine(a, far))

	empty, err := e.EmbedText(ctx, "")
	require.NoError(t, err)
	assert.Len(t, empty, 128)
}

func TestNewOpenAIEmbedder(t *testing.T) {
	_, err := NewOpenAIEmbedder("", "", Config{})
	assert.Error(t, err)

	e, err := NewOpenAIEmbedder("sk-test", "http://localhost:1/v1", Config{Dimension: 64})
	require.NoError(t, err)
	assert.Equal(t, 64, e.Dimension())
	assert.Equal(t, DefaultConfig().Model, e.config.Model)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "hello", truncate("hello world", 8))
	assert.Equal(t, "abcdefgh", truncate("abcdefghij", 8))
	assert.Equal(t, "anything", truncate("anything", 0))
}

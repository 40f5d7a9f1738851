package indexer

import (
	"context"
	"testing"

	"github.com/snow-ghost/sleuth/core"
	"github.com/snow-ghost/sleuth/embeddings"
	"github.com/snow-ghost/sleuth/store/memory"
	"github.com/snow-ghost/sleuth/vectordb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIndexer(t *testing.T) (*Indexer, *memory.Store) {
	t.Helper()
	st := memory.New()
	emb := embeddings.NewHashEmbedder(256)
	return NewIndexer(emb, vectordb.NewMemoryVectorStore(emb.Dimension()), st, nil), st
}

func addSkill(t *testing.T, st *memory.Store, description, code string) core.Skill {
	t.Helper()
	sk := &core.Skill{Description: description, Code: code, Origin: core.OriginSeeded}
	require.NoError(t, st.CreateSkill(context.Background(), sk))
	return *sk
}

func TestIndexer_Similar(t *testing.T) {
	ctx := context.Background()
	idx, st := newIndexer(t)

	addSkill(t, st, "Count the cafes in Berlin.", "berlin")
	addSkill(t, st, "Tokyo has more people than Paris.", "tokyo")
	addSkill(t, st, "Count the bakeries in Berlin.", "bakeries")

	n, err := idx.Rebuild(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	got, err := idx.Similar(ctx, "Count the cafes in Munich.", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "berlin", got[0].Code)
	assert.Equal(t, "bakeries", got[1].Code)

	none, err := idx.Similar(ctx, "anything", 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestIndexer_NewestPerDescription(t *testing.T) {
	ctx := context.Background()
	idx, st := newIndexer(t)

	old := addSkill(t, st, "Rome is older than Athens.", "old")
	require.NoError(t, idx.IndexSkill(ctx, old))
	fresh := addSkill(t, st, "Rome is older than Athens.", "fresh")
	require.NoError(t, idx.IndexSkill(ctx, fresh))

	got, err := idx.Similar(ctx, "Rome is older than Athens.", 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "fresh", got[0].Code)
}

func TestIndexer_SkipsMissingSkills(t *testing.T) {
	ctx := context.Background()
	idx, _ := newIndexer(t)

	require.NoError(t, idx.IndexSkill(ctx, core.Skill{ID: "s-gone", Description: "Vanished."}))
	got, err := idx.Similar(ctx, "Vanished.", 3)
	require.NoError(t, err)
	assert.Empty(t, got)
}

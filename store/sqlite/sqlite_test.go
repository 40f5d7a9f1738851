package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/snow-ghost/sleuth/core"
	"github.com/snow-ghost/sleuth/store/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "sleuth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) core.Store { return newTestStore(t) })
}

func TestStore_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "sleuth.db")

	s, err := Open(path)
	require.NoError(t, err)
	q := &core.Question{Description: "Persisted?"}
	require.NoError(t, s.CreateQuestion(ctx, q))
	sk := &core.Skill{Description: "It persists.", Code: "package p", Origin: core.OriginSeeded}
	require.NoError(t, s.CreateSkill(ctx, sk))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.GetQuestion(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, "Persisted?", got.Description)
	assert.True(t, q.CreatedAt.Equal(got.CreatedAt))

	found, err := s.FindSkill(ctx, "It persists.")
	require.NoError(t, err)
	assert.Equal(t, sk.ID, found.ID)
}

func TestStore_NullHypothesis(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	q := &core.Question{Description: "Direct?"}
	require.NoError(t, s.CreateQuestion(ctx, q))
	task := &core.Task{QuestionID: q.ID, Description: "Direct task."}
	require.NoError(t, s.CreateTask(ctx, task))

	var n int
	require.NoError(t, s.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks WHERE hypothesis_id IS NULL`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "?", placeholders(1))
	assert.Equal(t, "?,?,?", placeholders(3))
}

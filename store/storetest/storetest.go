// Package storetest holds the behavioral suite every core.Store must pass.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/snow-ghost/sleuth/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run exercises newStore with a fresh, empty store per subtest.
func Run(t *testing.T, newStore func(t *testing.T) core.Store) {
	t.Helper()

	t.Run("question lifecycle", func(t *testing.T) { testQuestionLifecycle(t, newStore(t)) })
	t.Run("question compare and set", func(t *testing.T) { testQuestionCAS(t, newStore(t)) })
	t.Run("hypothesis filters", func(t *testing.T) { testHypothesisFilters(t, newStore(t)) })
	t.Run("task ownership", func(t *testing.T) { testTaskOwnership(t, newStore(t)) })
	t.Run("task update", func(t *testing.T) { testTaskUpdate(t, newStore(t)) })
	t.Run("cascade delete", func(t *testing.T) { testCascade(t, newStore(t)) })
	t.Run("skills newest wins", func(t *testing.T) { testSkills(t, newStore(t)) })
	t.Run("creation order", func(t *testing.T) { testOrder(t, newStore(t)) })
}

func testQuestionLifecycle(t *testing.T, s core.Store) {
	ctx := context.Background()

	q := &core.Question{Description: "Is Tokyo larger than Paris?"}
	require.NoError(t, s.CreateQuestion(ctx, q))
	assert.NotEmpty(t, q.ID)
	assert.Equal(t, core.QuestionOpen, q.Status)
	assert.False(t, q.CreatedAt.IsZero())

	got, err := s.GetQuestion(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, q.Description, got.Description)
	assert.Equal(t, core.QuestionOpen, got.Status)

	require.NoError(t, s.UpdateQuestionStatus(ctx, q.ID, core.QuestionOpen, core.QuestionSolved))
	solved, err := s.ListQuestions(ctx, core.QuestionSolved)
	require.NoError(t, err)
	require.Len(t, solved, 1)
	assert.Equal(t, q.ID, solved[0].ID)

	open, err := s.ListQuestions(ctx, core.QuestionOpen)
	require.NoError(t, err)
	assert.Empty(t, open)

	_, err = s.GetQuestion(ctx, "q-missing")
	assert.ErrorIs(t, err, core.ErrNotFound)

	assert.Error(t, s.CreateQuestion(ctx, &core.Question{}))
}

func testQuestionCAS(t *testing.T, s core.Store) {
	ctx := context.Background()
	q := &core.Question{Description: "Does it rain?"}
	require.NoError(t, s.CreateQuestion(ctx, q))

	require.NoError(t, s.UpdateQuestionStatus(ctx, q.ID, core.QuestionOpen, core.QuestionUnresolvable))

	err := s.UpdateQuestionStatus(ctx, q.ID, core.QuestionSolved, core.QuestionOpen)
	assert.ErrorIs(t, err, core.ErrIllegalTransition)

	err = s.UpdateQuestionStatus(ctx, q.ID, core.QuestionOpen, core.QuestionSolved)
	assert.ErrorIs(t, err, core.ErrStaleStatus)

	err = s.UpdateQuestionStatus(ctx, "q-missing", core.QuestionOpen, core.QuestionSolved)
	assert.ErrorIs(t, err, core.ErrNotFound)

	got, err := s.GetQuestion(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, core.QuestionUnresolvable, got.Status)
}

func testHypothesisFilters(t *testing.T, s core.Store) {
	ctx := context.Background()
	q1 := mustQuestion(t, s, "First?")
	q2 := mustQuestion(t, s, "Second?")

	h1 := &core.Hypothesis{QuestionID: q1.ID, Description: "Alpha holds.", Score: 0.7}
	h2 := &core.Hypothesis{QuestionID: q1.ID, Description: "Beta holds."}
	h3 := &core.Hypothesis{QuestionID: q2.ID, Description: "Gamma holds."}
	for _, h := range []*core.Hypothesis{h1, h2, h3} {
		require.NoError(t, s.CreateHypothesis(ctx, h))
		assert.Equal(t, core.HypothesisPending, h.Status)
	}

	err := s.CreateHypothesis(ctx, &core.Hypothesis{QuestionID: "q-missing", Description: "Orphan."})
	assert.ErrorIs(t, err, core.ErrNotFound)

	require.NoError(t, s.UpdateHypothesisStatus(ctx, h2.ID, core.HypothesisPending, core.HypothesisRejected))
	err = s.UpdateHypothesisStatus(ctx, h2.ID, core.HypothesisRejected, core.HypothesisVerified)
	assert.ErrorIs(t, err, core.ErrIllegalTransition)

	all, err := s.ListHypotheses(ctx, core.HypothesisFilter{QuestionID: q1.ID})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, h1.ID, all[0].ID)
	assert.InDelta(t, 0.7, all[0].Score, 1e-9)

	pending, err := s.ListHypotheses(ctx, core.HypothesisFilter{Statuses: []core.HypothesisStatus{core.HypothesisPending}})
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	rejected, err := s.ListHypotheses(ctx, core.HypothesisFilter{
		QuestionID: q1.ID,
		Statuses:   []core.HypothesisStatus{core.HypothesisRejected},
	})
	require.NoError(t, err)
	require.Len(t, rejected, 1)
	assert.Equal(t, h2.ID, rejected[0].ID)
}

func testTaskOwnership(t *testing.T, s core.Store) {
	ctx := context.Background()
	q := mustQuestion(t, s, "Owner?")
	other := mustQuestion(t, s, "Other?")
	h := &core.Hypothesis{QuestionID: q.ID, Description: "Owned."}
	require.NoError(t, s.CreateHypothesis(ctx, h))

	viaHyp := &core.Task{HypothesisID: h.ID, Description: "Check the owner."}
	require.NoError(t, s.CreateTask(ctx, viaHyp))
	assert.Equal(t, q.ID, viaHyp.QuestionID)
	assert.False(t, viaHyp.Direct())

	direct := &core.Task{QuestionID: q.ID, Description: "Check directly."}
	require.NoError(t, s.CreateTask(ctx, direct))
	assert.True(t, direct.Direct())

	err := s.CreateTask(ctx, &core.Task{QuestionID: other.ID, HypothesisID: h.ID, Description: "Mismatch."})
	assert.Error(t, err)

	err = s.CreateTask(ctx, &core.Task{QuestionID: "q-missing", Description: "Orphan."})
	assert.ErrorIs(t, err, core.ErrNotFound)

	onlyDirect, err := s.ListTasks(ctx, core.TaskFilter{QuestionID: q.ID, DirectOnly: true})
	require.NoError(t, err)
	require.Len(t, onlyDirect, 1)
	assert.Equal(t, direct.ID, onlyDirect[0].ID)

	byHyp, err := s.ListTasks(ctx, core.TaskFilter{HypothesisID: h.ID})
	require.NoError(t, err)
	require.Len(t, byHyp, 1)
	assert.Equal(t, viaHyp.ID, byHyp[0].ID)

	fetched, err := s.GetTask(ctx, direct.ID)
	require.NoError(t, err)
	assert.Nil(t, fetched.Result)
	assert.Empty(t, fetched.HypothesisID)
}

func testTaskUpdate(t *testing.T, s core.Store) {
	ctx := context.Background()
	q := mustQuestion(t, s, "Update?")
	task := &core.Task{QuestionID: q.ID, Description: "Run once."}
	require.NoError(t, s.CreateTask(ctx, task))

	require.NoError(t, s.UpdateTask(ctx, task.ID, core.TaskPending, core.TaskUpdate{Status: core.TaskInProgress}))

	err := s.UpdateTask(ctx, task.ID, core.TaskPending, core.TaskUpdate{Status: core.TaskInProgress})
	assert.ErrorIs(t, err, core.ErrStaleStatus)

	msg := "dial tcp: connection refused"
	require.NoError(t, s.UpdateTask(ctx, task.ID, core.TaskInProgress, core.TaskUpdate{
		Status: core.TaskError, Result: &msg, CountError: true,
	}))
	got, err := s.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, core.TaskError, got.Status)
	assert.Equal(t, msg, got.ResultText())
	assert.Equal(t, 1, got.Errors)

	require.NoError(t, s.UpdateTask(ctx, task.ID, core.TaskError, core.TaskUpdate{Status: core.TaskInProgress}))
	got, err = s.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, msg, got.ResultText(), "nil result keeps the stored one")

	done := "true"
	require.NoError(t, s.UpdateTask(ctx, task.ID, core.TaskInProgress, core.TaskUpdate{Status: core.TaskCompleted, Result: &done}))

	err = s.UpdateTask(ctx, task.ID, core.TaskCompleted, core.TaskUpdate{Status: core.TaskInProgress})
	assert.ErrorIs(t, err, core.ErrIllegalTransition)

	got, err = s.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, core.TaskCompleted, got.Status)
	assert.Equal(t, "true", got.ResultText())
	assert.Equal(t, 1, got.Errors)

	inProgress, err := s.ListTasks(ctx, core.TaskFilter{Statuses: []core.TaskStatus{core.TaskInProgress}})
	require.NoError(t, err)
	assert.Empty(t, inProgress)
}

func testCascade(t *testing.T, s core.Store) {
	ctx := context.Background()
	q := mustQuestion(t, s, "Cascade?")
	h := &core.Hypothesis{QuestionID: q.ID, Description: "Goes away."}
	require.NoError(t, s.CreateHypothesis(ctx, h))
	t1 := &core.Task{HypothesisID: h.ID, Description: "Child."}
	t2 := &core.Task{QuestionID: q.ID, Description: "Direct child."}
	require.NoError(t, s.CreateTask(ctx, t1))
	require.NoError(t, s.CreateTask(ctx, t2))

	require.NoError(t, s.DeleteHypothesis(ctx, h.ID))
	_, err := s.GetTask(ctx, t1.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = s.GetTask(ctx, t2.ID)
	assert.NoError(t, err)

	require.NoError(t, s.DeleteTask(ctx, t2.ID))
	assert.ErrorIs(t, s.DeleteTask(ctx, t2.ID), core.ErrNotFound)

	h2 := &core.Hypothesis{QuestionID: q.ID, Description: "Also goes."}
	require.NoError(t, s.CreateHypothesis(ctx, h2))
	require.NoError(t, s.DeleteQuestion(ctx, q.ID))
	_, err = s.GetHypothesis(ctx, h2.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.ErrorIs(t, s.DeleteQuestion(ctx, q.ID), core.ErrNotFound)
}

func testSkills(t *testing.T, s core.Store) {
	ctx := context.Background()
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	old := &core.Skill{Description: "Tokyo is larger than Paris.", Code: "old", Origin: core.OriginSeeded, CreatedAt: base}
	fresh := &core.Skill{Description: old.Description, Code: "fresh", FilePath: "geo/size.go", Origin: core.OriginSynthesized, CreatedAt: base.Add(time.Second)}
	require.NoError(t, s.CreateSkill(ctx, old))
	require.NoError(t, s.CreateSkill(ctx, fresh))
	assert.NotEqual(t, old.ID, fresh.ID)

	found, err := s.FindSkill(ctx, old.Description)
	require.NoError(t, err)
	assert.Equal(t, "fresh", found.Code)
	assert.Equal(t, "geo/size.go", found.FilePath)
	assert.Equal(t, core.OriginSynthesized, found.Origin)

	_, err = s.FindSkill(ctx, "no such skill.")
	assert.ErrorIs(t, err, core.ErrNotFound)

	byID, err := s.GetSkill(ctx, old.ID)
	require.NoError(t, err)
	assert.Equal(t, "old", byID.Code)

	all, err := s.ListSkills(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, old.ID, all[0].ID)

	assert.Error(t, s.CreateSkill(ctx, &core.Skill{Description: "no code."}))
}

func testOrder(t *testing.T, s core.Store) {
	ctx := context.Background()
	at := time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC)

	// Equal timestamps fall back to insertion order.
	var ids []string
	for _, d := range []string{"One?", "Two?", "Three?"} {
		q := &core.Question{Description: d, CreatedAt: at}
		require.NoError(t, s.CreateQuestion(ctx, q))
		ids = append(ids, q.ID)
	}
	earlier := &core.Question{Description: "Zero?", CreatedAt: at.Add(-time.Minute)}
	require.NoError(t, s.CreateQuestion(ctx, earlier))

	list, err := s.ListQuestions(ctx)
	require.NoError(t, err)
	require.Len(t, list, 4)
	assert.Equal(t, earlier.ID, list[0].ID)
	for i, id := range ids {
		assert.Equal(t, id, list[i+1].ID)
	}
}

func mustQuestion(t *testing.T, s core.Store, description string) *core.Question {
	t.Helper()
	q := &core.Question{Description: description}
	require.NoError(t, s.CreateQuestion(context.Background(), q))
	return q
}

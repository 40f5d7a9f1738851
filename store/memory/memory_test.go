package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/snow-ghost/sleuth/core"
	"github.com/snow-ghost/sleuth/store/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) core.Store { return New() })
}

func TestStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := New()
	q := &core.Question{Description: "Copy?"}
	require.NoError(t, s.CreateQuestion(ctx, q))
	task := &core.Task{QuestionID: q.ID, Description: "Copy me."}
	require.NoError(t, s.CreateTask(ctx, task))

	require.NoError(t, s.UpdateTask(ctx, task.ID, core.TaskPending, core.TaskUpdate{Status: core.TaskInProgress}))
	r := "true"
	require.NoError(t, s.UpdateTask(ctx, task.ID, core.TaskInProgress, core.TaskUpdate{Status: core.TaskCompleted, Result: &r}))
	r = "mutated"

	got, err := s.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "true", got.ResultText())

	*got.Result = "changed"
	again, err := s.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "true", again.ResultText())
}

func TestStore_ConcurrentCAS(t *testing.T) {
	ctx := context.Background()
	s := New()
	q := &core.Question{Description: "Race?"}
	require.NoError(t, s.CreateQuestion(ctx, q))
	task := &core.Task{QuestionID: q.ID, Description: "Claim me."}
	require.NoError(t, s.CreateTask(ctx, task))

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.UpdateTask(ctx, task.ID, core.TaskPending, core.TaskUpdate{Status: core.TaskInProgress})
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, core.ErrStaleStatus)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskTransitions(t *testing.T) {
	cases := []struct {
		from, to TaskStatus
		ok       bool
	}{
		{TaskPending, TaskInProgress, true},
		{TaskError, TaskInProgress, true},
		{TaskInProgress, TaskCompleted, true},
		{TaskInProgress, TaskFailed, true},
		{TaskInProgress, TaskError, true},
		{TaskInProgress, TaskPending, true},
		{TaskPending, TaskCompleted, false},
		{TaskCompleted, TaskInProgress, false},
		{TaskFailed, TaskPending, false},
		{TaskCompleted, TaskFailed, false},
	}
	for _, tc := range cases {
		t.Run(string(tc.from)+"->"+string(tc.to), func(t *testing.T) {
			err := CheckTaskTransition(tc.from, tc.to)
			if tc.ok {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrIllegalTransition))
			var te *TransitionError
			require.True(t, errors.As(err, &te))
			assert.Equal(t, "task", te.Entity)
		})
	}
}

func TestTerminalStatuses(t *testing.T) {
	terminal := []TaskStatus{TaskCompleted, TaskFailed}
	for _, s := range terminal {
		assert.True(t, s.Terminal(), s)
		for _, to := range []TaskStatus{TaskPending, TaskInProgress, TaskCompleted, TaskFailed, TaskError} {
			assert.Error(t, CheckTaskTransition(s, to), "%s -> %s", s, to)
		}
	}
	assert.False(t, TaskError.Terminal())
	assert.False(t, TaskPending.Terminal())

	assert.False(t, HypothesisPending.Terminal())
	assert.True(t, HypothesisRejected.Terminal())
	assert.True(t, HypothesisVerified.Terminal())
}

func TestQuestionTransitions(t *testing.T) {
	assert.NoError(t, CheckQuestionTransition(QuestionOpen, QuestionOpen))
	assert.NoError(t, CheckQuestionTransition(QuestionOpen, QuestionSolved))
	assert.NoError(t, CheckQuestionTransition(QuestionOpen, QuestionUnresolvable))
	assert.Error(t, CheckQuestionTransition(QuestionSolved, QuestionOpen))
	assert.Error(t, CheckQuestionTransition(QuestionUnresolvable, QuestionSolved))
}

func TestHypothesisTransitions(t *testing.T) {
	for _, to := range []HypothesisStatus{HypothesisVerified, HypothesisRejected, HypothesisUnverifiableFetch, HypothesisUnverifiableAnalyze} {
		assert.NoError(t, CheckHypothesisTransition(HypothesisPending, to))
		assert.Error(t, CheckHypothesisTransition(to, HypothesisPending))
	}
}

func TestStatusValid(t *testing.T) {
	assert.True(t, QuestionSolved.Valid())
	assert.False(t, QuestionStatus("DONE").Valid())
	assert.True(t, HypothesisUnverifiableFetch.Valid())
	assert.False(t, HypothesisStatus("").Valid())
	assert.True(t, TaskError.Valid())
	assert.False(t, TaskStatus("RUNNING").Valid())
}

func TestSynthesisExhaustedError(t *testing.T) {
	err := &SynthesisExhaustedError{Description: "Confirm x.", Attempts: 20, LastErr: errors.New("boom")}
	assert.True(t, errors.Is(err, ErrSynthesisExhausted))
	assert.Contains(t, err.Error(), "20 attempts")
	assert.Contains(t, err.Error(), "boom")
}

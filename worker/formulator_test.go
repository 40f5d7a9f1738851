package worker

import (
	"errors"
	"testing"

	"github.com/snow-ghost/sleuth/core"
	"github.com/snow-ghost/sleuth/testkit"
	"github.com/snow-ghost/sleuth/worker/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestFilterLines(t *testing.T) {
	obs, logs := observer.New(zap.InfoLevel)
	rec := telemetry.New(zap.New(obs))
	resp := testkit.Lines(
		"1. Tokyo is larger than Paris.",
		"",
		"- Tokyo is larger than Paris.",
		"* Cities are larger than others.",
		"Rome is older than Athens",
		"Berlin hides a <<POISON>> token.",
		"  Madrid lies above 600 m.  ",
	)

	got := filterLines(resp, statementValidators(), "hypothesis", rec)
	assert.Equal(t, []string{"Tokyo is larger than Paris.", "Madrid lies above 600 m."}, got)

	reasons := map[string]string{}
	for _, e := range logs.FilterMessage("candidate discarded").All() {
		ctx := e.ContextMap()
		reasons[ctx["text"].(string)] = ctx["reason"].(string)
	}
	assert.Equal(t, "no_words", reasons["Cities are larger than others."])
	assert.Equal(t, "ends_with_.", reasons["Rome is older than Athens"])
	assert.Equal(t, "poison", reasons["Berlin hides a <<POISON>> token."])
}

func statementValidators() core.Validators { return core.StatementValidators("<<POISON>>") }

func TestFormulator_Context(t *testing.T) {
	h := newHarness(t, nil)
	solved := h.question(t, "Is Tokyo larger than Paris?")
	verified := h.hypothesis(t, solved, "Tokyo covers more area than Paris.")
	require.NoError(t, h.store.UpdateHypothesisStatus(h.ctx, verified.ID, core.HypothesisPending, core.HypothesisVerified))
	require.NoError(t, h.store.UpdateQuestionStatus(h.ctx, solved.ID, core.QuestionOpen, core.QuestionSolved))

	q := h.question(t, "Is Rome older than Athens?")
	rejected := h.hypothesis(t, q, "Rome was founded first.")
	task := h.task(t, q, rejected, "Rome was founded before 800 BC.")
	result := "false"
	require.NoError(t, h.store.UpdateTask(h.ctx, task.ID, core.TaskPending, core.TaskUpdate{Status: core.TaskInProgress}))
	require.NoError(t, h.store.UpdateTask(h.ctx, task.ID, core.TaskInProgress, core.TaskUpdate{Status: core.TaskFailed, Result: &result}))
	require.NoError(t, h.store.UpdateHypothesisStatus(h.ctx, rejected.ID, core.HypothesisPending, core.HypothesisRejected))
	h.hypothesis(t, q, "Athens was abandoned early.")

	h.gen.Push(testkit.Lines("Athens was founded first.", "Everything is old etc."))
	f := NewFormulator(h.gen, h.store, "<<POISON>>", nil)
	got, err := f.Formulate(h.ctx, *q)
	require.NoError(t, err)
	assert.Equal(t, []string{"Athens was founded first."}, got)

	prompt := h.gen.Prompts()[0]
	assert.Contains(t, prompt, "Q: Is Tokyo larger than Paris?\nH: Tokyo covers more area than Paris.")
	assert.Contains(t, prompt, "Question: Is Rome older than Athens?")
	assert.Contains(t, prompt, "- Rome was founded first. (REJECTED)")
	assert.Contains(t, prompt, "task: Rome was founded before 800 BC. -> FAILED false")
	assert.NotContains(t, prompt, "Athens was abandoned early.", "pending hypotheses are not context")
}

func TestFormulator_GeneratorError(t *testing.T) {
	h := newHarness(t, nil)
	q := h.question(t, "Is Rome older than Athens?")
	boom := errors.New("quota exceeded")
	h.gen.PushError(boom)
	_, err := h.orch.Formulator.Formulate(h.ctx, *q)
	assert.ErrorIs(t, err, boom)
}

func TestFormulator_ProposeQuestion(t *testing.T) {
	h := newHarness(t, nil)
	h.question(t, "Is Rome older than Athens?")
	h.gen.Push(testkit.Lines("Is Oslo colder than Bergen?", "Name a city.", "Is Oslo colder than Bergen?"))

	got, err := h.orch.Formulator.ProposeQuestion(h.ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Is Oslo colder than Bergen?"}, got)
	assert.Contains(t, h.gen.Prompts()[0], "Questions already queued:\n- Is Rome older than Athens?")
}

func TestPlanner(t *testing.T) {
	h := newHarness(t, nil)
	q := h.question(t, "Is Rome older than Athens?")
	old := h.hypothesis(t, q, "Rome was founded first.")
	h.task(t, q, old, "Rome was founded before 800 BC.")
	require.NoError(t, h.store.UpdateHypothesisStatus(h.ctx, old.ID, core.HypothesisPending, core.HypothesisRejected))
	hyp := h.hypothesis(t, q, "Athens was founded first.")
	h.task(t, q, hyp, "Athens had walls before Rome did.")

	h.gen.Push(testkit.Lines(
		"Rome was founded before 800 BC.",
		"Athens had walls before Rome did.",
		"Athens was settled before 1000 BC.",
		"Athens was settled before 1000 BC.",
		"Check all sources.",
	))
	got, err := h.orch.Planner.Plan(h.ctx, *q, hyp)
	require.NoError(t, err)
	assert.Equal(t, []string{"Rome was founded before 800 BC.", "Athens was settled before 1000 BC."}, got,
		"only tasks of the same hypothesis are duplicates")

	prompt := h.gen.Prompts()[0]
	assert.Contains(t, prompt, "Hypothesis: Athens was founded first.")
	assert.Contains(t, prompt, "Tasks already executed for this question:\n- Rome was founded before 800 BC.")
}

func TestPlanner_Direct(t *testing.T) {
	h := newHarness(t, nil)
	q := h.question(t, "Is Rome older than Athens?")
	h.gen.Push("Rome was founded before Athens.")
	got, err := h.orch.Planner.Plan(h.ctx, *q, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Rome was founded before Athens."}, got)
	assert.NotContains(t, h.gen.Prompts()[0], "Hypothesis:")
}

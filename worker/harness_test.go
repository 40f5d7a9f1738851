package worker

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/snow-ghost/sleuth/core"
	"github.com/snow-ghost/sleuth/interp"
	"github.com/snow-ghost/sleuth/interp/golang"
	kbfs "github.com/snow-ghost/sleuth/kb/fs"
	"github.com/snow-ghost/sleuth/llm/mock"
	"github.com/snow-ghost/sleuth/scoring"
	"github.com/snow-ghost/sleuth/store/memory"
	"github.com/snow-ghost/sleuth/worker/telemetry"
	"github.com/stretchr/testify/require"
)

// harness wires an orchestrator on an in-memory store, a temp skill tree,
// the Go interpreter and a scripted generator.
type harness struct {
	ctx      context.Context
	store    *memory.Store
	gen      *mock.Generator
	root     string
	scratch  string
	tree     *kbfs.Tree
	executor *interp.Executor
	synth    *Synthesizer
	resolver *Resolver
	orch     *Orchestrator
	rec      *telemetry.Recorder
	cfg      *Config
}

func newHarness(t *testing.T, configure func(*Config)) *harness {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Orchestrator.MaxFormulationAttempts = 2
	cfg.Synthesis.MaxAttempts = 5
	if configure != nil {
		configure(cfg)
	}

	h := &harness{
		ctx:     context.Background(),
		store:   memory.New(),
		gen:     mock.New(),
		root:    t.TempDir(),
		scratch: t.TempDir(),
		rec:     telemetry.Nop(),
		cfg:     cfg,
	}
	h.tree = kbfs.NewTree(h.root, nil)
	router := interp.NewRouter().Register(interp.RuntimeGo, golang.NewInterpreter(""))
	h.executor = interp.NewExecutor(router, nil, h.scratch, nil)
	h.synth = NewSynthesizer(h.gen, h.executor, h.store, h.tree, nil, nil, SynthesizerOptions{
		MaxAttempts: cfg.Synthesis.MaxAttempts,
		Exemplars:   cfg.Synthesis.Exemplars,
		Hints:       cfg.Synthesis.Hints,
		Timeout:     cfg.Orchestrator.SkillTimeout,
	}, h.rec, nil)

	var err error
	h.resolver, err = NewResolver(h.store, h.tree, h.synth, nil, 16, h.rec)
	require.NoError(t, err)

	h.orch = NewOrchestrator(Components{
		Store:      h.store,
		Formulator: NewFormulator(h.gen, h.store, cfg.Orchestrator.PoisonToken, h.rec),
		Planner:    NewPlanner(h.gen, h.store, cfg.Orchestrator.PoisonToken, h.rec),
		Resolver:   h.resolver,
		Executor:   h.executor,
		Scorer:     scoring.NewScorer(h.store),
		Recorder:   h.rec,
	}, cfg.Orchestrator)
	return h
}

func (h *harness) mkdir(t *testing.T, rel string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(h.root, filepath.FromSlash(rel)), 0o755))
}

func (h *harness) writeSkill(t *testing.T, rel, code string) {
	t.Helper()
	h.mkdir(t, filepath.Dir(rel))
	require.NoError(t, os.WriteFile(filepath.Join(h.root, filepath.FromSlash(rel)), []byte(code), 0o644))
}

func (h *harness) question(t *testing.T, text string) *core.Question {
	t.Helper()
	q := &core.Question{Description: text}
	require.NoError(t, h.store.CreateQuestion(h.ctx, q))
	return q
}

func (h *harness) hypothesis(t *testing.T, q *core.Question, text string) *core.Hypothesis {
	t.Helper()
	hyp := &core.Hypothesis{QuestionID: q.ID, Description: text}
	require.NoError(t, h.store.CreateHypothesis(h.ctx, hyp))
	return hyp
}

func (h *harness) task(t *testing.T, q *core.Question, hyp *core.Hypothesis, text string) *core.Task {
	t.Helper()
	task := &core.Task{QuestionID: q.ID, Description: text}
	if hyp != nil {
		task.HypothesisID = hyp.ID
	}
	require.NoError(t, h.store.CreateTask(h.ctx, task))
	return task
}

func (h *harness) getQuestion(t *testing.T, id string) core.Question {
	t.Helper()
	q, err := h.store.GetQuestion(h.ctx, id)
	require.NoError(t, err)
	return *q
}

func (h *harness) getHypothesis(t *testing.T, id string) core.Hypothesis {
	t.Helper()
	hyp, err := h.store.GetHypothesis(h.ctx, id)
	require.NoError(t, err)
	return *hyp
}

func (h *harness) getTask(t *testing.T, id string) core.Task {
	t.Helper()
	task, err := h.store.GetTask(h.ctx, id)
	require.NoError(t, err)
	return *task
}

func (h *harness) assertScratchEmpty(t *testing.T) {
	t.Helper()
	entries, err := os.ReadDir(h.scratch)
	require.NoError(t, err)
	require.Empty(t, entries, "ephemeral units left behind")
}

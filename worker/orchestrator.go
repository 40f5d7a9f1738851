package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/snow-ghost/sleuth/core"
	"github.com/snow-ghost/sleuth/pkg/tracing"
	"github.com/snow-ghost/sleuth/scoring"
	"github.com/snow-ghost/sleuth/worker/telemetry"
	"go.uber.org/zap"
)

// Outcome summarizes one orchestrator pass.
type Outcome string

const (
	OutcomeIdle         Outcome = "idle"
	OutcomeProgressed   Outcome = "progressed"
	OutcomeSolved       Outcome = "solved"
	OutcomeRejected     Outcome = "rejected"
	OutcomeUnresolvable Outcome = "unresolvable"
	OutcomeUnverifiable Outcome = "unverifiable"
	OutcomeStalled      Outcome = "stalled"
)

// ErrNotNovel is returned by Submit when a question scores at or below the
// novelty threshold.
var ErrNotNovel = errors.New("question is not novel")

// ErrInvalidQuestion is returned by Submit for empty or poisoned text.
var ErrInvalidQuestion = errors.New("invalid question")

// SkillResolver finds or creates the skill for a task description.
type SkillResolver interface {
	Resolve(ctx context.Context, description string) (core.Skill, error)
}

// Components are the collaborators of an Orchestrator.
type Components struct {
	Store      core.Store
	Formulator *Formulator
	Planner    *Planner
	Resolver   SkillResolver
	Executor   SkillExecutor
	Scorer     *scoring.Scorer
	Recorder   *telemetry.Recorder
	Tracer     *tracing.Tracer
}

// Orchestrator drives questions through hypotheses and tasks to a verdict.
// It holds no state between passes; everything lives in the store.
type Orchestrator struct {
	Components
	cfg    OrchestratorConfig
	logger *zap.Logger
}

func NewOrchestrator(c Components, cfg OrchestratorConfig) *Orchestrator {
	if c.Recorder == nil {
		c.Recorder = telemetry.Nop()
	}
	if c.Tracer == nil {
		c.Tracer = tracing.Noop()
	}
	if c.Scorer == nil {
		c.Scorer = scoring.NewScorer(c.Store)
	}
	if cfg.MaxFormulationAttempts <= 0 {
		cfg.MaxFormulationAttempts = 1
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Second
	}
	return &Orchestrator{Components: c, cfg: cfg, logger: c.Recorder.Logger()}
}

// Run calls RunOnce until ctx ends, pausing between passes that made no
// progress or failed.
func (o *Orchestrator) Run(ctx context.Context) error {
	for {
		outcome, err := o.RunOnce(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			o.logger.Error("orchestrator pass failed", zap.Error(err))
		}
		if err == nil && outcome != OutcomeIdle && outcome != OutcomeStalled {
			continue
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(o.cfg.Interval):
		}
	}
}

// RunOnce performs one unit of progress on the earliest open question.
func (o *Orchestrator) RunOnce(ctx context.Context) (Outcome, error) {
	ctx, span := o.Tracer.StartPassSpan(ctx)
	defer span.End()

	start := time.Now()
	outcome, err := o.pass(ctx)
	if err != nil {
		tracing.RecordSpanError(span, err)
		o.Recorder.Pass("error", time.Since(start))
		return outcome, err
	}
	tracing.RecordSpanSuccess(span)
	o.Recorder.Pass(string(outcome), time.Since(start))
	o.logger.Debug("orchestrator pass", zap.String("outcome", string(outcome)), zap.Duration("elapsed", time.Since(start)))
	return outcome, nil
}

func (o *Orchestrator) pass(ctx context.Context) (Outcome, error) {
	open, err := o.Store.ListQuestions(ctx, core.QuestionOpen)
	if err != nil {
		return "", fmt.Errorf("failed to list open questions: %w", err)
	}
	if len(open) == 0 {
		if o.cfg.ProposeQuestionsWhenIdle {
			q, err := o.proposeQuestion(ctx)
			if err != nil {
				return "", err
			}
			if q != nil {
				return OutcomeProgressed, nil
			}
		}
		return OutcomeIdle, nil
	}
	q := open[0]

	direct, err := o.Store.ListTasks(ctx, core.TaskFilter{QuestionID: q.ID, DirectOnly: true})
	if err != nil {
		return "", fmt.Errorf("failed to list tasks of %s: %w", q.ID, err)
	}
	if len(direct) > 0 || o.cfg.PlanDirectly {
		return o.advance(ctx, q, nil, direct)
	}

	h, err := o.pendingHypothesis(ctx, q)
	if err != nil {
		return "", err
	}
	if h == nil {
		return OutcomeStalled, nil
	}
	tasks, err := o.Store.ListTasks(ctx, core.TaskFilter{HypothesisID: h.ID})
	if err != nil {
		return "", fmt.Errorf("failed to list tasks of %s: %w", h.ID, err)
	}
	return o.advance(ctx, q, h, tasks)
}

// pendingHypothesis returns the earliest pending hypothesis of q, or
// formulates one. It returns nil when every candidate was discarded.
func (o *Orchestrator) pendingHypothesis(ctx context.Context, q core.Question) (*core.Hypothesis, error) {
	pending, err := o.Store.ListHypotheses(ctx, core.HypothesisFilter{
		QuestionID: q.ID,
		Statuses:   []core.HypothesisStatus{core.HypothesisPending},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list hypotheses of %s: %w", q.ID, err)
	}
	if len(pending) > 0 {
		return &pending[0], nil
	}

	for attempt := 1; attempt <= o.cfg.MaxFormulationAttempts; attempt++ {
		candidates, err := o.Formulator.Formulate(ctx, q)
		if err != nil {
			return nil, err
		}
		for _, text := range candidates {
			score, err := o.Scorer.ScoreHypothesis(ctx, text)
			if err != nil {
				return nil, err
			}
			if !score.Accepted(o.cfg.NoveltyThreshold) {
				o.logger.Info("hypothesis below novelty threshold",
					zap.String("question_id", q.ID),
					zap.Float64("score", score.Value),
					zap.Float64("redundancy", score.Redundancy),
					zap.Float64("implausibility", score.Implausibility))
				o.Recorder.Discard("hypothesis", text, "novelty")
				continue
			}
			h := &core.Hypothesis{
				QuestionID:  q.ID,
				Description: text,
				Status:      core.HypothesisPending,
				Score:       score.Value,
			}
			if err := o.Store.CreateHypothesis(ctx, h); err != nil {
				return nil, fmt.Errorf("failed to store hypothesis: %w", err)
			}
			o.Recorder.Transition("hypothesis", h.ID, "", string(core.HypothesisPending), fmt.Sprintf("score %.2f", score.Value))
			return h, nil
		}
	}
	o.logger.Warn("no acceptable hypothesis", zap.String("question_id", q.ID), zap.Int("attempts", o.cfg.MaxFormulationAttempts))
	return nil, nil
}

// advance plans tasks when there are none, then sweeps them.
func (o *Orchestrator) advance(ctx context.Context, q core.Question, h *core.Hypothesis, tasks []core.Task) (Outcome, error) {
	if len(tasks) == 0 {
		planned, err := o.plan(ctx, q, h)
		if err != nil {
			return "", err
		}
		if len(planned) == 0 {
			return OutcomeStalled, nil
		}
		tasks = planned
	}
	if allCompleted(tasks) {
		return o.solve(ctx, q, h)
	}

	remaining := make([]core.Task, 0, len(tasks))
	for _, t := range tasks {
		if o.poisoned(t) {
			if err := o.Store.DeleteTask(ctx, t.ID); err != nil {
				return "", fmt.Errorf("failed to delete task %s: %w", t.ID, err)
			}
			o.Recorder.Discard("task", t.Description, "poison")
			continue
		}
		switch t.Status {
		case core.TaskCompleted:
		case core.TaskFailed:
			return o.falsify(ctx, q, h, t)
		case core.TaskInProgress:
			// Only one orchestrator runs tasks, so a task still in progress
			// at the start of a sweep was abandoned by an earlier pass.
			if err := o.setTask(ctx, &t, core.TaskPending, nil, false, "stale"); err != nil {
				return "", err
			}
			fallthrough
		case core.TaskPending, core.TaskError:
			if o.errorsExhausted(t) {
				return o.unverifiable(ctx, q, h, t)
			}
			next, outcome, err := o.runTask(ctx, q, h, t)
			if err != nil || outcome != "" {
				return outcome, err
			}
			t = next
		}
		remaining = append(remaining, t)
	}

	if allCompleted(remaining) {
		return o.solve(ctx, q, h)
	}
	return OutcomeProgressed, nil
}

func (o *Orchestrator) plan(ctx context.Context, q core.Question, h *core.Hypothesis) ([]core.Task, error) {
	descs, err := o.Planner.Plan(ctx, q, h)
	if err != nil {
		return nil, err
	}
	tasks := make([]core.Task, 0, len(descs))
	for _, d := range descs {
		t := core.Task{QuestionID: q.ID, Description: d, Status: core.TaskPending}
		if h != nil {
			t.HypothesisID = h.ID
		}
		if err := o.Store.CreateTask(ctx, &t); err != nil {
			return nil, fmt.Errorf("failed to store task: %w", err)
		}
		o.Recorder.Transition("task", t.ID, "", string(core.TaskPending), "")
		tasks = append(tasks, t)
	}
	return tasks, nil
}

// runTask applies the task result rule. A non-empty outcome ends the pass.
func (o *Orchestrator) runTask(ctx context.Context, q core.Question, h *core.Hypothesis, t core.Task) (core.Task, Outcome, error) {
	ctx, span := o.Tracer.StartTaskSpan(ctx, t.ID, t.Description)
	defer span.End()

	if err := o.setTask(ctx, &t, core.TaskInProgress, nil, false, ""); err != nil {
		return t, "", err
	}

	skill, err := o.Resolver.Resolve(ctx, t.Description)
	if err != nil && !errors.Is(err, core.ErrSynthesisExhausted) {
		tracing.RecordSpanError(span, err)
		o.release(ctx, &t)
		return t, "", err
	}

	var verdict bool
	if err == nil {
		start := time.Now()
		verdict, err = o.Executor.Execute(ctx, skill, o.cfg.SkillTimeout)
		o.Recorder.SkillExecuted(executionResult(verdict, err), time.Since(start))
	}

	if err != nil {
		tracing.RecordSpanError(span, err)
		msg := err.Error()
		if serr := o.setTask(ctx, &t, core.TaskError, &msg, true, msg); serr != nil {
			o.release(ctx, &t)
			return t, "", serr
		}
		if o.errorsExhausted(t) {
			outcome, err := o.unverifiable(ctx, q, h, t)
			return t, outcome, err
		}
		return t, "", nil
	}

	tracing.RecordSpanSuccess(span)
	if verdict {
		result := "true"
		if err := o.setTask(ctx, &t, core.TaskCompleted, &result, false, "skill "+skill.ID); err != nil {
			o.release(ctx, &t)
			return t, "", err
		}
		return t, "", nil
	}
	result := "false"
	if err := o.setTask(ctx, &t, core.TaskFailed, &result, false, "skill "+skill.ID); err != nil {
		o.release(ctx, &t)
		return t, "", err
	}
	outcome, err := o.falsify(ctx, q, h, t)
	return t, outcome, err
}

// release returns a task this pass moved to IN_PROGRESS to PENDING, so the
// next pass runs it again.
func (o *Orchestrator) release(ctx context.Context, t *core.Task) {
	if err := o.setTask(context.WithoutCancel(ctx), t, core.TaskPending, nil, false, "pass aborted"); err != nil {
		o.logger.Error("failed to release task", zap.String("task_id", t.ID), zap.Error(err))
	}
}

// errorsExhausted reports whether t reached the error cap. A zero cap never
// gives up, so ERROR stays inconclusive.
func (o *Orchestrator) errorsExhausted(t core.Task) bool {
	return o.cfg.MaxTaskErrors > 0 && t.Errors >= o.cfg.MaxTaskErrors
}

// falsify rejects the owner of a failed task.
func (o *Orchestrator) falsify(ctx context.Context, q core.Question, h *core.Hypothesis, t core.Task) (Outcome, error) {
	reason := "task " + t.ID + " failed"
	if h == nil {
		if err := o.setQuestion(ctx, q, core.QuestionUnresolvable, reason); err != nil {
			return "", err
		}
		return OutcomeUnresolvable, nil
	}
	if err := o.setHypothesis(ctx, h, core.HypothesisRejected, reason); err != nil {
		return "", err
	}
	return OutcomeRejected, nil
}

// unverifiable gives up on the owner of a task that keeps erroring.
func (o *Orchestrator) unverifiable(ctx context.Context, q core.Question, h *core.Hypothesis, t core.Task) (Outcome, error) {
	reason := fmt.Sprintf("task %s errored %d times: %s", t.ID, t.Errors, t.ResultText())
	if h == nil {
		if err := o.setQuestion(ctx, q, core.QuestionUnresolvable, reason); err != nil {
			return "", err
		}
		return OutcomeUnresolvable, nil
	}
	status := core.HypothesisUnverifiableAnalyze
	if isFetchFailure(t.ResultText()) {
		status = core.HypothesisUnverifiableFetch
	}
	if err := o.setHypothesis(ctx, h, status, reason); err != nil {
		return "", err
	}
	return OutcomeUnverifiable, nil
}

func (o *Orchestrator) solve(ctx context.Context, q core.Question, h *core.Hypothesis) (Outcome, error) {
	if err := o.setQuestion(ctx, q, core.QuestionSolved, "every task completed"); err != nil {
		return "", err
	}
	if h != nil {
		if err := o.setHypothesis(ctx, h, core.HypothesisVerified, "every task completed"); err != nil {
			return "", err
		}
	}
	return OutcomeSolved, nil
}

// Recover releases tasks left IN_PROGRESS by an interrupted process.
func (o *Orchestrator) Recover(ctx context.Context) (int, error) {
	stuck, err := o.Store.ListTasks(ctx, core.TaskFilter{Statuses: []core.TaskStatus{core.TaskInProgress}})
	if err != nil {
		return 0, fmt.Errorf("failed to list in-progress tasks: %w", err)
	}
	for i := range stuck {
		if err := o.setTask(ctx, &stuck[i], core.TaskPending, nil, false, "recovered"); err != nil {
			return i, err
		}
	}
	return len(stuck), nil
}

// Submit stores text as an open question unless it is not novel enough.
// force skips the novelty check.
func (o *Orchestrator) Submit(ctx context.Context, text string, force bool) (*core.Question, scoring.Score, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, scoring.Score{}, fmt.Errorf("question is empty: %w", ErrInvalidQuestion)
	}
	if o.cfg.PoisonToken != "" && strings.Contains(text, o.cfg.PoisonToken) {
		return nil, scoring.Score{}, fmt.Errorf("question contains the poison token: %w", ErrInvalidQuestion)
	}
	score, err := o.Scorer.ScoreQuestion(ctx, text)
	if err != nil {
		return nil, score, err
	}
	if !force && !score.Accepted(o.cfg.NoveltyThreshold) {
		o.Recorder.Discard("question", text, "novelty")
		return nil, score, fmt.Errorf("score %.2f: %w", score.Value, ErrNotNovel)
	}
	q := &core.Question{Description: text, Status: core.QuestionOpen}
	if err := o.Store.CreateQuestion(ctx, q); err != nil {
		return nil, score, fmt.Errorf("failed to store question: %w", err)
	}
	o.Recorder.Transition("question", q.ID, "", string(core.QuestionOpen), fmt.Sprintf("score %.2f", score.Value))
	return q, score, nil
}

func (o *Orchestrator) proposeQuestion(ctx context.Context) (*core.Question, error) {
	candidates, err := o.Formulator.ProposeQuestion(ctx)
	if err != nil {
		return nil, err
	}
	for _, text := range candidates {
		q, _, err := o.Submit(ctx, text, false)
		if errors.Is(err, ErrNotNovel) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return q, nil
	}
	return nil, nil
}

func (o *Orchestrator) setQuestion(ctx context.Context, q core.Question, to core.QuestionStatus, reason string) error {
	if err := o.Store.UpdateQuestionStatus(ctx, q.ID, q.Status, to); err != nil {
		return fmt.Errorf("failed to move question %s to %s: %w", q.ID, to, err)
	}
	o.Recorder.Transition("question", q.ID, string(q.Status), string(to), reason)
	return nil
}

func (o *Orchestrator) setHypothesis(ctx context.Context, h *core.Hypothesis, to core.HypothesisStatus, reason string) error {
	if err := o.Store.UpdateHypothesisStatus(ctx, h.ID, h.Status, to); err != nil {
		return fmt.Errorf("failed to move hypothesis %s to %s: %w", h.ID, to, err)
	}
	o.Recorder.Transition("hypothesis", h.ID, string(h.Status), string(to), reason)
	h.Status = to
	return nil
}

// setTask applies a compare-and-set update and mirrors it into t.
func (o *Orchestrator) setTask(ctx context.Context, t *core.Task, to core.TaskStatus, result *string, countError bool, reason string) error {
	err := o.Store.UpdateTask(ctx, t.ID, t.Status, core.TaskUpdate{Status: to, Result: result, CountError: countError})
	if err != nil {
		return fmt.Errorf("failed to move task %s to %s: %w", t.ID, to, err)
	}
	o.Recorder.Transition("task", t.ID, string(t.Status), string(to), reason)
	t.Status = to
	if result != nil {
		r := *result
		t.Result = &r
	}
	if countError {
		t.Errors++
	}
	return nil
}

func (o *Orchestrator) poisoned(t core.Task) bool {
	return o.cfg.PoisonToken != "" && strings.Contains(t.Description, o.cfg.PoisonToken)
}

func allCompleted(tasks []core.Task) bool {
	if len(tasks) == 0 {
		return false
	}
	for _, t := range tasks {
		if t.Status != core.TaskCompleted {
			return false
		}
	}
	return true
}

var fetchMarkers = []string{"http", "status code", "connection", "dial", "fetch", "timeout", "timed out"}

func isFetchFailure(errText string) bool {
	lower := strings.ToLower(errText)
	for _, m := range fetchMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

func executionResult(verdict bool, err error) string {
	switch {
	case errors.Is(err, core.ErrSkillTimeout):
		return "timeout"
	case err != nil:
		return "error"
	case verdict:
		return "true"
	}
	return "false"
}

package worker

import (
	"context"
	"fmt"
	"strings"

	"github.com/snow-ghost/sleuth/core"
	"github.com/snow-ghost/sleuth/worker/telemetry"
)

// maxSolvedExamples bounds the solved questions shown to the generator.
const maxSolvedExamples = 5

// Formulator proposes hypotheses for a question and new questions for the
// queue. Every generated line passes a validator chain before use.
type Formulator struct {
	gen        core.Generator
	store      core.Store
	hypotheses core.Validators
	questions  core.Validators
	rec        *telemetry.Recorder
}

func NewFormulator(gen core.Generator, store core.Store, poisonToken string, rec *telemetry.Recorder) *Formulator {
	if rec == nil {
		rec = telemetry.Nop()
	}
	return &Formulator{
		gen:        gen,
		store:      store,
		hypotheses: core.StatementValidators(poisonToken),
		questions:  core.QuestionValidators(poisonToken),
		rec:        rec,
	}
}

// Formulate returns the acceptable hypothesis lines of one generation.
func (f *Formulator) Formulate(ctx context.Context, q core.Question) ([]string, error) {
	solved, err := f.solvedExamples(ctx)
	if err != nil {
		return nil, err
	}
	tried, err := f.triedHypotheses(ctx, q.ID)
	if err != nil {
		return nil, err
	}
	resp, err := f.gen.Generate(ctx, hypothesisPrompt(q.Description, solved, tried))
	if err != nil {
		return nil, fmt.Errorf("failed to generate hypotheses: %w", err)
	}
	return filterLines(resp, f.hypotheses, "hypothesis", f.rec), nil
}

// ProposeQuestion returns the acceptable question lines of one generation.
func (f *Formulator) ProposeQuestion(ctx context.Context) ([]string, error) {
	solved, err := f.store.ListQuestions(ctx, core.QuestionSolved)
	if err != nil {
		return nil, fmt.Errorf("failed to list solved questions: %w", err)
	}
	open, err := f.store.ListQuestions(ctx, core.QuestionOpen)
	if err != nil {
		return nil, fmt.Errorf("failed to list open questions: %w", err)
	}
	resp, err := f.gen.Generate(ctx, questionPrompt(questionTexts(latest(solved, maxSolvedExamples)), questionTexts(open)))
	if err != nil {
		return nil, fmt.Errorf("failed to generate questions: %w", err)
	}
	return filterLines(resp, f.questions, "question", f.rec), nil
}

func (f *Formulator) solvedExamples(ctx context.Context) ([]solvedExample, error) {
	solved, err := f.store.ListQuestions(ctx, core.QuestionSolved)
	if err != nil {
		return nil, fmt.Errorf("failed to list solved questions: %w", err)
	}
	var out []solvedExample
	for _, q := range latest(solved, maxSolvedExamples) {
		verified, err := f.store.ListHypotheses(ctx, core.HypothesisFilter{
			QuestionID: q.ID,
			Statuses:   []core.HypothesisStatus{core.HypothesisVerified},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list verified hypotheses: %w", err)
		}
		for _, h := range verified {
			out = append(out, solvedExample{Question: q.Description, Hypothesis: h.Description})
		}
	}
	return out, nil
}

func (f *Formulator) triedHypotheses(ctx context.Context, questionID string) ([]triedHypothesis, error) {
	hs, err := f.store.ListHypotheses(ctx, core.HypothesisFilter{
		QuestionID: questionID,
		Statuses: []core.HypothesisStatus{
			core.HypothesisRejected,
			core.HypothesisUnverifiableFetch,
			core.HypothesisUnverifiableAnalyze,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list rejected hypotheses: %w", err)
	}
	out := make([]triedHypothesis, 0, len(hs))
	for _, h := range hs {
		tasks, err := f.store.ListTasks(ctx, core.TaskFilter{HypothesisID: h.ID})
		if err != nil {
			return nil, fmt.Errorf("failed to list tasks of %s: %w", h.ID, err)
		}
		out = append(out, triedHypothesis{Description: h.Description, Status: h.Status, Tasks: tasks})
	}
	return out, nil
}

// filterLines splits a response into cleaned lines and keeps those the
// validators accept, in order and without duplicates.
func filterLines(resp string, validators core.Validators, kind string, rec *telemetry.Recorder) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, raw := range strings.Split(resp, "\n") {
		line := core.CleanLine(raw)
		if line == "" {
			continue
		}
		if ok, reason := validators.Accept(line); !ok {
			rec.Discard(kind, line, reason)
			continue
		}
		if _, dup := seen[line]; dup {
			continue
		}
		seen[line] = struct{}{}
		out = append(out, line)
	}
	return out
}

// latest keeps the last n items of a creation-ordered slice.
func latest[T any](items []T, n int) []T {
	if len(items) <= n {
		return items
	}
	return items[len(items)-n:]
}

func questionTexts(qs []core.Question) []string {
	out := make([]string, len(qs))
	for i, q := range qs {
		out[i] = q.Description
	}
	return out
}

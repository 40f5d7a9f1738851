package worker

import (
	"context"
	"fmt"

	"github.com/snow-ghost/sleuth/core"
	"github.com/snow-ghost/sleuth/worker/telemetry"
)

// Planner decomposes a hypothesis, or a question planned directly, into
// atomic task descriptions.
type Planner struct {
	gen        core.Generator
	store      core.Store
	validators core.Validators
	rec        *telemetry.Recorder
}

func NewPlanner(gen core.Generator, store core.Store, poisonToken string, rec *telemetry.Recorder) *Planner {
	if rec == nil {
		rec = telemetry.Nop()
	}
	return &Planner{
		gen:        gen,
		store:      store,
		validators: core.StatementValidators(poisonToken),
		rec:        rec,
	}
}

// Plan returns task descriptions for h, or for q itself when h is nil.
// Descriptions already used by a task of the same owner are dropped. Tasks
// of earlier hypotheses are only shown as context, so a check they ran may
// be planned again.
func (p *Planner) Plan(ctx context.Context, q core.Question, h *core.Hypothesis) ([]string, error) {
	existing, err := p.store.ListTasks(ctx, core.TaskFilter{QuestionID: q.ID})
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks of %s: %w", q.ID, err)
	}
	owner := ""
	if h != nil {
		owner = h.ID
	}
	used := make(map[string]struct{})
	seen := make(map[string]struct{}, len(existing))
	var executed []string
	for _, t := range existing {
		if t.HypothesisID == owner {
			used[t.Description] = struct{}{}
		}
		if _, dup := seen[t.Description]; dup {
			continue
		}
		seen[t.Description] = struct{}{}
		executed = append(executed, t.Description)
	}

	hypothesis := ""
	if h != nil {
		hypothesis = h.Description
	}
	resp, err := p.gen.Generate(ctx, planPrompt(q.Description, hypothesis, executed))
	if err != nil {
		return nil, fmt.Errorf("failed to generate tasks: %w", err)
	}

	var out []string
	for _, line := range filterLines(resp, p.validators, "task", p.rec) {
		if _, dup := used[line]; dup {
			p.rec.Discard("task", line, "duplicate")
			continue
		}
		out = append(out, line)
	}
	return out, nil
}

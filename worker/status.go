package worker

import (
	"context"
	"fmt"

	"github.com/snow-ghost/sleuth/core"
)

// Summary counts stored entities per status.
type Summary struct {
	Questions  map[core.QuestionStatus]int   `json:"questions"`
	Hypotheses map[core.HypothesisStatus]int `json:"hypotheses"`
	Tasks      map[core.TaskStatus]int       `json:"tasks"`
	Skills     map[string]int                `json:"skills"` // by origin
}

func (o *Orchestrator) Summary(ctx context.Context) (Summary, error) {
	s := Summary{
		Questions:  make(map[core.QuestionStatus]int),
		Hypotheses: make(map[core.HypothesisStatus]int),
		Tasks:      make(map[core.TaskStatus]int),
		Skills:     make(map[string]int),
	}
	qs, err := o.Store.ListQuestions(ctx)
	if err != nil {
		return s, fmt.Errorf("failed to list questions: %w", err)
	}
	for _, q := range qs {
		s.Questions[q.Status]++
	}
	hs, err := o.Store.ListHypotheses(ctx, core.HypothesisFilter{})
	if err != nil {
		return s, fmt.Errorf("failed to list hypotheses: %w", err)
	}
	for _, h := range hs {
		s.Hypotheses[h.Status]++
	}
	ts, err := o.Store.ListTasks(ctx, core.TaskFilter{})
	if err != nil {
		return s, fmt.Errorf("failed to list tasks: %w", err)
	}
	for _, t := range ts {
		s.Tasks[t.Status]++
	}
	sks, err := o.Store.ListSkills(ctx)
	if err != nil {
		return s, fmt.Errorf("failed to list skills: %w", err)
	}
	for _, sk := range sks {
		s.Skills[sk.Origin]++
	}
	return s, nil
}

package scoring

import (
	"context"
	"fmt"

	"github.com/snow-ghost/sleuth/core"
)

// Score is the novelty verdict for one candidate text.
// Value = (1 - Redundancy) * (1 - Implausibility).
type Score struct {
	Value          float64
	Redundancy     float64
	Implausibility float64
}

// Accepted applies the caller's threshold policy.
func (s Score) Accepted(threshold float64) bool {
	return s.Value > threshold
}

func newScore(redundancy, implausibility float64) Score {
	return Score{
		Value:          clamp01((1 - redundancy) * (1 - implausibility)),
		Redundancy:     redundancy,
		Implausibility: implausibility,
	}
}

// Scorer compares candidate questions and hypotheses against history.
type Scorer struct {
	store core.Store
}

func NewScorer(store core.Store) *Scorer {
	return &Scorer{store: store}
}

// ScoreQuestion scores against solved (redundancy) and unresolvable
// (implausibility) questions.
func (s *Scorer) ScoreQuestion(ctx context.Context, text string) (Score, error) {
	settled, err := s.store.ListQuestions(ctx, core.QuestionSolved)
	if err != nil {
		return Score{}, fmt.Errorf("failed to list solved questions: %w", err)
	}
	unresolvable, err := s.store.ListQuestions(ctx, core.QuestionUnresolvable)
	if err != nil {
		return Score{}, fmt.Errorf("failed to list unresolvable questions: %w", err)
	}
	return newScore(
		MaxSimilarity(text, questionTexts(settled)),
		MaxSimilarity(text, questionTexts(unresolvable)),
	), nil
}

// ScoreHypothesis scores against verified or rejected (redundancy) and
// unverifiable (implausibility) hypotheses.
func (s *Scorer) ScoreHypothesis(ctx context.Context, text string) (Score, error) {
	settled, err := s.store.ListHypotheses(ctx, core.HypothesisFilter{
		Statuses: []core.HypothesisStatus{core.HypothesisVerified, core.HypothesisRejected},
	})
	if err != nil {
		return Score{}, fmt.Errorf("failed to list settled hypotheses: %w", err)
	}
	unverifiable, err := s.store.ListHypotheses(ctx, core.HypothesisFilter{
		Statuses: []core.HypothesisStatus{core.HypothesisUnverifiableFetch, core.HypothesisUnverifiableAnalyze},
	})
	if err != nil {
		return Score{}, fmt.Errorf("failed to list unverifiable hypotheses: %w", err)
	}
	return newScore(
		MaxSimilarity(text, hypothesisTexts(settled)),
		MaxSimilarity(text, hypothesisTexts(unverifiable)),
	), nil
}

func questionTexts(qs []core.Question) []string {
	out := make([]string, len(qs))
	for i, q := range qs {
		out[i] = q.Description
	}
	return out
}

func hypothesisTexts(hs []core.Hypothesis) []string {
	out := make([]string, len(hs))
	for i, h := range hs {
		out[i] = h.Description
	}
	return out
}

package worker

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/snow-ghost/sleuth/core"
	kbfs "github.com/snow-ghost/sleuth/kb/fs"
	"github.com/snow-ghost/sleuth/pkg/tokens"
	"github.com/snow-ghost/sleuth/pkg/tracing"
	"github.com/snow-ghost/sleuth/scoring"
	"github.com/snow-ghost/sleuth/worker/telemetry"
	"go.uber.org/zap"
)

// SkillExecutor runs a skill and returns its verdict.
type SkillExecutor interface {
	Execute(ctx context.Context, skill core.Skill, timeout time.Duration) (bool, error)
}

// SkillIndex finds stored skills similar to a description.
type SkillIndex interface {
	Similar(ctx context.Context, description string, k int) ([]core.Skill, error)
	IndexSkill(ctx context.Context, skill core.Skill) error
}

// SynthesizerOptions bounds the repair loop.
type SynthesizerOptions struct {
	MaxAttempts  int
	Exemplars    int
	Hints        []HintRule
	Timeout      time.Duration // per execution
	PromptBudget int           // tokens available for exemplars, 0 for no limit
}

// Synthesizer generates a skill, runs it, and feeds the failure back into
// the next prompt until a run returns a verdict.
type Synthesizer struct {
	gen      core.Generator
	executor SkillExecutor
	skills   core.SkillStore
	tree     *kbfs.Tree
	index    SkillIndex // optional
	counter  tokens.Counter
	opts     SynthesizerOptions
	rec      *telemetry.Recorder
	tracer   *tracing.Tracer
	logger   *zap.Logger
}

func NewSynthesizer(gen core.Generator, executor SkillExecutor, skills core.SkillStore, tree *kbfs.Tree, index SkillIndex,
	counter tokens.Counter, opts SynthesizerOptions, rec *telemetry.Recorder, tracer *tracing.Tracer) *Synthesizer {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 20
	}
	if opts.Timeout <= 0 {
		opts.Timeout = time.Minute
	}
	if opts.Hints == nil {
		opts.Hints = DefaultHints
	}
	if counter == nil {
		counter = tokens.ApproxCounter{}
	}
	if rec == nil {
		rec = telemetry.Nop()
	}
	if tracer == nil {
		tracer = tracing.Noop()
	}
	return &Synthesizer{
		gen:      gen,
		executor: executor,
		skills:   skills,
		tree:     tree,
		index:    index,
		counter:  counter,
		opts:     opts,
		rec:      rec,
		tracer:   tracer,
		logger:   rec.Logger(),
	}
}

// Synthesize returns a stored skill for description, or a
// *core.SynthesisExhaustedError after MaxAttempts attempts. Generator and
// store failures abort immediately.
func (s *Synthesizer) Synthesize(ctx context.Context, description string) (core.Skill, error) {
	exemplars, err := s.exemplars(ctx, description)
	if err != nil {
		return core.Skill{}, err
	}

	var state attemptState
	var lastErr error
	for attempt := 1; attempt <= s.opts.MaxAttempts; attempt++ {
		skill, next, err := s.attempt(ctx, description, attempt, exemplars, state)
		if err == nil {
			return skill, nil
		}
		var fatal *fatalError
		if errors.As(err, &fatal) {
			return core.Skill{}, fatal.err
		}
		state, lastErr = next, err
	}
	return core.Skill{}, &core.SynthesisExhaustedError{
		Description: description,
		Attempts:    s.opts.MaxAttempts,
		LastErr:     lastErr,
	}
}

// fatalError marks failures that end synthesis instead of consuming an attempt.
type fatalError struct{ err error }

func (e *fatalError) Error() string { return e.err.Error() }

func (s *Synthesizer) attempt(ctx context.Context, description string, attempt int, exemplars []string, state attemptState) (core.Skill, attemptState, error) {
	ctx, span := s.tracer.StartSynthesisSpan(ctx, description, attempt)
	defer span.End()
	log := s.logger.With(zap.String("description", description), zap.Int("attempt", attempt))

	dirs, err := s.tree.Dirs()
	if err != nil {
		return core.Skill{}, state, &fatalError{err}
	}
	prompt := synthesisPrompt(description, exemplars, state, dirs)
	resp, err := s.gen.Generate(ctx, prompt)
	if err != nil {
		tracing.RecordSpanError(span, err)
		return core.Skill{}, state, &fatalError{fmt.Errorf("failed to generate skill: %w", err)}
	}

	code, ok := extractCode(resp)
	if !ok {
		s.rec.SynthesisAttempt("no_code")
		log.Info("generated response has no code block")
		tracing.RecordSpanError(span, core.ErrNoCodeBlock)
		return core.Skill{}, state, core.ErrNoCodeBlock
	}

	header, _ := core.ParseHeader(code)
	candidate := core.Skill{
		Description: description,
		Code:        code,
		FilePath:    header.FilePath,
		Origin:      core.OriginSynthesized,
	}
	if _, err := s.executor.Execute(ctx, candidate, s.opts.Timeout); err != nil {
		s.rec.SynthesisAttempt("error")
		log.Info("generated skill failed", zap.Error(err))
		tracing.RecordSpanError(span, err)
		return core.Skill{}, attemptState{code: code, err: err.Error(), hint: s.hintFor(err.Error())}, err
	}

	if hint, err := s.checkHeader(description, header, dirs); err != nil {
		s.rec.SynthesisAttempt("invalid_header")
		log.Info("generated skill discarded", zap.Error(err))
		tracing.RecordSpanError(span, err)
		return core.Skill{}, attemptState{code: code, err: err.Error(), hint: hint}, err
	}

	if _, err := s.tree.Write(header.FilePath, code); err != nil {
		return core.Skill{}, state, &fatalError{err}
	}
	if err := s.skills.CreateSkill(ctx, &candidate); err != nil {
		return core.Skill{}, state, &fatalError{fmt.Errorf("failed to store skill: %w", err)}
	}
	if s.index != nil {
		if err := s.index.IndexSkill(ctx, candidate); err != nil {
			log.Warn("failed to index skill", zap.String("skill_id", candidate.ID), zap.Error(err))
		}
	}
	s.rec.SynthesisAttempt("ok")
	tracing.RecordSpanSuccess(span)
	log.Info("skill synthesized", zap.String("skill_id", candidate.ID), zap.String("file_path", candidate.FilePath))
	return candidate, state, nil
}

// checkHeader accepts a skill whose header declares description and a
// writable path inside the tree that holds no other skill. On rejection it
// also returns a hint.
func (s *Synthesizer) checkHeader(description string, header core.SkillHeader, dirs []string) (string, error) {
	if header.Description != description {
		return fmt.Sprintf("Start the file with: // %s: %s", core.HeaderDescription, description),
			fmt.Errorf("first line must declare %q, got %q", description, header.Description)
	}
	if _, err := s.tree.Resolve(header.FilePath); err != nil {
		if len(dirs) == 0 {
			return "Use a file name directly inside the skill tree root.", err
		}
		return "Existing directories: " + strings.Join(dirs, ", "), err
	}
	existing, exists, err := s.tree.Declared(header.FilePath)
	if err != nil {
		return "Choose another file name.", err
	}
	if exists && existing != description {
		return fmt.Sprintf("%s already holds another skill. Choose a new file name.", header.FilePath),
			fmt.Errorf("%q declares %q: %w", header.FilePath, existing, core.ErrSkillPathTaken)
	}
	return "", nil
}

func (s *Synthesizer) hintFor(errText string) string {
	lower := strings.ToLower(errText)
	for _, rule := range s.opts.Hints {
		if rule.Match != "" && strings.Contains(lower, strings.ToLower(rule.Match)) {
			return rule.Hint
		}
	}
	return ""
}

// exemplars renders the most similar stored skills within the prompt budget.
func (s *Synthesizer) exemplars(ctx context.Context, description string) ([]string, error) {
	if s.opts.Exemplars <= 0 {
		return nil, nil
	}
	var similar []core.Skill
	if s.index != nil {
		found, err := s.index.Similar(ctx, description, s.opts.Exemplars)
		if err != nil {
			s.logger.Warn("semantic exemplar search failed", zap.Error(err))
		}
		similar = found
	}
	if len(similar) == 0 {
		all, err := s.skills.ListSkills(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list skills: %w", err)
		}
		similar = scoring.Rank(description, all, s.opts.Exemplars)
	}
	rendered := make([]string, len(similar))
	for i, sk := range similar {
		rendered[i] = renderExemplar(sk)
	}
	return tokens.Fit(s.counter, s.opts.PromptBudget, rendered), nil
}

var fence = regexp.MustCompile("(?s)```[A-Za-z0-9_+-]*[ \t]*\r?\n(.*?)```")

// extractCode returns the body of the first fenced block.
func extractCode(resp string) (string, bool) {
	m := fence.FindStringSubmatch(resp)
	if m == nil {
		return "", false
	}
	code := strings.TrimSpace(m[1])
	if code == "" {
		return "", false
	}
	return code + "\n", true
}

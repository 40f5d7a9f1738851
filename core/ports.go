package core

import "context"

// HypothesisFilter selects hypotheses. Zero fields match everything.
type HypothesisFilter struct {
	QuestionID string
	Statuses   []HypothesisStatus
}

// TaskFilter selects tasks. DirectOnly restricts to tasks owned by the
// question itself (no hypothesis).
type TaskFilter struct {
	QuestionID   string
	HypothesisID string
	DirectOnly   bool
	Statuses     []TaskStatus
}

// TaskUpdate is applied by Store.UpdateTask.
type TaskUpdate struct {
	Status     TaskStatus
	Result     *string // nil keeps the stored result
	CountError bool    // increments Task.Errors
}

type QuestionStore interface {
	CreateQuestion(ctx context.Context, q *Question) error
	GetQuestion(ctx context.Context, id string) (*Question, error)
	// ListQuestions returns questions in creation order, optionally filtered by status.
	ListQuestions(ctx context.Context, statuses ...QuestionStatus) ([]Question, error)
	// UpdateQuestionStatus is a compare-and-set on the stored status.
	UpdateQuestionStatus(ctx context.Context, id string, from, to QuestionStatus) error
	DeleteQuestion(ctx context.Context, id string) error
}

type HypothesisStore interface {
	CreateHypothesis(ctx context.Context, h *Hypothesis) error
	GetHypothesis(ctx context.Context, id string) (*Hypothesis, error)
	ListHypotheses(ctx context.Context, f HypothesisFilter) ([]Hypothesis, error)
	UpdateHypothesisStatus(ctx context.Context, id string, from, to HypothesisStatus) error
	DeleteHypothesis(ctx context.Context, id string) error
}

type TaskStore interface {
	CreateTask(ctx context.Context, t *Task) error
	GetTask(ctx context.Context, id string) (*Task, error)
	ListTasks(ctx context.Context, f TaskFilter) ([]Task, error)
	UpdateTask(ctx context.Context, id string, from TaskStatus, u TaskUpdate) error
	DeleteTask(ctx context.Context, id string) error
}

type SkillStore interface {
	CreateSkill(ctx context.Context, s *Skill) error
	GetSkill(ctx context.Context, id string) (*Skill, error)
	// FindSkill returns the newest skill with exactly this description.
	FindSkill(ctx context.Context, description string) (*Skill, error)
	ListSkills(ctx context.Context) ([]Skill, error)
}

// Store owns all persisted state.
type Store interface {
	QuestionStore
	HypothesisStore
	TaskStore
	SkillStore
	Close() error
}

// Generator is the opaque text generation capability.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Unit is an ephemeral, uniquely named copy of a skill prepared for one invocation.
type Unit struct {
	Name   string
	Path   string
	Header SkillHeader
}

// SkillRuntime loads a unit and invokes its single entry point.
type SkillRuntime interface {
	Invoke(ctx context.Context, unit Unit) (bool, error)
}

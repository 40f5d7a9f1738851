package core

import "time"

// QuestionStatus is the lifecycle state of a Question.
type QuestionStatus string

const (
	QuestionOpen         QuestionStatus = "OPEN"
	QuestionSolved       QuestionStatus = "SOLVED"
	QuestionUnresolvable QuestionStatus = "UNRESOLVABLE"
)

// HypothesisStatus is the lifecycle state of a Hypothesis.
type HypothesisStatus string

const (
	HypothesisPending             HypothesisStatus = "PENDING"
	HypothesisVerified            HypothesisStatus = "VERIFIED"
	HypothesisRejected            HypothesisStatus = "REJECTED"
	HypothesisUnverifiableFetch   HypothesisStatus = "UNVERIFIABLE_FETCH"
	HypothesisUnverifiableAnalyze HypothesisStatus = "UNVERIFIABLE_ANALYZE"
)

// TaskStatus is the lifecycle state of a Task.
type TaskStatus string

const (
	TaskPending    TaskStatus = "PENDING"
	TaskInProgress TaskStatus = "IN_PROGRESS"
	TaskCompleted  TaskStatus = "COMPLETED"
	TaskFailed     TaskStatus = "FAILED"
	TaskError      TaskStatus = "ERROR"
)

// Skill origins.
const (
	OriginSeeded      = "seeded"
	OriginSynthesized = "synthesized"
)

type Question struct {
	ID          string
	Description string
	Status      QuestionStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Hypothesis struct {
	ID          string
	QuestionID  string // owning question
	Description string
	Status      HypothesisStatus
	Score       float64 // novelty score at acceptance time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Task is an atomic boolean-checkable step. It belongs to a hypothesis, or
// directly to a question when HypothesisID is empty.
type Task struct {
	ID           string
	QuestionID   string
	HypothesisID string
	Description  string
	Status       TaskStatus
	Result       *string
	Errors       int // number of ERROR outcomes so far
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Direct reports whether the task is owned by its question rather than a hypothesis.
func (t Task) Direct() bool { return t.HypothesisID == "" }

// ResultText returns the stored result or "".
func (t Task) ResultText() string {
	if t.Result == nil {
		return ""
	}
	return *t.Result
}

// Skill is persisted executable code answering one task description.
// Skills are immutable once stored.
type Skill struct {
	ID          string
	Description string // join key with Task.Description
	Code        string
	FilePath    string // relative to the skill tree root, may be empty
	Origin      string // OriginSeeded | OriginSynthesized
	CreatedAt   time.Time
}

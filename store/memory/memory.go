// Package memory is an in-process core.Store. State is lost on Close.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/snow-ghost/sleuth/core"
)

// Store keeps every record in maps guarded by one mutex. Records carry an
// insertion sequence that breaks creation-time ties.
type Store struct {
	mu         sync.RWMutex
	seq        int64
	questions  map[string]*entry[core.Question]
	hypotheses map[string]*entry[core.Hypothesis]
	tasks      map[string]*entry[core.Task]
	skills     map[string]*entry[core.Skill]
	now        func() time.Time
}

type entry[T any] struct {
	seq int64
	val T
}

var _ core.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		questions:  make(map[string]*entry[core.Question]),
		hypotheses: make(map[string]*entry[core.Hypothesis]),
		tasks:      make(map[string]*entry[core.Task]),
		skills:     make(map[string]*entry[core.Skill]),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) Close() error { return nil }

func (s *Store) next() int64 {
	s.seq++
	return s.seq
}

func (s *Store) CreateQuestion(ctx context.Context, q *core.Question) error {
	if q.Description == "" {
		return fmt.Errorf("question description is required")
	}
	if q.Status == "" {
		q.Status = core.QuestionOpen
	}
	if !q.Status.Valid() {
		return fmt.Errorf("invalid question status %q", q.Status)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if q.ID == "" {
		q.ID = core.NewID(core.PrefixQuestion)
	}
	if _, exists := s.questions[q.ID]; exists {
		return fmt.Errorf("question %s already exists", q.ID)
	}
	stamp(&q.CreatedAt, &q.UpdatedAt, s.now())
	s.questions[q.ID] = &entry[core.Question]{seq: s.next(), val: *q}
	return nil
}

func (s *Store) GetQuestion(ctx context.Context, id string) (*core.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.questions[id]
	if !ok {
		return nil, fmt.Errorf("question %s: %w", id, core.ErrNotFound)
	}
	q := e.val
	return &q, nil
}

func (s *Store) ListQuestions(ctx context.Context, statuses ...core.QuestionStatus) ([]core.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := make([]*entry[core.Question], 0, len(s.questions))
	for _, e := range s.questions {
		if len(statuses) == 0 || contains(statuses, e.val.Status) {
			entries = append(entries, e)
		}
	}
	sortEntries(entries, func(q core.Question) time.Time { return q.CreatedAt })
	return values(entries), nil
}

func (s *Store) UpdateQuestionStatus(ctx context.Context, id string, from, to core.QuestionStatus) error {
	if err := core.CheckQuestionTransition(from, to); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.questions[id]
	if !ok {
		return fmt.Errorf("question %s: %w", id, core.ErrNotFound)
	}
	if e.val.Status != from {
		return fmt.Errorf("question %s is %s, expected %s: %w", id, e.val.Status, from, core.ErrStaleStatus)
	}
	e.val.Status = to
	e.val.UpdatedAt = s.now()
	return nil
}

func (s *Store) DeleteQuestion(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.questions[id]; !ok {
		return fmt.Errorf("question %s: %w", id, core.ErrNotFound)
	}
	delete(s.questions, id)
	for hid, h := range s.hypotheses {
		if h.val.QuestionID == id {
			delete(s.hypotheses, hid)
		}
	}
	for tid, t := range s.tasks {
		if t.val.QuestionID == id {
			delete(s.tasks, tid)
		}
	}
	return nil
}

func (s *Store) CreateHypothesis(ctx context.Context, h *core.Hypothesis) error {
	if h.Description == "" {
		return fmt.Errorf("hypothesis description is required")
	}
	if h.Status == "" {
		h.Status = core.HypothesisPending
	}
	if !h.Status.Valid() {
		return fmt.Errorf("invalid hypothesis status %q", h.Status)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.questions[h.QuestionID]; !ok {
		return fmt.Errorf("question %s: %w", h.QuestionID, core.ErrNotFound)
	}
	if h.ID == "" {
		h.ID = core.NewID(core.PrefixHypothesis)
	}
	if _, exists := s.hypotheses[h.ID]; exists {
		return fmt.Errorf("hypothesis %s already exists", h.ID)
	}
	stamp(&h.CreatedAt, &h.UpdatedAt, s.now())
	s.hypotheses[h.ID] = &entry[core.Hypothesis]{seq: s.next(), val: *h}
	return nil
}

func (s *Store) GetHypothesis(ctx context.Context, id string) (*core.Hypothesis, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.hypotheses[id]
	if !ok {
		return nil, fmt.Errorf("hypothesis %s: %w", id, core.ErrNotFound)
	}
	h := e.val
	return &h, nil
}

func (s *Store) ListHypotheses(ctx context.Context, f core.HypothesisFilter) ([]core.Hypothesis, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := make([]*entry[core.Hypothesis], 0)
	for _, e := range s.hypotheses {
		if f.QuestionID != "" && e.val.QuestionID != f.QuestionID {
			continue
		}
		if len(f.Statuses) > 0 && !contains(f.Statuses, e.val.Status) {
			continue
		}
		entries = append(entries, e)
	}
	sortEntries(entries, func(h core.Hypothesis) time.Time { return h.CreatedAt })
	return values(entries), nil
}

func (s *Store) UpdateHypothesisStatus(ctx context.Context, id string, from, to core.HypothesisStatus) error {
	if err := core.CheckHypothesisTransition(from, to); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.hypotheses[id]
	if !ok {
		return fmt.Errorf("hypothesis %s: %w", id, core.ErrNotFound)
	}
	if e.val.Status != from {
		return fmt.Errorf("hypothesis %s is %s, expected %s: %w", id, e.val.Status, from, core.ErrStaleStatus)
	}
	e.val.Status = to
	e.val.UpdatedAt = s.now()
	return nil
}

func (s *Store) DeleteHypothesis(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.hypotheses[id]; !ok {
		return fmt.Errorf("hypothesis %s: %w", id, core.ErrNotFound)
	}
	delete(s.hypotheses, id)
	for tid, t := range s.tasks {
		if t.val.HypothesisID == id {
			delete(s.tasks, tid)
		}
	}
	return nil
}

func (s *Store) CreateTask(ctx context.Context, t *core.Task) error {
	if t.Description == "" {
		return fmt.Errorf("task description is required")
	}
	if t.Status == "" {
		t.Status = core.TaskPending
	}
	if !t.Status.Valid() {
		return fmt.Errorf("invalid task status %q", t.Status)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.HypothesisID != "" {
		h, ok := s.hypotheses[t.HypothesisID]
		if !ok {
			return fmt.Errorf("hypothesis %s: %w", t.HypothesisID, core.ErrNotFound)
		}
		if t.QuestionID == "" {
			t.QuestionID = h.val.QuestionID
		}
		if t.QuestionID != h.val.QuestionID {
			return fmt.Errorf("task question %s does not own hypothesis %s", t.QuestionID, t.HypothesisID)
		}
	}
	if _, ok := s.questions[t.QuestionID]; !ok {
		return fmt.Errorf("question %s: %w", t.QuestionID, core.ErrNotFound)
	}
	if t.ID == "" {
		t.ID = core.NewID(core.PrefixTask)
	}
	if _, exists := s.tasks[t.ID]; exists {
		return fmt.Errorf("task %s already exists", t.ID)
	}
	stamp(&t.CreatedAt, &t.UpdatedAt, s.now())
	s.tasks[t.ID] = &entry[core.Task]{seq: s.next(), val: copyTask(*t)}
	return nil
}

func (s *Store) GetTask(ctx context.Context, id string) (*core.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", id, core.ErrNotFound)
	}
	t := copyTask(e.val)
	return &t, nil
}

func (s *Store) ListTasks(ctx context.Context, f core.TaskFilter) ([]core.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := make([]*entry[core.Task], 0)
	for _, e := range s.tasks {
		t := e.val
		if f.QuestionID != "" && t.QuestionID != f.QuestionID {
			continue
		}
		if f.HypothesisID != "" && t.HypothesisID != f.HypothesisID {
			continue
		}
		if f.DirectOnly && !t.Direct() {
			continue
		}
		if len(f.Statuses) > 0 && !contains(f.Statuses, t.Status) {
			continue
		}
		entries = append(entries, e)
	}
	sortEntries(entries, func(t core.Task) time.Time { return t.CreatedAt })
	out := values(entries)
	for i := range out {
		out[i] = copyTask(out[i])
	}
	return out, nil
}

func (s *Store) UpdateTask(ctx context.Context, id string, from core.TaskStatus, u core.TaskUpdate) error {
	if err := core.CheckTaskTransition(from, u.Status); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.tasks[id]
	if !ok {
		return fmt.Errorf("task %s: %w", id, core.ErrNotFound)
	}
	if e.val.Status != from {
		return fmt.Errorf("task %s is %s, expected %s: %w", id, e.val.Status, from, core.ErrStaleStatus)
	}
	e.val.Status = u.Status
	if u.Result != nil {
		r := *u.Result
		e.val.Result = &r
	}
	if u.CountError {
		e.val.Errors++
	}
	e.val.UpdatedAt = s.now()
	return nil
}

func (s *Store) DeleteTask(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[id]; !ok {
		return fmt.Errorf("task %s: %w", id, core.ErrNotFound)
	}
	delete(s.tasks, id)
	return nil
}

func (s *Store) CreateSkill(ctx context.Context, sk *core.Skill) error {
	if sk.Description == "" || sk.Code == "" {
		return fmt.Errorf("skill description and code are required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if sk.ID == "" {
		sk.ID = core.NewID(core.PrefixSkill)
	}
	if _, exists := s.skills[sk.ID]; exists {
		return fmt.Errorf("skill %s already exists", sk.ID)
	}
	if sk.CreatedAt.IsZero() {
		sk.CreatedAt = s.now()
	}
	s.skills[sk.ID] = &entry[core.Skill]{seq: s.next(), val: *sk}
	return nil
}

func (s *Store) GetSkill(ctx context.Context, id string) (*core.Skill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.skills[id]
	if !ok {
		return nil, fmt.Errorf("skill %s: %w", id, core.ErrNotFound)
	}
	sk := e.val
	return &sk, nil
}

func (s *Store) FindSkill(ctx context.Context, description string) (*core.Skill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var best *entry[core.Skill]
	for _, e := range s.skills {
		if e.val.Description != description {
			continue
		}
		if best == nil || newer(e, best, func(sk core.Skill) time.Time { return sk.CreatedAt }) {
			best = e
		}
	}
	if best == nil {
		return nil, fmt.Errorf("skill %q: %w", description, core.ErrNotFound)
	}
	sk := best.val
	return &sk, nil
}

func (s *Store) ListSkills(ctx context.Context) ([]core.Skill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := make([]*entry[core.Skill], 0, len(s.skills))
	for _, e := range s.skills {
		entries = append(entries, e)
	}
	sortEntries(entries, func(sk core.Skill) time.Time { return sk.CreatedAt })
	return values(entries), nil
}

func stamp(created, updated *time.Time, now time.Time) {
	if created.IsZero() {
		*created = now
	}
	if updated.IsZero() {
		*updated = *created
	}
}

func contains[T comparable](set []T, v T) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func sortEntries[T any](entries []*entry[T], at func(T) time.Time) {
	sort.Slice(entries, func(i, j int) bool {
		ti, tj := at(entries[i].val), at(entries[j].val)
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return entries[i].seq < entries[j].seq
	})
}

func newer[T any](a, b *entry[T], at func(T) time.Time) bool {
	ta, tb := at(a.val), at(b.val)
	if !ta.Equal(tb) {
		return ta.After(tb)
	}
	return a.seq > b.seq
}

func values[T any](entries []*entry[T]) []T {
	out := make([]T, len(entries))
	for i, e := range entries {
		out[i] = e.val
	}
	return out
}

func copyTask(t core.Task) core.Task {
	if t.Result != nil {
		r := *t.Result
		t.Result = &r
	}
	return t
}

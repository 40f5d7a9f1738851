package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/snow-ghost/sleuth/core"
)

const taskColumns = "id, question_id, hypothesis_id, description, status, result, errors, created_at, updated_at"

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
	if t.HypothesisID != "" {
		h, err := s.GetHypothesis(ctx, t.HypothesisID)
		if err != nil {
			return err
		}
		if t.QuestionID == "" {
			t.QuestionID = h.QuestionID
		}
		if t.QuestionID != h.QuestionID {
			return fmt.Errorf("task question %s does not own hypothesis %s", t.QuestionID, t.HypothesisID)
		}
	}
	if _, err := s.GetQuestion(ctx, t.QuestionID); err != nil {
		return err
	}
	if t.ID == "" {
		t.ID = core.NewID(core.PrefixTask)
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = s.now()
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = t.CreatedAt
	}
	var result sql.NullString
	if t.Result != nil {
		result = sql.NullString{String: *t.Result, Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (`+taskColumns+`) VALUES (?, ?, NULLIF(?, ''), ?, ?, ?, ?, ?, ?)`,
		t.ID, t.QuestionID, t.HypothesisID, t.Description, t.Status, result, t.Errors,
		formatTime(t.CreatedAt), formatTime(t.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert task: %w", err)
	}
	return nil
}

func (s *Store) GetTask(ctx context.Context, id string) (*core.Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Store) ListTasks(ctx context.Context, f core.TaskFilter) ([]core.Task, error) {
	var where []string
	var args []any
	if f.QuestionID != "" {
		where = append(where, "question_id = ?")
		args = append(args, f.QuestionID)
	}
	if f.HypothesisID != "" {
		where = append(where, "hypothesis_id = ?")
		args = append(args, f.HypothesisID)
	}
	if f.DirectOnly {
		where = append(where, "hypothesis_id IS NULL")
	}
	if len(f.Statuses) > 0 {
		where = append(where, "status IN ("+placeholders(len(f.Statuses))+")")
		for _, st := range f.Statuses {
			args = append(args, st)
		}
	}
	query := `SELECT ` + taskColumns + ` FROM tasks`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at, rowid"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	var out []core.Task
	for rows.Next() {
		t, err := scanTask(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) UpdateTask(ctx context.Context, id string, from core.TaskStatus, u core.TaskUpdate) error {
	if err := core.CheckTaskTransition(from, u.Status); err != nil {
		return err
	}
	var result sql.NullString
	if u.Result != nil {
		result = sql.NullString{String: *u.Result, Valid: true}
	}
	inc := 0
	if u.CountError {
		inc = 1
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE tasks
		SET status = ?,
			result = CASE WHEN ? THEN ? ELSE result END,
			errors = errors + ?,
			updated_at = ?
		WHERE id = ? AND status = ?`,
		u.Status, result.Valid, result.String, inc, formatTime(s.now()), id, from)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	return s.casResult(ctx, res, "tasks", id, string(from))
}

func (s *Store) DeleteTask(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "tasks", id)
}

func scanTask(scan func(dest ...any) error) (core.Task, error) {
	var t core.Task
	var hypothesisID, result sql.NullString
	var created, updated string
	if err := scan(&t.ID, &t.QuestionID, &hypothesisID, &t.Description, &t.Status, &result, &t.Errors, &created, &updated); err != nil {
		return core.Task{}, err
	}
	t.HypothesisID = hypothesisID.String
	if result.Valid {
		r := result.String
		t.Result = &r
	}
	var err error
	if t.CreatedAt, err = parseTime(created); err != nil {
		return core.Task{}, err
	}
	if t.UpdatedAt, err = parseTime(updated); err != nil {
		return core.Task{}, err
	}
	return t, nil
}

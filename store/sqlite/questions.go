package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/snow-ghost/sleuth/core"
)

const questionColumns = "id, description, status, created_at, updated_at"

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
	if q.ID == "" {
		q.ID = core.NewID(core.PrefixQuestion)
	}
	if q.CreatedAt.IsZero() {
		q.CreatedAt = s.now()
	}
	if q.UpdatedAt.IsZero() {
		q.UpdatedAt = q.CreatedAt
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO questions (`+questionColumns+`) VALUES (?, ?, ?, ?, ?)`,
		q.ID, q.Description, q.Status, formatTime(q.CreatedAt), formatTime(q.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert question: %w", err)
	}
	return nil
}

func (s *Store) GetQuestion(ctx context.Context, id string) (*core.Question, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+questionColumns+` FROM questions WHERE id = ?`, id)
	q, err := scanQuestion(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("question %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func (s *Store) ListQuestions(ctx context.Context, statuses ...core.QuestionStatus) ([]core.Question, error) {
	query := `SELECT ` + questionColumns + ` FROM questions`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		query += ` WHERE status IN (` + placeholders(len(statuses)) + `)`
		for _, st := range statuses {
			args = append(args, st)
		}
	}
	query += ` ORDER BY created_at, rowid`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query questions: %w", err)
	}
	defer rows.Close()

	var out []core.Question
	for rows.Next() {
		q, err := scanQuestion(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (s *Store) UpdateQuestionStatus(ctx context.Context, id string, from, to core.QuestionStatus) error {
	if err := core.CheckQuestionTransition(from, to); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE questions SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		to, formatTime(s.now()), id, from)
	if err != nil {
		return fmt.Errorf("failed to update question status: %w", err)
	}
	return s.casResult(ctx, res, "questions", id, string(from))
}

func (s *Store) DeleteQuestion(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "questions", id)
}

func scanQuestion(scan func(dest ...any) error) (core.Question, error) {
	var q core.Question
	var created, updated string
	if err := scan(&q.ID, &q.Description, &q.Status, &created, &updated); err != nil {
		return core.Question{}, err
	}
	var err error
	if q.CreatedAt, err = parseTime(created); err != nil {
		return core.Question{}, err
	}
	if q.UpdatedAt, err = parseTime(updated); err != nil {
		return core.Question{}, err
	}
	return q, nil
}

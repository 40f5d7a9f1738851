package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/snow-ghost/sleuth/core"
)

const hypothesisColumns = "id, question_id, description, status, score, created_at, updated_at"

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
	if _, err := s.GetQuestion(ctx, h.QuestionID); err != nil {
		return err
	}
	if h.ID == "" {
		h.ID = core.NewID(core.PrefixHypothesis)
	}
	if h.CreatedAt.IsZero() {
		h.CreatedAt = s.now()
	}
	if h.UpdatedAt.IsZero() {
		h.UpdatedAt = h.CreatedAt
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO hypotheses (`+hypothesisColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		h.ID, h.QuestionID, h.Description, h.Status, h.Score, formatTime(h.CreatedAt), formatTime(h.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert hypothesis: %w", err)
	}
	return nil
}

func (s *Store) GetHypothesis(ctx context.Context, id string) (*core.Hypothesis, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+hypothesisColumns+` FROM hypotheses WHERE id = ?`, id)
	h, err := scanHypothesis(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("hypothesis %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func (s *Store) ListHypotheses(ctx context.Context, f core.HypothesisFilter) ([]core.Hypothesis, error) {
	var where []string
	var args []any
	if f.QuestionID != "" {
		where = append(where, "question_id = ?")
		args = append(args, f.QuestionID)
	}
	if len(f.Statuses) > 0 {
		where = append(where, "status IN ("+placeholders(len(f.Statuses))+")")
		for _, st := range f.Statuses {
			args = append(args, st)
		}
	}
	query := `SELECT ` + hypothesisColumns + ` FROM hypotheses`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at, rowid"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query hypotheses: %w", err)
	}
	defer rows.Close()

	var out []core.Hypothesis
	for rows.Next() {
		h, err := scanHypothesis(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (s *Store) UpdateHypothesisStatus(ctx context.Context, id string, from, to core.HypothesisStatus) error {
	if err := core.CheckHypothesisTransition(from, to); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE hypotheses SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		to, formatTime(s.now()), id, from)
	if err != nil {
		return fmt.Errorf("failed to update hypothesis status: %w", err)
	}
	return s.casResult(ctx, res, "hypotheses", id, string(from))
}

func (s *Store) DeleteHypothesis(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "hypotheses", id)
}

func scanHypothesis(scan func(dest ...any) error) (core.Hypothesis, error) {
	var h core.Hypothesis
	var created, updated string
	if err := scan(&h.ID, &h.QuestionID, &h.Description, &h.Status, &h.Score, &created, &updated); err != nil {
		return core.Hypothesis{}, err
	}
	var err error
	if h.CreatedAt, err = parseTime(created); err != nil {
		return core.Hypothesis{}, err
	}
	if h.UpdatedAt, err = parseTime(updated); err != nil {
		return core.Hypothesis{}, err
	}
	return h, nil
}

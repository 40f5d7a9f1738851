package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/snow-ghost/sleuth/core"
)

const skillColumns = "id, description, code, file_path, origin, created_at"

// CreateSkill always inserts; skills are never overwritten.
func (s *Store) CreateSkill(ctx context.Context, sk *core.Skill) error {
	if sk.Description == "" || sk.Code == "" {
		return fmt.Errorf("skill description and code are required")
	}
	if sk.ID == "" {
		sk.ID = core.NewID(core.PrefixSkill)
	}
	if sk.CreatedAt.IsZero() {
		sk.CreatedAt = s.now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO skills (`+skillColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		sk.ID, sk.Description, sk.Code, sk.FilePath, sk.Origin, formatTime(sk.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert skill: %w", err)
	}
	return nil
}

func (s *Store) GetSkill(ctx context.Context, id string) (*core.Skill, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+skillColumns+` FROM skills WHERE id = ?`, id)
	sk, err := scanSkill(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("skill %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &sk, nil
}

func (s *Store) FindSkill(ctx context.Context, description string) (*core.Skill, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+skillColumns+` FROM skills WHERE description = ? ORDER BY created_at DESC, rowid DESC LIMIT 1`,
		description)
	sk, err := scanSkill(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("skill %q: %w", description, core.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &sk, nil
}

func (s *Store) ListSkills(ctx context.Context) ([]core.Skill, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+skillColumns+` FROM skills ORDER BY created_at, rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to query skills: %w", err)
	}
	defer rows.Close()

	var out []core.Skill
	for rows.Next() {
		sk, err := scanSkill(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, sk)
	}
	return out, rows.Err()
}

func scanSkill(scan func(dest ...any) error) (core.Skill, error) {
	var sk core.Skill
	var created string
	if err := scan(&sk.ID, &sk.Description, &sk.Code, &sk.FilePath, &sk.Origin, &created); err != nil {
		return core.Skill{}, err
	}
	t, err := parseTime(created)
	if err != nil {
		return core.Skill{}, err
	}
	sk.CreatedAt = t
	return sk, nil
}

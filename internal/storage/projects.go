package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/scanfill/internal/common"
	"github.com/Veraticus/scanfill/internal/model"
)

// ListProjects returns every stored project ordered by name.
func (s *SQLiteStorage) ListProjects(ctx context.Context) ([]model.Project, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT data, updated_at
		FROM projects
		ORDER BY name, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query projects: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var projects []model.Project
	for rows.Next() {
		project, scanErr := scanProject(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		projects = append(projects, *project)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating projects: %w", err)
	}

	return projects, nil
}

// GetProject returns a project by ID or common.ErrNotFound.
func (s *SQLiteStorage) GetProject(ctx context.Context, id string) (*model.Project, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT data, updated_at
		FROM projects
		WHERE id = ?
	`, id)

	project, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("project %q: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return project, nil
}

// UpsertProject creates or replaces a project.
func (s *SQLiteStorage) UpsertProject(ctx context.Context, project *model.Project) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateProject(project); err != nil {
		return err
	}

	if project.Name == "" {
		project.Name = project.ID
	}
	project.UpdatedAt = time.Now()

	data, err := json.Marshal(project)
	if err != nil {
		return fmt.Errorf("failed to encode project: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO projects (id, name, data, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			data = excluded.data,
			updated_at = excluded.updated_at
	`, project.ID, project.Name, string(data), project.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save project: %w", err)
	}

	return nil
}

// DeleteProject removes a project together with its extraction cache.
func (s *SQLiteStorage) DeleteProject(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete project: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to check deleted rows: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("project %q: %w", id, common.ErrNotFound)
		}
		if _, err := clearProjectCache(ctx, tx, id); err != nil {
			return err
		}
		return nil
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (*model.Project, error) {
	var (
		data      string
		updatedAt time.Time
	)
	if err := row.Scan(&data, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan project: %w", err)
	}

	var project model.Project
	if err := json.Unmarshal([]byte(data), &project); err != nil {
		return nil, fmt.Errorf("%w: project data: %w", common.ErrDatabaseCorrupted, err)
	}
	project.UpdatedAt = updatedAt
	return &project, nil
}

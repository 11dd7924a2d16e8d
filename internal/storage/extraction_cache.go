package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/scanfill/internal/model"
)

// GetValidExtraction returns the cached result for a file only when it was a
// success and the recorded modification time matches modTime exactly.
func (s *SQLiteStorage) GetValidExtraction(ctx context.Context, projectID, filePath string, modTime time.Time) (*model.CachedExtraction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(projectID, "projectID"); err != nil {
		return nil, err
	}
	if err := validateString(filePath, "filePath"); err != nil {
		return nil, err
	}

	var (
		entry    model.CachedExtraction
		status   string
		modNanos int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT project_id, file_path, amount, status, mod_time, cached_at
		FROM extraction_cache
		WHERE project_id = ? AND file_path = ?
	`, projectID, filePath).Scan(&entry.ProjectID, &entry.FilePath, &entry.Amount, &status, &modNanos, &entry.CachedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil //nolint:nilnil // a miss is not an error
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query extraction cache: %w", err)
	}

	entry.Status = model.ExtractionStatus(status)
	entry.ModTime = time.Unix(0, modNanos)

	if entry.Status != model.StatusSuccess || modNanos != modTime.UnixNano() {
		return nil, nil //nolint:nilnil // stale entries are treated as misses
	}

	return &entry, nil
}

// SaveExtraction upserts the cached result for a file in a project.
func (s *SQLiteStorage) SaveExtraction(ctx context.Context, entry *model.CachedExtraction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateCachedExtraction(entry); err != nil {
		return err
	}

	if entry.CachedAt.IsZero() {
		entry.CachedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO extraction_cache (project_id, file_path, amount, status, mod_time, cached_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(project_id, file_path) DO UPDATE SET
			amount = excluded.amount,
			status = excluded.status,
			mod_time = excluded.mod_time,
			cached_at = excluded.cached_at
	`, entry.ProjectID, entry.FilePath, entry.Amount, string(entry.Status), entry.ModTime.UnixNano(), entry.CachedAt)
	if err != nil {
		return fmt.Errorf("failed to save extraction: %w", err)
	}

	return nil
}

// ClearProjectCache drops every extraction cached for a project.
func (s *SQLiteStorage) ClearProjectCache(ctx context.Context, projectID string) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateString(projectID, "projectID"); err != nil {
		return 0, err
	}
	return clearProjectCache(ctx, s.db, projectID)
}

func clearProjectCache(ctx context.Context, q queryable, projectID string) (int64, error) {
	result, err := q.ExecContext(ctx, `DELETE FROM extraction_cache WHERE project_id = ?`, projectID)
	if err != nil {
		return 0, fmt.Errorf("failed to clear extraction cache: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count cleared rows: %w", err)
	}
	return n, nil
}

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/scanfill/internal/model"
)

// GetOCRText returns the cached recognized text for a content hash, or nil.
func (s *SQLiteStorage) GetOCRText(ctx context.Context, hash string) (*model.OCRRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(hash, "hash"); err != nil {
		return nil, err
	}

	var record model.OCRRecord
	err := s.db.QueryRowContext(ctx, `
		SELECT hash, file_name, text, created_at
		FROM ocr_cache
		WHERE hash = ?
	`, hash).Scan(&record.Hash, &record.FileName, &record.Text, &record.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil //nolint:nilnil // a miss is not an error
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query ocr cache: %w", err)
	}

	return &record, nil
}

// SaveOCRText stores recognized text, replacing any previous entry for the hash.
func (s *SQLiteStorage) SaveOCRText(ctx context.Context, record *model.OCRRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateOCRRecord(record); err != nil {
		return err
	}

	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ocr_cache (hash, file_name, text, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(hash) DO UPDATE SET
			file_name = excluded.file_name,
			text = excluded.text,
			created_at = excluded.created_at
	`, record.Hash, record.FileName, record.Text, record.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save ocr text: %w", err)
	}

	return nil
}

// ClearOCRCache removes every OCR entry and returns how many were deleted.
func (s *SQLiteStorage) ClearOCRCache(ctx context.Context) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	return deleteAll(ctx, s.db, "ocr_cache")
}

func deleteAll(ctx context.Context, q queryable, table string) (int64, error) {
	result, err := q.ExecContext(ctx, "DELETE FROM "+table)
	if err != nil {
		return 0, fmt.Errorf("failed to clear %s: %w", table, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count cleared rows: %w", err)
	}
	return n, nil
}

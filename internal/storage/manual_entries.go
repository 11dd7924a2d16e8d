package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/scanfill/internal/model"
)

// GetManualEntry returns the remembered amount for a content hash, or nil.
func (s *SQLiteStorage) GetManualEntry(ctx context.Context, hash string) (*model.ManualEntry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(hash, "hash"); err != nil {
		return nil, err
	}

	var entry model.ManualEntry
	err := s.db.QueryRowContext(ctx, `
		SELECT hash, file_name, amount, created_at
		FROM manual_entries
		WHERE hash = ?
	`, hash).Scan(&entry.Hash, &entry.FileName, &entry.Amount, &entry.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil //nolint:nilnil // a miss is not an error
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query manual entry: %w", err)
	}

	return &entry, nil
}

// SaveManualEntry records an operator-typed amount. Later entries win.
func (s *SQLiteStorage) SaveManualEntry(ctx context.Context, entry *model.ManualEntry) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateManualEntry(entry); err != nil {
		return err
	}

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO manual_entries (hash, file_name, amount, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(hash) DO UPDATE SET
			file_name = excluded.file_name,
			amount = excluded.amount,
			created_at = excluded.created_at
	`, entry.Hash, entry.FileName, entry.Amount, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save manual entry: %w", err)
	}

	return nil
}

// ClearManualEntries forgets every operator-typed amount.
func (s *SQLiteStorage) ClearManualEntries(ctx context.Context) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	return deleteAll(ctx, s.db, "manual_entries")
}

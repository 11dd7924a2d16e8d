package storage

import (
	"context"
	"fmt"

	"github.com/Veraticus/scanfill/internal/model"
)

// CacheStats counts the rows held by each cache table.
func (s *SQLiteStorage) CacheStats(ctx context.Context) (*model.CacheStats, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	stats := &model.CacheStats{Path: s.dbPath}
	counts := []struct {
		dest  *int
		table string
	}{
		{&stats.OCREntries, "ocr_cache"},
		{&stats.ManualEntries, "manual_entries"},
		{&stats.ExtractionEntries, "extraction_cache"},
	}

	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+c.table).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", c.table, err)
		}
	}

	return stats, nil
}

// Package scanner discovers invoice documents in a month/category folder tree.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Veraticus/scanfill/internal/common"
	"github.com/Veraticus/scanfill/internal/model"
	"github.com/Veraticus/scanfill/internal/month"
)

// Scanner walks a project root laid out as <month>/<category>/*.pdf.
type Scanner struct {
	logger *slog.Logger
}

// New creates a scanner.
func New(logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{logger: logger}
}

// Scan builds the month -> category -> files tree under root.
// Category folder names are replaced by their alias when one exists.
// A monthFilter naming a recognizable month restricts the scan to that month.
func (s *Scanner) Scan(ctx context.Context, root string, aliases map[string]string, monthFilter string) (*model.ScanResult, error) {
	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", common.ErrPathNotFound, root)
		}
		return nil, fmt.Errorf("failed to stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", common.ErrPathNotFound, root)
	}

	filterIndex := -1
	if monthFilter != "" {
		if m, ok := month.Identify(monthFilter); ok {
			filterIndex = m.Index
		} else {
			s.logger.Warn("Ignoring unrecognized month filter", "filter", monthFilter)
		}
	}

	monthDirs, err := subdirectories(root)
	if err != nil {
		return nil, err
	}

	result := &model.ScanResult{
		Root:   root,
		Months: make(map[string]*model.MonthEntry),
	}

	for _, folder := range monthDirs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		m, ok := month.Identify(folder)
		if !ok {
			s.logger.Debug("Skipping non-month folder", "folder", folder)
			continue
		}
		if filterIndex >= 0 && m.Index != filterIndex {
			continue
		}

		entry, ok := result.Months[m.Name]
		if !ok {
			entry = &model.MonthEntry{
				Index:        m.Index,
				OriginalName: folder,
				Categories:   make(map[string][]string),
			}
			result.Months[m.Name] = entry
		}

		if err := s.scanMonth(filepath.Join(root, folder), aliases, entry); err != nil {
			return nil, err
		}
	}

	s.logger.Debug("Scan complete", "root", root, "months", len(result.Months), "files", result.FileCount())
	return result, nil
}

func (s *Scanner) scanMonth(monthPath string, aliases map[string]string, entry *model.MonthEntry) error {
	categoryDirs, err := subdirectories(monthPath)
	if err != nil {
		return err
	}

	for _, folder := range categoryDirs {
		category := folder
		if alias, ok := aliases[folder]; ok && alias != "" {
			category = alias
		}

		files, err := pdfFiles(filepath.Join(monthPath, folder))
		if err != nil {
			return err
		}
		if len(files) == 0 {
			continue
		}
		entry.Categories[category] = append(entry.Categories[category], files...)
	}
	return nil
}

func subdirectories(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

func pdfFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

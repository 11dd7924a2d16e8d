package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/Veraticus/scanfill/internal/common"
	"github.com/Veraticus/scanfill/internal/model"
	"github.com/xuri/excelize/v2"
)

// ExcelSink updates local .xlsx workbooks in place.
type ExcelSink struct {
	logger *slog.Logger
}

// NewExcelSink creates an xlsx sink.
func NewExcelSink(logger *slog.Logger) *ExcelSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExcelSink{logger: logger}
}

func openWorkbook(path string) (*excelize.File, error) {
	if _, err := KindForPath(path); err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", common.ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("failed to stat workbook: %w", err)
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	return f, nil
}

func requireSheet(f *excelize.File, sheet string) error {
	idx, err := f.GetSheetIndex(sheet)
	if err != nil || idx < 0 {
		return fmt.Errorf("%w: %s", common.ErrWorksheetNotFound, sheet)
	}
	return nil
}

// UpdateSheet writes every mapped total with the two-decimal number format
// and saves the workbook. Existing cell styling other than the number format
// is preserved.
func (s *ExcelSink) UpdateSheet(ctx context.Context, target model.SheetConfig, data map[string]map[string]float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f, err := openWorkbook(target.Path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	if err := requireSheet(f, target.SheetName); err != nil {
		return err
	}

	baseLabel, err := f.GetCellValue(target.SheetName, strings.TrimSpace(target.MonthStartCell))
	if err != nil {
		return fmt.Errorf("%w: month start cell %q: %w", common.ErrInvalidConfig, target.MonthStartCell, err)
	}

	writes, skipped, err := planWrites(target, baseLabel, data)
	if err != nil {
		return err
	}
	if len(skipped) > 0 {
		s.logger.Debug("Skipping unmapped totals", "entries", skipped)
	}

	styles := make(map[int]int)
	for _, w := range writes {
		addr := w.Address()
		if err := f.SetCellFloat(target.SheetName, addr, w.Value, -1, 64); err != nil {
			return fmt.Errorf("failed to write %s: %w", addr, err)
		}
		styleID, err := s.numberStyle(f, target.SheetName, addr, styles)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(target.SheetName, addr, addr, styleID); err != nil {
			return fmt.Errorf("failed to format %s: %w", addr, err)
		}
	}

	if err := f.Save(); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}

	s.logger.Info("Workbook updated", "file", target.Path, "sheet", target.SheetName, "cells", len(writes))
	return nil
}

// numberStyle derives a style from the cell's current one with the number format swapped.
func (s *ExcelSink) numberStyle(f *excelize.File, sheet, addr string, cache map[int]int) (int, error) {
	current, err := f.GetCellStyle(sheet, addr)
	if err != nil {
		return 0, fmt.Errorf("failed to read style of %s: %w", addr, err)
	}
	if id, ok := cache[current]; ok {
		return id, nil
	}

	style, err := f.GetStyle(current)
	if err != nil || style == nil {
		style = &excelize.Style{}
	}
	format := NumberFormat
	style.NumFmt = 0
	style.CustomNumFmt = &format

	id, err := f.NewStyle(style)
	if err != nil {
		return 0, fmt.Errorf("failed to create number style: %w", err)
	}
	cache[current] = id
	return id, nil
}

// Metadata lists tabs, text labels in the category column and month headers.
// An unknown sheet name falls back to the first tab.
func (s *ExcelSink) Metadata(ctx context.Context, target model.SheetConfig) (*Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := openWorkbook(target.Path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	meta := &Metadata{Tabs: f.GetSheetList()}
	if len(meta.Tabs) == 0 {
		return meta, nil
	}

	meta.Sheet = target.SheetName
	if requireSheet(f, meta.Sheet) != nil {
		meta.Sheet = meta.Tabs[0]
	}

	column := strings.ToUpper(strings.TrimSpace(target.CategoryColumn))
	if column == "" {
		column = "A"
	}
	labels, err := s.categoryLabels(f, meta.Sheet, column)
	if err != nil {
		return nil, err
	}
	meta.Categories = labels

	startCell := strings.TrimSpace(target.MonthStartCell)
	if startCell == "" {
		startCell = "B1"
	}
	startCol, startRow, err := startCoordinates(startCell)
	if err != nil {
		return nil, err
	}
	headers := make([]string, 12)
	for i := range headers {
		addr, _ := excelize.CoordinatesToCellName(startCol+i, startRow)
		headers[i], _ = f.GetCellValue(meta.Sheet, addr)
	}
	meta.Months = monthHeaders(headers, startCol, startRow)

	return meta, nil
}

func (s *ExcelSink) categoryLabels(f *excelize.File, sheet, column string) ([]CategoryLabel, error) {
	if _, err := excelize.ColumnNameToNumber(column); err != nil {
		return nil, fmt.Errorf("%w: category column %q: %w", common.ErrInvalidConfig, column, err)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	var labels []CategoryLabel
	for i := range rows {
		addr := column + strconv.Itoa(i+1)
		typ, err := f.GetCellType(sheet, addr)
		if err != nil || (typ != excelize.CellTypeSharedString && typ != excelize.CellTypeInlineString) {
			continue
		}
		value, err := f.GetCellValue(sheet, addr)
		if err != nil {
			continue
		}
		label := strings.TrimSpace(value)
		if label == "" {
			continue
		}
		labels = append(labels, CategoryLabel{Label: label, Address: addr, Row: i + 1})
	}
	return dedupeLabels(labels), nil
}
